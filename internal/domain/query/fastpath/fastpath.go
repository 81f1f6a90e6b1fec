// Package fastpath recognises single-concept queries (a bare brand or a
// canonical product phrase) and interprets them without an LLM round trip.
package fastpath

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
)

// Category is a canonical phrase mapped to a category and keyword set.
type Category struct {
	Phrase    string
	Category  string
	Keywords  []string
	Qualifier string
}

// DefaultBrands is the built-in brand table.
var DefaultBrands = []string{
	"lego", "barbie", "playmobil", "hot wheels", "nerf", "paw patrol", "peppa pig",
	"pokemon", "disney", "marvel", "star wars", "harry potter", "hatchimals", "lol surprise",
	"nike", "adidas", "puma", "converse", "vans", "clarks", "new balance", "reebok", "skechers",
	"apple", "samsung", "sony", "nintendo", "playstation", "xbox", "bose", "jbl", "beats",
	"fitbit", "garmin", "kindle", "dyson", "ninja", "le creuset", "smeg", "nespresso",
	"jellycat", "squishmallows", "vtech", "fisher price", "melissa and doug", "crayola",
	"north face", "the north face", "superdry", "ted baker", "radley", "pandora", "lush",
	"cadbury", "lindt", "thorntons", "yankee candle", "funko", "schleich", "sylvanian families",
}

// DefaultCategories is the built-in canonical phrase table.
var DefaultCategories = []Category{
	{Phrase: "headphones", Category: "Electronics", Keywords: []string{"headphones", "earphones", "earbuds"}},
	{Phrase: "earbuds", Category: "Electronics", Keywords: []string{"earbuds", "wireless earphones"}},
	{Phrase: "trainers", Category: "Shoes", Keywords: []string{"trainers", "sneakers"}},
	{Phrase: "school shoes", Category: "Shoes", Keywords: []string{"school shoes"}, Qualifier: "school"},
	{Phrase: "wellies", Category: "Shoes", Keywords: []string{"wellies", "wellington boots"}},
	{Phrase: "slippers", Category: "Shoes", Keywords: []string{"slippers"}},
	{Phrase: "perfume", Category: "Beauty", Keywords: []string{"perfume", "eau de parfum", "fragrance"}},
	{Phrase: "aftershave", Category: "Beauty", Keywords: []string{"aftershave", "eau de toilette"}},
	{Phrase: "jigsaw", Category: "Toys", Keywords: []string{"jigsaw", "jigsaw puzzle"}},
	{Phrase: "board games", Category: "Toys", Keywords: []string{"board game", "family game"}},
	{Phrase: "teddy bear", Category: "Toys", Keywords: []string{"teddy bear", "soft toy", "plush"}},
	{Phrase: "scooter", Category: "Outdoor", Keywords: []string{"scooter", "kick scooter"}},
	{Phrase: "trampoline", Category: "Outdoor", Keywords: []string{"trampoline"}},
	{Phrase: "air fryer", Category: "Home", Keywords: []string{"air fryer"}},
	{Phrase: "candles", Category: "Home", Keywords: []string{"candle", "scented candle"}},
	{Phrase: "school bag", Category: "Bags", Keywords: []string{"school bag", "backpack"}, Qualifier: "school"},
	{Phrase: "backpack", Category: "Bags", Keywords: []string{"backpack", "rucksack"}},
	{Phrase: "smart watch", Category: "Electronics", Keywords: []string{"smart watch", "smartwatch"}},
}

// Matcher holds the brand and category tables.
type Matcher struct {
	brands     []string
	categories map[string]Category
}

// NewMatcher creates a matcher. Brands are tried longest first.
func NewMatcher(brands []string, categories []Category) *Matcher {
	b := make([]string, 0, len(brands))
	for _, s := range brands {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			b = append(b, s)
		}
	}
	sort.SliceStable(b, func(i, j int) bool { return len(b[i]) > len(b[j]) })

	c := make(map[string]Category, len(categories))
	for _, cat := range categories {
		c[strings.ToLower(cat.Phrase)] = cat
	}
	return &Matcher{brands: b, categories: c}
}

// NewDefaultMatcher creates a matcher over the built-in tables.
func NewDefaultMatcher() *Matcher {
	return NewMatcher(DefaultBrands, DefaultCategories)
}

// Match returns an interpretation when the query is a bare brand or a
// canonical category phrase. query is expected to be lexically normalized.
func (m *Matcher) Match(query string) (interpretation.Interpretation, bool) {
	q := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	if q == "" {
		return interpretation.Interpretation{}, false
	}

	for _, brand := range m.brands {
		if !strings.Contains(q, brand) {
			continue
		}
		rest := strings.TrimSpace(strings.Replace(q, brand, "", 1))
		if rest == "" {
			return brandOnly(query, brand), true
		}
		break
	}

	if cat, ok := m.categories[q]; ok {
		return categoryMatch(query, cat), true
	}
	return interpretation.Interpretation{}, false
}

// DetectBrand returns the longest known brand appearing in query on word
// boundaries.
func (m *Matcher) DetectBrand(query string) (string, bool) {
	q := " " + strings.Join(strings.Fields(strings.ToLower(query)), " ") + " "
	for _, brand := range m.brands {
		if strings.Contains(q, " "+brand+" ") {
			return brand, true
		}
	}
	return "", false
}

func brandOnly(query, brand string) interpretation.Interpretation {
	in := interpretation.Interpretation{
		OriginalQuery: query,
		SearchTerms:   [][]string{{brand}},
		MustHaveAll:   []string{brand},
		Attributes:    &interpretation.Attributes{Brand: interpretation.String(brand)},
		SkipReranker:  true,
	}
	in.Normalize()
	return in
}

func categoryMatch(query string, cat Category) interpretation.Interpretation {
	in := interpretation.Interpretation{
		OriginalQuery: query,
		SearchTerms:   [][]string{append([]string(nil), cat.Keywords...)},
		Context:       interpretation.Context{CategoryFilter: interpretation.String(cat.Category)},
		SkipReranker:  true,
	}
	if cat.Qualifier != "" {
		in.MustHaveAll = []string{cat.Qualifier}
	}
	in.Normalize()
	return in
}
