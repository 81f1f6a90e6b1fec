package interpret

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
	"github.com/kailas-cloud/shopsearch/internal/domain/query/fastpath"
	"github.com/kailas-cloud/shopsearch/internal/domain/query/lexical"
)

// Expander is the offline rule-based interpreter used when the LLM is
// unavailable. Expand is deterministic and always returns a valid result.
type Expander struct {
	brands *fastpath.Matcher
}

// NewExpander creates an expander using brands for brand detection.
func NewExpander(brands *fastpath.Matcher) *Expander {
	if brands == nil {
		brands = fastpath.NewDefaultMatcher()
	}
	return &Expander{brands: brands}
}

var (
	maleRecipients = map[string]struct{}{
		"him": {}, "he": {}, "his": {}, "men": {}, "mens": {}, "boy": {}, "boys": {},
		"dad": {}, "daddy": {}, "father": {}, "husband": {}, "boyfriend": {}, "brother": {},
		"son": {}, "grandad": {}, "grandpa": {}, "uncle": {}, "nephew": {}, "grandson": {},
	}
	femaleRecipients = map[string]struct{}{
		"her": {}, "she": {}, "women": {}, "womens": {}, "girl": {}, "girls": {},
		"mum": {}, "mummy": {}, "mother": {}, "wife": {}, "girlfriend": {}, "sister": {},
		"daughter": {}, "nan": {}, "nanny": {}, "grandma": {}, "aunt": {}, "auntie": {},
		"niece": {}, "granddaughter": {}, "lady": {}, "ladies": {},
	}
	giftWords = map[string]struct{}{
		"gift": {}, "gifts": {}, "present": {}, "presents": {}, "idea": {}, "ideas": {},
	}
	fillerWords = map[string]struct{}{
		"a": {}, "an": {}, "the": {}, "for": {}, "to": {}, "of": {}, "my": {}, "our": {},
		"with": {}, "and": {}, "some": {}, "good": {}, "nice": {}, "cheap": {}, "best": {},
		"old": {}, "year": {}, "years": {}, "yr": {}, "yrs": {}, "aged": {}, "age": {},
	}
	ageWords = map[string]string{
		"baby": "0-1", "babies": "0-1", "newborn": "0-1",
		"toddler": "1-3", "toddlers": "1-3",
		"kid": "4-12", "kids": "4-12", "child": "4-12", "children": "4-12",
		"teen": "13-17", "teens": "13-17", "teenager": "13-17", "teenagers": "13-17",
	}
	occasions = []struct{ phrase, name string }{
		{"mother's day", "mothers day"},
		{"mothers day", "mothers day"},
		{"father's day", "fathers day"},
		{"fathers day", "fathers day"},
		{"valentine's day", "valentines"},
		{"valentines day", "valentines"},
		{"valentine's", "valentines"},
		{"valentines", "valentines"},
		{"baby shower", "baby shower"},
		{"secret santa", "christmas"},
		{"stocking fillers", "christmas"},
		{"stocking filler", "christmas"},
		{"christmas", "christmas"},
		{"xmas", "christmas"},
		{"birthday", "birthday"},
		{"anniversary", "anniversary"},
		{"wedding", "wedding"},
		{"graduation", "graduation"},
		{"retirement", "retirement"},
		{"easter", "easter"},
		{"halloween", "halloween"},
		{"christening", "christening"},
	}
	colours = []string{
		"black", "white", "red", "blue", "green", "yellow", "pink", "purple", "orange",
		"grey", "gray", "brown", "navy", "gold", "silver", "beige", "cream", "teal",
	}
	qualifiers = []string{
		"school", "wireless", "bluetooth", "waterproof", "personalised", "personalized",
		"electric", "vegan", "organic", "leather", "cordless", "smart", "gluten free",
	}
	// Product noun → category. Multi-word nouns are listed before their last word.
	productNouns = []struct{ noun, category string }{
		{"mobile phone", "Electronics"}, {"smart watch", "Electronics"}, {"board game", "Toys"},
		{"soft toy", "Toys"}, {"teddy bear", "Toys"}, {"air fryer", "Home"},
		{"shoes", "Shoes"}, {"shoe", "Shoes"}, {"trainers", "Shoes"}, {"trainer", "Shoes"},
		{"boots", "Shoes"}, {"sandals", "Shoes"}, {"slippers", "Shoes"}, {"wellies", "Shoes"},
		{"dress", "Clothing"}, {"dresses", "Clothing"}, {"jumper", "Clothing"}, {"jumpers", "Clothing"},
		{"hoodie", "Clothing"}, {"hoodies", "Clothing"}, {"coat", "Clothing"}, {"jacket", "Clothing"},
		{"t-shirt", "Clothing"}, {"t-shirts", "Clothing"}, {"jeans", "Clothing"}, {"trousers", "Clothing"},
		{"pyjamas", "Clothing"}, {"socks", "Clothing"}, {"uniform", "Clothing"},
		{"toy", "Toys"}, {"toys", "Toys"}, {"doll", "Toys"}, {"dolls", "Toys"}, {"puzzle", "Toys"},
		{"jigsaw", "Toys"}, {"game", "Toys"}, {"games", "Toys"}, {"playset", "Toys"},
		{"book", "Books"}, {"books", "Books"}, {"novel", "Books"},
		{"headphones", "Electronics"}, {"earbuds", "Electronics"}, {"speaker", "Electronics"},
		{"laptop", "Electronics"}, {"tablet", "Electronics"}, {"phone", "Electronics"},
		{"camera", "Electronics"}, {"console", "Electronics"}, {"smartwatch", "Electronics"},
		{"necklace", "Jewellery"}, {"bracelet", "Jewellery"}, {"earrings", "Jewellery"},
		{"ring", "Jewellery"}, {"watch", "Jewellery"}, {"jewellery", "Jewellery"},
		{"perfume", "Beauty"}, {"aftershave", "Beauty"}, {"makeup", "Beauty"}, {"skincare", "Beauty"},
		{"bag", "Bags"}, {"bags", "Bags"}, {"backpack", "Bags"}, {"handbag", "Bags"}, {"wallet", "Bags"},
		{"mug", "Home"}, {"candle", "Home"}, {"candles", "Home"}, {"blanket", "Home"}, {"lamp", "Home"},
		{"bike", "Sports"}, {"football", "Sports"}, {"scooter", "Outdoor"}, {"tent", "Outdoor"},
		{"chocolate", "Food"}, {"chocolates", "Food"}, {"hamper", "Food"},
		{"pushchair", "Baby"}, {"nappies", "Baby"}, {"dummy", "Baby"},
	}

	agePattern     = regexp.MustCompile(`\b(\d{1,2})\s*(?:-\s*)?(?:years?|yrs?|yo)(?:\s*-?\s*old)?\b`)
	sizePattern    = regexp.MustCompile(`\bsize\s+([a-z0-9.]+(?:\s*-\s*[a-z0-9.]+)?)\b`)
	betweenPattern = regexp.MustCompile(`\bbetween\s+£?(\d+(?:\.\d+)?)\s+(?:and|to|-)\s+£?(\d+(?:\.\d+)?)\b`)
	maxPattern     = regexp.MustCompile(`\b(?:under|below|less than|up to|max|maximum|cheaper than)\s+£?(\d+(?:\.\d+)?)(?:\s*(?:pounds|quid|gbp))?`)
	minPattern     = regexp.MustCompile(`\b(?:over|above|more than|at least|min|minimum|from)\s+£?(\d+(?:\.\d+)?)(?:\s*(?:pounds|quid|gbp))?`)
	possessive     = regexp.MustCompile(`'s\b|s'\B`)
)

// Expand interprets query without any external call.
func (e *Expander) Expand(query string) interpretation.Interpretation {
	q := lexical.Clean(query)
	in := interpretation.Interpretation{OriginalQuery: strings.TrimSpace(query)}
	attrs := &interpretation.Attributes{}

	rest := q
	if m := betweenPattern.FindStringSubmatch(rest); m != nil {
		in.Context.MinPrice = parseNumber(m[1])
		in.Context.MaxPrice = parseNumber(m[2])
		rest = betweenPattern.ReplaceAllString(rest, " ")
	}
	if m := maxPattern.FindStringSubmatch(rest); m != nil {
		in.Context.MaxPrice = parseNumber(m[1])
		rest = maxPattern.ReplaceAllString(rest, " ")
	}
	if m := minPattern.FindStringSubmatch(rest); m != nil {
		in.Context.MinPrice = parseNumber(m[1])
		rest = minPattern.ReplaceAllString(rest, " ")
	}
	if m := sizePattern.FindStringSubmatch(rest); m != nil {
		attrs.Size = interpretation.String(strings.ReplaceAll(m[1], " ", ""))
		rest = sizePattern.ReplaceAllString(rest, " ")
	}
	if m := agePattern.FindStringSubmatch(rest); m != nil {
		in.Context.AgeRange = interpretation.String(m[1])
		rest = agePattern.ReplaceAllString(rest, " ")
	}
	for _, o := range occasions {
		if strings.Contains(rest, o.phrase) {
			if in.Context.Occasion == nil {
				in.Context.Occasion = interpretation.String(o.name)
			}
			rest = strings.ReplaceAll(rest, o.phrase, " ")
		}
	}

	gift := false
	var core []string
	for _, tok := range strings.Fields(possessive.ReplaceAllString(rest, "")) {
		tok = strings.Trim(tok, ".,!?;:\"()")
		if tok == "" {
			continue
		}
		if _, ok := maleRecipients[tok]; ok {
			setRecipient(&in, attrs, tok, "male")
			continue
		}
		if _, ok := femaleRecipients[tok]; ok {
			setRecipient(&in, attrs, tok, "female")
			continue
		}
		if age, ok := ageWords[tok]; ok {
			if in.Context.AgeRange == nil {
				in.Context.AgeRange = interpretation.String(age)
			}
			if in.Context.Recipient == nil {
				in.Context.Recipient = interpretation.String(tok)
			}
			continue
		}
		if _, ok := giftWords[tok]; ok {
			gift = true
			continue
		}
		if _, ok := fillerWords[tok]; ok {
			continue
		}
		core = append(core, tok)
	}
	coreText := strings.Join(core, " ")
	padded := " " + coreText + " "

	for _, c := range colours {
		if strings.Contains(padded, " "+c+" ") {
			attrs.Color = interpretation.String(c)
			break
		}
	}
	for _, qual := range qualifiers {
		if strings.Contains(padded, " "+qual+" ") {
			in.MustHaveAll = append(in.MustHaveAll, qual)
		}
	}
	if brand, ok := e.brands.DetectBrand(q); ok {
		attrs.Brand = interpretation.String(brand)
		in.MustHaveAll = append(in.MustHaveAll, brand)
	}

	noun := ""
	for _, pn := range productNouns {
		if strings.Contains(padded, " "+pn.noun+" ") {
			noun = pn.noun
			in.Context.CategoryFilter = interpretation.String(pn.category)
			break
		}
	}

	if in.Context.AgeRange != nil {
		attrs.AgeRange = interpretation.String(*in.Context.AgeRange)
	}
	in.Attributes = attrs

	if coreText != "" {
		group := []string{coreText}
		if noun != "" && noun != coreText {
			group = append(group, noun)
		}
		in.SearchTerms = append(in.SearchTerms, group)
	}
	if coreText == "" || gift {
		in.IsSemanticQuery = true
		in.SearchTerms = append(in.SearchTerms, giftTerms(in))
	}

	in.Normalize()
	return in
}

func setRecipient(in *interpretation.Interpretation, attrs *interpretation.Attributes, who, gender string) {
	if in.Context.Recipient == nil {
		in.Context.Recipient = interpretation.String(who)
	}
	if attrs.Gender == nil {
		attrs.Gender = interpretation.String(gender)
	}
}

// giftTerms picks broadening gift keywords from the recipient, age and occasion.
func giftTerms(in interpretation.Interpretation) []string {
	var terms []string
	gender := ""
	if in.Attributes != nil && in.Attributes.Gender != nil {
		gender = *in.Attributes.Gender
	}
	age := ""
	if in.Context.AgeRange != nil {
		age = *in.Context.AgeRange
	}

	child := false
	switch {
	case age == "0-1":
		child = true
		terms = append(terms, "baby gifts", "baby toys")
	case age == "1-3":
		child = true
		terms = append(terms, "toddler toys", "educational toys")
	case age == "4-12":
		child = true
		terms = append(terms, "kids toys", "kids gifts")
	case age == "13-17":
		terms = append(terms, "teenager gifts")
	case age != "":
		if n, err := strconv.Atoi(age); err == nil && n <= 12 {
			child = true
			terms = append(terms, age+" year old toys", "kids toys")
		}
	}
	switch {
	case gender == "male" && child:
		terms = append(terms, "boys toys")
	case gender == "female" && child:
		terms = append(terms, "girls toys")
	case gender == "male":
		terms = append(terms, "gifts for men", "mens gifts")
	case gender == "female":
		terms = append(terms, "gifts for women", "womens gifts")
	}
	if in.Context.Occasion != nil {
		terms = append(terms, *in.Context.Occasion+" gifts")
	}
	return append(terms, interpretation.DefaultTerm)
}

func parseNumber(s string) *float64 {
	v, ok := ParsePrice(s)
	if !ok {
		return nil
	}
	return interpretation.Float(v)
}
