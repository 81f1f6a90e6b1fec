// Package facet derives the per-search filter schema from final results.
package facet

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

// Type is the selection mode of a filter.
type Type string

const (
	// Single allows one option.
	Single Type = "single"
	// Multi allows several options.
	Multi Type = "multi"
	// Range is a numeric bucket selection.
	Range Type = "range"
)

// Schema is the filter schema returned with a search.
type Schema struct {
	Category      string   `json:"category"`
	CategoryLabel string   `json:"category_label"`
	Filters       []Filter `json:"filters"`
}

// Filter is one facet.
type Filter struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Type    Type     `json:"type"`
	Options []Option `json:"options"`
}

// Option is one facet value with its result count.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type bucket struct {
	value, label string
	lo, hi       float64
}

var priceBuckets = []bucket{
	{"0-10", "Under £10", 0, 10},
	{"10-25", "£10 to £25", 10, 25},
	{"25-50", "£25 to £50", 25, 50},
	{"50-100", "£50 to £100", 50, 100},
	{"100-", "£100 and over", 100, -1},
}

// Colors recognised in product names.
var Colors = []string{
	"black", "white", "red", "blue", "green", "yellow", "pink", "purple", "orange", "grey",
	"gray", "brown", "navy", "beige", "gold", "silver", "multicolour",
}

// Franchises recognised in product text.
var Franchises = []string{
	"paw patrol", "peppa pig", "bluey", "marvel", "star wars", "disney", "pokemon", "harry potter",
	"frozen", "minecraft", "spiderman", "spider man", "barbie", "hot wheels", "sonic", "mario",
}

var sizeRe = regexp.MustCompile(`\b(?:size\s+([a-z0-9.]+)|uk\s*(\d{1,2}(?:\.5)?)|(xxs|xs|xl|xxl|small|medium|large))\b`)

// Build derives the schema. categoryHint wins over the most common category.
func Build(products []product.Product, categoryHint string) Schema {
	label := strings.TrimSpace(categoryHint)
	if label == "" {
		label = mostCommonCategory(products)
	}
	s := Schema{Category: slug(label), CategoryLabel: titleCase(label)}

	brands := newCounter()
	colors := newCounter()
	sizes := newCounter()
	franchises := newCounter()
	prices := make([]int, len(priceBuckets))

	for i := range products {
		p := &products[i]
		if b := strings.TrimSpace(p.Brand); b != "" {
			brands.add(strings.ToLower(b), b)
		}
		name := " " + strings.Join(strings.FieldsFunc(p.LowerName(), notAlnum), " ") + " "
		for _, c := range Colors {
			if strings.Contains(name, " "+c+" ") {
				colors.add(c, titleCase(c))
			}
		}
		for _, m := range sizeRe.FindAllStringSubmatch(p.LowerName(), -1) {
			v := firstNonEmpty(m[1:]...)
			sizes.add(v, strings.ToUpper(v))
		}
		text := " " + strings.Join(strings.FieldsFunc(p.Text(), notAlnum), " ") + " "
		for _, f := range Franchises {
			if strings.Contains(text, " "+f+" ") {
				franchises.add(slug(f), titleCase(f))
			}
		}
		for bi, b := range priceBuckets {
			if p.Price >= b.lo && (b.hi < 0 || p.Price < b.hi) {
				prices[bi]++
				break
			}
		}
	}

	s.Filters = appendFilter(s.Filters, "brand", "Brand", Multi, brands.options())
	s.Filters = appendFilter(s.Filters, "color", "Colour", Multi, colors.options())
	s.Filters = appendFilter(s.Filters, "size", "Size", Multi, sizes.options())
	s.Filters = appendFilter(s.Filters, "franchise", "Character", Multi, franchises.options())

	var priceOpts []Option
	for i, b := range priceBuckets {
		if prices[i] > 0 {
			priceOpts = append(priceOpts, Option{Value: b.value, Label: b.label, Count: prices[i]})
		}
	}
	s.Filters = appendFilter(s.Filters, "price", "Price", Range, priceOpts)
	if s.Filters == nil {
		s.Filters = []Filter{}
	}
	return s
}

func appendFilter(fs []Filter, id, label string, t Type, opts []Option) []Filter {
	if len(opts) == 0 {
		return fs
	}
	return append(fs, Filter{ID: id, Label: label, Type: t, Options: opts})
}

type counter struct {
	order  []string
	labels map[string]string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{labels: make(map[string]string), counts: make(map[string]int)}
}

func (c *counter) add(value, label string) {
	if value == "" {
		return
	}
	if _, ok := c.counts[value]; !ok {
		c.order = append(c.order, value)
		c.labels[value] = label
	}
	c.counts[value]++
}

// options sorts by count descending, then by first appearance.
func (c *counter) options() []Option {
	opts := make([]Option, 0, len(c.order))
	for _, v := range c.order {
		opts = append(opts, Option{Value: v, Label: c.labels[v], Count: c.counts[v]})
	}
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Count > opts[j].Count })
	return opts
}

func mostCommonCategory(products []product.Product) string {
	c := newCounter()
	for i := range products {
		if cat := strings.TrimSpace(products[i].Category); cat != "" {
			c.add(strings.ToLower(cat), cat)
		}
	}
	opts := c.options()
	if len(opts) == 0 {
		return ""
	}
	return opts[0].Label
}

func notAlnum(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }

func slug(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), notAlnum), "-")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
