// Package guard runs the ordered, query-gated correctness filters over
// retrieved candidates.
package guard

import (
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

// Policy decides what happens when a rule removes every remaining product.
type Policy int

const (
	// AllowEmpty accepts an empty result.
	AllowEmpty Policy = iota
	// KeepOriginal discards the rule's output and keeps its input.
	KeepOriginal
	// ReportGap stops the pipeline with an empty result and an inventory gap.
	ReportGap
)

func (p Policy) String() string {
	switch p {
	case KeepOriginal:
		return "keep_original"
	case ReportGap:
		return "report_gap"
	default:
		return "allow_empty"
	}
}

// Query is the filter view of a search: the cleaned raw text, its lexically
// corrected form and the interpretation's constraints.
type Query struct {
	Raw               string
	Text              string
	MustHaveAll       []string
	MustHaveAny       []string
	ExcludeCategories []string
	MinPrice          *float64
	MaxPrice          *float64

	words string
}

// NewQuery builds a Query from the raw query, its corrected form and interpretation.
func NewQuery(raw, corrected string, in interpretation.Interpretation) Query {
	q := Query{
		Raw:               strings.Join(strings.Fields(strings.ToLower(raw)), " "),
		Text:              strings.Join(strings.Fields(strings.ToLower(corrected)), " "),
		MustHaveAll:       in.MustHaveAll,
		MustHaveAny:       in.MustHaveAny,
		ExcludeCategories: in.Context.ExcludeCategories,
		MinPrice:          in.Context.MinPrice,
		MaxPrice:          in.Context.MaxPrice,
	}
	if q.Text == "" {
		q.Text = q.Raw
	}
	q.words = words(q.Raw + " " + q.Text)
	return q
}

// HasWord reports whether w appears as a standalone word (or its plural) in
// either form of the query.
func (q Query) HasWord(w string) bool {
	return hasWord(q.wordText(), w)
}

// HasAnyWord reports whether any of ws appears as a standalone word.
func (q Query) HasAnyWord(ws ...string) bool {
	t := q.wordText()
	for _, w := range ws {
		if hasWord(t, w) {
			return true
		}
	}
	return false
}

func (q Query) wordText() string {
	if q.words == "" {
		return words(q.Raw + " " + q.Text)
	}
	return q.words
}

// Rule is one filter: a detector gating a pure transform, plus the policy
// applied when the transform empties a non-empty set.
type Rule struct {
	Name    string
	Detect  func(Query) bool
	Apply   func([]product.Product, Query) []product.Product
	OnEmpty Policy
	Reason  string
}

// Gap is an explicit inventory gap raised by a ReportGap rule.
type Gap struct {
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

// Outcome is the pipeline result.
type Outcome struct {
	Products []product.Product
	Gap      *Gap
	Applied  []string
}

// Observer is told about every rule that ran.
type Observer func(rule string, before, after int)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver sets the per-rule observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observe = o }
}

// Pipeline folds products through an ordered rule table.
type Pipeline struct {
	rules   []Rule
	observe Observer
}

// NewPipeline creates a pipeline over rules.
func NewPipeline(rules []Rule, opts ...Option) *Pipeline {
	p := &Pipeline{rules: rules}
	for _, o := range opts {
		o(p)
	}
	return p
}

// NewDefaultPipeline creates a pipeline over DefaultRules.
func NewDefaultPipeline(opts ...Option) *Pipeline {
	return NewPipeline(DefaultRules(), opts...)
}

// Rules returns the rule names in order.
func (p *Pipeline) Rules() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name
	}
	return names
}

// Run applies every gated rule in order.
func (p *Pipeline) Run(products []product.Product, q Query) Outcome {
	if q.words == "" {
		q.words = words(q.Raw + " " + q.Text)
	}
	current := products
	var applied []string

	for _, r := range p.rules {
		if r.Detect != nil && !r.Detect(q) {
			continue
		}
		out := r.Apply(current, q)
		applied = append(applied, r.Name)
		if p.observe != nil {
			p.observe(r.Name, len(current), len(out))
		}

		if len(out) == 0 && len(current) > 0 {
			switch r.OnEmpty {
			case KeepOriginal:
				continue
			case ReportGap:
				return Outcome{
					Products: []product.Product{},
					Gap:      &Gap{Rule: r.Name, Reason: r.Reason},
					Applied:  applied,
				}
			}
		}
		current = out
	}

	return Outcome{Products: current, Applied: applied}
}

// keep returns the products for which pred holds. Products without a name
// always pass when byName is set.
func keep(products []product.Product, byName bool, pred func(p *product.Product) bool) []product.Product {
	out := make([]product.Product, 0, len(products))
	for i := range products {
		p := &products[i]
		if byName && !p.HasName() {
			out = append(out, *p)
			continue
		}
		if pred(p) {
			out = append(out, *p)
		}
	}
	return out
}
