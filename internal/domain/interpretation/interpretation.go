// Package interpretation defines the structured reading of a shopping query
// that drives retrieval, filtering and ranking.
package interpretation

import (
	"strings"
	"time"
)

// DefaultTerm is the search term used when a query yields nothing searchable.
const DefaultTerm = "gifts"

// Source identifies which stage produced an interpretation.
type Source string

const (
	// SourceFastPath is a brand or category table match.
	SourceFastPath Source = "fast_path"
	// SourceCache is an in-process or persistent cache hit.
	SourceCache Source = "cache"
	// SourceLLM is a parsed LLM completion.
	SourceLLM Source = "llm"
	// SourceFallback is the offline rule-based expander.
	SourceFallback Source = "fallback"
)

// Interpretation is the pipeline's reading of a single query.
type Interpretation struct {
	OriginalQuery   string      `json:"original_query"`
	IsSemanticQuery bool        `json:"is_semantic_query"`
	SearchTerms     [][]string  `json:"search_terms"`
	MustHaveAll     []string    `json:"must_have_all,omitempty"`
	MustHaveAny     []string    `json:"must_have_any,omitempty"`
	Attributes      *Attributes `json:"attributes,omitempty"`
	Context         Context     `json:"context"`
	RerankerContext string      `json:"reranker_context,omitempty"`
	SkipReranker    bool        `json:"skip_reranker"`
}

// Attributes are product facets extracted from the query. Every field is optional.
type Attributes struct {
	Brand     *string `json:"brand,omitempty"`
	Character *string `json:"character,omitempty"`
	Model     *string `json:"model,omitempty"`
	Size      *string `json:"size,omitempty"`
	Color     *string `json:"color,omitempty"`
	Gender    *string `json:"gender,omitempty"`
	AgeRange  *string `json:"age_range,omitempty"`
	Material  *string `json:"material,omitempty"`
	Style     *string `json:"style,omitempty"`
}

// IsEmpty reports whether no attribute is set.
func (a *Attributes) IsEmpty() bool {
	return a == nil || (a.Brand == nil && a.Character == nil && a.Model == nil &&
		a.Size == nil && a.Color == nil && a.Gender == nil && a.AgeRange == nil &&
		a.Material == nil && a.Style == nil)
}

// Context carries recipient, occasion and price constraints.
type Context struct {
	Recipient         *string  `json:"recipient,omitempty"`
	Occasion          *string  `json:"occasion,omitempty"`
	AgeRange          *string  `json:"age_range,omitempty"`
	MinPrice          *float64 `json:"min_price,omitempty"`
	MaxPrice          *float64 `json:"max_price,omitempty"`
	CategoryFilter    *string  `json:"category_filter,omitempty"`
	ExcludeCategories []string `json:"exclude_categories,omitempty"`
}

// Cached is an interpretation stored in either cache tier.
type Cached struct {
	Interpretation Interpretation `json:"interpretation"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at"`
	HitCount       int64          `json:"hit_count"`
	Version        int            `json:"version"`
}

// Normalize enforces the interpretation invariants in place:
// non-empty search terms, lowercase de-duplicated must-have terms and a
// price range with MinPrice <= MaxPrice (clamped, never rejected).
func (in *Interpretation) Normalize() {
	in.SearchTerms = cleanGroups(in.SearchTerms)
	if len(in.SearchTerms) == 0 {
		term := strings.ToLower(strings.Join(strings.Fields(in.OriginalQuery), " "))
		if term == "" {
			term = DefaultTerm
		}
		in.SearchTerms = [][]string{{term}}
	}

	in.MustHaveAll = lowerUnique(in.MustHaveAll)
	in.MustHaveAny = lowerUnique(in.MustHaveAny)
	in.Context.ExcludeCategories = lowerUnique(in.Context.ExcludeCategories)

	if p := in.Context.MinPrice; p != nil && *p < 0 {
		in.Context.MinPrice = floatPtr(0)
	}
	if p := in.Context.MaxPrice; p != nil && *p < 0 {
		in.Context.MaxPrice = floatPtr(0)
	}
	if lo, hi := in.Context.MinPrice, in.Context.MaxPrice; lo != nil && hi != nil && *lo > *hi {
		in.Context.MinPrice = floatPtr(*hi)
	}

	if in.Attributes.IsEmpty() {
		in.Attributes = nil
	}
}

// PrimaryTerms returns the first term group.
func (in *Interpretation) PrimaryTerms() []string {
	if len(in.SearchTerms) == 0 {
		return nil
	}
	return in.SearchTerms[0]
}

// CategoryFilter returns the category constraint or "".
func (in *Interpretation) CategoryFilter() string {
	if in.Context.CategoryFilter == nil {
		return ""
	}
	return *in.Context.CategoryFilter
}

// Clone returns a deep copy so cached values are never shared with callers.
func (in Interpretation) Clone() Interpretation {
	out := in
	if in.SearchTerms != nil {
		out.SearchTerms = make([][]string, len(in.SearchTerms))
		for i, g := range in.SearchTerms {
			out.SearchTerms[i] = append([]string(nil), g...)
		}
	}
	out.MustHaveAll = append([]string(nil), in.MustHaveAll...)
	out.MustHaveAny = append([]string(nil), in.MustHaveAny...)
	out.Context.ExcludeCategories = append([]string(nil), in.Context.ExcludeCategories...)
	out.Context.Recipient = clonePtr(in.Context.Recipient)
	out.Context.Occasion = clonePtr(in.Context.Occasion)
	out.Context.AgeRange = clonePtr(in.Context.AgeRange)
	out.Context.MinPrice = clonePtr(in.Context.MinPrice)
	out.Context.MaxPrice = clonePtr(in.Context.MaxPrice)
	out.Context.CategoryFilter = clonePtr(in.Context.CategoryFilter)
	if in.Attributes != nil {
		a := *in.Attributes
		a.Brand = clonePtr(a.Brand)
		a.Character = clonePtr(a.Character)
		a.Model = clonePtr(a.Model)
		a.Size = clonePtr(a.Size)
		a.Color = clonePtr(a.Color)
		a.Gender = clonePtr(a.Gender)
		a.AgeRange = clonePtr(a.AgeRange)
		a.Material = clonePtr(a.Material)
		a.Style = clonePtr(a.Style)
		out.Attributes = &a
	}
	if len(in.MustHaveAll) == 0 {
		out.MustHaveAll = nil
	}
	if len(in.MustHaveAny) == 0 {
		out.MustHaveAny = nil
	}
	if len(in.Context.ExcludeCategories) == 0 {
		out.Context.ExcludeCategories = nil
	}
	return out
}

// String returns a pointer to s, or nil for a blank string.
func String(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

func cleanGroups(groups [][]string) [][]string {
	out := groups[:0:0]
	for _, g := range groups {
		var terms []string
		seen := make(map[string]struct{}, len(g))
		for _, t := range g {
			t = strings.Join(strings.Fields(t), " ")
			if t == "" {
				continue
			}
			k := strings.ToLower(t)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			terms = append(terms, t)
		}
		if len(terms) > 0 {
			out = append(out, terms)
		}
	}
	return out
}

func lowerUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.Join(strings.Fields(s), " "))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func floatPtr(f float64) *float64 { return &f }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
