package interpret

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

func TestParseCompletion_SurroundingProse(t *testing.T) {
	content := "Sure! Here is the JSON you asked for:\n" +
		`{"productType": "trainers", "brand": "Nike", "category": "Shoes", "size": "9",` +
		` "keywords": ["running shoes", "sneakers"], "mustMatch": ["Nike"], "maxPrice": "£60"}` +
		"\nLet me know if you need anything else {like this}."

	in, err := ParseCompletion("nike trainers size 9 under 60", content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !in.IsSemanticQuery {
		t.Error("LLM interpretations are semantic")
	}
	if len(in.SearchTerms) != 2 {
		t.Fatalf("search terms = %v", in.SearchTerms)
	}
	if in.SearchTerms[0][0] != "Nike trainers" || in.SearchTerms[0][1] != "trainers" {
		t.Errorf("primary group = %v", in.SearchTerms[0])
	}
	if len(in.MustHaveAll) != 1 || in.MustHaveAll[0] != "nike" {
		t.Errorf("must have all = %v, want [nike]", in.MustHaveAll)
	}
	if in.Context.MaxPrice == nil || *in.Context.MaxPrice != 60 {
		t.Errorf("max price = %v", in.Context.MaxPrice)
	}
	if in.CategoryFilter() != "Shoes" {
		t.Errorf("category = %q", in.CategoryFilter())
	}
	if in.Attributes == nil || in.Attributes.Size == nil || *in.Attributes.Size != "9" {
		t.Errorf("size attribute missing: %+v", in.Attributes)
	}
}

func TestParseCompletion_NoJSON(t *testing.T) {
	for _, content := range []string{"", "I cannot help with that.", "{ not json", "{\"a\": }"} {
		_, err := ParseCompletion("q", content)
		if !errors.Is(err, domain.ErrMalformedCompletion) {
			t.Errorf("content %q: expected ErrMalformedCompletion, got %v", content, err)
		}
	}
}

func TestParseCompletion_BracesInsideStrings(t *testing.T) {
	content := `{"productType": "mug {large}", "rerankerContext": "say \"hi\" }", "keywords": ["mug"]}`
	in, err := ParseCompletion("large mug", content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.SearchTerms[0][0] != "mug {large}" {
		t.Errorf("primary = %q", in.SearchTerms[0][0])
	}
	if in.RerankerContext != `say "hi" }` {
		t.Errorf("reranker context = %q", in.RerankerContext)
	}
}

func TestParseCompletion_SkipsUndecodableObject(t *testing.T) {
	content := `{oops} then {"productType": "lamp"}`
	in, err := ParseCompletion("lamp", content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.SearchTerms[0][0] != "lamp" {
		t.Errorf("search terms = %v", in.SearchTerms)
	}
}

func TestParseCompletion_InvalidFieldsDropped(t *testing.T) {
	content := `{"productType": 42, "brand": ["x"], "minPrice": "cheap", "maxPrice": -5,` +
		` "mustMatch": "Lego, star wars", "keywords": [1, "", "space ship"], "color": null}`
	in, err := ParseCompletion("lego star wars", content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Context.MinPrice != nil || in.Context.MaxPrice != nil {
		t.Errorf("invalid prices must be dropped: %v %v", in.Context.MinPrice, in.Context.MaxPrice)
	}
	if in.Attributes != nil && in.Attributes.Brand != nil {
		t.Errorf("non-string brand must be dropped")
	}
	if len(in.MustHaveAll) != 2 || in.MustHaveAll[0] != "lego" || in.MustHaveAll[1] != "star wars" {
		t.Errorf("must have all = %v", in.MustHaveAll)
	}
	// productType 42 is coerced to "42"
	if in.SearchTerms[0][0] != "42" || in.SearchTerms[1][0] != "space ship" {
		t.Errorf("search terms = %v", in.SearchTerms)
	}
}

func TestParseCompletion_EmptyObjectFallsBackToQuery(t *testing.T) {
	in, err := ParseCompletion("  Red Ball ", "{}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(in.SearchTerms) != 1 || in.SearchTerms[0][0] != "red ball" {
		t.Errorf("search terms = %v", in.SearchTerms)
	}
}

func TestParseCompletion_ClampsPriceRange(t *testing.T) {
	in, err := ParseCompletion("q", `{"productType": "watch", "minPrice": 100, "maxPrice": "50"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *in.Context.MinPrice != 50 || *in.Context.MaxPrice != 50 {
		t.Errorf("range = %v..%v, want clamped to 50..50", *in.Context.MinPrice, *in.Context.MaxPrice)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"20", 20, true},
		{"£20", 20, true},
		{" $19.99 ", 19.99, true},
		{"€1,299.50", 1299.5, true},
		{"30 pounds", 30, true},
		{"45 GBP", 45, true},
		{"10 euros", 10, true},
		{"", 0, false},
		{"cheap", 0, false},
		{"-3", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParsePrice(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParsePrice(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
