package interpretation

import (
	"reflect"
	"testing"
)

func TestNormalize_DefaultsSearchTerms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		terms [][]string
		want  [][]string
	}{
		{"blank query", "   ", nil, [][]string{{DefaultTerm}}},
		{"query fallback", "  Red  Ball ", nil, [][]string{{"red ball"}}},
		{"empty groups dropped", "x", [][]string{{"", " "}, {"lego", "LEGO", "duplo"}}, [][]string{{"lego", "duplo"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Interpretation{OriginalQuery: tt.query, SearchTerms: tt.terms}
			in.Normalize()
			if !reflect.DeepEqual(in.SearchTerms, tt.want) {
				t.Errorf("SearchTerms = %v, want %v", in.SearchTerms, tt.want)
			}
		})
	}
}

func TestNormalize_MustHaveLowercased(t *testing.T) {
	in := Interpretation{
		SearchTerms: [][]string{{"lego"}},
		MustHaveAll: []string{"LEGO", "lego", " Star  Wars "},
		MustHaveAny: []string{"", "Red"},
	}
	in.Normalize()
	if !reflect.DeepEqual(in.MustHaveAll, []string{"lego", "star wars"}) {
		t.Errorf("MustHaveAll = %v", in.MustHaveAll)
	}
	if !reflect.DeepEqual(in.MustHaveAny, []string{"red"}) {
		t.Errorf("MustHaveAny = %v", in.MustHaveAny)
	}
}

func TestNormalize_ClampsPrices(t *testing.T) {
	in := Interpretation{
		SearchTerms: [][]string{{"gift"}},
		Context:     Context{MinPrice: Float(50), MaxPrice: Float(20)},
	}
	in.Normalize()
	if *in.Context.MinPrice != 20 || *in.Context.MaxPrice != 20 {
		t.Errorf("prices = %v..%v, want 20..20", *in.Context.MinPrice, *in.Context.MaxPrice)
	}

	neg := Interpretation{SearchTerms: [][]string{{"gift"}}, Context: Context{MinPrice: Float(-5)}}
	neg.Normalize()
	if *neg.Context.MinPrice != 0 {
		t.Errorf("MinPrice = %v, want 0", *neg.Context.MinPrice)
	}
}

func TestNormalize_DropsEmptyAttributes(t *testing.T) {
	in := Interpretation{SearchTerms: [][]string{{"gift"}}, Attributes: &Attributes{}}
	in.Normalize()
	if in.Attributes != nil {
		t.Error("expected empty attributes to be dropped")
	}
}

func TestClone_DoesNotShare(t *testing.T) {
	orig := Interpretation{
		SearchTerms: [][]string{{"lego"}},
		MustHaveAll: []string{"lego"},
		Attributes:  &Attributes{Brand: String("lego")},
		Context:     Context{MaxPrice: Float(10)},
	}
	c := orig.Clone()
	c.SearchTerms[0][0] = "duplo"
	c.MustHaveAll[0] = "duplo"
	*c.Attributes.Brand = "duplo"
	*c.Context.MaxPrice = 99

	if orig.SearchTerms[0][0] != "lego" || orig.MustHaveAll[0] != "lego" {
		t.Error("slices shared with clone")
	}
	if *orig.Attributes.Brand != "lego" || *orig.Context.MaxPrice != 10 {
		t.Error("pointers shared with clone")
	}
}

func TestString(t *testing.T) {
	if String("  ") != nil {
		t.Error("blank string should be nil")
	}
	if s := String(" x "); s == nil || *s != "x" {
		t.Errorf("String = %v", s)
	}
}
