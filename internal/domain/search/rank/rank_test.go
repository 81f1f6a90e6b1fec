package rank

import (
	"reflect"
	"testing"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

func ids(ps []product.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

var candidates = []product.Product{
	{ID: "a", Price: 30, Merchant: "John Lewis"},
	{ID: "b", Price: 5, Merchant: "Poundland"},
	{ID: "c", Price: 12, Merchant: "Argos"},
	{ID: "d", Price: 12, Merchant: "Next"},
}

func TestRank_PriceAscendingStable(t *testing.T) {
	got := ids(Rank(candidates, "candle"))
	if !reflect.DeepEqual(got, []string{"b", "c", "d", "a"}) {
		t.Errorf("order = %v", got)
	}
}

func TestRank_QualityIntentDemotesDiscount(t *testing.T) {
	got := ids(Rank(candidates, "best candle"))
	if !reflect.DeepEqual(got, []string{"a", "c", "d", "b"}) {
		t.Errorf("order = %v", got)
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := append([]product.Product(nil), candidates...)
	Rank(in, "candle")
	if !reflect.DeepEqual(ids(in), []string{"a", "b", "c", "d"}) {
		t.Error("input reordered")
	}
}

func TestHasQualityIntent(t *testing.T) {
	tests := map[string]bool{
		"best headphones":     true,
		"premium, wireless":   true,
		"high end watch":      true,
		"bestseller books":    false,
		"cheap headphones":    false,
		"Top Rated air fryer": true,
	}
	for q, want := range tests {
		if got := HasQualityIntent(q); got != want {
			t.Errorf("HasQualityIntent(%q) = %v, want %v", q, got, want)
		}
	}
}
