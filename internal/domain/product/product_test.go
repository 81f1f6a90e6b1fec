package product

import (
	"testing"
	"time"
)

func TestPromotion_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		p    Promotion
		want bool
	}{
		{"no expiry", Promotion{Title: "10% off"}, false},
		{"past", Promotion{Title: "old", ExpiresAt: &past}, true},
		{"exactly now", Promotion{Title: "edge", ExpiresAt: &now}, true},
		{"future", Promotion{Title: "new", ExpiresAt: &future}, false},
	}
	for _, tc := range tests {
		if got := tc.p.Expired(now); got != tc.want {
			t.Errorf("%s: Expired() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestProduct_TextAndKeys(t *testing.T) {
	p := Product{Name: " Red Ball ", Description: "Bouncy", Brand: "ACME", Merchant: " Argos "}
	if got := p.Text(); got != " red ball  bouncy acme" {
		t.Errorf("unexpected text %q", got)
	}
	if p.LowerName() != "red ball" {
		t.Errorf("unexpected lower name %q", p.LowerName())
	}
	if p.MerchantKey() != "argos" {
		t.Errorf("unexpected merchant key %q", p.MerchantKey())
	}
	if !p.HasName() {
		t.Error("expected HasName")
	}
	if (&Product{Name: "   "}).HasName() {
		t.Error("blank name must not count as a name")
	}
}
