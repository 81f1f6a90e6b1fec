package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/filter"
)

type mockStore struct {
	searchTextFn  func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
}

func (m *mockStore) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func TestSearch_BuildsQueryAndParses(t *testing.T) {
	var got *db.TextQuery
	ms := &mockStore{searchTextFn: func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{
			Total: 42,
			Entries: []db.SearchEntry{
				{Key: "shop:product:p1", Fields: map[string]string{
					"name": "LEGO City Fire Station", "price": "59.99", "brand": "LEGO",
					"merchant": "Argos", "category": "Toys", "in_stock": "1",
				}},
				{Key: "shop:product:p2", Fields: map[string]string{
					"name": "LEGO Duplo Train", "price": "oops", "merchant": "Smyths", "in_stock": "false",
				}},
			},
		}, nil
	}}

	lo := 10.0
	b, _ := filter.NewBounds(&lo, nil)
	cond, _ := filter.NewBetween(filter.FieldPrice, b)
	expr, _ := filter.NewExpression([]filter.Condition{cond}, nil)

	page, err := New(ms, "shop:").Search(context.Background(), []string{"lego"}, 20, 40, expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.IndexName != "shop:products:idx" || got.Limit != 20 || got.Offset != 40 {
		t.Errorf("query = %+v", got)
	}
	if len(got.Fields) != 2 || got.Fields[0] != "name" || got.Fields[1] != "description" {
		t.Errorf("fields = %v", got.Fields)
	}
	if got.Filters.IsEmpty() {
		t.Error("filter not pushed down")
	}

	if page.Count != 42 || len(page.Products) != 2 {
		t.Fatalf("page = %+v", page)
	}
	p1, p2 := page.Products[0], page.Products[1]
	if p1.ID != "p1" || p1.Price != 59.99 || p1.Brand != "LEGO" || !p1.InStock {
		t.Errorf("p1 = %+v", p1)
	}
	if p2.ID != "p2" || p2.Price != 0 || p2.InStock {
		t.Errorf("p2 = %+v", p2)
	}
}

func TestSearch_Error(t *testing.T) {
	boom := errors.New("boom")
	ms := &mockStore{searchTextFn: func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		return nil, boom
	}}
	if _, err := New(ms, "").Search(context.Background(), []string{"x"}, 10, 0, filter.Expression{}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped boom, got %v", err)
	}
}

func TestSearch_MissingInStockDefaultsTrue(t *testing.T) {
	p := parseProduct("x", map[string]string{"name": "Ball"})
	if !p.InStock {
		t.Error("expected InStock default true")
	}
}

func TestEnsureIndex(t *testing.T) {
	var def *db.IndexDefinition
	ms := &mockStore{createIndexFn: func(_ context.Context, d *db.IndexDefinition) error {
		def = d
		return db.ErrIndexExists
	}}

	if err := New(ms, "shop:").EnsureIndex(context.Background()); err != nil {
		t.Fatalf("existing index must not fail: %v", err)
	}
	want := "FT.CREATE shop:products:idx ON HASH PREFIX shop:product: SCHEMA " +
		"name TEXT WEIGHT 2 description TEXT price NUMERIC SORTABLE brand TAG merchant TAG category TAG"
	if got := def.String(); got != want {
		t.Errorf("index = %q\nwant    %q", got, want)
	}
}

func TestEnsureIndex_Error(t *testing.T) {
	ms := &mockStore{createIndexFn: func(context.Context, *db.IndexDefinition) error {
		return errors.New("down")
	}}
	if err := New(ms, "").EnsureIndex(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
