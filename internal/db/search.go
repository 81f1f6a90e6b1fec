package db

import "github.com/kailas-cloud/shopsearch/internal/domain/search/filter"

// TextQuery is the input for a full-text FT.SEARCH.
// Terms are alternatives: a document matches when any of them matches in
// any of Fields.
type TextQuery struct {
	IndexName    string
	Fields       []string
	Terms        []string
	Filters      filter.Expression
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
