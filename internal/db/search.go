package db

import "github.com/kailas-cloud/postfilter/internal/domain/filter"

// ListQuery is the input for a filtered, sorted, paginated FT.SEARCH.
type ListQuery struct {
	IndexName    string
	Filters      filter.Expression
	SortBy       string
	Descending   bool
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
