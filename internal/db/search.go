package db

import "github.com/kailas-cloud/vibesearch/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	Filters   filter.Expression
	Vector    []float32
	K         int
	// ReturnFields limits the returned attributes; empty returns all of them.
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Score is cosine similarity in [-1, 1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
