package result

import "sort"

// Result is a single listing hit from the vector index.
type Result struct {
	id       string
	score    float64
	metadata map[string]any
}

// New creates a search result. Metadata is kept as returned by the index.
func New(id string, score float64, metadata map[string]any) Result {
	return Result{id: id, score: score, metadata: metadata}
}

// ID returns the listing identifier.
func (r *Result) ID() string { return r.id }

// Score returns the cosine similarity in [-1, 1].
func (r *Result) Score() float64 { return r.score }

// Metadata returns the index metadata verbatim.
func (r *Result) Metadata() map[string]any { return r.metadata }

// SortByScore orders results by descending score, keeping the input order of ties.
func SortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
}

// PhotoMatch is a per-image index hit for one listing.
type PhotoMatch struct {
	URL   string
	Score float64
}
