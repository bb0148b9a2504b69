package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/vibesearch/internal/domain"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search text length.
	MaxQueryLength = 4096
	DefaultLimit   = 50
	MaxLimit       = 100
)

// Request is a validated search query.
type Request struct {
	text      string
	imageRefs []string
	filters   filter.Set
	expr      filter.Expression
	limit     int
}

// New validates and normalizes search parameters.
// Blank image references are dropped. A zero limit becomes DefaultLimit and
// limits above maxLimit are clamped (maxLimit <= 0 means MaxLimit).
// All validation failures wrap domain.ErrInvalidQuery.
func New(text string, imageRefs []string, filters filter.Set, limit, maxLimit int) (Request, error) {
	text = strings.TrimSpace(text)
	if len(text) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}

	refs := make([]string, 0, len(imageRefs))
	for _, ref := range imageRefs {
		if ref = strings.TrimSpace(ref); ref != "" {
			refs = append(refs, ref)
		}
	}
	if !mode.Of(text != "", len(refs) > 0).IsValid() {
		return Request{}, fmt.Errorf("%w: either query text or image urls are required", domain.ErrInvalidQuery)
	}

	if limit < 0 {
		return Request{}, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidQuery)
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if limit == 0 {
		limit = min(DefaultLimit, maxLimit)
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	expr, err := filters.Expression()
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}

	return Request{
		text:      text,
		imageRefs: refs,
		filters:   filters,
		expr:      expr,
		limit:     limit,
	}, nil
}

// Text returns the trimmed search text (may be empty).
func (r *Request) Text() string { return r.text }

// ImageRefs returns the image URLs in request order.
func (r *Request) ImageRefs() []string { return r.imageRefs }

// Mode returns the input modality.
func (r *Request) Mode() mode.Mode { return mode.Of(r.text != "", len(r.imageRefs) > 0) }

// Filters returns the user-facing filter set.
func (r *Request) Filters() filter.Set { return r.filters }

// Expression returns the translated pre-filter; empty means no filter.
func (r *Request) Expression() filter.Expression { return r.expr }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }
