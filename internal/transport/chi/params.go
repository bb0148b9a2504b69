package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/vibesearch/internal/domain"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/filter"
)

const maxBodyBytes = 1 << 20

// searchParams is the transport form of a search request, shared by GET and POST.
type searchParams struct {
	Query     string       `json:"query"`
	ImageURLs []string     `json:"image_urls"`
	Limit     int          `json:"limit"`
	Filters   filterParams `json:"filters"`
}

type boundsParams struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

type filterParams struct {
	PriceMin          *float64      `json:"price_min"`
	PriceMax          *float64      `json:"price_max"`
	Bedrooms          *boundsParams `json:"bedrooms"`
	Bathrooms         *boundsParams `json:"bathrooms"`
	Amenities         []string      `json:"amenities"`
	City              string        `json:"city"`
	State             string        `json:"state"`
	Studio            bool          `json:"studio"`
	HasAvailableUnits bool          `json:"has_available_units"`
}

func (f filterParams) toSet() filter.Set {
	return filter.Set{
		PriceMin:          f.PriceMin,
		PriceMax:          f.PriceMax,
		Bedrooms:          f.Bedrooms.toBounds(),
		Bathrooms:         f.Bathrooms.toBounds(),
		Amenities:         f.Amenities,
		City:              f.City,
		State:             f.State,
		Studio:            f.Studio,
		HasAvailableUnits: f.HasAvailableUnits,
	}
}

func (b *boundsParams) toBounds() *filter.Bounds {
	if b == nil {
		return nil
	}
	return &filter.Bounds{Min: b.Min, Max: b.Max}
}

// searchParamsFromQuery binds GET /api/search. Each filter accepts its canonical
// name and the legacy alias (min_rent, max_beds, ...); the canonical name wins.
func searchParamsFromQuery(q url.Values) (searchParams, error) {
	var p searchParams

	text, err := firstString(q, "query", "q")
	if err != nil {
		return p, err
	}
	p.Query = text

	var images *[]string
	if err := bind(q, true, "image_urls", &images); err != nil {
		return p, err
	}
	if images != nil {
		p.ImageURLs = *images
	}

	var limit *int
	if err := bind(q, true, "limit", &limit); err != nil {
		return p, err
	}
	if limit != nil {
		p.Limit = *limit
	}

	f := &p.Filters
	if f.PriceMin, err = firstFloat(q, "price_min", "min_rent"); err != nil {
		return p, err
	}
	if f.PriceMax, err = firstFloat(q, "price_max", "max_rent"); err != nil {
		return p, err
	}
	if f.Bedrooms, err = boundsFromQuery(q, "bedrooms", "beds"); err != nil {
		return p, err
	}
	if f.Bathrooms, err = boundsFromQuery(q, "bathrooms", "baths"); err != nil {
		return p, err
	}

	var amenities *[]string
	if err := bind(q, false, "amenities", &amenities); err != nil {
		return p, err
	}
	if amenities != nil {
		f.Amenities = *amenities
	}

	f.City = q.Get("city")
	f.State = q.Get("state")
	f.Studio = isTruthy(q.Get("studio"))
	f.HasAvailableUnits = isTruthy(q.Get("has_available_units"))
	return p, nil
}

func boundsFromQuery(q url.Values, name, alias string) (*boundsParams, error) {
	lo, err := firstFloat(q, name+"_min", "min_"+alias)
	if err != nil {
		return nil, err
	}
	hi, err := firstFloat(q, name+"_max", "max_"+alias)
	if err != nil {
		return nil, err
	}
	if lo == nil && hi == nil {
		return nil, nil
	}
	return &boundsParams{Min: lo, Max: hi}, nil
}

// searchParamsFromBody decodes POST /api/search.
func searchParamsFromBody(w http.ResponseWriter, r *http.Request) (searchParams, error) {
	var p searchParams
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidQuery, err)
	}
	return p, nil
}

// idsFromQuery binds ids=a,b,c.
func idsFromQuery(q url.Values) ([]string, error) {
	var ids *[]string
	if err := bind(q, false, "ids", &ids); err != nil {
		return nil, err
	}
	if ids == nil || len(*ids) == 0 {
		return nil, fmt.Errorf("%w: ids parameter is required", domain.ErrInvalidQuery)
	}
	return *ids, nil
}

func bind(q url.Values, explode bool, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", explode, false, name, q, dest); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
	}
	return nil
}

func firstString(q url.Values, names ...string) (string, error) {
	for _, n := range names {
		var v *string
		if err := bind(q, true, n, &v); err != nil {
			return "", err
		}
		if v != nil && strings.TrimSpace(*v) != "" {
			return *v, nil
		}
	}
	return "", nil
}

func firstFloat(q url.Values, names ...string) (*float64, error) {
	for _, n := range names {
		var v *float64
		if err := bind(q, true, n, &v); err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

var errMissingID = errors.New("apartment id is required")
