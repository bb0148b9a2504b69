package filter

import (
	"fmt"
	"strings"
)

// Index field names the listing vectors are filtered on.
const (
	FieldPriceMin          = "price_min"
	FieldPriceMax          = "price_max"
	FieldBedrooms          = "bedrooms"
	FieldBathrooms         = "bathrooms"
	FieldCity              = "city"
	FieldState             = "state"
	FieldStudio            = "is_studio"
	FieldHasAvailableUnits = "has_available_units"
)

// RoomsUnbounded is the upper bound used for bedroom/bathroom ranges without a max.
const RoomsUnbounded = 1000.0

// Bounds is an optional inclusive [Min, Max] pair.
type Bounds struct {
	Min *float64
	Max *float64
}

// IsZero reports whether neither bound is set.
func (b *Bounds) IsZero() bool {
	return b == nil || (b.Min == nil && b.Max == nil)
}

// Set is the user-facing listing filter.
//
// Price bounds compare against the listing's own range: PriceMin against the
// listing minimum, PriceMax against the listing maximum. Amenities match when
// any one of them is present on the listing.
type Set struct {
	PriceMin          *float64
	PriceMax          *float64
	Bedrooms          *Bounds
	Bathrooms         *Bounds
	Amenities         []string
	City              string
	State             string
	Studio            bool
	HasAvailableUnits bool
}

// IsEmpty reports whether the set constrains nothing.
func (s Set) IsEmpty() bool {
	return s.PriceMin == nil && s.PriceMax == nil &&
		s.Bedrooms.IsZero() && s.Bathrooms.IsZero() &&
		len(amenityKeys(s.Amenities)) == 0 &&
		strings.TrimSpace(s.City) == "" && strings.TrimSpace(s.State) == "" &&
		!s.Studio && !s.HasAvailableUnits
}

// Expression translates the set into an index pre-filter.
// An empty set yields the empty Expression, which backends treat as "no filter".
func (s Set) Expression() (Expression, error) {
	if s.IsEmpty() {
		return Expression{}, nil
	}

	var must []Condition
	add := func(c Condition, err error) error {
		if err != nil {
			return err
		}
		must = append(must, c)
		return nil
	}

	if s.PriceMin != nil {
		if err := add(NewRange(FieldPriceMin, AtLeast(*s.PriceMin))); err != nil {
			return Expression{}, err
		}
	}
	if s.PriceMax != nil {
		if err := add(NewRange(FieldPriceMax, AtMost(*s.PriceMax))); err != nil {
			return Expression{}, err
		}
	}
	if s.PriceMin != nil && s.PriceMax != nil && *s.PriceMin > *s.PriceMax {
		return Expression{}, fmt.Errorf("price_min %g is greater than price_max %g", *s.PriceMin, *s.PriceMax)
	}

	for _, rooms := range []struct {
		field  string
		bounds *Bounds
	}{
		{FieldBedrooms, s.Bedrooms},
		{FieldBathrooms, s.Bathrooms},
	} {
		if rooms.bounds.IsZero() {
			continue
		}
		r, err := roomRange(rooms.field, *rooms.bounds)
		if err != nil {
			return Expression{}, err
		}
		if err := add(NewRange(rooms.field, r)); err != nil {
			return Expression{}, err
		}
	}

	if city := strings.TrimSpace(s.City); city != "" {
		if err := add(NewMatch(FieldCity, city)); err != nil {
			return Expression{}, err
		}
	}
	if state := strings.TrimSpace(s.State); state != "" {
		if err := add(NewMatch(FieldState, state)); err != nil {
			return Expression{}, err
		}
	}
	if s.Studio {
		if err := add(NewFlag(FieldStudio)); err != nil {
			return Expression{}, err
		}
	}
	if s.HasAvailableUnits {
		if err := add(NewFlag(FieldHasAvailableUnits)); err != nil {
			return Expression{}, err
		}
	}

	keys := amenityKeys(s.Amenities)
	should := make([]Condition, 0, len(keys))
	for _, k := range keys {
		c, err := NewFlag(k)
		if err != nil {
			return Expression{}, err
		}
		should = append(should, c)
	}

	return NewExpression(must, should, nil)
}

// AmenityKey maps an amenity display name to its index field: lowercase,
// with every run of characters outside [a-z0-9] collapsed into one underscore.
func AmenityKey(name string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
			continue
		}
		sep = true
	}
	return b.String()
}

func amenityKeys(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	keys := make([]string, 0, len(names))
	for _, n := range names {
		k := AmenityKey(n)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

func roomRange(field string, b Bounds) (Range, error) {
	lo, hi := 0.0, RoomsUnbounded
	if b.Min != nil {
		lo = *b.Min
	}
	if b.Max != nil {
		hi = *b.Max
	}
	if lo > hi {
		return Range{}, fmt.Errorf("%s min %g is greater than max %g", field, lo, hi)
	}
	return Between(lo, hi), nil
}
