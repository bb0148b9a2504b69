package milvus

import (
	"testing"

	"github.com/kailas-cloud/vibesearch/internal/domain/search/filter"
)

func floatPtr(f float64) *float64 { return &f }

func TestBuildExpr_Empty(t *testing.T) {
	if got := buildExpr(filter.Expression{}); got != "" {
		t.Errorf("expected empty expression, got %q", got)
	}
}

func TestBuildExpr_ListingSet(t *testing.T) {
	set := filter.Set{
		PriceMin:  floatPtr(1000),
		PriceMax:  floatPtr(3000),
		Bedrooms:  &filter.Bounds{Min: floatPtr(2), Max: floatPtr(3)},
		City:      "Austin",
		Amenities: []string{"Pool", "Washer/Dryer"},
	}
	expr, err := set.Expression()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `metadata["price_min"] >= 1000` +
		` and metadata["price_max"] <= 3000` +
		` and (metadata["bedrooms"] >= 2 and metadata["bedrooms"] <= 3)` +
		` and metadata["city"] == "Austin"` +
		` and (metadata["pool"] == true or metadata["washer_dryer"] == true)`
	if got := buildExpr(expr); got != want {
		t.Errorf("expr =\n  %s\nwant\n  %s", got, want)
	}
}

func TestBuildExpr_MustNotAndExclusive(t *testing.T) {
	rng, _ := filter.NewRangeFilter(floatPtr(0.5), nil, floatPtr(10), nil)
	sqft, _ := filter.NewRange("sqft", rng)
	studio, _ := filter.NewFlag("is_studio")
	expr, _ := filter.NewExpression([]filter.Condition{sqft}, nil, []filter.Condition{studio})

	want := `(metadata["sqft"] > 0.5 and metadata["sqft"] < 10) and not (metadata["is_studio"] == true)`
	if got := buildExpr(expr); got != want {
		t.Errorf("expr = %s", got)
	}
}

func TestBuildExpr_QuotesStrings(t *testing.T) {
	cond, _ := filter.NewMatch("city", `St. "Louis"`)
	expr, _ := filter.NewExpression([]filter.Condition{cond}, nil, nil)

	want := `metadata["city"] == "St. \"Louis\""`
	if got := buildExpr(expr); got != want {
		t.Errorf("expr = %s", got)
	}
}
