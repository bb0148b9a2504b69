package milvus

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/vibesearch/internal/domain/search/filter"
)

// buildExpr renders a filter.Expression as a Milvus boolean expression over
// keys of the JSON metadata column. The empty expression renders as "",
// which Milvus treats as no filter.
func buildExpr(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	var parts []string
	for _, cond := range expr.Must() {
		parts = append(parts, buildCondition(cond))
	}

	if should := expr.Should(); len(should) > 0 {
		alts := make([]string, 0, len(should))
		for _, cond := range should {
			alts = append(alts, buildCondition(cond))
		}
		parts = append(parts, "("+strings.Join(alts, " or ")+")")
	}

	for _, cond := range expr.MustNot() {
		parts = append(parts, "not ("+buildCondition(cond)+")")
	}

	return strings.Join(parts, " and ")
}

func buildCondition(cond filter.Condition) string {
	field := metadataKey(cond.Key())
	switch {
	case cond.IsMatch():
		return field + " == " + strconv.Quote(cond.Match())
	case cond.IsFlag():
		return field + " == true"
	case cond.IsRange():
		return buildRange(field, *cond.Range())
	}
	return ""
}

func buildRange(field string, r filter.Range) string {
	var bounds []string
	if r.GT() != nil {
		bounds = append(bounds, field+" > "+formatFloat(*r.GT()))
	} else if r.GTE() != nil {
		bounds = append(bounds, field+" >= "+formatFloat(*r.GTE()))
	}
	if r.LT() != nil {
		bounds = append(bounds, field+" < "+formatFloat(*r.LT()))
	} else if r.LTE() != nil {
		bounds = append(bounds, field+" <= "+formatFloat(*r.LTE()))
	}
	if len(bounds) == 1 {
		return bounds[0]
	}
	return "(" + strings.Join(bounds, " and ") + ")"
}

func metadataKey(key string) string {
	return FieldMetadata + "[" + strconv.Quote(key) + "]"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
