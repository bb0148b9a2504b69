package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/vibesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/request"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/result"
)

type searchFlags struct {
	imageURLs []string
	limit     int
	priceMin  float64
	priceMax  float64
	bedsMin   float64
	bedsMax   float64
	bathsMin  float64
	bathsMax  float64
	amenities []string
	city      string
	state     string
	studio    bool
	available bool
}

func newSearchCommand(env *string) *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search apartments by description and/or example photos",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *env)
			if err != nil {
				return err
			}
			defer a.close()

			req, err := f.request(cmd, args, a.cfg.Index.MaxLimit)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), a.search.Search(cmd.Context(), req))
		},
	}

	f.bind(cmd)
	return cmd
}

func (f *searchFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringSliceVar(&f.imageURLs, "image-url", nil, "example photo URL (repeatable)")
	fl.IntVarP(&f.limit, "limit", "n", 0, "max results (default 50)")
	fl.Float64Var(&f.priceMin, "price-min", 0, "lowest acceptable starting rent")
	fl.Float64Var(&f.priceMax, "price-max", 0, "highest acceptable top rent")
	fl.Float64Var(&f.bedsMin, "beds-min", 0, "minimum bedrooms")
	fl.Float64Var(&f.bedsMax, "beds-max", 0, "maximum bedrooms")
	fl.Float64Var(&f.bathsMin, "baths-min", 0, "minimum bathrooms")
	fl.Float64Var(&f.bathsMax, "baths-max", 0, "maximum bathrooms")
	fl.StringSliceVar(&f.amenities, "amenity", nil, "any of these amenities (repeatable)")
	fl.StringVar(&f.city, "city", "", "city, exact match")
	fl.StringVar(&f.state, "state", "", "state, exact match")
	fl.BoolVar(&f.studio, "studio", false, "studios only")
	fl.BoolVar(&f.available, "available", false, "only listings with open units")
}

// request builds a validated search request. Numeric filters apply only when set explicitly.
func (f *searchFlags) request(cmd *cobra.Command, args []string, maxLimit int) (request.Request, error) {
	text := strings.Join(args, " ")
	changed := cmd.Flags().Changed

	opt := func(name string, v float64) *float64 {
		if !changed(name) {
			return nil
		}
		return &v
	}
	bounds := func(lo, hi *float64) *filter.Bounds {
		if lo == nil && hi == nil {
			return nil
		}
		return &filter.Bounds{Min: lo, Max: hi}
	}

	set := filter.Set{
		PriceMin:          opt("price-min", f.priceMin),
		PriceMax:          opt("price-max", f.priceMax),
		Bedrooms:          bounds(opt("beds-min", f.bedsMin), opt("beds-max", f.bedsMax)),
		Bathrooms:         bounds(opt("baths-min", f.bathsMin), opt("baths-max", f.bathsMax)),
		Amenities:         f.amenities,
		City:              f.city,
		State:             f.state,
		Studio:            f.studio,
		HasAvailableUnits: f.available,
	}
	return request.New(text, f.imageURLs, set, f.limit, maxLimit)
}

type hitOutput struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

func printResults(w io.Writer, results []result.Result) error {
	out := struct {
		Results []hitOutput `json:"results"`
	}{Results: make([]hitOutput, len(results))}
	for i := range results {
		out.Results[i] = hitOutput{ID: results[i].ID(), Score: results[i].Score(), Metadata: results[i].Metadata()}
	}
	return printJSON(w, out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
