// Package mcp exposes apartment search and lookup as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibesearch/internal/domain"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/filter"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/request"
	"github.com/kailas-cloud/vibesearch/internal/version"
)

// Tool names.
const (
	ToolSearch  = "search_apartments"
	ToolPreview = "apartment_preview"
	ToolDetails = "apartment_details"
)

// Server holds the tool handlers.
type Server struct {
	search   Searcher
	listings Listings
	maxLimit int
	logger   *zap.Logger
}

// Hit is one search result as returned to MCP clients.
type Hit struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// SearchOutput is the structured result of search_apartments.
type SearchOutput struct {
	Results []Hit `json:"results"`
}

// New returns an MCP server exposing the apartment tools.
func New(search Searcher, listings Listings, maxLimit int, logger *zap.Logger) *server.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{search: search, listings: listings, maxLimit: maxLimit, logger: logger}

	s := server.NewMCPServer(
		"vibesearch",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.AddTool(newSearchTool(), srv.handleSearch)
	s.AddTool(newPreviewTool(), srv.handlePreview)
	s.AddTool(newDetailsTool(), srv.handleDetails)
	return s
}

func newSearchTool() mcp.Tool {
	return mcp.NewTool(
		ToolSearch,
		mcp.WithDescription("Semantic apartment search by free-text description and/or example photos"),
		mcp.WithString("query", mcp.Description("What the apartment should feel like")),
		mcp.WithArray("image_urls", mcp.Description("Example photo URLs"), mcp.WithStringItems()),
		mcp.WithNumber("limit", mcp.Description("Max results"), mcp.DefaultNumber(request.DefaultLimit)),
		mcp.WithNumber("price_min", mcp.Description("Lowest acceptable starting rent")),
		mcp.WithNumber("price_max", mcp.Description("Highest acceptable top rent")),
		mcp.WithNumber("bedrooms_min", mcp.Description("Minimum bedrooms")),
		mcp.WithNumber("bedrooms_max", mcp.Description("Maximum bedrooms")),
		mcp.WithNumber("bathrooms_min", mcp.Description("Minimum bathrooms")),
		mcp.WithNumber("bathrooms_max", mcp.Description("Maximum bathrooms")),
		mcp.WithArray("amenities", mcp.Description("Any of these amenities"), mcp.WithStringItems()),
		mcp.WithString("city", mcp.Description("City, exact match")),
		mcp.WithString("state", mcp.Description("State, exact match")),
		mcp.WithBoolean("studio", mcp.Description("Studios only")),
		mcp.WithBoolean("has_available_units", mcp.Description("Only listings with open units")),
	)
}

func newPreviewTool() mcp.Tool {
	return mcp.NewTool(
		ToolPreview,
		mcp.WithDescription("Short apartment card; photos ordered by relevance to query when given"),
		mcp.WithString("id", mcp.Description("Apartment id"), mcp.Required()),
		mcp.WithString("query", mcp.Description("Search text used to rank photos")),
	)
}

func newDetailsTool() mcp.Tool {
	return mcp.NewTool(
		ToolDetails,
		mcp.WithDescription("Full apartment record; photos ordered by relevance to query when given"),
		mcp.WithString("id", mcp.Description("Apartment id"), mcp.Required()),
		mcp.WithString("query", mcp.Description("Search text used to rank photos")),
	)
}

func (srv *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set, err := filtersFrom(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sr, err := request.New(
		req.GetString("query", ""),
		req.GetStringSlice("image_urls", nil),
		set,
		req.GetInt("limit", 0),
		srv.maxLimit,
	)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results := srv.search.Search(ctx, sr)
	out := SearchOutput{Results: make([]Hit, len(results))}
	for i := range results {
		out.Results[i] = Hit{ID: results[i].ID(), Score: results[i].Score(), Metadata: results[i].Metadata()}
	}
	return mcp.NewToolResultStructuredOnly(out), nil
}

func (srv *Server) handlePreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := srv.listings.Preview(ctx, id, req.GetString("query", ""))
	if err != nil {
		return srv.toolError(ToolPreview, err), nil
	}
	return mcp.NewToolResultStructuredOnly(p), nil
}

func (srv *Server) handleDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	l, err := srv.listings.Details(ctx, id, req.GetString("query", ""))
	if err != nil {
		return srv.toolError(ToolDetails, err), nil
	}
	return mcp.NewToolResultStructuredOnly(l), nil
}

// toolError keeps driver errors out of tool output.
func (srv *Server) toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		return mcp.NewToolResultError("Apartment not found")
	case errors.Is(err, domain.ErrInvalidQuery):
		return mcp.NewToolResultError(err.Error())
	}
	srv.logger.Error("mcp tool failed", zap.String("tool", tool), zap.Error(err))
	return mcp.NewToolResultError("internal error")
}

func filtersFrom(req mcp.CallToolRequest) (filter.Set, error) {
	args := req.GetArguments()
	var set filter.Set
	var err error

	if set.PriceMin, err = optFloat(args, "price_min"); err != nil {
		return set, err
	}
	if set.PriceMax, err = optFloat(args, "price_max"); err != nil {
		return set, err
	}
	if set.Bedrooms, err = optBounds(args, "bedrooms"); err != nil {
		return set, err
	}
	if set.Bathrooms, err = optBounds(args, "bathrooms"); err != nil {
		return set, err
	}
	set.Amenities = req.GetStringSlice("amenities", nil)
	set.City = strings.TrimSpace(req.GetString("city", ""))
	set.State = strings.TrimSpace(req.GetString("state", ""))
	set.Studio = req.GetBool("studio", false)
	set.HasAvailableUnits = req.GetBool("has_available_units", false)
	return set, nil
}

func optBounds(args map[string]any, name string) (*filter.Bounds, error) {
	lo, err := optFloat(args, name+"_min")
	if err != nil {
		return nil, err
	}
	hi, err := optFloat(args, name+"_max")
	if err != nil {
		return nil, err
	}
	if lo == nil && hi == nil {
		return nil, nil
	}
	return &filter.Bounds{Min: lo, Max: hi}, nil
}

func optFloat(args map[string]any, name string) (*float64, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch n := v.(type) {
	case float64:
		return &n, nil
	case int:
		f := float64(n)
		return &f, nil
	}
	return nil, fmt.Errorf("%s must be a number", name)
}
