package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibesearch/internal/domain"
	domlisting "github.com/kailas-cloud/vibesearch/internal/domain/listing"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/request"
	"github.com/kailas-cloud/vibesearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/vibesearch/internal/usecase/health"
)

// headerEmbeddingTokens reports the embedding tokens a search consumed.
const headerEmbeddingTokens = "X-Embedding-Tokens"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the search and listing API.
type Server struct {
	search        Searcher
	listings      Listings
	health        HealthChecker
	maxLimit      int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. health can be nil.
func NewServer(search Searcher, listings Listings, health HealthChecker, maxLimit int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:   search,
		listings: listings,
		health:   health,
		maxLimit: maxLimit,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		invalidQueryHandler,
		sentinelHandler(domain.ErrListingNotFound, http.StatusNotFound, "Apartment not found"),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, "rate limited"),
	}
	return s
}

type errorResponse struct {
	Error string `json:"error"`
}

type searchHit struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type searchResponse struct {
	Results []searchHit `json:"results"`
}

type apartmentResponse struct {
	Apartment any `json:"apartment"`
}

type previewsResponse struct {
	Apartments []domlisting.Preview `json:"apartments"`
}

type apiHealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// SearchGet handles GET /api/search.
func (s *Server) SearchGet(w http.ResponseWriter, r *http.Request) {
	p, err := searchParamsFromQuery(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.runSearch(w, r, p)
}

// SearchPost handles POST /api/search.
func (s *Server) SearchPost(w http.ResponseWriter, r *http.Request) {
	p, err := searchParamsFromBody(w, r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.runSearch(w, r, p)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, p searchParams) {
	req, err := request.New(p.Query, p.ImageURLs, p.Filters.toSet(), p.Limit, s.maxLimit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	ctx, usage := domain.NewContextWithUsage(r.Context())
	hits := toHits(s.search.Search(ctx, req))
	if usage.Used {
		w.Header().Set(headerEmbeddingTokens, strconv.Itoa(usage.TotalTokens))
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: hits})
}

func toHits(results []result.Result) []searchHit {
	hits := make([]searchHit, len(results))
	for i := range results {
		md := results[i].Metadata()
		if md == nil {
			md = map[string]any{}
		}
		hits[i] = searchHit{ID: results[i].ID(), Score: results[i].Score(), Metadata: md}
	}
	return hits
}

// Preview handles GET /api/apartment/preview/{id}.
func (s *Server) Preview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errMissingID.Error())
		return
	}
	p, err := s.listings.Preview(r.Context(), id, r.URL.Query().Get("query"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apartmentResponse{Apartment: p})
}

// Details handles GET /api/apartment/{id}.
func (s *Server) Details(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errMissingID.Error())
		return
	}
	l, err := s.listings.Details(r.Context(), id, r.URL.Query().Get("query"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apartmentResponse{Apartment: l})
}

// Previews handles GET /api/apartments/previews?ids=a,b.
func (s *Server) Previews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids, err := idsFromQuery(q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	previews, err := s.listings.Previews(r.Context(), ids, q.Get("query"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if previews == nil {
		previews = []domlisting.Preview{}
	}
	writeJSON(w, http.StatusOK, previewsResponse{Apartments: previews})
}

// APIHealth handles GET /api/health. It only says the process is up.
func (s *Server) APIHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, apiHealthResponse{Status: "ok", Message: "API is running"})
}

// HealthCheck handles GET /health with per-component results.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}})
		return
	}
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: report.Status, Checks: report.Checks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// invalidQueryHandler surfaces validation details; they are built from user input only.
func invalidQueryHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidQuery) {
		return false
	}
	writeError(w, http.StatusBadRequest, err.Error())
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, message)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error",
		zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}
