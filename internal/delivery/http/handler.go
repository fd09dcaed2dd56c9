package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tilbudsradar/backend/internal/domain"
	"github.com/tilbudsradar/backend/internal/observability"
	"github.com/tilbudsradar/backend/internal/usecase"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	matcher *usecase.MatchingService
	runs    *usecase.PriceRunService
	store   domain.ResultStore
	log     zerolog.Logger
}

// NewHandler creates a new HTTP handler. runs and store may be nil; their
// endpoints then answer 503.
func NewHandler(matcher *usecase.MatchingService, runs *usecase.PriceRunService, store domain.ResultStore, logger zerolog.Logger) *Handler {
	return &Handler{
		matcher: matcher,
		runs:    runs,
		store:   store,
		log:     logger.With().Str("component", "http").Logger(),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": "tilbudsradar-backend",
		"version": Version,
	}
	if h.runs != nil {
		resp["run_in_progress"] = h.runs.Running()
	}
	c.JSON(http.StatusOK, resp)
}

// MatchRequest is the body of POST /api/v1/match
type MatchRequest struct {
	Query      string                   `json:"query" binding:"required"`
	Candidates []domain.StaticCandidate `json:"candidates"`
}

// ScoredCandidateResponse is one evaluated candidate
type ScoredCandidateResponse struct {
	Title     string  `json:"title"`
	PriceText string  `json:"price_text"`
	Score     float64 `json:"score"`
	StorageGB *int    `json:"storage_gb"`
	Reason    string  `json:"disqualified_by,omitempty"`
}

// MatchResponse explains how a query was matched against the given candidates
type MatchResponse struct {
	Query          string                    `json:"query"`
	CanonicalQuery string                    `json:"canonical_query"`
	Features       usecase.Features          `json:"features"`
	Candidates     []ScoredCandidateResponse `json:"candidates"`
	Outcome        string                    `json:"outcome"`
	MarketPrice    *int                      `json:"market_price"`
	Winner         *ScoredCandidateResponse  `json:"winner,omitempty"`
}

// Match scores candidate cards against a product name and selects the winner
func (h *Handler) Match(c *gin.Context) {
	if h.matcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Matching is not configured"})
		return
	}

	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: query is required"})
		return
	}

	canonical := usecase.CanonicalQuery(req.Query)
	if strings.TrimSpace(usecase.Normalize(canonical)) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: query has no searchable text"})
		return
	}

	candidates := make([]domain.Candidate, 0, len(req.Candidates))
	for _, cand := range req.Candidates {
		candidates = append(candidates, cand)
	}

	features := h.matcher.Analyze(canonical)
	scored := h.matcher.Evaluate(features, candidates)
	outcome := h.matcher.Select(features, scored)

	resp := MatchResponse{
		Query:          req.Query,
		CanonicalQuery: canonical,
		Features:       features,
		Candidates:     make([]ScoredCandidateResponse, 0, len(scored)),
		Outcome:        outcome.Kind.String(),
		MarketPrice:    outcome.Price,
	}
	for _, s := range scored {
		resp.Candidates = append(resp.Candidates, toScoredResponse(s))
	}
	if outcome.Winner != nil {
		winner := toScoredResponse(*outcome.Winner)
		resp.Winner = &winner
	}

	observability.FromContext(c.Request.Context(), h.log).Debug().
		Str("query", canonical).
		Int("candidates", len(candidates)).
		Str("outcome", resp.Outcome).
		Msg("Match request")

	c.JSON(http.StatusOK, resp)
}

func toScoredResponse(s domain.ScoredCandidate) ScoredCandidateResponse {
	return ScoredCandidateResponse{
		Title:     s.Candidate.Title(),
		PriceText: s.Candidate.PriceText(),
		Score:     s.Score,
		StorageGB: s.StorageGB,
		Reason:    s.Reason,
	}
}

// ListPrices returns the latest stored price table
func (h *Handler) ListPrices(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Result store is not configured"})
		return
	}

	table, err := h.store.Latest(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// LookupPrice returns the stored result for one product name
func (h *Handler) LookupPrice(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Result store is not configured"})
		return
	}

	name := c.Query("name")
	if strings.TrimSpace(name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: name is required"})
		return
	}

	result, err := h.store.Get(c.Request.Context(), name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_name": name,
		"market_price": result.MarketPrice,
		"looked_up_at": result.LookedUpAt,
	})
}

// StartRun launches a background lookup run
func (h *Handler) StartRun(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Lookup runs are not configured"})
		return
	}

	id, err := h.runs.Start(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	observability.FromContext(c.Request.Context(), h.log).Info().Str("run_id", id).Msg("Lookup run started")
	c.JSON(http.StatusAccepted, gin.H{"run_id": id, "status": "started"})
}

// RunResponse summarizes a finished run
type RunResponse struct {
	ID         string            `json:"run_id"`
	StartedAt  string            `json:"started_at"`
	FinishedAt string            `json:"finished_at"`
	Stats      domain.RunStats   `json:"stats"`
	Results    domain.PriceTable `json:"results"`
}

// LatestRun returns the most recent run finished by this process
func (h *Handler) LatestRun(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Lookup runs are not configured"})
		return
	}

	run, err := h.runs.Latest()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RunResponse{
		ID:         run.ID,
		StartedAt:  run.StartedAt.Format(time.RFC3339),
		FinishedAt: run.FinishedAt.Format(time.RFC3339),
		Stats:      run.Stats,
		Results:    run.Results,
	})
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, domain.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "A lookup run is already in progress"})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrStoreUnavailable):
		observability.FromContext(c.Request.Context(), h.log).Error().Err(err).Msg("Result store failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Result store temporarily unavailable"})
	default:
		observability.FromContext(c.Request.Context(), h.log).Error().Err(err).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
