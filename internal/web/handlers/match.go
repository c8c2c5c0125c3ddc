package handlers

import (
	"net/http"

	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/logger"
	"github.com/kozaktomas/faceratio/internal/matcher"
)

// noMatchesMessage is returned when the reference index is empty.
const noMatchesMessage = "No matches found. The database may not be seeded yet."

// MatchHandler answers similarity queries against the reference index.
type MatchHandler struct {
	matcher *matcher.Matcher
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(m *matcher.Matcher) *MatchHandler {
	return &MatchHandler{matcher: m}
}

type matchRequest struct {
	Ratios RatiosRequest `json:"ratios"`
	TopK   int           `json:"topK" validate:"omitempty,min=1,max=20"`
}

// MatchResponse is returned by Match when at least one reference matched.
type MatchResponse struct {
	TopMatch   *matcher.MatchResult  `json:"topMatch,omitempty"`
	AllMatches []matcher.MatchResult `json:"allMatches"`
	UserVector []float64             `json:"userVector"`
	Message    string                `json:"message,omitempty"`
}

// Match finds the references closest to the posted ratios.
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	vector := matcher.Embed(req.Ratios.RatioSet())
	matches, err := h.matcher.Match(r.Context(), vector, req.TopK)
	if err != nil {
		logger.Warning("similarity match failed", logger.LoggerOptions{Key: "error", Data: err})
		respondError(w, http.StatusBadGateway, "failed to find matches")
		return
	}

	resp := MatchResponse{AllMatches: matches, UserVector: vector.Slice()}
	if len(matches) == 0 {
		resp.Message = noMatchesMessage
	} else {
		resp.TopMatch = &matches[0]
	}
	respondJSON(w, http.StatusOK, resp)
}

// MatchHealthResponse reports the state of the reference index.
type MatchHealthResponse struct {
	matcher.HealthStatus
	VectorDimensions int `json:"vectorDimensions"`
}

// Health checks the reference index. It always answers 200; the status
// field carries the outcome.
func (h *MatchHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, MatchHealthResponse{
		HealthStatus:     h.matcher.Health(r.Context()),
		VectorDimensions: database.ReferenceDim,
	})
}
