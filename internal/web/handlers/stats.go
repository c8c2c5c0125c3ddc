package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/geometry"
	"github.com/kozaktomas/faceratio/internal/logger"
)

// StatsHandler serves the global statistics
type StatsHandler struct {
	stats database.StatsReader
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(stats database.StatsReader) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// StatsResponse represents the statistics response
type StatsResponse struct {
	TotalScans        int64            `json:"totalScans"`
	AverageScore      float64          `json:"averageScore"`
	ShapeDistribution map[string]int64 `json:"shapeDistribution"`
	ScoreDistribution map[string]int64 `json:"scoreDistribution"`
	LastUpdated       time.Time        `json:"lastUpdated"`
}

// Get returns the statistics singleton with the average rounded to one decimal.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		respondError(w, http.StatusServiceUnavailable, "statistics not configured")
		return
	}
	s, err := h.stats.GetStats(r.Context())
	if err != nil {
		logger.Error("failed to get stats", logger.LoggerOptions{Key: "error", Data: err})
		respondError(w, http.StatusInternalServerError, "failed to retrieve statistics")
		return
	}
	respondJSON(w, http.StatusOK, StatsResponse{
		TotalScans:        s.TotalScans,
		AverageScore:      geometry.RoundTo(s.AverageScore, 1),
		ShapeDistribution: s.ShapeDistribution,
		ScoreDistribution: s.ScoreDistribution,
		LastUpdated:       s.LastUpdated,
	})
}
