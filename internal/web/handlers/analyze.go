package handlers

import (
	"errors"
	"net/http"

	"github.com/kozaktomas/faceratio/internal/analysis"
	"github.com/kozaktomas/faceratio/internal/logger"
)

// AnalyzeHandler runs one-shot analyses from already averaged ratios.
type AnalyzeHandler struct {
	analyzer *analysis.Analyzer
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(a *analysis.Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: a}
}

type analyzeRequest struct {
	DeviceID string        `json:"deviceId" validate:"omitempty,max=128"`
	Ratios   RatiosRequest `json:"ratios"`
}

// Analyze scores, classifies and matches the posted ratios.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), req.DeviceID, req.Ratios.RatioSet())
	if errors.Is(err, analysis.ErrInvalidRatios) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logger.Error("analysis failed", logger.LoggerOptions{Key: "error", Data: err})
		respondError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
