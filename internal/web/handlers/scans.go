package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/faceratio/internal/analysis"
	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/logger"
)

const (
	defaultScanLimit = 10
	maxScanLimit     = 50
)

// ScansHandler exposes a device's scan history.
type ScansHandler struct {
	analyzer *analysis.Analyzer
	scans    database.ScanWriter
}

// NewScansHandler creates a new scans handler
func NewScansHandler(a *analysis.Analyzer, scans database.ScanWriter) *ScansHandler {
	return &ScansHandler{analyzer: a, scans: scans}
}

type scanResultsRequest struct {
	TotalScore     float64            `json:"totalScore" validate:"gte=0,lte=100"`
	FaceShape      string             `json:"faceShape" validate:"required,oneof=Oval Square Round Oblong Heart Diamond"`
	CelebrityMatch *scanMatchRequest  `json:"celebrityMatch,omitempty"`
	Scores         map[string]float64 `json:"scores,omitempty"`
}

type scanMatchRequest struct {
	ID          string `json:"id" validate:"max=255"`
	Name        string `json:"name" validate:"required,max=255"`
	Similarity  int    `json:"similarity" validate:"gte=0,lte=100"`
	Description string `json:"description" validate:"max=1024"`
}

type createScanRequest struct {
	DeviceID string             `json:"deviceId" validate:"required,max=128"`
	Ratios   RatiosRequest      `json:"ratios"`
	Results  scanResultsRequest `json:"results"`
}

// CreateScanResponse is returned by Create. Stats is omitted when no
// statistics store is configured.
type CreateScanResponse struct {
	Scan  *database.StoredScan  `json:"scan"`
	Stats *database.GlobalStats `json:"stats,omitempty"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ScanListResponse is returned by List.
type ScanListResponse struct {
	Scans      []database.StoredScan `json:"scans"`
	Pagination Pagination            `json:"pagination"`
}

// Create stores a client-computed scan and records it in the statistics.
func (h *ScansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	scan := &database.StoredScan{
		DeviceID:   req.DeviceID,
		Ratios:     req.Ratios.RatioSet(),
		Scores:     req.Results.Scores,
		TotalScore: req.Results.TotalScore,
		FaceShape:  req.Results.FaceShape,
	}
	if m := req.Results.CelebrityMatch; m != nil {
		scan.Match = &database.ScanMatch{
			ReferenceID: m.ID,
			Name:        m.Name,
			Similarity:  m.Similarity,
			Description: m.Description,
		}
	}

	stats, err := h.analyzer.SaveScan(r.Context(), scan)
	if err != nil {
		logger.Error("failed to save scan", logger.LoggerOptions{Key: "error", Data: err})
		respondError(w, http.StatusInternalServerError, "failed to save scan")
		return
	}
	respondJSON(w, http.StatusCreated, CreateScanResponse{Scan: scan, Stats: stats})
}

// queryInt parses a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

// List returns a device's scans, newest first. The {id} parameter is the
// device ID.
func (h *ScansHandler) List(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" {
		respondError(w, http.StatusBadRequest, "deviceId is required")
		return
	}
	limit := min(queryInt(r, "limit", defaultScanLimit), maxScanLimit)
	// (page-1)*limit must not overflow into a negative offset.
	page := min(queryInt(r, "page", 1), math.MaxInt/limit)

	scans, err := h.scans.ListScansByDevice(r.Context(), deviceID, limit, (page-1)*limit)
	if err != nil {
		logger.Error("failed to list scans", logger.LoggerOptions{Key: "error", Data: err},
			logger.LoggerOptions{Key: "deviceId", Data: sanitizeForLog(deviceID)})
		respondError(w, http.StatusInternalServerError, "failed to retrieve scans")
		return
	}
	if scans == nil {
		scans = []database.StoredScan{}
	}
	total, err := h.scans.CountScansByDevice(r.Context(), deviceID)
	if err != nil {
		logger.Error("failed to count scans", logger.LoggerOptions{Key: "error", Data: err})
		respondError(w, http.StatusInternalServerError, "failed to retrieve scans")
		return
	}

	respondJSON(w, http.StatusOK, ScanListResponse{
		Scans: scans,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	})
}

// Delete removes the scan {id} if it is owned by the requesting device. The device ID comes
// from the X-Device-ID header or a {"deviceId": ...} body.
func (h *ScansHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "id")
	deviceID := r.Header.Get("X-Device-ID")
	if deviceID == "" {
		var body struct {
			DeviceID string `json:"deviceId"`
		}
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		deviceID = body.DeviceID
	}
	if deviceID == "" {
		respondError(w, http.StatusBadRequest, "deviceId is required")
		return
	}

	err := h.scans.DeleteScan(r.Context(), scanID, deviceID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "scan not found or unauthorized")
		return
	}
	if err != nil {
		logger.Error("failed to delete scan", logger.LoggerOptions{Key: "error", Data: err})
		respondError(w, http.StatusInternalServerError, "failed to delete scan")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "scan deleted"})
}
