package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/faceratio/internal/analysis"
	"github.com/kozaktomas/faceratio/internal/geometry"
	"github.com/kozaktomas/faceratio/internal/logger"
)

// repositionPrompt is returned when a session has too few usable frames.
const repositionPrompt = "not enough stable frames, please hold still and keep your face centered"

// SessionsHandler drives server-side capture sessions.
type SessionsHandler struct {
	sessions *analysis.SessionManager
	analyzer *analysis.Analyzer
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(sm *analysis.SessionManager, a *analysis.Analyzer) *SessionsHandler {
	return &SessionsHandler{sessions: sm, analyzer: a}
}

type createSessionRequest struct {
	DeviceID string `json:"deviceId" validate:"required,max=128"`
}

// FrameRequest carries one frame as either named landmarks or a full mesh.
type FrameRequest = analysis.Frame

type pushFramesRequest struct {
	Frames []FrameRequest `json:"frames" validate:"required,min=1,max=60"`
}

// Create starts a capture session.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	session, err := h.sessions.CreateSession(req.DeviceID)
	if errors.Is(err, analysis.ErrTooManySessions) {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		logger.Error("failed to create session", logger.LoggerOptions{Key: "error", Data: err})
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	respondJSON(w, http.StatusCreated, session.ToJSON())
}

// session resolves the {id} URL parameter, writing 404 when it is unknown.
func (h *SessionsHandler) session(w http.ResponseWriter, r *http.Request) (*analysis.Session, bool) {
	session, err := h.sessions.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return session, true
}

// Get returns the session state.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, session.ToJSON())
}

// PushFrames reduces and buffers a batch of frames.
func (h *SessionsHandler) PushFrames(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req pushFramesRequest
	if !decodeJSON(w, r, maxFrameBodyBytes, &req) {
		return
	}

	frames := make([]geometry.LandmarkSet, len(req.Frames))
	for i, f := range req.Frames {
		frames[i] = f.LandmarkSet()
	}
	respondJSON(w, http.StatusOK, session.Push(frames))
}

// Complete stabilizes the window and runs the full analysis. With too few
// samples the session stays open and 422 asks the user to reposition.
// The session is taken out of the registry for the duration of the analysis,
// so a concurrent completion of the same session gets 404.
func (h *SessionsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.TakeSession(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	result, err := h.analyzer.Complete(r.Context(), session)
	if err != nil {
		h.sessions.Restore(session)
	}
	if errors.Is(err, geometry.ErrInsufficientSamples) {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    repositionPrompt,
			"buffered": session.Buffered(),
			"required": session.ToJSON().MinSamples,
		})
		return
	}
	if errors.Is(err, analysis.ErrInvalidRatios) {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		logger.Error("analysis failed", logger.LoggerOptions{Key: "error", Data: err})
		respondError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Delete discards a session.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.DeleteSession(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, analysis.ErrSessionNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
