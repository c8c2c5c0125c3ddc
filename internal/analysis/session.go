package analysis

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/faceratio/internal/geometry"
)

// Session is one capture session. It owns the ratio window for a single
// device; the mutex exists only because requests for the same session may
// arrive concurrently.
type Session struct {
	ID        string
	DeviceID  string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu       sync.Mutex
	window   *geometry.Stabilizer
	accepted int
	rejected int
}

// newSession creates an unregistered session with its own window.
func newSession(deviceID string, capacity, minSamples int) *Session {
	return &Session{
		ID:       uuid.New().String(),
		DeviceID: deviceID,
		window:   geometry.NewStabilizer(capacity, minSamples),
	}
}

// FrameReport summarizes one batch of pushed frames.
type FrameReport struct {
	Accepted int  `json:"accepted"`
	Rejected int  `json:"rejected"`
	Buffered int  `json:"buffered"`
	Ready    bool `json:"ready"`
}

// Push reduces each frame and appends the usable ones to the window.
// Frames where no face could be measured are counted as rejected.
func (s *Session) Push(frames []geometry.LandmarkSet) FrameReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report FrameReport
	for _, f := range frames {
		r, ok := geometry.Reduce(f)
		if !ok {
			report.Rejected++
			continue
		}
		s.window.Push(r)
		report.Accepted++
	}
	s.accepted += report.Accepted
	s.rejected += report.Rejected
	report.Buffered = s.window.Len()
	report.Ready = s.window.Ready()
	return report
}

// Stabilize averages the buffered window.
func (s *Session) Stabilize() (geometry.RatioSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Stabilize()
}

// Buffered returns the number of samples in the window.
func (s *Session) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Len()
}

// Reset clears the window, e.g. after the user repositions.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window.Reset()
}

// SessionData is a helper struct for JSON responses
type SessionData struct {
	SessionID  string `json:"session_id"`
	DeviceID   string `json:"device_id"`
	ExpiresAt  string `json:"expires_at"`
	Buffered   int    `json:"buffered"`
	Capacity   int    `json:"capacity"`
	MinSamples int    `json:"min_samples"`
}

// ToJSON returns the session data for JSON response
func (s *Session) ToJSON() SessionData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionData{
		SessionID:  s.ID,
		DeviceID:   s.DeviceID,
		ExpiresAt:  s.ExpiresAt.Format(time.RFC3339),
		Buffered:   s.window.Len(),
		Capacity:   s.window.Capacity(),
		MinSamples: s.window.MinSamples(),
	}
}

// MarshalJSON implements json.Marshaler
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}
