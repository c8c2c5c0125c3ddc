package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kozaktomas/faceratio/internal/geometry"
)

// Frame is one captured frame, as named landmarks or a full face mesh.
type Frame struct {
	Landmarks map[string]geometry.Point `json:"landmarks,omitempty"`
	Mesh      []geometry.Point          `json:"mesh,omitempty"`
}

// LandmarkSet converts the frame. A mesh takes precedence over named points;
// a mesh too short to hold every landmark yields an empty set.
func (f Frame) LandmarkSet() geometry.LandmarkSet {
	if len(f.Mesh) > 0 {
		set, ok := geometry.FromMesh(f.Mesh)
		if !ok {
			return geometry.LandmarkSet{}
		}
		return set
	}
	return geometry.FromNamed(f.Landmarks)
}

// Capture is a recorded analysis input: either ratios already averaged by
// the client or the raw frames to stabilize.
type Capture struct {
	DeviceID string             `json:"deviceId,omitempty"`
	Ratios   *geometry.RatioSet `json:"ratios,omitempty"`
	Frames   []Frame            `json:"frames,omitempty"`
}

// ReadCapture decodes a capture document.
func ReadCapture(r io.Reader) (*Capture, error) {
	var c Capture
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding capture: %w", err)
	}
	if c.Ratios == nil && len(c.Frames) == 0 {
		return nil, errors.New("capture has neither ratios nor frames")
	}
	return &c, nil
}

// RunCapture analyzes c. Frames are pushed through a fresh window of the
// given size; ratios are analyzed directly.
func (a *Analyzer) RunCapture(ctx context.Context, c *Capture, capacity, minSamples int) (*Result, FrameReport, error) {
	if c.Ratios != nil {
		res, err := a.Analyze(ctx, c.DeviceID, *c.Ratios)
		return res, FrameReport{}, err
	}

	s := newSession(c.DeviceID, capacity, minSamples)
	frames := make([]geometry.LandmarkSet, len(c.Frames))
	for i, f := range c.Frames {
		frames[i] = f.LandmarkSet()
	}
	report := s.Push(frames)
	res, err := a.Complete(ctx, s)
	return res, report, err
}
