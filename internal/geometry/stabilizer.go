package geometry

import (
	"errors"
	"fmt"
)

// Stabilization window defaults.
const (
	DefaultBufferCapacity = 10
	DefaultMinSamples     = 5
)

// ErrInsufficientSamples is returned by Stabilize when the window holds fewer
// samples than required. The caller should ask the user to reposition.
var ErrInsufficientSamples = errors.New("insufficient samples")

// Stabilizer is a fixed-capacity sliding window of per-frame ratios.
// It belongs to a single capture session and is not safe for concurrent use.
type Stabilizer struct {
	buf        []RatioSet
	capacity   int
	minSamples int
}

// NewStabilizer creates an empty window. Non-positive arguments fall back to
// the defaults, and minSamples is capped at capacity.
func NewStabilizer(capacity, minSamples int) *Stabilizer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	minSamples = min(minSamples, capacity)
	return &Stabilizer{
		buf:        make([]RatioSet, 0, capacity),
		capacity:   capacity,
		minSamples: minSamples,
	}
}

// Push appends a sample, evicting the oldest one when the window is full.
func (s *Stabilizer) Push(r RatioSet) {
	if len(s.buf) == s.capacity {
		copy(s.buf, s.buf[1:])
		s.buf = s.buf[:len(s.buf)-1]
	}
	s.buf = append(s.buf, r)
}

// Len returns the number of buffered samples.
func (s *Stabilizer) Len() int {
	return len(s.buf)
}

// Capacity returns the window size.
func (s *Stabilizer) Capacity() int {
	return s.capacity
}

// MinSamples returns the number of samples Stabilize requires.
func (s *Stabilizer) MinSamples() int {
	return s.minSamples
}

// Ready reports whether Stabilize would succeed.
func (s *Stabilizer) Ready() bool {
	return len(s.buf) >= s.minSamples
}

// Reset clears the window. Called at the start of every capture session.
func (s *Stabilizer) Reset() {
	s.buf = s.buf[:0]
}

// Stabilize returns the per-key arithmetic mean of the buffered samples.
// The mean is not rounded. It is accumulated as offsets from the first sample,
// so a window of identical samples yields exactly that sample.
func (s *Stabilizer) Stabilize() (RatioSet, error) {
	if len(s.buf) < s.minSamples {
		return RatioSet{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(s.buf), s.minSamples)
	}

	base := s.buf[0]
	var delta RatioSet
	for _, r := range s.buf[1:] {
		delta.FaceStructure += r.FaceStructure - base.FaceStructure
		delta.RuleOfFifths += r.RuleOfFifths - base.RuleOfFifths
		delta.NasalOral += r.NasalOral - base.NasalOral
		delta.VerticalThirds += r.VerticalThirds - base.VerticalThirds
		delta.Symmetry += r.Symmetry - base.Symmetry
	}

	n := float64(len(s.buf))
	return RatioSet{
		FaceStructure:  base.FaceStructure + delta.FaceStructure/n,
		RuleOfFifths:   base.RuleOfFifths + delta.RuleOfFifths/n,
		NasalOral:      base.NasalOral + delta.NasalOral/n,
		VerticalThirds: base.VerticalThirds + delta.VerticalThirds/n,
		Symmetry:       base.Symmetry + delta.Symmetry/n,
	}, nil
}
