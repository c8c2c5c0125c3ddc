// Package scoring turns stabilized facial ratios into per-ratio scores, a
// weighted total and a face-shape label.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/kozaktomas/faceratio/internal/geometry"
)

// Phi is the golden ratio.
const Phi = 1.618033988749895

// DefaultSensitivity is the linear decay factor. A deviation of 1/S of the
// target already scores zero.
const DefaultSensitivity = 3.0

// weightTolerance is how far the weight sum may drift from 1.0.
const weightTolerance = 1e-9

// Config holds the scoring parameters. It is passed to NewEngine explicitly so
// tests and alternative deployments can tune it.
type Config struct {
	Targets     map[geometry.Key]float64
	Weights     map[geometry.Key]float64
	Sensitivity float64
}

// DefaultConfig returns the golden-ratio targets and the standard weights.
func DefaultConfig() Config {
	return Config{
		Targets: map[geometry.Key]float64{
			geometry.FaceStructure:  Phi,
			geometry.RuleOfFifths:   1.0,
			geometry.NasalOral:      Phi,
			geometry.VerticalThirds: 1.0,
			geometry.Symmetry:       1.0,
		},
		Weights: map[geometry.Key]float64{
			geometry.FaceStructure:  0.25,
			geometry.RuleOfFifths:   0.20,
			geometry.NasalOral:      0.20,
			geometry.VerticalThirds: 0.15,
			geometry.Symmetry:       0.20,
		},
		Sensitivity: DefaultSensitivity,
	}
}

// Validate checks that every ratio has a positive target and a non-negative
// weight, that the weights sum to one, and that the sensitivity is positive.
func (c Config) Validate() error {
	var errs []error
	var sum float64
	for _, key := range geometry.Keys() {
		target, ok := c.Targets[key]
		if !ok || !(target > 0) {
			errs = append(errs, fmt.Errorf("target for %s must be positive", key))
		}
		w, ok := c.Weights[key]
		if !ok || w < 0 {
			errs = append(errs, fmt.Errorf("weight for %s must be non-negative", key))
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		errs = append(errs, fmt.Errorf("weights sum to %g, want 1", sum))
	}
	if !(c.Sensitivity > 0) {
		errs = append(errs, errors.New("sensitivity must be positive"))
	}
	return errors.Join(errs...)
}
