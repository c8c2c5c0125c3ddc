package scoring

import (
	"fmt"
	"maps"
	"math"

	"github.com/kozaktomas/faceratio/internal/geometry"
)

// ScoreSet is the scoring result for one stabilized ratio set.
type ScoreSet struct {
	Individual map[geometry.Key]float64 `json:"individual"`
	Total      float64                  `json:"total"`
}

// Engine scores and classifies ratio sets. It is immutable after creation and
// safe for concurrent use.
type Engine struct {
	cfg   Config
	rules []Rule
}

// NewEngine validates cfg and returns an engine using the default
// classification rules.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	cfg.Targets = maps.Clone(cfg.Targets)
	cfg.Weights = maps.Clone(cfg.Weights)
	return &Engine{cfg: cfg, rules: DefaultRules()}, nil
}

// Config returns the engine's parameters.
func (e *Engine) Config() Config {
	return e.cfg
}

// RatioScore scores one ratio against its target with linear decay:
// 100 at the target, falling to 0 at a relative deviation of 1/sensitivity
// and clamped there. Rounded to one decimal.
func RatioScore(actual, target, sensitivity float64) float64 {
	deviation := math.Abs(actual-target) / target
	return geometry.RoundTo(max(0, 100*(1-sensitivity*deviation)), 1)
}

// Score computes per-ratio scores and their weighted total.
func (e *Engine) Score(r geometry.RatioSet) ScoreSet {
	individual := make(map[geometry.Key]float64, len(geometry.Keys()))
	var total float64
	for _, key := range geometry.Keys() {
		s := RatioScore(r.Get(key), e.cfg.Targets[key], e.cfg.Sensitivity)
		individual[key] = s
		total += s * e.cfg.Weights[key]
	}
	return ScoreSet{
		Individual: individual,
		Total:      geometry.RoundTo(total, 1),
	}
}

// Evaluate scores and classifies r. A nil input is the normal "nothing
// captured yet" state: it yields Unknown, an empty score and false.
func (e *Engine) Evaluate(r *geometry.RatioSet) (ScoreSet, FaceShape, bool) {
	if r == nil {
		return ScoreSet{}, Unknown, false
	}
	return e.Score(*r), e.Classify(*r), true
}
