package scoring

import (
	"math"

	"github.com/kozaktomas/faceratio/internal/geometry"
)

var displayNames = map[geometry.Key]string{
	geometry.FaceStructure:  "Face Structure",
	geometry.RuleOfFifths:   "Rule of Fifths",
	geometry.NasalOral:      "Nasal-Oral",
	geometry.VerticalThirds: "Vertical Thirds",
	geometry.Symmetry:       "Symmetry",
}

// DisplayName returns the human-readable name of a ratio key.
func DisplayName(key geometry.Key) string {
	if name, ok := displayNames[key]; ok {
		return name
	}
	return string(key)
}

// Comparison describes how far one ratio is from its target.
type Comparison struct {
	Key              geometry.Key `json:"key"`
	Name             string       `json:"name"`
	Actual           float64      `json:"actual"`
	Ideal            float64      `json:"ideal"`
	Deviation        float64      `json:"deviation"`
	DeviationPercent float64      `json:"deviationPercent"`
}

// Compare lists each ratio against its target in canonical order.
func (e *Engine) Compare(r geometry.RatioSet) []Comparison {
	out := make([]Comparison, 0, len(geometry.Keys()))
	for _, key := range geometry.Keys() {
		actual := r.Get(key)
		ideal := e.cfg.Targets[key]
		dev := math.Abs(actual - ideal)
		out = append(out, Comparison{
			Key:              key,
			Name:             DisplayName(key),
			Actual:           actual,
			Ideal:            ideal,
			Deviation:        geometry.RoundTo(dev, 3),
			DeviationPercent: geometry.RoundTo(dev/ideal*100, 1),
		})
	}
	return out
}
