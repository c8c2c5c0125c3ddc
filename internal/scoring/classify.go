package scoring

import "github.com/kozaktomas/faceratio/internal/geometry"

// FaceShape is a face-shape category.
type FaceShape string

const (
	Oval    FaceShape = "Oval"
	Square  FaceShape = "Square"
	Round   FaceShape = "Round"
	Oblong  FaceShape = "Oblong"
	Heart   FaceShape = "Heart"
	Diamond FaceShape = "Diamond"

	// Unknown is reported when there is nothing to classify.
	Unknown FaceShape = "Unknown"
)

// Shapes returns every classifiable shape, excluding Unknown.
func Shapes() []FaceShape {
	return []FaceShape{Oval, Square, Round, Oblong, Heart, Diamond}
}

// ShapeNames returns Shapes as plain strings, for stores keyed by name.
func ShapeNames() []string {
	shapes := Shapes()
	out := make([]string, len(shapes))
	for i, s := range shapes {
		out[i] = string(s)
	}
	return out
}

// ParseFaceShape validates a shape name. Unknown is not accepted.
func ParseFaceShape(s string) (FaceShape, bool) {
	for _, shape := range Shapes() {
		if string(shape) == s {
			return shape, true
		}
	}
	return Unknown, false
}

// Rule pairs a predicate with the shape it assigns.
type Rule struct {
	Shape FaceShape
	Match func(geometry.RatioSet) bool
}

// DefaultRules returns the classification rules in evaluation order.
// The first match wins. The ranges overlap and leave gaps (faceStructure in
// (1.68, 1.75] only reaches the verticalThirds rule), so order matters.
func DefaultRules() []Rule {
	return []Rule{
		{Oval, func(r geometry.RatioSet) bool { return r.FaceStructure >= 1.55 && r.FaceStructure <= 1.68 }},
		{Round, func(r geometry.RatioSet) bool { return r.FaceStructure < 1.35 }},
		{Square, func(r geometry.RatioSet) bool { return r.FaceStructure < 1.55 }},
		{Oblong, func(r geometry.RatioSet) bool { return r.FaceStructure > 1.75 }},
		{Heart, func(r geometry.RatioSet) bool { return r.VerticalThirds > 1.15 }},
		{Diamond, func(geometry.RatioSet) bool { return true }},
	}
}

// Classify returns the shape of the first rule that matches r.
func (e *Engine) Classify(r geometry.RatioSet) FaceShape {
	return classify(e.rules, r)
}

func classify(rules []Rule, r geometry.RatioSet) FaceShape {
	for _, rule := range rules {
		if rule.Match(r) {
			return rule.Shape
		}
	}
	return Diamond
}
