package geometry

import "math"

// Key names one of the five facial ratios.
type Key string

// Ratio keys in canonical order.
const (
	FaceStructure  Key = "faceStructure"
	RuleOfFifths   Key = "ruleOfFifths"
	NasalOral      Key = "nasalOral"
	VerticalThirds Key = "verticalThirds"
	Symmetry       Key = "symmetry"
)

// Keys returns the ratio keys in canonical order. Vector construction,
// scoring and persistence all rely on this order.
func Keys() []Key {
	return []Key{FaceStructure, RuleOfFifths, NasalOral, VerticalThirds, Symmetry}
}

// ratioPrecision is the number of decimals every reduced ratio is rounded to.
const ratioPrecision = 3

// RatioSet holds the five ratios measured from one frame, or their mean
// across a stabilization window.
type RatioSet struct {
	FaceStructure  float64 `json:"faceStructure" bson:"faceStructure"`
	RuleOfFifths   float64 `json:"ruleOfFifths" bson:"ruleOfFifths"`
	NasalOral      float64 `json:"nasalOral" bson:"nasalOral"`
	VerticalThirds float64 `json:"verticalThirds" bson:"verticalThirds"`
	Symmetry       float64 `json:"symmetry" bson:"symmetry"`
}

// Get returns the ratio stored under key, or 0 for an unknown key.
func (r RatioSet) Get(key Key) float64 {
	switch key {
	case FaceStructure:
		return r.FaceStructure
	case RuleOfFifths:
		return r.RuleOfFifths
	case NasalOral:
		return r.NasalOral
	case VerticalThirds:
		return r.VerticalThirds
	case Symmetry:
		return r.Symmetry
	}
	return 0
}

// Values returns the ratios in canonical key order.
func (r RatioSet) Values() [5]float64 {
	return [5]float64{r.FaceStructure, r.RuleOfFifths, r.NasalOral, r.VerticalThirds, r.Symmetry}
}

// Valid reports whether every ratio is strictly positive and symmetry is at most 1.
func (r RatioSet) Valid() bool {
	for _, v := range r.Values() {
		if !(v > 0) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Symmetry <= 1
}

// distance2D is the planar Euclidean distance. Depth is ignored because the
// detector's z estimate is far noisier than x and y.
func distance2D(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// RoundTo rounds v to the given number of decimal places, half away from zero.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Reduce computes the five ratios for one frame.
// It returns false when a landmark is missing or the geometry is degenerate
// (a zero-length reference distance); callers treat that as "no face this frame".
func Reduce(set LandmarkSet) (RatioSet, bool) {
	if !set.Has() {
		return RatioSet{}, false
	}

	faceLength := distance2D(set[ForeheadTop], set[Chin])
	faceWidth := distance2D(set[LeftCheekbone], set[RightCheekbone])

	interEye := distance2D(set[LeftEyeInner], set[RightEyeInner])
	leftEye := distance2D(set[LeftEyeOuter], set[LeftEyeInner])
	rightEye := distance2D(set[RightEyeOuter], set[RightEyeInner])
	eyeWidth := (leftEye + rightEye) / 2

	mouthWidth := distance2D(set[MouthLeft], set[MouthRight])
	noseWidth := distance2D(set[NoseLeft], set[NoseRight])

	upperFace := distance2D(set[ForeheadTop], set[NoseTip])
	lowerFace := distance2D(set[NoseBottom], set[Chin])

	centerX := (set[NoseTip].X + set[Chin].X) / 2
	left := math.Abs(set[LeftCheekbone].X - centerX)
	right := math.Abs(set[RightCheekbone].X - centerX)

	for _, d := range []float64{faceWidth, eyeWidth, noseWidth, lowerFace, max(left, right)} {
		if d == 0 {
			return RatioSet{}, false
		}
	}

	r := RatioSet{
		FaceStructure:  RoundTo(faceLength/faceWidth, ratioPrecision),
		RuleOfFifths:   RoundTo(interEye/eyeWidth, ratioPrecision),
		NasalOral:      RoundTo(mouthWidth/noseWidth, ratioPrecision),
		VerticalThirds: RoundTo(upperFace/lowerFace, ratioPrecision),
		Symmetry:       RoundTo(min(left, right)/max(left, right), ratioPrecision),
	}
	if !r.Valid() {
		return RatioSet{}, false
	}
	return r, true
}
