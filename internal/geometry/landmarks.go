// Package geometry reduces facial landmarks to dimensionless ratios and
// stabilizes those ratios across a capture window.
package geometry

// Point is a normalized image-space landmark coordinate.
// Z is carried for completeness but ignored by every planar ratio.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Landmark names one of the twelve anatomical points the reducer consumes.
type Landmark int

// Landmarks consumed by Reduce.
const (
	LeftEyeOuter Landmark = iota
	LeftEyeInner
	RightEyeInner
	RightEyeOuter
	NoseTip
	NoseBottom
	NoseLeft
	NoseRight
	MouthLeft
	MouthRight
	Chin
	ForeheadTop
	LeftCheekbone
	RightCheekbone

	landmarkCount
)

var landmarkNames = [landmarkCount]string{
	LeftEyeOuter:   "leftEyeOuter",
	LeftEyeInner:   "leftEyeInner",
	RightEyeInner:  "rightEyeInner",
	RightEyeOuter:  "rightEyeOuter",
	NoseTip:        "noseTip",
	NoseBottom:     "noseBottom",
	NoseLeft:       "noseLeft",
	NoseRight:      "noseRight",
	MouthLeft:      "mouthLeft",
	MouthRight:     "mouthRight",
	Chin:           "chin",
	ForeheadTop:    "foreheadTop",
	LeftCheekbone:  "leftCheekbone",
	RightCheekbone: "rightCheekbone",
}

// String returns the camelCase name used on the wire.
func (l Landmark) String() string {
	if l < 0 || l >= landmarkCount {
		return "unknown"
	}
	return landmarkNames[l]
}

// AllLandmarks returns every landmark the reducer requires, in declaration order.
func AllLandmarks() []Landmark {
	out := make([]Landmark, landmarkCount)
	for i := range out {
		out[i] = Landmark(i)
	}
	return out
}

// ParseLandmark resolves a wire name back to a Landmark.
func ParseLandmark(name string) (Landmark, bool) {
	for i, n := range landmarkNames {
		if n == name {
			return Landmark(i), true
		}
	}
	return 0, false
}

// MeshIndices maps each landmark to its index in the 468-point face mesh.
var MeshIndices = [landmarkCount]int{
	LeftEyeOuter:   33,
	LeftEyeInner:   133,
	RightEyeInner:  362,
	RightEyeOuter:  263,
	NoseTip:        1,
	NoseBottom:     2,
	NoseLeft:       129,
	NoseRight:      358,
	MouthLeft:      61,
	MouthRight:     291,
	Chin:           152,
	ForeheadTop:    10,
	LeftCheekbone:  234,
	RightCheekbone: 454,
}

// LandmarkSet holds the named points detected in one frame.
// A missing entry means the detector did not report that point.
type LandmarkSet map[Landmark]Point

// Has reports whether every landmark needed by Reduce is present.
func (s LandmarkSet) Has() bool {
	for i := range landmarkCount {
		if _, ok := s[i]; !ok {
			return false
		}
	}
	return true
}

// FromNamed builds a LandmarkSet from wire names, ignoring unknown keys.
func FromNamed(named map[string]Point) LandmarkSet {
	set := make(LandmarkSet, len(named))
	for name, p := range named {
		if l, ok := ParseLandmark(name); ok {
			set[l] = p
		}
	}
	return set
}

// FromMesh extracts the named landmarks from a full face mesh.
// Returns false when the mesh is empty or too short to contain every index.
func FromMesh(mesh []Point) (LandmarkSet, bool) {
	if len(mesh) == 0 {
		return nil, false
	}
	set := make(LandmarkSet, landmarkCount)
	for l, idx := range MeshIndices {
		if idx >= len(mesh) {
			return nil, false
		}
		set[Landmark(l)] = mesh[idx]
	}
	return set, true
}
