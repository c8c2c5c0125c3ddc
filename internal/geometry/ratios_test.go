package geometry

import (
	"math"
	"math/rand/v2"
	"testing"
)

// frontalFace returns a plausible, slightly asymmetric frontal face.
func frontalFace() LandmarkSet {
	return LandmarkSet{
		LeftEyeOuter:   {X: 0.30, Y: 0.40},
		LeftEyeInner:   {X: 0.42, Y: 0.40},
		RightEyeInner:  {X: 0.54, Y: 0.40},
		RightEyeOuter:  {X: 0.66, Y: 0.40},
		NoseTip:        {X: 0.48, Y: 0.55, Z: -0.08},
		NoseBottom:     {X: 0.48, Y: 0.58},
		NoseLeft:       {X: 0.44, Y: 0.56},
		NoseRight:      {X: 0.52, Y: 0.56},
		MouthLeft:      {X: 0.415, Y: 0.68},
		MouthRight:     {X: 0.545, Y: 0.68},
		Chin:           {X: 0.48, Y: 0.85},
		ForeheadTop:    {X: 0.48, Y: 0.20},
		LeftCheekbone:  {X: 0.28, Y: 0.50},
		RightCheekbone: {X: 0.69, Y: 0.50},
	}
}

func TestReduce_KnownFace(t *testing.T) {
	got, ok := Reduce(frontalFace())
	if !ok {
		t.Fatal("Reduce() returned false for a complete landmark set")
	}

	// faceStructure = 0.65 / 0.41, ruleOfFifths = 0.12 / 0.12,
	// nasalOral = 0.13 / 0.08, verticalThirds = 0.35 / 0.27,
	// symmetry = 0.20 / 0.21.
	want := RatioSet{
		FaceStructure:  1.585,
		RuleOfFifths:   1.0,
		NasalOral:      1.625,
		VerticalThirds: 1.296,
		Symmetry:       0.952,
	}
	for _, key := range Keys() {
		if math.Abs(got.Get(key)-want.Get(key)) > 1e-9 {
			t.Errorf("%s = %v, want %v", key, got.Get(key), want.Get(key))
		}
	}
}

func TestReduce_IgnoresDepth(t *testing.T) {
	flat := frontalFace()
	deep := frontalFace()
	for l, p := range deep {
		p.Z = float64(l) * 0.37
		deep[l] = p
	}

	a, _ := Reduce(flat)
	b, _ := Reduce(deep)
	if a != b {
		t.Errorf("Reduce() depends on z: %+v vs %+v", a, b)
	}
}

func TestReduce_MissingLandmark(t *testing.T) {
	for _, l := range AllLandmarks() {
		t.Run(l.String(), func(t *testing.T) {
			set := frontalFace()
			delete(set, l)
			if _, ok := Reduce(set); ok {
				t.Errorf("Reduce() succeeded without %s", l)
			}
		})
	}
}

func TestReduce_DegenerateGeometry(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(LandmarkSet)
	}{
		{
			name: "cheekbones coincide",
			mutate: func(s LandmarkSet) {
				s[RightCheekbone] = s[LeftCheekbone]
			},
		},
		{
			name: "nose width zero",
			mutate: func(s LandmarkSet) {
				s[NoseRight] = s[NoseLeft]
			},
		},
		{
			name: "cheekbones on center line",
			mutate: func(s LandmarkSet) {
				s[LeftCheekbone] = Point{X: 0.48, Y: 0.3}
				s[RightCheekbone] = Point{X: 0.48, Y: 0.7}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := frontalFace()
			tt.mutate(set)
			if r, ok := Reduce(set); ok {
				t.Errorf("Reduce() = %+v, want failure", r)
			}
		})
	}
}

func TestReduce_PositiveRatios(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	jitter := func(p Point) Point {
		return Point{
			X: p.X + (rng.Float64()-0.5)*0.02,
			Y: p.Y + (rng.Float64()-0.5)*0.02,
			Z: rng.Float64(),
		}
	}

	for i := range 500 {
		set := frontalFace()
		for l, p := range set {
			set[l] = jitter(p)
		}
		r, ok := Reduce(set)
		if !ok {
			continue
		}
		for _, key := range Keys() {
			if r.Get(key) <= 0 {
				t.Fatalf("iteration %d: %s = %v, want > 0", i, key, r.Get(key))
			}
		}
		if r.Symmetry > 1 {
			t.Fatalf("iteration %d: symmetry = %v, want <= 1", i, r.Symmetry)
		}
	}
}

func TestReduce_RoundsToThreeDecimals(t *testing.T) {
	r, ok := Reduce(frontalFace())
	if !ok {
		t.Fatal("Reduce() failed")
	}
	for _, key := range Keys() {
		v := r.Get(key)
		if RoundTo(v, 3) != v {
			t.Errorf("%s = %v is not rounded to 3 decimals", key, v)
		}
	}
}

func TestFromMesh(t *testing.T) {
	mesh := make([]Point, 468)
	for l, idx := range MeshIndices {
		mesh[idx] = Point{X: float64(l) / 100, Y: 0.5}
	}

	set, ok := FromMesh(mesh)
	if !ok {
		t.Fatal("FromMesh() returned false for a full mesh")
	}
	if !set.Has() {
		t.Fatal("FromMesh() result is missing landmarks")
	}
	if got := set[Chin].X; got != float64(Chin)/100 {
		t.Errorf("chin.x = %v, want %v", got, float64(Chin)/100)
	}

	if _, ok := FromMesh(mesh[:300]); ok {
		t.Error("FromMesh() accepted a truncated mesh")
	}
	if _, ok := FromMesh(nil); ok {
		t.Error("FromMesh() accepted an empty mesh")
	}
}

func TestFromNamed(t *testing.T) {
	named := map[string]Point{
		"chin":        {X: 0.5, Y: 0.9},
		"foreheadTop": {X: 0.5, Y: 0.1},
		"earlobe":     {X: 0.1, Y: 0.5},
	}
	set := FromNamed(named)
	if len(set) != 2 {
		t.Fatalf("FromNamed() kept %d points, want 2", len(set))
	}
	if set.Has() {
		t.Error("partial set reported as complete")
	}
}

func TestLandmarkString(t *testing.T) {
	for _, l := range AllLandmarks() {
		parsed, ok := ParseLandmark(l.String())
		if !ok || parsed != l {
			t.Errorf("ParseLandmark(%q) = %v, %v", l.String(), parsed, ok)
		}
	}
	if Landmark(99).String() != "unknown" {
		t.Error("out-of-range landmark should stringify as unknown")
	}
}
