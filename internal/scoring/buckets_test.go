package scoring

import (
	"math"
	"testing"

	"github.com/kozaktomas/faceratio/internal/geometry"
)

func TestScoreBucket(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{0, "0-20"},
		{20, "0-20"},
		{20.1, "21-40"},
		{40, "21-40"},
		{55.5, "41-60"},
		{60, "41-60"},
		{80, "61-80"},
		{80.1, "81-100"},
		{100, "81-100"},
	}

	for _, tt := range tests {
		if got := ScoreBucket(tt.score); got != tt.expected {
			t.Errorf("ScoreBucket(%v) = %q, want %q", tt.score, got, tt.expected)
		}
	}
}

func TestScoreBuckets(t *testing.T) {
	got := ScoreBuckets()
	want := []string{"0-20", "21-40", "41-60", "61-80", "81-100"}
	if len(got) != len(want) {
		t.Fatalf("ScoreBuckets() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ScoreBuckets()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEngine_Compare(t *testing.T) {
	e := newTestEngine(t)
	cmp := e.Compare(geometry.RatioSet{
		FaceStructure:  1.5,
		RuleOfFifths:   1.1,
		NasalOral:      Phi,
		VerticalThirds: 0.8,
		Symmetry:       0.95,
	})

	if len(cmp) != 5 {
		t.Fatalf("len(Compare()) = %d, want 5", len(cmp))
	}
	if cmp[0].Key != geometry.FaceStructure || cmp[0].Name != "Face Structure" {
		t.Errorf("first comparison = %+v", cmp[0])
	}
	if cmp[0].Deviation != 0.118 {
		t.Errorf("faceStructure deviation = %v, want 0.118", cmp[0].Deviation)
	}
	if math.Abs(cmp[0].DeviationPercent-7.3) > 1e-9 {
		t.Errorf("faceStructure deviation percent = %v, want 7.3", cmp[0].DeviationPercent)
	}
	if cmp[3].Name != "Vertical Thirds" || cmp[3].DeviationPercent != 20 {
		t.Errorf("verticalThirds comparison = %+v", cmp[3])
	}
	if cmp[2].Deviation != 0 {
		t.Errorf("nasalOral deviation = %v, want 0", cmp[2].Deviation)
	}
}
