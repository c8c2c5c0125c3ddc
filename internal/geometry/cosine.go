package geometry

import "math"

// Cosine returns A·B / (|A| |B|) clamped to [-1, 1]. Vectors of different
// length, empty vectors and zero vectors have similarity 0.
func Cosine[T float32 | float64](a, b []T) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return max(-1, min(1, dot/(math.Sqrt(na)*math.Sqrt(nb))))
}
