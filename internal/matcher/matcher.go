// Package matcher embeds ratio sets as vectors and ranks the closest
// references returned by a similarity index.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/geometry"
)

// DefaultTopK is the number of matches requested when the caller passes k <= 0.
const DefaultTopK = 3

// DefaultTimeout bounds a single outbound query.
const DefaultTimeout = 5 * time.Second

// Vector is an embedding in canonical ratio order.
type Vector [5]float64

// Embed builds the vector for r. No scaling is applied.
func Embed(r geometry.RatioSet) Vector {
	return Vector(r.Values())
}

// Float32 converts v for the storage layer.
func (v Vector) Float32() []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Slice returns v as a slice.
func (v Vector) Slice() []float64 {
	return v[:]
}

// CosineSimilarity returns A·B / (|A| |B|). It returns 0 for vectors of
// different length or zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	return geometry.Cosine(a, b)
}

// MatchResult is one ranked reference.
type MatchResult struct {
	Rank        int                        `json:"rank"`
	ReferenceID string                     `json:"id"`
	Similarity  int                        `json:"similarity"`
	Score       float64                    `json:"score"`
	Metadata    database.ReferenceMetadata `json:"metadata"`
}

// Matcher queries a reference index with a per-call timeout.
type Matcher struct {
	index   database.ReferenceIndex
	timeout time.Duration
}

// New creates a matcher. A non-positive timeout uses DefaultTimeout.
func New(index database.ReferenceIndex, timeout time.Duration) *Matcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Matcher{index: index, timeout: timeout}
}

// Match returns up to k references closest to v, ranked in the order the
// index returned them. An empty reference set yields an empty slice.
func (m *Matcher) Match(ctx context.Context, v Vector, k int) ([]MatchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	k = min(k, database.MaxTopK)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	neighbors, err := m.index.Query(ctx, v.Float32(), k)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("similarity query timed out after %s: %w", m.timeout, err)
		}
		return nil, fmt.Errorf("similarity query: %w", err)
	}

	results := make([]MatchResult, 0, len(neighbors))
	for i, n := range neighbors {
		results = append(results, MatchResult{
			Rank:        i + 1,
			ReferenceID: n.ID,
			Similarity:  int(math.Round(n.Score * 100)),
			Score:       n.Score,
			Metadata:    n.Metadata,
		})
	}
	return results, nil
}
