package database

// HNSW parameters for the 5-dimensional reference vectors.
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size. The reference set is
	// small, so the pool covers it entirely.
	HNSWEfSearch = 64
)

// Reference set limits.
const (
	// ReferenceDim is the length of every reference vector.
	ReferenceDim = 5

	// MaxTopK caps a single similarity query.
	MaxTopK = 20
)
