package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/faceratio/internal/geometry"
)

// HNSWIndexMetadata is written next to a saved graph so the reference
// metadata survives a restart.
type HNSWIndexMetadata struct {
	References []ReferenceVector `json:"references"`
	BuildTime  time.Time         `json:"build_time"`
	Version    int               `json:"version"`
}

const hnswMetadataVersion = 1

// HNSWIndex is an in-memory reference index over a cosine HNSW graph.
// It implements ReferenceWriter.
type HNSWIndex struct {
	graph *hnsw.Graph[string]
	refs  map[string]ReferenceVector
	mu    sync.RWMutex
	path  string // Path to save/load index
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		refs: make(map[string]ReferenceVector),
	}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance
	return g
}

// rebuild recreates the graph from h.refs. Caller holds the write lock.
// Nodes are added in ID order so builds are reproducible.
func (h *HNSWIndex) rebuild() {
	if len(h.refs) == 0 {
		h.graph = nil
		return
	}
	ids := make([]string, 0, len(h.refs))
	for id := range h.refs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	g := newGraph()
	for _, id := range ids {
		g.Add(hnsw.MakeNode(id, hnsw.Vector(h.refs[id].Values)))
	}
	h.graph = g
}

// Build replaces the index contents with refs.
func (h *HNSWIndex) Build(refs []ReferenceVector) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.refs = make(map[string]ReferenceVector, len(refs))
	for _, r := range refs {
		if len(r.Values) != ReferenceDim {
			return fmt.Errorf("reference %s has %d dimensions, want %d", r.ID, len(r.Values), ReferenceDim)
		}
		h.refs[r.ID] = r
	}
	h.rebuild()
	return nil
}

// Upsert inserts or replaces references and rebuilds the graph.
func (h *HNSWIndex) Upsert(ctx context.Context, refs []ReferenceVector) error {
	for _, r := range refs {
		if len(r.Values) != ReferenceDim {
			return fmt.Errorf("reference %s has %d dimensions, want %d", r.ID, len(r.Values), ReferenceDim)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range refs {
		h.refs[r.ID] = r
	}
	h.rebuild()
	return nil
}

// Query returns the topK nearest references by cosine similarity.
func (h *HNSWIndex) Query(ctx context.Context, vector []float32, topK int) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vector) != ReferenceDim {
		return nil, fmt.Errorf("query has %d dimensions, want %d", len(vector), ReferenceDim)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil || h.graph.Len() == 0 || topK <= 0 {
		return []Neighbor{}, nil
	}

	nodes := h.graph.Search(hnsw.Vector(vector), topK)
	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		ref, ok := h.refs[n.Key]
		if !ok {
			continue
		}
		// Compute actual cosine similarity rather than trusting graph order.
		out = append(out, Neighbor{
			ID:       n.Key,
			Score:    max(0, geometry.Cosine(vector, ref.Values)),
			Metadata: ref.Metadata,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// Count returns the number of indexed references.
func (h *HNSWIndex) Count(ctx context.Context) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.refs), nil
}

// SetPath sets the path for saving the index.
func (h *HNSWIndex) SetPath(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.path = path
}

// SaveIndex persists the graph and its metadata sidecar to the configured path.
func (h *HNSWIndex) SaveIndex() error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.path == "" {
		return nil // No path set
	}

	if h.graph == nil {
		// Remove existing files if index is empty
		os.Remove(h.path)
		os.Remove(h.path + ".meta")
		return nil
	}

	f, err := os.Create(h.path)
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	if err := h.graph.Export(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to export HNSW graph: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close HNSW index file: %w", err)
	}

	meta := HNSWIndexMetadata{
		References: make([]ReferenceVector, 0, len(h.refs)),
		BuildTime:  time.Now(),
		Version:    hnswMetadataVersion,
	}
	for _, r := range h.refs {
		meta.References = append(meta.References, r)
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(h.path+".meta", data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// Load restores an index saved by SaveIndex. When the saved graph does not
// agree with the metadata sidecar the graph is rebuilt from the metadata.
func (h *HNSWIndex) Load(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.path = path

	data, err := os.ReadFile(path + ".meta")
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("index file not found: %s", path)
	}
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	var meta HNSWIndexMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("failed to parse metadata: %w", err)
	}
	if meta.Version != hnswMetadataVersion {
		return fmt.Errorf("unsupported index version %d", meta.Version)
	}

	h.refs = make(map[string]ReferenceVector, len(meta.References))
	for _, r := range meta.References {
		h.refs[r.ID] = r
	}

	saved, err := hnsw.LoadSavedGraph[string](path)
	if err != nil || saved.Graph == nil || saved.Len() != len(h.refs) {
		h.rebuild()
		return nil
	}
	h.graph = saved.Graph
	return nil
}
