// Package mock provides in-memory implementations of database interfaces for
// testing and for running the service without external stores.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/faceratio/internal/database"
)

// MockScanStore is an in-memory implementation of database.ScanWriter
type MockScanStore struct {
	mu    sync.RWMutex
	scans map[string]*database.StoredScan
	now   func() time.Time

	// Error injection
	SaveError   error
	GetError    error
	ListError   error
	CountError  error
	DeleteError error
}

// NewMockScanStore creates an empty scan store
func NewMockScanStore() *MockScanStore {
	return &MockScanStore{
		scans: make(map[string]*database.StoredScan),
		now:   time.Now,
	}
}

// SetClock overrides the store's notion of the current time
func (m *MockScanStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// AddScan inserts a scan as-is
func (m *MockScanStore) AddScan(scan database.StoredScan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans[scan.ID] = &scan
}

// Len returns the number of stored scans including expired ones
func (m *MockScanStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.scans)
}

// SaveScan stores a scan, filling in ID and timestamps
func (m *MockScanStore) SaveScan(ctx context.Context, scan *database.StoredScan) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if scan.ID == "" {
		scan.ID = uuid.New().String()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = m.now()
	}
	if scan.ExpireAt.IsZero() {
		scan.ExpireAt = scan.CreatedAt.Add(database.ScanTTL)
	}
	stored := *scan
	m.scans[scan.ID] = &stored
	return nil
}

// GetScan retrieves an unexpired scan
func (m *MockScanStore) GetScan(ctx context.Context, scanID string) (*database.StoredScan, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.scans[scanID]
	if !ok || !s.ExpireAt.After(m.now()) {
		return nil, database.ErrNotFound
	}
	out := *s
	return &out, nil
}

func (m *MockScanStore) deviceScans(deviceID string) []database.StoredScan {
	now := m.now()
	var out []database.StoredScan
	for _, s := range m.scans {
		if s.DeviceID == deviceID && s.ExpireAt.After(now) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ListScansByDevice returns a device's scans newest first
func (m *MockScanStore) ListScansByDevice(ctx context.Context, deviceID string, limit, offset int) ([]database.StoredScan, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.deviceScans(deviceID)
	offset = max(offset, 0)
	if offset >= len(all) {
		return []database.StoredScan{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

// CountScansByDevice returns the number of a device's unexpired scans
func (m *MockScanStore) CountScansByDevice(ctx context.Context, deviceID string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.deviceScans(deviceID)), nil
}

// DeleteScan removes a scan owned by deviceID
func (m *MockScanStore) DeleteScan(ctx context.Context, scanID, deviceID string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.scans[scanID]
	if !ok || s.DeviceID != deviceID {
		return database.ErrNotFound
	}
	delete(m.scans, scanID)
	return nil
}

// DeleteExpiredScans removes scans that expired before now
func (m *MockScanStore) DeleteExpiredScans(ctx context.Context, now time.Time) (int64, error) {
	if m.DeleteError != nil {
		return 0, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, s := range m.scans {
		if !s.ExpireAt.After(now) {
			delete(m.scans, id)
			n++
		}
	}
	return n, nil
}

// MockStatsRecorder is an in-memory implementation of database.StatsRecorder.
// The compound increment runs under a single lock, mirroring the atomic
// update the real stores perform.
type MockStatsRecorder struct {
	mu      sync.Mutex
	stats   *database.GlobalStats
	shapes  []string
	buckets []string
	bucket  func(float64) string

	// Error injection
	RecordError error
	GetError    error
}

// NewMockStatsRecorder creates a recorder that pre-populates the given shape
// and bucket keys and maps scores with bucketFn.
func NewMockStatsRecorder(shapes, buckets []string, bucketFn func(float64) string) *MockStatsRecorder {
	return &MockStatsRecorder{shapes: shapes, buckets: buckets, bucket: bucketFn}
}

func (m *MockStatsRecorder) ensure() {
	if m.stats == nil {
		m.stats = database.NewGlobalStats(m.shapes, m.buckets)
	}
}

func (m *MockStatsRecorder) snapshot() *database.GlobalStats {
	out := *m.stats
	out.ShapeDistribution = make(map[string]int64, len(m.stats.ShapeDistribution))
	for k, v := range m.stats.ShapeDistribution {
		out.ShapeDistribution[k] = v
	}
	out.ScoreDistribution = make(map[string]int64, len(m.stats.ScoreDistribution))
	for k, v := range m.stats.ScoreDistribution {
		out.ScoreDistribution[k] = v
	}
	return &out
}

// GetStats returns a copy of the singleton, creating it if absent
func (m *MockStatsRecorder) GetStats(ctx context.Context) (*database.GlobalStats, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure()
	return m.snapshot(), nil
}

// RecordScan applies the compound increment and refreshes the average
func (m *MockStatsRecorder) RecordScan(ctx context.Context, totalScore float64, faceShape string) (*database.GlobalStats, error) {
	if m.RecordError != nil {
		return nil, m.RecordError
	}
	m.mu.Lock()
	m.ensure()
	m.stats.TotalScans++
	m.stats.ScoreSum += totalScore
	m.stats.ShapeDistribution[faceShape]++
	m.stats.ScoreDistribution[m.bucket(totalScore)]++
	m.stats.LastUpdated = time.Now()
	m.mu.Unlock()

	// The average is a derived field written after the increment.
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stats.TotalScans > 0 {
		m.stats.AverageScore = m.stats.ScoreSum / float64(m.stats.TotalScans)
	}
	return m.snapshot(), nil
}

// MockReferenceIndex is a database.ReferenceWriter returning canned neighbors
type MockReferenceIndex struct {
	mu        sync.RWMutex
	neighbors []database.Neighbor
	upserted  []database.ReferenceVector
	queries   int

	// Delay blocks each Query until it elapses or the context ends
	Delay time.Duration

	// Error injection
	QueryError  error
	UpsertError error
}

// NewMockReferenceIndex creates an index that answers every query with neighbors
func NewMockReferenceIndex(neighbors ...database.Neighbor) *MockReferenceIndex {
	return &MockReferenceIndex{neighbors: neighbors}
}

// Query returns up to topK canned neighbors in their configured order
func (m *MockReferenceIndex) Query(ctx context.Context, vector []float32, topK int) ([]database.Neighbor, error) {
	m.mu.Lock()
	m.queries++
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.QueryError != nil {
		return nil, m.QueryError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	n := min(topK, len(m.neighbors))
	out := make([]database.Neighbor, n)
	copy(out, m.neighbors[:n])
	return out, nil
}

// Queries returns how many times Query was called
func (m *MockReferenceIndex) Queries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queries
}

// Upsert records the references
func (m *MockReferenceIndex) Upsert(ctx context.Context, refs []database.ReferenceVector) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, refs...)
	return nil
}

// Upserted returns every upserted reference in call order
func (m *MockReferenceIndex) Upserted() []database.ReferenceVector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.ReferenceVector(nil), m.upserted...)
}

// Count returns the number of canned neighbors plus upserted references
func (m *MockReferenceIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.neighbors) + len(m.upserted), nil
}
