package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Backend names accepted by STORE_BACKEND, STATS_BACKEND and VECTOR_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
	BackendPinecone = "pinecone"
	BackendPgvector = "pgvector"
	BackendHNSW     = "hnsw"
	BackendMemory   = "memory"
)

// IndexPersister is implemented by reference indexes that keep their graph in
// memory and can persist it to disk.
type IndexPersister interface {
	// SaveIndex saves the current index to disk (if path configured)
	SaveIndex() error
}

var (
	providerMu       sync.RWMutex
	scanWriters      = map[string]func() ScanWriter{}
	statsRecorders   = map[string]func() StatsRecorder{}
	referenceWriters = map[string]func() ReferenceWriter{}
	indexPersisters  []IndexPersister
)

// RegisterScanWriter registers a scan store constructor under a backend name.
// Storage packages call this after connecting to avoid import cycles.
func RegisterScanWriter(backend string, writer func() ScanWriter) {
	providerMu.Lock()
	defer providerMu.Unlock()
	scanWriters[backend] = writer
}

// RegisterStatsRecorder registers a statistics backend constructor.
func RegisterStatsRecorder(backend string, recorder func() StatsRecorder) {
	providerMu.Lock()
	defer providerMu.Unlock()
	statsRecorders[backend] = recorder
}

// RegisterReferenceWriter registers a reference index constructor.
func RegisterReferenceWriter(backend string, writer func() ReferenceWriter) {
	providerMu.Lock()
	defer providerMu.Unlock()
	referenceWriters[backend] = writer
}

// RegisterIndexPersister registers an index to be saved on shutdown.
func RegisterIndexPersister(p IndexPersister) {
	providerMu.Lock()
	defer providerMu.Unlock()
	indexPersisters = append(indexPersisters, p)
}

// IndexPersisters returns every registered persister.
func IndexPersisters() []IndexPersister {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return append([]IndexPersister(nil), indexPersisters...)
}

// GetScanWriter returns the scan store registered for backend
func GetScanWriter(ctx context.Context, backend string) (ScanWriter, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	fn, ok := scanWriters[backend]
	if !ok || fn == nil {
		return nil, fmt.Errorf("scan store backend %q not initialized (registered: %v)", backend, registered(scanWriters))
	}
	return fn(), nil
}

// GetScanReader returns the scan store registered for backend as a reader
func GetScanReader(ctx context.Context, backend string) (ScanReader, error) {
	return GetScanWriter(ctx, backend)
}

// GetStatsRecorder returns the statistics backend registered for backend
func GetStatsRecorder(ctx context.Context, backend string) (StatsRecorder, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	fn, ok := statsRecorders[backend]
	if !ok || fn == nil {
		return nil, fmt.Errorf("stats backend %q not initialized (registered: %v)", backend, registered(statsRecorders))
	}
	return fn(), nil
}

// GetReferenceWriter returns the reference index registered for backend
func GetReferenceWriter(ctx context.Context, backend string) (ReferenceWriter, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	fn, ok := referenceWriters[backend]
	if !ok || fn == nil {
		return nil, fmt.Errorf("vector backend %q not initialized (registered: %v)", backend, registered(referenceWriters))
	}
	return fn(), nil
}

// GetReferenceIndex returns the reference index registered for backend as a read-only index
func GetReferenceIndex(ctx context.Context, backend string) (ReferenceIndex, error) {
	return GetReferenceWriter(ctx, backend)
}

// ResetProviders clears every registration. Used by tests.
func ResetProviders() {
	providerMu.Lock()
	defer providerMu.Unlock()
	scanWriters = map[string]func() ScanWriter{}
	statsRecorders = map[string]func() StatsRecorder{}
	referenceWriters = map[string]func() ReferenceWriter{}
	indexPersisters = nil
}

func registered[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
