package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/faceratio/internal/config"
	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/database/mock"
	"github.com/kozaktomas/faceratio/internal/database/mongodb"
	"github.com/kozaktomas/faceratio/internal/database/postgres"
	"github.com/kozaktomas/faceratio/internal/database/redisstats"
	"github.com/kozaktomas/faceratio/internal/logger"
	"github.com/kozaktomas/faceratio/internal/pinecone"
	"github.com/kozaktomas/faceratio/internal/references"
	"github.com/kozaktomas/faceratio/internal/scoring"
)

// backends holds the resolved stores for one command run.
type backends struct {
	scans   database.ScanWriter
	stats   database.StatsRecorder
	refs    database.ReferenceWriter
	closers []func()
}

// Close releases every connection opened by openBackends.
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// backendNeeds describes which concerns a command uses.
type backendNeeds struct {
	scans, stats, refs bool
}

var allBackends = backendNeeds{scans: true, stats: true, refs: true}

func uses(name string, selected ...string) bool {
	for _, s := range selected {
		if s == name {
			return true
		}
	}
	return false
}

// openBackends connects the backends selected in cfg, registers them with the
// database providers and returns the ones the caller needs.
func openBackends(ctx context.Context, cfg *config.Config, need backendNeeds) (*backends, error) {
	sel := cfg.Backends
	b := &backends{}

	var store, stats, vector string
	if need.scans {
		store = sel.Store
	}
	if need.stats {
		stats = sel.Stats
	}
	if need.refs {
		vector = sel.Vector
	}

	if uses(database.BackendPostgres, store, stats) || vector == database.BackendPgvector {
		if err := registerPostgres(ctx, cfg, b); err != nil {
			b.Close()
			return nil, err
		}
	}
	if uses(database.BackendMongo, store, stats) {
		if err := registerMongo(ctx, cfg, b); err != nil {
			b.Close()
			return nil, err
		}
	}
	if stats == database.BackendRedis {
		rec, err := redisstats.Connect(ctx, &cfg.Redis)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		b.closers = append(b.closers, func() { rec.Close() })
		database.RegisterStatsRecorder(database.BackendRedis, func() database.StatsRecorder { return rec })
	}
	if uses(database.BackendMemory, store, stats) {
		registerMemory()
	}
	switch vector {
	case database.BackendPinecone:
		client, err := pinecone.New(cfg.Pinecone.Host, cfg.Pinecone.APIKey)
		if err != nil {
			b.Close()
			return nil, err
		}
		database.RegisterReferenceWriter(database.BackendPinecone, func() database.ReferenceWriter { return client })
	case database.BackendHNSW:
		idx, err := openHNSWIndex(cfg.Database.HNSWIndexPath)
		if err != nil {
			b.Close()
			return nil, err
		}
		database.RegisterReferenceWriter(database.BackendHNSW, func() database.ReferenceWriter { return idx })
		database.RegisterIndexPersister(idx)
	}

	var err error
	if store != "" {
		if b.scans, err = database.GetScanWriter(ctx, store); err != nil {
			b.Close()
			return nil, err
		}
	}
	if stats != "" {
		if b.stats, err = database.GetStatsRecorder(ctx, stats); err != nil {
			b.Close()
			return nil, err
		}
	}
	if vector != "" {
		if b.refs, err = database.GetReferenceWriter(ctx, vector); err != nil {
			b.Close()
			return nil, err
		}
	}

	logger.Info("backends ready",
		logger.LoggerOptions{Key: "store", Data: store},
		logger.LoggerOptions{Key: "stats", Data: stats},
		logger.LoggerOptions{Key: "vector", Data: vector},
	)
	return b, nil
}

func registerPostgres(ctx context.Context, cfg *config.Config, b *backends) error {
	pool, err := postgres.Initialize(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	b.closers = append(b.closers, func() { pool.Close() })
	return nil
}

func registerMongo(ctx context.Context, cfg *config.Config, b *backends) error {
	store, err := mongodb.Connect(ctx, &cfg.Mongo)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	b.closers = append(b.closers, func() { store.Close(context.Background()) })

	database.RegisterScanWriter(database.BackendMongo, func() database.ScanWriter { return store.Scans() })
	database.RegisterStatsRecorder(database.BackendMongo, func() database.StatsRecorder { return store.Stats() })
	return nil
}

// registerMemory installs process-local stores. Data is lost on restart.
func registerMemory() {
	scans := mock.NewMockScanStore()
	stats := mock.NewMockStatsRecorder(scoring.ShapeNames(), scoring.ScoreBuckets(), scoring.ScoreBucket)
	database.RegisterScanWriter(database.BackendMemory, func() database.ScanWriter { return scans })
	database.RegisterStatsRecorder(database.BackendMemory, func() database.StatsRecorder { return stats })
	logger.Warning("using in-memory storage, scan history and statistics will not survive a restart")
}

// openHNSWIndex loads a persisted graph when path is set, otherwise (or when
// loading fails) it builds the graph from the built-in catalog.
func openHNSWIndex(path string) (*database.HNSWIndex, error) {
	idx := database.NewHNSWIndex()
	if path != "" {
		if err := idx.Load(path); err == nil {
			if n, _ := idx.Count(context.Background()); n > 0 {
				logger.Info("reference HNSW index loaded",
					logger.LoggerOptions{Key: "path", Data: path},
					logger.LoggerOptions{Key: "references", Data: n})
				return idx, nil
			}
		} else {
			logger.Warning("could not load reference HNSW index, rebuilding from catalog",
				logger.LoggerOptions{Key: "error", Data: err})
		}
	}

	refs, err := references.Catalog()
	if err != nil {
		return nil, err
	}
	if err := idx.Build(refs); err != nil {
		return nil, fmt.Errorf("building reference HNSW index: %w", err)
	}
	idx.SetPath(path)
	logger.Info("reference HNSW index built from catalog", logger.LoggerOptions{Key: "references", Data: len(refs)})
	return idx, nil
}

// saveIndexes persists every in-memory index, typically during shutdown.
func saveIndexes() {
	for _, p := range database.IndexPersisters() {
		if err := p.SaveIndex(); err != nil {
			logger.Warning("failed to save reference index", logger.LoggerOptions{Key: "error", Data: err})
		}
	}
}
