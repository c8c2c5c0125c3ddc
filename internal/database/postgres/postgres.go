// Package postgres stores scans, global statistics and pgvector reference
// vectors in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/faceratio/internal/config"
	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/logger"
	_ "github.com/lib/pq"
)

// Pool defaults used when DatabaseConfig leaves a field at zero.
const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = time.Hour
	defaultConnMaxIdleTime = 10 * time.Minute
	defaultConnectTimeout  = 10 * time.Second
)

// Pool wraps the database handle shared by the repositories.
type Pool struct {
	db *sql.DB
}

// poolSettings resolves the pool limits from cfg.
type poolSettings struct {
	maxOpen, maxIdle int
	maxLifetime      time.Duration
	maxIdleTime      time.Duration
	connectTimeout   time.Duration
}

func settingsFrom(cfg *config.DatabaseConfig) poolSettings {
	s := poolSettings{
		maxOpen:        cfg.MaxOpenConns,
		maxIdle:        cfg.MaxIdleConns,
		maxLifetime:    cfg.ConnMaxLifetime,
		maxIdleTime:    cfg.ConnMaxIdleTime,
		connectTimeout: cfg.ConnectTimeout,
	}
	if s.maxOpen <= 0 {
		s.maxOpen = defaultMaxOpenConns
	}
	if s.maxIdle <= 0 {
		s.maxIdle = defaultMaxIdleConns
	}
	// More idle than open connections would only be closed again.
	s.maxIdle = min(s.maxIdle, s.maxOpen)
	if s.maxLifetime <= 0 {
		s.maxLifetime = defaultConnMaxLifetime
	}
	if s.maxIdleTime <= 0 {
		s.maxIdleTime = defaultConnMaxIdleTime
	}
	if s.connectTimeout <= 0 {
		s.connectTimeout = defaultConnectTimeout
	}
	return s
}

// Open connects to cfg.URL and verifies the connection within
// cfg.ConnectTimeout.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	s := settingsFrom(cfg)

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpen)
	db.SetMaxIdleConns(s.maxIdle)
	db.SetConnMaxLifetime(s.maxLifetime)
	db.SetConnMaxIdleTime(s.maxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Pool{db: db}, nil
}

// Close closes the pool.
func (p *Pool) Close() error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing database connection: %w", err)
	}
	return nil
}

// QueryRow executes a query that returns a single row.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return rows, nil
}

// Exec executes a statement that returns no rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return result, nil
}

// BeginTx starts a transaction.
func (p *Pool) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := p.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return tx, nil
}

// Register makes the pool's repositories available as the postgres scan and
// stats backends and the pgvector reference backend.
func (p *Pool) Register() {
	scans := NewScanRepository(p)
	stats := NewStatsRepository(p)
	refs := NewReferenceRepository(p)
	database.RegisterScanWriter(database.BackendPostgres, func() database.ScanWriter { return scans })
	database.RegisterStatsRecorder(database.BackendPostgres, func() database.StatsRecorder { return stats })
	database.RegisterReferenceWriter(database.BackendPgvector, func() database.ReferenceWriter { return refs })
}

// Initialize opens the pool, applies pending migrations and registers the
// repositories. The caller owns the returned pool.
func Initialize(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	pool, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	pool.Register()
	logger.Info("using PostgreSQL backend")
	return pool, nil
}
