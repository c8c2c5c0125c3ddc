package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/faceratio/internal/analysis"
	"github.com/kozaktomas/faceratio/internal/config"
	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/logger"
	"github.com/kozaktomas/faceratio/internal/matcher"
	"github.com/kozaktomas/faceratio/internal/scoring"
	"github.com/kozaktomas/faceratio/internal/web"
	"github.com/spf13/cobra"
)

const (
	sessionCleanupInterval = time.Minute
	scanPurgeInterval      = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the faceratio HTTP API.

Backends are chosen with STORE_BACKEND, STATS_BACKEND and VECTOR_BACKEND, or
inferred from DATABASE_URL, MONGODB_URI and REDIS_ADDR when unset. Without any
connection the service runs with in-memory storage and the built-in
reference catalog.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// newAnalyzer builds the scoring engine, matcher and analyzer from cfg.
func newAnalyzer(cfg *config.Config, b *backends) (*analysis.Analyzer, *matcher.Matcher, error) {
	engine, err := scoring.NewEngine(cfg.Scoring.Engine())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid scoring configuration: %w", err)
	}
	var m *matcher.Matcher
	if b.refs != nil {
		m = matcher.New(b.refs, cfg.Analysis.MatchTimeout)
	}
	a := analysis.NewAnalyzer(engine, m, b.scans, b.stats)
	a.SetScanTTL(cfg.Analysis.ScanTTL)
	return a, m, nil
}

// purgeExpiredScans deletes expired scans every interval until ctx is done.
// Stores with native expiry simply find nothing to delete.
func purgeExpiredScans(ctx context.Context, scans database.ScanWriter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := scans.DeleteExpiredScans(ctx, time.Now().UTC())
			if err != nil {
				logger.Warning("failed to purge expired scans", logger.LoggerOptions{Key: "error", Data: err})
				continue
			}
			if n > 0 {
				logger.Info("purged expired scans", logger.LoggerOptions{Key: "count", Data: n})
			}
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := openBackends(ctx, cfg, allBackends)
	if err != nil {
		return err
	}
	defer b.Close()

	analyzer, m, err := newAnalyzer(cfg, b)
	if err != nil {
		return err
	}

	health := m.Health(ctx)
	logger.Info("reference index status",
		logger.LoggerOptions{Key: "status", Data: health.Status},
		logger.LoggerOptions{Key: "error", Data: health.Error})

	sessions := analysis.NewSessionManager(
		cfg.Analysis.SessionTTL,
		cfg.Analysis.MaxSessions,
		cfg.Scoring.Window.Capacity,
		cfg.Scoring.Window.MinSamples,
	)
	sessions.StartCleanup(ctx, sessionCleanupInterval)
	go purgeExpiredScans(ctx, b.scans, scanPurgeInterval)

	server := web.NewServer(cfg, Version, web.Dependencies{
		Sessions: sessions,
		Analyzer: analyzer,
		Matcher:  m,
		Scans:    b.scans,
		Stats:    b.stats,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		saveIndexes()

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", logger.LoggerOptions{Key: "error", Data: err})
		}
	}()

	fmt.Printf("faceratio API listening on http://%s:%d/api/v1\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
