//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/faceratio/internal/config"
	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/geometry"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := Open(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestScanRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewScanRepository(pool)
	ratios := geometry.RatioSet{FaceStructure: 1.618, RuleOfFifths: 1, NasalOral: 1.618, VerticalThirds: 1, Symmetry: 1}

	var savedID string

	t.Run("SaveAndGet", func(t *testing.T) {
		scan := &database.StoredScan{
			DeviceID:   "device-a",
			Ratios:     ratios,
			Scores:     map[string]float64{"faceStructure": 100},
			TotalScore: 100,
			FaceShape:  "Oval",
			Match:      &database.ScanMatch{ReferenceID: "art_david_michelangelo", Name: "David of Michelangelo", Similarity: 100},
		}
		if err := repo.SaveScan(ctx, scan); err != nil {
			t.Fatalf("Failed to save scan: %v", err)
		}
		if scan.ID == "" || scan.ExpireAt.IsZero() {
			t.Fatalf("Expected ID and expiry to be filled, got %+v", scan)
		}
		savedID = scan.ID

		got, err := repo.GetScan(ctx, scan.ID)
		if err != nil {
			t.Fatalf("Failed to get scan: %v", err)
		}
		if got.Ratios != ratios {
			t.Errorf("Expected ratios %+v, got %+v", ratios, got.Ratios)
		}
		if got.Match == nil || got.Match.Similarity != 100 {
			t.Errorf("Expected match to round-trip, got %+v", got.Match)
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		later := &database.StoredScan{
			DeviceID:   "device-a",
			Ratios:     ratios,
			TotalScore: 50,
			FaceShape:  "Round",
			CreatedAt:  time.Now().Add(time.Minute),
		}
		if err := repo.SaveScan(ctx, later); err != nil {
			t.Fatalf("Failed to save scan: %v", err)
		}

		scans, err := repo.ListScansByDevice(ctx, "device-a", 10, 0)
		if err != nil {
			t.Fatalf("Failed to list scans: %v", err)
		}
		if len(scans) != 2 {
			t.Fatalf("Expected 2 scans, got %d", len(scans))
		}
		if scans[0].ID != later.ID {
			t.Errorf("Expected newest scan first")
		}

		count, err := repo.CountScansByDevice(ctx, "device-a")
		if err != nil {
			t.Fatalf("Failed to count scans: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2, got %d", count)
		}
	})

	t.Run("DeleteRequiresOwner", func(t *testing.T) {
		if err := repo.DeleteScan(ctx, savedID, "device-b"); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for foreign device, got %v", err)
		}
		if err := repo.DeleteScan(ctx, savedID, "device-a"); err != nil {
			t.Errorf("Failed to delete own scan: %v", err)
		}
		if _, err := repo.GetScan(ctx, savedID); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected deleted scan to be gone, got %v", err)
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		old := &database.StoredScan{
			DeviceID:  "device-c",
			Ratios:    ratios,
			FaceShape: "Oval",
			CreatedAt: time.Now().Add(-8 * 24 * time.Hour),
		}
		if err := repo.SaveScan(ctx, old); err != nil {
			t.Fatalf("Failed to save scan: %v", err)
		}
		if _, err := repo.GetScan(ctx, old.ID); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected expired scan to be hidden, got %v", err)
		}
		n, err := repo.DeleteExpiredScans(ctx, time.Now())
		if err != nil {
			t.Fatalf("Failed to purge: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 purged scan, got %d", n)
		}
	})
}

func TestStatsRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewStatsRepository(pool)

	t.Run("ZeroedOnFirstRead", func(t *testing.T) {
		s, err := repo.GetStats(ctx)
		if err != nil {
			t.Fatalf("Failed to get stats: %v", err)
		}
		if s.TotalScans != 0 || len(s.ShapeDistribution) != 6 || len(s.ScoreDistribution) != 5 {
			t.Errorf("Unexpected initial stats: %+v", s)
		}
	})

	t.Run("ConcurrentRecords", func(t *testing.T) {
		const n = 50
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.RecordScan(ctx, 90, "Oval"); err != nil {
					t.Errorf("Failed to record scan: %v", err)
				}
			}()
		}
		wg.Wait()

		s, err := repo.GetStats(ctx)
		if err != nil {
			t.Fatalf("Failed to get stats: %v", err)
		}
		if s.TotalScans != n {
			t.Errorf("Expected %d scans, got %d", n, s.TotalScans)
		}
		if s.ShapeDistribution["Oval"] != n || s.ScoreDistribution["81-100"] != n {
			t.Errorf("Unexpected distributions: %v %v", s.ShapeDistribution, s.ScoreDistribution)
		}
		if s.ScoreSum != 90*n {
			t.Errorf("Expected score sum %d, got %f", 90*n, s.ScoreSum)
		}
	})
}

func TestReferenceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewReferenceRepository(pool)

	refs := []database.ReferenceVector{
		{ID: "golden", Values: []float32{1.618, 1, 1.618, 1, 1}, Metadata: database.ReferenceMetadata{Name: "Golden"}},
		{ID: "wide", Values: []float32{1.2, 0.8, 1.9, 1.3, 0.9}, Metadata: database.ReferenceMetadata{Name: "Wide"}},
	}
	if err := repo.Upsert(ctx, refs); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if err := repo.Upsert(ctx, refs[:1]); err != nil {
		t.Fatalf("Failed to re-upsert: %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2, got %d", count)
	}

	got, err := repo.Query(ctx, []float32{1.618, 1, 1.618, 1, 1}, 3)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "golden" {
		t.Fatalf("Unexpected neighbors: %+v", got)
	}
	if got[0].Score < 0.999 {
		t.Errorf("Expected near-identical score, got %f", got[0].Score)
	}

	all, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2, got %d", len(all))
	}
}

func TestMigrations(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	// Check migrations were applied
	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("Failed to get applied migrations: %v", err)
	}

	expectedMigrations := []string{
		"001_init.sql",
	}

	if len(applied) != len(expectedMigrations) {
		t.Errorf("Expected %d migrations, got %d", len(expectedMigrations), len(applied))
	}

	for i, expected := range expectedMigrations {
		if i < len(applied) && applied[i] != expected {
			t.Errorf("Migration %d: expected '%s', got '%s'", i, expected, applied[i])
		}
	}

	// Applying again, even concurrently, is a no-op.
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = pool.Migrate(ctx)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Errorf("repeated Migrate() error = %v", err)
		}
	}
	applied, _ = pool.MigrationsApplied(ctx)
	if len(applied) != len(expectedMigrations) {
		t.Errorf("after re-running, applied = %v", applied)
	}
}

func TestRegister(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()
	defer database.ResetProviders()

	pool.Register()
	ctx := context.Background()
	if _, err := database.GetScanWriter(ctx, database.BackendPostgres); err != nil {
		t.Errorf("GetScanWriter() error = %v", err)
	}
	if _, err := database.GetStatsRecorder(ctx, database.BackendPostgres); err != nil {
		t.Errorf("GetStatsRecorder() error = %v", err)
	}
	if _, err := database.GetReferenceWriter(ctx, database.BackendPgvector); err != nil {
		t.Errorf("GetReferenceWriter() error = %v", err)
	}
}
