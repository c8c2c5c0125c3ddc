package config

import (
	"os"
	"testing"
	"time"

	"github.com/kozaktomas/faceratio/internal/geometry"
	"github.com/kozaktomas/faceratio/internal/scoring"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "MONGODB_URI", "REDIS_ADDR",
		"STORE_BACKEND", "STATS_BACKEND", "VECTOR_BACKEND",
		"MATCH_TIMEOUT", "SCAN_TTL", "WEB_PORT", "WEB_ALLOWED_ORIGINS",
		"RATE_LIMIT_PER_SECOND", "LOG_LEVEL", "MONGODB_DATABASE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Database.MaxOpenConns != 25 || cfg.Database.MaxIdleConns != 5 {
		t.Errorf("pool defaults = %d/%d, want 25/5", cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime != time.Hour || cfg.Database.ConnMaxIdleTime != 10*time.Minute || cfg.Database.ConnectTimeout != 10*time.Second {
		t.Errorf("pool lifetimes = %+v", cfg.Database)
	}
	if cfg.Analysis.MatchTimeout != 5*time.Second {
		t.Errorf("MatchTimeout = %s, want 5s", cfg.Analysis.MatchTimeout)
	}
	if cfg.Analysis.ScanTTL != 7*24*time.Hour {
		t.Errorf("ScanTTL = %s, want 168h", cfg.Analysis.ScanTTL)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Web.Port = %d, want 8080", cfg.Web.Port)
	}
	if cfg.Mongo.Database != "faceratio" {
		t.Errorf("Mongo.Database = %q", cfg.Mongo.Database)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	want := BackendConfig{Store: "memory", Stats: "memory", Vector: "hnsw"}
	if cfg.Backends != want {
		t.Errorf("Backends = %+v, want %+v", cfg.Backends, want)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MATCH_TIMEOUT", "750ms")
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_PER_SECOND", "0.5")
	t.Setenv("VECTOR_BACKEND", "Pinecone")

	cfg := Load()

	if cfg.Analysis.MatchTimeout != 750*time.Millisecond {
		t.Errorf("MatchTimeout = %s", cfg.Analysis.MatchTimeout)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("Web.Port = %d", cfg.Web.Port)
	}
	if len(cfg.Web.AllowedOrigins) != 2 || cfg.Web.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Web.AllowedOrigins)
	}
	if cfg.Web.RateLimitPerSecond != 0.5 {
		t.Errorf("RateLimitPerSecond = %v", cfg.Web.RateLimitPerSecond)
	}
	if cfg.Backends.Vector != "pinecone" {
		t.Errorf("Backends.Vector = %q", cfg.Backends.Vector)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MATCH_TIMEOUT", "soon")
	t.Setenv("WEB_PORT", "-1")
	t.Setenv("RATE_LIMIT_PER_SECOND", "fast")

	cfg := Load()

	if cfg.Analysis.MatchTimeout != 5*time.Second {
		t.Errorf("MatchTimeout = %s, want default", cfg.Analysis.MatchTimeout)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Web.Port = %d, want default", cfg.Web.Port)
	}
	if cfg.Web.RateLimitPerSecond != 1 {
		t.Errorf("RateLimitPerSecond = %v, want default", cfg.Web.RateLimitPerSecond)
	}
}

func TestBackendConfig_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		in       BackendConfig
		cfg      Config
		expected BackendConfig
	}{
		{
			name:     "postgres only",
			cfg:      Config{Database: DatabaseConfig{URL: "postgres://x"}},
			expected: BackendConfig{Store: "postgres", Stats: "postgres", Vector: "hnsw"},
		},
		{
			name:     "mongo with redis counters",
			cfg:      Config{Mongo: MongoConfig{URI: "mongodb://x"}, Redis: RedisConfig{Addr: "localhost:6379"}},
			expected: BackendConfig{Store: "mongo", Stats: "redis", Vector: "hnsw"},
		},
		{
			name:     "explicit selection wins",
			in:       BackendConfig{Store: "mongo", Stats: "mongo", Vector: "pgvector"},
			cfg:      Config{Database: DatabaseConfig{URL: "postgres://x"}, Redis: RedisConfig{Addr: "r"}},
			expected: BackendConfig{Store: "mongo", Stats: "mongo", Vector: "pgvector"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Resolve(&tt.cfg)
			if got != tt.expected {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestScoringConfig_Engine(t *testing.T) {
	cfg := Load()

	if cfg.Scoring.Window.Capacity != 10 || cfg.Scoring.Window.MinSamples != 5 {
		t.Errorf("window = %+v, want 10/5", cfg.Scoring.Window)
	}

	engineCfg := cfg.Scoring.Engine()
	if err := engineCfg.Validate(); err != nil {
		t.Fatalf("embedded scoring config invalid: %v", err)
	}

	def := scoring.DefaultConfig()
	for _, key := range geometry.Keys() {
		if engineCfg.Targets[key] != def.Targets[key] {
			t.Errorf("target %s = %v, want %v", key, engineCfg.Targets[key], def.Targets[key])
		}
		if engineCfg.Weights[key] != def.Weights[key] {
			t.Errorf("weight %s = %v, want %v", key, engineCfg.Weights[key], def.Weights[key])
		}
	}
	if engineCfg.Sensitivity != scoring.DefaultSensitivity {
		t.Errorf("sensitivity = %v", engineCfg.Sensitivity)
	}
}
