package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/faceratio/internal/geometry"
	"github.com/kozaktomas/faceratio/internal/scoring"
	"gopkg.in/yaml.v3"
)

//go:embed scoring.yaml
var scoringYAML []byte

type Config struct {
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Pinecone PineconeConfig
	Backends BackendConfig
	Analysis AnalysisConfig
	Web      WebConfig
	Log      LogConfig
	Scoring  ScoringConfig
}

type DatabaseConfig struct {
	URL           string // PostgreSQL connection URL
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWIndexPath string // Path to persist the reference HNSW index (optional, rebuilt from the catalog when empty)

	ConnMaxLifetime time.Duration // Recycle connections after this long (default 1h)
	ConnMaxIdleTime time.Duration // Close connections idle this long (default 10m)
	ConnectTimeout  time.Duration // Startup ping deadline (default 10s)
}

type MongoConfig struct {
	URI      string
	Database string // defaults to faceratio
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PineconeConfig struct {
	APIKey string
	Host   string // index host, e.g. https://faces-abc123.svc.pinecone.io
}

// BackendConfig selects the storage implementation for each concern.
// Empty values are resolved by Resolve from the configured connections.
type BackendConfig struct {
	Store  string // postgres | mongo | memory
	Stats  string // postgres | mongo | redis | memory
	Vector string // pinecone | pgvector | hnsw
}

type AnalysisConfig struct {
	MatchTimeout time.Duration // per-query timeout for the similarity index (default 5s)
	ScanTTL      time.Duration // scan retention (default 7 days)
	SessionTTL   time.Duration // idle capture session lifetime (default 10m)
	MaxSessions  int           // cap on concurrently open capture sessions
}

type WebConfig struct {
	Host               string
	Port               int
	AllowedOrigins     []string
	RateLimitPerSecond float64 // per client IP
}

type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // json | console
}

// ScoringConfig is the embedded scoring.yaml.
type ScoringConfig struct {
	Targets     map[string]float64 `yaml:"targets"`
	Weights     map[string]float64 `yaml:"weights"`
	Sensitivity float64            `yaml:"sensitivity"`
	Window      WindowConfig       `yaml:"window"`
}

type WindowConfig struct {
	Capacity   int `yaml:"capacity"`
	MinSamples int `yaml:"min_samples"`
}

// Engine converts the yaml form to the scoring engine's configuration.
func (s ScoringConfig) Engine() scoring.Config {
	cfg := scoring.Config{
		Targets:     make(map[geometry.Key]float64, len(s.Targets)),
		Weights:     make(map[geometry.Key]float64, len(s.Weights)),
		Sensitivity: s.Sensitivity,
	}
	for k, v := range s.Targets {
		cfg.Targets[geometry.Key(k)] = v
	}
	for k, v := range s.Weights {
		cfg.Weights[geometry.Key(k)] = v
	}
	return cfg
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat is envInt for positive floats.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration parses a Go duration such as "5s" or "168h".
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func Load() *Config {
	var sc ScoringConfig
	if err := yaml.Unmarshal(scoringYAML, &sc); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded scoring.yaml: " + err.Error())
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:           os.Getenv("DATABASE_URL"),
			MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),

			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: envDuration("DATABASE_CONN_MAX_IDLE_TIME", 10*time.Minute),
			ConnectTimeout:  envDuration("DATABASE_CONNECT_TIMEOUT", 10*time.Second),
		},
		Mongo: MongoConfig{
			URI:      os.Getenv("MONGODB_URI"),
			Database: envString("MONGODB_DATABASE", "faceratio"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Pinecone: PineconeConfig{
			APIKey: os.Getenv("PINECONE_API_KEY"),
			Host:   os.Getenv("PINECONE_HOST"),
		},
		Backends: BackendConfig{
			Store:  strings.ToLower(os.Getenv("STORE_BACKEND")),
			Stats:  strings.ToLower(os.Getenv("STATS_BACKEND")),
			Vector: strings.ToLower(os.Getenv("VECTOR_BACKEND")),
		},
		Analysis: AnalysisConfig{
			MatchTimeout: envDuration("MATCH_TIMEOUT", 5*time.Second),
			ScanTTL:      envDuration("SCAN_TTL", 7*24*time.Hour),
			SessionTTL:   envDuration("SESSION_TTL", 10*time.Minute),
			MaxSessions:  envInt("MAX_SESSIONS", 10000),
		},
		Web: WebConfig{
			Host:               envString("WEB_HOST", "0.0.0.0"),
			Port:               envInt("WEB_PORT", 8080),
			AllowedOrigins:     envList("WEB_ALLOWED_ORIGINS"),
			RateLimitPerSecond: envFloat("RATE_LIMIT_PER_SECOND", 1),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Scoring: sc,
	}
	cfg.Backends = cfg.Backends.Resolve(cfg)
	return cfg
}

// Resolve fills empty backend selections from the configured connections:
// Postgres wins over Mongo for scans, Redis is preferred for counters when
// present, and the in-memory HNSW graph is the default vector index.
func (b BackendConfig) Resolve(cfg *Config) BackendConfig {
	if b.Store == "" {
		switch {
		case cfg.Database.URL != "":
			b.Store = "postgres"
		case cfg.Mongo.URI != "":
			b.Store = "mongo"
		default:
			b.Store = "memory"
		}
	}
	if b.Stats == "" {
		switch {
		case cfg.Redis.Addr != "":
			b.Stats = "redis"
		case b.Store != "":
			b.Stats = b.Store
		}
	}
	if b.Vector == "" {
		b.Vector = "hnsw"
	}
	return b
}
