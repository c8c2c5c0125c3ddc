// Package redisstats keeps the statistics singleton in a Redis hash.
package redisstats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/faceratio/internal/config"
	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/logger"
	"github.com/kozaktomas/faceratio/internal/scoring"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "faceratio:stats:"

	fieldTotalScans   = "totalScans"
	fieldScoreSum     = "scoreSum"
	fieldAverageScore = "averageScore"
	fieldLastUpdated  = "lastUpdated"
	shapePrefix       = "shape:"
	bucketPrefix      = "bucket:"
)

// Recorder implements database.StatsRecorder.
type Recorder struct {
	client *redis.Client
	key    string
}

// Connect creates a client and verifies it with PING.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*Recorder, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("connected to redis successfully", logger.LoggerOptions{Key: "addr", Data: cfg.Addr})
	return New(client), nil
}

// New wraps an existing client.
func New(client *redis.Client) *Recorder {
	return &Recorder{client: client, key: keyPrefix + database.GlobalStatsID}
}

// Close closes the client.
func (r *Recorder) Close() error {
	return r.client.Close()
}

// GetStats returns the singleton. A missing hash reads as zeroed stats.
func (r *Recorder) GetStats(ctx context.Context) (*database.GlobalStats, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return decode(fields)
}

// RecordScan increments every counter in one MULTI/EXEC transaction, then
// writes the derived average from the returned post-increment values.
func (r *Recorder) RecordScan(ctx context.Context, totalScore float64, faceShape string) (*database.GlobalStats, error) {
	var total *redis.IntCmd
	var sum *redis.FloatCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		total = pipe.HIncrBy(ctx, r.key, fieldTotalScans, 1)
		sum = pipe.HIncrByFloat(ctx, r.key, fieldScoreSum, totalScore)
		pipe.HIncrBy(ctx, r.key, shapePrefix+faceShape, 1)
		pipe.HIncrBy(ctx, r.key, bucketPrefix+scoring.ScoreBucket(totalScore), 1)
		pipe.HSet(ctx, r.key, fieldLastUpdated, time.Now().UTC().Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("increment stats: %w", err)
	}

	var avg float64
	if total.Val() > 0 {
		avg = sum.Val() / float64(total.Val())
	}
	if err := r.client.HSet(ctx, r.key, fieldAverageScore, strconv.FormatFloat(avg, 'f', -1, 64)).Err(); err != nil {
		return nil, fmt.Errorf("update average score: %w", err)
	}

	return r.GetStats(ctx)
}

func decode(fields map[string]string) (*database.GlobalStats, error) {
	s := database.NewGlobalStats(scoring.ShapeNames(), scoring.ScoreBuckets())
	for k, v := range fields {
		var err error
		switch {
		case k == fieldTotalScans:
			s.TotalScans, err = strconv.ParseInt(v, 10, 64)
		case k == fieldScoreSum:
			s.ScoreSum, err = strconv.ParseFloat(v, 64)
		case k == fieldAverageScore:
			s.AverageScore, err = strconv.ParseFloat(v, 64)
		case k == fieldLastUpdated:
			s.LastUpdated, err = time.Parse(time.RFC3339Nano, v)
		case strings.HasPrefix(k, shapePrefix):
			s.ShapeDistribution[strings.TrimPrefix(k, shapePrefix)], err = strconv.ParseInt(v, 10, 64)
		case strings.HasPrefix(k, bucketPrefix):
			s.ScoreDistribution[strings.TrimPrefix(k, bucketPrefix)], err = strconv.ParseInt(v, 10, 64)
		}
		if err != nil {
			return nil, fmt.Errorf("decode stats field %s: %w", k, err)
		}
	}
	return s, nil
}
