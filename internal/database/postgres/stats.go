package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/scoring"
)

// StatsRepository stores the statistics singleton in the global_stats table
type StatsRepository struct {
	pool *Pool
}

// NewStatsRepository creates a new PostgreSQL stats repository
func NewStatsRepository(pool *Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// initialDistributions returns zeroed shape and bucket maps with one count
// already applied, encoded for the INSERT branch of the upsert.
func initialDistributions(shape, bucket string) (shapeJSON, bucketJSON []byte, err error) {
	zero := database.NewGlobalStats(scoring.ShapeNames(), scoring.ScoreBuckets())
	if shape != "" {
		zero.ShapeDistribution[shape]++
	}
	if bucket != "" {
		zero.ScoreDistribution[bucket]++
	}
	if shapeJSON, err = json.Marshal(zero.ShapeDistribution); err != nil {
		return nil, nil, err
	}
	if bucketJSON, err = json.Marshal(zero.ScoreDistribution); err != nil {
		return nil, nil, err
	}
	return shapeJSON, bucketJSON, nil
}

const statsColumns = `id, total_scans, score_sum, average_score, shape_distribution, score_distribution, last_updated`

func scanStats(row rowScanner) (*database.GlobalStats, error) {
	var s database.GlobalStats
	var shapes, buckets []byte
	if err := row.Scan(&s.ID, &s.TotalScans, &s.ScoreSum, &s.AverageScore, &shapes, &buckets, &s.LastUpdated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shapes, &s.ShapeDistribution); err != nil {
		return nil, fmt.Errorf("decode shape distribution: %w", err)
	}
	if err := json.Unmarshal(buckets, &s.ScoreDistribution); err != nil {
		return nil, fmt.Errorf("decode score distribution: %w", err)
	}
	return &s, nil
}

// GetStats returns the singleton, creating a zeroed row if absent
func (r *StatsRepository) GetStats(ctx context.Context) (*database.GlobalStats, error) {
	shapes, buckets, err := initialDistributions("", "")
	if err != nil {
		return nil, fmt.Errorf("encode distributions: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO global_stats (id, shape_distribution, score_distribution)
		VALUES ($1, $2::jsonb, $3::jsonb)
		ON CONFLICT (id) DO NOTHING
	`, database.GlobalStatsID, string(shapes), string(buckets))
	if err != nil {
		return nil, fmt.Errorf("ensure stats: %w", err)
	}

	s, err := scanStats(r.pool.QueryRow(ctx, `SELECT `+statsColumns+` FROM global_stats WHERE id = $1`, database.GlobalStatsID))
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return s, nil
}

// RecordScan applies a single atomic create-if-absent increment of the
// counters, then writes the derived average from the returned values.
func (r *StatsRepository) RecordScan(ctx context.Context, totalScore float64, faceShape string) (*database.GlobalStats, error) {
	bucket := scoring.ScoreBucket(totalScore)
	shapes, buckets, err := initialDistributions(faceShape, bucket)
	if err != nil {
		return nil, fmt.Errorf("encode distributions: %w", err)
	}

	query := `
		INSERT INTO global_stats (id, total_scans, score_sum, shape_distribution, score_distribution, last_updated)
		VALUES ($1, 1, $2, $3::jsonb, $4::jsonb, NOW())
		ON CONFLICT (id) DO UPDATE SET
			total_scans = global_stats.total_scans + 1,
			score_sum = global_stats.score_sum + EXCLUDED.score_sum,
			shape_distribution = jsonb_set(global_stats.shape_distribution, ARRAY[$5::text],
				to_jsonb(COALESCE((global_stats.shape_distribution->>$5::text)::bigint, 0) + 1)),
			score_distribution = jsonb_set(global_stats.score_distribution, ARRAY[$6::text],
				to_jsonb(COALESCE((global_stats.score_distribution->>$6::text)::bigint, 0) + 1)),
			last_updated = NOW()
		RETURNING ` + statsColumns
	s, err := scanStats(r.pool.QueryRow(ctx, query, database.GlobalStatsID, totalScore, string(shapes), string(buckets), faceShape, bucket))
	if err != nil {
		return nil, fmt.Errorf("increment stats: %w", err)
	}

	if s.TotalScans > 0 {
		s.AverageScore = s.ScoreSum / float64(s.TotalScans)
	}
	if _, err := r.pool.Exec(ctx, "UPDATE global_stats SET average_score = $2 WHERE id = $1", database.GlobalStatsID, s.AverageScore); err != nil {
		return nil, fmt.Errorf("update average score: %w", err)
	}
	return s, nil
}
