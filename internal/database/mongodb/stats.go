package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/kozaktomas/faceratio/internal/scoring"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StatsRepository implements database.StatsRecorder on a single document.
type StatsRepository struct {
	col *mongo.Collection
}

// fillKeys adds zero entries for shapes and buckets that have never been
// incremented, since $inc only creates the paths it touches.
func fillKeys(s *database.GlobalStats) {
	zero := database.NewGlobalStats(scoring.ShapeNames(), scoring.ScoreBuckets())
	if s.ShapeDistribution == nil {
		s.ShapeDistribution = zero.ShapeDistribution
	}
	if s.ScoreDistribution == nil {
		s.ScoreDistribution = zero.ScoreDistribution
	}
	for k := range zero.ShapeDistribution {
		if _, ok := s.ShapeDistribution[k]; !ok {
			s.ShapeDistribution[k] = 0
		}
	}
	for k := range zero.ScoreDistribution {
		if _, ok := s.ScoreDistribution[k]; !ok {
			s.ScoreDistribution[k] = 0
		}
	}
}

// GetStats returns the singleton, creating a zeroed document if absent
func (r *StatsRepository) GetStats(ctx context.Context) (*database.GlobalStats, error) {
	zero := database.NewGlobalStats(scoring.ShapeNames(), scoring.ScoreBuckets())
	onInsert := bson.M{
		"totalScans":        int64(0),
		"scoreSum":          0.0,
		"averageScore":      0.0,
		"shapeDistribution": zero.ShapeDistribution,
		"scoreDistribution": zero.ScoreDistribution,
		"lastUpdated":       time.Now(),
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var s database.GlobalStats
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": database.GlobalStatsID},
		bson.M{"$setOnInsert": onInsert},
		opts,
	).Decode(&s)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	fillKeys(&s)
	return &s, nil
}

// RecordScan applies one atomic upserting $inc for the counters, then writes
// the derived average from the returned post-increment values.
func (r *StatsRepository) RecordScan(ctx context.Context, totalScore float64, faceShape string) (*database.GlobalStats, error) {
	update := bson.M{
		"$inc": bson.M{
			"totalScans":                     1,
			"scoreSum":                       totalScore,
			"shapeDistribution." + faceShape: 1,
			"scoreDistribution." + scoring.ScoreBucket(totalScore): 1,
		},
		"$set": bson.M{"lastUpdated": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var s database.GlobalStats
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": database.GlobalStatsID}, update, opts).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.New("increment stats: upsert returned no document")
	}
	if err != nil {
		return nil, fmt.Errorf("increment stats: %w", err)
	}

	if s.TotalScans > 0 {
		s.AverageScore = s.ScoreSum / float64(s.TotalScans)
	}
	_, err = r.col.UpdateOne(ctx,
		bson.M{"_id": database.GlobalStatsID},
		bson.M{"$set": bson.M{"averageScore": s.AverageScore}},
	)
	if err != nil {
		return nil, fmt.Errorf("update average score: %w", err)
	}

	fillKeys(&s)
	return &s, nil
}
