// Package mongodb stores scan history and the statistics singleton in MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/faceratio/internal/config"
	"github.com/kozaktomas/faceratio/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	scansCollection = "scans"
	statsCollection = "stats"
)

// Store holds a connected client and the collections used by the repositories.
type Store struct {
	client *mongo.Client
	scans  *mongo.Collection
	stats  *mongo.Collection
}

// Connect opens a client, verifies it and sets up indexes.
func Connect(ctx context.Context, cfg *config.MongoConfig) (*Store, error) {
	if cfg == nil || cfg.URI == "" {
		return nil, errors.New("mongo URI is required")
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(cfg.URI)
	clientOpts.SetMinPoolSize(5)
	clientOpts.SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client: client,
		scans:  db.Collection(scansCollection),
		stats:  db.Collection(statsCollection),
	}
	if err := s.setUpIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("connected to mongodb successfully", logger.LoggerOptions{Key: "database", Data: cfg.Database})
	return s, nil
}

// setUpIndexes creates the expiry and per-device indexes on the scans collection.
// The TTL index lets the server reap expired scans on its own schedule.
func (s *Store) setUpIndexes(ctx context.Context) error {
	_, err := s.scans.Indexes().CreateMany(ctx, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "expireAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}, {
		Keys:    bson.D{{Key: "deviceId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index(),
	}})
	if err != nil {
		return fmt.Errorf("create scan indexes: %w", err)
	}
	logger.Info("mongodb indexes set up successfully")
	return nil
}

// Scans returns the scan repository.
func (s *Store) Scans() *ScanRepository {
	return &ScanRepository{col: s.scans, now: time.Now}
}

// Stats returns the statistics repository.
func (s *Store) Stats() *StatsRepository {
	return &StatsRepository{col: s.stats}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
