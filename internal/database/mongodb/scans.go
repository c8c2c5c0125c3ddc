package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/faceratio/internal/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ScanRepository implements database.ScanWriter on a MongoDB collection.
type ScanRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func (r *ScanRepository) unexpired(extra bson.D) bson.D {
	return append(extra, bson.E{Key: "expireAt", Value: bson.M{"$gt": r.now()}})
}

// SaveScan stores a scan, filling in ID and timestamps when empty
func (r *ScanRepository) SaveScan(ctx context.Context, scan *database.StoredScan) error {
	if scan.ID == "" {
		scan.ID = uuid.New().String()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = r.now()
	}
	if scan.ExpireAt.IsZero() {
		scan.ExpireAt = scan.CreatedAt.Add(database.ScanTTL)
	}

	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": scan.ID}, scan, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save scan: %w", err)
	}
	return nil
}

// GetScan retrieves an unexpired scan by ID
func (r *ScanRepository) GetScan(ctx context.Context, scanID string) (*database.StoredScan, error) {
	var s database.StoredScan
	err := r.col.FindOne(ctx, r.unexpired(bson.D{{Key: "_id", Value: scanID}})).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scan: %w", err)
	}
	return &s, nil
}

// ListScansByDevice returns a device's unexpired scans, newest first
func (r *ScanRepository) ListScansByDevice(ctx context.Context, deviceID string, limit, offset int) ([]database.StoredScan, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(max(offset, 0)))

	cursor, err := r.col.Find(ctx, r.unexpired(bson.D{{Key: "deviceId", Value: deviceID}}), opts)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	scans := []database.StoredScan{}
	if err := cursor.All(ctx, &scans); err != nil {
		return nil, fmt.Errorf("decode scans: %w", err)
	}
	return scans, nil
}

// CountScansByDevice returns the number of a device's unexpired scans
func (r *ScanRepository) CountScansByDevice(ctx context.Context, deviceID string) (int, error) {
	n, err := r.col.CountDocuments(ctx, r.unexpired(bson.D{{Key: "deviceId", Value: deviceID}}))
	if err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return int(n), nil
}

// DeleteScan removes a scan only when deviceID owns it
func (r *ScanRepository) DeleteScan(ctx context.Context, scanID, deviceID string) error {
	res, err := r.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: scanID}, {Key: "deviceId", Value: deviceID}})
	if err != nil {
		return fmt.Errorf("delete scan: %w", err)
	}
	if res.DeletedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeleteExpiredScans removes scans that expired before now. The TTL index
// does this eventually; this is for explicit purges.
func (r *ScanRepository) DeleteExpiredScans(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"expireAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("delete expired scans: %w", err)
	}
	return res.DeletedCount, nil
}
