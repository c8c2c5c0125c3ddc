package database

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist or is not owned by the caller.
var ErrNotFound = errors.New("not found")

// ScanReader provides read-only access to stored scans
type ScanReader interface {
	// GetScan retrieves an unexpired scan by ID, returns ErrNotFound if missing
	GetScan(ctx context.Context, scanID string) (*StoredScan, error)
	// ListScansByDevice returns unexpired scans for a device, newest first
	ListScansByDevice(ctx context.Context, deviceID string, limit, offset int) ([]StoredScan, error)
	// CountScansByDevice returns the number of unexpired scans for a device
	CountScansByDevice(ctx context.Context, deviceID string) (int, error)
}

// ScanWriter provides write access to stored scans
type ScanWriter interface {
	ScanReader

	// SaveScan stores a scan. ID, CreatedAt and ExpireAt are filled in when empty.
	SaveScan(ctx context.Context, scan *StoredScan) error

	// DeleteScan removes a scan owned by deviceID.
	// Returns ErrNotFound when the scan does not exist or belongs to another device.
	DeleteScan(ctx context.Context, scanID, deviceID string) error

	// DeleteExpiredScans removes scans whose expiry is before now and returns the count deleted
	DeleteExpiredScans(ctx context.Context, now time.Time) (int64, error)
}

// StatsReader provides read access to the statistics singleton
type StatsReader interface {
	// GetStats returns the singleton, creating a zeroed record if absent
	GetStats(ctx context.Context) (*GlobalStats, error)
}

// StatsRecorder updates the statistics singleton.
type StatsRecorder interface {
	StatsReader

	// RecordScan applies one atomic create-if-absent increment for a finished
	// analysis and then refreshes the derived average in a separate write.
	RecordScan(ctx context.Context, totalScore float64, faceShape string) (*GlobalStats, error)
}

// ReferenceIndex answers nearest-neighbor queries over the reference set.
type ReferenceIndex interface {
	// Query returns up to topK neighbors ordered by descending similarity.
	// An empty reference set yields an empty result, not an error.
	Query(ctx context.Context, vector []float32, topK int) ([]Neighbor, error)
}

// ReferenceWriter populates the reference set.
type ReferenceWriter interface {
	ReferenceIndex

	// Upsert inserts or replaces reference vectors by ID
	Upsert(ctx context.Context, refs []ReferenceVector) error
	// Count returns the number of stored reference vectors
	Count(ctx context.Context) (int, error)
}
