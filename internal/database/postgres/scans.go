package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/faceratio/internal/database"
)

// ScanRepository provides PostgreSQL-backed scan history storage
type ScanRepository struct {
	pool *Pool
	now  func() time.Time
}

// NewScanRepository creates a new PostgreSQL scan repository
func NewScanRepository(pool *Pool) *ScanRepository {
	return &ScanRepository{pool: pool, now: time.Now}
}

const scanColumns = `id, device_id, face_structure, rule_of_fifths, nasal_oral, vertical_thirds, symmetry,
	scores, total_score, face_shape, match, created_at, expire_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*database.StoredScan, error) {
	var s database.StoredScan
	var scores []byte
	var match []byte
	err := row.Scan(
		&s.ID,
		&s.DeviceID,
		&s.Ratios.FaceStructure,
		&s.Ratios.RuleOfFifths,
		&s.Ratios.NasalOral,
		&s.Ratios.VerticalThirds,
		&s.Ratios.Symmetry,
		&scores,
		&s.TotalScore,
		&s.FaceShape,
		&match,
		&s.CreatedAt,
		&s.ExpireAt,
	)
	if err != nil {
		return nil, err
	}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &s.Scores); err != nil {
			return nil, fmt.Errorf("decode scores: %w", err)
		}
	}
	if len(match) > 0 {
		s.Match = &database.ScanMatch{}
		if err := json.Unmarshal(match, s.Match); err != nil {
			return nil, fmt.Errorf("decode match: %w", err)
		}
	}
	return &s, nil
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

	scores, err := json.Marshal(scan.Scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	var match sql.NullString
	if scan.Match != nil {
		b, err := json.Marshal(scan.Match)
		if err != nil {
			return fmt.Errorf("encode match: %w", err)
		}
		match = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		INSERT INTO scans (` + scanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11::jsonb, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			scores = EXCLUDED.scores,
			total_score = EXCLUDED.total_score,
			face_shape = EXCLUDED.face_shape,
			match = EXCLUDED.match,
			expire_at = EXCLUDED.expire_at
	`
	_, err = r.pool.Exec(ctx, query,
		scan.ID,
		scan.DeviceID,
		scan.Ratios.FaceStructure,
		scan.Ratios.RuleOfFifths,
		scan.Ratios.NasalOral,
		scan.Ratios.VerticalThirds,
		scan.Ratios.Symmetry,
		string(scores),
		scan.TotalScore,
		scan.FaceShape,
		match,
		scan.CreatedAt,
		scan.ExpireAt,
	)
	if err != nil {
		return fmt.Errorf("save scan: %w", err)
	}
	return nil
}

// GetScan retrieves an unexpired scan by ID
func (r *ScanRepository) GetScan(ctx context.Context, scanID string) (*database.StoredScan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = $1 AND expire_at > $2`
	s, err := scanRow(r.pool.QueryRow(ctx, query, scanID, r.now()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scan: %w", err)
	}
	return s, nil
}

// ListScansByDevice returns a device's unexpired scans, newest first
func (r *ScanRepository) ListScansByDevice(ctx context.Context, deviceID string, limit, offset int) ([]database.StoredScan, error) {
	query := `
		SELECT ` + scanColumns + `
		FROM scans
		WHERE device_id = $1 AND expire_at > $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, deviceID, r.now(), limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	scans := []database.StoredScan{}
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		scans = append(scans, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}
	return scans, nil
}

// CountScansByDevice returns the number of a device's unexpired scans
func (r *ScanRepository) CountScansByDevice(ctx context.Context, deviceID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM scans WHERE device_id = $1 AND expire_at > $2", deviceID, r.now()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return count, nil
}

// DeleteScan removes a scan only when deviceID owns it
func (r *ScanRepository) DeleteScan(ctx context.Context, scanID, deviceID string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM scans WHERE id = $1 AND device_id = $2", scanID, deviceID)
	if err != nil {
		return fmt.Errorf("delete scan: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scan rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeleteExpiredScans removes scans that expired before now and returns the count deleted
func (r *ScanRepository) DeleteExpiredScans(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM scans WHERE expire_at <= $1", now)
	if err != nil {
		return 0, fmt.Errorf("delete expired scans: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired scans rows affected: %w", err)
	}
	return n, nil
}
