package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/faceratio/internal/database"
	"github.com/pgvector/pgvector-go"
)

// ReferenceRepository keeps reference vectors in a pgvector column and
// answers similarity queries with the cosine distance operator.
type ReferenceRepository struct {
	pool *Pool
}

// NewReferenceRepository creates a new pgvector-backed reference repository
func NewReferenceRepository(pool *Pool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

// Query returns up to topK references ordered by descending cosine similarity
func (r *ReferenceRepository) Query(ctx context.Context, vector []float32, topK int) ([]database.Neighbor, error) {
	if len(vector) != database.ReferenceDim {
		return nil, fmt.Errorf("query vector has %d dimensions, want %d", len(vector), database.ReferenceDim)
	}

	query := `
		SELECT id, name, description, advice, image_url, category, era,
			1 - (embedding <=> $1::vector) AS score
		FROM reference_vectors
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	defer rows.Close()

	out := []database.Neighbor{}
	for rows.Next() {
		var n database.Neighbor
		m := &n.Metadata
		if err := rows.Scan(&n.ID, &m.Name, &m.Description, &m.Advice, &m.ImageURL, &m.Category, &m.Era, &n.Score); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces references in one transaction
func (r *ReferenceRepository) Upsert(ctx context.Context, refs []database.ReferenceVector) error {
	if len(refs) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO reference_vectors (id, embedding, name, description, advice, image_url, category, era, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			advice = EXCLUDED.advice,
			image_url = EXCLUDED.image_url,
			category = EXCLUDED.category,
			era = EXCLUDED.era,
			updated_at = NOW()
	`
	for _, ref := range refs {
		if len(ref.Values) != database.ReferenceDim {
			return fmt.Errorf("reference %s has %d dimensions, want %d", ref.ID, len(ref.Values), database.ReferenceDim)
		}
		m := ref.Metadata
		if _, err := tx.ExecContext(ctx, query, ref.ID, pgvector.NewVector(ref.Values),
			m.Name, m.Description, m.Advice, m.ImageURL, m.Category, m.Era); err != nil {
			return fmt.Errorf("upsert reference %s: %w", ref.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit references: %w", err)
	}
	return nil
}

// Count returns the number of stored references
func (r *ReferenceRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM reference_vectors").Scan(&count); err != nil {
		return 0, fmt.Errorf("count references: %w", err)
	}
	return count, nil
}

// LoadAll returns every stored reference, used to warm an in-memory index
func (r *ReferenceRepository) LoadAll(ctx context.Context) ([]database.ReferenceVector, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, embedding, name, description, advice, image_url, category, era
		FROM reference_vectors
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("load references: %w", err)
	}
	defer rows.Close()

	var out []database.ReferenceVector
	for rows.Next() {
		var ref database.ReferenceVector
		var vec pgvector.Vector
		m := &ref.Metadata
		if err := rows.Scan(&ref.ID, &vec, &m.Name, &m.Description, &m.Advice, &m.ImageURL, &m.Category, &m.Era); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		ref.Values = vec.Slice()
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	return out, nil
}
