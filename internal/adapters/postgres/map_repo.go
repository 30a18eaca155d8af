package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/metromap/internal/core/domain"
)

// MapRepo implements ports.MapRepository with pgx. Documents are stored as
// JSONB in the export format.
type MapRepo struct {
	db *DB
}

// NewMapRepo creates a new MapRepo.
func NewMapRepo(db *DB) *MapRepo {
	return &MapRepo{db: db}
}

// Save inserts or replaces a map. A stored revision newer than m's is kept.
func (r *MapRepo) Save(ctx context.Context, m *domain.SavedMap) error {
	doc, err := json.Marshal(m.Document)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO maps (id, title, revision, document, line_count, station_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, revision = EXCLUDED.revision, document = EXCLUDED.document,
		    line_count = EXCLUDED.line_count, station_count = EXCLUDED.station_count,
		    updated_at = EXCLUDED.updated_at
		WHERE maps.revision <= EXCLUDED.revision
	`, m.ID, m.Title, int64(m.Revision), doc, len(m.Document.Lines), len(m.Document.Stations),
		m.CreatedAt, m.UpdatedAt)
	return err
}

// GetByID returns a map with its document.
func (r *MapRepo) GetByID(ctx context.Context, id string) (*domain.SavedMap, error) {
	var (
		m   domain.SavedMap
		rev int64
		doc []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, title, revision, document, created_at, updated_at
		FROM maps WHERE id = $1
	`, id).Scan(&m.ID, &m.Title, &rev, &doc, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrMapNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	m.Revision = uint64(rev)
	if m.Document, err = domain.ParseDocument(doc); err != nil {
		return nil, fmt.Errorf("map %s: %w", id, err)
	}
	return &m, nil
}

// List returns a page of maps, most recently updated first, and the total count.
func (r *MapRepo) List(ctx context.Context, offset, limit int) ([]domain.MapListing, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM maps`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, title, revision, line_count, station_count, updated_at
		FROM maps
		ORDER BY updated_at DESC, id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	maps := []domain.MapListing{}
	for rows.Next() {
		var (
			l   domain.MapListing
			rev int64
		)
		if err := rows.Scan(&l.ID, &l.Title, &rev, &l.LineCount, &l.StationCount, &l.UpdatedAt); err != nil {
			return nil, 0, err
		}
		l.Revision = uint64(rev)
		maps = append(maps, l)
	}
	return maps, total, rows.Err()
}

// Delete removes a map.
func (r *MapRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM maps WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMapNotFound, id)
	}
	return nil
}
