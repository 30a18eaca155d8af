package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/metromap/internal/core/domain"
)

// PlaceRepo implements ports.PlaceRepository with pgx.
type PlaceRepo struct {
	db *DB
}

// NewPlaceRepo creates a new PlaceRepo.
func NewPlaceRepo(db *DB) *PlaceRepo {
	return &PlaceRepo{db: db}
}

// UpsertBatch inserts or moves places by name in one transaction.
func (r *PlaceRepo) UpsertBatch(ctx context.Context, places []domain.NamedPlace) error {
	batch := &pgx.Batch{}
	for _, p := range places {
		batch.Queue(`
			INSERT INTO places (name, lat, lon)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE
			SET lat = EXCLUDED.lat, lon = EXCLUDED.lon
		`, p.Name, p.Location.Lat, p.Location.Lon)
	}
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
		return nil
	})
}

// ListByLatitude returns every place ordered by latitude.
func (r *PlaceRepo) ListByLatitude(ctx context.Context) ([]domain.NamedPlace, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT name, lat, lon FROM places ORDER BY lat`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []domain.NamedPlace
	for rows.Next() {
		var p domain.NamedPlace
		if err := rows.Scan(&p.Name, &p.Location.Lat, &p.Location.Lon); err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, rows.Err()
}
