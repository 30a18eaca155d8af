package ports

import (
	"context"

	"github.com/samirrijal/metromap/internal/core/domain"
)

// MapRepository persists editor documents.
type MapRepository interface {
	// Save inserts or replaces a map. Older revisions never overwrite newer ones.
	Save(ctx context.Context, m *domain.SavedMap) error
	GetByID(ctx context.Context, id string) (*domain.SavedMap, error)
	List(ctx context.Context, offset, limit int) ([]domain.MapListing, int, error)
	Delete(ctx context.Context, id string) error
}

// PlaceRepository stores reference places used as offline station names.
type PlaceRepository interface {
	UpsertBatch(ctx context.Context, places []domain.NamedPlace) error
	// ListByLatitude returns every place ordered by latitude.
	ListByLatitude(ctx context.Context) ([]domain.NamedPlace, error)
}
