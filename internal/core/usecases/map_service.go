package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/core/ports"
	"github.com/samirrijal/metromap/internal/pkg/metrics"
)

// MapService persists editor sessions as saved maps.
type MapService struct {
	maps   ports.MapRepository
	editor *EditorService
}

// NewMapService creates a new MapService.
func NewMapService(maps ports.MapRepository, editor *EditorService) *MapService {
	return &MapService{maps: maps, editor: editor}
}

// Save writes the current state of an open session.
func (s *MapService) Save(ctx context.Context, mapID string) (*domain.SavedMap, error) {
	m, err := s.editor.SavedMap(ctx, mapID)
	if err != nil {
		return nil, err
	}
	if err := s.maps.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("save map: %w", err)
	}
	return m, nil
}

// Get returns a saved map.
func (s *MapService) Get(ctx context.Context, id string) (*domain.SavedMap, error) {
	return s.maps.GetByID(ctx, id)
}

// List returns a page of saved maps, most recently updated first.
func (s *MapService) List(ctx context.Context, offset, limit int) ([]domain.MapListing, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.maps.List(ctx, offset, limit)
}

// Delete removes a saved map. An open session for it stays open.
func (s *MapService) Delete(ctx context.Context, id string) error {
	return s.maps.Delete(ctx, id)
}

// Open loads a saved map into an editor session.
func (s *MapService) Open(ctx context.Context, id string) (*SessionInfo, error) {
	m, err := s.maps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.editor.Load(ctx, m)
}

// Persist stores a document received from the autosave stream.
func (s *MapService) Persist(ctx context.Context, m *domain.SavedMap) error {
	if err := m.Document.Validate(); err != nil {
		metrics.AutosavedDocuments.WithLabelValues("invalid").Inc()
		return err
	}
	if err := s.maps.Save(ctx, m); err != nil {
		metrics.AutosavedDocuments.WithLabelValues("error").Inc()
		return fmt.Errorf("persist map %s: %w", m.ID, err)
	}
	metrics.AutosavedDocuments.WithLabelValues("ok").Inc()
	return nil
}
