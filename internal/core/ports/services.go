package ports

import (
	"context"
	"time"

	"github.com/samirrijal/metromap/internal/core/domain"
)

// EditorEventPublisher fans editor changes out to a message broker.
type EditorEventPublisher interface {
	PublishFrame(ctx context.Context, mapID string, frame domain.Frame) error
	PublishSummary(ctx context.Context, mapID string, summary domain.Summary) error
	PublishDocument(ctx context.Context, m *domain.SavedMap) error
	PublishNameSuggestion(ctx context.Context, s *domain.NameSuggestion) error
}

// EditorEventSubscriber consumes editor events from a message broker.
type EditorEventSubscriber interface {
	SubscribeDocuments(ctx context.Context, handler func(ctx context.Context, m *domain.SavedMap) error) error
	SubscribeNameSuggestions(ctx context.Context, handler func(ctx context.Context, s *domain.NameSuggestion) error) error
}

// CacheService is a shared byte cache. Get fails on a miss.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
}

// Geocoder resolves a coordinate to candidate place names.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p domain.GeoPoint) ([]string, error)
}

// AssetFetcher loads static assets such as station icons by path.
type AssetFetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// NamingScheduler hands station naming to a background runner.
type NamingScheduler interface {
	ScheduleNaming(ctx context.Context, mapID string, stationID int, at domain.GeoPoint, notBefore time.Time) error
}
