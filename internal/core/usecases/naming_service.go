package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/core/ports"
	"github.com/samirrijal/metromap/internal/pkg/metrics"
)

// NameLookup turns a coordinate into candidate station names. A reference
// place within maxDistance meters wins; otherwise the geocoder is asked.
type NameLookup struct {
	geocoder    ports.Geocoder
	places      []domain.NamedPlace
	maxDistance float64
}

// NewNameLookup creates a NameLookup. geocoder may be nil for offline use.
func NewNameLookup(geocoder ports.Geocoder, places []domain.NamedPlace, maxDistance float64) *NameLookup {
	sorted := make([]domain.NamedPlace, len(places))
	copy(sorted, places)
	domain.SortPlaces(sorted)
	return &NameLookup{geocoder: geocoder, places: sorted, maxDistance: maxDistance}
}

// Candidates returns possible names for p, best first. An empty result with
// a nil error means nothing was found.
func (l *NameLookup) Candidates(ctx context.Context, p domain.GeoPoint) ([]string, error) {
	if place, dist, ok := domain.FindClosestPlace(l.places, p); ok && dist <= l.maxDistance {
		metrics.NamingLookups.WithLabelValues("places", "hit").Inc()
		return []string{place.Name}, nil
	}
	if len(l.places) > 0 {
		metrics.NamingLookups.WithLabelValues("places", "miss").Inc()
	}
	if l.geocoder == nil {
		return nil, nil
	}

	start := time.Now()
	names, err := l.geocoder.ReverseGeocode(ctx, p)
	metrics.NamingLookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.NamingLookups.WithLabelValues("geocoder", "error").Inc()
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}
	if len(names) == 0 {
		metrics.NamingLookups.WithLabelValues("geocoder", "miss").Inc()
		return nil, nil
	}
	metrics.NamingLookups.WithLabelValues("geocoder", "hit").Inc()
	return names, nil
}

// NamingService names stations from their location. Lookups for one station
// are spaced by the station's own geocode slots.
type NamingService struct {
	editor *EditorService
	lookup *NameLookup
}

// NewNamingService creates a new NamingService.
func NewNamingService(editor *EditorService, lookup *NameLookup) *NamingService {
	return &NamingService{editor: editor, lookup: lookup}
}

// SuggestName looks up and applies a name for one station. A failed lookup
// leaves the name unchanged.
func (s *NamingService) SuggestName(ctx context.Context, mapID string, stationID int) (*EditResult, error) {
	at, notBefore, err := s.editor.GeocodeSlot(ctx, mapID, stationID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, mapID, stationID, at, notBefore)
}

// Apply sets a name from looked-up candidates.
func (s *NamingService) Apply(ctx context.Context, sug *domain.NameSuggestion) (*EditResult, error) {
	if len(sug.Candidates) == 0 {
		return &EditResult{Outcome: domain.ClickIgnored.String(), StationID: sug.StationID}, nil
	}
	return s.editor.ApplyName(ctx, sug.MapID, sug.StationID, sug.Candidates)
}

// Lookup waits for the slot and returns candidates without applying them.
func (s *NamingService) Lookup(ctx context.Context, at domain.GeoPoint, notBefore time.Time) ([]string, error) {
	if d := time.Until(notBefore); d > 0 {
		if err := sleepContext(ctx, d); err != nil {
			return nil, err
		}
	}
	return s.lookup.Candidates(ctx, at)
}

// ScheduleNaming runs the lookup in the background.
func (s *NamingService) ScheduleNaming(_ context.Context, mapID string, stationID int, at domain.GeoPoint, notBefore time.Time) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Until(notBefore)+30*time.Second)
		defer cancel()
		res, err := s.run(ctx, mapID, stationID, at, notBefore)
		if err != nil {
			slog.Warn("station naming failed", "map_id", mapID, "station_id", stationID, "error", err)
			return
		}
		slog.Debug("station naming done", "map_id", mapID, "station_id", stationID, "outcome", res.Outcome)
	}()
	return nil
}

func (s *NamingService) run(ctx context.Context, mapID string, stationID int, at domain.GeoPoint, notBefore time.Time) (*EditResult, error) {
	candidates, err := s.Lookup(ctx, at, notBefore)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, &domain.NameSuggestion{MapID: mapID, StationID: stationID, Candidates: candidates})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
