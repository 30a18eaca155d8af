package workflows

import (
	"context"
	"fmt"

	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/core/ports"
)

// CandidateLookup resolves a position to candidate station names.
type CandidateLookup interface {
	Candidates(ctx context.Context, p domain.GeoPoint) ([]string, error)
}

// NamingActivities holds the activity implementations for the naming workflow.
type NamingActivities struct {
	Lookup CandidateLookup
	Events ports.EditorEventPublisher
}

// LookupCandidates returns candidate names at p.
func (a *NamingActivities) LookupCandidates(ctx context.Context, p domain.GeoPoint) ([]string, error) {
	names, err := a.Lookup.Candidates(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("lookup candidates at %.5f,%.5f: %w", p.Lat, p.Lon, err)
	}
	return names, nil
}

// PublishSuggestion hands the candidates to the editor over the broker.
func (a *NamingActivities) PublishSuggestion(ctx context.Context, s domain.NameSuggestion) error {
	if err := a.Events.PublishNameSuggestion(ctx, &s); err != nil {
		return fmt.Errorf("publish suggestion for station %d: %w", s.StationID, err)
	}
	return nil
}
