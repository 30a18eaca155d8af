package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/metromap/internal/core/domain"
)

// NamingTaskQueue is the default task queue of the naming worker.
const NamingTaskQueue = "station-naming"

// StationNamingInput is the input for the station naming workflow.
type StationNamingInput struct {
	MapID     string
	StationID int
	Position  domain.GeoPoint
	// NotBefore is the station's reserved geocode slot.
	NotBefore time.Time
}

// StationNamingWorkflow waits for the station's geocode slot, looks up
// candidate names and publishes them for the editor holding the map.
// Lookups are not retried; a failed lookup leaves the name unchanged.
func StationNamingWorkflow(ctx workflow.Context, input StationNamingInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting station naming workflow", "mapID", input.MapID, "stationID", input.StationID)

	if d := input.NotBefore.Sub(workflow.Now(ctx)); d > 0 {
		if err := workflow.Sleep(ctx, d); err != nil {
			return err
		}
	}

	lookupCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
	var candidates []string
	if err := workflow.ExecuteActivity(lookupCtx, "LookupCandidates", input.Position).Get(ctx, &candidates); err != nil {
		logger.Warn("lookup failed, keeping station name", "error", err)
		return err
	}
	if len(candidates) == 0 {
		logger.Info("no candidate names found")
		return nil
	}

	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
	suggestion := domain.NameSuggestion{
		MapID:      input.MapID,
		StationID:  input.StationID,
		Candidates: candidates,
	}
	if err := workflow.ExecuteActivity(publishCtx, "PublishSuggestion", suggestion).Get(ctx, nil); err != nil {
		return err
	}

	logger.Info("Name suggestion published", "candidates", len(candidates))
	return nil
}
