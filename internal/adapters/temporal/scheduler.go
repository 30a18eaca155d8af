package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/workflows"
)

// Scheduler implements ports.NamingScheduler by starting a naming workflow
// per lookup slot.
type Scheduler struct {
	client    client.Client
	taskQueue string
}

// NewScheduler creates a Scheduler on an existing Temporal client.
func NewScheduler(c client.Client, taskQueue string) *Scheduler {
	if taskQueue == "" {
		taskQueue = workflows.NamingTaskQueue
	}
	return &Scheduler{client: c, taskQueue: taskQueue}
}

// ScheduleNaming starts StationNamingWorkflow. The workflow id includes the
// slot so repeated requests for one station do not collide.
func (s *Scheduler) ScheduleNaming(ctx context.Context, mapID string, stationID int, at domain.GeoPoint, notBefore time.Time) error {
	opts := client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("station-naming-%s-%d-%d", mapID, stationID, notBefore.Unix()),
		TaskQueue:                s.taskQueue,
		WorkflowExecutionTimeout: time.Until(notBefore) + 2*time.Minute,
	}
	_, err := s.client.ExecuteWorkflow(ctx, opts, workflows.StationNamingWorkflow, workflows.StationNamingInput{
		MapID:     mapID,
		StationID: stationID,
		Position:  at,
		NotBefore: notBefore,
	})
	if err != nil {
		return fmt.Errorf("start naming workflow: %w", err)
	}
	return nil
}
