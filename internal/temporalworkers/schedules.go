package temporalworkers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
)

// ScheduleConfig carries the worker cadence settings EnsureSchedules needs,
// lifted from config.Workers so this package does not import config.
type ScheduleConfig struct {
	BatchProcessorTick    time.Duration
	HealthMonitorInterval time.Duration
	PendingQueueSoftCap   int
}

// EnsureSchedules registers the batch-processor and health-monitor Temporal
// Schedules, tolerating schedules that already exist from a previous run.
// Call it after the worker has had a moment to register workflows.
func EnsureSchedules(ctx context.Context, hostPort string, cfg ScheduleConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	tc, err := tclient.Dial(tclient.Options{HostPort: hostPort})
	if err != nil {
		return fmt.Errorf("temporalworkers: dial %s for schedules: %w", hostPort, err)
	}
	defer tc.Close()

	batchTick := cfg.BatchProcessorTick
	if batchTick <= 0 {
		batchTick = 30 * time.Second
	}
	healthInterval := cfg.HealthMonitorInterval
	if healthInterval <= 0 {
		healthInterval = 30 * time.Second
	}

	schedClient := tc.ScheduleClient()

	_, err = schedClient.Create(ctx, tclient.ScheduleOptions{
		ID: "membria-batch-processor",
		Spec: tclient.ScheduleSpec{
			Intervals: []tclient.ScheduleIntervalSpec{{Every: batchTick}},
		},
		Action: &tclient.ScheduleWorkflowAction{
			Workflow: BatchProcessWorkflow,
			Args: []interface{}{BatchProcessRequest{
				BatchSize:             50,
				SoftCap:               cfg.PendingQueueSoftCap,
				BackpressureBatchSize: 200,
			}},
			TaskQueue: TaskQueue,
			ID:        "batch-processor",
		},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	})
	logScheduleResult(logger, "batch processor", batchTick, err)

	_, err = schedClient.Create(ctx, tclient.ScheduleOptions{
		ID: "membria-health-monitor",
		Spec: tclient.ScheduleSpec{
			Intervals: []tclient.ScheduleIntervalSpec{{Every: healthInterval}},
		},
		Action: &tclient.ScheduleWorkflowAction{
			Workflow:  HealthMonitorWorkflow,
			TaskQueue: TaskQueue,
			ID:        "health-monitor",
		},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	})
	logScheduleResult(logger, "health monitor", healthInterval, err)

	return nil
}

// logScheduleResult treats an already-existing schedule as success: the
// schedule survives process restarts by design.
func logScheduleResult(logger *slog.Logger, name string, interval time.Duration, err error) {
	if err == nil {
		logger.Info("temporal schedule registered", "schedule", name, "interval", interval)
		return
	}
	var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
	switch {
	case errors.As(err, &alreadyStarted),
		strings.Contains(err.Error(), "already exists"),
		strings.Contains(err.Error(), "AlreadyExists"),
		strings.Contains(err.Error(), "already registered"):
		logger.Info("temporal schedule already exists", "schedule", name, "interval", interval)
	default:
		logger.Error("failed to create temporal schedule", "schedule", name, "error", err)
	}
}
