package temporalworkers

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// BatchProcessWorkflow drains a bounded batch of pending signals once per
// execution. A Temporal Schedule (wired in cmd/membria-core/main.go) fires
// this workflow on workers.batch_processor_tick; the workflow itself checks
// queue depth and claims a larger batch once the soft cap is exceeded,
// realizing §5's backpressure rule without a second, faster schedule.
func BatchProcessWorkflow(ctx workflow.Context, req BatchProcessRequest) (BatchProcessResult, error) {
	logger := workflow.GetLogger(ctx)

	var a *Activities

	opts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
		},
	}
	actCtx := workflow.WithActivityOptions(ctx, opts)

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	var probe BatchProcessResult
	if err := workflow.ExecuteActivity(actCtx, a.DrainPendingSignalsActivity, 0).Get(ctx, &probe); err != nil {
		logger.Error("batch processor: depth probe failed (non-fatal)", "error", err)
	}
	if req.SoftCap > 0 && probe.QueueDepth > int64(req.SoftCap) && req.BackpressureBatchSize > 0 {
		batchSize = req.BackpressureBatchSize
		logger.Info("batch processor: backpressure engaged", "depth", probe.QueueDepth, "batch_size", batchSize)
	}

	var result BatchProcessResult
	if err := workflow.ExecuteActivity(actCtx, a.DrainPendingSignalsActivity, batchSize).Get(ctx, &result); err != nil {
		return result, err
	}

	logger.Info("batch processor: drained",
		"claimed", result.Claimed, "processed", result.Processed, "failed", result.Failed, "queue_depth", result.QueueDepth)
	return result, nil
}

// HealthMonitorWorkflow runs one graph-engine health check. A Temporal
// Schedule fires this every workers.health_monitor_interval.
func HealthMonitorWorkflow(ctx workflow.Context) (HealthCheckResult, error) {
	logger := workflow.GetLogger(ctx)

	var a *Activities

	opts := workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	actCtx := workflow.WithActivityOptions(ctx, opts)

	var result HealthCheckResult
	if err := workflow.ExecuteActivity(actCtx, a.HealthCheckActivity).Get(ctx, &result); err != nil {
		return result, err
	}

	if result.Connected {
		logger.Debug("health monitor: graph engine reachable")
	} else {
		logger.Warn("health monitor: graph engine unreachable", "error", result.Error)
	}
	return result, nil
}
