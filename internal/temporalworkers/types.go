// Package temporalworkers implements §4.9's two background daemon workers
// (batch processor, health monitor) as go.temporal.io/sdk workflows and
// activities, directly adapted from the teacher's internal/temporal package
// (worker.go/workflow.go/activities.go). Both tasks are periodic and
// failure-prone long-running work against an external system (the graph
// engine) — exactly the shape Temporal's retry policies and schedules
// exist for, and the teacher already depends on this SDK for identical
// periodic-tick semantics in its own ChumAgentWorkflow/DispatcherWorkflow
// pair. The TTL sweep (§4.10) is deliberately NOT modeled this way; see
// internal/ttlsweep and DESIGN.md.
package temporalworkers

// BatchProcessRequest parameterizes one BatchProcessWorkflow execution.
// BatchSize is the normal per-tick claim size; under backpressure (pending
// queue depth over the configured soft cap) the workflow claims
// BackpressureBatchSize instead, running more work per tick rather than
// ticking more often — the Temporal Schedule already ticks at
// workers.batch_processor_tick, so "runs more frequently" under load is
// realized as "drains more per tick" (see DESIGN.md Open Question
// resolution).
type BatchProcessRequest struct {
	BatchSize             int
	BackpressureBatchSize int
	SoftCap                int
}

// BatchProcessResult reports what one workflow execution did.
type BatchProcessResult struct {
	Claimed    int
	Processed  int
	Failed     int
	QueueDepth int64
}

// HealthCheckResult reports the graph engine's observed status.
type HealthCheckResult struct {
	Connected bool
	CheckedAt int64
	Error     string
}
