package temporalworkers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/actiquest-dev/membria-core/internal/engramstore"
	"github.com/actiquest-dev/membria-core/internal/model"
)

// GraphStore is the narrow surface the background workers need from
// *graphstore.Client, so activities can be unit-tested without a live
// Neo4j connection.
type GraphStore interface {
	Connected() bool
	AddDecision(ctx context.Context, d *model.Decision) error
	Ping(ctx context.Context) error
}

// Extractor turns one queued pending-signal payload into zero or more
// Decision records. The real extractor (an external, likely LLM-backed,
// text-to-decision pipeline) is explicitly out of scope for this core
// (§4.9); NoopExtractor is the default, leaving the queue draining and
// bookkeeping machinery exercised and correct while the real extraction
// logic is supplied by whatever process wires an Activities value.
type Extractor interface {
	Extract(ctx context.Context, payload, source string) ([]*model.Decision, error)
}

// NoopExtractor reports no decisions for any signal. It exists so the batch
// processor's claim/write/mark-processed cycle runs correctly end to end
// before a real extractor is wired in.
type NoopExtractor struct{}

func (NoopExtractor) Extract(ctx context.Context, payload, source string) ([]*model.Decision, error) {
	return nil, nil
}

// Activities bundles the dependencies §4.9's two background workers need.
// Registered as methods so Temporal's worker.RegisterActivity(acts.X) binds
// them with these fields closed over, matching the teacher's
// internal/temporal.Activities{Store, Tiers, DAG} shape.
type Activities struct {
	Graph     GraphStore
	Engram    *engramstore.Store
	Extractor Extractor
	Log       *slog.Logger
	Now       func() int64
}

func (a *Activities) extractor() Extractor {
	if a.Extractor != nil {
		return a.Extractor
	}
	return NoopExtractor{}
}

func (a *Activities) now() int64 {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().Unix()
}

// DrainPendingSignalsActivity claims up to batchSize unclaimed pending
// signals, extracts decisions from each, writes them to the graph and the
// local decision index, and marks the signal processed. A per-signal
// extraction or write failure is logged and counted but never aborts the
// batch — later signals still get a chance.
func (a *Activities) DrainPendingSignalsActivity(ctx context.Context, batchSize int) (BatchProcessResult, error) {
	if a.Engram == nil {
		return BatchProcessResult{}, fmt.Errorf("temporalworkers: engram store not configured")
	}

	depth, err := a.Engram.PendingDepth()
	if err != nil {
		return BatchProcessResult{}, fmt.Errorf("temporalworkers: pending depth: %w", err)
	}

	claimedAt := a.now()
	batch, err := a.Engram.ClaimBatch(batchSize, claimedAt)
	if err != nil {
		return BatchProcessResult{QueueDepth: depth}, fmt.Errorf("temporalworkers: claim batch: %w", err)
	}

	result := BatchProcessResult{Claimed: len(batch), QueueDepth: depth}
	for _, signal := range batch {
		decisions, err := a.extractor().Extract(ctx, signal.Payload, signal.Source)
		if err != nil {
			result.Failed++
			a.Log.Error("batch processor: extraction failed", "signal_id", signal.ID, "error", err)
			continue
		}

		ok := true
		for _, d := range decisions {
			if a.Graph != nil && a.Graph.Connected() {
				if err := a.Graph.AddDecision(ctx, d); err != nil {
					ok = false
					a.Log.Error("batch processor: writing decision failed", "signal_id", signal.ID, "error", err)
					continue
				}
			}
			if err := a.Engram.IndexDecision(engramstore.DecisionIndexEntry{
				DecisionID: d.ID, Module: d.Module, Statement: d.Statement,
				Confidence: d.Confidence, Outcome: d.Outcome, CreatedAt: d.CreatedAt,
			}); err != nil {
				a.Log.Warn("batch processor: indexing decision failed", "signal_id", signal.ID, "error", err)
			}
		}
		if !ok {
			result.Failed++
			continue
		}

		if err := a.Engram.MarkProcessed(signal.ID, a.now()); err != nil {
			result.Failed++
			a.Log.Error("batch processor: marking processed failed", "signal_id", signal.ID, "error", err)
			continue
		}
		result.Processed++
	}
	return result, nil
}

// HealthCheckActivity runs a trivial read against the graph engine and
// reports whether it succeeded, the §4.9 "records status" requirement.
func (a *Activities) HealthCheckActivity(ctx context.Context) (HealthCheckResult, error) {
	result := HealthCheckResult{CheckedAt: a.now()}
	if a.Graph == nil || !a.Graph.Connected() {
		result.Connected = false
		result.Error = "not connected"
		return result, nil
	}
	if err := a.Graph.Ping(ctx); err != nil {
		result.Connected = false
		result.Error = err.Error()
		return result, nil
	}
	result.Connected = true
	return result, nil
}
