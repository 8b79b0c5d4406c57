// Package outcometracker implements the Outcome state machine (§4.2):
// pending -> submitted -> merged -> completed, driven by signed inbound
// webhook events and internally generated signals. The state itself is kept
// as a plain graph-backed record loaded and saved through the Graph Store
// Client on every call, rather than an in-process object graph, per Design
// Notes' "no long-lived pointers" guidance — the same
// load-by-id/mutate/save-by-id shape the teacher uses for
// store.Dispatch.BeadID-style foreign keys instead of embedded pointers.
package outcometracker

import (
	"context"
	"fmt"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/model"
)

// GraphStore is the subset of *graphstore.Client the tracker depends on.
type GraphStore interface {
	AddOutcome(ctx context.Context, o *model.Outcome) error
	GetOutcome(ctx context.Context, id string) (*model.Outcome, error)
	SaveOutcome(ctx context.Context, o *model.Outcome) error
	FindOutcomeByCommit(ctx context.Context, commitSHA string) (*model.Outcome, error)
	FindOutcomeByDecision(ctx context.Context, decisionID string) (*model.Outcome, error)
	ListOutcomes(ctx context.Context, status string, limit int) ([]*model.Outcome, error)
	AddCodeChange(ctx context.Context, cc *model.CodeChange) error
	UpdateDecisionMemory(ctx context.Context, id, outcome string, resolvedAt int64, actualSuccessRate *float64) error
}

// Calibration is the subset of *calibration.Engine the tracker depends on.
type Calibration interface {
	RecordOutcome(domain string, success bool) (*model.CalibrationProfile, error)
}

// Tracker implements the Outcome state machine and signal aggregation.
type Tracker struct {
	store GraphStore
	cal   Calibration
}

// New constructs a Tracker. cal may be nil if finalize-triggered calibration
// updates are not wired (e.g. in tests exercising only the state machine).
func New(store GraphStore, cal Calibration) *Tracker {
	return &Tracker{store: store, cal: cal}
}

// CreateOutcome creates a pending Outcome for a decision, idempotently: if
// one already exists for the decision it is returned unchanged rather than
// duplicated, since webhook deliveries are not guaranteed exactly-once.
func (t *Tracker) CreateOutcome(ctx context.Context, id, decisionID string, measuredAt int64, ttlDays int) (*model.Outcome, error) {
	if existing, err := t.store.FindOutcomeByDecision(ctx, decisionID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	o := &model.Outcome{
		ID:         id,
		Status:     model.OutcomeStatusPending,
		DecisionID: decisionID,
		MeasuredAt: measuredAt,
		TTLDays:    ttlDays,
		IsActive:   true,
	}
	if err := t.store.AddOutcome(ctx, o); err != nil {
		return nil, fmt.Errorf("outcometracker: create_outcome: %w", err)
	}
	return o, nil
}

// load fetches an outcome by id, surfacing apperrors.ErrNotFound unchanged
// per §4.2's "missing outcome id on update returns typed not-found; does not
// create" failure semantics.
func (t *Tracker) load(ctx context.Context, id string) (*model.Outcome, error) {
	o, err := t.store.GetOutcome(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("outcometracker: %w", err)
	}
	return o, nil
}

// transition moves status forward. A repeat of the same transition (to ==
// current status) is an idempotent no-op, reported as changed=false so the
// caller skips re-stamping fields and re-appending signals — webhook
// deliveries are at-least-once, so the same transition name may arrive more
// than once. A genuinely backward move is refused with
// apperrors.ErrInvariantViolation.
func (o *outcomeGuard) transition(to string) (changed bool, err error) {
	if o.o.Status == to {
		return false, nil
	}
	if !model.CanTransition(o.o.Status, to) {
		return false, fmt.Errorf("outcometracker: %s -> %s: %w", o.o.Status, to, apperrors.ErrInvariantViolation)
	}
	o.o.Status = to
	return true, nil
}

type outcomeGuard struct{ o *model.Outcome }

// RecordPRCreated applies pending -> submitted on record_pr_created. A
// redelivery against an already-submitted outcome returns it unchanged.
func (t *Tracker) RecordPRCreated(ctx context.Context, outcomeID string, prNumber int, prURL string, submittedAt int64) (*model.Outcome, error) {
	o, err := t.load(ctx, outcomeID)
	if err != nil {
		return nil, err
	}
	changed, err := (&outcomeGuard{o}).transition(model.OutcomeStatusSubmitted)
	if err != nil {
		return nil, err
	}
	if !changed {
		return o, nil
	}
	o.SubmittedAt = &submittedAt
	o.PRNumber = prNumber
	o.PRURL = prURL
	o.Signals = append(o.Signals, model.Signal{
		SignalType: model.SignalPRCreated, Valence: model.ValenceNeutral,
		Timestamp: submittedAt, Description: fmt.Sprintf("PR #%d opened", prNumber),
	})
	if err := t.store.SaveOutcome(ctx, o); err != nil {
		return nil, fmt.Errorf("outcometracker: record_pr_created: %w", err)
	}
	return o, nil
}

// RecordPRMerged applies submitted -> merged on record_pr_merged. Invoked
// twice on the same outcome it is idempotent: no duplicate state change, no
// second merged_at, no second signal.
func (t *Tracker) RecordPRMerged(ctx context.Context, outcomeID string, mergedAt int64) (*model.Outcome, error) {
	o, err := t.load(ctx, outcomeID)
	if err != nil {
		return nil, err
	}
	changed, err := (&outcomeGuard{o}).transition(model.OutcomeStatusMerged)
	if err != nil {
		return nil, err
	}
	if !changed {
		return o, nil
	}
	o.MergedAt = &mergedAt
	o.Signals = append(o.Signals, model.Signal{
		SignalType: model.SignalPRMerged, Valence: model.ValencePositive,
		Timestamp: mergedAt, Description: "PR merged",
	})
	if err := t.store.SaveOutcome(ctx, o); err != nil {
		return nil, fmt.Errorf("outcometracker: record_pr_merged: %w", err)
	}
	return o, nil
}

// RecordCIResult appends a CI signal without changing status.
func (t *Tracker) RecordCIResult(ctx context.Context, outcomeID string, passed bool, description string, timestamp int64) (*model.Outcome, error) {
	o, err := t.load(ctx, outcomeID)
	if err != nil {
		return nil, err
	}
	signalType, valence := model.SignalCIFailed, model.ValenceNegative
	if passed {
		signalType, valence = model.SignalCIPassed, model.ValencePositive
	}
	o.Signals = append(o.Signals, model.Signal{
		SignalType: signalType, Valence: valence, Timestamp: timestamp, Description: description,
	})
	if err := t.store.SaveOutcome(ctx, o); err != nil {
		return nil, fmt.Errorf("outcometracker: record_ci_result: %w", err)
	}
	return o, nil
}

// RecordIncident appends a negative incident signal without changing
// status.
func (t *Tracker) RecordIncident(ctx context.Context, outcomeID, description, severity string, timestamp int64) (*model.Outcome, error) {
	o, err := t.load(ctx, outcomeID)
	if err != nil {
		return nil, err
	}
	o.Signals = append(o.Signals, model.Signal{
		SignalType: model.SignalIncident, Valence: model.ValenceNegative,
		Timestamp: timestamp, Description: description, Severity: severity,
	})
	if err := t.store.SaveOutcome(ctx, o); err != nil {
		return nil, fmt.Errorf("outcometracker: record_incident: %w", err)
	}
	return o, nil
}

// RecordPerformance appends a performance signal, classified by §4.2's fixed
// rule (ClassifyPerformance), without changing status.
func (t *Tracker) RecordPerformance(ctx context.Context, outcomeID string, avgLatencyMS, throughputRPS float64, timestamp int64) (*model.Outcome, error) {
	o, err := t.load(ctx, outcomeID)
	if err != nil {
		return nil, err
	}
	valence := model.ClassifyPerformance(avgLatencyMS, throughputRPS)
	signalType := model.SignalPerformancePoor
	if valence == model.ValencePositive {
		signalType = model.SignalPerformanceOK
	}
	o.Signals = append(o.Signals, model.Signal{
		SignalType: signalType, Valence: valence, Timestamp: timestamp,
		Description: "performance sample",
		Metrics:     map[string]float64{"avg_latency_ms": avgLatencyMS, "throughput_rps": throughputRPS},
	})
	if err := t.store.SaveOutcome(ctx, o); err != nil {
		return nil, fmt.Errorf("outcometracker: record_performance: %w", err)
	}
	return o, nil
}

// RecordCommit creates a CodeChange linked to the outcome's decision and
// appends no signal of its own; it is the webhook push handler's way of
// recording which commit this outcome's code change is.
func (t *Tracker) RecordCommit(ctx context.Context, outcomeID, commitSHA, message, author string, timestamp int64) (*model.Outcome, error) {
	o, err := t.load(ctx, outcomeID)
	if err != nil {
		return nil, err
	}
	cc := &model.CodeChange{
		ID:         "cc_" + commitSHA,
		CommitSHA:  commitSHA,
		Timestamp:  timestamp,
		Author:     author,
		DecisionID: o.DecisionID,
	}
	if err := t.store.AddCodeChange(ctx, cc); err != nil {
		return nil, fmt.Errorf("outcometracker: record_commit: %w", err)
	}
	o.CodeChangeID = cc.ID
	if err := t.store.SaveOutcome(ctx, o); err != nil {
		return nil, fmt.Errorf("outcometracker: record_commit: %w", err)
	}
	return o, nil
}

// FinalizeOutcome applies any non-terminal -> completed on finalize_outcome,
// writes the final status, score and completed_at, updates the owning Decision's
// memory, and — if decisionDomain is non-empty — folds the result into the
// calibration engine's per-domain posterior. Finalizing an already-completed
// outcome returns it unchanged: no re-save, no second decision update, and
// no double-counted calibration observation.
func (t *Tracker) FinalizeOutcome(ctx context.Context, outcomeID, finalStatus string, finalScore float64, completedAt int64, decisionDomain string) (*model.Outcome, error) {
	o, err := t.load(ctx, outcomeID)
	if err != nil {
		return nil, err
	}
	changed, err := (&outcomeGuard{o}).transition(model.OutcomeStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !changed {
		return o, nil
	}
	o.FinalStatus = finalStatus
	o.FinalScore = finalScore
	o.CompletedAt = &completedAt

	if err := t.store.SaveOutcome(ctx, o); err != nil {
		return nil, fmt.Errorf("outcometracker: finalize_outcome: %w", err)
	}

	if o.DecisionID != "" {
		rate := finalScore
		if err := t.store.UpdateDecisionMemory(ctx, o.DecisionID, finalStatus, completedAt, &rate); err != nil {
			return nil, fmt.Errorf("outcometracker: finalize_outcome: update decision: %w", err)
		}
	}

	if decisionDomain != "" && t.cal != nil {
		success := finalStatus == model.OutcomeSuccess
		if _, err := t.cal.RecordOutcome(decisionDomain, success); err != nil {
			return nil, fmt.Errorf("outcometracker: finalize_outcome: calibration update: %w", err)
		}
	}

	return o, nil
}

// SuccessCriteria is the result of check_success_criteria.
type SuccessCriteria struct {
	OutcomeID        string  `json:"outcome_id"`
	EstimatedSuccess float64 `json:"estimated_success"`
	NegativeCount    int     `json:"negative_count"`
	NeedsAttention   bool    `json:"needs_attention"`
}

// CheckSuccessCriteria computes the running success estimate and attention
// flag for an outcome's current signal set.
func (t *Tracker) CheckSuccessCriteria(ctx context.Context, outcomeID string) (*SuccessCriteria, error) {
	o, err := t.load(ctx, outcomeID)
	if err != nil {
		return nil, err
	}
	return &SuccessCriteria{
		OutcomeID:        outcomeID,
		EstimatedSuccess: model.EstimateSuccess(o.Signals),
		NegativeCount:    model.NegativeCount(o.Signals),
		NeedsAttention:   model.NeedsAttention(o.Signals),
	}, nil
}

// Get returns an outcome by id.
func (t *Tracker) Get(ctx context.Context, outcomeID string) (*model.Outcome, error) {
	return t.load(ctx, outcomeID)
}

// List returns outcomes filtered by status (empty means any).
func (t *Tracker) List(ctx context.Context, status string, limit int) ([]*model.Outcome, error) {
	return t.store.ListOutcomes(ctx, status, limit)
}

// FindByCommit returns the outcome whose code change carries commitSHA, used
// by the webhook handler to make push delivery idempotent.
func (t *Tracker) FindByCommit(ctx context.Context, commitSHA string) (*model.Outcome, error) {
	return t.store.FindOutcomeByCommit(ctx, commitSHA)
}
