// Package webhook dispatches signed inbound VCS/CI events onto the Outcome
// Tracker's state-machine operations (§4.3). Routing itself lives in
// server.go; this file holds the pure event-interpretation logic so it can
// be unit tested without an HTTP server.
package webhook

import (
	"context"
	"fmt"

	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/google/uuid"
)

// Tracker is the subset of *outcometracker.Tracker the dispatcher depends on.
type Tracker interface {
	CreateOutcome(ctx context.Context, id, decisionID string, measuredAt int64, ttlDays int) (*model.Outcome, error)
	RecordCommit(ctx context.Context, outcomeID, commitSHA, message, author string, timestamp int64) (*model.Outcome, error)
	RecordPRCreated(ctx context.Context, outcomeID string, prNumber int, prURL string, submittedAt int64) (*model.Outcome, error)
	RecordPRMerged(ctx context.Context, outcomeID string, mergedAt int64) (*model.Outcome, error)
	RecordCIResult(ctx context.Context, outcomeID string, passed bool, description string, timestamp int64) (*model.Outcome, error)
	RecordIncident(ctx context.Context, outcomeID, description, severity string, timestamp int64) (*model.Outcome, error)
	RecordPerformance(ctx context.Context, outcomeID string, avgLatencyMS, throughputRPS float64, timestamp int64) (*model.Outcome, error)
	FindByCommit(ctx context.Context, commitSHA string) (*model.Outcome, error)
}

// Result is the outcome of dispatching one webhook event, returned to the
// HTTP layer for logging and response shaping. Result.Status is one of
// "success", "ignored", "no_decision_found", or "error" — dispatching never
// panics or returns a Go error for a business-logic miss, only for a genuine
// infrastructure failure (graph store unreachable, etc).
type Result struct {
	Status      string `json:"status"`
	OutcomeID   string `json:"outcome_id,omitempty"`
	Message     string `json:"message,omitempty"`
	EventFamily string `json:"event_family"`
}

func newUUID() string {
	return uuid.NewString()
}

func noDecision(family string) Result {
	return Result{Status: "no_decision_found", EventFamily: family}
}

func ignored(family string) Result {
	return Result{Status: "ignored", EventFamily: family}
}

func errResult(family string, err error) Result {
	return Result{Status: "error", EventFamily: family, Message: err.Error()}
}

func ok(family, outcomeID string) Result {
	return Result{Status: "success", EventFamily: family, OutcomeID: outcomeID}
}

// DispatchPush handles a `push` event: the first commit's message is
// scanned for a decision id; if found, an outcome is created (idempotently)
// and the commit is recorded against it.
func (d *Dispatcher) DispatchPush(ctx context.Context, ev PushEvent) Result {
	if len(ev.Commits) == 0 {
		return noDecision("push")
	}
	first := ev.Commits[0]
	decisionID := ExtractDecisionID(first.Message)
	if decisionID == "" {
		return noDecision("push")
	}

	o, err := d.tracker.CreateOutcome(ctx, "out_"+newUUID(), decisionID, ev.Timestamp, d.defaultTTLDays)
	if err != nil {
		return errResult("push", err)
	}
	if _, err := d.tracker.RecordCommit(ctx, o.ID, first.SHA, first.Message, first.Author, ev.Timestamp); err != nil {
		return errResult("push", err)
	}
	return ok("push", o.ID)
}

// DispatchPullRequest handles `pull_request.opened` and
// `pull_request.closed` (with `merged=true`) events.
func (d *Dispatcher) DispatchPullRequest(ctx context.Context, ev PullRequestEvent) Result {
	switch {
	case ev.Action == "opened":
		decisionID := ExtractDecisionID(ev.Title + " " + ev.Body)
		if decisionID == "" {
			return noDecision("pull_request")
		}
		o, err := d.tracker.CreateOutcome(ctx, "out_"+newUUID(), decisionID, ev.Timestamp, d.defaultTTLDays)
		if err != nil {
			return errResult("pull_request", err)
		}
		if _, err := d.tracker.RecordPRCreated(ctx, o.ID, ev.Number, ev.URL, ev.Timestamp); err != nil {
			return errResult("pull_request", err)
		}
		return ok("pull_request", o.ID)

	case ev.Action == "closed" && ev.Merged:
		o, err := d.resolveOutcome(ctx, ev.Title+" "+ev.Body, ev.HeadSHA)
		if err != nil {
			return errResult("pull_request", err)
		}
		if o == nil {
			return noDecision("pull_request")
		}
		if _, err := d.tracker.RecordPRMerged(ctx, o.ID, ev.Timestamp); err != nil {
			return errResult("pull_request", err)
		}
		return ok("pull_request", o.ID)
	}
	return ignored("pull_request")
}

// DispatchWorkflowRun handles `workflow_run.completed`: CI pass/fail is
// recorded against the outcome found from the head commit message.
func (d *Dispatcher) DispatchWorkflowRun(ctx context.Context, ev WorkflowRunEvent) Result {
	if ev.Status != "completed" {
		return ignored("workflow_run")
	}
	o, err := d.resolveOutcome(ctx, ev.HeadCommitMessage, ev.HeadSHA)
	if err != nil {
		return errResult("workflow_run", err)
	}
	if o == nil {
		return noDecision("workflow_run")
	}
	passed := ev.Conclusion == "success"
	if _, err := d.tracker.RecordCIResult(ctx, o.ID, passed, ev.Name, ev.Timestamp); err != nil {
		return errResult("workflow_run", err)
	}
	return ok("workflow_run", o.ID)
}

// DispatchCheckRun handles `check_run.completed`.
func (d *Dispatcher) DispatchCheckRun(ctx context.Context, ev CheckRunEvent) Result {
	if ev.Status != "completed" {
		return ignored("check_run")
	}
	o, err := d.resolveOutcome(ctx, ev.Name+" "+ev.OutputSummary, ev.HeadSHA)
	if err != nil {
		return errResult("check_run", err)
	}
	if o == nil {
		return noDecision("check_run")
	}
	passed := ev.Conclusion == "success"
	if _, err := d.tracker.RecordCIResult(ctx, o.ID, passed, ev.Name+": "+ev.OutputSummary, ev.Timestamp); err != nil {
		return errResult("check_run", err)
	}
	return ok("check_run", o.ID)
}

// DispatchCIEvent handles the generic `ci_event` family, fanning out on
// EventType to the matching tracker operation.
func (d *Dispatcher) DispatchCIEvent(ctx context.Context, ev CIEvent) Result {
	o, err := d.resolveOutcome(ctx, ev.Message, ev.CommitSHA)
	if err != nil {
		return errResult("ci_event", err)
	}
	if o == nil {
		return noDecision("ci_event")
	}

	switch ev.EventType {
	case "ci_complete", "test_result":
		if _, err := d.tracker.RecordCIResult(ctx, o.ID, ev.Passed, ev.Message, ev.Timestamp); err != nil {
			return errResult("ci_event", err)
		}
	case "performance":
		if _, err := d.tracker.RecordPerformance(ctx, o.ID, ev.AvgLatencyMS, ev.ThroughputRPS, ev.Timestamp); err != nil {
			return errResult("ci_event", err)
		}
	case "incident":
		if _, err := d.tracker.RecordIncident(ctx, o.ID, ev.Message, ev.Severity, ev.Timestamp); err != nil {
			return errResult("ci_event", err)
		}
	default:
		return errResult("ci_event", fmt.Errorf("unknown ci_event event_type %q", ev.EventType))
	}
	return ok("ci_event", o.ID)
}

// resolveOutcome finds the outcome an already-recorded commit belongs to,
// falling back to extracting a fresh decision id from text and creating one
// when no commit-linked outcome exists yet (e.g. CI completing before the
// push handler has been invoked for this delivery).
func (d *Dispatcher) resolveOutcome(ctx context.Context, text, commitSHA string) (*model.Outcome, error) {
	if commitSHA != "" {
		if o, err := d.tracker.FindByCommit(ctx, commitSHA); err != nil {
			return nil, err
		} else if o != nil {
			return o, nil
		}
	}
	decisionID := ExtractDecisionID(text)
	if decisionID == "" {
		return nil, nil
	}
	return d.tracker.CreateOutcome(ctx, "out_"+newUUID(), decisionID, 0, d.defaultTTLDays)
}

// Dispatcher wires event payloads onto Tracker operations.
type Dispatcher struct {
	tracker        Tracker
	defaultTTLDays int
}

// NewDispatcher constructs a Dispatcher. defaultTTLDays is applied to
// outcomes created implicitly (no explicit ttl_days on the inbound event).
func NewDispatcher(tracker Tracker, defaultTTLDays int) *Dispatcher {
	return &Dispatcher{tracker: tracker, defaultTTLDays: defaultTTLDays}
}
