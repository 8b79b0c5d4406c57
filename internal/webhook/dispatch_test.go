package webhook

import (
	"context"
	"testing"

	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	outcomes    map[string]*model.Outcome
	byCommit    map[string]string
	nextCreated []*model.Outcome
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{outcomes: map[string]*model.Outcome{}, byCommit: map[string]string{}}
}

func (f *fakeTracker) CreateOutcome(_ context.Context, id, decisionID string, measuredAt int64, ttlDays int) (*model.Outcome, error) {
	for _, existing := range f.outcomes {
		if existing.DecisionID == decisionID {
			return existing, nil
		}
	}
	o := &model.Outcome{ID: id, DecisionID: decisionID, Status: model.OutcomeStatusPending, MeasuredAt: measuredAt, TTLDays: ttlDays}
	f.outcomes[id] = o
	f.nextCreated = append(f.nextCreated, o)
	return o, nil
}

func (f *fakeTracker) RecordCommit(_ context.Context, outcomeID, commitSHA, message, author string, timestamp int64) (*model.Outcome, error) {
	o := f.outcomes[outcomeID]
	f.byCommit[commitSHA] = outcomeID
	return o, nil
}

func (f *fakeTracker) RecordPRCreated(_ context.Context, outcomeID string, prNumber int, prURL string, submittedAt int64) (*model.Outcome, error) {
	return f.outcomes[outcomeID], nil
}

func (f *fakeTracker) RecordPRMerged(_ context.Context, outcomeID string, mergedAt int64) (*model.Outcome, error) {
	return f.outcomes[outcomeID], nil
}

func (f *fakeTracker) RecordCIResult(_ context.Context, outcomeID string, passed bool, description string, timestamp int64) (*model.Outcome, error) {
	return f.outcomes[outcomeID], nil
}

func (f *fakeTracker) RecordIncident(_ context.Context, outcomeID, description, severity string, timestamp int64) (*model.Outcome, error) {
	return f.outcomes[outcomeID], nil
}

func (f *fakeTracker) RecordPerformance(_ context.Context, outcomeID string, avgLatencyMS, throughputRPS float64, timestamp int64) (*model.Outcome, error) {
	return f.outcomes[outcomeID], nil
}

func (f *fakeTracker) FindByCommit(_ context.Context, commitSHA string) (*model.Outcome, error) {
	id, ok := f.byCommit[commitSHA]
	if !ok {
		return nil, nil
	}
	return f.outcomes[id], nil
}

func TestDispatchPushCreatesOutcomeWhenDecisionFound(t *testing.T) {
	tracker := newFakeTracker()
	d := NewDispatcher(tracker, 30)

	res := d.DispatchPush(context.Background(), PushEvent{
		Commits: []Commit{{SHA: "abc123", Message: "fix thing\n\nMembria Decision: dec_one", Author: "dev"}},
	})
	require.Equal(t, "success", res.Status)
	require.NotEmpty(t, res.OutcomeID)
	require.Equal(t, "dec_one", tracker.outcomes[res.OutcomeID].DecisionID)
}

func TestDispatchPushNoDecisionFound(t *testing.T) {
	tracker := newFakeTracker()
	d := NewDispatcher(tracker, 30)

	res := d.DispatchPush(context.Background(), PushEvent{
		Commits: []Commit{{SHA: "abc123", Message: "unrelated change"}},
	})
	require.Equal(t, "no_decision_found", res.Status)
}

func TestDispatchPushEmptyCommits(t *testing.T) {
	tracker := newFakeTracker()
	d := NewDispatcher(tracker, 30)

	res := d.DispatchPush(context.Background(), PushEvent{})
	require.Equal(t, "no_decision_found", res.Status)
}

func TestDispatchPullRequestOpenedAndMerged(t *testing.T) {
	tracker := newFakeTracker()
	d := NewDispatcher(tracker, 30)

	opened := d.DispatchPullRequest(context.Background(), PullRequestEvent{
		Action: "opened", Number: 7, Title: "Decision: dec_pr01", HeadSHA: "sha-7",
	})
	require.Equal(t, "success", opened.Status)

	merged := d.DispatchPullRequest(context.Background(), PullRequestEvent{
		Action: "closed", Merged: true, Title: "Decision: dec_pr01", HeadSHA: "sha-7",
	})
	require.Equal(t, "success", merged.Status)
	require.Equal(t, opened.OutcomeID, merged.OutcomeID)
}

func TestDispatchWorkflowRunResolvesByHeadCommitMessage(t *testing.T) {
	tracker := newFakeTracker()
	d := NewDispatcher(tracker, 30)

	res := d.DispatchWorkflowRun(context.Background(), WorkflowRunEvent{
		Status: "completed", Conclusion: "success", HeadCommitMessage: "[dec_wf01] ship it", HeadSHA: "sha-wf",
	})
	require.Equal(t, "success", res.Status)
}

func TestDispatchWorkflowRunIncompleteIsIgnored(t *testing.T) {
	tracker := newFakeTracker()
	d := NewDispatcher(tracker, 30)

	res := d.DispatchWorkflowRun(context.Background(), WorkflowRunEvent{Status: "in_progress"})
	require.Equal(t, "ignored", res.Status)
}

func TestDispatchCIEventUnknownTypeIsError(t *testing.T) {
	tracker := newFakeTracker()
	d := NewDispatcher(tracker, 30)

	res := d.DispatchCIEvent(context.Background(), CIEvent{EventType: "mystery", Message: "dec_ci01"})
	require.Equal(t, "error", res.Status)
}

func TestDispatchCIEventFindsOutcomeFromPriorCommit(t *testing.T) {
	tracker := newFakeTracker()
	d := NewDispatcher(tracker, 30)

	push := d.DispatchPush(context.Background(), PushEvent{
		Commits: []Commit{{SHA: "sha-ci", Message: "Decision: dec_ci02"}},
	})
	require.Equal(t, "success", push.Status)

	res := d.DispatchCIEvent(context.Background(), CIEvent{EventType: "incident", CommitSHA: "sha-ci", Message: "prod down", Severity: "high"})
	require.Equal(t, "success", res.Status)
	require.Equal(t, push.OutcomeID, res.OutcomeID)
}
