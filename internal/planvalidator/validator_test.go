package planvalidator

import (
	"context"
	"testing"

	"github.com/actiquest-dev/membria-core/internal/calibration"
	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	engrams      []*model.Engram
	byEngram     map[string][]*model.Decision
	byOutcome    []*model.Decision
	nk           []*model.NegativeKnowledge
	antipatterns []*model.AntiPattern
}

func (f *fakeStore) ListRecentEngrams(_ context.Context, limit int) ([]*model.Engram, error) {
	return f.engrams, nil
}

func (f *fakeStore) ListDecisionsByEngram(_ context.Context, engramID string) ([]*model.Decision, error) {
	return f.byEngram[engramID], nil
}

func (f *fakeStore) ListDecisionsByOutcome(_ context.Context, module, outcome string, limit int) ([]*model.Decision, error) {
	return f.byOutcome, nil
}

func (f *fakeStore) ListNegativeKnowledge(_ context.Context, domain string, limit int) ([]*model.NegativeKnowledge, error) {
	return f.nk, nil
}

func (f *fakeStore) ListAntiPatternsByRemovalRate(_ context.Context, limit int) ([]*model.AntiPattern, error) {
	return f.antipatterns, nil
}

type fakeCalibration struct {
	guidance *calibration.Guidance
}

func (f *fakeCalibration) GuidanceFor(domain string, confidence float64) (*calibration.Guidance, error) {
	g := *f.guidance
	g.Domain = domain
	g.ConfidenceGap = confidence - g.MeanSuccessRate
	return &g, nil
}

func wellCalibrated() *fakeCalibration {
	return &fakeCalibration{guidance: &calibration.Guidance{
		MeanSuccessRate: 0.95, Trend: model.TrendStable, SampleSize: 10,
	}}
}

func TestValidatePlanFlagsNKOverlap(t *testing.T) {
	store := &fakeStore{nk: []*model.NegativeKnowledge{{
		ID:             "nk_jwt",
		Hypothesis:     "custom JWT implementation",
		Domain:         "auth",
		Severity:       model.SeverityHigh,
		Recommendation: "use established library",
	}}}
	v := NewValidator(store, wellCalibrated())

	res, err := v.ValidatePlan(context.Background(), "auth",
		[]string{"Implement custom JWT library", "Add login form"}, 1000)
	require.NoError(t, err)

	require.Equal(t, 2, res.TotalSteps)
	require.Equal(t, 1, res.WarningsCount)
	require.Equal(t, 1, res.HighSeverity)
	require.False(t, res.CanProceed)

	w := res.Warnings[0]
	require.Equal(t, 1, w.Step)
	require.Equal(t, "negative_knowledge", w.Source)
	require.Equal(t, model.SeverityHigh, w.Severity)
	require.Equal(t, "nk_jwt", w.ReferenceID)
}

func TestValidatePlanSingleWordOverlapDoesNotFire(t *testing.T) {
	store := &fakeStore{nk: []*model.NegativeKnowledge{{
		ID:         "nk_1",
		Hypothesis: "custom retry queue",
		Severity:   model.SeverityHigh,
	}}}
	v := NewValidator(store, wellCalibrated())

	res, err := v.ValidatePlan(context.Background(), "", []string{"Add custom metrics"}, 1000)
	require.NoError(t, err)
	require.Zero(t, res.WarningsCount)
	require.True(t, res.CanProceed)
}

func TestValidatePlanAntiPatternSeverityFromRemovalRate(t *testing.T) {
	store := &fakeStore{antipatterns: []*model.AntiPattern{
		{ID: "ap_poll", Name: "busy polling", RegexPattern: `busy[- ]?poll`, RemovalRate: 0.8},
		{ID: "ap_glob", Name: "global state", RegexPattern: `global (state|variable)`, RemovalRate: 0.6},
	}}
	v := NewValidator(store, wellCalibrated())

	res, err := v.ValidatePlan(context.Background(), "",
		[]string{"Busy-poll the queue", "Store a global variable"}, 1000)
	require.NoError(t, err)

	require.Equal(t, 1, res.HighSeverity)
	require.Equal(t, 1, res.MediumSeverity)
	require.False(t, res.CanProceed)
	// High-severity warnings sort first.
	require.Equal(t, "ap_poll", res.Warnings[0].ReferenceID)
	require.Equal(t, "ap_glob", res.Warnings[1].ReferenceID)
}

func TestValidatePlanPastFailureKeyword(t *testing.T) {
	store := &fakeStore{byOutcome: []*model.Decision{{
		ID: "dec_1", Statement: "Adopt websocket transport", Outcome: model.OutcomeFailure,
	}}}
	v := NewValidator(store, wellCalibrated())

	res, err := v.ValidatePlan(context.Background(), "net",
		[]string{"Websocket event streaming"}, 1000)
	require.NoError(t, err)

	require.Equal(t, 1, res.WarningsCount)
	require.Equal(t, "past_failure", res.Warnings[0].Source)
	require.Equal(t, model.SeverityMedium, res.Warnings[0].Severity)
	require.True(t, res.CanProceed)
}

func TestValidatePlanOverconfidenceWarning(t *testing.T) {
	cal := &fakeCalibration{guidance: &calibration.Guidance{
		MeanSuccessRate: 0.6, Trend: model.TrendStable,
	}}
	v := NewValidator(&fakeStore{}, cal)

	res, err := v.ValidatePlan(context.Background(), "backend", []string{"Ship it"}, 1000)
	require.NoError(t, err)

	require.Equal(t, 1, res.LowSeverity)
	require.Equal(t, "overconfidence", res.Warnings[0].Source)
	require.True(t, res.CanProceed)
}

func TestValidatePlanEmptyStepsYieldsEmptyResult(t *testing.T) {
	v := NewValidator(&fakeStore{}, wellCalibrated())

	res, err := v.ValidatePlan(context.Background(), "", nil, 42)
	require.NoError(t, err)
	require.Zero(t, res.TotalSteps)
	require.Zero(t, res.WarningsCount)
	require.True(t, res.CanProceed)
	require.Equal(t, int64(42), res.Timestamp)
}
