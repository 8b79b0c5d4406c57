package contextmgr

import (
	"context"
	"strings"
	"testing"

	"github.com/actiquest-dev/membria-core/internal/calibration"
	"github.com/actiquest-dev/membria-core/internal/graphstore"
	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/actiquest-dev/membria-core/internal/planvalidator"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	nk      []*model.NegativeKnowledge
	skills  []*model.Skill
	similar []*graphstore.SimilarDecision
	session *model.SessionContext
	docs    []*model.Document
}

func (f *fakeStore) ListNegativeKnowledge(_ context.Context, domain string, limit int) ([]*model.NegativeKnowledge, error) {
	return f.nk, nil
}

func (f *fakeStore) ListRoleSkills(_ context.Context, roleID string) ([]*model.Skill, error) {
	return f.skills, nil
}

func (f *fakeStore) FindSimilarDecisions(_ context.Context, module string, embedding []float64, limit int) ([]*graphstore.SimilarDecision, error) {
	return f.similar, nil
}

func (f *fakeStore) GetSessionContext(_ context.Context, sessionID string) (*model.SessionContext, error) {
	return f.session, nil
}

func (f *fakeStore) GetDocShotDocuments(_ context.Context, docShotID string) ([]*model.Document, error) {
	return f.docs, nil
}

// memCalStore seeds the calibration engine with a fixed profile per domain.
type memCalStore struct {
	profiles map[string]*model.CalibrationProfile
}

func (m *memCalStore) Load(domain string) (*model.CalibrationProfile, error) {
	return m.profiles[domain], nil
}
func (m *memCalStore) Save(p *model.CalibrationProfile) error { return nil }
func (m *memCalStore) List() ([]*model.CalibrationProfile, error) {
	return nil, nil
}

func seededEngine(domain string, alpha, beta float64) *calibration.Engine {
	p := model.NewCalibrationProfile(domain)
	p.Alpha, p.Beta = alpha, beta
	p.MeanSuccessRate = alpha / (alpha + beta)
	p.Trend = model.TrendStable
	p.SampleSize = alpha + beta - 2
	return calibration.NewEngine(&memCalStore{profiles: map[string]*model.CalibrationProfile{domain: p}}, 0)
}

func TestBuildDecisionContextFlagsOverconfidence(t *testing.T) {
	m := New(&fakeStore{}, seededEngine("database", 9, 3))

	got, err := m.BuildDecisionContext(context.Background(), DecisionContextParams{
		Statement:  "Add new index",
		Module:     "database",
		Confidence: 0.95,
		MaxTokens:  1500,
	})
	require.NoError(t, err)

	require.NotEmpty(t, got.CompactContext)
	require.Contains(t, got.CompactContext, "overconfident")
	require.Contains(t, got.CompactContext, "gap 0.20")
	require.False(t, got.Truncated)
	require.Len(t, got.SectionsIncluded, 1)
	require.Equal(t, "calibration_guidance", got.SectionsIncluded[0].Name)
	require.Equal(t, got.TotalTokens, EstimateTokens(got.CompactContext))
}

func TestBuildDecisionContextSectionPriorityOrder(t *testing.T) {
	store := &fakeStore{
		nk: []*model.NegativeKnowledge{{
			Hypothesis: "new index without online build", Conclusion: "table locked in production", Severity: model.SeverityHigh,
		}},
		similar: []*graphstore.SimilarDecision{{
			Decision: &model.Decision{Statement: "Add covering index", Outcome: model.OutcomeSuccess, Confidence: 0.8},
		}},
		session: &model.SessionContext{SessionID: "s1", Task: "migrate schema"},
	}
	m := New(store, seededEngine("database", 2, 2))

	got, err := m.BuildDecisionContext(context.Background(), DecisionContextParams{
		Statement: "Add new index", Module: "database", Confidence: 0.5,
		MaxTokens: 4000, SessionID: "s1",
	})
	require.NoError(t, err)

	var names []string
	for _, s := range got.SectionsIncluded {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{
		"calibration_guidance", "negative_knowledge_alerts",
		"similar_past_decisions", "session_context_summary",
	}, names)

	calIdx := strings.Index(got.CompactContext, "Calibration guidance")
	nkIdx := strings.Index(got.CompactContext, "Negative knowledge alerts")
	require.Greater(t, nkIdx, calIdx)
}

func TestBuildDecisionContextTruncatesWholeSections(t *testing.T) {
	store := &fakeStore{nk: []*model.NegativeKnowledge{{
		Hypothesis: strings.Repeat("long hypothesis ", 40), Conclusion: "bad", Severity: model.SeverityLow,
	}}}
	m := New(store, seededEngine("database", 2, 2))

	full, err := m.BuildDecisionContext(context.Background(), DecisionContextParams{
		Statement: "long hypothesis review", Module: "database", MaxTokens: 8000,
	})
	require.NoError(t, err)
	require.Len(t, full.SectionsIncluded, 2)

	budget := full.SectionsIncluded[0].Tokens + 2
	tight, err := m.BuildDecisionContext(context.Background(), DecisionContextParams{
		Statement: "long hypothesis review", Module: "database", MaxTokens: budget,
	})
	require.NoError(t, err)

	require.True(t, tight.Truncated)
	require.Len(t, tight.SectionsIncluded, 1)
	require.Equal(t, "calibration_guidance", tight.SectionsIncluded[0].Name)
	require.NotEmpty(t, tight.CompactContext)
	require.LessOrEqual(t, tight.TotalTokens, budget)
}

func TestBuildDecisionContextFiltersNKByStatementKeywords(t *testing.T) {
	store := &fakeStore{nk: []*model.NegativeKnowledge{
		{Hypothesis: "custom JWT implementation", Conclusion: "token forgery", Severity: model.SeverityHigh},
		{Hypothesis: "retry storm on queue full", Conclusion: "cascading failure", Severity: model.SeverityMedium},
	}}
	m := New(store, seededEngine("auth", 2, 2))

	got, err := m.BuildDecisionContext(context.Background(), DecisionContextParams{
		Statement: "Implement custom JWT library", Module: "auth", MaxTokens: 4000,
	})
	require.NoError(t, err)

	require.Contains(t, got.CompactContext, "custom JWT implementation")
	require.NotContains(t, got.CompactContext, "retry storm")

	// A statement sharing no keywords surfaces no NK section at all.
	got, err = m.BuildDecisionContext(context.Background(), DecisionContextParams{
		Statement: "Add login form", Module: "auth", MaxTokens: 4000,
	})
	require.NoError(t, err)
	require.Len(t, got.SectionsIncluded, 1)
	require.Equal(t, "calibration_guidance", got.SectionsIncluded[0].Name)
}

func TestBuildPlanContextRendersCalibrationFirst(t *testing.T) {
	m := New(&fakeStore{}, nil)

	pc := &planvalidator.PlanContext{
		Domain:          "backend",
		Calibration:     &calibration.Guidance{Domain: "backend", MeanSuccessRate: 0.7},
		CalibrationNote: "backend has a mean success rate of 70%",
		FailedApproaches: []planvalidator.FailedApproach{
			{Statement: "hand-roll retries", FailureCount: 3},
		},
		Recommendations: []string{"pad estimates by 30%"},
	}

	got := m.BuildPlanContext(pc, 2000, "", nil)
	require.False(t, got.Truncated)

	calIdx := strings.Index(got.CompactContext, "## Calibration")
	failedIdx := strings.Index(got.CompactContext, "## Failed approaches")
	recIdx := strings.Index(got.CompactContext, "## Recommendations")
	require.GreaterOrEqual(t, calIdx, 0)
	require.Greater(t, failedIdx, calIdx)
	require.Greater(t, recIdx, failedIdx)
}

func TestEstimateTokensIsCharsOverFour(t *testing.T) {
	require.Equal(t, 0, EstimateTokens("abc"))
	require.Equal(t, 1, EstimateTokens("abcd"))
	require.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}
