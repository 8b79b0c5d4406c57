package skillgen

import (
	"context"
	"math"
	"testing"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	patterns []model.Pattern
}

func (f *fakeExtractor) Extract(_ context.Context, domain string, limit, minSampleSize int) ([]model.Pattern, error) {
	return f.patterns, nil
}

type fakeStore struct {
	nk         []*model.NegativeKnowledge
	maxVersion int
	added      *model.Skill
}

func (f *fakeStore) ListNegativeKnowledge(_ context.Context, domain string, limit int) ([]*model.NegativeKnowledge, error) {
	return f.nk, nil
}

func (f *fakeStore) AddSkill(_ context.Context, s *model.Skill) error {
	f.added = s
	return nil
}

func (f *fakeStore) MaxSkillVersion(_ context.Context, domain string) (int, error) {
	return f.maxVersion, nil
}

type fakeCalibration struct {
	profile *model.CalibrationProfile
}

func (f *fakeCalibration) Get(domain string) (*model.CalibrationProfile, error) {
	return f.profile, nil
}

func threePatterns() []model.Pattern {
	return []model.Pattern{
		{Statement: "use migrations", SuccessRate: 0.9, SampleSize: 10, SupportingDecisions: []string{"d1", "d2"}},
		{Statement: "shard by tenant", SuccessRate: 0.6, SampleSize: 5, SupportingDecisions: []string{"d3"}},
		{Statement: "cache in process", SuccessRate: 0.2, SampleSize: 5, SupportingDecisions: []string{"d4"}},
	}
}

func dbProfile() *model.CalibrationProfile {
	return &model.CalibrationProfile{
		Domain: "database", Alpha: 9, Beta: 3,
		MeanSuccessRate: 0.75, Trend: model.TrendStable, SampleSize: 10,
	}
}

func TestGenerateRequiresThreePatterns(t *testing.T) {
	g := New(&fakeExtractor{patterns: threePatterns()[:2]}, &fakeStore{}, &fakeCalibration{profile: dbProfile()}, func() int64 { return 1000 })

	_, err := g.Generate(context.Background(), "database", 200)
	require.ErrorIs(t, err, apperrors.ErrNotEligible)
}

func TestGenerateRequiresCalibrationProfile(t *testing.T) {
	g := New(&fakeExtractor{patterns: threePatterns()}, &fakeStore{}, &fakeCalibration{}, func() int64 { return 1000 })

	_, err := g.Generate(context.Background(), "database", 200)
	require.ErrorIs(t, err, apperrors.ErrNotEligible)
}

func TestGeneratePartitionsZonesAndVersions(t *testing.T) {
	store := &fakeStore{
		maxVersion: 2,
		nk: []*model.NegativeKnowledge{{
			Hypothesis: "unbounded result sets", Conclusion: "OOM in production", Severity: model.SeverityHigh,
		}},
	}
	g := New(&fakeExtractor{patterns: threePatterns()}, store, &fakeCalibration{profile: dbProfile()}, func() int64 { return 1000 })

	skill, err := g.Generate(context.Background(), "database", 200)
	require.NoError(t, err)
	require.Same(t, skill, store.added)

	require.Equal(t, "sk-database-v3", skill.ID)
	require.Equal(t, 3, skill.Version)
	require.Equal(t, []string{"use migrations"}, skill.GreenZone)
	require.Equal(t, []string{"shard by tenant"}, skill.YellowZone)
	require.Equal(t, []string{"cache in process"}, skill.RedZone)
	require.Equal(t, 20, skill.SampleSize)
	require.ElementsMatch(t, []string{"d1", "d2", "d3", "d4"}, skill.GeneratedFromDecisions)

	require.Contains(t, skill.Procedure, "## Team Experience")
	require.Contains(t, skill.Procedure, "## Strongly Recommend")
	require.Contains(t, skill.Procedure, "use migrations")
	require.Contains(t, skill.Procedure, "## Avoid")
	require.Contains(t, skill.Procedure, "unbounded result sets")

	require.Equal(t, model.DefaultSkillTTLDays, skill.TTLDays)
	require.Equal(t, int64(1000+model.NextReviewOffsetDays*86400), skill.NextReview)
	require.True(t, skill.IsActive)
}

func TestGenerateQualityScoreFollowsFormula(t *testing.T) {
	g := New(&fakeExtractor{patterns: threePatterns()}, &fakeStore{}, &fakeCalibration{profile: dbProfile()}, func() int64 { return 1000 })

	skill, err := g.Generate(context.Background(), "database", 200)
	require.NoError(t, err)

	want := skill.SuccessRate * (1 - 1/math.Sqrt(float64(skill.SampleSize)))
	require.InDelta(t, want, skill.QualityScore, 1e-9)
}

func TestGenerateFirstVersionIsOne(t *testing.T) {
	store := &fakeStore{}
	g := New(&fakeExtractor{patterns: threePatterns()}, store, &fakeCalibration{profile: dbProfile()}, func() int64 { return 1000 })

	skill, err := g.Generate(context.Background(), "database", 200)
	require.NoError(t, err)
	require.Equal(t, 1, skill.Version)
	require.Equal(t, "sk-database-v1", skill.ID)
}
