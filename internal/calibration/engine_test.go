package calibration

import (
	"testing"

	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/stretchr/testify/require"
)

func TestEngineRecordOutcomeUpdatesPosterior(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), model.Namespace{TenantID: "t", TeamID: "u", ProjectID: "p"})
	require.NoError(t, err)
	engine := NewEngine(store, 0)

	p, err := engine.RecordOutcome("backend", true)
	require.NoError(t, err)
	require.Equal(t, 2.0, p.Alpha)
	require.Equal(t, 1.0, p.Beta)
	require.InDelta(t, 2.0/3.0, p.MeanSuccessRate, 1e-9)

	p, err = engine.RecordOutcome("backend", false)
	require.NoError(t, err)
	require.Equal(t, 2.0, p.Alpha)
	require.Equal(t, 2.0, p.Beta)
	require.InDelta(t, 0.5, p.MeanSuccessRate, 1e-9)
}

func TestEngineRecordOutcomePersists(t *testing.T) {
	dir := t.TempDir()
	ns := model.Namespace{TenantID: "t", TeamID: "u", ProjectID: "p"}

	store1, err := NewFileStore(dir, ns)
	require.NoError(t, err)
	engine1 := NewEngine(store1, 0)
	_, err = engine1.RecordOutcome("backend", true)
	require.NoError(t, err)

	store2, err := NewFileStore(dir, ns)
	require.NoError(t, err)
	engine2 := NewEngine(store2, 0)
	p, err := engine2.Get("backend")
	require.NoError(t, err)
	require.Equal(t, 2.0, p.Alpha)
}

func TestTrendFromWindow(t *testing.T) {
	require.Equal(t, model.TrendUnknown, trendFromWindow([]bool{true, false}))

	improving := []bool{false, false, false, false, true, true, true, true}
	require.Equal(t, model.TrendImproving, trendFromWindow(improving))

	declining := []bool{true, true, true, true, false, false, false, false}
	require.Equal(t, model.TrendDeclining, trendFromWindow(declining))

	stable := []bool{true, false, true, false, true, false, true, false}
	require.Equal(t, model.TrendStable, trendFromWindow(stable))
}

func TestGuidanceForClassifiesOverAndUnderconfidence(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), model.Namespace{})
	require.NoError(t, err)
	engine := NewEngine(store, 0)

	for i := 0; i < 8; i++ {
		_, err := engine.RecordOutcome("frontend", true)
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := engine.RecordOutcome("frontend", false)
		require.NoError(t, err)
	}

	g, err := engine.GuidanceFor("frontend", 0.99)
	require.NoError(t, err)
	require.Equal(t, "overconfident", g.Recommendation)

	g, err = engine.GuidanceFor("frontend", 0.1)
	require.NoError(t, err)
	require.Equal(t, "underconfident", g.Recommendation)
}

func TestRollingWindowBounded(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), model.Namespace{})
	require.NoError(t, err)
	engine := NewEngine(store, 5)

	var p *model.CalibrationProfile
	for i := 0; i < 20; i++ {
		p, err = engine.RecordOutcome("ops", i%2 == 0)
		require.NoError(t, err)
	}
	require.LessOrEqual(t, len(p.RecentOutcomes), 5)
}
