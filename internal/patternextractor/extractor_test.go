package patternextractor

import (
	"context"
	"testing"

	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	decisions []*model.Decision
}

func (f *fakeStore) ListRecentDecisions(_ context.Context, module string, limit int) ([]*model.Decision, error) {
	return f.decisions, nil
}

func dec(id, statement, outcome string) *model.Decision {
	return &model.Decision{ID: id, Statement: statement, Outcome: outcome}
}

func TestExtractGroupsByNormalizedStatement(t *testing.T) {
	store := &fakeStore{decisions: []*model.Decision{
		dec("d1", "Use connection pooling", model.OutcomeSuccess),
		dec("d2", "  use   CONNECTION pooling ", model.OutcomeSuccess),
		dec("d3", "use connection pooling", model.OutcomeFailure),
		dec("d4", "Retry with backoff", model.OutcomeSuccess),
	}}
	e := New(store)

	patterns, err := e.Extract(context.Background(), "backend", 100, 0)
	require.NoError(t, err)
	require.Len(t, patterns, 1) // "retry with backoff" has sample size 1, below default min of 3
	require.Equal(t, "Use connection pooling", patterns[0].Statement)
	require.Equal(t, 3, patterns[0].SampleSize)
	require.InDelta(t, 2.0/3.0, patterns[0].SuccessRate, 1e-9)
	require.Len(t, patterns[0].SupportingDecisions, 3)
}

func TestExtractOrdersBySuccessRateThenSampleSize(t *testing.T) {
	var decisions []*model.Decision
	for i := 0; i < 3; i++ {
		decisions = append(decisions, dec("a"+string(rune('0'+i)), "statement a", model.OutcomeSuccess))
	}
	for i := 0; i < 4; i++ {
		outcome := model.OutcomeSuccess
		if i < 2 {
			outcome = model.OutcomeFailure
		}
		decisions = append(decisions, dec("b"+string(rune('0'+i)), "statement b", outcome))
	}
	store := &fakeStore{decisions: decisions}
	e := New(store)

	patterns, err := e.Extract(context.Background(), "backend", 100, 3)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	require.Equal(t, "statement a", patterns[0].Statement) // 100% success rate
	require.Equal(t, "statement b", patterns[1].Statement) // 50% success rate
}

func TestExtractRespectsCustomMinSampleSize(t *testing.T) {
	store := &fakeStore{decisions: []*model.Decision{
		dec("d1", "rare pattern", model.OutcomeSuccess),
		dec("d2", "rare pattern", model.OutcomeSuccess),
	}}
	e := New(store)

	patterns, err := e.Extract(context.Background(), "backend", 100, 2)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
}
