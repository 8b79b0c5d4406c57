package temporalworkers

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/actiquest-dev/membria-core/internal/engramstore"
	"github.com/actiquest-dev/membria-core/internal/model"
)

type fakeGraph struct {
	connected bool
	added     []*model.Decision
	pingErr   error
}

func (f *fakeGraph) Connected() bool { return f.connected }
func (f *fakeGraph) AddDecision(ctx context.Context, d *model.Decision) error {
	f.added = append(f.added, d)
	return nil
}
func (f *fakeGraph) Ping(ctx context.Context) error { return f.pingErr }

type staticExtractor struct {
	decisions []*model.Decision
	err       error
}

func (e staticExtractor) Extract(ctx context.Context, payload, source string) ([]*model.Decision, error) {
	return e.decisions, e.err
}

func openTestStore(t *testing.T) *engramstore.Store {
	t.Helper()
	store, err := engramstore.Open(filepath.Join(t.TempDir(), "engram.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDrainPendingSignalsActivity_ExtractsAndMarksProcessed(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Enqueue(`{"text":"use postgres"}`, "webhook", 100, 0))

	graph := &fakeGraph{connected: true}
	acts := &Activities{
		Graph:  graph,
		Engram: store,
		Extractor: staticExtractor{decisions: []*model.Decision{{
			ID: "dec_1", Statement: "use postgres", Alternatives: []string{"mysql"},
			Confidence: 0.8, Module: "db", CreatedAt: 100,
		}}},
		Log: slog.Default(),
		Now: func() int64 { return 200 },
	}

	result, err := acts.DrainPendingSignalsActivity(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.Claimed)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 0, result.Failed)
	require.Len(t, graph.added, 1)
	require.Equal(t, "dec_1", graph.added[0].ID)

	depth, err := store.PendingDepth()
	require.NoError(t, err)
	require.Equal(t, int64(0), depth)
}

func TestDrainPendingSignalsActivity_ExtractionFailureIsCountedNotFatal(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Enqueue(`bad`, "webhook", 100, 0))
	require.NoError(t, store.Enqueue(`good`, "webhook", 101, 0))

	calls := 0
	acts := &Activities{
		Graph:  &fakeGraph{connected: true},
		Engram: store,
		Extractor: extractorFunc(func(ctx context.Context, payload, source string) ([]*model.Decision, error) {
			calls++
			if payload == "bad" {
				return nil, errors.New("boom")
			}
			return nil, nil
		}),
		Log: slog.Default(),
		Now: func() int64 { return 200 },
	}

	result, err := acts.DrainPendingSignalsActivity(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 2, result.Claimed)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 2, calls)
}

type extractorFunc func(ctx context.Context, payload, source string) ([]*model.Decision, error)

func (f extractorFunc) Extract(ctx context.Context, payload, source string) ([]*model.Decision, error) {
	return f(ctx, payload, source)
}

func TestHealthCheckActivity_ReportsDisconnected(t *testing.T) {
	acts := &Activities{Graph: &fakeGraph{connected: false}, Engram: openTestStore(t), Log: slog.Default(), Now: func() int64 { return 42 }}
	result, err := acts.HealthCheckActivity(context.Background())
	require.NoError(t, err)
	require.False(t, result.Connected)
	require.Equal(t, int64(42), result.CheckedAt)
}

func TestHealthCheckActivity_ReportsPingFailure(t *testing.T) {
	acts := &Activities{
		Graph:  &fakeGraph{connected: true, pingErr: errors.New("timeout")},
		Engram: openTestStore(t), Log: slog.Default(), Now: func() int64 { return 42 },
	}
	result, err := acts.HealthCheckActivity(context.Background())
	require.NoError(t, err)
	require.False(t, result.Connected)
	require.Equal(t, "timeout", result.Error)
}

func TestHealthCheckActivity_ReportsConnected(t *testing.T) {
	acts := &Activities{Graph: &fakeGraph{connected: true}, Engram: openTestStore(t), Log: slog.Default(), Now: func() int64 { return 42 }}
	result, err := acts.HealthCheckActivity(context.Background())
	require.NoError(t, err)
	require.True(t, result.Connected)
}
