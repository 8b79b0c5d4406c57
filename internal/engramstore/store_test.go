package engramstore

import (
	"path/filepath"
	"testing"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "engram.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnqueueRejectsAtHardCap(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Enqueue("one", "webhook", 100, 2))
	require.NoError(t, s.Enqueue("two", "webhook", 101, 2))

	err := s.Enqueue("three", "webhook", 102, 2)
	require.ErrorIs(t, err, apperrors.ErrQueueFull)

	depth, err := s.PendingDepth()
	require.NoError(t, err)
	require.Equal(t, int64(2), depth)
}

func TestClaimBatchHidesClaimedRows(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Enqueue("one", "capture", 100, 0))
	require.NoError(t, s.Enqueue("two", "capture", 101, 0))
	require.NoError(t, s.Enqueue("three", "capture", 102, 0))

	batch, err := s.ClaimBatch(2, 200)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, "one", batch[0].Payload)
	require.Equal(t, "two", batch[1].Payload)

	rest, err := s.ClaimBatch(10, 201)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "three", rest[0].Payload)

	none, err := s.ClaimBatch(10, 202)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestReleaseStaleClaimsRecoversUnprocessed(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Enqueue("one", "capture", 100, 0))
	require.NoError(t, s.Enqueue("two", "capture", 101, 0))

	batch, err := s.ClaimBatch(2, 200)
	require.NoError(t, err)
	require.NoError(t, s.MarkProcessed(batch[0].ID, 210))

	released, err := s.ReleaseStaleClaims(300)
	require.NoError(t, err)
	require.Equal(t, int64(1), released)

	again, err := s.ClaimBatch(10, 400)
	require.NoError(t, err)
	require.Len(t, again, 1)
	require.Equal(t, "two", again[0].Payload)
}

func TestDecisionIndexRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.IndexDecision(DecisionIndexEntry{
		DecisionID: "dec_1", Module: "database", Statement: "use migrations",
		Confidence: 0.8, Outcome: "pending", CreatedAt: 100,
	}))
	require.NoError(t, s.IndexDecision(DecisionIndexEntry{
		DecisionID: "dec_2", Module: "frontend", Statement: "adopt vite",
		Confidence: 0.6, Outcome: "pending", CreatedAt: 200,
	}))

	all, err := s.ListRecentDecisionIndex("", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "dec_2", all[0].DecisionID) // most recent first

	db, err := s.ListRecentDecisionIndex("database", 10)
	require.NoError(t, err)
	require.Len(t, db, 1)
	require.Equal(t, "dec_1", db[0].DecisionID)

	require.NoError(t, s.UpdateDecisionIndexOutcome("dec_1", "success"))
	db, err = s.ListRecentDecisionIndex("database", 10)
	require.NoError(t, err)
	require.Equal(t, "success", db[0].Outcome)
}

func TestIndexDecisionUpsertsByID(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.IndexDecision(DecisionIndexEntry{DecisionID: "dec_1", Statement: "v1", CreatedAt: 100}))
	require.NoError(t, s.IndexDecision(DecisionIndexEntry{DecisionID: "dec_1", Statement: "v2", CreatedAt: 150}))

	all, err := s.ListRecentDecisionIndex("", 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "v2", all[0].Statement)
}

func TestEngramIndexFindByCommitAndSession(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.IndexEngram(IndexEntry{
		EngramID: "eng_1", SessionID: "s1", Timestamp: 100, Branch: "main",
		CommitSHA: "abc123", Intent: "add index",
	}))
	require.NoError(t, s.IndexEngram(IndexEntry{
		EngramID: "eng_2", SessionID: "s1", Timestamp: 200, CommitSHA: "def456",
	}))

	byCommit, err := s.FindEngramsByCommit("abc123")
	require.NoError(t, err)
	require.Len(t, byCommit, 1)
	require.Equal(t, "eng_1", byCommit[0].EngramID)

	bySession, err := s.FindEngramsBySession("s1")
	require.NoError(t, err)
	require.Len(t, bySession, 2)
	require.Equal(t, "eng_2", bySession[0].EngramID) // most recent first

	recent, err := s.ListRecentEngramIndex(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "eng_2", recent[0].EngramID)
}

func TestOpenIsIdempotentOnExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engram.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Enqueue("one", "capture", 100, 0))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	depth, err := s2.PendingDepth()
	require.NoError(t, err)
	require.Equal(t, int64(1), depth)
}
