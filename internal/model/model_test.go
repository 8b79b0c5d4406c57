package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecisionValid(t *testing.T) {
	d := &Decision{Confidence: 0.5, Alternatives: []string{"a"}}
	require.NoError(t, d.Valid())

	bad := &Decision{Confidence: 1.5, Alternatives: []string{"a"}}
	require.Error(t, bad.Valid())

	empty := &Decision{Confidence: 0.5}
	require.Error(t, empty.Valid())
}

func TestDecisionExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	d := &Decision{CreatedAt: now.Unix() - 10*86400, TTLDays: 5}
	require.True(t, d.Expired(now))

	fresh := &Decision{CreatedAt: now.Unix(), TTLDays: 30}
	require.False(t, fresh.Expired(now))

	noTTL := &Decision{CreatedAt: 0, TTLDays: 0}
	require.False(t, noTTL.Expired(now))
}

func TestCanTransition(t *testing.T) {
	require.True(t, CanTransition(OutcomeStatusPending, OutcomeStatusSubmitted))
	require.True(t, CanTransition(OutcomeStatusSubmitted, OutcomeStatusCompleted))
	require.False(t, CanTransition(OutcomeStatusMerged, OutcomeStatusPending))
	require.False(t, CanTransition(OutcomeStatusCompleted, OutcomeStatusCompleted))
	require.False(t, CanTransition("bogus", OutcomeStatusPending))
}

func TestClassifyPerformance(t *testing.T) {
	require.Equal(t, ValencePositive, ClassifyPerformance(50, 2000))
	require.Equal(t, ValenceNegative, ClassifyPerformance(150, 2000))
	require.Equal(t, ValenceNegative, ClassifyPerformance(50, 500))
}

func TestEstimateSuccessClamps(t *testing.T) {
	require.Equal(t, 0.5, EstimateSuccess(nil))

	allPositive := make([]Signal, 10)
	for i := range allPositive {
		allPositive[i] = Signal{Valence: ValencePositive}
	}
	require.Equal(t, 1.0, EstimateSuccess(allPositive))

	allNegative := make([]Signal, 10)
	for i := range allNegative {
		allNegative[i] = Signal{Valence: ValenceNegative}
	}
	require.Equal(t, 0.0, EstimateSuccess(allNegative))
}

func TestNeedsAttention(t *testing.T) {
	require.False(t, NeedsAttention([]Signal{{Valence: ValencePositive}, {Valence: ValencePositive}}))
	require.True(t, NeedsAttention([]Signal{{Valence: ValenceNegative}}))
	require.False(t, NeedsAttention(nil)) // baseline 0.5 is not below 0.5
}

func TestSkillQuality(t *testing.T) {
	require.Equal(t, 0.5, SkillQuality(0.9, 2))
	require.InDelta(t, 0.9*(1-1/1.7320508), SkillQuality(0.9, 3), 1e-6)
}

func TestZone(t *testing.T) {
	require.Equal(t, "green", Zone(0.8))
	require.Equal(t, "yellow", Zone(0.6))
	require.Equal(t, "red", Zone(0.2))
}

func TestRemovalSeverity(t *testing.T) {
	require.Equal(t, SeverityHigh, RemovalSeverity(0.9))
	require.Equal(t, SeverityMedium, RemovalSeverity(0.6))
	require.Equal(t, SeverityLow, RemovalSeverity(0.3))
}

func TestSeverityLess(t *testing.T) {
	require.True(t, SeverityLess(SeverityHigh, SeverityMedium))
	require.True(t, SeverityLess(SeverityMedium, SeverityLow))
	require.False(t, SeverityLess(SeverityLow, SeverityHigh))
}

func TestNamespaceString(t *testing.T) {
	ns := Namespace{TenantID: "t", TeamID: "u", ProjectID: "p"}
	require.Equal(t, "t/u/p", ns.String())
	require.True(t, Namespace{}.IsZero())
	require.False(t, ns.IsZero())
}
