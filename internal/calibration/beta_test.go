package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeanVariance(t *testing.T) {
	require.InDelta(t, 0.5, Mean(1, 1), 1e-9)
	require.InDelta(t, 0.75, Mean(3, 1), 1e-9)

	// Variance of Beta(1,1) (uniform) is 1/12.
	require.InDelta(t, 1.0/12.0, Variance(1, 1), 1e-9)
}

func TestSampleSize(t *testing.T) {
	require.Equal(t, 0.0, SampleSize(1, 1))
	require.Equal(t, 8.0, SampleSize(5, 5))
}

func TestCredibleInterval95Brackets(t *testing.T) {
	lo, hi := CredibleInterval95(10, 10)
	require.True(t, lo < Mean(10, 10))
	require.True(t, hi > Mean(10, 10))
	require.True(t, lo >= 0 && hi <= 1)
}

func TestCredibleInterval95NarrowsWithMoreData(t *testing.T) {
	loSmall, hiSmall := CredibleInterval95(2, 2)
	loBig, hiBig := CredibleInterval95(200, 200)
	require.Less(t, hiBig-loBig, hiSmall-loSmall)
}

func TestRegularizedIncompleteBetaMonotonic(t *testing.T) {
	prev := 0.0
	for _, x := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		v := regularizedIncompleteBeta(x, 2, 3)
		require.GreaterOrEqual(t, v, prev)
		prev = v
	}
	require.InDelta(t, 0.0, regularizedIncompleteBeta(0, 2, 3), 1e-9)
	require.InDelta(t, 1.0, regularizedIncompleteBeta(1, 2, 3), 1e-9)
}

func TestBetaQuantileRoundTrips(t *testing.T) {
	x := betaQuantile(0.5, 5, 5)
	p := regularizedIncompleteBeta(x, 5, 5)
	require.True(t, math.Abs(p-0.5) < 1e-3)
}
