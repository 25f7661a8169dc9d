package sample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWindowIsZeroFilled(t *testing.T) {
	var w Window
	for _, s := range w.Samples() {
		require.Equal(t, Sample{}, s)
	}
	require.Equal(t, Sample{}, w.Mean(MeanFull))
	require.Equal(t, Sample{}, w.Mean(MeanSkipNewest))
}

func TestPushKeepsMostRecentOldestFirst(t *testing.T) {
	var w Window
	for i := int16(1); i <= 6; i++ {
		w.Push(Sample{i, i, i})
	}
	require.Equal(t, [WindowSize]Sample{
		{2, 2, 2}, {3, 3, 3}, {4, 4, 4}, {5, 5, 5}, {6, 6, 6},
	}, w.Samples())
}

func TestPartialFillKeepsZerosAtFront(t *testing.T) {
	var w Window
	w.Push(Sample{7, 8, 9})
	w.Push(Sample{1, 2, 3})
	require.Equal(t, [WindowSize]Sample{
		{}, {}, {}, {7, 8, 9}, {1, 2, 3},
	}, w.Samples())
}

func TestMeanOfIdenticalSamples(t *testing.T) {
	for _, k := range []int16{0, 5, 10, -25, 1000} {
		var w Window
		for i := 0; i < WindowSize; i++ {
			w.Push(Sample{k, k, k})
		}
		require.Equal(t, Sample{k, k, k}, w.Mean(MeanFull), "k=%d", k)
		// The skip-newest mean only sums four of the five terms.
		want := k * 4 / 5
		require.Equal(t, Sample{want, want, want}, w.Mean(MeanSkipNewest), "k=%d", k)
	}
}

func TestMeanTruncates(t *testing.T) {
	var w Window
	for _, v := range []int16{1, 1, 1, 1, 2} {
		w.Push(Sample{X: v, Y: -v})
	}
	// Full: 6/5 and -6/5 truncate toward zero.
	require.Equal(t, Sample{X: 1, Y: -1}, w.Mean(MeanFull))
	// Skip-newest: the 2 is never summed, and 4 is still divided by 5 rather
	// than by the 4 terms that were added.
	require.Equal(t, Sample{X: 0, Y: 0}, w.Mean(MeanSkipNewest))
}

func TestMeanDoesNotOverflow(t *testing.T) {
	var w Window
	for i := 0; i < WindowSize; i++ {
		w.Push(Sample{math.MaxInt16, math.MinInt16, 0})
	}
	require.Equal(t, Sample{math.MaxInt16, math.MinInt16, 0}, w.Mean(MeanFull))
}

func TestSub(t *testing.T) {
	d := Sub(Sample{math.MaxInt16, 0, -5}, Sample{math.MinInt16, 10001, 5})
	require.Equal(t, Delta{X: 65535, Y: -10001, Z: -10}, d)
	require.Equal(t, [3]int32{65535, -10001, -10}, d.Axes())
}

func TestParseMeanMode(t *testing.T) {
	m, err := ParseMeanMode("full")
	require.NoError(t, err)
	require.Equal(t, MeanFull, m)
	m, err = ParseMeanMode("")
	require.NoError(t, err)
	require.Equal(t, MeanSkipNewest, m)
	require.Equal(t, "skip-newest", m.String())
	_, err = ParseMeanMode("median")
	require.Error(t, err)
}
