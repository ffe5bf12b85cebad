package forecast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(from, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(from + i)
	}
	return out
}

func TestWindowSeedAndSnapshot(t *testing.T) {
	w, err := NewWindow("income", seq(0, WindowSize), WindowSize)
	require.NoError(t, err)
	assert.Equal(t, WindowSize, w.Len())
	assert.Equal(t, seq(0, WindowSize), w.Snapshot())
}

func TestWindowSlideKeepsLastValues(t *testing.T) {
	for k := 0; k <= 3*WindowSize; k++ {
		w, err := NewWindow("income", seq(0, WindowSize), WindowSize)
		require.NoError(t, err)

		for i := 0; i < k; i++ {
			w.Slide(float64(WindowSize + i))
			require.Equal(t, WindowSize, w.Len())
		}
		assert.Equal(t, seq(k, WindowSize), w.Snapshot(), "after %d slides", k)
	}
}

func TestWindowSnapshotIsCopy(t *testing.T) {
	w, err := NewWindow("income", seq(0, 4), 4)
	require.NoError(t, err)

	snap := w.Snapshot()
	snap[0] = 99
	assert.Equal(t, 0.0, w.Snapshot()[0])
}

func TestWindowSeedDoesNotAliasInput(t *testing.T) {
	in := seq(0, 4)
	w, err := NewWindow("income", in, 4)
	require.NoError(t, err)

	in[0] = 99
	assert.Equal(t, 0.0, w.Snapshot()[0])
}

func TestWindowRejectsShortSeed(t *testing.T) {
	_, err := NewWindow("expenses", seq(0, WindowSize-1), WindowSize)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))

	var he *HistoryError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "expenses", he.Signal)
	assert.Equal(t, WindowSize-1, he.Got)
	assert.Equal(t, WindowSize, he.Want)
}

func TestWindowRejectsLongSeed(t *testing.T) {
	_, err := NewWindow("income", seq(0, WindowSize+1), WindowSize)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
