package voting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, b *Ballot, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		changed, err := b.Toggle(id)
		require.NoError(t, err)
		require.True(t, changed, "toggle %d", id)
	}
}

func TestBallotStates(t *testing.T) {
	b := &Ballot{}
	assert.Equal(t, StateNotStarted, b.State())

	fill(t, b, 1)
	assert.Equal(t, StateSelecting, b.State())

	fill(t, b, 1)
	assert.Equal(t, 0, b.Count())
	assert.Equal(t, StateSelecting, b.State())

	fill(t, b, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	assert.Equal(t, StateReady, b.State())
	assert.True(t, b.CanSubmit())

	require.NoError(t, b.BeginSubmit())
	assert.Equal(t, StateSubmitting, b.State())

	b.AbortSubmit()
	assert.Equal(t, StateReady, b.State())

	require.NoError(t, b.BeginSubmit())
	b.Complete()
	assert.Equal(t, StateCompleted, b.State())
}

func TestToggleAtCapacityIgnoresNewPhoto(t *testing.T) {
	b := &Ballot{}
	fill(t, b, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	changed, err := b.Toggle(11)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 10, b.Count())
	assert.False(t, b.Has(11))
}

func TestToggleSelectedAlwaysRemoves(t *testing.T) {
	b := &Ballot{}
	fill(t, b, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	changed, err := b.Toggle(4)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 9, b.Count())
	assert.Equal(t, []int64{1, 2, 3, 5, 6, 7, 8, 9, 10}, b.Selected())
	assert.Equal(t, StateSelecting, b.State())
}

func TestSubmitRequiresExactlyTen(t *testing.T) {
	b := &Ballot{}
	assert.ErrorIs(t, b.BeginSubmit(), ErrNotReady)

	fill(t, b, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	assert.False(t, b.CanSubmit())
	assert.ErrorIs(t, b.BeginSubmit(), ErrNotReady)

	fill(t, b, 10)
	require.NoError(t, b.BeginSubmit())
	assert.ErrorIs(t, b.BeginSubmit(), ErrSubmitting)
}

func TestToggleDuringSubmitIsNoop(t *testing.T) {
	b := NewBallot([]int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, true)
	assert.Equal(t, StateSubmitting, b.State())

	changed, err := b.Toggle(1)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 10, b.Count())
}

func TestCompletedBallotIsClosed(t *testing.T) {
	b := CompletedBallot([]int64{3, 4})
	_, err := b.Toggle(3)
	assert.ErrorIs(t, err, ErrBallotClosed)
	assert.ErrorIs(t, b.BeginSubmit(), ErrBallotClosed)
	assert.True(t, b.Has(3))
}

func TestNewBallotDropsDuplicatesAndOverflow(t *testing.T) {
	b := NewBallot([]int64{1, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, false)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, b.Selected())
	assert.Equal(t, StateReady, b.State())
}
