// internal/ordering/session_test.go
package ordering

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandzone/tabletop/internal/models"
)

func cards(n int) []models.Card {
	out := make([]models.Card, n)
	for i := range out {
		out[i] = models.Card{ID: fmt.Sprintf("c%d", i+1), Name: fmt.Sprintf("Card %d", i+1)}
	}
	return out
}

// total returns the multiset of ids across all pools.
func total(t *testing.T, s *Session, pools ...string) map[string]int {
	t.Helper()
	seen := map[string]int{}
	for _, name := range pools {
		cs, err := s.Pool(name)
		require.NoError(t, err)
		for _, c := range cs {
			seen[c.ID]++
		}
	}
	return seen
}

func TestScryExampleScenario(t *testing.T) {
	s := NewScry(cards(3)) // viewing = [c1 c2 c3]
	require.NoError(t, s.Move("c2", PoolBottom))

	top, bottom, err := s.CommitScry()
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c3"}, top)
	assert.Equal(t, []string{"c2"}, bottom)
}

func TestScryPlacedTopPrecedesLeftovers(t *testing.T) {
	s := NewScry(cards(4))
	require.NoError(t, s.Move("c3", PoolTop))
	require.NoError(t, s.Move("c1", PoolBottom))

	top, bottom, err := s.CommitScry()
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c2", "c4"}, top)
	assert.Equal(t, []string{"c1"}, bottom)
}

func TestConservationUnderMoves(t *testing.T) {
	s := NewScry(cards(5))
	moves := []struct{ id, pool string }{
		{"c1", PoolTop}, {"c2", PoolBottom}, {"c1", PoolBottom},
		{"c3", PoolTop}, {"c2", PoolViewing}, {"c5", PoolBottom},
	}
	for _, m := range moves {
		require.NoError(t, s.Move(m.id, m.pool))

		seen := total(t, s, PoolViewing, PoolTop, PoolBottom)
		sum := 0
		for id, n := range seen {
			assert.Equal(t, 1, n, "card %s duplicated after moving %s to %s", id, m.id, m.pool)
			sum += n
		}
		assert.Equal(t, s.InitialCount(), sum)
	}
}

func TestMoveIsIdempotent(t *testing.T) {
	s := NewSurveil(cards(3))
	require.NoError(t, s.Move("c2", PoolGraveyard))
	require.NoError(t, s.Move("c2", PoolGraveyard))

	gy, err := s.Pool(PoolGraveyard)
	require.NoError(t, err)
	require.Len(t, gy, 1)
	assert.Equal(t, "c2", gy[0].ID)
}

func TestMoveRejectsBadInput(t *testing.T) {
	s := NewScry(cards(2))
	assert.ErrorIs(t, s.Move("c9", PoolTop), ErrUnknownCard)
	assert.ErrorIs(t, s.Move("c1", PoolGraveyard), ErrNoSuchPool)
	_, err := s.Pool("limbo")
	assert.ErrorIs(t, err, ErrNoSuchPool)
}

func TestSurveilCommitPreservesViewingOrder(t *testing.T) {
	s := NewSurveil(cards(4))
	require.NoError(t, s.Move("c2", PoolGraveyard))
	require.NoError(t, s.Move("c4", PoolGraveyard))
	// Pull one back; it returns at the end of viewing.
	require.NoError(t, s.Move("c2", PoolViewing))

	top, gy, err := s.CommitSurveil()
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c3", "c2"}, top)
	assert.Equal(t, []string{"c4"}, gy)
}

func TestMulliganCommit(t *testing.T) {
	s := NewMulligan(cards(7))
	keep, err := s.CommitMulligan(true)
	require.NoError(t, err)
	assert.True(t, keep)
	assert.True(t, s.Done())
}

func TestCommitKindMismatch(t *testing.T) {
	s := NewScry(cards(2))
	_, _, err := s.CommitSurveil()
	assert.Error(t, err)
	// The failed commit must not consume the session.
	assert.False(t, s.Done())

	_, _, err = s.CommitScry()
	assert.NoError(t, err)
}

func TestFinishedSessionRejectsEverything(t *testing.T) {
	s := NewScry(cards(2))
	s.Cancel()
	assert.True(t, s.Done())
	assert.ErrorIs(t, s.Move("c1", PoolTop), ErrSessionDone)
	_, _, err := s.CommitScry()
	assert.ErrorIs(t, err, ErrSessionDone)
}

func TestCounts(t *testing.T) {
	s := NewScry(cards(3))
	require.NoError(t, s.Move("c1", PoolTop))
	counts := s.Counts()
	assert.Equal(t, 2, counts[PoolViewing])
	assert.Equal(t, 1, counts[PoolTop])
	assert.Equal(t, 0, counts[PoolBottom])
}

func TestClampCount(t *testing.T) {
	cases := []struct{ n, size, want int }{
		{5, 60, 5},
		{0, 60, 1},
		{-2, 60, 1},
		{99, 10, 10},
		{1, 1, 1},
		{3, 0, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClampCount(c.n, c.size), "ClampCount(%d, %d)", c.n, c.size)
	}
}
