// internal/client/store_test.go
package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandzone/tabletop/internal/models"
	"github.com/commandzone/tabletop/internal/seating"
)

func snapshotWith(players ...models.PlayerState) *models.Snapshot {
	snap := &models.Snapshot{Players: map[string]models.PlayerState{}, TurnNumber: 1}
	for _, p := range players {
		snap.Players[p.ID] = p
	}
	return snap
}

func TestStoreReplacesWholesale(t *testing.T) {
	store := NewSnapshotStore()
	_, ok := store.Current()
	assert.False(t, ok)

	first := snapshotWith(models.PlayerState{ID: "p1", Name: "Alice", Life: 40})
	store.Replace(first)

	second := snapshotWith(models.PlayerState{ID: "p2", Name: "Bob", Life: 38})
	second.TurnNumber = 7
	store.Replace(second)

	got, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, 7, got.TurnNumber)
	_, hasOld := got.Players["p1"]
	assert.False(t, hasOld, "old snapshot must not leak into the new one")
}

func TestViewerContextIsSetOnce(t *testing.T) {
	store := NewSnapshotStore()
	_, ok := store.Viewer()
	assert.False(t, ok)

	store.SetViewer(models.ViewerContext{PlayerID: "p1", JoinOrder: 2})
	store.SetViewer(models.ViewerContext{PlayerID: "p9", JoinOrder: 0})

	viewer, ok := store.Viewer()
	require.True(t, ok)
	assert.Equal(t, "p1", viewer.PlayerID)
	assert.Equal(t, 2, viewer.JoinOrder)
}

func TestSeatedViewDerivesFromSnapshot(t *testing.T) {
	store := NewSnapshotStore()
	store.SetViewer(models.ViewerContext{PlayerID: "pC", JoinOrder: 2})

	_, ok := store.SeatedView()
	assert.False(t, ok, "no view before the first snapshot")

	store.Replace(snapshotWith(
		models.PlayerState{ID: "pA", Name: "A", JoinOrder: 0},
		models.PlayerState{ID: "pB", Name: "B", JoinOrder: 1},
		models.PlayerState{ID: "pC", Name: "C", JoinOrder: 2},
		models.PlayerState{ID: "pD", Name: "D", JoinOrder: 3},
	))

	view, ok := store.SeatedView()
	require.True(t, ok)
	assert.Equal(t, "pC", view[seating.SeatSelf].ID)
	assert.Equal(t, "pD", view[seating.SeatNext].ID)
	assert.Equal(t, "pA", view[seating.SeatOpposite].ID)
	assert.Equal(t, "pB", view[seating.SeatPrevious].ID)
}

func TestActiveSeatFromSnapshot(t *testing.T) {
	store := NewSnapshotStore()
	store.SetViewer(models.ViewerContext{PlayerID: "pC", JoinOrder: 2})

	snap := snapshotWith(
		models.PlayerState{ID: "pA", Name: "A", JoinOrder: 0},
		models.PlayerState{ID: "pB", Name: "B", JoinOrder: 1},
		models.PlayerState{ID: "pC", Name: "C", JoinOrder: 2},
		models.PlayerState{ID: "pD", Name: "D", JoinOrder: 3},
	)
	snap.CurrentTurnPlayer = 0
	store.Replace(snap)

	assert.Equal(t, 2, store.ActiveSeat())

	// A two-player table never highlights the padded seats.
	short := snapshotWith(
		models.PlayerState{ID: "pA", Name: "A", JoinOrder: 0},
		models.PlayerState{ID: "pB", Name: "B", JoinOrder: 1},
	)
	short.CurrentTurnPlayer = 3
	store.Replace(short)
	assert.Equal(t, seating.NoActiveSeat, store.ActiveSeat())
}
