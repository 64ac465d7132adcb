// internal/client/store.go
package client

import (
	"sync"

	"github.com/commandzone/tabletop/internal/models"
	"github.com/commandzone/tabletop/internal/seating"
)

// SnapshotStore holds the most recent authoritative snapshot and the viewer
// context. Every full-state message replaces the snapshot wholesale; the
// store never patches one in place, so out-of-order application cannot
// produce a merged chimera.
type SnapshotStore struct {
	mu     sync.RWMutex
	snap   *models.Snapshot
	viewer models.ViewerContext
	seated bool
}

// NewSnapshotStore returns an empty store awaiting its first snapshot.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Replace installs a new authoritative snapshot, discarding the old one.
func (s *SnapshotStore) Replace(snap *models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

// Current returns the latest snapshot, or false before the first full-state
// message arrives. Callers treat the snapshot as immutable.
func (s *SnapshotStore) Current() (*models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.snap != nil
}

// SetViewer pins the viewer context. Only the first call wins; a rejoin
// builds a whole new session (and store) rather than mutating this one.
func (s *SnapshotStore) SetViewer(ctx models.ViewerContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seated {
		return
	}
	s.viewer = ctx
	s.seated = true
}

// Viewer returns the viewer context and whether it was established yet.
func (s *SnapshotStore) Viewer() (models.ViewerContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewer, s.seated
}

// SeatedView derives the four-seat arrangement for the current viewer from
// the current snapshot. It is recomputed on demand and never cached, so it
// cannot drift from the snapshot it reflects.
func (s *SnapshotStore) SeatedView() (seating.SeatedView, bool) {
	s.mu.RLock()
	snap, viewer, seated := s.snap, s.viewer, s.seated
	s.mu.RUnlock()

	if snap == nil || !seated {
		return seating.SeatedView{}, false
	}
	padded := seating.PadToFour(snap.PlayersByJoinOrder())
	view, err := seating.Rotate(padded, viewer.JoinOrder)
	if err != nil {
		return seating.SeatedView{}, false
	}
	return view, true
}

// ActiveSeat resolves the snapshot's active player to a visual seat index,
// or seating.NoActiveSeat when nothing should highlight.
func (s *SnapshotStore) ActiveSeat() int {
	s.mu.RLock()
	snap, viewer, seated := s.snap, s.viewer, s.seated
	s.mu.RUnlock()

	if snap == nil || !seated {
		return seating.NoActiveSeat
	}
	padded := seating.PadToFour(snap.PlayersByJoinOrder())
	view, err := seating.Rotate(padded, viewer.JoinOrder)
	if err != nil {
		return seating.NoActiveSeat
	}
	return view.ActiveSeat(viewer.JoinOrder, snap.CurrentTurnPlayer)
}

