// internal/seating/seating.go

// Package seating turns the canonical, join-order-indexed player list into
// the per-viewer arrangement: every client renders itself at seat 0 and the
// rest of the table rotates around it.
package seating

import (
	"fmt"

	"github.com/commandzone/tabletop/internal/models"
)

// TableSize is fixed; tables with fewer players are padded with placeholders.
const TableSize = 4

// Visual slot indexes in a SeatedView.
const (
	SeatSelf     = 0
	SeatNext     = 1
	SeatOpposite = 2
	SeatPrevious = 3
)

// NoActiveSeat is returned by ActiveSeat when the active join order does not
// land on a live seat; callers render it as "no seat highlighted".
const NoActiveSeat = -1

// SeatedView is the derived four-seat arrangement [self, next, opposite,
// previous]. It is recomputed from every snapshot and never stored, so it
// cannot drift from the authoritative state.
type SeatedView [TableSize]models.PlayerState

// PadToFour extends a canonical player list to exactly four entries with
// synthetic empty seats. Placeholders carry the commander starting life so an
// empty seat renders sensibly, but they are excluded from every command.
func PadToFour(players []models.PlayerState) []models.PlayerState {
	padded := make([]models.PlayerState, 0, TableSize)
	padded = append(padded, players...)
	if len(padded) > TableSize {
		padded = padded[:TableSize]
	}
	for len(padded) < TableSize {
		n := len(padded)
		padded = append(padded, models.PlayerState{
			ID:        fmt.Sprintf("%s%d", models.PlaceholderIDPrefix, n),
			Name:      fmt.Sprintf("Seat %d", n+1),
			JoinOrder: n,
			Life:      40,
		})
	}
	return padded
}

// Rotate maps the canonical list (sorted ascending by join order, padded to
// four) into the viewer's arrangement: seat i holds the player whose join
// order is (viewerJoinOrder + i) mod 4.
func Rotate(sorted []models.PlayerState, viewerJoinOrder int) (SeatedView, error) {
	var view SeatedView
	if len(sorted) != TableSize {
		return view, fmt.Errorf("seat rotation needs exactly %d players, got %d", TableSize, len(sorted))
	}
	if viewerJoinOrder < 0 || viewerJoinOrder >= TableSize {
		return view, fmt.Errorf("viewer join order %d out of range", viewerJoinOrder)
	}
	for i := 0; i < TableSize; i++ {
		view[i] = sorted[(viewerJoinOrder+i)%TableSize]
	}
	return view, nil
}

// ActiveSeat resolves the canonical active join order to a visual seat
// index for a viewer. Placeholder seats never highlight: if the active join
// order misses every live seat the result is NoActiveSeat rather than an
// error.
func (v SeatedView) ActiveSeat(viewerJoinOrder, activeJoinOrder int) int {
	for i := 0; i < TableSize; i++ {
		if (viewerJoinOrder+i)%TableSize != activeJoinOrder {
			continue
		}
		if v[i].IsPlaceholder() {
			return NoActiveSeat
		}
		return i
	}
	return NoActiveSeat
}
