// internal/models/snapshot.go
package models

import "sort"

// Snapshot is the complete authoritative game state as of the last
// full-state message. It replaces its predecessor wholesale; nothing in the
// client ever patches one incrementally.
type Snapshot struct {
	Players map[string]PlayerState `json:"players"`

	// Battlefield is the shared play area.
	Battlefield []Card `json:"battlefield"`

	// CurrentTurnPlayer is the join order of the active player.
	CurrentTurnPlayer int `json:"current_turn_player"`
	TurnNumber        int `json:"turn_number"`
}

// PlayersByJoinOrder returns the snapshot's players sorted ascending by
// join order, the canonical input to seat rotation.
func (s *Snapshot) PlayersByJoinOrder() []PlayerState {
	players := make([]PlayerState, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].JoinOrder < players[j].JoinOrder
	})
	return players
}

// Player looks up a player by id.
func (s *Snapshot) Player(id string) (PlayerState, bool) {
	p, ok := s.Players[id]
	return p, ok
}

// ViewerContext identifies who is looking at the table. It is established
// once when the channel opens and is immutable afterward; a rejoin builds a
// fresh context rather than mutating this one.
type ViewerContext struct {
	PlayerID  string
	JoinOrder int
}
