// internal/models/player.go
package models

import "strings"

// PlaceholderIDPrefix marks synthetic players padding a table to four seats.
// Placeholders render as empty seats and are never the target of a command.
const PlaceholderIDPrefix = "empty_"

// PlayerState is one player's slice of the authoritative snapshot.
type PlayerState struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// JoinOrder is assigned once at seat acquisition and never changes for
	// the life of the session. It is the sole input to seat rotation.
	JoinOrder int `json:"join_order"`

	Life       int `json:"life"`
	Poison     int `json:"poison"`
	Energy     int `json:"energy"`
	Experience int `json:"experience"`

	Hand        []Card `json:"hand"`
	Library     []Card `json:"library"`
	Battlefield []Card `json:"battlefield"`
	Graveyard   []Card `json:"graveyard"`
	Exile       []Card `json:"exile"`
	CommandZone []Card `json:"command_zone"`
}

// IsPlaceholder reports whether this entry pads an empty seat.
func (p *PlayerState) IsPlaceholder() bool {
	return IsPlaceholderID(p.ID)
}

// IsPlaceholderID reports whether id belongs to a synthetic empty seat.
func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, PlaceholderIDPrefix)
}

// ZoneCards returns the ordered card list for a real zone, or nil for a
// name that does not resolve to one (pseudo-destinations included).
func (p *PlayerState) ZoneCards(z Zone) []Card {
	switch z {
	case ZoneHand:
		return p.Hand
	case ZoneLibrary:
		return p.Library
	case ZoneBattlefield:
		return p.Battlefield
	case ZoneGraveyard:
		return p.Graveyard
	case ZoneExile:
		return p.Exile
	case ZoneCommandZone:
		return p.CommandZone
	}
	return nil
}
