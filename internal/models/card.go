// internal/models/card.go
package models

// Card is a single game object. Identity is stable for the life of the game:
// a zone transfer relocates the card, it never destroys and recreates it.
type Card struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsTapped  bool   `json:"is_tapped"`
	IsFlipped bool   `json:"is_flipped"`

	// Two-sided card handling. IsBackFace tracks which face is showing.
	IsTwoSided bool `json:"is_two_sided"`
	IsBackFace bool `json:"is_back_face"`

	IsCommander bool `json:"is_commander"`
	IsToken     bool `json:"is_token"`

	// Battlefield placement only; meaningless in ordered zones.
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
}

// CardIDs extracts ids preserving order.
func CardIDs(cards []Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}
