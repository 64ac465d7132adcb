// internal/protocol/server_message.go
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/commandzone/tabletop/internal/models"
)

// ErrUnknownMessage reports an inbound payload whose tag the client does not
// speak. Callers log and drop; an unknown tag never tears down the channel.
var ErrUnknownMessage = errors.New("unknown server message")

// ServerKind discriminates inbound messages after decoding.
type ServerKind string

const (
	MsgGameState     ServerKind = "GameState"
	MsgDiceRoll      ServerKind = "DiceRoll"
	MsgGameRestarted ServerKind = "GameRestarted"
	MsgRevealCard    ServerKind = "RevealCard"
	MsgError         ServerKind = "Error"
)

// GameStatePayload carries the full authoritative state as a re-encoded JSON
// blob plus the join order the engine assigned to this viewer.
type GameStatePayload struct {
	State     string `json:"state"`
	JoinOrder int    `json:"your_join_order"`
}

// DecodeSnapshot parses the embedded state blob.
func (p *GameStatePayload) DecodeSnapshot() (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal([]byte(p.State), &snap); err != nil {
		return nil, fmt.Errorf("decode embedded game state: %w", err)
	}
	return &snap, nil
}

// DiceRollPayload is the table-wide broadcast of one player's roll.
type DiceRollPayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	RollType   string `json:"roll_type"`
	Result     string `json:"result"`
}

// RevealCardPayload is the table-wide broadcast of a revealed card.
type RevealCardPayload struct {
	PlayerName string `json:"player_name"`
	CardID     string `json:"card_id"`
	CardName   string `json:"card_name"`
}

// ErrorPayload is an engine-reported error, surfaced as a transient banner.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ServerMessage is one decoded inbound message. Kind is the discriminant;
// exactly the payload matching it is non-nil.
type ServerMessage struct {
	Kind ServerKind

	GameState  *GameStatePayload
	DiceRoll   *DiceRollPayload
	RevealCard *RevealCardPayload
	Error      *ErrorPayload
}

// Decode parses a single-key tagged wire object into a ServerMessage. It
// probes the known tags explicitly rather than trusting "the object has
// exactly one key" as a discriminant.
func Decode(data []byte) (ServerMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ServerMessage{}, fmt.Errorf("malformed server message: %w", err)
	}

	if raw, ok := envelope[string(MsgGameState)]; ok {
		var p GameStatePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return ServerMessage{}, fmt.Errorf("malformed GameState payload: %w", err)
		}
		return ServerMessage{Kind: MsgGameState, GameState: &p}, nil
	}
	if raw, ok := envelope[string(MsgDiceRoll)]; ok {
		var p DiceRollPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return ServerMessage{}, fmt.Errorf("malformed DiceRoll payload: %w", err)
		}
		return ServerMessage{Kind: MsgDiceRoll, DiceRoll: &p}, nil
	}
	if _, ok := envelope[string(MsgGameRestarted)]; ok {
		return ServerMessage{Kind: MsgGameRestarted}, nil
	}
	if raw, ok := envelope[string(MsgRevealCard)]; ok {
		var p RevealCardPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return ServerMessage{}, fmt.Errorf("malformed RevealCard payload: %w", err)
		}
		return ServerMessage{Kind: MsgRevealCard, RevealCard: &p}, nil
	}
	if raw, ok := envelope[string(MsgError)]; ok {
		var p ErrorPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return ServerMessage{}, fmt.Errorf("malformed Error payload: %w", err)
		}
		return ServerMessage{Kind: MsgError, Error: &p}, nil
	}

	for tag := range envelope {
		return ServerMessage{}, fmt.Errorf("%w: tag %q", ErrUnknownMessage, tag)
	}
	return ServerMessage{}, fmt.Errorf("%w: empty object", ErrUnknownMessage)
}
