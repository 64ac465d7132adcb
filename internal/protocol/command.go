// internal/protocol/command.go

// Package protocol defines the tagged message vocabulary exchanged with the
// authoritative game engine. Outbound commands encode player intent only;
// the engine is solely responsible for legality and zone-ordering semantics,
// and the client learns the result from the next full-state snapshot.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/commandzone/tabletop/internal/models"
)

// CommandKind discriminates outbound commands. On the wire each command is a
// single-key object whose key is the kind; in memory the kind is always an
// explicit field so nothing has to sniff "which key is set".
type CommandKind string

const (
	CmdUpdateLife      CommandKind = "UpdateLife"
	CmdUpdateCounter   CommandKind = "UpdateCounter"
	CmdMoveCard        CommandKind = "MoveCard"
	CmdTapCard         CommandKind = "TapCard"
	CmdFlipCard        CommandKind = "FlipCard"
	CmdFlipCardFace    CommandKind = "FlipCardFace"
	CmdCopyCard        CommandKind = "CopyCard"
	CmdManifestCard    CommandKind = "ManifestCard"
	CmdRevealCard      CommandKind = "RevealCard"
	CmdDiceRoll        CommandKind = "DiceRoll"
	CmdNextTurn        CommandKind = "NextTurn"
	CmdUndoTurn        CommandKind = "UndoTurn"
	CmdRestartGame     CommandKind = "RestartGame"
	CmdRegisterName    CommandKind = "RegisterName"
	CmdScryComplete    CommandKind = "ScryComplete"
	CmdSurveilComplete CommandKind = "SurveilComplete"
	CmdMulligan        CommandKind = "Mulligan"
	CmdDrawCard        CommandKind = "DrawCard"
	CmdShuffleLibrary  CommandKind = "ShuffleLibrary"
)

// CounterKind names the per-player counters beside life.
type CounterKind string

const (
	CounterPoison     CounterKind = "poison"
	CounterEnergy     CounterKind = "energy"
	CounterExperience CounterKind = "experience"
)

// Command is one outbound intent. Only the fields meaningful for its Kind
// are populated; MarshalJSON picks the right payload shape.
type Command struct {
	Kind CommandKind

	PlayerID string
	CardID   string
	CardName string
	Name     string

	Delta   int
	Counter CounterKind

	FromZone models.Zone
	ToZone   models.Zone

	// Battlefield placement. Pointers so an ordinary zone move omits them.
	PositionX *float64
	PositionY *float64

	RollType string
	Result   string

	Keep bool

	TopCardIDs       []string
	BottomCardIDs    []string
	GraveyardCardIDs []string
}

// NewUpdateLife builds a life-delta intent for a player.
func NewUpdateLife(playerID string, delta int) Command {
	return Command{Kind: CmdUpdateLife, PlayerID: playerID, Delta: delta}
}

// NewUpdateCounter builds a poison/energy/experience delta.
func NewUpdateCounter(playerID string, counter CounterKind, delta int) (Command, error) {
	switch counter {
	case CounterPoison, CounterEnergy, CounterExperience:
	default:
		return Command{}, fmt.Errorf("unknown counter kind %q", string(counter))
	}
	return Command{Kind: CmdUpdateCounter, PlayerID: playerID, Counter: counter, Delta: delta}, nil
}

// NewMoveCard builds a zone-transfer intent. Library pseudo-destinations
// (top/bottom/shuffle) normalize to the library; their ordering side effect
// is the engine's business. Position applies to battlefield drops only.
func NewMoveCard(playerID, cardID string, from, to models.Zone) (Command, error) {
	nf, err := from.Normalize()
	if err != nil {
		return Command{}, err
	}
	nt, err := to.Normalize()
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: CmdMoveCard, PlayerID: playerID, CardID: cardID, FromZone: nf, ToZone: nt}, nil
}

// NewMoveCardAt is NewMoveCard with an explicit battlefield position.
func NewMoveCardAt(playerID, cardID string, from, to models.Zone, x, y float64) (Command, error) {
	cmd, err := NewMoveCard(playerID, cardID, from, to)
	if err != nil {
		return Command{}, err
	}
	cmd.PositionX = &x
	cmd.PositionY = &y
	return cmd, nil
}

// NewTapCard toggles a card's tapped state.
func NewTapCard(playerID, cardID string) Command {
	return Command{Kind: CmdTapCard, PlayerID: playerID, CardID: cardID}
}

// NewFlipCard turns a card face up or face down.
func NewFlipCard(playerID, cardID string) Command {
	return Command{Kind: CmdFlipCard, PlayerID: playerID, CardID: cardID}
}

// NewFlipCardFace switches which face of a two-sided card shows.
func NewFlipCardFace(playerID, cardID string) Command {
	return Command{Kind: CmdFlipCardFace, PlayerID: playerID, CardID: cardID}
}

// NewCopyCard asks the engine for a token copy of a card.
func NewCopyCard(playerID, cardID string) Command {
	return Command{Kind: CmdCopyCard, PlayerID: playerID, CardID: cardID}
}

// NewManifestCard puts the top library card onto the battlefield face down.
func NewManifestCard(playerID, cardID string, x, y float64) Command {
	return Command{Kind: CmdManifestCard, PlayerID: playerID, CardID: cardID, PositionX: &x, PositionY: &y}
}

// NewRevealCard shows a card to the whole table.
func NewRevealCard(playerID, cardID, cardName string) Command {
	return Command{Kind: CmdRevealCard, PlayerID: playerID, CardID: cardID, CardName: cardName}
}

// NewDiceRoll broadcasts a die or coin result already rolled client-side.
func NewDiceRoll(playerID, rollType, result string) Command {
	return Command{Kind: CmdDiceRoll, PlayerID: playerID, RollType: rollType, Result: result}
}

// NewNextTurn advances the turn marker.
func NewNextTurn() Command { return Command{Kind: CmdNextTurn} }

// NewUndoTurn rewinds the turn marker.
func NewUndoTurn() Command { return Command{Kind: CmdUndoTurn} }

// NewRestartGame resets the whole table.
func NewRestartGame() Command { return Command{Kind: CmdRestartGame} }

// NewRegisterName announces the viewer's display name.
func NewRegisterName(playerID, name string) Command {
	return Command{Kind: CmdRegisterName, PlayerID: playerID, Name: name}
}

// NewScryComplete commits a scry: topCardIDs stay on top of the library in
// the given order, bottomCardIDs go to the bottom.
func NewScryComplete(playerID string, topCardIDs, bottomCardIDs []string) Command {
	return Command{Kind: CmdScryComplete, PlayerID: playerID, TopCardIDs: topCardIDs, BottomCardIDs: bottomCardIDs}
}

// NewSurveilComplete commits a surveil: topCardIDs return to the library top
// in order, graveyardCardIDs go to the graveyard.
func NewSurveilComplete(playerID string, topCardIDs, graveyardCardIDs []string) Command {
	return Command{Kind: CmdSurveilComplete, PlayerID: playerID, TopCardIDs: topCardIDs, GraveyardCardIDs: graveyardCardIDs}
}

// NewMulligan reports the opening-hand decision.
func NewMulligan(playerID string, keep bool) Command {
	return Command{Kind: CmdMulligan, PlayerID: playerID, Keep: keep}
}

// NewDrawCard spawns a named card into the player's hand.
func NewDrawCard(playerID, cardName string) Command {
	return Command{Kind: CmdDrawCard, PlayerID: playerID, CardName: cardName}
}

// NewShuffleLibrary asks the engine to shuffle the player's library.
func NewShuffleLibrary(playerID string) Command {
	return Command{Kind: CmdShuffleLibrary, PlayerID: playerID}
}

// Wire payload shapes. Field names follow the engine's snake_case vocabulary.
type (
	playerPayload struct {
		PlayerID string `json:"player_id"`
	}
	lifePayload struct {
		PlayerID string `json:"player_id"`
		Delta    int    `json:"delta"`
	}
	counterPayload struct {
		PlayerID string      `json:"player_id"`
		Counter  CounterKind `json:"counter"`
		Delta    int         `json:"delta"`
	}
	movePayload struct {
		PlayerID  string      `json:"player_id"`
		CardID    string      `json:"card_id"`
		FromZone  models.Zone `json:"from_zone"`
		ToZone    models.Zone `json:"to_zone"`
		PositionX *float64    `json:"position_x,omitempty"`
		PositionY *float64    `json:"position_y,omitempty"`
	}
	cardPayload struct {
		PlayerID string `json:"player_id"`
		CardID   string `json:"card_id"`
	}
	manifestPayload struct {
		PlayerID  string   `json:"player_id"`
		CardID    string   `json:"card_id"`
		PositionX *float64 `json:"position_x"`
		PositionY *float64 `json:"position_y"`
	}
	revealPayload struct {
		PlayerID string `json:"player_id"`
		CardID   string `json:"card_id"`
		CardName string `json:"card_name"`
	}
	dicePayload struct {
		PlayerID string `json:"player_id"`
		RollType string `json:"roll_type"`
		Result   string `json:"result"`
	}
	namePayload struct {
		PlayerID string `json:"player_id"`
		Name     string `json:"name"`
	}
	scryPayload struct {
		PlayerID      string   `json:"player_id"`
		TopCardIDs    []string `json:"top_card_ids"`
		BottomCardIDs []string `json:"bottom_card_ids"`
	}
	surveilPayload struct {
		PlayerID         string   `json:"player_id"`
		TopCardIDs       []string `json:"top_card_ids"`
		GraveyardCardIDs []string `json:"graveyard_card_ids"`
	}
	mulliganPayload struct {
		PlayerID string `json:"player_id"`
		Keep     bool   `json:"keep"`
	}
	drawPayload struct {
		PlayerID string `json:"player_id"`
		CardName string `json:"card_name"`
	}
)

// MarshalJSON renders the command as a single-key tagged object, e.g.
// {"UpdateLife":{"player_id":"p1","delta":-3}}.
func (c Command) MarshalJSON() ([]byte, error) {
	var payload interface{}
	switch c.Kind {
	case CmdUpdateLife:
		payload = lifePayload{c.PlayerID, c.Delta}
	case CmdUpdateCounter:
		payload = counterPayload{c.PlayerID, c.Counter, c.Delta}
	case CmdMoveCard:
		payload = movePayload{c.PlayerID, c.CardID, c.FromZone, c.ToZone, c.PositionX, c.PositionY}
	case CmdTapCard, CmdFlipCard, CmdFlipCardFace, CmdCopyCard:
		payload = cardPayload{c.PlayerID, c.CardID}
	case CmdManifestCard:
		payload = manifestPayload{c.PlayerID, c.CardID, c.PositionX, c.PositionY}
	case CmdRevealCard:
		payload = revealPayload{c.PlayerID, c.CardID, c.CardName}
	case CmdDiceRoll:
		payload = dicePayload{c.PlayerID, c.RollType, c.Result}
	case CmdNextTurn, CmdUndoTurn, CmdRestartGame:
		payload = struct{}{}
	case CmdRegisterName:
		payload = namePayload{c.PlayerID, c.Name}
	case CmdScryComplete:
		payload = scryPayload{c.PlayerID, emptyToSlice(c.TopCardIDs), emptyToSlice(c.BottomCardIDs)}
	case CmdSurveilComplete:
		payload = surveilPayload{c.PlayerID, emptyToSlice(c.TopCardIDs), emptyToSlice(c.GraveyardCardIDs)}
	case CmdMulligan:
		payload = mulliganPayload{c.PlayerID, c.Keep}
	case CmdDrawCard:
		payload = drawPayload{c.PlayerID, c.CardName}
	case CmdShuffleLibrary:
		payload = playerPayload{c.PlayerID}
	default:
		return nil, fmt.Errorf("cannot encode command of kind %q", string(c.Kind))
	}
	return json.Marshal(map[string]interface{}{string(c.Kind): payload})
}

// emptyToSlice keeps committed id lists encoding as [] rather than null.
func emptyToSlice(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
