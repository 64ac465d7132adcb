// internal/client/session.go

// Package client owns the channel to the authoritative engine: connection
// lifecycle with bounded retries, inbound dispatch into the snapshot store
// and transient notifications, and the outbound command surface. Truth flows
// one way (engine -> store -> view) and intent flows the other (command ->
// engine); the client never writes game state itself.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/commandzone/tabletop/internal/models"
	"github.com/commandzone/tabletop/internal/monitor"
	"github.com/commandzone/tabletop/internal/ordering"
	"github.com/commandzone/tabletop/internal/protocol"
)

// ConnState tracks the channel lifecycle. Closed and Invalid are both
// terminal; Invalid additionally means the session failed rather than left.
type ConnState string

const (
	StateConnecting ConnState = "connecting"
	StateOpen       ConnState = "open"
	StateClosed     ConnState = "closed"
	StateInvalid    ConnState = "invalid"
)

var (
	// ErrNotOpen is returned when a command is sent outside the Open state.
	ErrNotOpen = errors.New("channel is not open")
	// ErrAlreadyStarted is returned by a second Start on the same session.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrMulliganLimit is returned once the redraw budget is spent; the
	// dealt hand must be kept.
	ErrMulliganLimit = errors.New("mulligan limit reached")
)

// Default lifecycle tuning, overridable through Options.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultMaxRetries     = 3
	DefaultWriteTimeout   = 5 * time.Second
	DefaultDiceNotice     = 4 * time.Second
	DefaultRestartNotice  = 5 * time.Second
	DefaultErrorNotice    = 5 * time.Second
)

// Options configures a session. Zero values fall back to the defaults above.
type Options struct {
	URL        string
	PlayerID   string
	PlayerName string // registered with the engine as soon as the channel opens

	ConnectTimeout time.Duration
	MaxRetries     int
	WriteTimeout   time.Duration

	DiceNoticeFor    time.Duration
	RestartNoticeFor time.Duration
	ErrorNoticeFor   time.Duration

	Dial    DialFunc
	Logger  *logrus.Logger
	Metrics *monitor.Metrics
}

func (o *Options) applyDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.DiceNoticeFor <= 0 {
		o.DiceNoticeFor = DefaultDiceNotice
	}
	if o.RestartNoticeFor <= 0 {
		o.RestartNoticeFor = DefaultRestartNotice
	}
	if o.ErrorNoticeFor <= 0 {
		o.ErrorNoticeFor = DefaultErrorNotice
	}
	if o.Dial == nil {
		o.Dial = WebsocketDial
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
	}
}

// Session is one client's connection to one game. A session exclusively owns
// its channel, store and notifications; a reconnect builds a fresh session
// rather than reviving this one.
type Session struct {
	opts    Options
	log     *logrus.Logger
	store   *SnapshotStore
	notices *Notifications

	mu            sync.Mutex
	state         ConnState
	conn          Conn
	retries       int
	mulligans     int
	started       bool
	connectTimer  *time.Timer
	connectGen    uint64
	cancel        context.CancelFunc
	invalidReason string

	invalidOnce sync.Once
	invalidCh   chan struct{}
}

// NewSession builds a session; Start actually dials.
func NewSession(opts Options) *Session {
	opts.applyDefaults()
	return &Session{
		opts:      opts,
		log:       opts.Logger,
		store:     NewSnapshotStore(),
		notices:   NewNotifications(),
		state:     StateConnecting,
		invalidCh: make(chan struct{}),
	}
}

// Store exposes the authoritative snapshot holder.
func (s *Session) Store() *SnapshotStore { return s.store }

// Notices exposes the transient notification state.
func (s *Session) Notices() *Notifications { return s.notices }

// State reports the current lifecycle state.
func (s *Session) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// InvalidCh is closed exactly once if the session becomes invalid; the
// owner watches it to fall back to the lobby.
func (s *Session) InvalidCh() <-chan struct{} { return s.invalidCh }

// InvalidReason explains a terminal Invalid state.
func (s *Session) InvalidReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidReason
}

// Start begins connecting in the background. The connection-establishment
// timer is already running when Start returns.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.armConnectTimerLocked()
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

func (s *Session) run(ctx context.Context) {
	for {
		if s.State() != StateConnecting {
			return
		}

		dialCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
		conn, err := s.opts.Dial(dialCtx, s.opts.URL)
		cancel()
		if m := s.opts.Metrics; m != nil {
			m.DialAttempts.Inc()
		}
		if err != nil {
			s.log.WithError(err).WithField("url", s.opts.URL).Warn("dial failed")
			if !s.recordFailure() {
				return
			}
			continue
		}

		if !s.onOpen(conn) {
			conn.Close(websocket.StatusNormalClosure, "session finished")
			return
		}

		err = s.readLoop(ctx, conn)
		if !s.onChannelLost(err) {
			return
		}
	}
}

// recordFailure counts one failed attempt; false means the session is done
// (invalid after exhausting the retry budget, or torn down meanwhile).
func (s *Session) recordFailure() bool {
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return false
	}
	s.retries++
	exhausted := s.retries >= s.opts.MaxRetries
	s.mu.Unlock()

	if exhausted {
		s.invalidate("connection attempts exhausted")
		return false
	}
	return true
}

// onOpen transitions to Open: the establishment timer and retry counter are
// cleared and any pending display name is registered immediately.
func (s *Session) onOpen(conn Conn) bool {
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return false
	}
	s.state = StateOpen
	s.conn = conn
	s.retries = 0
	s.stopConnectTimerLocked()
	s.mu.Unlock()

	if m := s.opts.Metrics; m != nil {
		m.ConnectionOpen.Set(1)
	}
	s.log.WithField("url", s.opts.URL).Info("channel open")

	if s.opts.PlayerName != "" {
		if err := s.Send(protocol.NewRegisterName(s.opts.PlayerID, s.opts.PlayerName)); err != nil {
			s.log.WithError(err).Warn("name registration failed")
		}
	}
	return true
}

// onChannelLost handles the read loop ending; true means redial.
func (s *Session) onChannelLost(err error) bool {
	if m := s.opts.Metrics; m != nil {
		m.ConnectionOpen.Set(0)
	}

	s.mu.Lock()
	if s.state != StateOpen {
		// Teardown or invalidation already decided the outcome.
		s.mu.Unlock()
		return false
	}
	s.log.WithError(err).Warn("channel lost while open")
	s.conn = nil
	s.state = StateConnecting
	s.armConnectTimerLocked()
	s.retries++
	exhausted := s.retries >= s.opts.MaxRetries
	s.mu.Unlock()

	if exhausted {
		s.invalidate("connection attempts exhausted")
		return false
	}
	return true
}

func (s *Session) readLoop(ctx context.Context, conn Conn) error {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		s.dispatch(data)
	}
}

// dispatch routes one inbound message by its tag. A payload that fails to
// decode is logged and dropped; it neither crashes the loop nor touches the
// snapshot. Nothing is processed once the session left the Open state.
func (s *Session) dispatch(data []byte) {
	if s.State() != StateOpen {
		return
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		if m := s.opts.Metrics; m != nil {
			m.ProtocolErrors.Inc()
		}
		s.log.WithError(err).Warn("dropping inbound message")
		return
	}

	switch msg.Kind {
	case protocol.MsgGameState:
		snap, err := msg.GameState.DecodeSnapshot()
		if err != nil {
			if m := s.opts.Metrics; m != nil {
				m.ProtocolErrors.Inc()
			}
			s.log.WithError(err).Warn("dropping unreadable snapshot")
			return
		}
		s.store.SetViewer(models.ViewerContext{
			PlayerID:  s.opts.PlayerID,
			JoinOrder: msg.GameState.JoinOrder,
		})
		s.store.Replace(snap)
		if m := s.opts.Metrics; m != nil {
			m.SnapshotsApplied.Inc()
		}

	case protocol.MsgDiceRoll:
		s.notices.SetDice(*msg.DiceRoll, s.opts.DiceNoticeFor)

	case protocol.MsgGameRestarted:
		// A fresh game deals a fresh hand, so the redraw budget resets.
		s.mu.Lock()
		s.mulligans = 0
		s.mu.Unlock()
		s.notices.SetRestart(s.opts.RestartNoticeFor)

	case protocol.MsgRevealCard:
		s.notices.SetReveal(*msg.RevealCard)

	case protocol.MsgError:
		s.notices.SetError(msg.Error.Message, s.opts.ErrorNoticeFor)
	}
}

// Send writes one command to the channel, fire and forget: the effect (or
// its rejection) shows up in the next snapshot, never in a per-command ack.
func (s *Session) Send(cmd protocol.Command) error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrNotOpen
	}
	conn := s.conn
	s.mu.Unlock()

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Kind, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()
	if err := conn.Write(ctx, data); err != nil {
		// The read loop will notice a dead channel; this send is simply lost.
		return fmt.Errorf("write %s: %w", cmd.Kind, err)
	}
	if m := s.opts.Metrics; m != nil {
		m.CommandsSent.Inc()
	}
	return nil
}

// UpdateLife adjusts a player's life total. Empty seats swallow the intent:
// a placeholder target is a no-op, not an error.
func (s *Session) UpdateLife(targetPlayerID string, delta int) error {
	if models.IsPlaceholderID(targetPlayerID) {
		return nil
	}
	return s.Send(protocol.NewUpdateLife(targetPlayerID, delta))
}

// UpdateCounter adjusts a poison/energy/experience counter, with the same
// placeholder no-op rule as UpdateLife.
func (s *Session) UpdateCounter(targetPlayerID string, counter protocol.CounterKind, delta int) error {
	if models.IsPlaceholderID(targetPlayerID) {
		return nil
	}
	cmd, err := protocol.NewUpdateCounter(targetPlayerID, counter, delta)
	if err != nil {
		return err
	}
	return s.Send(cmd)
}

// MoveCard transfers one of the viewer's cards between zones.
func (s *Session) MoveCard(cardID string, from, to models.Zone) error {
	cmd, err := protocol.NewMoveCard(s.opts.PlayerID, cardID, from, to)
	if err != nil {
		return err
	}
	return s.Send(cmd)
}

// TapCard toggles one of the viewer's cards between tapped and untapped.
func (s *Session) TapCard(cardID string) error {
	return s.Send(protocol.NewTapCard(s.opts.PlayerID, cardID))
}

// FlipCard turns one of the viewer's cards face down or back up.
func (s *Session) FlipCard(cardID string) error {
	return s.Send(protocol.NewFlipCard(s.opts.PlayerID, cardID))
}

// FlipCardFace turns a two-sided card over to its other face.
func (s *Session) FlipCardFace(cardID string) error {
	return s.Send(protocol.NewFlipCardFace(s.opts.PlayerID, cardID))
}

// CopyCard asks the engine to spawn a token copy of the card.
func (s *Session) CopyCard(cardID string) error {
	return s.Send(protocol.NewCopyCard(s.opts.PlayerID, cardID))
}

// ManifestCard places a face-down manifest on the battlefield.
func (s *Session) ManifestCard(cardID string, x, y float64) error {
	return s.Send(protocol.NewManifestCard(s.opts.PlayerID, cardID, x, y))
}

// RevealCard shows a card to the whole table.
func (s *Session) RevealCard(cardID, cardName string) error {
	return s.Send(protocol.NewRevealCard(s.opts.PlayerID, cardID, cardName))
}

// DrawCard spawns a named card into the viewer's hand.
func (s *Session) DrawCard(cardName string) error {
	return s.Send(protocol.NewDrawCard(s.opts.PlayerID, cardName))
}

// ShuffleLibrary asks the engine to shuffle the viewer's library.
func (s *Session) ShuffleLibrary() error {
	return s.Send(protocol.NewShuffleLibrary(s.opts.PlayerID))
}

// CompleteScry commits an in-flight scry and sends the resulting order.
func (s *Session) CompleteScry(ord *ordering.Session) error {
	top, bottom, err := ord.CommitScry()
	if err != nil {
		return err
	}
	return s.Send(protocol.NewScryComplete(s.opts.PlayerID, top, bottom))
}

// CompleteSurveil commits an in-flight surveil and sends the resulting order.
func (s *Session) CompleteSurveil(ord *ordering.Session) error {
	top, graveyard, err := ord.CommitSurveil()
	if err != nil {
		return err
	}
	return s.Send(protocol.NewSurveilComplete(s.opts.PlayerID, top, graveyard))
}

// MulligansUsed reports how many redraws this session has taken.
func (s *Session) MulligansUsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mulligans
}

// CompleteMulligan commits an opening-hand decision. A redraw past
// ordering.MaxMulligans is rejected without consuming the session; keeping
// is always allowed.
func (s *Session) CompleteMulligan(ord *ordering.Session, keep bool) error {
	if !keep {
		s.mu.Lock()
		exhausted := s.mulligans >= ordering.MaxMulligans
		s.mu.Unlock()
		if exhausted {
			return ErrMulliganLimit
		}
	}
	keep, err := ord.CommitMulligan(keep)
	if err != nil {
		return err
	}
	if !keep {
		s.mu.Lock()
		s.mulligans++
		s.mu.Unlock()
	}
	return s.Send(protocol.NewMulligan(s.opts.PlayerID, keep))
}

// RollDice rolls locally and broadcasts the result; the engine relays it to
// the table, it does not re-roll.
func (s *Session) RollDice(rollType string) error {
	result, err := rollResult(rollType)
	if err != nil {
		return err
	}
	return s.Send(protocol.NewDiceRoll(s.opts.PlayerID, rollType, result))
}

func rollResult(rollType string) (string, error) {
	switch rollType {
	case "coin":
		if rand.Intn(2) == 0 {
			return "Heads", nil
		}
		return "Tails", nil
	case "d6":
		return strconv.Itoa(rand.Intn(6) + 1), nil
	case "d20":
		return strconv.Itoa(rand.Intn(20) + 1), nil
	}
	return "", fmt.Errorf("unknown roll type %q", rollType)
}

// Close tears the session down on an explicit leave. All pending timers are
// cancelled so nothing fires against the dead session.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed || s.state == StateInvalid {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.stopConnectTimerLocked()
	conn := s.conn
	s.conn = nil
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "leaving game")
	}
	s.notices.Close()
	if m := s.opts.Metrics; m != nil {
		m.ConnectionOpen.Set(0)
	}
	s.log.Info("session closed")
}

// invalidate is the single terminal failure path; it runs its body at most
// once no matter how many races reach it.
func (s *Session) invalidate(reason string) {
	s.invalidOnce.Do(func() {
		s.mu.Lock()
		if s.state == StateClosed {
			// An explicit leave already tore everything down.
			s.mu.Unlock()
			return
		}
		s.state = StateInvalid
		s.invalidReason = reason
		s.stopConnectTimerLocked()
		conn := s.conn
		s.conn = nil
		cancel := s.cancel
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if conn != nil {
			conn.Close(websocket.StatusGoingAway, reason)
		}
		s.notices.Close()
		if m := s.opts.Metrics; m != nil {
			m.ConnectionOpen.Set(0)
		}
		s.log.WithField("reason", reason).Error("session invalid")
		close(s.invalidCh)
	})
}

func (s *Session) armConnectTimerLocked() {
	s.stopConnectTimerLocked()
	s.connectGen++
	gen := s.connectGen
	s.connectTimer = time.AfterFunc(s.opts.ConnectTimeout, func() {
		s.mu.Lock()
		stale := s.state != StateConnecting || s.connectGen != gen
		s.mu.Unlock()
		if stale {
			return
		}
		s.invalidate("connection establishment timed out")
	})
}

func (s *Session) stopConnectTimerLocked() {
	if s.connectTimer != nil {
		s.connectTimer.Stop()
		s.connectTimer = nil
	}
}
