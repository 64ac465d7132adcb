// internal/client/session_test.go
package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandzone/tabletop/internal/models"
	"github.com/commandzone/tabletop/internal/ordering"
	"github.com/commandzone/tabletop/internal/protocol"
)

// fakeConn is an in-memory transport: inbound frames are fed through a
// channel, outbound frames are recorded.
type fakeConn struct {
	mu     sync.Mutex
	in     chan []byte
	writes [][]byte
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16)}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-c.in:
		if !ok {
			return nil, errors.New("channel torn down")
		}
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close(code websocket.StatusCode, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

func (c *fakeConn) drop() {
	close(c.in)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testOptions(dial DialFunc) Options {
	return Options{
		URL:            "ws://engine.test/game",
		PlayerID:       "p1",
		PlayerName:     "Alice",
		ConnectTimeout: 200 * time.Millisecond,
		MaxRetries:     3,
		Dial:           dial,
		Logger:         quietLogger(),
	}
}

// gameStateFrame builds the wire form of a full-state message: the snapshot
// travels as a re-encoded JSON string next to the viewer's join order.
func gameStateFrame(t *testing.T, snap models.Snapshot, joinOrder int) []byte {
	t.Helper()
	blob, err := json.Marshal(snap)
	require.NoError(t, err)
	frame, err := json.Marshal(map[string]protocol.GameStatePayload{
		string(protocol.MsgGameState): {State: string(blob), JoinOrder: joinOrder},
	})
	require.NoError(t, err)
	return frame
}

func TestOpenRegistersNameAndSends(t *testing.T) {
	conn := newFakeConn()
	sess := NewSession(testOptions(func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}))
	require.NoError(t, sess.Start())
	defer sess.Close()

	require.Eventually(t, func() bool { return sess.State() == StateOpen }, time.Second, 5*time.Millisecond)

	// The display name goes out as soon as the channel opens.
	require.Eventually(t, func() bool { return len(conn.written()) == 1 }, time.Second, 5*time.Millisecond)
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(conn.written()[0], &envelope))
	_, ok := envelope[string(protocol.CmdRegisterName)]
	assert.True(t, ok, "first frame must register the name")

	require.NoError(t, sess.UpdateLife("p2", -3))
	assert.Len(t, conn.written(), 2)
}

func TestSecondStartFails(t *testing.T) {
	sess := NewSession(testOptions(func(ctx context.Context, url string) (Conn, error) {
		return newFakeConn(), nil
	}))
	require.NoError(t, sess.Start())
	defer sess.Close()
	assert.ErrorIs(t, sess.Start(), ErrAlreadyStarted)
}

func TestSendBeforeOpenFails(t *testing.T) {
	block := make(chan struct{})
	sess := NewSession(testOptions(func(ctx context.Context, url string) (Conn, error) {
		<-block
		return nil, errors.New("never")
	}))
	require.NoError(t, sess.Start())
	defer func() { close(block); sess.Close() }()

	err := sess.Send(protocol.NewNextTurn())
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestDialFailuresExhaustIntoInvalid(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	opts := testOptions(func(ctx context.Context, url string) (Conn, error) {
		mu.Lock()
		attempts++
		mu.Unlock()
		return nil, errors.New("connection refused")
	})
	opts.ConnectTimeout = 5 * time.Second // the retry budget decides, not the timer
	sess := NewSession(opts)
	require.NoError(t, sess.Start())

	select {
	case <-sess.InvalidCh():
	case <-time.After(2 * time.Second):
		t.Fatal("session never became invalid")
	}
	assert.Equal(t, StateInvalid, sess.State())
	assert.Equal(t, "connection attempts exhausted", sess.InvalidReason())
	mu.Lock()
	assert.Equal(t, 3, attempts)
	mu.Unlock()

	// A second failure path must not fire the channel again or flip state.
	sess.Close()
	assert.Equal(t, StateInvalid, sess.State())
}

func TestConnectTimeoutInvalidates(t *testing.T) {
	opts := testOptions(func(ctx context.Context, url string) (Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	opts.ConnectTimeout = 50 * time.Millisecond
	opts.MaxRetries = 100
	sess := NewSession(opts)
	require.NoError(t, sess.Start())

	select {
	case <-sess.InvalidCh():
	case <-time.After(2 * time.Second):
		t.Fatal("establishment timer never fired")
	}
	assert.Equal(t, StateInvalid, sess.State())
}

func TestChannelLossRedialsAndResetsRetries(t *testing.T) {
	var mu sync.Mutex
	var conns []*fakeConn
	sess := NewSession(testOptions(func(ctx context.Context, url string) (Conn, error) {
		mu.Lock()
		defer mu.Unlock()
		c := newFakeConn()
		conns = append(conns, c)
		return c, nil
	}))
	require.NoError(t, sess.Start())
	defer sess.Close()

	require.Eventually(t, func() bool { return sess.State() == StateOpen }, time.Second, 5*time.Millisecond)
	mu.Lock()
	first := conns[0]
	mu.Unlock()

	first.drop()

	// A lost channel re-enters Connecting and comes back up on the next dial.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(conns) == 2 && sess.State() == StateOpen
	}, time.Second, 5*time.Millisecond)
}

func TestGameStateUpdatesStore(t *testing.T) {
	conn := newFakeConn()
	sess := NewSession(testOptions(func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}))
	require.NoError(t, sess.Start())
	defer sess.Close()
	require.Eventually(t, func() bool { return sess.State() == StateOpen }, time.Second, 5*time.Millisecond)

	snap := models.Snapshot{
		Players: map[string]models.PlayerState{
			"p1": {ID: "p1", Name: "Alice", JoinOrder: 0, Life: 37},
			"p2": {ID: "p2", Name: "Bob", JoinOrder: 1, Life: 40},
		},
		TurnNumber: 4,
	}
	conn.in <- gameStateFrame(t, snap, 1)

	require.Eventually(t, func() bool {
		got, ok := sess.Store().Current()
		return ok && got.TurnNumber == 4
	}, time.Second, 5*time.Millisecond)

	viewer, ok := sess.Store().Viewer()
	require.True(t, ok)
	assert.Equal(t, "p1", viewer.PlayerID)
	assert.Equal(t, 1, viewer.JoinOrder)

	got, _ := sess.Store().Current()
	assert.Equal(t, 37, got.Players["p1"].Life)
}

func TestMalformedFramesAreDroppedNotFatal(t *testing.T) {
	conn := newFakeConn()
	sess := NewSession(testOptions(func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}))
	require.NoError(t, sess.Start())
	defer sess.Close()
	require.Eventually(t, func() bool { return sess.State() == StateOpen }, time.Second, 5*time.Millisecond)

	conn.in <- []byte(`not json at all`)
	conn.in <- []byte(`{"NoSuchTag":{}}`)
	conn.in <- []byte(`{"DiceRoll":{"player_name":"Bob","roll_type":"d6","result":"5"}}`)

	require.Eventually(t, func() bool {
		roll, ok := sess.Notices().Dice()
		return ok && roll.Result == "5"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateOpen, sess.State(), "bad frames must not tear the channel down")
}

func TestBroadcastNotices(t *testing.T) {
	conn := newFakeConn()
	opts := testOptions(func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	})
	opts.RestartNoticeFor = time.Hour
	opts.ErrorNoticeFor = time.Hour
	sess := NewSession(opts)
	require.NoError(t, sess.Start())
	defer sess.Close()
	require.Eventually(t, func() bool { return sess.State() == StateOpen }, time.Second, 5*time.Millisecond)

	conn.in <- []byte(`{"GameRestarted":null}`)
	conn.in <- []byte(`{"Error":{"message":"illegal move"}}`)
	conn.in <- []byte(`{"RevealCard":{"player_name":"Bob","card_id":"c9","card_name":"Swamp"}}`)

	require.Eventually(t, func() bool { return sess.Notices().Restarted() }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		msg, ok := sess.Notices().Error()
		return ok && msg == "illegal move"
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		reveal, ok := sess.Notices().Reveal()
		return ok && reveal.CardID == "c9"
	}, time.Second, 5*time.Millisecond)
}

func TestPlaceholderTargetsAreSilentNoOps(t *testing.T) {
	conn := newFakeConn()
	sess := NewSession(testOptions(func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}))
	require.NoError(t, sess.Start())
	defer sess.Close()
	require.Eventually(t, func() bool { return sess.State() == StateOpen }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(conn.written()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, sess.UpdateLife("empty_2", -1))
	require.NoError(t, sess.UpdateCounter("empty_3", protocol.CounterPoison, 1))
	assert.Len(t, conn.written(), 1, "placeholder targets must not reach the wire")
}

func TestCloseIsTerminalAndIdempotent(t *testing.T) {
	conn := newFakeConn()
	sess := NewSession(testOptions(func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}))
	require.NoError(t, sess.Start())
	require.Eventually(t, func() bool { return sess.State() == StateOpen }, time.Second, 5*time.Millisecond)

	sess.Close()
	sess.Close()
	assert.Equal(t, StateClosed, sess.State())

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	assert.True(t, closed)

	assert.ErrorIs(t, sess.Send(protocol.NewNextTurn()), ErrNotOpen)

	select {
	case <-sess.InvalidCh():
		t.Fatal("an explicit leave must not look like a failure")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCompleteScrySendsCommittedOrder(t *testing.T) {
	conn := newFakeConn()
	sess := NewSession(testOptions(func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}))
	require.NoError(t, sess.Start())
	defer sess.Close()
	require.Eventually(t, func() bool { return sess.State() == StateOpen }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(conn.written()) == 1 }, time.Second, 5*time.Millisecond)

	ord := ordering.NewScry([]models.Card{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}})
	require.NoError(t, ord.Move("c2", ordering.PoolBottom))
	require.NoError(t, sess.CompleteScry(ord))

	writes := conn.written()
	require.Len(t, writes, 2)
	var envelope map[string]struct {
		PlayerID      string   `json:"player_id"`
		TopCardIDs    []string `json:"top_card_ids"`
		BottomCardIDs []string `json:"bottom_card_ids"`
	}
	require.NoError(t, json.Unmarshal(writes[1], &envelope))
	payload := envelope[string(protocol.CmdScryComplete)]
	assert.Equal(t, "p1", payload.PlayerID)
	assert.Equal(t, []string{"c1", "c3"}, payload.TopCardIDs)
	assert.Equal(t, []string{"c2"}, payload.BottomCardIDs)

	// The committed session is spent; a second commit sends nothing.
	assert.ErrorIs(t, sess.CompleteScry(ord), ordering.ErrSessionDone)
	assert.Len(t, conn.written(), 2)
}

func TestMulliganRedrawBudget(t *testing.T) {
	conn := newFakeConn()
	sess := NewSession(testOptions(func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}))
	require.NoError(t, sess.Start())
	defer sess.Close()
	require.Eventually(t, func() bool { return sess.State() == StateOpen }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(conn.written()) == 1 }, time.Second, 5*time.Millisecond)

	hand := []models.Card{{ID: "c1"}, {ID: "c2"}}
	for i := 0; i < ordering.MaxMulligans; i++ {
		require.NoError(t, sess.CompleteMulligan(ordering.NewMulligan(hand), false))
	}
	assert.Equal(t, ordering.MaxMulligans, sess.MulligansUsed())

	// The budget is spent: a further redraw is rejected without touching
	// the session or the wire.
	ord := ordering.NewMulligan(hand)
	assert.ErrorIs(t, sess.CompleteMulligan(ord, false), ErrMulliganLimit)
	assert.False(t, ord.Done())
	assert.Len(t, conn.written(), 1+ordering.MaxMulligans)

	// Keeping is still allowed.
	require.NoError(t, sess.CompleteMulligan(ord, true))
	writes := conn.written()
	require.Len(t, writes, 2+ordering.MaxMulligans)
	var envelope map[string]struct {
		Keep bool `json:"keep"`
	}
	require.NoError(t, json.Unmarshal(writes[len(writes)-1], &envelope))
	assert.True(t, envelope[string(protocol.CmdMulligan)].Keep)
}

func TestRestartResetsMulliganBudget(t *testing.T) {
	conn := newFakeConn()
	sess := NewSession(testOptions(func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}))
	require.NoError(t, sess.Start())
	defer sess.Close()
	require.Eventually(t, func() bool { return sess.State() == StateOpen }, time.Second, 5*time.Millisecond)

	hand := []models.Card{{ID: "c1"}}
	for i := 0; i < ordering.MaxMulligans; i++ {
		require.NoError(t, sess.CompleteMulligan(ordering.NewMulligan(hand), false))
	}

	conn.in <- []byte(`{"GameRestarted":null}`)
	require.Eventually(t, func() bool { return sess.MulligansUsed() == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, sess.CompleteMulligan(ordering.NewMulligan(hand), false))
}

func TestRollDiceValidatesType(t *testing.T) {
	conn := newFakeConn()
	sess := NewSession(testOptions(func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}))
	require.NoError(t, sess.Start())
	defer sess.Close()
	require.Eventually(t, func() bool { return sess.State() == StateOpen }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(conn.written()) == 1 }, time.Second, 5*time.Millisecond)

	require.Error(t, sess.RollDice("d13"))
	require.NoError(t, sess.RollDice("coin"))

	writes := conn.written()
	require.Len(t, writes, 2)
	var envelope map[string]protocol.DiceRollPayload
	require.NoError(t, json.Unmarshal(writes[1], &envelope))
	roll := envelope[string(protocol.CmdDiceRoll)]
	assert.Equal(t, "p1", roll.PlayerID)
	assert.Contains(t, []string{"Heads", "Tails"}, roll.Result)
}
