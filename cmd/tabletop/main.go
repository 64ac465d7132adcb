// cmd/tabletop/main.go
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/commandzone/tabletop/internal/client"
	"github.com/commandzone/tabletop/internal/config"
	"github.com/commandzone/tabletop/internal/identity"
	"github.com/commandzone/tabletop/internal/models"
	"github.com/commandzone/tabletop/internal/monitor"
	"github.com/commandzone/tabletop/internal/ordering"
	"github.com/commandzone/tabletop/internal/protocol"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load(".")
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ids := identity.NewStore(cfg.Identity.Path, cfg.Identity.Persist)
	rec, ok, err := ids.Load(cfg.Server.GameID)
	if err != nil {
		logger.Fatalf("identity: %v", err)
	}
	if !ok {
		rec = identity.Record{
			GameID:     cfg.Server.GameID,
			PlayerID:   uuid.NewString(),
			PlayerName: cfg.Server.PlayerName,
		}
		if err := ids.Save(rec); err != nil {
			logger.Fatalf("identity: %v", err)
		}
		logger.WithField("player_id", rec.PlayerID).Info("new identity created")
	} else {
		logger.WithField("player_id", rec.PlayerID).Info("identity restored")
	}

	var metrics *monitor.Metrics
	if cfg.Metrics.Address != "" {
		metrics = monitor.NewMetrics("tabletop", nil)
		monitor.Serve(cfg.Metrics.Address, logger)
		logger.Infof("metrics on %s", cfg.Metrics.Address)
	}

	sess := client.NewSession(client.Options{
		URL:              cfg.Server.URL,
		PlayerID:         rec.PlayerID,
		PlayerName:       rec.PlayerName,
		ConnectTimeout:   cfg.Server.ConnectTimeout(),
		MaxRetries:       cfg.Server.MaxRetries,
		DiceNoticeFor:    cfg.Notify.DiceFor(),
		RestartNoticeFor: cfg.Notify.RestartFor(),
		ErrorNoticeFor:   cfg.Notify.ErrorFor(),
		Logger:           logger,
		Metrics:          metrics,
	})
	if err := sess.Start(); err != nil {
		logger.Fatalf("session: %v", err)
	}
	logger.Infof("connecting to %s", cfg.Server.URL)

	console := &replConsole{sess: sess}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-sigCh:
			logger.Info("interrupt, leaving game")
			sess.Close()
			return
		case <-sess.InvalidCh():
			logger.Errorf("connection lost for good: %s", sess.InvalidReason())
			os.Exit(1)
		case line, ok := <-lines:
			if !ok {
				sess.Close()
				return
			}
			if err := console.run(line); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	}
}

// console drives the session from stdin. It carries the one in-flight
// ordering session; there is never more than one open at a time.
type replConsole struct {
	sess    *client.Session
	pending *ordering.Session
}

// run executes one console line against the session. The console is a thin
// driver; all rules live server-side and arrive back as snapshots.
func (c *replConsole) run(line string) error {
	sess := c.sess
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "help":
		fmt.Println("commands: life <player> <delta> | counter <player> <kind> <delta> | roll <coin|d6|d20>")
		fmt.Println("          move <card> <from> <to> | tap <card> | flip <card> | transform <card>")
		fmt.Println("          copy <card> | reveal <card> <name> | manifest <card> <x> <y>")
		fmt.Println("          draw <name> | shuffle | scry <n> | surveil <n> | mulligan")
		fmt.Println("          put <card> <pool> | commit [keep] | cancel")
		fmt.Println("          next | undo | restart | state | quit")
		return nil

	case "life":
		if len(fields) != 3 {
			return fmt.Errorf("usage: life <player> <delta>")
		}
		delta, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("bad delta %q", fields[2])
		}
		return sess.UpdateLife(fields[1], delta)

	case "counter":
		if len(fields) != 4 {
			return fmt.Errorf("usage: counter <player> <kind> <delta>")
		}
		delta, err := strconv.Atoi(fields[3])
		if err != nil {
			return fmt.Errorf("bad delta %q", fields[3])
		}
		return sess.UpdateCounter(fields[1], protocol.CounterKind(fields[2]), delta)

	case "roll":
		if len(fields) != 2 {
			return fmt.Errorf("usage: roll <coin|d6|d20>")
		}
		return sess.RollDice(fields[1])

	case "move":
		if len(fields) != 4 {
			return fmt.Errorf("usage: move <card> <from> <to>")
		}
		return sess.MoveCard(fields[1], models.Zone(fields[2]), models.Zone(fields[3]))

	case "tap":
		if len(fields) != 2 {
			return fmt.Errorf("usage: tap <card>")
		}
		return sess.TapCard(fields[1])

	case "flip":
		if len(fields) != 2 {
			return fmt.Errorf("usage: flip <card>")
		}
		return sess.FlipCard(fields[1])

	case "transform":
		if len(fields) != 2 {
			return fmt.Errorf("usage: transform <card>")
		}
		return sess.FlipCardFace(fields[1])

	case "copy":
		if len(fields) != 2 {
			return fmt.Errorf("usage: copy <card>")
		}
		return sess.CopyCard(fields[1])

	case "reveal":
		if len(fields) < 3 {
			return fmt.Errorf("usage: reveal <card> <card name>")
		}
		return sess.RevealCard(fields[1], strings.Join(fields[2:], " "))

	case "manifest":
		if len(fields) != 4 {
			return fmt.Errorf("usage: manifest <card> <x> <y>")
		}
		x, errX := strconv.ParseFloat(fields[2], 64)
		y, errY := strconv.ParseFloat(fields[3], 64)
		if errX != nil || errY != nil {
			return fmt.Errorf("bad position %q %q", fields[2], fields[3])
		}
		return sess.ManifestCard(fields[1], x, y)

	case "draw":
		if len(fields) < 2 {
			return fmt.Errorf("usage: draw <card name>")
		}
		return sess.DrawCard(strings.Join(fields[1:], " "))

	case "shuffle":
		return sess.ShuffleLibrary()

	case "scry", "surveil":
		if len(fields) != 2 {
			return fmt.Errorf("usage: %s <n>", fields[0])
		}
		if c.pending != nil && !c.pending.Done() {
			return fmt.Errorf("an ordering session is already open (commit or cancel it)")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("bad count %q", fields[1])
		}
		cards, err := c.libraryTop(n)
		if err != nil {
			return err
		}
		if fields[0] == "scry" {
			c.pending = ordering.NewScry(cards)
		} else {
			c.pending = ordering.NewSurveil(cards)
		}
		for _, card := range cards {
			fmt.Printf("viewing: %s (%s)\n", card.Name, card.ID)
		}
		return nil

	case "mulligan":
		if c.pending != nil && !c.pending.Done() {
			return fmt.Errorf("an ordering session is already open (commit or cancel it)")
		}
		player, err := c.viewerState()
		if err != nil {
			return err
		}
		c.pending = ordering.NewMulligan(player.Hand)
		fmt.Printf("redraws used: %d of %d (commit keep | commit)\n", sess.MulligansUsed(), ordering.MaxMulligans)
		for _, card := range player.Hand {
			fmt.Printf("hand: %s (%s)\n", card.Name, card.ID)
		}
		return nil

	case "put":
		if len(fields) != 3 {
			return fmt.Errorf("usage: put <card> <pool>")
		}
		if c.pending == nil || c.pending.Done() {
			return fmt.Errorf("no open ordering session")
		}
		return c.pending.Move(fields[1], fields[2])

	case "commit":
		if c.pending == nil || c.pending.Done() {
			return fmt.Errorf("no open ordering session")
		}
		ord := c.pending
		c.pending = nil
		switch ord.Kind() {
		case ordering.KindScry:
			return sess.CompleteScry(ord)
		case ordering.KindSurveil:
			return sess.CompleteSurveil(ord)
		case ordering.KindMulligan:
			keep := len(fields) > 1 && fields[1] == "keep"
			return sess.CompleteMulligan(ord, keep)
		}
		return nil

	case "cancel":
		if c.pending != nil {
			c.pending.Cancel()
			c.pending = nil
		}
		return nil

	case "next":
		return sess.Send(protocol.NewNextTurn())

	case "undo":
		return sess.Send(protocol.NewUndoTurn())

	case "restart":
		return sess.Send(protocol.NewRestartGame())

	case "state":
		printState(sess)
		return nil

	case "quit":
		sess.Close()
		os.Exit(0)
		return nil
	}
	return fmt.Errorf("unknown command %q (try help)", fields[0])
}

// viewerState looks the viewer up in the current snapshot.
func (c *replConsole) viewerState() (models.PlayerState, error) {
	snap, ok := c.sess.Store().Current()
	if !ok {
		return models.PlayerState{}, fmt.Errorf("no game state yet")
	}
	viewer, ok := c.sess.Store().Viewer()
	if !ok {
		return models.PlayerState{}, fmt.Errorf("not seated yet")
	}
	player, ok := snap.Player(viewer.PlayerID)
	if !ok {
		return models.PlayerState{}, fmt.Errorf("viewer missing from snapshot")
	}
	return player, nil
}

// libraryTop copies the viewer's top n library cards, clamped to what the
// library actually holds.
func (c *replConsole) libraryTop(n int) ([]models.Card, error) {
	player, err := c.viewerState()
	if err != nil {
		return nil, err
	}
	n = ordering.ClampCount(n, len(player.Library))
	if n == 0 {
		return nil, fmt.Errorf("library is empty")
	}
	return append([]models.Card(nil), player.Library[:n]...), nil
}

func printState(sess *client.Session) {
	snap, ok := sess.Store().Current()
	if !ok {
		fmt.Println("no game state yet")
		return
	}
	fmt.Printf("turn %d\n", snap.TurnNumber)
	view, ok := sess.Store().SeatedView()
	if !ok {
		return
	}
	active := sess.Store().ActiveSeat()
	for i, p := range view {
		marker := " "
		if i == active {
			marker = "*"
		}
		fmt.Printf("%s seat %d: %s (%s) life=%d poison=%d\n", marker, i, p.Name, p.ID, p.Life, p.Poison)
	}
	if roll, ok := sess.Notices().Dice(); ok {
		fmt.Printf("last roll: %s rolled %s (%s)\n", roll.PlayerName, roll.Result, roll.RollType)
	}
}
