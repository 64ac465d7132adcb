// internal/drag/controller.go

// Package drag turns raw pointer gestures over cards into protocol intents.
// A short press-and-release is a tap (toggle tapped state); anything longer
// resolves the release point against known zone regions and becomes a zone
// transfer, or a battlefield reposition when no region is hit.
package drag

import (
	"time"

	"github.com/commandzone/tabletop/internal/models"
	"github.com/commandzone/tabletop/internal/protocol"
)

// TapThreshold separates a click from a drag: releases before it emit a tap
// command instead of a move.
const TapThreshold = 150 * time.Millisecond

// moveThreshold is the pointer travel (in layout units) below which a
// gesture still counts as a press rather than a drag.
const moveThreshold = 4.0

// Phase is the controller's gesture state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhasePressed  Phase = "pressed"
	PhaseDragging Phase = "dragging"
)

// Point is a position in the table's layout coordinates.
type Point struct {
	X, Y float64
}

func (p Point) sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Rect is an axis-aligned drop region.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Contains reports whether p falls inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// ZoneRegion binds a drop rectangle to its destination zone.
type ZoneRegion struct {
	Zone   models.Zone
	Bounds Rect
}

// Controller is the gesture state machine. It holds purely cosmetic state:
// the live drag offset is for rendering only and is never written into the
// authoritative snapshot.
type Controller struct {
	emit    func(protocol.Command)
	now     func() time.Time
	regions []ZoneRegion

	phase     Phase
	playerID  string
	cardID    string
	fromZone  models.Zone
	origin    Point // pointer position at press
	basePos   Point // card's committed battlefield position at press
	offset    Point
	pressedAt time.Time
}

// NewController wires a controller to its drop regions and command sink.
func NewController(regions []ZoneRegion, emit func(protocol.Command)) *Controller {
	return &Controller{
		emit:    emit,
		now:     time.Now,
		regions: regions,
		phase:   PhaseIdle,
	}
}

// SetClock swaps the time source; tests use it to pin gesture durations.
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// Phase reports the current gesture state.
func (c *Controller) Phase() Phase { return c.phase }

// Press begins a gesture over a draggable card.
func (c *Controller) Press(playerID, cardID string, fromZone models.Zone, pointer, cardPos Point) {
	c.phase = PhasePressed
	c.playerID = playerID
	c.cardID = cardID
	c.fromZone = fromZone
	c.origin = pointer
	c.basePos = cardPos
	c.offset = Point{}
	c.pressedAt = c.now()
}

// Move updates the live offset. Travel beyond a negligible threshold
// promotes the press to a drag.
func (c *Controller) Move(pointer Point) {
	if c.phase == PhaseIdle {
		return
	}
	c.offset = pointer.sub(c.origin)
	if c.phase == PhasePressed {
		if c.offset.X*c.offset.X+c.offset.Y*c.offset.Y >= moveThreshold*moveThreshold {
			c.phase = PhaseDragging
		}
	}
}

// Offset exposes the drag preview translation for rendering. The second
// return is false outside an active drag.
func (c *Controller) Offset() (Point, bool) {
	if c.phase != PhaseDragging {
		return Point{}, false
	}
	return c.offset, true
}

// Release ends the gesture and emits at most one command. Transient state is
// cleared unconditionally, even when nothing is emitted.
func (c *Controller) Release(pointer Point) {
	defer c.Reset()
	if c.phase == PhaseIdle {
		return
	}

	if c.now().Sub(c.pressedAt) < TapThreshold {
		c.emit(protocol.NewTapCard(c.playerID, c.cardID))
		return
	}

	for _, region := range c.regions {
		if !region.Bounds.Contains(pointer) {
			continue
		}
		cmd, err := protocol.NewMoveCard(c.playerID, c.cardID, c.fromZone, region.Zone)
		if err != nil {
			return
		}
		c.emit(cmd)
		return
	}

	// No region hit: the card stays on the battlefield at its dragged
	// position.
	dropped := c.basePos.add(pointer.sub(c.origin))
	cmd, err := protocol.NewMoveCardAt(c.playerID, c.cardID, c.fromZone, models.ZoneBattlefield, dropped.X, dropped.Y)
	if err != nil {
		return
	}
	c.emit(cmd)
}

// Reset drops all transient gesture state. Component teardown calls it too,
// so a torn-down view can never leave a card stuck "being dragged".
func (c *Controller) Reset() {
	c.phase = PhaseIdle
	c.playerID = ""
	c.cardID = ""
	c.fromZone = ""
	c.origin = Point{}
	c.basePos = Point{}
	c.offset = Point{}
	c.pressedAt = time.Time{}
}
