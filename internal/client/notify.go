// internal/client/notify.go
package client

import (
	"sync"
	"time"

	"github.com/commandzone/tabletop/internal/protocol"
)

// transient is one auto-dismissing notification slot: a value paired with a
// timer that clears it. Overwriting the value cancels and restarts the timer
// rather than stacking a second one, and a generation counter discards the
// callback of any timer that lost that race.
type transient struct {
	value interface{}
	timer *time.Timer
	gen   uint64
}

func (tr *transient) set(mu *sync.Mutex, value interface{}, after time.Duration) {
	if tr.timer != nil {
		tr.timer.Stop()
		tr.timer = nil
	}
	tr.value = value
	tr.gen++
	if after <= 0 {
		return
	}
	gen := tr.gen
	tr.timer = time.AfterFunc(after, func() {
		mu.Lock()
		defer mu.Unlock()
		if tr.gen != gen {
			return // a newer value owns the slot now
		}
		tr.value = nil
		tr.timer = nil
	})
}

func (tr *transient) clear() {
	if tr.timer != nil {
		tr.timer.Stop()
		tr.timer = nil
	}
	tr.value = nil
	tr.gen++
}

// Notifications owns the session's transient broadcast state: dice rolls and
// restart notices clear themselves, error banners clear themselves, and card
// reveals persist until dismissed. Closing the session cancels every pending
// timer so no stale callback fires against a torn-down session.
type Notifications struct {
	mu      sync.Mutex
	closed  bool
	dice    transient
	restart transient
	errMsg  transient
	reveal  transient
}

// NewNotifications returns an empty notification set.
func NewNotifications() *Notifications {
	return &Notifications{}
}

// SetDice publishes a dice-roll broadcast for the given duration. A new roll
// arriving while one is showing restarts the countdown; it never stacks.
func (n *Notifications) SetDice(roll protocol.DiceRollPayload, d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.dice.set(&n.mu, roll, d)
}

// Dice returns the currently displayed roll, if any.
func (n *Notifications) Dice() (protocol.DiceRollPayload, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	roll, ok := n.dice.value.(protocol.DiceRollPayload)
	return roll, ok
}

// SetRestart publishes a game-restarted notice for the given duration.
func (n *Notifications) SetRestart(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.restart.set(&n.mu, true, d)
}

// Restarted reports whether a restart notice is showing.
func (n *Notifications) Restarted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.restart.value.(bool)
	return ok && v
}

// SetError publishes a server-reported error banner for the given duration.
func (n *Notifications) SetError(message string, d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.errMsg.set(&n.mu, message, d)
}

// Error returns the currently displayed error banner, if any.
func (n *Notifications) Error() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	msg, ok := n.errMsg.value.(string)
	return msg, ok
}

// SetReveal publishes a revealed card. Reveals have no expiry; the viewer
// dismisses them by hand.
func (n *Notifications) SetReveal(reveal protocol.RevealCardPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.reveal.set(&n.mu, reveal, 0)
}

// Reveal returns the currently displayed reveal, if any.
func (n *Notifications) Reveal() (protocol.RevealCardPayload, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	reveal, ok := n.reveal.value.(protocol.RevealCardPayload)
	return reveal, ok
}

// DismissReveal clears the reveal overlay.
func (n *Notifications) DismissReveal() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reveal.clear()
}

// Close cancels every pending timer and drops all values. Setters become
// no-ops afterward; a torn-down session must not grow new notifications.
func (n *Notifications) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.dice.clear()
	n.restart.clear()
	n.errMsg.clear()
	n.reveal.clear()
}
