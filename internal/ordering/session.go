// internal/ordering/session.go

// Package ordering implements the interactive redistribution flows that
// precede a single atomic commit: scry (top/bottom), surveil (top/graveyard)
// and the opening-hand mulligan. A bounded working set of cards moves
// between named pools; the union of the pools always equals the initial set.
package ordering

import (
	"errors"
	"fmt"
	"sync"

	"github.com/commandzone/tabletop/internal/models"
)

// Pool names. Every session starts with the whole working set in
// PoolViewing and moves cards out from there.
const (
	PoolViewing   = "viewing"
	PoolTop       = "top"
	PoolBottom    = "bottom"
	PoolGraveyard = "graveyard"
)

// MaxMulligans bounds how many times an opening hand can be redrawn.
const MaxMulligans = 2

// Kind tags what workflow a session drives; commits are checked against it.
type Kind string

const (
	KindScry     Kind = "scry"
	KindSurveil  Kind = "surveil"
	KindMulligan Kind = "mulligan"
)

var (
	// ErrSessionDone is returned once a session was committed or cancelled.
	ErrSessionDone = errors.New("ordering session already finished")
	// ErrUnknownCard is returned for a card id outside the working set.
	ErrUnknownCard = errors.New("card not in working set")
	// ErrNoSuchPool is returned for a pool the session was not built with.
	ErrNoSuchPool = errors.New("no such pool")
)

// Session is one in-flight redistribution. It is created when the trigger
// fires and destroyed by Commit* or Cancel; it never outlives either.
type Session struct {
	mu           sync.Mutex
	kind         Kind
	pools        map[string][]models.Card
	poolNames    []string
	initialCount int
	done         bool
}

func newSession(kind Kind, cards []models.Card, extraPools ...string) *Session {
	s := &Session{
		kind:         kind,
		pools:        map[string][]models.Card{},
		poolNames:    append([]string{PoolViewing}, extraPools...),
		initialCount: len(cards),
	}
	for _, name := range s.poolNames {
		s.pools[name] = nil
	}
	s.pools[PoolViewing] = append([]models.Card(nil), cards...)
	return s
}

// NewScry starts a scry over the given top-of-library cards.
func NewScry(cards []models.Card) *Session {
	return newSession(KindScry, cards, PoolTop, PoolBottom)
}

// NewSurveil starts a surveil over the given top-of-library cards.
func NewSurveil(cards []models.Card) *Session {
	return newSession(KindSurveil, cards, PoolGraveyard)
}

// NewMulligan starts an opening-hand decision over the dealt hand.
func NewMulligan(cards []models.Card) *Session {
	return newSession(KindMulligan, cards)
}

// Kind reports the workflow this session drives.
func (s *Session) Kind() Kind { return s.kind }

// InitialCount is the size of the immutable working set.
func (s *Session) InitialCount() int { return s.initialCount }

// Pool returns a copy of the named pool in its current order.
func (s *Session) Pool(name string) ([]models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards, ok := s.pools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchPool, name)
	}
	return append([]models.Card(nil), cards...), nil
}

// Move removes a card from whichever pool holds it and appends it to the
// target pool. Moving a card onto the pool it already occupies is a no-op,
// so repeated drops cannot duplicate it.
func (s *Session) Move(cardID, toPool string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return ErrSessionDone
	}
	if _, ok := s.pools[toPool]; !ok {
		return fmt.Errorf("%w: %q", ErrNoSuchPool, toPool)
	}

	for _, name := range s.poolNames {
		for i, c := range s.pools[name] {
			if c.ID != cardID {
				continue
			}
			if name == toPool {
				return nil
			}
			s.pools[name] = append(s.pools[name][:i], s.pools[name][i+1:]...)
			s.pools[toPool] = append(s.pools[toPool], c)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCard, cardID)
}

// CommitScry finishes a scry session. Cards never moved out of the viewing
// pool go back on top after the explicitly placed ones, preserving their
// relative order; the returned lists read top-to-bottom of the library.
func (s *Session) CommitScry() (topIDs, bottomIDs []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finish(KindScry); err != nil {
		return nil, nil, err
	}
	topIDs = models.CardIDs(append(append([]models.Card(nil), s.pools[PoolTop]...), s.pools[PoolViewing]...))
	bottomIDs = models.CardIDs(s.pools[PoolBottom])
	return topIDs, bottomIDs, nil
}

// CommitSurveil finishes a surveil session. The viewing pool order is the
// eventual top-to-bottom library order.
func (s *Session) CommitSurveil() (topIDs, graveyardIDs []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finish(KindSurveil); err != nil {
		return nil, nil, err
	}
	return models.CardIDs(s.pools[PoolViewing]), models.CardIDs(s.pools[PoolGraveyard]), nil
}

// CommitMulligan finishes an opening-hand session with a keep/redraw choice.
func (s *Session) CommitMulligan(keep bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finish(KindMulligan); err != nil {
		return false, err
	}
	return keep, nil
}

// Cancel discards the session. No command is emitted on behalf of a
// cancelled session; the remote treats cancellation as silence.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}

// Done reports whether the session was committed or cancelled.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Counts reports the current pool sizes; their sum always equals
// InitialCount.
func (s *Session) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int, len(s.pools))
	for name, cards := range s.pools {
		counts[name] = len(cards)
	}
	return counts
}

func (s *Session) finish(want Kind) error {
	if s.done {
		return ErrSessionDone
	}
	if s.kind != want {
		return fmt.Errorf("cannot commit %s on a %s session", want, s.kind)
	}
	s.done = true
	return nil
}

// ClampCount bounds a requested working-set size to [1, librarySize]. An
// empty library yields 0: there is nothing to start a session over.
func ClampCount(n, librarySize int) int {
	if librarySize < 1 {
		return 0
	}
	if n < 1 {
		return 1
	}
	if n > librarySize {
		return librarySize
	}
	return n
}
