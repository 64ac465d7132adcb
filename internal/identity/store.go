// internal/identity/store.go

// Package identity persists the player's assigned ID and display name across
// restarts so a rejoin lands in the same seat instead of a fresh one.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Record is one saved identity, scoped to a single game.
type Record struct {
	GameID     string `json:"game_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// Store reads and writes identity records at a fixed path. With persistence
// off the store works purely in memory and leaves the filesystem alone.
type Store struct {
	mu      sync.Mutex
	path    string
	persist bool
	cached  *Record
}

// NewStore builds a store backed by path. persist=false disables all disk
// access; records then live only as long as the process.
func NewStore(path string, persist bool) *Store {
	return &Store{path: path, persist: persist}
}

// Load returns the saved record for gameID, or false when none exists or the
// saved record belongs to a different game.
func (s *Store) Load(gameID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		if s.cached.GameID != gameID {
			return Record{}, false, nil
		}
		return *s.cached, true, nil
	}
	if !s.persist {
		return Record{}, false, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("read identity file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt file is treated as absent; the next Save replaces it.
		return Record{}, false, nil
	}
	s.cached = &rec
	if rec.GameID != gameID {
		return Record{}, false, nil
	}
	return rec, true, nil
}

// Save stores the record, overwriting whatever was there before.
func (s *Store) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = &rec
	if !s.persist {
		return nil
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create identity dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	return nil
}

// Clear forgets the saved identity, in memory and on disk.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	if !s.persist {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove identity file: %w", err)
	}
	return nil
}
