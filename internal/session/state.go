// Package session persists browser session state so repeat runs can skip the
// interactive login, and falls back to a credential login when the saved state
// no longer authenticates.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// State is the persisted session artifact: cookies plus per-origin
// localStorage, opaque to everything except this package.
type State struct {
	Cookies []*proto.NetworkCookie `json:"cookies"`
	Origins []Origin               `json:"origins"`
	SavedAt time.Time              `json:"saved_at"`
}

// Origin holds the localStorage entries captured for one origin.
type Origin struct {
	Origin       string            `json:"origin"`
	LocalStorage map[string]string `json:"localStorage"`
}

// Empty reports whether the state carries nothing worth restoring.
func (s *State) Empty() bool {
	return s == nil || (len(s.Cookies) == 0 && len(s.Origins) == 0)
}

// Storage returns the localStorage entries captured for origin, or nil.
func (s *State) Storage(origin string) map[string]string {
	if s == nil {
		return nil
	}
	for _, o := range s.Origins {
		if o.Origin == origin {
			return o.LocalStorage
		}
	}
	return nil
}

// Store reads and writes the session file.
type Store struct {
	path string
}

// NewStore returns a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the saved state. A missing file returns (nil, nil): no session
// yet is the normal first-run case, not an error.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	return &state, nil
}

// Save writes the state with owner-only permissions; it holds auth material.
func (s *Store) Save(state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
