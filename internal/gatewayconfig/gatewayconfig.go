// Package gatewayconfig holds the gateway's single piece of mutable
// runtime configuration — the system instruction prepended to every
// translated request — persisted through internal/store, per spec.md
// section 6.
package gatewayconfig

import (
	"errors"
	"strings"
	"sync"

	"github.com/brightloop/antigravity-gateway/internal/store"
)

// RequiredSentinel is the literal substring a system instruction must
// contain for a write to be accepted (spec.md section 6).
const RequiredSentinel = "You are Antigravity"

// ErrMissingSentinel is returned when a write's system instruction does
// not contain RequiredSentinel.
var ErrMissingSentinel = errors.New("gatewayconfig: system instruction must contain \"" + RequiredSentinel + "\"")

// Config is the persisted gateway configuration.
type Config struct {
	SystemInstruction string `json:"systemInstruction"`
}

// Store is an in-memory Config backed by an atomically-persisted JSON
// file, safe for concurrent reads and writes.
type Store struct {
	path string

	mu  sync.RWMutex
	cur Config
}

// Open loads path (if present) into a new Store. A missing or corrupt
// file starts the Store at the zero-value Config, matching a first-run
// gateway that hasn't been configured yet.
func Open(path string) (*Store, error) {
	var cfg Config
	if _, err := store.ReadJSON(path, &cfg); err != nil {
		return nil, err
	}
	return &Store{path: path, cur: cfg}, nil
}

// Get returns the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Set validates cfg against RequiredSentinel, persists it, and — only on
// a successful write — updates the in-memory value. A rejected write
// leaves the previously served configuration untouched.
func (s *Store) Set(cfg Config) error {
	if !strings.Contains(cfg.SystemInstruction, RequiredSentinel) {
		return ErrMissingSentinel
	}
	if err := store.WriteAtomicJSON(s.path, cfg); err != nil {
		return err
	}

	s.mu.Lock()
	s.cur = cfg
	s.mu.Unlock()
	return nil
}
