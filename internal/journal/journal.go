// Package journal keeps an audit trail of verified transactions.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound       = errors.New("journal entry not found")
	ErrClosed         = errors.New("journal is closed")
	ErrUnknownBackend = errors.New("unknown journal backend")
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
)

// Entry is one verified transaction.
type Entry struct {
	TransactionID string    `json:"id"`
	Type          string    `json:"type"`
	Account       string    `json:"account"`
	Outcome       string    `json:"outcome"`
	LedgerIndex   uint32    `json:"ledgerIndex"`
	Run           string    `json:"run,omitempty"`
	RecordedAt    time.Time `json:"recordedAt"`
}

// Journal stores entries in recording order. Recording an id twice keeps
// the first entry.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	Get(ctx context.Context, id string) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// Config selects and locates a backend.
type Config struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// Open returns the journal described by cfg.
func Open(cfg Config) (Journal, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(cfg.Path)
	case BackendPebble:
		return OpenPebble(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func stamp(e Entry) Entry {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	return e
}
