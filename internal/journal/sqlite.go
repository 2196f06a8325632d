package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS verified_transactions (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	tx_id        TEXT NOT NULL UNIQUE,
	tx_type      TEXT NOT NULL,
	account      TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	ledger_index INTEGER NOT NULL,
	run          TEXT NOT NULL DEFAULT '',
	recorded_at  TEXT NOT NULL
)`

// SQLite is a journal in a single sqlite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the journal at path. ":memory:" is accepted.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite journal requires a path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite journal: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Record(ctx context.Context, e Entry) error {
	if s.db == nil {
		return ErrClosed
	}
	e = stamp(e)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verified_transactions (tx_id, tx_type, account, outcome, ledger_index, run, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(tx_id) DO NOTHING`,
		e.TransactionID, e.Type, e.Account, e.Outcome, e.LedgerIndex, e.Run, e.RecordedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", e.TransactionID, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (Entry, error) {
	if s.db == nil {
		return Entry{}, ErrClosed
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT tx_id, tx_type, account, outcome, ledger_index, run, recorded_at
		 FROM verified_transactions WHERE tx_id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (s *SQLite) List(ctx context.Context) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tx_id, tx_type, account, outcome, ledger_index, run, recorded_at
		 FROM verified_transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e          Entry
		recordedAt string
	)
	if err := row.Scan(&e.TransactionID, &e.Type, &e.Account, &e.Outcome, &e.LedgerIndex, &e.Run, &recordedAt); err != nil {
		return Entry{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid recorded_at %q: %w", recordedAt, err)
	}
	e.RecordedAt = t
	return e, nil
}
