package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func() Journal {
	return map[string]func() Journal{
		BackendMemory: func() Journal { return NewMemory() },
		BackendSQLite: func() Journal {
			j, err := OpenSQLite(filepath.Join(t.TempDir(), "journal.db"))
			require.NoError(t, err)
			return j
		},
		BackendPebble: func() Journal {
			j, err := OpenPebble(filepath.Join(t.TempDir(), "journal"))
			require.NoError(t, err)
			return j
		},
	}
}

func TestJournalBackends(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			j := open()
			defer j.Close()

			require.NoError(t, j.Record(ctx, Entry{TransactionID: "B", Type: "TrustSet", Account: "rA", Outcome: "tesSUCCESS", LedgerIndex: 9}))
			require.NoError(t, j.Record(ctx, Entry{TransactionID: "A", Type: "Payment", Account: "rA", Outcome: "tesSUCCESS", LedgerIndex: 10}))
			require.NoError(t, j.Record(ctx, Entry{TransactionID: "B", Type: "ignored"}))

			got, err := j.Get(ctx, "B")
			require.NoError(t, err)
			assert.Equal(t, "TrustSet", got.Type)
			assert.Equal(t, uint32(9), got.LedgerIndex)
			assert.False(t, got.RecordedAt.IsZero())

			_, err = j.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			list, err := j.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "B", list[0].TransactionID)
			assert.Equal(t, "A", list[1].TransactionID)

			require.NoError(t, j.Close())
			assert.ErrorIs(t, j.Record(ctx, Entry{TransactionID: "C"}), ErrClosed)
		})
	}
}

func TestPebbleReopenContinuesSequence(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "journal")

	j, err := OpenPebble(dir)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, Entry{TransactionID: "first"}))
	require.NoError(t, j.Close())

	j, err = OpenPebble(dir)
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.Record(ctx, Entry{TransactionID: "second"}))

	list, err := j.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].TransactionID)
	assert.Equal(t, "second", list[1].TransactionID)
}

func TestOpen(t *testing.T) {
	j, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, j)

	j, err = Open(Config{Backend: BackendSQLite, Path: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, j)
	require.NoError(t, j.Close())

	_, err = Open(Config{Backend: "redis"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(Config{Backend: BackendPebble})
	assert.Error(t, err)
}
