package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

var (
	entryPrefix = []byte("entry/")
	idPrefix    = []byte("id/")
)

// Pebble is a journal in a pebble key/value store. Entries live under
// entry/<seq> and id/<tx id> points at the sequence key.
type Pebble struct {
	mu  sync.Mutex
	db  *pebble.DB
	seq uint64
}

// OpenPebble opens or creates the store in dir.
func OpenPebble(dir string) (*Pebble, error) {
	if dir == "" {
		return nil, fmt.Errorf("pebble journal requires a path")
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble journal: %w", err)
	}
	p := &Pebble{db: db}
	if err := p.loadSeq(); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pebble) loadSeq() error {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: entryPrefix,
		UpperBound: prefixEnd(entryPrefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()
	if iter.Last() {
		p.seq = binary.BigEndian.Uint64(iter.Key()[len(entryPrefix):])
	}
	return iter.Error()
}

func (p *Pebble) Record(ctx context.Context, e Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return ErrClosed
	}

	idKey := append(append([]byte{}, idPrefix...), e.TransactionID...)
	if _, closer, err := p.db.Get(idKey); err == nil {
		closer.Close()
		return nil
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return err
	}

	value, err := json.Marshal(stamp(e))
	if err != nil {
		return err
	}
	entryKey := seqKey(p.seq + 1)

	batch := p.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(entryKey, value, nil); err != nil {
		return err
	}
	if err := batch.Set(idKey, entryKey, nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to record %s: %w", e.TransactionID, err)
	}
	p.seq++
	return nil
}

func (p *Pebble) Get(ctx context.Context, id string) (Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return Entry{}, ErrClosed
	}
	entryKey, err := p.read(append(append([]byte{}, idPrefix...), id...))
	if err != nil {
		return Entry{}, err
	}
	value, err := p.read(entryKey)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(value, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (p *Pebble) List(ctx context.Context) ([]Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil, ErrClosed
	}
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: entryPrefix,
		UpperBound: prefixEnd(entryPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, iter.Error()
}

func (p *Pebble) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

func (p *Pebble) read(key []byte) ([]byte, error) {
	val, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	valCopy := make([]byte, len(val))
	copy(valCopy, val)
	return valCopy, nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, len(entryPrefix)+8)
	copy(key, entryPrefix)
	binary.BigEndian.PutUint64(key[len(entryPrefix):], seq)
	return key
}

func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	end[len(end)-1]++
	return end
}
