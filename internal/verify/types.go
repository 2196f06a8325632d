package verify

import (
	"encoding/json"
	"fmt"
	"sync"
)

// SuccessResult is the only outcome that counts as success.
const SuccessResult = "tesSUCCESS"

// LedgerRange bounds the ledgers a transaction may validate in. Min is the
// last validated ledger before submission, Max its LastLedgerSequence.
type LedgerRange struct {
	Min uint32 `json:"minLedgerVersion"`
	Max uint32 `json:"maxLedgerVersion"`
}

// Validate checks Min <= Max.
func (r LedgerRange) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("invalid ledger range %s", r)
	}
	return nil
}

// Contains reports whether index lies inside the range.
func (r LedgerRange) Contains(index uint32) bool {
	return index >= r.Min && index <= r.Max
}

func (r LedgerRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max)
}

// Result is a successfully verified transaction.
type Result struct {
	TransactionID string          `json:"id"`
	Type          string          `json:"type"`
	Account       string          `json:"address"`
	Outcome       string          `json:"result"`
	LedgerIndex   uint32          `json:"ledgerVersion"`
	Raw           json.RawMessage `json:"-"`
}

// TxLog is the ordered list of transaction ids verified during one suite.
type TxLog struct {
	mu  sync.Mutex
	ids []string
}

// NewTxLog returns an empty log.
func NewTxLog() *TxLog {
	return &TxLog{}
}

// Append records id. A nil log ignores it.
func (l *TxLog) Append(id string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
}

// IDs returns a copy of the recorded ids in order.
func (l *TxLog) IDs() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.ids))
	copy(out, l.ids)
	return out
}

// Len returns the number of recorded ids.
func (l *TxLog) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}
