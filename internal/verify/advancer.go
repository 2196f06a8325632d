package verify

import (
	"context"
	"fmt"

	"github.com/LeJamon/xrplconform/internal/log"
	"github.com/LeJamon/xrplconform/internal/metrics"
)

// Accepter closes ledgers on a standalone node.
type Accepter interface {
	LedgerAccept(ctx context.Context) (uint32, error)
}

// Advancer forces the node to close the open ledger. It never retries;
// transport failures come back as *client.ConnectionError.
type Advancer struct {
	Metrics *metrics.Metrics
}

// Advance sends ledger_accept and returns the new open ledger index.
func (a *Advancer) Advance(ctx context.Context, node Accepter) (uint32, error) {
	index, err := node.LedgerAccept(ctx)
	if err != nil {
		a.Metrics.RecordLedgerAdvance("error")
		return 0, fmt.Errorf("ledger_accept: %w", err)
	}
	a.Metrics.RecordLedgerAdvance("ok")
	log.Debug("Ledger advanced", "current", index)
	return index, nil
}
