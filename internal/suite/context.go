package suite

import (
	"github.com/LeJamon/xrplconform/internal/txn"
	"github.com/LeJamon/xrplconform/internal/verify"
)

// Context is the state of one suite run. It is created by Runner.Setup and
// handed by pointer to every case; nothing else is shared between cases.
type Context struct {
	Options Options

	Master    txn.Wallet
	Wallet    txn.Wallet
	NewWallet txn.Wallet

	// Transactions lists every verified transaction id in order.
	Transactions *verify.TxLog

	// StartLedger is the last validated ledger before the fixtures ran.
	StartLedger uint32
}

// Instructions returns the preparation instructions cases submit with.
func (c *Context) Instructions() txn.Instructions {
	return txn.Instructions{MaxLedgerVersionOffset: c.Options.CaseLedgerOffset}
}
