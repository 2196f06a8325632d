package txn

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/LeJamon/xrplconform/internal/client"
)

// DefaultMaxLedgerVersionOffset is the number of ledgers a prepared
// transaction stays valid for when no offset is configured.
const DefaultMaxLedgerVersionOffset = 3

// Node is the part of the ledger API that preparation needs.
type Node interface {
	AccountInfo(ctx context.Context, account string) (*client.AccountInfo, error)
	LedgerCurrent(ctx context.Context) (uint32, error)
	Fee(ctx context.Context) (*client.FeeResult, error)
}

// Instructions tune preparation. Zero values are filled from the node.
type Instructions struct {
	Fee                    string `json:"fee,omitempty"`
	Sequence               uint32 `json:"sequence,omitempty"`
	MaxLedgerVersion       uint32 `json:"maxLedgerVersion,omitempty"`
	MaxLedgerVersionOffset uint32 `json:"maxLedgerVersionOffset,omitempty"`
	SignersCount           uint32 `json:"signersCount,omitempty"`
}

// Prepared is an unsigned transaction body plus the instructions that were
// resolved while building it.
type Prepared struct {
	TxJSON       string
	Instructions Instructions
}

// Preparer turns intents into complete, unsigned transaction bodies.
type Preparer struct {
	node          Node
	defaultOffset uint32
}

// NewPreparer returns a Preparer bound to node. offset is used when the
// caller's instructions carry neither a ledger bound nor an offset.
func NewPreparer(node Node, offset uint32) *Preparer {
	if offset == 0 {
		offset = DefaultMaxLedgerVersionOffset
	}
	return &Preparer{node: node, defaultOffset: offset}
}

// Prepare builds the transaction body for intent on behalf of address.
// LastLedgerSequence is always set.
func (p *Preparer) Prepare(ctx context.Context, address string, intent Intent, instr Instructions) (Prepared, error) {
	if !IsValidAddress(address) {
		return Prepared{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	fields, err := intent.fields(address)
	if err != nil {
		return Prepared{}, err
	}

	tx := map[string]any{
		"TransactionType": intent.TransactionType(),
		"Account":         address,
	}
	flags := tfFullyCanonicalSig
	for k, v := range fields {
		if k == "Flags" {
			flags |= v.(uint32)
			continue
		}
		tx[k] = v
	}
	tx["Flags"] = flags

	if instr.Sequence == 0 {
		info, err := p.node.AccountInfo(ctx, address)
		if err != nil {
			return Prepared{}, fmt.Errorf("failed to load account %s: %w", address, err)
		}
		instr.Sequence = info.AccountData.Sequence
	}
	tx["Sequence"] = instr.Sequence

	if instr.Fee == "" {
		fee, err := p.baseFee(ctx)
		if err != nil {
			return Prepared{}, err
		}
		instr.Fee = strconv.FormatUint(fee*uint64(1+instr.SignersCount), 10)
	}
	tx["Fee"] = instr.Fee

	if instr.MaxLedgerVersion == 0 {
		current, err := p.node.LedgerCurrent(ctx)
		if err != nil {
			return Prepared{}, fmt.Errorf("failed to read current ledger: %w", err)
		}
		offset := instr.MaxLedgerVersionOffset
		if offset == 0 {
			offset = p.defaultOffset
		}
		instr.MaxLedgerVersion = current + offset
	}
	tx["LastLedgerSequence"] = instr.MaxLedgerVersion

	body, err := json.Marshal(tx)
	if err != nil {
		return Prepared{}, fmt.Errorf("failed to encode transaction: %w", err)
	}
	return Prepared{TxJSON: string(body), Instructions: instr}, nil
}

func (p *Preparer) baseFee(ctx context.Context) (uint64, error) {
	res, err := p.node.Fee(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read fee: %w", err)
	}
	drops := res.Drops.BaseFee
	if drops == "" {
		drops = res.Drops.MinimumFee
	}
	fee, err := strconv.ParseUint(drops, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid base fee %q: %w", drops, err)
	}
	return fee, nil
}
