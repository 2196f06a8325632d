// Package multisig merges single-signer contributions into one
// multisigned transaction.
package multisig

import (
	"fmt"
	"sort"

	binarycodec "github.com/Peersyst/xrpl-go/binary-codec"

	"github.com/LeJamon/xrplconform/internal/client"
	"github.com/LeJamon/xrplconform/internal/crypto"
	"github.com/LeJamon/xrplconform/internal/txn"
)

// Partial is one signer's contribution: the transaction signed with
// SignAs set to Signer.
type Partial struct {
	Signer string `json:"signer"`
	Blob   string `json:"signedTransaction"`
	ID     string `json:"id"`
}

// Combined is the submittable multisigned transaction.
type Combined struct {
	Blob string `json:"signedTransaction"`
	ID   string `json:"id"`
}

// SignerList is the weighted policy the combined signatures must satisfy.
type SignerList struct {
	Quorum  uint32
	Weights map[string]uint16
}

// PolicyFromLedger converts an on-ledger signer list.
func PolicyFromLedger(list client.SignerList) *SignerList {
	p := &SignerList{Quorum: list.SignerQuorum, Weights: make(map[string]uint16, len(list.SignerEntries))}
	for _, e := range list.SignerEntries {
		p.Weights[e.SignerEntry.Account] = e.SignerEntry.SignerWeight
	}
	return p
}

// Combiner merges partial signatures. With a Policy set it also checks
// membership and summed weight against the quorum.
type Combiner struct {
	Policy *SignerList
}

type signature struct {
	account string
	id      crypto.AccountID
	entry   map[string]any
}

// Combine merges partials into one transaction whose Signers are ordered by
// account ID. The result does not depend on the order of partials.
func (c Combiner) Combine(partials []Partial) (Combined, error) {
	if len(partials) == 0 {
		return Combined{}, &QuorumError{Reason: "no signatures"}
	}
	declared := make(map[string]bool, len(partials))
	for _, p := range partials {
		if p.Signer == "" {
			continue
		}
		if declared[p.Signer] {
			return Combined{}, &QuorumError{Reason: "duplicate signer", Signers: []string{p.Signer}}
		}
		declared[p.Signer] = true
	}

	var (
		body     map[string]any
		bodyHex  string
		sigs     = make([]signature, 0, len(partials))
		seen     = make(map[string]bool, len(partials))
		accounts = make([]string, 0, len(partials))
	)
	for i, p := range partials {
		tx, err := binarycodec.Decode(p.Blob)
		if err != nil {
			return Combined{}, fmt.Errorf("%w: partial %d: %v", ErrMalformedPartial, i, err)
		}
		signers := signerEntries(tx["Signers"])
		if len(signers) != 1 {
			return Combined{}, fmt.Errorf("%w: partial %d carries %d signatures", ErrMalformedPartial, i, len(signers))
		}
		entry := signers[0]
		account, _ := entry["Account"].(string)
		if p.Signer != "" && p.Signer != account {
			return Combined{}, fmt.Errorf("%w: partial %d declares %s but is signed by %s", ErrMalformedPartial, i, p.Signer, account)
		}
		if seen[account] {
			return Combined{}, &QuorumError{Reason: "duplicate signer", Signers: []string{account}}
		}
		seen[account] = true
		accounts = append(accounts, account)

		delete(tx, "Signers")
		encoded, err := binarycodec.Encode(tx)
		if err != nil {
			return Combined{}, fmt.Errorf("%w: partial %d: %v", ErrMalformedPartial, i, err)
		}
		if body == nil {
			body, bodyHex = tx, encoded
		} else if encoded != bodyHex {
			return Combined{}, &QuorumError{Reason: "signatures cover different transactions", Signers: accounts}
		}

		id, err := crypto.AccountIDFromAddress(account)
		if err != nil {
			return Combined{}, fmt.Errorf("%w: partial %d: %v", ErrMalformedPartial, i, err)
		}
		sigs = append(sigs, signature{account: account, id: id, entry: entry})
	}

	if c.Policy != nil {
		if err := c.Policy.check(accounts); err != nil {
			return Combined{}, err
		}
	}

	sort.Slice(sigs, func(i, j int) bool {
		return sigs[i].id.Compare(sigs[j].id) < 0
	})
	merged := make([]any, 0, len(sigs))
	for _, s := range sigs {
		merged = append(merged, map[string]any{"Signer": s.entry})
	}
	body["Signers"] = merged

	signed, err := txn.Serialize(body)
	if err != nil {
		return Combined{}, err
	}
	return Combined{Blob: signed.Blob, ID: signed.ID}, nil
}

func (p *SignerList) check(accounts []string) error {
	var total uint32
	var unknown []string
	for _, a := range accounts {
		w, ok := p.Weights[a]
		if !ok {
			unknown = append(unknown, a)
			continue
		}
		total += uint32(w)
	}
	if len(unknown) > 0 {
		return &QuorumError{Reason: "signer not in signer list", Signers: unknown}
	}
	if total < p.Quorum {
		return &QuorumError{
			Reason:  fmt.Sprintf("weight %d below quorum %d", total, p.Quorum),
			Signers: accounts,
		}
	}
	return nil
}

func signerEntries(v any) []map[string]any {
	var items []map[string]any
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				items = append(items, m)
			}
		}
	case []map[string]any:
		items = t
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if inner, ok := item["Signer"].(map[string]any); ok {
			out = append(out, inner)
		}
	}
	return out
}
