package clienttest

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/Peersyst/xrpl-go/keypairs"

	"github.com/LeJamon/xrplconform/internal/txn"
)

type handlerFunc func(params map[string]any) (any, *rpcError)

func (n *Node) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		"ledger_accept":  n.ledgerAccept,
		"ledger_current": n.ledgerCurrent,
		"ledger":         n.ledgerInfo,
		"tx":             n.tx,
		"submit":         n.submit,
		"account_info":   n.accountInfo,
		"account_lines":  n.accountLines,
		"account_offers": n.accountOffers,
		"book_offers":    n.bookOffers,
		"fee":            n.fee,
		"wallet_propose": n.walletPropose,
	}
}

func errActNotFound() *rpcError {
	return &rpcError{Code: "actNotFound", Number: 19, Message: "Account not found."}
}

func (n *Node) ledgerAccept(map[string]any) (any, *rpcError) {
	if !n.held {
		n.ledger.close()
	}
	return map[string]any{"ledger_current_index": n.ledger.current}, nil
}

func (n *Node) ledgerCurrent(map[string]any) (any, *rpcError) {
	return map[string]any{"ledger_current_index": n.ledger.current}, nil
}

func (n *Node) ledgerInfo(params map[string]any) (any, *rpcError) {
	index := n.ledger.validated()
	switch v := params["ledger_index"].(type) {
	case string:
		switch v {
		case "validated", "closed", "":
		case "current":
			index = n.ledger.current
		default:
			parsed, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return nil, errInvalidParams("ledgerIndexMalformed")
			}
			index = uint32(parsed)
		}
	case float64:
		index = uint32(v)
	}
	if index > n.ledger.current {
		return nil, &rpcError{Code: "lgrNotFound", Number: 21, Message: "ledgerNotFound"}
	}
	closed := index < n.ledger.current
	return map[string]any{
		"ledger_index": index,
		"validated":    closed,
		"ledger": map[string]any{
			"ledger_index": strconv.FormatUint(uint64(index), 10),
			"closed":       closed,
		},
	}, nil
}

func (n *Node) tx(params map[string]any) (any, *rpcError) {
	id, _ := params["transaction"].(string)
	if id == "" {
		return nil, errInvalidParams("Missing field 'transaction'.")
	}
	stored, ok := n.ledger.txs[strings.ToUpper(id)]
	if !ok {
		return nil, &rpcError{Code: "txnNotFound", Number: 29, Message: "Transaction not found."}
	}

	out := make(map[string]any, len(stored.Tx)+4)
	for k, v := range stored.Tx {
		out[k] = v
	}
	out["validated"] = stored.Validated
	if stored.Validated {
		out["ledger_index"] = stored.Ledger
		out["inLedger"] = stored.Ledger
		out["meta"] = map[string]any{
			"TransactionIndex":  stored.Index,
			"TransactionResult": stored.Result,
		}
	}
	return out, nil
}

func (n *Node) submit(params map[string]any) (any, *rpcError) {
	blob, _ := params["tx_blob"].(string)
	if blob == "" {
		return nil, errInvalidParams("Missing field 'tx_blob'.")
	}
	tx, code, err := n.ledger.submit(blob)
	if err != nil {
		return nil, &rpcError{Code: "invalidTransaction", Number: 71, Message: err.Error()}
	}
	result := engineResults[code]
	applied := strings.HasPrefix(code, "tes") || strings.HasPrefix(code, "tec")
	return map[string]any{
		"engine_result":         code,
		"engine_result_code":    result.Code,
		"engine_result_message": result.Message,
		"tx_blob":               blob,
		"tx_json":               tx,
		"accepted":              applied,
		"applied":               applied,
	}, nil
}

func (n *Node) accountInfo(params map[string]any) (any, *rpcError) {
	account, _ := params["account"].(string)
	root, ok := n.ledger.accounts[account]
	if !ok {
		return nil, errActNotFound()
	}
	data := map[string]any{
		"Account":         account,
		"Balance":         root.Balance.String(),
		"Flags":           root.Flags,
		"LedgerEntryType": "AccountRoot",
		"OwnerCount":      root.OwnerCount,
		"Sequence":        root.Sequence,
	}
	if root.Domain != "" {
		data["Domain"] = root.Domain
	}
	if want, _ := params["signer_lists"].(bool); want {
		lists := []any{}
		if root.Signers != nil {
			entries := make([]any, 0, len(root.Signers.Entries))
			for signer, weight := range root.Signers.Entries {
				entries = append(entries, map[string]any{
					"SignerEntry": map[string]any{"Account": signer, "SignerWeight": weight},
				})
			}
			lists = append(lists, map[string]any{
				"LedgerEntryType": "SignerList",
				"SignerQuorum":    root.Signers.Quorum,
				"SignerEntries":   entries,
			})
		}
		data["signer_lists"] = lists
	}
	return map[string]any{
		"account_data":         data,
		"ledger_current_index": n.ledger.current,
		"validated":            false,
	}, nil
}

func (n *Node) accountLines(params map[string]any) (any, *rpcError) {
	account, _ := params["account"].(string)
	if _, ok := n.ledger.accounts[account]; !ok {
		return nil, errActNotFound()
	}
	peer, _ := params["peer"].(string)

	lines := []any{}
	for _, line := range n.ledger.lines {
		var entry map[string]any
		switch account {
		case line.Holder:
			entry = map[string]any{
				"account":    line.Issuer,
				"balance":    txn.FormatRat(line.Balance),
				"limit":      txn.FormatRat(line.Limit),
				"limit_peer": "0",
				"no_ripple":  line.NoRipple,
			}
		case line.Issuer:
			entry = map[string]any{
				"account":        line.Holder,
				"balance":        txn.FormatRat(new(big.Rat).Neg(line.Balance)),
				"limit":          "0",
				"limit_peer":     txn.FormatRat(line.Limit),
				"no_ripple_peer": line.NoRipple,
			}
		default:
			continue
		}
		if peer != "" && entry["account"] != peer {
			continue
		}
		entry["currency"] = line.Currency
		entry["quality_in"] = 0
		entry["quality_out"] = 0
		lines = append(lines, entry)
	}
	return map[string]any{
		"account":      account,
		"lines":        lines,
		"ledger_index": n.ledger.validated(),
		"validated":    true,
	}, nil
}

func (n *Node) accountOffers(params map[string]any) (any, *rpcError) {
	account, _ := params["account"].(string)
	if _, ok := n.ledger.accounts[account]; !ok {
		return nil, errActNotFound()
	}
	offers := []any{}
	for _, o := range n.ledger.offers {
		if o.Account != account {
			continue
		}
		offers = append(offers, map[string]any{
			"flags":      o.Flags,
			"seq":        o.Sequence,
			"taker_gets": o.TakerGets,
			"taker_pays": o.TakerPays,
			"quality":    txn.FormatRat(o.Quality),
		})
	}
	return map[string]any{
		"account":      account,
		"offers":       offers,
		"ledger_index": n.ledger.validated(),
		"validated":    true,
	}, nil
}

func (n *Node) bookOffers(params map[string]any) (any, *rpcError) {
	gets, ok1 := params["taker_gets"].(map[string]any)
	pays, ok2 := params["taker_pays"].(map[string]any)
	if !ok1 || !ok2 {
		return nil, errInvalidParams("Missing field 'taker_gets' or 'taker_pays'.")
	}
	limit := 0
	if v, ok := params["limit"].(float64); ok {
		limit = int(v)
	}

	offers := []any{}
	for _, o := range n.ledger.book(gets, pays) {
		if limit > 0 && len(offers) == limit {
			break
		}
		offers = append(offers, map[string]any{
			"Account":         o.Account,
			"Flags":           o.Flags,
			"LedgerEntryType": "Offer",
			"Sequence":        o.Sequence,
			"TakerGets":       o.TakerGets,
			"TakerPays":       o.TakerPays,
			"quality":         txn.FormatRat(o.Quality),
		})
	}
	return map[string]any{
		"offers":       offers,
		"ledger_index": n.ledger.validated(),
		"validated":    true,
	}, nil
}

func (n *Node) fee(map[string]any) (any, *rpcError) {
	base := strconv.Itoa(baseFee)
	return map[string]any{
		"current_ledger_size":  strconv.Itoa(len(n.ledger.open)),
		"expected_ledger_size": "1000",
		"ledger_current_index": n.ledger.current,
		"drops": map[string]any{
			"base_fee":        base,
			"median_fee":      "5000",
			"minimum_fee":     base,
			"open_ledger_fee": base,
		},
	}, nil
}

func (n *Node) walletPropose(map[string]any) (any, *rpcError) {
	seed := proposals[n.ledger.proposals%len(proposals)]
	n.ledger.proposals++

	_, pub, err := keypairs.DeriveKeypair(seed, false)
	if err != nil {
		return nil, &rpcError{Code: "internal", Number: 73, Message: err.Error()}
	}
	wallet, err := txn.WalletFromSecret(seed)
	if err != nil {
		return nil, &rpcError{Code: "internal", Number: 73, Message: err.Error()}
	}
	return map[string]any{
		"account_id":     wallet.Address,
		"key_type":       "secp256k1",
		"master_seed":    seed,
		"public_key_hex": pub,
	}, nil
}

// Balance returns the XRP balance of address in drops, or "" when the
// account does not exist.
func (n *Node) Balance(address string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	root, ok := n.ledger.accounts[address]
	if !ok {
		return ""
	}
	return root.Balance.String()
}

// Transaction reports the stored result of a submitted transaction.
func (n *Node) Transaction(id string) (result string, validated bool, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	stored, ok := n.ledger.txs[strings.ToUpper(id)]
	if !ok {
		return "", false, false
	}
	return stored.Result, stored.Validated, true
}

// Offers returns the number of open offers owned by address.
func (n *Node) Offers(address string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, o := range n.ledger.offers {
		if o.Account == address {
			count++
		}
	}
	return count
}

// CurrentLedger returns the open ledger index.
func (n *Node) CurrentLedger() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.current
}
