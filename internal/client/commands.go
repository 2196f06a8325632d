package client

import (
	"context"
	"encoding/json"
)

// LedgerAccept closes the open ledger on a standalone node and returns the
// index of the new open ledger.
func (c *Client) LedgerAccept(ctx context.Context) (uint32, error) {
	var res struct {
		LedgerCurrentIndex LedgerIndex `json:"ledger_current_index"`
	}
	if err := c.Request(ctx, "ledger_accept", nil, &res); err != nil {
		return 0, err
	}
	return uint32(res.LedgerCurrentIndex), nil
}

// LedgerCurrent returns the index of the open ledger.
func (c *Client) LedgerCurrent(ctx context.Context) (uint32, error) {
	var res struct {
		LedgerCurrentIndex LedgerIndex `json:"ledger_current_index"`
	}
	if err := c.Request(ctx, "ledger_current", nil, &res); err != nil {
		return 0, err
	}
	return uint32(res.LedgerCurrentIndex), nil
}

// ValidatedLedger returns the index of the most recent validated ledger.
func (c *Client) ValidatedLedger(ctx context.Context) (uint32, error) {
	var res struct {
		LedgerIndex LedgerIndex `json:"ledger_index"`
		Ledger      struct {
			LedgerIndex LedgerIndex `json:"ledger_index"`
		} `json:"ledger"`
	}
	params := map[string]any{"ledger_index": "validated"}
	if err := c.Request(ctx, "ledger", params, &res); err != nil {
		return 0, err
	}
	if res.LedgerIndex != 0 {
		return uint32(res.LedgerIndex), nil
	}
	return uint32(res.Ledger.LedgerIndex), nil
}

// Tx looks a transaction up by id. A non-zero maxLedger restricts the
// search to [minLedger, maxLedger].
func (c *Client) Tx(ctx context.Context, id string, minLedger, maxLedger uint32) (*TxResult, error) {
	params := map[string]any{"transaction": id}
	if maxLedger != 0 {
		params["min_ledger"] = minLedger
		params["max_ledger"] = maxLedger
	}
	var raw json.RawMessage
	if err := c.Request(ctx, "tx", params, &raw); err != nil {
		return nil, err
	}
	res := &TxResult{Raw: raw}
	if err := json.Unmarshal(raw, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Submit sends a signed transaction blob.
func (c *Client) Submit(ctx context.Context, blob string) (*SubmitResult, error) {
	var res SubmitResult
	if err := c.Request(ctx, "submit", map[string]any{"tx_blob": blob}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AccountInfo returns the account root in the current ledger, including any
// signer list.
func (c *Client) AccountInfo(ctx context.Context, account string) (*AccountInfo, error) {
	params := map[string]any{
		"account":      account,
		"ledger_index": "current",
		"signer_lists": true,
	}
	var res AccountInfo
	if err := c.Request(ctx, "account_info", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AccountLines returns the trust lines of account, optionally only those
// shared with peer.
func (c *Client) AccountLines(ctx context.Context, account, peer string) ([]TrustLine, error) {
	params := map[string]any{"account": account, "ledger_index": "validated"}
	if peer != "" {
		params["peer"] = peer
	}
	var res struct {
		Lines []TrustLine `json:"lines"`
	}
	if err := c.Request(ctx, "account_lines", params, &res); err != nil {
		return nil, err
	}
	return res.Lines, nil
}

// AccountOffers returns the open offers owned by account.
func (c *Client) AccountOffers(ctx context.Context, account string) ([]AccountOffer, error) {
	params := map[string]any{"account": account, "ledger_index": "validated"}
	var res struct {
		Offers []AccountOffer `json:"offers"`
	}
	if err := c.Request(ctx, "account_offers", params, &res); err != nil {
		return nil, err
	}
	return res.Offers, nil
}

// BookOffers returns the offers whose owners give takerGets for takerPays.
func (c *Client) BookOffers(ctx context.Context, takerGets, takerPays Issue, limit int) ([]BookOffer, error) {
	params := map[string]any{
		"taker_gets":   takerGets,
		"taker_pays":   takerPays,
		"ledger_index": "validated",
	}
	if limit > 0 {
		params["limit"] = limit
	}
	var res struct {
		Offers []BookOffer `json:"offers"`
	}
	if err := c.Request(ctx, "book_offers", params, &res); err != nil {
		return nil, err
	}
	return res.Offers, nil
}

// Fee returns the current transaction cost.
func (c *Client) Fee(ctx context.Context) (*FeeResult, error) {
	var res FeeResult
	if err := c.Request(ctx, "fee", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// WalletPropose asks the node for a new random key pair.
func (c *Client) WalletPropose(ctx context.Context) (*WalletProposal, error) {
	var res WalletProposal
	if err := c.Request(ctx, "wallet_propose", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
