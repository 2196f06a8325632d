package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// LedgerIndex is a ledger sequence number. The node renders it as a JSON
// number in most places and as a string inside ledger headers; both decode.
type LedgerIndex uint32

func (l *LedgerIndex) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*l = 0
		return nil
	}
	v, err := strconv.ParseUint(string(data), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid ledger index %q: %w", data, err)
	}
	*l = LedgerIndex(v)
	return nil
}

// Issue names one side of an order book. Issuer is empty for XRP.
type Issue struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer,omitempty"`
}

func (i Issue) String() string {
	if i.Issuer == "" {
		return i.Currency
	}
	return i.Currency + "/" + i.Issuer
}

// TxResult is the node's view of a transaction looked up by id.
type TxResult struct {
	Hash            string          `json:"hash"`
	TransactionType string          `json:"TransactionType"`
	Account         string          `json:"Account"`
	Sequence        uint32          `json:"Sequence"`
	LedgerIndex     LedgerIndex     `json:"ledger_index"`
	InLedger        LedgerIndex     `json:"inLedger"`
	Validated       bool            `json:"validated"`
	Meta            *TxMeta         `json:"meta,omitempty"`
	Raw             json.RawMessage `json:"-"`
}

// TxMeta is the subset of transaction metadata the harness inspects.
type TxMeta struct {
	TransactionIndex  uint32 `json:"TransactionIndex"`
	TransactionResult string `json:"TransactionResult"`
}

// Ledger returns the index of the ledger that included the transaction.
func (t *TxResult) Ledger() uint32 {
	if t.LedgerIndex != 0 {
		return uint32(t.LedgerIndex)
	}
	return uint32(t.InLedger)
}

// Result returns the engine result recorded in the metadata, if any.
func (t *TxResult) Result() string {
	if t.Meta == nil {
		return ""
	}
	return t.Meta.TransactionResult
}

// SubmitResult is the preliminary outcome of submitting a signed blob.
type SubmitResult struct {
	EngineResult        string          `json:"engine_result"`
	EngineResultCode    int             `json:"engine_result_code"`
	EngineResultMessage string          `json:"engine_result_message"`
	TxBlob              string          `json:"tx_blob"`
	TxJSON              json.RawMessage `json:"tx_json"`
}

// SignerEntry is one weighted member of an account's signer list.
type SignerEntry struct {
	Account      string `json:"Account"`
	SignerWeight uint16 `json:"SignerWeight"`
}

// SignerEntryObject wraps a SignerEntry as it appears in STArrays.
type SignerEntryObject struct {
	SignerEntry SignerEntry `json:"SignerEntry"`
}

// SignerList is the multisig policy installed on an account.
type SignerList struct {
	SignerQuorum  uint32              `json:"SignerQuorum"`
	SignerEntries []SignerEntryObject `json:"SignerEntries"`
}

// AccountData is the account root returned by account_info.
type AccountData struct {
	Account     string       `json:"Account"`
	Balance     string       `json:"Balance"`
	Flags       uint32       `json:"Flags"`
	OwnerCount  uint32       `json:"OwnerCount"`
	Sequence    uint32       `json:"Sequence"`
	Domain      string       `json:"Domain,omitempty"`
	SignerLists []SignerList `json:"signer_lists,omitempty"`
}

// AccountInfo is the account_info result.
type AccountInfo struct {
	AccountData        AccountData  `json:"account_data"`
	SignerLists        []SignerList `json:"signer_lists,omitempty"`
	LedgerCurrentIndex LedgerIndex  `json:"ledger_current_index"`
	LedgerIndex        LedgerIndex  `json:"ledger_index"`
	Validated          bool         `json:"validated"`
}

// SignerList returns the account's signer list, wherever the API version
// placed it.
func (a *AccountInfo) SignerList() (SignerList, bool) {
	if len(a.SignerLists) > 0 {
		return a.SignerLists[0], true
	}
	if len(a.AccountData.SignerLists) > 0 {
		return a.AccountData.SignerLists[0], true
	}
	return SignerList{}, false
}

// TrustLine is one entry of account_lines.
type TrustLine struct {
	Account      string `json:"account"`
	Balance      string `json:"balance"`
	Currency     string `json:"currency"`
	Limit        string `json:"limit"`
	LimitPeer    string `json:"limit_peer"`
	QualityIn    uint32 `json:"quality_in"`
	QualityOut   uint32 `json:"quality_out"`
	NoRipple     bool   `json:"no_ripple,omitempty"`
	NoRipplePeer bool   `json:"no_ripple_peer,omitempty"`
	Authorized   bool   `json:"authorized,omitempty"`
	Freeze       bool   `json:"freeze,omitempty"`
}

// AccountOffer is one entry of account_offers. Amounts are left raw: XRP is
// a string of drops, issued currencies are objects.
type AccountOffer struct {
	Flags     uint32          `json:"flags"`
	Seq       uint32          `json:"seq"`
	TakerGets json.RawMessage `json:"taker_gets"`
	TakerPays json.RawMessage `json:"taker_pays"`
	Quality   string          `json:"quality"`
}

// BookOffer is one ledger Offer object as returned by book_offers.
type BookOffer struct {
	Account    string          `json:"Account"`
	Flags      uint32          `json:"Flags"`
	Sequence   uint32          `json:"Sequence"`
	TakerGets  json.RawMessage `json:"TakerGets"`
	TakerPays  json.RawMessage `json:"TakerPays"`
	Quality    string          `json:"quality"`
	OwnerFunds string          `json:"owner_funds,omitempty"`
}

// FeeResult is the fee command result; amounts are in drops.
type FeeResult struct {
	Drops struct {
		BaseFee       string `json:"base_fee"`
		MedianFee     string `json:"median_fee"`
		MinimumFee    string `json:"minimum_fee"`
		OpenLedgerFee string `json:"open_ledger_fee"`
	} `json:"drops"`
	LedgerCurrentIndex LedgerIndex `json:"ledger_current_index"`
}

// WalletProposal is a freshly generated key pair from wallet_propose.
type WalletProposal struct {
	AccountID    string `json:"account_id"`
	KeyType      string `json:"key_type"`
	MasterSeed   string `json:"master_seed"`
	PublicKey    string `json:"public_key"`
	PublicKeyHex string `json:"public_key_hex"`
}
