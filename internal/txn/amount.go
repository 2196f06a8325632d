package txn

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/LeJamon/xrplconform/internal/client"
)

// NativeCurrency is the currency code of XRP.
const NativeCurrency = "XRP"

const dropsPerXRP = 1_000_000

// Amount is a quantity of XRP or of an issued currency. Value is a decimal
// string; XRP values are expressed in XRP, not drops.
type Amount struct {
	Currency string `json:"currency"`
	Issuer   string `json:"counterparty,omitempty"`
	Value    string `json:"value"`
}

// XRP returns an amount of value XRP.
func XRP(value string) Amount {
	return Amount{Currency: NativeCurrency, Value: value}
}

// IOU returns an amount of an issued currency.
func IOU(value, currency, issuer string) Amount {
	return Amount{Currency: currency, Issuer: issuer, Value: value}
}

// IsNative reports whether the amount is XRP.
func (a Amount) IsNative() bool {
	return a.Currency == NativeCurrency && a.Issuer == ""
}

// Issue returns the order-book side this amount belongs to.
func (a Amount) Issue() client.Issue {
	if a.IsNative() {
		return client.Issue{Currency: NativeCurrency}
	}
	return client.Issue{Currency: a.Currency, Issuer: a.Issuer}
}

// SameIssue reports whether both amounts are of the same currency and issuer.
func (a Amount) SameIssue(b Amount) bool {
	return a.Currency == b.Currency && a.Issuer == b.Issuer
}

// Rat parses the value.
func (a Amount) Rat() (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(a.Value)
	if !ok {
		return nil, invalid("amount", "value %q is not a decimal", a.Value)
	}
	return r, nil
}

// Drops converts an XRP amount to an integral number of drops.
func (a Amount) Drops() (string, error) {
	if !a.IsNative() {
		return "", invalid("amount", "%s is not XRP", a.Currency)
	}
	r, err := a.Rat()
	if err != nil {
		return "", err
	}
	r.Mul(r, new(big.Rat).SetInt64(dropsPerXRP))
	if !r.IsInt() {
		return "", invalid("amount", "%s XRP is not a whole number of drops", a.Value)
	}
	if r.Sign() < 0 {
		return "", invalid("amount", "%s XRP is negative", a.Value)
	}
	return r.Num().String(), nil
}

// ledgerJSON renders the amount as it appears in a transaction body.
func (a Amount) ledgerJSON() (any, error) {
	if a.IsNative() {
		return a.Drops()
	}
	if a.Currency == "" || a.Issuer == "" {
		return nil, invalid("amount", "issued currency needs currency and issuer")
	}
	if !IsValidAddress(a.Issuer) {
		return nil, invalid("amount", "issuer %q is not an address", a.Issuer)
	}
	if _, err := a.Rat(); err != nil {
		return nil, err
	}
	return map[string]any{
		"currency": a.Currency,
		"issuer":   a.Issuer,
		"value":    a.Value,
	}, nil
}

func (a Amount) String() string {
	if a.Issuer == "" {
		return a.Value + " " + a.Currency
	}
	return a.Value + " " + a.Currency + "/" + a.Issuer
}

// ParseAmount converts a ledger amount, either a drops string or an
// {currency, issuer, value} object, into an Amount.
func ParseAmount(v any) (Amount, error) {
	switch t := v.(type) {
	case string:
		value, err := DropsToXRP(t)
		if err != nil {
			return Amount{}, err
		}
		return XRP(value), nil
	case map[string]any:
		currency, _ := t["currency"].(string)
		issuer, _ := t["issuer"].(string)
		value, _ := t["value"].(string)
		if currency == "" || value == "" {
			return Amount{}, invalid("amount", "incomplete issued amount %v", t)
		}
		return IOU(value, currency, issuer), nil
	default:
		return Amount{}, invalid("amount", "unexpected representation %T", v)
	}
}

// ParseAmountJSON is ParseAmount for a raw JSON value.
func ParseAmountJSON(raw json.RawMessage) (Amount, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Amount{}, fmt.Errorf("failed to decode amount: %w", err)
	}
	return ParseAmount(v)
}

// DropsToXRP converts an integral drops string to an XRP decimal string.
func DropsToXRP(drops string) (string, error) {
	n, ok := new(big.Int).SetString(drops, 10)
	if !ok {
		return "", invalid("amount", "drops %q is not an integer", drops)
	}
	r := new(big.Rat).SetFrac(n, big.NewInt(dropsPerXRP))
	return FormatRat(r), nil
}

// FormatRat renders r as a plain decimal without trailing zeros.
func FormatRat(r *big.Rat) string {
	s := r.FloatString(16)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}
