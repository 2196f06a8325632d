package txn

import (
	"encoding/hex"
	"strings"
)

// Transaction flags set by intents.
const (
	tfFullyCanonicalSig uint32 = 0x80000000

	tfSetNoRipple   uint32 = 0x00020000
	tfClearNoRipple uint32 = 0x00040000
	tfSetFreeze     uint32 = 0x00100000
	tfClearFreeze   uint32 = 0x00200000

	tfPassive           uint32 = 0x00010000
	tfImmediateOrCancel uint32 = 0x00020000
	tfFillOrKill        uint32 = 0x00040000
	tfSell              uint32 = 0x00080000
)

// AccountSet flag values.
const (
	asfRequireDest   uint32 = 1
	asfRequireAuth   uint32 = 2
	asfDisallowXRP   uint32 = 3
	asfDefaultRipple uint32 = 8
)

// Intent is a high-level description of a ledger change, before fees,
// sequence numbers and ledger bounds are attached.
type Intent interface {
	TransactionType() string
	fields(account string) (map[string]any, error)
}

// Payment sends Amount to Destination.
type Payment struct {
	Destination    string
	Amount         Amount
	SendMax        *Amount
	DestinationTag *uint32
}

func (Payment) TransactionType() string { return "Payment" }

func (p Payment) fields(account string) (map[string]any, error) {
	if !IsValidAddress(p.Destination) {
		return nil, invalid("destination", "%q is not an address", p.Destination)
	}
	amount, err := p.Amount.ledgerJSON()
	if err != nil {
		return nil, err
	}
	f := map[string]any{
		"Destination": p.Destination,
		"Amount":      amount,
	}
	if p.SendMax != nil {
		sendMax, err := p.SendMax.ledgerJSON()
		if err != nil {
			return nil, err
		}
		f["SendMax"] = sendMax
	}
	if p.DestinationTag != nil {
		f["DestinationTag"] = *p.DestinationTag
	}
	return f, nil
}

// TrustLine creates or modifies a trust line towards Counterparty.
type TrustLine struct {
	Currency         string
	Counterparty     string
	Limit            string
	RipplingDisabled *bool
	Frozen           *bool
	QualityIn        uint32
	QualityOut       uint32
}

func (TrustLine) TransactionType() string { return "TrustSet" }

func (t TrustLine) fields(account string) (map[string]any, error) {
	if t.Currency == "" || t.Currency == NativeCurrency {
		return nil, invalid("currency", "%q cannot be trusted", t.Currency)
	}
	limit, err := IOU(t.Limit, t.Currency, t.Counterparty).ledgerJSON()
	if err != nil {
		return nil, err
	}
	var flags uint32
	if t.RipplingDisabled != nil {
		if *t.RipplingDisabled {
			flags |= tfSetNoRipple
		} else {
			flags |= tfClearNoRipple
		}
	}
	if t.Frozen != nil {
		if *t.Frozen {
			flags |= tfSetFreeze
		} else {
			flags |= tfClearFreeze
		}
	}
	f := map[string]any{
		"LimitAmount": limit,
		"Flags":       flags,
	}
	if t.QualityIn != 0 {
		f["QualityIn"] = t.QualityIn
	}
	if t.QualityOut != 0 {
		f["QualityOut"] = t.QualityOut
	}
	return f, nil
}

// Direction of an order relative to its quantity.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// Order places an offer to buy or sell Quantity for TotalPrice.
type Order struct {
	Direction         Direction
	Quantity          Amount
	TotalPrice        Amount
	Passive           bool
	ImmediateOrCancel bool
	FillOrKill        bool
}

func (Order) TransactionType() string { return "OfferCreate" }

func (o Order) fields(account string) (map[string]any, error) {
	quantity, err := o.Quantity.ledgerJSON()
	if err != nil {
		return nil, err
	}
	total, err := o.TotalPrice.ledgerJSON()
	if err != nil {
		return nil, err
	}
	if o.ImmediateOrCancel && o.FillOrKill {
		return nil, invalid("order", "immediateOrCancel and fillOrKill are exclusive")
	}

	var flags uint32
	f := map[string]any{}
	switch o.Direction {
	case Buy:
		f["TakerPays"] = quantity
		f["TakerGets"] = total
	case Sell:
		f["TakerGets"] = quantity
		f["TakerPays"] = total
		flags |= tfSell
	default:
		return nil, invalid("direction", "%q is neither buy nor sell", o.Direction)
	}
	if o.Passive {
		flags |= tfPassive
	}
	if o.ImmediateOrCancel {
		flags |= tfImmediateOrCancel
	}
	if o.FillOrKill {
		flags |= tfFillOrKill
	}
	f["Flags"] = flags
	return f, nil
}

// OrderCancellation removes the offer created by OrderSequence.
type OrderCancellation struct {
	OrderSequence uint32
}

func (OrderCancellation) TransactionType() string { return "OfferCancel" }

func (c OrderCancellation) fields(account string) (map[string]any, error) {
	if c.OrderSequence == 0 {
		return nil, invalid("orderSequence", "must be set")
	}
	return map[string]any{"OfferSequence": c.OrderSequence}, nil
}

// SignerWeight is one member of a signer list.
type SignerWeight struct {
	Address string
	Weight  uint16
}

// SignerList replaces the account's multisig policy. A zero Threshold with
// no weights deletes the list.
type SignerList struct {
	Threshold uint32
	Weights   []SignerWeight
}

// Settings changes account settings. When Signers is set the intent becomes
// a SignerListSet and no other field may be set.
type Settings struct {
	DefaultRipple  *bool
	RequireDestTag *bool
	RequireAuth    *bool
	DisallowXRP    *bool
	Domain         *string
	TransferRate   *uint32
	Signers        *SignerList
}

func (s Settings) TransactionType() string {
	if s.Signers != nil {
		return "SignerListSet"
	}
	return "AccountSet"
}

func (s Settings) fields(account string) (map[string]any, error) {
	if s.Signers != nil {
		if s.DefaultRipple != nil || s.RequireDestTag != nil || s.RequireAuth != nil ||
			s.DisallowXRP != nil || s.Domain != nil || s.TransferRate != nil {
			return nil, invalid("settings", "signers cannot be combined with other settings")
		}
		return s.Signers.fields(account)
	}

	f := map[string]any{}
	toggles := []struct {
		value *bool
		flag  uint32
	}{
		{s.DefaultRipple, asfDefaultRipple},
		{s.RequireDestTag, asfRequireDest},
		{s.RequireAuth, asfRequireAuth},
		{s.DisallowXRP, asfDisallowXRP},
	}
	for _, t := range toggles {
		if t.value == nil {
			continue
		}
		if _, set := f["SetFlag"]; set {
			return nil, invalid("settings", "only one account flag can change per transaction")
		}
		if _, set := f["ClearFlag"]; set {
			return nil, invalid("settings", "only one account flag can change per transaction")
		}
		if *t.value {
			f["SetFlag"] = t.flag
		} else {
			f["ClearFlag"] = t.flag
		}
	}
	if s.Domain != nil {
		f["Domain"] = strings.ToUpper(hex.EncodeToString([]byte(*s.Domain)))
	}
	if s.TransferRate != nil {
		f["TransferRate"] = *s.TransferRate
	}
	if len(f) == 0 {
		return nil, invalid("settings", "nothing to change")
	}
	return f, nil
}

func (l SignerList) fields(account string) (map[string]any, error) {
	if l.Threshold == 0 && len(l.Weights) == 0 {
		return map[string]any{"SignerQuorum": uint32(0)}, nil
	}
	if len(l.Weights) == 0 {
		return nil, invalid("signers", "threshold without weights")
	}
	var total uint32
	seen := make(map[string]bool, len(l.Weights))
	entries := make([]any, 0, len(l.Weights))
	for _, w := range l.Weights {
		if !IsValidAddress(w.Address) {
			return nil, invalid("signers", "%q is not an address", w.Address)
		}
		if w.Address == account {
			return nil, invalid("signers", "account cannot sign for itself")
		}
		if seen[w.Address] {
			return nil, invalid("signers", "duplicate signer %s", w.Address)
		}
		if w.Weight == 0 {
			return nil, invalid("signers", "signer %s has zero weight", w.Address)
		}
		seen[w.Address] = true
		total += uint32(w.Weight)
		entries = append(entries, map[string]any{
			"SignerEntry": map[string]any{
				"Account":      w.Address,
				"SignerWeight": w.Weight,
			},
		})
	}
	if l.Threshold == 0 || l.Threshold > total {
		return nil, invalid("signers", "threshold %d unreachable with total weight %d", l.Threshold, total)
	}
	return map[string]any{
		"SignerQuorum":  l.Threshold,
		"SignerEntries": entries,
	}, nil
}
