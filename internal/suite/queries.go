package suite

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/LeJamon/xrplconform/internal/client"
	"github.com/LeJamon/xrplconform/internal/txn"
)

// lsfSell marks an offer placed as a sell.
const lsfSell uint32 = 0x00020000

// DefaultFeeCushion multiplies the base fee in GetFee.
var DefaultFeeCushion = big.NewRat(6, 5)

// OrderSpec describes an offer from the point of view of its maker.
type OrderSpec struct {
	Direction  txn.Direction `json:"direction"`
	Quantity   txn.Amount    `json:"quantity"`
	TotalPrice txn.Amount    `json:"totalPrice"`
}

// BookOrder is one offer of an order book.
type BookOrder struct {
	Specification OrderSpec `json:"specification"`
	Maker         string    `json:"maker"`
	Sequence      uint32    `json:"sequence"`
	Quality       string    `json:"quality"`
}

// Book names the two sides of an order book.
type Book struct {
	Base    client.Issue
	Counter client.Issue
}

// Orderbook holds the offers of a book aligned to its base: bids buy the
// base currency, asks sell it.
type Orderbook struct {
	Bids []BookOrder `json:"bids"`
	Asks []BookOrder `json:"asks"`
}

// BookReader is the part of the node API GetOrderbook needs.
type BookReader interface {
	BookOffers(ctx context.Context, takerGets, takerPays client.Issue, limit int) ([]client.BookOffer, error)
}

// GetOrderbook loads both directions of book and aligns every offer so that
// its quantity is in the base currency.
func GetOrderbook(ctx context.Context, node BookReader, book Book, limit int) (Orderbook, error) {
	direct, err := node.BookOffers(ctx, book.Base, book.Counter, limit)
	if err != nil {
		return Orderbook{}, fmt.Errorf("book_offers %s/%s: %w", book.Base, book.Counter, err)
	}
	reverse, err := node.BookOffers(ctx, book.Counter, book.Base, limit)
	if err != nil {
		return Orderbook{}, fmt.Errorf("book_offers %s/%s: %w", book.Counter, book.Base, err)
	}

	type ranked struct {
		order   BookOrder
		quality *big.Rat
	}
	var all []ranked
	for _, raw := range append(direct, reverse...) {
		order, err := parseBookOffer(raw)
		if err != nil {
			return Orderbook{}, err
		}
		quality, ok := new(big.Rat).SetString(raw.Quality)
		if !ok {
			quality = new(big.Rat)
		}
		all = append(all, ranked{order: alignOrder(book.Base, order), quality: quality})
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].quality.Cmp(all[j].quality) < 0
	})

	var ob Orderbook
	for _, r := range all {
		switch r.order.Specification.Direction {
		case txn.Buy:
			ob.Bids = append(ob.Bids, r.order)
		case txn.Sell:
			ob.Asks = append(ob.Asks, r.order)
		}
	}
	return ob, nil
}

func parseBookOffer(raw client.BookOffer) (BookOrder, error) {
	gets, err := txn.ParseAmountJSON(raw.TakerGets)
	if err != nil {
		return BookOrder{}, fmt.Errorf("offer %s/%d: %w", raw.Account, raw.Sequence, err)
	}
	pays, err := txn.ParseAmountJSON(raw.TakerPays)
	if err != nil {
		return BookOrder{}, fmt.Errorf("offer %s/%d: %w", raw.Account, raw.Sequence, err)
	}
	spec := OrderSpec{Direction: txn.Buy, Quantity: pays, TotalPrice: gets}
	if raw.Flags&lsfSell != 0 {
		spec = OrderSpec{Direction: txn.Sell, Quantity: gets, TotalPrice: pays}
	}
	return BookOrder{
		Specification: spec,
		Maker:         raw.Account,
		Sequence:      raw.Sequence,
		Quality:       raw.Quality,
	}, nil
}

// alignOrder flips an order whose quantity is not in the base currency.
func alignOrder(base client.Issue, order BookOrder) BookOrder {
	if order.Specification.Quantity.Issue() == base {
		return order
	}
	spec := order.Specification
	direction := txn.Buy
	if spec.Direction == txn.Buy {
		direction = txn.Sell
	}
	order.Specification = OrderSpec{
		Direction:  direction,
		Quantity:   spec.TotalPrice,
		TotalPrice: spec.Quantity,
	}
	return order
}

// Balance is one currency an account holds.
type Balance struct {
	Currency     string `json:"currency"`
	Counterparty string `json:"counterparty,omitempty"`
	Value        string `json:"value"`
}

// AccountReader is the part of the node API the balance queries need.
type AccountReader interface {
	AccountInfo(ctx context.Context, account string) (*client.AccountInfo, error)
	AccountLines(ctx context.Context, account, peer string) ([]client.TrustLine, error)
}

// GetTrustlines returns the trust lines of address, optionally limited to
// one currency and counterparty.
func GetTrustlines(ctx context.Context, node AccountReader, address, currency, counterparty string) ([]client.TrustLine, error) {
	lines, err := node.AccountLines(ctx, address, counterparty)
	if err != nil {
		return nil, fmt.Errorf("account_lines %s: %w", address, err)
	}
	if currency == "" {
		return lines, nil
	}
	out := lines[:0]
	for _, l := range lines {
		if l.Currency == currency {
			out = append(out, l)
		}
	}
	return out, nil
}

// GetBalances returns the XRP balance of address followed by its trust line
// balances. A currency or counterparty filter drops everything else.
func GetBalances(ctx context.Context, node AccountReader, address, currency, counterparty string) ([]Balance, error) {
	var balances []Balance
	if (currency == "" || currency == txn.NativeCurrency) && counterparty == "" {
		info, err := node.AccountInfo(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("account_info %s: %w", address, err)
		}
		xrp, err := txn.DropsToXRP(info.AccountData.Balance)
		if err != nil {
			return nil, err
		}
		balances = append(balances, Balance{Currency: txn.NativeCurrency, Value: xrp})
	}
	if currency == txn.NativeCurrency {
		return balances, nil
	}
	lines, err := GetTrustlines(ctx, node, address, currency, counterparty)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		balances = append(balances, Balance{Currency: l.Currency, Counterparty: l.Account, Value: l.Balance})
	}
	return balances, nil
}

// FeeReader reads the node's fee schedule.
type FeeReader interface {
	Fee(ctx context.Context) (*client.FeeResult, error)
}

// GetFee returns the base fee times cushion, in XRP.
func GetFee(ctx context.Context, node FeeReader, cushion *big.Rat) (string, error) {
	res, err := node.Fee(ctx)
	if err != nil {
		return "", fmt.Errorf("fee: %w", err)
	}
	drops, ok := new(big.Rat).SetString(res.Drops.BaseFee)
	if !ok {
		return "", fmt.Errorf("fee: base fee %q is not a number", res.Drops.BaseFee)
	}
	if cushion == nil {
		cushion = DefaultFeeCushion
	}
	fee := new(big.Rat).Mul(drops, cushion)
	fee.Quo(fee, big.NewRat(1_000_000, 1))
	return txn.FormatRat(fee), nil
}
