package suite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/LeJamon/xrplconform/internal/client"
	"github.com/LeJamon/xrplconform/internal/fixture"
	"github.com/LeJamon/xrplconform/internal/multisig"
	"github.com/LeJamon/xrplconform/internal/txn"
	"github.com/LeJamon/xrplconform/internal/verify"
)

// Accounts the cases interact with. They are funded by the fixtures.
const (
	TrustCounterparty  = "rMH4UxPrbuMa1spCBR98hLLyNJp4d8p4tM"
	PaymentDestination = "rKmBGxocj9Abgy25J51Mk1iqFzW9aVF9Tc"
	OrderIssuer        = "rMwjYedjc7qqtKYVLiAccJSmCwih4LnE2q"
)

// FixtureAccounts lists the extra accounts the cases need funded.
func FixtureAccounts() []string {
	return []string{TrustCounterparty, PaymentDestination, OrderIssuer}
}

// Multisign case participants.
var (
	MultisignAccount = txn.Wallet{Address: "r5nx8ZkwEbFztnc8Qyi22DE9JYjRzNmvs", Secret: "ss6F8381Br6wwpy9p582H8sBt19J3"}
	MultisignSigners = []txn.Wallet{
		{Address: "rQDhz2ZNXmhxzCYwxU6qAbdxsHA4HV45Y2", Secret: "shK6YXzwYfnFVn3YZSaMh5zuAddKx"},
		{Address: "r3RtUvGw9nMoJ5FuHxuoVJvcENhKtuF9ud", Secret: "shUHQnL4EH27V4EiBrj6EfhWvZngF"},
	}
)

// SimpleTrustLine is the trust line the trustline case opens.
func SimpleTrustLine() txn.TrustLine {
	disabled, frozen := true, false
	return txn.TrustLine{
		Currency:         "USD",
		Counterparty:     TrustCounterparty,
		Limit:            "10",
		QualityIn:        910000000,
		QualityOut:       870000000,
		RipplingDisabled: &disabled,
		Frozen:           &frozen,
	}
}

// DefaultCases returns every case in the order they run. Later cases read
// state earlier ones create.
func DefaultCases() []Case {
	return []Case{
		{Name: "trustline", Run: caseTrustline},
		{Name: "payment", Run: casePayment},
		{Name: "order", Run: caseOrder},
		{Name: "isConnected", Run: caseIsConnected},
		{Name: "getFee", Run: caseGetFee},
		{Name: "getTrustlines", Run: caseGetTrustlines},
		{Name: "getBalances", Run: caseGetBalances},
		{Name: "getOrderbook", Run: caseGetOrderbook},
		{Name: "generateWallet", Run: caseGenerateWallet},
		{Name: "multisign", Run: caseMultisign},
	}
}

// SelectCases returns the named cases from DefaultCases, in default order.
func SelectCases(names ...string) ([]Case, error) {
	all := DefaultCases()
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Case
	for _, c := range all {
		if want[c.Name] {
			out = append(out, c)
			delete(want, c.Name)
		}
	}
	for n := range want {
		return nil, fmt.Errorf("unknown case %q", n)
	}
	return out, nil
}

func caseTrustline(ctx context.Context, sc *Context, s *Session) error {
	return submitCase(ctx, sc, s, sc.Wallet, SimpleTrustLine())
}

func casePayment(ctx context.Context, sc *Context, s *Session) error {
	payment := txn.Payment{Destination: PaymentDestination, Amount: txn.XRP("0.000001")}
	return submitCase(ctx, sc, s, sc.Wallet, payment)
}

func submitCase(ctx context.Context, sc *Context, s *Session, signer txn.Wallet, intent txn.Intent) error {
	minLedger, err := s.ValidatedLedger(ctx)
	if err != nil {
		return err
	}
	prepared, err := s.Prepare(ctx, signer.Address, intent, sc.Instructions())
	if err != nil {
		return err
	}
	_, err = s.TestTransaction(ctx, intent.TransactionType(), minLedger, prepared, signer)
	return err
}

func caseOrder(ctx context.Context, sc *Context, s *Session) error {
	order := txn.Order{
		Direction:  txn.Buy,
		Quantity:   txn.IOU("237", "USD", OrderIssuer),
		TotalPrice: txn.XRP("0.0002"),
	}
	minLedger, err := s.ValidatedLedger(ctx)
	if err != nil {
		return err
	}
	prepared, err := s.Prepare(ctx, sc.Wallet.Address, order, sc.Instructions())
	if err != nil {
		return err
	}
	if _, err := s.TestTransaction(ctx, "OfferCreate", minLedger, prepared, sc.Wallet); err != nil {
		return err
	}

	sequence := prepared.Instructions.Sequence
	offers, err := s.Conn.AccountOffers(ctx, sc.Wallet.Address)
	if err != nil {
		return err
	}
	var created *client.AccountOffer
	for i := range offers {
		if offers[i].Seq == sequence {
			created = &offers[i]
			break
		}
	}
	if created == nil {
		return fmt.Errorf("order %d not found among %d offers", sequence, len(offers))
	}
	if err := expectOffer(*created, 0, "1.185", txn.XRP("0.0002"), order.Quantity); err != nil {
		return err
	}

	cancel, err := s.Prepare(ctx, sc.Wallet.Address, txn.OrderCancellation{OrderSequence: sequence}, sc.Instructions())
	if err != nil {
		return err
	}
	_, err = s.TestTransaction(ctx, "OfferCancel", minLedger, cancel, sc.Wallet)
	return err
}

func expectOffer(o client.AccountOffer, flags uint32, quality string, gets, pays txn.Amount) error {
	if o.Flags != flags {
		return fmt.Errorf("offer flags %d, expected %d", o.Flags, flags)
	}
	if !sameValue(o.Quality, quality) {
		return fmt.Errorf("offer quality %s, expected %s", o.Quality, quality)
	}
	for _, side := range []struct {
		name     string
		raw      json.RawMessage
		expected txn.Amount
	}{
		{"taker_gets", o.TakerGets, gets},
		{"taker_pays", o.TakerPays, pays},
	} {
		got, err := txn.ParseAmountJSON(side.raw)
		if err != nil {
			return fmt.Errorf("offer %s: %w", side.name, err)
		}
		if !got.SameIssue(side.expected) || !sameValue(got.Value, side.expected.Value) {
			return fmt.Errorf("offer %s is %s, expected %s", side.name, got, side.expected)
		}
	}
	return nil
}

func sameValue(a, b string) bool {
	x, ok1 := new(big.Rat).SetString(a)
	y, ok2 := new(big.Rat).SetString(b)
	return ok1 && ok2 && x.Cmp(y) == 0
}

func caseIsConnected(_ context.Context, _ *Context, s *Session) error {
	if !s.Conn.IsConnected() {
		return errors.New("client reports disconnected")
	}
	return nil
}

func caseGetFee(ctx context.Context, _ *Context, s *Session) error {
	fee, err := GetFee(ctx, s.Conn, nil)
	if err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(fee, 64); err != nil {
		return fmt.Errorf("fee %q is not a number", fee)
	}
	return nil
}

func caseGetTrustlines(ctx context.Context, sc *Context, s *Session) error {
	expected := SimpleTrustLine()
	lines, err := GetTrustlines(ctx, s.Conn, sc.Wallet.Address, expected.Currency, expected.Counterparty)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("no %s trust line to %s", expected.Currency, expected.Counterparty)
	}
	line := lines[0]
	switch {
	case !sameValue(line.Limit, expected.Limit):
		return fmt.Errorf("trust line limit %s, expected %s", line.Limit, expected.Limit)
	case line.Currency != expected.Currency:
		return fmt.Errorf("trust line currency %s, expected %s", line.Currency, expected.Currency)
	case line.Account != expected.Counterparty:
		return fmt.Errorf("trust line counterparty %s, expected %s", line.Account, expected.Counterparty)
	}
	return nil
}

func caseGetBalances(ctx context.Context, sc *Context, s *Session) error {
	expected := SimpleTrustLine()
	balances, err := GetBalances(ctx, s.Conn, sc.Wallet.Address, expected.Currency, expected.Counterparty)
	if err != nil {
		return err
	}
	if len(balances) == 0 {
		return errors.New("no balances")
	}
	if balances[0].Currency != expected.Currency || balances[0].Counterparty != expected.Counterparty {
		return fmt.Errorf("balance %s/%s, expected %s/%s",
			balances[0].Currency, balances[0].Counterparty, expected.Currency, expected.Counterparty)
	}
	return nil
}

func caseGetOrderbook(ctx context.Context, sc *Context, s *Session) error {
	book := Book{
		Base:    client.Issue{Currency: txn.NativeCurrency},
		Counter: client.Issue{Currency: "USD", Issuer: sc.Master.Address},
	}
	ob, err := GetOrderbook(ctx, s.Conn, book, 0)
	if err != nil {
		return err
	}
	if len(ob.Bids) == 0 || len(ob.Asks) == 0 {
		return fmt.Errorf("order book has %d bids and %d asks", len(ob.Bids), len(ob.Asks))
	}
	if err := expectAligned(ob.Bids[0], txn.Buy, book); err != nil {
		return fmt.Errorf("bid: %w", err)
	}
	if err := expectAligned(ob.Asks[0], txn.Sell, book); err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	return nil
}

func expectAligned(o BookOrder, direction txn.Direction, book Book) error {
	spec := o.Specification
	switch {
	case spec.Direction != direction:
		return fmt.Errorf("direction %s, expected %s", spec.Direction, direction)
	case spec.Quantity.Currency != book.Base.Currency:
		return fmt.Errorf("quantity in %s, expected %s", spec.Quantity.Currency, book.Base.Currency)
	case spec.TotalPrice.Currency != book.Counter.Currency:
		return fmt.Errorf("total price in %s, expected %s", spec.TotalPrice.Currency, book.Counter.Currency)
	}
	return nil
}

func caseGenerateWallet(ctx context.Context, _ *Context, s *Session) error {
	proposal, err := s.Conn.WalletPropose(ctx)
	if err != nil {
		return err
	}
	if !txn.IsValidAddress(proposal.AccountID) {
		return fmt.Errorf("generated address %q is invalid", proposal.AccountID)
	}
	w, err := txn.WalletFromSecret(proposal.MasterSeed)
	if err != nil {
		return fmt.Errorf("generated secret is invalid: %w", err)
	}
	if w.Address != proposal.AccountID {
		return fmt.Errorf("generated secret controls %s, not %s", w.Address, proposal.AccountID)
	}
	return nil
}

func caseMultisign(ctx context.Context, sc *Context, s *Session) error {
	account := MultisignAccount
	amount := sc.Options.Fixture.FundAmount
	if amount == "" {
		amount = fixture.DefaultFundAmount
	}
	if _, err := s.Apply(ctx, sc.Master, txn.Payment{Destination: account.Address, Amount: txn.XRP(amount)}); err != nil {
		return fmt.Errorf("fund %s: %w", account.Address, err)
	}

	minLedger, err := s.ValidatedLedger(ctx)
	if err != nil {
		return err
	}
	list := txn.SignerList{Threshold: uint32(len(MultisignSigners))}
	for _, signer := range MultisignSigners {
		list.Weights = append(list.Weights, txn.SignerWeight{Address: signer.Address, Weight: 1})
	}
	prepared, err := s.Prepare(ctx, account.Address, txn.Settings{Signers: &list}, sc.Instructions())
	if err != nil {
		return err
	}
	if _, err := s.TestTransaction(ctx, "SignerListSet", minLedger, prepared, account); err != nil {
		return err
	}

	domain := "example.com"
	instr := sc.Instructions()
	instr.SignersCount = uint32(len(MultisignSigners))
	prepared, err = s.Prepare(ctx, account.Address, txn.Settings{Domain: &domain}, instr)
	if err != nil {
		return err
	}
	partials, err := SignPartials(prepared.TxJSON, MultisignSigners...)
	if err != nil {
		return err
	}

	// The combiner does not enforce quorum; the node must reject a lone signature.
	lone, err := multisig.Combiner{}.Combine(partials[:1])
	if err != nil {
		return err
	}
	rng := verify.LedgerRange{Min: minLedger, Max: prepared.Instructions.MaxLedgerVersion}
	_, err = s.Settle(ctx, "AccountSet", account.Address, txn.Signed{Blob: lone.Blob, ID: lone.ID}, rng)
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		return fmt.Errorf("single partial signature was not rejected by the node: %v", err)
	}

	info, err := s.Conn.AccountInfo(ctx, account.Address)
	if err != nil {
		return err
	}
	onLedger, ok := info.SignerList()
	if !ok {
		return fmt.Errorf("%s has no signer list", account.Address)
	}
	combiner := multisig.Combiner{Policy: multisig.PolicyFromLedger(onLedger)}
	var quorumErr *multisig.QuorumError
	if _, err := combiner.Combine(partials[:1]); !errors.As(err, &quorumErr) {
		return fmt.Errorf("single partial signature passed the signer list check: %v", err)
	}

	combined, err := combiner.Combine(partials)
	s.Metrics.RecordCombination(combineStatus(err))
	if err != nil {
		return err
	}
	_, err = s.Settle(ctx, "AccountSet", account.Address, txn.Signed{Blob: combined.Blob, ID: combined.ID}, rng)
	return err
}

// SignPartials signs txJSON once per signer, each as a multisig contributor.
func SignPartials(txJSON string, signers ...txn.Wallet) ([]multisig.Partial, error) {
	partials := make([]multisig.Partial, 0, len(signers))
	for _, signer := range signers {
		signed, err := txn.Sign(txJSON, signer.Secret, &txn.SignOptions{SignAs: signer.Address})
		if err != nil {
			return nil, fmt.Errorf("sign as %s: %w", signer.Address, err)
		}
		partials = append(partials, multisig.Partial{Signer: signer.Address, Blob: signed.Blob, ID: signed.ID})
	}
	return partials, nil
}

func combineStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
