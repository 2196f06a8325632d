package suite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/xrplconform/internal/client"
	"github.com/LeJamon/xrplconform/internal/client/clienttest"
	"github.com/LeJamon/xrplconform/internal/fixture"
	"github.com/LeJamon/xrplconform/internal/journal"
	"github.com/LeJamon/xrplconform/internal/multisig"
	"github.com/LeJamon/xrplconform/internal/txn"
	"github.com/LeJamon/xrplconform/internal/verify"
)

const walletSecret = "sp6JS7f14BuwFY8Mw6bis8D1Wa9Uy"

func testOptions(t *testing.T, node *clienttest.Node) Options {
	t.Helper()
	master, err := txn.WalletFromSecret(clienttest.MasterSecret)
	require.NoError(t, err)
	wallet, err := txn.WalletFromSecret(walletSecret)
	require.NoError(t, err)
	return Options{
		URL:         node.URL(),
		DialTimeout: time.Second,
		CaseTimeout: 5 * time.Second,
		Verify: verify.Options{
			PollInterval: 5 * time.Millisecond,
			MaxAttempts:  10,
			Timeout:      2 * time.Second,
		},
		Master:  master,
		Wallet:  wallet,
		Fixture: fixture.PlanConfig{Extra: FixtureAccounts()},
	}
}

func newTestRunner(t *testing.T, node *clienttest.Node, opts ...RunnerOption) *Runner {
	t.Helper()
	r, err := NewRunner(testOptions(t, node), opts...)
	require.NoError(t, err)
	return r
}

func newTestSession(t *testing.T, r *Runner) *Session {
	t.Helper()
	s, err := r.Session(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { s.Conn.Close() })
	return s
}

func TestRunPassesEveryCase(t *testing.T) {
	node := clienttest.NewNode(t)
	j := journal.NewMemory()
	r := newTestRunner(t, node, WithJournal(j, "test-run"))

	report, err := r.Run(context.Background(), DefaultCases())
	require.NoError(t, err)
	require.Len(t, report.Results, len(DefaultCases()))
	for _, res := range report.Results {
		assert.NoError(t, res.Err, "case %s", res.Name)
	}
	assert.Zero(t, report.Failed())
	assert.NotZero(t, report.StartLedger)

	// The suite wallet's fixture trust line, then trustline, payment,
	// order create and cancel, signer list and the multisigned AccountSet.
	require.Len(t, report.Transactions, 7)
	entries, err := j.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 6)
	assert.Equal(t, "test-run", entries[0].Run)
	assert.Equal(t, "TrustSet", entries[0].Type)

	assert.Zero(t, node.Offers(r.opts.Wallet.Address))
}

func TestSetupBuildsFixtures(t *testing.T) {
	node := clienttest.NewNode(t)
	r := newTestRunner(t, node)

	sc, err := r.Setup(context.Background())
	require.NoError(t, err)
	require.NoError(t, sc.NewWallet.Validate())
	assert.NotEqual(t, sc.Wallet.Address, sc.NewWallet.Address)
	assert.NotZero(t, sc.StartLedger)

	for _, address := range FixtureAccounts() {
		assert.Equal(t, "4003218000000", node.Balance(address), address)
	}
	assert.NotEmpty(t, node.Balance(sc.NewWallet.Address))
	assert.Equal(t, 1, node.Offers(sc.NewWallet.Address))
	assert.Equal(t, 1, node.Offers(sc.Master.Address))
	assert.Equal(t, 1, sc.Transactions.Len())

	s := newTestSession(t, r)
	balances, err := GetBalances(context.Background(), s.Conn, sc.Wallet.Address, "USD", sc.Master.Address)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, Balance{Currency: "USD", Counterparty: sc.Master.Address, Value: "123"}, balances[0])
}

func TestTrustlineScenario(t *testing.T) {
	node := clienttest.NewNode(t)
	r := newTestRunner(t, node)
	sc, err := r.Setup(context.Background())
	require.NoError(t, err)

	cases, err := SelectCases("trustline", "getTrustlines", "getBalances")
	require.NoError(t, err)
	for _, c := range cases {
		res := r.RunCase(context.Background(), sc, c)
		require.NoError(t, res.Err, c.Name)
	}
	assert.Equal(t, 2, sc.Transactions.Len())
}

func TestOrderbookAlignment(t *testing.T) {
	node := clienttest.NewNode(t)
	r := newTestRunner(t, node)
	sc, err := r.Setup(context.Background())
	require.NoError(t, err)

	s := newTestSession(t, r)
	book := Book{
		Base:    client.Issue{Currency: "XRP"},
		Counter: client.Issue{Currency: "USD", Issuer: sc.Master.Address},
	}
	ob, err := GetOrderbook(context.Background(), s.Conn, book, 0)
	require.NoError(t, err)
	require.Len(t, ob.Bids, 1)
	require.Len(t, ob.Asks, 1)

	bid := ob.Bids[0]
	assert.Equal(t, sc.Master.Address, bid.Maker)
	assert.Equal(t, txn.Buy, bid.Specification.Direction)
	assert.Equal(t, txn.XRP("1741"), bid.Specification.Quantity)
	assert.Equal(t, "USD", bid.Specification.TotalPrice.Currency)

	ask := ob.Asks[0]
	assert.Equal(t, sc.NewWallet.Address, ask.Maker)
	assert.Equal(t, txn.Sell, ask.Specification.Direction)
	assert.Equal(t, txn.XRP("432"), ask.Specification.Quantity)
	assert.Equal(t, "USD", ask.Specification.TotalPrice.Currency)
}

func TestMultisignScenario(t *testing.T) {
	node := clienttest.NewNode(t)
	r := newTestRunner(t, node)
	sc := &Context{Options: r.opts, Master: r.opts.Master, Transactions: verify.NewTxLog()}

	res := r.RunCase(context.Background(), sc, Case{Name: "multisign", Run: caseMultisign})
	require.NoError(t, res.Err)
	// Funding, SignerListSet, the rejected lone signature and the combined transaction.
	assert.Equal(t, 4, node.Requests("submit"))

	s := newTestSession(t, r)
	info, err := s.Conn.AccountInfo(context.Background(), MultisignAccount.Address)
	require.NoError(t, err)
	assert.Equal(t, "6578616D706C652E636F6D", info.AccountData.Domain)

	// A lone partial combined without a policy is rejected by the node.
	domain := "example.org"
	prepared, err := s.Prepare(context.Background(), MultisignAccount.Address,
		txn.Settings{Domain: &domain}, txn.Instructions{SignersCount: 1})
	require.NoError(t, err)
	partials, err := SignPartials(prepared.TxJSON, MultisignSigners[0])
	require.NoError(t, err)
	combined, err := multisig.Combiner{}.Combine(partials)
	require.NoError(t, err)

	minLedger, err := s.ValidatedLedger(context.Background())
	require.NoError(t, err)
	_, err = s.Settle(context.Background(), "AccountSet", MultisignAccount.Address,
		txn.Signed{Blob: combined.Blob, ID: combined.ID},
		verify.LedgerRange{Min: minLedger, Max: prepared.Instructions.MaxLedgerVersion})
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "tefBAD_QUORUM", subErr.EngineResult)
}

func TestWrongWalletFailsBeforeSubmit(t *testing.T) {
	node := clienttest.NewNode(t)
	r := newTestRunner(t, node)
	s := newTestSession(t, r)

	payment := txn.Payment{Destination: PaymentDestination, Amount: txn.XRP("1")}
	prepared, err := s.Prepare(context.Background(), r.opts.Master.Address, payment, txn.Instructions{})
	require.NoError(t, err)

	_, err = s.TestTransaction(context.Background(), "Payment", 1, prepared, r.opts.Wallet)
	require.ErrorIs(t, err, txn.ErrAccountMismatch)
	assert.Zero(t, node.Requests("submit"))
}

func TestNeverValidatedExpires(t *testing.T) {
	node := clienttest.NewNode(t)
	r := newTestRunner(t, node)
	s := newTestSession(t, r)
	node.HoldLedgers(true)

	minLedger, err := s.ValidatedLedger(context.Background())
	require.NoError(t, err)
	payment := txn.Payment{Destination: PaymentDestination, Amount: txn.XRP("1")}
	prepared, err := s.Prepare(context.Background(), r.opts.Master.Address, payment, txn.Instructions{MaxLedgerVersionOffset: 10})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.TestTransaction(context.Background(), "Payment", minLedger, prepared, r.opts.Master)
		done <- err
	}()

	select {
	case err := <-done:
		var expErr *verify.ExpirationError
		require.ErrorAs(t, err, &expErr)
		assert.Equal(t, minLedger, expErr.Range.Min)
	case <-time.After(5 * time.Second):
		t.Fatal("verification did not give up")
	}
}

func TestRunCaseTimeout(t *testing.T) {
	node := clienttest.NewNode(t)
	opts := testOptions(t, node)
	opts.CaseTimeout = 50 * time.Millisecond
	r, err := NewRunner(opts)
	require.NoError(t, err)

	blocking := Case{Name: "blocking", Run: func(ctx context.Context, _ *Context, _ *Session) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	res := r.RunCase(context.Background(), &Context{Options: r.opts}, blocking)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Less(t, res.Duration, 5*time.Second)
}

func TestVerifyTimeoutWithinCaseTimeout(t *testing.T) {
	node := clienttest.NewNode(t)
	tests := []struct {
		name   string
		verify time.Duration
		want   time.Duration
	}{
		{"unset", 0, 2 * time.Second},
		{"longer than share", 20 * time.Second, 2 * time.Second},
		{"shorter kept", time.Second, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t, node)
			opts.CaseTimeout = 8 * time.Second
			opts.Verify.Timeout = tt.verify
			r, err := NewRunner(opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.verifier.Options().Timeout)
		})
	}
}

func TestSetupFailsWithoutNode(t *testing.T) {
	node := clienttest.NewNode(t)
	r := newTestRunner(t, node)
	node.Close()

	_, err := r.Run(context.Background(), DefaultCases())
	var connErr *client.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestNewRunnerValidatesWallets(t *testing.T) {
	node := clienttest.NewNode(t)
	opts := testOptions(t, node)
	opts.Wallet.Address = MultisignAccount.Address
	_, err := NewRunner(opts)
	assert.ErrorIs(t, err, txn.ErrAccountMismatch)

	opts = testOptions(t, node)
	opts.URL = ""
	_, err = NewRunner(opts)
	assert.Error(t, err)
}

func TestSelectCases(t *testing.T) {
	cases, err := SelectCases("multisign", "trustline")
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "trustline", cases[0].Name)
	assert.Equal(t, "multisign", cases[1].Name)

	all, err := SelectCases()
	require.NoError(t, err)
	assert.Len(t, all, 10)

	_, err = SelectCases("getPaths")
	assert.Error(t, err)
}

type stubFee struct {
	base string
	err  error
}

func (s stubFee) Fee(context.Context) (*client.FeeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := &client.FeeResult{}
	res.Drops.BaseFee = s.base
	return res, nil
}

func TestGetFee(t *testing.T) {
	fee, err := GetFee(context.Background(), stubFee{base: "10"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "0.000012", fee)

	_, err = GetFee(context.Background(), stubFee{base: "ten"}, nil)
	assert.Error(t, err)

	_, err = GetFee(context.Background(), stubFee{err: errors.New("down")}, nil)
	assert.Error(t, err)
}

func TestAlignOrder(t *testing.T) {
	base := client.Issue{Currency: "XRP"}
	order := BookOrder{Specification: OrderSpec{
		Direction:  txn.Buy,
		Quantity:   txn.IOU("432", "USD", clienttest.MasterAddress),
		TotalPrice: txn.XRP("432"),
	}}
	aligned := alignOrder(base, order)
	assert.Equal(t, txn.Sell, aligned.Specification.Direction)
	assert.Equal(t, txn.XRP("432"), aligned.Specification.Quantity)
	assert.Equal(t, order.Specification.Quantity, aligned.Specification.TotalPrice)

	assert.Equal(t, aligned, alignOrder(base, aligned))
}
