package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/xrplconform/internal/client"
	"github.com/LeJamon/xrplconform/internal/journal"
)

const (
	testID      = "E08D6E9754025BA2534A78707605E0601F03ACE063687A0CA1BDDACFCD1698C7"
	testAccount = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
)

type MockNode struct {
	mock.Mock
}

func (m *MockNode) Tx(ctx context.Context, id string, minLedger, maxLedger uint32) (*client.TxResult, error) {
	args := m.Called(ctx, id, minLedger, maxLedger)
	tx, _ := args.Get(0).(*client.TxResult)
	return tx, args.Error(1)
}

func (m *MockNode) ValidatedLedger(ctx context.Context) (uint32, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint32), args.Error(1)
}

type MockAccepter struct {
	mock.Mock
}

func (m *MockAccepter) LedgerAccept(ctx context.Context) (uint32, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint32), args.Error(1)
}

var notFound = &client.RPCError{Command: "tx", Code: "txnNotFound", ErrorCode: 29}

func validatedTx(txType, account, result string, ledger uint32) *client.TxResult {
	return &client.TxResult{
		Hash:            testID,
		TransactionType: txType,
		Account:         account,
		LedgerIndex:     client.LedgerIndex(ledger),
		Validated:       true,
		Meta:            &client.TxMeta{TransactionResult: result},
	}
}

func fastOptions() Options {
	return Options{PollInterval: 5 * time.Millisecond, MaxAttempts: 5, Timeout: 2 * time.Second}
}

func newVerifier(t *testing.T, opts Options, options ...Option) *Verifier {
	t.Helper()
	v, err := NewVerifier(opts, options...)
	require.NoError(t, err)
	return v
}

func TestVerifySucceedsAfterPendingPolls(t *testing.T) {
	rng := LedgerRange{Min: 5, Max: 15}
	node := new(MockNode)
	node.On("Tx", mock.Anything, testID, rng.Min, rng.Max).Return(nil, notFound).Once()
	node.On("ValidatedLedger", mock.Anything).Return(uint32(5), nil).Once()
	node.On("Tx", mock.Anything, testID, rng.Min, rng.Max).
		Return(validatedTx("TrustSet", testAccount, SuccessResult, 6), nil).Once()

	txLog := NewTxLog()
	j := journal.NewMemory()
	v := newVerifier(t, fastOptions(), WithTxLog(txLog), WithJournal(j, "run-1"))

	res, err := v.Verify(context.Background(), node, testID, "TrustSet", testAccount, rng)
	require.NoError(t, err)
	assert.Equal(t, Result{
		TransactionID: testID,
		Type:          "TrustSet",
		Account:       testAccount,
		Outcome:       SuccessResult,
		LedgerIndex:   6,
	}, res)
	assert.Equal(t, []string{testID}, txLog.IDs())

	entry, err := j.Get(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "run-1", entry.Run)
	assert.Equal(t, uint32(6), entry.LedgerIndex)

	again, err := v.Verify(context.Background(), node, testID, "TrustSet", testAccount, rng)
	require.NoError(t, err)
	assert.Equal(t, res, again)
	node.AssertNumberOfCalls(t, "Tx", 2)
	assert.Equal(t, 1, txLog.Len())
	node.AssertExpectations(t)
}

func TestVerifyCachedResultOutsideNewRange(t *testing.T) {
	node := new(MockNode)
	node.On("Tx", mock.Anything, testID, uint32(5), uint32(10)).
		Return(validatedTx("TrustSet", testAccount, SuccessResult, 7), nil).Once()
	v := newVerifier(t, fastOptions())

	_, err := v.Verify(context.Background(), node, testID, "TrustSet", testAccount, LedgerRange{Min: 5, Max: 10})
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), node, testID, "TrustSet", testAccount, LedgerRange{Min: 20, Max: 30})
	var eerr *ExpirationError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, ReasonOutsideRange, eerr.Reason)
	assert.Equal(t, uint32(7), eerr.LastValidated)
	node.AssertNumberOfCalls(t, "Tx", 1)
}

func TestVerifyMismatchAndFailure(t *testing.T) {
	tests := []struct {
		name   string
		tx     *client.TxResult
		field  string
		actual string
	}{
		{"wrong type", validatedTx("Payment", testAccount, SuccessResult, 6), "TransactionType", "Payment"},
		{"wrong account", validatedTx("TrustSet", "rKmBGxocj9Abgy25J51Mk1iqFzW9aVF9Tc", SuccessResult, 6), "Account", "rKmBGxocj9Abgy25J51Mk1iqFzW9aVF9Tc"},
		{"failed result", validatedTx("TrustSet", testAccount, "tecPATH_DRY", 6), "TransactionResult", "tecPATH_DRY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := new(MockNode)
			node.On("Tx", mock.Anything, testID, uint32(5), uint32(15)).Return(tt.tx, nil).Once()
			txLog := NewTxLog()
			v := newVerifier(t, fastOptions(), WithTxLog(txLog))

			_, err := v.Verify(context.Background(), node, testID, "TrustSet", testAccount, LedgerRange{Min: 5, Max: 15})
			var verr *VerificationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.actual, verr.Actual)
			assert.Zero(t, txLog.Len())
		})
	}
}

func TestVerifyRejectsInvertedRange(t *testing.T) {
	node := new(MockNode)
	v := newVerifier(t, fastOptions())

	_, err := v.Verify(context.Background(), node, testID, "Payment", testAccount, LedgerRange{Min: 10, Max: 9})
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	node.AssertNotCalled(t, "Tx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyExpiration(t *testing.T) {
	rng := LedgerRange{Min: 5, Max: 15}
	tests := []struct {
		name   string
		setup  func(node *MockNode)
		opts   Options
		reason string
	}{
		{
			name: "ledger ceiling passed",
			setup: func(node *MockNode) {
				node.On("Tx", mock.Anything, testID, rng.Min, rng.Max).Return(nil, notFound)
				node.On("ValidatedLedger", mock.Anything).Return(uint32(16), nil)
			},
			opts:   fastOptions(),
			reason: ReasonLedgerPassed,
		},
		{
			name: "validated outside range",
			setup: func(node *MockNode) {
				node.On("Tx", mock.Anything, testID, rng.Min, rng.Max).
					Return(validatedTx("Payment", testAccount, SuccessResult, 30), nil)
			},
			opts:   fastOptions(),
			reason: ReasonOutsideRange,
		},
		{
			name: "attempts exhausted",
			setup: func(node *MockNode) {
				node.On("Tx", mock.Anything, testID, rng.Min, rng.Max).Return(nil, notFound)
				node.On("ValidatedLedger", mock.Anything).Return(uint32(5), nil)
			},
			opts:   Options{PollInterval: time.Millisecond, MaxAttempts: 3, Timeout: time.Second},
			reason: ReasonAttempts,
		},
		{
			name: "pending until timeout",
			setup: func(node *MockNode) {
				pending := &client.TxResult{Hash: testID, TransactionType: "Payment", Account: testAccount}
				node.On("Tx", mock.Anything, testID, rng.Min, rng.Max).Return(pending, nil)
				node.On("ValidatedLedger", mock.Anything).Return(uint32(5), nil)
			},
			opts:   Options{PollInterval: 10 * time.Millisecond, MaxAttempts: 1000, Timeout: 60 * time.Millisecond},
			reason: ReasonTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := new(MockNode)
			tt.setup(node)
			v := newVerifier(t, tt.opts)

			_, err := v.Verify(context.Background(), node, testID, "Payment", testAccount, rng)
			var eerr *ExpirationError
			require.ErrorAs(t, err, &eerr)
			assert.Equal(t, tt.reason, eerr.Reason)
			assert.Equal(t, rng, eerr.Range)
		})
	}
}

func TestVerifyStopsOnParentCancel(t *testing.T) {
	node := new(MockNode)
	node.On("Tx", mock.Anything, testID, uint32(5), uint32(15)).Return(nil, notFound)
	node.On("ValidatedLedger", mock.Anything).Return(uint32(5), nil)
	v := newVerifier(t, Options{PollInterval: 10 * time.Millisecond, MaxAttempts: 1000, Timeout: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := v.Verify(ctx, node, testID, "Payment", testAccount, LedgerRange{Min: 5, Max: 15})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	var eerr *ExpirationError
	assert.False(t, errors.As(err, &eerr))
}

func TestVerifyReturnsConnectionError(t *testing.T) {
	connErr := &client.ConnectionError{Op: "read", URL: "ws://node", Err: errors.New("reset")}
	node := new(MockNode)
	node.On("Tx", mock.Anything, testID, uint32(5), uint32(15)).Return(nil, connErr).Once()
	v := newVerifier(t, fastOptions())

	_, err := v.Verify(context.Background(), node, testID, "Payment", testAccount, LedgerRange{Min: 5, Max: 15})
	var got *client.ConnectionError
	require.ErrorAs(t, err, &got)
	node.AssertExpectations(t)
}

func TestAdvancer(t *testing.T) {
	accepter := new(MockAccepter)
	accepter.On("LedgerAccept", mock.Anything).Return(uint32(8), nil).Once()
	connErr := &client.ConnectionError{Op: "write", URL: "ws://node", Err: errors.New("broken pipe")}
	accepter.On("LedgerAccept", mock.Anything).Return(uint32(0), connErr).Once()

	a := &Advancer{}
	index, err := a.Advance(context.Background(), accepter)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), index)

	_, err = a.Advance(context.Background(), accepter)
	var got *client.ConnectionError
	assert.ErrorAs(t, err, &got)
	accepter.AssertExpectations(t)
}

func TestLedgerRange(t *testing.T) {
	r := LedgerRange{Min: 3, Max: 5}
	require.NoError(t, r.Validate())
	assert.True(t, r.Contains(3))
	assert.True(t, r.Contains(5))
	assert.False(t, r.Contains(6))
	assert.False(t, r.Contains(2))
	assert.Error(t, LedgerRange{Min: 6, Max: 5}.Validate())
	assert.NoError(t, LedgerRange{Min: 5, Max: 5}.Validate())
}
