package suite

import (
	"context"
	"fmt"

	"github.com/LeJamon/xrplconform/internal/client"
	"github.com/LeJamon/xrplconform/internal/log"
	"github.com/LeJamon/xrplconform/internal/metrics"
	"github.com/LeJamon/xrplconform/internal/txn"
	"github.com/LeJamon/xrplconform/internal/verify"
)

// SubmissionError means the node did not accept a transaction into the
// open ledger.
type SubmissionError struct {
	TransactionID string
	Type          string
	EngineResult  string
	Message       string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s %s: %s (%s)", e.Type, e.TransactionID, e.EngineResult, e.Message)
}

// Session drives transactions through one connection: prepare, sign,
// submit, close the ledger and verify.
type Session struct {
	Conn     *client.Client
	Preparer *txn.Preparer
	Advancer *verify.Advancer
	Verifier *verify.Verifier
	Metrics  *metrics.Metrics
}

// Prepare fills in the account sequence, fee and ledger window of intent.
func (s *Session) Prepare(ctx context.Context, address string, intent txn.Intent, instr txn.Instructions) (txn.Prepared, error) {
	return s.Preparer.Prepare(ctx, address, intent, instr)
}

// ValidatedLedger returns the index of the last validated ledger.
func (s *Session) ValidatedLedger(ctx context.Context) (uint32, error) {
	return s.Conn.ValidatedLedger(ctx)
}

// TestTransaction signs prepared with signer, submits it, closes the ledger
// and waits until it validates between minLedger and its
// LastLedgerSequence. A body for another account fails before anything
// is sent.
func (s *Session) TestTransaction(ctx context.Context, txType string, minLedger uint32, prepared txn.Prepared, signer txn.Wallet) (verify.Result, error) {
	body, err := txn.DecodeTxJSON(prepared.TxJSON)
	if err != nil {
		return verify.Result{}, err
	}
	if account, _ := body["Account"].(string); account != signer.Address {
		return verify.Result{}, fmt.Errorf("%w: body account %s, wallet %s", txn.ErrAccountMismatch, account, signer.Address)
	}
	signed, err := txn.Sign(prepared.TxJSON, signer.Secret, nil)
	if err != nil {
		return verify.Result{}, err
	}
	maxLedger, _ := txn.Uint32(body["LastLedgerSequence"])
	return s.Settle(ctx, txType, signer.Address, signed, verify.LedgerRange{Min: minLedger, Max: maxLedger})
}

// Settle submits an already signed transaction, advances the ledger and
// verifies it inside rng.
func (s *Session) Settle(ctx context.Context, txType, account string, signed txn.Signed, rng verify.LedgerRange) (verify.Result, error) {
	if err := s.submit(ctx, txType, signed); err != nil {
		return verify.Result{}, err
	}
	if _, err := s.Advancer.Advance(ctx, s.Conn); err != nil {
		return verify.Result{}, err
	}
	return s.Verifier.Verify(ctx, s.Conn, signed.ID, txType, account, rng)
}

// Apply is the fixture path: prepare with default instructions, sign,
// submit and close the ledger without polling for validation.
func (s *Session) Apply(ctx context.Context, signer txn.Wallet, intent txn.Intent) (string, error) {
	prepared, err := s.Prepare(ctx, signer.Address, intent, txn.Instructions{})
	if err != nil {
		return "", err
	}
	signed, err := txn.Sign(prepared.TxJSON, signer.Secret, nil)
	if err != nil {
		return "", err
	}
	if err := s.submit(ctx, intent.TransactionType(), signed); err != nil {
		return "", err
	}
	if _, err := s.Advancer.Advance(ctx, s.Conn); err != nil {
		return "", err
	}
	return signed.ID, nil
}

func (s *Session) submit(ctx context.Context, txType string, signed txn.Signed) error {
	res, err := s.Conn.Submit(ctx, signed.Blob)
	if err != nil {
		return fmt.Errorf("submit %s: %w", txType, err)
	}
	s.Metrics.RecordSubmission(txType, res.EngineResult)
	log.Debug("Submitted transaction", "type", txType, "tx", signed.ID, "result", res.EngineResult)
	if res.EngineResult != verify.SuccessResult {
		return &SubmissionError{
			TransactionID: signed.ID,
			Type:          txType,
			EngineResult:  res.EngineResult,
			Message:       res.EngineResultMessage,
		}
	}
	return nil
}
