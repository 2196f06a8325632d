// Package verify advances a standalone ledger and confirms that submitted
// transactions reach a validated, successful state inside their ledger range.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LeJamon/xrplconform/internal/client"
	"github.com/LeJamon/xrplconform/internal/journal"
	"github.com/LeJamon/xrplconform/internal/log"
	"github.com/LeJamon/xrplconform/internal/metrics"
)

// Defaults for Options.
const (
	DefaultPollInterval = time.Second
	DefaultMaxAttempts  = 20
	DefaultTimeout      = 20 * time.Second
	DefaultCacheSize    = 256
)

// Node is the lookup side of the ledger API the verifier polls.
type Node interface {
	Tx(ctx context.Context, id string, minLedger, maxLedger uint32) (*client.TxResult, error)
	ValidatedLedger(ctx context.Context) (uint32, error)
}

// Recorder persists verified transactions.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Options bound the poll loop.
type Options struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheSize    int           `mapstructure:"cache_size"`
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	return o
}

// Option wires a collaborator into a Verifier.
type Option func(*Verifier)

// WithTxLog appends every verified id to l.
func WithTxLog(l *TxLog) Option {
	return func(v *Verifier) { v.txLog = l }
}

// WithJournal records every verified transaction in r.
func WithJournal(r Recorder, run string) Option {
	return func(v *Verifier) {
		v.journal = r
		v.run = run
	}
}

// WithMetrics reports poll outcomes to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) { v.metrics = m }
}

// Verifier polls tx until a transaction is validated, its range expires or
// the attempt budget runs out. Successful results are cached by id.
type Verifier struct {
	opts    Options
	txLog   *TxLog
	journal Recorder
	run     string
	metrics *metrics.Metrics
	cache   *lru.Cache[string, Result]
}

// NewVerifier creates a Verifier. Zero option fields take the defaults.
func NewVerifier(opts Options, options ...Option) (*Verifier, error) {
	opts = opts.withDefaults()
	cache, err := lru.New[string, Result](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	v := &Verifier{opts: opts, cache: cache}
	for _, o := range options {
		o(v)
	}
	return v, nil
}

// Options returns the effective options.
func (v *Verifier) Options() Options {
	return v.opts
}

// Verify waits for transaction id to validate inside rng and checks that it
// has the expected type, account and a tesSUCCESS result.
func (v *Verifier) Verify(ctx context.Context, node Node, id, expectedType, expectedAccount string, rng LedgerRange) (Result, error) {
	if err := rng.Validate(); err != nil {
		return Result{}, &VerificationError{
			TransactionID: id,
			Field:         "ledger range",
			Expected:      "min <= max",
			Actual:        rng.String(),
		}
	}

	if cached, ok := v.cache.Get(id); ok {
		if !rng.Contains(cached.LedgerIndex) {
			return Result{}, &ExpirationError{
				TransactionID: id,
				Range:         rng,
				LastValidated: cached.LedgerIndex,
				Reason:        ReasonOutsideRange,
			}
		}
		if err := expect(cached, expectedType, expectedAccount); err != nil {
			return Result{}, err
		}
		v.metrics.RecordCacheHit()
		return cached, nil
	}

	start := time.Now()
	res, attempts, err := v.poll(ctx, node, id, rng)
	if err == nil {
		err = expect(res, expectedType, expectedAccount)
	}
	v.metrics.RecordVerification(expectedType, outcomeLabel(err), attempts, time.Since(start).Seconds())
	if err != nil {
		log.Warn("Verification failed", "tx", id, "attempts", attempts, "err", err)
		return Result{}, err
	}

	v.cache.Add(id, res)
	v.txLog.Append(id)
	if v.journal != nil {
		entry := journal.Entry{
			TransactionID: res.TransactionID,
			Type:          res.Type,
			Account:       res.Account,
			Outcome:       res.Outcome,
			LedgerIndex:   res.LedgerIndex,
			Run:           v.run,
		}
		if err := v.journal.Record(ctx, entry); err != nil {
			log.Warn("Failed to journal transaction", "tx", id, "err", err)
		}
	}
	log.Info("Transaction verified", "tx", id, "type", res.Type, "ledger", res.LedgerIndex, "attempts", attempts)
	return res, nil
}

func (v *Verifier) poll(parent context.Context, node Node, id string, rng LedgerRange) (Result, int, error) {
	ctx, cancel := context.WithTimeout(parent, v.opts.Timeout)
	defer cancel()

	expired := func(attempts int, lastValidated uint32, reason string) error {
		return &ExpirationError{
			TransactionID: id,
			Range:         rng,
			LastValidated: lastValidated,
			Attempts:      attempts,
			Reason:        reason,
		}
	}

	timer := time.NewTimer(v.opts.PollInterval)
	defer timer.Stop()

	var lastValidated uint32
	for attempt := 1; attempt <= v.opts.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			if err := parent.Err(); err != nil {
				return Result{}, attempt - 1, fmt.Errorf("verify %s: %w", id, err)
			}
			return Result{}, attempt - 1, expired(attempt-1, lastValidated, ReasonTimeout)
		case <-timer.C:
		}

		tx, err := node.Tx(ctx, id, rng.Min, rng.Max)
		switch {
		case err == nil && tx.Validated:
			index := tx.Ledger()
			if !rng.Contains(index) {
				return Result{}, attempt, expired(attempt, index, ReasonOutsideRange)
			}
			return Result{
				TransactionID: id,
				Type:          tx.TransactionType,
				Account:       tx.Account,
				Outcome:       tx.Result(),
				LedgerIndex:   index,
				Raw:           tx.Raw,
			}, attempt, nil

		case err == nil, client.IsRPCError(err, "txnNotFound"):
			validated, verr := node.ValidatedLedger(ctx)
			if verr == nil {
				lastValidated = validated
				if validated > rng.Max {
					return Result{}, attempt, expired(attempt, validated, ReasonLedgerPassed)
				}
			}

		default:
			var connErr *client.ConnectionError
			if errors.As(err, &connErr) {
				return Result{}, attempt, err
			}
			if ctx.Err() == nil {
				log.Debug("Transaction lookup failed, retrying", "tx", id, "attempt", attempt, "err", err)
			}
		}

		timer.Reset(v.opts.PollInterval)
	}
	return Result{}, v.opts.MaxAttempts, expired(v.opts.MaxAttempts, lastValidated, ReasonAttempts)
}

func expect(res Result, expectedType, expectedAccount string) error {
	switch {
	case res.Type != expectedType:
		return &VerificationError{TransactionID: res.TransactionID, Field: "TransactionType", Expected: expectedType, Actual: res.Type}
	case res.Account != expectedAccount:
		return &VerificationError{TransactionID: res.TransactionID, Field: "Account", Expected: expectedAccount, Actual: res.Account}
	case res.Outcome != SuccessResult:
		return &VerificationError{TransactionID: res.TransactionID, Field: "TransactionResult", Expected: SuccessResult, Actual: res.Outcome}
	}
	return nil
}

func outcomeLabel(err error) string {
	var (
		verr *VerificationError
		eerr *ExpirationError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "mismatch"
	case errors.As(err, &eerr):
		return "expired"
	default:
		return "error"
	}
}
