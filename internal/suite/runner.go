// Package suite runs the conformance cases against a standalone node: one
// fixture setup per run, then every case under its own timeout and on its
// own connection.
package suite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeJamon/xrplconform/internal/client"
	"github.com/LeJamon/xrplconform/internal/fixture"
	"github.com/LeJamon/xrplconform/internal/log"
	"github.com/LeJamon/xrplconform/internal/metrics"
	"github.com/LeJamon/xrplconform/internal/txn"
	"github.com/LeJamon/xrplconform/internal/verify"
)

// Defaults for Options.
const (
	DefaultCaseTimeout      = 20 * time.Second
	DefaultSetupTimeout     = 2 * time.Minute
	DefaultCaseLedgerOffset = 10

	// VerifyShareOfCase divides CaseTimeout into the longest a single
	// verification may poll.
	VerifyShareOfCase = 4
)

// Options configure a Runner.
type Options struct {
	URL         string
	DialTimeout time.Duration

	CaseTimeout  time.Duration
	SetupTimeout time.Duration

	// LedgerOffset is the default LastLedgerSequence offset for fixtures;
	// CaseLedgerOffset is the one cases prepare with.
	LedgerOffset     uint32
	CaseLedgerOffset uint32

	Verify verify.Options

	Master txn.Wallet
	Wallet txn.Wallet

	// Fixture carries amounts and extra accounts; its wallets are filled in
	// during setup.
	Fixture fixture.PlanConfig
}

func (o Options) withDefaults() Options {
	if o.CaseTimeout <= 0 {
		o.CaseTimeout = DefaultCaseTimeout
	}
	if o.SetupTimeout <= 0 {
		o.SetupTimeout = DefaultSetupTimeout
	}
	if limit := o.CaseTimeout / VerifyShareOfCase; o.Verify.Timeout <= 0 || o.Verify.Timeout > limit {
		o.Verify.Timeout = limit
	}
	if o.CaseLedgerOffset == 0 {
		o.CaseLedgerOffset = DefaultCaseLedgerOffset
	}
	if o.LedgerOffset == 0 {
		o.LedgerOffset = txn.DefaultMaxLedgerVersionOffset
	}
	return o
}

// Case is one conformance check.
type Case struct {
	Name string
	Run  func(ctx context.Context, sc *Context, s *Session) error
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Report summarises a run.
type Report struct {
	StartLedger  uint32
	Results      []CaseResult
	Transactions []string
}

// Failed returns the number of failed cases.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// RunnerOption wires a collaborator into a Runner.
type RunnerOption func(*runnerDeps)

type runnerDeps struct {
	metrics *metrics.Metrics
	journal verify.Recorder
	run     string
}

// WithMetrics reports to m.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(d *runnerDeps) { d.metrics = m }
}

// WithJournal records verified transactions under run.
func WithJournal(r verify.Recorder, run string) RunnerOption {
	return func(d *runnerDeps) {
		d.journal = r
		d.run = run
	}
}

// Runner owns the components shared by every case of a run.
type Runner struct {
	opts     Options
	metrics  *metrics.Metrics
	txLog    *verify.TxLog
	advancer *verify.Advancer
	verifier *verify.Verifier
}

// NewRunner validates the wallets in opts and builds the shared verifier.
func NewRunner(opts Options, options ...RunnerOption) (*Runner, error) {
	opts = opts.withDefaults()
	if opts.URL == "" {
		return nil, errors.New("suite: node url is required")
	}
	if err := opts.Master.Validate(); err != nil {
		return nil, fmt.Errorf("suite: master wallet: %w", err)
	}
	if err := opts.Wallet.Validate(); err != nil {
		return nil, fmt.Errorf("suite: wallet: %w", err)
	}

	var deps runnerDeps
	for _, o := range options {
		o(&deps)
	}

	txLog := verify.NewTxLog()
	verifyOpts := []verify.Option{verify.WithTxLog(txLog), verify.WithMetrics(deps.metrics)}
	if deps.journal != nil {
		verifyOpts = append(verifyOpts, verify.WithJournal(deps.journal, deps.run))
	}
	verifier, err := verify.NewVerifier(opts.Verify, verifyOpts...)
	if err != nil {
		return nil, err
	}
	return &Runner{
		opts:     opts,
		metrics:  deps.metrics,
		txLog:    txLog,
		advancer: &verify.Advancer{Metrics: deps.metrics},
		verifier: verifier,
	}, nil
}

// Session dials a fresh connection. The caller closes the returned client.
func (r *Runner) Session(ctx context.Context) (*Session, error) {
	conn, err := client.Dial(ctx, r.opts.URL, client.WithDialTimeout(r.opts.DialTimeout))
	if err != nil {
		return nil, err
	}
	return &Session{
		Conn:     conn,
		Preparer: txn.NewPreparer(conn, r.opts.LedgerOffset),
		Advancer: r.advancer,
		Verifier: r.verifier,
		Metrics:  r.metrics,
	}, nil
}

// Setup connects, generates the second wallet, records the start ledger and
// runs the fixture plan. Any failure here aborts the run.
func (r *Runner) Setup(ctx context.Context) (*Context, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.SetupTimeout)
	defer cancel()

	s, err := r.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Conn.Close()

	if _, err := r.advancer.Advance(ctx, s.Conn); err != nil {
		return nil, err
	}
	proposal, err := s.Conn.WalletPropose(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate wallet: %w", err)
	}
	newWallet := txn.Wallet{Address: proposal.AccountID, Secret: proposal.MasterSeed}
	if err := newWallet.Validate(); err != nil {
		return nil, fmt.Errorf("generate wallet: %w", err)
	}

	// The node needs a second close before the validated index is current.
	if _, err := r.advancer.Advance(ctx, s.Conn); err != nil {
		return nil, err
	}
	start, err := s.Conn.ValidatedLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("read validated ledger: %w", err)
	}

	sc := &Context{
		Options:      r.opts,
		Master:       r.opts.Master,
		Wallet:       r.opts.Wallet,
		NewWallet:    newWallet,
		Transactions: r.txLog,
		StartLedger:  start,
	}

	plan := r.opts.Fixture
	plan.Master = sc.Master
	plan.Wallet = sc.Wallet
	plan.NewWallet = sc.NewWallet
	plan.TxLog = sc.Transactions
	orchestrator := fixture.StandardPlan(plan)
	orchestrator.Metrics = r.metrics
	if err := orchestrator.Run(ctx, s); err != nil {
		return nil, err
	}

	log.Info("Suite setup complete", "url", r.opts.URL, "start_ledger", start, "new_wallet", newWallet.Address)
	return sc, nil
}

// RunCase runs c under the case timeout on a fresh connection.
func (r *Runner) RunCase(ctx context.Context, sc *Context, c Case) CaseResult {
	start := time.Now()
	err := r.runCase(ctx, sc, c)
	duration := time.Since(start)

	status := "pass"
	if err != nil {
		status = "fail"
		log.Error("Case failed", "case", c.Name, "duration", duration, "err", err)
	} else {
		log.Info("Case passed", "case", c.Name, "duration", duration)
	}
	r.metrics.RecordCase(c.Name, status, duration.Seconds())
	return CaseResult{Name: c.Name, Err: err, Duration: duration}
}

func (r *Runner) runCase(parent context.Context, sc *Context, c Case) error {
	ctx, cancel := context.WithTimeout(parent, r.opts.CaseTimeout)
	defer cancel()

	s, err := r.Session(ctx)
	if err != nil {
		return err
	}
	defer s.Conn.Close()
	return c.Run(ctx, sc, s)
}

// Run performs setup and then every case in order. A setup failure is
// returned as the error; case failures are only reported.
func (r *Runner) Run(ctx context.Context, cases []Case) (Report, error) {
	sc, err := r.Setup(ctx)
	if err != nil {
		return Report{}, err
	}
	report := Report{StartLedger: sc.StartLedger}
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Results = append(report.Results, r.RunCase(ctx, sc, c))
	}
	report.Transactions = sc.Transactions.IDs()
	return report, nil
}
