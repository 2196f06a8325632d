package fixture

import (
	"context"
	"fmt"

	"github.com/LeJamon/xrplconform/internal/txn"
	"github.com/LeJamon/xrplconform/internal/verify"
)

// Conditions established by the standard plan.
const (
	MasterReady    Condition = "master account holds the genesis balance"
	AccountsFunded Condition = "target accounts funded"
	MasterRipples  Condition = "master has DefaultRipple"
	TrustLinesSet  Condition = "wallets trust the master currency"
	WalletHoldsIOU Condition = "suite wallet holds issued currency"
	BookSeeded     Condition = "order book has offers on both sides"
)

// Defaults for PlanConfig.
const (
	DefaultFundAmount  = "4003218"
	DefaultCurrency    = "USD"
	DefaultTrustLimit  = "1341.1"
	DefaultIssueAmount = "123"
)

// PlanConfig parameterises StandardPlan.
type PlanConfig struct {
	Master    txn.Wallet
	Wallet    txn.Wallet
	NewWallet txn.Wallet

	// Extra are funded alongside the two wallets.
	Extra []string

	FundAmount  string
	Currency    string
	TrustLimit  string
	IssueAmount string

	// TxLog receives the id of the suite wallet's trust line.
	TxLog *verify.TxLog
}

func (c PlanConfig) withDefaults() PlanConfig {
	if c.FundAmount == "" {
		c.FundAmount = DefaultFundAmount
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.TrustLimit == "" {
		c.TrustLimit = DefaultTrustLimit
	}
	if c.IssueAmount == "" {
		c.IssueAmount = DefaultIssueAmount
	}
	return c
}

// StandardPlan returns the suite fixtures: fund accounts, let the master
// ripple, open trust lines to it, issue currency to the suite wallet and put
// one offer on each side of the XRP book.
func StandardPlan(cfg PlanConfig) *Orchestrator {
	cfg = cfg.withDefaults()
	master := cfg.Master
	noRipple := true

	targets := append([]string{cfg.Wallet.Address, cfg.NewWallet.Address}, cfg.Extra...)

	steps := []Step{
		{
			Name:     "fund accounts",
			Requires: []Condition{MasterReady},
			Produces: []Condition{AccountsFunded},
			Run: func(ctx context.Context, env Env) error {
				for _, address := range targets {
					payment := txn.Payment{Destination: address, Amount: txn.XRP(cfg.FundAmount)}
					if _, err := env.Apply(ctx, master, payment); err != nil {
						return fmt.Errorf("fund %s: %w", address, err)
					}
				}
				return nil
			},
		},
		{
			Name:     "enable default ripple",
			Requires: []Condition{MasterReady},
			Produces: []Condition{MasterRipples},
			Run: func(ctx context.Context, env Env) error {
				enable := true
				_, err := env.Apply(ctx, master, txn.Settings{DefaultRipple: &enable})
				return err
			},
		},
		{
			Name:     "open trust lines",
			Requires: []Condition{AccountsFunded},
			Produces: []Condition{TrustLinesSet},
			Run: func(ctx context.Context, env Env) error {
				line := txn.TrustLine{
					Currency:         cfg.Currency,
					Counterparty:     master.Address,
					Limit:            cfg.TrustLimit,
					RipplingDisabled: &noRipple,
				}
				id, err := env.Apply(ctx, cfg.Wallet, line)
				if err != nil {
					return fmt.Errorf("trust line for %s: %w", cfg.Wallet.Address, err)
				}
				cfg.TxLog.Append(id)
				if _, err := env.Apply(ctx, cfg.NewWallet, line); err != nil {
					return fmt.Errorf("trust line for %s: %w", cfg.NewWallet.Address, err)
				}
				return nil
			},
		},
		{
			Name:     "issue currency",
			Requires: []Condition{TrustLinesSet, MasterRipples},
			Produces: []Condition{WalletHoldsIOU},
			Run: func(ctx context.Context, env Env) error {
				payment := txn.Payment{
					Destination: cfg.Wallet.Address,
					Amount:      txn.IOU(cfg.IssueAmount, cfg.Currency, master.Address),
				}
				_, err := env.Apply(ctx, master, payment)
				return err
			},
		},
		{
			Name:     "seed order book",
			Requires: []Condition{TrustLinesSet},
			Produces: []Condition{BookSeeded},
			Run: func(ctx context.Context, env Env) error {
				bid := txn.Order{
					Direction:  txn.Buy,
					Quantity:   txn.IOU("432", cfg.Currency, master.Address),
					TotalPrice: txn.XRP("432"),
				}
				if _, err := env.Apply(ctx, cfg.NewWallet, bid); err != nil {
					return fmt.Errorf("order for %s: %w", cfg.NewWallet.Address, err)
				}
				ask := txn.Order{
					Direction:  txn.Buy,
					Quantity:   txn.XRP("1741"),
					TotalPrice: txn.IOU("171", cfg.Currency, master.Address),
				}
				if _, err := env.Apply(ctx, master, ask); err != nil {
					return fmt.Errorf("order for %s: %w", master.Address, err)
				}
				return nil
			},
		},
	}
	return New(steps, MasterReady)
}
