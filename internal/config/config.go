// Package config loads the harness configuration from defaults, an optional
// TOML file and XRPLCONFORM_ environment variables.
package config

import (
	"time"

	"github.com/LeJamon/xrplconform/internal/fixture"
	"github.com/LeJamon/xrplconform/internal/journal"
	"github.com/LeJamon/xrplconform/internal/suite"
	"github.com/LeJamon/xrplconform/internal/txn"
	"github.com/LeJamon/xrplconform/internal/verify"
)

// Config is the complete harness configuration.
type Config struct {
	Node    NodeConfig     `toml:"node" mapstructure:"node"`
	Suite   SuiteConfig    `toml:"suite" mapstructure:"suite"`
	Verify  verify.Options `toml:"verify" mapstructure:"verify"`
	Master  AccountConfig  `toml:"master" mapstructure:"master"`
	Wallet  AccountConfig  `toml:"wallet" mapstructure:"wallet"`
	Fixture FixtureConfig  `toml:"fixture" mapstructure:"fixture"`
	Journal journal.Config `toml:"journal" mapstructure:"journal"`
	Metrics MetricsConfig  `toml:"metrics" mapstructure:"metrics"`
	Log     LogConfig      `toml:"log" mapstructure:"log"`

	configPath string `toml:"-" mapstructure:"-"`
}

// NodeConfig locates the node under test.
type NodeConfig struct {
	URL         string        `toml:"url" mapstructure:"url"`
	DialTimeout time.Duration `toml:"dial_timeout" mapstructure:"dial_timeout"`
}

// SuiteConfig bounds the run and selects cases.
type SuiteConfig struct {
	CaseTimeout      time.Duration `toml:"case_timeout" mapstructure:"case_timeout"`
	SetupTimeout     time.Duration `toml:"setup_timeout" mapstructure:"setup_timeout"`
	LedgerOffset     uint32        `toml:"ledger_offset" mapstructure:"ledger_offset"`
	CaseLedgerOffset uint32        `toml:"case_ledger_offset" mapstructure:"case_ledger_offset"`

	// Cases restricts the run to the named cases; empty runs all of them.
	Cases []string `toml:"cases" mapstructure:"cases"`
}

// AccountConfig holds the secret of a signing account. Address is optional
// and, when set, must match the address derived from Secret.
type AccountConfig struct {
	Address string `toml:"address" mapstructure:"address"`
	Secret  string `toml:"secret" mapstructure:"secret"`
}

// FixtureConfig carries the amounts used by the standard fixture plan.
type FixtureConfig struct {
	FundAmount  string   `toml:"fund_amount" mapstructure:"fund_amount"`
	Currency    string   `toml:"currency" mapstructure:"currency"`
	TrustLimit  string   `toml:"trust_limit" mapstructure:"trust_limit"`
	IssueAmount string   `toml:"issue_amount" mapstructure:"issue_amount"`
	Extra       []string `toml:"extra" mapstructure:"extra"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

// LogConfig mirrors the arguments of log.SetLogger.
type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
	JSON  bool   `toml:"json" mapstructure:"json"`
	Color bool   `toml:"color" mapstructure:"color"`
}

// GetConfigPath returns the file the configuration was read from, or "" when
// only defaults and environment were used.
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Wallet derives the wallet described by a.
func (a AccountConfig) Wallet() (txn.Wallet, error) {
	return txn.WalletFromSecret(a.Secret)
}

// SuiteOptions converts the configuration into runner options.
func (c *Config) SuiteOptions() (suite.Options, error) {
	master, err := c.Master.Wallet()
	if err != nil {
		return suite.Options{}, err
	}
	wallet, err := c.Wallet.Wallet()
	if err != nil {
		return suite.Options{}, err
	}
	return suite.Options{
		URL:              c.Node.URL,
		DialTimeout:      c.Node.DialTimeout,
		CaseTimeout:      c.Suite.CaseTimeout,
		SetupTimeout:     c.Suite.SetupTimeout,
		LedgerOffset:     c.Suite.LedgerOffset,
		CaseLedgerOffset: c.Suite.CaseLedgerOffset,
		Verify:           c.Verify,
		Master:           master,
		Wallet:           wallet,
		Fixture: fixture.PlanConfig{
			Extra:       append([]string(nil), c.Fixture.Extra...),
			FundAmount:  c.Fixture.FundAmount,
			Currency:    c.Fixture.Currency,
			TrustLimit:  c.Fixture.TrustLimit,
			IssueAmount: c.Fixture.IssueAmount,
		},
	}, nil
}
