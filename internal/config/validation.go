package config

import (
	"fmt"
	"net"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/LeJamon/xrplconform/internal/journal"
	"github.com/LeJamon/xrplconform/internal/suite"
	"github.com/LeJamon/xrplconform/internal/txn"
)

// ValidateConfig checks every section of config.
func ValidateConfig(config *Config) error {
	if err := validateNode(&config.Node); err != nil {
		return fmt.Errorf("node config validation failed: %w", err)
	}
	if err := validateSuite(&config.Suite); err != nil {
		return fmt.Errorf("suite config validation failed: %w", err)
	}
	if config.Verify.MaxAttempts < 0 || config.Verify.PollInterval < 0 || config.Verify.Timeout < 0 {
		return fmt.Errorf("verify config validation failed: negative bound")
	}
	if err := config.Master.validate(); err != nil {
		return fmt.Errorf("master validation failed: %w", err)
	}
	if err := config.Wallet.validate(); err != nil {
		return fmt.Errorf("wallet validation failed: %w", err)
	}
	if err := validateFixture(&config.Fixture); err != nil {
		return fmt.Errorf("fixture config validation failed: %w", err)
	}
	if err := validateJournal(&config.Journal); err != nil {
		return fmt.Errorf("journal config validation failed: %w", err)
	}
	if config.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(config.Metrics.Listen); err != nil {
			return fmt.Errorf("metrics listen address %q: %w", config.Metrics.Listen, err)
		}
	}
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("log level %q: %w", config.Log.Level, err)
	}
	return nil
}

func validateNode(n *NodeConfig) error {
	u, err := url.Parse(n.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", n.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("url %q must use ws or wss", n.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", n.URL)
	}
	if n.DialTimeout < 0 {
		return fmt.Errorf("dial_timeout must not be negative")
	}
	return nil
}

func validateSuite(s *SuiteConfig) error {
	if s.CaseTimeout <= 0 {
		return fmt.Errorf("case_timeout must be positive")
	}
	if s.SetupTimeout <= 0 {
		return fmt.Errorf("setup_timeout must be positive")
	}
	if s.LedgerOffset == 0 || s.CaseLedgerOffset == 0 {
		return fmt.Errorf("ledger offsets must be positive")
	}
	if len(s.Cases) > 0 {
		if _, err := suite.SelectCases(s.Cases...); err != nil {
			return err
		}
	}
	return nil
}

func (a AccountConfig) validate() error {
	wallet, err := a.Wallet()
	if err != nil {
		return err
	}
	if a.Address != "" && a.Address != wallet.Address {
		return fmt.Errorf("address %s does not match secret (derives %s)", a.Address, wallet.Address)
	}
	return nil
}

func validateFixture(f *FixtureConfig) error {
	for _, field := range []struct{ name, value string }{
		{"fund_amount", f.FundAmount},
		{"trust_limit", f.TrustLimit},
		{"issue_amount", f.IssueAmount},
	} {
		if _, err := txn.XRP(field.value).Rat(); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	if len(f.Currency) != 3 {
		return fmt.Errorf("currency %q must be a three letter code", f.Currency)
	}
	for _, addr := range f.Extra {
		if !txn.IsValidAddress(addr) {
			return fmt.Errorf("extra account %q is not a valid address", addr)
		}
	}
	return nil
}

func validateJournal(j *journal.Config) error {
	switch j.Backend {
	case "", journal.BackendMemory:
		return nil
	case journal.BackendSQLite, journal.BackendPebble:
		if j.Path == "" {
			return fmt.Errorf("backend %s requires a path", j.Backend)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", journal.ErrUnknownBackend, j.Backend)
	}
}
