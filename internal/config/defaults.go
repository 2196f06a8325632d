package config

import (
	"github.com/spf13/viper"

	"github.com/LeJamon/xrplconform/internal/fixture"
	"github.com/LeJamon/xrplconform/internal/journal"
	"github.com/LeJamon/xrplconform/internal/suite"
	"github.com/LeJamon/xrplconform/internal/txn"
	"github.com/LeJamon/xrplconform/internal/verify"
)

// Well-known standalone accounts.
const (
	DefaultNodeURL      = "ws://0.0.0.0:6006"
	DefaultMasterSecret = "snoPBrXtMeMyMHUVTgbuqAfg1SUTb"
	DefaultWalletSecret = "sp6JS7f14BuwFY8Mw6bis8D1Wa9Uy"
)

// setDefaults sets every default a standalone node needs.
func setDefaults(v *viper.Viper) {
	v.SetDefault("node.url", DefaultNodeURL)
	v.SetDefault("node.dial_timeout", "5s")

	v.SetDefault("suite.case_timeout", suite.DefaultCaseTimeout.String())
	v.SetDefault("suite.setup_timeout", suite.DefaultSetupTimeout.String())
	v.SetDefault("suite.ledger_offset", txn.DefaultMaxLedgerVersionOffset)
	v.SetDefault("suite.case_ledger_offset", suite.DefaultCaseLedgerOffset)
	v.SetDefault("suite.cases", []string{})

	v.SetDefault("verify.poll_interval", verify.DefaultPollInterval.String())
	v.SetDefault("verify.max_attempts", verify.DefaultMaxAttempts)
	v.SetDefault("verify.timeout", verify.DefaultTimeout.String())
	v.SetDefault("verify.cache_size", verify.DefaultCacheSize)

	v.SetDefault("master.address", "")
	v.SetDefault("master.secret", DefaultMasterSecret)
	v.SetDefault("wallet.address", "")
	v.SetDefault("wallet.secret", DefaultWalletSecret)

	v.SetDefault("fixture.fund_amount", fixture.DefaultFundAmount)
	v.SetDefault("fixture.currency", fixture.DefaultCurrency)
	v.SetDefault("fixture.trust_limit", fixture.DefaultTrustLimit)
	v.SetDefault("fixture.issue_amount", fixture.DefaultIssueAmount)
	v.SetDefault("fixture.extra", suite.FixtureAccounts())

	v.SetDefault("journal.backend", journal.BackendMemory)
	v.SetDefault("journal.path", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9104")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.color", true)
}
