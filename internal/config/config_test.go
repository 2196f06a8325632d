package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/xrplconform/internal/journal"
	"github.com/LeJamon/xrplconform/internal/suite"
)

// clearLegacyEnv pins HOST and PORT so the machine's environment cannot
// leak into node.url. Empty values map to the default endpoint.
func clearLegacyEnv(t *testing.T) {
	t.Setenv("HOST", "")
	t.Setenv("PORT", "")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xrplconform.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	clearLegacyEnv(t)

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultNodeURL, config.Node.URL)
	assert.Equal(t, 5*time.Second, config.Node.DialTimeout)
	assert.Equal(t, 20*time.Second, config.Suite.CaseTimeout)
	assert.Equal(t, uint32(3), config.Suite.LedgerOffset)
	assert.Equal(t, uint32(10), config.Suite.CaseLedgerOffset)
	assert.Empty(t, config.Suite.Cases)
	assert.Equal(t, time.Second, config.Verify.PollInterval)
	assert.Equal(t, 20, config.Verify.MaxAttempts)
	assert.Equal(t, DefaultMasterSecret, config.Master.Secret)
	assert.Equal(t, DefaultWalletSecret, config.Wallet.Secret)
	assert.Equal(t, "4003218", config.Fixture.FundAmount)
	assert.Equal(t, "USD", config.Fixture.Currency)
	assert.Equal(t, suite.FixtureAccounts(), config.Fixture.Extra)
	assert.Equal(t, journal.BackendMemory, config.Journal.Backend)
	assert.False(t, config.Metrics.Enabled)
	assert.Equal(t, "info", config.Log.Level)
	assert.Empty(t, config.GetConfigPath())
}

func TestLoadConfigFile(t *testing.T) {
	clearLegacyEnv(t)
	path := writeConfig(t, `
[node]
url = "ws://127.0.0.1:51233"
dial_timeout = "2s"

[suite]
case_timeout = "45s"
cases = ["trustline", "payment"]

[verify]
poll_interval = "250ms"
max_attempts = 40

[fixture]
currency = "EUR"
extra = []

[journal]
backend = "sqlite"
path = "/tmp/journal.db"

[log]
level = "debug"
json = true
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:51233", config.Node.URL)
	assert.Equal(t, 2*time.Second, config.Node.DialTimeout)
	assert.Equal(t, 45*time.Second, config.Suite.CaseTimeout)
	assert.Equal(t, []string{"trustline", "payment"}, config.Suite.Cases)
	assert.Equal(t, 250*time.Millisecond, config.Verify.PollInterval)
	assert.Equal(t, 40, config.Verify.MaxAttempts)
	assert.Equal(t, "EUR", config.Fixture.Currency)
	assert.Empty(t, config.Fixture.Extra)
	assert.Equal(t, journal.Config{Backend: "sqlite", Path: "/tmp/journal.db"}, config.Journal)
	assert.True(t, config.Log.JSON)
	assert.Equal(t, path, config.GetConfigPath())

	// Untouched sections keep their defaults.
	assert.Equal(t, uint32(10), config.Suite.CaseLedgerOffset)
	assert.Equal(t, DefaultMasterSecret, config.Master.Secret)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Run("prefixed variables override the file", func(t *testing.T) {
		clearLegacyEnv(t)
		path := writeConfig(t, "[node]\nurl = \"ws://127.0.0.1:1\"\n")
		t.Setenv("XRPLCONFORM_NODE_URL", "wss://node.example:443")
		t.Setenv("XRPLCONFORM_VERIFY_MAX_ATTEMPTS", "7")
		t.Setenv("XRPLCONFORM_LOG_LEVEL", "warn")

		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "wss://node.example:443", config.Node.URL)
		assert.Equal(t, 7, config.Verify.MaxAttempts)
		assert.Equal(t, "warn", config.Log.Level)
	})

	t.Run("legacy host and port", func(t *testing.T) {
		t.Setenv("HOST", "10.0.0.5")
		t.Setenv("PORT", "7007")

		config, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "ws://10.0.0.5:7007", config.Node.URL)
	})

	t.Run("legacy port alone", func(t *testing.T) {
		t.Setenv("HOST", "")
		t.Setenv("PORT", "6107")

		config, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "ws://0.0.0.0:6107", config.Node.URL)
	})

	t.Run("prefixed url wins over legacy", func(t *testing.T) {
		t.Setenv("HOST", "10.0.0.5")
		t.Setenv("PORT", "7007")
		t.Setenv("XRPLCONFORM_NODE_URL", "ws://localhost:6006")

		config, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "ws://localhost:6006", config.Node.URL)
	})
}

func TestConfigValidation(t *testing.T) {
	clearLegacyEnv(t)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"http url", "[node]\nurl = \"http://localhost:6006\"", "must use ws or wss"},
		{"zero case timeout", "[suite]\ncase_timeout = \"0s\"", "case_timeout must be positive"},
		{"unknown case", "[suite]\ncases = [\"teleport\"]", "teleport"},
		{"bad secret", "[master]\nsecret = \"nope\"", "master validation failed"},
		{"address mismatch", "[wallet]\naddress = \"rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh\"", "does not match secret"},
		{"bad amount", "[fixture]\nissue_amount = \"lots\"", "issue_amount"},
		{"bad currency", "[fixture]\ncurrency = \"DOLLAR\"", "three letter code"},
		{"bad extra", "[fixture]\nextra = [\"rNotAnAddress\"]", "not a valid address"},
		{"pebble without path", "[journal]\nbackend = \"pebble\"", "requires a path"},
		{"unknown backend", "[journal]\nbackend = \"redis\"", "unknown journal backend"},
		{"bad listen", "[metrics]\nenabled = true\nlisten = \"nowhere\"", "metrics listen address"},
		{"bad level", "[log]\nlevel = \"chatty\"", "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSuiteOptions(t *testing.T) {
	clearLegacyEnv(t)
	path := writeConfig(t, `
[master]
address = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"

[suite]
setup_timeout = "90s"

[fixture]
trust_limit = "500"
`)
	config, err := LoadConfig(path)
	require.NoError(t, err)

	opts, err := config.SuiteOptions()
	require.NoError(t, err)

	assert.Equal(t, DefaultNodeURL, opts.URL)
	assert.Equal(t, "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", opts.Master.Address)
	assert.Equal(t, DefaultWalletSecret, opts.Wallet.Secret)
	assert.NoError(t, opts.Wallet.Validate())
	assert.Equal(t, 90*time.Second, opts.SetupTimeout)
	assert.Equal(t, uint32(10), opts.CaseLedgerOffset)
	assert.Equal(t, config.Verify, opts.Verify)
	assert.Equal(t, "500", opts.Fixture.TrustLimit)
	assert.Equal(t, suite.FixtureAccounts(), opts.Fixture.Extra)
	assert.Empty(t, opts.Fixture.Master.Address)

	_, err = suite.NewRunner(opts)
	assert.NoError(t, err)
}
