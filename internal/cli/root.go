package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LeJamon/xrplconform/internal/client"
	"github.com/LeJamon/xrplconform/internal/config"
	"github.com/LeJamon/xrplconform/internal/log"
)

var (
	// Global flags
	configFile string
	debug      bool
	verbose    bool
	quiet      bool

	// loaded by PersistentPreRunE before any subcommand runs
	loadedConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xrplconform",
	Short: "xrplconform - conformance harness for XRP Ledger nodes",
	Long: `xrplconform drives a standalone XRP Ledger node through signed transaction
submissions, closes ledgers on demand with ledger_accept and checks that every
transaction reaches a validated, successful result with the expected effects.`,
	Version:           "0.1.0-dev",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable normally suppressed debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
}

// initConfig loads the configuration file and environment, then sets up
// logging from the config and the verbosity flags.
func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	loadedConfig = cfg

	level := cfg.Log.Level
	switch {
	case debug:
		level = log.LevelDebug
	case verbose:
		level = log.LevelInfo
	case quiet:
		level = log.LevelError
	}
	if err := log.SetLogger(level, cfg.Log.JSON, cfg.Log.Color); err != nil {
		return err
	}
	log.SetOutput(cmd.ErrOrStderr())
	return nil
}

// dialNode connects to the configured node.
func dialNode(ctx context.Context) (*client.Client, error) {
	return client.Dial(ctx, loadedConfig.Node.URL, client.WithDialTimeout(loadedConfig.Node.DialTimeout))
}
