package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/LeJamon/xrplconform/internal/journal"
	"github.com/LeJamon/xrplconform/internal/log"
	"github.com/LeJamon/xrplconform/internal/metrics"
	"github.com/LeJamon/xrplconform/internal/suite"
)

var (
	// Run flags
	runJournal     string
	runJournalPath string
	runJournalDump bool
	runCases       []string
	runID          string
)

// runCmd executes the conformance suite
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the conformance suite against a standalone node",
	Long: `Run the fixture setup once, then every selected case on its own connection
and under its own timeout. Setup failures abort the run; case failures are
reported and make the command exit non-zero.

Cases: trustline, payment, order, isConnected, getFee, getTrustlines,
getBalances, getOrderbook, generateWallet, multisign.`,
	Args: cobra.NoArgs,
	RunE: runSuite,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runJournal, "journal", "", "journal backend: memory, sqlite or pebble (overrides config)")
	runCmd.Flags().StringVar(&runJournalPath, "journal-path", "", "journal file or directory (overrides config)")
	runCmd.Flags().BoolVar(&runJournalDump, "journal-dump", false, "print every journal entry after the run")
	runCmd.Flags().StringSliceVar(&runCases, "case", nil, "run only the named cases (repeatable)")
	runCmd.Flags().StringVar(&runID, "run-id", "", "label for journal entries (default: random uuid)")
}

func runSuite(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadedConfig

	names := cfg.Suite.Cases
	if len(runCases) > 0 {
		names = runCases
	}
	cases, err := suite.SelectCases(names...)
	if err != nil {
		return err
	}

	journalCfg := cfg.Journal
	if runJournal != "" {
		journalCfg.Backend = runJournal
	}
	if runJournalPath != "" {
		journalCfg.Path = runJournalPath
	}
	j, err := journal.Open(journalCfg)
	if err != nil {
		return err
	}
	defer j.Close()

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	if cfg.Metrics.Enabled {
		stop, err := serveMetrics(cfg.Metrics.Listen, registry)
		if err != nil {
			return err
		}
		defer stop()
	}

	opts, err := cfg.SuiteOptions()
	if err != nil {
		return err
	}
	id := runID
	if id == "" {
		id = uuid.New().String()
	}
	runner, err := suite.NewRunner(opts, suite.WithMetrics(m), suite.WithJournal(j, id))
	if err != nil {
		return err
	}

	log.Info("Starting conformance run", "run", id, "url", opts.URL, "cases", len(cases))
	report, err := runner.Run(ctx, cases)
	if err != nil {
		return fmt.Errorf("run %s: %w", id, err)
	}

	out := cmd.OutOrStdout()
	printReport(out, report)
	if runJournalDump {
		entries, err := j.List(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := printJSON(out, e); err != nil {
				return err
			}
		}
	}
	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d cases failed", failed, len(report.Results))
	}
	return nil
}

func printReport(w io.Writer, report suite.Report) {
	fmt.Fprintf(w, "start ledger: %d\n", report.StartLedger)
	for _, res := range report.Results {
		status := "PASS"
		if res.Err != nil {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%-4s %-16s %8s", status, res.Name, res.Duration.Round(time.Millisecond))
		if res.Err != nil {
			fmt.Fprintf(w, "  %v", res.Err)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d/%d cases passed, %d transactions verified\n",
		len(report.Results)-report.Failed(), len(report.Results), len(report.Transactions))
}

// serveMetrics exposes registry on /metrics until the returned stop is called.
func serveMetrics(addr string, registry *prometheus.Registry) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("Serving metrics", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server error", "err", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}
