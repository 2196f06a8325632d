package cli

import (
	"github.com/spf13/cobra"

	"github.com/LeJamon/xrplconform/internal/verify"
)

var (
	verifyType    string
	verifyAccount string
	verifyMin     uint32
	verifyMax     uint32
	verifyAdvance bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <transaction-id>",
	Short: "Poll a transaction until it validates within a ledger range",
	Long: `Poll the node for a transaction until it is validated, the validated ledger
passes --max, or the configured attempts and timeout run out. The transaction
must be of --type, sent by --account and have succeeded.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyType, "type", "", "expected TransactionType")
	verifyCmd.Flags().StringVar(&verifyAccount, "account", "", "expected sending account")
	verifyCmd.Flags().Uint32Var(&verifyMin, "min", 1, "lowest ledger the transaction may validate in")
	verifyCmd.Flags().Uint32Var(&verifyMax, "max", 0, "highest ledger the transaction may validate in (its LastLedgerSequence)")
	verifyCmd.Flags().BoolVar(&verifyAdvance, "advance", false, "send ledger_accept before polling")
	_ = verifyCmd.MarkFlagRequired("type")
	_ = verifyCmd.MarkFlagRequired("account")
	_ = verifyCmd.MarkFlagRequired("max")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	verifier, err := verify.NewVerifier(loadedConfig.Verify)
	if err != nil {
		return err
	}

	conn, err := dialNode(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if verifyAdvance {
		advancer := &verify.Advancer{}
		if _, err := advancer.Advance(ctx, conn); err != nil {
			return err
		}
	}

	rng := verify.LedgerRange{Min: verifyMin, Max: verifyMax}
	result, err := verifier.Verify(ctx, conn, args[0], verifyType, verifyAccount, rng)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}
