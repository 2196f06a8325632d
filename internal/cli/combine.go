package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/xrplconform/internal/client"
	"github.com/LeJamon/xrplconform/internal/multisig"
)

var (
	combinePolicyFrom string
	combineSubmit     bool
)

var combineCmd = &cobra.Command{
	Use:   "combine <signed-blob>...",
	Short: "Combine single-signer multisign blobs into one transaction",
	Long: `Merge partially multisigned transaction blobs into one submittable blob with
its Signers in canonical order. With --policy-from the signer list of that
account is read from the node and the signatures must reach its quorum.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCombine,
}

func init() {
	rootCmd.AddCommand(combineCmd)

	combineCmd.Flags().StringVar(&combinePolicyFrom, "policy-from", "", "account whose signer list the signatures must satisfy")
	combineCmd.Flags().BoolVar(&combineSubmit, "submit", false, "submit the combined transaction")
}

func runCombine(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	partials := make([]multisig.Partial, 0, len(args))
	for _, blob := range args {
		partials = append(partials, multisig.Partial{Blob: blob})
	}

	var (
		combiner multisig.Combiner
		conn     *client.Client
	)
	if combinePolicyFrom != "" || combineSubmit {
		var err error
		if conn, err = dialNode(ctx); err != nil {
			return err
		}
		defer conn.Close()
	}

	if combinePolicyFrom != "" {
		info, err := conn.AccountInfo(ctx, combinePolicyFrom)
		if err != nil {
			return err
		}
		list, ok := info.SignerList()
		if !ok {
			return fmt.Errorf("account %s has no signer list", combinePolicyFrom)
		}
		combiner.Policy = multisig.PolicyFromLedger(list)
	}

	combined, err := combiner.Combine(partials)
	if err != nil {
		return err
	}

	if combineSubmit {
		res, err := conn.Submit(ctx, combined.Blob)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "engine_result: %s\n", res.EngineResult)
		if res.EngineResult != "tesSUCCESS" {
			return fmt.Errorf("submit %s: %s: %s", combined.ID, res.EngineResult, res.EngineResultMessage)
		}
	}
	return printJSON(cmd.OutOrStdout(), combined)
}
