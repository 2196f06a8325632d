package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/LeJamon/xrplconform/internal/verify"
)

var acceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Close the open ledger on a standalone node",
	Long:  `Send ledger_accept once and print the new open ledger index.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialNode(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		advancer := &verify.Advancer{}
		index, err := advancer.Advance(cmd.Context(), conn)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ledger_current_index: %d\n", index)
		return nil
	},
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Generate a wallet with the node's wallet_propose",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialNode(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		proposal, err := conn.WalletPropose(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]string{
			"address": proposal.AccountID,
			"secret":  proposal.MasterSeed,
		})
	},
}

func init() {
	rootCmd.AddCommand(acceptCmd)
	rootCmd.AddCommand(walletCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
