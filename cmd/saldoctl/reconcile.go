package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"saldo/internal/core"
	"saldo/internal/services"
)

func reconcileCmd() *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check every balance against its opening balance and ledger",
		Long: `Compares each stored account balance with its opening balance plus the
signed sum of its transactions. With --repair drifted balances are rewritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ledgerStore, _, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledgerStore.Cleanup()

			drifts, err := services.NewReconciler(ledgerStore.Store, repair).ReconcileAll(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(drifts) == 0 {
				fmt.Fprintln(out, "all balances reconcile")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tACCOUNT\tSTORED\tEXPECTED\tREPAIRED")
			for _, d := range drifts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n",
					d.AccountID, d.AccountName, core.FormatCents(d.Stored), core.FormatCents(d.Expected), d.Repaired)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if !repair {
				return fmt.Errorf("%d account(s) drifted", len(drifts))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "rewrite drifted balances")
	return cmd
}
