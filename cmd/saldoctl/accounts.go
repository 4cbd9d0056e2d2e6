package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"saldo/internal/core"
	"saldo/internal/services"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect accounts",
	}
	cmd.AddCommand(listAccountsCmd())
	return cmd
}

func listAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ledgerStore, _, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledgerStore.Cleanup()

			svc := services.NewAccountService(ledgerStore.Store)
			accounts, err := svc.ListAccounts(ctx)
			if err != nil {
				return err
			}
			total, err := svc.TotalBalance(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tBALANCE\tOPENING")
			for _, a := range accounts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.ID, a.Name, core.FormatCents(a.Balance), core.FormatCents(a.OpeningBalance))
			}
			fmt.Fprintf(w, "\tTOTAL\t%s\t\n", core.FormatCents(total))
			return w.Flush()
		},
	}
}
