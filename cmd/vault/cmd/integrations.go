package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/notify"
	"github.com/spf13/cobra"
)

var remindDryRun bool

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Post upcoming bills and ending trials to Discord",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := notify.Build(vaultApp.Vault)
		if remindDryRun {
			fmt.Fprintln(cmd.OutOrStdout(), notify.Compose(r))
			return nil
		}
		if r.Empty() {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing due.")
			return nil
		}

		n, closeFn, err := vaultApp.Notifier()
		if err != nil {
			return err
		}
		defer closeFn()

		if _, err := n.Remind(cmd.Context(), r); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Reminder posted.")
		return nil
	},
}

var categorizeApply bool

var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Suggest categories for uncategorized transactions",
	Long: `Ask Gemini to file every uncategorized transaction with a merchant
under one of the vault's categories. Suggestions are printed; pass --apply
to save them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pending := map[domain.TransactionType][]domain.Transaction{}
		for _, tx := range vaultApp.Vault.Transactions() {
			if tx.Category != "" || tx.Merchant == "" || tx.IsTransfer() {
				continue
			}
			pending[tx.Type] = append(pending[tx.Type], tx)
		}
		if len(pending) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Every transaction has a category.")
			return nil
		}

		suggester, err := vaultApp.Suggester(ctx)
		if err != nil {
			return err
		}
		categories := vaultApp.Vault.Categories()

		var changes []domain.Transaction
		for _, t := range []domain.TransactionType{domain.Expense, domain.Income} {
			txs := pending[t]
			if len(txs) == 0 {
				continue
			}
			merchants := make([]string, 0, len(txs))
			for _, tx := range txs {
				merchants = append(merchants, tx.Merchant)
			}
			suggestions, err := suggester.SuggestMany(ctx, merchants, t, categories)
			if err != nil {
				return err
			}
			for _, tx := range txs {
				if name, ok := suggestions[tx.Merchant]; ok {
					tx.Category = name
					changes = append(changes, tx)
				}
			}
		}
		sort.Slice(changes, func(i, j int) bool { return changes[i].Merchant < changes[j].Merchant })

		err = output(cmd.OutOrStdout(), changes, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "ID\tMERCHANT\tCATEGORY")
			for _, tx := range changes {
				fmt.Fprintf(w, "%s\t%s\t%s\n", tx.ID, tx.Merchant, tx.Category)
			}
		})
		if err != nil || !categorizeApply {
			return err
		}

		for _, tx := range changes {
			if err := vaultApp.Vault.EditTransaction(tx); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %d categories.\n", len(changes))
		return nil
	},
}

var (
	exportBQMonthly bool
	exportBQMigrate bool
)

var exportBQCmd = &cobra.Command{
	Use:   "export-bq",
	Short: "Stream transactions and balances to BigQuery",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		exporter, err := vaultApp.Exporter(ctx)
		if err != nil {
			return err
		}
		defer exporter.Close()

		if exportBQMigrate {
			res, err := exporter.Migrate(ctx, "vault-cli")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migrations (%d already applied).\n", len(res.Applied), len(res.Skipped))
		}

		userID := "local"
		if u := vaultApp.Vault.User(); u != nil {
			userID = u.ID
		}

		res, err := exporter.Export(ctx, userID, vaultApp.Vault.Snapshot())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions and %d account balances.\n", res.Transactions, res.Accounts)
		if !exportBQMonthly {
			return nil
		}

		rows, err := exporter.MonthlySpending(ctx, userID)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), rows, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "MONTH\tCATEGORY\tCURRENCY\tTOTAL")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Month, r.CategoryName, r.Currency, r.Total.FloatString(2))
			}
		})
	},
}

func init() {
	remindCmd.Flags().BoolVar(&remindDryRun, "dry-run", false, "print the message instead of posting it")
	categorizeCmd.Flags().BoolVar(&categorizeApply, "apply", false, "save the suggested categories")
	exportBQCmd.Flags().BoolVar(&exportBQMonthly, "monthly", false, "also print monthly spending queried back from BigQuery")
	exportBQCmd.Flags().BoolVar(&exportBQMigrate, "migrate", false, "create or update the BigQuery tables first")
}
