package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dvloznov/vault/internal/domain"
	"github.com/spf13/cobra"
)

var txListFlags struct {
	account string
	from    string
	to      string
	limit   int
}

var txCmd = &cobra.Command{
	Use:     "tx",
	Aliases: []string{"transactions"},
	Short:   "List and manage transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseDate(txListFlags.from)
		if err != nil {
			return err
		}
		to, err := parseDate(txListFlags.to)
		if err != nil {
			return err
		}

		var txs []domain.Transaction
		for _, tx := range vaultApp.Vault.Transactions() {
			if txListFlags.account != "" && tx.AccountID != txListFlags.account {
				continue
			}
			if !domain.IsZeroDate(from) && tx.Date.Before(from) {
				continue
			}
			if !domain.IsZeroDate(to) && tx.Date.After(to) {
				continue
			}
			txs = append(txs, tx)
			if txListFlags.limit > 0 && len(txs) == txListFlags.limit {
				break
			}
		}

		return output(cmd.OutOrStdout(), txs, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tMERCHANT")
			for _, tx := range txs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.ID, tx.Date, tx.Type, money(tx.Amount, tx.Currency), tx.Category, tx.Merchant)
			}
		})
	},
}

var txFlags struct {
	account  string
	amount   string
	kind     string
	category string
	merchant string
	note     string
	date     string
	currency string
}

var txAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Record an income or expense",
	Example: `  vault tx add --account <id> --amount 12.50 --category Food --merchant Tesco`,
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(txFlags.amount)
		if err != nil {
			return err
		}
		date, err := parseDate(txFlags.date)
		if err != nil {
			return err
		}
		tx, err := vaultApp.Vault.AddTransaction(domain.Transaction{
			AccountID: txFlags.account,
			Amount:    amount,
			Type:      domain.TransactionType(txFlags.kind),
			Category:  txFlags.category,
			Merchant:  txFlags.merchant,
			Note:      txFlags.note,
			Date:      date,
			Currency:  txFlags.currency,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s on %s (%s)\n", tx.Type, money(tx.Amount, tx.Currency), tx.Date, tx.ID)
		return nil
	},
}

var txEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a transaction",
	Long: `Change the amount, date, category, merchant or note of a transaction.
Editing one leg of a transfer updates both legs and both balances.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tx, ok := vaultApp.Vault.Transaction(args[0])
		if !ok {
			return fmt.Errorf("transaction %s not found", args[0])
		}

		f := cmd.Flags()
		if f.Changed("amount") {
			amount, err := parseAmount(txFlags.amount)
			if err != nil {
				return err
			}
			tx.Amount = amount
		}
		if f.Changed("date") {
			date, err := parseDate(txFlags.date)
			if err != nil {
				return err
			}
			tx.Date = date
		}
		if f.Changed("category") {
			tx.Category = txFlags.category
		}
		if f.Changed("merchant") {
			tx.Merchant = txFlags.merchant
		}
		if f.Changed("note") {
			tx.Note = txFlags.note
		}

		if err := vaultApp.Vault.EditTransaction(tx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated transaction %s\n", tx.ID)
		return nil
	},
}

var txDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a transaction, or both legs of a transfer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed := vaultApp.Vault.DeleteTransaction(args[0])
		if len(removed) == 0 {
			return fmt.Errorf("transaction %s not found", args[0])
		}
		for _, tx := range removed {
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", tx.ID)
		}
		return nil
	},
}

var transferFlags struct {
	from   string
	to     string
	amount string
	date   string
}

var transferCmd = &cobra.Command{
	Use:     "transfer",
	Short:   "Move money between two accounts",
	Example: `  vault transfer --from <id> --to <id> --amount 250`,
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(transferFlags.amount)
		if err != nil {
			return err
		}
		date, err := parseDate(transferFlags.date)
		if err != nil {
			return err
		}
		pair, err := vaultApp.Vault.TransferFunds(transferFlags.from, transferFlags.to, amount, date)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Transferred %s from %s to %s (%s)\n",
			money(pair.Out.Amount, pair.Out.Currency), pair.In.TransferAccountName, pair.Out.TransferAccountName, pair.Out.LinkedID)
		return nil
	},
}

func init() {
	lf := txCmd.Flags()
	lf.StringVar(&txListFlags.account, "account", "", "only this account")
	lf.StringVar(&txListFlags.from, "from", "", "earliest date (YYYY-MM-DD)")
	lf.StringVar(&txListFlags.to, "to", "", "latest date (YYYY-MM-DD)")
	lf.IntVar(&txListFlags.limit, "limit", 50, "maximum rows, 0 for all")

	for _, c := range []*cobra.Command{txAddCmd, txEditCmd} {
		f := c.Flags()
		f.StringVar(&txFlags.amount, "amount", "", "positive amount")
		f.StringVar(&txFlags.category, "category", "", "category name")
		f.StringVar(&txFlags.merchant, "merchant", "", "merchant or payee")
		f.StringVar(&txFlags.note, "note", "", "free text note")
		f.StringVar(&txFlags.date, "date", "", "date (YYYY-MM-DD, default today)")
	}
	af := txAddCmd.Flags()
	af.StringVar(&txFlags.account, "account", "", "account id (required)")
	af.StringVar(&txFlags.kind, "type", string(domain.Expense), "income or expense")
	af.StringVar(&txFlags.currency, "currency", "", "currency code (default is the account's)")
	_ = txAddCmd.MarkFlagRequired("account")
	_ = txAddCmd.MarkFlagRequired("amount")

	txCmd.AddCommand(txAddCmd, txEditCmd, txDeleteCmd)

	tf := transferCmd.Flags()
	tf.StringVar(&transferFlags.from, "from", "", "source account id")
	tf.StringVar(&transferFlags.to, "to", "", "destination account id")
	tf.StringVar(&transferFlags.amount, "amount", "", "amount to move")
	tf.StringVar(&transferFlags.date, "date", "", "date (YYYY-MM-DD, default today)")
	for _, name := range []string{"from", "to", "amount"} {
		_ = transferCmd.MarkFlagRequired(name)
	}
}
