package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dvloznov/vault/internal/domain"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:     "accounts",
	Aliases: []string{"account"},
	Short:   "List and manage accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts := vaultApp.Vault.Accounts()
		return output(cmd.OutOrStdout(), accounts, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tBALANCE")
			for _, a := range accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Type, money(a.Balance, a.Currency))
			}
		})
	},
}

var accountFlags struct {
	name     string
	kind     string
	currency string
	balance  string
	color    string
}

var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an account",
	Example: `  vault accounts add --name Checking --balance 1200
  vault accounts add --name "Travel card" --type credit --currency EUR`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := domain.ParseAccountType(accountFlags.kind)
		if err != nil {
			return err
		}
		balance, err := parseAmount(accountFlags.balance)
		if err != nil {
			return err
		}
		a, err := vaultApp.Vault.AddAccount(domain.Account{
			Name:     accountFlags.name,
			Type:     kind,
			Currency: accountFlags.currency,
			Balance:  balance,
			Color:    accountFlags.color,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added account %s (%s)\n", a.Name, a.ID)
		return nil
	},
}

var accountsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an account and its transactions",
	Long: `Delete an account together with every transaction recorded on it.
Transfers touching the account lose their leg on this side; the other leg
stays on the counterpart account.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := vaultApp.Vault.Account(args[0]); !ok {
			return fmt.Errorf("account %s not found", args[0])
		}
		vaultApp.Vault.DeleteAccount(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", args[0])
		return nil
	},
}

func init() {
	f := accountsAddCmd.Flags()
	f.StringVar(&accountFlags.name, "name", "", "account name (required)")
	f.StringVar(&accountFlags.kind, "type", string(domain.AccountChecking), "checking, debit, credit, investment or cash")
	f.StringVar(&accountFlags.currency, "currency", "", "ISO currency code (default is the display currency)")
	f.StringVar(&accountFlags.balance, "balance", "0", "opening balance")
	f.StringVar(&accountFlags.color, "color", "", "display color")
	_ = accountsAddCmd.MarkFlagRequired("name")

	accountsCmd.AddCommand(accountsAddCmd, accountsDeleteCmd)
}
