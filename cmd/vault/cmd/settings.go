package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := vaultApp.Vault.Settings()
		return output(cmd.OutOrStdout(), s, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Currency:\t%s\n", s.Currency)
			fmt.Fprintf(w, "Theme:\t%s\n", s.Theme)
			for _, c := range s.CustomCurrencies {
				fmt.Fprintf(w, "Custom:\t%s %s (%s)\n", c.Code, c.Symbol, c.Name)
			}
		})
	},
}

var settingsCurrencyCmd = &cobra.Command{
	Use:   "currency <code>",
	Short: "Set the display currency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := vaultApp.Vault.SetCurrency(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Display currency is now %s\n", args[0])
		return nil
	},
}

var settingsThemeCmd = &cobra.Command{
	Use:       "theme <dark|light>",
	Short:     "Set the report theme",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"dark", "light"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return vaultApp.Vault.SetTheme(args[0])
	},
}

var currenciesCmd = &cobra.Command{
	Use:   "currencies",
	Short: "List available currencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		currencies := vaultApp.Vault.AvailableCurrencies()
		return output(cmd.OutOrStdout(), currencies, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "CODE\tSYMBOL\tNAME")
			for _, c := range currencies {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Code, c.Symbol, c.Name)
			}
		})
	},
}

var currenciesAddCmd = &cobra.Command{
	Use:     "add <code> <symbol> <name>",
	Short:   "Add a custom currency",
	Example: `  vault settings currencies add CHF Fr "Swiss Franc"`,
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := vaultApp.Vault.AddCustomCurrency(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", c.Code)
		return nil
	},
}

var currenciesRemoveCmd = &cobra.Command{
	Use:   "remove <code>",
	Short: "Remove a custom currency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultApp.Vault.RemoveCustomCurrency(args[0])
		return nil
	},
}

func init() {
	currenciesCmd.AddCommand(currenciesAddCmd, currenciesRemoveCmd)
	settingsCmd.AddCommand(settingsCurrencyCmd, settingsThemeCmd, currenciesCmd)
}
