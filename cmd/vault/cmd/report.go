package cmd

import (
	"fmt"

	"github.com/dvloznov/vault/internal/report"
	"github.com/spf13/cobra"
)

var reportFlags struct {
	raw   bool
	width int
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render this month's overview",
	Long: `Render net worth, this month's income and spending, spending by
category, the recent trend, budget progress and subscriptions. Amounts are
converted to the display currency.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		overview := report.Build(vaultApp.Vault, rateTable(cmd.Context()))
		md := overview.Markdown()
		if reportFlags.raw {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		out, err := report.Render(md, vaultApp.Vault.Settings().Theme, reportFlags.width)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportFlags.raw, "raw", false, "print Markdown instead of styled output")
	reportCmd.Flags().IntVar(&reportFlags.width, "width", 100, "wrap width")
}
