// Package cmd provides the commands of the vault CLI.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/app"
	"github.com/dvloznov/vault/internal/config"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/logger"
	"github.com/dvloznov/vault/internal/rates"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	envFile  string
	logLevel string
	asJSON   bool

	// vaultApp is opened before every command and closed by Execute.
	vaultApp *app.App
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vault",
	Short: "Track accounts, transactions and subscriptions",
	Long: `vault keeps a personal finance ledger on this machine and, when a
user id is configured, mirrors it to a remote store.

Example:
  vault accounts add --name Checking --balance 1200
  vault tx add --account <id> --amount 12.50 --category Food
  vault transfer --from <id> --to <id> --amount 100
  vault report`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Out: os.Stderr})

		ctx := logger.WithContext(cmd.Context(), log)
		cmd.SetContext(ctx)

		vaultApp, err = app.Open(ctx, cfg, log)
		return err
	},
}

// Execute runs the root command, then flushes pending writes and closes the
// vault even when the command failed.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if vaultApp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		vaultApp.Close(ctx)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", ".env file to load (default is ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override VAULT_LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print results as JSON")

	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(subsCmd)
	rootCmd.AddCommand(budgetsCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(categorizeCmd)
	rootCmd.AddCommand(exportBQCmd)
}

// output prints v as JSON when --json is set, otherwise calls table.
func output(w io.Writer, v any, table func(*tabwriter.Writer)) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// parseDate parses an optional YYYY-MM-DD flag. Empty yields the zero date.
func parseDate(s string) (civil.Date, error) {
	if s == "" {
		return civil.Date{}, nil
	}
	return domain.ParseDate(s, time.Local)
}

func money(d decimal.Decimal, currency string) string {
	return domain.FormatAmount(d, currency)
}

// rateTable fetches rates for the display currency. Without rates every
// amount is shown unconverted.
func rateTable(ctx context.Context) rates.Table {
	base := vaultApp.Vault.Settings().Currency
	table, err := vaultApp.Rates.Rates(ctx, base)
	if err != nil {
		vaultApp.Log.Warn().Err(err).Str("base", base).Msg("exchange rates unavailable, amounts not converted")
		return rates.Table{Base: base}
	}
	return table
}
