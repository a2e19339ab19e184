package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/dvloznov/vault/internal/vault"
	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSON backup of the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := vaultApp.Vault.Export()
		if err != nil {
			return err
		}
		if exportOut == "-" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		path := exportOut
		if path == "" {
			path = vault.BackupFileName(vaultApp.Vault.Today())
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("writing backup: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the vault with a JSON backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading backup: %w", err)
		}
		report, err := vaultApp.Vault.Import(data)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if report.Upgraded() {
			fmt.Fprintf(out, "Migrated backup from schema version %d, %d fields defaulted\n", report.FromVersion, report.Defaulted)
		}
		for _, p := range report.Problems {
			fmt.Fprintf(out, "warning: %s\n", p)
		}
		fmt.Fprintf(out, "Imported %s\n", args[0])
		return nil
	},
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all data stored on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return errors.New("reset deletes every local record; pass --yes to confirm")
		}
		if err := vaultApp.Vault.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Local data cleared.")
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file, - for stdout (default vault-backup-<date>.json)")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm the reset")
}
