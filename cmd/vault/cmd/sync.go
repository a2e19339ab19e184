package cmd

import (
	"errors"
	"fmt"

	"github.com/dvloznov/vault/internal/auth"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Show the sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		printSyncStatus(cmd)
		return nil
	},
}

var syncFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Write pending changes to the remote store now",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := vaultApp.Vault.Flush(cmd.Context()); err != nil {
			return err
		}
		printSyncStatus(cmd)
		return nil
	},
}

var loginFlags struct {
	email string
	name  string
}

var syncLoginCmd = &cobra.Command{
	Use:   "login <user-id>",
	Short: "Sign in and switch to the user's remote vault",
	Long: `Sign in for the duration of this command. An existing remote vault
replaces the local data; a new user's remote vault is seeded from the local
data. Set VAULT_USER_ID to stay signed in for every command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := auth.User{ID: args[0], Email: loginFlags.email, DisplayName: loginFlags.name}
		if err := vaultApp.Session.Login(cmd.Context(), u); err != nil {
			return err
		}
		if current := vaultApp.Vault.User(); current == nil || current.ID != u.ID {
			return errors.New("sign in did not complete")
		}
		if err := vaultApp.Vault.Flush(cmd.Context()); err != nil {
			return err
		}
		printSyncStatus(cmd)
		return nil
	},
}

func printSyncStatus(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	ev := vaultApp.Vault.SyncStatus()
	if u := vaultApp.Vault.User(); u != nil {
		fmt.Fprintf(out, "User:    %s\n", u.ID)
	} else {
		fmt.Fprintln(out, "User:    (signed out, local only)")
	}
	fmt.Fprintf(out, "Backend: %s\n", vaultApp.Config.Storage.Remote)
	fmt.Fprintf(out, "Status:  %s\n", ev.Status)
	if ev.Err != nil {
		fmt.Fprintf(out, "Error:   %v\n", ev.Err)
	}
}

func init() {
	syncLoginCmd.Flags().StringVar(&loginFlags.email, "email", "", "user email")
	syncLoginCmd.Flags().StringVar(&loginFlags.name, "name", "", "display name")
	syncCmd.AddCommand(syncFlushCmd, syncLoginCmd)
}
