package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/vault/internal/vault"
)

// run executes one CLI invocation against a fresh in-memory vault.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("VAULT_LOCAL_BACKEND", "memory")
	t.Setenv("VAULT_REMOTE_BACKEND", "none")
	t.Setenv("VAULT_LOG_LEVEL", "error")
	t.Setenv("VAULT_CONFIG", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	vaultApp = nil
	t.Cleanup(func() {
		if vaultApp != nil {
			vaultApp.Close(context.Background())
			vaultApp = nil
		}
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAccountsAdd(t *testing.T) {
	out, err := run(t, "accounts", "add", "--name", "Wallet", "--balance", "10", "--type", "cash")
	if err != nil {
		t.Fatalf("accounts add error = %v", err)
	}
	if !strings.Contains(out, "Added account Wallet") {
		t.Errorf("output = %q", out)
	}
	if got := vaultApp.Vault.Accounts(); len(got) != 1 || got[0].Type != "cash" {
		t.Errorf("accounts = %+v", got)
	}
}

func TestTransfer_SameAccount(t *testing.T) {
	_, err := run(t, "transfer", "--from", "a", "--to", "a", "--amount", "5")
	if !errors.Is(err, vault.ErrSameAccount) {
		t.Errorf("transfer error = %v, want ErrSameAccount", err)
	}
}

func TestRemind_DryRun(t *testing.T) {
	out, err := run(t, "remind", "--dry-run")
	if err != nil {
		t.Fatalf("remind error = %v", err)
	}
	if !strings.Contains(out, "Monthly burn rate") {
		t.Errorf("output = %q", out)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "12.50", want: "12.5"},
		{in: " 7 ", want: "7"},
		{in: "twelve", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAmount(%q) error = %v", tt.in, err)
			}
			if err == nil && got.String() != tt.want {
				t.Errorf("parseAmount(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
