package vault

import (
	"fmt"
	"strings"

	"github.com/dvloznov/vault/internal/domain"
)

// Accounts returns all accounts in creation order.
func (v *Vault) Accounts() []domain.Account {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Account(nil), v.book.Accounts...)
}

// Account looks up one account by id.
func (v *Vault) Account(id string) (domain.Account, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.book.Account(id)
}

// AddAccount creates an account. The type defaults to checking and the
// currency to the vault's currency.
func (v *Vault) AddAccount(a domain.Account) (domain.Account, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return domain.Account{}, fmt.Errorf("AddAccount: %w", invalid("name is required"))
	}
	if a.Type == "" {
		a.Type = domain.AccountChecking
	}
	if !a.Type.Valid() {
		return domain.Account{}, fmt.Errorf("AddAccount: %w", invalid("unknown account type %q", a.Type))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	a.ID = v.id(a.ID)
	if _, exists := v.book.Account(a.ID); exists {
		return domain.Account{}, fmt.Errorf("AddAccount: %w", invalid("duplicate id %q", a.ID))
	}
	if a.Currency == "" {
		a.Currency = v.settings.Currency
	}
	v.book.Accounts = append(v.book.Accounts, a)
	v.persistLocked()
	return a, nil
}

// EditAccount replaces an account wholesale. The submitted balance is
// authoritative and is not reconciled against transactions. Unknown ids
// are ignored.
func (v *Vault) EditAccount(a domain.Account) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("EditAccount: %w", invalid("name is required"))
	}
	if !a.Type.Valid() {
		return fmt.Errorf("EditAccount: %w", invalid("unknown account type %q", a.Type))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.book.Accounts {
		if v.book.Accounts[i].ID == a.ID {
			v.book.Accounts[i] = a
			v.persistLocked()
			return nil
		}
	}
	return nil
}

// DeleteAccount removes an account together with all of its transactions.
// Balances are not reverted, so the other leg of a transfer that touched
// this account survives as an orphan on its own account.
func (v *Vault) DeleteAccount(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.book.RemoveAccount(id) {
		return
	}
	if orphans := v.book.Orphans(); len(orphans) > 0 {
		v.log.Info().Str("account_id", id).Int("orphans", len(orphans)).Msg("account removed with orphaned transfer legs")
	}
	v.persistLocked()
}
