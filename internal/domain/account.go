// Package domain holds the entity model shared by the ledger, the storage
// adapters and the Vault store. Types here carry shape and invariants only.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account.
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountDebit      AccountType = "debit"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
	AccountCash       AccountType = "cash"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountDebit, AccountCredit, AccountInvestment, AccountCash:
		return true
	}
	return false
}

// ParseAccountType parses a user supplied account type.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown account type: %q", s)
	}
	return t, nil
}

// Account is a place money lives. Balance is expressed in the account's own
// currency and is only mutated by the ledger or by an explicit account edit.
type Account struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     AccountType     `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	Color    string          `json:"color"`
	Icon     string          `json:"icon,omitempty"`
	Currency string          `json:"currency"`
}
