package vault

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/ledger"
	"github.com/shopspring/decimal"
)

// Transactions returns all transactions, newest first.
func (v *Vault) Transactions() []domain.Transaction {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Transaction(nil), v.book.Transactions...)
}

// Transaction looks up one transaction by id.
func (v *Vault) Transaction(id string) (domain.Transaction, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.book.Transaction(id)
}

// AddTransaction records tx and applies its effect to the owning account.
// A missing id is generated, a zero date means today and an empty currency
// falls back to the account's currency. Transfer legs can only be created
// through TransferFunds.
func (v *Vault) AddTransaction(tx domain.Transaction) (domain.Transaction, error) {
	if err := validateTransaction(tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", err)
	}
	if tx.LinkedID != "" {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", invalid("linked transactions are created by transfers"))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	tx.ID = v.id(tx.ID)
	if _, exists := v.book.Transaction(tx.ID); exists {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", invalid("duplicate id %q", tx.ID))
	}
	if domain.IsZeroDate(tx.Date) {
		tx.Date = v.Today()
	}
	if tx.Currency == "" {
		tx.Currency = v.settings.Currency
		if acc, ok := v.book.Account(tx.AccountID); ok && acc.Currency != "" {
			tx.Currency = acc.Currency
		}
	}

	v.book.Apply(tx)
	v.persistLocked()
	return tx, nil
}

// EditTransaction replaces a transaction and corrects balances, including
// the sibling of a transfer leg. A missing date or currency keeps the stored
// value. Unknown ids are ignored.
func (v *Vault) EditTransaction(tx domain.Transaction) error {
	if err := validateTransaction(tx); err != nil {
		return fmt.Errorf("EditTransaction: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if old, ok := v.book.Transaction(tx.ID); ok {
		if domain.IsZeroDate(tx.Date) {
			tx.Date = old.Date
		}
		if tx.Currency == "" {
			tx.Currency = old.Currency
		}
	}
	if !v.book.Edit(tx) {
		v.log.Debug().Str("transaction_id", tx.ID).Msg("edit of unknown transaction ignored")
		return nil
	}
	v.persistLocked()
	return nil
}

// DeleteTransaction removes a transaction, or both legs of a transfer, and
// reverts their effects. It returns what was removed; deleting an unknown
// id removes nothing.
func (v *Vault) DeleteTransaction(id string) []domain.Transaction {
	v.mu.Lock()
	defer v.mu.Unlock()

	removed := v.book.Delete(id)
	if len(removed) == 0 {
		return nil
	}
	v.persistLocked()
	return removed
}

// TransferFunds moves amount between two distinct accounts as a linked pair
// of transactions dated date, or today when date is zero.
func (v *Vault) TransferFunds(from, to string, amount decimal.Decimal, date civil.Date) (ledger.Pair, error) {
	if from == "" || to == "" {
		return ledger.Pair{}, fmt.Errorf("TransferFunds: %w", invalid("both accounts are required"))
	}
	if from == to {
		return ledger.Pair{}, fmt.Errorf("TransferFunds: %w", ErrSameAccount)
	}
	if !amount.IsPositive() {
		return ledger.Pair{}, fmt.Errorf("TransferFunds: %w", invalid("amount must be positive"))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if domain.IsZeroDate(date) {
		date = v.Today()
	}
	pair, err := v.book.Transfer(ledger.TransferRequest{
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		Date:          date,
		LinkedID:      v.newID(),
	})
	if err != nil {
		return ledger.Pair{}, fmt.Errorf("TransferFunds: %w", err)
	}
	v.persistLocked()
	return pair, nil
}

func validateTransaction(tx domain.Transaction) error {
	if !tx.Amount.IsPositive() {
		return invalid("amount must be positive")
	}
	if tx.Type != domain.Income && tx.Type != domain.Expense {
		return invalid("unknown transaction type %q", tx.Type)
	}
	if strings.TrimSpace(tx.AccountID) == "" {
		return invalid("account is required")
	}
	return nil
}
