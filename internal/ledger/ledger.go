// Package ledger keeps account balances consistent with the transactions
// that reference them. Every balance change made on behalf of a transaction
// goes through Apply/Revert so that a balance always equals its starting
// value plus the effects of the transactions still present.
package ledger

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound is returned when a transfer names an unknown account.
	ErrAccountNotFound = errors.New("account not found")
)

// Book holds the two collections the ledger keeps in step. It is not safe
// for concurrent use; the owner serialises access.
type Book struct {
	Accounts     []domain.Account
	Transactions []domain.Transaction
}

// Account returns the account with the given id.
func (b *Book) Account(id string) (domain.Account, bool) {
	if i := b.accountIndex(id); i >= 0 {
		return b.Accounts[i], true
	}
	return domain.Account{}, false
}

// Transaction returns the transaction with the given id.
func (b *Book) Transaction(id string) (domain.Transaction, bool) {
	if i := b.txIndex(id); i >= 0 {
		return b.Transactions[i], true
	}
	return domain.Transaction{}, false
}

// Apply prepends tx and adds its effect to the owning account's balance.
// The balance is left alone when the account does not resolve.
func (b *Book) Apply(tx domain.Transaction) {
	b.Transactions = append([]domain.Transaction{tx}, b.Transactions...)
	b.adjust(tx.AccountID, tx.Effect())
}

// Revert removes tx's effect from its account balance. It does not touch
// the transaction collection.
func (b *Book) Revert(tx domain.Transaction) {
	b.adjust(tx.AccountID, tx.Effect().Neg())
}

// Delete removes the transaction with the given id and reverts its effect.
// Deleting either leg of a transfer removes and reverts both legs. Unknown
// ids are ignored, so repeated deletes are harmless. The removed
// transactions are returned.
func (b *Book) Delete(id string) []domain.Transaction {
	i := b.txIndex(id)
	if i < 0 {
		return nil
	}

	doomed := []int{i}
	if linkedID := b.Transactions[i].LinkedID; linkedID != "" {
		doomed = b.legIndexes(linkedID)
	}

	drop := make(map[int]bool, len(doomed))
	removed := make([]domain.Transaction, 0, len(doomed))
	for _, j := range doomed {
		b.Revert(b.Transactions[j])
		drop[j] = true
		removed = append(removed, b.Transactions[j])
	}

	kept := b.Transactions[:0:0]
	for j, tx := range b.Transactions {
		if !drop[j] {
			kept = append(kept, tx)
		}
	}
	b.Transactions = kept

	return removed
}

// Edit replaces the stored version of updated.ID and corrects balances.
// It reports false, changing nothing, when the id is unknown.
//
// For transfer legs the type, account and link are fixed; amount, date and
// note are copied onto the sibling and both balances move by the amount
// difference. For ordinary transactions the old effect is reverted and the
// new one applied, which reduces to the amount difference when account and
// type are unchanged. A zero difference leaves balances untouched.
func (b *Book) Edit(updated domain.Transaction) bool {
	i := b.txIndex(updated.ID)
	if i < 0 {
		return false
	}
	old := b.Transactions[i]

	if old.LinkedID != "" {
		updated.LinkedID = old.LinkedID
		updated.Type = old.Type
		updated.AccountID = old.AccountID

		diff := updated.Amount.Sub(old.Amount)
		for _, j := range b.legIndexes(old.LinkedID) {
			if j == i {
				continue
			}
			sibling := &b.Transactions[j]
			sibling.Amount = updated.Amount
			sibling.Date = updated.Date
			sibling.Note = updated.Note
			b.adjust(sibling.AccountID, signed(diff, sibling.Type))
		}
		b.adjust(old.AccountID, signed(diff, old.Type))
		b.Transactions[i] = updated
		return true
	}

	updated.LinkedID = ""
	if updated.AccountID == old.AccountID && updated.Type == old.Type {
		b.adjust(old.AccountID, signed(updated.Amount.Sub(old.Amount), old.Type))
	} else {
		b.Revert(old)
		b.adjust(updated.AccountID, updated.Effect())
	}
	b.Transactions[i] = updated
	return true
}

// Legs returns every transaction sharing linkedID. A well-formed transfer
// has exactly two. All sibling lookups go through here.
func (b *Book) Legs(linkedID string) []domain.Transaction {
	var legs []domain.Transaction
	for _, j := range b.legIndexes(linkedID) {
		legs = append(legs, b.Transactions[j])
	}
	return legs
}

// Sibling returns the other leg of tx's transfer.
func (b *Book) Sibling(tx domain.Transaction) (domain.Transaction, bool) {
	if tx.LinkedID == "" {
		return domain.Transaction{}, false
	}
	for _, leg := range b.Legs(tx.LinkedID) {
		if leg.ID != tx.ID {
			return leg, true
		}
	}
	return domain.Transaction{}, false
}

// TransferRequest describes a movement of funds between two accounts.
// Validation of distinct ids and a positive amount belongs to the caller.
type TransferRequest struct {
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Date          civil.Date
	// LinkedID is generated when empty.
	LinkedID string
}

// Pair is the two legs created by a transfer.
type Pair struct {
	Out domain.Transaction // expense on the source account
	In  domain.Transaction // income on the destination account
}

// Transfer records a transfer as a linked expense/income pair and moves the
// same numeric amount out of one account and into the other, with no
// currency conversion. Nothing changes if either account is unknown.
func (b *Book) Transfer(req TransferRequest) (Pair, error) {
	from, ok := b.Account(req.FromAccountID)
	if !ok {
		return Pair{}, fmt.Errorf("Transfer: source %q: %w", req.FromAccountID, ErrAccountNotFound)
	}
	to, ok := b.Account(req.ToAccountID)
	if !ok {
		return Pair{}, fmt.Errorf("Transfer: destination %q: %w", req.ToAccountID, ErrAccountNotFound)
	}

	linkedID := req.LinkedID
	if linkedID == "" {
		linkedID = uuid.NewString()
	}

	pair := Pair{
		Out: domain.Transaction{
			ID:                  linkedID + "-out",
			Amount:              req.Amount,
			Date:                req.Date,
			Merchant:            "Transfer to " + to.Name,
			Category:            domain.TransferCategory,
			Type:                domain.Expense,
			AccountID:           from.ID,
			Currency:            from.Currency,
			LinkedID:            linkedID,
			TransferAccountName: to.Name,
		},
		In: domain.Transaction{
			ID:                  linkedID + "-in",
			Amount:              req.Amount,
			Date:                req.Date,
			Merchant:            "Transfer from " + from.Name,
			Category:            domain.TransferCategory,
			Type:                domain.Income,
			AccountID:           to.ID,
			Currency:            to.Currency,
			LinkedID:            linkedID,
			TransferAccountName: from.Name,
		},
	}

	b.Apply(pair.In)
	b.Apply(pair.Out)
	return pair, nil
}

// RemoveAccount deletes an account and every transaction that references
// it. Balances are not reverted; a transfer's surviving leg on another
// account keeps its effect. It reports whether the account existed.
func (b *Book) RemoveAccount(id string) bool {
	i := b.accountIndex(id)
	if i < 0 {
		return false
	}
	b.Accounts = append(b.Accounts[:i:i], b.Accounts[i+1:]...)

	kept := b.Transactions[:0:0]
	for _, tx := range b.Transactions {
		if tx.AccountID != id {
			kept = append(kept, tx)
		}
	}
	b.Transactions = kept
	return true
}

// Orphans returns transfer legs whose sibling no longer exists, which is
// what RemoveAccount leaves behind on the surviving account.
func (b *Book) Orphans() []domain.Transaction {
	counts := make(map[string]int)
	for _, tx := range b.Transactions {
		if tx.LinkedID != "" {
			counts[tx.LinkedID]++
		}
	}
	var orphans []domain.Transaction
	for _, tx := range b.Transactions {
		if tx.LinkedID != "" && counts[tx.LinkedID] == 1 {
			orphans = append(orphans, tx)
		}
	}
	return orphans
}

func (b *Book) adjust(accountID string, delta decimal.Decimal) {
	if delta.IsZero() {
		return
	}
	if i := b.accountIndex(accountID); i >= 0 {
		b.Accounts[i].Balance = b.Accounts[i].Balance.Add(delta)
	}
}

func (b *Book) accountIndex(id string) int {
	if id == "" {
		return -1
	}
	for i, a := range b.Accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (b *Book) txIndex(id string) int {
	for i, tx := range b.Transactions {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

func (b *Book) legIndexes(linkedID string) []int {
	if linkedID == "" {
		return nil
	}
	var idx []int
	for i, tx := range b.Transactions {
		if tx.LinkedID == linkedID {
			idx = append(idx, i)
		}
	}
	return idx
}

// signed applies a transaction type's sign to an amount difference.
func signed(diff decimal.Decimal, t domain.TransactionType) decimal.Decimal {
	if t == domain.Income {
		return diff
	}
	return diff.Neg()
}
