package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType conveys the sign of a transaction's effect on its account.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// TransferCategory is the category stamped on both legs of a transfer.
const TransferCategory = "Transfer"

// Opposite returns the other transaction type.
func (t TransactionType) Opposite() TransactionType {
	if t == Income {
		return Expense
	}
	return Income
}

// Transaction is one ledger entry. Amount is always a positive magnitude;
// the sign comes from Type.
//
// When LinkedID is set the transaction is one leg of a transfer and exactly
// one sibling with the same LinkedID, the opposite type and the counterpart
// account exists.
type Transaction struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      civil.Date      `json:"date"`
	Merchant  string          `json:"merchant"`
	Category  string          `json:"category"`
	Type      TransactionType `json:"type"`
	AccountID string          `json:"accountId"`
	Currency  string          `json:"currency"`

	// OriginalAmount is the amount as entered when Currency differs from the
	// owning account's currency; Amount then holds the converted value.
	OriginalAmount *decimal.Decimal `json:"originalAmount,omitempty"`

	Note                string `json:"note,omitempty"`
	LinkedID            string `json:"linkedId,omitempty"`
	TransferAccountName string `json:"transferAccountName,omitempty"`
}

// Effect is the signed change this transaction applies to its account balance.
func (t Transaction) Effect() decimal.Decimal {
	if t.Type == Income {
		return t.Amount
	}
	return t.Amount.Neg()
}

// IsTransferLeg reports whether t belongs to a linked transfer pair.
func (t Transaction) IsTransferLeg() bool {
	return t.LinkedID != ""
}

// IsTransfer reports whether t should be excluded from income/expense
// analytics: either a transfer leg or a manual entry filed under Transfer.
func (t Transaction) IsTransfer() bool {
	return t.LinkedID != "" || t.Category == TransferCategory
}
