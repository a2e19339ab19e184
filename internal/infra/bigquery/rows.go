package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/domain"
)

// TransactionRow is one vault transaction in the transactions table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED
	AccountID     string `bigquery:"account_id"`     // REQUIRED

	AccountName bigquery.NullString `bigquery:"account_name"` // NULLABLE

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount       *big.Rat `bigquery:"amount"`        // REQUIRED NUMERIC, always positive
	SignedAmount *big.Rat `bigquery:"signed_amount"` // REQUIRED NUMERIC, effect on the account
	Currency     string   `bigquery:"currency"`      // REQUIRED

	OriginalAmount *big.Rat `bigquery:"original_amount"` // NULLABLE NUMERIC

	Direction    string              `bigquery:"direction"` // income | expense
	Merchant     string              `bigquery:"merchant"`
	CategoryName bigquery.NullString `bigquery:"category_name"` // NULLABLE
	Note         bigquery.NullString `bigquery:"note"`          // NULLABLE

	LinkedID           bigquery.NullString `bigquery:"linked_id"` // NULLABLE
	IsInternalTransfer bool                `bigquery:"is_internal_transfer"`

	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// AccountBalanceRow is a dated snapshot of one account's balance.
type AccountBalanceRow struct {
	AccountID    string     `bigquery:"account_id"`    // REQUIRED
	UserID       string     `bigquery:"user_id"`       // REQUIRED
	AccountName  string     `bigquery:"account_name"`  // REQUIRED
	AccountType  string     `bigquery:"account_type"`  // REQUIRED
	Currency     string     `bigquery:"currency"`      // REQUIRED
	Balance      *big.Rat   `bigquery:"balance"`       // REQUIRED NUMERIC
	SnapshotDate civil.Date `bigquery:"snapshot_date"` // REQUIRED
	ExportedTS   time.Time  `bigquery:"exported_ts"`   // REQUIRED
}

// MonthlySpendRow is one line of the monthly spending query.
type MonthlySpendRow struct {
	Month        string   `bigquery:"month"`
	Currency     string   `bigquery:"currency"`
	CategoryName string   `bigquery:"category_name"`
	Total        *big.Rat `bigquery:"total"`
}

func newTransactionRow(userID string, tx domain.Transaction, accountNames map[string]string, exported time.Time) *TransactionRow {
	row := &TransactionRow{
		TransactionID:      tx.ID,
		UserID:             userID,
		AccountID:          tx.AccountID,
		AccountName:        nullString(accountNames[tx.AccountID]),
		TransactionDate:    tx.Date,
		Amount:             tx.Amount.Rat(),
		SignedAmount:       tx.Effect().Rat(),
		Currency:           tx.Currency,
		Direction:          string(tx.Type),
		Merchant:           tx.Merchant,
		CategoryName:       nullString(tx.Category),
		Note:               nullString(tx.Note),
		LinkedID:           nullString(tx.LinkedID),
		IsInternalTransfer: tx.IsTransfer(),
		ExportedTS:         exported,
	}
	if tx.OriginalAmount != nil {
		row.OriginalAmount = tx.OriginalAmount.Rat()
	}
	return row
}

func newAccountBalanceRow(userID string, a domain.Account, exported time.Time) *AccountBalanceRow {
	return &AccountBalanceRow{
		AccountID:    a.ID,
		UserID:       userID,
		AccountName:  a.Name,
		AccountType:  string(a.Type),
		Currency:     a.Currency,
		Balance:      a.Balance.Rat(),
		SnapshotDate: civil.DateOf(exported),
		ExportedTS:   exported,
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
