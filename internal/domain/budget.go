package domain

import "github.com/shopspring/decimal"

// PeriodMonthly is the only budget period.
const PeriodMonthly = "monthly"

// Budget caps spending in a category, optionally scoped to one account.
// Spent is a display snapshot; analytics always recompute it.
type Budget struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Limit     decimal.Decimal `json:"limit"`
	Spent     decimal.Decimal `json:"spent"`
	Period    string          `json:"period"`
	Color     string          `json:"color"`
	AccountID string          `json:"accountId,omitempty"`
}
