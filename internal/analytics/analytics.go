// Package analytics derives read-only figures from a vault's transactions,
// accounts and budgets. Transfers are never counted as income or spending.
// Amounts are normalised into the rate table's base currency using the
// owning account's currency.
package analytics

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/rates"
	"github.com/shopspring/decimal"
)

// UncategorizedLabel groups expenses with a blank category.
const UncategorizedLabel = "Uncategorized"

// Analyzer computes figures over one consistent view of the data.
type Analyzer struct {
	txs      []domain.Transaction
	accounts []domain.Account
	currency map[string]string
	table    rates.Table
}

// New builds an Analyzer. The slices are read, never modified.
func New(accounts []domain.Account, txs []domain.Transaction, table rates.Table) *Analyzer {
	currency := make(map[string]string, len(accounts))
	for _, a := range accounts {
		currency[a.ID] = a.Currency
	}
	return &Analyzer{txs: txs, accounts: accounts, currency: currency, table: table}
}

// Normalize converts amount from the currency of accountID into the base
// currency. Unknown accounts and missing rates pass the amount through.
func (a *Analyzer) Normalize(amount decimal.Decimal, accountID string) decimal.Decimal {
	code, ok := a.currency[accountID]
	if !ok {
		return amount
	}
	return a.table.Normalize(amount, code)
}

// Summary is the income and spending of one calendar month.
type Summary struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// MonthSummary totals the month containing d.
func (a *Analyzer) MonthSummary(d civil.Date) Summary {
	key := domain.MonthKey(d)
	s := Summary{Month: key, Income: decimal.Zero, Expense: decimal.Zero}

	for _, tx := range a.txs {
		if tx.IsTransfer() || domain.MonthKey(tx.Date) != key {
			continue
		}
		amount := a.Normalize(tx.Amount, tx.AccountID)
		if tx.Type == domain.Income {
			s.Income = s.Income.Add(amount)
		} else {
			s.Expense = s.Expense.Add(amount)
		}
	}
	s.Net = s.Income.Sub(s.Expense)
	return s
}

// Range bounds a query by date, inclusive. A zero bound is open.
type Range struct {
	From civil.Date
	To   civil.Date
}

func (r Range) contains(d civil.Date) bool {
	if !domain.IsZeroDate(r.From) && d.Before(r.From) {
		return false
	}
	if !domain.IsZeroDate(r.To) && d.After(r.To) {
		return false
	}
	return true
}

// CategoryTotal is the spending filed under one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// SpendingByCategory totals expenses per category within r, largest first.
// Ties are broken by name so the order is stable.
func (a *Analyzer) SpendingByCategory(r Range) []CategoryTotal {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range a.expenses() {
		if !r.contains(tx.Date) {
			continue
		}
		cat := tx.Category
		if cat == "" {
			cat = UncategorizedLabel
		}
		totals[cat] = totals[cat].Add(a.Normalize(tx.Amount, tx.AccountID))
	}

	out := make([]CategoryTotal, 0, len(totals))
	for cat, amount := range totals {
		out = append(out, CategoryTotal{Category: cat, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthTotal is the spending of one calendar month.
type MonthTotal struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthlyTrend returns spending for the latest n months that have any
// spending, oldest first.
func (a *Analyzer) MonthlyTrend(n int) []MonthTotal {
	if n <= 0 {
		return nil
	}
	totals := make(map[string]decimal.Decimal)
	for _, tx := range a.expenses() {
		key := domain.MonthKey(tx.Date)
		totals[key] = totals[key].Add(a.Normalize(tx.Amount, tx.AccountID))
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > n {
		keys = keys[len(keys)-n:]
	}

	out := make([]MonthTotal, len(keys))
	for i, k := range keys {
		out[i] = MonthTotal{Month: k, Amount: totals[k]}
	}
	return out
}

// DayTotal is the spending of one day.
type DayTotal struct {
	Date   civil.Date      `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// DailySpending returns one entry per day from from to to inclusive, with
// zero for days without spending.
func (a *Analyzer) DailySpending(from, to civil.Date) []DayTotal {
	if to.Before(from) {
		return nil
	}
	totals := make(map[civil.Date]decimal.Decimal)
	for _, tx := range a.expenses() {
		totals[tx.Date] = totals[tx.Date].Add(a.Normalize(tx.Amount, tx.AccountID))
	}

	var out []DayTotal
	for d := from; !d.After(to); d = d.AddDays(1) {
		out = append(out, DayTotal{Date: d, Amount: totals[d]})
	}
	return out
}

// BudgetStatus is a budget with its spending recomputed from transactions.
type BudgetStatus struct {
	Budget    domain.Budget   `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Percent   float64         `json:"percent"`
	Over      bool            `json:"over"`
}

// BudgetProgress recomputes each budget's spending for the month containing
// today. Expenses count when their category matches and, for budgets scoped
// to an account, when they belong to that account. The stored Spent field is
// ignored.
func (a *Analyzer) BudgetProgress(budgets []domain.Budget, today civil.Date) []BudgetStatus {
	month := domain.MonthKey(today)
	hundred := decimal.NewFromInt(100)

	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		spent := decimal.Zero
		for _, tx := range a.expenses() {
			if tx.Category != b.Category || domain.MonthKey(tx.Date) != month {
				continue
			}
			if b.AccountID != "" && tx.AccountID != b.AccountID {
				continue
			}
			spent = spent.Add(a.Normalize(tx.Amount, tx.AccountID))
		}

		status := BudgetStatus{
			Budget:    b,
			Spent:     spent,
			Remaining: decimal.Max(b.Limit.Sub(spent), decimal.Zero),
			Over:      spent.GreaterThan(b.Limit),
		}
		status.Budget.Spent = spent
		if b.Limit.IsPositive() {
			pct := decimal.Min(spent.Div(b.Limit).Mul(hundred), hundred)
			status.Percent = pct.InexactFloat64()
		}
		out = append(out, status)
	}
	return out
}

// NetWorth sums all account balances in the base currency.
func (a *Analyzer) NetWorth() decimal.Decimal {
	total := decimal.Zero
	for _, acc := range a.accounts {
		total = total.Add(a.table.Normalize(acc.Balance, acc.Currency))
	}
	return total
}

func (a *Analyzer) expenses() []domain.Transaction {
	var out []domain.Transaction
	for _, tx := range a.txs {
		if tx.Type == domain.Expense && !tx.IsTransfer() {
			out = append(out, tx)
		}
	}
	return out
}
