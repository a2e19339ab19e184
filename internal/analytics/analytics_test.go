package analytics

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/rates"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func fixture() *Analyzer {
	accounts := []domain.Account{
		{ID: "usd", Currency: "USD", Balance: dec("1000")},
		{ID: "eur", Currency: "EUR", Balance: dec("100")},
	}
	txs := []domain.Transaction{
		{ID: "1", Amount: dec("40"), Type: domain.Expense, Category: "Food", AccountID: "usd", Date: date(2024, time.June, 3)},
		{ID: "2", Amount: dec("10"), Type: domain.Expense, Category: "Food", AccountID: "eur", Date: date(2024, time.June, 4)},
		{ID: "3", Amount: dec("30"), Type: domain.Expense, Category: "", AccountID: "usd", Date: date(2024, time.June, 4)},
		{ID: "4", Amount: dec("2500"), Type: domain.Income, Category: "Salary", AccountID: "usd", Date: date(2024, time.June, 1)},
		{ID: "5", Amount: dec("70"), Type: domain.Expense, Category: "Transport", AccountID: "usd", Date: date(2024, time.May, 20)},
		{ID: "6", Amount: dec("5"), Type: domain.Expense, Category: "Food", AccountID: "usd", Date: date(2024, time.March, 2)},
		{ID: "l-out", Amount: dec("500"), Type: domain.Expense, Category: "Transfer", AccountID: "usd", LinkedID: "l", Date: date(2024, time.June, 5)},
		{ID: "l-in", Amount: dec("500"), Type: domain.Income, Category: "Transfer", AccountID: "eur", LinkedID: "l", Date: date(2024, time.June, 5)},
		{ID: "manual", Amount: dec("99"), Type: domain.Expense, Category: "Transfer", AccountID: "usd", Date: date(2024, time.June, 6)},
	}
	table := rates.Table{Base: "USD", Rates: map[string]decimal.Decimal{"EUR": dec("0.5")}}
	return New(accounts, txs, table)
}

func TestMonthSummary(t *testing.T) {
	got := fixture().MonthSummary(date(2024, time.June, 30))

	want := Summary{Month: "2024-06", Income: dec("2500"), Expense: dec("90"), Net: dec("2410")}
	if diff := cmp.Diff(want, got, decimalComparer); diff != "" {
		t.Errorf("MonthSummary() mismatch (-want +got):\n%s", diff)
	}
}

func TestSpendingByCategory(t *testing.T) {
	got := fixture().SpendingByCategory(Range{})

	want := []CategoryTotal{
		{Category: "Transport", Amount: dec("70")},
		{Category: "Food", Amount: dec("65")},
		{Category: UncategorizedLabel, Amount: dec("30")},
	}
	if diff := cmp.Diff(want, got, decimalComparer); diff != "" {
		t.Errorf("SpendingByCategory() mismatch (-want +got):\n%s", diff)
	}
}

func TestSpendingByCategory_Range(t *testing.T) {
	got := fixture().SpendingByCategory(Range{From: date(2024, time.June, 4), To: date(2024, time.June, 30)})

	want := []CategoryTotal{
		{Category: UncategorizedLabel, Amount: dec("30")},
		{Category: "Food", Amount: dec("20")},
	}
	if diff := cmp.Diff(want, got, decimalComparer); diff != "" {
		t.Errorf("SpendingByCategory() mismatch (-want +got):\n%s", diff)
	}
}

func TestMonthlyTrend(t *testing.T) {
	got := fixture().MonthlyTrend(2)

	want := []MonthTotal{
		{Month: "2024-05", Amount: dec("70")},
		{Month: "2024-06", Amount: dec("90")},
	}
	if diff := cmp.Diff(want, got, decimalComparer); diff != "" {
		t.Errorf("MonthlyTrend() mismatch (-want +got):\n%s", diff)
	}

	if all := fixture().MonthlyTrend(12); len(all) != 3 || all[0].Month != "2024-03" {
		t.Errorf("MonthlyTrend(12) = %+v", all)
	}
}

func TestDailySpending(t *testing.T) {
	got := fixture().DailySpending(date(2024, time.June, 2), date(2024, time.June, 5))

	want := []DayTotal{
		{Date: date(2024, time.June, 2), Amount: decimal.Zero},
		{Date: date(2024, time.June, 3), Amount: dec("40")},
		{Date: date(2024, time.June, 4), Amount: dec("50")},
		{Date: date(2024, time.June, 5), Amount: decimal.Zero},
	}
	if diff := cmp.Diff(want, got, decimalComparer); diff != "" {
		t.Errorf("DailySpending() mismatch (-want +got):\n%s", diff)
	}
}

func TestBudgetProgress(t *testing.T) {
	budgets := []domain.Budget{
		{ID: "b1", Category: "Food", Limit: dec("50"), Spent: dec("999")},
		{ID: "b2", Category: "Food", Limit: dec("100"), AccountID: "eur"},
		{ID: "b3", Category: "Health", Limit: dec("0")},
	}

	got := fixture().BudgetProgress(budgets, date(2024, time.June, 15))

	if len(got) != 3 {
		t.Fatalf("BudgetProgress() len = %d", len(got))
	}

	if !got[0].Spent.Equal(dec("60")) || !got[0].Over || !got[0].Remaining.IsZero() || got[0].Percent != 100 {
		t.Errorf("b1 = %+v", got[0])
	}
	if !got[0].Budget.Spent.Equal(dec("60")) {
		t.Errorf("stored spent should be replaced, got %s", got[0].Budget.Spent)
	}
	if !got[1].Spent.Equal(dec("20")) || got[1].Over || !got[1].Remaining.Equal(dec("80")) || got[1].Percent != 20 {
		t.Errorf("b2 = %+v", got[1])
	}
	if !got[2].Spent.IsZero() || got[2].Percent != 0 {
		t.Errorf("b3 = %+v", got[2])
	}
}

func TestNetWorth(t *testing.T) {
	if got := fixture().NetWorth(); !got.Equal(dec("1200")) {
		t.Errorf("NetWorth() = %s, want 1200", got)
	}
}

func TestNormalize_MissingRate(t *testing.T) {
	a := New([]domain.Account{{ID: "gbp", Currency: "GBP"}}, nil, rates.Table{Base: "USD"})

	if got := a.Normalize(dec("12"), "gbp"); !got.Equal(dec("12")) {
		t.Errorf("Normalize() = %s, want pass-through 12", got)
	}
}
