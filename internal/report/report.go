// Package report renders a monthly overview of a vault as Markdown, and
// Markdown as styled terminal output.
package report

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/dvloznov/vault/internal/analytics"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/rates"
	"github.com/dvloznov/vault/internal/vault"
	"github.com/shopspring/decimal"
)

// TrendMonths is how many months of spending the report charts.
const TrendMonths = 6

// Overview is everything the report shows, computed for one day.
type Overview struct {
	Today      civil.Date
	Currency   string
	NetWorth   decimal.Decimal
	Summary    analytics.Summary
	Categories []analytics.CategoryTotal
	Trend      []analytics.MonthTotal
	Budgets    []analytics.BudgetStatus
	BurnRate   decimal.Decimal
	Upcoming   []domain.Subscription
	Trials     []domain.Subscription
}

// Build computes the overview for v's current month. Amounts are in table's
// base currency.
func Build(v *vault.Vault, table rates.Table) Overview {
	today := v.Today()
	a := v.Analyzer(table)
	monthStart := civil.Date{Year: today.Year, Month: today.Month, Day: 1}

	return Overview{
		Today:      today,
		Currency:   table.Base,
		NetWorth:   a.NetWorth(),
		Summary:    a.MonthSummary(today),
		Categories: a.SpendingByCategory(analytics.Range{From: monthStart, To: today}),
		Trend:      a.MonthlyTrend(TrendMonths),
		Budgets:    a.BudgetProgress(v.Budgets(), today),
		BurnRate:   v.BurnRate(),
		Upcoming:   v.UpcomingBills(),
		Trials:     v.ExpiringTrials(),
	}
}

// Markdown renders o.
func (o Overview) Markdown() string {
	money := func(d decimal.Decimal) string { return domain.FormatAmount(d, o.Currency) }

	var b strings.Builder
	fmt.Fprintf(&b, "# Vault report: %s %d\n\n", o.Today.Month, o.Today.Year)
	fmt.Fprintf(&b, "**Net worth**: %s\n\n", money(o.NetWorth))

	b.WriteString("## This month\n\n")
	b.WriteString("| | Amount |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Income | %s |\n", money(o.Summary.Income))
	fmt.Fprintf(&b, "| Expenses | %s |\n", money(o.Summary.Expense))
	fmt.Fprintf(&b, "| Net | %s |\n\n", money(o.Summary.Net))

	if len(o.Categories) > 0 {
		b.WriteString("## Spending by category\n\n")
		b.WriteString("| Category | Amount |\n|---|---:|\n")
		for _, c := range o.Categories {
			fmt.Fprintf(&b, "| %s | %s |\n", escape(c.Category), money(c.Amount))
		}
		b.WriteString("\n")
	}

	if len(o.Trend) > 0 {
		b.WriteString("## Monthly spending\n\n")
		b.WriteString("| Month | Amount |\n|---|---:|\n")
		for _, m := range o.Trend {
			fmt.Fprintf(&b, "| %s | %s |\n", m.Month, money(m.Amount))
		}
		b.WriteString("\n")
	}

	if len(o.Budgets) > 0 {
		b.WriteString("## Budgets\n\n")
		b.WriteString("| Category | Spent | Limit | Used |\n|---|---:|---:|---:|\n")
		for _, s := range o.Budgets {
			used := fmt.Sprintf("%.0f%%", s.Percent)
			if s.Over {
				used += " **over**"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", escape(s.Budget.Category), money(s.Spent), money(s.Budget.Limit), used)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Subscriptions\n\n")
	fmt.Fprintf(&b, "Monthly burn rate: **%s**\n\n", money(o.BurnRate))
	for _, s := range o.Upcoming {
		fmt.Fprintf(&b, "- %s due %s (%s)\n", escape(s.Name), s.NextBillingDate, money(s.Cost))
	}
	for _, s := range o.Trials {
		fmt.Fprintf(&b, "- %s trial ends %s\n", escape(s.Name), *s.TrialEndDate)
	}
	return b.String()
}

// Render styles markdown for a terminal. theme is a vault theme; anything
// other than dark or light produces plain text.
func Render(markdown, theme string, width int) (string, error) {
	style := styles.NoTTYStyle
	switch theme {
	case domain.ThemeDark:
		style = styles.DarkStyle
	case domain.ThemeLight:
		style = styles.LightStyle
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("Render: creating renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("Render: %w", err)
	}
	return out, nil
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
