// Package rates supplies exchange-rate tables used to normalise amounts into
// a base currency. The core never converts; it only divides by a rate the
// caller looked up here.
package rates

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Provider returns the rate table for a base currency.
type Provider interface {
	Rates(ctx context.Context, base string) (Table, error)
}

// Table maps currency codes to how many units of that currency one unit of
// Base buys.
type Table struct {
	Base  string
	Rates map[string]decimal.Decimal
}

// Rate looks up the rate for code. The base currency always resolves to 1.
func (t Table) Rate(code string) (decimal.Decimal, bool) {
	code = strings.ToUpper(code)
	if code == "" || strings.EqualFold(code, t.Base) {
		return decimal.NewFromInt(1), true
	}
	r, ok := t.Rates[code]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

// Normalize expresses amount, held in currency code, in the base currency.
// Amounts in a currency without a usable rate pass through unchanged.
func (t Table) Normalize(amount decimal.Decimal, code string) decimal.Decimal {
	if code == "" || strings.EqualFold(code, t.Base) {
		return amount
	}
	r, ok := t.Rate(code)
	if !ok {
		return amount
	}
	return amount.Div(r)
}

// Static is a Provider backed by a fixed table, used when no feed is configured.
type Static struct {
	Table Table
}

// Rates returns the fixed table. A different base yields an empty table, so
// every amount passes through.
func (s Static) Rates(_ context.Context, base string) (Table, error) {
	if !strings.EqualFold(base, s.Table.Base) {
		return Table{Base: base}, nil
	}
	return s.Table, nil
}
