package domain

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrencyCode is used when neither settings nor stored data carry one.
const DefaultCurrencyCode = "USD"

// Currency is a selectable currency. Custom currencies are stored separately
// from the built-in list and merged at read time.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// DefaultCurrencies returns the built-in currency list.
func DefaultCurrencies() []Currency {
	return []Currency{
		{Code: "USD", Symbol: "$", Name: "US Dollar"},
		{Code: "EUR", Symbol: "€", Name: "Euro"},
		{Code: "SGD", Symbol: "S$", Name: "Singapore Dollar"},
		{Code: "GBP", Symbol: "£", Name: "British Pound"},
		{Code: "JPY", Symbol: "¥", Name: "Japanese Yen"},
		{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar"},
		{Code: "AUD", Symbol: "A$", Name: "Australian Dollar"},
		{Code: "CNY", Symbol: "¥", Name: "Chinese Yuan"},
		{Code: "INR", Symbol: "₹", Name: "Indian Rupee"},
	}
}

// MergeCurrencies returns the built-in currencies followed by custom ones
// whose code is not already present.
func MergeCurrencies(custom []Currency) []Currency {
	merged := DefaultCurrencies()
	seen := make(map[string]bool, len(merged)+len(custom))
	for _, c := range merged {
		seen[c.Code] = true
	}
	for _, c := range custom {
		if seen[c.Code] {
			continue
		}
		seen[c.Code] = true
		merged = append(merged, c)
	}
	return merged
}

// NewCustomCurrency validates code against the ISO 4217 catalogue and fills
// in a symbol when none is given.
func NewCustomCurrency(code, symbol, name string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	cur := money.GetCurrency(code)
	if cur == nil {
		return Currency{}, fmt.Errorf("unknown currency code: %q", code)
	}
	if symbol == "" {
		symbol = cur.Grapheme
	}
	if name == "" {
		name = code
	}
	return Currency{Code: code, Symbol: symbol, Name: name}, nil
}

// CurrencySymbol looks code up in currencies, falling back to "$".
func CurrencySymbol(code string, currencies []Currency) string {
	for _, c := range currencies {
		if c.Code == code {
			return c.Symbol
		}
	}
	return "$"
}

// FormatAmount renders amount with the currency's grapheme and precision.
func FormatAmount(amount decimal.Decimal, code string) string {
	cur := money.New(0, code).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
