package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/shopspring/decimal"
)

// SchemaVersion is the layout written by this package. Version 1 is the
// unversioned layout: ISO timestamps for dates, subscriptions priced in
// "amount", and no currency on accounts or transactions.
const SchemaVersion = 2

// Document field names, shared by the remote document and backups.
const (
	FieldSchemaVersion    = "schemaVersion"
	FieldTransactions     = "transactions"
	FieldAccounts         = "accounts"
	FieldSubscriptions    = "subscriptions"
	FieldBudgets          = "budgets"
	FieldCategories       = "categories"
	FieldCurrency         = "currency"
	FieldTheme            = "theme"
	FieldCustomCurrencies = "customCurrencies"
)

// RawSnapshot is stored data as found, before defaults are applied. Every
// field that older versions could omit is optional here.
type RawSnapshot struct {
	SchemaVersion    int               `json:"schemaVersion,omitempty"`
	Transactions     []RawTransaction  `json:"transactions,omitempty"`
	Accounts         []RawAccount      `json:"accounts,omitempty"`
	Subscriptions    []RawSubscription `json:"subscriptions,omitempty"`
	Budgets          []RawBudget       `json:"budgets,omitempty"`
	Categories       []domain.Category `json:"categories,omitempty"`
	Currency         string            `json:"currency,omitempty"`
	Theme            string            `json:"theme,omitempty"`
	CustomCurrencies []domain.Currency `json:"customCurrencies,omitempty"`
}

// RawTransaction is a stored transaction.
type RawTransaction struct {
	ID                  string           `json:"id"`
	Amount              decimal.Decimal  `json:"amount"`
	Date                string           `json:"date"`
	Merchant            string           `json:"merchant"`
	Category            string           `json:"category"`
	Type                string           `json:"type"`
	AccountID           string           `json:"accountId"`
	Currency            string           `json:"currency,omitempty"`
	OriginalAmount      *decimal.Decimal `json:"originalAmount,omitempty"`
	Note                string           `json:"note,omitempty"`
	LinkedID            string           `json:"linkedId,omitempty"`
	TransferAccountName string           `json:"transferAccountName,omitempty"`
}

// RawAccount is a stored account.
type RawAccount struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
	Color    string          `json:"color"`
	Icon     string          `json:"icon,omitempty"`
	Currency string          `json:"currency,omitempty"`
}

// RawSubscription is a stored subscription. Amount is the legacy name of Cost.
type RawSubscription struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Cost            *decimal.Decimal `json:"cost,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Frequency       string           `json:"frequency,omitempty"`
	NextBillingDate string           `json:"nextBillingDate"`
	Category        string           `json:"category"`
	IsTrial         bool             `json:"isTrial"`
	TrialEndDate    string           `json:"trialEndDate,omitempty"`
	Color           string           `json:"color"`
	Description     string           `json:"description,omitempty"`
}

// RawBudget is a stored budget.
type RawBudget struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Limit     decimal.Decimal `json:"limit"`
	Spent     decimal.Decimal `json:"spent"`
	Period    string          `json:"period,omitempty"`
	Color     string          `json:"color"`
	AccountID string          `json:"accountId,omitempty"`
}

// MigrationReport describes what Migrate had to fix.
type MigrationReport struct {
	FromVersion int
	Defaulted   int
	Problems    []string
}

// Upgraded reports whether the stored data should be rewritten.
func (r MigrationReport) Upgraded() bool {
	return r.FromVersion < SchemaVersion || r.Defaulted > 0
}

// Migrate is the single conversion from stored data to the current model.
// It fills every default older layouts lacked:
//
//   - account and transaction currency fall back to the global currency, then USD
//   - subscription cost falls back to the legacy amount
//   - missing frequency and budget period become monthly
//   - missing account type becomes checking
//   - missing categories and theme take their defaults
//
// Dates stored as timestamps are truncated to the calendar date in loc.
// Dates that cannot be parsed are left zero and reported.
func Migrate(raw RawSnapshot, loc *time.Location) (domain.Snapshot, MigrationReport) {
	if loc == nil {
		loc = time.Local
	}
	rep := MigrationReport{FromVersion: raw.SchemaVersion}
	if rep.FromVersion == 0 {
		rep.FromVersion = 1
	}

	globalCurrency := raw.Currency
	if globalCurrency == "" {
		globalCurrency = domain.DefaultCurrencyCode
		rep.Defaulted++
	}

	snap := domain.Snapshot{
		Settings: domain.Settings{
			Currency:         globalCurrency,
			Theme:            raw.Theme,
			CustomCurrencies: raw.CustomCurrencies,
		},
	}
	if snap.Settings.Theme == "" {
		snap.Settings.Theme = domain.ThemeDark
		rep.Defaulted++
	}

	if raw.Categories == nil {
		snap.Categories = domain.DefaultCategories()
		rep.Defaulted++
	} else {
		snap.Categories = raw.Categories
	}

	accountCurrency := make(map[string]string, len(raw.Accounts))
	for _, ra := range raw.Accounts {
		a := domain.Account{
			ID:       ra.ID,
			Name:     ra.Name,
			Type:     domain.AccountType(ra.Type),
			Balance:  ra.Balance,
			Color:    ra.Color,
			Icon:     ra.Icon,
			Currency: ra.Currency,
		}
		if !a.Type.Valid() {
			a.Type = domain.AccountChecking
			rep.Defaulted++
		}
		if a.Currency == "" {
			a.Currency = globalCurrency
			rep.Defaulted++
		}
		accountCurrency[a.ID] = a.Currency
		snap.Accounts = append(snap.Accounts, a)
	}

	for _, rt := range raw.Transactions {
		tx := domain.Transaction{
			ID:                  rt.ID,
			Amount:              rt.Amount.Abs(),
			Merchant:            rt.Merchant,
			Category:            rt.Category,
			Type:                domain.TransactionType(rt.Type),
			AccountID:           rt.AccountID,
			Currency:            rt.Currency,
			OriginalAmount:      rt.OriginalAmount,
			Note:                rt.Note,
			LinkedID:            rt.LinkedID,
			TransferAccountName: rt.TransferAccountName,
		}
		if tx.Type != domain.Income {
			tx.Type = domain.Expense
		}
		if tx.Currency == "" {
			if c, ok := accountCurrency[tx.AccountID]; ok {
				tx.Currency = c
			} else {
				tx.Currency = globalCurrency
			}
			rep.Defaulted++
		}
		tx.Date = rep.date(rt.Date, loc, "transaction "+rt.ID)
		snap.Transactions = append(snap.Transactions, tx)
	}

	for _, rs := range raw.Subscriptions {
		sub := domain.Subscription{
			ID:          rs.ID,
			Name:        rs.Name,
			Frequency:   domain.Frequency(rs.Frequency),
			Category:    rs.Category,
			IsTrial:     rs.IsTrial,
			Color:       rs.Color,
			Description: rs.Description,
		}
		switch {
		case rs.Cost != nil:
			sub.Cost = *rs.Cost
		case rs.Amount != nil:
			sub.Cost = *rs.Amount
			rep.Defaulted++
		default:
			sub.Cost = decimal.Zero
			rep.Problems = append(rep.Problems, fmt.Sprintf("subscription %s: no cost", rs.ID))
		}
		if sub.Frequency != domain.Monthly && sub.Frequency != domain.Yearly {
			sub.Frequency = domain.Monthly
			rep.Defaulted++
		}
		sub.NextBillingDate = rep.date(rs.NextBillingDate, loc, "subscription "+rs.ID)
		if rs.TrialEndDate != "" {
			d := rep.date(rs.TrialEndDate, loc, "subscription "+rs.ID+" trial")
			sub.TrialEndDate = &d
		}
		if sub.IsTrial && sub.TrialEndDate == nil {
			// A trial with no end date can never convert.
			sub.IsTrial = false
			rep.Problems = append(rep.Problems, fmt.Sprintf("subscription %s: trial without end date", rs.ID))
		}
		snap.Subscriptions = append(snap.Subscriptions, sub)
	}

	for _, rb := range raw.Budgets {
		b := domain.Budget{
			ID:        rb.ID,
			Category:  rb.Category,
			Limit:     rb.Limit,
			Spent:     rb.Spent,
			Period:    rb.Period,
			Color:     rb.Color,
			AccountID: rb.AccountID,
		}
		if b.Period == "" {
			b.Period = domain.PeriodMonthly
			rep.Defaulted++
		}
		snap.Budgets = append(snap.Budgets, b)
	}

	return snap, rep
}

func (r *MigrationReport) date(s string, loc *time.Location, what string) civil.Date {
	if strings.TrimSpace(s) == "" {
		r.Problems = append(r.Problems, what+": missing date")
		return civil.Date{}
	}
	d, err := domain.ParseDate(s, loc)
	if err != nil {
		r.Problems = append(r.Problems, fmt.Sprintf("%s: %v", what, err))
		return civil.Date{}
	}
	return d
}

// record is the current layout of a full snapshot.
type record struct {
	SchemaVersion    int                   `json:"schemaVersion"`
	Transactions     []domain.Transaction  `json:"transactions"`
	Accounts         []domain.Account      `json:"accounts"`
	Subscriptions    []domain.Subscription `json:"subscriptions"`
	Budgets          []domain.Budget       `json:"budgets"`
	Categories       []domain.Category     `json:"categories"`
	Currency         string                `json:"currency"`
	Theme            string                `json:"theme"`
	CustomCurrencies []domain.Currency     `json:"customCurrencies"`
}

func newRecord(s domain.Snapshot) record {
	r := record{
		SchemaVersion:    SchemaVersion,
		Transactions:     s.Transactions,
		Accounts:         s.Accounts,
		Subscriptions:    s.Subscriptions,
		Budgets:          s.Budgets,
		Categories:       s.Categories,
		Currency:         s.Settings.Currency,
		Theme:            s.Settings.Theme,
		CustomCurrencies: s.Settings.CustomCurrencies,
	}
	// Empty collections are written as [] rather than null.
	if r.Transactions == nil {
		r.Transactions = []domain.Transaction{}
	}
	if r.Accounts == nil {
		r.Accounts = []domain.Account{}
	}
	if r.Subscriptions == nil {
		r.Subscriptions = []domain.Subscription{}
	}
	if r.Budgets == nil {
		r.Budgets = []domain.Budget{}
	}
	if r.Categories == nil {
		r.Categories = []domain.Category{}
	}
	if r.CustomCurrencies == nil {
		r.CustomCurrencies = []domain.Currency{}
	}
	return r
}

// Marshal encodes a snapshot in the current layout, as used for backups.
func Marshal(s domain.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(newRecord(s), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("Marshal: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a snapshot in any known layout.
func Unmarshal(data []byte, loc *time.Location) (domain.Snapshot, MigrationReport, error) {
	var raw RawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Snapshot{}, MigrationReport{}, fmt.Errorf("Unmarshal: %w", err)
	}
	snap, rep := Migrate(raw, loc)
	return snap, rep, nil
}

// EncodeDocument converts a snapshot into a remote document with nil values
// removed.
func EncodeDocument(s domain.Snapshot) (Document, error) {
	data, err := json.Marshal(newRecord(s))
	if err != nil {
		return nil, fmt.Errorf("EncodeDocument: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("EncodeDocument: %w", err)
	}
	return Document(Sanitize(doc).(map[string]any)), nil
}

// DecodeDocument converts a remote document of any known layout into a snapshot.
func DecodeDocument(doc Document, loc *time.Location) (domain.Snapshot, MigrationReport, error) {
	data, err := json.Marshal(map[string]any(doc))
	if err != nil {
		return domain.Snapshot{}, MigrationReport{}, fmt.Errorf("DecodeDocument: %w", err)
	}
	return Unmarshal(data, loc)
}
