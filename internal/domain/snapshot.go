package domain

// Theme names accepted by the settings.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Settings are the scalar preferences persisted next to the collections.
type Settings struct {
	Currency         string     `json:"currency"`
	Theme            string     `json:"theme"`
	CustomCurrencies []Currency `json:"customCurrencies"`
}

// DefaultSettings returns the settings of a fresh vault.
func DefaultSettings() Settings {
	return Settings{Currency: DefaultCurrencyCode, Theme: ThemeDark}
}

// Snapshot is the complete persisted state of a vault.
type Snapshot struct {
	Transactions  []Transaction  `json:"transactions"`
	Accounts      []Account      `json:"accounts"`
	Subscriptions []Subscription `json:"subscriptions"`
	Budgets       []Budget       `json:"budgets"`
	Categories    []Category     `json:"categories"`
	Settings      Settings       `json:"settings"`
}

// EmptySnapshot returns a snapshot with default settings and categories.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Categories: DefaultCategories(),
		Settings:   DefaultSettings(),
	}
}

// HasData reports whether the snapshot holds any user-created records.
func (s Snapshot) HasData() bool {
	return len(s.Transactions) > 0 || len(s.Accounts) > 0 ||
		len(s.Subscriptions) > 0 || len(s.Budgets) > 0
}

// Clone returns a deep copy so that callers can hand snapshots across
// goroutines without sharing backing arrays.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Transactions:  append([]Transaction(nil), s.Transactions...),
		Accounts:      append([]Account(nil), s.Accounts...),
		Subscriptions: append([]Subscription(nil), s.Subscriptions...),
		Budgets:       append([]Budget(nil), s.Budgets...),
		Categories:    append([]Category(nil), s.Categories...),
		Settings:      s.Settings,
	}
	out.Settings.CustomCurrencies = append([]Currency(nil), s.Settings.CustomCurrencies...)
	for i, tx := range out.Transactions {
		if tx.OriginalAmount != nil {
			v := *tx.OriginalAmount
			out.Transactions[i].OriginalAmount = &v
		}
	}
	for i, sub := range out.Subscriptions {
		if sub.TrialEndDate != nil {
			v := *sub.TrialEndDate
			out.Subscriptions[i].TrialEndDate = &v
		}
	}
	return out
}
