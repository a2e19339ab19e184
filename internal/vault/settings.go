package vault

import (
	"fmt"
	"strings"

	"github.com/dvloznov/vault/internal/domain"
)

// Settings returns the vault's preferences.
func (v *Vault) Settings() domain.Settings {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.settings
	s.CustomCurrencies = append([]domain.Currency(nil), v.settings.CustomCurrencies...)
	return s
}

// AvailableCurrencies lists built-in currencies followed by custom ones.
func (v *Vault) AvailableCurrencies() []domain.Currency {
	v.mu.Lock()
	defer v.mu.Unlock()
	return domain.MergeCurrencies(v.settings.CustomCurrencies)
}

// SetCurrency changes the display currency. The code must be available.
func (v *Vault) SetCurrency(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	v.mu.Lock()
	defer v.mu.Unlock()

	if !hasCurrency(domain.MergeCurrencies(v.settings.CustomCurrencies), code) {
		return fmt.Errorf("SetCurrency: %w", invalid("unknown currency %q", code))
	}
	if v.settings.Currency == code {
		return nil
	}
	v.settings.Currency = code
	v.persistLocked()
	return nil
}

// SetTheme switches between the dark and light theme.
func (v *Vault) SetTheme(theme string) error {
	if theme != domain.ThemeDark && theme != domain.ThemeLight {
		return fmt.Errorf("SetTheme: %w", invalid("unknown theme %q", theme))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.settings.Theme == theme {
		return nil
	}
	v.settings.Theme = theme
	v.persistLocked()
	return nil
}

// AddCustomCurrency registers an ISO 4217 currency that is not built in.
func (v *Vault) AddCustomCurrency(code, symbol, name string) (domain.Currency, error) {
	cur, err := domain.NewCustomCurrency(code, symbol, name)
	if err != nil {
		return domain.Currency{}, fmt.Errorf("AddCustomCurrency: %w", invalid("%v", err))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if hasCurrency(domain.MergeCurrencies(v.settings.CustomCurrencies), cur.Code) {
		return domain.Currency{}, fmt.Errorf("AddCustomCurrency: %w", invalid("currency %q already exists", cur.Code))
	}
	v.settings.CustomCurrencies = append(v.settings.CustomCurrencies, cur)
	v.persistLocked()
	return cur, nil
}

// RemoveCustomCurrency drops a custom currency. When it was the display
// currency the vault falls back to the default currency.
func (v *Vault) RemoveCustomCurrency(code string) {
	code = strings.ToUpper(strings.TrimSpace(code))

	v.mu.Lock()
	defer v.mu.Unlock()

	for i, c := range v.settings.CustomCurrencies {
		if c.Code != code {
			continue
		}
		v.settings.CustomCurrencies = append(v.settings.CustomCurrencies[:i:i], v.settings.CustomCurrencies[i+1:]...)
		if v.settings.Currency == code && !hasCurrency(domain.DefaultCurrencies(), code) {
			v.settings.Currency = domain.DefaultCurrencyCode
		}
		v.persistLocked()
		return
	}
}

func hasCurrency(list []domain.Currency, code string) bool {
	for _, c := range list {
		if c.Code == code {
			return true
		}
	}
	return false
}
