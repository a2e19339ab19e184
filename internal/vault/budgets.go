package vault

import (
	"fmt"
	"strings"

	"github.com/dvloznov/vault/internal/analytics"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/rates"
)

// Budgets returns all budgets.
func (v *Vault) Budgets() []domain.Budget {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Budget(nil), v.budgets...)
}

// AddBudget creates a monthly budget for a category.
func (v *Vault) AddBudget(b domain.Budget) (domain.Budget, error) {
	if b.Period == "" {
		b.Period = domain.PeriodMonthly
	}
	if err := validateBudget(b); err != nil {
		return domain.Budget{}, fmt.Errorf("AddBudget: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	b.ID = v.id(b.ID)
	v.budgets = append(v.budgets, b)
	v.persistLocked()
	return b, nil
}

// EditBudget replaces a budget. Unknown ids are ignored.
func (v *Vault) EditBudget(b domain.Budget) error {
	if err := validateBudget(b); err != nil {
		return fmt.Errorf("EditBudget: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.budgets {
		if v.budgets[i].ID == b.ID {
			v.budgets[i] = b
			v.persistLocked()
			return nil
		}
	}
	return nil
}

// DeleteBudget removes a budget.
func (v *Vault) DeleteBudget(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.budgets {
		if v.budgets[i].ID == id {
			v.budgets = append(v.budgets[:i:i], v.budgets[i+1:]...)
			v.persistLocked()
			return
		}
	}
}

// Analyzer returns a read-only analytics view over the current state with
// amounts normalised through table.
func (v *Vault) Analyzer(table rates.Table) *analytics.Analyzer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return analytics.New(
		append([]domain.Account(nil), v.book.Accounts...),
		append([]domain.Transaction(nil), v.book.Transactions...),
		table,
	)
}

// BudgetProgress computes this month's spending against every budget.
func (v *Vault) BudgetProgress(table rates.Table) []analytics.BudgetStatus {
	budgets := v.Budgets()
	return v.Analyzer(table).BudgetProgress(budgets, v.Today())
}

func validateBudget(b domain.Budget) error {
	if strings.TrimSpace(b.Category) == "" {
		return invalid("category is required")
	}
	if !b.Limit.IsPositive() {
		return invalid("limit must be positive")
	}
	if b.Period != domain.PeriodMonthly {
		return invalid("unsupported budget period %q", b.Period)
	}
	return nil
}

// Categories returns the category vocabulary.
func (v *Vault) Categories() []domain.Category {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Category(nil), v.categories...)
}

// AddCategory adds a category. Names are unique regardless of case.
func (v *Vault) AddCategory(c domain.Category) (domain.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Type == "" {
		c.Type = domain.CategoryExpense
	}
	if err := validateCategory(c); err != nil {
		return domain.Category{}, fmt.Errorf("AddCategory: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for _, existing := range v.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return domain.Category{}, fmt.Errorf("AddCategory: %w", invalid("category %q already exists", c.Name))
		}
	}
	c.ID = v.id(c.ID)
	v.categories = append(v.categories, c)
	v.persistLocked()
	return c, nil
}

// EditCategory replaces a category. Transactions keep the name they were
// filed under. Unknown ids are ignored.
func (v *Vault) EditCategory(c domain.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if err := validateCategory(c); err != nil {
		return fmt.Errorf("EditCategory: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.categories {
		if v.categories[i].ID == c.ID {
			v.categories[i] = c
			v.persistLocked()
			return nil
		}
	}
	return nil
}

// DeleteCategory removes a category from the vocabulary.
func (v *Vault) DeleteCategory(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.categories {
		if v.categories[i].ID == id {
			v.categories = append(v.categories[:i:i], v.categories[i+1:]...)
			v.persistLocked()
			return
		}
	}
}

func validateCategory(c domain.Category) error {
	if c.Name == "" {
		return invalid("name is required")
	}
	switch c.Type {
	case domain.CategoryIncome, domain.CategoryExpense, domain.CategoryAny:
		return nil
	}
	return invalid("unknown category type %q", c.Type)
}
