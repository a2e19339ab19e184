package domain

// CategoryType limits which transaction types a category applies to.
type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
	CategoryAny     CategoryType = "any"
)

// Category is an entry of the user-editable category vocabulary.
// Transactions refer to categories by name only.
type Category struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Type CategoryType `json:"type"`
}

// Applies reports whether the category may be used for transactions of type t.
func (c Category) Applies(t TransactionType) bool {
	return c.Type == CategoryAny || string(c.Type) == string(t)
}

// DefaultCategories returns the vocabulary a fresh vault starts with.
func DefaultCategories() []Category {
	return []Category{
		{ID: "1", Name: "Food", Type: CategoryExpense},
		{ID: "2", Name: "Transport", Type: CategoryExpense},
		{ID: "3", Name: "Shopping", Type: CategoryExpense},
		{ID: "4", Name: "Bills", Type: CategoryExpense},
		{ID: "5", Name: "Entertainment", Type: CategoryExpense},
		{ID: "6", Name: "Health", Type: CategoryExpense},
		{ID: "7", Name: "Salary", Type: CategoryIncome},
		{ID: "8", Name: "Investment", Type: CategoryIncome},
		{ID: "9", Name: TransferCategory, Type: CategoryAny},
	}
}

// CategoriesFor filters categories usable for transaction type t.
func CategoriesFor(categories []Category, t TransactionType) []Category {
	var out []Category
	for _, c := range categories {
		if c.Applies(t) {
			out = append(out, c)
		}
	}
	return out
}
