package handlers

import (
	"net/http"

	"github.com/dvloznov/vault/internal/api/middleware"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/vault"
	"github.com/go-chi/chi/v5"
)

// BudgetsHandler handles budget endpoints. Progress lives on the reports
// handler since it needs exchange rates.
type BudgetsHandler struct {
	vault *vault.Vault
}

// NewBudgetsHandler creates a new budgets handler.
func NewBudgetsHandler(v *vault.Vault) *BudgetsHandler {
	return &BudgetsHandler{vault: v}
}

// List handles GET /api/budgets
func (h *BudgetsHandler) List(w http.ResponseWriter, r *http.Request) {
	budgets := h.vault.Budgets()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"budgets": list(budgets),
		"count":   len(budgets),
	})
}

// Create handles POST /api/budgets
func (h *BudgetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var b domain.Budget
	if !decode(w, r, &b) {
		return
	}
	created, err := h.vault.AddBudget(b)
	if err != nil {
		writeVaultError(w, r, err, "create budget")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/budgets/{id}
func (h *BudgetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.exists(id) {
		notFound(w, "Budget")
		return
	}

	var b domain.Budget
	if !decode(w, r, &b) {
		return
	}
	b.ID = id
	if err := h.vault.EditBudget(b); err != nil {
		writeVaultError(w, r, err, "update budget")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, b)
}

// Delete handles DELETE /api/budgets/{id}
func (h *BudgetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.exists(id) {
		notFound(w, "Budget")
		return
	}
	h.vault.DeleteBudget(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *BudgetsHandler) exists(id string) bool {
	for _, b := range h.vault.Budgets() {
		if b.ID == id {
			return true
		}
	}
	return false
}

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	vault *vault.Vault
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(v *vault.Vault) *CategoriesHandler {
	return &CategoriesHandler{vault: v}
}

// List handles GET /api/categories. An optional type query parameter
// (income or expense) keeps only categories usable for that type.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories := h.vault.Categories()
	switch t := domain.TransactionType(r.URL.Query().Get("type")); t {
	case "":
	case domain.Income, domain.Expense:
		categories = domain.CategoriesFor(categories, t)
	default:
		middleware.WriteError(w, http.StatusBadRequest, "Invalid type")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": list(categories),
		"count":      len(categories),
	})
}

// Create handles POST /api/categories
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var c domain.Category
	if !decode(w, r, &c) {
		return
	}
	created, err := h.vault.AddCategory(c)
	if err != nil {
		writeVaultError(w, r, err, "create category")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/categories/{id}
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.exists(id) {
		notFound(w, "Category")
		return
	}

	var c domain.Category
	if !decode(w, r, &c) {
		return
	}
	c.ID = id
	if err := h.vault.EditCategory(c); err != nil {
		writeVaultError(w, r, err, "update category")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/categories/{id}
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.exists(id) {
		notFound(w, "Category")
		return
	}
	h.vault.DeleteCategory(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CategoriesHandler) exists(id string) bool {
	for _, c := range h.vault.Categories() {
		if c.ID == id {
			return true
		}
	}
	return false
}
