package handlers

import (
	"net/http"

	"github.com/dvloznov/vault/internal/api/middleware"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/vault"
	"github.com/go-chi/chi/v5"
)

// AccountsHandler handles account endpoints.
type AccountsHandler struct {
	vault *vault.Vault
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(v *vault.Vault) *AccountsHandler {
	return &AccountsHandler{vault: v}
}

// List handles GET /api/accounts
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts := h.vault.Accounts()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": list(accounts),
		"count":    len(accounts),
	})
}

// Create handles POST /api/accounts
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var a domain.Account
	if !decode(w, r, &a) {
		return
	}
	created, err := h.vault.AddAccount(a)
	if err != nil {
		writeVaultError(w, r, err, "create account")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/accounts/{id}. The submitted balance replaces the
// stored one.
func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.vault.Account(id); !ok {
		notFound(w, "Account")
		return
	}

	var a domain.Account
	if !decode(w, r, &a) {
		return
	}
	a.ID = id
	if err := h.vault.EditAccount(a); err != nil {
		writeVaultError(w, r, err, "update account")
		return
	}
	updated, _ := h.vault.Account(id)
	middleware.WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/accounts/{id}
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.vault.Account(id); !ok {
		notFound(w, "Account")
		return
	}
	h.vault.DeleteAccount(id)
	w.WriteHeader(http.StatusNoContent)
}
