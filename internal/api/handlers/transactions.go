package handlers

import (
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/api/middleware"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/vault"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// TransactionsHandler handles transaction and transfer endpoints.
type TransactionsHandler struct {
	vault *vault.Vault
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(v *vault.Vault) *TransactionsHandler {
	return &TransactionsHandler{vault: v}
}

// List handles GET /api/transactions. Optional start_date, end_date and
// account_id query parameters narrow the result.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	from, ok := queryDate(r, "start_date")
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
		return
	}
	to, ok := queryDate(r, "end_date")
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
		return
	}
	accountID := r.URL.Query().Get("account_id")

	var out []domain.Transaction
	for _, tx := range h.vault.Transactions() {
		if accountID != "" && tx.AccountID != accountID {
			continue
		}
		if !domain.IsZeroDate(from) && tx.Date.Before(from) {
			continue
		}
		if !domain.IsZeroDate(to) && tx.Date.After(to) {
			continue
		}
		out = append(out, tx)
	}
	middleware.WriteJSON(w, http.StatusOK, list(out))
}

// Get handles GET /api/transactions/{id}.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.vault.Transaction(chi.URLParam(r, "id"))
	if !ok {
		notFound(w, "Transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Create handles POST /api/transactions.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var tx domain.Transaction
	if !decode(w, r, &tx) {
		return
	}
	created, err := h.vault.AddTransaction(tx)
	if err != nil {
		writeVaultError(w, r, err, "create transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/transactions/{id}.
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.vault.Transaction(id); !ok {
		notFound(w, "Transaction")
		return
	}

	var tx domain.Transaction
	if !decode(w, r, &tx) {
		return
	}
	tx.ID = id
	if err := h.vault.EditTransaction(tx); err != nil {
		writeVaultError(w, r, err, "update transaction")
		return
	}
	updated, _ := h.vault.Transaction(id)
	middleware.WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/transactions/{id}. Deleting one leg of a
// transfer removes both; the response lists what was removed.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed := h.vault.DeleteTransaction(chi.URLParam(r, "id"))
	if len(removed) == 0 {
		notFound(w, "Transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
		"count":   len(removed),
	})
}

type transferRequest struct {
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	Date          *civil.Date     `json:"date,omitempty"`
}

// Transfer handles POST /api/transfers.
func (h *TransactionsHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decode(w, r, &req) {
		return
	}
	var date civil.Date
	if req.Date != nil {
		date = *req.Date
	}

	pair, err := h.vault.TransferFunds(req.FromAccountID, req.ToAccountID, req.Amount, date)
	if err != nil {
		writeVaultError(w, r, err, "transfer funds")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"linkedId": pair.Out.LinkedID,
		"out":      pair.Out,
		"in":       pair.In,
	})
}
