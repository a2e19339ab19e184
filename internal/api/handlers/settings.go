package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/dvloznov/vault/internal/api/middleware"
	"github.com/dvloznov/vault/internal/vault"
	"github.com/go-chi/chi/v5"
)

// SettingsHandler handles preferences, currencies, backups and sync status.
type SettingsHandler struct {
	vault *vault.Vault
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(v *vault.Vault) *SettingsHandler {
	return &SettingsHandler{vault: v}
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.vault.Settings())
}

// Update handles PUT /api/settings. Either field may be omitted.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Currency string `json:"currency"`
		Theme    string `json:"theme"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Currency != "" {
		if err := h.vault.SetCurrency(req.Currency); err != nil {
			writeVaultError(w, r, err, "update currency")
			return
		}
	}
	if req.Theme != "" {
		if err := h.vault.SetTheme(req.Theme); err != nil {
			writeVaultError(w, r, err, "update theme")
			return
		}
	}
	middleware.WriteJSON(w, http.StatusOK, h.vault.Settings())
}

// ListCurrencies handles GET /api/currencies
func (h *SettingsHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.vault.AvailableCurrencies())
}

// AddCurrency handles POST /api/currencies
func (h *SettingsHandler) AddCurrency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code   string `json:"code"`
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	cur, err := h.vault.AddCustomCurrency(req.Code, req.Symbol, req.Name)
	if err != nil {
		writeVaultError(w, r, err, "add currency")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, cur)
}

// RemoveCurrency handles DELETE /api/currencies/{code}
func (h *SettingsHandler) RemoveCurrency(w http.ResponseWriter, r *http.Request) {
	h.vault.RemoveCustomCurrency(chi.URLParam(r, "code"))
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/export and serves the backup as a download.
func (h *SettingsHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.vault.Export()
	if err != nil {
		writeVaultError(w, r, err, "export vault")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+vault.BackupFileName(h.vault.Today())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import handles POST /api/import. The body is a backup document.
func (h *SettingsHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	report, err := h.vault.Import(data)
	if err != nil {
		writeVaultError(w, r, err, "import vault")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"fromVersion": report.FromVersion,
		"defaulted":   report.Defaulted,
		"problems":    list(report.Problems),
	})
}

// SyncStatus handles GET /api/sync
func (h *SettingsHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	ev := h.vault.SyncStatus()
	resp := map[string]interface{}{"status": ev.Status}
	if !ev.At.IsZero() {
		resp["at"] = ev.At
	}
	if ev.Err != nil {
		resp["error"] = ev.Err.Error()
	}
	if u := h.vault.User(); u != nil {
		resp["userId"] = u.ID
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// Flush handles POST /api/sync/flush
func (h *SettingsHandler) Flush(w http.ResponseWriter, r *http.Request) {
	if err := h.vault.Flush(r.Context()); err != nil {
		writeVaultError(w, r, err, "flush pending changes")
		return
	}
	h.SyncStatus(w, r)
}
