package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/vault/internal/api/middleware"
	"github.com/dvloznov/vault/internal/auth"
	"github.com/dvloznov/vault/internal/vault"
)

// SessionHandler signs users in and out. The vault follows the provider,
// so a login switches it to the user's remote data.
type SessionHandler struct {
	vault    *vault.Vault
	provider auth.Provider
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(v *vault.Vault, p auth.Provider) *SessionHandler {
	return &SessionHandler{vault: v, provider: p}
}

// Get handles GET /api/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.state())
}

// Login handles POST /api/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var u auth.User
	if !decode(w, r, &u) {
		return
	}
	if err := h.provider.Login(r.Context(), u); err != nil {
		if errors.Is(err, auth.ErrInvalidUser) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeVaultError(w, r, err, "sign in")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.state())
}

// Logout handles DELETE /api/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.provider.Logout(r.Context()); err != nil {
		writeVaultError(w, r, err, "sign out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) state() map[string]interface{} {
	ev := h.vault.SyncStatus()
	resp := map[string]interface{}{
		"user":   h.vault.User(),
		"status": ev.Status,
	}
	if ev.Err != nil {
		resp["error"] = ev.Err.Error()
	}
	return resp
}
