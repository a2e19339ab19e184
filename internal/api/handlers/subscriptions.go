package handlers

import (
	"net/http"

	"github.com/dvloznov/vault/internal/api/middleware"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/vault"
	"github.com/go-chi/chi/v5"
)

// SubscriptionsHandler handles subscription endpoints.
type SubscriptionsHandler struct {
	vault *vault.Vault
}

// NewSubscriptionsHandler creates a new subscriptions handler.
func NewSubscriptionsHandler(v *vault.Vault) *SubscriptionsHandler {
	return &SubscriptionsHandler{vault: v}
}

// List handles GET /api/subscriptions and includes the monthly burn rate.
func (h *SubscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	subs := h.vault.Subscriptions()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"subscriptions": list(subs),
		"count":         len(subs),
		"burnRate":      h.vault.BurnRate(),
	})
}

// Upcoming handles GET /api/subscriptions/upcoming
func (h *SubscriptionsHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, list(h.vault.UpcomingBills()))
}

// Trials handles GET /api/subscriptions/trials
func (h *SubscriptionsHandler) Trials(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, list(h.vault.ExpiringTrials()))
}

// Reconcile handles POST /api/subscriptions/reconcile
func (h *SubscriptionsHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	changed := h.vault.ReconcileSubscriptions()
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

// Create handles POST /api/subscriptions
func (h *SubscriptionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var s domain.Subscription
	if !decode(w, r, &s) {
		return
	}
	created, err := h.vault.AddSubscription(s)
	if err != nil {
		writeVaultError(w, r, err, "create subscription")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/subscriptions/{id}
func (h *SubscriptionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.find(id); !ok {
		notFound(w, "Subscription")
		return
	}

	var s domain.Subscription
	if !decode(w, r, &s) {
		return
	}
	s.ID = id
	if err := h.vault.EditSubscription(s); err != nil {
		writeVaultError(w, r, err, "update subscription")
		return
	}
	updated, _ := h.find(id)
	middleware.WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/subscriptions/{id}
func (h *SubscriptionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.find(id); !ok {
		notFound(w, "Subscription")
		return
	}
	h.vault.DeleteSubscription(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SubscriptionsHandler) find(id string) (domain.Subscription, bool) {
	for _, s := range h.vault.Subscriptions() {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Subscription{}, false
}
