// Package handlers exposes the vault over JSON HTTP endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/api/middleware"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/ledger"
	"github.com/dvloznov/vault/internal/logger"
	"github.com/dvloznov/vault/internal/vault"
)

// maxBodyBytes bounds request bodies, imports included.
const maxBodyBytes = 10 << 20

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeVaultError maps vault errors onto status codes.
func writeVaultError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, vault.ErrInvalidInput), errors.Is(err, vault.ErrSameAccount):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to " + action)
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

func notFound(w http.ResponseWriter, what string) {
	middleware.WriteError(w, http.StatusNotFound, what+" not found")
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (civil.Date, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return civil.Date{}, true
	}
	d, err := domain.ParseDate(s, time.UTC)
	if err != nil || domain.IsZeroDate(d) {
		return civil.Date{}, false
	}
	return d, true
}

func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
