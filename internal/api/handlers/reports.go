package handlers

import (
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/analytics"
	"github.com/dvloznov/vault/internal/api/middleware"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/logger"
	"github.com/dvloznov/vault/internal/rates"
	"github.com/dvloznov/vault/internal/vault"
)

const defaultTrendMonths = 6

// ReportsHandler serves analytics normalised to the vault's currency.
type ReportsHandler struct {
	vault *vault.Vault
	rates rates.Provider
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(v *vault.Vault, provider rates.Provider) *ReportsHandler {
	return &ReportsHandler{vault: v, rates: provider}
}

// table fetches rates for the display currency. A failed fetch degrades to
// an empty table, which passes amounts through unconverted.
func (h *ReportsHandler) table(r *http.Request) rates.Table {
	base := h.vault.Settings().Currency
	t, err := h.rates.Rates(r.Context(), base)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Warn().Err(err).Str("base", base).Msg("exchange rates unavailable, amounts not converted")
		return rates.Table{Base: base}
	}
	return t
}

// Summary handles GET /api/reports/summary?month=YYYY-MM
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	month := h.vault.Today()
	if s := r.URL.Query().Get("month"); s != "" {
		d, err := civil.ParseDate(s + "-01")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid month format")
			return
		}
		month = d
	}
	an := h.vault.Analyzer(h.table(r))
	middleware.WriteJSON(w, http.StatusOK, an.MonthSummary(month))
}

// Categories handles GET /api/reports/categories?start_date&end_date
func (h *ReportsHandler) Categories(w http.ResponseWriter, r *http.Request) {
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
	an := h.vault.Analyzer(h.table(r))
	middleware.WriteJSON(w, http.StatusOK, list(an.SpendingByCategory(analytics.Range{From: from, To: to})))
}

// Trend handles GET /api/reports/trend?months=n
func (h *ReportsHandler) Trend(w http.ResponseWriter, r *http.Request) {
	n := defaultTrendMonths
	if s := r.URL.Query().Get("months"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid months")
			return
		}
		n = parsed
	}
	an := h.vault.Analyzer(h.table(r))
	middleware.WriteJSON(w, http.StatusOK, list(an.MonthlyTrend(n)))
}

// Daily handles GET /api/reports/daily?start_date&end_date. The range
// defaults to the last 30 days.
func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	today := h.vault.Today()
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
	if domain.IsZeroDate(to) {
		to = today
	}
	if domain.IsZeroDate(from) {
		from = domain.AddDate(to, 0, 0, -29)
	}
	if to.Before(from) {
		middleware.WriteError(w, http.StatusBadRequest, "end_date precedes start_date")
		return
	}
	an := h.vault.Analyzer(h.table(r))
	middleware.WriteJSON(w, http.StatusOK, list(an.DailySpending(from, to)))
}

// Budgets handles GET /api/reports/budgets
func (h *ReportsHandler) Budgets(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, list(h.vault.BudgetProgress(h.table(r))))
}

// NetWorth handles GET /api/reports/networth
func (h *ReportsHandler) NetWorth(w http.ResponseWriter, r *http.Request) {
	t := h.table(r)
	an := h.vault.Analyzer(t)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"currency": t.Base,
		"netWorth": an.NetWorth(),
	})
}
