// Package api assembles the HTTP surface of the vault.
package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/vault/internal/api/handlers"
	"github.com/dvloznov/vault/internal/api/middleware"
	"github.com/dvloznov/vault/internal/auth"
	"github.com/dvloznov/vault/internal/jobs"
	"github.com/dvloznov/vault/internal/rates"
	"github.com/dvloznov/vault/internal/vault"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Options configures the router.
type Options struct {
	// Token, when set, is required as a bearer token on /api routes.
	Token string
	// Session, when set, exposes sign-in and sign-out under /api/session.
	// The vault must already be bound to it.
	Session auth.Provider
	// Jobs, when set, exposes the maintenance queue under /api/jobs.
	Jobs *JobsOptions
	Now  func() time.Time
}

// JobsOptions connects the router to a job queue.
type JobsOptions struct {
	Publisher jobs.Publisher
	Store     jobs.Store
	Tasks     jobs.Tasks
}

// NewRouter wires every endpoint onto a chi router.
func NewRouter(v *vault.Vault, provider rates.Provider, log zerolog.Logger, opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	transactions := handlers.NewTransactionsHandler(v)
	accounts := handlers.NewAccountsHandler(v)
	subscriptions := handlers.NewSubscriptionsHandler(v)
	budgets := handlers.NewBudgetsHandler(v)
	categories := handlers.NewCategoriesHandler(v)
	settings := handlers.NewSettingsHandler(v)
	reports := handlers.NewReportsHandler(v, provider)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   opts.Now().Format(time.RFC3339),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(opts.Token))

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", transactions.List)
			r.Post("/", transactions.Create)
			r.Get("/{id}", transactions.Get)
			r.Put("/{id}", transactions.Update)
			r.Delete("/{id}", transactions.Delete)
		})
		r.Post("/transfers", transactions.Transfer)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accounts.List)
			r.Post("/", accounts.Create)
			r.Put("/{id}", accounts.Update)
			r.Delete("/{id}", accounts.Delete)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", subscriptions.List)
			r.Post("/", subscriptions.Create)
			r.Get("/upcoming", subscriptions.Upcoming)
			r.Get("/trials", subscriptions.Trials)
			r.Post("/reconcile", subscriptions.Reconcile)
			r.Put("/{id}", subscriptions.Update)
			r.Delete("/{id}", subscriptions.Delete)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", budgets.List)
			r.Post("/", budgets.Create)
			r.Put("/{id}", budgets.Update)
			r.Delete("/{id}", budgets.Delete)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categories.List)
			r.Post("/", categories.Create)
			r.Put("/{id}", categories.Update)
			r.Delete("/{id}", categories.Delete)
		})

		r.Get("/settings", settings.Get)
		r.Put("/settings", settings.Update)
		r.Get("/currencies", settings.ListCurrencies)
		r.Post("/currencies", settings.AddCurrency)
		r.Delete("/currencies/{code}", settings.RemoveCurrency)
		r.Get("/export", settings.Export)
		r.Post("/import", settings.Import)
		r.Get("/sync", settings.SyncStatus)
		r.Post("/sync/flush", settings.Flush)

		if opts.Session != nil {
			session := handlers.NewSessionHandler(v, opts.Session)
			r.Get("/session", session.Get)
			r.Post("/session", session.Login)
			r.Delete("/session", session.Logout)
		}

		if opts.Jobs != nil {
			jobsHandler := handlers.NewJobsHandler(opts.Jobs.Publisher, opts.Jobs.Store, opts.Jobs.Tasks)
			r.Get("/jobs", jobsHandler.List)
			r.Post("/jobs", jobsHandler.Create)
			r.Get("/jobs/{id}", jobsHandler.Get)
		}

		r.Route("/reports", func(r chi.Router) {
			r.Get("/summary", reports.Summary)
			r.Get("/categories", reports.Categories)
			r.Get("/trend", reports.Trend)
			r.Get("/daily", reports.Daily)
			r.Get("/budgets", reports.Budgets)
			r.Get("/networth", reports.NetWorth)
		})
	})

	return r
}
