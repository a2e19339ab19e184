// Package vault is the store that owns a user's financial data in memory.
// Every mutation goes through the ledger so balances stay consistent with
// transactions, and every change is handed to the sync orchestrator.
//
// Methods are safe for concurrent use; mutations are serialised.
package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/auth"
	"github.com/dvloznov/vault/internal/billing"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/ledger"
	"github.com/dvloznov/vault/internal/syncer"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidInput is returned when a caller supplies data the vault
	// refuses to record.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSameAccount is returned for a transfer from an account to itself.
	ErrSameAccount = errors.New("source and destination accounts must differ")
)

// Syncer is the persistence side of the vault.
type Syncer interface {
	LoadLocal() (domain.Snapshot, bool, error)
	Persist(domain.Snapshot)
	BeginAuth()
	CompleteAuth(ctx context.Context, userID string, current domain.Snapshot) (domain.Snapshot, error)
	Logout(ctx context.Context)
	Flush(ctx context.Context) error
	ResetLocal() error
	Status() syncer.Event
	Close()
}

// Vault holds all collections and settings of one user.
type Vault struct {
	sync  Syncer
	log   zerolog.Logger
	now   func() time.Time
	newID func() string

	mu            sync.Mutex
	book          ledger.Book
	subscriptions []domain.Subscription
	budgets       []domain.Budget
	categories    []domain.Category
	settings      domain.Settings
	user          *auth.User
}

// Option configures a Vault.
type Option func(*Vault)

// WithClock overrides time.Now. "Today" is the clock's date in its location.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}

// WithIDGenerator overrides uuid.NewString for new records.
func WithIDGenerator(fn func() string) Option {
	return func(v *Vault) { v.newID = fn }
}

// New creates an empty vault. Call Load to read local data.
func New(s Syncer, log zerolog.Logger, opts ...Option) *Vault {
	v := &Vault{
		sync:  s,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.hydrateLocked(domain.EmptySnapshot())
	return v
}

// Load reads the local snapshot and reconciles subscriptions against today.
func (v *Vault) Load() error {
	snap, _, err := v.sync.LoadLocal()
	if err != nil {
		return fmt.Errorf("Load: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.hydrateLocked(snap)
	v.log.Info().
		Int("transactions", len(snap.Transactions)).
		Int("accounts", len(snap.Accounts)).
		Int("subscriptions", len(snap.Subscriptions)).
		Msg("vault loaded")
	v.reconcileLocked()
	return nil
}

// Snapshot returns a deep copy of the current state.
func (v *Vault) Snapshot() domain.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Today is the current calendar date according to the vault's clock.
func (v *Vault) Today() civil.Date {
	return domain.Today(v.now())
}

// User returns the signed-in user, if any.
func (v *Vault) User() *auth.User {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.user == nil {
		return nil
	}
	u := *v.user
	return &u
}

// SyncStatus returns the latest sync status.
func (v *Vault) SyncStatus() syncer.Event {
	return v.sync.Status()
}

// Login switches the vault to u's remote data. See syncer.CompleteAuth for
// how an existing remote document and local data are reconciled. When the
// remote read fails the in-memory state is kept and the error returned.
//
// The vault stays locked for the whole remote read: while authenticating,
// every other method waits, so no change can be made against state that the
// remote snapshot is about to replace. Bound ctx to limit that wait.
func (v *Vault) Login(ctx context.Context, u auth.User) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.sync.BeginAuth()
	snap, err := v.sync.CompleteAuth(ctx, u.ID, v.snapshotLocked())
	user := u
	v.user = &user
	if err != nil {
		return fmt.Errorf("Login: %w", err)
	}

	v.hydrateLocked(snap)
	v.reconcileLocked()
	return nil
}

// Logout writes pending changes, then clears the in-memory state without
// persisting the empty state anywhere.
func (v *Vault) Logout(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.sync.Logout(ctx)
	v.user = nil
	v.hydrateLocked(domain.EmptySnapshot())
}

// Bind follows p: a signed-in user triggers Login and a sign-out triggers
// Logout. The returned function stops following.
func (v *Vault) Bind(ctx context.Context, p auth.Provider) (unbind func()) {
	return p.Subscribe(func(u *auth.User) {
		current := v.User()
		switch {
		case u != nil && (current == nil || current.ID != u.ID):
			if err := v.Login(ctx, *u); err != nil {
				v.log.Error().Err(err).Str("user_id", u.ID).Msg("login load failed")
			}
		case u == nil && current != nil:
			v.Logout(ctx)
		}
	})
}

// Flush writes any pending remote change now.
func (v *Vault) Flush(ctx context.Context) error {
	return v.sync.Flush(ctx)
}

// Close flushes pending changes on a best-effort basis and stops the
// orchestrator.
func (v *Vault) Close(ctx context.Context) {
	if err := v.sync.Flush(ctx); err != nil {
		v.log.Warn().Err(err).Msg("final flush failed")
	}
	v.sync.Close()
}

// ReconcileSubscriptions runs one billing pass against today and persists
// the collection when anything changed.
func (v *Vault) ReconcileSubscriptions() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reconcileLocked()
}

func (v *Vault) reconcileLocked() bool {
	subs, changed := billing.Reconcile(v.subscriptions, v.Today())
	if !changed {
		return false
	}
	v.subscriptions = subs
	v.log.Info().Int("subscriptions", len(subs)).Msg("subscription billing dates updated")
	v.persistLocked()
	return true
}

func (v *Vault) hydrateLocked(s domain.Snapshot) {
	s = s.Clone()
	v.book = ledger.Book{Accounts: s.Accounts, Transactions: s.Transactions}
	v.subscriptions = s.Subscriptions
	v.budgets = s.Budgets
	v.categories = s.Categories
	if v.categories == nil {
		v.categories = domain.DefaultCategories()
	}
	v.settings = s.Settings
	if v.settings.Currency == "" {
		v.settings.Currency = domain.DefaultCurrencyCode
	}
	if v.settings.Theme == "" {
		v.settings.Theme = domain.ThemeDark
	}
}

func (v *Vault) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Transactions:  v.book.Transactions,
		Accounts:      v.book.Accounts,
		Subscriptions: v.subscriptions,
		Budgets:       v.budgets,
		Categories:    v.categories,
		Settings:      v.settings,
	}.Clone()
}

// persistLocked hands the current state to the orchestrator. The
// orchestrator's status subscribers run on this goroutine and must not
// call back into the vault's mutating methods.
func (v *Vault) persistLocked() {
	v.sync.Persist(v.snapshotLocked())
}

func (v *Vault) id(given string) string {
	if given != "" {
		return given
	}
	return v.newID()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
