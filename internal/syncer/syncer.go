// Package syncer decides where vault snapshots are written. Without a user
// the local store is authoritative and every change is written at once.
// With a user the remote document is authoritative and changes are merged
// into it after a short quiet period.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/storage"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period before a remote write.
const DefaultDebounce = time.Second

// Status is the coarse sync indicator shown to the user.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSaving  Status = "saving"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Phase is the orchestrator's position in the auth lifecycle.
type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseAuthenticated   Phase = "authenticated"
)

// Event is published on every status change.
type Event struct {
	Status Status
	Err    error
	At     time.Time
}

// LocalStore is the synchronous snapshot store used without a user.
type LocalStore interface {
	Load() (domain.Snapshot, bool, error)
	Save(domain.Snapshot) error
	Reset() error
}

// RemoteStore is the per-user snapshot store used with a user.
type RemoteStore interface {
	// Load returns an error wrapping storage.ErrNotFound for new users.
	Load(ctx context.Context, userID string) (domain.Snapshot, error)
	Save(ctx context.Context, userID string, s domain.Snapshot) error
}

// Orchestrator routes snapshots to the local or remote store.
type Orchestrator struct {
	local     LocalStore
	remote    RemoteStore
	debouncer *Debouncer
	log       zerolog.Logger
	now       func() time.Time

	mu          sync.Mutex
	phase       Phase
	userID      string
	remoteReady bool
	status      Event
	nextSub     int
	subs        map[int]func(Event)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.debouncer = NewDebouncer(d, o.onResult)
	}
}

// WithClock overrides time.Now for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator. remote may be nil, in which case the vault
// stays local even for signed-in users.
func New(local LocalStore, remote RemoteStore, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		local:  local,
		remote: remote,
		log:    log,
		now:    time.Now,
		phase:  PhaseUnauthenticated,
		subs:   make(map[int]func(Event)),
	}
	o.debouncer = NewDebouncer(DefaultDebounce, o.onResult)
	for _, opt := range opts {
		opt(o)
	}
	o.status = Event{Status: StatusIdle, At: o.now()}
	return o
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// UserID returns the signed-in user, if any.
func (o *Orchestrator) UserID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.userID
}

// Status returns the latest status event.
func (o *Orchestrator) Status() Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Subscribe registers fn for status events and returns a function that
// removes it. fn is called synchronously and must not call back into the
// orchestrator.
func (o *Orchestrator) Subscribe(fn func(Event)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// LoadLocal reads the local snapshot. hasData reports whether it holds any
// user records.
func (o *Orchestrator) LoadLocal() (snap domain.Snapshot, hasData bool, err error) {
	snap, hasData, err = o.local.Load()
	if err != nil {
		o.setStatus(StatusError, err)
		return domain.EmptySnapshot(), false, fmt.Errorf("LoadLocal: %w", err)
	}
	return snap, hasData, nil
}

// BeginAuth enters the authenticating phase. No I/O happens until
// CompleteAuth or Logout.
func (o *Orchestrator) BeginAuth() {
	o.mu.Lock()
	o.phase = PhaseAuthenticating
	o.mu.Unlock()
	o.log.Debug().Msg("authenticating")
}

// CompleteAuth performs the first authenticated load for userID and returns
// the snapshot the vault should adopt.
//
// An existing remote document wins. When there is none and current, or
// failing that the local store, holds data, that data seeds the remote
// document at once. When the remote read fails, current is returned along
// with the error and remote writes stay withheld until a later successful
// login, so a transient outage cannot overwrite remote data.
func (o *Orchestrator) CompleteAuth(ctx context.Context, userID string, current domain.Snapshot) (domain.Snapshot, error) {
	log := o.log.With().Str("user_id", userID).Logger()

	o.mu.Lock()
	o.phase = PhaseAuthenticated
	o.userID = userID
	o.remoteReady = false
	o.mu.Unlock()

	if o.remote == nil {
		log.Info().Msg("no remote store configured, staying local")
		return current, nil
	}

	remote, err := o.remote.Load(ctx, userID)
	switch {
	case err == nil:
		o.setRemoteReady(true)
		log.Info().Int("transactions", len(remote.Transactions)).Msg("loaded remote vault")
		return remote, nil

	case errors.Is(err, storage.ErrNotFound):
		o.setRemoteReady(true)
		seed := current
		if !seed.HasData() {
			if local, hasData, lerr := o.local.Load(); lerr == nil && hasData {
				seed = local
			} else if lerr != nil {
				log.Warn().Err(lerr).Msg("reading local data for migration")
			}
		}
		if !seed.HasData() {
			log.Info().Msg("new user with no local data")
			return seed, nil
		}

		log.Info().
			Int("transactions", len(seed.Transactions)).
			Int("accounts", len(seed.Accounts)).
			Msg("migrating local vault to remote")
		o.setStatus(StatusSaving, nil)
		if err := o.remote.Save(ctx, userID, seed.Clone()); err != nil {
			log.Error().Err(err).Msg("seeding remote vault")
			o.setStatus(StatusError, err)
			return seed, nil
		}
		o.setStatus(StatusSuccess, nil)
		return seed, nil

	default:
		log.Error().Err(err).Msg("loading remote vault, remote writes withheld")
		o.setStatus(StatusError, err)
		return current, fmt.Errorf("CompleteAuth: %w", err)
	}
}

// Persist hands a snapshot to the authoritative store. Errors are reported
// through the status signal and the log, never returned.
func (o *Orchestrator) Persist(snap domain.Snapshot) {
	o.mu.Lock()
	phase, userID, remoteReady := o.phase, o.userID, o.remoteReady
	o.mu.Unlock()

	switch phase {
	case PhaseAuthenticating:
		return

	case PhaseAuthenticated:
		if o.remote == nil {
			o.saveLocal(snap)
			return
		}
		if !remoteReady {
			o.log.Debug().Str("user_id", userID).Msg("remote writes withheld, change kept in memory")
			return
		}
		snap = snap.Clone()
		o.debouncer.Schedule(func(ctx context.Context) error {
			o.setStatus(StatusSaving, nil)
			return o.remote.Save(ctx, userID, snap)
		})

	default:
		o.saveLocal(snap)
	}
}

// Flush runs any pending remote write now.
func (o *Orchestrator) Flush(ctx context.Context) error {
	res, ok := o.debouncer.Flush(ctx)
	if !ok {
		return nil
	}
	return res.Err
}

// Logout flushes pending writes on a best-effort basis and returns to the
// unauthenticated phase. The caller clears its in-memory state without
// persisting it, so the remote document and local store keep their data.
func (o *Orchestrator) Logout(ctx context.Context) {
	if err := o.Flush(ctx); err != nil {
		o.log.Warn().Err(err).Msg("final remote write before logout failed")
	}

	o.mu.Lock()
	userID := o.userID
	o.phase = PhaseUnauthenticated
	o.userID = ""
	o.remoteReady = false
	o.mu.Unlock()

	o.setStatus(StatusIdle, nil)
	o.log.Info().Str("user_id", userID).Msg("logged out")
}

// ResetLocal deletes every local key.
func (o *Orchestrator) ResetLocal() error {
	if err := o.local.Reset(); err != nil {
		return fmt.Errorf("ResetLocal: %w", err)
	}
	return nil
}

// Close cancels any pending write. Call Flush first to keep it.
func (o *Orchestrator) Close() {
	if o.debouncer.Pending() {
		o.log.Warn().Msg("discarding pending remote write")
	}
	o.debouncer.Close()
}

func (o *Orchestrator) saveLocal(snap domain.Snapshot) {
	if err := o.local.Save(snap); err != nil {
		o.log.Error().Err(err).Msg("saving local vault")
		o.setStatus(StatusError, err)
		return
	}
	o.setStatus(StatusSuccess, nil)
}

func (o *Orchestrator) setRemoteReady(ready bool) {
	o.mu.Lock()
	o.remoteReady = ready
	o.mu.Unlock()
}

func (o *Orchestrator) onResult(res Result) {
	if res.Err != nil {
		o.log.Error().Err(res.Err).Uint64("seq", res.Seq).Msg("saving remote vault")
		o.setStatus(StatusError, res.Err)
		return
	}
	o.log.Debug().Uint64("seq", res.Seq).Msg("saved remote vault")
	o.setStatus(StatusSuccess, nil)
}

func (o *Orchestrator) setStatus(s Status, err error) {
	o.mu.Lock()
	ev := Event{Status: s, Err: err, At: o.now()}
	o.status = ev
	subs := make([]func(Event), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
