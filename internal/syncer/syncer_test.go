package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/logger"
	"github.com/dvloznov/vault/internal/storage"
	"github.com/shopspring/decimal"
)

// Mock for LocalStore interface.
type mockLocal struct {
	mu       sync.Mutex
	saved    []domain.Snapshot
	loadFunc func() (domain.Snapshot, bool, error)
	saveErr  error
	resets   int
}

func (m *mockLocal) Load() (domain.Snapshot, bool, error) {
	if m.loadFunc != nil {
		return m.loadFunc()
	}
	return domain.EmptySnapshot(), false, nil
}

func (m *mockLocal) Save(s domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, s)
	return nil
}

func (m *mockLocal) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	return nil
}

func (m *mockLocal) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

// Mock for RemoteStore interface.
type mockRemote struct {
	mu       sync.Mutex
	loadFunc func(ctx context.Context, userID string) (domain.Snapshot, error)
	saveErr  error
	saved    []domain.Snapshot
	savedCh  chan domain.Snapshot
}

func newMockRemote() *mockRemote {
	return &mockRemote{savedCh: make(chan domain.Snapshot, 10)}
}

func (m *mockRemote) Load(ctx context.Context, userID string) (domain.Snapshot, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, userID)
	}
	return domain.Snapshot{}, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
}

func (m *mockRemote) Save(ctx context.Context, userID string, s domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, s)
	m.savedCh <- s
	return nil
}

func (m *mockRemote) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func snapshotWithAccount(balance int64) domain.Snapshot {
	s := domain.EmptySnapshot()
	s.Accounts = []domain.Account{{ID: "a1", Name: "Main", Balance: decimal.NewFromInt(balance), Currency: "USD"}}
	return s
}

func TestPersist_UnauthenticatedWritesLocally(t *testing.T) {
	local := &mockLocal{}
	remote := newMockRemote()
	o := New(local, remote, logger.Nop())
	defer o.Close()

	o.Persist(snapshotWithAccount(1))
	o.Persist(snapshotWithAccount(2))

	if local.saveCount() != 2 {
		t.Errorf("local saves = %d, want 2 immediate writes", local.saveCount())
	}
	if remote.saveCount() != 0 {
		t.Errorf("remote saves = %d, want 0", remote.saveCount())
	}
	if o.Status().Status != StatusSuccess {
		t.Errorf("status = %s, want success", o.Status().Status)
	}
}

func TestPersist_LocalFailureReportsStatus(t *testing.T) {
	boom := errors.New("disk full")
	o := New(&mockLocal{saveErr: boom}, nil, logger.Nop())
	defer o.Close()

	var events []Event
	unsubscribe := o.Subscribe(func(e Event) { events = append(events, e) })
	defer unsubscribe()

	o.Persist(snapshotWithAccount(1))

	if len(events) != 1 || events[0].Status != StatusError || !errors.Is(events[0].Err, boom) {
		t.Errorf("events = %+v", events)
	}
}

func TestPersist_AuthenticatingDoesNoIO(t *testing.T) {
	local := &mockLocal{}
	remote := newMockRemote()
	o := New(local, remote, logger.Nop(), WithDebounce(5*time.Millisecond))
	defer o.Close()

	o.BeginAuth()
	o.Persist(snapshotWithAccount(1))
	time.Sleep(30 * time.Millisecond)

	if local.saveCount() != 0 || remote.saveCount() != 0 {
		t.Errorf("saves during auth: local %d, remote %d", local.saveCount(), remote.saveCount())
	}
}

func TestCompleteAuth_RemoteWins(t *testing.T) {
	remote := newMockRemote()
	remote.loadFunc = func(ctx context.Context, userID string) (domain.Snapshot, error) {
		return snapshotWithAccount(500), nil
	}
	o := New(&mockLocal{}, remote, logger.Nop())
	defer o.Close()

	o.BeginAuth()
	got, err := o.CompleteAuth(context.Background(), "u1", snapshotWithAccount(1))
	if err != nil {
		t.Fatalf("CompleteAuth() error = %v", err)
	}

	if !got.Accounts[0].Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("balance = %s, want remote 500", got.Accounts[0].Balance)
	}
	if remote.saveCount() != 0 {
		t.Error("existing remote data must not be overwritten on login")
	}
	if o.Phase() != PhaseAuthenticated || o.UserID() != "u1" {
		t.Errorf("phase = %s, user = %q", o.Phase(), o.UserID())
	}
}

func TestCompleteAuth_SeedsRemoteFromMemory(t *testing.T) {
	remote := newMockRemote()
	o := New(&mockLocal{}, remote, logger.Nop())
	defer o.Close()

	current := snapshotWithAccount(42)
	got, err := o.CompleteAuth(context.Background(), "u1", current)
	if err != nil {
		t.Fatalf("CompleteAuth() error = %v", err)
	}

	if remote.saveCount() != 1 {
		t.Fatalf("remote saves = %d, want immediate seed", remote.saveCount())
	}
	if !got.Accounts[0].Balance.Equal(decimal.NewFromInt(42)) {
		t.Errorf("returned snapshot should be the seeded data")
	}
	if o.Status().Status != StatusSuccess {
		t.Errorf("status = %s, want success", o.Status().Status)
	}
}

func TestCompleteAuth_SeedsRemoteFromLocalStore(t *testing.T) {
	remote := newMockRemote()
	local := &mockLocal{loadFunc: func() (domain.Snapshot, bool, error) {
		return snapshotWithAccount(7), true, nil
	}}
	o := New(local, remote, logger.Nop())
	defer o.Close()

	got, err := o.CompleteAuth(context.Background(), "u1", domain.EmptySnapshot())
	if err != nil {
		t.Fatalf("CompleteAuth() error = %v", err)
	}
	if remote.saveCount() != 1 || len(got.Accounts) != 1 {
		t.Errorf("remote saves = %d, accounts = %d", remote.saveCount(), len(got.Accounts))
	}
}

func TestCompleteAuth_NewUserWithoutData(t *testing.T) {
	remote := newMockRemote()
	o := New(&mockLocal{}, remote, logger.Nop())
	defer o.Close()

	got, err := o.CompleteAuth(context.Background(), "u1", domain.EmptySnapshot())
	if err != nil {
		t.Fatalf("CompleteAuth() error = %v", err)
	}
	if remote.saveCount() != 0 || got.HasData() {
		t.Errorf("nothing should be seeded, saves = %d", remote.saveCount())
	}
}

func TestCompleteAuth_ReadFailureWithholdsWrites(t *testing.T) {
	boom := errors.New("unavailable")
	remote := newMockRemote()
	remote.loadFunc = func(ctx context.Context, userID string) (domain.Snapshot, error) {
		return domain.Snapshot{}, boom
	}
	local := &mockLocal{}
	o := New(local, remote, logger.Nop(), WithDebounce(5*time.Millisecond))
	defer o.Close()

	current := snapshotWithAccount(3)
	got, err := o.CompleteAuth(context.Background(), "u1", current)
	if !errors.Is(err, boom) {
		t.Fatalf("CompleteAuth() error = %v, want %v", err, boom)
	}
	if !got.Accounts[0].Balance.Equal(decimal.NewFromInt(3)) {
		t.Error("in-memory state should be kept on failure")
	}
	if o.Status().Status != StatusError {
		t.Errorf("status = %s, want error", o.Status().Status)
	}

	o.Persist(snapshotWithAccount(4))
	time.Sleep(40 * time.Millisecond)
	if remote.saveCount() != 0 || local.saveCount() != 0 {
		t.Errorf("writes should be withheld: remote %d, local %d", remote.saveCount(), local.saveCount())
	}

	// A later successful login re-enables writes.
	remote.loadFunc = func(ctx context.Context, userID string) (domain.Snapshot, error) {
		return snapshotWithAccount(9), nil
	}
	if _, err := o.CompleteAuth(context.Background(), "u1", current); err != nil {
		t.Fatalf("second CompleteAuth() error = %v", err)
	}
	o.Persist(snapshotWithAccount(10))
	select {
	case s := <-remote.savedCh:
		if !s.Accounts[0].Balance.Equal(decimal.NewFromInt(10)) {
			t.Errorf("saved balance = %s", s.Accounts[0].Balance)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("remote write not re-enabled")
	}
}

func TestPersist_AuthenticatedDebounces(t *testing.T) {
	remote := newMockRemote()
	remote.loadFunc = func(ctx context.Context, userID string) (domain.Snapshot, error) {
		return domain.EmptySnapshot(), nil
	}
	local := &mockLocal{}
	o := New(local, remote, logger.Nop(), WithDebounce(20*time.Millisecond))
	defer o.Close()

	if _, err := o.CompleteAuth(context.Background(), "u1", domain.EmptySnapshot()); err != nil {
		t.Fatalf("CompleteAuth() error = %v", err)
	}

	var (
		mu       sync.Mutex
		statuses []Status
	)
	o.Subscribe(func(e Event) {
		mu.Lock()
		statuses = append(statuses, e.Status)
		mu.Unlock()
	})

	for i := int64(1); i <= 4; i++ {
		o.Persist(snapshotWithAccount(i))
	}

	select {
	case s := <-remote.savedCh:
		if !s.Accounts[0].Balance.Equal(decimal.NewFromInt(4)) {
			t.Errorf("saved balance = %s, want the last change", s.Accounts[0].Balance)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debounced write did not happen")
	}
	time.Sleep(50 * time.Millisecond)

	if remote.saveCount() != 1 {
		t.Errorf("remote saves = %d, want 1", remote.saveCount())
	}
	if local.saveCount() != 0 {
		t.Errorf("local saves = %d, want 0 while signed in", local.saveCount())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) != 2 || statuses[0] != StatusSaving || statuses[1] != StatusSuccess {
		t.Errorf("statuses = %v, want [saving success]", statuses)
	}
}

func TestPersist_RemoteFailureReportsError(t *testing.T) {
	remote := newMockRemote()
	remote.loadFunc = func(ctx context.Context, userID string) (domain.Snapshot, error) {
		return domain.EmptySnapshot(), nil
	}
	remote.saveErr = errors.New("quota exceeded")
	o := New(&mockLocal{}, remote, logger.Nop(), WithDebounce(time.Hour))
	defer o.Close()

	if _, err := o.CompleteAuth(context.Background(), "u1", domain.EmptySnapshot()); err != nil {
		t.Fatalf("CompleteAuth() error = %v", err)
	}
	o.Persist(snapshotWithAccount(1))

	if err := o.Flush(context.Background()); err == nil {
		t.Fatal("Flush() should surface the write error")
	}
	if o.Status().Status != StatusError {
		t.Errorf("status = %s, want error", o.Status().Status)
	}
}

func TestLogout_FlushesAndReturnsToLocal(t *testing.T) {
	remote := newMockRemote()
	remote.loadFunc = func(ctx context.Context, userID string) (domain.Snapshot, error) {
		return domain.EmptySnapshot(), nil
	}
	local := &mockLocal{}
	o := New(local, remote, logger.Nop(), WithDebounce(time.Hour))
	defer o.Close()

	if _, err := o.CompleteAuth(context.Background(), "u1", domain.EmptySnapshot()); err != nil {
		t.Fatalf("CompleteAuth() error = %v", err)
	}
	o.Persist(snapshotWithAccount(1))

	o.Logout(context.Background())

	if remote.saveCount() != 1 {
		t.Errorf("pending write should be flushed on logout, saves = %d", remote.saveCount())
	}
	if o.Phase() != PhaseUnauthenticated || o.UserID() != "" {
		t.Errorf("phase = %s, user = %q", o.Phase(), o.UserID())
	}
	if local.saveCount() != 0 {
		t.Error("logout must not persist anything locally")
	}
	if o.Status().Status != StatusIdle {
		t.Errorf("status = %s, want idle", o.Status().Status)
	}
}

func TestClose_CancelsPendingWrite(t *testing.T) {
	remote := newMockRemote()
	remote.loadFunc = func(ctx context.Context, userID string) (domain.Snapshot, error) {
		return domain.EmptySnapshot(), nil
	}
	o := New(&mockLocal{}, remote, logger.Nop(), WithDebounce(20*time.Millisecond))

	if _, err := o.CompleteAuth(context.Background(), "u1", domain.EmptySnapshot()); err != nil {
		t.Fatalf("CompleteAuth() error = %v", err)
	}
	o.Persist(snapshotWithAccount(1))
	o.Close()

	time.Sleep(60 * time.Millisecond)
	if remote.saveCount() != 0 {
		t.Errorf("remote saves = %d, want 0 after Close", remote.saveCount())
	}
}
