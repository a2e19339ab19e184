// Package auth defines the sign-in collaborator the vault listens to.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrInvalidUser is returned when login is attempted without a user id.
var ErrInvalidUser = errors.New("invalid user")

// User is a signed-in identity.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Provider emits the current user, or nil, whenever it changes.
type Provider interface {
	// Current returns the signed-in user or nil.
	Current() *User
	// Subscribe registers fn and returns a function removing it. fn is
	// called once with the current state and then on every change.
	Subscribe(fn func(*User)) (unsubscribe func())
	Login(ctx context.Context, u User) error
	Logout(ctx context.Context) error
}

// Session is an in-process Provider for CLIs, servers acting on behalf of a
// configured user, and tests.
type Session struct {
	mu      sync.Mutex
	user    *User
	nextSub int
	subs    map[int]func(*User)
}

// NewSession returns a signed-out session.
func NewSession() *Session {
	return &Session{subs: make(map[int]func(*User))}
}

// Current implements Provider.
func (s *Session) Current() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.user)
}

// Subscribe implements Provider.
func (s *Session) Subscribe(fn func(*User)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	current := copyUser(s.user)
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Login implements Provider.
func (s *Session) Login(ctx context.Context, u User) error {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return ErrInvalidUser
	}
	s.emit(&u)
	return nil
}

// Logout implements Provider. Logging out while signed out is a no-op.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	signedIn := s.user != nil
	s.mu.Unlock()
	if signedIn {
		s.emit(nil)
	}
	return nil
}

func (s *Session) emit(u *User) {
	s.mu.Lock()
	s.user = copyUser(u)
	subs := make([]func(*User), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(copyUser(u))
	}
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

var _ Provider = (*Session)(nil)
