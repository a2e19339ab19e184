package auth

import (
	"context"
	"errors"
	"testing"
)

func TestSession(t *testing.T) {
	s := NewSession()
	ctx := context.Background()

	var seen []*User
	unsubscribe := s.Subscribe(func(u *User) { seen = append(seen, u) })

	if err := s.Login(ctx, User{ID: " u1 ", Email: "a@example.com"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got := s.Current(); got == nil || got.ID != "u1" {
		t.Fatalf("Current() = %+v", got)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("second Logout() error = %v", err)
	}

	unsubscribe()
	_ = s.Login(ctx, User{ID: "u2"})

	if len(seen) != 3 {
		t.Fatalf("events = %d, want initial nil, login, logout", len(seen))
	}
	if seen[0] != nil || seen[1] == nil || seen[1].ID != "u1" || seen[2] != nil {
		t.Errorf("unexpected event sequence: %v", seen)
	}
}

func TestSession_LoginRequiresID(t *testing.T) {
	s := NewSession()

	if err := s.Login(context.Background(), User{}); !errors.Is(err, ErrInvalidUser) {
		t.Errorf("Login() error = %v, want ErrInvalidUser", err)
	}
	if s.Current() != nil {
		t.Error("failed login must not sign in")
	}
}
