package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/vault/internal/jobs"
	"github.com/rs/zerolog"
)

type mockPublisher struct {
	mu        sync.Mutex
	published []jobs.JobType
}

func (m *mockPublisher) Publish(ctx context.Context, job *jobs.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, job.Type)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

func TestReconcileLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pub := &mockPublisher{}

	done := make(chan struct{})
	go func() {
		reconcileLoop(ctx, pub, 10*time.Millisecond, zerolog.Nop())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconcileLoop did not stop after cancel")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.published) < 2 {
		t.Fatalf("published %d jobs, want at least 2", len(pub.published))
	}
	for _, typ := range pub.published {
		if typ != jobs.JobTypeReconcile {
			t.Errorf("published %s, want %s", typ, jobs.JobTypeReconcile)
		}
	}
}

func TestReconcileLoop_DisabledInterval(t *testing.T) {
	pub := &mockPublisher{}
	reconcileLoop(context.Background(), pub, 0, zerolog.Nop())
	if pub.count() != 0 {
		t.Errorf("published %d jobs with a zero interval", pub.count())
	}
}
