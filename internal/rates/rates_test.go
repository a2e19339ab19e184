package rates

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type mapCache struct {
	data map[string][]byte
}

func (m *mapCache) Get(key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(key string, value []byte) error {
	m.data[key] = value
	return nil
}

func TestTableNormalize(t *testing.T) {
	table := Table{Base: "USD", Rates: map[string]decimal.Decimal{
		"EUR": decimal.RequireFromString("0.5"),
		"BAD": decimal.Zero,
	}}

	tests := []struct {
		name   string
		amount string
		code   string
		want   string
	}{
		{"base currency", "10", "USD", "10"},
		{"lower case base", "10", "usd", "10"},
		{"converted", "10", "EUR", "20"},
		{"missing rate passes through", "10", "GBP", "10"},
		{"zero rate passes through", "10", "BAD", "10"},
		{"no currency", "10", "", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Normalize(decimal.RequireFromString(tt.amount), tt.code)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Normalize(%s, %s) = %s, want %s", tt.amount, tt.code, got, tt.want)
			}
		})
	}
}

func TestStatic(t *testing.T) {
	s := Static{Table: Table{Base: "USD", Rates: map[string]decimal.Decimal{"EUR": decimal.NewFromInt(2)}}}

	got, err := s.Rates(context.Background(), "EUR")
	if err != nil {
		t.Fatalf("Rates() error = %v", err)
	}
	if len(got.Rates) != 0 || got.Base != "EUR" {
		t.Errorf("Rates(EUR) = %+v, want empty table", got)
	}
}

func TestHTTPProvider_FetchAndCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/USD" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"result":"success","rates":{"USD":1,"EUR":0.92,"SGD":1.35}}`)
	}))
	defer srv.Close()

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cache := &mapCache{data: map[string][]byte{}}
	p := NewHTTPProvider(srv.URL, WithCache(cache), WithClock(func() time.Time { return now }))

	table, err := p.Rates(context.Background(), "usd")
	if err != nil {
		t.Fatalf("Rates() error = %v", err)
	}
	if r, _ := table.Rate("EUR"); !r.Equal(decimal.RequireFromString("0.92")) {
		t.Errorf("EUR rate = %s, want 0.92", r)
	}
	if _, ok := cache.data["vault_rates_USD"]; !ok {
		t.Fatal("expected rates to be cached under vault_rates_USD")
	}

	now = now.Add(30 * time.Minute)
	if _, err := p.Rates(context.Background(), "USD"); err != nil {
		t.Fatalf("Rates() error = %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("fresh cache should be used, server hits = %d", hits)
	}

	now = now.Add(time.Hour)
	if _, err := p.Rates(context.Background(), "USD"); err != nil {
		t.Fatalf("Rates() error = %v", err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("stale cache should refetch, server hits = %d", hits)
	}
}

func TestHTTPProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"missing rates", http.StatusOK, `{"result":"error"}`},
		{"malformed", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.payload)
			}))
			defer srv.Close()

			cache := &mapCache{data: map[string][]byte{}}
			p := NewHTTPProvider(srv.URL, WithCache(cache))

			if _, err := p.Rates(context.Background(), "USD"); err == nil {
				t.Fatal("expected error")
			}
			if len(cache.data) != 0 {
				t.Error("failed fetch must not be cached")
			}
		})
	}
}

func TestHTTPProvider_ServesExpiredCacheWhenFetchFails(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"result":"success","rates":{"USD":1,"EUR":0.92}}`)
	}))
	defer srv.Close()

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cache := &mapCache{data: map[string][]byte{}}
	p := NewHTTPProvider(srv.URL, WithCache(cache), WithClock(func() time.Time { return now }))

	if _, err := p.Rates(context.Background(), "USD"); err != nil {
		t.Fatalf("Rates() error = %v", err)
	}

	down.Store(true)
	now = now.Add(2 * time.Hour)
	table, err := p.Rates(context.Background(), "USD")
	if err != nil {
		t.Fatalf("Rates() with expired cache error = %v", err)
	}
	if r, ok := table.Rate("EUR"); !ok || !r.Equal(decimal.RequireFromString("0.92")) {
		t.Errorf("EUR rate = %s, %v", r, ok)
	}
}
