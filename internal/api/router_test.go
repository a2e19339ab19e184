package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/vault/internal/auth"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/dvloznov/vault/internal/jobs"
	"github.com/dvloznov/vault/internal/jobs/inmemory"
	"github.com/dvloznov/vault/internal/rates"
	"github.com/dvloznov/vault/internal/storage"
	"github.com/dvloznov/vault/internal/storage/memory"
	"github.com/dvloznov/vault/internal/syncer"
	"github.com/dvloznov/vault/internal/vault"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var now = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

func newServer(t *testing.T, token string) (*httptest.Server, *vault.Vault) {
	t.Helper()
	log := zerolog.Nop()
	orch := syncer.New(storage.NewLocalAdapter(memory.NewKV(), log), nil, log)
	v := vault.New(orch, log, vault.WithClock(func() time.Time { return now }))
	if err := v.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	provider := rates.Static{Table: rates.Table{Base: "USD", Rates: map[string]decimal.Decimal{
		"EUR": decimal.RequireFromString("0.5"),
	}}}
	srv := httptest.NewServer(NewRouter(v, provider, log, Options{Token: token, Now: func() time.Time { return now }}))
	t.Cleanup(func() {
		srv.Close()
		orch.Close()
	})
	return srv, v
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestRouter_TransferFlow(t *testing.T) {
	srv, v := newServer(t, "")

	var a, b domain.Account
	if code := do(t, srv, http.MethodPost, "/api/accounts", map[string]any{"name": "A", "balance": "100"}, &a); code != http.StatusCreated {
		t.Fatalf("create A status = %d", code)
	}
	if code := do(t, srv, http.MethodPost, "/api/accounts", map[string]any{"name": "B", "balance": 50}, &b); code != http.StatusCreated {
		t.Fatalf("create B status = %d", code)
	}

	var transfer struct {
		LinkedID string             `json:"linkedId"`
		Out      domain.Transaction `json:"out"`
		In       domain.Transaction `json:"in"`
	}
	code := do(t, srv, http.MethodPost, "/api/transfers", map[string]any{
		"fromAccountId": a.ID, "toAccountId": b.ID, "amount": "30",
	}, &transfer)
	if code != http.StatusCreated {
		t.Fatalf("transfer status = %d", code)
	}
	if transfer.Out.ID != transfer.LinkedID+"-out" || transfer.In.ID != transfer.LinkedID+"-in" {
		t.Errorf("leg ids = %s/%s for %s", transfer.Out.ID, transfer.In.ID, transfer.LinkedID)
	}

	got, _ := v.Account(a.ID)
	if !got.Balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("A = %s, want 70", got.Balance)
	}

	if code := do(t, srv, http.MethodDelete, "/api/transactions/"+transfer.In.ID, nil, nil); code != http.StatusOK {
		t.Fatalf("delete status = %d", code)
	}
	got, _ = v.Account(b.ID)
	if !got.Balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("B = %s, want 50", got.Balance)
	}
	if code := do(t, srv, http.MethodDelete, "/api/transactions/"+transfer.Out.ID, nil, nil); code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", code)
	}
}

func TestRouter_ValidationErrors(t *testing.T) {
	srv, v := newServer(t, "")
	a, err := v.AddAccount(domain.Account{Name: "A"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "same account transfer", method: http.MethodPost, path: "/api/transfers", body: map[string]any{"fromAccountId": a.ID, "toAccountId": a.ID, "amount": "5"}, want: http.StatusBadRequest},
		{name: "unknown account transfer", method: http.MethodPost, path: "/api/transfers", body: map[string]any{"fromAccountId": a.ID, "toAccountId": "ghost", "amount": "5"}, want: http.StatusNotFound},
		{name: "zero amount transaction", method: http.MethodPost, path: "/api/transactions", body: map[string]any{"accountId": a.ID, "amount": "0", "type": "expense"}, want: http.StatusBadRequest},
		{name: "unknown transaction update", method: http.MethodPut, path: "/api/transactions/nope", body: map[string]any{"amount": "1"}, want: http.StatusNotFound},
		{name: "bad theme", method: http.MethodPut, path: "/api/settings", body: map[string]any{"theme": "neon"}, want: http.StatusBadRequest},
		{name: "bad trend months", method: http.MethodGet, path: "/api/reports/trend?months=zero", want: http.StatusBadRequest},
		{name: "bad date", method: http.MethodGet, path: "/api/transactions/?start_date=yesterday", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := do(t, srv, tt.method, tt.path, tt.body, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestRouter_Reports(t *testing.T) {
	srv, v := newServer(t, "")
	usd, _ := v.AddAccount(domain.Account{Name: "USD", Balance: decimal.NewFromInt(100), Currency: "USD"})
	eur, _ := v.AddAccount(domain.Account{Name: "EUR", Balance: decimal.NewFromInt(50), Currency: "EUR"})
	for _, tx := range []domain.Transaction{
		{Amount: decimal.NewFromInt(10), Type: domain.Expense, AccountID: usd.ID, Category: "Food"},
		{Amount: decimal.NewFromInt(10), Type: domain.Expense, AccountID: eur.ID, Category: "Food"},
	} {
		if _, err := v.AddTransaction(tx); err != nil {
			t.Fatal(err)
		}
	}

	var summary struct {
		Month   string          `json:"month"`
		Expense decimal.Decimal `json:"expense"`
	}
	if code := do(t, srv, http.MethodGet, "/api/reports/summary?month=2024-06", nil, &summary); code != http.StatusOK {
		t.Fatalf("summary status = %d", code)
	}
	if summary.Month != "2024-06" || !summary.Expense.Equal(decimal.NewFromInt(30)) {
		t.Errorf("summary = %+v, want 2024-06 with 30 spent", summary)
	}

	var worth struct {
		NetWorth decimal.Decimal `json:"netWorth"`
	}
	do(t, srv, http.MethodGet, "/api/reports/networth", nil, &worth)
	if !worth.NetWorth.Equal(decimal.NewFromInt(170)) {
		t.Errorf("net worth = %s, want 90 + 80", worth.NetWorth)
	}
}

func TestRouter_ExportImport(t *testing.T) {
	srv, v := newServer(t, "")
	if _, err := v.AddAccount(domain.Account{Name: "A"}); err != nil {
		t.Fatal(err)
	}

	resp, err := srv.Client().Get(srv.URL + "/api/export")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "vault-backup-2024-06-15.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	var backup bytes.Buffer
	if _, err := backup.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}

	v.DeleteAccount(v.Accounts()[0].ID)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/import", &backup)
	importResp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	importResp.Body.Close()
	if importResp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d", importResp.StatusCode)
	}
	if n := len(v.Accounts()); n != 1 {
		t.Errorf("accounts after import = %d, want 1", n)
	}
}

func TestRouter_Auth(t *testing.T) {
	srv, _ := newServer(t, "secret")

	if code := do(t, srv, http.MethodGet, "/api/accounts", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", code)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/accounts", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authorised status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	if code := do(t, srv, http.MethodGet, "/health", nil, nil); code != http.StatusOK {
		t.Errorf("health status = %d", code)
	}
}

func TestRouter_Session(t *testing.T) {
	log := zerolog.Nop()
	docs := memory.NewDocumentStore()
	orch := syncer.New(
		storage.NewLocalAdapter(memory.NewKV(), log),
		storage.NewRemoteAdapter(docs, log),
		log,
		syncer.WithDebounce(time.Hour),
	)
	v := vault.New(orch, log, vault.WithClock(func() time.Time { return now }))
	if err := v.Load(); err != nil {
		t.Fatal(err)
	}
	session := auth.NewSession()
	unbind := v.Bind(context.Background(), session)
	srv := httptest.NewServer(NewRouter(v, rates.Static{}, log, Options{Session: session, Now: func() time.Time { return now }}))
	t.Cleanup(func() {
		srv.Close()
		unbind()
		orch.Close()
	})

	if _, err := v.AddAccount(domain.Account{Name: "Local"}); err != nil {
		t.Fatal(err)
	}

	if code := do(t, srv, http.MethodPost, "/api/session", map[string]any{"id": " "}, nil); code != http.StatusBadRequest {
		t.Errorf("blank id status = %d, want 400", code)
	}

	var state struct {
		User   *auth.User `json:"user"`
		Status string     `json:"status"`
	}
	if code := do(t, srv, http.MethodPost, "/api/session", map[string]any{"id": "u1", "email": "u1@example.com"}, &state); code != http.StatusOK {
		t.Fatalf("login status = %d", code)
	}
	if state.User == nil || state.User.ID != "u1" {
		t.Fatalf("session user = %+v", state.User)
	}
	if docs.WriteCount() != 1 {
		t.Errorf("remote writes = %d, want the local vault seeded once", docs.WriteCount())
	}
	if n := len(v.Accounts()); n != 1 {
		t.Errorf("accounts after login = %d, want 1", n)
	}

	if code := do(t, srv, http.MethodDelete, "/api/session", nil, nil); code != http.StatusNoContent {
		t.Fatalf("logout status = %d", code)
	}
	if v.User() != nil || len(v.Accounts()) != 0 {
		t.Errorf("vault not cleared after logout: user=%v accounts=%d", v.User(), len(v.Accounts()))
	}
}

func TestRouter_Jobs(t *testing.T) {
	log := zerolog.Nop()
	orch := syncer.New(storage.NewLocalAdapter(memory.NewKV(), log), nil, log)
	v := vault.New(orch, log, vault.WithClock(func() time.Time { return now }))
	if err := v.Load(); err != nil {
		t.Fatal(err)
	}

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(10, store)
	tasks := jobs.Tasks{jobs.JobTypeReconcile: func(context.Context) error {
		v.ReconcileSubscriptions()
		return nil
	}}
	if err := queue.Start(context.Background(), tasks.Handler()); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(NewRouter(v, rates.Static{}, log, Options{
		Jobs: &JobsOptions{Publisher: queue, Store: store, Tasks: tasks},
		Now:  func() time.Time { return now },
	}))
	t.Cleanup(func() {
		srv.Close()
		_ = queue.Close()
		orch.Close()
	})

	var job jobs.Job
	if code := do(t, srv, http.MethodPost, "/api/jobs", map[string]any{"type": "reconcile_subscriptions"}, &job); code != http.StatusAccepted {
		t.Fatalf("enqueue status = %d", code)
	}
	if job.ID == "" || job.Type != jobs.JobTypeReconcile {
		t.Fatalf("enqueued job = %+v", job)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		var got jobs.Job
		if code := do(t, srv, http.MethodGet, "/api/jobs/"+job.ID, nil, &got); code != http.StatusOK {
			t.Fatalf("get status = %d", code)
		}
		if got.Status == jobs.JobStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in %s", got.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}

	for _, body := range []map[string]any{{"type": "send_reminder"}, {"type": "defragment"}} {
		if code := do(t, srv, http.MethodPost, "/api/jobs", body, nil); code != http.StatusBadRequest {
			t.Errorf("enqueue %v status = %d, want 400", body, code)
		}
	}
	if code := do(t, srv, http.MethodGet, "/api/jobs/missing", nil, nil); code != http.StatusNotFound {
		t.Errorf("missing job status = %d, want 404", code)
	}

	var list []jobs.Job
	if code := do(t, srv, http.MethodGet, "/api/jobs?type=reconcile_subscriptions", nil, &list); code != http.StatusOK || len(list) != 1 {
		t.Errorf("list status = %d, jobs = %d", code, len(list))
	}
}
