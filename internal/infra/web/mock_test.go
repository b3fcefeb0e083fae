//go:build !integration

package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
	"hotspot-portal/internal/infra/adapters/billing"
	"hotspot-portal/internal/infra/adapters/router"
	"hotspot-portal/internal/infra/i18n"
	"hotspot-portal/internal/infra/worker"
	"hotspot-portal/internal/usecase"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

type memSessionStore struct {
	mu    sync.Mutex
	store map[string]*model.Session
	err   error // returned by every call when set
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{store: make(map[string]*model.Session)}
}

func (m *memSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionStore) Save(ctx context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *memSessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

func (m *memSessionStore) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// only returns the single stored session; tests use one browser at a time.
func (m *memSessionStore) only(t *testing.T) *model.Session {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.store) != 1 {
		t.Fatalf("expected one stored session, got %d", len(m.store))
	}
	for _, s := range m.store {
		return s
	}
	return nil
}

type memWatchStore struct {
	mu    sync.Mutex
	store map[int64]*model.PaymentWatch
}

func (m *memWatchStore) Get(ctx context.Context, id int64) (*model.PaymentWatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWatchStore) Save(ctx context.Context, w *model.PaymentWatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.store[w.RequestID] = &cp
	return nil
}

func (m *memWatchStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

// staleTokenBackend rejects every bearer token on batch listing.
type staleTokenBackend struct {
	*billing.MemoryBackend
}

func (b staleTokenBackend) ListBatches(ctx context.Context, accessToken string) ([]*model.VoucherBatch, error) {
	return nil, &billing.APIError{Status: http.StatusUnauthorized, Message: "Given token not valid for any token type"}
}

type testEnv struct {
	backend  *billing.MemoryBackend
	sessions *memSessionStore
	srv      *httptest.Server
}

// newEnv wires the real use cases over an in-memory backend.
func newEnv(t *testing.T, mem *billing.MemoryBackend) *testEnv {
	return newEnvWith(t, mem, mem)
}

func newEnvWith(t *testing.T, mem *billing.MemoryBackend, backend adapter.BillingBackend) *testEnv {
	t.Helper()
	log := newTestLogger()
	sessions := newMemSessionStore()
	bridge := router.NewBridge("", "", false)

	ctx, cancel := context.WithCancel(context.Background())
	pool := worker.NewPool(2, log)
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})

	sessUC := usecase.NewSessionUseCase(sessions, backend, nil, log)
	payUC := usecase.NewPaymentUseCase(backend, nil, log, true)
	portalUC := usecase.NewPortalUseCase(backend, sessions, bridge, payUC, nil, log)
	voucherUC := usecase.NewVoucherUseCase(backend, sessions, bridge, nil, nil, portalUC, usecase.RedeemLimit{}, nil, log, true)
	tracker := usecase.NewPaymentTracker(backend, usecase.TrackerConfig{Interval: 5 * time.Millisecond, MaxAttempts: 400}, log)
	watcher := usecase.NewPaymentWatcher(tracker, &memWatchStore{store: map[int64]*model.PaymentWatch{}}, pool, nil, log)

	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	s, err := NewServer(Deps{
		Sessions: sessUC,
		Portal:   portalUC,
		Vouchers: voucherUC,
		Payments: payUC,
		Watcher:  watcher,
		Batches:  usecase.NewBatchUseCase(backend, log),
		Activity: usecase.NewActivityUseCase(nil),
	}, NewAuthManager("test-session-secret", false, "", time.Hour), tr, Options{}, log)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &testEnv{backend: mem, sessions: sessions, srv: srv}
}

// browser is a cookie-keeping client that does not follow redirects.
func (e *testEnv) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) get(t *testing.T, c *http.Client, path string, headers ...string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return do(t, c, req)
}

func (e *testEnv) post(t *testing.T, c *http.Client, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(t, c, req)
}

func do(t *testing.T, c *http.Client, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}
