//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/repository"
	"hotspot-portal/internal/infra/adapters/billing"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// --- Session store ---

type memSessionStore struct {
	mu      sync.Mutex
	store   map[string]*model.Session
	saves   int
	saveErr error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{store: make(map[string]*model.Session)}
}

func (m *memSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionStore) Save(ctx context.Context, s *model.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	m.saves++
	return nil
}

func (m *memSessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

// --- Payment watch store ---

type memWatchStore struct {
	mu    sync.Mutex
	store map[int64]*model.PaymentWatch
}

func newMemWatchStore() *memWatchStore {
	return &memWatchStore{store: make(map[int64]*model.PaymentWatch)}
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

// --- Activation log ---

type memActivityRepo struct {
	mu     sync.Mutex
	events []*model.ActivationEvent
}

func (m *memActivityRepo) Save(ctx context.Context, tx repository.Tx, ev *model.ActivationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ev
	m.events = append(m.events, &cp)
	return nil
}

func (m *memActivityRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.ActivationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ActivationEvent, 0, len(m.events))
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *memActivityRepo) DeleteBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var n int64
	for _, ev := range m.events {
		if ev.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	m.events = kept
	return n, nil
}

func (m *memActivityRepo) outcomes(kind model.ActivationKind) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, ev := range m.events {
		if ev.Kind == kind {
			out = append(out, ev.Outcome)
		}
	}
	return out
}

// --- Gateway ports ---

type MockBridge struct {
	PrepareFunc func(params model.PortalParams, username, password string) (*model.RouterLogin, error)
}

func (m *MockBridge) Prepare(params model.PortalParams, username, password string) (*model.RouterLogin, error) {
	if m.PrepareFunc != nil {
		return m.PrepareFunc(params, username, password)
	}
	if params.LinkLogin == "" {
		return nil, domain.ErrNoLoginURL
	}
	return &model.RouterLogin{Action: params.LinkLogin, Username: username, Password: password, Dst: params.LinkOrig}, nil
}

type MockLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	return true, nil
}

type fixedInspector struct{ exp *time.Time }

func (f fixedInspector) Expiry(string) *time.Time { return f.exp }

// goRunner runs each task on its own goroutine.
type goRunner struct {
	wg sync.WaitGroup
}

func (r *goRunner) Submit(task func(ctx context.Context) error) error {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = task(context.Background())
	}()
	return nil
}

// --- Billing backend ---

// MockBackend delegates to an in-memory backend unless a Func override is set.
// It records the bearer token each call carried.
type MockBackend struct {
	*billing.MemoryBackend

	RedeemVoucherFunc   func(ctx context.Context, accessToken, code string) (*model.RedeemResult, error)
	PaymentStatusFunc   func(ctx context.Context, accessToken string, id int64) (model.PaymentStatus, error)
	HotspotStatusFunc   func(ctx context.Context, mac string) (*model.HotspotStatus, error)
	InitiatePaymentFunc func(ctx context.Context, accessToken string, in model.InitiatePayment) (int64, error)

	mu     sync.Mutex
	tokens map[string][]string
}

func newMockBackend() *MockBackend {
	return &MockBackend{MemoryBackend: billing.NewMemoryBackend(), tokens: make(map[string][]string)}
}

func (m *MockBackend) seen(method, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[method] = append(m.tokens[method], token)
}

// TokensSeen returns the bearer tokens passed to method, in call order.
func (m *MockBackend) TokensSeen(method string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens[method]...)
}

func (m *MockBackend) RedeemVoucher(ctx context.Context, accessToken, code string) (*model.RedeemResult, error) {
	m.seen("RedeemVoucher", accessToken)
	if m.RedeemVoucherFunc != nil {
		return m.RedeemVoucherFunc(ctx, accessToken, code)
	}
	return m.MemoryBackend.RedeemVoucher(ctx, accessToken, code)
}

func (m *MockBackend) PaymentStatus(ctx context.Context, accessToken string, id int64) (model.PaymentStatus, error) {
	m.seen("PaymentStatus", accessToken)
	if m.PaymentStatusFunc != nil {
		return m.PaymentStatusFunc(ctx, accessToken, id)
	}
	return m.MemoryBackend.PaymentStatus(ctx, accessToken, id)
}

func (m *MockBackend) HotspotStatus(ctx context.Context, mac string) (*model.HotspotStatus, error) {
	if m.HotspotStatusFunc != nil {
		return m.HotspotStatusFunc(ctx, mac)
	}
	return m.MemoryBackend.HotspotStatus(ctx, mac)
}

func (m *MockBackend) InitiatePayment(ctx context.Context, accessToken string, in model.InitiatePayment) (int64, error) {
	m.seen("InitiatePayment", accessToken)
	if m.InitiatePaymentFunc != nil {
		return m.InitiatePaymentFunc(ctx, accessToken, in)
	}
	return m.MemoryBackend.InitiatePayment(ctx, accessToken, in)
}

// authenticatedSession returns a session that holds a bearer token.
func authenticatedSession(id string) *model.Session {
	s := model.NewSession(id)
	s.Authenticate(model.Tokens{Access: "user-access", Refresh: "user-refresh"}, "alice", nil)
	return s
}
