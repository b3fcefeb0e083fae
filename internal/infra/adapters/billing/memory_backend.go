package billing

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
)

var _ adapter.BillingBackend = (*MemoryBackend)(nil)

// MemoryBackend is an in-memory billing backend for development and tests.
// Redemption is atomic under the mutex, so a code succeeds at most once.
type MemoryBackend struct {
	mu       sync.Mutex
	seq      int64
	now      func() time.Time
	plans    map[int64]*model.Plan
	batches  map[int64]*model.VoucherBatch
	vouchers map[string]*model.Voucher // code -> voucher
	payments map[int64]*memPayment
	devices  map[string]*model.HotspotStatus // mac -> status
	users    map[string]bool
	accounts map[string]memAccount // username -> credentials
	script   []model.PaymentStatus // default poll script for new payments

	// Calls counts requests per method name.
	Calls map[string]int
}

type memAccount struct {
	password string
	staff    bool
}

type memPayment struct {
	req    model.PaymentRequest
	script []model.PaymentStatus // statuses returned by successive polls; last one sticks
	polls  int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		now:      time.Now,
		plans:    make(map[int64]*model.Plan),
		batches:  make(map[int64]*model.VoucherBatch),
		vouchers: make(map[string]*model.Voucher),
		payments: make(map[int64]*memPayment),
		devices:  make(map[string]*model.HotspotStatus),
		users:    make(map[string]bool),
		accounts: make(map[string]memAccount),
		Calls:    make(map[string]int),
	}
}

func (m *MemoryBackend) next() int64 {
	m.seq++
	return m.seq
}

func (m *MemoryBackend) count(name string) { m.Calls[name]++ }

// CallCount returns how many times a backend method was invoked.
func (m *MemoryBackend) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[name]
}

// AddPlan registers a plan and returns it with its id set.
func (m *MemoryBackend) AddPlan(p model.Plan) *model.Plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.next()
	}
	cp := p
	m.plans[p.ID] = &cp
	return &cp
}

// SetDevice records the hotspot status the backend reports for a MAC.
func (m *MemoryBackend) SetDevice(mac string, st model.HotspotStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := st
	m.devices[mac] = &cp
}

// ScriptPayment fixes the statuses successive polls of a request will see.
func (m *MemoryBackend) ScriptPayment(id int64, statuses ...model.PaymentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		p = &memPayment{req: model.PaymentRequest{ID: id, Status: model.PaymentStatusPending}}
		m.payments[id] = p
	}
	p.script = statuses
}

// SetPaymentDefault fixes the poll script every later payment starts with.
func (m *MemoryBackend) SetPaymentDefault(statuses ...model.PaymentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append([]model.PaymentStatus(nil), statuses...)
}

// Voucher returns a copy of the stored voucher.
func (m *MemoryBackend) Voucher(code string) (model.Voucher, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[code]
	if !ok {
		return model.Voucher{}, false
	}
	return *v, true
}

func (m *MemoryBackend) RedeemVoucher(ctx context.Context, accessToken, code string) (*model.RedeemResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("RedeemVoucher")

	v, ok := m.vouchers[code]
	if !ok {
		return nil, rejected(domain.ErrVoucherNotFound, "Invalid voucher code")
	}
	now := m.now()
	v.Expire(now)
	username := code
	if m.users[username] {
		username = fmt.Sprintf("%s%03d", code, m.seq%1000)
	}
	if err := v.Redeem(username, now); err != nil {
		switch err {
		case domain.ErrVoucherUsed:
			return nil, rejected(err, "Voucher has already been used")
		case domain.ErrVoucherExpired:
			return nil, rejected(err, "Voucher has expired")
		default:
			return nil, rejected(err, "This voucher is not linked to a plan. Cannot auto-redeem.")
		}
	}
	m.users[username] = true
	planName := ""
	if p := m.plans[*v.PlanID]; p != nil {
		planName = p.Name
	}
	return &model.RedeemResult{
		Success:  true,
		Message:  fmt.Sprintf("Voucher redeemed! Subscribed to %s.", planName),
		Customer: &model.Customer{ID: m.next(), Username: username},
		Tokens:   &model.Tokens{Access: "access-" + username, Refresh: "refresh-" + username},
	}, nil
}

func (m *MemoryBackend) InitiatePayment(ctx context.Context, accessToken string, in model.InitiatePayment) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("InitiatePayment")

	if _, ok := m.plans[in.PlanID]; !ok {
		return 0, rejected(domain.ErrNotFound, "Plan not found")
	}
	if in.PhoneNumber == "" {
		return 0, rejected(domain.ErrInvalidArgument, "Phone number is required")
	}
	id := m.next()
	m.payments[id] = &memPayment{req: model.PaymentRequest{
		ID:          id,
		PlanID:      in.PlanID,
		PhoneNumber: in.PhoneNumber,
		MACAddress:  in.MACAddress,
		Status:      model.PaymentStatusPending,
		CreatedAt:   m.now(),
	}, script: append([]model.PaymentStatus(nil), m.script...)}
	return id, nil
}

func (m *MemoryBackend) PaymentStatus(ctx context.Context, accessToken string, requestID int64) (model.PaymentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("PaymentStatus")

	p, ok := m.payments[requestID]
	if !ok {
		return "", &APIError{Status: 404, Message: "Payment request not found"}
	}
	if len(p.script) > 0 {
		i := p.polls
		if i >= len(p.script) {
			i = len(p.script) - 1
		}
		p.req.Status = p.script[i]
	}
	p.polls++
	return p.req.Status, nil
}

func (m *MemoryBackend) HotspotStatus(ctx context.Context, mac string) (*model.HotspotStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("HotspotStatus")

	st, ok := m.devices[mac]
	if !ok {
		return &model.HotspotStatus{Active: false}, nil
	}
	cp := *st
	return &cp, nil
}

func (m *MemoryBackend) ListPlans(ctx context.Context, accessToken string) ([]*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ListPlans")

	out := make([]*model.Plan, 0, len(m.plans))
	for _, p := range m.plans {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddAccount registers login credentials.
func (m *MemoryBackend) AddAccount(username, password string, staff bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[username] = memAccount{password: password, staff: staff}
}

func (m *MemoryBackend) Login(ctx context.Context, username, password string) (*model.AuthResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("Login")

	acc, ok := m.accounts[username]
	if !ok || acc.password != password {
		return nil, &APIError{Status: 401, Message: "Invalid credentials"}
	}
	return &model.AuthResult{
		Tokens:   model.Tokens{Access: "access-" + username, Refresh: "refresh-" + username},
		Customer: &model.Customer{ID: m.next(), Username: username},
		IsStaff:  acc.staff,
	}, nil
}

func (m *MemoryBackend) GenerateVouchers(ctx context.Context, accessToken string, req model.GenerateRequest) (*model.VoucherBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("GenerateVouchers")

	if err := req.Validate(); err != nil {
		return nil, rejected(err, "Invalid generation request")
	}
	value := decimal.Zero
	planName := ""
	if req.PlanID != nil {
		p, ok := m.plans[*req.PlanID]
		if !ok {
			return nil, rejected(domain.ErrNotFound, "Invalid plan ID")
		}
		value = p.Price
		planName = p.Name
	} else if req.Value != nil {
		value = *req.Value
	}

	now := m.now()
	b := &model.VoucherBatch{
		ID:        m.next(),
		CreatedAt: now,
		Quantity:  req.Quantity,
		Value:     value,
		PlanID:    req.PlanID,
		PlanName:  planName,
		Note:      req.Note,
	}
	for i := 0; i < req.Quantity; i++ {
		code, err := m.uniqueCode()
		if err != nil {
			return nil, err
		}
		v := &model.Voucher{
			ID:        m.next(),
			BatchID:   b.ID,
			PlanID:    req.PlanID,
			Code:      code,
			Amount:    value,
			Status:    model.VoucherStatusActive,
			CreatedAt: now,
		}
		m.vouchers[code] = v
		b.Vouchers = append(b.Vouchers, v)
	}
	m.batches[b.ID] = b
	return copyBatch(b), nil
}

func (m *MemoryBackend) ListBatches(ctx context.Context, accessToken string) ([]*model.VoucherBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ListBatches")

	out := make([]*model.VoucherBatch, 0, len(m.batches))
	for _, b := range m.batches {
		out = append(out, copyBatch(b))
	}
	// newest first, like the backend's ordering
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryBackend) BatchVouchers(ctx context.Context, accessToken string, batchID int64) ([]*model.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("BatchVouchers")

	b, ok := m.batches[batchID]
	if !ok {
		return nil, &APIError{Status: 404, Message: "Not found."}
	}
	return copyBatch(b).Vouchers, nil
}

// uniqueCode draws 6-char codes from an unambiguous alphabet until unused.
func (m *MemoryBackend) uniqueCode() (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLength = 6
	buffer := make([]byte, codeLength)
	for {
		if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
			return "", err
		}
		for i := range buffer {
			buffer[i] = chars[int(buffer[i])%len(chars)]
		}
		code := string(buffer)
		if _, taken := m.vouchers[code]; !taken {
			return code, nil
		}
	}
}

// AddVoucher stores a voucher with a caller-chosen code.
func (m *MemoryBackend) AddVoucher(v model.Voucher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == 0 {
		v.ID = m.next()
	}
	if v.Status == "" {
		v.Status = model.VoucherStatusActive
	}
	cp := v
	m.vouchers[v.Code] = &cp
}

func copyBatch(b *model.VoucherBatch) *model.VoucherBatch {
	cp := *b
	cp.Vouchers = make([]*model.Voucher, 0, len(b.Vouchers))
	for _, v := range b.Vouchers {
		vc := *v
		cp.Vouchers = append(cp.Vouchers, &vc)
	}
	return &cp
}

type memRejection struct {
	APIError
	kind error
}

func (e *memRejection) Is(target error) bool {
	return target == e.kind || e.APIError.Is(target)
}

func rejected(kind error, msg string) error {
	return &memRejection{APIError: APIError{Status: 400, Message: msg}, kind: kind}
}
