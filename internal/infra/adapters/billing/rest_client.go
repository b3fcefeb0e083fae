// File: internal/infra/adapters/billing/rest_client.go
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
	"hotspot-portal/internal/infra/metrics"
)

var _ adapter.BillingBackend = (*RESTClient)(nil)

// APIError is a non-2xx answer (or a transport failure when Status is 0).
type APIError struct {
	Status  int
	Message string // backend-supplied text, may be empty
	cause   error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("billing: transport: %v", e.cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("billing: http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("billing: http %d", e.Status)
}

func (e *APIError) ServerMessage() string { return e.Message }

func (e *APIError) Unwrap() error { return e.cause }

// Is maps the HTTP status onto domain sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrTransport:
		return e.Status == 0
	case domain.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case domain.ErrNotFound:
		return e.Status == http.StatusNotFound
	case domain.ErrRejected:
		return e.Status != 0 && e.Status != http.StatusUnauthorized
	}
	return false
}

// RESTClient implements adapter.BillingBackend against the Django REST API.
type RESTClient struct {
	base   *url.URL
	client *http.Client
	log    *zerolog.Logger
}

// NewRESTClient builds a client rooted at baseURL (for example http://backend:8000/api).
func NewRESTClient(baseURL string, timeout time.Duration, logger *zerolog.Logger) (*RESTClient, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid billing base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("billing base url must be absolute")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	l := logger.With().Str("component", "BillingREST").Logger()
	return &RESTClient{
		base:   u,
		client: &http.Client{Timeout: timeout},
		log:    &l,
	}, nil
}

// SetHTTPClient swaps the transport, mostly for tests.
func (c *RESTClient) SetHTTPClient(hc *http.Client) { c.client = hc }

func (c *RESTClient) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do sends one request. label names the endpoint in metrics; out may be nil.
func (c *RESTClient) do(ctx context.Context, label, method, path string, q url.Values, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveBackendRequest(label, 0, time.Since(start).Seconds())
		c.log.Warn().Err(err).Str("endpoint", label).Msg("billing request failed")
		return &APIError{cause: fmt.Errorf("%w: %v", domain.ErrTransport, err)}
	}
	defer resp.Body.Close()
	metrics.ObserveBackendRequest(label, resp.StatusCode, time.Since(start).Seconds())

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &APIError{cause: fmt.Errorf("%w: read body: %v", domain.ErrTransport, err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
		c.log.Debug().Int("status", resp.StatusCode).Str("endpoint", label).Str("message", apiErr.Message).Msg("billing request rejected")
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("billing: decode %s: %w", label, err)
	}
	return nil
}

// errorMessage pulls a human readable message out of a DRF error body:
// {"error": "..."}, {"detail": "..."}, {"message": "..."} or field errors
// like {"code": ["This field is required."]}.
func errorMessage(raw []byte) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	for _, k := range []string{"error", "detail", "message"} {
		if s := cast.ToString(m[k]); s != "" {
			return s
		}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		if msgs := cast.ToStringSlice(m[k]); len(msgs) > 0 {
			parts = append(parts, k+": "+strings.Join(msgs, " "))
		}
	}
	return strings.Join(parts, "; ")
}

// list decodes either a flat JSON array or a DRF page {count, next, results}.
func list(raw json.RawMessage) ([]map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var rows []map[string]any
		err := json.Unmarshal(raw, &rows)
		return rows, err
	}
	var page struct {
		Results []map[string]any `json:"results"`
	}
	err := json.Unmarshal(raw, &page)
	return page.Results, err
}

func (c *RESTClient) RedeemVoucher(ctx context.Context, accessToken, code string) (*model.RedeemResult, error) {
	var out model.RedeemResult
	if err := c.do(ctx, "voucher_redeem", http.MethodPost, "/billing/vouchers/redeem/", nil, accessToken, map[string]string{"code": code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) InitiatePayment(ctx context.Context, accessToken string, in model.InitiatePayment) (int64, error) {
	var out map[string]any
	if err := c.do(ctx, "payment_initiate", http.MethodPost, "/payments/initiate/", nil, accessToken, in, &out); err != nil {
		return 0, err
	}
	if ok, present := out["success"]; present && !cast.ToBool(ok) {
		return 0, &APIError{Status: http.StatusOK, Message: cast.ToString(out["error"])}
	}
	id, err := cast.ToInt64E(out["payment_request_id"])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("billing: initiate: missing payment_request_id")
	}
	return id, nil
}

func (c *RESTClient) PaymentStatus(ctx context.Context, accessToken string, requestID int64) (model.PaymentStatus, error) {
	var out struct {
		Status string `json:"status"`
	}
	path := fmt.Sprintf("/payments/status/%d/", requestID)
	if err := c.do(ctx, "payment_status", http.MethodGet, path, nil, accessToken, nil, &out); err != nil {
		return "", err
	}
	if out.Status == "" {
		return "", fmt.Errorf("billing: payment %d: empty status", requestID)
	}
	return model.PaymentStatus(strings.ToLower(out.Status)), nil
}

// HotspotStatus is always a guest call.
func (c *RESTClient) HotspotStatus(ctx context.Context, mac string) (*model.HotspotStatus, error) {
	var out struct {
		Active   any    `json:"active"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.do(ctx, "hotspot_status", http.MethodGet, "/network/hotspot/status/", url.Values{"mac": {mac}}, "", nil, &out); err != nil {
		return nil, err
	}
	return &model.HotspotStatus{
		Active:   cast.ToBool(out.Active),
		Username: out.Username,
		Password: out.Password,
	}, nil
}

func (c *RESTClient) ListPlans(ctx context.Context, accessToken string) ([]*model.Plan, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "plans_list", http.MethodGet, "/billing/plans/", nil, accessToken, nil, &raw); err != nil {
		return nil, err
	}
	rows, err := list(raw)
	if err != nil {
		return nil, fmt.Errorf("billing: decode plans: %w", err)
	}
	plans := make([]*model.Plan, 0, len(rows))
	for _, r := range rows {
		plans = append(plans, planFromRow(r))
	}
	return plans, nil
}

// Login is a guest call; a 401 carries the backend's "Invalid credentials" text.
func (c *RESTClient) Login(ctx context.Context, username, password string) (*model.AuthResult, error) {
	var out struct {
		Customer map[string]any `json:"customer"`
		Tokens   model.Tokens   `json:"tokens"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, "customer_login", http.MethodPost, "/customers/login/", nil, "", body, &out); err != nil {
		return nil, err
	}
	if out.Tokens.Access == "" {
		return nil, fmt.Errorf("billing: login: no access token in response")
	}
	res := &model.AuthResult{Tokens: out.Tokens}
	if out.Customer != nil {
		res.Customer = &model.Customer{
			ID:       cast.ToInt64(out.Customer["id"]),
			Username: cast.ToString(out.Customer["username"]),
		}
		res.IsStaff = cast.ToBool(out.Customer["is_staff"])
	}
	return res, nil
}

func (c *RESTClient) GenerateVouchers(ctx context.Context, accessToken string, req model.GenerateRequest) (*model.VoucherBatch, error) {
	var out map[string]any
	if err := c.do(ctx, "voucher_generate", http.MethodPost, "/billing/vouchers/generate/", nil, accessToken, req, &out); err != nil {
		return nil, err
	}
	return batchFromRow(out), nil
}

func (c *RESTClient) ListBatches(ctx context.Context, accessToken string) ([]*model.VoucherBatch, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "batches_list", http.MethodGet, "/billing/batches/", nil, accessToken, nil, &raw); err != nil {
		return nil, err
	}
	rows, err := list(raw)
	if err != nil {
		return nil, fmt.Errorf("billing: decode batches: %w", err)
	}
	out := make([]*model.VoucherBatch, 0, len(rows))
	for _, r := range rows {
		out = append(out, batchFromRow(r))
	}
	return out, nil
}

func (c *RESTClient) BatchVouchers(ctx context.Context, accessToken string, batchID int64) ([]*model.Voucher, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/billing/batches/%d/vouchers/", batchID)
	if err := c.do(ctx, "batch_vouchers", http.MethodGet, path, nil, accessToken, nil, &raw); err != nil {
		return nil, err
	}
	rows, err := list(raw)
	if err != nil {
		return nil, fmt.Errorf("billing: decode vouchers: %w", err)
	}
	out := make([]*model.Voucher, 0, len(rows))
	for _, r := range rows {
		out = append(out, voucherFromRow(r))
	}
	return out, nil
}

// ---- row mapping: the backend serializes FKs as ids, money as strings ----

func dec(v any) decimal.Decimal {
	d, err := decimal.NewFromString(cast.ToString(v))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func optID(v any) *int64 {
	id, err := cast.ToInt64E(v)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}

func optTime(v any) *time.Time {
	if v == nil {
		return nil
	}
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return nil
	}
	return &t
}

func planFromRow(r map[string]any) *model.Plan {
	return &model.Plan{
		ID:            cast.ToInt64(r["id"]),
		Name:          cast.ToString(r["name"]),
		Description:   cast.ToString(r["description"]),
		Price:         dec(r["price"]),
		DownloadSpeed: cast.ToInt(r["download_speed"]),
		UploadSpeed:   cast.ToInt(r["upload_speed"]),
		DurationValue: cast.ToInt(r["duration_value"]),
		DurationUnit:  model.DurationUnit(cast.ToString(r["duration_unit"])),
		DurationDays:  cast.ToInt(r["duration_days"]),
	}
}

func voucherFromRow(r map[string]any) *model.Voucher {
	v := &model.Voucher{
		ID:         cast.ToInt64(r["id"]),
		BatchID:    cast.ToInt64(r["batch"]),
		PlanID:     optID(r["plan"]),
		Code:       cast.ToString(r["code"]),
		Amount:     dec(r["amount"]),
		Status:     model.VoucherStatus(cast.ToString(r["status"])),
		ExpiryDate: optTime(r["expiry_date"]),
		UsedAt:     optTime(r["used_at"]),
	}
	if by := cast.ToString(r["used_by"]); by != "" {
		v.UsedBy = &by
	}
	if t := optTime(r["created_at"]); t != nil {
		v.CreatedAt = *t
	}
	return v
}

func batchFromRow(r map[string]any) *model.VoucherBatch {
	b := &model.VoucherBatch{
		ID:          cast.ToInt64(r["id"]),
		Quantity:    cast.ToInt(r["quantity"]),
		Value:       dec(r["value"]),
		PlanID:      optID(r["plan"]),
		PlanName:    cast.ToString(r["plan_name"]),
		Note:        cast.ToString(r["note"]),
		GeneratedBy: cast.ToString(r["generated_by"]),
	}
	if t := optTime(r["created_at"]); t != nil {
		b.CreatedAt = *t
	}
	if vs, ok := r["vouchers"].([]any); ok {
		for _, item := range vs {
			if row, ok := item.(map[string]any); ok {
				b.Vouchers = append(b.Vouchers, voucherFromRow(row))
			}
		}
	}
	return b
}
