package main

import (
	"time"

	"github.com/shopspring/decimal"

	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/infra/adapters/billing"
)

// seedDemo fills the in-memory backend with a few plans, a staff account
// (admin/admin), a customer (demo/demo) and one redeemable voucher per plan.
// Payments to any plan complete on the third poll.
func seedDemo(m *billing.MemoryBackend) *billing.MemoryBackend {
	seed := []struct {
		Name  string
		Value int
		Unit  model.DurationUnit
		Days  int
		Price int64
		Code  string
	}{
		{"1 Hour", 1, model.DurationHours, 0, 10, "HOUR01"},
		{"Daily", 1, model.DurationDays, 1, 50, "DAY001"},
		{"Weekly", 7, model.DurationDays, 7, 300, "WEEK01"},
		{"Monthly", 1, model.DurationMonths, 30, 1000, "MONTH1"},
	}
	for _, s := range seed {
		p := m.AddPlan(model.Plan{
			Name:          s.Name,
			Price:         decimal.NewFromInt(s.Price),
			DownloadSpeed: 10,
			UploadSpeed:   5,
			DurationValue: s.Value,
			DurationUnit:  s.Unit,
			DurationDays:  s.Days,
		})
		expiry := time.Now().AddDate(0, 1, 0)
		m.AddVoucher(model.Voucher{Code: s.Code, PlanID: &p.ID, Amount: p.Price, ExpiryDate: &expiry})
	}
	m.AddAccount("admin", "admin", true)
	m.AddAccount("demo", "demo", false)
	m.SetPaymentDefault(model.PaymentStatusPending, model.PaymentStatusPending, model.PaymentStatusCompleted)
	return m
}
