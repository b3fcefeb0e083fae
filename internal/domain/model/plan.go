package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DurationUnit is the unit a plan's validity is expressed in.
type DurationUnit string

const (
	DurationMinutes DurationUnit = "minutes"
	DurationHours   DurationUnit = "hours"
	DurationDays    DurationUnit = "days"
	DurationMonths  DurationUnit = "months"
)

// Plan is read-only reference data served by the billing backend.
type Plan struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	DownloadSpeed int             `json:"download_speed"` // Mbps
	UploadSpeed   int             `json:"upload_speed"`   // Mbps
	DurationValue int             `json:"duration_value"`
	DurationUnit  DurationUnit    `json:"duration_unit"`
	DurationDays  int             `json:"duration_days"`
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == 0 }

// Summary is the one-line blurb shown under a plan card when the plan has no description.
func (p *Plan) Summary() string {
	if p.Description != "" {
		return p.Description
	}
	if p.DurationValue > 0 && p.DurationUnit != "" {
		return fmt.Sprintf("%d %s Unlimited Internet", p.DurationValue, p.DurationUnit)
	}
	return fmt.Sprintf("%d days Unlimited Internet", p.DurationDays)
}

// DisplayPrice renders the price without cents, the way the portal shows it.
func (p *Plan) DisplayPrice() string {
	return p.Price.Floor().String()
}

// FindPlan returns the plan with the given id from a list, or nil.
func FindPlan(plans []*Plan, id int64) *Plan {
	for _, p := range plans {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}
