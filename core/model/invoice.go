package model

import "time"

// InvoiceLine is a single billable item. UnitPriceMinor is in minor
// currency units; VATRate is a fraction (0.20 for 20%).
type InvoiceLine struct {
	Description    string
	Quantity       int
	UnitPriceMinor int64
	VATRate        float64
}

// Invoice is issued once a mission reaches a billable state. The derived
// totals are computed once at issuance and never re-derived piecemeal.
type Invoice struct {
	ID        string
	MissionID string
	Lines     []InvoiceLine

	SubtotalMinor   int64
	VATTotalMinor   int64
	GrandTotalMinor int64

	IssuedAt  time.Time
	PaidAt    *time.Time
	Method    string
	Reference string
}

// Paid reports whether the invoice has been settled.
func (i Invoice) Paid() bool { return i.PaidAt != nil }
