// Package events defines the payloads published on the notification bus
// after each successful lifecycle transition. Payloads carry identifiers,
// not state: consumers re-fetch what they need.
package events

import "time"

// OffersCreated is published after a broadcast creates offers.
type OffersCreated struct {
	MissionID string    `json:"mission_id"`
	OfferIDs  []string  `json:"offer_ids"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MissionAccepted is published when a candidate wins the acceptance race.
type MissionAccepted struct {
	MissionID   string `json:"mission_id"`
	CandidateID string `json:"candidate_id"`
	OfferID     string `json:"offer_id"`
}

// MissionAssigned is published on an admin override assignment.
type MissionAssigned struct {
	MissionID  string `json:"mission_id"`
	UserID     string `json:"user_id"`
	Overridden bool   `json:"overridden"`
}

// MissionScheduled is published when a start window is set.
type MissionScheduled struct {
	MissionID string    `json:"mission_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end,omitempty"`
}

// MissionTransitioned is published for the remaining lifecycle moves
// (start_travel, start_work, resume, complete, validate_report, close).
type MissionTransitioned struct {
	MissionID string `json:"mission_id"`
	Op        string `json:"op"`
	Status    string `json:"status"`
}

// MissionPaused carries the mandatory pause reason.
type MissionPaused struct {
	MissionID string `json:"mission_id"`
	Reason    string `json:"reason"`
	Note      string `json:"note,omitempty"`
}

// ReportRejected returns a mission to rework with a mandatory reason.
type ReportRejected struct {
	MissionID string `json:"mission_id"`
	Reason    string `json:"reason"`
	Details   string `json:"details,omitempty"`
}

// MissionInvoiced is published when an invoice is issued.
type MissionInvoiced struct {
	MissionID  string `json:"mission_id"`
	InvoiceID  string `json:"invoice_id"`
	TotalMinor int64  `json:"total_minor"`
}

// MissionPaid is published when a payment is recorded.
type MissionPaid struct {
	MissionID string `json:"mission_id"`
	InvoiceID string `json:"invoice_id"`
	Method    string `json:"method"`
}

// MissionCancelled is published when a mission is cancelled.
type MissionCancelled struct {
	MissionID string `json:"mission_id"`
}

// OfferRefused is published when a candidate declines a live offer.
type OfferRefused struct {
	MissionID   string `json:"mission_id"`
	CandidateID string `json:"candidate_id"`
	OfferID     string `json:"offer_id"`
}
