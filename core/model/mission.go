package model

import (
	"fmt"
	"time"

	"github.com/jbleroy/fieldops/core/status"
)

// Mission represents a unit of field work to be performed at a location.
type Mission struct {
	ID            string
	Title         string
	Status        status.Lifecycle
	BillingStatus status.Billing

	// Location is nil until the mission address has been geocoded. A
	// mission without coordinates cannot be broadcast.
	Location *Coordinate

	// AssignedUserID is empty while the mission is unassigned. Once set it
	// only changes through an explicit re-assignment.
	AssignedUserID string

	ScheduledStart    time.Time
	ScheduledEnd      time.Time
	EstimatedDuration time.Duration

	// Prices are integer minor-currency units (cents).
	PriceTotal         int64
	PriceSubcontractor int64

	PauseReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assigned reports whether the mission has an owner.
func (m Mission) Assigned() bool { return m.AssignedUserID != "" }

// Locked reports whether edit and delete operations are disallowed. A
// mission locks as soon as it gains an owner; only lifecycle transitions
// remain legal afterwards.
func (m Mission) Locked() bool { return m.Assigned() }

// Validate checks the cross-field invariants of the mission record.
func (m Mission) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("mission id is required")
	}
	if m.Status.Assignable() && !m.Assigned() {
		return fmt.Errorf("mission %s: status %s requires an assigned user", m.ID, m.Status)
	}
	if !m.Status.Assignable() && m.Status != status.Cancelled && m.Assigned() {
		return fmt.Errorf("mission %s: status %s forbids an assigned user", m.ID, m.Status)
	}
	return nil
}
