package model

import "time"

// Offer is a time-bounded invitation for one candidate to claim one mission.
type Offer struct {
	ID          string
	MissionID   string
	CandidateID string
	CreatedAt   time.Time
	ExpiresAt   time.Time

	// AcceptedAt and RefusedAt are mutually exclusive. Across all offers of
	// a mission at most one may carry AcceptedAt; the store enforces this.
	AcceptedAt *time.Time
	RefusedAt  *time.Time
}

// Live reports whether the offer can still be accepted at the given time.
// Expiry is evaluated lazily: an offer past its deadline is void even if no
// sweep has touched it.
func (o Offer) Live(now time.Time) bool {
	return o.AcceptedAt == nil && o.RefusedAt == nil && now.Before(o.ExpiresAt)
}
