// Package store defines the persistence boundary of the dispatch engine.
// Implementations are the transaction boundary: every method leaves the
// mission/offer/invoice state either fully updated or untouched, and
// AcceptOffer behaves as if guarded by a per-mission lock.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jbleroy/fieldops/core/lifecycle"
	"github.com/jbleroy/fieldops/core/model"
)

// ErrNotFound is returned when a mission, offer or invoice does not exist.
var ErrNotFound = errors.New("not found")

// ErrMissionAssigned is returned by conditional assignment when another
// caller won the race.
var ErrMissionAssigned = errors.New("mission already assigned")

// ErrNoLiveOffer is returned when the caller holds no live offer for the
// mission.
var ErrNoLiveOffer = errors.New("no live offer")

// Store persists missions, offers and invoices.
type Store interface {
	CreateMission(ctx context.Context, m model.Mission) error
	GetMission(ctx context.Context, id string) (model.Mission, error)
	// UpdateMission replaces the stored row. Callers enforce the edit lock
	// before calling.
	UpdateMission(ctx context.Context, m model.Mission) error
	DeleteMission(ctx context.Context, id string) error

	// Transition atomically validates op against the current status, applies
	// mutate, writes the new status and returns the previous and updated
	// rows. On any error nothing is written.
	Transition(ctx context.Context, id string, op lifecycle.Op, mutate func(*model.Mission) error) (prev, cur model.Mission, err error)

	CreateOffers(ctx context.Context, offers []model.Offer) error
	OffersByMission(ctx context.Context, missionID string) ([]model.Offer, error)

	// AcceptOffer is the single strictly serializable operation: it marks
	// the candidate's live offer accepted, assigns the mission and voids
	// sibling offers in one atomic unit, guarded by "mission unassigned".
	// It returns ErrMissionAssigned when another candidate won first and
	// ErrNoLiveOffer when the caller holds no unexpired, unrefused offer.
	AcceptOffer(ctx context.Context, missionID, candidateID string, now time.Time) (model.Offer, model.Mission, error)

	// RefuseOffer stamps RefusedAt on the candidate's live offer.
	RefuseOffer(ctx context.Context, missionID, candidateID string, now time.Time) (model.Offer, error)

	// AssignMission is the admin override path: conditional on the mission
	// being unassigned, it sets the owner, moves the status to Assigned and
	// voids any still-live offers.
	AssignMission(ctx context.Context, missionID, userID string, now time.Time) (model.Mission, error)

	// VoidLiveOffers expires every live offer of the mission, returning how
	// many were voided.
	VoidLiveOffers(ctx context.Context, missionID string, now time.Time) (int, error)

	// PurgeExpired removes offers whose deadline has passed. Lazy expiry at
	// accept time remains the correctness mechanism; this is housekeeping.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)

	// IssueInvoice atomically verifies the mission is in the billable
	// class, stores the invoice (a mission carries at most one) and marks
	// the mission invoiced.
	IssueInvoice(ctx context.Context, inv model.Invoice) (model.Mission, error)
	InvoiceByMission(ctx context.Context, missionID string) (model.Invoice, error)
	// MarkInvoicePaid atomically stamps the payment on the mission's unpaid
	// invoice and advances the mission to its paid state.
	MarkInvoicePaid(ctx context.Context, missionID string, now time.Time, method, reference string) (model.Invoice, model.Mission, error)

	Close() error
}
