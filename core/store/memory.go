package store

import (
	"context"
	"sync"
	"time"

	"github.com/jbleroy/fieldops/core/billing"
	"github.com/jbleroy/fieldops/core/lifecycle"
	"github.com/jbleroy/fieldops/core/model"
	"github.com/jbleroy/fieldops/core/status"
)

// MemoryStore is an in-process Store used in tests and single-node setups.
// A single mutex is the transaction boundary.
type MemoryStore struct {
	mu       sync.Mutex
	missions map[string]model.Mission
	offers   map[string][]model.Offer
	invoices map[string]model.Invoice
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		missions: map[string]model.Mission{},
		offers:   map[string][]model.Offer{},
		invoices: map[string]model.Invoice{},
	}
}

func (s *MemoryStore) CreateMission(_ context.Context, m model.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missions[m.ID] = m
	return nil
}

func (s *MemoryStore) GetMission(_ context.Context, id string) (model.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok {
		return model.Mission{}, ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) UpdateMission(_ context.Context, m model.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.missions[m.ID]; !ok {
		return ErrNotFound
	}
	s.missions[m.ID] = m
	return nil
}

func (s *MemoryStore) DeleteMission(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.missions[id]; !ok {
		return ErrNotFound
	}
	delete(s.missions, id)
	delete(s.offers, id)
	return nil
}

func (s *MemoryStore) Transition(_ context.Context, id string, op lifecycle.Op, mutate func(*model.Mission) error) (model.Mission, model.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.missions[id]
	if !ok {
		return model.Mission{}, model.Mission{}, ErrNotFound
	}
	next, err := lifecycle.Next(prev.Status, op)
	if err != nil {
		return prev, prev, err
	}
	cur := prev
	cur.Status = next
	if mutate != nil {
		if err := mutate(&cur); err != nil {
			return prev, prev, err
		}
	}
	cur.UpdatedAt = time.Now()
	s.missions[id] = cur
	return prev, cur, nil
}

func (s *MemoryStore) CreateOffers(_ context.Context, offers []model.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range offers {
		s.offers[o.MissionID] = append(s.offers[o.MissionID], o)
	}
	return nil
}

func (s *MemoryStore) OffersByMission(_ context.Context, missionID string) ([]model.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]model.Offer, len(s.offers[missionID]))
	copy(res, s.offers[missionID])
	return res, nil
}

func (s *MemoryStore) AcceptOffer(_ context.Context, missionID, candidateID string, now time.Time) (model.Offer, model.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[missionID]
	if !ok {
		return model.Offer{}, model.Mission{}, ErrNotFound
	}
	if m.Assigned() {
		return model.Offer{}, m, ErrMissionAssigned
	}
	offers := s.offers[missionID]
	idx := -1
	for i, o := range offers {
		if o.CandidateID == candidateID && o.Live(now) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Offer{}, m, ErrNoLiveOffer
	}

	accepted := offers[idx]
	acceptedAt := now
	accepted.AcceptedAt = &acceptedAt
	offers[idx] = accepted
	for i, o := range offers {
		if i != idx && o.Live(now) {
			o.ExpiresAt = now
			offers[i] = o
		}
	}
	s.offers[missionID] = offers

	m.AssignedUserID = candidateID
	m.Status = status.Assigned
	m.UpdatedAt = now
	s.missions[missionID] = m
	return accepted, m, nil
}

func (s *MemoryStore) RefuseOffer(_ context.Context, missionID, candidateID string, now time.Time) (model.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offers := s.offers[missionID]
	for i, o := range offers {
		if o.CandidateID == candidateID && o.Live(now) {
			refusedAt := now
			o.RefusedAt = &refusedAt
			offers[i] = o
			s.offers[missionID] = offers
			return o, nil
		}
	}
	return model.Offer{}, ErrNoLiveOffer
}

func (s *MemoryStore) AssignMission(_ context.Context, missionID, userID string, now time.Time) (model.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[missionID]
	if !ok {
		return model.Mission{}, ErrNotFound
	}
	if m.Assigned() {
		return m, ErrMissionAssigned
	}
	if _, err := lifecycle.Next(m.Status, lifecycle.OpAssign); err != nil {
		return m, err
	}
	s.voidLiveOffersLocked(missionID, now)
	m.AssignedUserID = userID
	m.Status = status.Assigned
	m.UpdatedAt = now
	s.missions[missionID] = m
	return m, nil
}

func (s *MemoryStore) VoidLiveOffers(_ context.Context, missionID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voidLiveOffersLocked(missionID, now), nil
}

func (s *MemoryStore) voidLiveOffersLocked(missionID string, now time.Time) int {
	offers := s.offers[missionID]
	n := 0
	for i, o := range offers {
		if o.Live(now) {
			o.ExpiresAt = now
			offers[i] = o
			n++
		}
	}
	s.offers[missionID] = offers
	return n
}

func (s *MemoryStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, offers := range s.offers {
		kept := offers[:0]
		for _, o := range offers {
			if o.AcceptedAt == nil && o.RefusedAt == nil && !now.Before(o.ExpiresAt) {
				n++
				continue
			}
			kept = append(kept, o)
		}
		s.offers[id] = kept
	}
	return n, nil
}

func (s *MemoryStore) IssueInvoice(_ context.Context, inv model.Invoice) (model.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[inv.MissionID]
	if !ok {
		return model.Mission{}, ErrNotFound
	}
	if _, ok := s.invoices[inv.MissionID]; ok {
		return m, billing.ErrInvoiceAlreadyExists
	}
	next, err := lifecycle.Next(m.Status, lifecycle.OpInvoice)
	if err != nil {
		return m, err
	}
	s.invoices[inv.MissionID] = inv
	m.Status = next
	m.BillingStatus = status.BillingInvoiced
	m.UpdatedAt = inv.IssuedAt
	s.missions[inv.MissionID] = m
	return m, nil
}

func (s *MemoryStore) InvoiceByMission(_ context.Context, missionID string) (model.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[missionID]
	if !ok {
		return model.Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (s *MemoryStore) MarkInvoicePaid(_ context.Context, missionID string, now time.Time, method, reference string) (model.Invoice, model.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[missionID]
	if !ok || inv.Paid() {
		return model.Invoice{}, model.Mission{}, billing.ErrNoUnpaidInvoice
	}
	m, ok := s.missions[missionID]
	if !ok {
		return model.Invoice{}, model.Mission{}, ErrNotFound
	}
	next, err := lifecycle.Next(m.Status, lifecycle.OpMarkPaid)
	if err != nil {
		return inv, m, err
	}
	paidAt := now
	inv.PaidAt = &paidAt
	inv.Method = method
	inv.Reference = reference
	s.invoices[missionID] = inv
	m.Status = next
	m.BillingStatus = status.BillingPaid
	m.UpdatedAt = now
	s.missions[missionID] = m
	return inv, m, nil
}

func (s *MemoryStore) Close() error { return nil }
