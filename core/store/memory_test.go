package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jbleroy/fieldops/core/billing"
	"github.com/jbleroy/fieldops/core/lifecycle"
	"github.com/jbleroy/fieldops/core/model"
	"github.com/jbleroy/fieldops/core/status"
)

func seedMission(t *testing.T, s Store, st status.Lifecycle) model.Mission {
	t.Helper()
	m := model.Mission{ID: "m1", Status: st, CreatedAt: time.Now()}
	if st.Assignable() {
		m.AssignedUserID = "u0"
	}
	if err := s.CreateMission(context.Background(), m); err != nil {
		t.Fatalf("create mission: %v", err)
	}
	return m
}

func seedOffers(t *testing.T, s Store, now time.Time, candidates ...string) {
	t.Helper()
	var offers []model.Offer
	for _, c := range candidates {
		offers = append(offers, model.Offer{
			ID: "o-" + c, MissionID: "m1", CandidateID: c,
			CreatedAt: now, ExpiresAt: now.Add(30 * time.Minute),
		})
	}
	if err := s.CreateOffers(context.Background(), offers); err != nil {
		t.Fatalf("create offers: %v", err)
	}
}

func TestAcceptOfferSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	seedMission(t, s, status.Published)
	seedOffers(t, s, now, "c1", "c2", "c3")

	offer, m, err := s.AcceptOffer(context.Background(), "m1", "c2", now)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if offer.AcceptedAt == nil || offer.CandidateID != "c2" {
		t.Fatalf("wrong accepted offer: %#v", offer)
	}
	if m.AssignedUserID != "c2" || m.Status != status.Assigned {
		t.Fatalf("mission not assigned: %#v", m)
	}

	// Sibling offers are void even though their own deadline has not passed.
	offers, _ := s.OffersByMission(context.Background(), "m1")
	for _, o := range offers {
		if o.CandidateID != "c2" && o.Live(now.Add(time.Second)) {
			t.Fatalf("sibling offer still live: %#v", o)
		}
	}

	if _, _, err := s.AcceptOffer(context.Background(), "m1", "c1", now); !errors.Is(err, ErrMissionAssigned) {
		t.Fatalf("late accept: want ErrMissionAssigned, got %v", err)
	}
}

func TestAcceptOfferConcurrent(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	seedMission(t, s, status.Published)
	candidates := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8"}
	seedOffers(t, s, now, candidates...)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, losses := 0, 0
	for _, c := range candidates {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _, err := s.AcceptOffer(context.Background(), "m1", id, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrMissionAssigned):
				losses++
			default:
				t.Errorf("unexpected accept error: %v", err)
			}
		}(c)
	}
	wg.Wait()
	if wins != 1 || losses != len(candidates)-1 {
		t.Fatalf("wins=%d losses=%d, want 1/%d", wins, losses, len(candidates)-1)
	}
}

func TestAcceptOfferLazyExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	seedMission(t, s, status.Published)
	expired := model.Offer{ID: "o1", MissionID: "m1", CandidateID: "c1", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-30 * time.Minute)}
	if err := s.CreateOffers(context.Background(), []model.Offer{expired}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.AcceptOffer(context.Background(), "m1", "c1", now); !errors.Is(err, ErrNoLiveOffer) {
		t.Fatalf("expired offer: want ErrNoLiveOffer, got %v", err)
	}
}

func TestAcceptOfferUnknownMission(t *testing.T) {
	s := NewMemoryStore()
	if _, _, err := s.AcceptOffer(context.Background(), "nope", "c1", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAssignMissionVoidsOffers(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	seedMission(t, s, status.Published)
	seedOffers(t, s, now, "c1", "c2")

	m, err := s.AssignMission(context.Background(), "m1", "tech-9", now)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if m.AssignedUserID != "tech-9" || m.Status != status.Assigned {
		t.Fatalf("assign result: %#v", m)
	}
	offers, _ := s.OffersByMission(context.Background(), "m1")
	for _, o := range offers {
		if o.Live(now.Add(time.Second)) {
			t.Fatalf("offer survived assignment: %#v", o)
		}
	}

	if _, err := s.AssignMission(context.Background(), "m1", "tech-10", now); !errors.Is(err, ErrMissionAssigned) {
		t.Fatalf("re-assign via AssignMission: want ErrMissionAssigned, got %v", err)
	}
}

func TestRefuseOffer(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	seedMission(t, s, status.Published)
	seedOffers(t, s, now, "c1")

	o, err := s.RefuseOffer(context.Background(), "m1", "c1", now)
	if err != nil || o.RefusedAt == nil {
		t.Fatalf("refuse: %v %#v", err, o)
	}
	if _, _, err := s.AcceptOffer(context.Background(), "m1", "c1", now); !errors.Is(err, ErrNoLiveOffer) {
		t.Fatalf("accept after refuse: want ErrNoLiveOffer, got %v", err)
	}
}

func TestTransitionAtomicValidation(t *testing.T) {
	s := NewMemoryStore()
	seedMission(t, s, status.Draft)

	if _, _, err := s.Transition(context.Background(), "m1", lifecycle.OpComplete, nil); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
	m, _ := s.GetMission(context.Background(), "m1")
	if m.Status != status.Draft {
		t.Fatalf("rejected transition mutated state: %v", m.Status)
	}

	prev, cur, err := s.Transition(context.Background(), "m1", lifecycle.OpPublish, nil)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if prev.Status != status.Draft || cur.Status != status.Published {
		t.Fatalf("transition rows: %v -> %v", prev.Status, cur.Status)
	}
}

func TestTransitionMutateFailureLeavesRow(t *testing.T) {
	s := NewMemoryStore()
	seedMission(t, s, status.Draft)
	boom := errors.New("boom")
	if _, _, err := s.Transition(context.Background(), "m1", lifecycle.OpPublish, func(*model.Mission) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("want mutate error, got %v", err)
	}
	m, _ := s.GetMission(context.Background(), "m1")
	if m.Status != status.Draft {
		t.Fatalf("failed mutate left partial state: %v", m.Status)
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	seedMission(t, s, status.Billable)
	inv := model.Invoice{ID: "i1", MissionID: "m1", SubtotalMinor: 100, VATTotalMinor: 20, GrandTotalMinor: 120, IssuedAt: now}

	if _, _, err := s.MarkInvoicePaid(context.Background(), "m1", now, "card", ""); !errors.Is(err, billing.ErrNoUnpaidInvoice) {
		t.Fatalf("pay before issue: got %v", err)
	}
	m, err := s.IssueInvoice(context.Background(), inv)
	if err != nil {
		t.Fatalf("issue invoice: %v", err)
	}
	if m.Status != status.Invoiced || m.BillingStatus != status.BillingInvoiced {
		t.Fatalf("mission after issue: %v/%v", m.Status, m.BillingStatus)
	}
	if _, err := s.IssueInvoice(context.Background(), inv); !errors.Is(err, billing.ErrInvoiceAlreadyExists) {
		t.Fatalf("duplicate invoice: got %v", err)
	}
	paid, m2, err := s.MarkInvoicePaid(context.Background(), "m1", now, "card", "ref-1")
	if err != nil || !paid.Paid() {
		t.Fatalf("mark paid: %v %#v", err, paid)
	}
	if m2.Status != status.Paid || m2.BillingStatus != status.BillingPaid {
		t.Fatalf("mission after pay: %v/%v", m2.Status, m2.BillingStatus)
	}
	if _, _, err := s.MarkInvoicePaid(context.Background(), "m1", now, "card", ""); !errors.Is(err, billing.ErrNoUnpaidInvoice) {
		t.Fatalf("double pay: got %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	seedMission(t, s, status.Published)
	offers := []model.Offer{
		{ID: "o1", MissionID: "m1", CandidateID: "c1", ExpiresAt: now.Add(-time.Minute)},
		{ID: "o2", MissionID: "m1", CandidateID: "c2", ExpiresAt: now.Add(time.Minute)},
	}
	if err := s.CreateOffers(context.Background(), offers); err != nil {
		t.Fatal(err)
	}
	n, err := s.PurgeExpired(context.Background(), now)
	if err != nil || n != 1 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
	left, _ := s.OffersByMission(context.Background(), "m1")
	if len(left) != 1 || left[0].ID != "o2" {
		t.Fatalf("wrong offers left: %#v", left)
	}
}
