package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jbleroy/fieldops/core/events"
	"github.com/jbleroy/fieldops/core/metrics"
	"github.com/jbleroy/fieldops/core/store"
)

// Accept is the single mutating entry point candidates call to claim a
// mission. The store performs the check-and-set atomically: under N
// concurrent callers exactly one receives AcceptOK.
func (m *Manager) Accept(ctx context.Context, missionID, candidateID string) (AcceptOutcome, error) {
	start := m.now()
	offer, mission, err := m.store.AcceptOffer(ctx, missionID, candidateID, start)
	outcome := AcceptOK
	switch {
	case err == nil:
	case errors.Is(err, store.ErrMissionAssigned):
		outcome = AcceptAlreadyTaken
	case errors.Is(err, store.ErrNoLiveOffer):
		outcome = AcceptOfferNotFoundOrExpired
	default:
		outcome = AcceptFailed
		err = fmt.Errorf("accept mission %s: %w", missionID, err)
	}

	ev := metrics.AcceptanceEvent{
		MissionID:   missionID,
		CandidateID: candidateID,
		Outcome:     outcome.String(),
		Latency:     m.now().Sub(start),
		Time:        start,
	}
	if merr := m.metrics.RecordAcceptance(ev); merr != nil {
		m.logger.Errorf("acceptance metrics error: %v", merr)
	}

	if outcome != AcceptOK {
		m.logger.Infof("accept mission %s by %s: %s", missionID, candidateID, outcome)
		return outcome, err
	}

	m.logger.Infof("mission %s accepted by %s", missionID, candidateID)
	m.emit("mission_accepted", events.MissionAccepted{
		MissionID:   mission.ID,
		CandidateID: candidateID,
		OfferID:     offer.ID,
	})
	return AcceptOK, nil
}

// Refuse lets a candidate decline their live offer. Refusal is terminal for
// that offer only; sibling offers are untouched.
func (m *Manager) Refuse(ctx context.Context, missionID, candidateID string) error {
	offer, err := m.store.RefuseOffer(ctx, missionID, candidateID, m.now())
	if err != nil {
		return err
	}
	m.emit("offer_refused", events.OfferRefused{MissionID: missionID, CandidateID: candidateID, OfferID: offer.ID})
	return nil
}
