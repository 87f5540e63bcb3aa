package dispatch

import (
	"context"
	"fmt"

	"github.com/jbleroy/fieldops/core/events"
	"github.com/jbleroy/fieldops/core/model"
)

// Assign is the admin override path: it bypasses offers and eligibility and
// is usable whenever the mission is unassigned. When the chosen candidate
// sits outside their eligibility radius the caller must confirm with
// overrideRadius; any still-live offers are voided by the assignment.
func (m *Manager) Assign(ctx context.Context, missionID, userID string, overrideRadius bool) error {
	now := m.now()

	mission, err := m.store.GetMission(ctx, missionID)
	if err != nil {
		return err
	}

	overridden := false
	if mission.Location != nil {
		if c, ok := m.lookupCandidate(ctx, userID); ok {
			if pos, ok := m.resolvePosition(c, now); ok {
				dist := mission.Location.DistanceKM(pos)
				if dist > c.EffectiveRadiusKM() {
					if !overrideRadius {
						return fmt.Errorf("%w: %s at %.1f km, radius %.1f km", ErrOutOfRadius, userID, dist, c.EffectiveRadiusKM())
					}
					overridden = true
					m.logger.Warnf("mission %s assigned to %s outside radius (%.1f km)", missionID, userID, dist)
				}
			}
		}
	}

	cur, err := m.store.AssignMission(ctx, missionID, userID, now)
	if err != nil {
		return err
	}

	m.logger.Infof("mission %s assigned to %s by operator", missionID, userID)
	m.emit("mission_assigned", events.MissionAssigned{MissionID: cur.ID, UserID: userID, Overridden: overridden})
	return nil
}

func (m *Manager) lookupCandidate(ctx context.Context, userID string) (model.Candidate, bool) {
	pool, err := m.source.Candidates(ctx)
	if err != nil {
		m.logger.Errorf("candidate pool for assignment check: %v", err)
		return model.Candidate{}, false
	}
	for _, c := range pool {
		if c.ID == userID {
			return c, true
		}
	}
	return model.Candidate{}, false
}
