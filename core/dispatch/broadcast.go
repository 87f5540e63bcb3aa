package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jbleroy/fieldops/core/events"
	"github.com/jbleroy/fieldops/core/lifecycle"
	"github.com/jbleroy/fieldops/core/metrics"
	"github.com/jbleroy/fieldops/core/model"
)

// Publish broadcasts a mission to every geographically eligible candidate,
// creating one time-bounded offer per candidate. Re-publishing never
// duplicates live offers: candidates already holding one are skipped.
func (m *Manager) Publish(ctx context.Context, missionID string, ttl time.Duration, includeEmployees bool) ([]model.Offer, error) {
	start := m.now()
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL()
	}

	mission, err := m.store.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if mission.Location == nil {
		return nil, ErrNoCoordinates
	}
	if _, err := lifecycle.Next(mission.Status, lifecycle.OpPublish); err != nil {
		return nil, err
	}

	pool, err := m.source.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("candidate pool: %w", err)
	}

	existing, err := m.store.OffersByMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	holding := make(map[string]bool, len(existing))
	for _, o := range existing {
		if o.Live(start) {
			holding[o.CandidateID] = true
		}
	}

	eligible := 0
	var offers []model.Offer
	expiresAt := start.Add(ttl)
	for _, c := range pool {
		pos, ok := m.resolvePosition(c, start)
		if !ok || !c.Available {
			continue
		}
		if c.Role == model.RoleEmployee && !includeEmployees {
			continue
		}
		dist := mission.Location.DistanceKM(pos)
		if dist > c.EffectiveRadiusKM() {
			m.logger.Debugw("candidate out of radius", map[string]any{
				"mission_id":   missionID,
				"candidate_id": c.ID,
				"distance_km":  dist,
				"radius_km":    c.EffectiveRadiusKM(),
			})
			continue
		}
		eligible++
		if holding[c.ID] {
			continue
		}
		offers = append(offers, model.Offer{
			ID:          uuid.NewString(),
			MissionID:   missionID,
			CandidateID: c.ID,
			CreatedAt:   start,
			ExpiresAt:   expiresAt,
		})
	}

	if len(offers) > 0 {
		if err := m.store.CreateOffers(ctx, offers); err != nil {
			return nil, err
		}
	}

	// First publication moves the mission out of draft; re-publication is a
	// no-op transition.
	prev, cur, err := m.store.Transition(ctx, missionID, lifecycle.OpPublish, nil)
	if err != nil {
		return nil, err
	}
	m.recordTransition(prev, cur, lifecycle.OpPublish)

	ev := metrics.BroadcastEvent{
		MissionID: missionID,
		Pool:      len(pool),
		Eligible:  eligible,
		Created:   len(offers),
		TTL:       ttl,
		Time:      start,
	}
	if err := m.metrics.RecordBroadcast(ev); err != nil {
		m.logger.Errorf("broadcast metrics error: %v", err)
	}

	ids := make([]string, len(offers))
	for i, o := range offers {
		ids[i] = o.ID
	}
	m.logger.Infof("mission %s broadcast to %d candidates (%d eligible, pool %d)", missionID, len(offers), eligible, len(pool))
	m.emit("offers_created", events.OffersCreated{MissionID: missionID, OfferIDs: ids, ExpiresAt: expiresAt})
	return offers, nil
}

// resolvePosition applies the location-mode rule: a fresh live-tracked
// coordinate wins, the fixed profile coordinate is the fallback, and a
// candidate with neither is excluded.
func (m *Manager) resolvePosition(c model.Candidate, now time.Time) (model.Coordinate, bool) {
	if c.LocationMode == model.LocationGPSRealtime {
		if p, ok := m.presence.Get(c.ID); ok && p.Fresh(now, m.cfg.PresenceFreshness()) {
			return p.Coordinate, true
		}
	}
	if c.Home != nil {
		return *c.Home, true
	}
	return model.Coordinate{}, false
}
