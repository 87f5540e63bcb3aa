package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jbleroy/fieldops/core/events"
	"github.com/jbleroy/fieldops/core/lifecycle"
	"github.com/jbleroy/fieldops/core/logger"
	"github.com/jbleroy/fieldops/core/metrics"
	"github.com/jbleroy/fieldops/core/model"
	"github.com/jbleroy/fieldops/core/presence"
	"github.com/jbleroy/fieldops/core/store"
	"github.com/jbleroy/fieldops/internal/eventbus"
)

// Manager is the mission dispatch engine. All operator and candidate
// commands enter through it; the store is the transaction boundary, the bus
// carries fire-and-forget notifications.
type Manager struct {
	store    store.Store
	source   CandidateSource
	presence presence.Store
	bus      eventbus.EventBus
	logger   logger.Logger
	metrics  metrics.MetricsSink
	cfg      Config
	now      func() time.Time
}

// NewManager creates a new manager. The bus and metrics sink may be nil;
// events and metrics are then dropped.
func NewManager(st store.Store, source CandidateSource, pres presence.Store, bus eventbus.EventBus, log logger.Logger, sink metrics.MetricsSink, cfg Config) (*Manager, error) {
	if st == nil || source == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewManager")
	}
	cfg.SetDefaults()
	if pres == nil {
		pres = presence.NewMemoryStore()
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Manager{
		store:    st,
		source:   source,
		presence: pres,
		bus:      bus,
		logger:   log,
		metrics:  sink,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// SetClock overrides the time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// Close releases resources held by the manager.
func (m *Manager) Close() error {
	if m.bus != nil {
		m.bus.Close()
	}
	return m.store.Close()
}

func (m *Manager) emit(kind string, payload any) {
	if m.bus != nil {
		m.bus.Publish(eventbus.Notification{Kind: kind, Payload: payload})
	}
}

func (m *Manager) recordTransition(prev, cur model.Mission, op lifecycle.Op) {
	tr, ok := m.metrics.(metrics.TransitionRecorder)
	if !ok {
		return
	}
	ev := metrics.TransitionEvent{
		MissionID: cur.ID,
		Op:        op.String(),
		From:      prev.Status.String(),
		To:        cur.Status.String(),
		Time:      m.now(),
	}
	if err := tr.RecordTransition(ev); err != nil {
		m.logger.Errorf("transition metrics error: %v", err)
	}
}

// CreateMission registers a new draft mission and returns it with its
// generated identity.
func (m *Manager) CreateMission(ctx context.Context, mission model.Mission) (model.Mission, error) {
	if mission.ID == "" {
		mission.ID = uuid.NewString()
	}
	now := m.now()
	mission.CreatedAt = now
	mission.UpdatedAt = now
	if err := mission.Validate(); err != nil {
		return model.Mission{}, err
	}
	if err := m.store.CreateMission(ctx, mission); err != nil {
		return model.Mission{}, err
	}
	m.logger.Infof("mission %s created", mission.ID)
	return mission, nil
}

// GetMission returns the stored mission.
func (m *Manager) GetMission(ctx context.Context, id string) (model.Mission, error) {
	return m.store.GetMission(ctx, id)
}

// UpdateDetails replaces the editable fields of an unassigned mission.
// Once a mission has an owner it is locked: only lifecycle transitions
// remain legal.
func (m *Manager) UpdateDetails(ctx context.Context, mission model.Mission) error {
	cur, err := m.store.GetMission(ctx, mission.ID)
	if err != nil {
		return err
	}
	if cur.Locked() {
		return ErrMissionLocked
	}
	cur.Title = mission.Title
	cur.Location = mission.Location
	cur.EstimatedDuration = mission.EstimatedDuration
	cur.PriceTotal = mission.PriceTotal
	cur.PriceSubcontractor = mission.PriceSubcontractor
	cur.UpdatedAt = m.now()
	return m.store.UpdateMission(ctx, cur)
}

// DeleteMission removes an unassigned mission and its offers.
func (m *Manager) DeleteMission(ctx context.Context, id string) error {
	cur, err := m.store.GetMission(ctx, id)
	if err != nil {
		return err
	}
	if cur.Locked() {
		return ErrMissionLocked
	}
	return m.store.DeleteMission(ctx, id)
}

// Schedule sets the start window. End may be zero when open-ended.
func (m *Manager) Schedule(ctx context.Context, id string, start, end time.Time) error {
	prev, cur, err := m.store.Transition(ctx, id, lifecycle.OpSchedule, func(ms *model.Mission) error {
		ms.ScheduledStart = start
		ms.ScheduledEnd = end
		return nil
	})
	if err != nil {
		return err
	}
	m.recordTransition(prev, cur, lifecycle.OpSchedule)
	m.emit("mission_scheduled", events.MissionScheduled{MissionID: id, Start: start, End: end})
	return nil
}

// StartTravel marks the assignee en route to the mission site.
func (m *Manager) StartTravel(ctx context.Context, id string) error {
	return m.plainTransition(ctx, id, lifecycle.OpStartTravel)
}

// StartWork marks work begun on site.
func (m *Manager) StartWork(ctx context.Context, id string) error {
	return m.plainTransition(ctx, id, lifecycle.OpStartWork)
}

// Pause interrupts in-progress work. The reason is mandatory.
func (m *Manager) Pause(ctx context.Context, id, reason, note string) error {
	if reason == "" {
		return lifecycle.ErrReasonRequired
	}
	prev, cur, err := m.store.Transition(ctx, id, lifecycle.OpPause, func(ms *model.Mission) error {
		ms.PauseReason = reason
		return nil
	})
	if err != nil {
		return err
	}
	m.recordTransition(prev, cur, lifecycle.OpPause)
	m.emit("mission_paused", events.MissionPaused{MissionID: id, Reason: reason, Note: note})
	return nil
}

// Resume restarts paused work.
func (m *Manager) Resume(ctx context.Context, id string) error {
	prev, cur, err := m.store.Transition(ctx, id, lifecycle.OpResume, func(ms *model.Mission) error {
		ms.PauseReason = ""
		return nil
	})
	if err != nil {
		return err
	}
	m.recordTransition(prev, cur, lifecycle.OpResume)
	m.emit("mission_transitioned", events.MissionTransitioned{MissionID: id, Op: lifecycle.OpResume.String(), Status: cur.Status.String()})
	return nil
}

// Complete marks the work done, entering the billable review class.
func (m *Manager) Complete(ctx context.Context, id string) error {
	return m.plainTransition(ctx, id, lifecycle.OpComplete)
}

// ValidateReport approves the completion report.
func (m *Manager) ValidateReport(ctx context.Context, id string) error {
	return m.plainTransition(ctx, id, lifecycle.OpValidateReport)
}

// RejectReport sends the mission back to rework. The reason is mandatory;
// this is the only transition accepting free-text justification.
func (m *Manager) RejectReport(ctx context.Context, id, reason, details string) error {
	if reason == "" {
		return lifecycle.ErrReasonRequired
	}
	prev, cur, err := m.store.Transition(ctx, id, lifecycle.OpRejectReport, nil)
	if err != nil {
		return err
	}
	m.recordTransition(prev, cur, lifecycle.OpRejectReport)
	m.emit("report_rejected", events.ReportRejected{MissionID: id, Reason: reason, Details: details})
	return nil
}

// CloseMission archives a paid mission.
func (m *Manager) CloseMission(ctx context.Context, id string) error {
	return m.plainTransition(ctx, id, lifecycle.OpClose)
}

// Cancel aborts a mission from any non-terminal state and voids its live
// offers.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	prev, cur, err := m.store.Transition(ctx, id, lifecycle.OpCancel, nil)
	if err != nil {
		return err
	}
	if n, err := m.store.VoidLiveOffers(ctx, id, m.now()); err != nil {
		m.logger.Errorf("void offers for cancelled mission %s: %v", id, err)
	} else if n > 0 {
		m.logger.Infof("cancelled mission %s: %d live offers voided", id, n)
	}
	m.recordTransition(prev, cur, lifecycle.OpCancel)
	m.emit("mission_cancelled", events.MissionCancelled{MissionID: id})
	return nil
}

func (m *Manager) plainTransition(ctx context.Context, id string, op lifecycle.Op) error {
	prev, cur, err := m.store.Transition(ctx, id, op, nil)
	if err != nil {
		return err
	}
	m.recordTransition(prev, cur, op)
	m.emit("mission_transitioned", events.MissionTransitioned{MissionID: id, Op: op.String(), Status: cur.Status.String()})
	return nil
}
