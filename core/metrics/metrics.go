package metrics

import "time"

// BroadcastEvent summarizes one geofenced offer broadcast.
type BroadcastEvent struct {
	MissionID string
	Pool      int
	Eligible  int
	Created   int
	TTL       time.Duration
	Time      time.Time
}

// AcceptanceEvent records the outcome of one accept call.
type AcceptanceEvent struct {
	MissionID   string
	CandidateID string
	Outcome     string
	Latency     time.Duration
	Time        time.Time
}

// TransitionEvent records a successful lifecycle transition.
type TransitionEvent struct {
	MissionID string
	Op        string
	From      string
	To        string
	Time      time.Time
}

// MetricsSink records dispatch events for observability purposes.
type MetricsSink interface {
	RecordBroadcast(ev BroadcastEvent) error
	RecordAcceptance(ev AcceptanceEvent) error
}

// TransitionRecorder is implemented by sinks interested in every lifecycle
// transition, not only dispatch events.
type TransitionRecorder interface {
	RecordTransition(ev TransitionEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordBroadcast(BroadcastEvent) error   { return nil }
func (NopSink) RecordAcceptance(AcceptanceEvent) error { return nil }
func (NopSink) RecordTransition(TransitionEvent) error { return nil }
