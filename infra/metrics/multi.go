package metrics

import coremetrics "github.com/jbleroy/fieldops/core/metrics"

// MultiSink fans dispatch events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordBroadcast forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordBroadcast(ev coremetrics.BroadcastEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordBroadcast(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordAcceptance forwards the event to all sinks.
func (m *MultiSink) RecordAcceptance(ev coremetrics.AcceptanceEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAcceptance(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordTransition forwards transition events to sinks that support them.
func (m *MultiSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.TransitionRecorder); ok {
			if err := rec.RecordTransition(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
