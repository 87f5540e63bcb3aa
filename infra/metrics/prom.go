package metrics

import (
	coremetrics "github.com/jbleroy/fieldops/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records dispatch events in Prometheus metrics.
type PromSink struct {
	broadcasts  prometheus.Counter
	offers      prometheus.Counter
	eligible    *prometheus.HistogramVec
	acceptance  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	transitions *prometheus.CounterVec
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The Prometheus server should be started separately via StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	broadcasts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mission_broadcasts_total",
		Help: "Total number of mission offer broadcasts",
	})
	offers := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mission_offers_created_total",
		Help: "Total number of offers created by broadcasts",
	})
	eligible := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mission_broadcast_eligible_candidates",
		Help:    "Eligible candidate count per broadcast",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	}, nil)
	acceptance := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mission_acceptance_total",
		Help: "Total number of acceptance attempts by outcome",
	}, []string{"outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mission_acceptance_latency_seconds",
		Help:    "Time spent in the acceptance check-and-set",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mission_transitions_total",
		Help: "Total number of mission lifecycle transitions",
	}, []string{"op", "from", "to"})

	s := &PromSink{
		broadcasts:  broadcasts,
		offers:      offers,
		eligible:    eligible,
		acceptance:  acceptance,
		latency:     latency,
		transitions: transitions,
	}
	collectors := []prometheus.Collector{broadcasts, offers, eligible, acceptance, latency, transitions}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			switch i {
			case 0:
				s.broadcasts = are.ExistingCollector.(prometheus.Counter)
			case 1:
				s.offers = are.ExistingCollector.(prometheus.Counter)
			case 2:
				s.eligible = are.ExistingCollector.(*prometheus.HistogramVec)
			case 3:
				s.acceptance = are.ExistingCollector.(*prometheus.CounterVec)
			case 4:
				s.latency = are.ExistingCollector.(*prometheus.HistogramVec)
			case 5:
				s.transitions = are.ExistingCollector.(*prometheus.CounterVec)
			}
		}
	}
	return s, nil
}

// RecordBroadcast counts the broadcast and its created offers.
func (s *PromSink) RecordBroadcast(ev coremetrics.BroadcastEvent) error {
	s.broadcasts.Inc()
	s.offers.Add(float64(ev.Created))
	s.eligible.WithLabelValues().Observe(float64(ev.Eligible))
	return nil
}

// RecordAcceptance counts the attempt and observes its latency per outcome.
func (s *PromSink) RecordAcceptance(ev coremetrics.AcceptanceEvent) error {
	s.acceptance.WithLabelValues(ev.Outcome).Inc()
	s.latency.WithLabelValues(ev.Outcome).Observe(ev.Latency.Seconds())
	return nil
}

// RecordTransition counts a lifecycle transition.
func (s *PromSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	s.transitions.WithLabelValues(ev.Op, ev.From, ev.To).Inc()
	return nil
}
