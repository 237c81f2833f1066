package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lei/suite-starter/pkg/logger"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated: a metric that fails
// to register simply stops being exported.
type PrometheusSink struct {
	logger *logger.Logger

	eventsReceivedTotal prometheus.Counter
	eventsRejectedTotal *prometheus.CounterVec
	renderFailuresTotal prometheus.Counter
	renderDuration      prometheus.Histogram
	submissionsTotal    *prometheus.CounterVec
	eventsInFlight      prometheus.Gauge
}

// NewPrometheusSink creates a Prometheus metrics sink registered on reg.
func NewPrometheusSink(reg prometheus.Registerer, log *logger.Logger) *PrometheusSink {
	s := &PrometheusSink{logger: log}

	s.eventsReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "suitestarter_events_received_total",
		Help: "Total number of TERCC events delivered by the bus.",
	})
	s.eventsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "suitestarter_events_rejected_total",
		Help: "Total number of events dropped before rendering.",
	}, []string{"reason"})
	s.renderFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "suitestarter_render_failures_total",
		Help: "Total number of failed manifest renders.",
	})
	s.renderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "suitestarter_render_duration_seconds",
		Help:    "Duration of manifest rendering in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	s.submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "suitestarter_submissions_total",
		Help: "Total number of Job submission outcomes.",
	}, []string{"outcome"})
	s.eventsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "suitestarter_events_in_flight",
		Help: "Number of events currently being processed.",
	})

	s.register(reg, s.eventsReceivedTotal, "suitestarter_events_received_total")
	s.register(reg, s.eventsRejectedTotal, "suitestarter_events_rejected_total")
	s.register(reg, s.renderFailuresTotal, "suitestarter_render_failures_total")
	s.register(reg, s.renderDuration, "suitestarter_render_duration_seconds")
	s.register(reg, s.submissionsTotal, "suitestarter_submissions_total")
	s.register(reg, s.eventsInFlight, "suitestarter_events_in_flight")

	return s
}

// register attempts to register a collector, logging any errors without
// propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		s.logger.Warn("metrics: failed to register collector",
			"name", name,
			"error", err)
	}
}

func (s *PrometheusSink) EventReceived() {
	s.eventsReceivedTotal.Inc()
}

func (s *PrometheusSink) EventRejected(reason string) {
	s.eventsRejectedTotal.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) RenderCompleted(duration time.Duration, err error) {
	s.renderDuration.Observe(duration.Seconds())
	if err != nil {
		s.renderFailuresTotal.Inc()
	}
}

func (s *PrometheusSink) SubmissionOutcome(outcome string) {
	s.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) EventsInFlightIncr() {
	s.eventsInFlight.Inc()
}

func (s *PrometheusSink) EventsInFlightDecr() {
	s.eventsInFlight.Dec()
}
