package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/lei/suite-starter/pkg/logger"
)

func TestPrometheusSink_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg, logger.New("error", "json"))

	sink.EventReceived()
	sink.EventReceived()
	sink.EventRejected(RejectInvalid)
	sink.EventRejected(RejectDuplicate)
	sink.SubmissionOutcome(OutcomeSubmitted)
	sink.EventsInFlightIncr()
	sink.EventsInFlightIncr()
	sink.EventsInFlightDecr()

	assert.Equal(t, float64(2), testutil.ToFloat64(sink.eventsReceivedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.eventsRejectedTotal.WithLabelValues(RejectInvalid)))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.eventsRejectedTotal.WithLabelValues(RejectDuplicate)))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.submissionsTotal.WithLabelValues(OutcomeSubmitted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.eventsInFlight))
}

func TestPrometheusSink_RenderFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg, logger.New("error", "json"))

	sink.RenderCompleted(5*time.Millisecond, nil)
	assert.Equal(t, float64(0), testutil.ToFloat64(sink.renderFailuresTotal))

	sink.RenderCompleted(5*time.Millisecond, errors.New("boom"))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.renderFailuresTotal))
}

func TestPrometheusSink_DuplicateRegistrationIsAbsorbed(t *testing.T) {
	reg := prometheus.NewRegistry()
	log := logger.New("error", "json")

	NewPrometheusSink(reg, log)
	// Second sink on the same registry logs and keeps working
	sink := NewPrometheusSink(reg, log)
	sink.EventReceived()
}
