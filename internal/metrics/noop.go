package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) EventReceived()                                  {}
func (n *NoopSink) EventRejected(reason string)                     {}
func (n *NoopSink) RenderCompleted(duration time.Duration, _ error) {}
func (n *NoopSink) SubmissionOutcome(outcome string)                {}
func (n *NoopSink) EventsInFlightIncr()                             {}
func (n *NoopSink) EventsInFlightDecr()                             {}
