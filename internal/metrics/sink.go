package metrics

import "time"

// Sink defines the interface for recording starter metrics.
// All methods are fire-and-forget: implementations MUST NOT block or
// propagate errors.
type Sink interface {
	// EventReceived counts every TERCC delivered by the bus
	EventReceived()

	// EventRejected counts events dropped before rendering
	EventRejected(reason string)

	// RenderCompleted records one render with its duration and outcome
	RenderCompleted(duration time.Duration, err error)

	// SubmissionOutcome counts the final outcome of one submission attempt
	SubmissionOutcome(outcome string)

	EventsInFlightIncr()
	EventsInFlightDecr()
}

// Reason constants for EventRejected.
const (
	RejectDecode    = "decode"
	RejectInvalid   = "invalid"
	RejectDuplicate = "duplicate"
)

// Outcome constants for SubmissionOutcome.
const (
	OutcomeSubmitted = "submitted"
	OutcomeFailed    = "failed"
)
