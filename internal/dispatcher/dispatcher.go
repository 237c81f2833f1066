// Package dispatcher is the bus-facing callback: one TERCC event in, at
// most one rendered manifest and one cluster submission out.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/lei/suite-starter/internal/metrics"
	"github.com/lei/suite-starter/internal/models"
	"github.com/lei/suite-starter/internal/provider"
	"github.com/lei/suite-starter/internal/render"
	"github.com/lei/suite-starter/internal/template"
	"github.com/lei/suite-starter/pkg/logger"
)

// DefaultDedupeTTL bounds how long processed event ids are remembered.
// Replays inside the window are dropped; outside it, at-least-once bus
// delivery can still produce a second Job (accepted, logged risk).
const DefaultDedupeTTL = time.Hour

// JobNamePrefix prefixes the deterministic per-event job name
const JobNamePrefix = "suite-runner-"

// recentLimit bounds the in-memory record of submissions kept for the
// status endpoint
const recentLimit = 20

// RunSettings is the immutable per-render snapshot of process-wide
// configuration, taken once per event so a concurrent config update can
// never be observed mid-render.
type RunSettings struct {
	ConfigMaps  []string
	RunnerImage string
}

// SettingsFunc supplies the RunSettings snapshot for one event
type SettingsFunc func() RunSettings

// Stats are the dispatcher's lifetime counters
type Stats struct {
	Received   uint64 `json:"received"`
	Rejected   uint64 `json:"rejected"`
	Duplicates uint64 `json:"duplicates"`
	Submitted  uint64 `json:"submitted"`
	Failed     uint64 `json:"failed"`
}

// Dispatcher processes one TERCC event to completion: validate, snapshot
// settings, render, submit
type Dispatcher struct {
	template  *template.Template
	renderer  *render.Renderer
	submitter provider.Submitter
	settings  SettingsFunc
	seen      *gocache.Cache
	metrics   metrics.Sink // optional, nil = disabled
	logger    *logger.Logger

	mu     sync.Mutex
	stats  Stats
	recent []models.Submission
}

// New creates a dispatcher over a loaded template
func New(tmpl *template.Template, renderer *render.Renderer, submitter provider.Submitter, settings SettingsFunc, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		template:  tmpl,
		renderer:  renderer,
		submitter: submitter,
		settings:  settings,
		seen:      gocache.New(DefaultDedupeTTL, 10*time.Minute),
		logger:    log,
	}
}

// WithMetrics attaches a metrics sink to the dispatcher
func (d *Dispatcher) WithMetrics(sink metrics.Sink) *Dispatcher {
	d.metrics = sink
	return d
}

// WithDedupeTTL overrides how long processed event ids are remembered
func (d *Dispatcher) WithDedupeTTL(ttl time.Duration) *Dispatcher {
	if ttl > 0 {
		d.seen = gocache.New(ttl, ttl)
	}
	return d
}

// JobName derives the deterministic cluster Job name for an event id
func JobName(eventID string) string {
	return JobNamePrefix + eventID
}

// OnEvent handles one delivered TERCC event.
//
// Returns (false, nil) when the event is rejected (invalid or duplicate) so
// the bus layer can acknowledge and move on, (false, err) when rendering or
// submission failed, and (true, nil) when exactly one Job was submitted.
func (d *Dispatcher) OnEvent(ctx context.Context, event models.Event) (bool, error) {
	if d.metrics != nil {
		d.metrics.EventReceived()
		d.metrics.EventsInFlightIncr()
		defer d.metrics.EventsInFlightDecr()
	}
	d.count(func(s *Stats) { s.Received++ })

	if err := event.Validate(); err != nil {
		d.logger.Warn("dispatcher: rejecting invalid event",
			"event_id", event.Meta.ID,
			"error", err)
		d.reject(metrics.RejectInvalid)
		return false, nil
	}

	if _, dup := d.seen.Get(event.Meta.ID); dup {
		d.logger.Info("dispatcher: dropping duplicate event",
			"event_id", event.Meta.ID)
		d.count(func(s *Stats) { s.Duplicates++ })
		if d.metrics != nil {
			d.metrics.EventRejected(metrics.RejectDuplicate)
		}
		return false, nil
	}

	settings := d.settings()
	correlationID := event.Meta.ID
	jobName := JobName(event.Meta.ID)

	d.logger.Debug("dispatcher: rendering manifest",
		"event_id", event.Meta.ID,
		"job_name", jobName,
		"configmap_count", len(settings.ConfigMaps),
		"runner_image", settings.RunnerImage)

	start := time.Now()
	manifest, err := d.renderer.Render(d.template, render.Input{
		Event:         event,
		CorrelationID: correlationID,
		ConfigMaps:    settings.ConfigMaps,
		RunnerImage:   settings.RunnerImage,
	})
	if d.metrics != nil {
		d.metrics.RenderCompleted(time.Since(start), err)
	}
	if err != nil {
		d.logger.Error("dispatcher: render failed",
			"event_id", event.Meta.ID,
			"error", err)
		d.count(func(s *Stats) { s.Failed++ })
		return false, fmt.Errorf("render manifest: %w", err)
	}

	handle, err := d.submitter.Create(ctx, manifest, jobName)
	if err != nil {
		d.logger.Error("dispatcher: submission failed",
			"event_id", event.Meta.ID,
			"job_name", jobName,
			"error", err)
		d.count(func(s *Stats) { s.Failed++ })
		if d.metrics != nil {
			d.metrics.SubmissionOutcome(metrics.OutcomeFailed)
		}
		return false, fmt.Errorf("submit job: %w", err)
	}

	// Remember the event id only after a successful submission so a
	// redelivered event can still complete a failed run.
	d.seen.Set(event.Meta.ID, struct{}{}, gocache.DefaultExpiration)

	d.logger.Info("dispatcher: suite runner started",
		"event_id", event.Meta.ID,
		"correlation_id", correlationID,
		"job_name", handle.Name,
		"namespace", handle.Namespace)

	d.count(func(s *Stats) { s.Submitted++ })
	if d.metrics != nil {
		d.metrics.SubmissionOutcome(metrics.OutcomeSubmitted)
	}
	d.record(models.Submission{
		EventID:       event.Meta.ID,
		CorrelationID: correlationID,
		JobName:       handle.Name,
		Namespace:     handle.Namespace,
		SubmittedAt:   time.Now().Unix(),
	})

	return true, nil
}

// Status returns the lifetime counters and the most recent submissions,
// newest last
func (d *Dispatcher) Status() (Stats, []models.Submission) {
	d.mu.Lock()
	defer d.mu.Unlock()
	recent := make([]models.Submission, len(d.recent))
	copy(recent, d.recent)
	return d.stats, recent
}

func (d *Dispatcher) reject(reason string) {
	d.count(func(s *Stats) { s.Rejected++ })
	if d.metrics != nil {
		d.metrics.EventRejected(reason)
	}
}

func (d *Dispatcher) count(update func(*Stats)) {
	d.mu.Lock()
	update(&d.stats)
	d.mu.Unlock()
}

func (d *Dispatcher) record(sub models.Submission) {
	d.mu.Lock()
	d.recent = append(d.recent, sub)
	if len(d.recent) > recentLimit {
		d.recent = d.recent[len(d.recent)-recentLimit:]
	}
	d.mu.Unlock()
}
