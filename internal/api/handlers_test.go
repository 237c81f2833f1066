package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/lei/suite-starter/internal/dispatcher"
	"github.com/lei/suite-starter/internal/models"
	"github.com/lei/suite-starter/internal/render"
	"github.com/lei/suite-starter/internal/template"
	"github.com/lei/suite-starter/pkg/logger"
)

const testTemplate = `
spec:
  template:
    spec:
      containers:
        - name: etos-suite-runner
          image: registry/suite-runner:stable
          env:
            - name: LOG_LEVEL
              value: INFO
`

type stubSubmitter struct{}

func (stubSubmitter) LoadConfig(ctx context.Context) error { return nil }

func (stubSubmitter) Create(ctx context.Context, manifest *render.Manifest, jobName string) (*models.JobHandle, error) {
	return &models.JobHandle{Name: jobName, Namespace: "etos"}, nil
}

type stubHealth struct {
	err error
}

func (s stubHealth) HealthCheck(ctx context.Context) error { return s.err }

func testDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.yaml")
	if err := os.WriteFile(path, []byte(testTemplate), 0o600); err != nil {
		t.Fatalf("write template: %v", err)
	}
	tmpl, err := template.Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	settings := func() dispatcher.RunSettings {
		return dispatcher.RunSettings{RunnerImage: "registry/suite-runner:pinned"}
	}
	return dispatcher.New(tmpl, render.New("etos-suite-runner"), stubSubmitter{}, settings, logger.New("error", "json"))
}

func TestHealth_NoChecker(t *testing.T) {
	handlers := NewHandlers(testDispatcher(t), nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handlers.Health(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Health() status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Health() body not json: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Health() status field = %v, want healthy", body["status"])
	}
}

func TestHealth_DegradedWhenClusterUnreachable(t *testing.T) {
	handlers := NewHandlers(testDispatcher(t), stubHealth{err: errors.New("connection refused")})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handlers.Health(w, req)

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Health() body not json: %v", err)
	}
	if body["status"] != "degraded" {
		t.Errorf("Health() status field = %v, want degraded", body["status"])
	}
}

func TestStatus_ReportsSubmissions(t *testing.T) {
	d := testDispatcher(t)

	event := models.Event{
		Meta: models.Meta{ID: uuid.NewString(), Type: models.EventType},
		Data: models.Data{
			BatchesURI: "http://recipe-store/batches/1",
			SelectionStrategy: models.SelectionStrategy{
				Tracker: "Suite Builder",
				ID:      uuid.NewString(),
			},
		},
		Links: []models.Link{{Type: models.LinkCause, Target: uuid.NewString()}},
	}
	if _, err := d.OnEvent(context.Background(), event); err != nil {
		t.Fatalf("OnEvent() error = %v", err)
	}

	handlers := NewHandlers(d, nil)
	req := httptest.NewRequest("GET", "/v1/status", nil)
	w := httptest.NewRecorder()

	handlers.Status(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status() status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Stats             dispatcher.Stats    `json:"stats"`
		RecentSubmissions []models.Submission `json:"recent_submissions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Status() body not json: %v", err)
	}
	if body.Stats.Submitted != 1 {
		t.Errorf("Status() submitted = %d, want 1", body.Stats.Submitted)
	}
	if len(body.RecentSubmissions) != 1 {
		t.Fatalf("Status() recent = %d entries, want 1", len(body.RecentSubmissions))
	}
	if body.RecentSubmissions[0].EventID != event.Meta.ID {
		t.Errorf("Status() event_id = %s, want %s", body.RecentSubmissions[0].EventID, event.Meta.ID)
	}
}
