package provider

import (
	"context"

	"github.com/lei/suite-starter/internal/models"
	"github.com/lei/suite-starter/internal/render"
)

// Submitter abstracts the cluster scheduler the rendered manifests go to.
// It is a pure boundary: no retries, no manifest inspection; all business
// logic lives upstream in the renderer and dispatcher.
type Submitter interface {
	// LoadConfig resolves cluster endpoint, namespace and credentials.
	// Must be called once before the first Create.
	LoadConfig(ctx context.Context) error

	// Create issues exactly one Job creation call for the manifest under
	// the given job name and returns the cluster's handle for it
	Create(ctx context.Context, manifest *render.Manifest, jobName string) (*models.JobHandle, error)
}
