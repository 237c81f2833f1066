package kubernetes

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lei/suite-starter/internal/models"
	"github.com/lei/suite-starter/internal/patch"
	"github.com/lei/suite-starter/internal/render"
	"github.com/lei/suite-starter/pkg/logger"
)

// Adapter implements the Submitter interface against the cluster API
type Adapter struct {
	config *Config
	logger *logger.Logger

	mu        sync.Mutex
	client    *Client
	namespace string
}

// Config contains cluster connection settings
type Config struct {
	// Host of the API server, e.g. https://10.0.0.1:443. Empty means
	// in-cluster discovery via KUBERNETES_SERVICE_HOST/PORT.
	Host string

	// Namespace jobs are created in. Empty means the service-account
	// namespace file.
	Namespace     string
	NamespaceFile string

	BearerToken string
	TokenFile   string

	Timeout            time.Duration
	RefreshMargin      time.Duration
	InsecureSkipVerify bool
}

// NewAdapter creates a new cluster adapter. LoadConfig must run before the
// first Create.
func NewAdapter(cfg *Config, log *logger.Logger) *Adapter {
	return &Adapter{
		config: cfg,
		logger: log,
	}
}

// LoadConfig resolves the API server endpoint, namespace and credentials
func (a *Adapter) LoadConfig(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return nil
	}

	host := a.config.Host
	if host == "" {
		serviceHost := os.Getenv("KUBERNETES_SERVICE_HOST")
		servicePort := os.Getenv("KUBERNETES_SERVICE_PORT")
		if serviceHost == "" || servicePort == "" {
			return fmt.Errorf("no cluster host configured and not running in-cluster")
		}
		host = fmt.Sprintf("https://%s:%s", serviceHost, servicePort)
	}

	namespace := a.config.Namespace
	if namespace == "" {
		namespaceFile := a.config.NamespaceFile
		if namespaceFile == "" {
			namespaceFile = DefaultNamespaceFile
		}
		data, err := os.ReadFile(namespaceFile)
		if err != nil {
			return fmt.Errorf("resolve namespace: %w", err)
		}
		namespace = strings.TrimSpace(string(data))
	}
	if namespace == "" {
		return fmt.Errorf("resolved namespace is empty")
	}

	tokenFile := a.config.TokenFile
	if a.config.BearerToken == "" && tokenFile == "" {
		tokenFile = DefaultTokenFile
	}

	timeout := a.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	tokenManager := NewTokenManager(a.config.BearerToken, tokenFile, a.config.RefreshMargin)
	a.client = NewClient(host, tokenManager, timeout, a.config.InsecureSkipVerify, a.logger)
	a.namespace = namespace

	a.logger.Info("provider: cluster config loaded",
		"host", host,
		"namespace", namespace)
	return nil
}

// Create implements Submitter.Create: one creation call, no retries
func (a *Adapter) Create(ctx context.Context, manifest *render.Manifest, jobName string) (*models.JobHandle, error) {
	a.mu.Lock()
	client, namespace := a.client, a.namespace
	a.mu.Unlock()

	if client == nil {
		return nil, fmt.Errorf("cluster config not loaded")
	}

	setJobName(manifest.Root(), jobName)

	body, err := manifest.JSON()
	if err != nil {
		return nil, fmt.Errorf("serialize manifest: %w", err)
	}

	a.logger.Debug("provider: creating job",
		"namespace", namespace,
		"job_name", jobName,
		"manifest_bytes", len(body))

	job, err := client.CreateJob(ctx, namespace, body)
	if err != nil {
		a.logger.Error("provider: failed to create job",
			"namespace", namespace,
			"job_name", jobName,
			"error", err)
		return nil, err
	}

	a.logger.Info("provider: job created",
		"namespace", job.Metadata.Namespace,
		"job_name", job.Metadata.Name,
		"uid", job.Metadata.UID)

	return &models.JobHandle{
		Name:      job.Metadata.Name,
		Namespace: job.Metadata.Namespace,
		UID:       job.Metadata.UID,
	}, nil
}

// HealthCheck verifies the API server is reachable with current credentials
func (a *Adapter) HealthCheck(ctx context.Context) error {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()

	if client == nil {
		return fmt.Errorf("cluster config not loaded")
	}
	return client.Ping(ctx)
}

// setJobName writes the job name into metadata.name of the manifest.
// Manifests are per-event and never reused, so mutating here is safe.
func setJobName(root *yaml.Node, jobName string) {
	metadata := patch.MapGet(root, "metadata")
	if metadata == nil || metadata.Kind != yaml.MappingNode {
		metadata = patch.Mapping()
		patch.MapSet(root, "metadata", metadata)
	}
	patch.MapSet(metadata, "name", patch.Scalar(jobName))
}
