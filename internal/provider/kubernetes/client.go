package kubernetes

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lei/suite-starter/internal/provider"
	"github.com/lei/suite-starter/pkg/logger"
)

// Client handles HTTP communication with the cluster API server
type Client struct {
	baseURL      string
	tokenManager *TokenManager
	httpClient   *http.Client
	logger       *logger.Logger
}

// JobObject is the slice of a batch/v1 Job response the starter cares about
type JobObject struct {
	Metadata struct {
		Name      string `json:"name"`
		Namespace string `json:"namespace"`
		UID       string `json:"uid"`
	} `json:"metadata"`
}

// NewClient creates a new cluster API client
func NewClient(baseURL string, tokenManager *TokenManager, timeout time.Duration, insecureSkipVerify bool, log *logger.Logger) *Client {
	transport := http.DefaultTransport
	if insecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		baseURL:      baseURL,
		tokenManager: tokenManager,
		httpClient:   &http.Client{Timeout: timeout, Transport: transport},
		logger:       log,
	}
}

// doRequest performs an authenticated HTTP request with one retry after a 401
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	c.logger.Debug("provider: http request",
		"method", method,
		"path", path)

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		c.logger.Error("provider: failed to get token", "error", err)
		return nil, fmt.Errorf("get token: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("provider: http request failed",
			"method", method,
			"path", path,
			"error", err)
		return nil, err
	}

	c.logger.Debug("provider: http response",
		"method", method,
		"path", path,
		"status", resp.StatusCode)

	// If 401, invalidate token and retry once
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.logger.Info("provider: received 401, invalidating token and retrying",
			"method", method,
			"path", path)
		c.tokenManager.InvalidateToken()

		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			c.logger.Error("provider: failed to refresh token", "error", err)
			return nil, fmt.Errorf("refresh token: %w", err)
		}

		req, err = c.newRequest(ctx, method, path, body, token)
		if err != nil {
			return nil, err
		}
		resp, err = c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("provider: retry request failed",
				"method", method,
				"path", path,
				"error", err)
		}
		return resp, err
	}

	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte, token string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		c.logger.Error("provider: failed to create request", "error", err)
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// CreateJob submits a batch/v1 Job manifest to the given namespace
func (c *Client) CreateJob(ctx context.Context, namespace string, manifest []byte) (*JobObject, error) {
	path := fmt.Sprintf("/apis/batch/v1/namespaces/%s/jobs", namespace)

	resp, err := c.doRequest(ctx, "POST", path, manifest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var job JobObject
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode job response: %w", err)
	}

	return &job, nil
}

// GetJob retrieves a Job by name
func (c *Client) GetJob(ctx context.Context, namespace, name string) (*JobObject, error) {
	path := fmt.Sprintf("/apis/batch/v1/namespaces/%s/jobs/%s", namespace, name)

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var job JobObject
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}

	return &job, nil
}

// Ping checks that the API server answers authenticated requests
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, "GET", "/version", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	return nil
}

// apiStatus is the error body the API server returns for rejected requests
type apiStatus struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
	Code    int    `json:"code"`
}

// parseError maps an API server error response onto the provider taxonomy
func parseError(resp *http.Response) error {
	var status apiStatus
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(body, &status); err != nil || status.Message == "" {
		status.Message = string(body)
	}

	subErr := &provider.SubmissionError{
		Code:    resp.StatusCode,
		Message: status.Message,
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		subErr.Err = provider.ErrUnauthorized
	case resp.StatusCode == http.StatusConflict:
		subErr.Err = provider.ErrAlreadyExists
	case resp.StatusCode >= 500:
		subErr.Err = provider.ErrClusterUnavailable
	}

	return subErr
}
