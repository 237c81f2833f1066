package kubernetes

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Default in-cluster service account paths
const (
	DefaultTokenFile     = "/var/run/secrets/kubernetes.io/serviceaccount/token"
	DefaultNamespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"
)

// TokenManager serves the bearer token for cluster-API requests. A
// statically configured token is used as-is; otherwise the service-account
// token file is read and cached, re-read once the refresh margin expires
// (kubelet rotates the projected token in place).
type TokenManager struct {
	bearerToken string
	tokenFile   string

	mu            sync.RWMutex
	token         string
	tokenExpiry   time.Time
	refreshMargin time.Duration
}

// NewTokenManager creates a new token manager
func NewTokenManager(bearerToken, tokenFile string, refreshMargin time.Duration) *TokenManager {
	tm := &TokenManager{
		bearerToken:   bearerToken,
		tokenFile:     tokenFile,
		refreshMargin: refreshMargin,
	}

	// A pre-configured token never expires from our point of view
	if bearerToken != "" {
		tm.token = bearerToken
		tm.tokenExpiry = time.Now().Add(365 * 24 * time.Hour)
	}

	return tm
}

// GetToken returns a valid token, re-reading the token file if necessary
func (tm *TokenManager) GetToken(ctx context.Context) (string, error) {
	tm.mu.RLock()
	if tm.token != "" && time.Now().Before(tm.tokenExpiry.Add(-tm.refreshMargin)) {
		token := tm.token
		tm.mu.RUnlock()
		return token, nil
	}
	tm.mu.RUnlock()

	return tm.refreshToken(ctx)
}

// InvalidateToken forces a re-read on the next GetToken call
func (tm *TokenManager) InvalidateToken() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.bearerToken != "" {
		// Static tokens cannot be refreshed; keep serving the configured one
		return
	}
	tm.token = ""
	tm.tokenExpiry = time.Time{}
}

// refreshToken reads a fresh token from the service-account token file
func (tm *TokenManager) refreshToken(_ context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	// Double-check after acquiring write lock
	if tm.token != "" && time.Now().Before(tm.tokenExpiry.Add(-tm.refreshMargin)) {
		return tm.token, nil
	}

	if tm.tokenFile == "" {
		return "", fmt.Errorf("no bearer token configured and no token file to read")
	}

	data, err := os.ReadFile(tm.tokenFile)
	if err != nil {
		return "", fmt.Errorf("read service account token: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("service account token file %q is empty", tm.tokenFile)
	}

	tm.token = token
	// Projected tokens are rotated by the kubelet well before expiry; an
	// hour between re-reads keeps us inside any sane rotation period.
	tm.tokenExpiry = time.Now().Add(time.Hour)

	return tm.token, nil
}
