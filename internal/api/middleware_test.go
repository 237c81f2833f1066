package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lei/suite-starter/internal/config"
)

func authTestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	m := NewAuthMiddleware([]config.APIKey{{Name: "dashboard", Key: "secret"}})

	req := httptest.NewRequest("GET", "/v1/status", nil)
	w := httptest.NewRecorder()

	m.Authenticate(authTestHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Authenticate() status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticate_WrongScheme(t *testing.T) {
	m := NewAuthMiddleware([]config.APIKey{{Name: "dashboard", Key: "secret"}})

	req := httptest.NewRequest("GET", "/v1/status", nil)
	req.Header.Set("Authorization", "Basic secret")
	w := httptest.NewRecorder()

	m.Authenticate(authTestHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Authenticate() status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticate_InvalidKey(t *testing.T) {
	m := NewAuthMiddleware([]config.APIKey{{Name: "dashboard", Key: "secret"}})

	req := httptest.NewRequest("GET", "/v1/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()

	m.Authenticate(authTestHandler()).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Authenticate() status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticate_ValidKeyAddsName(t *testing.T) {
	m := NewAuthMiddleware([]config.APIKey{{Name: "dashboard", Key: "secret"}})

	var gotName string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName = GetAPIKeyName(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/v1/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()

	m.Authenticate(next).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Authenticate() status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotName != "dashboard" {
		t.Errorf("Authenticate() api key name = %q, want %q", gotName, "dashboard")
	}
}
