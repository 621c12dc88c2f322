package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestAuthRejectsMissingToken(t *testing.T) {
	next, called := okHandler()
	handler := Auth("secret-token")(next)

	request := httptest.NewRequest(http.MethodPost, "/v1/jobs", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if *called {
		t.Fatal("handler must not run without credentials")
	}

	var body map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("unauthorized body should be JSON: %v", err)
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != "unauthorized" {
		t.Fatalf("unexpected error body: %v", body)
	}
	if body["request_id"] == nil {
		t.Fatal("error envelope should carry a request id")
	}
}

func TestAuthRejectsWrongToken(t *testing.T) {
	next, called := okHandler()
	handler := Auth("secret-token")(next)

	request := httptest.NewRequest(http.MethodGet, "/v1/jobs/abc", nil)
	request.Header.Set("Authorization", "Bearer wrong")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnauthorized || *called {
		t.Fatalf("wrong token must be rejected, got %d", recorder.Code)
	}
}

func TestAuthAcceptsValidToken(t *testing.T) {
	next, called := okHandler()
	handler := Auth("secret-token")(next)

	request := httptest.NewRequest(http.MethodGet, "/v1/categories", nil)
	request.Header.Set("Authorization", "Bearer secret-token")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK || !*called {
		t.Fatalf("valid token must pass, got %d", recorder.Code)
	}
}

func TestAuthSkipsHealthCheck(t *testing.T) {
	next, called := okHandler()
	handler := Auth("secret-token")(next)

	request := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK || !*called {
		t.Fatalf("health check must bypass auth, got %d", recorder.Code)
	}
}

func TestAuthDisabledWithoutConfiguredToken(t *testing.T) {
	next, called := okHandler()
	handler := Auth("")(next)

	request := httptest.NewRequest(http.MethodGet, "/v1/jobs/abc", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK || !*called {
		t.Fatalf("empty configured token disables auth, got %d", recorder.Code)
	}
}
