package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSessionAuth_TokenRoundTrip(t *testing.T) {
	auth := NewSessionAuth("secret", time.Hour)
	id := uuid.New()

	token, err := auth.GenerateToken(id)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	got, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if got != id {
		t.Fatalf("expected session %s, got %s", id, got)
	}
}

func TestSessionAuth_RejectsForeignSecret(t *testing.T) {
	token, _ := NewSessionAuth("one", time.Hour).GenerateToken(uuid.New())

	if _, err := NewSessionAuth("two", time.Hour).ParseToken(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestSessionAuth_Middleware(t *testing.T) {
	auth := NewSessionAuth("secret", time.Hour)
	id := uuid.New()
	token, _ := auth.GenerateToken(id)

	var seen uuid.UUID
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSessionID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/current", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
		})
	}

	if seen != id {
		t.Fatalf("expected session %s in context, got %s", id, seen)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := &RateLimiter{visitors: map[string]*visitor{}, limit: 2, window: time.Minute}
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("expected first two hits to pass")
	}
	if rl.Allow("a") {
		t.Fatal("expected third hit to be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("expected other key to pass")
	}

	now = now.Add(2 * time.Minute)
	if !rl.Allow("a") {
		t.Fatal("expected window reset to allow again")
	}
}

func TestRequestID_SetsHeader(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if seen == "" {
		t.Fatal("expected request ID in context")
	}
	if rr.Header().Get("X-Request-ID") != seen {
		t.Fatalf("expected response header %q, got %q", seen, rr.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "fixed" || rr.Header().Get("X-Request-ID") != "fixed" {
		t.Fatalf("expected incoming request ID to be kept, got %q", rr.Header().Get("X-Request-ID"))
	}
}

func TestSessionAuth_ErrorCarriesRequestID(t *testing.T) {
	h := RequestID(NewSessionAuth("secret", time.Hour).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unauthenticated request must not reach handler")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/current", nil)
	req.Header.Set("X-Request-ID", "req-7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"request_id":"req-7"`) {
		t.Fatalf("expected request ID in error body, got %s", rr.Body.String())
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS("http://localhost:5173/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK && rr.Code != http.StatusNoContent {
		t.Fatalf("expected preflight success, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORS_RejectsOtherOrigin(t *testing.T) {
	h := CORS("http://localhost:5173")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/status", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin for foreign origin, got %q", got)
	}
}
