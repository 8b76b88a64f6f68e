package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLimiterAllowsBurstThenRejects(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("fourth request within the minute should be rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("another client has its own bucket")
	}

	m := rl.GetMetrics()
	if m.TotalHits != 5 || m.Rejected != 1 || m.ClientCount != 2 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestNewLimiterDefaults(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()

	if rl.burst != 60 {
		t.Errorf("burst = %d, want 60", rl.burst)
	}
	if rl.limit != 1 {
		t.Errorf("limit = %v, want 1 token per second", rl.limit)
	}
}

func TestStopDropsClients(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	rl.Allow("a")
	rl.Allow("b")
	if rl.ActiveClients() != 2 {
		t.Fatalf("ActiveClients() = %d, want 2", rl.ActiveClients())
	}

	rl.Stop()

	if rl.ActiveClients() != 0 {
		t.Errorf("ActiveClients() = %d after Stop, want 0", rl.ActiveClients())
	}
}

func TestMiddleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	handler := rl.Middleware(
		func(r *http.Request) string { return r.RemoteAddr },
		nil,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/transactions", nil))
	if first.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d, want 204", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/transactions", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}
}

func TestMiddlewareCustomOnLimit(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	called := false
	handler := rl.Middleware(
		func(*http.Request) string { return "same" },
		func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusTeapot)
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called || rec.Code != http.StatusTeapot {
		t.Errorf("onLimit called = %v, status = %d", called, rec.Code)
	}
}
