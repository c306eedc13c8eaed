package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type stubLimiterStore struct {
	counts map[string]int64
	err    error
}

func newStubLimiterStore() *stubLimiterStore {
	return &stubLimiterStore{counts: map[string]int64{}}
}

func (s *stubLimiterStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.counts[key]++
	return s.counts[key], nil
}

func (s *stubLimiterStore) RateLimitKey(scope string) string {
	return "gs:rate_limit:" + scope
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRateLimitAllowsUnderLimit(t *testing.T) {
	t.Parallel()

	policy := NewAuthRateLimitPolicy("login", time.Minute, 3, 0)
	handler := AuthRateLimit(policy, newStubLimiterStore(), nil)(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d blocked unexpectedly with %d", i+1, resp.Code)
		}
	}
}

func TestAuthRateLimitBlocksOverIPLimit(t *testing.T) {
	t.Parallel()

	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 0)
	handler := AuthRateLimit(policy, newStubLimiterStore(), nil)(okHandler())

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		last = resp.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third attempt, got %d", last)
	}
}

func TestAuthRateLimitCountsEmailAcrossIPs(t *testing.T) {
	t.Parallel()

	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 1)
	handler := AuthRateLimit(policy, newStubLimiterStore(), nil)(okHandler())

	body := `{"email":"shopper@example.com","password":"pw"}`

	first := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	first.RemoteAddr = "10.0.0.1:1"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, first)
	if resp.Code != http.StatusOK {
		t.Fatalf("first attempt blocked: %d", resp.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	second.RemoteAddr = "10.0.0.2:1"
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, second)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected email limit to apply across IPs, got %d", resp.Code)
	}
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	t.Parallel()

	policy := NewAuthRateLimitPolicy("login", 0, 5, 5)
	handler := AuthRateLimit(policy, newStubLimiterStore(), nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", resp.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.9:5"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
