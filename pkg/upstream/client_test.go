package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/groceryscout/storefront-gateway/pkg/config"
	pkgerrors "github.com/groceryscout/storefront-gateway/pkg/errors"
)

func newTestClient(t *testing.T, baseURL string, retries uint64) *Client {
	t.Helper()
	client, err := NewClient(config.UpstreamConfig{
		BaseURL:        baseURL,
		RequestTimeout: 2 * time.Second,
		RetryAttempts:  retries,
		RetryBaseDelay: time.Millisecond,
	}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

func TestGetJSONDecodesBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/public/products" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]any{{"id": 1, "name": "Milk"}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	var out []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := client.GetJSON(context.Background(), "/public/products", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Name != "Milk" {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestErrorMappingByStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusForbidden, pkgerrors.CodeForbidden},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
		}))

		client := newTestClient(t, server.URL, 0)
		err := client.GetJSON(context.Background(), "/user/cart", nil)
		server.Close()

		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != tc.code {
			t.Fatalf("status %d: expected code %s, got %v", tc.status, tc.code, err)
		}
	}
}

func TestValidationMessagePassesThroughVerbatim(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Insufficient inventory for Milk"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	err := client.PostJSON(context.Background(), "/user/cart/checkout", map[string]string{"deliveryAddress": "x"}, nil)

	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != "Insufficient inventory for Milk" {
		t.Fatalf("expected backend message verbatim, got %v", err)
	}

	var detail *StatusError
	if !errors.As(err, &detail) {
		t.Fatalf("expected upstream detail in chain, got %v", err)
	}
	if detail.UpstreamStatus() != http.StatusBadRequest {
		t.Fatalf("unexpected upstream status %d", detail.UpstreamStatus())
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	var out map[string]string
	if err := client.GetJSON(context.Background(), "/public/products", &out); err != nil {
		t.Fatalf("expected retries to succeed, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	if err := client.GetJSON(context.Background(), "/public/products/9", nil); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt for 404, got %d", calls.Load())
	}
}

func TestPostFormEncodesCredentials(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %s", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("username") != "a@b.c" || r.PostForm.Get("password") != "pw" {
			t.Errorf("unexpected form values %v", r.PostForm)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	values := url.Values{"username": {"a@b.c"}, "password": {"pw"}}
	if err := client.PostForm(context.Background(), "/auth/login", values); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCookieJarCarriesSession(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc123", Path: "/"})
		case "/auth/me":
			cookie, err := r.Cookie("JSESSIONID")
			if err != nil || cookie.Value != "abc123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"email": "a@b.c", "role": "CUSTOMER"})
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	if err := client.PostJSON(context.Background(), "/auth/login", nil, nil); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	var me map[string]string
	if err := client.GetJSON(context.Background(), "/auth/me", &me); err != nil {
		t.Fatalf("expected session cookie to ride along, got %v", err)
	}

	cookies := client.Cookies()
	if len(cookies) != 1 || cookies[0].Name != "JSESSIONID" {
		t.Fatalf("unexpected jar contents: %+v", cookies)
	}
}

func TestRestoreCookiesSeedsJar(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("JSESSIONID")
		if err != nil || cookie.Value != "restored" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	client.RestoreCookies([]*http.Cookie{{Name: "JSESSIONID", Value: "restored", Path: "/"}})

	if err := client.GetJSON(context.Background(), "/auth/me", nil); err != nil {
		t.Fatalf("expected restored cookie to authenticate, got %v", err)
	}
}

func TestRouteLabelBoundsCardinality(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"/user/cart/42":            "/user/cart/{id}",
		"/public/products/7":       "/public/products/{id}",
		"/user/products/search?q=": "/user/products/search",
		"/user/cart":               "/user/cart",
	}
	for in, want := range cases {
		if got := routeLabel(in); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
