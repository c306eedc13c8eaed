package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/groceryscout/storefront-gateway/pkg/config"
	pkgerrors "github.com/groceryscout/storefront-gateway/pkg/errors"
	"github.com/groceryscout/storefront-gateway/pkg/logger"
	"github.com/groceryscout/storefront-gateway/pkg/metrics"
)

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is one shopper's connection to the GroceryScout backend. Session
// credentials ride on the cookie jar, so application code never attaches
// tokens by hand.
type Client struct {
	base    *url.URL
	http    HTTPClient
	jar     *cookiejar.Jar
	logg    *logger.Logger
	metrics *metrics.UpstreamMetrics

	retryAttempts uint64
	retryBase     time.Duration
}

// NewClient builds a per-session backend client with its own cookie jar.
func NewClient(cfg config.UpstreamConfig, logg *logger.Logger, m *metrics.UpstreamMetrics) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("upstream base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base:          base,
		http:          &http.Client{Jar: jar, Timeout: timeout},
		jar:           jar,
		logg:          logg,
		metrics:       m,
		retryAttempts: cfg.RetryAttempts,
		retryBase:     cfg.RetryBaseDelay,
	}, nil
}

// GetJSON performs a GET and decodes the JSON response into out. Idempotent,
// so transport failures and 5xx responses are retried with backoff.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	if c.retryAttempts == 0 {
		return c.roundTrip(ctx, http.MethodGet, path, nil, "", out)
	}
	backoff := retry.WithMaxRetries(c.retryAttempts, retry.NewExponential(c.retryDelay()))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.roundTrip(ctx, http.MethodGet, path, nil, "", out)
		if err != nil && retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// PostJSON performs a POST with a JSON body. Never retried.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := encodeJSON(body)
	if err != nil {
		return err
	}
	return c.roundTrip(ctx, http.MethodPost, path, encoded, "application/json", out)
}

// PutJSON performs a PUT with a JSON body.
func (c *Client) PutJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := encodeJSON(body)
	if err != nil {
		return err
	}
	return c.roundTrip(ctx, http.MethodPut, path, encoded, "application/json", out)
}

// PatchJSON performs a PATCH with a JSON body.
func (c *Client) PatchJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := encodeJSON(body)
	if err != nil {
		return err
	}
	return c.roundTrip(ctx, http.MethodPatch, path, encoded, "application/json", out)
}

// PostForm performs a POST with form-encoded values. Used only by login,
// which the backend accepts as form fields rather than JSON.
func (c *Client) PostForm(ctx context.Context, path string, values url.Values) error {
	body := []byte(values.Encode())
	return c.roundTrip(ctx, http.MethodPost, path, body, "application/x-www-form-urlencoded", nil)
}

// Delete performs a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.roundTrip(ctx, http.MethodDelete, path, nil, "", nil)
}

// Ping verifies the backend is reachable for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	return c.roundTrip(ctx, http.MethodGet, "/public/categories", nil, "", nil)
}

// Cookies snapshots the jar contents for the backend host so the session
// layer can persist them across gateway restarts.
func (c *Client) Cookies() []*http.Cookie {
	if c.jar == nil {
		return nil
	}
	return c.jar.Cookies(c.base)
}

// RestoreCookies seeds the jar with a previously persisted snapshot.
func (c *Client) RestoreCookies(cookies []*http.Cookie) {
	if c.jar == nil || len(cookies) == 0 {
		return
	}
	c.jar.SetCookies(c.base, cookies)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	target := c.resolve(path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upstream request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(method, path, "transport_error", start)
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "upstream unreachable")
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe(method, path, fmt.Sprintf("http_%d", resp.StatusCode), start)
		return errorFromResponse(resp)
	}
	c.observe(method, path, "ok", start)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode upstream response")
	}
	return nil
}

func (c *Client) resolve(path string) string {
	rawPath, rawQuery, _ := strings.Cut(strings.TrimPrefix(path, "/"), "?")
	base := *c.base
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	resolved := base.ResolveReference(&url.URL{Path: rawPath})
	resolved.RawQuery = rawQuery
	return resolved.String()
}

func (c *Client) observe(method, path, outcome string, start time.Time) {
	c.metrics.ObserveRequest(method+" "+routeLabel(path), outcome, time.Since(start))
}

func (c *Client) retryDelay() time.Duration {
	if c.retryBase <= 0 {
		return 150 * time.Millisecond
	}
	return c.retryBase
}

// routeLabel strips identifiers and query strings so metric cardinality stays
// bounded.
func routeLabel(path string) string {
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil && segment != "" {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func encodeJSON(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
	}
	return encoded, nil
}
