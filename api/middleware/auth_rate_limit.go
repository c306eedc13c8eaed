package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/groceryscout/storefront-gateway/api/responses"
	pkgerrors "github.com/groceryscout/storefront-gateway/pkg/errors"
	"github.com/groceryscout/storefront-gateway/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(string) string
}

// AuthRateLimitPolicy is a fixed-window throttle for one credential surface
// (login or register). Either limit can be zero to disable that scope.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{
		name:       name,
		window:     window,
		ipLimit:    ipLimit,
		emailLimit: emailLimit,
	}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// limitScope is one counter to check for a request: the caller's IP or the
// hashed email it is trying.
type limitScope struct {
	scope string
	key   string
	limit int
}

// AuthRateLimit throttles credential attempts per IP and per email. The
// email scope counts across IPs so a spread-out guessing run still trips it;
// the address is sha256-hashed before it becomes a Redis key.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var scopes []limitScope
			if ip := clientIP(r); policy.ipLimit > 0 && ip != "" {
				scopes = append(scopes, limitScope{
					scope: "ip",
					key:   fmt.Sprintf("ip:%s:%s", policy.name, ip),
					limit: policy.ipLimit,
				})
			}
			if policy.emailLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if hash := hashedEmail(body); hash != "" {
					scopes = append(scopes, limitScope{
						scope: "email",
						key:   fmt.Sprintf("email:%s:%s", policy.name, hash),
						limit: policy.emailLimit,
					})
				}
			}

			for _, s := range scopes {
				count, err := store.IncrWithTTL(ctx, store.RateLimitKey(s.key), policy.window)
				if err != nil {
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(s.limit) {
					if logg != nil {
						logCtx := logg.WithFields(ctx, map[string]any{
							"scope":          s.scope,
							"policy":         policy.name,
							"attempts":       count,
							"limit":          s.limit,
							"window_seconds": int(policy.window.Seconds()),
						})
						logg.Warn(logCtx, "auth.rate_limit.blocked")
					}
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// hashedEmail pulls the email out of a credential payload and hashes it.
// A body that is not JSON, or has no email, yields no email scope at all.
func hashedEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
