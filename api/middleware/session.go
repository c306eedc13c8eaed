package middleware

import (
	"net/http"
	"time"

	"github.com/groceryscout/storefront-gateway/api/responses"
	"github.com/groceryscout/storefront-gateway/internal/registry"
	"github.com/groceryscout/storefront-gateway/pkg/auth"
	"github.com/groceryscout/storefront-gateway/pkg/config"
	pkgerrors "github.com/groceryscout/storefront-gateway/pkg/errors"
	"github.com/groceryscout/storefront-gateway/pkg/logger"
)

// Session resolves the browser cookie to a live component set, minting a
// fresh anonymous session when the cookie is missing, expired, or unknown.
func Session(cfg config.SessionConfig, reg *registry.Registry, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var sess *registry.Session
			if cookie, err := r.Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
				if claims, err := auth.ParseSessionToken(cfg, cookie.Value); err == nil {
					if resolved, err := reg.Get(ctx, claims.SessionID()); err == nil {
						sess = resolved
					} else if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
						responses.WriteError(ctx, logg, w, err)
						return
					}
				}
			}

			if sess == nil {
				created, err := reg.Create(ctx)
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}
				token, err := auth.MintSessionToken(cfg, time.Now(), created.ID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session"))
					return
				}
				http.SetCookie(w, SessionCookie(cfg, token))
				sess = created
			}

			if logg != nil {
				ctx = logg.WithSessionID(ctx, sess.ID)
				if identity := sess.Auth.Identity(); identity != nil {
					ctx = logg.WithIdentity(ctx, identity.Email, string(identity.Role))
				}
			}

			next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
		})
	}
}

// SessionCookie builds the cookie carrying the signed session token.
func SessionCookie(cfg config.SessionConfig, token string) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie clears the session cookie on logout.
func ExpiredSessionCookie(cfg config.SessionConfig) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
