package auth

import (
	"context"
	"net/http"

	"github.com/groceryscout/storefront-gateway/api/middleware"
	"github.com/groceryscout/storefront-gateway/api/responses"
	"github.com/groceryscout/storefront-gateway/api/validators"
	"github.com/groceryscout/storefront-gateway/internal/registry"
	"github.com/groceryscout/storefront-gateway/internal/session"
	pkgerrors "github.com/groceryscout/storefront-gateway/pkg/errors"
	"github.com/groceryscout/storefront-gateway/pkg/logger"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	ProfileData string `json:"profileData,omitempty"`
}

type identityResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func newIdentityResponse(identity *session.Identity) *identityResponse {
	if identity == nil {
		return nil
	}
	return &identityResponse{Email: identity.Email, Role: string(identity.Role)}
}

// Me reports the current identity. Anonymous sessions get a null payload,
// not an error, so the SPA can render the signed-out header.
func Me(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session unavailable"))
			return
		}
		responses.WriteSuccess(w, newIdentityResponse(sess.Auth.Identity()))
	}
}

// Login authenticates against the backend and persists the refreshed
// upstream cookie so the session survives a gateway restart.
func Login(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session unavailable"))
			return
		}

		var payload LoginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity, err := sess.Auth.Login(r.Context(), payload.Email, payload.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := reg.Persist(r.Context(), sess); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Watcher.Start(context.Background())

		responses.WriteSuccess(w, newIdentityResponse(identity))
	}
}

// Register creates the account and runs the full login flow. A login failure
// after a successful registration surfaces to the caller.
func Register(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session unavailable"))
			return
		}

		var payload RegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity, err := sess.Auth.Register(r.Context(), session.RegisterInput{
			Email:       payload.Email,
			Password:    payload.Password,
			ProfileData: payload.ProfileData,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := reg.Persist(r.Context(), sess); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Watcher.Start(context.Background())

		responses.WriteSuccessStatus(w, http.StatusCreated, newIdentityResponse(identity))
	}
}

// Logout clears the identity unconditionally and stops the order watcher.
// The gateway session itself survives for continued anonymous browsing.
func Logout(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session unavailable"))
			return
		}

		sess.Watcher.Stop()
		sess.Auth.Logout(r.Context())

		if err := reg.Persist(r.Context(), sess); err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "auth.logout.persist_failed")
		}

		responses.WriteSuccess(w, map[string]string{"status": "signed_out"})
	}
}
