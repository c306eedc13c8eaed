package middleware

import (
	"context"

	"github.com/groceryscout/storefront-gateway/internal/registry"
	"github.com/groceryscout/storefront-gateway/internal/session"
)

type contextKey string

const (
	ctxSession  contextKey = "storefront_session"
	ctxIdentity contextKey = "storefront_identity"
)

// SessionFromContext returns the request's component set, or nil outside the
// session middleware.
func SessionFromContext(ctx context.Context) *registry.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*registry.Session); ok {
		return v
	}
	return nil
}

// IdentityFromContext returns the authenticated identity, or nil for
// anonymous shoppers.
func IdentityFromContext(ctx context.Context) *session.Identity {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxIdentity).(*session.Identity); ok {
		return v
	}
	return nil
}

// WithSession injects the component set and its identity into the context.
func WithSession(ctx context.Context, sess *registry.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxSession, sess)
	if identity := sess.Auth.Identity(); identity != nil {
		ctx = context.WithValue(ctx, ctxIdentity, identity)
	}
	return ctx
}
