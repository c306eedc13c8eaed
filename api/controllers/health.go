package controllers

import (
	"context"
	"net/http"

	"github.com/groceryscout/storefront-gateway/api/responses"
	"github.com/groceryscout/storefront-gateway/pkg/config"
	pkgerrors "github.com/groceryscout/storefront-gateway/pkg/errors"
	"github.com/groceryscout/storefront-gateway/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GroceryScout-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the two dependencies the gateway cannot serve without.
func HealthReady(cfg *config.Config, store, backend pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GroceryScout-Env", cfg.App.Env)

		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}
		if backend != nil {
			if err := backend.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "backend unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
