package controllers

import (
	"context"
	"net/http"

	"github.com/archivobordado/bordado-backend/api/responses"
	"github.com/archivobordado/bordado-backend/pkg/config"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Bordado-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every hard dependency so the platform only routes
// traffic once the instance can actually serve it.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache, storage pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Bordado-Env", cfg.App.Env)

		checks := map[string]pinger{
			"database": database,
			"redis":    cache,
			"storage":  storage,
		}
		for name, dep := range checks {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
