package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

const (
	envHeader    = "X-TradeDesk-Env"
	readyTimeout = 2 * time.Second
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and Redis. A nil pinger is skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		deps := []struct {
			name string
			dep  db.Pinger
		}{
			{"database", database},
			{"redis", cache},
		}

		checks := map[string]string{}
		var failed *pkgerrors.Error
		for _, d := range deps {
			name, dep := d.name, d.dep
			if dep == nil {
				checks[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				if failed == nil {
					failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable")
				}
				continue
			}
			checks[name] = "ok"
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, failed.WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
