package controllers

import (
	"net/http"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/internal/dashboard"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

func DashboardSummary(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("dashboard"))
			return
		}
		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
