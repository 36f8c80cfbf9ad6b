package controllers

import (
	"net/http"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
	"github.com/angelmondragon/tradedesk-backend/internal/lots"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

// LotSearch lists lots for a product, optionally only those with stock left.
func LotSearch(svc lots.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("lot"))
			return
		}
		var body lots.SearchInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.Search(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func LotGet(svc lots.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("lot"))
			return
		}
		id, err := pathID(r, "lotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lot, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lot)
	}
}
