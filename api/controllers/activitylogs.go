package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

type createActivityRequest struct {
	Action      string     `json:"action" validate:"required"`
	Entity      string     `json:"entity" validate:"required,max=32"`
	EntityID    *uuid.UUID `json:"entityId"`
	Description string     `json:"description" validate:"required,max=500"`
}

// ActivityList pages entries newest first with ?cursor= and ?limit=, and
// filters by ?entity= and ?action=.
func ActivityList(svc activitylog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("activity log"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := activitylog.ListInput{
			Entity: validators.ParseQueryString(r, "entity", 32),
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := validators.ParseQueryString(r, "action", 16); raw != "" {
			action, err := enums.ParseActivityAction(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
				return
			}
			input.Action = &action
		}
		result, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ActivityGet(svc activitylog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("activity log"))
			return
		}
		id, err := pathID(r, "logId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// ActivityCreate records a manual entry attributed to the caller.
func ActivityCreate(svc activitylog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("activity log"))
			return
		}
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createActivityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseActivityAction(strings.TrimSpace(body.Action))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
			return
		}
		entry := activitylog.Entry{
			Actor:       actor,
			Action:      action,
			Entity:      strings.TrimSpace(body.Entity),
			Description: strings.TrimSpace(body.Description),
		}
		if body.EntityID != nil {
			entry.EntityID = *body.EntityID
		}
		created, err := svc.Create(r.Context(), entry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}
