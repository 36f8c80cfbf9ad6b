package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/api/middleware"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

const defaultPageSize = 20

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func requestActor(r *http.Request) (activitylog.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return activitylog.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return actor, nil
}

func pageParams(r *http.Request, defaultLimit int) (pagination.PageParams, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return pagination.PageParams{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", defaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.PageParams{}, err
	}
	return pagination.PageParams{Page: page, Limit: limit}, nil
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
