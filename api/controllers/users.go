package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
	"github.com/angelmondragon/tradedesk-backend/internal/users"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

type createUserRequest struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Role     string  `json:"role" validate:"required,oneof=admin manager staff"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	WhatsApp *string `json:"whatsapp" validate:"omitempty,max=32"`
	Address  *string `json:"address" validate:"omitempty,max=255"`
}

type updateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=120"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin manager staff"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	WhatsApp *string `json:"whatsapp" validate:"omitempty,max=32"`
	Address  *string `json:"address" validate:"omitempty,max=255"`
	IsActive *bool   `json:"isActive"`
}

func (req createUserRequest) toInput() (users.CreateUserInput, error) {
	role, err := enums.ParseUserRole(strings.TrimSpace(req.Role))
	if err != nil {
		return users.CreateUserInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	return users.CreateUserInput{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
		Phone:    req.Phone,
		WhatsApp: req.WhatsApp,
		Address:  req.Address,
	}, nil
}

func (req updateUserRequest) toInput() (users.UpdateUserInput, error) {
	input := users.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		WhatsApp: req.WhatsApp,
		Address:  req.Address,
		IsActive: req.IsActive,
	}
	if req.Role != nil {
		role, err := enums.ParseUserRole(strings.TrimSpace(*req.Role))
		if err != nil {
			return users.UpdateUserInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
		}
		input.Role = &role
	}
	return input, nil
}

func UserCreate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("user"))
			return
		}
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

func UserList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("user"))
			return
		}
		params, err := pageParams(r, defaultPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func UserGet(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("user"))
			return
		}
		id, err := pathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// UserUpdate lets admins edit anyone. Other roles may only edit their own
// profile and cannot change role or active state.
func UserUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("user"))
			return
		}
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.UserRoleAdmin {
			if actor.UserID != id {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot edit another user"))
				return
			}
			if body.Role != nil || body.IsActive != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role changes require admin"))
				return
			}
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Update(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func UserDelete(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("user"))
			return
		}
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
