package controllers

import (
	"net/http"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/api/validators"
	"github.com/angelmondragon/tradedesk-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

var errMissingCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")

// AuthLogin exchanges email and password for a token pair.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("auth"))
			return
		}
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Login(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeTokens(w, result.AccessToken, result)
	}
}

// AuthRefresh rotates the session behind the presented access token. The
// token may already be expired; the refresh token in the body proves the
// session.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token, ok := presentedToken(svc, logg, w, r)
		if !ok {
			return
		}
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair, err := svc.Refresh(ctx, token, body.RefreshToken)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeTokens(w, pair.AccessToken, pair)
	}
}

func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := presentedToken(svc, logg, w, r)
		if !ok {
			return
		}
		if err := svc.Logout(r.Context(), token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// presentedToken writes the error response itself and reports false when the
// request cannot proceed.
func presentedToken(svc auth.Service, logg *logger.Logger, w http.ResponseWriter, r *http.Request) (string, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, serviceUnavailable("auth"))
		return "", false
	}
	token := validators.AccessToken(r)
	if token == "" {
		responses.WriteError(r.Context(), logg, w, errMissingCredentials)
		return "", false
	}
	return token, true
}

// writeTokens mirrors the access token into the token header for clients
// that read it from there. Token responses are never cached.
func writeTokens(w http.ResponseWriter, accessToken string, body any) {
	w.Header().Set(validators.TokenHeader, accessToken)
	w.Header().Set("Cache-Control", "no-store")
	responses.WriteSuccess(w, body)
}
