package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tradedesk-backend/api/responses"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

// RequireRoles admits only users holding one of the given roles.
func RequireRoles(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		allowed[string(role)] = struct{}{}
		names = append(names, string(role))
	}
	denied := pkgerrors.Newf(pkgerrors.CodeForbidden, "requires role %s", strings.Join(names, " or "))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[RoleFromContext(r.Context())]; !ok {
				responses.WriteError(r.Context(), logg, w, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
