package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxUserName contextKey = "user_name"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func UserNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserName).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext builds the activity actor for the authenticated user.
// ok is false when the context carries no valid user id.
func ActorFromContext(ctx context.Context) (activitylog.Actor, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil || id == uuid.Nil {
		return activitylog.Actor{}, false
	}
	return activitylog.Actor{
		UserID: id,
		Name:   UserNameFromContext(ctx),
		Role:   enums.UserRole(RoleFromContext(ctx)),
	}, true
}

// WithUser injects the authenticated user into the context.
func WithUser(ctx context.Context, userID, name string, role enums.UserRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxUserName, name)
	return context.WithValue(ctx, ctxRole, string(role))
}
