package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
// JTI doubles as the session key for the paired refresh token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Name   string
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Name   string         `json:"name,omitempty"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
