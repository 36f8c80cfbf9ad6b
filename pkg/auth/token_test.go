package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "tradedesk",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: userID,
		Name:   "Rahim",
		Role:   enums.UserRoleManager,
		JTI:    "jti-1",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "Rahim", claims.Name)
	assert.Equal(t, enums.UserRoleManager, claims.Role)
	assert.Equal(t, "jti-1", claims.ID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	token, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleStaff})
	require.NoError(t, err)

	claims, err := ParseAccessToken(testJWTConfig(), token)
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token+"x")
	assert.Error(t, err)

	other := cfg
	other.Secret = "different"
	_, err = ParseAccessToken(other, token)
	assert.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleStaff, JTI: "old"})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "old", claims.ID)
}

func TestParseAccessTokenAllowExpiredChecksIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleStaff})
	require.NoError(t, err)

	other := cfg
	other.Issuer = "someone-else"
	_, err = ParseAccessTokenAllowExpired(other, token)
	assert.Error(t, err)
}

func TestMintAccessTokenValidation(t *testing.T) {
	cfg := testJWTConfig()
	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: ""})
	assert.Error(t, err)

	_, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.UserRoleAdmin})
	assert.Error(t, err)

	cfg.ExpirationMinutes = 0
	_, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	assert.Error(t, err)
}

func TestParseAccessTokenToleratesClockSkew(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(10*time.Second), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleStaff})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.NoError(t, err)

	token, err = MintAccessToken(cfg, time.Now().Add(5*time.Minute), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleStaff})
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, jwt.ErrTokenNotValidYet)
}

func TestParseAccessTokenRejectsOtherAlgorithm(t *testing.T) {
	cfg := testJWTConfig()
	claims := AccessTokenClaims{
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseAccessTokenRequiresConfigAndToken(t *testing.T) {
	_, err := ParseAccessToken(config.JWTConfig{Issuer: "x"}, "abc")
	assert.ErrorIs(t, err, ErrSecretRequired)

	_, err = ParseAccessToken(config.JWTConfig{Secret: "s"}, "abc")
	assert.ErrorIs(t, err, ErrIssuerRequired)

	_, err = ParseAccessToken(testJWTConfig(), "   ")
	assert.ErrorIs(t, err, ErrTokenRequired)
}
