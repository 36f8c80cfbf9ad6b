package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	redisclient "github.com/angelmondragon/tradedesk-backend/pkg/redis"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Session is a refresh grant bound to one access token id and user.
type Session struct {
	AccessID     string
	UserID       uuid.UUID
	RefreshToken string
}

// Manager handles refresh token creation, storage, and rotation. Each
// stored value is "<userID>.<token>" under the access id key.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyer: client, ttl: ttl}, nil
}

// Start opens a session for the user and returns it with a fresh access id.
func (m *Manager) Start(ctx context.Context, userID uuid.UUID) (Session, error) {
	if userID == uuid.Nil {
		return Session{}, fmt.Errorf("user id is required")
	}
	return m.issue(ctx, userID)
}

// Rotate validates the refresh token presented for oldAccessID, invalidates
// that session and issues a new one for the same user.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (Session, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return Session{}, ErrInvalidRefreshToken
	}

	key := m.keyer.AccessSessionKey(oldAccessID)
	stored, err := m.store.Get(ctx, key)
	if err != nil {
		return Session{}, wrapNotFound(err)
	}
	userID, token, ok := splitValue(stored)
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(provided)) != 1 {
		return Session{}, ErrInvalidRefreshToken
	}

	next, err := m.issue(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return Session{}, err
	}
	return next, nil
}

// Revoke deletes the refresh mapping tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// HasSession reports whether the provided access ID still has an active refresh session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *Manager) issue(ctx context.Context, userID uuid.UUID) (Session, error) {
	token, err := generateRefreshToken()
	if err != nil {
		return Session{}, err
	}
	accessID := uuid.NewString()
	value := userID.String() + "." + token
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), value, m.ttl); err != nil {
		return Session{}, err
	}
	return Session{AccessID: accessID, UserID: userID, RefreshToken: token}, nil
}

func splitValue(stored string) (uuid.UUID, string, bool) {
	rawID, token, found := strings.Cut(stored, ".")
	if !found || token == "" {
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, token, true
}

func generateRefreshToken() (string, error) {
	bytes := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, redislib.Nil) {
		return ErrInvalidRefreshToken
	}
	return err
}
