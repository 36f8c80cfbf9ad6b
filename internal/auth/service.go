package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	"github.com/angelmondragon/tradedesk-backend/internal/users"
	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/auth/session"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type service struct {
	users    userRepository
	session  sessionManager
	activity activitylog.Recorder
	jwtCfg   config.JWTConfig
	password config.PasswordConfig
	logg     *logger.Logger
	now      func() time.Time
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Start(ctx context.Context, userID uuid.UUID) (session.Session, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (session.Session, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	Activity       activitylog.Recorder
	JWTConfig      config.JWTConfig
	// Password, when set, upgrades stored hashes made with older cost
	// settings on the next successful login.
	Password       config.PasswordConfig
	Logger         *logger.Logger
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity recorder is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		users:    params.UserRepo,
		session:  params.SessionManager,
		activity: params.Activity,
		jwtCfg:   params.JWTConfig,
		password: params.Password,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now

	pair, err := s.issue(ctx, user, now)
	if err != nil {
		return nil, err
	}

	if err := s.activity.Record(ctx, nil, activitylog.Entry{
		Actor:       activitylog.Actor{UserID: user.ID, Name: user.Name, Role: user.Role},
		Action:      enums.ActivityActionLogin,
		Entity:      activitylog.EntityUser,
		EntityID:    user.ID,
		Description: fmt.Sprintf("%s signed in", user.Name),
	}); err != nil {
		return nil, err
	}

	return &LoginResponse{TokenPair: *pair, User: users.FromModel(user)}, nil
}

// Refresh rotates the session behind an (possibly expired) access token. The
// user is reloaded so role changes and deactivation take effect.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := s.parse(accessToken)
	if err != nil {
		return nil, err
	}

	sess, err := s.session.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		return nil, sessionError(err)
	}
	if sess.UserID != claims.UserID {
		_ = s.session.Revoke(ctx, sess.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		_ = s.session.Revoke(ctx, sess.AccessID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		_ = s.session.Revoke(ctx, sess.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account disabled")
	}
	return s.mint(user, sess, s.now())
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.parse(accessToken)
	if err != nil {
		return err
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) parse(accessToken string) (*pkgAuth.AccessTokenClaims, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

func (s *service) issue(ctx context.Context, user *models.User, now time.Time) (*TokenPair, error) {
	sess, err := s.session.Start(ctx, user.ID)
	if err != nil {
		return nil, sessionError(err)
	}
	return s.mint(user, sess, now)
}

func (s *service) mint(user *models.User, sess session.Session, now time.Time) (*TokenPair, error) {
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Name:   user.Name,
		Role:   user.Role,
		JTI:    sess.AccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: sess.RefreshToken}, nil
}

func sessionError(err error) error {
	if errors.Is(err, session.ErrInvalidRefreshToken) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := users.NormalizeEmail(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	s.upgradeHash(ctx, user, password)
	return user, nil
}

// upgradeHash re-hashes with the current cost settings. Failures only log:
// the old hash still verifies.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	if s.password == (config.PasswordConfig{}) || !security.NeedsRehash(user.PasswordHash, s.password) {
		return
	}
	ctx = s.logg.WithField(ctx, "user_id", user.ID.String())
	hash, err := security.HashPassword(password, s.password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.logg.Error(ctx, "auth.rehash_failed", err)
		return
	}
	user.PasswordHash = hash
	s.logg.Info(ctx, "auth.password_rehashed")
}
