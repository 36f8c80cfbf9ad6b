package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
	"github.com/angelmondragon/tradedesk-backend/pkg/security"
)

const defaultPageSize = 20

// Service manages dashboard operators.
type Service interface {
	Create(ctx context.Context, actor activitylog.Actor, input CreateUserInput) (*UserDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, params pagination.PageParams) (pagination.Page[UserDTO], error)
	Update(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input UpdateUserInput) (*UserDTO, error)
	Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error
}

// ServiceParams bundles the user service dependencies.
type ServiceParams struct {
	Repo     *Repository
	DB       db.TxRunner
	Activity activitylog.Recorder
	Password config.PasswordConfig
}

type service struct {
	repo     *Repository
	tx       db.TxRunner
	activity activitylog.Recorder
	password config.PasswordConfig
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.DB,
		activity: params.Activity,
		password: params.Password,
	}, nil
}

func (s *service) Create(ctx context.Context, actor activitylog.Actor, input CreateUserInput) (*UserDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if NormalizeEmail(input.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", input.Role)
	}
	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	user := input.toModel(hash)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert user")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionCreate,
			Entity:      activitylog.EntityUser,
			EntityID:    user.ID,
			Description: fmt.Sprintf("created user %s (%s)", user.Name, user.Role),
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, params pagination.PageParams) (pagination.Page[UserDTO], error) {
	params = params.Normalize(defaultPageSize)
	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return pagination.Page[UserDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return pagination.NewPage(items, params, total), nil
}

func (s *service) Update(ctx context.Context, actor activitylog.Actor, id uuid.UUID, input UpdateUserInput) (*UserDTO, error) {
	var updated *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		user, err := s.load(ctx, txRepo, id)
		if err != nil {
			return err
		}
		demoted, err := s.apply(user, input)
		if err != nil {
			return err
		}
		if demoted {
			if err := s.ensureAnotherAdmin(ctx, txRepo); err != nil {
				return err
			}
		}
		if err := txRepo.Save(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
		}
		updated = user
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionUpdate,
			Entity:      activitylog.EntityUser,
			EntityID:    user.ID,
			Description: fmt.Sprintf("updated user %s", user.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Delete(ctx context.Context, actor activitylog.Actor, id uuid.UUID) error {
	if actor.UserID == id {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot delete your own account")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		user, err := s.load(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if user.Role == enums.UserRoleAdmin && user.IsActive {
			if err := s.ensureAnotherAdmin(ctx, txRepo); err != nil {
				return err
			}
		}
		if err := txRepo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
		}
		return s.activity.Record(ctx, tx, activitylog.Entry{
			Actor:       actor,
			Action:      enums.ActivityActionDelete,
			Entity:      activitylog.EntityUser,
			EntityID:    id,
			Description: fmt.Sprintf("deleted user %s", user.Name),
		})
	})
}

// apply copies the changes onto user and reports whether an active admin
// lost admin rights.
func (s *service) apply(user *models.User, input UpdateUserInput) (bool, error) {
	wasAdmin := user.Role == enums.UserRoleAdmin && user.IsActive

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return false, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		user.Name = name
	}
	if input.Email != nil {
		email := NormalizeEmail(*input.Email)
		if email == "" {
			return false, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
		}
		user.Email = email
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return false, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", *input.Role)
		}
		user.Role = *input.Role
	}
	if input.Password != nil {
		hash, err := security.HashPassword(*input.Password, s.password)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
		}
		user.PasswordHash = hash
	}
	if input.Phone != nil {
		user.Phone = trimmedOrNil(input.Phone)
	}
	if input.WhatsApp != nil {
		user.WhatsApp = trimmedOrNil(input.WhatsApp)
	}
	if input.Address != nil {
		user.Address = trimmedOrNil(input.Address)
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	isAdmin := user.Role == enums.UserRoleAdmin && user.IsActive
	return wasAdmin && !isAdmin, nil
}

func (s *service) ensureAnotherAdmin(ctx context.Context, r *Repository) error {
	admins, err := r.CountActiveByRole(ctx, enums.UserRoleAdmin)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count admins")
	}
	if admins <= 1 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "at least one active admin is required")
	}
	return nil
}

func (s *service) load(ctx context.Context, r *Repository, id uuid.UUID) (*models.User, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
