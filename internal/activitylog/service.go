package activitylog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

const maxDescriptionLen = 500

// Recorder is what the other domain services depend on.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
}

// Service reads and writes the activity log.
type Service interface {
	Recorder
	Create(ctx context.Context, entry Entry) (*LogDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*LogDTO, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Recent(ctx context.Context, n int) ([]LogDTO, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("activity log repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Record appends an entry using tx when given, so the entry commits or rolls
// back with the change it describes.
func (s *service) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	r := s.repo
	if tx != nil {
		r = r.WithTx(tx)
	}
	if err := r.Create(ctx, entry.toModel()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record activity")
	}
	return nil
}

func (s *service) Create(ctx context.Context, entry Entry) (*LogDTO, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}
	row := entry.toModel()
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create activity")
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*LogDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "activity log not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load activity")
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Limit)
	rows, err := s.repo.List(ctx, ListFilter{
		Entity: strings.TrimSpace(input.Entity),
		Action: input.Action,
		Cursor: cursor,
		Limit:  limit + 1,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activity")
	}

	result := &ListResult{Items: make([]LogDTO, 0, limit)}
	if len(rows) > limit {
		last := rows[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}
	for i := range rows {
		result.Items = append(result.Items, FromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) Recent(ctx context.Context, n int) ([]LogDTO, error) {
	rows, err := s.repo.Recent(ctx, n)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recent activity")
	}
	out := make([]LogDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func validateEntry(entry Entry) error {
	if !entry.Action.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid action %q", entry.Action)
	}
	if strings.TrimSpace(entry.Entity) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "entity is required")
	}
	desc := strings.TrimSpace(entry.Description)
	if desc == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if len(desc) > maxDescriptionLen {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "description exceeds %d characters", maxDescriptionLen)
	}
	return nil
}
