package outbox

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
)

const defaultDLQPage = 50

// DLQRepository keeps dead-lettered events and can hand them back to the
// relay.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// DLQFilter narrows List. Zero values mean no filter.
type DLQFilter struct {
	Reason enums.OutboxDLQErrorReason
	Limit  int
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := truncate(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil, nil when the event was never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var entry models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns the newest entries first.
func (r *DLQRepository) List(ctx context.Context, f DLQFilter) ([]models.OutboxDLQ, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultDLQPage
	}
	q := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	if f.Reason != "" {
		q = q.Where("error_reason = ?", f.Reason)
	}
	var rows []models.OutboxDLQ
	err := q.Order("failed_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Requeue removes the dead-letter entry and resets the outbox row so the
// relay picks it up on its next pass. Published rows are left alone.
func (r *DLQRepository) Requeue(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted := tx.Where("event_id = ?", eventID).Delete(&models.OutboxDLQ{})
		if deleted.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, deleted.Error, "delete dead letter")
		}
		if deleted.RowsAffected == 0 {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "event %s is not dead-lettered", eventID)
		}

		reset := tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", eventID).
			Updates(map[string]any{"attempt_count": 0, "last_error": nil})
		if reset.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, reset.Error, "reset outbox event")
		}
		if reset.RowsAffected == 0 {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "event %s has no pending outbox row", eventID)
		}
		return nil
	})
}
