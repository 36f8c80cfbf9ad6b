package models

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

// ActivityLog is an append-only audit entry.
type ActivityLog struct {
	Base
	ActorID     *uuid.UUID           `gorm:"column:actor_id;type:uuid;index"`
	ActorName   string               `gorm:"column:actor_name;type:text;not null;default:''"`
	Action      enums.ActivityAction `gorm:"column:action;type:text;not null"`
	Entity      string               `gorm:"column:entity;type:text;not null;index"`
	EntityID    *uuid.UUID           `gorm:"column:entity_id;type:uuid"`
	Description string               `gorm:"column:description;type:text;not null"`
}
