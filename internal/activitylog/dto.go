package activitylog

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox"
)

// Actor is the authenticated user a change is attributed to.
type Actor struct {
	UserID uuid.UUID
	Name   string
	Role   enums.UserRole
}

// ID returns the actor id, or nil for system actions.
func (a Actor) ID() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

// OutboxRef converts the actor for outbox envelopes.
func (a Actor) OutboxRef() *outbox.ActorRef {
	if a.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: a.UserID, Role: string(a.Role)}
}

// Entry is one activity to record.
type Entry struct {
	Actor       Actor
	Action      enums.ActivityAction
	Entity      string
	EntityID    uuid.UUID
	Description string
}

// Entity names used across services.
const (
	EntityUser     = "user"
	EntityCustomer = "customer"
	EntitySupplier = "supplier"
	EntityProduct  = "product"
	EntityLot      = "lot"
	EntityPurchase = "purchase"
	EntitySale     = "sale"
	EntityReturn   = "return"
)

// LogDTO is the API shape of an activity log entry.
type LogDTO struct {
	ID          uuid.UUID            `json:"id"`
	ActorID     *uuid.UUID           `json:"actorId,omitempty"`
	ActorName   string               `json:"actorName"`
	Action      enums.ActivityAction `json:"action"`
	Entity      string               `json:"entity"`
	EntityID    *uuid.UUID           `json:"entityId,omitempty"`
	Description string               `json:"description"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// ListResult is a cursor page of entries, newest first.
type ListResult struct {
	Items      []LogDTO `json:"items"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// ListInput filters the listing.
type ListInput struct {
	Entity string
	Action *enums.ActivityAction
	Limit  int
	Cursor string
}

func FromModel(m *models.ActivityLog) LogDTO {
	return LogDTO{
		ID:          m.ID,
		ActorID:     m.ActorID,
		ActorName:   m.ActorName,
		Action:      m.Action,
		Entity:      m.Entity,
		EntityID:    m.EntityID,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

func (e Entry) toModel() *models.ActivityLog {
	row := &models.ActivityLog{
		ActorID:     e.Actor.ID(),
		ActorName:   e.Actor.Name,
		Action:      e.Action,
		Entity:      e.Entity,
		Description: e.Description,
	}
	if e.EntityID != uuid.Nil {
		id := e.EntityID
		row.EntityID = &id
	}
	return row
}
