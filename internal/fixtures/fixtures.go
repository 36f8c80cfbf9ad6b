// Package fixtures wires a throwaway sqlite store with the shared
// collaborators domain services need in tests.
package fixtures

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox"
)

// Env is a migrated database plus the recorder and emitter bound to it.
type Env struct {
	Conn     *gorm.DB
	Client   *db.Client
	Activity activitylog.Service
	Outbox   *outbox.Service
	Cache    *CountingInvalidator
}

// New migrates every model into a fresh in-memory database.
func New(t *testing.T) *Env {
	t.Helper()
	conn := dbtest.Open(t, models.All()...)
	activity, err := activitylog.NewService(activitylog.NewRepository(conn), logger.Nop())
	require.NoError(t, err)
	return &Env{
		Conn:     conn,
		Client:   db.Wrap(conn),
		Activity: activity,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Cache:    &CountingInvalidator{},
	}
}

// Actor is a staff member used to attribute test writes.
func (e *Env) Actor(t *testing.T) activitylog.Actor {
	t.Helper()
	user := &models.User{Name: "Operator", Email: "operator@example.com", PasswordHash: "x", Role: enums.UserRoleManager, IsActive: true}
	if err := e.Conn.Where("email = ?", user.Email).FirstOrCreate(user).Error; err != nil {
		require.NoError(t, err)
	}
	return activitylog.Actor{UserID: user.ID, Name: user.Name, Role: user.Role}
}

func (e *Env) Supplier(t *testing.T, name string) *models.Supplier {
	t.Helper()
	s := &models.Supplier{Name: name}
	require.NoError(t, e.Conn.Create(s).Error)
	return s
}

func (e *Env) Product(t *testing.T, name string, category enums.UnitCategory, stock string) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, UnitCategory: category, CurrentStock: decimal.RequireFromString(stock)}
	require.NoError(t, e.Conn.Create(p).Error)
	return p
}

func (e *Env) Customer(t *testing.T, name, due string) *models.Customer {
	t.Helper()
	c := &models.Customer{Name: name, TotalDue: decimal.RequireFromString(due)}
	require.NoError(t, e.Conn.Create(c).Error)
	return c
}

// Reload refreshes dest (a model pointer with its ID set) from the database.
func (e *Env) Reload(t *testing.T, dest any) {
	t.Helper()
	require.NoError(t, e.Conn.First(dest).Error)
}

// OutboxEvents returns the queued event types in insertion order.
func (e *Env) OutboxEvents(t *testing.T) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, e.Conn.Order("created_at ASC").Find(&rows).Error)
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EventType)
	}
	return out
}

// ActivityCount counts activity rows for an entity and action.
func (e *Env) ActivityCount(t *testing.T, entity string, action enums.ActivityAction) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.Conn.Model(&models.ActivityLog{}).
		Where("entity = ? AND action = ?", entity, action).
		Count(&n).Error)
	return n
}

// CountingInvalidator records dashboard invalidations.
type CountingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *CountingInvalidator) Invalidate(context.Context) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *CountingInvalidator) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Dec parses a decimal literal.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
