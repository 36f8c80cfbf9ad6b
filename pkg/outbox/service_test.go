package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox/payloads"
)

func TestServiceEmitWritesEnvelope(t *testing.T) {
	conn := dbtest.Open(t, &models.OutboxEvent{})
	svc := NewService(NewRepository(conn), logger.Nop())
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	customerID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: "manager"}
	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventCustomerPaymentRecorded,
		AggregateType: enums.AggregateCustomer,
		AggregateID:   customerID,
		Actor:         actor,
		Data:          payloads.CustomerPaymentRecordedEvent{CustomerID: customerID, Amount: decimal.NewFromInt(500)},
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, customerID, rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.True(t, envelope.OccurredAt.Equal(fixed))
	assert.Equal(t, actor.UserID, envelope.Actor.UserID)
	assert.Equal(t, rows[0].ID.String(), envelope.EventID)
	require.NotNil(t, rows[0].ActorID)
	assert.Equal(t, actor.UserID, *rows[0].ActorID)
	assert.True(t, rows[0].Pending())

	var data payloads.CustomerPaymentRecordedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.True(t, data.Amount.Equal(decimal.NewFromInt(500)))
}

func TestServiceEmitValidates(t *testing.T) {
	conn := dbtest.Open(t, &models.OutboxEvent{})
	svc := NewService(NewRepository(conn), nil)
	ctx := context.Background()

	assert.Error(t, svc.Emit(ctx, nil, DomainEvent{}))
	assert.Error(t, svc.Emit(ctx, conn, DomainEvent{EventType: "nope", AggregateType: enums.AggregateSale, AggregateID: uuid.New()}))
	assert.Error(t, svc.Emit(ctx, conn, DomainEvent{EventType: enums.EventSaleCreated, AggregateType: enums.AggregateSale}))
}

func TestServiceEmitRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t, &models.OutboxEvent{})
	svc := NewService(NewRepository(conn), nil)

	boom := errors.New("boom")
	err := conn.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventSaleCreated,
			AggregateType: enums.AggregateSale,
			AggregateID:   uuid.New(),
			Data:          payloads.SaleCreatedEvent{},
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	pending, err := NewRepository(conn).Pending(nil)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t, &models.OutboxEvent{}, &models.OutboxDLQ{})
	repo := NewRepository(conn)

	first := models.OutboxEvent{EventType: enums.EventSaleCreated, AggregateType: enums.AggregateSale, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	second := models.OutboxEvent{EventType: enums.EventSaleDeleted, AggregateType: enums.AggregateSale, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, conn.Create(&first).Error)
	require.NoError(t, conn.Create(&second).Error)

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(conn, first.ID))
	require.NoError(t, repo.MarkFailedTx(conn, second.ID, errors.New("unavailable")))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "unavailable", *rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(conn, second.ID, errors.New("gave up"), 3))
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)

	dlq := NewDLQRepository(conn)
	msg := "gave up"
	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       second.ID,
		EventType:     second.EventType,
		AggregateType: second.AggregateType,
		AggregateID:   second.AggregateID,
		Payload:       second.Payload,
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		FailedAt:      time.Now().UTC(),
	}))
	found, err := dlq.FindByEventID(context.Background(), second.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, found.ErrorReason)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := dlq.List(context.Background(), DLQFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = dlq.List(context.Background(), DLQFilter{Reason: enums.OutboxDLQReasonNonRetryable})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, dlq.Requeue(context.Background(), second.ID))
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.Zero(t, rows[0].AttemptCount)
	assert.Nil(t, rows[0].LastError)

	err = dlq.Requeue(context.Background(), second.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
