package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	saleID := uuid.New()
	event := models.OutboxEvent{
		EventType:     enums.EventSaleCreated,
		AggregateType: enums.AggregateSale,
		AggregateID:   saleID,
		Payload: mustEnvelope(t, mustMarshal(t, payloads.SaleCreatedEvent{
			SaleID:   saleID,
			BillNo:   "B-000007",
			NetTotal: decimal.RequireFromString("1250.50"),
		})),
	}

	resolved, err := reg.Resolve(event)
	require.NoError(t, err)
	assert.Equal(t, "domain-events", resolved.Descriptor.Topic)
	assert.Equal(t, enums.EventSaleCreated, resolved.Descriptor.EventType)

	payload, ok := resolved.Payload.(*payloads.SaleCreatedEvent)
	require.True(t, ok, "unexpected payload type %T", resolved.Payload)
	assert.Equal(t, "B-000007", payload.BillNo)
	assert.True(t, payload.NetTotal.Equal(decimal.RequireFromString("1250.5")))
	assert.NotEmpty(t, resolved.Envelope.EventID)
	assert.False(t, resolved.Envelope.OccurredAt.IsZero())
}

func TestEventRegistryCoversEveryEventType(t *testing.T) {
	reg := newTestEventRegistry(t)
	for _, eventType := range []enums.OutboxEventType{
		enums.EventSaleCreated,
		enums.EventSaleDeleted,
		enums.EventPurchaseCreated,
		enums.EventPurchasePaymentAdded,
		enums.EventPurchaseDeleted,
		enums.EventReturnCreated,
		enums.EventCustomerPaymentRecorded,
	} {
		desc, ok := reg.entries[eventType]
		require.True(t, ok, "missing %s", eventType)
		assert.True(t, desc.AggregateType.IsValid())
		assert.NotNil(t, desc.PayloadFactory())
	}
}

func TestEventRegistryResolveRejects(t *testing.T) {
	reg := newTestEventRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     "stock_counted",
			AggregateType: enums.AggregateSale,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventSaleCreated,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventSaleCreated,
			AggregateType: enums.AggregateSale,
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventReturnCreated,
			AggregateType: enums.AggregateReturn,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte("null")),
		},
		"broken envelope": {
			EventType:     enums.EventReturnCreated,
			AggregateType: enums.AggregateReturn,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":`),
		},
		"future envelope version": {
			EventType:     enums.EventReturnCreated,
			AggregateType: enums.AggregateReturn,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":2,"data":{}}`),
		},
		"event id mismatch": {
			ID:            uuid.New(),
			EventType:     enums.EventReturnCreated,
			AggregateType: enums.AggregateReturn,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			require.Error(t, err)
			var nonRetry NonRetryableError
			assert.True(t, errors.As(err, &nonRetry))
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	assert.Error(t, err)
}

func TestAggregateTopicOverride(t *testing.T) {
	reg, err := NewEventRegistry(config.PubSubConfig{
		DomainTopic:     "domain-events",
		AggregateTopics: map[string]string{"sale": "sales-events"},
	})
	require.NoError(t, err)

	assert.Equal(t, "sales-events", reg.entries[enums.EventSaleCreated].Topic)
	assert.Equal(t, "sales-events", reg.entries[enums.EventSaleDeleted].Topic)
	assert.Equal(t, "domain-events", reg.entries[enums.EventPurchaseCreated].Topic)
	assert.ElementsMatch(t, []string{"sales-events", "domain-events"}, reg.Topics())
}

func TestAggregateTopicRejectsUnknownAggregate(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{
		DomainTopic:     "domain-events",
		AggregateTopics: map[string]string{"invoice": "x"},
	})
	assert.ErrorContains(t, err, "invalid aggregate type")
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{DomainTopic: "domain-events"})
	require.NoError(t, err)
	return reg
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
	require.NoError(t, err)
	return data
}
