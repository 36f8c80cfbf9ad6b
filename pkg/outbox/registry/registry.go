// Package registry knows every outbox event the backend emits: which
// aggregate it belongs to, which topic it goes to and how its payload decodes.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox/payloads"
)

// envelopeVersion is the newest PayloadEnvelope layout this build can read.
const envelopeVersion = 1

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row after its envelope and payload were decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func describe[T any](event enums.OutboxEventType, aggregate enums.OutboxAggregateType) EventDescriptor {
	return EventDescriptor{
		EventType:      event,
		AggregateType:  aggregate,
		PayloadFactory: func() any { return new(T) },
	}
}

// NewEventRegistry routes each aggregate to its entry in AggregateTopics, or
// to DomainTopic when it has none.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if strings.TrimSpace(cfg.DomainTopic) == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	for aggregate := range cfg.AggregateTopics {
		if _, err := enums.ParseOutboxAggregateType(aggregate); err != nil {
			return nil, fmt.Errorf("aggregate topics: %w", err)
		}
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, desc := range []EventDescriptor{
		describe[payloads.SaleCreatedEvent](enums.EventSaleCreated, enums.AggregateSale),
		describe[payloads.SaleDeletedEvent](enums.EventSaleDeleted, enums.AggregateSale),
		describe[payloads.PurchaseCreatedEvent](enums.EventPurchaseCreated, enums.AggregatePurchase),
		describe[payloads.PurchasePaymentAddedEvent](enums.EventPurchasePaymentAdded, enums.AggregatePurchase),
		describe[payloads.PurchaseDeletedEvent](enums.EventPurchaseDeleted, enums.AggregatePurchase),
		describe[payloads.ReturnCreatedEvent](enums.EventReturnCreated, enums.AggregateReturn),
		describe[payloads.CustomerPaymentRecordedEvent](enums.EventCustomerPaymentRecorded, enums.AggregateCustomer),
	} {
		desc.Topic = cfg.DomainTopic
		if topic := strings.TrimSpace(cfg.AggregateTopics[string(desc.AggregateType)]); topic != "" {
			desc.Topic = topic
		}
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Topics lists the distinct topics events can be sent to.
func (r *EventRegistry) Topics() []string {
	seen := make(map[string]bool)
	var topics []string
	for _, desc := range r.entries {
		if !seen[desc.Topic] {
			seen[desc.Topic] = true
			topics = append(topics, desc.Topic)
		}
	}
	return topics
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, reject("unsupported event type %s", event.EventType)
	}
	if desc.AggregateType != event.AggregateType {
		return nil, reject("aggregate mismatch: %s belongs to %s, row has %s", event.EventType, desc.AggregateType, event.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return nil, reject("missing aggregate_id")
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return nil, reject("decode envelope: %w", err)
	}
	if env.Version < 1 || env.Version > envelopeVersion {
		return nil, reject("unsupported envelope version %d", env.Version)
	}
	if env.EventID != "" && event.ID != uuid.Nil && env.EventID != event.ID.String() {
		return nil, reject("envelope eventId %s does not match row %s", env.EventID, event.ID)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, reject("payload missing for %s", event.EventType)
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, reject("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}

func reject(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}
