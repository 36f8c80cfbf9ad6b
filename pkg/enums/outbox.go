package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateSale     OutboxAggregateType = "sale"
	AggregatePurchase OutboxAggregateType = "purchase"
	AggregateReturn   OutboxAggregateType = "return"
	AggregateCustomer OutboxAggregateType = "customer"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSale,
	AggregatePurchase,
	AggregateReturn,
	AggregateCustomer,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventSaleCreated             OutboxEventType = "sale_created"
	EventSaleDeleted             OutboxEventType = "sale_deleted"
	EventPurchaseCreated         OutboxEventType = "purchase_created"
	EventPurchasePaymentAdded    OutboxEventType = "purchase_payment_added"
	EventPurchaseDeleted         OutboxEventType = "purchase_deleted"
	EventReturnCreated           OutboxEventType = "return_created"
	EventCustomerPaymentRecorded OutboxEventType = "customer_payment_recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSaleCreated,
	EventSaleDeleted,
	EventPurchaseCreated,
	EventPurchasePaymentAdded,
	EventPurchaseDeleted,
	EventReturnCreated,
	EventCustomerPaymentRecorded,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
