package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox/registry"
)

func saleEvent(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventSaleCreated,
		AggregateType: enums.AggregateSale,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now(),
	}
}

type relayFixture struct {
	queue  *fakeQueue
	dlq    *fakeDLQ
	sender *fakeSender
	relay  *Relay
	reg    *prometheus.Registry
}

func newRelayFixture(t *testing.T, cfg config.OutboxConfig, res resolver, events ...models.OutboxEvent) *relayFixture {
	t.Helper()
	f := &relayFixture{
		queue:  &fakeQueue{events: events},
		dlq:    &fakeDLQ{},
		sender: &fakeSender{},
		reg:    prometheus.NewRegistry(),
	}
	if res == nil {
		res = staticResolver{topic: "tradedesk-domain"}
	}
	relay, err := NewRelay(cfg, RelayDeps{
		Logger:   logger.New(logger.Options{ServiceName: "outbox-relay-test", Output: io.Discard}),
		Store:    fakeStore{},
		Broker:   fakeBroker{},
		Queue:    f.queue,
		DLQ:      f.dlq,
		Registry: res,
		Senders:  func(string) sender { return f.sender },
		Metrics:  metrics.NewOutboxMetrics(f.reg),
		Limiter:  rate.NewLimiter(rate.Inf, 1),
	})
	require.NoError(t, err)
	f.relay = relay
	return f
}

func TestDrainRetriesTransientFailureAndContinues(t *testing.T) {
	first, second := saleEvent(t, 0), saleEvent(t, 0)
	f := newRelayFixture(t, config.OutboxConfig{BatchSize: 5}, nil, first, second)
	f.sender.errs = []error{errors.New("unavailable")}

	handled, err := f.relay.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, handled)
	assert.Equal(t, []uuid.UUID{first.ID}, f.queue.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, f.queue.published)
	assert.Empty(t, f.dlq.entries)
}

func TestDrainPublishesAttributesAndMetrics(t *testing.T) {
	event := saleEvent(t, 0)
	f := newRelayFixture(t, config.OutboxConfig{}, nil, event)

	_, err := f.relay.drain(context.Background())
	require.NoError(t, err)

	require.Len(t, f.sender.messages, 1)
	attrs := f.sender.messages[0].Attributes
	assert.Equal(t, "tradedesk", attrs["source"])
	assert.Equal(t, string(enums.EventSaleCreated), attrs["event_type"])
	assert.Equal(t, event.AggregateID.String(), attrs["aggregate_id"])
	assert.Equal(t, "1", attrs["schema_version"])

	count, err := testutil.GatherAndCount(f.reg, "tradedesk_outbox_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	families, err := f.reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "tradedesk_outbox_backlog" {
			assert.Equal(t, float64(0), mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
}

func TestDrainDeadLettersUnroutableEvent(t *testing.T) {
	event := saleEvent(t, 0)
	f := newRelayFixture(t, config.OutboxConfig{}, staticResolver{err: registry.NewNonRetryableError(errors.New("unknown event"))}, event)

	_, err := f.relay.drain(context.Background())
	require.NoError(t, err)

	require.Len(t, f.dlq.entries, 1)
	entry := f.dlq.entries[0]
	assert.Equal(t, event.ID, entry.EventID)
	assert.Equal(t, enums.OutboxDLQReasonUnroutable, entry.ErrorReason)
	assert.JSONEq(t, string(event.Payload), string(entry.Payload))
	assert.Equal(t, []uuid.UUID{event.ID}, f.queue.terminal)
	assert.Empty(t, f.sender.messages)
}

func TestDrainDeadLettersAfterMaxAttempts(t *testing.T) {
	event := saleEvent(t, 2)
	f := newRelayFixture(t, config.OutboxConfig{MaxAttempts: 3}, nil, event)
	f.sender.errs = []error{errors.New("deadline exceeded")}

	_, err := f.relay.drain(context.Background())
	require.NoError(t, err)

	require.Len(t, f.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, f.dlq.entries[0].ErrorReason)
	assert.Contains(t, *f.dlq.entries[0].ErrorMessage, "gave up after 3 attempts")
	assert.Empty(t, f.queue.failed)
}

func TestDrainDeadLettersRejectedPublish(t *testing.T) {
	event := saleEvent(t, 0)
	f := newRelayFixture(t, config.OutboxConfig{}, nil, event)
	f.relay.Senders = func(string) sender { return nil }

	_, err := f.relay.drain(context.Background())
	require.NoError(t, err)

	require.Len(t, f.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, f.dlq.entries[0].ErrorReason)
}

func TestDrainReturnsBookkeepingErrors(t *testing.T) {
	f := newRelayFixture(t, config.OutboxConfig{}, nil, saleEvent(t, 0))
	f.queue.markErr = errors.New("db gone")

	_, err := f.relay.drain(context.Background())
	assert.ErrorContains(t, err, "mark published")
}

func TestPublishWaitsForLimiter(t *testing.T) {
	event := saleEvent(t, 0)
	f := newRelayFixture(t, config.OutboxConfig{}, nil)
	f.relay.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	f.relay.Limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.relay.publish(ctx, event, &registry.ResolvedEvent{Descriptor: registry.EventDescriptor{Topic: "t"}})
	assert.Error(t, err)
	assert.Empty(t, f.sender.messages)
}

func TestClassify(t *testing.T) {
	transient := errors.New("transient")
	rejected := registry.NewNonRetryableError(errors.New("bad"))

	assert.Equal(t, outcomePublished, classify(nil, 1, 3))
	assert.Equal(t, outcomeRetry, classify(transient, 2, 3))
	assert.Equal(t, outcomeExhausted, classify(transient, 3, 3))
	assert.Equal(t, outcomeRejected, classify(rejected, 1, 3))
	assert.Equal(t, outcomeRejected, classify(rejected, 3, 3))
}

func TestNewLimiter(t *testing.T) {
	assert.Equal(t, rate.Inf, newLimiter(0, 10).Limit())
	assert.Equal(t, rate.Limit(5), newLimiter(5, 10).Limit())
}

func TestNewRelayValidatesDeps(t *testing.T) {
	_, err := NewRelay(config.OutboxConfig{}, RelayDeps{})
	assert.ErrorContains(t, err, "queue is required")

	_, err = NewRelay(config.OutboxConfig{}, RelayDeps{
		Logger:   logger.Nop(),
		Store:    fakeStore{},
		Broker:   fakeBroker{},
		Queue:    &fakeQueue{},
		DLQ:      &fakeDLQ{},
		Registry: staticResolver{},
	})
	assert.ErrorContains(t, err, "senders are required")
}

func TestNewRelayDefaults(t *testing.T) {
	f := newRelayFixture(t, config.OutboxConfig{}, nil)
	assert.Equal(t, defaultBatchSize, f.relay.batchSize)
	assert.Equal(t, defaultMaxAttempts, f.relay.maxAttempts)
	assert.Equal(t, defaultPoll, f.relay.poll)
}

func TestBackoffDoublesToCap(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 300*time.Millisecond)
	for _, want := range []time.Duration{100, 200, 300, 300} {
		got := b.next()
		assert.GreaterOrEqual(t, got, want*time.Millisecond)
		assert.Less(t, got, want*time.Millisecond+jitterWindow)
	}
	b.reset()
	assert.Less(t, b.next(), 100*time.Millisecond+jitterWindow)
}

type fakeStore struct{}

func (fakeStore) Ping(context.Context) error { return nil }

func (fakeStore) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakeBroker struct{}

func (fakeBroker) Ping(context.Context) error { return nil }

type fakeQueue struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
	markErr   error
}

func (q *fakeQueue) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	if len(q.events) > limit {
		return q.events[:limit], nil
	}
	return q.events, nil
}

func (q *fakeQueue) Pending(*gorm.DB) (int64, error) {
	return int64(len(q.events) - len(q.published) - len(q.terminal)), nil
}

func (q *fakeQueue) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if q.markErr != nil {
		return q.markErr
	}
	q.published = append(q.published, id)
	return nil
}

func (q *fakeQueue) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	q.failed = append(q.failed, id)
	return nil
}

func (q *fakeQueue) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	q.terminal = append(q.terminal, id)
	return nil
}

type fakeDLQ struct {
	entries []models.OutboxDLQ
}

func (d *fakeDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	d.entries = append(d.entries, entry)
	return nil
}

type staticResolver struct {
	topic string
	err   error
}

func (s staticResolver) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return nil, registry.NewNonRetryableError(err)
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			Topic:         s.topic,
		},
		Envelope: env,
	}, nil
}

type fakeSender struct {
	errs     []error
	messages []*gcppubsub.Message
}

func (s *fakeSender) Send(_ context.Context, msg *gcppubsub.Message) error {
	s.messages = append(s.messages, msg)
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}
