package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxIdleBackoff     = 10 * time.Second

	messageSource = "tradedesk"
)

type store interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventQueue interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	Pending(tx *gorm.DB) (int64, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type broker interface {
	Ping(context.Context) error
}

// sender publishes one message and blocks until the broker acknowledges it.
type sender interface {
	Send(ctx context.Context, msg *gcppubsub.Message) error
}

// senderFor returns nil when no publisher can be built for topic.
type senderFor func(topic string) sender

// RelayDeps carries the collaborators of a Relay. Senders defaults to
// Pub/Sub publishers from Broker when it implements topicPublisher.
type RelayDeps struct {
	Logger   *logger.Logger
	Store    store
	Broker   broker
	Queue    eventQueue
	DLQ      deadLetters
	Registry resolver
	Senders  senderFor
	Metrics  *metrics.OutboxMetrics
	Limiter  *rate.Limiter
}

// Relay moves committed outbox rows to Pub/Sub. Every row ends a pass either
// published, scheduled for retry or dead-lettered.
type Relay struct {
	RelayDeps
	batchSize   int
	maxAttempts int
	poll        time.Duration
	now         func() time.Time
}

type topicPublisher interface {
	Publisher(name string) *gcppubsub.Publisher
}

func NewRelay(cfg config.OutboxConfig, deps RelayDeps) (*Relay, error) {
	var missing error
	for name, ok := range map[string]bool{
		"logger":   deps.Logger != nil,
		"store":    deps.Store != nil,
		"broker":   deps.Broker != nil,
		"queue":    deps.Queue != nil,
		"dlq":      deps.DLQ != nil,
		"registry": deps.Registry != nil,
	} {
		if !ok {
			missing = multierr.Append(missing, fmt.Errorf("%s is required", name))
		}
	}
	if missing != nil {
		return nil, missing
	}

	if deps.Senders == nil {
		tp, ok := deps.Broker.(topicPublisher)
		if !ok {
			return nil, errors.New("senders are required when the broker cannot open publishers")
		}
		deps.Senders = pubsubSenders(tp)
	}

	r := &Relay{
		RelayDeps:   deps,
		batchSize:   positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts: positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		poll:        defaultPoll,
		now:         time.Now,
	}
	if cfg.PollIntervalMS > 0 {
		r.poll = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	if r.Limiter == nil {
		r.Limiter = newLimiter(cfg.PublishPerSecond, r.batchSize)
	}
	return r, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// newLimiter paces publishes at perSecond with a burst of one batch. A
// non-positive rate means unlimited.
func newLimiter(perSecond float64, burst int) *rate.Limiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return rate.NewLimiter(limit, burst)
}

// Run drains the outbox until ctx is canceled. Full batches are followed
// immediately by the next one; empty or failed passes wait with backoff.
func (r *Relay) Run(ctx context.Context) error {
	if err := multierr.Combine(
		r.ping(ctx, "database", r.Store.Ping),
		r.ping(ctx, "pubsub", r.Broker.Ping),
	); err != nil {
		return err
	}

	wait := newBackoff(r.poll, maxIdleBackoff)
	for {
		if err := ctx.Err(); err != nil {
			r.Logger.Info(ctx, "outbox relay stopping")
			return err
		}

		handled, err := r.drain(ctx)
		switch {
		case err != nil:
			r.Logger.Error(ctx, "outbox relay pass failed", err)
			if err := sleep(ctx, wait.next()); err != nil {
				return err
			}
		case handled == r.batchSize:
			wait.reset()
		default:
			wait.reset()
			if err := sleep(ctx, wait.idle()); err != nil {
				return err
			}
		}
	}
}

func (r *Relay) ping(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		r.Logger.Error(r.Logger.WithField(ctx, "dependency", name), "dependency ping failed", err)
		return fmt.Errorf("%s ping: %w", name, err)
	}
	return nil
}

// drain runs one pass inside a single transaction and reports how many rows
// it touched.
func (r *Relay) drain(ctx context.Context) (int, error) {
	started := r.now()
	defer func() { r.Metrics.ObserveBatch(r.now().Sub(started)) }()

	handled := 0
	err := r.Store.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.Queue.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		for _, event := range events {
			if err := r.settle(ctx, tx, event); err != nil {
				return err
			}
			handled++
		}
		if pending, err := r.Queue.Pending(tx); err == nil {
			r.Metrics.SetBacklog(pending)
		}
		return nil
	})
	return handled, err
}

// settle publishes one event and records the outcome on its row. Only
// bookkeeping failures are returned.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	resolved, err := r.Registry.Resolve(event)
	if err != nil {
		return r.deadLetter(ctx, tx, event, "", enums.OutboxDLQReasonUnroutable, err)
	}
	topic := resolved.Descriptor.Topic
	logCtx := r.Logger.WithFields(ctx, eventFields(event, resolved))

	pubErr := r.publish(ctx, event, resolved)
	switch outcome := classify(pubErr, event.AttemptCount+1, r.maxAttempts); outcome {
	case outcomePublished:
		if err := r.Queue.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		r.Metrics.IncPublished(string(event.EventType))
		r.Logger.Info(logCtx, "outbox event published")
		return nil
	case outcomeRetry:
		r.Metrics.IncFailed(string(event.EventType))
		r.Logger.Warn(r.Logger.WithField(logCtx, "error", pubErr.Error()), "outbox publish failed, will retry")
		if err := r.Queue.MarkFailedTx(tx, event.ID, pubErr); err != nil {
			return fmt.Errorf("mark failed %s: %w", event.ID, err)
		}
		return nil
	case outcomeExhausted:
		return r.deadLetter(ctx, tx, event, topic, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", r.maxAttempts, pubErr))
	default:
		return r.deadLetter(ctx, tx, event, topic, enums.OutboxDLQReasonNonRetryable, pubErr)
	}
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeExhausted
	outcomeRejected
)

func classify(err error, attempt, maxAttempts int) outcome {
	var nonRetryable registry.NonRetryableError
	switch {
	case err == nil:
		return outcomePublished
	case errors.As(err, &nonRetryable):
		return outcomeRejected
	case attempt >= maxAttempts:
		return outcomeExhausted
	}
	return outcomeRetry
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, topic string, reason enums.OutboxDLQErrorReason, cause error) error {
	fields := eventFields(event, nil)
	fields["error_reason"] = reason.String()
	fields["error"] = cause.Error()
	if topic != "" {
		fields["topic"] = topic
	}
	r.Logger.Warn(r.Logger.WithFields(ctx, fields), "outbox event dead-lettered")
	r.Metrics.IncDeadLettered(reason.String())

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      r.now().UTC(),
	}
	if err := r.DLQ.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := r.Queue.MarkTerminalTx(tx, event.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (r *Relay) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	s := r.Senders(topic)
	if s == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %q", topic))
	}
	if err := r.Limiter.Wait(ctx); err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return s.Send(sendCtx, &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: messageAttributes(event, resolved),
	})
}

func messageAttributes(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]string {
	attrs := map[string]string{
		"source":         messageSource,
		"event_id":       event.ID.String(),
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if resolved != nil {
		if resolved.Envelope.EventID != "" {
			attrs["event_id"] = resolved.Envelope.EventID
		}
		if resolved.Envelope.Version > 0 {
			attrs["schema_version"] = strconv.Itoa(resolved.Envelope.Version)
		}
	}
	return attrs
}

func eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	if resolved != nil {
		fields["topic"] = resolved.Descriptor.Topic
		if !resolved.Envelope.OccurredAt.IsZero() {
			fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)
		}
	}
	return fields
}

func pubsubSenders(tp topicPublisher) senderFor {
	return func(topic string) sender {
		p := tp.Publisher(topic)
		if p == nil {
			return nil
		}
		return pubsubSender{p}
	}
}

type pubsubSender struct {
	publisher *gcppubsub.Publisher
}

func (s pubsubSender) Send(ctx context.Context, msg *gcppubsub.Message) error {
	_, err := s.publisher.Publish(ctx, msg).Get(ctx)
	return err
}
