package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/messaging"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// RetryAttempts is the number of publish attempts before an event is failed.
	RetryAttempts int
	// RetryDelay is the base of the exponential backoff between attempts.
	RetryDelay time.Duration
	// Retention is how long processed events are kept; zero keeps them forever.
	Retention     time.Duration
	PurgeInterval time.Duration
}

func (c OutboxProcessorConfig) validate() error {
	switch {
	case c.BatchSize <= 0:
		return errors.New("BatchSize must be greater than 0")
	case c.PollInterval <= 0:
		return errors.New("PollInterval must be greater than 0")
	case c.RetryAttempts <= 0:
		return errors.New("RetryAttempts must be greater than 0")
	case c.RetryDelay <= 0:
		return errors.New("RetryDelay must be greater than 0")
	}
	return nil
}

// OutboxProcessor relays outbox rows to the broker. Each batch is claimed
// with FOR UPDATE SKIP LOCKED, so several processors can run side by side.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid outbox processor config: %w", err)
	}
	if config.PurgeInterval <= 0 {
		config.PurgeInterval = time.Hour
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()
	purge := time.NewTicker(p.config.PurgeInterval)
	defer purge.Stop()

	p.logger.Info("Starting outbox processor",
		"batch_size", p.config.BatchSize,
		"poll_interval", p.config.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		case <-purge.C:
			if err := p.purge(ctx); err != nil {
				p.logger.Error(err, "Failed to purge processed events")
			}
		}
	}
}

// ProcessBatch claims up to BatchSize due events, publishes each one and
// records the outcome in the same transaction. It returns how many events
// were claimed.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	start := p.now()
	claimed := 0

	err := p.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		events, err := p.repo.GetPendingEventsWithLock(ctx, tx, p.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to get pending events: %w", err)
		}
		claimed = len(events)

		for _, event := range events {
			if err := p.processEvent(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})

	p.metrics.OutboxBatch(claimed, time.Since(start))
	return claimed, err
}

// processEvent only returns an error when the status write fails; publish
// failures are recorded on the row.
func (p *OutboxProcessor) processEvent(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	msg := model.EventMessage{
		ID:         event.ID,
		Type:       event.EventType,
		Payload:    event.Payload,
		OccurredAt: event.CreatedAt,
	}

	pubErr := p.broker.Publish(ctx, event.EventType, msg)
	if pubErr == nil {
		if err := p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusProcessed, nil, nil); err != nil {
			return fmt.Errorf("failed to mark event %s processed: %w", event.ID, err)
		}
		p.metrics.OutboxProcessed()
		return nil
	}

	errStr := pubErr.Error()
	attempt := event.RetryCount + 1
	if attempt >= p.config.RetryAttempts {
		p.logger.Error(pubErr, "Giving up on event",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"attempts", attempt)
		p.metrics.OutboxFailed()
		if err := p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusFailed, &errStr, nil); err != nil {
			return fmt.Errorf("failed to mark event %s failed: %w", event.ID, err)
		}
		return nil
	}

	retryAt := p.now().Add(backoff(p.config.RetryDelay, event.RetryCount))
	p.logger.Warn("Publish failed, will retry",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"retry_at", retryAt.Format(time.RFC3339),
		"error", errStr)
	p.metrics.OutboxRetry(event.EventType)
	if err := p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusRetry, &errStr, &retryAt); err != nil {
		return fmt.Errorf("failed to schedule retry for event %s: %w", event.ID, err)
	}
	return nil
}

func (p *OutboxProcessor) purge(ctx context.Context) error {
	if p.config.Retention <= 0 {
		return nil
	}
	n, err := p.repo.DeleteProcessedBefore(ctx, p.now().Add(-p.config.Retention))
	if err != nil {
		return err
	}
	p.metrics.Purged("outbox_events", n)
	return nil
}

// backoff doubles base for every previous attempt.
func backoff(base time.Duration, previous int) time.Duration {
	return time.Duration(float64(base) * math.Pow(2, float64(previous)))
}
