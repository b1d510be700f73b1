package outbox

import (
	"context"
	"fmt"

	"github.com/garyjia/hospital-itsm/internal/application/dispatcher"
	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandlerLister reports which handlers are subscribed to an event type
type HandlerLister interface {
	ListHandlers(eventType event.Type) []dispatcher.HandlerInfo
}

// Publisher writes one outbox row per subscribed handler. It uses the
// transaction carried in ctx, so an event commits or rolls back with the
// state change that produced it.
type Publisher struct {
	repo     port.OutboxRepository
	handlers HandlerLister
	logger   *zap.Logger
	m        *metrics
}

// NewPublisher creates a durable event publisher
func NewPublisher(repo port.OutboxRepository, handlers HandlerLister, logger *zap.Logger) *Publisher {
	return &Publisher{
		repo:     repo,
		handlers: handlers,
		logger:   logger,
		m:        getMetrics(),
	}
}

// Publish implements port.EventPublisher
func (p *Publisher) Publish(ctx context.Context, evt *event.Event) error {
	subscribed := p.handlers.ListHandlers(evt.Type)
	if len(subscribed) == 0 {
		p.logger.Debug("No handlers subscribed, event not enqueued",
			zap.String("event_type", string(evt.Type)), zap.String("event_id", evt.ID))
		return nil
	}

	payload, err := event.Encode(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msgs := make([]*entity.OutboxMessage, 0, len(subscribed))
	for _, h := range subscribed {
		msgs = append(msgs, &entity.OutboxMessage{
			ID:          uuid.NewString(),
			EventID:     evt.ID,
			EventType:   string(evt.Type),
			Handler:     h.Name,
			Payload:     payload,
			Status:      entity.OutboxStatusPending,
			AvailableAt: evt.Timestamp,
		})
	}

	if err := p.repo.Enqueue(ctx, msgs); err != nil {
		return err
	}
	p.m.enqueueTotal.WithLabelValues(string(evt.Type)).Add(float64(len(msgs)))
	return nil
}

var _ port.EventPublisher = (*Publisher)(nil)
