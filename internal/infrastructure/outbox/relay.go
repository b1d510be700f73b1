package outbox

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
	"go.uber.org/zap"
)

// Deliverer runs a single named handler for an event
type Deliverer interface {
	DispatchTo(ctx context.Context, evt *event.Event, name string) error
}

// RelayOptions tunes delivery. Zero values take defaults.
type RelayOptions struct {
	BatchSize       int
	LockTTL         time.Duration
	MaxAttempts     int
	MaxBackoff      time.Duration
	JitterMax       time.Duration
	LastErrorMaxLen int
	DispatchTimeout time.Duration

	Rand *rand.Rand
	Now  func() time.Time
}

func (o *RelayOptions) setDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 60 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 25
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 60 * time.Second
	}
	if o.JitterMax < 0 {
		o.JitterMax = 0
	}
	if o.LastErrorMaxLen <= 0 {
		o.LastErrorMaxLen = 2048
	}
	if o.DispatchTimeout <= 0 {
		o.DispatchTimeout = 30 * time.Second
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
}

// Result summarizes one relay pass
type Result struct {
	Claimed   int
	Delivered int
	Retried   int
	Dead      int
}

// Relay delivers claimed outbox rows to their handlers
type Relay struct {
	repo      port.OutboxRepository
	deliverer Deliverer
	opts      RelayOptions
	logger    *zap.Logger
	m         *metrics
}

// NewRelay creates a relay over repo
func NewRelay(repo port.OutboxRepository, deliverer Deliverer, opts RelayOptions, logger *zap.Logger) *Relay {
	opts.setDefaults()
	return &Relay{
		repo:      repo,
		deliverer: deliverer,
		opts:      opts,
		logger:    logger,
		m:         getMetrics(),
	}
}

// ProcessOnce claims one batch of due rows and attempts each delivery once
func (r *Relay) ProcessOnce(ctx context.Context) (Result, error) {
	var res Result

	msgs, err := r.repo.Claim(ctx, r.opts.Now(), r.opts.LockTTL, r.opts.BatchSize)
	if err != nil {
		return res, fmt.Errorf("failed to claim outbox messages: %w", err)
	}
	res.Claimed = len(msgs)

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		deliverErr := r.deliver(ctx, msg)
		if deliverErr == nil {
			if err := r.repo.MarkDelivered(ctx, msg.ID, r.opts.Now()); err != nil {
				r.logger.Warn("Failed to acknowledge outbox message", zap.String("id", msg.ID), zap.Error(err))
				continue
			}
			res.Delivered++
			continue
		}

		attempts := msg.Attempts + 1
		lastErr := truncate(deliverErr.Error(), r.opts.LastErrorMaxLen)

		if attempts >= r.opts.MaxAttempts {
			if err := r.repo.MarkDead(ctx, msg.ID, attempts, lastErr); err != nil {
				r.logger.Warn("Failed to mark outbox message dead", zap.String("id", msg.ID), zap.Error(err))
				continue
			}
			r.m.deadTotal.WithLabelValues(msg.EventType, msg.Handler).Inc()
			r.logger.Error("Outbox message is dead",
				zap.String("id", msg.ID),
				zap.String("event_id", msg.EventID),
				zap.String("event_type", msg.EventType),
				zap.String("handler", msg.Handler),
				zap.Int("attempts", attempts),
				zap.String("last_error", lastErr))
			res.Dead++
			continue
		}

		next := r.opts.Now().Add(backoff(attempts, r.opts.MaxBackoff) + jitter(r.opts.Rand, r.opts.JitterMax))
		if err := r.repo.MarkRetry(ctx, msg.ID, attempts, next, lastErr); err != nil {
			r.logger.Warn("Failed to reschedule outbox message", zap.String("id", msg.ID), zap.Error(err))
			continue
		}
		r.logger.Warn("Outbox delivery failed, will retry",
			zap.String("event_id", msg.EventID),
			zap.String("handler", msg.Handler),
			zap.Int("attempts", attempts),
			zap.Time("available_at", next),
			zap.Error(deliverErr))
		res.Retried++
	}

	return res, nil
}

// ObserveQueue refreshes the per-status gauge
func (r *Relay) ObserveQueue(ctx context.Context) error {
	counts, err := r.repo.CountByStatus(ctx)
	if err != nil {
		return err
	}
	for status, n := range counts {
		r.m.queued.WithLabelValues(status).Set(float64(n))
	}
	return nil
}

func (r *Relay) deliver(ctx context.Context, msg *entity.OutboxMessage) error {
	evt, err := event.Decode(msg.Payload)
	if err != nil {
		r.m.dispatchTotal.WithLabelValues(msg.EventType, msg.Handler, "decode_error").Inc()
		return fmt.Errorf("failed to decode outbox payload: %w", err)
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, r.opts.DispatchTimeout)
	defer cancel()

	start := time.Now()
	err = r.deliverer.DispatchTo(dispatchCtx, evt, msg.Handler)
	result := "success"
	if err != nil {
		result = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			result = "timeout"
		}
	}
	r.m.dispatchTotal.WithLabelValues(msg.EventType, msg.Handler, result).Inc()
	r.m.dispatchLatency.WithLabelValues(msg.EventType, result).Observe(time.Since(start).Seconds())
	return err
}
