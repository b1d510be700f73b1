package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/hospital-itsm/internal/infrastructure/outbox"
	"go.uber.org/zap"
)

// OutboxRelayConfig holds polling settings for the relay worker
type OutboxRelayConfig struct {
	PollInterval      time.Duration
	ObserveQueueEvery time.Duration
}

// DefaultOutboxRelayConfig returns default configuration
func DefaultOutboxRelayConfig() OutboxRelayConfig {
	return OutboxRelayConfig{
		PollInterval:      time.Second,
		ObserveQueueEvery: 10 * time.Second,
	}
}

// Relay is the part of outbox.Relay the worker drives
type Relay interface {
	ProcessOnce(ctx context.Context) (outbox.Result, error)
	ObserveQueue(ctx context.Context) error
}

// OutboxRelayWorker polls the outbox and delivers due events
type OutboxRelayWorker struct {
	config OutboxRelayConfig
	relay  Relay
	logger *zap.Logger

	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	stats     RelayStats
}

// RelayStats are cumulative counters since Start
type RelayStats struct {
	Delivered     int
	Retried       int
	Dead          int
	LastProcessed time.Time
	LastError     string
}

// NewOutboxRelayWorker creates the relay worker
func NewOutboxRelayWorker(config OutboxRelayConfig, relay Relay, logger *zap.Logger) *OutboxRelayWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultOutboxRelayConfig().PollInterval
	}
	if config.ObserveQueueEvery <= 0 {
		config.ObserveQueueEvery = DefaultOutboxRelayConfig().ObserveQueueEvery
	}
	return &OutboxRelayWorker{
		config: config,
		relay:  relay,
		logger: logger,
	}
}

// Start begins the polling loop
func (w *OutboxRelayWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("outbox relay worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true
	w.stats = RelayStats{}

	w.logger.Info("OutboxRelayWorker started", zap.Duration("poll_interval", w.config.PollInterval))
	go w.pollLoop(runCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for the in-flight batch to finish
func (w *OutboxRelayWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	stats := w.Stats()
	w.logger.Info("OutboxRelayWorker stopped",
		zap.Int("delivered", stats.Delivered),
		zap.Int("retried", stats.Retried),
		zap.Int("dead", stats.Dead))
	return nil
}

// Name returns the worker name
func (w *OutboxRelayWorker) Name() string {
	return "OutboxRelayWorker"
}

// Stats returns a copy of the counters
func (w *OutboxRelayWorker) Stats() RelayStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *OutboxRelayWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()
	nextObserve := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if time.Now().After(nextObserve) {
			if err := w.relay.ObserveQueue(ctx); err != nil {
				w.logger.Debug("Failed to observe outbox queue", zap.Error(err))
			}
			nextObserve = time.Now().Add(w.config.ObserveQueueEvery)
		}

		// drain: keep going while full batches come back
		for {
			res, err := w.relay.ProcessOnce(ctx)
			w.record(res, err)
			if err != nil {
				if ctx.Err() == nil {
					w.logger.Error("Outbox relay pass failed", zap.Error(err))
				}
				break
			}
			if res.Claimed == 0 || res.Delivered+res.Retried+res.Dead < res.Claimed || ctx.Err() != nil {
				break
			}
		}
	}
}

func (w *OutboxRelayWorker) record(res outbox.Result, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Delivered += res.Delivered
	w.stats.Retried += res.Retried
	w.stats.Dead += res.Dead
	w.stats.LastProcessed = time.Now()
	if err != nil {
		w.stats.LastError = err.Error()
	}
}
