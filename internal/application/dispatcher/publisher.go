package dispatcher

import (
	"context"

	"github.com/garyjia/hospital-itsm/internal/domain/event"
)

// CommitHooks defers work until the surrounding transaction commits
type CommitHooks interface {
	AfterCommit(ctx context.Context, fn func(ctx context.Context))
}

// Publisher hands events to the dispatcher without a durable store. Events
// published inside a transaction are only dispatched once it commits, and are
// dropped if it rolls back.
type Publisher struct {
	dispatcher Dispatcher
	hooks      CommitHooks
}

// NewPublisher creates a non-durable publisher over d
func NewPublisher(d Dispatcher, hooks CommitHooks) *Publisher {
	return &Publisher{dispatcher: d, hooks: hooks}
}

// Publish schedules evt for asynchronous delivery
func (p *Publisher) Publish(ctx context.Context, evt *event.Event) error {
	if p.hooks == nil {
		p.dispatcher.DispatchAsync(ctx, evt)
		return nil
	}
	p.hooks.AfterCommit(ctx, func(committed context.Context) {
		p.dispatcher.DispatchAsync(committed, evt)
	})
	return nil
}
