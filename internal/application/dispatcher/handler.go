package dispatcher

import (
	"context"

	"github.com/garyjia/hospital-itsm/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler. Name is the handler id used for
// targeted redelivery.
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}
