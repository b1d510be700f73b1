package port

import (
	"context"
	"io"

	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
)

// EventPublisher publishes domain events. Implementations that are durable
// must join the transaction carried in ctx.
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.Event) error
}

// RoleChecker decides whether an actor role may act on a step requiring another role
type RoleChecker interface {
	Satisfies(ctx context.Context, actorRole, requiredRole string) (bool, error)
}

// RequestReport is the data exported by the report writer
type RequestReport struct {
	Requests  []*entity.Request
	Movements []*entity.StockMovement
}

// ReportWriter renders a request report to w
type ReportWriter interface {
	WriteRequests(w io.Writer, report RequestReport) error
}
