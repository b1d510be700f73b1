package workflow

import (
	"context"

	"github.com/garyjia/hospital-itsm/internal/domain/entity"
)

// StepCommand is an actor's decision on the pending step of a request
type StepCommand struct {
	RequestID      int64
	StepID         int64
	Action         string
	Notes          string
	AssignToNextID *int64
	ActorID        int64
}

// Engine drives requests through their workflow one step at a time
type Engine interface {
	// Seed binds wf to a freshly created request and opens its first step.
	// It must run inside the caller's transaction and persists req.
	Seed(ctx context.Context, req *entity.Request, wf *entity.Workflow) error

	// ProcessStep closes the pending progress for cmd.StepID and advances,
	// completes or rejects the request, atomically.
	ProcessStep(ctx context.Context, cmd StepCommand) (*entity.Request, error)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
