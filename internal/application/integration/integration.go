package integration

import (
	"github.com/garyjia/hospital-itsm/internal/application/dispatcher"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Subscriber registers named event handlers
type Subscriber interface {
	SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler, description ...string)
}
