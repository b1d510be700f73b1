package port

import (
	"context"
	"time"

	"github.com/garyjia/hospital-itsm/internal/domain/entity"
)

// Repositories return (nil, nil) when a row does not exist. Callers decide
// whether that is a NotFoundError.

// RequestRepository defines persistence operations for Request
type RequestRepository interface {
	Create(ctx context.Context, req *entity.Request) error
	GetByID(ctx context.Context, id int64) (*entity.Request, error)
	// Update writes the mutable columns: status, assignee, workflow, notes,
	// due and completed dates, metadata.
	Update(ctx context.Context, req *entity.Request) error
	List(ctx context.Context, filter entity.RequestFilter) ([]*entity.Request, error)
}

// RequestItemRepository defines persistence operations for RequestItem
type RequestItemRepository interface {
	Create(ctx context.Context, item *entity.RequestItem) error
	GetByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestItem, error)
	GetUnfulfilled(ctx context.Context, requestID int64) ([]*entity.RequestItem, error)
	CountUnfulfilled(ctx context.Context, requestID int64) (int, error)
	MarkFulfilled(ctx context.Context, id int64, at time.Time) error
	MarkBackordered(ctx context.Context, id int64, note string) error
}

// CommentRepository defines persistence operations for RequestComment
type CommentRepository interface {
	Create(ctx context.Context, comment *entity.RequestComment) error
	GetByRequestID(ctx context.Context, requestID int64, includePrivate bool) ([]*entity.RequestComment, error)
}

// WorkflowRepository defines persistence operations for Workflow and its steps
type WorkflowRepository interface {
	// Create inserts the workflow and all of its steps
	Create(ctx context.Context, wf *entity.Workflow) error
	// GetByID loads the workflow with steps ordered by step order
	GetByID(ctx context.Context, id int64) (*entity.Workflow, error)
	List(ctx context.Context, activeOnly bool) ([]*entity.Workflow, error)
	FindActiveByType(ctx context.Context, requestType string) (*entity.Workflow, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// ProgressRepository defines persistence operations for RequestProgress
type ProgressRepository interface {
	Create(ctx context.Context, p *entity.RequestProgress) error
	FindPending(ctx context.Context, requestID, stepID int64) (*entity.RequestProgress, error)
	// Close stores the closing fields of p only if the row is still Pending.
	// It reports false when another caller closed it first.
	Close(ctx context.Context, p *entity.RequestProgress) (bool, error)
	GetByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestProgress, error)
	CountPending(ctx context.Context, requestID int64) (int, error)
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// CatalogRepository defines persistence operations for CatalogItem
type CatalogRepository interface {
	Create(ctx context.Context, item *entity.CatalogItem) error
	GetByID(ctx context.Context, id int64) (*entity.CatalogItem, error)
}

// MovementFilter narrows ListMovements. Zero values mean "any".
type MovementFilter struct {
	CatalogItemID   int64
	ReferencePrefix string
	Limit           int
}

// StockRepository covers stock records and the movement ledger
type StockRepository interface {
	Create(ctx context.Context, rec *entity.StockRecord) error
	GetByID(ctx context.Context, id int64) (*entity.StockRecord, error)
	GetByItemAndLocation(ctx context.Context, catalogItemID int64, location string) (*entity.StockRecord, error)
	ListByItem(ctx context.Context, catalogItemID int64) ([]*entity.StockRecord, error)
	// FindAvailable returns the most recently checked record holding at least quantity
	FindAvailable(ctx context.Context, catalogItemID int64, quantity int) (*entity.StockRecord, error)
	// Decrement subtracts quantity only if the record still holds that much.
	// It reports false when the condition no longer held.
	Decrement(ctx context.Context, id int64, quantity int) (bool, error)
	Increment(ctx context.Context, id int64, quantity int, checkedAt time.Time) error
	CreateMovement(ctx context.Context, m *entity.StockMovement) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error)
}

// AssetRepository is the asset store used by the asset-history integration
type AssetRepository interface {
	Create(ctx context.Context, asset *entity.Asset) error
	GetByID(ctx context.Context, id int64) (*entity.Asset, error)
	UpdateMetadata(ctx context.Context, id int64, metadata entity.AssetMetadata) error
}

// MaintenanceRepository defines persistence operations for MaintenanceRecord
type MaintenanceRepository interface {
	Create(ctx context.Context, rec *entity.MaintenanceRecord) error
}

// IncidentRepository defines persistence operations for Incident
type IncidentRepository interface {
	Create(ctx context.Context, inc *entity.Incident) error
	GetByID(ctx context.Context, id int64) (*entity.Incident, error)
	// Resolve stores the resolution fields only if the incident is still open
	Resolve(ctx context.Context, inc *entity.Incident) (bool, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	// ListForUser returns the user's notifications plus broadcast ones
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id int64) (bool, error)
}

// OutboxRepository stores per-handler event deliveries
type OutboxRepository interface {
	Enqueue(ctx context.Context, msgs []*entity.OutboxMessage) error
	// Claim locks up to limit due messages until now+lockTTL and returns them
	Claim(ctx context.Context, now time.Time, lockTTL time.Duration, limit int) ([]*entity.OutboxMessage, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	MarkRetry(ctx context.Context, id string, attempts int, availableAt time.Time, lastErr string) error
	MarkDead(ctx context.Context, id string, attempts int, lastErr string) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	// WithTransaction runs fn in a transaction carried by the ctx passed to fn.
	// Nested calls join the outer transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// AfterCommit runs fn once the transaction in ctx commits, or immediately
	// when ctx carries no transaction. fn is dropped on rollback. The context
	// passed to fn never carries the committed transaction.
	AfterCommit(ctx context.Context, fn func(ctx context.Context))
}
