package entity

// Request status values. They match workflow.State.
const (
	RequestStatusNew        = "New"
	RequestStatusAssigned   = "Assigned"
	RequestStatusInProgress = "In Progress"
	RequestStatusCompleted  = "Completed"
	RequestStatusRejected   = "Rejected"
	RequestStatusFulfilled  = "Fulfilled"
)

// Request priorities
const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

// RequestItem status values
const (
	ItemStatusPending     = "Pending"
	ItemStatusFulfilled   = "Fulfilled"
	ItemStatusBackordered = "Backordered"
)

// RequestProgress status values
const (
	ProgressStatusPending   = "Pending"
	ProgressStatusCompleted = "Completed"
	ProgressStatusRejected  = "Rejected"
)

// Step actions submitted by an actor
const (
	StepActionApprove = "approve"
	StepActionReject  = "reject"
)

// Stock movement types
const (
	MovementTypeIssue   = "issue"
	MovementTypeReceipt = "receipt"
)

// Asset health, maintenance and reliability values
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"

	MaintenanceUpToDate = "up-to-date"

	ReliabilityHigh   = "High"
	ReliabilityMedium = "Medium"
	ReliabilityLow    = "Low"
)

// Incident status values
const (
	IncidentStatusOpen     = "Open"
	IncidentStatusResolved = "Resolved"
)

// Notification types
const (
	NotificationRequestCreated   = "request_created"
	NotificationRequestCompleted = "request_completed"
	NotificationItemUpdated      = "request_item_updated"
	NotificationLowStock         = "low_stock"
	NotificationReorderPoint     = "reorder_point"
)

// Outbox message status values
const (
	OutboxStatusPending   = "pending"
	OutboxStatusDelivered = "delivered"
	OutboxStatusDead      = "dead"
)

// MaxHistoryEntries bounds maintenanceHistory and incidentHistory on an asset
const MaxHistoryEntries = 10

// IsValidPriority reports whether p is one of the four request priorities
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
