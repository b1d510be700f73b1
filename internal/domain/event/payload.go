package event

import "time"

// Payload is implemented by exactly one struct per event Type
type Payload interface {
	EventType() Type
}

type RequestCreated struct {
	RequestID   int64  `json:"requestId"`
	RequesterID int64  `json:"requesterId"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
}

// RequestUpdated is emitted for every persisted change of a request.
// Change is one of "status", "assignment", "step" or "fulfillment".
type RequestUpdated struct {
	RequestID      int64  `json:"requestId"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previousStatus"`
	Change         string `json:"change"`
	ActorID        *int64 `json:"actorId,omitempty"`
}

type RequestCompleted struct {
	RequestID   int64     `json:"requestId"`
	RequesterID int64     `json:"requesterId"`
	Status      string    `json:"status"`
	CompletedAt time.Time `json:"completedAt"`
}

// RequestApproved is emitted when the last workflow step of a request is approved
type RequestApproved struct {
	RequestID  int64  `json:"requestId"`
	ApproverID *int64 `json:"approverId,omitempty"`
	AssigneeID *int64 `json:"assigneeId,omitempty"`
}

type RequestItemUpdated struct {
	RequestID     int64  `json:"requestId"`
	ItemID        int64  `json:"itemId"`
	CatalogItemID int64  `json:"catalogItemId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

type LowStockAlert struct {
	CatalogItemID int64  `json:"catalogItemId"`
	StockRecordID int64  `json:"stockRecordId"`
	ItemName      string `json:"itemName"`
	Quantity      int    `json:"quantity"`
	MinStockLevel int    `json:"minStockLevel"`
}

type ReorderPointReached struct {
	CatalogItemID int64  `json:"catalogItemId"`
	StockRecordID int64  `json:"stockRecordId"`
	ItemName      string `json:"itemName"`
	Quantity      int    `json:"quantity"`
	ReorderPoint  int    `json:"reorderPoint"`
}

type MaintenanceCompleted struct {
	MaintenanceID int64     `json:"maintenanceId"`
	AssetID       int64     `json:"assetId"`
	Title         string    `json:"title"`
	Type          string    `json:"type"`
	Outcome       string    `json:"outcome,omitempty"`
	Date          time.Time `json:"date"`
	PerformedByID *int64    `json:"performedById,omitempty"`
}

type IncidentReported struct {
	IncidentID int64     `json:"incidentId"`
	AssetID    int64     `json:"assetId"`
	Title      string    `json:"title"`
	Priority   string    `json:"priority"`
	ReportedAt time.Time `json:"reportedAt"`
}

type IncidentResolved struct {
	IncidentID        int64     `json:"incidentId"`
	AssetID           int64     `json:"assetId"`
	Title             string    `json:"title"`
	Priority          string    `json:"priority"`
	ReportedAt        time.Time `json:"reportedAt"`
	ResolvedAt        time.Time `json:"resolvedAt"`
	RootCause         string    `json:"rootCause,omitempty"`
	ResolutionSummary string    `json:"resolutionSummary,omitempty"`
}

func (RequestCreated) EventType() Type       { return TypeRequestCreated }
func (RequestUpdated) EventType() Type       { return TypeRequestUpdated }
func (RequestCompleted) EventType() Type     { return TypeRequestCompleted }
func (RequestApproved) EventType() Type      { return TypeRequestApproved }
func (RequestItemUpdated) EventType() Type   { return TypeRequestItemUpdated }
func (LowStockAlert) EventType() Type        { return TypeLowStockAlert }
func (ReorderPointReached) EventType() Type  { return TypeReorderPointReached }
func (MaintenanceCompleted) EventType() Type { return TypeMaintenanceCompleted }
func (IncidentReported) EventType() Type     { return TypeIncidentReported }
func (IncidentResolved) EventType() Type     { return TypeIncidentResolved }
