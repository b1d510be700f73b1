package event

// Type is the name an event is published and subscribed under
type Type string

const (
	TypeRequestCreated       Type = "request-created"
	TypeRequestUpdated       Type = "request-updated"
	TypeRequestCompleted     Type = "request-completed"
	TypeRequestApproved      Type = "request-approved"
	TypeRequestItemUpdated   Type = "request-item-updated"
	TypeLowStockAlert        Type = "low-stock-alert"
	TypeReorderPointReached  Type = "reorder-point-reached"
	TypeMaintenanceCompleted Type = "maintenance-completed"
	TypeIncidentReported     Type = "incident-reported"
	TypeIncidentResolved     Type = "incident-resolved"
)

func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestCreated,
		TypeRequestUpdated,
		TypeRequestCompleted,
		TypeRequestApproved,
		TypeRequestItemUpdated,
		TypeLowStockAlert,
		TypeReorderPointReached,
		TypeMaintenanceCompleted,
		TypeIncidentReported,
		TypeIncidentResolved:
		return true
	default:
		return false
	}
}
