package workflow

// Trigger is something that happens to a request and may move its status
type Trigger string

const (
	TriggerAssign   Trigger = "ASSIGN"
	TriggerStart    Trigger = "START"
	TriggerAdvance  Trigger = "ADVANCE"
	TriggerComplete Trigger = "COMPLETE"
	TriggerReject   Trigger = "REJECT"
	TriggerFulfill  Trigger = "FULFILL"
)

func (t Trigger) String() string {
	return string(t)
}

// TriggerFor maps a status requested through a manual update to the trigger
// that produces it. New has no trigger; nothing moves a request back to New.
func TriggerFor(target State) (Trigger, bool) {
	switch target {
	case StateAssigned:
		return TriggerAssign, true
	case StateInProgress:
		return TriggerStart, true
	case StateCompleted:
		return TriggerComplete, true
	case StateRejected:
		return TriggerReject, true
	case StateFulfilled:
		return TriggerFulfill, true
	default:
		return "", false
	}
}
