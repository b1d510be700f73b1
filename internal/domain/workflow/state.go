package workflow

// State is a request lifecycle status. The string values are the ones persisted
// on the requests table.
type State string

const (
	StateNew        State = "New"
	StateAssigned   State = "Assigned"
	StateInProgress State = "In Progress"
	StateCompleted  State = "Completed"
	StateRejected   State = "Rejected"
	StateFulfilled  State = "Fulfilled"
)

var validStates = map[State]bool{
	StateNew:        true,
	StateAssigned:   true,
	StateInProgress: true,
	StateCompleted:  true,
	StateRejected:   true,
	StateFulfilled:  true,
}

// closedStates cannot be reopened. Completed still permits Fulfill.
var closedStates = map[State]bool{
	StateCompleted: true,
	StateRejected:  true,
	StateFulfilled: true,
}

// IsClosed reports whether the request has left the approval flow.
func (s State) IsClosed() bool {
	return closedStates[s]
}

// IsTerminal reports whether no transition at all leaves the state.
func (s State) IsTerminal() bool {
	return s == StateRejected || s == StateFulfilled
}

func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known request status
func (s State) IsValid() bool {
	return validStates[s]
}
