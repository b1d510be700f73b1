package workflow

import "context"

// NewRequestLifecycle builds the request status machine positioned at current.
//
//	New ─assign→ Assigned ─start/advance→ In Progress ─complete→ Completed ─fulfill→ Fulfilled
//	 any open state ─reject→ Rejected
func NewRequestLifecycle(current State) StateMachine {
	b := NewBuilder()

	for _, open := range []State{StateNew, StateAssigned, StateInProgress} {
		b.Configure(open).
			Permit(TriggerStart, StateInProgress).
			Permit(TriggerAdvance, StateInProgress).
			Permit(TriggerComplete, StateCompleted).
			Permit(TriggerReject, StateRejected)
	}

	b.Configure(StateNew).Permit(TriggerAssign, StateAssigned)
	b.Configure(StateAssigned).Permit(TriggerAssign, StateAssigned)
	// assignment does not pull an in-flight request back to Assigned
	b.Configure(StateInProgress).Permit(TriggerAssign, StateInProgress)

	b.Configure(StateCompleted).Permit(TriggerFulfill, StateFulfilled)

	return b.Build(current)
}

// Next returns the status reached by firing trigger from current, or an
// ErrInvalidTransition-wrapped error.
func Next(ctx context.Context, current State, trigger Trigger) (State, error) {
	if !current.IsValid() {
		return "", ErrInvalidState
	}
	m := NewRequestLifecycle(current)
	if err := m.Fire(ctx, trigger); err != nil {
		return "", err
	}
	return m.State(), nil
}
