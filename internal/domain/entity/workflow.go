package entity

import (
	"fmt"
	"time"
)

// Workflow is a named, ordered sequence of approval steps
type Workflow struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type,omitempty"`
	IsActive    bool            `json:"is_active"`
	Steps       []*WorkflowStep `json:"steps,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// WorkflowStep is one stage of a workflow. StepOrder is 1-based and contiguous.
type WorkflowStep struct {
	ID           int64     `json:"id"`
	WorkflowID   int64     `json:"workflow_id"`
	StepOrder    int       `json:"step_order"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	RequiredRole string    `json:"required_role"`
	Action       string    `json:"action"`
	AutoProgress bool      `json:"auto_progress"`
	CreatedAt    time.Time `json:"created_at"`
}

// StepByOrder returns the step with the given order, or nil
func (w *Workflow) StepByOrder(order int) *WorkflowStep {
	for _, s := range w.Steps {
		if s.StepOrder == order {
			return s
		}
	}
	return nil
}

// StepByID returns the step with the given id, or nil
func (w *Workflow) StepByID(id int64) *WorkflowStep {
	for _, s := range w.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// ValidateStepOrder checks that step orders are exactly 1..N in any input order
func ValidateStepOrder(steps []*WorkflowStep) error {
	seen := make(map[int]bool, len(steps))
	for _, s := range steps {
		if s.StepOrder < 1 || s.StepOrder > len(steps) {
			return fmt.Errorf("step %q has order %d, expected 1..%d", s.Name, s.StepOrder, len(steps))
		}
		if seen[s.StepOrder] {
			return fmt.Errorf("step order %d is used more than once", s.StepOrder)
		}
		seen[s.StepOrder] = true
	}
	return nil
}

// RequestProgress records a request's passage through one workflow step
type RequestProgress struct {
	ID            int64      `json:"id"`
	RequestID     int64      `json:"request_id"`
	StepID        int64      `json:"step_id"`
	StepOrder     int        `json:"step_order"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Result        string     `json:"result,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	AssigneeID    *int64     `json:"assignee_id,omitempty"`
	CompletedByID *int64     `json:"completed_by_id,omitempty"`
}
