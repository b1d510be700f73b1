package entity

import "testing"

func steps(orders ...int) []*WorkflowStep {
	out := make([]*WorkflowStep, len(orders))
	for i, o := range orders {
		out[i] = &WorkflowStep{Name: "step", StepOrder: o}
	}
	return out
}

func TestValidateStepOrder(t *testing.T) {
	tests := []struct {
		name    string
		steps   []*WorkflowStep
		wantErr bool
	}{
		{"empty workflow", nil, false},
		{"contiguous", steps(1, 2, 3), false},
		{"unordered but contiguous", steps(3, 1, 2), false},
		{"gap", steps(1, 3), true},
		{"duplicate", steps(1, 1), true},
		{"zero based", steps(0, 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStepOrder(tt.steps)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStepOrder() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequest_AppendNote(t *testing.T) {
	r := &Request{}
	r.AppendNote("first")
	r.AppendNote("   ")
	r.AppendNote("second")

	if r.Notes != "first\nsecond" {
		t.Errorf("Notes = %q, want %q", r.Notes, "first\nsecond")
	}
}

func TestWorkflow_StepLookup(t *testing.T) {
	w := &Workflow{Steps: []*WorkflowStep{
		{ID: 10, StepOrder: 1},
		{ID: 11, StepOrder: 2},
	}}

	if s := w.StepByOrder(2); s == nil || s.ID != 11 {
		t.Errorf("StepByOrder(2) = %v, want step 11", s)
	}
	if s := w.StepByOrder(3); s != nil {
		t.Errorf("StepByOrder(3) = %v, want nil", s)
	}
	if s := w.StepByID(10); s == nil || s.StepOrder != 1 {
		t.Errorf("StepByID(10) = %v, want order 1", s)
	}
}
