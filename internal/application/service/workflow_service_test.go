package service

import (
	"context"
	"testing"

	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowService_CreateWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wf, err := f.workflows.CreateWorkflow(ctx, CreateWorkflowInput{
		Name: "Software install",
		Type: "Software",
		Steps: []CreateStepInput{
			{StepOrder: 2, Name: "Install", RequiredRole: "it_staff", Action: "install"},
			{StepOrder: 1, Name: "License check", RequiredRole: "manager", Action: "approve", AutoProgress: true},
		},
	})
	require.NoError(t, err)
	assert.True(t, wf.IsActive)
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, "License check", wf.Steps[0].Name)
	assert.True(t, wf.Steps[0].AutoProgress)
	assert.Equal(t, 2, wf.Steps[1].StepOrder)
}

func TestWorkflowService_CreateWorkflowRejectsBrokenOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		orders []int
	}{
		{"gap", []int{1, 3}},
		{"duplicate", []int{1, 1}},
		{"zero", []int{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := CreateWorkflowInput{Name: "Broken " + tt.name}
			for _, o := range tt.orders {
				in.Steps = append(in.Steps, CreateStepInput{StepOrder: o, Name: "step", RequiredRole: "manager", Action: "approve"})
			}
			_, err := f.workflows.CreateWorkflow(ctx, in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	all, err := f.workflows.ListWorkflows(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestWorkflowService_ActiveFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wf := f.twoStepWorkflow(t, "Equipment")

	found, err := f.workflows.FindActiveByType(ctx, "Equipment")
	require.NoError(t, err)
	assert.Equal(t, wf.ID, found.ID)

	off, err := f.workflows.SetActive(ctx, wf.ID, false)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	_, err = f.workflows.FindActiveByType(ctx, "Equipment")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	active, err := f.workflows.ListWorkflows(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = f.workflows.SetActive(ctx, 9999, true)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
