package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
)

// CreateWorkflowInput is the definition of a new workflow
type CreateWorkflowInput struct {
	Name        string            `json:"name" validate:"required"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Active      *bool             `json:"active"`
	Steps       []CreateStepInput `json:"steps" validate:"dive"`
}

// CreateStepInput is one step of a workflow definition
type CreateStepInput struct {
	StepOrder    int    `json:"stepOrder" validate:"min=1"`
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	RequiredRole string `json:"requiredRole" validate:"required"`
	Action       string `json:"action" validate:"required"`
	AutoProgress bool   `json:"autoProgress"`
}

// WorkflowService is the workflow definition store
type WorkflowService interface {
	CreateWorkflow(ctx context.Context, in CreateWorkflowInput) (*entity.Workflow, error)
	GetWorkflow(ctx context.Context, id int64) (*entity.Workflow, error)
	ListWorkflows(ctx context.Context, activeOnly bool) ([]*entity.Workflow, error)
	SetActive(ctx context.Context, id int64, active bool) (*entity.Workflow, error)
	FindActiveByType(ctx context.Context, requestType string) (*entity.Workflow, error)
}

type workflowServiceImpl struct {
	workflowRepo port.WorkflowRepository
	txManager    port.TransactionManager
	logger       Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	workflowRepo port.WorkflowRepository,
	txManager port.TransactionManager,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		workflowRepo: workflowRepo,
		txManager:    txManager,
		logger:       logger,
	}
}

// CreateWorkflow validates step contiguity and stores the workflow with its steps
func (s *workflowServiceImpl) CreateWorkflow(ctx context.Context, in CreateWorkflowInput) (*entity.Workflow, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	wf := &entity.Workflow{
		Name:        in.Name,
		Type:        strings.TrimSpace(in.Type),
		Description: in.Description,
		IsActive:    in.Active == nil || *in.Active,
	}
	for _, st := range in.Steps {
		wf.Steps = append(wf.Steps, &entity.WorkflowStep{
			StepOrder:    st.StepOrder,
			Name:         strings.TrimSpace(st.Name),
			Description:  st.Description,
			RequiredRole: strings.TrimSpace(st.RequiredRole),
			Action:       strings.TrimSpace(st.Action),
			AutoProgress: st.AutoProgress,
		})
	}
	if err := entity.ValidateStepOrder(wf.Steps); err != nil {
		return nil, apperr.Validation("%v", err)
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.workflowRepo.Create(txCtx, wf); err != nil {
			return fmt.Errorf("create workflow: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create workflow", "name", wf.Name, "error", err)
		return nil, err
	}

	s.logger.Info("Workflow created", "id", wf.ID, "name", wf.Name, "steps", len(wf.Steps))
	return s.GetWorkflow(ctx, wf.ID)
}

// GetWorkflow returns the workflow with steps ordered by step order
func (s *workflowServiceImpl) GetWorkflow(ctx context.Context, id int64) (*entity.Workflow, error) {
	wf, err := s.workflowRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, apperr.NotFound("workflow", id)
	}
	return wf, nil
}

func (s *workflowServiceImpl) ListWorkflows(ctx context.Context, activeOnly bool) ([]*entity.Workflow, error) {
	return s.workflowRepo.List(ctx, activeOnly)
}

func (s *workflowServiceImpl) SetActive(ctx context.Context, id int64, active bool) (*entity.Workflow, error) {
	if _, err := s.GetWorkflow(ctx, id); err != nil {
		return nil, err
	}
	if err := s.workflowRepo.SetActive(ctx, id, active); err != nil {
		s.logger.Error("Failed to set workflow active flag", "id", id, "error", err)
		return nil, err
	}
	s.logger.Info("Workflow active flag changed", "id", id, "active", active)
	return s.GetWorkflow(ctx, id)
}

// FindActiveByType returns the active workflow bound to requestType, or NotFound
func (s *workflowServiceImpl) FindActiveByType(ctx context.Context, requestType string) (*entity.Workflow, error) {
	wf, err := s.workflowRepo.FindActiveByType(ctx, requestType)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, &apperr.Error{Kind: apperr.KindNotFound, Message: fmt.Sprintf("no active workflow for type %q", requestType)}
	}
	return wf, nil
}
