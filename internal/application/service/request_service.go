package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/application/workflow"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
	domainwf "github.com/garyjia/hospital-itsm/internal/domain/workflow"
	"github.com/google/uuid"
)

// CreateRequestInput is the payload of a new IT request
type CreateRequestInput struct {
	Title       string                 `json:"title" validate:"required"`
	Description string                 `json:"description"`
	Type        string                 `json:"type" validate:"required"`
	Priority    string                 `json:"priority" validate:"omitempty,oneof=Low Medium High Critical"`
	DueDate     *time.Time             `json:"dueDate"`
	Notes       string                 `json:"notes"`
	WorkflowID  *int64                 `json:"workflowId"`
	Items       []CreateItemInput      `json:"items" validate:"dive"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// CreateItemInput is one requested catalog line
type CreateItemInput struct {
	CatalogItemID int64  `json:"catalogItemId" validate:"required"`
	Quantity      int    `json:"quantity" validate:"min=1"`
	Notes         string `json:"notes"`
}

// RequestService manages IT requests outside of step processing
type RequestService interface {
	CreateRequest(ctx context.Context, requesterID int64, in CreateRequestInput) (*entity.Request, error)
	UpdateStatus(ctx context.Context, id int64, status, notes string, actorID int64) (*entity.Request, error)
	AssignRequest(ctx context.Context, id, assigneeID int64, notes string, actorID int64) (*entity.Request, error)
	AddComment(ctx context.Context, id int64, text string, isPrivate bool, actorID int64) (*entity.RequestComment, error)
	ProcessWorkflowStep(ctx context.Context, cmd workflow.StepCommand) (*entity.Request, error)
	GetRequest(ctx context.Context, id int64) (*entity.Request, error)
	ListRequests(ctx context.Context, filter entity.RequestFilter) ([]*entity.Request, error)
}

// RequestServiceDeps are the collaborators of RequestService
type RequestServiceDeps struct {
	Requests  port.RequestRepository
	Items     port.RequestItemRepository
	Comments  port.CommentRepository
	Progress  port.ProgressRepository
	Workflows port.WorkflowRepository
	Catalog   port.CatalogRepository
	Users     port.UserRepository
	Engine    workflow.Engine
	TxManager port.TransactionManager
	Publisher port.EventPublisher
	Logger    Logger

	// AutoSelectByType binds the active workflow of the request's type when
	// the caller supplies none
	AutoSelectByType bool
	Now              Clock
}

type requestServiceImpl struct {
	RequestServiceDeps
}

// NewRequestService creates a new RequestService
func NewRequestService(deps RequestServiceDeps) RequestService {
	if deps.Now == nil {
		deps.Now = utcNow
	}
	return &requestServiceImpl{RequestServiceDeps: deps}
}

// CreateRequest persists a New request with its items and, when a workflow is
// bound, opens its first step
func (s *requestServiceImpl) CreateRequest(ctx context.Context, requesterID int64, in CreateRequestInput) (*entity.Request, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Type = strings.TrimSpace(in.Type)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = entity.PriorityMedium
	}

	if err := s.requireUser(ctx, requesterID); err != nil {
		return nil, err
	}

	req := &entity.Request{
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Status:      entity.RequestStatusNew,
		Priority:    in.Priority,
		RequesterID: requesterID,
		SubmitDate:  s.Now(),
		DueDate:     in.DueDate,
		Notes:       strings.TrimSpace(in.Notes),
		Metadata:    in.Metadata,
	}

	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		wf, err := s.resolveWorkflow(txCtx, in)
		if err != nil {
			return err
		}

		if err := s.Requests.Create(txCtx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		for _, line := range in.Items {
			item, err := s.createItem(txCtx, req.ID, line)
			if err != nil {
				return err
			}
			req.Items = append(req.Items, item)
		}

		if err := s.Publisher.Publish(txCtx, event.New(event.RequestCreated{
			RequestID:   req.ID,
			RequesterID: req.RequesterID,
			Title:       req.Title,
			Type:        req.Type,
			Priority:    req.Priority,
		})); err != nil {
			return fmt.Errorf("publish request created: %w", err)
		}

		if wf == nil {
			return nil
		}
		return s.Engine.Seed(txCtx, req, wf)
	})
	if err != nil {
		s.Logger.Error("Failed to create request", "requester_id", requesterID, "error", err)
		return nil, err
	}

	s.Logger.Info("Request created", "id", req.ID, "type", req.Type, "status", req.Status)
	return s.GetRequest(ctx, req.ID)
}

func (s *requestServiceImpl) resolveWorkflow(ctx context.Context, in CreateRequestInput) (*entity.Workflow, error) {
	if in.WorkflowID != nil {
		wf, err := s.Workflows.GetByID(ctx, *in.WorkflowID)
		if err != nil {
			return nil, err
		}
		if wf == nil {
			return nil, apperr.NotFound("workflow", *in.WorkflowID)
		}
		if !wf.IsActive {
			return nil, apperr.Validation("workflow %d is not active", wf.ID)
		}
		return wf, nil
	}
	if !s.AutoSelectByType {
		return nil, nil
	}
	return s.Workflows.FindActiveByType(ctx, in.Type)
}

func (s *requestServiceImpl) createItem(ctx context.Context, requestID int64, line CreateItemInput) (*entity.RequestItem, error) {
	catalogItem, err := s.Catalog.GetByID(ctx, line.CatalogItemID)
	if err != nil {
		return nil, err
	}
	if catalogItem == nil {
		return nil, apperr.NotFound("catalog item", line.CatalogItemID)
	}

	item := &entity.RequestItem{
		RequestID:     requestID,
		CatalogItemID: line.CatalogItemID,
		Quantity:      line.Quantity,
		Status:        entity.ItemStatusPending,
		Notes:         line.Notes,
	}
	if err := s.Items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create request item: %w", err)
	}
	return item, nil
}

// UpdateStatus moves a request to status through the lifecycle. Closed requests are frozen.
func (s *requestServiceImpl) UpdateStatus(ctx context.Context, id int64, status, notes string, actorID int64) (*entity.Request, error) {
	target := domainwf.State(strings.TrimSpace(status))
	if target == "" {
		return nil, apperr.Validation("status is required")
	}
	if !target.IsValid() {
		return nil, apperr.Validation("unknown status %q", status)
	}
	trigger, ok := domainwf.TriggerFor(target)
	if !ok {
		return nil, apperr.Validation("a request cannot be moved to %q", status)
	}

	var req *entity.Request
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.loadOpen(txCtx, id)
		if err != nil {
			return err
		}

		previous := req.Status
		next, err := domainwf.Next(txCtx, domainwf.State(previous), trigger)
		if err != nil {
			return apperr.State("request %d cannot move from %q to %q", id, previous, target)
		}
		if next.IsClosed() {
			// a pending step is closed by processWorkflowStep only
			pending, err := s.Progress.CountPending(txCtx, req.ID)
			if err != nil {
				return err
			}
			if pending > 0 {
				return apperr.State("request %d has a pending workflow step, decide it instead of setting %q", id, target)
			}
		}
		req.Status = next.String()
		req.AppendNote(notes)
		if next == domainwf.StateCompleted {
			done := s.Now()
			req.CompletedDate = &done
		}

		text := fmt.Sprintf("Status changed from %s to %s", previous, req.Status)
		if n := strings.TrimSpace(notes); n != "" {
			text += ": " + n
		}
		if err := s.comment(txCtx, req.ID, &actorID, text, false); err != nil {
			return err
		}
		if err := s.Requests.Update(txCtx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}

		payloads := []event.Payload{event.RequestUpdated{
			RequestID:      req.ID,
			Status:         req.Status,
			PreviousStatus: previous,
			Change:         "status",
			ActorID:        &actorID,
		}}
		if next == domainwf.StateCompleted {
			payloads = append(payloads, event.RequestCompleted{
				RequestID:   req.ID,
				RequesterID: req.RequesterID,
				Status:      req.Status,
				CompletedAt: *req.CompletedDate,
			})
		}
		return s.publish(txCtx, payloads...)
	})
	if err != nil {
		s.Logger.Error("Failed to update request status", "id", id, "status", status, "error", err)
		return nil, err
	}

	s.Logger.Info("Request status updated", "id", id, "status", req.Status)
	return req, nil
}

// AssignRequest sets the assignee. A New request becomes Assigned.
func (s *requestServiceImpl) AssignRequest(ctx context.Context, id, assigneeID int64, notes string, actorID int64) (*entity.Request, error) {
	if assigneeID == 0 {
		return nil, apperr.Validation("assigneeId is required")
	}

	var req *entity.Request
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.loadOpen(txCtx, id)
		if err != nil {
			return err
		}
		assignee, err := s.Users.GetByID(txCtx, assigneeID)
		if err != nil {
			return err
		}
		if assignee == nil {
			return apperr.NotFound("user", assigneeID)
		}

		previous := req.Status
		verb := "assigned"
		if req.AssigneeID != nil {
			verb = "reassigned"
		}
		next, err := domainwf.Next(txCtx, domainwf.State(previous), domainwf.TriggerAssign)
		if err != nil {
			return apperr.State("request %d cannot be assigned while %q", id, previous)
		}
		req.Status = next.String()
		req.AssigneeID = &assigneeID
		req.AppendNote(notes)

		text := fmt.Sprintf("Request %s to %s", verb, assignee.Name)
		if n := strings.TrimSpace(notes); n != "" {
			text += ": " + n
		}
		if err := s.comment(txCtx, req.ID, &actorID, text, false); err != nil {
			return err
		}
		if err := s.Requests.Update(txCtx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		return s.publish(txCtx, event.RequestUpdated{
			RequestID:      req.ID,
			Status:         req.Status,
			PreviousStatus: previous,
			Change:         "assignment",
			ActorID:        &actorID,
		})
	})
	if err != nil {
		s.Logger.Error("Failed to assign request", "id", id, "assignee_id", assigneeID, "error", err)
		return nil, err
	}

	s.Logger.Info("Request assigned", "id", id, "assignee_id", assigneeID)
	return req, nil
}

// AddComment appends a comment authored by actorID
func (s *requestServiceImpl) AddComment(ctx context.Context, id int64, text string, isPrivate bool, actorID int64) (*entity.RequestComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("text is required")
	}
	req, err := s.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NotFound("request", id)
	}

	c := &entity.RequestComment{
		RequestID: id,
		AuthorID:  &actorID,
		Text:      text,
		IsPrivate: isPrivate,
		CreatedAt: s.Now(),
	}
	if err := s.Comments.Create(ctx, c); err != nil {
		s.Logger.Error("Failed to add comment", "request_id", id, "error", err)
		return nil, err
	}
	return c, nil
}

// ProcessWorkflowStep approves or rejects the pending step of a request
func (s *requestServiceImpl) ProcessWorkflowStep(ctx context.Context, cmd workflow.StepCommand) (*entity.Request, error) {
	return s.Engine.ProcessStep(ctx, cmd)
}

// GetRequest returns the request with items, progress and comments
func (s *requestServiceImpl) GetRequest(ctx context.Context, id int64) (*entity.Request, error) {
	req, err := s.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NotFound("request", id)
	}

	if req.Items, err = s.Items.GetByRequestID(ctx, id); err != nil {
		return nil, err
	}
	if req.Progress, err = s.Progress.GetByRequestID(ctx, id); err != nil {
		return nil, err
	}
	if req.Comments, err = s.Comments.GetByRequestID(ctx, id, true); err != nil {
		return nil, err
	}
	return req, nil
}

// ListRequests lists requests matching filter
func (s *requestServiceImpl) ListRequests(ctx context.Context, filter entity.RequestFilter) ([]*entity.Request, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.Requests.List(ctx, filter)
}

// loadOpen loads a request that is still in the approval flow
func (s *requestServiceImpl) loadOpen(ctx context.Context, id int64) (*entity.Request, error) {
	req, err := s.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NotFound("request", id)
	}
	if domainwf.State(req.Status).IsClosed() {
		return nil, apperr.State("request %d is %s", id, req.Status)
	}
	return req, nil
}

func (s *requestServiceImpl) requireUser(ctx context.Context, id int64) error {
	if id == 0 {
		return apperr.Validation("actor is required")
	}
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.NotFound("user", id)
	}
	return nil
}

func (s *requestServiceImpl) comment(ctx context.Context, requestID int64, author *int64, text string, private bool) error {
	return s.Comments.Create(ctx, &entity.RequestComment{
		RequestID: requestID,
		AuthorID:  author,
		Text:      text,
		IsPrivate: private,
		CreatedAt: s.Now(),
	})
}

// publish emits payloads as one correlation chain
func (s *requestServiceImpl) publish(ctx context.Context, payloads ...event.Payload) error {
	corr := uuid.NewString()
	for _, p := range payloads {
		if err := s.Publisher.Publish(ctx, event.NewWithCorrelation(p, corr)); err != nil {
			return fmt.Errorf("publish %s: %w", p.EventType(), err)
		}
	}
	return nil
}
