package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
	domainwf "github.com/garyjia/hospital-itsm/internal/domain/workflow"
	"github.com/google/uuid"
)

// AutoProgressNote is stored on progress rows closed without an actor
const AutoProgressNote = "auto-progressed"

// Deps are the collaborators of the engine
type Deps struct {
	Requests  port.RequestRepository
	Progress  port.ProgressRepository
	Workflows port.WorkflowRepository
	Comments  port.CommentRepository
	Users     port.UserRepository
	Roles     port.RoleChecker
	TxManager port.TransactionManager
	Publisher port.EventPublisher
	Logger    Logger
}

type engineImpl struct {
	Deps
	now func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(deps Deps, opts ...EngineOption) Engine {
	e := &engineImpl{
		Deps: deps,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// outcome is what a pass through the step chain did to a request
type outcome struct {
	previousStatus string
	completed      bool
	approverID     *int64
}

func (e *engineImpl) Seed(ctx context.Context, req *entity.Request, wf *entity.Workflow) error {
	wfID := wf.ID
	req.WorkflowID = &wfID

	first := wf.StepByOrder(1)
	if first == nil {
		// bound but nothing to open, the request stays New
		return e.Requests.Update(ctx, req)
	}

	out := outcome{previousStatus: req.Status}

	if err := e.enter(ctx, req, wf, first, nil, &out); err != nil {
		return err
	}
	if err := e.Requests.Update(ctx, req); err != nil {
		return err
	}
	return e.publishOutcome(ctx, req, out, nil)
}

func (e *engineImpl) ProcessStep(ctx context.Context, cmd StepCommand) (*entity.Request, error) {
	action := strings.ToLower(strings.TrimSpace(cmd.Action))
	if cmd.StepID == 0 {
		return nil, apperr.Validation("stepId is required")
	}
	if action != entity.StepActionApprove && action != entity.StepActionReject {
		return nil, apperr.Validation("action must be %q or %q", entity.StepActionApprove, entity.StepActionReject)
	}

	var req *entity.Request
	err := e.TxManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		req, err = e.processStep(ctx, cmd, action)
		return err
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.Transaction("process workflow step", err)
		}
		e.Logger.Error("Workflow step failed",
			"request_id", cmd.RequestID, "step_id", cmd.StepID, "action", action, "error", err)
		return nil, err
	}

	stepDecisions().WithLabelValues(action).Inc()
	e.Logger.Info("Workflow step processed",
		"request_id", req.ID, "step_id", cmd.StepID, "action", action, "status", req.Status)

	progress, err := e.Progress.GetByRequestID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	req.Progress = progress
	return req, nil
}

func (e *engineImpl) processStep(ctx context.Context, cmd StepCommand, action string) (*entity.Request, error) {
	req, err := e.Requests.GetByID(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NotFound("request", cmd.RequestID)
	}
	if req.WorkflowID == nil {
		return nil, &apperr.Error{Kind: apperr.KindNotFound, Message: fmt.Sprintf("request %d has no workflow", req.ID)}
	}

	wf, err := e.Workflows.GetByID(ctx, *req.WorkflowID)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, apperr.NotFound("workflow", *req.WorkflowID)
	}
	step := wf.StepByID(cmd.StepID)
	if step == nil {
		return nil, apperr.NotFound("workflow step", cmd.StepID)
	}

	if domainwf.State(req.Status).IsClosed() {
		return nil, apperr.State("request %d is %s", req.ID, req.Status)
	}

	if err := e.authorize(ctx, cmd.ActorID, step); err != nil {
		return nil, err
	}

	pending, err := e.Progress.FindPending(ctx, req.ID, step.ID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, apperr.State("no pending progress found for request %d %s", req.ID, stepLabel(step))
	}

	actorID := cmd.ActorID
	status := entity.ProgressStatusCompleted
	if action == entity.StepActionReject {
		status = entity.ProgressStatusRejected
	}
	if err := e.closeProgress(ctx, pending, status, action, cmd.Notes, &actorID); err != nil {
		return nil, err
	}

	out := outcome{previousStatus: req.Status, approverID: &actorID}
	if action == entity.StepActionApprove {
		if err := e.advance(ctx, req, wf, step, cmd.AssignToNextID, &out); err != nil {
			return nil, err
		}
	} else {
		if err := transition(ctx, req, domainwf.TriggerReject); err != nil {
			return nil, err
		}
	}

	verb := "approved"
	if action == entity.StepActionReject {
		verb = "rejected"
	}
	text := fmt.Sprintf("Workflow %s %s", stepLabel(step), verb)
	if notes := strings.TrimSpace(cmd.Notes); notes != "" {
		text += ": " + notes
	}
	if err := e.comment(ctx, req.ID, &actorID, text); err != nil {
		return nil, err
	}

	if err := e.Requests.Update(ctx, req); err != nil {
		return nil, err
	}
	if err := e.publishOutcome(ctx, req, out, &actorID); err != nil {
		return nil, err
	}
	return req, nil
}

// authorize checks that the actor exists, is active and holds the step's role
func (e *engineImpl) authorize(ctx context.Context, actorID int64, step *entity.WorkflowStep) error {
	actor, err := e.Users.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor == nil {
		return apperr.NotFound("user", actorID)
	}
	if !actor.IsActive {
		return apperr.Forbidden("user %d is inactive", actorID)
	}
	if e.Roles == nil {
		return nil
	}
	ok, err := e.Roles.Satisfies(ctx, actor.Role, step.RequiredRole)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("role %q cannot act on %s which requires %q", actor.Role, stepLabel(step), step.RequiredRole)
	}
	return nil
}

// advance moves past a just-approved step: opens the next one or completes the request
func (e *engineImpl) advance(ctx context.Context, req *entity.Request, wf *entity.Workflow, from *entity.WorkflowStep, assignTo *int64, out *outcome) error {
	next := wf.StepByOrder(from.StepOrder + 1)
	if next == nil {
		if err := transition(ctx, req, domainwf.TriggerComplete); err != nil {
			return err
		}
		done := e.now()
		req.CompletedDate = &done
		out.completed = true
		return nil
	}
	return e.enter(ctx, req, wf, next, assignTo, out)
}

// enter opens a pending progress row for step. Auto-progress steps are
// closed immediately and the chain continues.
func (e *engineImpl) enter(ctx context.Context, req *entity.Request, wf *entity.Workflow, step *entity.WorkflowStep, assignTo *int64, out *outcome) error {
	p := &entity.RequestProgress{
		RequestID:  req.ID,
		StepID:     step.ID,
		StepOrder:  step.StepOrder,
		Status:     entity.ProgressStatusPending,
		StartedAt:  e.now(),
		AssigneeID: assignTo,
	}
	if err := e.Progress.Create(ctx, p); err != nil {
		return err
	}
	if err := transition(ctx, req, domainwf.TriggerAdvance); err != nil {
		return err
	}
	if !step.AutoProgress {
		return nil
	}

	if err := e.closeProgress(ctx, p, entity.ProgressStatusCompleted, entity.StepActionApprove, AutoProgressNote, nil); err != nil {
		return err
	}
	if err := e.comment(ctx, req.ID, nil, fmt.Sprintf("Workflow %s %s", stepLabel(step), AutoProgressNote)); err != nil {
		return err
	}
	stepDecisions().WithLabelValues("auto").Inc()
	return e.advance(ctx, req, wf, step, nil, out)
}

func (e *engineImpl) closeProgress(ctx context.Context, p *entity.RequestProgress, status, result, notes string, by *int64) error {
	done := e.now()
	p.Status = status
	p.Result = result
	p.Notes = notes
	p.CompletedAt = &done
	p.CompletedByID = by

	closed, err := e.Progress.Close(ctx, p)
	if err != nil {
		return err
	}
	if !closed {
		return apperr.State("progress %d was already processed", p.ID)
	}
	return nil
}

func (e *engineImpl) comment(ctx context.Context, requestID int64, author *int64, text string) error {
	return e.Comments.Create(ctx, &entity.RequestComment{
		RequestID: requestID,
		AuthorID:  author,
		Text:      text,
		CreatedAt: e.now(),
	})
}

// publishOutcome emits request-updated, plus request-completed and
// request-approved when the workflow ran out of steps
func (e *engineImpl) publishOutcome(ctx context.Context, req *entity.Request, out outcome, actorID *int64) error {
	corr := uuid.NewString()
	events := []event.Payload{event.RequestUpdated{
		RequestID:      req.ID,
		Status:         req.Status,
		PreviousStatus: out.previousStatus,
		Change:         "step",
		ActorID:        actorID,
	}}
	if out.completed {
		completedAt := e.now()
		if req.CompletedDate != nil {
			completedAt = *req.CompletedDate
		}
		events = append(events,
			event.RequestCompleted{
				RequestID:   req.ID,
				RequesterID: req.RequesterID,
				Status:      req.Status,
				CompletedAt: completedAt,
			},
			event.RequestApproved{
				RequestID:  req.ID,
				ApproverID: out.approverID,
				AssigneeID: req.AssigneeID,
			},
		)
	}

	for _, p := range events {
		if err := e.Publisher.Publish(ctx, event.NewWithCorrelation(p, corr)); err != nil {
			return fmt.Errorf("failed to publish %s: %w", p.EventType(), err)
		}
	}
	return nil
}
