package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/hospital-itsm/internal/application/service"
	"github.com/garyjia/hospital-itsm/internal/application/workflow"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
)

// SetActiveBody is the body of PATCH /api/workflows/:id/active
type SetActiveBody struct {
	Active *bool `json:"active"`
}

// StatusBody is the body of PATCH /api/requests/:id/status
type StatusBody struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// AssignBody is the body of PATCH /api/requests/:id/assign
type AssignBody struct {
	AssigneeID int64  `json:"assigneeId"`
	Notes      string `json:"notes"`
}

// CommentBody is the body of POST /api/requests/:id/comments
type CommentBody struct {
	Text      string `json:"text"`
	IsPrivate bool   `json:"isPrivate"`
}

// StepBody is the body of POST /api/requests/:id/steps/:stepId
type StepBody struct {
	Action         string `json:"action"`
	Notes          string `json:"notes"`
	AssignToNextID *int64 `json:"assignToNextId"`
}

// CreateWorkflow handles POST /api/workflows
func (h *Handlers) CreateWorkflow(c *gin.Context) {
	var in service.CreateWorkflowInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, "create workflow", err)
		return
	}
	wf, err := h.services.Workflows.CreateWorkflow(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create workflow", err)
		return
	}
	respond(c, http.StatusCreated, wf)
}

// ListWorkflows handles GET /api/workflows?activeOnly=true
func (h *Handlers) ListWorkflows(c *gin.Context) {
	workflows, err := h.services.Workflows.ListWorkflows(c.Request.Context(), c.Query("activeOnly") == "true")
	if err != nil {
		h.fail(c, "list workflows", err)
		return
	}
	respond(c, http.StatusOK, workflows)
}

// GetWorkflow handles GET /api/workflows/:id
func (h *Handlers) GetWorkflow(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, "get workflow", err)
		return
	}
	wf, err := h.services.Workflows.GetWorkflow(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get workflow", err)
		return
	}
	respond(c, http.StatusOK, wf)
}

// SetWorkflowActive handles PATCH /api/workflows/:id/active
func (h *Handlers) SetWorkflowActive(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, "set workflow active", err)
		return
	}
	var body SetActiveBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, "set workflow active", err)
		return
	}
	if body.Active == nil {
		h.fail(c, "set workflow active", apperr.Validation("active is required"))
		return
	}
	wf, err := h.services.Workflows.SetActive(c.Request.Context(), id, *body.Active)
	if err != nil {
		h.fail(c, "set workflow active", err)
		return
	}
	respond(c, http.StatusOK, wf)
}

// CreateRequest handles POST /api/requests. The acting user is the requester.
func (h *Handlers) CreateRequest(c *gin.Context) {
	requesterID, err := actorID(c)
	if err != nil {
		h.fail(c, "create request", err)
		return
	}
	var in service.CreateRequestInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, "create request", err)
		return
	}
	req, err := h.services.Requests.CreateRequest(c.Request.Context(), requesterID, in)
	if err != nil {
		h.fail(c, "create request", err)
		return
	}
	respond(c, http.StatusCreated, req)
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	filter, err := requestFilter(c)
	if err != nil {
		h.fail(c, "list requests", err)
		return
	}
	requests, err := h.services.Requests.ListRequests(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "list requests", err)
		return
	}
	respond(c, http.StatusOK, requests)
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, "get request", err)
		return
	}
	req, err := h.services.Requests.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get request", err)
		return
	}
	respond(c, http.StatusOK, req)
}

// UpdateRequestStatus handles PATCH /api/requests/:id/status
func (h *Handlers) UpdateRequestStatus(c *gin.Context) {
	id, actor, ok := h.idAndActor(c, "update request status")
	if !ok {
		return
	}
	var body StatusBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, "update request status", err)
		return
	}
	req, err := h.services.Requests.UpdateStatus(c.Request.Context(), id, body.Status, body.Notes, actor)
	if err != nil {
		h.fail(c, "update request status", err)
		return
	}
	respond(c, http.StatusOK, req)
}

// AssignRequest handles PATCH /api/requests/:id/assign
func (h *Handlers) AssignRequest(c *gin.Context) {
	id, actor, ok := h.idAndActor(c, "assign request")
	if !ok {
		return
	}
	var body AssignBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, "assign request", err)
		return
	}
	req, err := h.services.Requests.AssignRequest(c.Request.Context(), id, body.AssigneeID, body.Notes, actor)
	if err != nil {
		h.fail(c, "assign request", err)
		return
	}
	respond(c, http.StatusOK, req)
}

// AddComment handles POST /api/requests/:id/comments
func (h *Handlers) AddComment(c *gin.Context) {
	id, actor, ok := h.idAndActor(c, "add comment")
	if !ok {
		return
	}
	var body CommentBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, "add comment", err)
		return
	}
	comment, err := h.services.Requests.AddComment(c.Request.Context(), id, body.Text, body.IsPrivate, actor)
	if err != nil {
		h.fail(c, "add comment", err)
		return
	}
	respond(c, http.StatusCreated, comment)
}

// ProcessStep handles POST /api/requests/:id/steps/:stepId
func (h *Handlers) ProcessStep(c *gin.Context) {
	id, actor, ok := h.idAndActor(c, "process step")
	if !ok {
		return
	}
	stepID, err := pathID(c, "stepId")
	if err != nil {
		h.fail(c, "process step", err)
		return
	}
	var body StepBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, "process step", err)
		return
	}
	req, err := h.services.Requests.ProcessWorkflowStep(c.Request.Context(), workflow.StepCommand{
		RequestID:      id,
		StepID:         stepID,
		Action:         body.Action,
		Notes:          body.Notes,
		AssignToNextID: body.AssignToNextID,
		ActorID:        actor,
	})
	if err != nil {
		h.fail(c, "process step", err)
		return
	}
	respond(c, http.StatusOK, req)
}

// idAndActor reads the :id parameter and the acting user, writing the error
// response itself when either is missing
func (h *Handlers) idAndActor(c *gin.Context, op string) (int64, int64, bool) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, op, err)
		return 0, 0, false
	}
	actor, err := actorID(c)
	if err != nil {
		h.fail(c, op, err)
		return 0, 0, false
	}
	return id, actor, true
}
