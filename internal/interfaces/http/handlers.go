package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/hospital-itsm/internal/application/service"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
)

// HeaderUserID carries the acting user. It is trusted as-is.
const HeaderUserID = "X-User-ID"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	health   HealthFunc
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		health:   health,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindState:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an error response. Server-side failures are logged and
// their details kept out of the body.
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	kind := apperr.KindOf(err)
	message := "internal error"
	if apperr.IsClientError(err) {
		message = apperr.MessageOf(err)
	} else {
		h.logger.Error("Request failed", "op", op, "path", c.Request.URL.Path, "kind", kind, "error", err)
	}
	c.JSON(statusFor(kind), Response{
		Success: false,
		Error:   &ErrorBody{Kind: string(kind), Message: message},
	})
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// pathID parses a positive integer path parameter
func pathID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}

// actorID reads the acting user from the X-User-ID header
func actorID(c *gin.Context) (int64, error) {
	raw := c.GetHeader(HeaderUserID)
	if raw == "" {
		return 0, apperr.Validation("%s header is required", HeaderUserID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s header %q", HeaderUserID, raw)
	}
	return id, nil
}

// bindJSON decodes the request body. Field rules are enforced by the services.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

// queryInt parses an optional integer query parameter
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("invalid query parameter %s %q", name, raw)
	}
	return n, nil
}

// requestFilter reads the list filter shared by /api/requests and the report
func requestFilter(c *gin.Context) (entity.RequestFilter, error) {
	filter := entity.RequestFilter{
		Status: c.Query("status"),
		Type:   c.Query("type"),
	}
	ints := []struct {
		name string
		set  func(int)
	}{
		{"requesterId", func(n int) { filter.RequesterID = int64(n) }},
		{"assigneeId", func(n int) { filter.AssigneeID = int64(n) }},
		{"limit", func(n int) { filter.Limit = n }},
		{"offset", func(n int) { filter.Offset = n }},
	}
	for _, p := range ints {
		n, err := queryInt(c, p.name)
		if err != nil {
			return filter, err
		}
		p.set(n)
	}
	return filter, nil
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if h.health != nil {
		healthy, details := h.health(c.Request.Context())
		response.Components = details
		if !healthy {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, Response{Success: status == http.StatusOK, Data: response})
}

// CreateUser handles POST /api/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var in service.CreateUserInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, "create user", err)
		return
	}
	user, err := h.services.Users.CreateUser(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create user", err)
		return
	}
	respond(c, http.StatusCreated, user)
}

// GetUser handles GET /api/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, "get user", err)
		return
	}
	user, err := h.services.Users.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get user", err)
		return
	}
	respond(c, http.StatusOK, user)
}

// ListNotifications handles GET /api/notifications for the acting user
func (h *Handlers) ListNotifications(c *gin.Context) {
	userID, err := actorID(c)
	if err != nil {
		h.fail(c, "list notifications", err)
		return
	}
	unreadOnly := c.Query("unreadOnly") == "true"
	notes, err := h.services.Notifications.ListForUser(c.Request.Context(), userID, unreadOnly)
	if err != nil {
		h.fail(c, "list notifications", err)
		return
	}
	respond(c, http.StatusOK, notes)
}

// MarkNotificationRead handles PATCH /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, "mark notification read", err)
		return
	}
	if err := h.services.Notifications.MarkRead(c.Request.Context(), id); err != nil {
		h.fail(c, "mark notification read", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "read": true})
}

// ExportRequests handles GET /api/reports/requests.xlsx
func (h *Handlers) ExportRequests(c *gin.Context) {
	filter, err := requestFilter(c)
	if err != nil {
		h.fail(c, "export requests", err)
		return
	}
	data, err := h.services.Reports.ExportRequests(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "export requests", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="requests.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}
