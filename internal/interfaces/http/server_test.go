package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/hospital-itsm/internal/application/service"
	"github.com/garyjia/hospital-itsm/internal/application/workflow"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
)

// Mock implementations. Embedded interfaces panic on calls a test did not
// expect.

type mockRequests struct {
	service.RequestService
	createFunc  func(ctx context.Context, requesterID int64, in service.CreateRequestInput) (*entity.Request, error)
	getFunc     func(ctx context.Context, id int64) (*entity.Request, error)
	listFunc    func(ctx context.Context, filter entity.RequestFilter) ([]*entity.Request, error)
	processFunc func(ctx context.Context, cmd workflow.StepCommand) (*entity.Request, error)
}

func (m *mockRequests) CreateRequest(ctx context.Context, requesterID int64, in service.CreateRequestInput) (*entity.Request, error) {
	return m.createFunc(ctx, requesterID, in)
}

func (m *mockRequests) GetRequest(ctx context.Context, id int64) (*entity.Request, error) {
	return m.getFunc(ctx, id)
}

func (m *mockRequests) ListRequests(ctx context.Context, filter entity.RequestFilter) ([]*entity.Request, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockRequests) ProcessWorkflowStep(ctx context.Context, cmd workflow.StepCommand) (*entity.Request, error) {
	return m.processFunc(ctx, cmd)
}

type mockWorkflows struct {
	service.WorkflowService
	setActiveFunc func(ctx context.Context, id int64, active bool) (*entity.Workflow, error)
}

func (m *mockWorkflows) SetActive(ctx context.Context, id int64, active bool) (*entity.Workflow, error) {
	return m.setActiveFunc(ctx, id, active)
}

type mockNotifications struct {
	service.NotificationService
	listFunc func(ctx context.Context, userID int64, unreadOnly bool) ([]*entity.Notification, error)
}

func (m *mockNotifications) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]*entity.Notification, error) {
	return m.listFunc(ctx, userID, unreadOnly)
}

type mockReports struct {
	service.ReportService
	exportFunc func(ctx context.Context, filter entity.RequestFilter) ([]byte, error)
}

func (m *mockReports) ExportRequests(ctx context.Context, filter entity.RequestFilter) ([]byte, error) {
	return m.exportFunc(ctx, filter)
}

type mockLogger struct{}

func (mockLogger) Info(string, ...interface{})  {}
func (mockLogger) Error(string, ...interface{}) {}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorBody      `json:"error"`
}

func newTestServer(services Services, health HealthFunc) *Server {
	cfg := DefaultServerConfig()
	cfg.Mode = gin.TestMode
	return NewServer(cfg, services, health, mockLogger{})
}

func do(t *testing.T, s *Server, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func actor(id string) map[string]string {
	return map[string]string{HeaderUserID: id}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{"validation", apperr.Validation("title is required"), http.StatusBadRequest, "validation", "title is required"},
		{"state", apperr.State("request 1 is Completed"), http.StatusBadRequest, "state", "request 1 is Completed"},
		{"not found", apperr.NotFound("request", 9), http.StatusNotFound, "not_found", ""},
		{"forbidden", apperr.Forbidden("role staff cannot act"), http.StatusForbidden, "forbidden", "role staff cannot act"},
		{"transaction", apperr.Transaction("process step", errors.New("disk I/O error")), http.StatusInternalServerError, "transaction", "internal error"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "internal", "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(Services{Requests: &mockRequests{
				getFunc: func(context.Context, int64) (*entity.Request, error) { return nil, tt.err },
			}}, nil)

			w, env := do(t, s, http.MethodGet, "/api/requests/9", "", nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantKind, env.Error.Kind)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, env.Error.Message)
			}
			assert.NotContains(t, w.Body.String(), "disk I/O error")
		})
	}
}

func TestInvalidPathID(t *testing.T) {
	s := newTestServer(Services{Requests: &mockRequests{}}, nil)
	for _, path := range []string{"/api/requests/abc", "/api/requests/0", "/api/requests/-3"} {
		w, env := do(t, s, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "validation", env.Error.Kind, path)
	}
}

func TestCreateRequest(t *testing.T) {
	var gotRequester int64
	var gotInput service.CreateRequestInput
	s := newTestServer(Services{Requests: &mockRequests{
		createFunc: func(_ context.Context, requesterID int64, in service.CreateRequestInput) (*entity.Request, error) {
			gotRequester, gotInput = requesterID, in
			return &entity.Request{ID: 11, Title: in.Title, Status: entity.RequestStatusNew}, nil
		},
	}}, nil)
	body := `{"title":"New laptop","type":"hardware","priority":"High","workflowId":3,"items":[{"catalogItemId":5,"quantity":2}]}`

	t.Run("requires actor", func(t *testing.T) {
		w, env := do(t, s, http.MethodPost, "/api/requests", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, env.Error.Message, HeaderUserID)
	})

	t.Run("malformed actor", func(t *testing.T) {
		w, _ := do(t, s, http.MethodPost, "/api/requests", body, actor("nurse"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w, env := do(t, s, http.MethodPost, "/api/requests", `{"title":`, actor("4"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation", env.Error.Kind)
	})

	t.Run("created", func(t *testing.T) {
		w, env := do(t, s, http.MethodPost, "/api/requests", body, actor("4"))
		require.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, env.Success)
		assert.Equal(t, int64(4), gotRequester)
		assert.Equal(t, "New laptop", gotInput.Title)
		require.NotNil(t, gotInput.WorkflowID)
		assert.Equal(t, int64(3), *gotInput.WorkflowID)
		require.Len(t, gotInput.Items, 1)
		assert.Equal(t, 2, gotInput.Items[0].Quantity)

		var req entity.Request
		require.NoError(t, json.Unmarshal(env.Data, &req))
		assert.Equal(t, int64(11), req.ID)
	})
}

func TestListRequestsFilter(t *testing.T) {
	var got entity.RequestFilter
	s := newTestServer(Services{Requests: &mockRequests{
		listFunc: func(_ context.Context, filter entity.RequestFilter) ([]*entity.Request, error) {
			got = filter
			return []*entity.Request{}, nil
		},
	}}, nil)

	w, _ := do(t, s, http.MethodGet, "/api/requests?status=New&type=software&requesterId=2&limit=5&offset=10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.RequestFilter{Status: "New", Type: "software", RequesterID: 2, Limit: 5, Offset: 10}, got)

	w, _ = do(t, s, http.MethodGet, "/api/requests?limit=many", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessStep(t *testing.T) {
	var got workflow.StepCommand
	s := newTestServer(Services{Requests: &mockRequests{
		processFunc: func(_ context.Context, cmd workflow.StepCommand) (*entity.Request, error) {
			got = cmd
			return &entity.Request{ID: cmd.RequestID, Status: entity.RequestStatusInProgress}, nil
		},
	}}, nil)

	w, env := do(t, s, http.MethodPost, "/api/requests/7/steps/21",
		`{"action":"approve","notes":"ok","assignToNextId":8}`, actor("3"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, int64(7), got.RequestID)
	assert.Equal(t, int64(21), got.StepID)
	assert.Equal(t, "approve", got.Action)
	assert.Equal(t, "ok", got.Notes)
	assert.Equal(t, int64(3), got.ActorID)
	require.NotNil(t, got.AssignToNextID)
	assert.Equal(t, int64(8), *got.AssignToNextID)
}

func TestSetWorkflowActiveRequiresFlag(t *testing.T) {
	s := newTestServer(Services{Workflows: &mockWorkflows{
		setActiveFunc: func(_ context.Context, id int64, active bool) (*entity.Workflow, error) {
			return &entity.Workflow{ID: id, IsActive: active}, nil
		},
	}}, nil)

	w, _ := do(t, s, http.MethodPatch, "/api/workflows/2/active", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := do(t, s, http.MethodPatch, "/api/workflows/2/active", `{"active":false}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var wf entity.Workflow
	require.NoError(t, json.Unmarshal(env.Data, &wf))
	assert.False(t, wf.IsActive)
}

func TestListNotificationsUsesActor(t *testing.T) {
	var gotUser int64
	var gotUnread bool
	s := newTestServer(Services{Notifications: &mockNotifications{
		listFunc: func(_ context.Context, userID int64, unreadOnly bool) ([]*entity.Notification, error) {
			gotUser, gotUnread = userID, unreadOnly
			return []*entity.Notification{{ID: 1, Type: entity.NotificationRequestCreated}}, nil
		},
	}}, nil)

	w, _ := do(t, s, http.MethodGet, "/api/notifications?unreadOnly=true", "", actor("12"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(12), gotUser)
	assert.True(t, gotUnread)
}

func TestExportRequests(t *testing.T) {
	s := newTestServer(Services{Reports: &mockReports{
		exportFunc: func(_ context.Context, filter entity.RequestFilter) ([]byte, error) {
			assert.Equal(t, "Completed", filter.Status)
			return []byte("PK\x03\x04"), nil
		},
	}}, nil)

	w, _ := do(t, s, http.MethodGet, "/api/reports/requests.xlsx?status=Completed", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "requests.xlsx")
	assert.Equal(t, "PK\x03\x04", w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	healthy := true
	s := newTestServer(Services{}, func(context.Context) (bool, interface{}) {
		return healthy, map[string]string{"database": "ok"}
	})

	w, env := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	healthy = false
	w, env = do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, string(env.Data), "unhealthy")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(Services{}, nil)
	do(t, s, http.MethodGet, "/health", "", nil)

	w, _ := do(t, s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "itsm_http_requests_total")
}
