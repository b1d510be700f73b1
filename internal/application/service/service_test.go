package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/garyjia/hospital-itsm/internal/application/workflow"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/export"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/repository"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/hospital-itsm/pkg/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt *event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type equalRoles struct{}

func (equalRoles) Satisfies(ctx context.Context, actorRole, requiredRole string) (bool, error) {
	return actorRole == requiredRole || actorRole == "admin", nil
}

type fixture struct {
	db        *sqlite.DB
	published *recordingPublisher

	requests      RequestService
	workflows     WorkflowService
	warehouse     WarehouseService
	desk          ServiceDeskService
	users         UserService
	notifications NotificationService
	reports       ReportService

	requester *entity.User
	manager   *entity.User
	itStaff   *entity.User
}

type fixtureOption func(*RequestServiceDeps)

func withAutoSelect() fixtureOption {
	return func(d *RequestServiceDeps) { d.AutoSelectByType = true }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	zl := zap.NewNop()

	sqlDB, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "itsm.db")}, zl)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	_, err = database.NewMigrator(sqlDB, zl).Run(context.Background(), database.Schema())
	require.NoError(t, err)
	db := sqlite.NewDB(sqlDB, zl)

	requestRepo := repository.NewRequestRepository(db, zl)
	itemRepo := repository.NewRequestItemRepository(db, zl)
	commentRepo := repository.NewCommentRepository(db, zl)
	progressRepo := repository.NewProgressRepository(db, zl)
	workflowRepo := repository.NewWorkflowRepository(db, zl)
	catalogRepo := repository.NewCatalogRepository(db, zl)
	stockRepo := repository.NewStockRepository(db, zl)
	userRepo := repository.NewUserRepository(db, zl)
	pub := &recordingPublisher{}

	engine := workflow.NewEngine(workflow.Deps{
		Requests:  requestRepo,
		Progress:  progressRepo,
		Workflows: workflowRepo,
		Comments:  commentRepo,
		Users:     userRepo,
		Roles:     equalRoles{},
		TxManager: db,
		Publisher: pub,
		Logger:    nopLogger{},
	})

	deps := RequestServiceDeps{
		Requests:  requestRepo,
		Items:     itemRepo,
		Comments:  commentRepo,
		Progress:  progressRepo,
		Workflows: workflowRepo,
		Catalog:   catalogRepo,
		Users:     userRepo,
		Engine:    engine,
		TxManager: db,
		Publisher: pub,
		Logger:    nopLogger{},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	f := &fixture{
		db:            db,
		published:     pub,
		requests:      NewRequestService(deps),
		workflows:     NewWorkflowService(workflowRepo, db, nopLogger{}),
		warehouse:     NewWarehouseService(catalogRepo, stockRepo, db, nopLogger{}),
		desk:          NewServiceDeskService(repository.NewAssetRepository(db, zl), repository.NewMaintenanceRepository(db, zl), repository.NewIncidentRepository(db, zl), db, pub, nopLogger{}),
		users:         NewUserService(userRepo, nopLogger{}),
		notifications: NewNotificationService(repository.NewNotificationRepository(db, zl), requestRepo, catalogRepo, nopLogger{}),
		reports:       NewReportService(requestRepo, progressRepo, stockRepo, export.NewRequestReportWriter(zl), nopLogger{}),
	}

	f.requester = f.user(t, "nurse@ward.example", "staff")
	f.manager = f.user(t, "manager@ward.example", "manager")
	f.itStaff = f.user(t, "tech@it.example", "it_staff")
	return f
}

func (f *fixture) user(t *testing.T, email, role string) *entity.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), CreateUserInput{Name: email, Email: email, Role: role})
	require.NoError(t, err)
	return u
}

func (f *fixture) twoStepWorkflow(t *testing.T, requestType string) *entity.Workflow {
	t.Helper()
	wf, err := f.workflows.CreateWorkflow(context.Background(), CreateWorkflowInput{
		Name: requestType + " approval",
		Type: requestType,
		Steps: []CreateStepInput{
			{StepOrder: 1, Name: "Manager approval", RequiredRole: "manager", Action: "approve"},
			{StepOrder: 2, Name: "IT review", RequiredRole: "it_staff", Action: "review"},
		},
	})
	require.NoError(t, err)
	require.Len(t, wf.Steps, 2)
	return wf
}

func (f *fixture) catalogItem(t *testing.T, sku string) *entity.CatalogItem {
	t.Helper()
	item, err := f.warehouse.CreateCatalogItem(context.Background(), CreateCatalogItemInput{
		Name: sku, SKU: sku, MinStockLevel: 2, ReorderPoint: 4,
	})
	require.NoError(t, err)
	return item
}

func int64Ptr(v int64) *int64 { return &v }
