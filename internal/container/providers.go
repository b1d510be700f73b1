package container

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/hospital-itsm/internal/application/dispatcher"
	"github.com/garyjia/hospital-itsm/internal/application/integration"
	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/application/service"
	"github.com/garyjia/hospital-itsm/internal/application/workflow"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/authz"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/export"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/outbox"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/repository"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/worker"
	"github.com/garyjia/hospital-itsm/pkg/database"
	"github.com/garyjia/hospital-itsm/pkg/utils"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Requests      port.RequestRepository
	Items         port.RequestItemRepository
	Comments      port.CommentRepository
	Workflows     port.WorkflowRepository
	Progress      port.ProgressRepository
	Users         port.UserRepository
	Catalog       port.CatalogRepository
	Stock         port.StockRepository
	Assets        port.AssetRepository
	Maintenance   port.MaintenanceRepository
	Incidents     port.IncidentRepository
	Notifications port.NotificationRepository
	Outbox        port.OutboxRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Requests      service.RequestService
	Workflows     service.WorkflowService
	Warehouse     service.WarehouseService
	ServiceDesk   service.ServiceDeskService
	Notifications service.NotificationService
	Users         service.UserService
	Reports       service.ReportService
}

// IntegrationBundle holds the event-driven integrations.
type IntegrationBundle struct {
	Fulfillment  *integration.Fulfillment
	AssetHistory *integration.AssetHistory
}

// ProvideDatabase opens the SQLite database, applies pending migrations
// unless disabled and wraps it in the transaction manager.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.SkipMigrations {
		applied, err := database.NewMigrator(sqlDB, logger).Run(ctx, database.Schema())
		if err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("Migrations applied", zap.Int("count", applied))
	}

	return &DatabaseBundle{
		SqlDB:          sqlDB,
		TransactionMgr: sqlite.NewDB(sqlDB, logger),
	}, nil
}

// ProvideRepositories creates all repositories over the transaction-aware DB.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Requests:      repository.NewRequestRepository(db, logger),
		Items:         repository.NewRequestItemRepository(db, logger),
		Comments:      repository.NewCommentRepository(db, logger),
		Workflows:     repository.NewWorkflowRepository(db, logger),
		Progress:      repository.NewProgressRepository(db, logger),
		Users:         repository.NewUserRepository(db, logger),
		Catalog:       repository.NewCatalogRepository(db, logger),
		Stock:         repository.NewStockRepository(db, logger),
		Assets:        repository.NewAssetRepository(db, logger),
		Maintenance:   repository.NewMaintenanceRepository(db, logger),
		Incidents:     repository.NewIncidentRepository(db, logger),
		Notifications: repository.NewNotificationRepository(db, logger),
		Outbox:        repository.NewOutboxRepository(db, logger),
	}, nil
}

// ProvideRoleChecker builds the casbin role checker from the role hierarchy.
func ProvideRoleChecker(cfg *WorkflowConfig, logger *zap.Logger) (*authz.Checker, error) {
	return authz.NewChecker(authz.Config{
		AdminRole: cfg.AdminRole,
		Inherits:  cfg.RoleHierarchy,
	}, logger)
}

// ProvideDispatcher creates the in-process event bus.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(dispatcher.WithLogger(utils.NewKVLogger(logger))), nil
}

// ProvidePublisher creates the event publisher. The durable publisher fans
// events out to the handlers subscribed on d at publish time. A volatile
// publisher dispatches in memory once the transaction commits and loses
// events whose handlers fail.
func ProvidePublisher(cfg *OutboxConfig, db *sqlite.DB, repos *RepositoryBundle, d dispatcher.Dispatcher, logger *zap.Logger) port.EventPublisher {
	if cfg.Volatile {
		logger.Warn("Outbox disabled, events are delivered in memory without retry")
		return dispatcher.NewPublisher(d, db)
	}
	return outbox.NewPublisher(repos.Outbox, d, logger)
}

// WorkflowDeps are the inputs of ProvideWorkflowEngine.
type WorkflowDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Roles     port.RoleChecker
	Publisher port.EventPublisher
	Logger    *zap.Logger
}

// ProvideWorkflowEngine creates the workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.Engine, error) {
	if deps.Repos == nil || deps.TxManager == nil || deps.Publisher == nil {
		return nil, fmt.Errorf("workflow engine requires repositories, transaction manager and publisher")
	}
	return workflow.NewEngine(workflow.Deps{
		Requests:  deps.Repos.Requests,
		Progress:  deps.Repos.Progress,
		Workflows: deps.Repos.Workflows,
		Comments:  deps.Repos.Comments,
		Users:     deps.Repos.Users,
		Roles:     deps.Roles,
		TxManager: deps.TxManager,
		Publisher: deps.Publisher,
		Logger:    utils.NewKVLogger(deps.Logger.Named("workflow")),
	}), nil
}

// ServiceDeps are the inputs of ProvideServices.
type ServiceDeps struct {
	Repos            *RepositoryBundle
	TxManager        port.TransactionManager
	Engine           workflow.Engine
	Publisher        port.EventPublisher
	Dispatcher       dispatcher.Dispatcher
	AutoSelectByType bool
	Logger           *zap.Logger
}

// ProvideServices creates the application services and subscribes the
// notification handlers.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps.Repos == nil || deps.Engine == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("services require repositories, engine and dispatcher")
	}
	repos := deps.Repos
	log := utils.NewKVLogger(deps.Logger.Named("service"))

	notifications := service.NewNotificationService(repos.Notifications, repos.Requests, repos.Catalog, log)
	notifications.Register(deps.Dispatcher)

	return &ServiceBundle{
		Requests: service.NewRequestService(service.RequestServiceDeps{
			Requests:         repos.Requests,
			Items:            repos.Items,
			Comments:         repos.Comments,
			Progress:         repos.Progress,
			Workflows:        repos.Workflows,
			Catalog:          repos.Catalog,
			Users:            repos.Users,
			Engine:           deps.Engine,
			TxManager:        deps.TxManager,
			Publisher:        deps.Publisher,
			Logger:           log,
			AutoSelectByType: deps.AutoSelectByType,
		}),
		Workflows:     service.NewWorkflowService(repos.Workflows, deps.TxManager, log),
		Warehouse:     service.NewWarehouseService(repos.Catalog, repos.Stock, deps.TxManager, log),
		ServiceDesk:   service.NewServiceDeskService(repos.Assets, repos.Maintenance, repos.Incidents, deps.TxManager, deps.Publisher, log),
		Notifications: notifications,
		Users:         service.NewUserService(repos.Users, log),
		Reports: service.NewReportService(repos.Requests, repos.Progress, repos.Stock,
			export.NewRequestReportWriter(deps.Logger.Named("export")), log),
	}, nil
}

// IntegrationDeps are the inputs of ProvideIntegrations.
type IntegrationDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Publisher  port.EventPublisher
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideIntegrations creates the fulfillment and asset-history integrations
// and subscribes their handlers.
func ProvideIntegrations(deps *IntegrationDeps) (*IntegrationBundle, error) {
	if deps.Repos == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("integrations require repositories and dispatcher")
	}
	repos := deps.Repos
	log := utils.NewKVLogger(deps.Logger.Named("integration"))

	fulfillment := integration.NewFulfillment(integration.FulfillmentDeps{
		Requests:  repos.Requests,
		Items:     repos.Items,
		Catalog:   repos.Catalog,
		Stock:     repos.Stock,
		Comments:  repos.Comments,
		TxManager: deps.TxManager,
		Publisher: deps.Publisher,
		Logger:    log,
	})
	fulfillment.Register(deps.Dispatcher)

	assetHistory := integration.NewAssetHistory(repos.Assets, deps.TxManager, log)
	assetHistory.Register(deps.Dispatcher)

	return &IntegrationBundle{Fulfillment: fulfillment, AssetHistory: assetHistory}, nil
}

// WorkerDeps are the inputs of ProvideWorkers.
type WorkerDeps struct {
	Repos      *RepositoryBundle
	Dispatcher dispatcher.Dispatcher
	OutboxCfg  *OutboxConfig
	Logger     *zap.Logger
}

// ProvideWorkers creates the worker manager with the outbox relay registered.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps.Repos == nil || deps.Dispatcher == nil || deps.OutboxCfg == nil {
		return nil, fmt.Errorf("workers require repositories, dispatcher and outbox config")
	}
	cfg := deps.OutboxCfg

	relay := outbox.NewRelay(deps.Repos.Outbox, deps.Dispatcher, outbox.RelayOptions{
		BatchSize:   cfg.BatchSize,
		LockTTL:     cfg.LockTTL,
		MaxAttempts: cfg.MaxAttempts,
		MaxBackoff:  cfg.MaxBackoff,
		JitterMax:   cfg.JitterMax,
	}, deps.Logger.Named("outbox"))

	manager := worker.NewManager(deps.Logger)
	manager.Register(worker.NewOutboxRelayWorker(worker.OutboxRelayConfig{
		PollInterval: cfg.PollInterval,
	}, relay, deps.Logger.Named("outbox")))
	return manager, nil
}
