package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/hospital-itsm/internal/application/dispatcher"
	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/application/workflow"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/authz"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/worker"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle, with ordered
// initialization and reverse-order teardown.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - Events
	roles      *authz.Checker
	dispatcher dispatcher.Dispatcher
	publisher  port.EventPublisher

	// Application
	engine       workflow.Engine
	services     *ServiceBundle
	integrations *IntegrationBundle

	// Workers
	workers *worker.Manager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. Role checker, dispatcher and outbox publisher
// 3. Workflow engine and application services
// 4. Integrations
// 5. Workers
// Handlers are subscribed before the relay starts, so no claimed outbox row
// finds its handler missing.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	steps := []struct {
		name string
		init func() error
	}{
		{"event pipeline", c.initEventPipeline},
		{"services", c.initServices},
		{"integrations", c.initIntegrations},
		{"workers", c.initWorkers},
	}
	for _, step := range steps {
		if err := step.init(); err != nil {
			c.abort()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Initialized " + step.name)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// abort releases what a failed Start already opened
func (c *Container) abort() {
	if c.workers != nil {
		_ = c.workers.StopAll()
	}
	if c.dispatcher != nil {
		_ = c.dispatcher.Close()
	}
	if c.sqlDB != nil {
		_ = c.sqlDB.Close()
	}
	c.cancel()
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Stop the relay so nothing new is dispatched
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Step 2: Wait for in-flight async dispatches
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 3: Close database
	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}
	notInitialized := ComponentHealth{Healthy: false, Message: "not initialized"}

	// Check database
	switch {
	case c.sqlDB == nil:
		set("database", notInitialized)
	default:
		if err := c.sqlDB.PingContext(ctx); err != nil {
			set("database", ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("database", ComponentHealth{Healthy: true})
		}
	}

	// Check outbox backlog
	if c.repositories != nil {
		counts, err := c.repositories.Outbox.CountByStatus(ctx)
		if err != nil {
			set("outbox", ComponentHealth{Healthy: false, Message: err.Error()})
		} else {
			set("outbox", ComponentHealth{
				Healthy: true,
				Message: fmt.Sprintf("pending: %d, dead: %d", counts[entity.OutboxStatusPending], counts[entity.OutboxStatusDead]),
			})
		}
	} else {
		set("outbox", notInitialized)
	}

	// Check workers
	switch {
	case c.config.DisableWorkers || c.config.Outbox.Volatile:
		set("workers", ComponentHealth{Healthy: true, Message: "disabled"})
	case c.workers == nil:
		set("workers", notInitialized)
	default:
		set("workers", ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.Count()),
		})
	}

	if c.dispatcher != nil {
		set("dispatcher", ComponentHealth{Healthy: true})
	} else {
		set("dispatcher", notInitialized)
	}

	return status
}

// initDatabase opens the database and creates the repositories.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(c.ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.sqlDB = dbBundle.SqlDB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		c.sqlDB.Close()
		return err
	}

	c.repositories = repos
	return nil
}

// initEventPipeline creates the role checker, dispatcher and outbox publisher.
func (c *Container) initEventPipeline() error {
	roles, err := ProvideRoleChecker(&c.config.Workflow, c.logger)
	if err != nil {
		return err
	}
	c.roles = roles

	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp
	c.publisher = ProvidePublisher(&c.config.Outbox, c.db, c.repositories, disp, c.logger)
	return nil
}

// initServices creates the workflow engine and the application services.
func (c *Container) initServices() error {
	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:     c.repositories,
		TxManager: c.db,
		Roles:     c.roles,
		Publisher: c.publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.engine = engine

	services, err := ProvideServices(&ServiceDeps{
		Repos:            c.repositories,
		TxManager:        c.db,
		Engine:           engine,
		Publisher:        c.publisher,
		Dispatcher:       c.dispatcher,
		AutoSelectByType: c.config.Workflow.AutoSelectByType,
		Logger:           c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

// initIntegrations subscribes the fulfillment and asset-history handlers.
func (c *Container) initIntegrations() error {
	integrations, err := ProvideIntegrations(&IntegrationDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Publisher:  c.publisher,
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.integrations = integrations
	return nil
}

// initWorkers starts the outbox relay unless disabled.
func (c *Container) initWorkers() error {
	if c.config.DisableWorkers || c.config.Outbox.Volatile {
		c.logger.Info("Workers disabled")
		return nil
	}

	workers, err := ProvideWorkers(&WorkerDeps{
		Repos:      c.repositories,
		Dispatcher: c.dispatcher,
		OutboxCfg:  &c.config.Outbox,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// WorkflowEngine returns the workflow engine.
func (c *Container) WorkflowEngine() workflow.Engine {
	return c.engine
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Integrations returns the event-driven integrations.
func (c *Container) Integrations() *IntegrationBundle {
	return c.integrations
}

// Workers returns the worker manager. It is nil when workers are disabled.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
