package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/hospital-itsm/internal/container"
	httpapi "github.com/garyjia/hospital-itsm/internal/interfaces/http"
	"github.com/garyjia/hospital-itsm/pkg/utils"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database, start the outbox relay and serve the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	a.logger.Info("Starting hospital ITSM",
		zap.String("version", version),
		zap.Int("port", a.cfg.Server.Port))

	c, err := container.NewContainer(a.cfg.ToContainerConfig(), a.logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			a.logger.Error("Container shutdown failed", zap.Error(err))
		}
	}()

	svc := c.Services()
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:         a.cfg.Server.Host,
		Port:         a.cfg.Server.Port,
		Mode:         a.cfg.Server.Mode,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}, httpapi.Services{
		Requests:      svc.Requests,
		Workflows:     svc.Workflows,
		Warehouse:     svc.Warehouse,
		ServiceDesk:   svc.ServiceDesk,
		Notifications: svc.Notifications,
		Users:         svc.Users,
		Reports:       svc.Reports,
	}, func(ctx context.Context) (bool, interface{}) {
		status := c.Health(ctx)
		return status.Overall, status.Components
	}, utils.NewKVLogger(a.logger.Named("http")))

	// Start blocks until the signal context is cancelled
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	a.logger.Info("Server exited successfully")
	return nil
}
