package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/hospital-itsm/internal/application/service"
	"github.com/garyjia/hospital-itsm/internal/container"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/seed"
)

func newSeedCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create workflow definitions from a YAML file",
		Long: `seed loads workflow definitions and creates the ones whose name does not
exist yet. Step orders must run 1..N without gaps.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = a.cfg.Seed.WorkflowsFile
			}
			created, skipped, err := a.seed(cmd.Context(), file)
			if err != nil {
				return err
			}
			cmd.Printf("created %d workflow(s), skipped %d existing\n", created, skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "workflow definitions file (defaults to seed.workflows_file)")
	return cmd
}

func (a *app) seed(ctx context.Context, file string) (created, skipped int, err error) {
	defs, err := seed.LoadWorkflows(file)
	if err != nil {
		return 0, 0, err
	}

	cfg := a.cfg.ToContainerConfig()
	cfg.DisableWorkers = true
	c, err := container.NewContainer(cfg, a.logger)
	if err != nil {
		return 0, 0, err
	}
	if err := c.Start(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to start container: %w", err)
	}
	defer c.Close()

	workflows := c.Services().Workflows
	existing, err := workflows.ListWorkflows(ctx, false)
	if err != nil {
		return 0, 0, err
	}
	names := make(map[string]bool, len(existing))
	for _, wf := range existing {
		names[wf.Name] = true
	}

	for _, def := range defs {
		if names[def.Name] {
			a.logger.Info("Workflow exists, skipping", zap.String("name", def.Name))
			skipped++
			continue
		}
		wf, err := workflows.CreateWorkflow(ctx, workflowInput(def))
		if err != nil {
			return created, skipped, fmt.Errorf("workflow %q: %w", def.Name, err)
		}
		names[wf.Name] = true
		created++
	}
	return created, skipped, nil
}

func workflowInput(wf *entity.Workflow) service.CreateWorkflowInput {
	active := wf.IsActive
	in := service.CreateWorkflowInput{
		Name:        wf.Name,
		Type:        wf.Type,
		Description: wf.Description,
		Active:      &active,
	}
	for _, st := range wf.Steps {
		in.Steps = append(in.Steps, service.CreateStepInput{
			StepOrder:    st.StepOrder,
			Name:         st.Name,
			Description:  st.Description,
			RequiredRole: st.RequiredRole,
			Action:       st.Action,
			AutoProgress: st.AutoProgress,
		})
	}
	return in
}
