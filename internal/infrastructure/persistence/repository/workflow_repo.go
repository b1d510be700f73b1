package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// WorkflowRepository implements port.WorkflowRepository
type WorkflowRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sqlite.DB, logger *zap.Logger) port.WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Create inserts the workflow and its steps. Callers wrap it in a transaction.
func (r *WorkflowRepository) Create(ctx context.Context, wf *entity.Workflow) error {
	ts := now()
	exec := r.db.Executor(ctx)

	result, err := exec.ExecContext(ctx, `
		INSERT INTO workflows (name, description, type, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		wf.Name, wf.Description, wf.Type, wf.IsActive, ts, ts,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow", zap.String("name", wf.Name), zap.Error(err))
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	wf.ID = id
	wf.CreatedAt = ts
	wf.UpdatedAt = ts

	for _, step := range wf.Steps {
		step.WorkflowID = wf.ID
		res, err := exec.ExecContext(ctx, `
			INSERT INTO workflow_steps (
				workflow_id, step_order, name, description, required_role, action,
				auto_progress, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			step.WorkflowID, step.StepOrder, step.Name, step.Description, step.RequiredRole,
			step.Action, step.AutoProgress, ts,
		)
		if err != nil {
			r.logger.Error("Failed to create workflow step",
				zap.Int64("workflow_id", wf.ID), zap.Int("step_order", step.StepOrder), zap.Error(err))
			return fmt.Errorf("failed to create workflow step %d: %w", step.StepOrder, err)
		}
		if step.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		step.CreatedAt = ts
	}
	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id int64) (*entity.Workflow, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT id, name, description, type, is_active, created_at, updated_at
		FROM workflows WHERE id = ?`, id)

	wf, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if wf.Steps, err = r.steps(ctx, wf.ID); err != nil {
		return nil, err
	}
	return wf, nil
}

func (r *WorkflowRepository) List(ctx context.Context, activeOnly bool) ([]*entity.Workflow, error) {
	query := `SELECT id, name, description, type, is_active, created_at, updated_at FROM workflows`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	var workflows []*entity.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, wf)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, wf := range workflows {
		if wf.Steps, err = r.steps(ctx, wf.ID); err != nil {
			return nil, err
		}
	}
	return workflows, nil
}

// FindActiveByType returns the newest active workflow for a request type
func (r *WorkflowRepository) FindActiveByType(ctx context.Context, requestType string) (*entity.Workflow, error) {
	var id int64
	err := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT id FROM workflows WHERE type = ? AND is_active = 1
		ORDER BY id DESC LIMIT 1`, requestType).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find workflow for type %s: %w", requestType, err)
	}
	return r.GetByID(ctx, id)
}

func (r *WorkflowRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE workflows SET is_active = ?, updated_at = ? WHERE id = ?`, active, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update workflow: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("workflow %d not found", id)
	}
	return nil
}

func (r *WorkflowRepository) steps(ctx context.Context, workflowID int64) ([]*entity.WorkflowStep, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT id, workflow_id, step_order, name, description, required_role, action,
			auto_progress, created_at
		FROM workflow_steps WHERE workflow_id = ? ORDER BY step_order`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow steps: %w", err)
	}
	defer rows.Close()

	var steps []*entity.WorkflowStep
	for rows.Next() {
		var s entity.WorkflowStep
		if err := rows.Scan(&s.ID, &s.WorkflowID, &s.StepOrder, &s.Name, &s.Description,
			&s.RequiredRole, &s.Action, &s.AutoProgress, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workflow step: %w", err)
		}
		steps = append(steps, &s)
	}
	return steps, rows.Err()
}

func scanWorkflow(s rowScanner) (*entity.Workflow, error) {
	var wf entity.Workflow
	if err := s.Scan(&wf.ID, &wf.Name, &wf.Description, &wf.Type, &wf.IsActive,
		&wf.CreatedAt, &wf.UpdatedAt); err != nil {
		return nil, err
	}
	return &wf, nil
}

var _ port.WorkflowRepository = (*WorkflowRepository)(nil)
