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

// ProgressRepository implements port.ProgressRepository
type ProgressRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewProgressRepository creates a new request progress repository
func NewProgressRepository(db *sqlite.DB, logger *zap.Logger) port.ProgressRepository {
	return &ProgressRepository{db: db, logger: logger}
}

const progressSelect = `
	SELECT p.id, p.request_id, p.step_id, s.step_order, p.status, p.started_at, p.completed_at,
		p.result, p.notes, p.assignee_id, p.completed_by_id
	FROM request_progress p
	JOIN workflow_steps s ON s.id = p.step_id`

func (r *ProgressRepository) Create(ctx context.Context, p *entity.RequestProgress) error {
	if p.StartedAt.IsZero() {
		p.StartedAt = now()
	}
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO request_progress (
			request_id, step_id, status, started_at, completed_at, result, notes,
			assignee_id, completed_by_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RequestID, p.StepID, p.Status, p.StartedAt, nullTime(p.CompletedAt), p.Result, p.Notes,
		nullInt64(p.AssigneeID), nullInt64(p.CompletedByID),
	)
	if err != nil {
		r.logger.Error("Failed to create request progress",
			zap.Int64("request_id", p.RequestID), zap.Int64("step_id", p.StepID), zap.Error(err))
		return fmt.Errorf("failed to create request progress: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	p.ID = id
	return nil
}

func (r *ProgressRepository) FindPending(ctx context.Context, requestID, stepID int64) (*entity.RequestProgress, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx,
		progressSelect+` WHERE p.request_id = ? AND p.step_id = ? AND p.status = ?`,
		requestID, stepID, entity.ProgressStatusPending)

	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending progress: %w", err)
	}
	return p, nil
}

func (r *ProgressRepository) Close(ctx context.Context, p *entity.RequestProgress) (bool, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE request_progress
		SET status = ?, completed_at = ?, result = ?, notes = ?, completed_by_id = ?
		WHERE id = ? AND status = ?`,
		p.Status, nullTime(p.CompletedAt), p.Result, p.Notes, nullInt64(p.CompletedByID),
		p.ID, entity.ProgressStatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to close request progress", zap.Int64("id", p.ID), zap.Error(err))
		return false, fmt.Errorf("failed to close request progress: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *ProgressRepository) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestProgress, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		progressSelect+` WHERE p.request_id = ? ORDER BY p.id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query request progress: %w", err)
	}
	defer rows.Close()

	var list []*entity.RequestProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request progress: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *ProgressRepository) CountPending(ctx context.Context, requestID int64) (int, error) {
	var n int
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM request_progress WHERE request_id = ? AND status = ?`,
		requestID, entity.ProgressStatusPending).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending progress: %w", err)
	}
	return n, nil
}

func scanProgress(s rowScanner) (*entity.RequestProgress, error) {
	var p entity.RequestProgress
	var completedAt sql.NullTime
	var assignee, completedBy sql.NullInt64
	if err := s.Scan(&p.ID, &p.RequestID, &p.StepID, &p.StepOrder, &p.Status, &p.StartedAt,
		&completedAt, &p.Result, &p.Notes, &assignee, &completedBy); err != nil {
		return nil, err
	}
	p.CompletedAt = timePtr(completedAt)
	p.AssigneeID = int64Ptr(assignee)
	p.CompletedByID = int64Ptr(completedBy)
	return &p, nil
}

var _ port.ProgressRepository = (*ProgressRepository)(nil)
