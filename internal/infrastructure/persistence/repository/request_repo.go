package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sqlite.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `id, title, description, type, status, priority, requester_id,
	assignee_id, workflow_id, submit_date, due_date, completed_date, notes, metadata,
	created_at, updated_at`

// Create inserts a request and sets its ID
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	metadata, err := marshalMetadata(req.Metadata)
	if err != nil {
		return err
	}

	ts := now()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO requests (
			title, description, type, status, priority, requester_id, assignee_id,
			workflow_id, submit_date, due_date, completed_date, notes, metadata,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.Title, req.Description, req.Type, req.Status, req.Priority, req.RequesterID,
		nullInt64(req.AssigneeID), nullInt64(req.WorkflowID), req.SubmitDate,
		nullTime(req.DueDate), nullTime(req.CompletedDate), req.Notes, metadata, ts, ts,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.String("title", req.Title), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	req.CreatedAt = ts
	req.UpdatedAt = ts
	return nil
}

// GetByID returns nil, nil when the request does not exist
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// Update writes the mutable columns of a request
func (r *RequestRepository) Update(ctx context.Context, req *entity.Request) error {
	metadata, err := marshalMetadata(req.Metadata)
	if err != nil {
		return err
	}

	ts := now()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE requests
		SET status = ?, priority = ?, assignee_id = ?, workflow_id = ?, due_date = ?,
			completed_date = ?, notes = ?, metadata = ?, updated_at = ?
		WHERE id = ?`,
		req.Status, req.Priority, nullInt64(req.AssigneeID), nullInt64(req.WorkflowID),
		nullTime(req.DueDate), nullTime(req.CompletedDate), req.Notes, metadata, ts, req.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("request %d not found", req.ID)
	}

	req.UpdatedAt = ts
	return nil
}

// List returns requests newest first
func (r *RequestRepository) List(ctx context.Context, filter entity.RequestFilter) ([]*entity.Request, error) {
	var where []string
	var args []interface{}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.RequesterID != 0 {
		where = append(where, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}
	if filter.AssigneeID != 0 {
		where = append(where, "assignee_id = ?")
		args = append(args, filter.AssigneeID)
	}

	query := `SELECT ` + requestColumns + ` FROM requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY submit_date DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(s rowScanner) (*entity.Request, error) {
	var req entity.Request
	var assignee, workflow sql.NullInt64
	var due, completed sql.NullTime
	var metadata string

	if err := s.Scan(
		&req.ID, &req.Title, &req.Description, &req.Type, &req.Status, &req.Priority,
		&req.RequesterID, &assignee, &workflow, &req.SubmitDate, &due, &completed,
		&req.Notes, &metadata, &req.CreatedAt, &req.UpdatedAt,
	); err != nil {
		return nil, err
	}

	req.AssigneeID = int64Ptr(assignee)
	req.WorkflowID = int64Ptr(workflow)
	req.DueDate = timePtr(due)
	req.CompletedDate = timePtr(completed)

	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &req.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request metadata: %w", err)
		}
	}
	return &req, nil
}

func marshalMetadata(m map[string]interface{}) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(b), nil
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
