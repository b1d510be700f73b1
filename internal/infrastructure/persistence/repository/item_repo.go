package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// RequestItemRepository implements port.RequestItemRepository
type RequestItemRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRequestItemRepository creates a new request item repository
func NewRequestItemRepository(db *sqlite.DB, logger *zap.Logger) port.RequestItemRepository {
	return &RequestItemRepository{db: db, logger: logger}
}

const itemColumns = `id, request_id, catalog_item_id, quantity, status, fulfilled, fulfilled_at,
	notes, created_at, updated_at`

func (r *RequestItemRepository) Create(ctx context.Context, item *entity.RequestItem) error {
	ts := now()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO request_items (
			request_id, catalog_item_id, quantity, status, fulfilled, fulfilled_at, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RequestID, item.CatalogItemID, item.Quantity, item.Status, item.Fulfilled,
		nullTime(item.FulfilledAt), item.Notes, ts, ts,
	)
	if err != nil {
		r.logger.Error("Failed to create request item",
			zap.Int64("request_id", item.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create request item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	item.CreatedAt = ts
	item.UpdatedAt = ts
	return nil
}

func (r *RequestItemRepository) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestItem, error) {
	return r.query(ctx, `SELECT `+itemColumns+` FROM request_items WHERE request_id = ? ORDER BY id`, requestID)
}

func (r *RequestItemRepository) GetUnfulfilled(ctx context.Context, requestID int64) ([]*entity.RequestItem, error) {
	return r.query(ctx,
		`SELECT `+itemColumns+` FROM request_items WHERE request_id = ? AND fulfilled = 0 ORDER BY id`, requestID)
}

func (r *RequestItemRepository) CountUnfulfilled(ctx context.Context, requestID int64) (int, error) {
	var n int
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM request_items WHERE request_id = ? AND fulfilled = 0`, requestID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfulfilled items: %w", err)
	}
	return n, nil
}

func (r *RequestItemRepository) MarkFulfilled(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE request_items SET status = ?, fulfilled = 1, fulfilled_at = ?, updated_at = ?
		WHERE id = ?`, entity.ItemStatusFulfilled, at, now(), id)
	if err != nil {
		r.logger.Error("Failed to mark item fulfilled", zap.Int64("item_id", id), zap.Error(err))
		return fmt.Errorf("failed to mark item fulfilled: %w", err)
	}
	return nil
}

func (r *RequestItemRepository) MarkBackordered(ctx context.Context, id int64, note string) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE request_items SET status = ?, notes = ?, updated_at = ?
		WHERE id = ? AND fulfilled = 0`, entity.ItemStatusBackordered, note, now(), id)
	if err != nil {
		r.logger.Error("Failed to mark item backordered", zap.Int64("item_id", id), zap.Error(err))
		return fmt.Errorf("failed to mark item backordered: %w", err)
	}
	return nil
}

func (r *RequestItemRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.RequestItem, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query request items: %w", err)
	}
	defer rows.Close()

	var items []*entity.RequestItem
	for rows.Next() {
		var item entity.RequestItem
		var fulfilledAt sql.NullTime
		if err := rows.Scan(
			&item.ID, &item.RequestID, &item.CatalogItemID, &item.Quantity, &item.Status,
			&item.Fulfilled, &fulfilledAt, &item.Notes, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan request item: %w", err)
		}
		item.FulfilledAt = timePtr(fulfilledAt)
		items = append(items, &item)
	}
	return items, rows.Err()
}

var _ port.RequestItemRepository = (*RequestItemRepository)(nil)
