package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlite.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	n.CreatedAt = now()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO notifications (recipient_id, type, title, message, request_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(n.RecipientID), n.Type, n.Title, n.Message, nullInt64(n.RequestID), n.IsRead, n.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create notification", zap.String("type", n.Type), zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}
	if n.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	query := `SELECT id, recipient_id, type, title, message, request_id, is_read, created_at
		FROM notifications WHERE (recipient_id = ? OR recipient_id IS NULL)`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY id DESC LIMIT ?`
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var list []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		var recipient, request sql.NullInt64
		if err := rows.Scan(&n.ID, &recipient, &n.Type, &n.Title, &n.Message, &request,
			&n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.RecipientID = int64Ptr(recipient)
		n.RequestID = int64Ptr(request)
		list = append(list, &n)
	}
	return list, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

var _ port.NotificationRepository = (*NotificationRepository)(nil)
