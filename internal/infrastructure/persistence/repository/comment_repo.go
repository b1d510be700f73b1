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

// CommentRepository implements port.CommentRepository
type CommentRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *sqlite.DB, logger *zap.Logger) port.CommentRepository {
	return &CommentRepository{db: db, logger: logger}
}

func (r *CommentRepository) Create(ctx context.Context, c *entity.RequestComment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO request_comments (request_id, author_id, text, is_private, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.RequestID, nullInt64(c.AuthorID), c.Text, c.IsPrivate, c.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create comment", zap.Int64("request_id", c.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	return nil
}

func (r *CommentRepository) GetByRequestID(ctx context.Context, requestID int64, includePrivate bool) ([]*entity.RequestComment, error) {
	query := `SELECT id, request_id, author_id, text, is_private, created_at
		FROM request_comments WHERE request_id = ?`
	if !includePrivate {
		query += ` AND is_private = 0`
	}
	query += ` ORDER BY id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []*entity.RequestComment
	for rows.Next() {
		var c entity.RequestComment
		var author sql.NullInt64
		if err := rows.Scan(&c.ID, &c.RequestID, &author, &c.Text, &c.IsPrivate, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.AuthorID = int64Ptr(author)
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

var _ port.CommentRepository = (*CommentRepository)(nil)
