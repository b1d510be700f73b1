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

// OutboxRepository implements port.OutboxRepository on the event_outbox table
type OutboxRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db *sqlite.DB, logger *zap.Logger) port.OutboxRepository {
	return &OutboxRepository{db: db, logger: logger}
}

// Enqueue inserts messages with the executor carried by ctx, so it joins the
// caller's transaction when there is one.
func (r *OutboxRepository) Enqueue(ctx context.Context, msgs []*entity.OutboxMessage) error {
	exec := r.db.Executor(ctx)
	for _, m := range msgs {
		if m.Status == "" {
			m.Status = entity.OutboxStatusPending
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now()
		}
		if m.AvailableAt.IsZero() {
			m.AvailableAt = m.CreatedAt
		}
		_, err := exec.ExecContext(ctx, `
			INSERT INTO event_outbox (id, event_id, event_type, handler, payload, status, attempts, available_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (event_id, handler) DO NOTHING`,
			m.ID, m.EventID, m.EventType, m.Handler, string(m.Payload), m.Status, m.Attempts,
			m.AvailableAt, m.CreatedAt)
		if err != nil {
			r.logger.Error("Failed to enqueue outbox message",
				zap.String("event_id", m.EventID), zap.String("handler", m.Handler), zap.Error(err))
			return fmt.Errorf("failed to enqueue outbox message: %w", err)
		}
	}
	return nil
}

// Claim selects due messages and leases them in one transaction
func (r *OutboxRepository) Claim(ctx context.Context, at time.Time, lockTTL time.Duration, limit int) ([]*entity.OutboxMessage, error) {
	var claimed []*entity.OutboxMessage
	err := r.db.WithTransaction(ctx, func(ctx context.Context) error {
		exec := r.db.Executor(ctx)
		rows, err := exec.QueryContext(ctx, `
			SELECT id, event_id, event_type, handler, payload, status, attempts, available_at,
				locked_until, last_error, created_at, delivered_at
			FROM event_outbox
			WHERE status = ? AND available_at <= ? AND (locked_until IS NULL OR locked_until <= ?)
			ORDER BY available_at, created_at
			LIMIT ?`,
			entity.OutboxStatusPending, at, at, limit)
		if err != nil {
			return fmt.Errorf("failed to select due outbox messages: %w", err)
		}

		var due []*entity.OutboxMessage
		for rows.Next() {
			m, err := scanOutbox(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan outbox message: %w", err)
			}
			due = append(due, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		lockedUntil := at.Add(lockTTL)
		for _, m := range due {
			if _, err := exec.ExecContext(ctx,
				`UPDATE event_outbox SET locked_until = ? WHERE id = ?`, lockedUntil, m.ID); err != nil {
				return fmt.Errorf("failed to lock outbox message %s: %w", m.ID, err)
			}
			lu := lockedUntil
			m.LockedUntil = &lu
		}
		claimed = due
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to claim outbox messages", zap.Error(err))
		return nil, err
	}
	return claimed, nil
}

func (r *OutboxRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE event_outbox SET status = ?, delivered_at = ?, locked_until = NULL, last_error = ''
		WHERE id = ?`, entity.OutboxStatusDelivered, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message delivered: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkRetry(ctx context.Context, id string, attempts int, availableAt time.Time, lastErr string) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE event_outbox SET attempts = ?, available_at = ?, last_error = ?, locked_until = NULL
		WHERE id = ?`, attempts, availableAt, lastErr, id)
	if err != nil {
		return fmt.Errorf("failed to reschedule outbox message: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkDead(ctx context.Context, id string, attempts int, lastErr string) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE event_outbox SET status = ?, attempts = ?, last_error = ?, locked_until = NULL
		WHERE id = ?`, entity.OutboxStatusDead, attempts, lastErr, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message dead: %w", err)
	}
	return nil
}

func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT status, COUNT(*) FROM event_outbox GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count outbox messages: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		entity.OutboxStatusPending:   0,
		entity.OutboxStatusDelivered: 0,
		entity.OutboxStatusDead:      0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan outbox count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanOutbox(s rowScanner) (*entity.OutboxMessage, error) {
	var m entity.OutboxMessage
	var payload string
	var lockedUntil, deliveredAt sql.NullTime
	if err := s.Scan(&m.ID, &m.EventID, &m.EventType, &m.Handler, &payload, &m.Status, &m.Attempts,
		&m.AvailableAt, &lockedUntil, &m.LastError, &m.CreatedAt, &deliveredAt); err != nil {
		return nil, err
	}
	m.Payload = []byte(payload)
	m.LockedUntil = timePtr(lockedUntil)
	m.DeliveredAt = timePtr(deliveredAt)
	return &m, nil
}

var _ port.OutboxRepository = (*OutboxRepository)(nil)
