package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// StockRepository implements port.StockRepository
type StockRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db *sqlite.DB, logger *zap.Logger) port.StockRepository {
	return &StockRepository{db: db, logger: logger}
}

const stockColumns = `id, catalog_item_id, location, quantity, last_checked_at, updated_at`

func (r *StockRepository) Create(ctx context.Context, rec *entity.StockRecord) error {
	ts := now()
	if rec.LastCheckedAt.IsZero() {
		rec.LastCheckedAt = ts
	}
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO stock_records (catalog_item_id, location, quantity, last_checked_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.CatalogItemID, rec.Location, rec.Quantity, rec.LastCheckedAt, ts)
	if err != nil {
		r.logger.Error("Failed to create stock record",
			zap.Int64("catalog_item_id", rec.CatalogItemID), zap.Error(err))
		return fmt.Errorf("failed to create stock record: %w", err)
	}
	if rec.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.UpdatedAt = ts
	return nil
}

func (r *StockRepository) GetByID(ctx context.Context, id int64) (*entity.StockRecord, error) {
	return r.one(ctx, `SELECT `+stockColumns+` FROM stock_records WHERE id = ?`, id)
}

func (r *StockRepository) GetByItemAndLocation(ctx context.Context, catalogItemID int64, location string) (*entity.StockRecord, error) {
	return r.one(ctx, `SELECT `+stockColumns+` FROM stock_records WHERE catalog_item_id = ? AND location = ?`,
		catalogItemID, location)
}

func (r *StockRepository) FindAvailable(ctx context.Context, catalogItemID int64, quantity int) (*entity.StockRecord, error) {
	return r.one(ctx, `
		SELECT `+stockColumns+` FROM stock_records
		WHERE catalog_item_id = ? AND quantity >= ?
		ORDER BY last_checked_at DESC, id DESC
		LIMIT 1`, catalogItemID, quantity)
}

func (r *StockRepository) ListByItem(ctx context.Context, catalogItemID int64) ([]*entity.StockRecord, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT `+stockColumns+` FROM stock_records WHERE catalog_item_id = ? ORDER BY location`, catalogItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock records: %w", err)
	}
	defer rows.Close()

	var records []*entity.StockRecord
	for rows.Next() {
		rec, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Decrement is a single conditional UPDATE; the quantity check and the write
// cannot interleave with another decrement of the same record.
func (r *StockRepository) Decrement(ctx context.Context, id int64, quantity int) (bool, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE stock_records SET quantity = quantity - ?, updated_at = ?
		WHERE id = ? AND quantity >= ?`,
		quantity, now(), id, quantity)
	if err != nil {
		r.logger.Error("Failed to decrement stock", zap.Int64("stock_record_id", id), zap.Error(err))
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *StockRepository) Increment(ctx context.Context, id int64, quantity int, checkedAt time.Time) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE stock_records SET quantity = quantity + ?, last_checked_at = ?, updated_at = ?
		WHERE id = ?`, quantity, checkedAt, now(), id)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	return nil
}

func (r *StockRepository) CreateMovement(ctx context.Context, m *entity.StockMovement) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO stock_movements (
			stock_record_id, catalog_item_id, type, quantity, quantity_before, quantity_after,
			reference, performed_by_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.StockRecordID, m.CatalogItemID, m.Type, m.Quantity, m.QuantityBefore, m.QuantityAfter,
		m.Reference, nullInt64(m.PerformedByID), m.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create stock movement",
			zap.Int64("stock_record_id", m.StockRecordID), zap.Error(err))
		return fmt.Errorf("failed to create stock movement: %w", err)
	}
	if m.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	return nil
}

func (r *StockRepository) ListMovements(ctx context.Context, filter port.MovementFilter) ([]*entity.StockMovement, error) {
	var where []string
	var args []interface{}
	if filter.CatalogItemID != 0 {
		where = append(where, "catalog_item_id = ?")
		args = append(args, filter.CatalogItemID)
	}
	if filter.ReferencePrefix != "" {
		where = append(where, "reference LIKE ?")
		args = append(args, filter.ReferencePrefix+"%")
	}

	query := `SELECT id, stock_record_id, catalog_item_id, type, quantity, quantity_before,
		quantity_after, reference, performed_by_id, created_at FROM stock_movements`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	defer rows.Close()

	var movements []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var performedBy sql.NullInt64
		if err := rows.Scan(&m.ID, &m.StockRecordID, &m.CatalogItemID, &m.Type, &m.Quantity,
			&m.QuantityBefore, &m.QuantityAfter, &m.Reference, &performedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		m.PerformedByID = int64Ptr(performedBy)
		movements = append(movements, &m)
	}
	return movements, rows.Err()
}

func (r *StockRepository) one(ctx context.Context, query string, args ...interface{}) (*entity.StockRecord, error) {
	rec, err := scanStock(r.db.Executor(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock record: %w", err)
	}
	return rec, nil
}

func scanStock(s rowScanner) (*entity.StockRecord, error) {
	var rec entity.StockRecord
	if err := s.Scan(&rec.ID, &rec.CatalogItemID, &rec.Location, &rec.Quantity,
		&rec.LastCheckedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

var _ port.StockRepository = (*StockRepository)(nil)
