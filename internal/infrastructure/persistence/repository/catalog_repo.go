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

// CatalogRepository implements port.CatalogRepository
type CatalogRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *sqlite.DB, logger *zap.Logger) port.CatalogRepository {
	return &CatalogRepository{db: db, logger: logger}
}

func (r *CatalogRepository) Create(ctx context.Context, item *entity.CatalogItem) error {
	ts := now()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO catalog_items (name, sku, category, min_stock_level, reorder_point, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.Name, item.SKU, item.Category, item.MinStockLevel, item.ReorderPoint, ts, ts)
	if err != nil {
		r.logger.Error("Failed to create catalog item", zap.String("sku", item.SKU), zap.Error(err))
		return fmt.Errorf("failed to create catalog item: %w", err)
	}
	if item.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.CreatedAt = ts
	item.UpdatedAt = ts
	return nil
}

func (r *CatalogRepository) GetByID(ctx context.Context, id int64) (*entity.CatalogItem, error) {
	var item entity.CatalogItem
	err := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT id, name, sku, category, min_stock_level, reorder_point, created_at, updated_at
		FROM catalog_items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &item.SKU, &item.Category, &item.MinStockLevel,
		&item.ReorderPoint, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog item: %w", err)
	}
	return &item, nil
}

var _ port.CatalogRepository = (*CatalogRepository)(nil)
