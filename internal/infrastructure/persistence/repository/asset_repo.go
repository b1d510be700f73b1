package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// AssetRepository implements port.AssetRepository. Metadata is stored as a JSON document.
type AssetRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sqlite.DB, logger *zap.Logger) port.AssetRepository {
	return &AssetRepository{db: db, logger: logger}
}

func (r *AssetRepository) Create(ctx context.Context, a *entity.Asset) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal asset metadata: %w", err)
	}

	ts := now()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO assets (name, asset_tag, catalog_item_id, location, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.AssetTag, nullInt64(a.CatalogItemID), a.Location, string(metadata), ts, ts)
	if err != nil {
		r.logger.Error("Failed to create asset", zap.String("asset_tag", a.AssetTag), zap.Error(err))
		return fmt.Errorf("failed to create asset: %w", err)
	}
	if a.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	a.CreatedAt = ts
	a.UpdatedAt = ts
	return nil
}

func (r *AssetRepository) GetByID(ctx context.Context, id int64) (*entity.Asset, error) {
	var a entity.Asset
	var catalogItem sql.NullInt64
	var metadata string

	err := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT id, name, asset_tag, catalog_item_id, location, metadata, created_at, updated_at
		FROM assets WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.AssetTag, &catalogItem, &a.Location, &metadata, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get asset", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	a.CatalogItemID = int64Ptr(catalogItem)
	if err := json.Unmarshal([]byte(metadata), &a.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal asset %d metadata: %w", id, err)
	}
	return &a, nil
}

func (r *AssetRepository) UpdateMetadata(ctx context.Context, id int64, metadata entity.AssetMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal asset metadata: %w", err)
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE assets SET metadata = ?, updated_at = ? WHERE id = ?`, string(data), now(), id)
	if err != nil {
		r.logger.Error("Failed to update asset metadata", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update asset metadata: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("asset %d not found", id)
	}
	return nil
}

var _ port.AssetRepository = (*AssetRepository)(nil)
