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

// MaintenanceRepository implements port.MaintenanceRepository
type MaintenanceRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewMaintenanceRepository creates a new maintenance repository
func NewMaintenanceRepository(db *sqlite.DB, logger *zap.Logger) port.MaintenanceRepository {
	return &MaintenanceRepository{db: db, logger: logger}
}

func (r *MaintenanceRepository) Create(ctx context.Context, m *entity.MaintenanceRecord) error {
	m.CreatedAt = now()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO maintenance_records (asset_id, title, type, outcome, performed_at, performed_by_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.AssetID, m.Title, m.Type, m.Outcome, m.PerformedAt, nullInt64(m.PerformedByID), m.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create maintenance record", zap.Int64("asset_id", m.AssetID), zap.Error(err))
		return fmt.Errorf("failed to create maintenance record: %w", err)
	}
	if m.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	return nil
}

// IncidentRepository implements port.IncidentRepository
type IncidentRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewIncidentRepository creates a new incident repository
func NewIncidentRepository(db *sqlite.DB, logger *zap.Logger) port.IncidentRepository {
	return &IncidentRepository{db: db, logger: logger}
}

func (r *IncidentRepository) Create(ctx context.Context, inc *entity.Incident) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO incidents (asset_id, title, priority, status, reported_by_id, reported_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		inc.AssetID, inc.Title, inc.Priority, inc.Status, nullInt64(inc.ReportedByID), inc.ReportedAt)
	if err != nil {
		r.logger.Error("Failed to create incident", zap.Int64("asset_id", inc.AssetID), zap.Error(err))
		return fmt.Errorf("failed to create incident: %w", err)
	}
	if inc.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	return nil
}

func (r *IncidentRepository) GetByID(ctx context.Context, id int64) (*entity.Incident, error) {
	var inc entity.Incident
	var reportedBy, resolvedBy sql.NullInt64
	var resolvedAt sql.NullTime

	err := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT id, asset_id, title, priority, status, reported_by_id, reported_at, resolved_at,
			resolved_by_id, root_cause, resolution_summary
		FROM incidents WHERE id = ?`, id,
	).Scan(&inc.ID, &inc.AssetID, &inc.Title, &inc.Priority, &inc.Status, &reportedBy,
		&inc.ReportedAt, &resolvedAt, &resolvedBy, &inc.RootCause, &inc.ResolutionSummary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}

	inc.ReportedByID = int64Ptr(reportedBy)
	inc.ResolvedByID = int64Ptr(resolvedBy)
	inc.ResolvedAt = timePtr(resolvedAt)
	return &inc, nil
}

func (r *IncidentRepository) Resolve(ctx context.Context, inc *entity.Incident) (bool, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE incidents
		SET status = ?, resolved_at = ?, resolved_by_id = ?, root_cause = ?, resolution_summary = ?
		WHERE id = ? AND status = ?`,
		entity.IncidentStatusResolved, nullTime(inc.ResolvedAt), nullInt64(inc.ResolvedByID),
		inc.RootCause, inc.ResolutionSummary, inc.ID, entity.IncidentStatusOpen)
	if err != nil {
		r.logger.Error("Failed to resolve incident", zap.Int64("id", inc.ID), zap.Error(err))
		return false, fmt.Errorf("failed to resolve incident: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

var (
	_ port.MaintenanceRepository = (*MaintenanceRepository)(nil)
	_ port.IncidentRepository    = (*IncidentRepository)(nil)
)
