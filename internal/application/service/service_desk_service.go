package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
)

// CreateAssetInput registers a piece of equipment
type CreateAssetInput struct {
	Name          string `json:"name" validate:"required"`
	AssetTag      string `json:"assetTag" validate:"required"`
	CatalogItemID *int64 `json:"catalogItemId"`
	Location      string `json:"location"`
}

// MaintenanceInput is a finished maintenance job
type MaintenanceInput struct {
	Title   string     `json:"title" validate:"required"`
	Type    string     `json:"type" validate:"required"`
	Outcome string     `json:"outcome"`
	Date    *time.Time `json:"date"`
}

// IncidentInput is a newly reported fault
type IncidentInput struct {
	Title    string `json:"title" validate:"required"`
	Priority string `json:"priority" validate:"required,oneof=Low Medium High Critical"`
}

// ResolveIncidentInput closes an open incident
type ResolveIncidentInput struct {
	RootCause         string `json:"rootCause"`
	ResolutionSummary string `json:"resolutionSummary"`
}

// ServiceDeskService records maintenance and incidents on assets. Its events
// drive the asset-history integration.
type ServiceDeskService interface {
	CreateAsset(ctx context.Context, in CreateAssetInput) (*entity.Asset, error)
	GetAsset(ctx context.Context, id int64) (*entity.Asset, error)
	CompleteMaintenance(ctx context.Context, assetID int64, in MaintenanceInput, actorID int64) (*entity.MaintenanceRecord, error)
	ReportIncident(ctx context.Context, assetID int64, in IncidentInput, actorID int64) (*entity.Incident, error)
	ResolveIncident(ctx context.Context, incidentID int64, in ResolveIncidentInput, actorID int64) (*entity.Incident, error)
}

type serviceDeskServiceImpl struct {
	assetRepo       port.AssetRepository
	maintenanceRepo port.MaintenanceRepository
	incidentRepo    port.IncidentRepository
	txManager       port.TransactionManager
	publisher       port.EventPublisher
	logger          Logger
	now             Clock
}

// NewServiceDeskService creates a new ServiceDeskService
func NewServiceDeskService(
	assetRepo port.AssetRepository,
	maintenanceRepo port.MaintenanceRepository,
	incidentRepo port.IncidentRepository,
	txManager port.TransactionManager,
	publisher port.EventPublisher,
	logger Logger,
) ServiceDeskService {
	return &serviceDeskServiceImpl{
		assetRepo:       assetRepo,
		maintenanceRepo: maintenanceRepo,
		incidentRepo:    incidentRepo,
		txManager:       txManager,
		publisher:       publisher,
		logger:          logger,
		now:             utcNow,
	}
}

func (s *serviceDeskServiceImpl) CreateAsset(ctx context.Context, in CreateAssetInput) (*entity.Asset, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.AssetTag = strings.TrimSpace(in.AssetTag)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	asset := &entity.Asset{
		Name:          in.Name,
		AssetTag:      in.AssetTag,
		CatalogItemID: in.CatalogItemID,
		Location:      in.Location,
		Metadata:      entity.AssetMetadata{HealthStatus: entity.HealthHealthy},
	}
	if err := s.assetRepo.Create(ctx, asset); err != nil {
		s.logger.Error("Failed to create asset", "asset_tag", in.AssetTag, "error", err)
		return nil, err
	}
	s.logger.Info("Asset created", "id", asset.ID, "asset_tag", asset.AssetTag)
	return asset, nil
}

func (s *serviceDeskServiceImpl) GetAsset(ctx context.Context, id int64) (*entity.Asset, error) {
	asset, err := s.assetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, apperr.NotFound("asset", id)
	}
	return asset, nil
}

// CompleteMaintenance stores the maintenance record and emits maintenance-completed
func (s *serviceDeskServiceImpl) CompleteMaintenance(ctx context.Context, assetID int64, in MaintenanceInput, actorID int64) (*entity.MaintenanceRecord, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	rec := &entity.MaintenanceRecord{
		AssetID:       assetID,
		Title:         strings.TrimSpace(in.Title),
		Type:          strings.TrimSpace(in.Type),
		Outcome:       in.Outcome,
		PerformedAt:   s.now(),
		PerformedByID: optionalActor(actorID),
	}
	if in.Date != nil {
		rec.PerformedAt = in.Date.UTC()
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.GetAsset(txCtx, assetID); err != nil {
			return err
		}
		if err := s.maintenanceRepo.Create(txCtx, rec); err != nil {
			return fmt.Errorf("create maintenance record: %w", err)
		}
		return s.publisher.Publish(txCtx, event.New(event.MaintenanceCompleted{
			MaintenanceID: rec.ID,
			AssetID:       assetID,
			Title:         rec.Title,
			Type:          rec.Type,
			Outcome:       rec.Outcome,
			Date:          rec.PerformedAt,
			PerformedByID: rec.PerformedByID,
		}))
	})
	if err != nil {
		s.logger.Error("Failed to complete maintenance", "asset_id", assetID, "error", err)
		return nil, err
	}

	s.logger.Info("Maintenance completed", "id", rec.ID, "asset_id", assetID)
	return rec, nil
}

// ReportIncident opens an incident and emits incident-reported
func (s *serviceDeskServiceImpl) ReportIncident(ctx context.Context, assetID int64, in IncidentInput, actorID int64) (*entity.Incident, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	inc := &entity.Incident{
		AssetID:      assetID,
		Title:        in.Title,
		Priority:     in.Priority,
		Status:       entity.IncidentStatusOpen,
		ReportedByID: optionalActor(actorID),
		ReportedAt:   s.now(),
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.GetAsset(txCtx, assetID); err != nil {
			return err
		}
		if err := s.incidentRepo.Create(txCtx, inc); err != nil {
			return fmt.Errorf("create incident: %w", err)
		}
		return s.publisher.Publish(txCtx, event.New(event.IncidentReported{
			IncidentID: inc.ID,
			AssetID:    assetID,
			Title:      inc.Title,
			Priority:   inc.Priority,
			ReportedAt: inc.ReportedAt,
		}))
	})
	if err != nil {
		s.logger.Error("Failed to report incident", "asset_id", assetID, "error", err)
		return nil, err
	}

	s.logger.Info("Incident reported", "id", inc.ID, "asset_id", assetID, "priority", inc.Priority)
	return inc, nil
}

// ResolveIncident closes an open incident and emits incident-resolved
func (s *serviceDeskServiceImpl) ResolveIncident(ctx context.Context, incidentID int64, in ResolveIncidentInput, actorID int64) (*entity.Incident, error) {
	var inc *entity.Incident
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		inc, err = s.incidentRepo.GetByID(txCtx, incidentID)
		if err != nil {
			return err
		}
		if inc == nil {
			return apperr.NotFound("incident", incidentID)
		}
		if inc.Status != entity.IncidentStatusOpen {
			return apperr.State("incident %d is already %s", incidentID, inc.Status)
		}

		resolved := s.now()
		inc.Status = entity.IncidentStatusResolved
		inc.ResolvedAt = &resolved
		inc.ResolvedByID = optionalActor(actorID)
		inc.RootCause = strings.TrimSpace(in.RootCause)
		inc.ResolutionSummary = strings.TrimSpace(in.ResolutionSummary)

		ok, err := s.incidentRepo.Resolve(txCtx, inc)
		if err != nil {
			return fmt.Errorf("resolve incident: %w", err)
		}
		if !ok {
			return apperr.State("incident %d was resolved concurrently", incidentID)
		}

		return s.publisher.Publish(txCtx, event.New(event.IncidentResolved{
			IncidentID:        inc.ID,
			AssetID:           inc.AssetID,
			Title:             inc.Title,
			Priority:          inc.Priority,
			ReportedAt:        inc.ReportedAt,
			ResolvedAt:        resolved,
			RootCause:         inc.RootCause,
			ResolutionSummary: inc.ResolutionSummary,
		}))
	})
	if err != nil {
		s.logger.Error("Failed to resolve incident", "id", incidentID, "error", err)
		return nil, err
	}

	s.logger.Info("Incident resolved", "id", incidentID, "asset_id", inc.AssetID)
	return inc, nil
}

func optionalActor(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
