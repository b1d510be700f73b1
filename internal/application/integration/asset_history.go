package integration

import (
	"context"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
)

// Asset-history handler names
const (
	HandlerAssetMaintenance      = "asset_history.maintenance_completed"
	HandlerAssetIncidentReported = "asset_history.incident_reported"
	HandlerAssetIncidentResolved = "asset_history.incident_resolved"
)

// AssetHistory keeps the bounded maintenance and incident history, MTBF and
// health status on asset metadata
type AssetHistory struct {
	assets    port.AssetRepository
	txManager port.TransactionManager
	logger    Logger
}

// NewAssetHistory creates the asset-history integration
func NewAssetHistory(assets port.AssetRepository, txManager port.TransactionManager, logger Logger) *AssetHistory {
	return &AssetHistory{assets: assets, txManager: txManager, logger: logger}
}

// Register subscribes the three asset-history handlers
func (h *AssetHistory) Register(sub Subscriber) {
	sub.SubscribeNamed(event.TypeMaintenanceCompleted, HandlerAssetMaintenance, h.HandleMaintenanceCompleted,
		"append to the asset maintenance history")
	sub.SubscribeNamed(event.TypeIncidentReported, HandlerAssetIncidentReported, h.HandleIncidentReported,
		"adjust asset health for a new incident")
	sub.SubscribeNamed(event.TypeIncidentResolved, HandlerAssetIncidentResolved, h.HandleIncidentResolved,
		"append to the asset incident history and refresh MTBF")
}

func (h *AssetHistory) HandleMaintenanceCompleted(ctx context.Context, evt *event.Event) error {
	p, err := event.PayloadAs[event.MaintenanceCompleted](evt)
	if err != nil {
		return err
	}
	return h.update(ctx, evt, HandlerAssetMaintenance, p.AssetID, func(md *entity.AssetMetadata) {
		md.RecordMaintenance(entity.MaintenanceEntry{
			EventID:       p.MaintenanceID,
			Title:         p.Title,
			Date:          p.Date,
			Type:          p.Type,
			Outcome:       p.Outcome,
			PerformedByID: p.PerformedByID,
		})
	})
}

func (h *AssetHistory) HandleIncidentReported(ctx context.Context, evt *event.Event) error {
	p, err := event.PayloadAs[event.IncidentReported](evt)
	if err != nil {
		return err
	}
	return h.update(ctx, evt, HandlerAssetIncidentReported, p.AssetID, func(md *entity.AssetMetadata) {
		md.ApplyIncidentPriority(p.Priority)
	})
}

func (h *AssetHistory) HandleIncidentResolved(ctx context.Context, evt *event.Event) error {
	p, err := event.PayloadAs[event.IncidentResolved](evt)
	if err != nil {
		return err
	}
	return h.update(ctx, evt, HandlerAssetIncidentResolved, p.AssetID, func(md *entity.AssetMetadata) {
		md.RecordResolvedIncident(entity.IncidentEntry{
			IncidentID:        p.IncidentID,
			Title:             p.Title,
			ReportedDate:      p.ReportedAt,
			ResolvedDate:      p.ResolvedAt,
			Priority:          p.Priority,
			RootCause:         p.RootCause,
			ResolutionSummary: p.ResolutionSummary,
		})
	})
}

// update applies mutate to the asset's metadata as one read-modify-write
func (h *AssetHistory) update(ctx context.Context, evt *event.Event, handler string, assetID int64, mutate func(*entity.AssetMetadata)) error {
	err := h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		asset, err := h.assets.GetByID(txCtx, assetID)
		if err != nil {
			return err
		}
		if asset == nil {
			return apperr.NotFound("asset", assetID)
		}
		mutate(&asset.Metadata)
		return h.assets.UpdateMetadata(txCtx, asset.ID, asset.Metadata)
	})
	if err != nil {
		getMetrics().assetUpdates.WithLabelValues(string(evt.Type), "error").Inc()
		h.logger.Error("Asset history update failed",
			"handler", handler, "event_id", evt.ID, "asset_id", assetID, "error", err)
		return apperr.Integration(handler, err)
	}

	getMetrics().assetUpdates.WithLabelValues(string(evt.Type), "ok").Inc()
	h.logger.Info("Asset history updated", "handler", handler, "event_id", evt.ID, "asset_id", assetID)
	return nil
}
