package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/garyjia/hospital-itsm/internal/application/dispatcher"
	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAssetHistory(t *testing.T) (*AssetHistory, port.AssetRepository, *entity.Asset) {
	t.Helper()
	db := openDB(t)
	assets := repository.NewAssetRepository(db, zap.NewNop())

	asset := &entity.Asset{
		Name:     "Ventilator 3",
		AssetTag: "VEN-003",
		Metadata: entity.AssetMetadata{
			HealthStatus: entity.HealthHealthy,
			Extra:        map[string]json.RawMessage{"vendor": json.RawMessage(`"Acme"`)},
		},
	}
	require.NoError(t, assets.Create(context.Background(), asset))
	return NewAssetHistory(assets, db, nopLogger{}), assets, asset
}

func load(t *testing.T, assets port.AssetRepository, id int64) *entity.Asset {
	t.Helper()
	a, err := assets.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

func TestAssetHistory_MaintenanceIsBounded(t *testing.T) {
	h, assets, asset := newAssetHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= 12; i++ {
		require.NoError(t, h.HandleMaintenanceCompleted(ctx, event.New(event.MaintenanceCompleted{
			MaintenanceID: int64(i), AssetID: asset.ID, Title: "Service", Type: "preventive",
			Date: base.AddDate(0, 0, i),
		})))
	}

	got := load(t, assets, asset.ID)
	require.Len(t, got.Metadata.MaintenanceHistory, entity.MaxHistoryEntries)
	assert.Equal(t, int64(3), got.Metadata.MaintenanceHistory[0].EventID)
	assert.Equal(t, entity.MaintenanceUpToDate, got.Metadata.MaintenanceStatus)
	require.NotNil(t, got.Metadata.LastMaintenanceDate)
	assert.True(t, got.Metadata.LastMaintenanceDate.Equal(base.AddDate(0, 0, 12)))
	assert.JSONEq(t, `"Acme"`, string(got.Metadata.Extra["vendor"]), "unknown metadata keys survive")
}

func TestAssetHistory_IncidentReportedAdjustsHealth(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		priority string
		want     string
	}{
		{"critical forces critical", entity.HealthHealthy, entity.PriorityCritical, entity.HealthCritical},
		{"high forces critical", entity.HealthWarning, entity.PriorityHigh, entity.HealthCritical},
		{"medium warns a healthy asset", entity.HealthHealthy, entity.PriorityMedium, entity.HealthWarning},
		{"medium keeps critical", entity.HealthCritical, entity.PriorityMedium, entity.HealthCritical},
		{"low changes nothing", entity.HealthHealthy, entity.PriorityLow, entity.HealthHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, assets, asset := newAssetHistory(t)
			ctx := context.Background()
			md := asset.Metadata
			md.HealthStatus = tt.start
			require.NoError(t, assets.UpdateMetadata(ctx, asset.ID, md))

			require.NoError(t, h.HandleIncidentReported(ctx, event.New(event.IncidentReported{
				IncidentID: 1, AssetID: asset.ID, Title: "Fault", Priority: tt.priority, ReportedAt: time.Now().UTC(),
			})))
			assert.Equal(t, tt.want, load(t, assets, asset.ID).Metadata.HealthStatus)
		})
	}
}

func TestAssetHistory_IncidentResolvedComputesMTBF(t *testing.T) {
	h, assets, asset := newAssetHistory(t)
	ctx := context.Background()
	day := func(n int) time.Time { return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC) }

	resolve := func(id int64, reported, resolved time.Time) {
		require.NoError(t, h.HandleIncidentResolved(ctx, event.New(event.IncidentResolved{
			IncidentID: id, AssetID: asset.ID, Title: "Fault", Priority: entity.PriorityMedium,
			ReportedAt: reported, ResolvedAt: resolved,
		})))
	}

	resolve(1, day(1), day(2))
	resolve(2, day(12), day(13))
	assert.Nil(t, load(t, assets, asset.ID).Metadata.MTBF, "two incidents are not enough")

	resolve(3, day(23), day(24))
	got := load(t, assets, asset.ID)
	require.NotNil(t, got.Metadata.MTBF)
	assert.InDelta(t, 10.0, *got.Metadata.MTBF, 1e-9)
	assert.Equal(t, entity.ReliabilityLow, got.Metadata.Reliability)
	assert.Len(t, got.Metadata.IncidentHistory, 3)
}

func TestAssetHistory_UnknownAssetIsIntegrationFailure(t *testing.T) {
	h, _, _ := newAssetHistory(t)
	err := h.HandleIncidentReported(context.Background(), event.New(event.IncidentReported{
		AssetID: 9999, Priority: entity.PriorityHigh,
	}))
	require.Error(t, err)
	assert.Equal(t, apperr.KindIntegration, apperr.KindOf(err))
}

func TestAssetHistory_Register(t *testing.T) {
	h, _, _ := newAssetHistory(t)
	d := dispatcher.NewDispatcher()
	h.Register(d)

	for _, tt := range []struct {
		eventType event.Type
		name      string
	}{
		{event.TypeMaintenanceCompleted, HandlerAssetMaintenance},
		{event.TypeIncidentReported, HandlerAssetIncidentReported},
		{event.TypeIncidentResolved, HandlerAssetIncidentResolved},
	} {
		handlers := d.ListHandlers(tt.eventType)
		require.Len(t, handlers, 1)
		assert.Equal(t, tt.name, handlers[0].Name)
	}
}
