package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAssetRepository_MetadataKeepsUnknownKeys(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepository(db, zap.NewNop())
	ctx := context.Background()

	asset := &entity.Asset{
		Name:     "Infusion pump",
		AssetTag: "PUMP-0001",
		Metadata: entity.AssetMetadata{
			Extra: map[string]json.RawMessage{"warrantyExpires": json.RawMessage(`"2027-01-01"`)},
		},
	}
	require.NoError(t, repo.Create(ctx, asset))

	loaded, err := repo.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	loaded.Metadata.RecordMaintenance(entity.MaintenanceEntry{
		EventID: 1, Title: "Calibration", Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Type: "preventive",
	})
	require.NoError(t, repo.UpdateMetadata(ctx, asset.ID, loaded.Metadata))

	reloaded, err := repo.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Metadata.MaintenanceHistory, 1)
	assert.Equal(t, entity.MaintenanceUpToDate, reloaded.Metadata.MaintenanceStatus)
	assert.JSONEq(t, `"2027-01-01"`, string(reloaded.Metadata.Extra["warrantyExpires"]))

	assert.Error(t, repo.UpdateMetadata(ctx, 9999, loaded.Metadata))
}

func TestIncidentRepository_ResolveOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	asset := &entity.Asset{Name: "Monitor", AssetTag: "MON-7"}
	require.NoError(t, NewAssetRepository(db, zap.NewNop()).Create(ctx, asset))

	repo := NewIncidentRepository(db, zap.NewNop())
	inc := &entity.Incident{
		AssetID: asset.ID, Title: "No display", Priority: entity.PriorityHigh,
		Status: entity.IncidentStatusOpen, ReportedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, inc))

	resolvedAt := time.Now().UTC()
	inc.ResolvedAt = &resolvedAt
	inc.RootCause = "loose cable"

	ok, err := repo.Resolve(ctx, inc)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Resolve(ctx, inc)
	require.NoError(t, err)
	assert.False(t, ok)

	loaded, err := repo.GetByID(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.IncidentStatusResolved, loaded.Status)
	assert.Equal(t, "loose cable", loaded.RootCause)
	require.NotNil(t, loaded.ResolvedAt)
}
