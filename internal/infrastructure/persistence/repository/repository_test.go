package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/hospital-itsm/pkg/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestDB opens a migrated database file under t.TempDir
func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	logger := zap.NewNop()

	sqlDB, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "itsm.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	_, err = database.NewMigrator(sqlDB, logger).Run(context.Background(), database.Schema())
	require.NoError(t, err)

	return sqlite.NewDB(sqlDB, logger)
}

func createUser(t *testing.T, db *sqlite.DB, email, role string) *entity.User {
	t.Helper()
	u := &entity.User{Name: email, Email: email, Role: role, IsActive: true}
	require.NoError(t, NewUserRepository(db, zap.NewNop()).Create(context.Background(), u))
	return u
}

func createRequest(t *testing.T, db *sqlite.DB, requesterID int64) *entity.Request {
	t.Helper()
	req := &entity.Request{
		Title:       "New laptop",
		Type:        "hardware",
		Status:      entity.RequestStatusNew,
		Priority:    entity.PriorityMedium,
		RequesterID: requesterID,
		SubmitDate:  time.Now().UTC(),
	}
	require.NoError(t, NewRequestRepository(db, zap.NewNop()).Create(context.Background(), req))
	return req
}

func createCatalogItem(t *testing.T, db *sqlite.DB, sku string) *entity.CatalogItem {
	t.Helper()
	item := &entity.CatalogItem{Name: sku, SKU: sku, MinStockLevel: 2, ReorderPoint: 5}
	require.NoError(t, NewCatalogRepository(db, zap.NewNop()).Create(context.Background(), item))
	return item
}
