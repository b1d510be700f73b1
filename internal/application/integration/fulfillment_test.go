package integration

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/repository"
	"github.com/garyjia/hospital-itsm/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/hospital-itsm/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt *event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) count(t event.Type) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fulfillmentFixture struct {
	db        *sqlite.DB
	requests  port.RequestRepository
	items     port.RequestItemRepository
	stock     port.StockRepository
	catalog   port.CatalogRepository
	published *recordingPublisher
	handler   *Fulfillment
	approver  *entity.User
}

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()
	zl := zap.NewNop()
	sqlDB, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "itsm.db")}, zl)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	_, err = database.NewMigrator(sqlDB, zl).Run(context.Background(), database.Schema())
	require.NoError(t, err)
	return sqlite.NewDB(sqlDB, zl)
}

func newFulfillmentFixture(t *testing.T) *fulfillmentFixture {
	t.Helper()
	zl := zap.NewNop()
	db := openDB(t)

	f := &fulfillmentFixture{
		db:        db,
		requests:  repository.NewRequestRepository(db, zl),
		items:     repository.NewRequestItemRepository(db, zl),
		stock:     repository.NewStockRepository(db, zl),
		catalog:   repository.NewCatalogRepository(db, zl),
		published: &recordingPublisher{},
	}
	f.handler = NewFulfillment(FulfillmentDeps{
		Requests:  f.requests,
		Items:     f.items,
		Catalog:   f.catalog,
		Stock:     f.stock,
		Comments:  repository.NewCommentRepository(db, zl),
		TxManager: db,
		Publisher: f.published,
		Logger:    nopLogger{},
	})

	f.approver = &entity.User{Name: "Manager", Email: "manager@ward.example", Role: "manager", IsActive: true}
	require.NoError(t, repository.NewUserRepository(db, zl).Create(context.Background(), f.approver))
	return f
}

func (f *fulfillmentFixture) catalogItem(t *testing.T, sku string, minStock, reorder int) *entity.CatalogItem {
	t.Helper()
	item := &entity.CatalogItem{Name: sku, SKU: sku, MinStockLevel: minStock, ReorderPoint: reorder}
	require.NoError(t, f.catalog.Create(context.Background(), item))
	return item
}

func (f *fulfillmentFixture) stockAt(t *testing.T, itemID int64, location string, qty int, checked time.Time) *entity.StockRecord {
	t.Helper()
	rec := &entity.StockRecord{CatalogItemID: itemID, Location: location, Quantity: qty, LastCheckedAt: checked}
	require.NoError(t, f.stock.Create(context.Background(), rec))
	return rec
}

type line struct {
	catalogItemID int64
	quantity      int
}

// approvedRequest stores a Completed request with the given items
func (f *fulfillmentFixture) approvedRequest(t *testing.T, lines ...line) *entity.Request {
	t.Helper()
	ctx := context.Background()
	done := time.Now().UTC()
	req := &entity.Request{
		Title: "Ward supplies", Type: "Supplies", Status: entity.RequestStatusCompleted,
		Priority: entity.PriorityMedium, RequesterID: f.approver.ID, SubmitDate: done, CompletedDate: &done,
	}
	require.NoError(t, f.requests.Create(ctx, req))
	for _, l := range lines {
		require.NoError(t, f.items.Create(ctx, &entity.RequestItem{
			RequestID: req.ID, CatalogItemID: l.catalogItemID, Quantity: l.quantity, Status: entity.ItemStatusPending,
		}))
	}
	return req
}

func (f *fulfillmentFixture) approve(req *entity.Request) *event.Event {
	return event.New(event.RequestApproved{RequestID: req.ID, ApproverID: &f.approver.ID})
}

func (f *fulfillmentFixture) quantity(t *testing.T, id int64) int {
	t.Helper()
	rec, err := f.stock.GetByID(context.Background(), id)
	require.NoError(t, err)
	return rec.Quantity
}

func (f *fulfillmentFixture) status(t *testing.T, id int64) string {
	t.Helper()
	req, err := f.requests.GetByID(context.Background(), id)
	require.NoError(t, err)
	return req.Status
}

func TestFulfillment_StockCoversItem(t *testing.T) {
	f := newFulfillmentFixture(t)
	ctx := context.Background()
	item := f.catalogItem(t, "PUMP-01", 2, 4)
	rec := f.stockAt(t, item.ID, "Central", 10, time.Now().UTC())
	req := f.approvedRequest(t, line{item.ID, 5})

	require.NoError(t, f.handler.HandleRequestApproved(ctx, f.approve(req)))

	assert.Equal(t, 5, f.quantity(t, rec.ID))
	assert.Equal(t, entity.RequestStatusFulfilled, f.status(t, req.ID))

	items, err := f.items.GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, entity.ItemStatusFulfilled, items[0].Status)
	assert.True(t, items[0].Fulfilled)
	assert.NotNil(t, items[0].FulfilledAt)

	movements, err := f.stock.ListMovements(ctx, port.MovementFilter{ReferencePrefix: entity.RequestReference(req.ID)})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	m := movements[0]
	assert.Equal(t, entity.MovementTypeIssue, m.Type)
	assert.Equal(t, 10, m.QuantityBefore)
	assert.Equal(t, 5, m.QuantityAfter)
	require.NotNil(t, m.PerformedByID)
	assert.Equal(t, f.approver.ID, *m.PerformedByID)

	assert.Equal(t, 1, f.published.count(event.TypeRequestItemUpdated))
	assert.Equal(t, 1, f.published.count(event.TypeRequestCompleted))
	assert.Zero(t, f.published.count(event.TypeLowStockAlert))
	assert.Zero(t, f.published.count(event.TypeReorderPointReached))
}

func TestFulfillment_InsufficientStockBackorders(t *testing.T) {
	f := newFulfillmentFixture(t)
	ctx := context.Background()
	item := f.catalogItem(t, "PUMP-01", 2, 4)
	rec := f.stockAt(t, item.ID, "Central", 3, time.Now().UTC())
	req := f.approvedRequest(t, line{item.ID, 5})

	require.NoError(t, f.handler.HandleRequestApproved(ctx, f.approve(req)))

	assert.Equal(t, 3, f.quantity(t, rec.ID))
	assert.Equal(t, entity.RequestStatusCompleted, f.status(t, req.ID))

	items, err := f.items.GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ItemStatusBackordered, items[0].Status)
	assert.Equal(t, MessageNotInStock, items[0].Notes)

	require.Equal(t, 1, f.published.count(event.TypeRequestItemUpdated))
	p, err := event.PayloadAs[event.RequestItemUpdated](f.published.events[0])
	require.NoError(t, err)
	assert.Equal(t, MessageNotInStock, p.Message)
	assert.Zero(t, f.published.count(event.TypeLowStockAlert))
	assert.Zero(t, f.published.count(event.TypeReorderPointReached))
	assert.Zero(t, f.published.count(event.TypeRequestCompleted))
}

func TestFulfillment_ThresholdAlerts(t *testing.T) {
	tests := []struct {
		name        string
		stock       int
		want        int
		wantLow     int
		wantReorder int
	}{
		{"above both", 10, 4, 0, 0},
		{"reorder point only", 8, 4, 0, 1},
		{"both thresholds", 6, 4, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFulfillmentFixture(t)
			item := f.catalogItem(t, "SYR-10", 2, 4)
			f.stockAt(t, item.ID, "Central", tt.stock, time.Now().UTC())
			req := f.approvedRequest(t, line{item.ID, tt.want})

			require.NoError(t, f.handler.HandleRequestApproved(context.Background(), f.approve(req)))
			assert.Equal(t, tt.wantLow, f.published.count(event.TypeLowStockAlert))
			assert.Equal(t, tt.wantReorder, f.published.count(event.TypeReorderPointReached))
		})
	}
}

func TestFulfillment_PrefersMostRecentlyCheckedStock(t *testing.T) {
	f := newFulfillmentFixture(t)
	item := f.catalogItem(t, "MASK-N95", 0, 0)
	old := f.stockAt(t, item.ID, "Basement", 50, time.Now().UTC().Add(-48*time.Hour))
	fresh := f.stockAt(t, item.ID, "Ward 4", 20, time.Now().UTC())
	req := f.approvedRequest(t, line{item.ID, 10})

	require.NoError(t, f.handler.HandleRequestApproved(context.Background(), f.approve(req)))
	assert.Equal(t, 50, f.quantity(t, old.ID))
	assert.Equal(t, 10, f.quantity(t, fresh.ID))
}

func TestFulfillment_RedeliveryFinishesBackorderedItems(t *testing.T) {
	f := newFulfillmentFixture(t)
	ctx := context.Background()
	gloves := f.catalogItem(t, "GLV-M", 0, 0)
	gowns := f.catalogItem(t, "GWN-L", 0, 0)
	gloveStock := f.stockAt(t, gloves.ID, "Central", 100, time.Now().UTC())
	req := f.approvedRequest(t, line{gloves.ID, 10}, line{gowns.ID, 5})

	require.NoError(t, f.handler.HandleRequestApproved(ctx, f.approve(req)))
	assert.Equal(t, entity.RequestStatusCompleted, f.status(t, req.ID))
	assert.Equal(t, 90, f.quantity(t, gloveStock.ID))

	gownStock := f.stockAt(t, gowns.ID, "Central", 5, time.Now().UTC())
	require.NoError(t, f.handler.HandleRequestApproved(ctx, f.approve(req)))

	assert.Equal(t, entity.RequestStatusFulfilled, f.status(t, req.ID))
	assert.Equal(t, 90, f.quantity(t, gloveStock.ID), "fulfilled items are not issued twice")
	assert.Equal(t, 0, f.quantity(t, gownStock.ID))

	require.NoError(t, f.handler.HandleRequestApproved(ctx, f.approve(req)))
	assert.Equal(t, 1, f.published.count(event.TypeRequestCompleted))
}

func TestFulfillment_ConcurrentApprovalsNeverDoubleSpend(t *testing.T) {
	f := newFulfillmentFixture(t)
	ctx := context.Background()
	item := f.catalogItem(t, "VENT-01", 0, 0)
	rec := f.stockAt(t, item.ID, "Central", 5, time.Now().UTC())

	const n = 4
	reqs := make([]*entity.Request, n)
	for i := range reqs {
		reqs[i] = f.approvedRequest(t, line{item.ID, 5})
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *entity.Request) {
			defer wg.Done()
			errs[i] = f.handler.HandleRequestApproved(ctx, f.approve(req))
		}(i, req)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 0, f.quantity(t, rec.ID))

	fulfilled, backordered := 0, 0
	for _, req := range reqs {
		items, err := f.items.GetByRequestID(ctx, req.ID)
		require.NoError(t, err)
		switch items[0].Status {
		case entity.ItemStatusFulfilled:
			fulfilled++
		case entity.ItemStatusBackordered:
			backordered++
		}
	}
	assert.Equal(t, 1, fulfilled)
	assert.Equal(t, n-1, backordered)
}

// conflictingStock loses the first decrements to simulate a concurrent writer
type conflictingStock struct {
	port.StockRepository
	conflicts int
	attempts  int
}

func (s *conflictingStock) Decrement(ctx context.Context, id int64, quantity int) (bool, error) {
	s.attempts++
	if s.attempts <= s.conflicts {
		return false, nil
	}
	return s.StockRepository.Decrement(ctx, id, quantity)
}

func TestFulfillment_DecrementConflict(t *testing.T) {
	t.Run("retries after a lost race", func(t *testing.T) {
		f := newFulfillmentFixture(t)
		item := f.catalogItem(t, "PUMP-01", 0, 0)
		rec := f.stockAt(t, item.ID, "Central", 10, time.Now().UTC())
		req := f.approvedRequest(t, line{item.ID, 4})

		stock := &conflictingStock{StockRepository: f.stock, conflicts: 2}
		f.handler.Stock = stock
		require.NoError(t, f.handler.HandleRequestApproved(context.Background(), f.approve(req)))
		assert.Equal(t, 3, stock.attempts)
		assert.Equal(t, 6, f.quantity(t, rec.ID))
	})

	t.Run("gives up and reports an integration failure", func(t *testing.T) {
		f := newFulfillmentFixture(t)
		item := f.catalogItem(t, "PUMP-01", 0, 0)
		rec := f.stockAt(t, item.ID, "Central", 10, time.Now().UTC())
		req := f.approvedRequest(t, line{item.ID, 4})

		f.handler.Stock = &conflictingStock{StockRepository: f.stock, conflicts: 100}
		err := f.handler.HandleRequestApproved(context.Background(), f.approve(req))
		require.Error(t, err)
		assert.Equal(t, apperr.KindIntegration, apperr.KindOf(err))
		assert.Equal(t, 10, f.quantity(t, rec.ID))
		assert.Equal(t, entity.RequestStatusCompleted, f.status(t, req.ID))
	})
}

func TestFulfillment_UnknownRequest(t *testing.T) {
	f := newFulfillmentFixture(t)
	err := f.handler.HandleRequestApproved(context.Background(), event.New(event.RequestApproved{RequestID: 9999}))
	assert.Equal(t, apperr.KindIntegration, apperr.KindOf(err))
}
