package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
)

// ReceiptReference marks movements created by stock receipts
const ReceiptReference = "RECEIPT"

// CreateCatalogItemInput describes an orderable item
type CreateCatalogItemInput struct {
	Name          string `json:"name" validate:"required"`
	SKU           string `json:"sku" validate:"required"`
	Category      string `json:"category"`
	MinStockLevel int    `json:"minStockLevel" validate:"gte=0"`
	ReorderPoint  int    `json:"reorderPoint" validate:"gte=0"`
}

// ReceiveStockInput is a delivery of quantity units to a location
type ReceiveStockInput struct {
	Location string `json:"location" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

// WarehouseService manages the catalog, stock records and the movement ledger
type WarehouseService interface {
	CreateCatalogItem(ctx context.Context, in CreateCatalogItemInput) (*entity.CatalogItem, error)
	ReceiveStock(ctx context.Context, catalogItemID int64, in ReceiveStockInput, actorID int64) (*entity.StockRecord, error)
	ListStock(ctx context.Context, catalogItemID int64) ([]*entity.StockRecord, error)
	ListMovements(ctx context.Context, catalogItemID int64) ([]*entity.StockMovement, error)
}

type warehouseServiceImpl struct {
	catalogRepo port.CatalogRepository
	stockRepo   port.StockRepository
	txManager   port.TransactionManager
	logger      Logger
	now         Clock
}

// NewWarehouseService creates a new WarehouseService
func NewWarehouseService(
	catalogRepo port.CatalogRepository,
	stockRepo port.StockRepository,
	txManager port.TransactionManager,
	logger Logger,
) WarehouseService {
	return &warehouseServiceImpl{
		catalogRepo: catalogRepo,
		stockRepo:   stockRepo,
		txManager:   txManager,
		logger:      logger,
		now:         utcNow,
	}
}

func (s *warehouseServiceImpl) CreateCatalogItem(ctx context.Context, in CreateCatalogItemInput) (*entity.CatalogItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	item := &entity.CatalogItem{
		Name:          in.Name,
		SKU:           in.SKU,
		Category:      in.Category,
		MinStockLevel: in.MinStockLevel,
		ReorderPoint:  in.ReorderPoint,
	}
	if err := s.catalogRepo.Create(ctx, item); err != nil {
		s.logger.Error("Failed to create catalog item", "sku", in.SKU, "error", err)
		return nil, err
	}
	s.logger.Info("Catalog item created", "id", item.ID, "sku", item.SKU)
	return item, nil
}

// ReceiveStock adds quantity to the (item, location) record, creating it on
// first receipt, and writes a receipt movement
func (s *warehouseServiceImpl) ReceiveStock(ctx context.Context, catalogItemID int64, in ReceiveStockInput, actorID int64) (*entity.StockRecord, error) {
	in.Location = strings.TrimSpace(in.Location)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var rec *entity.StockRecord
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		item, err := s.catalogRepo.GetByID(txCtx, catalogItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("catalog item", catalogItemID)
		}

		ts := s.now()
		rec, err = s.stockRepo.GetByItemAndLocation(txCtx, catalogItemID, in.Location)
		if err != nil {
			return err
		}

		before := 0
		if rec == nil {
			rec = &entity.StockRecord{
				CatalogItemID: catalogItemID,
				Location:      in.Location,
				Quantity:      in.Quantity,
				LastCheckedAt: ts,
			}
			if err := s.stockRepo.Create(txCtx, rec); err != nil {
				return fmt.Errorf("create stock record: %w", err)
			}
		} else {
			before = rec.Quantity
			if err := s.stockRepo.Increment(txCtx, rec.ID, in.Quantity, ts); err != nil {
				return fmt.Errorf("increment stock: %w", err)
			}
			rec.Quantity += in.Quantity
			rec.LastCheckedAt = ts
		}

		var performedBy *int64
		if actorID != 0 {
			performedBy = &actorID
		}
		return s.stockRepo.CreateMovement(txCtx, &entity.StockMovement{
			StockRecordID:  rec.ID,
			CatalogItemID:  catalogItemID,
			Type:           entity.MovementTypeReceipt,
			Quantity:       in.Quantity,
			QuantityBefore: before,
			QuantityAfter:  before + in.Quantity,
			Reference:      ReceiptReference,
			PerformedByID:  performedBy,
			CreatedAt:      ts,
		})
	})
	if err != nil {
		s.logger.Error("Failed to receive stock", "catalog_item_id", catalogItemID, "error", err)
		return nil, err
	}

	s.logger.Info("Stock received", "catalog_item_id", catalogItemID, "location", rec.Location, "quantity", rec.Quantity)
	return rec, nil
}

func (s *warehouseServiceImpl) ListStock(ctx context.Context, catalogItemID int64) ([]*entity.StockRecord, error) {
	if err := s.requireItem(ctx, catalogItemID); err != nil {
		return nil, err
	}
	return s.stockRepo.ListByItem(ctx, catalogItemID)
}

func (s *warehouseServiceImpl) ListMovements(ctx context.Context, catalogItemID int64) ([]*entity.StockMovement, error) {
	if err := s.requireItem(ctx, catalogItemID); err != nil {
		return nil, err
	}
	return s.stockRepo.ListMovements(ctx, port.MovementFilter{CatalogItemID: catalogItemID})
}

func (s *warehouseServiceImpl) requireItem(ctx context.Context, id int64) error {
	item, err := s.catalogRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return apperr.NotFound("catalog item", id)
	}
	return nil
}
