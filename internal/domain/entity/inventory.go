package entity

import (
	"fmt"
	"time"
)

// CatalogItem is an orderable inventory item with its stock thresholds
type CatalogItem struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	SKU           string    `json:"sku"`
	Category      string    `json:"category,omitempty"`
	MinStockLevel int       `json:"min_stock_level"`
	ReorderPoint  int       `json:"reorder_point"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StockRecord is the quantity of a catalog item held at one location
type StockRecord struct {
	ID            int64     `json:"id"`
	CatalogItemID int64     `json:"catalog_item_id"`
	Location      string    `json:"location"`
	Quantity      int       `json:"quantity"`
	LastCheckedAt time.Time `json:"last_checked_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StockMovement is a ledger entry for a change in a stock record's quantity
type StockMovement struct {
	ID             int64     `json:"id"`
	StockRecordID  int64     `json:"stock_record_id"`
	CatalogItemID  int64     `json:"catalog_item_id"`
	Type           string    `json:"type"`
	Quantity       int       `json:"quantity"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
	Reference      string    `json:"reference,omitempty"`
	PerformedByID  *int64    `json:"performed_by_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// RequestReference is the movement reference used for stock issued to a request
func RequestReference(requestID int64) string {
	return fmt.Sprintf("REQ-%d", requestID)
}
