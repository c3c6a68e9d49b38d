package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is a sellable variation of a product. Its stock_quantity is
// mutated only through the inventory ledger.
type ProductVariant struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	SKU           string           `gorm:"column:sku;not null;uniqueIndex"`
	Color         *string          `gorm:"column:color"`
	Size          *string          `gorm:"column:size"`
	Pattern       *string          `gorm:"column:pattern"`
	Price         *decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	StockQuantity int              `gorm:"column:stock_quantity;not null;default:0"`
	IsInStock     bool             `gorm:"column:is_in_stock;not null;default:false"`
	IsActive      bool             `gorm:"column:is_active;not null"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
