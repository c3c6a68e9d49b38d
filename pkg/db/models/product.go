package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a catalog listing. Products without variants carry their
// own stock counter with the same reserve/release semantics as variants.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU           string           `gorm:"column:sku;not null;uniqueIndex"`
	Name          string           `gorm:"column:name;not null"`
	Description   *string          `gorm:"column:description"`
	Category      string           `gorm:"column:category;not null"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	CompareAt     *decimal.Decimal `gorm:"column:compare_at_price;type:numeric(12,2)"`
	StockQuantity int              `gorm:"column:stock_quantity;not null;default:0"`
	IsInStock     bool             `gorm:"column:is_in_stock;not null;default:false"`
	IsActive      bool             `gorm:"column:is_active;not null"`
	IsFeatured    bool             `gorm:"column:is_featured;not null;default:false"`
	Variants      []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// HasVariants reports whether stock and pricing resolve at the variant level.
func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}
