package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem holds one (product, variant?) line with a positive quantity.
// Uniqueness per cart is enforced on (cart_id, product_id, variant_id).
type CartItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID  `gorm:"column:cart_id;type:uuid;not null;index:ux_cart_items_line,unique"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index:ux_cart_items_line,unique"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid;index:ux_cart_items_line,unique"`
	Quantity  int        `gorm:"column:quantity;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
