package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/oaklinehq/oakline-backend/pkg/enums"
)

// StockReservation tracks one held stock decrement for an order line. The
// decrement itself lives on the product or variant row; this row records
// whether the hold is still reclaimable and when it expires.
type StockReservation struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID               `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID              `gorm:"column:variant_id;type:uuid"`
	Quantity  int                     `gorm:"column:quantity;not null"`
	Status    enums.ReservationStatus `gorm:"column:status;type:reservation_status;not null;default:'reserved'"`
	ExpiresAt time.Time               `gorm:"column:expires_at;not null;index"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
