package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/oaklinehq/oakline-backend/pkg/enums"
)

// OrderStatusHistory is the append-only audit log of status transitions.
// Rows are never edited or deleted.
type OrderStatusHistory struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Status        enums.OrderStatus   `gorm:"column:status;type:order_status;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null"`
	Note          string              `gorm:"column:note;not null"`
	ActorID       *uuid.UUID          `gorm:"column:actor_id;type:uuid"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the singular table name the schema uses instead of the
// pluralized default.
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
