package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/oaklinehq/oakline-backend/pkg/enums"
)

// Address is a user-owned shipping or billing record. Deletion is rejected
// while any order references it.
type Address struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	FullName   string            `gorm:"column:full_name;not null"`
	Phone      string            `gorm:"column:phone;not null"`
	Street     string            `gorm:"column:street;not null"`
	City       string            `gorm:"column:city;not null"`
	State      string            `gorm:"column:state;not null"`
	PostalCode string            `gorm:"column:postal_code;not null"`
	Country    string            `gorm:"column:country;not null;default:'IN'"`
	Type       enums.AddressType `gorm:"column:type;type:address_type;not null;default:'shipping'"`
	IsDefault  bool              `gorm:"column:is_default;not null;default:false"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
