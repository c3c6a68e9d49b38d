package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oaklinehq/oakline-backend/pkg/enums"
)

// Order is the immutable-after-creation purchase record. Monetary fields are
// computed once at creation; status fields move only through the defined
// transitions, each appending an OrderStatusHistory row in the same
// transaction.
type Order struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      uuid.UUID            `gorm:"column:order_number;type:uuid;not null;uniqueIndex"`
	UserID           uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	AddressID        uuid.UUID            `gorm:"column:address_id;type:uuid;not null"`
	ShipFullName     string               `gorm:"column:ship_full_name;not null"`
	ShipPhone        string               `gorm:"column:ship_phone;not null"`
	ShipStreet       string               `gorm:"column:ship_street;not null"`
	ShipCity         string               `gorm:"column:ship_city;not null"`
	ShipState        string               `gorm:"column:ship_state;not null"`
	ShipPostalCode   string               `gorm:"column:ship_postal_code;not null"`
	ShipCountry      string               `gorm:"column:ship_country;not null"`
	Subtotal         decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxAmount        decimal.Decimal      `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	PlatformFee      decimal.Decimal      `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	ShippingCost     decimal.Decimal      `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	CouponDiscount   decimal.Decimal      `gorm:"column:coupon_discount;type:numeric(12,2);not null"`
	TotalAmount      decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null"`
	CouponCode       *string              `gorm:"column:coupon_code"`
	Status           enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus    enums.PaymentStatus  `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentMethod    enums.PaymentMethod  `gorm:"column:payment_method;type:payment_method;not null"`
	GatewayOrderID   *string              `gorm:"column:gateway_order_id"`
	GatewayPaymentID *string              `gorm:"column:gateway_payment_id"`
	GatewaySignature *string              `gorm:"column:gateway_signature"`
	TrackingNumber   *string              `gorm:"column:tracking_number"`
	Courier          *string              `gorm:"column:courier"`
	Items            []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History          []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	DeliveredAt      *time.Time           `gorm:"column:delivered_at"`
	CancelledAt      *time.Time           `gorm:"column:cancelled_at"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
