package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oaklinehq/oakline-backend/internal/addresses"
	"github.com/oaklinehq/oakline-backend/internal/cart"
	"github.com/oaklinehq/oakline-backend/internal/catalog"
	"github.com/oaklinehq/oakline-backend/internal/coupons"
	"github.com/oaklinehq/oakline-backend/internal/inventory"
	"github.com/oaklinehq/oakline-backend/internal/orders"
	"github.com/oaklinehq/oakline-backend/internal/settings"
	"github.com/oaklinehq/oakline-backend/pkg/config"
	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
	"github.com/oaklinehq/oakline-backend/pkg/gateway"
	"github.com/oaklinehq/oakline-backend/pkg/logger"
	"github.com/oaklinehq/oakline-backend/pkg/outbox"
	"github.com/oaklinehq/oakline-backend/pkg/pricing"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency, receiptRef string, metadata map[string]string) (*gateway.Intent, error)
	VerifyPayment(intentID, paymentID, signature string) (enums.PaymentStatus, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Input starts a checkout for a user's cart.
type Input struct {
	UserID        uuid.UUID
	AddressID     uuid.UUID
	CouponCode    *string
	PaymentMethod enums.PaymentMethod
}

// CompleteInput carries the gateway artifacts returned by the client after an
// out-of-band payment.
type CompleteInput struct {
	UserID           uuid.UUID
	OrderID          uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
}

// Result is the checkout outcome. GatewayIntent is set only for gateway
// payment methods; the client completes payment against it out-of-band.
type Result struct {
	Order         *models.Order
	Totals        pricing.Totals
	GatewayIntent *gateway.Intent
}

// Service drives the cart to order to payment pipeline. Within one checkout,
// reservation happens strictly before order persistence, and persistence
// strictly before the intent is returned.
type Service interface {
	Execute(ctx context.Context, input Input) (*Result, error)
	CompletePayment(ctx context.Context, input CompleteInput) (*models.Order, error)
}

type service struct {
	cartRepo    cart.Repository
	catalogRepo catalog.Repository
	addresses   addresses.Service
	coupons     coupons.Service
	settings    settings.Service
	ledger      inventory.Ledger
	ordersRepo  orders.Repository
	gateway     paymentGateway
	outbox      outboxEmitter
	idem        idempotencyStore
	tx          txRunner
	cfg         config.CheckoutConfig
	logg        *logger.Logger
}

// Deps bundles the collaborators the checkout orchestrator needs.
type Deps struct {
	CartRepo    cart.Repository
	CatalogRepo catalog.Repository
	Addresses   addresses.Service
	Coupons     coupons.Service
	Settings    settings.Service
	Ledger      inventory.Ledger
	OrdersRepo  orders.Repository
	Gateway     paymentGateway
	Outbox      outboxEmitter
	Idempotency idempotencyStore
	Tx          txRunner
	Config      config.CheckoutConfig
	Logger      *logger.Logger
}

// NewService validates dependencies and returns the checkout orchestrator.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.CartRepo == nil:
		return nil, errors.New("cart repository is required")
	case deps.CatalogRepo == nil:
		return nil, errors.New("catalog repository is required")
	case deps.Addresses == nil:
		return nil, errors.New("address service is required")
	case deps.Coupons == nil:
		return nil, errors.New("coupon service is required")
	case deps.Settings == nil:
		return nil, errors.New("settings service is required")
	case deps.Ledger == nil:
		return nil, errors.New("inventory ledger is required")
	case deps.OrdersRepo == nil:
		return nil, errors.New("orders repository is required")
	case deps.Gateway == nil:
		return nil, errors.New("payment gateway is required")
	case deps.Outbox == nil:
		return nil, errors.New("outbox emitter is required")
	case deps.Idempotency == nil:
		return nil, errors.New("idempotency store is required")
	case deps.Tx == nil:
		return nil, errors.New("transaction runner is required")
	}
	return &service{
		cartRepo:    deps.CartRepo,
		catalogRepo: deps.CatalogRepo,
		addresses:   deps.Addresses,
		coupons:     deps.Coupons,
		settings:    deps.Settings,
		ledger:      deps.Ledger,
		ordersRepo:  deps.OrdersRepo,
		gateway:     deps.Gateway,
		outbox:      deps.Outbox,
		idem:        deps.Idempotency,
		tx:          deps.Tx,
		cfg:         deps.Config,
		logg:        deps.Logger,
	}, nil
}

type resolvedLine struct {
	item      models.CartItem
	product   models.Product
	variant   *models.ProductVariant
	unitPrice decimal.Decimal
}

// CheckoutRejectedDetails names the precondition that stopped a checkout so
// clients can react without parsing the message.
type CheckoutRejectedDetails struct {
	Reason string `json:"reason"`
}

// OrderCreatedEvent is emitted when checkout persists a new order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   uuid.UUID `json:"order_number"`
	UserID        uuid.UUID `json:"user_id"`
	TotalAmount   string    `json:"total_amount"`
	PaymentMethod string    `json:"payment_method"`
}

func (s *service) Execute(ctx context.Context, input Input) (*Result, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	userCart, err := s.cartRepo.FindByUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if userCart == nil || len(userCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
			WithDetails(CheckoutRejectedDetails{Reason: "empty_cart"})
	}

	address, err := s.addresses.Get(ctx, input.AddressID, input.UserID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "address does not belong to user").
				WithDetails(CheckoutRejectedDetails{Reason: "address_not_owned"})
		}
		return nil, err
	}

	lines, subtotal, err := s.resolveLines(ctx, userCart.Items)
	if err != nil {
		return nil, err
	}

	var quote *coupons.Quote
	if input.CouponCode != nil && *input.CouponCode != "" {
		quote, err = s.coupons.Validate(ctx, *input.CouponCode, input.UserID, subtotal)
		if err != nil {
			return nil, err
		}
	}
	couponDiscount := decimal.Zero
	if quote != nil {
		couponDiscount = quote.Discount
	}

	schedule, err := s.settings.ResolveSchedule(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := pricing.ComputeOrderTotals(subtotal, input.PaymentMethod, couponDiscount, schedule)
	if err != nil {
		return nil, err
	}

	order := buildOrder(input, address, quote, totals)
	expiresAt := time.Now().Add(s.cfg.ReservationTTL)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reserveLines := make([]inventory.Line, 0, len(lines))
		for _, line := range lines {
			reserveLines = append(reserveLines, inventory.Line{
				ProductID: line.item.ProductID,
				VariantID: line.item.VariantID,
				Quantity:  line.item.Quantity,
			})
		}
		if err := s.ledger.Reserve(ctx, tx, order.ID, reserveLines, expiresAt); err != nil {
			return err
		}

		repo := s.ordersRepo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return err
		}
		if err := repo.CreateItems(ctx, buildOrderItems(order.ID, lines)); err != nil {
			return err
		}
		if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
			ID:            uuid.New(),
			OrderID:       order.ID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Note:          "Order created",
			ActorID:       &input.UserID,
		}); err != nil {
			return err
		}

		if quote != nil {
			if err := s.coupons.Redeem(ctx, tx, quote.Coupon.ID, input.UserID, order.ID); err != nil {
				return err
			}
		}

		// cash on delivery settles offline: the hold is final at creation,
		// so the sweep never reclaims it
		if !input.PaymentMethod.RequiresGateway() {
			if err := s.ledger.Commit(ctx, tx, order.ID); err != nil {
				return err
			}
			if err := s.cartRepo.WithTx(tx).ClearItems(ctx, userCart.ID); err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID},
			Data: OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				TotalAmount:   totals.TotalAmount.StringFixed(2),
				PaymentMethod: input.PaymentMethod.String(),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Order: order, Totals: totals}
	if !input.PaymentMethod.RequiresGateway() {
		return result, nil
	}

	// the order and its reservations are already durable; a gateway outage
	// here leaves them held for a retry until the expiry sweep reclaims them
	intent, err := s.gateway.CreateIntent(ctx, totals.TotalAmount, schedule.Currency, order.OrderNumber.String(), map[string]string{
		"order_id": order.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	order.GatewayOrderID = &intent.ID
	if err := s.ordersRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	result.GatewayIntent = intent
	return result, nil
}

func (s *service) resolveLines(ctx context.Context, items []models.CartItem) ([]resolvedLine, decimal.Decimal, error) {
	lines := make([]resolvedLine, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		product, err := s.catalogRepo.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if !product.IsActive {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s is no longer available", product.Name))
		}
		line := resolvedLine{item: item, product: *product, unitPrice: product.Price}
		if item.VariantID != nil {
			variant, verr := s.catalogRepo.GetVariant(ctx, *item.VariantID)
			if verr != nil {
				return nil, decimal.Zero, verr
			}
			line.variant = variant
			if variant.Price != nil {
				line.unitPrice = *variant.Price
			}
		}
		subtotal = subtotal.Add(line.unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		lines = append(lines, line)
	}
	return lines, subtotal.Round(2), nil
}

func buildOrder(input Input, address *models.Address, quote *coupons.Quote, totals pricing.Totals) *models.Order {
	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    uuid.New(),
		UserID:         input.UserID,
		AddressID:      address.ID,
		ShipFullName:   address.FullName,
		ShipPhone:      address.Phone,
		ShipStreet:     address.Street,
		ShipCity:       address.City,
		ShipState:      address.State,
		ShipPostalCode: address.PostalCode,
		ShipCountry:    address.Country,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		PlatformFee:    totals.PlatformFee,
		ShippingCost:   totals.ShippingCost,
		CouponDiscount: totals.CouponDiscount,
		TotalAmount:    totals.TotalAmount,
		Status:         enums.OrderStatusPending,
		PaymentStatus:  enums.PaymentStatusPending,
		PaymentMethod:  input.PaymentMethod,
	}
	if quote != nil {
		code := quote.Coupon.Code
		order.CouponCode = &code
	}
	return order
}

func buildOrderItems(orderID uuid.UUID, lines []resolvedLine) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := models.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   line.item.ProductID,
			VariantID:   line.item.VariantID,
			ProductName: line.product.Name,
			Quantity:    line.item.Quantity,
			UnitPrice:   line.unitPrice,
			LineTotal:   line.unitPrice.Mul(decimal.NewFromInt(int64(line.item.Quantity))).Round(2),
		}
		if line.variant != nil {
			item.VariantColor = line.variant.Color
			item.VariantSize = line.variant.Size
			item.VariantPattern = line.variant.Pattern
		}
		items = append(items, item)
	}
	return items
}
