package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
	"github.com/oaklinehq/oakline-backend/pkg/pricing"
)

// InvalidCouponDetails names the reason a coupon was rejected.
type InvalidCouponDetails struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Quote is a validated coupon with the discount it yields on a subtotal.
type Quote struct {
	Coupon   models.Coupon
	Discount decimal.Decimal
}

// Service validates coupons and spends them atomically with order creation.
type Service interface {
	// Validate checks the coupon against its window, limits, and the order
	// subtotal without consuming a use.
	Validate(ctx context.Context, code string, userID uuid.UUID, subtotal decimal.Decimal) (*Quote, error)
	// Redeem consumes one use inside the caller's transaction. The conditional
	// usage-count increment makes concurrent redemptions of the last use
	// resolve to exactly one winner.
	Redeem(ctx context.Context, tx *gorm.DB, couponID, userID, orderID uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService validates dependencies and returns a coupon service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("coupon repository is required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func invalidCoupon(code, reason string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidCoupon, "invalid coupon").
		WithDetails(InvalidCouponDetails{Code: code, Reason: reason})
}

func (s *service) Validate(ctx context.Context, code string, userID uuid.UUID, subtotal decimal.Decimal) (*Quote, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, invalidCoupon(code, "coupon code is empty")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, invalidCoupon(code, "coupon does not exist")
	}
	if !coupon.IsActive {
		return nil, invalidCoupon(code, "coupon is inactive")
	}

	now := s.now()
	if now.Before(coupon.ValidFrom) {
		return nil, invalidCoupon(code, "coupon is not yet valid")
	}
	if now.After(coupon.ValidUntil) {
		return nil, invalidCoupon(code, "coupon has expired")
	}
	if subtotal.LessThan(coupon.MinOrderAmount) {
		return nil, invalidCoupon(code, "order does not meet the coupon minimum")
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, invalidCoupon(code, "coupon usage limit reached")
	}
	if coupon.PerUserLimit != nil {
		used, cerr := s.repo.CountRedemptionsForUser(ctx, coupon.ID, userID)
		if cerr != nil {
			return nil, cerr
		}
		if used >= int64(*coupon.PerUserLimit) {
			return nil, invalidCoupon(code, "per-user limit reached")
		}
	}

	discount, err := pricing.ComputeCouponDiscount(subtotal, coupon.DiscountType, coupon.DiscountValue)
	if err != nil {
		return nil, err
	}
	return &Quote{Coupon: *coupon, Discount: discount}, nil
}

func (s *service) Redeem(ctx context.Context, tx *gorm.DB, couponID, userID, orderID uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)
	won, err := repo.IncrementUsage(ctx, couponID)
	if err != nil {
		return err
	}
	if !won {
		return invalidCoupon("", "coupon usage limit reached")
	}
	return repo.CreateRedemption(ctx, &models.CouponRedemption{
		ID:       uuid.New(),
		CouponID: couponID,
		UserID:   userID,
		OrderID:  orderID,
	})
}
