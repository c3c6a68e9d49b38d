package coupons

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
)

const couponSchema = `
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_type TEXT NOT NULL,
  discount_value NUMERIC NOT NULL,
  min_order_amount NUMERIC NOT NULL DEFAULT 0,
  valid_from DATETIME NOT NULL,
  valid_until DATETIME NOT NULL,
  usage_limit INTEGER,
  used_count INTEGER NOT NULL DEFAULT 0,
  per_user_limit INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS coupon_redemptions (
  id TEXT PRIMARY KEY,
  coupon_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  created_at DATETIME
);`

func newCouponTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:coupons_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(couponSchema).Error)
	return db
}

func seedCoupon(t *testing.T, db *gorm.DB, mutate func(*models.Coupon)) models.Coupon {
	t.Helper()
	coupon := models.Coupon{
		ID:             uuid.New(),
		Code:           "WELCOME10",
		DiscountType:   enums.DiscountTypePercentage,
		DiscountValue:  decimal.RequireFromString("10.00"),
		MinOrderAmount: decimal.RequireFromString("500.00"),
		ValidFrom:      time.Now().Add(-time.Hour),
		ValidUntil:     time.Now().Add(time.Hour),
		IsActive:       true,
	}
	if mutate != nil {
		mutate(&coupon)
	}
	require.NoError(t, db.Create(&coupon).Error)
	return coupon
}

func newCouponService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func assertInvalidReason(t *testing.T, err error, wantReason string) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInvalidCoupon, typed.Code())
	details, ok := typed.Details().(InvalidCouponDetails)
	require.True(t, ok)
	assert.Equal(t, wantReason, details.Reason)
}

func TestValidate_Success(t *testing.T) {
	db := newCouponTestDB(t)
	seedCoupon(t, db, nil)
	svc := newCouponService(t, db)

	quote, err := svc.Validate(context.Background(), "welcome10", uuid.New(), decimal.RequireFromString("2000.00"))
	require.NoError(t, err)
	assert.True(t, quote.Discount.Equal(decimal.RequireFromString("200.00")), "discount: %s", quote.Discount)
}

func TestValidate_Rejections(t *testing.T) {
	db := newCouponTestDB(t)
	svc := newCouponService(t, db)
	userID := uuid.New()
	subtotal := decimal.RequireFromString("2000.00")
	ctx := context.Background()

	_, err := svc.Validate(ctx, "NOPE", userID, subtotal)
	assertInvalidReason(t, err, "coupon does not exist")

	seedCoupon(t, db, func(c *models.Coupon) { c.Code = "INACTIVE"; c.IsActive = false })
	_, err = svc.Validate(ctx, "INACTIVE", userID, subtotal)
	assertInvalidReason(t, err, "coupon is inactive")

	seedCoupon(t, db, func(c *models.Coupon) { c.Code = "EXPIRED"; c.ValidUntil = time.Now().Add(-time.Minute) })
	_, err = svc.Validate(ctx, "EXPIRED", userID, subtotal)
	assertInvalidReason(t, err, "coupon has expired")

	seedCoupon(t, db, func(c *models.Coupon) { c.Code = "FUTURE"; c.ValidFrom = time.Now().Add(time.Hour) })
	_, err = svc.Validate(ctx, "FUTURE", userID, subtotal)
	assertInvalidReason(t, err, "coupon is not yet valid")

	seedCoupon(t, db, func(c *models.Coupon) { c.Code = "BIGMIN"; c.MinOrderAmount = decimal.RequireFromString("5000.00") })
	_, err = svc.Validate(ctx, "BIGMIN", userID, subtotal)
	assertInvalidReason(t, err, "order does not meet the coupon minimum")

	limit := 1
	seedCoupon(t, db, func(c *models.Coupon) { c.Code = "SPENT"; c.UsageLimit = &limit; c.UsedCount = 1 })
	_, err = svc.Validate(ctx, "SPENT", userID, subtotal)
	assertInvalidReason(t, err, "coupon usage limit reached")
}

func TestValidate_PerUserLimit(t *testing.T) {
	db := newCouponTestDB(t)
	perUser := 1
	coupon := seedCoupon(t, db, func(c *models.Coupon) { c.PerUserLimit = &perUser })
	svc := newCouponService(t, db)
	userID := uuid.New()

	require.NoError(t, db.Create(&models.CouponRedemption{
		ID: uuid.New(), CouponID: coupon.ID, UserID: userID, OrderID: uuid.New(),
	}).Error)

	_, err := svc.Validate(context.Background(), "WELCOME10", userID, decimal.RequireFromString("2000.00"))
	assertInvalidReason(t, err, "per-user limit reached")

	// other users are unaffected
	_, err = svc.Validate(context.Background(), "WELCOME10", uuid.New(), decimal.RequireFromString("2000.00"))
	require.NoError(t, err)
}

func TestRedeem_LastUseHasOneWinner(t *testing.T) {
	db := newCouponTestDB(t)
	limit := 1
	coupon := seedCoupon(t, db, func(c *models.Coupon) { c.UsageLimit = &limit })
	svc := newCouponService(t, db)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Redeem(ctx, tx, coupon.ID, uuid.New(), uuid.New())
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.Redeem(ctx, tx, coupon.ID, uuid.New(), uuid.New())
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInvalidCoupon, pkgerrors.As(err).Code())

	var stored models.Coupon
	require.NoError(t, db.First(&stored, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, stored.UsedCount)

	var redemptions int64
	require.NoError(t, db.Model(&models.CouponRedemption{}).Where("coupon_id = ?", coupon.ID).Count(&redemptions).Error)
	assert.Equal(t, int64(1), redemptions)
}
