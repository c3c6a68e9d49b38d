package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/oaklinehq/oakline-backend/pkg/config"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
)

// Schedule holds the tax rate and per-method platform fee percentages used to
// price an order. It is resolved once per request and never mutated.
type Schedule struct {
	TaxRatePercent decimal.Decimal
	FeeByMethod    map[enums.PaymentMethod]decimal.Decimal
	FlatShipping   decimal.Decimal
	Currency       string
}

// Totals is the monetary breakdown of an order. All fields are rounded to two
// decimal places half-up; TotalAmount always equals the sum of its parts.
type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	PlatformFee    decimal.Decimal
	ShippingCost   decimal.Decimal
	CouponDiscount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// ScheduleFromConfig parses the configured percentage strings into a Schedule.
func ScheduleFromConfig(cfg config.PricingConfig) (Schedule, error) {
	taxRate, err := decimal.NewFromString(cfg.TaxRatePercent)
	if err != nil {
		return Schedule{}, fmt.Errorf("parsing tax rate %q: %w", cfg.TaxRatePercent, err)
	}
	shipping, err := decimal.NewFromString(cfg.FlatShipping)
	if err != nil {
		return Schedule{}, fmt.Errorf("parsing flat shipping %q: %w", cfg.FlatShipping, err)
	}
	fees := map[enums.PaymentMethod]string{
		enums.PaymentMethodCOD:        cfg.FeePercentCOD,
		enums.PaymentMethodUPI:        cfg.FeePercentUPI,
		enums.PaymentMethodCard:       cfg.FeePercentCard,
		enums.PaymentMethodNetBanking: cfg.FeePercentNetBanking,
		enums.PaymentMethodWallet:     cfg.FeePercentWallet,
	}
	byMethod := make(map[enums.PaymentMethod]decimal.Decimal, len(fees))
	for method, raw := range fees {
		fee, err := decimal.NewFromString(raw)
		if err != nil {
			return Schedule{}, fmt.Errorf("parsing fee for %s %q: %w", method, raw, err)
		}
		byMethod[method] = fee
	}
	return Schedule{
		TaxRatePercent: taxRate,
		FeeByMethod:    byMethod,
		FlatShipping:   shipping,
		Currency:       cfg.Currency,
	}, nil
}

var hundred = decimal.NewFromInt(100)

// ComputeOrderTotals derives the monetary breakdown for a subtotal under the
// given schedule. Pure and deterministic; safe to replay for historical
// orders.
func ComputeOrderTotals(subtotal decimal.Decimal, method enums.PaymentMethod, couponDiscount decimal.Decimal, schedule Schedule) (Totals, error) {
	if !method.IsValid() {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
	}
	if subtotal.IsNegative() {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "subtotal cannot be negative")
	}
	if couponDiscount.IsNegative() {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "coupon discount cannot be negative")
	}
	feePercent, ok := schedule.FeeByMethod[method]
	if !ok {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no fee configured for payment method %q", method))
	}

	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(schedule.TaxRatePercent).Div(hundred).Round(2)
	fee := subtotal.Mul(feePercent).Div(hundred).Round(2)
	shipping := schedule.FlatShipping.Round(2)
	discount := couponDiscount.Round(2)
	total := subtotal.Add(tax).Add(fee).Add(shipping).Sub(discount)

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		PlatformFee:    fee,
		ShippingCost:   shipping,
		CouponDiscount: discount,
		TotalAmount:    total,
	}, nil
}

// ComputeCouponDiscount returns the rounded discount a coupon yields on a
// subtotal. The discount is capped at the subtotal so totals stay
// non-negative.
func ComputeCouponDiscount(subtotal decimal.Decimal, discountType enums.DiscountType, discountValue decimal.Decimal) (decimal.Decimal, error) {
	if !discountType.IsValid() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown discount type %q", discountType))
	}
	if discountValue.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "discount value cannot be negative")
	}
	var discount decimal.Decimal
	switch discountType {
	case enums.DiscountTypePercentage:
		discount = subtotal.Mul(discountValue).Div(hundred).Round(2)
	case enums.DiscountTypeFixed:
		discount = discountValue.Round(2)
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, nil
}
