package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oaklinehq/oakline-backend/pkg/config"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
)

func testSchedule() Schedule {
	return Schedule{
		TaxRatePercent: decimal.RequireFromString("5.00"),
		FeeByMethod: map[enums.PaymentMethod]decimal.Decimal{
			enums.PaymentMethodCOD:        decimal.Zero,
			enums.PaymentMethodUPI:        decimal.Zero,
			enums.PaymentMethodCard:       decimal.RequireFromString("2.36"),
			enums.PaymentMethodNetBanking: decimal.RequireFromString("2.36"),
			enums.PaymentMethodWallet:     decimal.RequireFromString("2.36"),
		},
		FlatShipping: decimal.Zero,
		Currency:     "INR",
	}
}

func TestComputeOrderTotals_CardExample(t *testing.T) {
	totals, err := ComputeOrderTotals(decimal.RequireFromString("2000.00"), enums.PaymentMethodCard, decimal.Zero, testSchedule())
	require.NoError(t, err)

	assert.True(t, totals.TaxAmount.Equal(decimal.RequireFromString("100.00")), "tax: %s", totals.TaxAmount)
	assert.True(t, totals.PlatformFee.Equal(decimal.RequireFromString("47.20")), "fee: %s", totals.PlatformFee)
	assert.True(t, totals.TotalAmount.Equal(decimal.RequireFromString("2147.20")), "total: %s", totals.TotalAmount)
}

func TestComputeOrderTotals_CODHasNoFee(t *testing.T) {
	totals, err := ComputeOrderTotals(decimal.RequireFromString("999.99"), enums.PaymentMethodCOD, decimal.Zero, testSchedule())
	require.NoError(t, err)

	assert.True(t, totals.PlatformFee.IsZero())
	assert.True(t, totals.TaxAmount.Equal(decimal.RequireFromString("50.00")), "tax: %s", totals.TaxAmount)
}

func TestComputeOrderTotals_TotalInvariant(t *testing.T) {
	schedule := testSchedule()
	schedule.FlatShipping = decimal.RequireFromString("49.00")

	subtotals := []string{"0.01", "1.00", "333.33", "2000.00", "105678.45"}
	discounts := []string{"0.00", "10.00", "0.01"}

	for _, rawSubtotal := range subtotals {
		for _, rawDiscount := range discounts {
			subtotal := decimal.RequireFromString(rawSubtotal)
			discount := decimal.RequireFromString(rawDiscount)
			totals, err := ComputeOrderTotals(subtotal, enums.PaymentMethodWallet, discount, schedule)
			require.NoError(t, err)

			sum := totals.Subtotal.
				Add(totals.TaxAmount).
				Add(totals.PlatformFee).
				Add(totals.ShippingCost).
				Sub(totals.CouponDiscount)
			assert.True(t, totals.TotalAmount.Equal(sum), "subtotal=%s discount=%s", rawSubtotal, rawDiscount)
		}
	}
}

func TestComputeOrderTotals_HalfUpRounding(t *testing.T) {
	// 100.10 * 5% = 5.005 rounds up to 5.01
	totals, err := ComputeOrderTotals(decimal.RequireFromString("100.10"), enums.PaymentMethodUPI, decimal.Zero, testSchedule())
	require.NoError(t, err)
	assert.True(t, totals.TaxAmount.Equal(decimal.RequireFromString("5.01")), "tax: %s", totals.TaxAmount)
}

func TestComputeOrderTotals_Validation(t *testing.T) {
	schedule := testSchedule()

	_, err := ComputeOrderTotals(decimal.RequireFromString("-1.00"), enums.PaymentMethodCard, decimal.Zero, schedule)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = ComputeOrderTotals(decimal.NewFromInt(10), enums.PaymentMethod("bitcoin"), decimal.Zero, schedule)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestComputeCouponDiscount(t *testing.T) {
	subtotal := decimal.RequireFromString("500.00")

	discount, err := ComputeCouponDiscount(subtotal, enums.DiscountTypePercentage, decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	assert.True(t, discount.Equal(decimal.RequireFromString("50.00")), "discount: %s", discount)

	discount, err = ComputeCouponDiscount(subtotal, enums.DiscountTypeFixed, decimal.RequireFromString("100.00"))
	require.NoError(t, err)
	assert.True(t, discount.Equal(decimal.RequireFromString("100.00")))

	// fixed discount larger than the subtotal is capped
	discount, err = ComputeCouponDiscount(subtotal, enums.DiscountTypeFixed, decimal.RequireFromString("900.00"))
	require.NoError(t, err)
	assert.True(t, discount.Equal(subtotal))
}

func TestScheduleFromConfig(t *testing.T) {
	cfg := config.PricingConfig{
		TaxRatePercent:       "5.00",
		FeePercentCard:       "2.36",
		FeePercentNetBanking: "2.36",
		FeePercentWallet:     "2.36",
		FeePercentUPI:        "0.00",
		FeePercentCOD:        "0.00",
		FlatShipping:         "0.00",
		Currency:             "INR",
	}
	schedule, err := ScheduleFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "INR", schedule.Currency)
	assert.True(t, schedule.FeeByMethod[enums.PaymentMethodCard].Equal(decimal.RequireFromString("2.36")))

	cfg.TaxRatePercent = "five"
	_, err = ScheduleFromConfig(cfg)
	require.Error(t, err)
}
