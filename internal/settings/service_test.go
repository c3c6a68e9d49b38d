package settings

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oaklinehq/oakline-backend/pkg/config"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
)

type fakeRepo struct {
	values map[string]string
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) GetAll(ctx context.Context) (map[string]string, error) {
	return f.values, nil
}

func (f *fakeRepo) Upsert(ctx context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

func defaultPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		TaxRatePercent:       "5.00",
		FeePercentCard:       "2.36",
		FeePercentNetBanking: "2.36",
		FeePercentWallet:     "2.36",
		FeePercentUPI:        "0.00",
		FeePercentCOD:        "0.00",
		FlatShipping:         "0.00",
		Currency:             "INR",
	}
}

func TestResolveSchedule_Defaults(t *testing.T) {
	svc, err := NewService(&fakeRepo{values: map[string]string{}}, defaultPricingConfig())
	require.NoError(t, err)

	schedule, err := svc.ResolveSchedule(context.Background())
	require.NoError(t, err)
	assert.True(t, schedule.TaxRatePercent.Equal(decimal.RequireFromString("5.00")))
	assert.True(t, schedule.FeeByMethod[enums.PaymentMethodCard].Equal(decimal.RequireFromString("2.36")))
	assert.True(t, schedule.FeeByMethod[enums.PaymentMethodCOD].IsZero())
}

func TestResolveSchedule_StoredOverrides(t *testing.T) {
	repo := &fakeRepo{values: map[string]string{
		KeyTaxRate:         "18.00",
		KeyPlatformFeeCard: "3.00",
		KeyFlatShipping:    "49.00",
	}}
	svc, err := NewService(repo, defaultPricingConfig())
	require.NoError(t, err)

	schedule, err := svc.ResolveSchedule(context.Background())
	require.NoError(t, err)
	assert.True(t, schedule.TaxRatePercent.Equal(decimal.RequireFromString("18.00")))
	assert.True(t, schedule.FeeByMethod[enums.PaymentMethodCard].Equal(decimal.RequireFromString("3.00")))
	assert.True(t, schedule.FlatShipping.Equal(decimal.RequireFromString("49.00")))
}

func TestResolveSchedule_BadStoredValue(t *testing.T) {
	repo := &fakeRepo{values: map[string]string{KeyTaxRate: "lots"}}
	svc, err := NewService(repo, defaultPricingConfig())
	require.NoError(t, err)

	_, err = svc.ResolveSchedule(context.Background())
	require.Error(t, err)
}

func TestNewService_RequiresRepo(t *testing.T) {
	_, err := NewService(nil, defaultPricingConfig())
	require.Error(t, err)
}
