package settings

import (
	"context"
	"errors"

	"github.com/oaklinehq/oakline-backend/pkg/config"
	"github.com/oaklinehq/oakline-backend/pkg/pricing"
)

// Keys stored in global_settings. Values override the configured defaults.
const (
	KeyTaxRate            = "tax_rate"
	KeyPlatformFeeCard    = "platform_fee_card"
	KeyPlatformFeeNetBank = "platform_fee_net_banking"
	KeyPlatformFeeWallet  = "platform_fee_wallet"
	KeyPlatformFeeUPI     = "platform_fee_upi"
	KeyPlatformFeeCOD     = "platform_fee_cod"
	KeyFlatShipping       = "flat_shipping"
)

// Service resolves the pricing schedule for a request: global_settings rows
// override the configured defaults, and the result is parsed once.
type Service interface {
	ResolveSchedule(ctx context.Context) (pricing.Schedule, error)
}

type service struct {
	repo Repository
	cfg  config.PricingConfig
}

// NewService validates dependencies and returns a settings service.
func NewService(repo Repository, cfg config.PricingConfig) (Service, error) {
	if repo == nil {
		return nil, errors.New("settings repository is required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) ResolveSchedule(ctx context.Context) (pricing.Schedule, error) {
	stored, err := s.repo.GetAll(ctx)
	if err != nil {
		return pricing.Schedule{}, err
	}

	cfg := s.cfg
	if v, ok := stored[KeyTaxRate]; ok {
		cfg.TaxRatePercent = v
	}
	if v, ok := stored[KeyPlatformFeeCard]; ok {
		cfg.FeePercentCard = v
	}
	if v, ok := stored[KeyPlatformFeeNetBank]; ok {
		cfg.FeePercentNetBanking = v
	}
	if v, ok := stored[KeyPlatformFeeWallet]; ok {
		cfg.FeePercentWallet = v
	}
	if v, ok := stored[KeyPlatformFeeUPI]; ok {
		cfg.FeePercentUPI = v
	}
	if v, ok := stored[KeyPlatformFeeCOD]; ok {
		cfg.FeePercentCOD = v
	}
	if v, ok := stored[KeyFlatShipping]; ok {
		cfg.FlatShipping = v
	}

	return pricing.ScheduleFromConfig(cfg)
}
