package gateway

import "github.com/shopspring/decimal"

var minorUnitFactor = decimal.NewFromInt(100)

// AmountMinorUnits converts a major-unit decimal amount to the gateway's
// integer minor unit with explicit half-up rounding. Float truncation is not
// acceptable for monetary values.
func AmountMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnitFactor).Round(0).IntPart()
}
