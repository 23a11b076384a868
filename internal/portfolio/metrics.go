package portfolio

import "math"

// CollateralizationRatio returns collateral over debt in USD terms. Zero debt
// yields +Inf rather than an error; an unencumbered portfolio has unbounded
// collateralization.
func CollateralizationRatio(collateralUSD, debtUSD float64) float64 {
	if debtUSD == 0 {
		return math.Inf(1)
	}
	return collateralUSD / debtUSD
}

// HealthFactor returns the simplified liquidation health metric
// collateral * liquidationThreshold / debt. Zero debt yields +Inf.
func HealthFactor(collateralUSD, liquidationThreshold, debtUSD float64) float64 {
	if debtUSD == 0 {
		return math.Inf(1)
	}
	return collateralUSD * liquidationThreshold / debtUSD
}
