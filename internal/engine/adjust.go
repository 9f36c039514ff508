package engine

import (
	"time"

	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/GoPolymarket/riskgate/internal/pkg/metrics"
)

// Tiered adjustment factors in basis points; 10000 = no change. These are
// discrete step functions of the input signals, not continuous curves.

func volatilityFactor(score int64) int64 {
	switch {
	case score > 8000:
		return 7000
	case score > 6000:
		return 8500
	case score > 4000:
		return 9500
	default:
		return 10000
	}
}

func liquidityFactor(score int64) int64 {
	switch {
	case score < 2000:
		return 7000
	case score < 4000:
		return 8500
	case score < 6000:
		return 9500
	default:
		return 10000
	}
}

func userRiskFactor(level model.RiskLevel) int64 {
	switch level {
	case model.LevelCritical:
		return 6000
	case model.LevelHigh:
		return 8000
	case model.LevelMedium:
		return 9000
	default:
		return 10000
	}
}

// combinedFactor averages the three tier factors with integer division.
func combinedFactor(volatility, liquidity int64, level model.RiskLevel) int64 {
	return (volatilityFactor(volatility) + liquidityFactor(liquidity) + userRiskFactor(level)) / 3
}

// applyAdjustment rescales all three gate limits by the combined factor.
// The factor is only applied when it moved at least `hysteresis` basis
// points from the profile's current factor, so marginal signal noise does
// not thrash the limits. Rescaling multiplies the CURRENT limit, not a
// stored base, so repeated adjustments compound over time. That compounding
// is inherited behaviour and is deliberately left in place.
// Caller holds the profile lock. Returns whether an adjustment was applied.
func applyAdjustment(p *model.RiskProfile, combined, hysteresis int64, now time.Time) bool {
	if !p.DynamicLimitsEnabled {
		return false
	}
	diff := combined - p.AdjustmentFactorBP
	if diff < 0 {
		diff = -diff
	}
	if diff < hysteresis {
		return false
	}

	for g := range p.Gates {
		gs := &p.Gates[g]
		gs.Limit = mulBP(gs.Limit, combined)
		gs.UtilizationBP = utilizationBP(gs.CurrentUsage, gs.Limit)
	}
	p.AdjustmentFactorBP = combined
	p.LastAdjustmentTime = now
	metrics.AdjustmentsTotal.Inc()
	return true
}
