package engine

import (
	"time"

	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/shopspring/decimal"
)

var (
	bpBase = decimal.NewFromInt(model.BasisPointsBase)
)

// rollWindows advances the gate windows on a profile. The single-window gate
// (zero interval) resets unconditionally on every check. The 15-minute and
// 24-hour gates are fixed-window counters: usage drops to zero only once the
// full interval has elapsed since the last reset, so bursts of up to 2x the
// limit across a window boundary are possible. Caller holds the profile lock.
func rollWindows(p *model.RiskProfile, now time.Time) {
	for g := range p.Gates {
		gs := &p.Gates[g]
		if !gs.IsActive {
			continue
		}
		if gs.ResetInterval == 0 || now.Sub(gs.LastResetTime) >= gs.ResetInterval {
			gs.CurrentUsage = decimal.Zero
			gs.LastResetTime = now
		}
		gs.UtilizationBP = utilizationBP(gs.CurrentUsage, gs.Limit)
	}
}

// exceeds reports whether committing size would push the gate past its limit.
func exceeds(gs *model.GateState, size decimal.Decimal) bool {
	if !gs.IsActive {
		return false
	}
	return gs.CurrentUsage.Add(size).GreaterThan(gs.Limit)
}

// commitUsage consumes capacity from every gate window at once and updates
// exposure. Caller has already verified all gates pass and holds the lock.
func commitUsage(p *model.RiskProfile, size decimal.Decimal) {
	for g := range p.Gates {
		gs := &p.Gates[g]
		if !gs.IsActive {
			continue
		}
		gs.CurrentUsage = gs.CurrentUsage.Add(size)
		gs.UtilizationBP = utilizationBP(gs.CurrentUsage, gs.Limit)
	}
	p.TotalExposure = p.TotalExposure.Add(size)
}

// utilizationBP computes usage * 10000 / limit with floor division.
func utilizationBP(usage, limit decimal.Decimal) int64 {
	if limit.Sign() <= 0 {
		return 0
	}
	return usage.Mul(bpBase).Div(limit).Floor().IntPart()
}

// mulBP rescales an amount by a basis-point factor with floor division,
// matching the original's truncating fixed-point math exactly.
func mulBP(amount decimal.Decimal, factor int64) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(factor)).Div(bpBase).Floor()
}
