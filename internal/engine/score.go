package engine

import (
	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/shopspring/decimal"
)

var dThousand = decimal.NewFromInt(1000)

// MaxRiskScore caps the composite score.
const MaxRiskScore int64 = 10000

// updateRiskScore recomputes the composite 0..10000 risk score:
//
//	exposureScore    = totalExposure * 1000 / 24hLimit
//	leverageScore    = leverage * 100
//	utilizationScore = avg(gate utilizations in percent) * 10
//	violationScore   = violationCount * 500
//	score = (exposure*30 + leverage*25 + utilization*25 + violation*20) / 100
//
// All terms use floor division. Caller holds the profile lock.
func updateRiskScore(p *model.RiskProfile) {
	var exposureScore int64
	limit24 := p.Gates[model.GateTwentyFourHour].Limit
	if limit24.Sign() > 0 {
		exposureScore = p.TotalExposure.Mul(dThousand).Div(limit24).Floor().IntPart()
	}

	leverageScore := p.LeverageRatio * 100

	// Utilization enters the score as whole percent, not basis points, so a
	// user brushing one gate cap does not saturate the composite on its own.
	var utilSum int64
	for g := range p.Gates {
		utilSum += p.Gates[g].UtilizationBP / 100
	}
	utilizationScore := utilSum / int64(model.NumGateTypes) * 10

	violationScore := p.ViolationCount * 500

	score := (exposureScore*30 + leverageScore*25 + utilizationScore*25 + violationScore*20) / 100
	if score > MaxRiskScore {
		score = MaxRiskScore
	}
	if score < 0 {
		score = 0
	}
	p.RiskScore = score
	p.RiskLevel = ClassifyRiskLevel(score)
}

// ClassifyRiskLevel maps a score to its tier. Boundaries are inclusive of
// the lower bound: 2500 is MEDIUM, 5000 is HIGH, 7500 is CRITICAL.
func ClassifyRiskLevel(score int64) model.RiskLevel {
	switch {
	case score < 2500:
		return model.LevelLow
	case score < 5000:
		return model.LevelMedium
	case score < 7500:
		return model.LevelHigh
	default:
		return model.LevelCritical
	}
}
