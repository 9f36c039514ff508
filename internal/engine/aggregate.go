package engine

import (
	"sync"

	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/GoPolymarket/riskgate/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Aggregator maintains system-wide aggregates as incrementally updated
// running sums: commits push deltas instead of rescanning every known user.
// It is locked independently of the per-profile locks; readers get
// approximate freshness, which is all the metrics surface needs.
type Aggregator struct {
	mu            sync.Mutex
	userCount     int64
	scoreSum      int64
	leverageSum   int64
	totalExposure decimal.Decimal
}

func NewAggregator() *Aggregator {
	return &Aggregator{totalExposure: decimal.Zero}
}

// AddUser registers a newly created user profile (zero contribution).
func (a *Aggregator) AddUser() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userCount++
}

// ApplyCommit folds one user's post-commit deltas into the running sums.
func (a *Aggregator) ApplyCommit(exposureDelta decimal.Decimal, oldScore, newScore, oldLeverage, newLeverage int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalExposure = a.totalExposure.Add(exposureDelta)
	a.scoreSum += newScore - oldScore
	a.leverageSum += newLeverage - oldLeverage

	exposure, _ := a.totalExposure.Float64()
	metrics.SystemExposure.Set(exposure)
}

// Snapshot returns the current aggregates. Averages use integer division
// over the user count.
func (a *Aggregator) Snapshot() model.GlobalRiskMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := model.GlobalRiskMetrics{
		TotalSystemExposure: a.totalExposure,
		UserCount:           a.userCount,
	}
	if a.userCount > 0 {
		m.GlobalRiskScore = a.scoreSum / a.userCount
		m.SystemLeverageRatio = a.leverageSum / a.userCount
	}
	return m
}
