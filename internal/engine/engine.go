package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/GoPolymarket/riskgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/riskgate/internal/pkg/logger"
	"github.com/GoPolymarket/riskgate/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Engine is the risk-gating core: it decides, per trade attempt, whether a
// user/market pair may proceed, and keeps all the bookkeeping that decision
// depends on. It never executes trades and never retries; a rejection is
// final for that attempt.
//
// Checking all three gates and committing usage happen inside one critical
// section per (user, market) pair: the user profile lock is taken first,
// then the market profile lock. Admin mutations take the same locks.
type Engine struct {
	defaults Defaults
	profiles *ProfileStore
	breakers *BreakerManager
	recorder *ViolationRecorder
	agg      *Aggregator
	events   EventRepo

	seq atomic.Uint64
	now func() time.Time

	emergencyMu     sync.RWMutex
	emergency       bool
	emergencyReason string
}

func New(defaults Defaults, events EventRepo) *Engine {
	return &Engine{
		defaults: defaults,
		profiles: NewProfileStore(defaults),
		breakers: NewBreakerManager(defaults.Breakers),
		recorder: NewViolationRecorder(),
		agg:      NewAggregator(),
		events:   events,
		now:      time.Now,
	}
}

// Gate evaluation order: immediate caps first. The first failing gate
// short-circuits the rest.
var gateOrder = [model.NumGateTypes]model.GateType{
	model.GateSingleWindow,
	model.GateFifteenMinute,
	model.GateTwentyFourHour,
}

// CheckAndCommit evaluates the three gates for a trade attempt and, if all
// pass, commits the usage into every window of both the user and the market
// profile, then refreshes the risk score and global aggregates. On failure
// it records a violation event and feeds the circuit breakers.
func (e *Engine) CheckAndCommit(ctx context.Context, user, market string, size decimal.Decimal, leverage int64) (model.CheckResult, error) {
	if user == "" || market == "" {
		return model.CheckResult{}, fmt.Errorf("user and market are required")
	}
	if size.Sign() <= 0 {
		return model.CheckResult{}, fmt.Errorf("trade size must be positive")
	}
	if leverage <= 0 {
		leverage = 1
	}

	now := e.now()

	if on, reason := e.EmergencyState(); on {
		metrics.ChecksTotal.WithLabelValues("blocked").Inc()
		metrics.RiskRejects.WithLabelValues(string(model.ReasonSystemEmergency)).Inc()
		logger.Warn("check rejected, system emergency", "user", user, "market", market, "reason", reason)
		return model.CheckResult{Allowed: false, Reason: model.ReasonSystemEmergency}, nil
	}

	uEntry, created := e.profiles.User(user, now)
	if created {
		e.agg.AddUser()
	}
	mEntry, _ := e.profiles.Market(market, now)

	uEntry.mu.Lock()
	defer uEntry.mu.Unlock()
	mEntry.mu.Lock()
	defer mEntry.mu.Unlock()

	u := &uEntry.profile
	m := &mEntry.profile

	if m.EmergencyMode {
		metrics.ChecksTotal.WithLabelValues("blocked").Inc()
		metrics.RiskRejects.WithLabelValues(string(model.ReasonMarketEmergency)).Inc()
		return model.CheckResult{Allowed: false, Reason: model.ReasonMarketEmergency, RiskScore: u.RiskScore, RiskLevel: u.RiskLevel}, nil
	}
	if m.MaxLeverage > 0 && leverage > m.MaxLeverage {
		metrics.ChecksTotal.WithLabelValues("blocked").Inc()
		metrics.RiskRejects.WithLabelValues(string(model.ReasonLeverageLimit)).Inc()
		return model.CheckResult{Allowed: false, Reason: model.ReasonLeverageLimit, RiskScore: u.RiskScore, RiskLevel: u.RiskLevel}, nil
	}

	rollWindows(u, now)
	rollWindows(m, now)

	combined := combinedFactor(m.VolatilityScore, m.LiquidityScore, u.RiskLevel)
	applyAdjustment(m, combined, e.defaults.Hysteresis, now)
	applyAdjustment(u, combined, e.defaults.Hysteresis, now)

	for _, gate := range gateOrder {
		if scope, tripped := e.breakers.Tripped(gate, user, market, now); tripped {
			ev := e.recordViolation(ctx, u, m, gate, size, now)
			gt := gate
			metrics.ChecksTotal.WithLabelValues("blocked").Inc()
			metrics.RiskRejects.WithLabelValues(string(model.ReasonBreakerTripped)).Inc()
			return model.CheckResult{
				Allowed:      false,
				Reason:       model.ReasonBreakerTripped,
				BlockedGate:  &gt,
				BreakerScope: scope,
				EventID:      ev.ID,
				RiskScore:    u.RiskScore,
				RiskLevel:    u.RiskLevel,
			}, nil
		}
		if exceeds(&u.Gates[gate], size) || exceeds(&m.Gates[gate], size) {
			ev := e.recordViolation(ctx, u, m, gate, size, now)
			gt := gate
			metrics.ChecksTotal.WithLabelValues("blocked").Inc()
			metrics.RiskRejects.WithLabelValues(string(model.ReasonGateViolation)).Inc()
			return model.CheckResult{
				Allowed:     false,
				Reason:      model.ReasonGateViolation,
				BlockedGate: &gt,
				EventID:     ev.ID,
				RiskScore:   u.RiskScore,
				RiskLevel:   u.RiskLevel,
			}, nil
		}
	}

	// All gates pass: commit usage into every window of both profiles.
	oldScore, oldLeverage := u.RiskScore, u.LeverageRatio
	commitUsage(u, size)
	commitUsage(m, size)
	u.LeverageRatio = leverage
	m.LeverageRatio = leverage
	updateRiskScore(u)
	updateRiskScore(m)

	e.agg.ApplyCommit(size, oldScore, u.RiskScore, oldLeverage, u.LeverageRatio)
	metrics.ChecksTotal.WithLabelValues("allowed").Inc()

	return model.CheckResult{Allowed: true, RiskScore: u.RiskScore, RiskLevel: u.RiskLevel}, nil
}

// recordViolation appends a RiskEvent, bumps the violation counters, updates
// the profiles and evaluates the circuit breakers for the violated gate.
// Caller holds both profile locks.
func (e *Engine) recordViolation(ctx context.Context, u, m *model.RiskProfile, gate model.GateType, size decimal.Decimal, now time.Time) *model.RiskEvent {
	seq := e.seq.Add(1)
	ev := &model.RiskEvent{
		ID:              eventID(u.ID, m.ID, gate, size, now, seq),
		User:            u.ID,
		Market:          m.ID,
		Gate:            gate,
		AttemptedAmount: size,
		CurrentLimit:    u.Gates[gate].Limit,
		Timestamp:       now,
		IsViolation:     true,
	}
	if err := e.events.Insert(ctx, ev); err != nil {
		logger.LogError(ctx, err, "failed to persist risk event", "event_id", ev.ID)
	}

	e.recorder.Record(ev)
	u.ViolationCount++
	u.LastViolationTime = now
	m.ViolationCount++
	m.LastViolationTime = now

	metrics.ViolationsTotal.WithLabelValues(gate.String()).Inc()
	e.breakers.OnViolation(gate, u.ID, m.ID, now)
	return ev
}

// ---- Query surface ----

func (e *Engine) UserRiskProfile(user string) (model.RiskProfile, bool) {
	return e.profiles.UserSnapshot(user)
}

func (e *Engine) MarketRiskConfig(market string) (model.RiskProfile, bool) {
	return e.profiles.MarketSnapshot(market)
}

// UserUtilization returns per-gate utilization in basis points.
func (e *Engine) UserUtilization(user string) (map[string]int64, bool) {
	p, ok := e.profiles.UserSnapshot(user)
	if !ok {
		return nil, false
	}
	out := make(map[string]int64, model.NumGateTypes)
	for g := model.GateType(0); g < model.NumGateTypes; g++ {
		out[g.String()] = p.Gates[g].UtilizationBP
	}
	return out, true
}

func (e *Engine) GlobalMetrics() model.GlobalRiskMetrics {
	snap := e.agg.Snapshot()
	snap.EmergencyMode, snap.EmergencyReason = e.EmergencyState()
	return snap
}

func (e *Engine) ViolationStats() model.ViolationStats {
	return e.recorder.Stats()
}

func (e *Engine) Event(ctx context.Context, id string) (*model.RiskEvent, error) {
	return e.events.GetByID(ctx, id)
}

func (e *Engine) Events(ctx context.Context, user, market string, limit int) ([]*model.RiskEvent, error) {
	return e.events.List(ctx, user, market, limit)
}

func (e *Engine) EmergencyState() (bool, string) {
	e.emergencyMu.RLock()
	defer e.emergencyMu.RUnlock()
	return e.emergency, e.emergencyReason
}

// ---- Admin surface ----
// Authorization is the caller's concern; the engine holds no role logic.

// ConfigureMarketRisk applies an admin update to a market profile, creating
// it if necessary. Explicit limits reset the adjustment factor to the base.
func (e *Engine) ConfigureMarketRisk(market string, req model.MarketRiskRequest) error {
	if market == "" {
		return apperrors.NewInvalidRequest("market is required")
	}
	limits := [model.NumGateTypes]*float64{
		req.SingleWindowLimit,
		req.FifteenMinuteLimit,
		req.TwentyFourHourLimit,
	}
	for _, l := range limits {
		if l != nil && *l <= 0 {
			return apperrors.NewInvalidConfig("gate limit must be positive")
		}
	}
	if req.MaxLeverage != nil && *req.MaxLeverage <= 0 {
		return apperrors.NewInvalidConfig("max leverage must be positive")
	}
	if req.VolatilityScore != nil && (*req.VolatilityScore < 0 || *req.VolatilityScore > model.BasisPointsBase) {
		return apperrors.NewInvalidConfig("volatility score out of range")
	}
	if req.LiquidityScore != nil && (*req.LiquidityScore < 0 || *req.LiquidityScore > model.BasisPointsBase) {
		return apperrors.NewInvalidConfig("liquidity score out of range")
	}

	now := e.now()
	entry, _ := e.profiles.Market(market, now)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	p := &entry.profile

	limitsChanged := false
	for g, l := range limits {
		if l == nil {
			continue
		}
		gs := &p.Gates[g]
		gs.Limit = decimal.NewFromFloat(*l)
		gs.UtilizationBP = utilizationBP(gs.CurrentUsage, gs.Limit)
		limitsChanged = true
	}
	if limitsChanged {
		p.AdjustmentFactorBP = model.BasisPointsBase
	}
	if req.MaxLeverage != nil {
		p.MaxLeverage = *req.MaxLeverage
	}
	if req.VolatilityScore != nil {
		p.VolatilityScore = *req.VolatilityScore
	}
	if req.LiquidityScore != nil {
		p.LiquidityScore = *req.LiquidityScore
	}
	if req.DynamicLimits != nil {
		p.DynamicLimitsEnabled = *req.DynamicLimits
	}
	if req.EmergencyMode != nil {
		p.EmergencyMode = *req.EmergencyMode
	}

	logger.Info("market risk configured", "market", market)
	return nil
}

// UpdateUserRiskLimit sets one gate limit on a user profile.
func (e *Engine) UpdateUserRiskLimit(user string, gate model.GateType, newLimit decimal.Decimal) error {
	if user == "" {
		return apperrors.NewInvalidRequest("user is required")
	}
	if gate < 0 || gate >= model.NumGateTypes {
		return apperrors.NewInvalidRequest("unknown gate type")
	}
	if newLimit.Sign() <= 0 {
		return apperrors.NewInvalidConfig("gate limit must be positive")
	}

	entry, created := e.profiles.User(user, e.now())
	if created {
		e.agg.AddUser()
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	gs := &entry.profile.Gates[gate]
	gs.Limit = newLimit
	gs.UtilizationBP = utilizationBP(gs.CurrentUsage, gs.Limit)
	entry.profile.AdjustmentFactorBP = model.BasisPointsBase

	logger.Info("user limit updated", "user", user, "gate", gate.String(), "limit", newLimit.String())
	return nil
}

// ResetCircuitBreaker clears a breaker: user scope if user is set, market
// scope if market is set, otherwise global.
func (e *Engine) ResetCircuitBreaker(gate model.GateType, user, market string) error {
	if gate < 0 || gate >= model.NumGateTypes {
		return apperrors.NewInvalidRequest("unknown gate type")
	}
	e.breakers.Reset(gate, user, market)
	logger.Info("circuit breaker reset", "gate", gate.String(), "user", user, "market", market)
	return nil
}

// SetSystemEmergencyMode toggles the system-wide kill switch. While enabled,
// every check is rejected before gate evaluation.
func (e *Engine) SetSystemEmergencyMode(enabled bool, reason string) {
	e.emergencyMu.Lock()
	e.emergency = enabled
	e.emergencyReason = reason
	e.emergencyMu.Unlock()

	if enabled {
		logger.Warn("system emergency mode enabled", "reason", reason)
	} else {
		logger.Info("system emergency mode cleared")
	}
}

// UpdateMarketSignals feeds volatility/liquidity scores from the market data
// collaborator into a market profile. Scores are basis points in [0,10000].
func (e *Engine) UpdateMarketSignals(market string, volatility, liquidity int64) error {
	if market == "" {
		return apperrors.NewInvalidRequest("market is required")
	}
	if volatility < 0 || volatility > model.BasisPointsBase || liquidity < 0 || liquidity > model.BasisPointsBase {
		return apperrors.NewInvalidConfig("signal scores must be within 0..10000 basis points")
	}

	entry, _ := e.profiles.Market(market, e.now())
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.profile.VolatilityScore = volatility
	entry.profile.LiquidityScore = liquidity
	return nil
}
