package engine

import (
	"sync"
	"time"

	"github.com/GoPolymarket/riskgate/internal/config"
	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/shopspring/decimal"
)

// Defaults are the hard-coded values stamped onto profiles created on first
// sight of a user or market.
type Defaults struct {
	Limits        [model.NumGateTypes]decimal.Decimal
	DynamicLimits bool
	Hysteresis    int64
	MaxLeverage   int64
	Breakers      [model.NumGateTypes]model.CircuitBreaker
}

var gateIntervals = [model.NumGateTypes]time.Duration{
	GateIntervalSingle,
	GateIntervalFifteenMinute,
	GateIntervalTwentyFourHour,
}

const (
	// The single-window gate caps the current attempt only; a zero interval
	// means it resets on every check.
	GateIntervalSingle         time.Duration = 0
	GateIntervalFifteenMinute                = 15 * time.Minute
	GateIntervalTwentyFourHour               = 24 * time.Hour
)

func DefaultsFromConfig(rc config.RiskConfig) Defaults {
	d := Defaults{
		DynamicLimits: rc.DynamicLimitsEnabled,
		Hysteresis:    rc.AdjustmentHysteresis,
		MaxLeverage:   rc.DefaultMaxLeverage,
	}
	d.Limits[model.GateSingleWindow] = decimal.NewFromFloat(rc.SingleWindowLimit)
	d.Limits[model.GateFifteenMinute] = decimal.NewFromFloat(rc.FifteenMinuteLimit)
	d.Limits[model.GateTwentyFourHour] = decimal.NewFromFloat(rc.TwentyFourHourLimit)

	breakers := [model.NumGateTypes]config.BreakerConfig{
		rc.SingleWindowBreaker,
		rc.FifteenMinuteBreaker,
		rc.TwentyFourHourBreaker,
	}
	for g := range breakers {
		d.Breakers[g] = model.CircuitBreaker{
			Threshold:      breakers[g].Threshold,
			Duration:       time.Duration(breakers[g].DurationMinutes) * time.Minute,
			CooldownPeriod: time.Duration(breakers[g].CooldownMinutes) * time.Minute,
		}
	}
	return d
}

// profileEntry couples a profile with its lock. All gate checks and commits
// for an entity run under this lock; CheckAndCommit takes the user entry
// first, then the market entry, always in that order.
type profileEntry struct {
	mu      sync.Mutex
	profile model.RiskProfile
}

// ProfileStore holds per-user and per-market risk profiles. Profiles are
// created lazily on first trade attempt and never deleted.
type ProfileStore struct {
	mu       sync.RWMutex
	users    map[string]*profileEntry
	markets  map[string]*profileEntry
	defaults Defaults
}

func NewProfileStore(d Defaults) *ProfileStore {
	return &ProfileStore{
		users:    make(map[string]*profileEntry),
		markets:  make(map[string]*profileEntry),
		defaults: d,
	}
}

// User returns the entry for a user, creating it with defaults on first
// sight. The second return reports whether the entry was just created.
func (s *ProfileStore) User(id string, now time.Time) (*profileEntry, bool) {
	s.mu.RLock()
	e, ok := s.users[id]
	s.mu.RUnlock()
	if ok {
		return e, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.users[id]; ok {
		return e, false
	}
	e = &profileEntry{profile: s.newProfile(id, now, false)}
	s.users[id] = e
	return e, true
}

// Market is the market-side counterpart of User.
func (s *ProfileStore) Market(id string, now time.Time) (*profileEntry, bool) {
	s.mu.RLock()
	e, ok := s.markets[id]
	s.mu.RUnlock()
	if ok {
		return e, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.markets[id]; ok {
		return e, false
	}
	e = &profileEntry{profile: s.newProfile(id, now, true)}
	s.markets[id] = e
	return e, true
}

// UserSnapshot returns a copy of the user profile, or false if the user has
// never been seen.
func (s *ProfileStore) UserSnapshot(id string) (model.RiskProfile, bool) {
	s.mu.RLock()
	e, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return model.RiskProfile{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile, true
}

// MarketSnapshot returns a copy of the market profile.
func (s *ProfileStore) MarketSnapshot(id string) (model.RiskProfile, bool) {
	s.mu.RLock()
	e, ok := s.markets[id]
	s.mu.RUnlock()
	if !ok {
		return model.RiskProfile{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile, true
}

func (s *ProfileStore) newProfile(id string, now time.Time, market bool) model.RiskProfile {
	p := model.RiskProfile{
		ID:                   id,
		RiskLevel:            model.LevelLow,
		TotalExposure:        decimal.Zero,
		DynamicLimitsEnabled: s.defaults.DynamicLimits,
		AdjustmentFactorBP:   model.BasisPointsBase,
	}
	for g := model.GateType(0); g < model.NumGateTypes; g++ {
		p.Gates[g] = model.GateState{
			Limit:         s.defaults.Limits[g],
			CurrentUsage:  decimal.Zero,
			LastResetTime: now,
			ResetInterval: gateIntervals[g],
			IsActive:      true,
		}
	}
	if market {
		// Neutral signals until the market data feed reports: zero
		// volatility, full liquidity. Both map to a 10000bp factor.
		p.VolatilityScore = 0
		p.LiquidityScore = model.BasisPointsBase
		p.MaxLeverage = s.defaults.MaxLeverage
	}
	return p
}
