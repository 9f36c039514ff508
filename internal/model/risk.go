package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// GateType identifies one of the three exposure windows. Gate state is held
// in arrays indexed by GateType so checks, resets and commits iterate
// uniformly instead of branching per gate.
type GateType int

const (
	GateSingleWindow GateType = iota
	GateFifteenMinute
	GateTwentyFourHour
	NumGateTypes
)

func (g GateType) String() string {
	switch g {
	case GateSingleWindow:
		return "SINGLE_WINDOW"
	case GateFifteenMinute:
		return "FIFTEEN_MINUTE"
	case GateTwentyFourHour:
		return "TWENTY_FOUR_HOUR"
	default:
		return fmt.Sprintf("GATE(%d)", int(g))
	}
}

func ParseGateType(s string) (GateType, error) {
	switch s {
	case "SINGLE_WINDOW":
		return GateSingleWindow, nil
	case "FIFTEEN_MINUTE":
		return GateFifteenMinute, nil
	case "TWENTY_FOUR_HOUR":
		return GateTwentyFourHour, nil
	default:
		return 0, fmt.Errorf("unknown gate type %q", s)
	}
}

func (g GateType) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

func (g *GateType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseGateType(s)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// RiskLevel is the four-tier classification derived from the risk score.
type RiskLevel int

const (
	LevelLow RiskLevel = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l RiskLevel) String() string {
	switch l {
	case LevelLow:
		return "LOW"
	case LevelMedium:
		return "MEDIUM"
	case LevelHigh:
		return "HIGH"
	case LevelCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

func (l RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *RiskLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "LOW":
		*l = LevelLow
	case "MEDIUM":
		*l = LevelMedium
	case "HIGH":
		*l = LevelHigh
	case "CRITICAL":
		*l = LevelCritical
	default:
		return fmt.Errorf("unknown risk level %q", s)
	}
	return nil
}

// BasisPointsBase is the fixed-point base for factors and utilization rates.
// 10000 basis points = 100%.
const BasisPointsBase int64 = 10000

// GateState is one windowed exposure counter. The single-window gate has a
// zero ResetInterval and resets on every check; the 15-minute and 24-hour
// gates are fixed windows that reset only once the interval has elapsed.
// Usage can therefore legally burst up to 2x the limit across a window
// boundary. That is inherited fixed-window behaviour, not a bug.
type GateState struct {
	Limit         decimal.Decimal `json:"limit"`
	CurrentUsage  decimal.Decimal `json:"current_usage"`
	LastResetTime time.Time       `json:"last_reset_time"`
	ResetInterval time.Duration   `json:"reset_interval"`
	IsActive      bool            `json:"is_active"`
	// UtilizationBP = CurrentUsage * 10000 / Limit, floor division.
	UtilizationBP int64 `json:"utilization_bp"`
}

// RiskProfile is the per-entity gate and scoring state. Users and markets
// share the shape; the volatility/liquidity/leverage fields are only
// meaningful on market profiles.
type RiskProfile struct {
	ID    string                   `json:"id"`
	Gates [NumGateTypes]GateState  `json:"gates"`

	RiskScore         int64           `json:"risk_score"` // 0..10000
	RiskLevel         RiskLevel       `json:"risk_level"`
	TotalExposure     decimal.Decimal `json:"total_exposure"`
	LeverageRatio     int64           `json:"leverage_ratio"`
	ViolationCount    int64           `json:"violation_count"`
	LastViolationTime time.Time       `json:"last_violation_time"`

	DynamicLimitsEnabled bool      `json:"dynamic_limits_enabled"`
	AdjustmentFactorBP   int64     `json:"adjustment_factor_bp"` // base 10000
	LastAdjustmentTime   time.Time `json:"last_adjustment_time"`

	// Market-only fields.
	VolatilityScore int64 `json:"volatility_score,omitempty"`
	LiquidityScore  int64 `json:"liquidity_score,omitempty"`
	MaxLeverage     int64 `json:"max_leverage,omitempty"`
	EmergencyMode   bool  `json:"emergency_mode,omitempty"`
}

// RiskEvent is an immutable, append-only audit record of a gate violation.
// The ID is a hash over the event fields plus a monotonic sequence, so two
// violations with identical inputs in the same instant still get distinct IDs.
type RiskEvent struct {
	ID              string          `json:"id"`
	User            string          `json:"user"`
	Market          string          `json:"market"`
	Gate            GateType        `json:"gate_type"`
	AttemptedAmount decimal.Decimal `json:"attempted_amount"`
	CurrentLimit    decimal.Decimal `json:"current_limit"`
	Timestamp       time.Time       `json:"timestamp"`
	IsViolation     bool            `json:"is_violation"`
}

// BreakerScope identifies which breaker blocked a check.
type BreakerScope string

const (
	ScopeGlobal BreakerScope = "global"
	ScopeUser   BreakerScope = "user"
	ScopeMarket BreakerScope = "market"
)

// CircuitBreaker trips once the cumulative violation count at its scope
// reaches Threshold. It clears lazily on the first check after
// LastTriggered+Duration, or via an explicit admin reset. CooldownPeriod is
// tracked but not enforced beyond Duration.
type CircuitBreaker struct {
	Threshold      int64         `json:"threshold"`
	Duration       time.Duration `json:"duration"`
	CooldownPeriod time.Duration `json:"cooldown_period"`
	LastTriggered  time.Time     `json:"last_triggered"`
	IsTriggered    bool          `json:"is_triggered"`
	TriggerCount   int64         `json:"trigger_count"`
	Violations     int64         `json:"violations"`
}

// Block reasons returned by the engine.
type BlockReason string

const (
	ReasonGateViolation   BlockReason = "gate_violation"
	ReasonBreakerTripped  BlockReason = "breaker_tripped"
	ReasonSystemEmergency BlockReason = "system_emergency"
	ReasonMarketEmergency BlockReason = "market_emergency"
	ReasonLeverageLimit   BlockReason = "leverage_limit"
)

// CheckResult is the outcome of a check-and-commit. Allowed is an explicit
// success variant; a blocked result carries the gate (when a gate or breaker
// caused it) and the reason. A GateType is never reused to mean "allowed".
type CheckResult struct {
	Allowed      bool         `json:"allowed"`
	Reason       BlockReason  `json:"reason,omitempty"`
	BlockedGate  *GateType    `json:"blocked_gate,omitempty"`
	BreakerScope BreakerScope `json:"breaker_scope,omitempty"`
	EventID      string       `json:"event_id,omitempty"`
	RiskScore    int64        `json:"risk_score"`
	RiskLevel    RiskLevel    `json:"risk_level"`
}

// GlobalRiskMetrics are system-wide aggregates maintained incrementally at
// commit time (running sums, no O(n) rescan on the hot path).
type GlobalRiskMetrics struct {
	GlobalRiskScore     int64           `json:"global_risk_score"`
	SystemLeverageRatio int64           `json:"system_leverage_ratio"`
	TotalSystemExposure decimal.Decimal `json:"total_system_exposure"`
	UserCount           int64           `json:"user_count"`
	EmergencyMode       bool            `json:"emergency_mode"`
	EmergencyReason     string          `json:"emergency_reason,omitempty"`
}

// ViolationStats are the cumulative violation counters kept by the recorder.
type ViolationStats struct {
	Total     int64            `json:"total"`
	ByGate    map[string]int64 `json:"by_gate"`
	ByUser    map[string]int64 `json:"by_user"`
	ByMarket  map[string]int64 `json:"by_market"`
}
