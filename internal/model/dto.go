package model

// CheckRequest is the incoming JSON body for a trade admission check.
// Size is in quote currency; leverage is the whole-number multiplier.
type CheckRequest struct {
	User     string  `json:"user" binding:"required"`
	Market   string  `json:"market" binding:"required"`
	Size     float64 `json:"size" binding:"required,gt=0"`
	Leverage int64   `json:"leverage" binding:"omitempty,gte=1"`
}

// MarketRiskRequest configures a market profile. Zero-valued limit fields are
// left unchanged; explicitly negative or zero values passed for a limit being
// set are rejected as invalid config.
type MarketRiskRequest struct {
	SingleWindowLimit   *float64 `json:"single_window_limit,omitempty"`
	FifteenMinuteLimit  *float64 `json:"fifteen_minute_limit,omitempty"`
	TwentyFourHourLimit *float64 `json:"twenty_four_hour_limit,omitempty"`
	MaxLeverage         *int64   `json:"max_leverage,omitempty"`
	VolatilityScore     *int64   `json:"volatility_score,omitempty"`
	LiquidityScore      *int64   `json:"liquidity_score,omitempty"`
	DynamicLimits       *bool    `json:"dynamic_limits,omitempty"`
	EmergencyMode       *bool    `json:"emergency_mode,omitempty"`
}

// UserLimitRequest updates a single gate limit on a user profile.
type UserLimitRequest struct {
	GateType string  `json:"gate_type" binding:"required"`
	NewLimit float64 `json:"new_limit" binding:"required"`
}

// BreakerResetRequest resets a breaker. With neither user nor market set the
// global breaker for the gate is reset.
type BreakerResetRequest struct {
	GateType string `json:"gate_type" binding:"required"`
	User     string `json:"user,omitempty"`
	Market   string `json:"market,omitempty"`
}

// EmergencyRequest toggles the system-wide emergency stop.
type EmergencyRequest struct {
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

// SignalRequest carries market data feed scores (0..10000 basis points).
type SignalRequest struct {
	Market          string `json:"market" binding:"required"`
	VolatilityScore int64  `json:"volatility_score" binding:"gte=0,lte=10000"`
	LiquidityScore  int64  `json:"liquidity_score" binding:"gte=0,lte=10000"`
}

// UtilizationResponse reports per-gate utilization in basis points.
type UtilizationResponse struct {
	User        string           `json:"user"`
	Utilization map[string]int64 `json:"utilization_bp"`
}
