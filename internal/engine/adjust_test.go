package engine

import (
	"testing"

	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolatilityFactorTiers(t *testing.T) {
	cases := []struct {
		score, want int64
	}{
		{0, 10000}, {4000, 10000},
		{4001, 9500}, {6000, 9500},
		{6001, 8500}, {8000, 8500},
		{8001, 7000}, {10000, 7000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, volatilityFactor(tc.score), "volatility %d", tc.score)
	}
}

func TestLiquidityFactorTiers(t *testing.T) {
	cases := []struct {
		score, want int64
	}{
		{0, 7000}, {1999, 7000},
		{2000, 8500}, {3999, 8500},
		{4000, 9500}, {5999, 9500},
		{6000, 10000}, {10000, 10000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, liquidityFactor(tc.score), "liquidity %d", tc.score)
	}
}

func TestUserRiskFactorTiers(t *testing.T) {
	assert.Equal(t, int64(10000), userRiskFactor(model.LevelLow))
	assert.Equal(t, int64(9000), userRiskFactor(model.LevelMedium))
	assert.Equal(t, int64(8000), userRiskFactor(model.LevelHigh))
	assert.Equal(t, int64(6000), userRiskFactor(model.LevelCritical))
}

func TestCombinedFactorIntegerDivision(t *testing.T) {
	// 7000 + 8500 + 10000 = 25500, / 3 = 8500.
	assert.Equal(t, int64(8500), combinedFactor(9000, 3000, model.LevelLow))
	// 10000 + 10000 + 8000 = 28000, / 3 = 9333 (truncated).
	assert.Equal(t, int64(9333), combinedFactor(0, 10000, model.LevelHigh))
}

func TestApplyAdjustmentHysteresis(t *testing.T) {
	e, clk := newTestEngine()
	p := e.profiles.newProfile("m1", clk.Now(), true)

	// 199bp below base: inside the band, nothing moves.
	require.False(t, applyAdjustment(&p, 9801, 200, clk.Now()))
	require.Equal(t, model.BasisPointsBase, p.AdjustmentFactorBP)
	require.True(t, p.Gates[model.GateSingleWindow].Limit.Equal(d(50000)))

	// Exactly 200bp away: applied.
	require.True(t, applyAdjustment(&p, 9800, 200, clk.Now()))
	require.Equal(t, int64(9800), p.AdjustmentFactorBP)
	require.True(t, p.Gates[model.GateSingleWindow].Limit.Equal(d(49000)))
}

func TestApplyAdjustmentCompounds(t *testing.T) {
	e, clk := newTestEngine()
	p := e.profiles.newProfile("m1", clk.Now(), true)

	// Scale down to 90%, then back to the base factor. The rescale always
	// multiplies the current limit, so the limits do not recover.
	require.True(t, applyAdjustment(&p, 9000, 200, clk.Now()))
	require.True(t, p.Gates[model.GateSingleWindow].Limit.Equal(d(45000)))

	require.True(t, applyAdjustment(&p, 10000, 200, clk.Now()))
	require.Equal(t, model.BasisPointsBase, p.AdjustmentFactorBP)
	require.True(t, p.Gates[model.GateSingleWindow].Limit.Equal(d(45000)),
		"returning to the base factor must not restore the original limit")
}

func TestApplyAdjustmentDisabled(t *testing.T) {
	e, clk := newTestEngine()
	p := e.profiles.newProfile("m1", clk.Now(), true)
	p.DynamicLimitsEnabled = false

	require.False(t, applyAdjustment(&p, 7000, 200, clk.Now()))
	require.True(t, p.Gates[model.GateSingleWindow].Limit.Equal(d(50000)))
	require.Equal(t, model.BasisPointsBase, p.AdjustmentFactorBP)
}

func TestApplyAdjustmentFloorsOddLimits(t *testing.T) {
	e, clk := newTestEngine()
	p := e.profiles.newProfile("m1", clk.Now(), true)
	p.Gates[model.GateSingleWindow].Limit = d(33333)

	require.True(t, applyAdjustment(&p, 8500, 200, clk.Now()))
	require.True(t, p.Gates[model.GateSingleWindow].Limit.Equal(d(28333)))
}
