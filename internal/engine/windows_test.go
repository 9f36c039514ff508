package engine

import (
	"testing"
	"time"

	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRollWindowsSingleWindowAlwaysResets(t *testing.T) {
	e, clk := newTestEngine()
	p := e.profiles.newProfile("u1", clk.Now(), false)

	commitUsage(&p, d(30000))
	require.True(t, p.Gates[model.GateSingleWindow].CurrentUsage.Equal(d(30000)))

	// Same instant, zero interval: usage is gone.
	rollWindows(&p, clk.Now())
	require.True(t, p.Gates[model.GateSingleWindow].CurrentUsage.IsZero())
	require.True(t, p.Gates[model.GateFifteenMinute].CurrentUsage.Equal(d(30000)))
	require.True(t, p.Gates[model.GateTwentyFourHour].CurrentUsage.Equal(d(30000)))
}

func TestRollWindowsFixedWindowBoundary(t *testing.T) {
	e, clk := newTestEngine()
	start := clk.Now()
	p := e.profiles.newProfile("u1", start, false)
	commitUsage(&p, d(100000))

	// Just inside the window nothing resets.
	rollWindows(&p, start.Add(15*time.Minute-time.Second))
	require.True(t, p.Gates[model.GateFifteenMinute].CurrentUsage.Equal(d(100000)))

	// Exactly at the boundary the elapsed time equals the interval and the
	// counter starts over.
	rollWindows(&p, start.Add(15*time.Minute))
	require.True(t, p.Gates[model.GateFifteenMinute].CurrentUsage.IsZero())
	require.Equal(t, start.Add(15*time.Minute), p.Gates[model.GateFifteenMinute].LastResetTime)

	// The 24h gate is untouched until its own interval elapses.
	require.True(t, p.Gates[model.GateTwentyFourHour].CurrentUsage.Equal(d(100000)))
	rollWindows(&p, start.Add(24*time.Hour))
	require.True(t, p.Gates[model.GateTwentyFourHour].CurrentUsage.IsZero())
}

func TestRollWindowsSkipsInactiveGates(t *testing.T) {
	e, clk := newTestEngine()
	p := e.profiles.newProfile("u1", clk.Now(), false)
	commitUsage(&p, d(1000))

	p.Gates[model.GateFifteenMinute].IsActive = false
	rollWindows(&p, clk.Now().Add(time.Hour))
	require.True(t, p.Gates[model.GateFifteenMinute].CurrentUsage.Equal(d(1000)))
}

func TestExceeds(t *testing.T) {
	gs := model.GateState{Limit: d(100), CurrentUsage: d(60), IsActive: true}

	require.False(t, exceeds(&gs, d(40)), "exactly at the limit passes")
	require.True(t, exceeds(&gs, d(41)))

	gs.IsActive = false
	require.False(t, exceeds(&gs, d(1000000)), "inactive gate never blocks")
}

func TestUtilizationBPFloors(t *testing.T) {
	require.Equal(t, int64(3333), utilizationBP(d(1), d(3)))
	require.Equal(t, int64(10000), utilizationBP(d(3), d(3)))
	require.Equal(t, int64(0), utilizationBP(d(5), decimal.Zero), "zero limit reports zero")
}

func TestMulBPExactFloor(t *testing.T) {
	// 33333 * 8500 / 10000 = 28333.05, floored.
	require.True(t, mulBP(d(33333), 8500).Equal(d(28333)))
	// Identity factor keeps the value bit-for-bit.
	require.True(t, mulBP(d(50000), 10000).Equal(d(50000)))
	require.True(t, mulBP(d(50000), 9000).Equal(d(45000)))
}

func TestCommitUsageUpdatesExposureAndUtilization(t *testing.T) {
	e, clk := newTestEngine()
	p := e.profiles.newProfile("u1", clk.Now(), false)

	commitUsage(&p, d(25000))
	require.True(t, p.TotalExposure.Equal(d(25000)))
	// 25000/50000 of the single window.
	require.Equal(t, int64(5000), p.Gates[model.GateSingleWindow].UtilizationBP)
	// 25000/200000 of the fifteen-minute window.
	require.Equal(t, int64(1250), p.Gates[model.GateFifteenMinute].UtilizationBP)
}
