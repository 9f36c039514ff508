package engine

import (
	"testing"
	"time"

	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/stretchr/testify/require"
)

func TestEventIDDistinguishesIdenticalInputs(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Same user, market, gate, amount and timestamp: only the sequence
	// differs, and the IDs must still differ.
	a := eventID("alice", "ETH-USD", model.GateSingleWindow, d(60000), ts, 1)
	b := eventID("alice", "ETH-USD", model.GateSingleWindow, d(60000), ts, 2)
	require.NotEqual(t, a, b)
	require.Len(t, a, 64)

	// Deterministic for identical inputs including the sequence.
	require.Equal(t, a, eventID("alice", "ETH-USD", model.GateSingleWindow, d(60000), ts, 1))
}

func TestRecorderCounters(t *testing.T) {
	r := NewViolationRecorder()
	now := time.Now()

	r.Record(&model.RiskEvent{User: "alice", Market: "ETH-USD", Gate: model.GateSingleWindow, Timestamp: now})
	r.Record(&model.RiskEvent{User: "alice", Market: "BTC-USD", Gate: model.GateFifteenMinute, Timestamp: now})
	r.Record(&model.RiskEvent{User: "bob", Market: "ETH-USD", Gate: model.GateSingleWindow, Timestamp: now})

	require.Equal(t, int64(2), r.UserViolations("alice"))
	require.Equal(t, int64(0), r.UserViolations("carol"))

	stats := r.Stats()
	require.Equal(t, int64(3), stats.Total)
	require.Equal(t, int64(2), stats.ByGate["SINGLE_WINDOW"])
	require.Equal(t, int64(1), stats.ByGate["FIFTEEN_MINUTE"])
	require.Equal(t, int64(0), stats.ByGate["TWENTY_FOUR_HOUR"])
	require.Equal(t, int64(2), stats.ByMarket["ETH-USD"])
	require.Equal(t, int64(1), stats.ByUser["bob"])
}
