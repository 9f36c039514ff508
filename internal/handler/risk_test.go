package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GoPolymarket/riskgate/internal/config"
	"github.com/GoPolymarket/riskgate/internal/engine"
	"github.com/GoPolymarket/riskgate/internal/middleware"
	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/GoPolymarket/riskgate/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	rc := config.RiskConfig{
		SingleWindowLimit:     50000,
		FifteenMinuteLimit:    200000,
		TwentyFourHourLimit:   1000000,
		DynamicLimitsEnabled:  true,
		AdjustmentHysteresis:  200,
		DefaultMaxLeverage:    20,
		SingleWindowBreaker:   config.BreakerConfig{Threshold: 10, DurationMinutes: 5, CooldownMinutes: 5},
		FifteenMinuteBreaker:  config.BreakerConfig{Threshold: 5, DurationMinutes: 15, CooldownMinutes: 15},
		TwentyFourHourBreaker: config.BreakerConfig{Threshold: 3, DurationMinutes: 60, CooldownMinutes: 60},
	}
	eng := engine.New(engine.DefaultsFromConfig(rc), repository.NewMemoryEventRepo(1000))
	h := NewRiskHandler(eng)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	risk := r.Group("/v1/risk")
	risk.POST("/check", h.Check)
	risk.GET("/users/:id", h.GetUserProfile)
	risk.GET("/users/:id/utilization", h.GetUserUtilization)
	risk.GET("/markets/:id", h.GetMarketConfig)
	risk.GET("/events", h.ListEvents)
	risk.GET("/events/:id", h.GetEvent)
	risk.GET("/metrics", h.GetGlobalMetrics)
	risk.GET("/violations", h.GetViolationStats)
	return r
}

func postCheck(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/risk/check", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCheckAllowed(t *testing.T) {
	r := newTestRouter()

	w := postCheck(t, r, model.CheckRequest{User: "alice", Market: "ETH-USD", Size: 10000, Leverage: 2})
	require.Equal(t, http.StatusOK, w.Code)

	var res model.CheckResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.True(t, res.Allowed)
	require.Empty(t, res.EventID)
}

func TestCheckBlockedIsStillHTTP200(t *testing.T) {
	r := newTestRouter()

	w := postCheck(t, r, model.CheckRequest{User: "alice", Market: "ETH-USD", Size: 60000, Leverage: 1})
	require.Equal(t, http.StatusOK, w.Code)

	var res model.CheckResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.False(t, res.Allowed)
	require.Equal(t, model.ReasonGateViolation, res.Reason)
	require.NotNil(t, res.BlockedGate)
	require.Equal(t, model.GateSingleWindow, *res.BlockedGate)
	require.NotEmpty(t, res.EventID)
}

func TestCheckValidation(t *testing.T) {
	r := newTestRouter()

	cases := []map[string]any{
		{"market": "ETH-USD", "size": 100},               // missing user
		{"user": "alice", "size": 100},                   // missing market
		{"user": "alice", "market": "ETH-USD"},           // missing size
		{"user": "alice", "market": "ETH-USD", "size": -5},
	}
	for i, body := range cases {
		w := postCheck(t, r, body)
		require.Equal(t, http.StatusBadRequest, w.Code, "case %d", i)
	}
}

func TestGetUserProfile(t *testing.T) {
	r := newTestRouter()

	// Unknown until the first check creates the profile.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/risk/users/alice", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	postCheck(t, r, model.CheckRequest{User: "alice", Market: "ETH-USD", Size: 10000, Leverage: 1})

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/risk/users/alice", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var profile model.RiskProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	require.Equal(t, "alice", profile.ID)
	require.True(t, profile.TotalExposure.Equal(profile.Gates[model.GateTwentyFourHour].CurrentUsage))
}

func TestGetUserUtilization(t *testing.T) {
	r := newTestRouter()
	postCheck(t, r, model.CheckRequest{User: "alice", Market: "ETH-USD", Size: 25000, Leverage: 1})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/risk/users/alice/utilization", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var res model.UtilizationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, "alice", res.User)
	// 25000/200000 of the fifteen-minute window.
	require.Equal(t, int64(1250), res.Utilization["FIFTEEN_MINUTE"])
}

func TestGetMarketConfig(t *testing.T) {
	r := newTestRouter()
	postCheck(t, r, model.CheckRequest{User: "alice", Market: "ETH-USD", Size: 1000, Leverage: 1})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/risk/markets/ETH-USD", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/risk/markets/NOPE-USD", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventEndpoints(t *testing.T) {
	r := newTestRouter()

	w := postCheck(t, r, model.CheckRequest{User: "alice", Market: "ETH-USD", Size: 60000, Leverage: 1})
	var res model.CheckResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.EventID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/risk/events/"+res.EventID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var ev model.RiskEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	require.Equal(t, res.EventID, ev.ID)
	require.True(t, ev.IsViolation)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/risk/events/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/risk/events?user=alice", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Events []model.RiskEvent `json:"events"`
		Count  int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Equal(t, 1, listing.Count)
}

func TestGlobalMetricsAndViolations(t *testing.T) {
	r := newTestRouter()
	postCheck(t, r, model.CheckRequest{User: "alice", Market: "ETH-USD", Size: 10000, Leverage: 1})
	postCheck(t, r, model.CheckRequest{User: "alice", Market: "ETH-USD", Size: 60000, Leverage: 1})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/risk/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var metrics model.GlobalRiskMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	require.Equal(t, int64(1), metrics.UserCount)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/risk/violations", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.ViolationStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Equal(t, int64(1), stats.Total)
}
