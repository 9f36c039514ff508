package handler

import (
	"net/http"
	"strconv"

	"github.com/GoPolymarket/riskgate/internal/audit"
	"github.com/GoPolymarket/riskgate/internal/engine"
	"github.com/GoPolymarket/riskgate/internal/middleware"
	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AdminHandler struct {
	eng      *engine.Engine
	auditSvc *audit.Service
}

func NewAdminHandler(eng *engine.Engine, auditSvc *audit.Service) *AdminHandler {
	return &AdminHandler{eng: eng, auditSvc: auditSvc}
}

func (h *AdminHandler) ConfigureMarketRisk(c *gin.Context) {
	market := c.Param("id")

	var req model.MarketRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.eng.ConfigureMarketRisk(market, req); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	middleware.AddAuditContext(c, "action", "configure_market_risk")
	middleware.AddAuditContext(c, "market", market)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *AdminHandler) UpdateUserRiskLimit(c *gin.Context) {
	user := c.Param("id")

	var req model.UserLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gate, err := model.ParseGateType(req.GateType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.eng.UpdateUserRiskLimit(user, gate, decimal.NewFromFloat(req.NewLimit)); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	middleware.AddAuditContext(c, "action", "update_user_limit")
	middleware.AddAuditContext(c, "user", user)
	middleware.AddAuditContext(c, "gate", req.GateType)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *AdminHandler) ResetCircuitBreaker(c *gin.Context) {
	var req model.BreakerResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gate, err := model.ParseGateType(req.GateType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.eng.ResetCircuitBreaker(gate, req.User, req.Market); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	middleware.AddAuditContext(c, "action", "reset_breaker")
	middleware.AddAuditContext(c, "gate", req.GateType)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *AdminHandler) SetEmergencyMode(c *gin.Context) {
	var req model.EmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.eng.SetSystemEmergencyMode(req.Enabled, req.Reason)

	middleware.AddAuditContext(c, "action", "set_emergency_mode")
	middleware.AddAuditContext(c, "enabled", req.Enabled)
	middleware.AddAuditContext(c, "reason", req.Reason)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PushSignals is the HTTP push path for the market data feed; the websocket
// stream in internal/feed is the pull path.
func (h *AdminHandler) PushSignals(c *gin.Context) {
	var req model.SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.eng.UpdateMarketSignals(req.Market, req.VolatilityScore, req.LiquidityScore); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *AdminHandler) ListAudit(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	records, err := h.auditSvc.List(c.Request.Context(), c.Query("actor"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}
