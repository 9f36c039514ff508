package handler

import (
	"net/http"
	"strconv"

	"github.com/GoPolymarket/riskgate/internal/engine"
	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/GoPolymarket/riskgate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type RiskHandler struct {
	eng *engine.Engine
}

func NewRiskHandler(eng *engine.Engine) *RiskHandler {
	return &RiskHandler{eng: eng}
}

// Check runs a combined check-and-commit for one trade attempt. Gate and
// breaker rejections are normal business outcomes and come back as 200 with
// allowed=false; the caller decides whether to split, shrink or surface.
func (h *RiskHandler) Check(c *gin.Context) {
	var req model.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	size := decimal.NewFromFloat(req.Size)
	result, err := h.eng.CheckAndCommit(c.Request.Context(), req.User, req.Market, size, req.Leverage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *RiskHandler) GetUserProfile(c *gin.Context) {
	profile, ok := h.eng.UserRiskProfile(c.Param("id"))
	if !ok {
		c.Error(apperrors.NewNotFound("unknown user"))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *RiskHandler) GetMarketConfig(c *gin.Context) {
	profile, ok := h.eng.MarketRiskConfig(c.Param("id"))
	if !ok {
		c.Error(apperrors.NewNotFound("unknown market"))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *RiskHandler) GetUserUtilization(c *gin.Context) {
	user := c.Param("id")
	utilization, ok := h.eng.UserUtilization(user)
	if !ok {
		c.Error(apperrors.NewNotFound("unknown user"))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, model.UtilizationResponse{User: user, Utilization: utilization})
}

func (h *RiskHandler) GetGlobalMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.eng.GlobalMetrics())
}

func (h *RiskHandler) GetViolationStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.eng.ViolationStats())
}

func (h *RiskHandler) GetEvent(c *gin.Context) {
	ev, err := h.eng.Event(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(apperrors.Wrap(err))
		c.Abort()
		return
	}
	if ev == nil {
		c.Error(apperrors.NewNotFound("unknown event"))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *RiskHandler) ListEvents(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	events, err := h.eng.Events(c.Request.Context(), c.Query("user"), c.Query("market"), limit)
	if err != nil {
		c.Error(apperrors.Wrap(err))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
