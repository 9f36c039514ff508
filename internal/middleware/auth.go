package middleware

import (
	"net/http"

	"github.com/GoPolymarket/riskgate/internal/config"
	"github.com/gin-gonic/gin"
)

const (
	HeaderGatewayKey = "X-Gateway-Key"
	ContextCallerKey = "caller"
)

// AuthMiddleware identifies the calling collaborator (the order-execution
// service) by API key. With require_api_key off, anonymous callers pass
// through; the engine itself performs no authorization.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	keys := make(map[string]struct{}, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		if k != "" {
			keys[k] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderGatewayKey)
		if apiKey == "" {
			if !cfg.Auth.RequireAPIKey {
				c.Set(ContextCallerKey, "anonymous")
				c.Next()
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			c.Abort()
			return
		}

		if _, ok := keys[apiKey]; !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			c.Abort()
			return
		}

		c.Set(ContextCallerKey, apiKey)
		c.Next()
	}
}

// CallerID returns the identity set by AuthMiddleware.
func CallerID(c *gin.Context) string {
	if v, ok := c.Get(ContextCallerKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "anonymous"
}
