package middleware

import (
	"bytes"
	"io"
	"time"

	"github.com/GoPolymarket/riskgate/internal/audit"
	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ContextAuditLog = "audit_log"

// bodyLogWriter wraps the ResponseWriter to capture the response body.
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// AuditMiddleware records admin mutations: who changed which limits,
// breakers or flags, with what body and result. Mounted on admin routes
// only; query traffic is not audited.
func AuditMiddleware(auditSvc *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.New().String()
		c.Header("X-Request-ID", reqID)

		var reqBodyBytes []byte
		if c.Request.Body != nil {
			reqBodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(reqBodyBytes))
		}

		entry := &model.AuditLog{
			ID:        reqID,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			CreatedAt: start,
			Context:   make(map[string]interface{}),
		}
		c.Set(ContextAuditLog, entry)

		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		entry.Actor = CallerID(c)
		entry.RequestBody = string(reqBodyBytes)
		entry.StatusCode = c.Writer.Status()
		entry.ResponseBody = blw.body.String()
		entry.LatencyMs = time.Since(start).Milliseconds()

		auditSvc.Log(entry)
	}
}

// AddAuditContext lets handlers attach business context to the audit entry.
func AddAuditContext(c *gin.Context, key string, value interface{}) {
	if val, exists := c.Get(ContextAuditLog); exists {
		if entry, ok := val.(*model.AuditLog); ok {
			entry.Context[key] = value
		}
	}
}
