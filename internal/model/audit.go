package model

import (
	"time"
)

// AuditLog records one admin mutation against the engine: who called which
// endpoint, with what body, and what came back. Query traffic is not audited.
type AuditLog struct {
	ID        string `json:"id"` // request ID (UUID)
	Actor     string `json:"actor"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	RequestBody  string `json:"request_body"`
	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body"`
	LatencyMs    int64  `json:"latency_ms"`

	// Free-form business context filled in by handlers.
	Context map[string]interface{} `json:"context"`

	CreatedAt time.Time `json:"created_at"`
}
