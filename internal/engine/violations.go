package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/shopspring/decimal"
)

// EventRepo is the append-only risk event log. Events are retained
// indefinitely unless a retention policy prunes them externally.
type EventRepo interface {
	Insert(ctx context.Context, ev *model.RiskEvent) error
	GetByID(ctx context.Context, id string) (*model.RiskEvent, error)
	List(ctx context.Context, user, market string, limit int) ([]*model.RiskEvent, error)
}

// ViolationRecorder keeps the cumulative violation counters that back
// getViolationStats. The event log itself lives in the EventRepo.
type ViolationRecorder struct {
	mu       sync.Mutex
	total    int64
	byGate   [model.NumGateTypes]int64
	byUser   map[string]int64
	byMarket map[string]int64
}

func NewViolationRecorder() *ViolationRecorder {
	return &ViolationRecorder{
		byUser:   make(map[string]int64),
		byMarket: make(map[string]int64),
	}
}

func (r *ViolationRecorder) Record(ev *model.RiskEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	r.byGate[ev.Gate]++
	r.byUser[ev.User]++
	r.byMarket[ev.Market]++
}

// UserViolations returns the cumulative violation count for a user.
func (r *ViolationRecorder) UserViolations(user string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUser[user]
}

func (r *ViolationRecorder) Stats() model.ViolationStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := model.ViolationStats{
		Total:    r.total,
		ByGate:   make(map[string]int64, model.NumGateTypes),
		ByUser:   make(map[string]int64, len(r.byUser)),
		ByMarket: make(map[string]int64, len(r.byMarket)),
	}
	for g := model.GateType(0); g < model.NumGateTypes; g++ {
		stats.ByGate[g.String()] = r.byGate[g]
	}
	for k, v := range r.byUser {
		stats.ByUser[k] = v
	}
	for k, v := range r.byMarket {
		stats.ByMarket[k] = v
	}
	return stats
}

// eventID derives a deterministic event ID from the violation inputs. A
// monotonic per-process sequence is part of the hash so two violations with
// identical inputs in the same instant cannot collide.
func eventID(user, market string, gate model.GateType, amount decimal.Decimal, ts time.Time, seq uint64) string {
	payload := fmt.Sprintf("%s|%s|%d|%s|%d|%d", user, market, gate, amount.String(), ts.UnixNano(), seq)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
