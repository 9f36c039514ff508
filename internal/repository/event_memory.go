package repository

import (
	"context"
	"sync"

	"github.com/GoPolymarket/riskgate/internal/model"
)

// MemoryEventRepo is the in-process fallback event log: a bounded ring of
// recent events plus an unbounded index by ID. Events older than the ring
// capacity are dropped from listings but stay resolvable by ID.
type MemoryEventRepo struct {
	mu        sync.Mutex
	maxSize   int
	ring      []*model.RiskEvent
	nextIndex int
	byID      map[string]*model.RiskEvent
}

func NewMemoryEventRepo(maxSize int) *MemoryEventRepo {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryEventRepo{
		maxSize: maxSize,
		ring:    make([]*model.RiskEvent, 0, maxSize),
		byID:    make(map[string]*model.RiskEvent),
	}
}

func (r *MemoryEventRepo) Insert(_ context.Context, ev *model.RiskEvent) error {
	if ev == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[ev.ID] = ev
	if len(r.ring) < r.maxSize {
		r.ring = append(r.ring, ev)
		return nil
	}
	r.ring[r.nextIndex] = ev
	r.nextIndex = (r.nextIndex + 1) % r.maxSize
	return nil
}

func (r *MemoryEventRepo) GetByID(_ context.Context, id string) (*model.RiskEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

// List returns newest-first, optionally filtered by user and market.
func (r *MemoryEventRepo) List(_ context.Context, user, market string, limit int) ([]*model.RiskEvent, error) {
	if limit <= 0 || limit > r.maxSize {
		limit = r.maxSize
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]*model.RiskEvent, 0, limit)
	total := len(r.ring)
	for i := 0; i < total; i++ {
		idx := (r.nextIndex + total - 1 - i) % total
		ev := r.ring[idx]
		if ev == nil {
			continue
		}
		if user != "" && ev.User != user {
			continue
		}
		if market != "" && ev.Market != market {
			continue
		}
		results = append(results, ev)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}
