package engine

import (
	"sync"
	"time"

	"github.com/GoPolymarket/riskgate/internal/model"
	"github.com/GoPolymarket/riskgate/internal/pkg/logger"
	"github.com/GoPolymarket/riskgate/internal/pkg/metrics"
)

// BreakerManager holds circuit breakers at three independent scopes per gate
// type: one global set, plus lazily created per-user and per-market sets.
// A trade is blocked for a gate when ANY applicable breaker is tripped.
//
// Breakers trip when the cumulative (non-windowed) violation counter at
// their scope reaches the threshold, and clear lazily on the first check
// after lastTriggered+duration, or via an explicit admin reset.
type BreakerManager struct {
	mu       sync.Mutex
	template [model.NumGateTypes]model.CircuitBreaker
	global   [model.NumGateTypes]model.CircuitBreaker
	users    map[string]*[model.NumGateTypes]model.CircuitBreaker
	markets  map[string]*[model.NumGateTypes]model.CircuitBreaker
}

func NewBreakerManager(template [model.NumGateTypes]model.CircuitBreaker) *BreakerManager {
	return &BreakerManager{
		template: template,
		global:   template,
		users:    make(map[string]*[model.NumGateTypes]model.CircuitBreaker),
		markets:  make(map[string]*[model.NumGateTypes]model.CircuitBreaker),
	}
}

// Tripped reports whether any breaker applicable to (gate, user, market) is
// currently tripped, clearing expired trips as it goes. Scopes are checked
// global first, then user, then market.
func (m *BreakerManager) Tripped(gate model.GateType, user, market string, now time.Time) (model.BreakerScope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tripActive(&m.global[gate], now) {
		return model.ScopeGlobal, true
	}
	if set, ok := m.users[user]; ok && m.tripActive(&set[gate], now) {
		return model.ScopeUser, true
	}
	if set, ok := m.markets[market]; ok && m.tripActive(&set[gate], now) {
		return model.ScopeMarket, true
	}
	return "", false
}

// tripActive lazily clears a trip whose duration has elapsed.
func (m *BreakerManager) tripActive(b *model.CircuitBreaker, now time.Time) bool {
	if !b.IsTriggered {
		return false
	}
	if !now.Before(b.LastTriggered.Add(b.Duration)) {
		b.IsTriggered = false
		return false
	}
	return true
}

// OnViolation bumps the cumulative counter at each scope and trips any
// breaker whose counter has reached its threshold. The counters are never
// decremented, so once past the threshold a breaker re-trips on the next
// violation after it clears.
func (m *BreakerManager) OnViolation(gate model.GateType, user, market string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bump(&m.global[gate], gate, model.ScopeGlobal, now)
	m.bump(&m.userSet(user)[gate], gate, model.ScopeUser, now)
	m.bump(&m.marketSet(market)[gate], gate, model.ScopeMarket, now)
}

func (m *BreakerManager) bump(b *model.CircuitBreaker, gate model.GateType, scope model.BreakerScope, now time.Time) {
	b.Violations++
	if b.IsTriggered || b.Violations < b.Threshold {
		return
	}
	b.IsTriggered = true
	b.LastTriggered = now
	b.TriggerCount++
	metrics.BreakerTrips.WithLabelValues(string(scope), gate.String()).Inc()
	logger.Warn("circuit breaker tripped",
		"scope", string(scope),
		"gate", gate.String(),
		"violations", b.Violations,
		"until", now.Add(b.Duration))
}

// Reset clears the breaker for one scope. With empty user and market the
// global breaker is reset. The cumulative counter is zeroed as well so the
// breaker does not re-trip on the very next violation after an explicit
// operator reset.
func (m *BreakerManager) Reset(gate model.GateType, user, market string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case user != "":
		if set, ok := m.users[user]; ok {
			clearBreaker(&set[gate])
		}
	case market != "":
		if set, ok := m.markets[market]; ok {
			clearBreaker(&set[gate])
		}
	default:
		clearBreaker(&m.global[gate])
	}
}

func clearBreaker(b *model.CircuitBreaker) {
	b.IsTriggered = false
	b.Violations = 0
}

// UserBreakers returns a copy of the breaker set for a user, creating
// nothing. Used by the query surface.
func (m *BreakerManager) UserBreakers(user string) ([model.NumGateTypes]model.CircuitBreaker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.users[user]
	if !ok {
		return [model.NumGateTypes]model.CircuitBreaker{}, false
	}
	return *set, true
}

// GlobalBreakers returns a copy of the global breaker set.
func (m *BreakerManager) GlobalBreakers() [model.NumGateTypes]model.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.global
}

func (m *BreakerManager) userSet(user string) *[model.NumGateTypes]model.CircuitBreaker {
	set, ok := m.users[user]
	if !ok {
		fresh := m.template
		set = &fresh
		m.users[user] = set
	}
	return set
}

func (m *BreakerManager) marketSet(market string) *[model.NumGateTypes]model.CircuitBreaker {
	set, ok := m.markets[market]
	if !ok {
		fresh := m.template
		set = &fresh
		m.markets[market] = set
	}
	return set
}
