package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskgate_checks_total",
		Help: "Trade admission checks by outcome",
	}, []string{"result"})

	RiskRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskgate_risk_rejects_total",
		Help: "Blocked trade attempts by reason",
	}, []string{"reason"})

	ViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskgate_violations_total",
		Help: "Gate violations recorded, by gate type",
	}, []string{"gate"})

	BreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskgate_breaker_trips_total",
		Help: "Circuit breaker trips by scope and gate type",
	}, []string{"scope", "gate"})

	AdjustmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskgate_limit_adjustments_total",
		Help: "Dynamic limit adjustments applied",
	})

	SystemExposure = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskgate_system_exposure",
		Help: "Total system exposure across all users",
	})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riskgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
