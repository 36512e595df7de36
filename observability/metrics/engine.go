package metrics

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks committed operations and the value movements they
// request from the host.
type EngineMetrics struct {
	operations   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	effects      *prometheus.CounterVec
	effectAmount *prometheus.CounterVec
	roundingDust *prometheus.CounterVec
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics
)

// Engine returns the lazily-initialised engine metrics registered with the
// default prometheus registry.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = newEngineMetrics()
		prometheus.MustRegister(
			engineRegistry.operations,
			engineRegistry.latency,
			engineRegistry.effects,
			engineRegistry.effectAmount,
			engineRegistry.roundingDust,
		)
	})
	return engineRegistry
}

// NewEngineMetrics builds an unregistered set of collectors and registers them
// with reg. Tests use a private registry to avoid global state.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := newEngineMetrics()
	if reg != nil {
		reg.MustRegister(m.operations, m.latency, m.effects, m.effectAmount, m.roundingDust)
	}
	return m
}

func newEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vegov",
			Name:      "operations_total",
			Help:      "Operations executed segmented by type and outcome.",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vegov",
			Name:      "operation_duration_seconds",
			Help:      "Execution latency of operations including commit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		effects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vegov",
			Name:      "effects_total",
			Help:      "Outbound host effects emitted by committed operations.",
		}, []string{"kind"}),
		effectAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vegov",
			Name:      "effect_amount_total",
			Help:      "Cumulative amount moved by host effects per kind and denomination.",
		}, []string{"kind", "denom"}),
		roundingDust: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vegov",
			Name:      "rounding_dust",
			Help:      "Cumulative remainder left in custody by floor division.",
		}, []string{"stream", "denom"}),
	}
}

// RecordOperation counts one executed operation.
func (m *EngineMetrics) RecordOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	op := normalise(operation)
	m.operations.WithLabelValues(op, normalise(outcome)).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// RecordEffect counts an effect and adds its amount.
func (m *EngineMetrics) RecordEffect(kind, denom string, amount *big.Int) {
	if m == nil {
		return
	}
	m.effects.WithLabelValues(normalise(kind)).Inc()
	if v := toFloat(amount); v > 0 {
		m.effectAmount.WithLabelValues(normalise(kind), denom).Add(v)
	}
}

// RecordDust adds a rounding remainder for the stream.
func (m *EngineMetrics) RecordDust(stream, denom string, amount *big.Int) {
	if m == nil {
		return
	}
	if v := toFloat(amount); v > 0 {
		m.roundingDust.WithLabelValues(normalise(stream), denom).Add(v)
	}
}

func normalise(label string) string {
	trimmed := strings.TrimSpace(strings.ToLower(label))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

func toFloat(amount *big.Int) float64 {
	if amount == nil || amount.Sign() <= 0 {
		return 0
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f
}
