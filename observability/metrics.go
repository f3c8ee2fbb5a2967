package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	settlementOnce     sync.Once
	settlementRegistry *SettlementMetrics

	payoutMetricsOnce sync.Once
	payoutRegistry    *PayoutMetrics
)

// ModuleMetrics returns the lazily-initialised registry recording HTTP API
// activity per module and route.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by module, route and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by module, route and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "settle",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected by throttling or replay policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of an API request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" or
// "replayed_signature" so dashboards and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// SettlementMetrics tracks the settlement pipeline.
type SettlementMetrics struct {
	settled    *prometheus.CounterVec
	rejections *prometheus.CounterVec
	proceeds   *prometheus.CounterVec
	reserveFee *prometheus.CounterVec
	reward     *prometheus.CounterVec
	deferred   *prometheus.CounterVec
	inFlight   prometheus.Gauge
	latency    prometheus.Histogram
}

// Settlement exposes the metrics registry for the settlement engine.
func Settlement() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementRegistry = &SettlementMetrics{
			settled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "engine",
				Name:      "settlements_total",
				Help:      "Count of committed settlements segmented by output asset.",
			}, []string{"asset"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "engine",
				Name:      "rejections_total",
				Help:      "Count of rejected hook calls segmented by stage and reason.",
			}, []string{"stage", "reason"}),
			proceeds: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "engine",
				Name:      "proceeds_total",
				Help:      "Sum of settled proceeds per output asset in base units.",
			}, []string{"asset"}),
			reserveFee: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "engine",
				Name:      "reserve_fee_total",
				Help:      "Sum of reserve fees credited per asset in base units.",
			}, []string{"asset"}),
			reward: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "engine",
				Name:      "reward_total",
				Help:      "Sum of surplus rewards credited per asset in base units.",
			}, []string{"asset"}),
			deferred: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "engine",
				Name:      "deferred_payouts_total",
				Help:      "Count of trader payouts moved into the reward vault after a failed push.",
			}, []string{"asset"}),
			inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "settle",
				Subsystem: "engine",
				Name:      "sessions_in_flight",
				Help:      "Number of settlement sessions between before-swap and after-swap.",
			}),
			latency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "settle",
				Subsystem: "engine",
				Name:      "session_duration_seconds",
				Help:      "Time between before-swap admission and after-swap commit.",
				Buckets:   prometheus.DefBuckets,
			}),
		}
		prometheus.MustRegister(
			settlementRegistry.settled,
			settlementRegistry.rejections,
			settlementRegistry.proceeds,
			settlementRegistry.reserveFee,
			settlementRegistry.reward,
			settlementRegistry.deferred,
			settlementRegistry.inFlight,
			settlementRegistry.latency,
		)
	})
	return settlementRegistry
}

// RecordSettled accounts for a committed settlement.
func (m *SettlementMetrics) RecordSettled(asset common.Address, proceeds, reserveFee, reward *big.Int, deferred bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := labelAsset(asset)
	m.settled.WithLabelValues(label).Inc()
	m.proceeds.WithLabelValues(label).Add(bigToFloat(proceeds))
	m.reserveFee.WithLabelValues(label).Add(bigToFloat(reserveFee))
	m.reward.WithLabelValues(label).Add(bigToFloat(reward))
	if deferred {
		m.deferred.WithLabelValues(label).Inc()
	}
	if elapsed > 0 {
		m.latency.Observe(elapsed.Seconds())
	}
}

// RecordRejection increments the rejection counter.
func (m *SettlementMetrics) RecordRejection(stage, reason string) {
	if m == nil {
		return
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "unspecified"
	}
	m.rejections.WithLabelValues(stage, reason).Inc()
}

// SetInFlight publishes the number of open sessions.
func (m *SettlementMetrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.inFlight.Set(float64(n))
}

// PayoutMetrics wraps collectors tracking vault claims and reserve withdrawals.
type PayoutMetrics struct {
	claims       *prometheus.CounterVec
	withdrawals  *prometheus.CounterVec
	errors       *prometheus.CounterVec
	pauseEngaged prometheus.Gauge
}

// Payouts exposes the metrics registry for claim and withdrawal paths.
func Payouts() *PayoutMetrics {
	payoutMetricsOnce.Do(func() {
		payoutRegistry = &PayoutMetrics{
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "payouts",
				Name:      "claimed_total",
				Help:      "Sum of rewards claimed per asset in base units.",
			}, []string{"asset"}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "payouts",
				Name:      "reserve_withdrawn_total",
				Help:      "Sum of reserve withdrawals per asset in base units.",
			}, []string{"asset"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "payouts",
				Name:      "errors_total",
				Help:      "Count of payout failures segmented by asset and reason.",
			}, []string{"asset", "reason"}),
			pauseEngaged: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "settle",
				Subsystem: "payouts",
				Name:      "pause_engaged",
				Help:      "Indicates whether the circuit breaker is engaged (1) or not (0).",
			}),
		}
		prometheus.MustRegister(
			payoutRegistry.claims,
			payoutRegistry.withdrawals,
			payoutRegistry.errors,
			payoutRegistry.pauseEngaged,
		)
	})
	return payoutRegistry
}

// RecordClaim adds a successful claim.
func (m *PayoutMetrics) RecordClaim(asset common.Address, amount *big.Int) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(labelAsset(asset)).Add(bigToFloat(amount))
}

// RecordWithdrawal adds a successful reserve withdrawal.
func (m *PayoutMetrics) RecordWithdrawal(asset common.Address, amount *big.Int) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(labelAsset(asset)).Add(bigToFloat(amount))
}

// RecordError increments the error counter for the supplied reason.
func (m *PayoutMetrics) RecordError(asset common.Address, reason string) {
	if m == nil {
		return
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "unspecified"
	}
	m.errors.WithLabelValues(labelAsset(asset), reason).Inc()
}

// SetPause toggles the pause_engaged gauge.
func (m *PayoutMetrics) SetPause(engaged bool) {
	if m == nil {
		return
	}
	if engaged {
		m.pauseEngaged.Set(1)
		return
	}
	m.pauseEngaged.Set(0)
}

func labelAsset(asset common.Address) string {
	if asset == (common.Address{}) {
		return "unknown"
	}
	return strings.ToLower(asset.Hex())
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(value).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
