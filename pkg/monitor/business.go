package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 定义业务监控指标
type BusinessMetrics struct {
	SettledTotal            *prometheus.CounterVec   // variant, result
	SettledAmountTotal      *prometheus.CounterVec   // variant
	PayoutAmountTotal       *prometheus.CounterVec   // variant
	WithdrawalTotal         *prometheus.CounterVec   // status
	InsufficientFundsTotal  prometheus.Counter
	ProxyDemotionsTotal     prometheus.Counter
	IngestSweepDuration     prometheus.Histogram
	BalanceSyncFailures     prometheus.Counter
	DuplicateDiscardedTotal *prometheus.CounterVec // stage: ingest, settle, withdraw
}

// Global Metrics Instance
var Business *BusinessMetrics

// InitBusinessMetrics 初始化业务指标
func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		SettledTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settler_settled_total",
			Help: "The total number of settled payments",
		}, []string{"variant", "result"}),
		SettledAmountTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settler_settled_amount_total",
			Help: "The total amount of settled payments",
		}, []string{"variant"}),
		PayoutAmountTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settler_payout_amount_total",
			Help: "The total amount of computed payouts",
		}, []string{"variant"}),
		WithdrawalTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settler_withdrawal_total",
			Help: "Withdrawal records finalized, by status",
		}, []string{"status"}),
		InsufficientFundsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "settler_wallet_insufficient_funds_total",
			Help: "Withdrawals that found no eligible payout wallet",
		}),
		ProxyDemotionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "settler_proxy_demotions_total",
			Help: "Collection accounts demoted by the proxy health monitor",
		}),
		IngestSweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "settler_ingest_sweep_duration_seconds",
			Help:    "Duration of bulk ingestion sweeps",
			Buckets: prometheus.DefBuckets,
		}),
		BalanceSyncFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "settler_balance_sync_failures_total",
			Help: "Per-account balance sync failures (isolated, batch continues)",
		}),
		DuplicateDiscardedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settler_duplicate_discarded_total",
			Help: "Items discarded as already-seen, by pipeline stage",
		}, []string{"stage"}),
	}
}
