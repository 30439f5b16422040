package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 定义业务监控指标
type BusinessMetrics struct {
	PayoutTotal           *prometheus.CounterVec   // 按链/结果统计的收款方转账
	PayoutAmountUSD       *prometheus.CounterVec   // 按链统计的转账金额 (USD)
	FeeRevenueUSD         *prometheus.CounterVec   // 已确认的手续费收入 (USD)
	FeeTransfersDeferred  *prometheus.CounterVec   // 因国库账户缺失等原因延期的手续费转账
	FeeTransfersFailed    *prometheus.CounterVec   // 手续费转账失败
	SweeperJobDuration    *prometheus.HistogramVec // 手续费补扫任务耗时
	SettlementDuration    *prometheus.HistogramVec // 单次结算耗时
	OracleCacheHits       prometheus.Counter       // 价格缓存命中
	OracleStaleServed     prometheus.Counter       // 限流期间回退到过期价格
	ProviderFailovers     *prometheus.CounterVec   // 节点故障转移次数
	AddressValidationWarn *prometheus.CounterVec   // 地址形状校验告警 (不阻断)
	DepositAmountTotal    *prometheus.CounterVec   // 充值金额
}

// Global Metrics Instance
var Business *BusinessMetrics

// InitBusinessMetrics 初始化业务指标
func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		PayoutTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_payout_total",
			Help: "The total number of recipient payouts",
		}, []string{"chain", "result"}),
		PayoutAmountUSD: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_payout_amount_usd_total",
			Help: "The total USD amount of recipient payouts",
		}, []string{"chain"}),
		FeeRevenueUSD: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_fee_revenue_usd_total",
			Help: "The total USD amount of collected fees",
		}, []string{"chain"}),
		FeeTransfersDeferred: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_fee_transfers_deferred_total",
			Help: "Fee transfers left pending for the background sweeper",
		}, []string{"chain", "reason"}),
		FeeTransfersFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_fee_transfers_failed_total",
			Help: "Fee transfers recorded as failed",
		}, []string{"chain"}),
		SweeperJobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlement_sweeper_job_duration_seconds",
			Help:    "Duration of pending fee sweep jobs",
			Buckets: prometheus.DefBuckets,
		}, []string{"chain"}),
		SettlementDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "End to end duration of settlement requests",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"chain", "kind"}),
		OracleCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "settlement_oracle_cache_hits_total",
			Help: "Price oracle cache hits",
		}),
		OracleStaleServed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "settlement_oracle_stale_served_total",
			Help: "Stale prices served while the oracle is backing off",
		}),
		ProviderFailovers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_provider_failovers_total",
			Help: "Times a chain call failed over to a fallback endpoint",
		}, []string{"chain"}),
		AddressValidationWarn: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_address_validation_warn_total",
			Help: "Address shape validation warnings (non-blocking)",
		}, []string{"chain"}),
		DepositAmountTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_deposit_amount_total",
			Help: "The total amount of observed deposits",
		}, []string{"chain"}),
	}
}
