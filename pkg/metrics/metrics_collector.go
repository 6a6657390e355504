package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 数据库连接池指标
	dbConnectionsActive prometheus.Gauge
	dbConnectionsIdle   prometheus.Gauge

	// 业务指标
	ordersCreatedTotal   prometheus.Counter
	escrowReleasedTotal  prometheus.Counter
	paymentCallsTotal    *prometheus.CounterVec
	paymentCallDuration  *prometheus.HistogramVec
}

var (
	globalCollector *MetricsCollector
	once            sync.Once
)

// GetGlobalCollector 获取全局指标收集器（单例）
func GetGlobalCollector() *MetricsCollector {
	once.Do(func() {
		globalCollector = newMetricsCollector()
	})
	return globalCollector
}

func newMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sofra_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sofra_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		dbConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sofra_db_connections_active",
				Help: "Active database connections",
			},
		),
		dbConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sofra_db_connections_idle",
				Help: "Idle database connections",
			},
		),
		ordersCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sofra_orders_created_total",
				Help: "Total number of orders created",
			},
		),
		escrowReleasedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sofra_escrow_released_total",
				Help: "Total number of escrow releases (dual confirmation completed)",
			},
		),
		paymentCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sofra_payment_calls_total",
				Help: "Total number of calls to the payment provider",
			},
			[]string{"operation", "result"},
		),
		paymentCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sofra_payment_call_duration_seconds",
				Help:    "Payment provider call latency",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *MetricsCollector) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDBStats 记录数据库连接池指标
func (m *MetricsCollector) RecordDBStats(stats sql.DBStats) {
	m.dbConnectionsActive.Set(float64(stats.InUse))
	m.dbConnectionsIdle.Set(float64(stats.Idle))
}

// RecordOrderCreated 记录订单创建
func (m *MetricsCollector) RecordOrderCreated() {
	m.ordersCreatedTotal.Inc()
}

// RecordEscrowReleased 记录托管资金释放
func (m *MetricsCollector) RecordEscrowReleased() {
	m.escrowReleasedTotal.Inc()
}

// RecordPaymentCall 记录支付服务调用
func (m *MetricsCollector) RecordPaymentCall(operation string, err error, duration time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.paymentCallsTotal.WithLabelValues(operation, result).Inc()
	m.paymentCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
