// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// httpDurationBuckets はHTTPリクエスト処理時間のヒストグラムバケット（秒）。
var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	ObserveHTTPRequest(method, route string, statusCode int, duration time.Duration)
	IncUsersRegistered()
	RecordUpstreamRequest(endpoint, result string)
	RecordAlertTriggered(conditionType string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpDuration     *prometheus.HistogramVec
	usersRegistered  prometheus.Counter
	upstreamRequests *prometheus.CounterVec
	alertsTriggered  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: httpDurationBuckets,
		}, []string{"method", "route", "status_code"}),
		usersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "登録されたユーザーの合計数",
		}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenki_upstream_requests_total",
			Help: "天気プロバイダーへのリクエスト数",
		}, []string{"endpoint", "result"}),
		alertsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenki_alerts_triggered_total",
			Help: "成立した天気条件の数",
		}, []string{"condition_type"}),
	}

	reg.MustRegister(
		c.httpDuration,
		c.usersRegistered,
		c.upstreamRequests,
		c.alertsTriggered,
	)

	return c
}

// ObserveHTTPRequest はHTTPリクエストの処理時間を記録する。
// routeにはURLそのものではなくルートパターン（例: /api/favorites/{id}）を渡す。
func (c *Collector) ObserveHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}

// IncUsersRegistered はユーザー登録数を1増やす。
func (c *Collector) IncUsersRegistered() {
	c.usersRegistered.Inc()
}

// RecordUpstreamRequest は天気プロバイダーへのリクエスト結果を記録する。
func (c *Collector) RecordUpstreamRequest(endpoint, result string) {
	c.upstreamRequests.WithLabelValues(endpoint, result).Inc()
}

// RecordAlertTriggered は成立した天気条件を記録する。
func (c *Collector) RecordAlertTriggered(conditionType string) {
	c.alertsTriggered.WithLabelValues(conditionType).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// workerプロセスのメトリクス公開に使用する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
