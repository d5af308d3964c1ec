// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はアカウント連携フローのPrometheusメトリクスを収集する。
// link.MetricsRecorderインターフェースを満たす。
type Collector struct {
	linkSuccess        prometheus.Counter
	linkFail           *prometheus.CounterVec
	persistenceFail    prometheus.Counter
	exchangeLatency    prometheus.Histogram
	upstreamHTTPStatus *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		linkSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sociallink_link_success_total",
			Help: "アカウント連携成功の合計数",
		}),
		linkFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sociallink_link_fail_total",
			Help: "アカウント連携失敗の合計数（失敗要因別）",
		}, []string{"reason"}),
		persistenceFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sociallink_persistence_fail_total",
			Help: "連携情報の永続化失敗の合計数（飲み込まれた失敗を含む）",
		}),
		exchangeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sociallink_token_exchange_latency_seconds",
			Help:    "トークン交換のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		upstreamHTTPStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sociallink_upstream_http_status_total",
			Help: "プロバイダーAPIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.linkSuccess,
		c.linkFail,
		c.persistenceFail,
		c.exchangeLatency,
		c.upstreamHTTPStatus,
	)

	return c
}

// RecordLinkSuccess は連携成功を記録する。
func (c *Collector) RecordLinkSuccess() {
	c.linkSuccess.Inc()
}

// RecordLinkFailure は連携失敗を失敗要因とともに記録する。
func (c *Collector) RecordLinkFailure(reason string) {
	c.linkFail.WithLabelValues(reason).Inc()
}

// RecordPersistenceFailure は永続化失敗を記録する。
func (c *Collector) RecordPersistenceFailure() {
	c.persistenceFail.Inc()
}

// RecordExchangeLatency はトークン交換のレイテンシを記録する。
func (c *Collector) RecordExchangeLatency(duration time.Duration) {
	c.exchangeLatency.Observe(duration.Seconds())
}

// RecordUpstreamHTTPStatus はプロバイダーAPIのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamHTTPStatus(statusCode int) {
	c.upstreamHTTPStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
