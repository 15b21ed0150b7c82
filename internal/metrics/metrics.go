// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証結果のラベル値
const (
	OutcomeSuccess            = "success"
	OutcomeDuplicate          = "duplicate"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeError              = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやミドルウェアから利用する。
type MetricsCollector interface {
	RecordRegister(outcome string)
	RecordLogin(outcome string)
	RecordTokenIssued()
	RecordHTTPStatus(statusCode int)
	RecordHashLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registerTotal *prometheus.CounterVec
	loginTotal    *prometheus.CounterVec
	tokensIssued  prometheus.Counter
	httpStatus    *prometheus.CounterVec
	hashLatency   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retaildesk_register_total",
			Help: "結果別のアカウント登録リクエスト数",
		}, []string{"outcome"}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retaildesk_login_total",
			Help: "結果別のログインリクエスト数",
		}, []string{"outcome"}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retaildesk_tokens_issued_total",
			Help: "発行したアクセストークンの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retaildesk_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		hashLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "retaildesk_password_hash_seconds",
			Help:    "パスワードハッシュ化・照合の所要時間（秒）",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}

	reg.MustRegister(
		c.registerTotal,
		c.loginTotal,
		c.tokensIssued,
		c.httpStatus,
		c.hashLatency,
	)

	return c
}

// RecordRegister は登録リクエストの結果を記録する。
func (c *Collector) RecordRegister(outcome string) {
	c.registerTotal.WithLabelValues(outcome).Inc()
}

// RecordLogin はログインリクエストの結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.loginTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenIssued はトークン発行を記録する。
func (c *Collector) RecordTokenIssued() {
	c.tokensIssued.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHashLatency はハッシュ化・照合のレイテンシを記録する。
func (c *Collector) RecordHashLatency(duration time.Duration) {
	c.hashLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
