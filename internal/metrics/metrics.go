// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 照会結果の分類。
const (
	OutcomeSuccess      = "success"
	OutcomeServiceError = "service_error"
	OutcomeFetchFailed  = "fetch_failed"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 列車照会クライアントとスタブサーバーから利用する。
type MetricsCollector interface {
	RecordQuery(endpoint, outcome string)
	RecordQueryLatency(endpoint string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordFavoriteOperation(op string, success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	queries      *prometheus.CounterVec
	queryLatency *prometheus.HistogramVec
	httpStatus   *prometheus.CounterVec
	favoriteOps  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainboard_queries_total",
			Help: "列車照会APIの呼び出し数（エンドポイント・結果別）",
		}, []string{"endpoint", "outcome"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trainboard_query_latency_seconds",
			Help:    "列車照会APIのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainboard_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		favoriteOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainboard_favorite_operations_total",
			Help: "お気に入り操作の実行数（操作・成否別）",
		}, []string{"op", "result"}),
	}

	reg.MustRegister(
		c.queries,
		c.queryLatency,
		c.httpStatus,
		c.favoriteOps,
	)

	return c
}

// RecordQuery は照会結果を記録する。
func (c *Collector) RecordQuery(endpoint, outcome string) {
	c.queries.WithLabelValues(endpoint, outcome).Inc()
}

// RecordQueryLatency は照会のレイテンシを記録する。
func (c *Collector) RecordQueryLatency(endpoint string, duration time.Duration) {
	c.queryLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFavoriteOperation はお気に入り操作の成否を記録する。
func (c *Collector) RecordFavoriteOperation(op string, success bool) {
	result := "ok"
	if !success {
		result = "error"
	}
	c.favoriteOps.WithLabelValues(op, result).Inc()
}

// Nop は何も記録しないMetricsCollector。メトリクス不要なCLI実行で使う。
type Nop struct{}

func (Nop) RecordQuery(string, string)               {}
func (Nop) RecordQueryLatency(string, time.Duration) {}
func (Nop) RecordHTTPStatus(int)                     {}
func (Nop) RecordFavoriteOperation(string, bool)     {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewStatusMiddleware はレスポンスのステータスコードをCollectorに記録するミドルウェアを返す。
func NewStatusMiddleware(c MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)
			c.RecordHTTPStatus(rec.statusCode)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.written = true
	return sr.ResponseWriter.Write(b)
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
