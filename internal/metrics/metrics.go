// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector は永続化層とHTTP層のメトリクスを収集する。
// 正系（DB）経由とフォールバック経由の操作数を分けて数えることで、
// 縮退運転がダッシュボードから見えるようにする。
type Collector struct {
	primaryOps      *prometheus.CounterVec
	fallbackOps     *prometheus.CounterVec
	duplicateJoins  prometheus.Counter
	snapshotSaveDur prometheus.Histogram
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		primaryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardmeet_store_primary_ops_total",
			Help: "正系（リレーショナルDB）で成功したストア操作の合計数",
		}, []string{"op"}),
		fallbackOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardmeet_store_fallback_ops_total",
			Help: "フォールバックへ縮退したストア操作の合計数",
		}, []string{"op"}),
		duplicateJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cardmeet_duplicate_joins_total",
			Help: "重複参加として拒否されたRSVPの合計数",
		}),
		snapshotSaveDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardmeet_snapshot_save_seconds",
			Help:    "スナップショットファイル保存のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardmeet_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.primaryOps,
		c.fallbackOps,
		c.duplicateJoins,
		c.snapshotSaveDur,
		c.httpStatus,
	)

	return c
}

// RecordPrimaryOp は正系で成功した操作を記録する。
func (c *Collector) RecordPrimaryOp(op string) {
	c.primaryOps.WithLabelValues(op).Inc()
}

// RecordFallbackOp はフォールバックへ縮退した操作を記録する。
func (c *Collector) RecordFallbackOp(op string) {
	c.fallbackOps.WithLabelValues(op).Inc()
}

// RecordDuplicateJoin は重複参加の拒否を記録する。
func (c *Collector) RecordDuplicateJoin() {
	c.duplicateJoins.Inc()
}

// RecordSnapshotSave はスナップショット保存のレイテンシを記録する。
func (c *Collector) RecordSnapshotSave(duration time.Duration) {
	c.snapshotSaveDur.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
