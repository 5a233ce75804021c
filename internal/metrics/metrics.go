// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、HTTPミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordRSVP(status string)
	RecordAttendanceOutcome(outcome string)
	RecordUploadRequested()
	RecordUploadConfirmed()
	RecordUploadRejected(code string)
	RecordPendingPhotosPurged(count int)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	rsvps            *prometheus.CounterVec
	attendance       *prometheus.CounterVec
	uploadsRequested prometheus.Counter
	uploadsConfirmed prometheus.Counter
	uploadsRejected  *prometheus.CounterVec
	pendingPurged    prometheus.Counter
	httpStatus       *prometheus.CounterVec
	requestLatency   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		rsvps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hashtrail_rsvp_total",
			Help: "ステータス別のRSVP保存数",
		}, []string{"status"}),
		attendance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hashtrail_attendance_marked_total",
			Help: "結果別の出席記録数（created / already_existed / conflict）",
		}, []string{"outcome"}),
		uploadsRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hashtrail_photo_upload_requested_total",
			Help: "発行したアップロードURLの合計数",
		}),
		uploadsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hashtrail_photo_upload_confirmed_total",
			Help: "確認済みになった写真の合計数",
		}),
		uploadsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hashtrail_photo_upload_rejected_total",
			Help: "エラーコード別の写真アップロード拒否数",
		}, []string{"code"}),
		pendingPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hashtrail_pending_photos_purged_total",
			Help: "掃除された確認待ち写真の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hashtrail_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hashtrail_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.rsvps,
		c.attendance,
		c.uploadsRequested,
		c.uploadsConfirmed,
		c.uploadsRejected,
		c.pendingPurged,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordRSVP はRSVPの保存を記録する。
func (c *Collector) RecordRSVP(status string) {
	c.rsvps.WithLabelValues(status).Inc()
}

// RecordAttendanceOutcome は出席記録の結果を記録する。
func (c *Collector) RecordAttendanceOutcome(outcome string) {
	c.attendance.WithLabelValues(outcome).Inc()
}

// RecordUploadRequested はアップロードURLの発行を記録する。
func (c *Collector) RecordUploadRequested() {
	c.uploadsRequested.Inc()
}

// RecordUploadConfirmed は写真の確認を記録する。
func (c *Collector) RecordUploadConfirmed() {
	c.uploadsConfirmed.Inc()
}

// RecordUploadRejected はアップロード関連の拒否をエラーコード別に記録する。
func (c *Collector) RecordUploadRejected(code string) {
	c.uploadsRejected.WithLabelValues(code).Inc()
}

// RecordPendingPhotosPurged は掃除した確認待ち写真の数を記録する。
func (c *Collector) RecordPendingPhotosPurged(count int) {
	c.pendingPurged.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordRSVP(string) {}
func (NopCollector) RecordAttendanceOutcome(string) {}
func (NopCollector) RecordUploadRequested() {}
func (NopCollector) RecordUploadConfirmed() {}
func (NopCollector) RecordUploadRejected(string) {}
func (NopCollector) RecordPendingPhotosPurged(int) {}
func (NopCollector) RecordHTTPStatus(int) {}
func (NopCollector) RecordRequestLatency(time.Duration) {}

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

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
