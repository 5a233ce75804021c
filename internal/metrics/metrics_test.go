package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily は指定名のメトリクスファミリーを返す。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// counterByLabel はラベル値ごとのカウンタ値を返す。
func counterByLabel(mf *dto.MetricFamily) map[string]float64 {
	out := make(map[string]float64)
	for _, m := range mf.GetMetric() {
		out[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	return out
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordRSVP_CountsByStatus はRSVPカウンタがステータス別に増加することを検証する。
func TestRecordRSVP_CountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRSVP("YES")
	c.RecordRSVP("YES")
	c.RecordRSVP("MAYBE")

	got := counterByLabel(findMetricFamily(t, reg, "hashtrail_rsvp_total"))
	if got["YES"] != 2 || got["MAYBE"] != 1 {
		t.Errorf("rsvp_total = %v", got)
	}
}

// TestRecordAttendanceOutcome_CountsByOutcome は出席記録の結果別カウンタを検証する。
func TestRecordAttendanceOutcome_CountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAttendanceOutcome("created")
	c.RecordAttendanceOutcome("already_existed")
	c.RecordAttendanceOutcome("already_existed")

	got := counterByLabel(findMetricFamily(t, reg, "hashtrail_attendance_marked_total"))
	if got["created"] != 1 || got["already_existed"] != 2 {
		t.Errorf("attendance_marked_total = %v", got)
	}
}

// TestRecordUploads はアップロード関連のカウンタを検証する。
func TestRecordUploads(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUploadRequested()
	c.RecordUploadRequested()
	c.RecordUploadConfirmed()
	c.RecordUploadRejected("FORBIDDEN")

	if v := findMetricFamily(t, reg, "hashtrail_photo_upload_requested_total").GetMetric()[0].GetCounter().GetValue(); v != 2 {
		t.Errorf("upload_requested_total = %v, want 2", v)
	}
	if v := findMetricFamily(t, reg, "hashtrail_photo_upload_confirmed_total").GetMetric()[0].GetCounter().GetValue(); v != 1 {
		t.Errorf("upload_confirmed_total = %v, want 1", v)
	}
	rejected := counterByLabel(findMetricFamily(t, reg, "hashtrail_photo_upload_rejected_total"))
	if rejected["FORBIDDEN"] != 1 {
		t.Errorf("upload_rejected_total = %v", rejected)
	}
}

// TestRecordPendingPhotosPurged_AddsCount は掃除件数が加算されることを検証する。
func TestRecordPendingPhotosPurged_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPendingPhotosPurged(10)
	c.RecordPendingPhotosPurged(5)

	if v := findMetricFamily(t, reg, "hashtrail_pending_photos_purged_total").GetMetric()[0].GetCounter().GetValue(); v != 15 {
		t.Errorf("pending_photos_purged_total = %v, want 15", v)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	mf := findMetricFamily(t, reg, "hashtrail_http_status_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	got := counterByLabel(mf)
	if got["200"] != 2 {
		t.Errorf("http_status_total{status_code=200} = %v, want 2", got["200"])
	}
	if got["404"] != 1 {
		t.Errorf("http_status_total{status_code=404} = %v, want 1", got["404"])
	}
}

// TestRecordRequestLatency_ObservesHistogram はレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(100 * time.Millisecond)
	c.RecordRequestLatency(2 * time.Second)

	h := findMetricFamily(t, reg, "hashtrail_http_request_duration_seconds").GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	// 合計は0.1 + 2.0 = 2.1秒
	if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRSVP("YES")
	c.RecordAttendanceOutcome("created")
	c.RecordHTTPStatus(200)
	c.RecordRequestLatency(500 * time.Millisecond)
	c.RecordPendingPhotosPurged(3)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	expectedMetrics := []string{
		"hashtrail_rsvp_total",
		"hashtrail_attendance_marked_total",
		"hashtrail_http_status_total",
		"hashtrail_http_request_duration_seconds",
		"hashtrail_pending_photos_purged_total",
	}
	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordUploadRequested()
	c2.RecordUploadRequested()
	c2.RecordUploadRequested()

	v1 := findMetricFamily(t, reg1, "hashtrail_photo_upload_requested_total").GetMetric()[0].GetCounter().GetValue()
	v2 := findMetricFamily(t, reg2, "hashtrail_photo_upload_requested_total").GetMetric()[0].GetCounter().GetValue()
	if v1 != 1 {
		t.Errorf("reg1 upload_requested = %v, want 1", v1)
	}
	if v2 != 2 {
		t.Errorf("reg2 upload_requested = %v, want 2", v2)
	}
}
