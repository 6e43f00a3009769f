package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	ExposeBuildInfo("test")
	SetCommand("tile-select")
	ObserveCatalogQuery(nil, 0.2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "app_build_info") || !strings.Contains(body, "catalog_queries_total") {
		t.Fatalf("metrics payload did not contain expected metric names; got:\n%s", body)
	}
}

func TestObserveDownload_CountsBytesAndOutcome(t *testing.T) {
	SetCommand("tileindex-fetch")
	okBefore := testutil.ToFloat64(downloadsTotal.WithLabelValues("tileindex", "ok", "tileindex-fetch"))
	errBefore := testutil.ToFloat64(downloadsTotal.WithLabelValues("tileindex", "error", "tileindex-fetch"))
	bytesBefore := testutil.ToFloat64(downloadBytesTotal.WithLabelValues("tileindex", "tileindex-fetch"))

	ObserveDownload("tileindex", 1024, nil, 0.1)
	ObserveDownload("tileindex", 0, errors.New("404"), 0.1)

	if d := testutil.ToFloat64(downloadsTotal.WithLabelValues("tileindex", "ok", "tileindex-fetch")) - okBefore; d != 1 {
		t.Fatalf("ok delta=%v want 1", d)
	}
	if d := testutil.ToFloat64(downloadsTotal.WithLabelValues("tileindex", "error", "tileindex-fetch")) - errBefore; d != 1 {
		t.Fatalf("error delta=%v want 1", d)
	}
	if d := testutil.ToFloat64(downloadBytesTotal.WithLabelValues("tileindex", "tileindex-fetch")) - bytesBefore; d != 1024 {
		t.Fatalf("bytes delta=%v want 1024", d)
	}
}

func TestObservePipeline_SetsPoints(t *testing.T) {
	ObservePipeline("crop_merge", 12345, nil)
	if got := testutil.ToFloat64(pipelinePoints.WithLabelValues("crop_merge")); got != 12345 {
		t.Fatalf("points=%v want 12345", got)
	}
}
