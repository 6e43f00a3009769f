package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestProvider_GathersDefaultRegistry_AndCommandInfo(t *testing.T) {
	p := Init(Config{Command: "dtm-pipeline", Build: BuildInfo{Version: "test", Revision: "r", BuildDate: "now"}})

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "smoke"})
	p.Register(g)
	g.Set(42)

	if n := testutil.CollectAndCount(g); n == 0 {
		t.Fatalf("expected at least 1 sample from test_gauge, got %d", n)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()

	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go_goroutines from the default registry; got:\n%s", body)
	}
	if !strings.Contains(body, `lidar_command_info{`) || !strings.Contains(body, `command="dtm-pipeline"`) {
		t.Fatalf("expected lidar_command_info in payload; got:\n%s", body)
	}
	if !strings.Contains(body, "test_gauge 42") {
		t.Fatalf("expected registered gauge in payload; got:\n%s", body)
	}
}

func TestProvider_DefaultVersion(t *testing.T) {
	p := Init(Config{Command: "aoi-bounds"})
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), `version="dev"`) {
		t.Fatalf("expected version=dev label; got:\n%s", rr.Body.String())
	}
}
