package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/cache"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/config"
)

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.LogLevel = "debug"
	return cfg
}

func TestStart_LogsWithComponent(t *testing.T) {
	var buf bytes.Buffer
	rt, err := Start(context.Background(), "aoi-bounds", testConfig(), Options{LogOut: &buf})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = rt.Close(context.Background()) }()

	out := buf.String()
	if !strings.Contains(out, `"component":"aoi-bounds"`) || !strings.Contains(out, `"run_id"`) {
		t.Fatalf("log line missing fields: %s", out)
	}
	if rt.MetricsAddr() != "" {
		t.Fatal("metrics server must be off by default")
	}
}

func TestStart_MetricsServer(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = "127.0.0.1:0"

	rt, err := Start(context.Background(), "tile-select", cfg, Options{LogOut: io.Discard})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rt.Progress.Step("download")

	resp, err := http.Get("http://" + rt.MetricsAddr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), `lidar_command_info{`) {
		t.Fatalf("metrics body missing build info")
	}

	resp, err = http.Get("http://" + rt.MetricsAddr() + "/progress")
	if err != nil {
		t.Fatalf("GET /progress: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "download") {
		t.Fatalf("progress=%s", body)
	}

	if err := rt.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCatalogCache_Drivers(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cases := []struct {
		driver string
		want   string
	}{
		{"none", ""},
		{"memory", "memory"},
		{"redis", "redis"},
	}
	for _, tc := range cases {
		t.Run(tc.driver, func(t *testing.T) {
			cfg := testConfig()
			cfg.CatalogCache.Driver = tc.driver
			cfg.CatalogCache.RedisAddr = mr.Addr()
			rt, err := Start(ctx, "test", cfg, Options{LogOut: io.Discard})
			if err != nil {
				t.Fatal(err)
			}
			defer func() { _ = rt.Close(ctx) }()

			c, err := rt.CatalogCache(ctx)
			if err != nil {
				t.Fatalf("CatalogCache: %v", err)
			}
			var got string
			if c != nil {
				got = c.Name()
			}
			if got != tc.want {
				t.Fatalf("backend=%q want %q", got, tc.want)
			}
			if c != nil {
				roundTrip(t, c)
			}
		})
	}
}

func roundTrip(t *testing.T, c cache.Interface) {
	t.Helper()
	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("Get=%q,%v,%v", v, ok, err)
	}
}

func TestCatalogCache_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.CatalogCache.Driver = "memcached"
	rt, err := Start(context.Background(), "test", cfg, Options{LogOut: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = rt.Close(context.Background()) }()

	if _, err := rt.CatalogCache(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	// the catalog client still builds without a cache
	if _, err := rt.Catalog(context.Background()); err != nil {
		t.Fatalf("Catalog: %v", err)
	}
}
