// Package app wires the shared runtime for every command: logging, metrics
// endpoint, catalog cache, event publisher and outbound HTTP.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/cache"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/cache/redisstore"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/catalog"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/config"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/httpclient"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/observability"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/server"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/download"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/events"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/health"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/logger"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/metrics"
)

var Version = "dev"

type Runtime struct {
	Cfg      config.Config
	Log      *slog.Logger
	HTTP     *http.Client
	Progress *health.Progress
	Events   events.Publisher

	metricsSrv *server.Server
	closers    []func() error
}

// Options lets tests redirect log output.
type Options struct {
	LogOut io.Writer
}

// Start builds the runtime for command. Close must be called on exit.
func Start(ctx context.Context, command string, cfg config.Config, opts Options) (*Runtime, error) {
	out := opts.LogOut
	if out == nil {
		out = os.Stderr
	}
	runID := logger.NewID()
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: command,
		RunID:     runID,
	}, out)

	rt := &Runtime{
		Cfg:      cfg,
		Log:      logger.NewSlog(&zl),
		HTTP:     httpclient.NewOutbound(cfg.HTTPTimeout),
		Progress: &health.Progress{},
		Events:   events.Noop{},
	}

	observability.SetCommand(command)
	observability.ExposeBuildInfo(Version)

	if cfg.Metrics.Enabled {
		p := metrics.Init(metrics.Config{
			Command: command,
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		srv, err := server.Start(cfg.Metrics.Addr, server.Router(p.Handler(), cfg.Metrics.Path, rt.Progress, rt.Log), rt.Log)
		if err != nil {
			return nil, fmt.Errorf("start metrics server: %w", err)
		}
		rt.metricsSrv = srv
	}

	if cfg.Events.Enabled {
		pub, err := events.NewKafka(config.Brokers(cfg.Events.Brokers), cfg.Events.Topic)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
		rt.Events = pub
		rt.closers = append(rt.closers, pub.Close)
	}

	rt.Log.Info("starting", "command", command, "version", Version, "run_id", runID)
	return rt, nil
}

// CatalogCache returns the configured cache backend, or nil for "none".
func (rt *Runtime) CatalogCache(ctx context.Context) (cache.Interface, error) {
	cc := rt.Cfg.CatalogCache
	switch cc.Driver {
	case "", "none":
		return nil, nil
	case "memory":
		return cache.NewMemory(cc.Size, cc.TTL), nil
	case "redis":
		cli, err := redisstore.New(ctx, cc.RedisAddr)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, cli.Close)
		return cache.NewRedis(cli), nil
	default:
		return nil, fmt.Errorf("unknown catalog cache driver %q", cc.Driver)
	}
}

// Catalog builds a catalog client on the configured endpoint and cache. A
// cache that cannot be reached is logged and skipped.
func (rt *Runtime) Catalog(ctx context.Context) (*catalog.Client, error) {
	c, err := rt.CatalogCache(ctx)
	if err != nil {
		rt.Log.Warn("catalog cache disabled", "driver", rt.Cfg.CatalogCache.Driver, "err", err)
		c = nil
	}
	return catalog.New(rt.HTTP, rt.Cfg.CatalogURL, catalog.Options{
		Logger:   rt.Log,
		Cache:    c,
		CacheTTL: rt.Cfg.CatalogCache.TTL,
	})
}

func (rt *Runtime) Downloader() *download.Downloader {
	return download.New(rt.HTTP, download.Options{Logger: rt.Log, Publisher: rt.Events})
}

func (rt *Runtime) MetricsAddr() string {
	if rt.metricsSrv == nil {
		return ""
	}
	return rt.metricsSrv.Addr()
}

func (rt *Runtime) Close(ctx context.Context) error {
	rt.Progress.Done()
	var first error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	rt.closers = nil
	if rt.metricsSrv != nil {
		if err := rt.metricsSrv.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
		rt.metricsSrv = nil
	}
	return first
}
