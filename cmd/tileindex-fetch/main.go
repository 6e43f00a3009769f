package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/app"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/catalog"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/config"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/download"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	d := config.Defaults()
	d.AOI = config.NationalAOI
	cfg := config.FromEnvWith(d)
	fs := flag.NewFlagSet("tileindex-fetch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	app.BindAOIFlags(fs, &cfg)
	app.BindCatalogFlags(fs, &cfg)
	fs.StringVar(&cfg.WorkDir, "dir", cfg.WorkDir, "directory receiving the tile index archives")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(ctx, "tileindex-fetch", cfg, app.Options{LogOut: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "startup: %v\n", err)
		return 1
	}
	defer func() { _ = rt.Close(context.Background()) }()
	log := rt.Log

	if err := cfg.AOI.Validate(); err != nil {
		log.Error("invalid aoi", "err", err)
		return 1
	}
	cat, err := rt.Catalog(ctx)
	if err != nil {
		log.Error("catalog client", "err", err)
		return 1
	}

	rt.Progress.Step("catalog")
	res, err := cat.Query(ctx, cfg.AOI)
	if err != nil {
		log.Error("catalog query failed", "aoi", cfg.AOI.String(), "err", err)
		return 1
	}
	printDatasets(stdout, res)

	ids := res.ShortNames()
	for _, id := range ids {
		fmt.Fprintf(stdout, "Tile Index URL is: \n%s\n", catalog.TileIndexURL(cfg.BulkBaseURL, id))
	}

	rt.Progress.Step("download")
	results, err := rt.Downloader().TileIndexes(ctx, cfg.BulkBaseURL, ids, cfg.WorkDir, download.FailFast)
	for _, r := range results {
		if r.Err == nil {
			fmt.Fprintf(stdout, "Downloaded %s to %s\n", r.URL, r.Path)
		}
	}
	if err != nil {
		log.Error("tile index download failed", "err", err)
		return 1
	}

	s := download.Summarize(results)
	log.Info("tile indexes fetched", "datasets", len(ids), "ok", s.OK, "bytes", s.Bytes)
	return 0
}

func printDatasets(w io.Writer, res *catalog.Result) {
	fmt.Fprintf(w, "Number of Datasets = %d\n", len(res.Datasets))
	fmt.Fprintf(w, "AOI contains the following datasets:\n%s\n", strings.Join(res.Names(), "\n"))
	fmt.Fprintf(w, "AOI contains the following short names:\n%s\n", strings.Join(res.ShortNames(), "\n"))
}
