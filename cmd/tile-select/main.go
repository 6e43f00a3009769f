package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/app"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/archive"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/catalog"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/config"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/download"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/logger"
	h3mapper "github.com/mohammed-shakir/nz-lidar-aoi/internal/mapper/h3"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/pdal"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/tileindex"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	d := config.Defaults()
	d.AOI = config.SelectionAOI
	cfg := config.FromEnvWith(d)
	fs := flag.NewFlagSet("tile-select", flag.ContinueOnError)
	fs.SetOutput(stderr)
	app.BindAOIFlags(fs, &cfg)
	app.BindCatalogFlags(fs, &cfg)
	fs.StringVar(&cfg.Dataset, "dataset", cfg.Dataset, "dataset short name")
	fs.StringVar(&cfg.VCRSProperty, "vcrs-property", cfg.VCRSProperty, "catalog property reported per dataset")
	fs.StringVar(&cfg.WorkDir, "dir", cfg.WorkDir, "directory for the tile index archive")
	fs.StringVar(&cfg.DownloadDir, "downloads", cfg.DownloadDir, "directory receiving the tiles")
	skipTiles := fs.Bool("list-only", false, "print the tile URLs without downloading them")
	jobPath := fs.String("job", "", "also write a crop/merge/DTM job file for the selected tiles")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithDataset(ctx, cfg.Dataset)

	rt, err := app.Start(ctx, "tile-select", cfg, app.Options{LogOut: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "startup: %v\n", err)
		return 1
	}
	defer func() { _ = rt.Close(context.Background()) }()
	log := rt.Log.With("dataset", cfg.Dataset)

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
		log.Error("catalog query failed", "err", err)
		return 1
	}
	if missing := res.AnnotateVerticalCRS(cfg.VCRSProperty); len(missing) > 0 {
		log.Warn("datasets without crs property", "property", cfg.VCRSProperty, "datasets", missing)
	}
	fmt.Fprintf(stdout, "Number of Datasets = %d\n", len(res.Datasets))
	fmt.Fprintf(stdout, "AOI contains the following datasets:\n%s\n", strings.Join(res.Names(), "\n"))
	fmt.Fprintf(stdout, "AOI contains the following short names:\n%s\n", strings.Join(res.ShortNames(), "\n"))
	fmt.Fprintf(stdout, "AOI contains the following Vertical CRS EPSG codes:\n%s\n", strings.Join(res.VerticalCRS(), "\n"))

	ds, err := res.Find(cfg.Dataset)
	if err != nil {
		log.Error("dataset not available for aoi", "err", err)
		return 1
	}
	fmt.Fprintf(stdout, "Tile Index URL is: \n%s\n", catalog.TileIndexURL(cfg.BulkBaseURL, ds.AlternateName))

	dl := rt.Downloader()
	rt.Progress.Step("tileindex")
	idx, err := dl.TileIndexes(ctx, cfg.BulkBaseURL, []string{ds.AlternateName}, cfg.WorkDir, download.FailFast)
	if err != nil {
		log.Error("tile index download failed", "err", err)
		return 1
	}
	zipPath := idx[0].Path
	dir := archive.ExtractDir(zipPath)
	if _, err := archive.Extract(zipPath, dir); err != nil {
		log.Error("extract tile index", "zip", zipPath, "err", err)
		return 1
	}
	fmt.Fprintf(stdout, "Extracted %s to %s/\n", filepath.Base(zipPath), dir)

	shpPath, err := archive.FindShapefile(dir)
	if err != nil {
		log.Error("locate tile index shapefile", "err", err)
		return 1
	}
	ix, err := tileindex.Load(shpPath)
	if err != nil {
		log.Error("load tile index", "path", shpPath, "err", err)
		return 1
	}
	log.Info("tile index loaded", "tiles", ix.Len(), "srid", ix.SRID)

	rt.Progress.Step("select")
	selected := ix.Intersecting(cfg.AOI)
	urls := tileindex.URLsOf(selected)
	fmt.Fprintln(stdout, "LAZ Tile URLs within bounding box:")
	for _, u := range urls {
		fmt.Fprintln(stdout, u)
	}
	if cells, err := footprintCells(h3mapper.New(), selected, cfg.H3Res); err != nil {
		log.Warn("h3 coverage skipped", "res", cfg.H3Res, "err", err)
	} else {
		fmt.Fprintf(stdout, "H3 res %d cells covering selected tiles: %d\n", cfg.H3Res, len(cells))
	}

	if *jobPath != "" {
		opts := pdal.DTMOptions{MeanK: cfg.Outlier.MeanK, Multiplier: cfg.Outlier.Multiplier, Resolution: cfg.DTMResolution}
		if err := pdal.WriteJob(*jobPath, pdal.NewJob(cfg.AOI, urls, cfg.COPCOutput, cfg.DTMOutput, opts)); err != nil {
			log.Error("write job", "err", err)
			return 1
		}
		log.Info("job written", "path", *jobPath, "tiles", len(urls))
	}
	if *skipTiles {
		return 0
	}

	rt.Progress.Step("download")
	results, err := dl.Batch(ctx, urls, cfg.DownloadDir, download.ContinueOnError)
	if err != nil {
		log.Error("tile download aborted", "err", err)
		return 1
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(stdout, "Failed to download %s: %v\n", r.URL, r.Err)
			continue
		}
		fmt.Fprintf(stdout, "Saved to %s\n", r.Path)
	}
	s := download.Summarize(results)
	log.Info("tiles downloaded", "ok", s.OK, "failed", s.Failed, "bytes", s.Bytes)
	return 0
}

// footprintCells is the sorted union of the H3 cells covering each footprint.
func footprintCells(m *h3mapper.Mapper, recs []model.TileRecord, res int) (model.Cells, error) {
	var all model.Cells
	for _, rec := range recs {
		cells, err := m.CellsForPolygon(rec.Footprint, res)
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", rec.URL, err)
		}
		all = append(all, cells...)
	}
	slices.Sort(all)
	return slices.Compact(all), nil
}
