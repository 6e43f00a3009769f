package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/aoi"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/app"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/config"
	h3mapper "github.com/mohammed-shakir/nz-lidar-aoi/internal/mapper/h3"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("aoi-bounds", flag.ContinueOnError)
	fs.SetOutput(stderr)
	app.BindAOIFlags(fs, &cfg)
	fs.StringVar(&cfg.AOIOutput, "out", cfg.AOIOutput, "output shapefile path")
	fs.IntVar(&cfg.H3Res, "h3res", cfg.H3Res, "H3 resolution for the coverage report")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(ctx, "aoi-bounds", cfg, app.Options{LogOut: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "startup: %v\n", err)
		return 1
	}
	defer func() { _ = rt.Close(context.Background()) }()
	log := rt.Log

	a := cfg.AOI
	rt.Progress.Step("build")
	layer, err := aoi.Build(a)
	if err != nil {
		log.Error("invalid aoi", "aoi", a.String(), "err", err)
		return 1
	}

	rt.Progress.Step("write")
	outs, err := aoi.Write(layer, cfg.AOIOutput)
	if err != nil {
		log.Error("write aoi", "err", err)
		return 1
	}
	fmt.Fprintf(stdout, "Shapefile created: %s\n", outs.Shapefile)
	fmt.Fprintf(stdout, "Bounds: (%v, %v) to (%v, %v)\n", a.MinLon, a.MinLat, a.MaxLon, a.MaxLat)
	fmt.Fprintf(stdout, "CRS: %s\n", layer.SRID)
	fmt.Fprintf(stdout, "Also saved as GeoJSON: %s\n", outs.GeoJSON)

	st := aoi.ComputeStats(a)
	fmt.Fprintln(stdout, "\nPolygon details:")
	fmt.Fprintf(stdout, "Area: %.8f square degrees\n", st.Area)
	fmt.Fprintf(stdout, "Perimeter: %.8f degrees\n", st.Perimeter)
	fmt.Fprintf(stdout, "Centroid: %.8f, %.8f\n", st.Centroid[0], st.Centroid[1])

	rt.Progress.Step("project")
	projPath, b, err := aoi.WriteProjected(layer, cfg.AOIOutput)
	if err != nil {
		log.Error("write projected aoi", "err", err)
		return 1
	}
	fmt.Fprintf(stdout, "\nNZTM2000 shapefile created: %s\n", projPath)
	fmt.Fprintf(stdout, "NZTM2000 bounds: X(%.2f, %.2f), Y(%.2f, %.2f)\n", b.MinX, b.MaxX, b.MinY, b.MaxY)

	rt.Progress.Step("h3")
	cells, err := h3mapper.New().CellsForAOI(a, cfg.H3Res)
	if err != nil {
		log.Warn("h3 coverage skipped", "res", cfg.H3Res, "err", err)
	} else {
		fmt.Fprintf(stdout, "H3 res %d cells: %d\n", cfg.H3Res, len(cells))
		log.Debug("h3 coverage", "res", cfg.H3Res, "cells", []string(cells))
	}

	log.Info("aoi written", "shapefile", outs.Shapefile, "projected", projPath)
	return 0
}
