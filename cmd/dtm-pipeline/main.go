package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/app"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/config"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/pdal"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, nil))
}

// run takes the engine as a parameter so tests can avoid the pdal binary.
func run(args []string, stdout, stderr io.Writer, engine pdal.Engine) int {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("dtm-pipeline", flag.ContinueOnError)
	fs.SetOutput(stderr)
	app.BindAOIFlags(fs, &cfg)
	fs.StringVar(&cfg.COPCOutput, "copc", cfg.COPCOutput, "merged COPC output")
	fs.StringVar(&cfg.DTMOutput, "dtm", cfg.DTMOutput, "DTM GeoTIFF output")
	fs.Float64Var(&cfg.DTMResolution, "resolution", cfg.DTMResolution, "DTM cell size in metres")
	fs.IntVar(&cfg.Outlier.MeanK, "mean-k", cfg.Outlier.MeanK, "outlier filter neighbour count")
	fs.Float64Var(&cfg.Outlier.Multiplier, "multiplier", cfg.Outlier.Multiplier, "outlier filter std-dev multiplier")
	fs.StringVar(&cfg.PDALBin, "pdal", cfg.PDALBin, "pdal executable")
	urlList := fs.String("urls", "", "comma separated tile URLs")
	urlFile := fs.String("urls-file", "", "file with one tile URL per line")
	jobPath := fs.String("job", "", "YAML job file; flags fill the fields it leaves out")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(ctx, "dtm-pipeline", cfg, app.Options{LogOut: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "startup: %v\n", err)
		return 1
	}
	defer func() { _ = rt.Close(context.Background()) }()
	log := rt.Log

	opts := pdal.DTMOptions{MeanK: cfg.Outlier.MeanK, Multiplier: cfg.Outlier.Multiplier, Resolution: cfg.DTMResolution}
	job := pdal.NewJob(cfg.AOI, nil, cfg.COPCOutput, cfg.DTMOutput, opts)
	if *jobPath != "" {
		if job, err = pdal.LoadJob(*jobPath, job); err != nil {
			log.Error("load job", "err", err)
			return 1
		}
	}
	extra, err := readURLs(*urlList, *urlFile)
	if err != nil {
		log.Error("read urls", "err", err)
		return 1
	}
	job.URLs = append(job.URLs, extra...)
	if err := job.Validate(); err != nil {
		log.Error("invalid job", "err", err)
		return 1
	}

	if engine == nil {
		engine = pdal.ExecEngine{Bin: cfg.PDALBin, TmpDir: cfg.WorkDir}
	}
	runner := pdal.NewRunner(engine, log, rt.Events)

	rt.Progress.Step("crop_merge")
	rep, err := runner.Process(ctx, job)
	switch {
	case errors.Is(err, pdal.ErrNoData):
		fmt.Fprintln(stdout, "No data retrieved from any files")
		fmt.Fprintln(stdout, "Failed to retrieve data. Aborting.")
		return 1
	case err != nil:
		fmt.Fprintf(stdout, "✗ DTM creation failed: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Retrieved %d points from %d files\n", rep.Points, len(job.URLs))
	fmt.Fprintf(stdout, "Successfully wrote merged data to %s\n", rep.COPC)
	fmt.Fprintln(stdout, "✓ DTM created successfully!")
	fmt.Fprintf(stdout, "  File size: %s bytes (%.2f MB)\n", groupThousands(rep.DTM.Bytes), float64(rep.DTM.Bytes)/(1024*1024))
	fmt.Fprintf(stdout, "  Ground points processed: %s\n", groupThousands(rep.DTM.GroundPoints))
	fmt.Fprintf(stdout, "  COPC file: %s\n", rep.COPC)
	fmt.Fprintf(stdout, "  DTM file: %s\n", rep.DTM.Path)
	return 0
}

func readURLs(list, file string) ([]string, error) {
	var urls []string
	for u := range strings.SplitSeq(list, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if file == "" {
		return urls, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if u := strings.TrimSpace(sc.Text()); u != "" && !strings.HasPrefix(u, "#") {
			urls = append(urls, u)
		}
	}
	return urls, sc.Err()
}

func groupThousands(n int64) string {
	s := fmt.Sprint(n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
