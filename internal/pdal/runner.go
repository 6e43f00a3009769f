package pdal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/observability"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/events"
)

var (
	ErrNoData   = errors.New("pdal: pipeline produced no points")
	ErrNoURLs   = errors.New("pdal: no tile urls")
	ErrNoRaster = errors.New("pdal: raster was not written")
)

type DTMResult struct {
	Path         string
	Bytes        int64
	GroundPoints int64
}

type Runner struct {
	engine Engine
	log    *slog.Logger
	pub    events.Publisher
}

func NewRunner(engine Engine, log *slog.Logger, pub events.Publisher) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if pub == nil {
		pub = events.Noop{}
	}
	return &Runner{engine: engine, log: log, pub: pub}
}

// CropAndMerge crops every tile to the AOI and writes one merged COPC file.
// Zero points and engine failures both yield ErrNoData.
func (r *Runner) CropAndMerge(ctx context.Context, urls []string, a model.AOI, out string) (Execution, error) {
	if len(urls) == 0 {
		return Execution{}, fmt.Errorf("%w: %w", ErrNoData, ErrNoURLs)
	}
	b := CropMergePipeline(urls, a, out)
	r.log.InfoContext(ctx, "crop and merge", "tiles", len(urls), "stages", b.Len(), "out", out)

	ex, err := r.engine.Execute(ctx, b)
	switch {
	case err != nil:
		err = fmt.Errorf("%w: %w", ErrNoData, err)
	case ex.Points == 0:
		err = ErrNoData
	}
	observability.ObservePipeline("crop_merge", ex.Points, err)
	r.publish(ctx, "crop_merge", out, ex.Points, err)
	if err != nil {
		r.log.ErrorContext(ctx, "crop and merge failed", "err", err)
		return ex, err
	}
	r.log.InfoContext(ctx, "crop and merge done", "points", ex.Points, "tiles", len(urls))
	return ex, nil
}

// DeriveDTM succeeds only if the raster exists once the engine returns.
func (r *Runner) DeriveDTM(ctx context.Context, in, out string, opts DTMOptions) (DTMResult, error) {
	opts = opts.withDefaults()
	r.log.InfoContext(ctx, "derive dtm", "in", in, "out", out, "resolution", opts.Resolution)

	res := DTMResult{Path: out}
	ex, err := r.engine.Execute(ctx, DTMPipeline(in, out, opts))
	if err == nil {
		res.GroundPoints = ex.Points
		st, serr := os.Stat(out)
		switch {
		case serr != nil:
			err = fmt.Errorf("%w: %s", ErrNoRaster, out)
		default:
			res.Bytes = st.Size()
		}
	} else {
		err = fmt.Errorf("dtm pipeline: %w", err)
	}
	observability.ObservePipeline("dtm", res.GroundPoints, err)
	r.publish(ctx, "dtm", out, res.Bytes, err)
	if err != nil {
		r.log.ErrorContext(ctx, "dtm failed", "err", err)
		return res, err
	}
	r.log.InfoContext(ctx, "dtm written", "path", out, "bytes", res.Bytes, "ground_points", res.GroundPoints)
	return res, nil
}

type Report struct {
	COPC   string
	Points int64
	DTM    DTMResult
}

// Process runs crop-and-merge then the DTM. The DTM is skipped when the first
// step fails.
func (r *Runner) Process(ctx context.Context, job Job) (Report, error) {
	rep := Report{COPC: job.COPC}
	ex, err := r.CropAndMerge(ctx, job.URLs, job.AOI.Model(), job.COPC)
	if err != nil {
		return rep, err
	}
	rep.Points = ex.Points

	dtm, err := r.DeriveDTM(ctx, job.COPC, job.DTM, job.DTMOptions())
	rep.DTM = dtm
	if err != nil {
		return rep, err
	}
	return rep, nil
}

func (r *Runner) publish(ctx context.Context, ref, path string, n int64, err error) {
	ev := events.FromResult(events.KindPipeline, ref, path, n, err)
	if perr := r.pub.Publish(ctx, ev); perr != nil {
		r.log.WarnContext(ctx, "publish event failed", "err", perr)
	}
}
