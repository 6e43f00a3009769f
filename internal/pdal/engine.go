package pdal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/tidwall/gjson"
)

type Execution struct {
	Points int64
}

// Engine runs a pipeline document to completion.
type Engine interface {
	Execute(ctx context.Context, b *Builder) (Execution, error)
}

// ExecEngine shells out to the pdal CLI. Points are counted on what the
// pipeline wrote: the header of a COPC output, or filters.stats otherwise.
type ExecEngine struct {
	Bin    string
	TmpDir string
}

func (e ExecEngine) Execute(ctx context.Context, b *Builder) (Execution, error) {
	doc, err := b.MarshalJSON()
	if err != nil {
		return Execution{}, fmt.Errorf("encode pipeline: %w", err)
	}
	bin := e.Bin
	if bin == "" {
		bin = "pdal"
	}

	meta, err := os.CreateTemp(e.TmpDir, "pdal-metadata-*.json")
	if err != nil {
		return Execution{}, fmt.Errorf("create metadata file: %w", err)
	}
	metaPath := meta.Name()
	_ = meta.Close()
	defer func() { _ = os.Remove(metaPath) }()

	// a COPC file left by an earlier run must not be counted
	if w, ok := pointWriter(b); ok {
		if err := os.Remove(w.Filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Execution{}, fmt.Errorf("remove stale output: %w", err)
		}
	}

	cmd := exec.CommandContext(ctx, bin, "pipeline", "--stdin", "--metadata", metaPath)
	cmd.Stdin = bytes.NewReader(doc)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Execution{}, fmt.Errorf("pdal pipeline: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	if w, ok := pointWriter(b); ok {
		n, err := countFile(ctx, bin, w.Filename)
		if err != nil {
			return Execution{}, err
		}
		return Execution{Points: n}, nil
	}
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return Execution{}, fmt.Errorf("read pdal metadata: %w", err)
	}
	return Execution{Points: StatsCount(raw)}, nil
}

// pointWriter returns the COPC writer ending b, if any.
func pointWriter(b *Builder) (COPCWriter, bool) {
	if b.Len() == 0 {
		return COPCWriter{}, false
	}
	w, ok := b.stages[b.Len()-1].(COPCWriter)
	return w, ok
}

// countFile reads the point count from the header of a written point cloud.
// A file that was never written holds no points.
func countFile(ctx context.Context, bin, path string) (int64, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	cmd := exec.CommandContext(ctx, bin, "info", "--summary", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("pdal info %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return SummaryCount(stdout.Bytes()), nil
}

// SummaryCount reads summary.num_points from `pdal info --summary` output.
func SummaryCount(info []byte) int64 {
	return gjson.GetBytes(info, "summary.num_points").Int()
}

// StatsCount reads the point count recorded by the last filters.stats stage in
// pipeline metadata. Reader header counts are ignored since they predate any
// filtering.
func StatsCount(meta []byte) int64 {
	st := gjson.GetBytes(meta, `stages.filters\.stats`)
	if st.IsArray() {
		arr := st.Array()
		if len(arr) == 0 {
			return 0
		}
		st = arr[len(arr)-1]
	}
	return st.Get("statistic.0.count").Int()
}
