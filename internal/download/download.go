// Package download streams bulk files from HTTP to disk.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/catalog"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/observability"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/events"
)

const chunkSize = 8192

type Mode int

const (
	// FailFast stops the batch at the first failed item.
	FailFast Mode = iota
	// ContinueOnError records the failure and moves on.
	ContinueOnError
)

var ErrNoFilename = errors.New("download: url has no file name")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: status %d", e.URL, e.Code)
}

type Result struct {
	URL   string
	Path  string
	Bytes int64
	Err   error
}

type Summary struct {
	OK     int
	Failed int
	Bytes  int64
}

func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		s.OK++
		s.Bytes += r.Bytes
	}
	return s
}

type Options struct {
	Logger    *slog.Logger
	Publisher events.Publisher
}

type Downloader struct {
	http *http.Client
	log  *slog.Logger
	pub  events.Publisher
}

func New(httpClient *http.Client, opts Options) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Noop{}
	}
	return &Downloader{http: httpClient, log: opts.Logger, pub: opts.Publisher}
}

// ToFile streams rawURL into dst and returns the bytes written. A failed
// transfer removes the partial file.
func (d *Downloader) ToFile(ctx context.Context, rawURL, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return 0, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}
	n, err := io.CopyBuffer(f, resp.Body, make([]byte, chunkSize))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return n, fmt.Errorf("write %s: %w", dst, err)
	}
	return n, nil
}

// FileName is the last path segment of rawURL.
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("%w: %s", ErrNoFilename, rawURL)
	}
	return name, nil
}

type item struct {
	ref string
	url string
	dst string
}

// TileIndexes downloads <base><id>/<id>_TileIndex.zip for each id in order.
func (d *Downloader) TileIndexes(ctx context.Context, base string, ids []string, dir string, mode Mode) ([]Result, error) {
	items := make([]item, 0, len(ids))
	for _, id := range ids {
		items = append(items, item{
			ref: id,
			url: catalog.TileIndexURL(base, id),
			dst: filepath.Join(dir, catalog.TileIndexArchiveName(id)),
		})
	}
	return d.run(ctx, events.KindTileIndex, items, dir, mode)
}

// Batch downloads each URL into dir under its last path segment.
func (d *Downloader) Batch(ctx context.Context, urls []string, dir string, mode Mode) ([]Result, error) {
	items := make([]item, 0, len(urls))
	for _, u := range urls {
		it := item{ref: u, url: u}
		if name, err := FileName(u); err == nil {
			it.dst = filepath.Join(dir, name)
		}
		items = append(items, it)
	}
	return d.run(ctx, events.KindTile, items, dir, mode)
}

func (d *Downloader) run(ctx context.Context, kind string, items []item, dir string, mode Mode) ([]Result, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	results := make([]Result, 0, len(items))
	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r := d.one(ctx, kind, it)
		results = append(results, r)

		if r.Err != nil {
			d.log.ErrorContext(ctx, "download failed", "kind", kind, "url", it.url, "err", r.Err)
			if mode == FailFast {
				return results, fmt.Errorf("%s %s: %w", kind, it.ref, r.Err)
			}
			continue
		}
		d.log.InfoContext(ctx, "downloaded", "kind", kind, "n", i+1, "of", len(items),
			"path", r.Path, "bytes", r.Bytes)
	}
	return results, nil
}

func (d *Downloader) one(ctx context.Context, kind string, it item) Result {
	r := Result{URL: it.url, Path: it.dst}
	start := time.Now()
	if strings.TrimSpace(it.dst) == "" {
		r.Err = fmt.Errorf("%w: %s", ErrNoFilename, it.url)
	} else {
		r.Bytes, r.Err = d.ToFile(ctx, it.url, it.dst)
	}
	observability.ObserveDownload(kind, r.Bytes, r.Err, time.Since(start).Seconds())

	if err := d.pub.Publish(ctx, events.FromResult(kind, it.ref, r.Path, r.Bytes, r.Err)); err != nil {
		d.log.WarnContext(ctx, "publish event failed", "kind", kind, "err", err)
	}
	return r
}
