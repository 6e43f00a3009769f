// Package catalog queries the point-cloud data catalog for datasets covering an AOI.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/cache"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/cache/keys"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/observability"
)

var ErrDatasetNotFound = errors.New("dataset not found in catalog response")

// StatusError reports a non-200 catalog response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog status %d: %s", e.Code, e.Body)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Params builds the query string for a point-cloud catalog search.
func Params(a model.AOI) url.Values {
	params := url.Values{}
	params.Set("productFormat", "PointCloud")
	params.Set("minx", formatCoord(a.MinLon))
	params.Set("miny", formatCoord(a.MinLat))
	params.Set("maxx", formatCoord(a.MaxLon))
	params.Set("maxy", formatCoord(a.MaxLat))
	params.Set("detail", "true")
	params.Set("outputFormat", "json")
	params.Set("include_federated", "false")
	return params
}

type Options struct {
	Logger   *slog.Logger
	Cache    cache.Interface
	CacheTTL time.Duration
}

type Client struct {
	logger   *slog.Logger
	http     *http.Client
	endpoint *url.URL
	cache    cache.Interface
	cacheTTL time.Duration
	startNow func() time.Time // for tests
}

func New(httpClient *http.Client, endpoint string, opts Options) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported catalog url scheme %q", u.Scheme)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		logger:   opts.Logger,
		http:     httpClient,
		endpoint: u,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		startNow: time.Now,
	}, nil
}

// Query issues one GET for the AOI and decodes the dataset list. A cached
// response is used when a cache is configured and holds the same query.
func (c *Client) Query(ctx context.Context, a model.AOI) (*Result, error) {
	params := Params(a)
	key := keys.CatalogKey(c.endpoint.String(), params)

	if c.cache != nil {
		raw, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			c.logger.WarnContext(ctx, "catalog cache read failed", "backend", c.cache.Name(), "err", err)
		case ok:
			if res, err := Decode(raw); err == nil {
				observability.IncCacheHit(c.cache.Name())
				c.logger.DebugContext(ctx, "catalog cache hit", "key", key)
				return res, nil
			}
		}
		observability.IncCacheMiss(c.cache.Name())
	}

	raw, err := c.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	res, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
			c.logger.WarnContext(ctx, "catalog cache write failed", "backend", c.cache.Name(), "err", err)
		}
	}
	return res, nil
}

func (c *Client) fetch(ctx context.Context, params url.Values) (raw []byte, err error) {
	u := *c.endpoint
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := c.startNow()
	defer func() {
		observability.ObserveCatalogQuery(err, time.Since(start).Seconds())
	}()

	c.logger.DebugContext(ctx, "catalog query", "url", u.String())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog body: %w", err)
	}
	return raw, nil
}

// property values arrive as strings or bare numbers
type propValue string

func (v *propValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = propValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*v = propValue(n.String())
		return nil
	}
	*v = propValue(b)
	return nil
}

type wireResponse struct {
	Datasets []struct {
		Dataset struct {
			Name               string `json:"name"`
			AlternateName      string `json:"alternateName"`
			AdditionalProperty []struct {
				Name  string    `json:"name"`
				Value propValue `json:"value"`
			} `json:"additionalProperty"`
		} `json:"Dataset"`
	} `json:"Datasets"`
}

// Decode parses a catalog JSON body.
func Decode(raw []byte) (*Result, error) {
	var w wireResponse
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	res := &Result{Datasets: make([]model.Dataset, 0, len(w.Datasets))}
	for _, d := range w.Datasets {
		ds := model.Dataset{
			Name:          d.Dataset.Name,
			AlternateName: d.Dataset.AlternateName,
		}
		for _, p := range d.Dataset.AdditionalProperty {
			ds.Properties = append(ds.Properties, model.Property{Name: p.Name, Value: string(p.Value)})
		}
		res.Datasets = append(res.Datasets, ds)
	}
	return res, nil
}
