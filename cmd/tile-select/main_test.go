package main

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
	h3mapper "github.com/mohammed-shakir/nz-lidar-aoi/internal/mapper/h3"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/pdal"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/vector"
)

const catalogBody = `{"Datasets":[
 {"Dataset":{"name":"Huntly","alternateName":"NZ15_Huntly","additionalProperty":[{"name":"EPSG (Horizontal)","value":2193}]}},
 {"Dataset":{"name":"Other","alternateName":"NZ21_Other","additionalProperty":[]}}
]}`

var testAOI = []string{"-minlon", "175.0", "-minlat", "-37.0", "-maxlon", "175.1", "-maxlat", "-36.9"}

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

// tileIndexZip builds NZ15_Huntly_TileIndex.zip holding a geographic tile index.
func tileIndexZip(t *testing.T, base string) []byte {
	t.Helper()
	dir := t.TempDir()
	l := &vector.Layer{
		SRID:   model.SRIDGeographic,
		Fields: []vector.Field{{Name: "URL", Type: vector.String}},
		Features: []vector.Feature{
			{Geometry: square(175.02, -36.98, 175.04, -36.96), Values: []any{base + "/tiles/in.laz"}},
			{Geometry: square(175.1, -36.95, 175.2, -36.85), Values: []any{base + "/tiles/gone.laz"}},
			{Geometry: square(176.0, -36.0, 176.1, -35.9), Values: []any{base + "/tiles/out.laz"}},
		},
	}
	if err := vector.WriteShapefile(filepath.Join(dir, "NZ15_Huntly_TileIndex.shp"), l); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		name := "NZ15_Huntly_TileIndex" + ext
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		w, _ := zw.Create(name)
		_, _ = w.Write(b)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	var archiveBody []byte
	mux := http.NewServeMux()
	mux.HandleFunc("/API/otCatalog", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(catalogBody))
	})
	mux.HandleFunc("/pc-bulk/NZ15_Huntly/NZ15_Huntly_TileIndex.zip", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archiveBody)
	})
	mux.HandleFunc("/tiles/in.laz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("LASF"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	archiveBody = tileIndexZip(t, srv.URL)
	return srv
}

func args(srv *httptest.Server, dir string, extra ...string) []string {
	a := append([]string{}, testAOI...)
	a = append(a,
		"-catalog", srv.URL+"/API/otCatalog",
		"-bulk", srv.URL+"/pc-bulk/",
		"-dir", dir,
		"-downloads", filepath.Join(dir, "downloads"),
	)
	return append(a, extra...)
}

func TestRun_SelectsAndDownloads(t *testing.T) {
	srv := upstream(t)
	dir := t.TempDir()
	var stdout bytes.Buffer

	if code := run(args(srv, dir), &stdout, io.Discard); code != 0 {
		t.Fatalf("exit=%d\n%s", code, stdout.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "Vertical CRS EPSG codes:\n2193\n\n") {
		t.Fatalf("missing crs listing without carry-over:\n%s", out)
	}
	if !strings.Contains(out, srv.URL+"/tiles/in.laz") || !strings.Contains(out, srv.URL+"/tiles/gone.laz") {
		t.Fatalf("selected urls missing:\n%s", out)
	}
	if strings.Contains(out, "out.laz") {
		t.Fatalf("tile outside the aoi was selected:\n%s", out)
	}
	if !strings.Contains(out, "cells covering selected tiles:") {
		t.Fatalf("h3 footprint coverage missing:\n%s", out)
	}
	if !strings.Contains(out, "Failed to download "+srv.URL+"/tiles/gone.laz") {
		t.Fatalf("failed tile not reported:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "downloads", "in.laz")); err != nil {
		t.Fatalf("tile not saved: %v", err)
	}
}

func TestRun_ListOnlyWritesJob(t *testing.T) {
	srv := upstream(t)
	dir := t.TempDir()
	jobPath := filepath.Join(dir, "job.yaml")

	if code := run(args(srv, dir, "-list-only", "-job", jobPath), io.Discard, io.Discard); code != 0 {
		t.Fatalf("exit=%d", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "downloads")); !os.IsNotExist(err) {
		t.Fatal("list-only must not download tiles")
	}
	job, err := pdal.LoadJob(jobPath, pdal.Job{})
	if err != nil {
		t.Fatalf("LoadJob: %v", err)
	}
	if len(job.URLs) != 2 || job.AOI.MinLon != 175.0 {
		t.Fatalf("job=%+v", job)
	}
}

func TestRun_UnknownDataset(t *testing.T) {
	srv := upstream(t)
	if code := run(args(srv, t.TempDir(), "-dataset", "NZ99_Nowhere"), io.Discard, io.Discard); code != 1 {
		t.Fatalf("exit=%d want 1", code)
	}
}

func TestRun_DefaultsToSelectionBox(t *testing.T) {
	for _, k := range []string{"AOI_MINLON", "AOI_MINLAT", "AOI_MAXLON", "AOI_MAXLAT"} {
		t.Setenv(k, "")
	}
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"Datasets":[]}`))
	}))
	defer srv.Close()

	// no datasets, so the default dataset lookup fails after the query
	if code := run([]string{"-catalog", srv.URL, "-dir", t.TempDir()}, io.Discard, io.Discard); code != 1 {
		t.Fatalf("exit=%d want 1", code)
	}
	want := map[string]string{"minx": "175.15", "miny": "-37.31", "maxx": "175.16", "maxy": "-37.3"}
	for k, v := range want {
		if got.Get(k) != v {
			t.Fatalf("%s=%q want %q (query %v)", k, got.Get(k), v, got)
		}
	}
}

func TestFootprintCells_UnionIsDeduplicated(t *testing.T) {
	fp := square(175.02, -36.98, 175.04, -36.96)
	one, err := footprintCells(h3mapper.New(), []model.TileRecord{{URL: "a", Footprint: fp}}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(one) == 0 {
		t.Fatal("expected cells for a 2km footprint at res 8")
	}
	twice, err := footprintCells(h3mapper.New(), []model.TileRecord{{URL: "a", Footprint: fp}, {URL: "b", Footprint: fp}}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(twice) != len(one) {
		t.Fatalf("overlapping footprints counted twice: %d vs %d", len(twice), len(one))
	}
}
