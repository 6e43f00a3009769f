package aoi

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/geo/nztm"
)

var unitAOI = model.AOI{MinLon: 175.0, MinLat: -37.0, MaxLon: 176.0, MaxLat: -36.0}

func TestBuild_ClosedFiveVertexRing(t *testing.T) {
	l, err := Build(unitAOI)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if l.SRID != model.SRIDGeographic {
		t.Fatalf("SRID=%q", l.SRID)
	}
	if len(l.Features) != 1 {
		t.Fatalf("features=%d want 1", len(l.Features))
	}
	ring := l.Features[0].Geometry[0]
	if len(ring) != 5 {
		t.Fatalf("vertices=%d want 5", len(ring))
	}
	if ring[0] != ring[4] {
		t.Fatalf("ring not closed: first=%v last=%v", ring[0], ring[4])
	}
	// bottom-left, bottom-right, top-right, top-left
	want := [][2]float64{{175, -37}, {176, -37}, {176, -36}, {175, -36}}
	for i, w := range want {
		if ring[i][0] != w[0] || ring[i][1] != w[1] {
			t.Fatalf("vertex %d=%v want %v", i, ring[i], w)
		}
	}
	vals := l.Features[0].Values
	if vals[0] != 1 || vals[1] != FeatureName || vals[2] != 175.0 || vals[5] != -36.0 {
		t.Fatalf("attributes=%v", vals)
	}
}

func TestBuild_RejectsInvertedBounds(t *testing.T) {
	if _, err := Build(model.AOI{MinLon: 176, MinLat: -37, MaxLon: 175, MaxLat: -36}); err == nil {
		t.Fatal("expected error")
	}
}

func TestComputeStats_UnitSquare(t *testing.T) {
	s := ComputeStats(unitAOI)
	if s.Area != 1.0 {
		t.Fatalf("area=%v want 1.0", s.Area)
	}
	if math.Abs(s.Perimeter-4.0) > 1e-12 {
		t.Fatalf("perimeter=%v want 4", s.Perimeter)
	}
	if math.Abs(s.Centroid[0]-175.5) > 1e-9 || math.Abs(s.Centroid[1]+36.5) > 1e-9 {
		t.Fatalf("centroid=%v want (175.5,-36.5)", s.Centroid)
	}
}

func TestComputeStats_AreaIsExactProduct(t *testing.T) {
	a := model.AOI{MinLon: 175.48116715, MinLat: -37.34580303, MaxLon: 175.48772079, MaxLat: -37.33819874}
	want := (a.MaxLon - a.MinLon) * (a.MaxLat - a.MinLat)
	if got := ComputeStats(a).Area; got != want {
		t.Fatalf("area=%v want %v", got, want)
	}
}

func TestProject_NZTMBounds(t *testing.T) {
	l, _ := Build(unitAOI)
	proj, b, err := Project(l, nztm.SRID)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if proj.SRID != nztm.SRID {
		t.Fatalf("SRID=%q", proj.SRID)
	}
	if !(b.MinX < b.MaxX && b.MinY < b.MaxY) {
		t.Fatalf("degenerate bounds %+v", b)
	}
	if b.MinX < 1.6e6 || b.MaxY > 6.1e6 {
		t.Fatalf("bounds outside NZTM range east of the meridian: %+v", b)
	}
	ring := proj.Features[0].Geometry[0]
	if len(ring) != 5 || ring[0] != ring[4] {
		t.Fatalf("projected ring must stay closed: %v", ring)
	}
}

func TestProject_UnsupportedTarget(t *testing.T) {
	l, _ := Build(unitAOI)
	if _, _, err := Project(l, "EPSG:3857"); err == nil {
		t.Fatal("expected error for unsupported target")
	}
}

func TestWriteAndWriteProjected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aoi_bounds.shp")
	l, _ := Build(unitAOI)

	out, err := Write(l, path)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.GeoJSON != filepath.Join(dir, "aoi_bounds.geojson") {
		t.Fatalf("geojson path=%q", out.GeoJSON)
	}
	for _, p := range []string{out.Shapefile, out.GeoJSON} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}

	projPath, _, err := WriteProjected(l, path)
	if err != nil {
		t.Fatalf("WriteProjected: %v", err)
	}
	if projPath != filepath.Join(dir, "aoi_bounds_nztm.shp") {
		t.Fatalf("projected path=%q", projPath)
	}
	if _, err := os.Stat(projPath); err != nil {
		t.Fatalf("missing projected shapefile: %v", err)
	}
}
