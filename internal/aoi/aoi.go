// Package aoi builds the area-of-interest polygon layer and its statistics.
package aoi

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/geo/nztm"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/vector"
)

const FeatureName = "AOI_Bounds"

var fields = []vector.Field{
	{Name: "id", Type: vector.Int},
	{Name: "name", Type: vector.String},
	{Name: "minlon", Type: vector.Float},
	{Name: "minlat", Type: vector.Float},
	{Name: "maxlon", Type: vector.Float},
	{Name: "maxlat", Type: vector.Float},
}

type Stats struct {
	Area      float64
	Perimeter float64
	Centroid  orb.Point
}

type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Build returns the single-feature AOI layer in the AOI reference system.
func Build(a model.AOI) (*vector.Layer, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("aoi: %w", err)
	}
	srid := a.SRID
	if srid == "" {
		srid = model.SRIDGeographic
	}
	return &vector.Layer{
		SRID:   srid,
		Fields: fields,
		Features: []vector.Feature{{
			Geometry: a.Polygon(),
			Values:   []any{1, FeatureName, a.MinLon, a.MinLat, a.MaxLon, a.MaxLat},
		}},
	}, nil
}

// ComputeStats reports area, perimeter and centroid of the AOI rectangle in
// its own units. Area is taken from the bounds so it is exact.
func ComputeStats(a model.AOI) Stats {
	poly := a.Polygon()
	c, _ := planar.CentroidArea(poly)
	return Stats{
		Area:      a.Area(),
		Perimeter: planar.Length(poly),
		Centroid:  c,
	}
}

// Project reprojects every vertex of the layer into srid and returns the new
// layer with its total bounds.
func Project(l *vector.Layer, srid string) (*vector.Layer, Bounds, error) {
	src, err := nztm.For(l.SRID)
	if err != nil {
		return nil, Bounds{}, err
	}
	dst, err := nztm.For(srid)
	if err != nil {
		return nil, Bounds{}, err
	}

	out := &vector.Layer{SRID: dst.SRID(), Fields: l.Fields}
	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for i, f := range l.Features {
		poly := make(orb.Polygon, 0, len(f.Geometry))
		for _, r := range f.Geometry {
			ring := make(orb.Ring, 0, len(r))
			for _, p := range r {
				g, err := src.ToGeographic(p)
				if err != nil {
					return nil, Bounds{}, fmt.Errorf("feature %d: %w", i, err)
				}
				q, err := dst.FromGeographic(g)
				if err != nil {
					return nil, Bounds{}, fmt.Errorf("feature %d: %w", i, err)
				}
				ring = append(ring, q)
				b.MinX, b.MaxX = math.Min(b.MinX, q[0]), math.Max(b.MaxX, q[0])
				b.MinY, b.MaxY = math.Min(b.MinY, q[1]), math.Max(b.MaxY, q[1])
			}
			poly = append(poly, ring)
		}
		out.Features = append(out.Features, vector.Feature{Geometry: poly, Values: f.Values})
	}
	return out, b, nil
}

// Outputs lists the files produced by Write.
type Outputs struct {
	Shapefile string
	GeoJSON   string
}

// Write persists the layer as a shapefile set and a sibling GeoJSON file.
func Write(l *vector.Layer, shpPath string) (Outputs, error) {
	out := Outputs{Shapefile: shpPath, GeoJSON: vector.GeoJSONPath(shpPath)}
	if err := vector.WriteShapefile(out.Shapefile, l); err != nil {
		return Outputs{}, err
	}
	if err := vector.WriteGeoJSON(out.GeoJSON, l); err != nil {
		return Outputs{}, err
	}
	return out, nil
}

// ProjectedPath derives "<base>_nztm.shp" from "<base>.shp".
func ProjectedPath(shpPath string) string {
	return strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + "_nztm.shp"
}

// WriteProjected reprojects to NZTM2000 and writes the shapefile only.
func WriteProjected(l *vector.Layer, shpPath string) (string, Bounds, error) {
	proj, b, err := Project(l, nztm.SRID)
	if err != nil {
		return "", Bounds{}, fmt.Errorf("reproject aoi: %w", err)
	}
	path := ProjectedPath(shpPath)
	if err := vector.WriteShapefile(path, proj); err != nil {
		return "", Bounds{}, err
	}
	return path, b, nil
}
