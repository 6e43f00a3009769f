// Package vector persists polygon layers as ESRI shapefiles and GeoJSON.
package vector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/geo/nztm"
)

type FieldType int

const (
	Int FieldType = iota
	Float
	String
)

type Field struct {
	Name string
	Type FieldType
}

type Feature struct {
	Geometry orb.Polygon
	Values   []any // one per layer field, same order
}

type Layer struct {
	SRID     string
	Fields   []Field
	Features []Feature
}

var ErrFieldMismatch = errors.New("vector: feature values do not match layer fields")

func (l *Layer) validate() error {
	for i, f := range l.Features {
		if len(f.Values) != len(l.Fields) {
			return fmt.Errorf("%w: feature %d has %d values for %d fields", ErrFieldMismatch, i, len(f.Values), len(l.Fields))
		}
		if len(f.Geometry) == 0 || len(f.Geometry[0]) < 4 {
			return fmt.Errorf("vector: feature %d has no closed outer ring", i)
		}
	}
	return nil
}

// Bound of every feature in the layer.
func (l *Layer) Bound() orb.Bound {
	var b orb.Bound
	for i, f := range l.Features {
		if i == 0 {
			b = f.Geometry.Bound()
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b
}

// GeoJSONPath returns the sibling .geojson path of a shapefile path.
func GeoJSONPath(shpPath string) string {
	return strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".geojson"
}

func shpFields(fields []Field) []shp.Field {
	out := make([]shp.Field, 0, len(fields))
	for _, f := range fields {
		switch f.Type {
		case Int:
			out = append(out, shp.NumberField(f.Name, 10))
		case Float:
			out = append(out, shp.FloatField(f.Name, 24, 8))
		default:
			out = append(out, shp.StringField(f.Name, 64))
		}
	}
	return out
}

// shapefile outer rings run clockwise
func shpRing(r orb.Ring) []shp.Point {
	pts := make([]shp.Point, 0, len(r))
	for _, p := range r {
		pts = append(pts, shp.Point{X: p[0], Y: p[1]})
	}
	if r.Orientation() == orb.CCW {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return pts
}

// WriteShapefile writes the .shp/.shx/.dbf set plus a .prj for the layer SRID.
func WriteShapefile(path string, l *Layer) error {
	if err := l.validate(); err != nil {
		return err
	}
	wkt, err := nztm.WKT(l.SRID)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("create shapefile %s: %w", path, err)
	}
	closed := false
	defer func() {
		if !closed {
			w.Close()
		}
	}()

	if err := w.SetFields(shpFields(l.Fields)); err != nil {
		return fmt.Errorf("set shapefile fields: %w", err)
	}
	for _, f := range l.Features {
		parts := make([][]shp.Point, 0, len(f.Geometry))
		for _, r := range f.Geometry {
			parts = append(parts, shpRing(r))
		}
		poly := shp.Polygon(*shp.NewPolyLine(parts))
		row := int(w.Write(&poly))
		for i, v := range f.Values {
			if err := w.WriteAttribute(row, i, v); err != nil {
				return fmt.Errorf("write attribute %s: %w", l.Fields[i].Name, err)
			}
		}
	}
	w.Close()
	closed = true

	prj := strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
	if err := os.WriteFile(prj, []byte(wkt), 0o644); err != nil {
		return fmt.Errorf("write projection: %w", err)
	}
	return nil
}

// WriteGeoJSON writes a FeatureCollection. Only geographic layers are allowed (RFC 7946).
func WriteGeoJSON(path string, l *Layer) error {
	if err := l.validate(); err != nil {
		return err
	}
	if tr, err := nztm.For(l.SRID); err != nil || tr.SRID() != nztm.SRIDGeographic {
		return fmt.Errorf("geojson requires geographic coordinates, layer is %q", l.SRID)
	}

	fc := geojson.NewFeatureCollection()
	for _, f := range l.Features {
		gf := geojson.NewFeature(f.Geometry)
		for i, v := range f.Values {
			gf.Properties[l.Fields[i].Name] = v
		}
		fc.Append(gf)
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal geojson: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}
