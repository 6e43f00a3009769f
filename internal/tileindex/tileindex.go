// Package tileindex loads a dataset's tile-index shapefile and selects the
// tiles whose footprints intersect an AOI.
package tileindex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/geo/nztm"
)

const URLField = "URL"

var (
	ErrUnknownCRS = errors.New("tileindex: cannot determine coordinate reference system")
	ErrNoURLField = errors.New("tileindex: layer has no URL attribute")
)

type Index struct {
	SRID    string // source SRID before reprojection
	records []model.TileRecord
	tree    rtree.RTreeG[int]
}

func (ix *Index) Len() int { return len(ix.records) }

// Load reads every polygon and its URL attribute from shpPath. Footprints are
// kept in EPSG:4326.
func Load(shpPath string) (*Index, error) {
	r, err := shp.Open(shpPath)
	if err != nil {
		return nil, fmt.Errorf("open tile index %s: %w", shpPath, err)
	}
	defer func() { _ = r.Close() }()

	urlIdx := -1
	for i, f := range r.Fields() {
		if strings.EqualFold(strings.TrimSpace(f.String()), URLField) {
			urlIdx = i
			break
		}
	}
	if urlIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoURLField, shpPath)
	}

	var recs []model.TileRecord
	for r.Next() {
		n, s := r.Shape()
		poly, ok := polygonOf(s)
		if !ok {
			continue
		}
		recs = append(recs, model.TileRecord{
			URL:       strings.TrimSpace(r.ReadAttribute(n, urlIdx)),
			Footprint: poly,
		})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read tile index %s: %w", shpPath, err)
	}

	srid, err := sourceSRID(shpPath, recs)
	if err != nil {
		return nil, err
	}
	if err := toGeographic(srid, recs); err != nil {
		return nil, err
	}
	return newIndex(srid, recs), nil
}

// New indexes records already in EPSG:4326.
func New(recs []model.TileRecord) *Index {
	return newIndex(nztm.SRIDGeographic, recs)
}

func newIndex(srid string, recs []model.TileRecord) *Index {
	ix := &Index{SRID: srid, records: recs}
	for i, rec := range recs {
		b := rec.Footprint.Bound()
		ix.tree.Insert([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]}, i)
	}
	return ix
}

func polygonOf(s shp.Shape) (orb.Polygon, bool) {
	var parts []int32
	var pts []shp.Point
	switch p := s.(type) {
	case *shp.Polygon:
		parts, pts = p.Parts, p.Points
	case *shp.PolygonZ:
		parts, pts = p.Parts, p.Points
	case *shp.PolygonM:
		parts, pts = p.Parts, p.Points
	default:
		return nil, false
	}
	if len(pts) == 0 {
		return nil, false
	}
	poly := make(orb.Polygon, 0, len(parts))
	for i, start := range parts {
		end := int32(len(pts))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		ring := make(orb.Ring, 0, end-start)
		for _, pt := range pts[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		poly = append(poly, ring)
	}
	return poly, true
}

func sourceSRID(shpPath string, recs []model.TileRecord) (string, error) {
	prj := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
	b, err := os.ReadFile(prj)
	switch {
	case err == nil:
		srid, err := nztm.DetectPRJ(string(b))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnknownCRS, err)
		}
		return srid, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read %s: %w", prj, err)
	}

	// no .prj: accept only coordinates that are plausibly lon/lat
	for _, rec := range recs {
		b := rec.Footprint.Bound()
		if b.Min[0] < -180 || b.Max[0] > 180 || b.Min[1] < -90 || b.Max[1] > 90 {
			return "", fmt.Errorf("%w: %s has no .prj and projected coordinates", ErrUnknownCRS, shpPath)
		}
	}
	return nztm.SRIDGeographic, nil
}

func toGeographic(srid string, recs []model.TileRecord) error {
	tr, err := nztm.For(srid)
	if err != nil {
		return err
	}
	if tr.SRID() == nztm.SRIDGeographic {
		return nil
	}
	for i := range recs {
		for _, ring := range recs[i].Footprint {
			for j, p := range ring {
				g, err := tr.ToGeographic(p)
				if err != nil {
					return fmt.Errorf("reproject tile %d: %w", i, err)
				}
				ring[j] = g
			}
		}
	}
	return nil
}

// Intersecting returns records whose footprint shares at least one point
// with the AOI rectangle, in index order.
func (ix *Index) Intersecting(a model.AOI) []model.TileRecord {
	b := a.Bound()
	var hits []int
	ix.tree.Search([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]},
		func(_, _ [2]float64, i int) bool {
			if Intersects(ix.records[i].Footprint, b) {
				hits = append(hits, i)
			}
			return true
		})
	slices.Sort(hits)

	out := make([]model.TileRecord, 0, len(hits))
	for _, i := range hits {
		out = append(out, ix.records[i])
	}
	return out
}

// URLs of intersecting tiles, skipping records with an empty URL.
func (ix *Index) URLs(a model.AOI) []string { return URLsOf(ix.Intersecting(a)) }

func URLsOf(recs []model.TileRecord) []string {
	var urls []string
	for _, rec := range recs {
		if rec.URL != "" {
			urls = append(urls, rec.URL)
		}
	}
	return urls
}
