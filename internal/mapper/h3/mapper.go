// Package h3mapper reports the H3 cells covering an area of interest.
package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

// CellsForAOI returns the sorted cells whose centres fall inside the AOI. An
// AOI smaller than one cell yields the single cell holding its centre.
func (m *Mapper) CellsForAOI(a model.AOI, res int) (model.Cells, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("aoi: %w", err)
	}
	cells, err := polyfillOne(toLoop(a.Ring()), nil, res)
	if err != nil {
		return nil, err
	}
	if len(cells) > 0 {
		return cells, nil
	}
	c, err := h3.LatLngToCell(h3.LatLng{
		Lat: (a.MinLat + a.MaxLat) / 2,
		Lng: (a.MinLon + a.MaxLon) / 2,
	}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 cell for centre: %w", err)
	}
	return model.Cells{c.String()}, nil
}

// CellsForPolygon covers an arbitrary lon/lat polygon, honouring holes.
func (m *Mapper) CellsForPolygon(p orb.Polygon, res int) (model.Cells, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return nil, errors.New("empty polygon")
	}
	var holes []h3.GeoLoop
	for i := 1; i < len(p); i++ {
		h := toLoop(p[i])
		if len(h) < 3 {
			return nil, fmt.Errorf("hole %d has < 3 distinct vertices", i-1)
		}
		holes = append(holes, h)
	}
	return polyfillOne(toLoop(p[0]), holes, res)
}

// --- helpers ---

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// Convert a closed orb ring to an h3.GeoLoop, dropping the duplicated closing vertex.
func toLoop(r orb.Ring) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(r))
	for _, p := range r {
		loop = append(loop, h3.LatLng{Lat: p[1], Lng: p[0]})
	}
	if len(loop) >= 2 {
		last := loop[len(loop)-1]
		first := loop[0]
		if last.Lat == first.Lat && last.Lng == first.Lng {
			loop = loop[:len(loop)-1]
		}
	}
	return loop
}

// polyfillOne computes unique cells and returns them sorted for determinism.
func polyfillOne(outer h3.GeoLoop, holes []h3.GeoLoop, res int) (model.Cells, error) {
	if len(outer) < 3 {
		return nil, errors.New("outer ring has < 3 distinct vertices")
	}
	poly := h3.GeoPolygon{
		GeoLoop: outer,
		Holes:   holes,
	}

	indexes, err := h3.PolygonToCells(poly, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}

	out := make([]string, 0, len(indexes))
	seen := make(map[string]struct{}, len(indexes))
	for _, idx := range indexes {
		s := idx.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
