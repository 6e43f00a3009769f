// Package model defines core domain types shared across the toolkit.
package model

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

const SRIDGeographic = "EPSG:4326"

// AOI is an axis-aligned area of interest in geographic coordinates.
type AOI struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
	SRID           string
}

// String representation matching wfs/wms bbox format
func (a AOI) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%s", a.MinLon, a.MinLat, a.MaxLon, a.MaxLat, a.srid())
}

func (a AOI) srid() string {
	if a.SRID == "" {
		return SRIDGeographic
	}
	return a.SRID
}

func (a AOI) Validate() error {
	if !(a.MinLon >= -180 && a.MinLon <= 180 && a.MaxLon >= -180 && a.MaxLon <= 180) {
		return errors.New("longitude must be in [-180,180]")
	}
	if !(a.MinLat >= -90 && a.MinLat <= 90 && a.MaxLat >= -90 && a.MaxLat <= 90) {
		return errors.New("latitude must be in [-90,90]")
	}
	if a.MaxLon <= a.MinLon || a.MaxLat <= a.MinLat {
		return errors.New("bounds must satisfy maxlon>minlon and maxlat>minlat")
	}
	return nil
}

func (a AOI) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{a.MinLon, a.MinLat},
		Max: orb.Point{a.MaxLon, a.MaxLat},
	}
}

// Ring returns the closed outline bottom-left, bottom-right, top-right,
// top-left, bottom-left.
func (a AOI) Ring() orb.Ring {
	return orb.Ring{
		{a.MinLon, a.MinLat},
		{a.MaxLon, a.MinLat},
		{a.MaxLon, a.MaxLat},
		{a.MinLon, a.MaxLat},
		{a.MinLon, a.MinLat},
	}
}

func (a AOI) Polygon() orb.Polygon {
	return orb.Polygon{a.Ring()}
}

// Area in square units of the AOI reference system.
func (a AOI) Area() float64 {
	return (a.MaxLon - a.MinLon) * (a.MaxLat - a.MinLat)
}

type Property struct {
	Name  string
	Value string
}

type Dataset struct {
	Name          string
	AlternateName string
	VerticalCRS   string
	Properties    []Property
}

// TileRecord is one footprint of a tile index layer.
type TileRecord struct {
	URL       string
	Footprint orb.Polygon
}

type Cells []string
