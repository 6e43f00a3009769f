// Package pdal describes point-cloud pipelines and hands them to the PDAL engine.
package pdal

import (
	"encoding/json"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
)

// Stage is one entry in a pipeline document.
type Stage interface {
	Kind() string
}

// Reader reads a local or remote point-cloud file. With an empty Type the
// stage is written as a bare filename and PDAL infers the driver.
type Reader struct {
	Type     string
	Filename string
}

func (r Reader) Kind() string {
	if r.Type == "" {
		return "reader"
	}
	return r.Type
}

func (r Reader) MarshalJSON() ([]byte, error) {
	if r.Type == "" {
		return json.Marshal(r.Filename)
	}
	return json.Marshal(struct {
		Type     string `json:"type"`
		Filename string `json:"filename"`
	}{r.Type, r.Filename})
}

// Bounds are the crop rectangle in the crop SRS.
type Bounds struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
}

func BoundsOf(a model.AOI) Bounds {
	return Bounds{MinX: a.MinLon, MinY: a.MinLat, MaxX: a.MaxLon, MaxY: a.MaxLat}
}

type Crop struct {
	Bounds Bounds
	SRS    string
}

func (Crop) Kind() string { return "filters.crop" }

func (c Crop) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Bounds Bounds `json:"bounds"`
		SRS    string `json:"a_srs,omitempty"`
	}{c.Kind(), c.Bounds, c.SRS})
}

type Merge struct{}

func (Merge) Kind() string { return "filters.merge" }

func (m Merge) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"type": m.Kind()})
}

type COPCWriter struct {
	Filename string
}

func (COPCWriter) Kind() string { return "writers.copc" }

func (w COPCWriter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Filename string `json:"filename"`
	}{w.Kind(), w.Filename})
}

type Outlier struct {
	Method     string
	MeanK      int
	Multiplier float64
}

func (Outlier) Kind() string { return "filters.outlier" }

func (o Outlier) MarshalJSON() ([]byte, error) {
	method := o.Method
	if method == "" {
		method = "statistical"
	}
	return json.Marshal(struct {
		Type       string  `json:"type"`
		Method     string  `json:"method"`
		Multiplier float64 `json:"multiplier"`
		MeanK      int     `json:"mean_k"`
	}{o.Kind(), method, o.Multiplier, o.MeanK})
}

type Range struct {
	Limits string
}

func (Range) Kind() string { return "filters.range" }

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Limits string `json:"limits"`
	}{r.Kind(), r.Limits})
}

// Stats records per-dimension statistics of the points that reach it.
type Stats struct {
	Dimensions string
}

func (Stats) Kind() string { return "filters.stats" }

func (f Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string `json:"type"`
		Dimensions string `json:"dimensions,omitempty"`
	}{f.Kind(), f.Dimensions})
}

type GDALWriter struct {
	Filename   string
	Driver     string
	Resolution float64
	GDALOpts   string
	OutputType string
}

func (GDALWriter) Kind() string { return "writers.gdal" }

func (w GDALWriter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string  `json:"type"`
		Filename   string  `json:"filename"`
		Driver     string  `json:"gdaldriver"`
		Resolution float64 `json:"resolution"`
		GDALOpts   string  `json:"gdalopts,omitempty"`
		OutputType string  `json:"output_type"`
	}{w.Kind(), w.Filename, w.Driver, w.Resolution, w.GDALOpts, w.OutputType})
}
