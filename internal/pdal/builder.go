package pdal

import (
	"encoding/json"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
)

const (
	GroundLimits   = "Classification[2:2]"
	defaultCropSRS = "EPSG:4326"
)

// Builder accumulates stages in order. The document is only rendered by MarshalJSON.
type Builder struct {
	stages []Stage
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Add(s ...Stage) *Builder {
	b.stages = append(b.stages, s...)
	return b
}

func (b *Builder) Stages() []Stage {
	out := make([]Stage, len(b.stages))
	copy(out, b.stages)
	return out
}

func (b *Builder) Len() int { return len(b.stages) }

func (b *Builder) MarshalJSON() ([]byte, error) {
	stages := b.stages
	if stages == nil {
		stages = []Stage{}
	}
	return json.Marshal(struct {
		Pipeline []Stage `json:"pipeline"`
	}{stages})
}

// CropMergePipeline pairs a reader and crop per URL, then merges into one COPC file.
func CropMergePipeline(urls []string, a model.AOI, out string) *Builder {
	b := NewBuilder()
	bounds := BoundsOf(a)
	for _, u := range urls {
		b.Add(Reader{Type: "readers.las", Filename: u}, Crop{Bounds: bounds, SRS: defaultCropSRS})
	}
	return b.Add(Merge{}, COPCWriter{Filename: out})
}

type DTMOptions struct {
	MeanK      int
	Multiplier float64
	Resolution float64
}

func (o DTMOptions) withDefaults() DTMOptions {
	if o.MeanK <= 0 {
		o.MeanK = 8
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 3
	}
	if o.Resolution <= 0 {
		o.Resolution = 1.0
	}
	return o
}

// DTMPipeline keeps ground returns after outlier removal and rasterises the
// minimum elevation per cell. The stats stage counts the ground points.
func DTMPipeline(in, out string, opts DTMOptions) *Builder {
	opts = opts.withDefaults()
	return NewBuilder().Add(
		Reader{Filename: in},
		Outlier{Method: "statistical", MeanK: opts.MeanK, Multiplier: opts.Multiplier},
		Range{Limits: GroundLimits},
		Stats{Dimensions: "Classification"},
		GDALWriter{
			Filename:   out,
			Driver:     "GTiff",
			Resolution: opts.Resolution,
			GDALOpts:   "TILED=YES,COMPRESS=DEFLATE",
			OutputType: "min",
		},
	)
}
