package catalog

import (
	"fmt"
	"strings"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
)

type Result struct {
	Datasets []model.Dataset
}

func (r *Result) Names() []string {
	out := make([]string, 0, len(r.Datasets))
	for _, d := range r.Datasets {
		out = append(out, d.Name)
	}
	return out
}

// ShortNames returns the alternate names in catalog order.
func (r *Result) ShortNames() []string {
	out := make([]string, 0, len(r.Datasets))
	for _, d := range r.Datasets {
		out = append(out, d.AlternateName)
	}
	return out
}

// Find returns the first dataset whose alternate name equals shortName exactly.
func (r *Result) Find(shortName string) (model.Dataset, error) {
	for _, d := range r.Datasets {
		if d.AlternateName == shortName {
			return d, nil
		}
	}
	return model.Dataset{}, fmt.Errorf("%w: %q", ErrDatasetNotFound, shortName)
}

// PropertyValue looks name up in the dataset's own property list only.
func PropertyValue(d model.Dataset, name string) (string, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// AnnotateVerticalCRS fills VerticalCRS from property propName for every
// dataset. A dataset without the property gets an empty value; nothing is
// carried over from the previous dataset. It returns the alternate names of
// datasets that lacked the property.
func (r *Result) AnnotateVerticalCRS(propName string) (missing []string) {
	for i := range r.Datasets {
		v, ok := PropertyValue(r.Datasets[i], propName)
		r.Datasets[i].VerticalCRS = v
		if !ok {
			missing = append(missing, r.Datasets[i].AlternateName)
		}
	}
	return missing
}

func (r *Result) VerticalCRS() []string {
	out := make([]string, 0, len(r.Datasets))
	for _, d := range r.Datasets {
		out = append(out, d.VerticalCRS)
	}
	return out
}

// TileIndexURL is base + id + "/" + id + "_TileIndex.zip".
func TileIndexURL(base, id string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + id + "/" + TileIndexArchiveName(id)
}

func TileIndexArchiveName(id string) string {
	return id + "_TileIndex.zip"
}
