package nztm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

const SRIDGeographic = "EPSG:4326"

var ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

// ESRI flavoured WKT as written into .prj sidecar files.
const (
	WKTGeographic = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
	WKTNZTM       = `PROJCS["NZGD_2000_New_Zealand_Transverse_Mercator",GEOGCS["GCS_NZGD_2000",DATUM["D_NZGD_2000",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],PARAMETER["False_Easting",1600000.0],PARAMETER["False_Northing",10000000.0],PARAMETER["Central_Meridian",173.0],PARAMETER["Scale_Factor",0.9996],PARAMETER["Latitude_Of_Origin",0.0],UNIT["Meter",1.0]]`
)

// Transformer moves points between a reference system and EPSG:4326.
type Transformer interface {
	SRID() string
	ToGeographic(p orb.Point) (orb.Point, error)
	FromGeographic(p orb.Point) (orb.Point, error)
}

type identity struct{}

func (identity) SRID() string                                 { return SRIDGeographic }
func (identity) ToGeographic(p orb.Point) (orb.Point, error)   { return p, nil }
func (identity) FromGeographic(p orb.Point) (orb.Point, error) { return p, nil }

type tm struct{}

func (tm) SRID() string { return SRID }

func (tm) ToGeographic(p orb.Point) (orb.Point, error) {
	lon, lat, err := Inverse(p[0], p[1])
	return orb.Point{lon, lat}, err
}

func (tm) FromGeographic(p orb.Point) (orb.Point, error) {
	e, n, err := Forward(p[0], p[1])
	return orb.Point{e, n}, err
}

func normalize(srid string) string {
	return strings.ToUpper(strings.TrimSpace(srid))
}

// For returns the transformer for srid. NZGD2000 geographic (EPSG:4167) is
// treated as EPSG:4326; the datums agree to well under a metre.
func For(srid string) (Transformer, error) {
	switch normalize(srid) {
	case "", SRIDGeographic, "EPSG:4167", "CRS84", "OGC:CRS84":
		return identity{}, nil
	case SRID:
		return tm{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCRS, srid)
	}
}

func WKT(srid string) (string, error) {
	switch normalize(srid) {
	case "", SRIDGeographic:
		return WKTGeographic, nil
	case SRID:
		return WKTNZTM, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCRS, srid)
	}
}

// DetectPRJ maps the WKT of a .prj file to a supported SRID.
func DetectPRJ(wkt string) (string, error) {
	s := strings.ToUpper(strings.Join(strings.Fields(wkt), ""))
	switch {
	case s == "":
		return "", fmt.Errorf("%w: empty projection", ErrUnsupportedCRS)
	case strings.HasPrefix(s, "PROJCS"):
		if strings.Contains(s, "NEW_ZEALAND_TRANSVERSE_MERCATOR") || strings.Contains(s, "NZTM") ||
			(strings.Contains(s, "TRANSVERSE_MERCATOR") && strings.Contains(s, `"CENTRAL_MERIDIAN",173`)) {
			return SRID, nil
		}
		return "", fmt.Errorf("%w: %.60s", ErrUnsupportedCRS, wkt)
	case strings.HasPrefix(s, "GEOGCS"):
		if strings.Contains(s, "WGS") || strings.Contains(s, "NZGD") || strings.Contains(s, "GRS_1980") {
			return SRIDGeographic, nil
		}
		// any other datum in degrees from Greenwich is within survey tolerance
		if strings.Contains(s, `PRIMEM["GREENWICH",0`) && strings.Contains(s, `UNIT["DEGREE"`) {
			return SRIDGeographic, nil
		}
		return "", fmt.Errorf("%w: %.60s", ErrUnsupportedCRS, wkt)
	default:
		return "", fmt.Errorf("%w: %.60s", ErrUnsupportedCRS, wkt)
	}
}
