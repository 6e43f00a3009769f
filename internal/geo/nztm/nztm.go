// Package nztm converts between geographic coordinates and New Zealand
// Transverse Mercator 2000 (EPSG:2193).
package nztm

import (
	"errors"
	"fmt"
	"math"
)

const (
	SRID = "EPSG:2193"

	semiMajor       = 6378137.0
	inverseFlatten  = 298.257222101 // GRS80
	centralMeridian = 173.0
	scaleFactor     = 0.9996
	falseEasting    = 1600000.0
	falseNorthing   = 10000000.0
)

var ErrOutOfRange = errors.New("nztm: coordinate out of range")

// Krüger series coefficients (third order in n), computed once.
var (
	n       float64
	ecc     float64
	rectA   float64
	alpha   [3]float64
	beta    [3]float64
	delta   [3]float64
	lambda0 = centralMeridian * math.Pi / 180
)

func init() {
	f := 1 / inverseFlatten
	n = f / (2 - f)
	n2, n3 := n*n, n*n*n
	ecc = 2 * math.Sqrt(n) / (1 + n)
	rectA = semiMajor / (1 + n) * (1 + n2/4 + n2*n2/64)

	alpha = [3]float64{
		n/2 - 2*n2/3 + 5*n3/16,
		13*n2/48 - 3*n3/5,
		61 * n3 / 240,
	}
	beta = [3]float64{
		n/2 - 2*n2/3 + 37*n3/96,
		n2/48 + n3/15,
		17 * n3 / 480,
	}
	delta = [3]float64{
		2*n - 2*n2/3 - 2*n3,
		7*n2/3 - 8*n3/5,
		56 * n3 / 15,
	}
}

// Forward projects lon/lat degrees to NZTM easting/northing metres.
func Forward(lon, lat float64) (e, nn float64, err error) {
	if lat < -90 || lat > 90 || math.Abs(lon-centralMeridian) >= 90 {
		return 0, 0, fmt.Errorf("%w: lon=%v lat=%v", ErrOutOfRange, lon, lat)
	}
	phi := lat * math.Pi / 180
	dl := lon*math.Pi/180 - lambda0

	sinPhi := math.Sin(phi)
	t := math.Sinh(math.Atanh(sinPhi) - ecc*math.Atanh(ecc*sinPhi))
	xiP := math.Atan2(t, math.Cos(dl))
	etaP := math.Atanh(math.Sin(dl) / math.Sqrt(1+t*t))

	xi, eta := xiP, etaP
	for j := 1; j <= 3; j++ {
		k := 2 * float64(j)
		xi += alpha[j-1] * math.Sin(k*xiP) * math.Cosh(k*etaP)
		eta += alpha[j-1] * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}

	e = falseEasting + scaleFactor*rectA*eta
	nn = falseNorthing + scaleFactor*rectA*xi
	return e, nn, nil
}

// Inverse converts NZTM easting/northing metres back to lon/lat degrees.
func Inverse(e, nn float64) (lon, lat float64, err error) {
	if math.IsNaN(e) || math.IsNaN(nn) || math.IsInf(e, 0) || math.IsInf(nn, 0) {
		return 0, 0, fmt.Errorf("%w: e=%v n=%v", ErrOutOfRange, e, nn)
	}
	xi := (nn - falseNorthing) / (scaleFactor * rectA)
	eta := (e - falseEasting) / (scaleFactor * rectA)

	xiP, etaP := xi, eta
	for j := 1; j <= 3; j++ {
		k := 2 * float64(j)
		xiP -= beta[j-1] * math.Sin(k*xi) * math.Cosh(k*eta)
		etaP -= beta[j-1] * math.Cos(k*xi) * math.Sinh(k*eta)
	}

	chi := math.Asin(math.Sin(xiP) / math.Cosh(etaP))
	phi := chi
	for j := 1; j <= 3; j++ {
		phi += delta[j-1] * math.Sin(2*float64(j)*chi)
	}
	dl := math.Atan2(math.Sinh(etaP), math.Cos(xiP))

	lat = phi * 180 / math.Pi
	lon = (lambda0 + dl) * 180 / math.Pi
	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("%w: e=%v n=%v", ErrOutOfRange, e, nn)
	}
	return lon, lat, nil
}
