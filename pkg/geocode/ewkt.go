package geocode

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID identifies WGS84 longitude/latitude.
const SRID = 4326

// Coordinate is an (x, y) pair as returned by the geocoder: x is longitude,
// y is latitude.
type Coordinate struct {
	X float64
	Y float64
}

// Point returns c as a go-geom point tagged with SRID.
func (c Coordinate) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.X, c.Y}).SetSRID(SRID)
}

// FormatEWKT renders c as "SRID=4326;POINT(x y)".
func FormatEWKT(c Coordinate) string {
	var b strings.Builder
	b.WriteString("SRID=")
	b.WriteString(strconv.Itoa(SRID))
	b.WriteString(";POINT(")
	b.WriteString(formatNumber(c.X))
	b.WriteByte(' ')
	b.WriteString(formatNumber(c.Y))
	b.WriteByte(')')
	return b.String()
}

// EncodeEWKB converts c to little-endian EWKB bytes with SRID 4326.
func EncodeEWKB(c Coordinate) ([]byte, error) {
	data, err := ewkb.Marshal(c.Point(), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: encode EWKB")
	}
	return data, nil
}

// formatNumber writes the shortest decimal that round-trips to v. Integral
// values keep a ".0" suffix and very large or small magnitudes switch to
// exponent form, so 40 renders as "40.0" and 0.00001 as "1e-05".
func formatNumber(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
