// Package pipeline extracts address rows from the source database, geocodes
// them and loads the augmented rows into the destination table.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/sells-group/geocode-etl/pkg/geocode"
)

// Column names on either side of the run.
const (
	SourceAddressColumn = "STREET_ADDRESS"
	AddressColumn       = "street_address"
	GeoColumn           = "geo"
)

// SinkColumns lists the destination columns in insert order.
var SinkColumns = []string{AddressColumn, GeoColumn}

// Row is one source row: column names and values in query order.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of column name, matching exactly first and then
// case-insensitively.
func (r Row) Get(name string) (any, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	for i, c := range r.Columns {
		if strings.EqualFold(c, name) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// AugmentedRow is a source row cut down to its street address plus the
// geocoded point.
type AugmentedRow struct {
	StreetAddress string
	Geo           string // SRID=4326;POINT(x y)
	Coordinate    geocode.Coordinate
}

// toText renders a scanned column value as a string.
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
