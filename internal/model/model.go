// Package model holds the domain types shared across the pipeline stages.
package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// Ward is a local-government administrative boundary polygon. Count is derived
// by the spatial joiner and is zero until the join runs.
type Ward struct {
	Code     string            // unique ward code, e.g. WD24CD value
	Name     string            // human-readable ward name, may be empty
	Attrs    map[string]string // remaining shapefile attributes, schema preserved
	Geometry *geom.MultiPolygon

	// Count is the number of sites whose assigned ward code equals Code.
	Count int
}

// Site is a monitoring location from the site registry. Coordinates are
// eastings/northings in the source projected CRS; Lon/Lat are filled by the
// spatial joiner after reprojection. WardCode is nil when no ward contains the
// site (or the tie-break strategy declines to assign one).
type Site struct {
	ID       string  `csv:"site_id"`
	Easting  float64 `csv:"easting"`
	Northing float64 `csv:"northing"`

	// Attrs carries registry columns with no typed field, schema preserved.
	Attrs map[string]string `csv:"-"`

	Lon      float64 `csv:"-"`
	Lat      float64 `csv:"-"`
	WardCode *string `csv:"-"`
}

// BioRecord is one biological monitoring observation keyed by site id. The
// coordinate, ward, and geometry fields are nil until the merger attaches them;
// they stay nil when the site id has no matching registry entry.
type BioRecord struct {
	SiteID     string
	SampleDate time.Time
	Waterbody  string
	NTaxa      float64
	ASPT       float64
	TotalScore float64

	// Attrs carries sheet columns with no typed field, schema preserved.
	Attrs map[string]string

	Easting  *float64
	Northing *float64
	WardCode *string
	Geometry *geom.Point
}

// Matched reports whether the record was joined to a registry site.
func (b *BioRecord) Matched() bool {
	return b.Easting != nil && b.Northing != nil
}

// RiverSegment is one named linestring of the river network, in whichever CRS
// the collection currently carries.
type RiverSegment struct {
	Name     string
	Attrs    map[string]string
	Geometry *geom.MultiLineString
}

// BBox is an axis-aligned bounding box in projected coordinates.
type BBox struct {
	MinEasting  float64
	MaxEasting  float64
	MinNorthing float64
	MaxNorthing float64
}

// Contains reports whether the point lies within the box, bounds inclusive.
func (b BBox) Contains(easting, northing float64) bool {
	return easting >= b.MinEasting && easting <= b.MaxEasting &&
		northing >= b.MinNorthing && northing <= b.MaxNorthing
}
