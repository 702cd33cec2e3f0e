package rivers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/samwcounsell/APEM-River-Quality/internal/model"
	"github.com/samwcounsell/APEM-River-Quality/internal/proj"
)

func bng(t *testing.T) *proj.Transformer {
	t.Helper()
	tr, err := proj.NewTransformer(27700, 4326)
	require.NoError(t, err)
	return tr
}

// segment builds a single-part river segment from flat easting/northing pairs.
func segment(name string, flat ...float64) model.RiverSegment {
	mls := geom.NewMultiLineString(geom.XY).SetSRID(27700)
	ls := geom.NewLineStringFlat(geom.XY, flat)
	if err := mls.Push(ls); err != nil {
		panic(err)
	}
	return model.RiverSegment{Name: name, Geometry: mls}
}

func TestNameContains(t *testing.T) {
	pred := NameContains("Itchen")

	assert.True(t, pred(model.RiverSegment{Name: "River Itchen"}))
	assert.True(t, pred(model.RiverSegment{Name: "ITCHEN NAVIGATION"}))
	assert.True(t, pred(model.RiverSegment{Name: "itchen"}))
	assert.False(t, pred(model.RiverSegment{Name: "River Test"}))
	assert.False(t, pred(model.RiverSegment{Name: ""}))
}

func TestMaxLatitudeAtMost(t *testing.T) {
	tr := bng(t)
	pred := MaxLatitudeAtMost(tr, 51.5)

	// Southern segment: northings around 110000 sit near latitude 50.9.
	south := segment("River Itchen", 445000, 108000, 446000, 112000)
	assert.True(t, pred(south))

	// Northern segment: northing 300000 is well above latitude 51.5.
	north := segment("River Itchen", 445000, 295000, 446000, 300000)
	assert.False(t, pred(north))

	// One high vertex is enough to drop the whole segment.
	mixed := segment("River Itchen", 445000, 108000, 446000, 300000)
	assert.False(t, pred(mixed))

	assert.False(t, pred(model.RiverSegment{Name: "River Itchen"}))
}

func TestWithinBBox_StrictContainment(t *testing.T) {
	box := model.BBox{MinEasting: 439000, MaxEasting: 451000, MinNorthing: 100000, MaxNorthing: 130000}
	pred := WithinBBox(box)

	inside := segment("a", 440000, 101000, 450000, 129000)
	assert.True(t, pred(inside))

	// Partial overlap is excluded: one vertex out drops the segment.
	straddling := segment("b", 440000, 101000, 452000, 110000)
	assert.False(t, pred(straddling))

	outside := segment("c", 500000, 200000, 510000, 210000)
	assert.False(t, pred(outside))

	// Vertices on the bounds are inside.
	onEdge := segment("d", 439000, 100000, 451000, 130000)
	assert.True(t, pred(onEdge))

	assert.False(t, pred(model.RiverSegment{Name: "empty"}))
}

func TestNamed_ItchenDisambiguation(t *testing.T) {
	tr := bng(t)

	// Two segments share the name; only the southern one survives.
	segments := []model.RiverSegment{
		segment("River Itchen", 445000, 108000, 446000, 112000),
		segment("River Itchen", 445000, 295000, 446000, 300000),
		segment("River Test", 441000, 108000, 442500, 111000),
	}

	out := Named(segments, "Itchen", tr, 51.5)
	require.Len(t, out, 1)
	assert.Equal(t, "River Itchen", out[0].Name)

	// Output is reprojected.
	require.NotNil(t, out[0].Geometry)
	assert.Equal(t, 4326, out[0].Geometry.SRID())
	lat := out[0].Geometry.FlatCoords()[1]
	assert.InDelta(t, 50.9, lat, 0.2)
}

func TestInBBox(t *testing.T) {
	tr := bng(t)
	box := model.BBox{MinEasting: 439000, MaxEasting: 451000, MinNorthing: 100000, MaxNorthing: 130000}

	segments := []model.RiverSegment{
		segment("in", 440000, 105000, 450000, 125000),
		segment("straddles", 450000, 105000, 455000, 125000),
		segment("out", 500000, 200000, 505000, 210000),
	}

	out := InBBox(segments, box, tr)
	require.Len(t, out, 1)
	assert.Equal(t, "in", out[0].Name)
	assert.Equal(t, 4326, out[0].Geometry.SRID())
}

func TestFilter_PreservesOrder(t *testing.T) {
	segments := []model.RiverSegment{
		segment("b1", 440000, 105000),
		segment("a", 500000, 200000),
		segment("b2", 441000, 106000),
	}
	box := model.BBox{MinEasting: 439000, MaxEasting: 451000, MinNorthing: 100000, MaxNorthing: 130000}

	out := Filter(segments, WithinBBox(box))
	require.Len(t, out, 2)
	assert.Equal(t, "b1", out[0].Name)
	assert.Equal(t, "b2", out[1].Name)
}

func TestReproject_PreservesCountAndParts(t *testing.T) {
	tr := bng(t)
	segments := []model.RiverSegment{
		segment("a", 440000, 105000, 441000, 106000),
		segment("b", 445000, 110000, 446000, 111000, 447000, 112000),
	}

	out := Reproject(segments, tr)
	require.Len(t, out, 2)
	assert.Len(t, out[0].Geometry.FlatCoords(), 4)
	assert.Len(t, out[1].Geometry.FlatCoords(), 6)

	// Originals untouched: still projected coordinates.
	assert.Equal(t, 27700, segments[0].Geometry.SRID())
	assert.InDelta(t, 440000, segments[0].Geometry.FlatCoords()[0], 1e-9)
}
