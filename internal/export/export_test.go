package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/samwcounsell/APEM-River-Quality/internal/model"
	"github.com/samwcounsell/APEM-River-Quality/internal/pipeline"
	"github.com/samwcounsell/APEM-River-Quality/internal/proj"
)

func bng(t *testing.T) *proj.Transformer {
	t.Helper()
	tr, err := proj.NewTransformer(27700, 4326)
	require.NoError(t, err)
	return tr
}

func wardFixture(code string, count int) model.Ward {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(27700)
	poly := geom.NewPolygon(geom.XY)
	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		440000, 100000, 440000, 110000, 450000, 110000, 450000, 100000, 440000, 100000,
	})
	_ = poly.Push(ring)
	_ = mp.Push(poly)
	return model.Ward{Code: code, Name: "Ward " + code, Count: count, Geometry: mp}
}

func readFeatureCollection(t *testing.T, path string) *geojson.FeatureCollection {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var fc geojson.FeatureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	return &fc
}

func TestWriteWardChoropleth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wards.geojson")
	wards := []model.Ward{wardFixture("A", 2), wardFixture("B", 0)}

	require.NoError(t, WriteWardChoropleth(path, wards, bng(t)))

	fc := readFeatureCollection(t, path)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "A", fc.Features[0].Properties["code"])
	assert.EqualValues(t, 2, fc.Features[0].Properties["count"])
	assert.EqualValues(t, 0, fc.Features[1].Properties["count"])
}

func TestWriteBioPoints_RowCountMatchesRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bio.geojson")

	ward := "A"
	pt := geom.NewPointFlat(geom.XY, []float64{-1.36, 50.9}).SetSRID(4326)
	records := []model.BioRecord{
		{SiteID: "S1", TotalScore: 120, WardCode: &ward, Geometry: pt},
		{SiteID: "S2", TotalScore: 80}, // unmatched: no location, omitted
	}

	require.NoError(t, WriteBioPoints(path, records))

	fc := readFeatureCollection(t, path)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "S1", fc.Features[0].Properties["site_id"])
	assert.Equal(t, "A", fc.Features[0].Properties["ward_code"])
	assert.NotNil(t, fc.Features[0].Geometry)
}

func TestWriteRivers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rivers.geojson")

	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)
	_ = mls.Push(geom.NewLineStringFlat(geom.XY, []float64{-1.36, 50.9, -1.35, 50.95}))
	segments := []model.RiverSegment{{Name: "River Itchen", Geometry: mls}}

	require.NoError(t, WriteRivers(path, segments))

	fc := readFeatureCollection(t, path)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "River Itchen", fc.Features[0].Properties["name"])
}

func TestWriteRivers_EmptyCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rivers.geojson")

	require.NoError(t, WriteRivers(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Strict GeoJSON consumers require an array, not null.
	assert.Contains(t, string(data), `"features":[]`)
	fc := readFeatureCollection(t, path)
	assert.Empty(t, fc.Features)
}

func TestWriteWardSummary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.csv")

	wardA := "A"
	wards := []model.Ward{wardFixture("A", 2), wardFixture("B", 0)}
	records := []model.BioRecord{
		{SiteID: "S1", TotalScore: 100, WardCode: &wardA},
		{SiteID: "S2", TotalScore: 120, WardCode: &wardA},
		{SiteID: "S3", TotalScore: 50}, // no ward: excluded from every summary row
	}

	require.NoError(t, WriteWardSummary(path, wards, records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	// Header + one row per ward, zero-count wards included.
	require.Len(t, rows, 3)
	assert.Equal(t, "ward_code", rows[0][0])

	assert.Equal(t, []string{"A", "Ward A", "2", "2", "110.00", "100.00", "120.00"}, rows[1])
	assert.Equal(t, []string{"B", "Ward B", "0", "0", "", "", ""}, rows[2])
}

func TestAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	res := &pipeline.Result{
		Wards: []model.Ward{wardFixture("A", 1)},
		Bio:   []model.BioRecord{{SiteID: "S1"}},
	}
	require.NoError(t, All(dir, res, bng(t)))

	for _, name := range []string{
		"ward_counts.geojson", "bio_sites.geojson",
		"river_named.geojson", "river_bbox.geojson", "ward_summary.csv",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}
