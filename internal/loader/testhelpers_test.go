package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// square builds a closed rectangular ring polygon.
func square(minX, minY, maxX, maxY float64) *shp.Polygon {
	points := []shp.Point{
		{X: minX, Y: minY},
		{X: minX, Y: maxY},
		{X: maxX, Y: maxY},
		{X: maxX, Y: minY},
		{X: minX, Y: minY},
	}
	return &shp.Polygon{
		Box:       shp.Box{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY},
		NumParts:  1,
		NumPoints: int32(len(points)),
		Parts:     []int32{0},
		Points:    points,
	}
}

// polyline builds a single-part linestring.
func polyline(points []shp.Point) *shp.PolyLine {
	box := shp.Box{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points {
		if p.X < box.MinX {
			box.MinX = p.X
		}
		if p.X > box.MaxX {
			box.MaxX = p.X
		}
		if p.Y < box.MinY {
			box.MinY = p.Y
		}
		if p.Y > box.MaxY {
			box.MaxY = p.Y
		}
	}
	return &shp.PolyLine{
		Box:       box,
		NumParts:  1,
		NumPoints: int32(len(points)),
		Parts:     []int32{0},
		Points:    points,
	}
}

// renameDBF fixes up the attribute sidecar after writing: go-shp's writer
// names it "<base>dbf" (no dot) while the reader opens "<base>.dbf".
func renameDBF(t *testing.T, shpPath string) {
	t.Helper()
	base := strings.TrimSuffix(shpPath, ".shp")
	if _, err := os.Stat(base + "dbf"); err == nil {
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	}
}

// writeWardShapefile writes a polygon shapefile with WD24CD/WD24NM fields.
func writeWardShapefile(t *testing.T, path string, codes []string, polys []*shp.Polygon) {
	t.Helper()
	require.Equal(t, len(codes), len(polys))

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("WD24CD", 25),
		shp.StringField("WD24NM", 50),
	}))

	for i, poly := range polys {
		w.Write(poly)
		require.NoError(t, w.WriteAttribute(i, 0, codes[i]))
		require.NoError(t, w.WriteAttribute(i, 1, "Ward "+codes[i]))
	}
	w.Close()
	renameDBF(t, path)
}

// writeRiverShapefile writes a polyline shapefile with a name1 field.
func writeRiverShapefile(t *testing.T, path string, names []string, lines []*shp.PolyLine) {
	t.Helper()
	require.Equal(t, len(names), len(lines))

	w, err := shp.Create(path, shp.POLYLINE)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("name1", 50),
	}))

	for i, line := range lines {
		w.Write(line)
		require.NoError(t, w.WriteAttribute(i, 0, names[i]))
	}
	w.Close()
	renameDBF(t, path)
}

// writeFile writes text content for CSV fixtures.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
