package shpconv

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	goshp "github.com/jonas-p/go-shp"
	"github.com/kr/pretty"
)

func TestLayerWriteRead(t *testing.T) {
	dir := t.TempDir()
	target, err := NewCRS(DefaultTargetEPSG)
	if err != nil {
		t.Fatal(err)
	}
	l := &Layer{
		Name:      "roads",
		CRS:       target,
		ShapeType: goshp.POLYLINEZ,
		Fields: []goshp.Field{
			goshp.StringField("l_linkid", 10),
			goshp.NumberField("laneno", 4),
			goshp.FloatField("distance", 12, 3),
		},
		Features: []Feature{
			{
				Geometry: LineString{Coords: []Coord{
					{X: 500000, Y: 4000000, Z: 10, M: 0},
					{X: 500100, Y: 4000050, Z: 12.5, M: 111.8},
				}, Is3D: true},
				Attributes: Record{{Name: "l_linkid", Value: "A1"}, {Name: "laneno", Value: "2"}, {Name: "distance", Value: "111.803"}},
			},
			{
				Geometry: MultiLineString{Lines: [][]Coord{
					{{X: 1, Y: 2, Z: 3, M: 4}, {X: 5, Y: 6, Z: 7, M: 8}},
					{{X: 9, Y: 10, Z: 11, M: 12}, {X: 13, Y: 14, Z: 15, M: 16}},
				}, Is3D: true},
				Attributes: Record{{Name: "l_linkid", Value: "B2"}, {Name: "laneno", Value: "1"}, {Name: "distance", Value: "8.000"}},
			},
		},
		CPG: "UTF-8",
	}
	path := filepath.Join(dir, "ROADS.shp")
	if err := l.Write(path); err != nil {
		t.Fatal(err)
	}
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj", ".cpg"} {
		if _, err := os.Stat(filepath.Join(dir, "ROADS"+ext)); err != nil {
			t.Errorf("missing %s file: %v", ext, err)
		}
	}

	l2, err := ReadLayer(path)
	if err != nil {
		t.Fatal(err)
	}
	if l2.Name != "ROADS" || l2.ShapeType != goshp.POLYLINEZ || l2.CPG != "UTF-8" {
		t.Errorf("have name %q, type %d, code page %q", l2.Name, l2.ShapeType, l2.CPG)
	}
	if !l2.CRS.Equal(target) {
		t.Errorf("CRS: have %v, want %v", l2.CRS, target)
	}
	if l2.CRS.EPSG != DefaultTargetEPSG {
		t.Errorf("CRS code: have %d", l2.CRS.EPSG)
	}
	if diff := pretty.Diff(l2.Fields, l.Fields); len(diff) != 0 {
		t.Errorf("fields: %v", diff)
	}
	if len(l2.Features) != len(l.Features) {
		t.Fatalf("have %d features, want %d", len(l2.Features), len(l.Features))
	}
	for i, f := range l2.Features {
		if diff := pretty.Diff(f.Geometry, l.Features[i].Geometry); len(diff) != 0 {
			t.Errorf("feature %d geometry: %v", i, diff)
		}
	}
	if v, ok := l2.Features[0].Attributes.Get("l_linkid"); !ok || v != "A1" {
		t.Errorf("l_linkid: have %q, %v", v, ok)
	}
	if v, _ := l2.Features[1].Attributes.Get("laneno"); v != "1" {
		t.Errorf("laneno: have %q", v)
	}
	if v, _ := l2.Features[0].Attributes.Get("distance"); v != "111.803" {
		t.Errorf("distance: have %q", v)
	}

	b := l2.Bounds()
	if b.Min.X != 1 || b.Min.Y != 2 || b.Max.X != 500100 || b.Max.Y != 4000050 {
		t.Errorf("bounds: have %+v", b)
	}
}

// writeGoShp writes a 2D point shapefile without a .prj file directly with
// go-shp.
func writeGoShp(t *testing.T, path string) {
	w, err := goshp.Create(path, goshp.POINT)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.SetFields([]goshp.Field{goshp.StringField("id", 8)}); err != nil {
		t.Fatal(err)
	}
	for i, p := range []goshp.Point{{X: 127, Y: 37}, {X: 128, Y: 36}} {
		n := w.Write(&goshp.Point{X: p.X, Y: p.Y})
		if err := w.WriteAttribute(int(n), 0, []string{"p1", "p2"}[i]); err != nil {
			t.Fatal(err)
		}
	}
	w.Close()
}

func TestReadLayerWithoutProjection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.shp")
	writeGoShp(t, path)

	l, err := ReadLayer(path)
	if err != nil {
		t.Fatal(err)
	}
	if l.CRS != nil {
		t.Errorf("CRS: have %v, want undefined", l.CRS)
	}
	want := []Feature{
		{Geometry: Point{Coord: Coord{X: 127, Y: 37}}, Attributes: Record{{Name: "id", Value: "p1"}}},
		{Geometry: Point{Coord: Coord{X: 128, Y: 36}}, Attributes: Record{{Name: "id", Value: "p2"}}},
	}
	if diff := pretty.Diff(l.Features, want); len(diff) != 0 {
		t.Error(diff)
	}

	// An empty .prj file is the same as none.
	if err := ioutil.WriteFile(filepath.Join(dir, "points.prj"), []byte("\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if l, err = ReadLayer(path); err != nil {
		t.Fatal(err)
	} else if l.CRS != nil {
		t.Errorf("CRS with empty .prj: have %v, want undefined", l.CRS)
	}
}

func TestReadLayerMissing(t *testing.T) {
	_, err := ReadLayer(filepath.Join(t.TempDir(), "missing.shp"))
	if _, ok := err.(*TransformError); !ok {
		t.Errorf("have %T (%v), want *TransformError", err, err)
	}
}

func TestWriteMismatchedGeometry(t *testing.T) {
	l := &Layer{
		ShapeType: goshp.POINTZ,
		Features:  []Feature{{Geometry: LineString{Coords: []Coord{{X: 1, Y: 2}}}}},
	}
	if err := l.Write(filepath.Join(t.TempDir(), "BAD.shp")); err == nil {
		t.Error("expected an error for a line string in a point layer")
	}
}

func TestLayerRename(t *testing.T) {
	l := &Layer{
		Name:      "roads",
		ShapeType: goshp.POLYLINE,
		Fields:    []goshp.Field{goshp.StringField("linkid", 10), goshp.StringField("LinkID", 10)},
		Features:  []Feature{{Geometry: Null{}, Attributes: Record{{Name: "linkid", Value: "a"}, {Name: "LinkID", Value: "b"}}}},
	}
	err := l.Rename(DefaultFieldMapping())
	te, ok := err.(*TransformError)
	if !ok {
		t.Fatalf("have %v, want *TransformError", err)
	}
	if te.File != "roads" || te.Feature != -1 {
		t.Errorf("have %+v", te)
	}

	l.Path = filepath.Join("data", "roads.shp")
	if err = l.Rename(DefaultFieldMapping()); err == nil || err.(*TransformError).File != l.Path {
		t.Errorf("have %v, want an error naming %s", err, l.Path)
	}
}

func TestReadLayerEPSGCandidates(t *testing.T) {
	belt, err := NewCRS(5186)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "belt.shp")
	l := &Layer{
		CRS:       belt,
		ShapeType: goshp.POINT,
		Fields:    []goshp.Field{goshp.StringField("id", 4)},
		Features:  []Feature{{Geometry: Point{Coord: Coord{X: 200000, Y: 500000}}, Attributes: Record{{Name: "id", Value: "p1"}}}},
	}
	if err := l.Write(path); err != nil {
		t.Fatal(err)
	}

	l2, err := ReadLayer(path)
	if err != nil {
		t.Fatal(err)
	}
	if l2.CRS.EPSG != 0 || l2.Path != path {
		t.Errorf("have EPSG:%d, path %q", l2.CRS.EPSG, l2.Path)
	}
	if l2, err = ReadLayer(path, 5186); err != nil {
		t.Fatal(err)
	}
	if l2.CRS.EPSG != 5186 || l2.CRS.String() != "EPSG:5186" {
		t.Errorf("have %v", l2.CRS)
	}
}
