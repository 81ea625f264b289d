/*
Copyright © 2026 the shpconv authors.
This file is part of shpconv.

shpconv is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

shpconv is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with shpconv.  If not, see <http://www.gnu.org/licenses/>.
*/

package shpconv

import (
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	goshp "github.com/jonas-p/go-shp"
)

// Feature is a geometry and its attributes.
type Feature struct {
	Geometry   Geometry
	Attributes Record
}

// Layer is the in-memory contents of one shapefile.
type Layer struct {
	// Name is the base name of the file the layer was read from.
	Name string

	// Path is the file the layer was read from. It is empty for layers
	// built in memory.
	Path string

	// CRS is nil if the shapefile had no projection information.
	CRS *CRS

	ShapeType goshp.ShapeType
	Fields    []goshp.Field
	Features  []Feature

	// CPG holds the contents of the code page (.cpg) file, if any.
	// Attribute bytes are carried through without re-encoding.
	CPG string
}

// sidecar returns the path of the file next to the shapefile at path
// with the given extension.
func sidecar(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// ReadLayer reads the shapefile at path along with its .prj and .cpg
// files, if they exist. The projection is identified by EPSG code when
// it matches WGS 84, the default target, or one of the given codes.
func ReadLayer(path string, epsg ...int) (*Layer, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, &TransformError{File: path, Feature: -1, Err: err}
	}
	defer d.Close()

	fields := d.Fields()
	l := &Layer{
		Name:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:      path,
		ShapeType: d.GeometryType,
		Fields:    fields,
	}

	if b, err := ioutil.ReadFile(sidecar(path, ".prj")); err == nil && strings.TrimSpace(string(b)) != "" {
		sr, err := d.SR()
		if err != nil {
			return nil, &TransformError{File: path, Feature: -1,
				Err: fmt.Errorf("reading projection: %v", err)}
		}
		l.CRS = &CRS{WKT: strings.TrimSpace(string(b)), SR: sr}
		l.CRS.matchEPSG(append(epsg, WGS84, DefaultTargetEPSG)...)
	} else if err != nil && !os.IsNotExist(err) {
		return nil, &TransformError{File: path, Feature: -1, Err: err}
	}

	if b, err := ioutil.ReadFile(sidecar(path, ".cpg")); err == nil {
		l.CPG = strings.TrimSpace(string(b))
	}

	for d.Next() {
		i, s := d.Shape()
		g, err := fromShape(s)
		if err != nil {
			return nil, &TransformError{File: path, Feature: i, Err: err}
		}
		rec := make(Record, len(fields))
		for j, f := range fields {
			rec[j] = Attribute{
				Name:  fieldName(f),
				Value: strings.TrimRight(d.ReadAttribute(i, j), "\x00 "),
			}
		}
		l.Features = append(l.Features, Feature{Geometry: g, Attributes: rec})
	}
	if err := d.Err(); err != nil {
		return nil, &TransformError{File: path, Feature: len(l.Features), Err: err}
	}
	return l, nil
}

// file names l in errors.
func (l *Layer) file() string {
	if l.Path != "" {
		return l.Path
	}
	return l.Name
}

// Bounds returns the horizontal extent of all features in l.
func (l *Layer) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, f := range l.Features {
		b.Extend(f.Geometry.Bounds())
	}
	return b
}

// Reproject shifts the horizontal coordinates of every feature with t.
func (l *Layer) Reproject(t proj.Transformer) error {
	for i, f := range l.Features {
		g, err := f.Geometry.Transform(t)
		if err != nil {
			return &TransformError{File: l.file(), Feature: i, Err: err}
		}
		l.Features[i].Geometry = g
	}
	return nil
}

// CorrectZ replaces every geometry with its vertically corrected copy.
func (l *Layer) CorrectZ(zc *ZCorrector) error {
	for i, f := range l.Features {
		g, err := zc.Correct(f.Geometry)
		if err != nil {
			return &TransformError{File: l.file(), Feature: i, Err: err}
		}
		l.Features[i].Geometry = g
	}
	return nil
}

// Rename applies m to the field definitions and to every record.
func (l *Layer) Rename(m FieldMapping) error {
	fields, err := m.RenameFields(l.Fields)
	if err != nil {
		return &TransformError{File: l.file(), Feature: -1, Err: err}
	}
	l.Fields = fields
	for i, f := range l.Features {
		l.Features[i].Attributes = m.Rename(f.Attributes)
	}
	return nil
}

// Write writes l to a shapefile at path, which must end in ".shp",
// together with .prj and .cpg files when l has a CRS or code page.
func (l *Layer) Write(path string) error {
	e, err := shp.NewEncoderFromFields(path, l.ShapeType, l.Fields...)
	if err != nil {
		return &TransformError{File: path, Feature: -1, Err: err}
	}
	for i, f := range l.Features {
		s, err := toShape(f.Geometry, l.ShapeType)
		if err != nil {
			e.Close()
			return &TransformError{File: path, Feature: i, Err: err}
		}
		if len(f.Attributes) != len(l.Fields) {
			e.Close()
			return &TransformError{File: path, Feature: i,
				Err: fmt.Errorf("record has %d attributes but layer has %d fields", len(f.Attributes), len(l.Fields))}
		}
		row := int(e.Write(s))
		for j, fd := range l.Fields {
			if err := e.WriteAttribute(row, j, attributeValue(fd, f.Attributes[j].Value)); err != nil {
				e.Close()
				return &TransformError{File: path, Feature: i, Err: err}
			}
		}
	}
	e.Close()

	if l.CRS != nil {
		if err := ioutil.WriteFile(sidecar(path, ".prj"), []byte(l.CRS.WKT), 0644); err != nil {
			return &TransformError{File: path, Feature: -1, Err: err}
		}
	}
	if l.CPG != "" {
		if err := ioutil.WriteFile(sidecar(path, ".cpg"), []byte(l.CPG), 0644); err != nil {
			return &TransformError{File: path, Feature: -1, Err: err}
		}
	}
	return nil
}

// attributeValue converts a text attribute into the Go type that
// go-shp formats correctly for the field.
func attributeValue(f goshp.Field, v string) interface{} {
	switch f.Fieldtype {
	case 'N', 'F':
		if f.Fieldtype == 'N' && f.Precision == 0 {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			return x
		}
	}
	return v
}

// coords joins shapefile points with optional Z and M arrays.
func coords(pts []goshp.Point, z, m []float64) []Coord {
	o := make([]Coord, len(pts))
	for i, p := range pts {
		o[i] = Coord{X: p.X, Y: p.Y}
		if i < len(z) {
			o[i].Z = z[i]
		}
		if i < len(m) {
			o[i].M = m[i]
		}
	}
	return o
}

// split divides c into parts starting at the given offsets.
func split(c []Coord, parts []int32) ([][]Coord, error) {
	o := make([][]Coord, len(parts))
	for i, start := range parts {
		end := int32(len(c))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(c) {
			return nil, fmt.Errorf("invalid part offset %d", start)
		}
		o[i] = c[start:end]
	}
	return o, nil
}

func lineal(c []Coord, parts []int32, is3D bool) (Geometry, error) {
	p, err := split(c, parts)
	if err != nil {
		return nil, err
	}
	if len(p) == 1 {
		return LineString{Coords: p[0], Is3D: is3D}, nil
	}
	return MultiLineString{Lines: p, Is3D: is3D}, nil
}

func polygonal(c []Coord, parts []int32, is3D bool) (Geometry, error) {
	p, err := split(c, parts)
	if err != nil {
		return nil, err
	}
	return Polygon{Rings: p, Is3D: is3D}, nil
}

// fromShape converts a go-shp shape into a Geometry.
func fromShape(s goshp.Shape) (Geometry, error) {
	switch t := s.(type) {
	case *goshp.Null:
		return Null{}, nil
	case *goshp.Point:
		return Point{Coord: Coord{X: t.X, Y: t.Y}}, nil
	case *goshp.PointM:
		return Point{Coord: Coord{X: t.X, Y: t.Y, M: t.M}}, nil
	case *goshp.PointZ:
		return Point{Coord: Coord{X: t.X, Y: t.Y, Z: t.Z, M: t.M}, Is3D: true}, nil
	case *goshp.MultiPoint:
		return MultiPoint{Coords: coords(t.Points, nil, nil)}, nil
	case *goshp.MultiPointM:
		return MultiPoint{Coords: coords(t.Points, nil, t.MArray)}, nil
	case *goshp.MultiPointZ:
		return MultiPoint{Coords: coords(t.Points, t.ZArray, t.MArray), Is3D: true}, nil
	case *goshp.PolyLine:
		return lineal(coords(t.Points, nil, nil), t.Parts, false)
	case *goshp.PolyLineM:
		return lineal(coords(t.Points, nil, t.MArray), t.Parts, false)
	case *goshp.PolyLineZ:
		return lineal(coords(t.Points, t.ZArray, t.MArray), t.Parts, true)
	case *goshp.Polygon:
		return polygonal(coords(t.Points, nil, nil), t.Parts, false)
	case *goshp.PolygonM:
		return polygonal(coords(t.Points, nil, t.MArray), t.Parts, false)
	case *goshp.PolygonZ:
		return polygonal(coords(t.Points, t.ZArray, t.MArray), t.Parts, true)
	default:
		return nil, fmt.Errorf("unsupported shape type %T", s)
	}
}

// flatten joins parts into one point list with part offsets.
func flatten(parts [][]Coord) (pts []goshp.Point, z, m []float64, offsets []int32) {
	for _, p := range parts {
		offsets = append(offsets, int32(len(pts)))
		for _, c := range p {
			pts = append(pts, goshp.Point{X: c.X, Y: c.Y})
			z = append(z, c.Z)
			m = append(m, c.M)
		}
	}
	return
}

func valueRange(v []float64) [2]float64 {
	if len(v) == 0 {
		return [2]float64{}
	}
	r := [2]float64{math.Inf(1), math.Inf(-1)}
	for _, x := range v {
		r[0] = math.Min(r[0], x)
		r[1] = math.Max(r[1], x)
	}
	return r
}

// partsOf returns the vertex lists of g for shapes of type st.
func partsOf(g Geometry, st goshp.ShapeType) ([][]Coord, error) {
	switch st {
	case goshp.POLYLINE, goshp.POLYLINEM, goshp.POLYLINEZ:
		switch t := g.(type) {
		case LineString:
			return [][]Coord{t.Coords}, nil
		case MultiLineString:
			return t.Lines, nil
		case Null:
			return nil, nil
		}
	case goshp.POLYGON, goshp.POLYGONM, goshp.POLYGONZ:
		switch t := g.(type) {
		case Polygon:
			return t.Rings, nil
		case Null:
			return nil, nil
		}
	case goshp.MULTIPOINT, goshp.MULTIPOINTM, goshp.MULTIPOINTZ:
		switch t := g.(type) {
		case MultiPoint:
			return [][]Coord{t.Coords}, nil
		case Null:
			return nil, nil
		}
	}
	return nil, fmt.Errorf("cannot write %T as shape type %d", g, st)
}

// toShape converts g into a go-shp shape of type st.
func toShape(g Geometry, st goshp.ShapeType) (goshp.Shape, error) {
	switch st {
	case goshp.POINT, goshp.POINTM, goshp.POINTZ:
		p, ok := g.(Point)
		if !ok {
			return nil, fmt.Errorf("cannot write %T as shape type %d", g, st)
		}
		switch st {
		case goshp.POINT:
			return &goshp.Point{X: p.X, Y: p.Y}, nil
		case goshp.POINTM:
			return &goshp.PointM{X: p.X, Y: p.Y, M: p.M}, nil
		}
		return &goshp.PointZ{X: p.X, Y: p.Y, Z: p.Z, M: p.M}, nil
	}

	parts, err := partsOf(g, st)
	if err != nil {
		return nil, err
	}
	pts, z, m, offsets := flatten(parts)
	box := goshp.BBoxFromPoints(pts)
	n := int32(len(pts))
	np := int32(len(offsets))

	switch st {
	case goshp.POLYLINE:
		return &goshp.PolyLine{Box: box, NumParts: np, NumPoints: n, Parts: offsets, Points: pts}, nil
	case goshp.POLYLINEM:
		return &goshp.PolyLineM{Box: box, NumParts: np, NumPoints: n, Parts: offsets, Points: pts,
			MRange: valueRange(m), MArray: m}, nil
	case goshp.POLYLINEZ:
		return &goshp.PolyLineZ{Box: box, NumParts: np, NumPoints: n, Parts: offsets, Points: pts,
			ZRange: valueRange(z), ZArray: z, MRange: valueRange(m), MArray: m}, nil
	case goshp.POLYGON:
		return &goshp.Polygon{Box: box, NumParts: np, NumPoints: n, Parts: offsets, Points: pts}, nil
	case goshp.POLYGONM:
		return &goshp.PolygonM{Box: box, NumParts: np, NumPoints: n, Parts: offsets, Points: pts,
			MRange: valueRange(m), MArray: m}, nil
	case goshp.POLYGONZ:
		return &goshp.PolygonZ{Box: box, NumParts: np, NumPoints: n, Parts: offsets, Points: pts,
			ZRange: valueRange(z), ZArray: z, MRange: valueRange(m), MArray: m}, nil
	case goshp.MULTIPOINT:
		return &goshp.MultiPoint{Box: box, NumPoints: n, Points: pts}, nil
	case goshp.MULTIPOINTM:
		return &goshp.MultiPointM{Box: box, NumPoints: n, Points: pts,
			MRange: valueRange(m), MArray: m}, nil
	}
	return &goshp.MultiPointZ{Box: box, NumPoints: n, Points: pts,
		ZRange: valueRange(z), ZArray: z, MRange: valueRange(m), MArray: m}, nil
}
