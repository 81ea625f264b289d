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
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Coord is a single vertex. Z is only meaningful for 3D geometries
// and M is carried through unchanged.
type Coord struct {
	X, Y, Z, M float64
}

// Geometry is implemented by Point, LineString, MultiPoint,
// MultiLineString, Polygon, and Null.
type Geometry interface {
	// HasZ reports whether the geometry carries a Z ordinate.
	HasZ() bool

	// Bounds returns the horizontal extent of the geometry.
	Bounds() *geom.Bounds

	// Transform returns a copy of the geometry with the horizontal
	// coordinates shifted by t. Z and M are left untouched.
	Transform(t proj.Transformer) (Geometry, error)
}

// Point is a single vertex.
type Point struct {
	Coord
	Is3D bool
}

// LineString is an ordered path of vertices.
type LineString struct {
	Coords []Coord
	Is3D   bool
}

// MultiPoint is a set of unconnected vertices.
type MultiPoint struct {
	Coords []Coord
	Is3D   bool
}

// MultiLineString is a set of paths.
type MultiLineString struct {
	Lines [][]Coord
	Is3D  bool
}

// Polygon is a set of rings. Polygons are read and written but
// never vertically corrected.
type Polygon struct {
	Rings [][]Coord
	Is3D  bool
}

// Null is an empty shapefile record.
type Null struct{}

func (p Point) HasZ() bool { return p.Is3D }
func (l LineString) HasZ() bool { return l.Is3D }
func (mp MultiPoint) HasZ() bool { return mp.Is3D }
func (ml MultiLineString) HasZ() bool { return ml.Is3D }
func (p Polygon) HasZ() bool { return p.Is3D }
func (Null) HasZ() bool { return false }

func extendBounds(b *geom.Bounds, coords []Coord) {
	for _, c := range coords {
		b.Extend(geom.NewBoundsPoint(geom.Point{X: c.X, Y: c.Y}))
	}
}

// Bounds gives the rectangular extents of p.
func (p Point) Bounds() *geom.Bounds {
	return geom.NewBoundsPoint(geom.Point{X: p.X, Y: p.Y})
}

// Bounds gives the rectangular extents of l.
func (l LineString) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	extendBounds(b, l.Coords)
	return b
}

// Bounds gives the rectangular extents of mp.
func (mp MultiPoint) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	extendBounds(b, mp.Coords)
	return b
}

// Bounds gives the rectangular extents of ml.
func (ml MultiLineString) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, l := range ml.Lines {
		extendBounds(b, l)
	}
	return b
}

// Bounds gives the rectangular extents of p.
func (p Polygon) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, r := range p.Rings {
		extendBounds(b, r)
	}
	return b
}

// Bounds returns an empty bounds.
func (Null) Bounds() *geom.Bounds { return geom.NewBounds() }

// transformCoords returns a reprojected copy of coords.
func transformCoords(t proj.Transformer, coords []Coord) ([]Coord, error) {
	o := make([]Coord, len(coords))
	for i, c := range coords {
		x, y, err := t(c.X, c.Y)
		if err != nil {
			return nil, err
		}
		o[i] = Coord{X: x, Y: y, Z: c.Z, M: c.M}
	}
	return o, nil
}

func transformParts(t proj.Transformer, parts [][]Coord) ([][]Coord, error) {
	o := make([][]Coord, len(parts))
	for i, p := range parts {
		var err error
		if o[i], err = transformCoords(t, p); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Transform shifts the coordinates of p according to t.
func (p Point) Transform(t proj.Transformer) (Geometry, error) {
	x, y, err := t(p.X, p.Y)
	if err != nil {
		return nil, err
	}
	p2 := p
	p2.X, p2.Y = x, y
	return p2, nil
}

// Transform shifts the coordinates of l according to t.
func (l LineString) Transform(t proj.Transformer) (Geometry, error) {
	c, err := transformCoords(t, l.Coords)
	if err != nil {
		return nil, err
	}
	return LineString{Coords: c, Is3D: l.Is3D}, nil
}

// Transform shifts the coordinates of mp according to t.
func (mp MultiPoint) Transform(t proj.Transformer) (Geometry, error) {
	c, err := transformCoords(t, mp.Coords)
	if err != nil {
		return nil, err
	}
	return MultiPoint{Coords: c, Is3D: mp.Is3D}, nil
}

// Transform shifts the coordinates of ml according to t.
func (ml MultiLineString) Transform(t proj.Transformer) (Geometry, error) {
	l, err := transformParts(t, ml.Lines)
	if err != nil {
		return nil, err
	}
	return MultiLineString{Lines: l, Is3D: ml.Is3D}, nil
}

// Transform shifts the coordinates of p according to t.
func (p Polygon) Transform(t proj.Transformer) (Geometry, error) {
	r, err := transformParts(t, p.Rings)
	if err != nil {
		return nil, err
	}
	return Polygon{Rings: r, Is3D: p.Is3D}, nil
}

// Transform returns n.
func (n Null) Transform(proj.Transformer) (Geometry, error) { return n, nil }
