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

import "fmt"

// GeographicConverter converts projected coordinates to longitude and
// latitude. *Reprojector implements it.
type GeographicConverter interface {
	ToGeographic(x, y float64) (lon, lat float64, err error)
}

// ZCorrector converts Z values from orthometric heights to ellipsoidal
// heights by adding the geoid undulation at each vertex.
type ZCorrector struct {
	geo   GeographicConverter
	geoid Undulator
}

// NewZCorrector creates a ZCorrector for geometries in the projected
// CRS of geo, looking undulations up in geoid.
func NewZCorrector(geo GeographicConverter, geoid Undulator) *ZCorrector {
	return &ZCorrector{geo: geo, geoid: geoid}
}

// ellipsoidal returns c with the undulation at its position added to Z.
func (zc *ZCorrector) ellipsoidal(c Coord) (Coord, error) {
	lon, lat, err := zc.geo.ToGeographic(c.X, c.Y)
	if err != nil {
		return c, fmt.Errorf("converting (%g, %g) to geographic: %w", c.X, c.Y, err)
	}
	n, err := zc.geoid.Undulation(lon, lat)
	if err != nil {
		return c, err
	}
	c.Z += n
	return c, nil
}

func (zc *ZCorrector) ellipsoidalAll(coords []Coord) ([]Coord, error) {
	o := make([]Coord, len(coords))
	for i, c := range coords {
		var err error
		if o[i], err = zc.ellipsoidal(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Correct returns a copy of g with ellipsoidal Z values. Points,
// multi-points, line strings and multi-line strings are corrected vertex
// by vertex in their original order. Geometries without Z, polygons, and
// null shapes are returned unchanged: polygon Z values are never
// corrected, even when present. g itself is not modified.
func (zc *ZCorrector) Correct(g Geometry) (Geometry, error) {
	if g == nil || !g.HasZ() {
		return g, nil
	}
	switch t := g.(type) {
	case Point:
		c, err := zc.ellipsoidal(t.Coord)
		if err != nil {
			return nil, err
		}
		return Point{Coord: c, Is3D: true}, nil
	case MultiPoint:
		c, err := zc.ellipsoidalAll(t.Coords)
		if err != nil {
			return nil, err
		}
		return MultiPoint{Coords: c, Is3D: true}, nil
	case LineString:
		c, err := zc.ellipsoidalAll(t.Coords)
		if err != nil {
			return nil, err
		}
		return LineString{Coords: c, Is3D: true}, nil
	case MultiLineString:
		lines := make([][]Coord, len(t.Lines))
		for i, l := range t.Lines {
			var err error
			if lines[i], err = zc.ellipsoidalAll(l); err != nil {
				return nil, err
			}
		}
		return MultiLineString{Lines: lines, Is3D: true}, nil
	case Polygon, Null:
		return g, nil
	default:
		return g, nil
	}
}
