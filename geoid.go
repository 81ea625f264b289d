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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// gtxNoData marks grid nodes without a value in GTX files.
const gtxNoData = -88.8888

// Undulator returns the geoid height above the ellipsoid, in meters, at
// a longitude and latitude in degrees.
type Undulator interface {
	Undulation(lon, lat float64) (float64, error)
}

// GeoidGrid is a regular longitude/latitude grid of geoid undulations,
// as stored in the NOAA/PROJ GTX format. A GeoidGrid is never modified
// after it is created.
type GeoidGrid struct {
	// Lat0 and Lon0 are the coordinates of the south-west node, and
	// DLat and DLon the node spacing, all in degrees.
	Lat0, Lon0, DLat, DLon float64
	Rows, Cols             int

	// Multiplier scales every looked-up value.
	Multiplier float64

	// data holds Rows*Cols values, south to north, west to east.
	data []float32
}

// gtxHeader is the 40-byte big-endian GTX file header.
type gtxHeader struct {
	Lat0, Lon0, DLat, DLon float64
	Rows, Cols             int32
}

// NewGeoidGrid creates a grid from row-major values ordered from south to
// north and west to east.
func NewGeoidGrid(lat0, lon0, dlat, dlon float64, rows, cols int, data []float32) (*GeoidGrid, error) {
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("shpconv: geoid grid must be at least 2x2 but is %dx%d", rows, cols)
	}
	if !(dlat > 0) || !(dlon > 0) {
		return nil, fmt.Errorf("shpconv: invalid geoid grid spacing %g, %g", dlat, dlon)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("shpconv: geoid grid has %d values; want %d", len(data), rows*cols)
	}
	if lon0 >= 180 {
		lon0 -= 360
	}
	return &GeoidGrid{
		Lat0: lat0, Lon0: lon0, DLat: dlat, DLon: dlon,
		Rows: rows, Cols: cols,
		Multiplier: 1,
		data:       data,
	}, nil
}

// ReadGTX reads a grid in GTX format.
func ReadGTX(r io.Reader) (*GeoidGrid, error) {
	var h gtxHeader
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("shpconv: reading GTX header: %v", err)
	}
	if h.Rows < 2 || h.Cols < 2 || int64(h.Rows)*int64(h.Cols) > 1<<28 {
		return nil, fmt.Errorf("shpconv: invalid GTX dimensions %dx%d", h.Rows, h.Cols)
	}
	data := make([]float32, int(h.Rows)*int(h.Cols))
	if err := binary.Read(bufio.NewReader(r), binary.BigEndian, data); err != nil {
		return nil, fmt.Errorf("shpconv: reading GTX values: %v", err)
	}
	return NewGeoidGrid(h.Lat0, h.Lon0, h.DLat, h.DLon, int(h.Rows), int(h.Cols), data)
}

// WriteGTX writes g in GTX format.
func (g *GeoidGrid) WriteGTX(w io.Writer) error {
	h := gtxHeader{
		Lat0: g.Lat0, Lon0: g.Lon0, DLat: g.DLat, DLon: g.DLon,
		Rows: int32(g.Rows), Cols: int32(g.Cols),
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.BigEndian, h); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, g.data); err != nil {
		return err
	}
	return bw.Flush()
}

// LoadGeoidGrid reads the GTX file at path. If the file does not exist
// the returned error wraps ErrMissingResource.
func LoadGeoidGrid(path string) (*GeoidGrid, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrMissingResource, path)
	} else if err != nil {
		return nil, fmt.Errorf("shpconv: opening geoid grid: %v", err)
	}
	defer f.Close()
	g, err := ReadGTX(f)
	if err != nil {
		return nil, fmt.Errorf("%v (file %s)", err, path)
	}
	return g, nil
}

// global reports whether the grid spans every longitude.
func (g *GeoidGrid) global() bool {
	return float64(g.Cols)*g.DLon >= 360-1e-9
}

// value returns the node value at row i and column j, wrapping the
// column for global grids.
func (g *GeoidGrid) value(i, j int) float64 {
	if g.global() {
		n := int(math.Round(360 / g.DLon))
		j = ((j % n) + n) % n
		if j >= g.Cols {
			j = g.Cols - 1
		}
	}
	return float64(g.data[i*g.Cols+j])
}

// Undulation returns the bilinearly interpolated geoid height at lon, lat
// (degrees), scaled by g.Multiplier.
func (g *GeoidGrid) Undulation(lon, lat float64) (float64, error) {
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return math.NaN(), fmt.Errorf("%w: invalid coordinate (%g, %g)", ErrOutsideGrid, lon, lat)
	}
	fy := (lat - g.Lat0) / g.DLat
	const eps = 1e-9
	if fy < -eps || fy > float64(g.Rows-1)+eps {
		return math.NaN(), fmt.Errorf("%w: latitude %g", ErrOutsideGrid, lat)
	}
	fy = math.Min(math.Max(fy, 0), float64(g.Rows-1))

	x := math.Mod(lon-g.Lon0, 360)
	if x < -eps {
		x += 360
	}
	fx := math.Max(x/g.DLon, 0)
	if !g.global() {
		if fx > float64(g.Cols-1)+eps {
			return math.NaN(), fmt.Errorf("%w: longitude %g", ErrOutsideGrid, lon)
		}
		fx = math.Min(fx, float64(g.Cols-1))
	}

	i0 := int(math.Floor(fy))
	j0 := int(math.Floor(fx))
	i1, j1 := i0+1, j0+1
	if i1 > g.Rows-1 {
		i1 = i0
	}
	if !g.global() && j1 > g.Cols-1 {
		j1 = j0
	}
	dy, dx := fy-float64(i0), fx-float64(j0)

	v00, v01 := g.value(i0, j0), g.value(i0, j1)
	v10, v11 := g.value(i1, j0), g.value(i1, j1)
	for _, v := range []float64{v00, v01, v10, v11} {
		if math.Abs(v-gtxNoData) < 1e-3 {
			return math.NaN(), fmt.Errorf("%w: no data at (%g, %g)", ErrOutsideGrid, lon, lat)
		}
	}
	n := (1-dy)*((1-dx)*v00+dx*v01) + dy*((1-dx)*v10+dx*v11)
	return n * g.Multiplier, nil
}
