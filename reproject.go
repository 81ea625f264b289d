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

	"github.com/ctessum/geom/proj"
)

// Reprojector converts coordinates between a projected CRS and WGS84
// longitude/latitude. It holds no mutable state and is safe for
// concurrent use.
type Reprojector struct {
	crs          *CRS
	toGeographic proj.Transformer
	fromGeo      proj.Transformer
}

// NewReprojector creates a Reprojector for the given projected CRS.
func NewReprojector(c *CRS) (*Reprojector, error) {
	geo, err := NewCRS(WGS84)
	if err != nil {
		return nil, err
	}
	to, err := c.SR.NewTransform(geo.SR)
	if err != nil {
		return nil, fmt.Errorf("shpconv: creating %v to geographic transform: %v", c, err)
	}
	from, err := geo.SR.NewTransform(c.SR)
	if err != nil {
		return nil, fmt.Errorf("shpconv: creating geographic to %v transform: %v", c, err)
	}
	return &Reprojector{crs: c, toGeographic: to, fromGeo: from}, nil
}

// CRS returns the projected coordinate reference system of r.
func (r *Reprojector) CRS() *CRS { return r.crs }

// ToGeographic converts (x, y) in the projected CRS to longitude and
// latitude in degrees.
func (r *Reprojector) ToGeographic(x, y float64) (lon, lat float64, err error) {
	return r.toGeographic(x, y)
}

// FromGeographic converts longitude and latitude in degrees to the
// projected CRS.
func (r *Reprojector) FromGeographic(lon, lat float64) (x, y float64, err error) {
	return r.fromGeo(lon, lat)
}

// LayerTransform returns a function that reprojects coordinates from src
// into the target CRS of r.
func (r *Reprojector) LayerTransform(src *CRS) (proj.Transformer, error) {
	t, err := src.SR.NewTransform(r.crs.SR)
	if err != nil {
		return nil, fmt.Errorf("shpconv: creating %v to %v transform: %v", src, r.crs, err)
	}
	return t, nil
}
