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
	"math"
	"strings"

	"github.com/ctessum/geom/proj"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// DefaultTargetEPSG is WGS 84 / UTM zone 52N.
const DefaultTargetEPSG = 32652

// WGS84 is the EPSG code of the geographic CRS that geoid grids are
// indexed by.
const WGS84 = 4326

// CRS is a coordinate reference system. EPSG is zero when the CRS was
// read from a .prj file that did not match a known code.
type CRS struct {
	EPSG int
	WKT  string
	SR   *proj.SR
}

const (
	gcsWGS84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
	gcsKorea = `GEOGCS["GCS_Korea_2000",DATUM["D_Korea_2000",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
)

// tmWKT returns an ESRI-style transverse Mercator definition.
func tmWKT(name, gcs string, falseEasting, falseNorthing, centralMeridian, scale, latOrigin float64) string {
	return fmt.Sprintf(`PROJCS["%s",%s,PROJECTION["Transverse_Mercator"],`+
		`PARAMETER["False_Easting",%.1f],PARAMETER["False_Northing",%.1f],`+
		`PARAMETER["Central_Meridian",%.1f],PARAMETER["Scale_Factor",%g],`+
		`PARAMETER["Latitude_Of_Origin",%.1f],UNIT["Meter",1.0]]`,
		name, gcs, falseEasting, falseNorthing, centralMeridian, scale, latOrigin)
}

// epsgWKT returns the WKT definition for the given EPSG code.
func epsgWKT(code int) (string, error) {
	switch {
	case code == WGS84:
		return gcsWGS84, nil
	case code > 32600 && code <= 32660:
		zone := code - 32600
		return tmWKT(fmt.Sprintf("WGS_1984_UTM_Zone_%dN", zone), gcsWGS84,
			500000, 0, float64(6*zone-183), 0.9996, 0), nil
	case code > 32700 && code <= 32760:
		zone := code - 32700
		return tmWKT(fmt.Sprintf("WGS_1984_UTM_Zone_%dS", zone), gcsWGS84,
			500000, 10000000, float64(6*zone-183), 0.9996, 0), nil
	case code == 5179:
		return tmWKT("Korea_2000_Korea_Unified_Coordinate_System", gcsKorea,
			1000000, 2000000, 127.5, 0.9996, 38), nil
	case code >= 5185 && code <= 5188:
		// West, Central, East and East Sea belts.
		cm := []float64{125, 127, 129, 131}[code-5185]
		names := []string{"West", "Central", "East", "East_Sea"}
		return tmWKT("Korea_2000_Korea_"+names[code-5185]+"_Belt_2010", gcsKorea,
			200000, 600000, cm, 1, 38), nil
	}
	return "", fmt.Errorf("shpconv: unsupported EPSG code %d", code)
}

// NewCRS returns the coordinate reference system for the given EPSG code.
func NewCRS(epsg int) (*CRS, error) {
	wkt, err := epsgWKT(epsg)
	if err != nil {
		return nil, err
	}
	sr, err := proj.Parse(wkt)
	if err != nil {
		return nil, fmt.Errorf("shpconv: parsing EPSG:%d: %v", epsg, err)
	}
	return &CRS{EPSG: epsg, WKT: wkt, SR: sr}, nil
}

// ParseCRS parses a WKT or PROJ.4 definition, such as the contents of a
// .prj file.
func ParseCRS(def string) (*CRS, error) {
	def = strings.TrimSpace(def)
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("shpconv: parsing projection: %v", err)
	}
	return &CRS{WKT: def, SR: sr}, nil
}

// String returns a short description of c.
func (c *CRS) String() string {
	if c == nil {
		return "undefined"
	}
	if c.EPSG != 0 {
		return fmt.Sprintf("EPSG:%d", c.EPSG)
	}
	if c.SR.SRSCode != "" {
		return strings.Trim(c.SR.SRSCode, `"`)
	}
	return c.SR.Name
}

// Equal reports whether c and c2 describe the same projection. Definitions
// that are textually identical are always equal; otherwise the projection
// parameters are compared to within a few units in the last place.
func (c *CRS) Equal(c2 *CRS) bool {
	if c == nil || c2 == nil {
		return c == c2
	}
	if c.EPSG != 0 && c.EPSG == c2.EPSG {
		return true
	}
	if strings.TrimSpace(c.WKT) == strings.TrimSpace(c2.WKT) {
		return true
	}
	return sameSR(c.SR, c2.SR)
}

// sameSR compares the parameters that define a projection.
func sameSR(a, b *proj.SR) bool {
	if !strings.EqualFold(a.Name, b.Name) || a.UTMSouth != b.UTMSouth {
		return false
	}
	const ulp = 3
	pairs := [][2]float64{
		{a.Lat0, b.Lat0}, {a.Lat1, b.Lat1}, {a.Lat2, b.Lat2},
		{a.Long0, b.Long0}, {a.X0, b.X0}, {a.Y0, b.Y0}, {a.K0, b.K0},
		{a.A, b.A}, {a.B, b.B}, {a.Zone, b.Zone}, {a.ToMeter, b.ToMeter},
	}
	for _, p := range pairs {
		if math.IsNaN(p[0]) != math.IsNaN(p[1]) {
			return false
		}
		if !math.IsNaN(p[0]) && !scalar.EqualWithinULP(p[0], p[1], ulp) {
			return false
		}
	}
	if len(a.DatumParams) != len(b.DatumParams) {
		return false
	}
	return floats.EqualApprox(a.DatumParams, b.DatumParams, 1e-9)
}

// matchEPSG sets c.EPSG if c is equivalent to one of the candidate codes.
func (c *CRS) matchEPSG(candidates ...int) {
	for _, code := range candidates {
		known, err := NewCRS(code)
		if err != nil {
			continue
		}
		if sameSR(c.SR, known.SR) {
			c.EPSG = code
			return
		}
	}
}
