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

	goshp "github.com/jonas-p/go-shp"
)

// maxFieldName is the longest field name a dBASE table can hold.
const maxFieldName = 10

// Attribute is a single named attribute value.
type Attribute struct {
	Name, Value string
}

// Record holds the attributes of one feature in column order.
type Record []Attribute

// Get returns the value of the named attribute.
func (r Record) Get(name string) (string, bool) {
	for _, a := range r {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// FieldMapping maps source field names to canonical field names.
// Lookups are exact and case-sensitive.
type FieldMapping map[string]string

// DefaultFieldMapping returns the canonical road-network field names.
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{
		"id":         "ID",
		"linkid":     "LinkID",
		"l_linkid":   "L_LinkID",
		"r_linkid":   "R_LinkID",
		"tonodeid":   "ToNodeID",
		"fromnodeid": "FromNodeID",
		"roadrank":   "RoadRank",
		"roadno":     "RoadNo",
		"laneno":     "LaneNo",
		"distance":   "Distance",
		"maxspeed":   "MaxSpeed",
	}
}

// Validate checks that every target name fits in a dBASE field name.
func (m FieldMapping) Validate() error {
	for from, to := range m {
		if to == "" {
			return fmt.Errorf("shpconv: field %q is renamed to an empty name", from)
		}
		if len(to) > maxFieldName {
			return fmt.Errorf("shpconv: field %q is renamed to %q, which is longer than %d bytes",
				from, to, maxFieldName)
		}
	}
	return nil
}

// name returns the mapped name for n, or n itself if it is not mapped.
func (m FieldMapping) name(n string) string {
	if to, ok := m[n]; ok {
		return to
	}
	return n
}

// Rename returns a copy of r with mapped attribute names replaced.
// Unmapped attributes keep their names, and column order is preserved.
func (m FieldMapping) Rename(r Record) Record {
	o := make(Record, len(r))
	for i, a := range r {
		o[i] = Attribute{Name: m.name(a.Name), Value: a.Value}
	}
	return o
}

// RenameFields returns a copy of the dBASE field definitions with mapped
// names replaced. It is an error for two fields to end up with the
// same name.
func (m FieldMapping) RenameFields(fields []goshp.Field) ([]goshp.Field, error) {
	o := make([]goshp.Field, len(fields))
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		name := m.name(fieldName(f))
		if seen[name] {
			return nil, fmt.Errorf("shpconv: renaming fields produces duplicate field %q", name)
		}
		seen[name] = true
		o[i] = setFieldName(f, name)
	}
	return o, nil
}

// fieldName converts a dBASE field name into a string.
func fieldName(f goshp.Field) string {
	n := len(f.Name)
	for i, b := range f.Name {
		if b == 0 {
			n = i
			break
		}
	}
	return string(f.Name[:n])
}

// setFieldName returns a copy of f with the given name.
func setFieldName(f goshp.Field, name string) goshp.Field {
	f.Name = [11]byte{}
	copy(f.Name[:maxFieldName], name)
	return f
}
