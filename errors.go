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
	"errors"
	"fmt"
)

var (
	// ErrMissingResource is returned when the geoid grid file cannot be
	// found. It is fatal: no input files are processed.
	ErrMissingResource = errors.New("shpconv: missing geoid resource")

	// ErrEmptyInput is returned when no input shapefiles match the
	// configured input directory and pattern.
	ErrEmptyInput = errors.New("shpconv: no input shapefiles found")

	// ErrOutsideGrid is returned when a geoid lookup falls outside of the
	// grid extent or touches a node without data.
	ErrOutsideGrid = errors.New("shpconv: point outside of geoid grid")
)

// TransformError describes a failure to load, transform, or write one
// input file. Feature is the zero-based index of the offending feature,
// or -1 if the failure is not specific to a feature.
type TransformError struct {
	File    string
	Feature int
	Err     error
}

func (e *TransformError) Error() string {
	if e.Feature < 0 {
		return fmt.Sprintf("shpconv: converting %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("shpconv: converting %s, feature %d: %v", e.File, e.Feature, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
