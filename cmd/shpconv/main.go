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

// Command shpconv converts shapefiles to a common projection and height
// reference.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/shpconv/shpconvutil"
)

func main() {
	// Without a subcommand, convert.
	if cmd, _, err := shpconvutil.Root.Find(os.Args[1:]); err == nil && cmd == shpconvutil.Root {
		shpconvutil.Root.SetArgs(append([]string{"convert"}, os.Args[1:]...))
	}

	if err := shpconvutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
