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

// Package shpconv converts batches of shapefiles into a common projected
// coordinate reference system with ellipsoidal heights and canonical
// attribute field names.
package shpconv

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Version is the version of shpconv.
const Version = "0.1.0"

// Config holds the settings for a batch conversion.
type Config struct {
	// InputDir is the directory searched for input files, and
	// InputPattern the glob pattern they must match.
	InputDir, InputPattern string

	// OutputDir is where converted files are written. It is created if
	// it does not exist.
	OutputDir string

	// GeoidFile is the path to a GTX geoid undulation grid. It is
	// required even when ApplyZFix is false.
	GeoidFile string

	// GeoidMultiplier scales looked-up undulations.
	GeoidMultiplier float64

	// TargetEPSG is the EPSG code of the output coordinate system.
	TargetEPSG int

	// ApplyZFix turns on orthometric to ellipsoidal height correction.
	ApplyZFix bool

	RenameFields FieldMapping
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		InputDir:        "shp_input",
		InputPattern:    "*.shp",
		OutputDir:       "shp_output",
		GeoidFile:       "egm96_15.gtx",
		GeoidMultiplier: 1,
		TargetEPSG:      DefaultTargetEPSG,
		ApplyZFix:       true,
		RenameFields:    DefaultFieldMapping(),
	}
}

// Converter runs batch conversions. The target CRS, reprojector and
// geoid grid are created once and shared by every file.
type Converter struct {
	cfg    Config
	target *CRS
	rp     *Reprojector
	geoid  *GeoidGrid
	zc     *ZCorrector
	log    logrus.FieldLogger
}

// NewConverter prepares a conversion with the given configuration. It
// returns an error wrapping ErrMissingResource if the geoid grid does not
// exist.
func NewConverter(cfg Config, log logrus.FieldLogger) (*Converter, error) {
	if cfg.InputPattern == "" {
		cfg.InputPattern = "*.shp"
	}
	if cfg.TargetEPSG == 0 {
		cfg.TargetEPSG = DefaultTargetEPSG
	}
	if cfg.GeoidMultiplier == 0 {
		cfg.GeoidMultiplier = 1
	}
	if err := cfg.RenameFields.Validate(); err != nil {
		return nil, err
	}
	target, err := NewCRS(cfg.TargetEPSG)
	if err != nil {
		return nil, err
	}
	rp, err := NewReprojector(target)
	if err != nil {
		return nil, err
	}
	geoid, err := LoadGeoidGrid(cfg.GeoidFile)
	if err != nil {
		return nil, err
	}
	geoid.Multiplier = cfg.GeoidMultiplier
	log.WithFields(logrus.Fields{
		"file":  cfg.GeoidFile,
		"rows":  geoid.Rows,
		"cols":  geoid.Cols,
		"scale": geoid.Multiplier,
	}).Info("loaded geoid grid")
	return &Converter{
		cfg:    cfg,
		target: target,
		rp:     rp,
		geoid:  geoid,
		zc:     NewZCorrector(rp, geoid),
		log:    log,
	}, nil
}

// Target returns the output coordinate reference system.
func (c *Converter) Target() *CRS { return c.target }

// Inputs returns the sorted list of input files.
func (c *Converter) Inputs() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(c.cfg.InputDir, c.cfg.InputPattern))
	if err != nil {
		return nil, fmt.Errorf("shpconv: listing input files: %v", err)
	}
	sort.Strings(files)
	return files, nil
}

// Run converts every input file in order and returns the paths of the
// files written. It stops at the first error. If there are no input
// files it returns ErrEmptyInput without writing anything.
func (c *Converter) Run() ([]string, error) {
	files, err := c.Inputs()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s matching %q", ErrEmptyInput, c.cfg.InputDir, c.cfg.InputPattern)
	}
	if err := os.MkdirAll(c.cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("shpconv: creating output directory: %v", err)
	}
	c.log.WithField("files", len(files)).Infof("converting to %v", c.target)

	var outputs []string
	for i, f := range files {
		out, err := c.ConvertFile(f)
		if err != nil {
			return outputs, err
		}
		c.log.WithFields(logrus.Fields{
			"file":   filepath.Base(f),
			"output": out,
		}).Infof("converted file %d/%d", i+1, len(files))
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// OutputName returns the output path for the input file in: the base
// name with its stem upper-cased, in outDir.
func OutputName(outDir, in string) string {
	base := filepath.Base(in)
	ext := filepath.Ext(base)
	return filepath.Join(outDir, strings.ToUpper(strings.TrimSuffix(base, ext))+ext)
}

// samePath reports whether a and b refer to the same file.
func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 == nil && err2 == nil && aa == bb {
		return true
	}
	ia, err1 := os.Stat(a)
	ib, err2 := os.Stat(b)
	return err1 == nil && err2 == nil && os.SameFile(ia, ib)
}

// ConvertFile converts a single shapefile and returns the path of the
// output file.
func (c *Converter) ConvertFile(path string) (string, error) {
	out := OutputName(c.cfg.OutputDir, path)
	if samePath(path, out) {
		return "", &TransformError{File: path, Feature: -1,
			Err: fmt.Errorf("output %s would overwrite the input", out)}
	}

	l, err := ReadLayer(path, c.target.EPSG)
	if err != nil {
		return "", err
	}
	log := c.log.WithFields(logrus.Fields{
		"file":     filepath.Base(path),
		"features": len(l.Features),
	})

	switch {
	case l.CRS == nil:
		log.Infof("no projection defined; assigning %v", c.target)
	case l.CRS.Equal(c.target):
		log.Debugf("already in %v", l.CRS)
	default:
		t, err := c.rp.LayerTransform(l.CRS)
		if err != nil {
			return "", &TransformError{File: path, Feature: -1, Err: err}
		}
		log.Infof("reprojecting from %v to %v", l.CRS, c.target)
		if err := l.Reproject(t); err != nil {
			return "", err
		}
	}
	l.CRS = c.target

	if c.cfg.ApplyZFix {
		if err := l.CorrectZ(c.zc); err != nil {
			return "", err
		}
		log.Debug("corrected heights")
	}

	if err := l.Rename(c.cfg.RenameFields); err != nil {
		return "", err
	}

	b := l.Bounds()
	log.WithFields(logrus.Fields{
		"min": fmt.Sprintf("%.1f,%.1f", b.Min.X, b.Min.Y),
		"max": fmt.Sprintf("%.1f,%.1f", b.Max.X, b.Max.Y),
	}).Debug("writing")
	if err := l.Write(out); err != nil {
		return "", err
	}
	return out, nil
}
