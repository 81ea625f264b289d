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

package shpconvutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/shpconv"
)

// writeGeoid writes a constant 30 m geoid grid covering Korea.
func writeGeoid(t *testing.T, dir string) string {
	const rows, cols = 15, 21
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = 30
	}
	g, err := shpconv.NewGeoidGrid(30, 120, 1, 1, rows, cols, data)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "geoid.gtx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := g.WriteGTX(f); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeRoads writes a one-feature 3D road network without projection
// information to dir/roads.shp.
func writeRoads(t *testing.T, dir string) {
	l := &shpconv.Layer{
		ShapeType: goshp.POLYLINEZ,
		Fields:    []goshp.Field{goshp.StringField("linkid", 10)},
		Features: []shpconv.Feature{{
			Geometry: shpconv.LineString{
				Coords: []shpconv.Coord{{X: 500000, Y: 4000000, Z: 10}, {X: 500100, Y: 4000100, Z: 11}},
				Is3D:   true,
			},
			Attributes: shpconv.Record{{Name: "linkid", Value: "L1"}},
		}},
	}
	if err := l.Write(filepath.Join(dir, "roads.shp")); err != nil {
		t.Fatal(err)
	}
}

// writeConfigFile writes a configuration file for a conversion of the
// files in dir/in to dir/out.
func writeConfigFile(t *testing.T, dir string, modify func(*fileConfig)) string {
	in := filepath.Join(dir, "in")
	if err := os.MkdirAll(in, 0755); err != nil {
		t.Fatal(err)
	}
	writeRoads(t, in)
	cfg := fileConfig{
		InputDir:        in,
		InputPattern:    "*.shp",
		OutputDir:       filepath.Join(dir, "out"),
		GeoidFile:       writeGeoid(t, dir),
		GeoidMultiplier: 1,
		TargetEPSG:      shpconv.DefaultTargetEPSG,
		ApplyZFix:       true,
		LogLevel:        "debug",
		RenameFields:    map[string]string{"linkid": "LinkID"},
	}
	if modify != nil {
		modify(&cfg)
	}
	path := filepath.Join(dir, "config.toml")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		t.Fatal(err)
	}
	return path
}

// resetConfigFlag clears the --config flag on Root so that later
// commands do not read a deleted configuration file.
func resetConfigFlag() {
	f := Root.PersistentFlags().Lookup("config")
	f.Value.Set("")
	f.Changed = false
}

func TestConvertCommand(t *testing.T) {
	defer resetConfigFlag()
	dir := t.TempDir()
	cfgPath := writeConfigFile(t, dir, nil)

	var stderr bytes.Buffer
	Root.SetErr(&stderr)
	Root.SetArgs([]string{"convert", "--config", cfgPath})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr.String(), "converted file 1/1") {
		t.Errorf("missing log output: %s", stderr.String())
	}

	l, err := shpconv.ReadLayer(filepath.Join(dir, "out", "ROADS.shp"))
	if err != nil {
		t.Fatal(err)
	}
	if l.CRS.EPSG != shpconv.DefaultTargetEPSG {
		t.Errorf("CRS: have %v", l.CRS)
	}
	if v, ok := l.Features[0].Attributes.Get("LinkID"); !ok || v != "L1" {
		t.Errorf("LinkID: have %q, %v", v, ok)
	}
	c := l.Features[0].Geometry.(shpconv.LineString).Coords
	if c[0].Z != 40 || c[1].Z != 41 {
		t.Errorf("heights: have %g, %g; want 40, 41", c[0].Z, c[1].Z)
	}
}

func TestConvertCommandEmptyInput(t *testing.T) {
	defer resetConfigFlag()
	dir := t.TempDir()
	cfgPath := writeConfigFile(t, dir, func(c *fileConfig) {
		c.InputPattern = "*.nothing"
		c.LogLevel = "error"
	})
	Root.SetArgs([]string{"convert", "--config", cfgPath})
	var stderr bytes.Buffer
	Root.SetErr(&stderr)
	err := Root.Execute()
	if err == nil || !strings.Contains(err.Error(), shpconv.ErrEmptyInput.Error()) {
		t.Errorf("have %v, want ErrEmptyInput", err)
	}
	if strings.Contains(stderr.String(), shpconv.ErrEmptyInput.Error()) {
		t.Errorf("error was printed by the command: %s", stderr.String())
	}
}

func TestConvertBlobOutput(t *testing.T) {
	defer resetConfigFlag()
	dir := t.TempDir()
	out := filepath.Join(dir, "bucket", "converted")
	cfgPath := writeConfigFile(t, dir, func(c *fileConfig) {
		c.OutputDir = "file://" + filepath.ToSlash(out)
		c.LogLevel = "error"
	})
	Root.SetErr(&bytes.Buffer{})
	Root.SetArgs([]string{"convert", "--config", cfgPath})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"ROADS.shp", "ROADS.shx", "ROADS.dbf", "ROADS.prj"} {
		if _, err := os.Stat(filepath.Join(out, f)); err != nil {
			t.Errorf("%s was not uploaded: %v", f, err)
		}
	}
}

func TestConfigCommand(t *testing.T) {
	defer resetConfigFlag()
	dir := t.TempDir()
	cfgPath := writeConfigFile(t, dir, nil)
	os.Setenv("SHPCONV_TARGETEPSG", "5179")
	defer os.Unsetenv("SHPCONV_TARGETEPSG")

	var stdout bytes.Buffer
	Root.SetOut(&stdout)
	defer func() {
		f := configCmd.Flags().Lookup("LogLevel")
		f.Value.Set("info")
		f.Changed = false
	}()
	Root.SetArgs([]string{"config", "--config", cfgPath, "--LogLevel", "warn"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}

	var have fileConfig
	if _, err := toml.Decode(stdout.String(), &have); err != nil {
		t.Fatal(err)
	}
	if have.TargetEPSG != 5179 {
		t.Errorf("TargetEPSG from environment: have %d", have.TargetEPSG)
	}
	if have.LogLevel != "warn" {
		t.Errorf("LogLevel from flag: have %q", have.LogLevel)
	}
	if have.InputDir != filepath.Join(dir, "in") || have.InputPattern != "*.shp" {
		t.Errorf("values from file: have %+v", have)
	}
	if have.RenameFields["linkid"] != "LinkID" {
		t.Errorf("RenameFields: have %v", have.RenameFields)
	}
}

func TestVersionCommand(t *testing.T) {
	// Runs after commands that read a configuration file.
	cfgPath := writeConfigFile(t, t.TempDir(), nil)
	Root.SetArgs([]string{"config", "--config", cfgPath})
	Root.SetOut(&bytes.Buffer{})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	resetConfigFlag()
	os.Remove(cfgPath)

	var stdout bytes.Buffer
	Root.SetOut(&stdout)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "shpconv v" + shpconv.Version; !strings.Contains(stdout.String(), want) {
		t.Errorf("have %q, want %q", stdout.String(), want)
	}
}
