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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/shpconv"
	"github.com/spf13/cast"
)

// ConverterConfig builds a conversion configuration from cfg, expanding
// environment variables in paths.
func ConverterConfig(cfg *viper.Viper) (shpconv.Config, error) {
	rename, err := GetStringMapString("RenameFields", cfg)
	if err != nil {
		return shpconv.Config{}, err
	}
	c := shpconv.Config{
		InputDir:        os.ExpandEnv(cfg.GetString("InputDir")),
		InputPattern:    cfg.GetString("InputPattern"),
		OutputDir:       os.ExpandEnv(cfg.GetString("OutputDir")),
		GeoidFile:       os.ExpandEnv(cfg.GetString("GeoidFile")),
		GeoidMultiplier: cfg.GetFloat64("GeoidMultiplier"),
		TargetEPSG:      cfg.GetInt("TargetEPSG"),
		ApplyZFix:       cfg.GetBool("ApplyZFix"),
		RenameFields:    shpconv.FieldMapping(rename),
	}
	if c.InputDir == "" {
		return c, fmt.Errorf("shpconv: InputDir is not set")
	}
	if c.OutputDir == "" {
		return c, fmt.Errorf("shpconv: OutputDir is not set")
	}
	return c, c.RenameFields.Validate()
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument or environment variable.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(v) == "" {
			return o, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("shpconv: invalid %s %q: %v", varName, v, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("shpconv: invalid type for %s: %#v", varName, i)
	}
}

// fileConfig is the layout of a configuration file.
type fileConfig struct {
	InputDir        string
	InputPattern    string
	OutputDir       string
	GeoidFile       string
	GeoidMultiplier float64
	TargetEPSG      int
	ApplyZFix       bool
	LogLevel        string
	RenameFields    map[string]string
}

// WriteConfig writes cfg to w in TOML format.
func WriteConfig(w io.Writer, cfg shpconv.Config, logLevel string) error {
	return toml.NewEncoder(w).Encode(fileConfig{
		InputDir:        cfg.InputDir,
		InputPattern:    cfg.InputPattern,
		OutputDir:       cfg.OutputDir,
		GeoidFile:       cfg.GeoidFile,
		GeoidMultiplier: cfg.GeoidMultiplier,
		TargetEPSG:      cfg.TargetEPSG,
		ApplyZFix:       cfg.ApplyZFix,
		LogLevel:        logLevel,
		RenameFields:    cfg.RenameFields,
	})
}
