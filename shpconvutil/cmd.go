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

// Package shpconvutil contains the command-line interface and
// configuration handling for shpconv.
package shpconvutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/shpconv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	defaults := shpconv.DefaultConfig()

	// Options are the configuration options available to shpconv.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "InputDir",
			usage: `
              InputDir is the directory containing the shapefiles to
              convert. It can contain environment variables.`,
			shorthand:  "i",
			defaultVal: defaults.InputDir,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "InputPattern",
			usage: `
              InputPattern is the glob pattern that input file names in
              InputDir must match.`,
			defaultVal: defaults.InputPattern,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory converted files are written to.
              It is created if it does not exist. It can also be a blob
              storage location such as gs://bucket/dir or s3://bucket/dir,
              in which case converted files are uploaded when the
              conversion finishes.`,
			shorthand:  "o",
			defaultVal: defaults.OutputDir,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "GeoidFile",
			usage: `
              GeoidFile is the location of the geoid undulation grid in
              GTX format. It can be a local path, an http(s) URL, or a
              blob storage location (file://, gs://, s3://). The grid is
              required even when ApplyZFix is false.`,
			defaultVal: defaults.GeoidFile,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "GeoidMultiplier",
			usage: `
              GeoidMultiplier scales geoid undulations before they are
              added to Z values.`,
			defaultVal: defaults.GeoidMultiplier,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "TargetEPSG",
			usage: `
              TargetEPSG is the EPSG code of the output coordinate
              reference system. Supported codes are 4326, 32601-32660,
              32701-32760, 5179, and 5185-5188.`,
			defaultVal: defaults.TargetEPSG,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "ApplyZFix",
			usage: `
              ApplyZFix specifies whether Z values are converted from
              orthometric heights to ellipsoidal heights.`,
			defaultVal: defaults.ApplyZFix,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "RenameFields",
			usage: `
              RenameFields maps input attribute field names to output field
              names. Names that are not listed are kept. On the command line
              it is given as a JSON object.`,
			defaultVal: map[string]string(defaults.RenameFields),
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), configCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the logging verbosity: one of panic, fatal, error,
              warn, info, debug, or trace.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), configCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("SHPCONV")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
			case int:
				set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				set.StringP(option.name, option.shorthand, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(convertCmd)
	Root.AddCommand(configCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("shpconv: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// newLogger returns a logger writing to w at the given level.
func newLogger(level string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("shpconv: invalid LogLevel: %v", err)
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return log, nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "shpconv",
	Short: "Convert shapefiles to a common projection and height reference.",
	Long: `shpconv converts a directory of shapefiles into a common projected
coordinate reference system (WGS 84 / UTM zone 52N by default), converts
Z values from orthometric heights to ellipsoidal heights using a geoid
undulation grid, and renames attribute fields to canonical names.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'SHPCONV_var' where 'var' is
the name of the variable to be set. Path variables are additionally allowed
to contain environment variables within them.
Running shpconv without a subcommand is the same as running 'shpconv convert'.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of shpconv.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("shpconv v%s\n", shpconv.Version)
	},
	DisableAutoGenTag: true,
}

// convertCmd converts all of the input files.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the input shapefiles.",
	Long: `convert reads every shapefile in InputDir matching InputPattern,
assigns or reprojects it to the target coordinate reference system, corrects
its heights, renames its fields, and writes it to OutputDir with an
upper-case file name. The first failure stops the conversion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(Cfg.GetString("LogLevel"), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		cfg, err := ConverterConfig(Cfg)
		if err != nil {
			return err
		}
		_, err = Convert(context.Background(), cfg, log)
		return err
	},
	DisableAutoGenTag: true,
}

// configCmd prints the configuration that convert would use.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration.",
	Long: `config prints the configuration that results from combining the
configuration file, environment variables, and command-line arguments, in
TOML format. The output can be used as a configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ConverterConfig(Cfg)
		if err != nil {
			return err
		}
		return WriteConfig(cmd.OutOrStdout(), cfg, Cfg.GetString("LogLevel"))
	},
	DisableAutoGenTag: true,
}

// Convert fetches the geoid grid if it is remote, runs the conversion, and
// uploads the results if OutputDir is a blob storage location. It returns
// the locations of the converted files.
func Convert(ctx context.Context, cfg shpconv.Config, log logrus.FieldLogger) ([]string, error) {
	geoid, err := maybeDownload(ctx, cfg.GeoidFile, log)
	if err != nil {
		return nil, err
	}
	cfg.GeoidFile = geoid

	up, err := newUploader(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	cfg.OutputDir = up.localDir()

	c, err := shpconv.NewConverter(cfg, log)
	if err != nil {
		return nil, err
	}
	outputs, err := c.Run()
	if err != nil {
		return nil, err
	}
	return up.upload(ctx, outputs, log)
}
