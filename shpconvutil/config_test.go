package shpconvutil

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/kr/pretty"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/shpconv"
)

func TestGetStringMapString(t *testing.T) {
	want := map[string]string{"linkid": "LinkID", "roadno": "RoadNo"}
	tests := []struct {
		name  string
		value interface{}
	}{
		{name: "map", value: map[string]string{"linkid": "LinkID", "roadno": "RoadNo"}},
		{name: "interface map", value: map[string]interface{}{"linkid": "LinkID", "roadno": "RoadNo"}},
		{name: "json", value: `{"linkid": "LinkID", "roadno": "RoadNo"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := viper.New()
			cfg.Set("RenameFields", tt.value)
			have, err := GetStringMapString("RenameFields", cfg)
			if err != nil {
				t.Fatal(err)
			}
			if diff := pretty.Diff(have, want); len(diff) != 0 {
				t.Error(diff)
			}
		})
	}

	cfg := viper.New()
	cfg.Set("RenameFields", "{not json")
	if _, err := GetStringMapString("RenameFields", cfg); err == nil {
		t.Error("expected an error for invalid JSON")
	}
	cfg.Set("RenameFields", 3)
	if _, err := GetStringMapString("RenameFields", cfg); err == nil {
		t.Error("expected an error for a number")
	}
}

func TestRenameFieldsFromFileKeepCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	const contents = `[RenameFields]
LINKID = "LinkID"
l_linkid = "L_LinkID"
`
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := viper.New()
	cfg.SetConfigFile(path)
	if err := cfg.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	have, err := GetStringMapString("RenameFields", cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"LINKID": "LinkID", "l_linkid": "L_LinkID"}
	if diff := pretty.Diff(have, want); len(diff) != 0 {
		t.Error(diff)
	}
}

func TestConverterConfig(t *testing.T) {
	os.Setenv("SHPCONV_TEST_ROOT", "/data")
	defer os.Unsetenv("SHPCONV_TEST_ROOT")

	cfg := viper.New()
	cfg.Set("InputDir", "${SHPCONV_TEST_ROOT}/in")
	cfg.Set("InputPattern", "*.shp")
	cfg.Set("OutputDir", "$SHPCONV_TEST_ROOT/out")
	cfg.Set("GeoidFile", "gs://geoid/egm96_15.gtx")
	cfg.Set("GeoidMultiplier", 1.0)
	cfg.Set("TargetEPSG", 5186)
	cfg.Set("ApplyZFix", false)
	cfg.Set("RenameFields", `{"id": "ID"}`)

	have, err := ConverterConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := shpconv.Config{
		InputDir:        "/data/in",
		InputPattern:    "*.shp",
		OutputDir:       "/data/out",
		GeoidFile:       "gs://geoid/egm96_15.gtx",
		GeoidMultiplier: 1,
		TargetEPSG:      5186,
		ApplyZFix:       false,
		RenameFields:    shpconv.FieldMapping{"id": "ID"},
	}
	if diff := pretty.Diff(have, want); len(diff) != 0 {
		t.Error(diff)
	}

	cfg.Set("RenameFields", `{"id": "FarTooLongName"}`)
	if _, err := ConverterConfig(cfg); err == nil {
		t.Error("expected an error for a long field name")
	}
	cfg.Set("RenameFields", `{}`)
	cfg.Set("OutputDir", "")
	if _, err := ConverterConfig(cfg); err == nil {
		t.Error("expected an error for a missing output directory")
	}
}

func TestWriteConfig(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteConfig(&buf, shpconv.DefaultConfig(), "info"); err != nil {
		t.Fatal(err)
	}
	var have fileConfig
	if _, err := toml.Decode(buf.String(), &have); err != nil {
		t.Fatal(err)
	}
	d := shpconv.DefaultConfig()
	want := fileConfig{
		InputDir:        d.InputDir,
		InputPattern:    d.InputPattern,
		OutputDir:       d.OutputDir,
		GeoidFile:       d.GeoidFile,
		GeoidMultiplier: d.GeoidMultiplier,
		TargetEPSG:      d.TargetEPSG,
		ApplyZFix:       d.ApplyZFix,
		LogLevel:        "info",
		RenameFields:    d.RenameFields,
	}
	if diff := pretty.Diff(have, want); len(diff) != 0 {
		t.Error(diff)
	}
}
