package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if s != Default() {
		t.Fatalf("got %+v, want defaults", s)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	want := Default()
	want.UserBrightness = 0.42
	want.AutoBrightness.Enabled = true
	want.AutoBrightness.Camera = "2"
	want.AutoBrightness.IntervalMS = 500
	want.AutoBrightness.Min = 0.1
	want.AutoBrightness.Max = 0.9

	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := Save(path, Default()); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "settings.yaml" {
		t.Fatalf("directory not clean after save: %v", entries)
	}
}

func TestLoadMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err == nil {
		t.Fatal("malformed settings must error")
	}
	if s != Default() {
		t.Fatalf("malformed load must fall back to defaults, got %+v", s)
	}
}

func TestOverridesFromEnv(t *testing.T) {
	t.Setenv(EnvCamera, " 1 ")
	t.Setenv(EnvVerbose, "true")
	t.Setenv(EnvGamma, "1.8")
	t.Setenv(EnvIntervalMS, "500")
	t.Setenv(EnvMinInterval, "0.1")
	t.Setenv(EnvBacklight, "rpi_backlight")

	o := OverridesFromEnv()
	if o.Camera == nil || *o.Camera != "1" {
		t.Fatalf("camera = %v, want 1", o.Camera)
	}
	if !o.Verbose {
		t.Fatal("verbose not picked up")
	}
	if o.Gamma == nil || *o.Gamma != 1.8 {
		t.Fatalf("gamma = %v, want 1.8", o.Gamma)
	}
	if o.IntervalMS == nil || *o.IntervalMS != 500 {
		t.Fatalf("interval = %v, want 500", o.IntervalMS)
	}
	if o.MinUpdateGap == nil || *o.MinUpdateGap != 100*time.Millisecond {
		t.Fatalf("min update gap = %v, want 100ms", o.MinUpdateGap)
	}
	if o.Backlight == nil || *o.Backlight != "rpi_backlight" {
		t.Fatalf("backlight = %v, want rpi_backlight", o.Backlight)
	}
	if o.Smoothing != nil || o.MinBrightness != nil {
		t.Fatal("unset variables must stay nil")
	}
}

func TestOverridesClampOutOfRange(t *testing.T) {
	t.Setenv(EnvGamma, "99")
	t.Setenv(EnvIntervalMS, "10")

	o := OverridesFromEnv()
	if o.Gamma == nil || *o.Gamma != 5.0 {
		t.Fatalf("gamma = %v, want clamped 5.0", o.Gamma)
	}
	if o.IntervalMS == nil || *o.IntervalMS != 150 {
		t.Fatalf("interval = %v, want clamped 150", o.IntervalMS)
	}
}

func TestOverridesIgnoreMalformed(t *testing.T) {
	t.Setenv(EnvGamma, "bright")
	t.Setenv(EnvIntervalMS, "fast")
	t.Setenv(EnvVerbose, "maybe")

	o := OverridesFromEnv()
	if o.Gamma != nil {
		t.Fatalf("malformed gamma must be ignored, got %v", *o.Gamma)
	}
	if o.IntervalMS != nil {
		t.Fatalf("malformed interval must be ignored, got %v", *o.IntervalMS)
	}
	if o.Verbose {
		t.Fatal("unknown boolean value must read as false")
	}
}
