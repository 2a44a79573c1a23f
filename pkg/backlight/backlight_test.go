package backlight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeDevice creates a sysfs-style backlight directory under root.
func fakeDevice(t *testing.T, root, name string, maxRaw, current string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "max_brightness"), []byte(maxRaw+"\n"), 0o644); err != nil {
		t.Fatalf("write max_brightness: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "brightness"), []byte(current+"\n"), 0o644); err != nil {
		t.Fatalf("write brightness: %v", err)
	}
	return dir
}

func readRaw(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "brightness"))
	if err != nil {
		t.Fatalf("read brightness: %v", err)
	}
	return strings.TrimSpace(string(data))
}

func TestFromDirectory(t *testing.T) {
	root := t.TempDir()
	dir := fakeDevice(t, root, "panel0", "255", "128")

	dev, err := FromDirectory(dir)
	if err != nil {
		t.Fatalf("FromDirectory failed: %v", err)
	}
	if dev.Name() != "panel0" {
		t.Errorf("Name: got %q, want panel0", dev.Name())
	}
	if dev.MaxRaw() != 255 {
		t.Errorf("MaxRaw: got %d, want 255", dev.MaxRaw())
	}
}

func TestFromDirectory_Missing(t *testing.T) {
	root := t.TempDir()
	if _, err := FromDirectory(filepath.Join(root, "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestAutoDetect_PrefersPanelNames(t *testing.T) {
	root := t.TempDir()
	fakeDevice(t, root, "acpi_video0", "100", "50")
	fakeDevice(t, root, "rpi_backlight", "255", "200")

	dev, err := AutoDetect(root)
	if err != nil {
		t.Fatalf("AutoDetect failed: %v", err)
	}
	if dev.Name() != "rpi_backlight" {
		t.Errorf("AutoDetect picked %q, want rpi_backlight", dev.Name())
	}
}

func TestAutoDetect_SkipsUnreadable(t *testing.T) {
	root := t.TempDir()
	// A directory with a bad max_brightness must be skipped.
	dir := filepath.Join(root, "panel0")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "brightness"), []byte("10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "max_brightness"), []byte("garbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fakeDevice(t, root, "zz_monitor", "100", "50")

	dev, err := AutoDetect(root)
	if err != nil {
		t.Fatalf("AutoDetect failed: %v", err)
	}
	if dev.Name() != "zz_monitor" {
		t.Errorf("AutoDetect picked %q, want zz_monitor", dev.Name())
	}
}

func TestAutoDetect_Empty(t *testing.T) {
	if _, err := AutoDetect(t.TempDir()); err == nil {
		t.Fatal("expected ErrNoDevice for empty directory")
	}
}

func TestSetLevel_RoundsAndWrites(t *testing.T) {
	root := t.TempDir()
	dir := fakeDevice(t, root, "panel0", "255", "0")
	dev, err := FromDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := dev.SetLevel(0.5); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	if got := readRaw(t, dir); got != "128" {
		t.Errorf("raw value: got %s, want 128", got)
	}
}

func TestSetLevel_SuppressesRepeatWrites(t *testing.T) {
	root := t.TempDir()
	dir := fakeDevice(t, root, "panel0", "255", "0")
	dev, err := FromDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := dev.SetLevel(0.5); err != nil {
		t.Fatal(err)
	}
	// Scribble over the file; if the second call writes, the sentinel is lost.
	sentinel := filepath.Join(dir, "brightness")
	if err := os.WriteFile(sentinel, []byte("sentinel"), 0o644); err != nil {
		t.Fatal(err)
	}
	// 0.501 * 255 rounds to the same 128 as 0.5 * 255.
	if err := dev.SetLevel(0.501); err != nil {
		t.Fatal(err)
	}
	if got := readRaw(t, dir); got != "sentinel" {
		t.Errorf("expected suppressed write, file now %q", got)
	}

	// A genuinely different level must write again.
	if err := dev.SetLevel(0.6); err != nil {
		t.Fatal(err)
	}
	if got := readRaw(t, dir); got != "153" {
		t.Errorf("raw value after change: got %s, want 153", got)
	}
}

func TestSetLevel_Clamps(t *testing.T) {
	root := t.TempDir()
	dir := fakeDevice(t, root, "panel0", "100", "0")
	dev, err := FromDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := dev.SetLevel(2.5); err != nil {
		t.Fatal(err)
	}
	if got := readRaw(t, dir); got != "100" {
		t.Errorf("clamped high: got %s, want 100", got)
	}
	if err := dev.SetLevel(-1); err != nil {
		t.Fatal(err)
	}
	if got := readRaw(t, dir); got != "0" {
		t.Errorf("clamped low: got %s, want 0", got)
	}
}

func TestLevel(t *testing.T) {
	root := t.TempDir()
	dir := fakeDevice(t, root, "panel0", "200", "50")
	dev, err := FromDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}

	level, err := dev.Level()
	if err != nil {
		t.Fatalf("Level failed: %v", err)
	}
	if level != 0.25 {
		t.Errorf("Level: got %v, want 0.25", level)
	}
}

func TestLevel_NonPositiveMax(t *testing.T) {
	root := t.TempDir()
	dir := fakeDevice(t, root, "panel0", "0", "50")
	dev, err := FromDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}

	level, err := dev.Level()
	if err != nil {
		t.Fatalf("Level failed: %v", err)
	}
	if level != 0 {
		t.Errorf("Level with max=0: got %v, want 0", level)
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	fakeDevice(t, root, "acpi_video0", "100", "10")
	dir := fakeDevice(t, root, "panel0", "255", "20")

	// Explicit name under the sysfs directory.
	dev, err := Resolve("panel0", root)
	if err != nil {
		t.Fatalf("Resolve by name failed: %v", err)
	}
	if dev.Name() != "panel0" {
		t.Errorf("Resolve by name picked %q", dev.Name())
	}

	// Absolute directory.
	dev, err = Resolve(dir, root)
	if err != nil {
		t.Fatalf("Resolve by dir failed: %v", err)
	}
	if dev.Name() != "panel0" {
		t.Errorf("Resolve by dir picked %q", dev.Name())
	}

	// "auto" falls through to detection; panel0 wins on prefix rank.
	dev, err = Resolve("auto", root)
	if err != nil {
		t.Fatalf("Resolve auto failed: %v", err)
	}
	if dev.Name() != "panel0" {
		t.Errorf("Resolve auto picked %q", dev.Name())
	}

	// Unknown names then a valid fallback.
	dev, err = Resolve("missing, panel0", root)
	if err != nil {
		t.Fatalf("Resolve with fallback failed: %v", err)
	}
	if dev.Name() != "panel0" {
		t.Errorf("Resolve with fallback picked %q", dev.Name())
	}

	if _, err := Resolve("missing", root); err == nil {
		t.Error("Resolve with only unknown candidates should fail")
	}
}
