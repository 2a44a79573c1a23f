// Package backlight controls a hardware display backlight through the
// sysfs brightness file interface (/sys/class/backlight/<name>/brightness).
package backlight

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultSysfsDir is the standard location of backlight devices on Linux.
const DefaultSysfsDir = "/sys/class/backlight"

// preferredPrefixes lists device names tried first during auto-detection.
// Embedded panels (Raspberry Pi DSI displays) use these conventions.
var preferredPrefixes = []string{"rpi_backlight", "panel", "DSI"}

// Device drives a single backlight device. The maximum raw value is read
// once at discovery and treated as immutable. Repeat writes that round to
// the same raw value are suppressed.
type Device struct {
	name           string
	brightnessPath string
	maxRaw         int

	mu      sync.Mutex
	lastRaw int
	hasLast bool
}

// Name returns the sysfs device name.
func (d *Device) Name() string { return d.name }

// MaxRaw returns the device-native maximum brightness value.
func (d *Device) MaxRaw() int { return d.maxRaw }

// AutoDetect scans dir (DefaultSysfsDir if empty) and returns the first
// device whose brightness file can actually be read. Embedded-panel names
// are preferred over external monitors.
func AutoDetect(dir string) (*Device, error) {
	if dir == "" {
		dir = DefaultSysfsDir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ErrNoDevice
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.SliceStable(names, func(i, j int) bool {
		pi, pj := prefixRank(names[i]), prefixRank(names[j])
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		dev, err := FromDirectory(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		// Read-validate before trusting the device, same discipline as
		// camera captures: a device whose brightness file cannot be read
		// must never be reported as available.
		if _, err := dev.Level(); err != nil {
			continue
		}
		return dev, nil
	}
	return nil, ErrNoDevice
}

// FromDirectory builds a Device from an explicit backlight directory
// containing brightness and max_brightness files.
func FromDirectory(dir string) (*Device, error) {
	brightnessPath := filepath.Join(dir, "brightness")
	maxPath := filepath.Join(dir, "max_brightness")
	if _, err := os.Stat(brightnessPath); err != nil {
		return nil, fmt.Errorf("backlight: %s: %w", dir, ErrNoDevice)
	}
	maxRaw, err := readInt(maxPath)
	if err != nil {
		return nil, fmt.Errorf("backlight: read max_brightness: %w", err)
	}
	return &Device{
		name:           filepath.Base(strings.TrimRight(dir, "/")),
		brightnessPath: brightnessPath,
		maxRaw:         maxRaw,
	}, nil
}

// Resolve turns a configuration string into a Device. The string is a
// comma-separated list of candidates: "auto" (or "detect"/"default") runs
// auto-detection, anything else is tried as a directory or a device name
// under sysfsDir. The first candidate that yields a device wins.
func Resolve(spec, sysfsDir string) (*Device, error) {
	if sysfsDir == "" {
		sysfsDir = DefaultSysfsDir
	}
	parts := strings.Split(spec, ",")
	tried := false
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tried = true
		switch strings.ToLower(part) {
		case "auto", "detect", "default":
			if dev, err := AutoDetect(sysfsDir); err == nil {
				return dev, nil
			}
			continue
		}
		candidate := part
		if fi, err := os.Stat(candidate); err != nil || !fi.IsDir() {
			candidate = filepath.Join(sysfsDir, part)
		}
		if dev, err := FromDirectory(candidate); err == nil {
			return dev, nil
		}
	}
	if !tried {
		return AutoDetect(sysfsDir)
	}
	return nil, ErrNoDevice
}

// SetLevel sets the backlight to level in [0,1], clamping out-of-range
// input. The level is converted to the device raw range by rounding and
// written as text. A write is skipped entirely when the raw value matches
// the last written one.
func (d *Device) SetLevel(level float64) error {
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	raw := int(math.Round(level * float64(d.maxRaw)))

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hasLast && raw == d.lastRaw {
		return nil
	}

	if err := d.writeRaw(raw); err != nil {
		return err
	}
	d.lastRaw = raw
	d.hasLast = true
	return nil
}

// Level reads the current backlight level normalized to [0,1].
// Returns 0 if the device reports a non-positive maximum.
func (d *Device) Level() (float64, error) {
	raw, err := readInt(d.brightnessPath)
	if err != nil {
		return 0, fmt.Errorf("backlight: read brightness: %w", err)
	}
	d.mu.Lock()
	d.lastRaw = raw
	d.hasLast = true
	d.mu.Unlock()
	if d.maxRaw <= 0 {
		return 0, nil
	}
	level := float64(raw) / float64(d.maxRaw)
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	return level, nil
}

func (d *Device) writeRaw(raw int) error {
	// Check writability up front so a permission problem is reported as
	// ErrPermission rather than a generic write failure.
	if err := unix.Access(d.brightnessPath, unix.W_OK); err != nil {
		if err == unix.EACCES || err == unix.EPERM {
			return fmt.Errorf("%w: %s", ErrPermission, d.brightnessPath)
		}
	}
	err := os.WriteFile(d.brightnessPath, []byte(strconv.Itoa(raw)+"\n"), 0o644)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermission, d.brightnessPath)
		}
		return fmt.Errorf("backlight: write brightness: %w", err)
	}
	return nil
}

func prefixRank(name string) int {
	for i, p := range preferredPrefixes {
		if strings.HasPrefix(name, p) {
			return i
		}
	}
	return len(preferredPrefixes)
}

func readInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
