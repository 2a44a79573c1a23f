package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Mio-of/NdotClock-sub000/internal/log"
)

// Environment variable names. All are optional power-user tuning; a
// malformed value logs a warning and is ignored, never crashes.
const (
	EnvCamera           = "NDOT_AUTO_BRIGHTNESS_CAMERA"
	EnvVerbose          = "NDOT_AUTO_BRIGHTNESS_VERBOSE"
	EnvGamma            = "NDOT_AUTO_BRIGHTNESS_GAMMA"
	EnvIntervalMS       = "NDOT_AUTO_BRIGHTNESS_INTERVAL_MS"
	EnvSmoothing        = "NDOT_AUTO_BRIGHTNESS_SMOOTHING"
	EnvMinInterval      = "NDOT_AUTO_BRIGHTNESS_MIN_INTERVAL"
	EnvMinBrightness    = "NDOT_AUTO_BRIGHTNESS_MIN"
	EnvMaxBrightness    = "NDOT_AUTO_BRIGHTNESS_MAX"
	EnvCalibrationDecay = "NDOT_AUTO_BRIGHTNESS_CALIBRATION_DECAY"
	EnvBacklight        = "NDOT_SYSTEM_BACKLIGHT"
	EnvBacklightVerbose = "NDOT_SYSTEM_BACKLIGHT_VERBOSE"
)

// RuntimeOverrides carries the parsed NDOT_* environment overrides.
// Nil pointer fields mean "not set"; populated once at process start.
type RuntimeOverrides struct {
	Camera           *string
	Verbose          bool
	Gamma            *float64
	IntervalMS       *int
	Smoothing        *float64
	MinUpdateGap     *time.Duration
	MinBrightness    *float64
	MaxBrightness    *float64
	CalibrationDecay *float64
	Backlight        *string
	BacklightVerbose bool
}

// OverridesFromEnv reads every override variable from the environment.
func OverridesFromEnv() RuntimeOverrides {
	var o RuntimeOverrides
	o.Camera = envString(EnvCamera)
	o.Verbose = envBool(EnvVerbose)
	o.Gamma = envFloat(EnvGamma, 0.3, 5.0)
	o.IntervalMS = envInt(EnvIntervalMS, 150, 60000)
	o.Smoothing = envFloat(EnvSmoothing, 0.0, 0.95)
	if s := envFloat(EnvMinInterval, 0.02, 1.0); s != nil {
		gap := time.Duration(*s * float64(time.Second))
		o.MinUpdateGap = &gap
	}
	o.MinBrightness = envFloat(EnvMinBrightness, 0.0, 1.0)
	o.MaxBrightness = envFloat(EnvMaxBrightness, 0.0, 1.0)
	o.CalibrationDecay = envFloat(EnvCalibrationDecay, 0.001, 0.2)
	o.Backlight = envString(EnvBacklight)
	o.BacklightVerbose = envBool(EnvBacklightVerbose)
	return o
}

func envString(name string) *string {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// envFloat parses and clamps a float override. Out-of-range values are
// pulled back into range rather than dropped, so a slightly wrong
// setting still does roughly what the user meant.
func envFloat(name string, lo, hi float64) *float64 {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		log.Warn("ignoring invalid environment override",
			"var", name, "value", raw, "err", err)
		return nil
	}
	if v < lo {
		v = lo
	} else if v > hi {
		v = hi
	}
	return &v
}

func envInt(name string, lo, hi int) *int {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Warn("ignoring invalid environment override",
			"var", name, "value", raw, "err", err)
		return nil
	}
	if v < lo {
		v = lo
	} else if v > hi {
		v = hi
	}
	return &v
}
