// Package brightness converts ambient luminance samples into display
// brightness: a self-calibrating mapping engine, an animated actuator
// driving both the UI value and the hardware backlight, and a manager
// that supervises the sampling worker with bounded reconnection.
package brightness

import "time"

// Default tuning. Matches the shipped kiosk configuration; every value
// can be overridden through settings or environment.
const (
	DefaultGamma            = 2.0
	DefaultSmoothing        = 0.85
	DefaultCalibrationDecay = 0.005
	DefaultMinUpdateGap     = 50 * time.Millisecond

	// ManualFloor keeps a manually set screen from going fully black.
	ManualFloor = 0.05

	// HardwareGamma is the perceptual correction applied on the hardware
	// path only. Human brightness perception is roughly a 2.2 power away
	// from linear backlight duty cycle.
	HardwareGamma = 2.2
)

// Config holds the mapping parameters. Invalid combinations are
// corrected by Normalize rather than rejected.
type Config struct {
	// Gamma shapes the ambient-to-brightness curve, in [0.3, 5.0].
	Gamma float64

	// Smoothing is the exponential smoothing factor in [0, 0.95].
	// Higher keeps more of the previous value.
	Smoothing float64

	// MinBrightness and MaxBrightness bound the mapped output, each in
	// [0, 1]. Swapped if supplied inverted.
	MinBrightness float64
	MaxBrightness float64

	// CalibrationDecay controls how fast the dynamic range contracts
	// toward recent readings, in [0.001, 0.2] per sample.
	CalibrationDecay float64

	// MinUpdateGap throttles how often an automatic target is applied.
	MinUpdateGap time.Duration
}

// DefaultConfig returns the recommended mapping configuration.
func DefaultConfig() Config {
	return Config{
		Gamma:            DefaultGamma,
		Smoothing:        DefaultSmoothing,
		MinBrightness:    0.0,
		MaxBrightness:    1.0,
		CalibrationDecay: DefaultCalibrationDecay,
		MinUpdateGap:     DefaultMinUpdateGap,
	}
}

// Normalize clamps every field into its valid range and swaps inverted
// min/max bounds.
func (c Config) Normalize() Config {
	c.Gamma = clamp(c.Gamma, 0.3, 5.0)
	c.Smoothing = clamp(c.Smoothing, 0.0, 0.95)
	c.MinBrightness = clamp(c.MinBrightness, 0.0, 1.0)
	c.MaxBrightness = clamp(c.MaxBrightness, 0.0, 1.0)
	if c.MinBrightness > c.MaxBrightness {
		c.MinBrightness, c.MaxBrightness = c.MaxBrightness, c.MinBrightness
	}
	if c.CalibrationDecay == 0 {
		c.CalibrationDecay = DefaultCalibrationDecay
	}
	c.CalibrationDecay = clamp(c.CalibrationDecay, 0.001, 0.2)
	if c.MinUpdateGap <= 0 {
		c.MinUpdateGap = DefaultMinUpdateGap
	}
	return c
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
