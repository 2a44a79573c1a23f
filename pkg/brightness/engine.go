package brightness

import (
	"math"
	"sort"
)

const (
	// minSpan is the smallest allowed calibration range. The invariant
	// dynMax-dynMin >= minSpan holds after every update.
	minSpan = 0.001

	// rangeMargin widens the normalization window by this fraction of
	// the span on both ends, so readings at the learned extremes do not
	// pin the output.
	rangeMargin = 0.05

	// saturationKnee is where the gamma curve starts blending toward
	// full brightness to avoid hard clipping.
	saturationKnee = 0.9

	medianWindow = 5
)

// Engine maps raw ambient samples to a smoothed target brightness.
//
// Each sample passes through a median window (outlier rejection), a
// decaying dynamic calibration range (auto-exposure-like adaptation to
// the room), a gamma curve biased toward the low end, the configured
// min/max bounds, and exponential smoothing. Not safe for concurrent
// use; the manager loop is the single caller.
type Engine struct {
	cfg Config

	window []float64

	dynMin     float64
	dynMax     float64
	calibrated bool

	smoothed  float64
	hasSample bool
}

// NewEngine creates a fresh engine. Calibration state starts empty and
// is never reset afterwards; reconnection builds a new engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:    cfg.Normalize(),
		window: make([]float64, 0, medianWindow),
	}
}

// Map consumes one raw luminance sample in [0,1] and returns the next
// smoothed target brightness in [MinBrightness, MaxBrightness].
func (e *Engine) Map(raw float64) float64 {
	filtered := e.filter(clamp01(raw))
	e.calibrate(filtered)

	target := e.cfg.MinBrightness +
		(e.cfg.MaxBrightness-e.cfg.MinBrightness)*e.curve(e.normalize(filtered))

	// The very first mapped value is taken verbatim so the display does
	// not crawl from an arbitrary cold-start value.
	if !e.hasSample {
		e.smoothed = target
		e.hasSample = true
	} else {
		e.smoothed = e.cfg.Smoothing*e.smoothed + (1-e.cfg.Smoothing)*target
	}
	return e.smoothed
}

// CalibrationRange reports the learned dynamic bounds.
func (e *Engine) CalibrationRange() (min, max float64) {
	return e.dynMin, e.dynMax
}

// filter pushes the sample into the bounded window and returns the
// median; the mean of the two middle values for even counts.
func (e *Engine) filter(raw float64) float64 {
	if len(e.window) == medianWindow {
		copy(e.window, e.window[1:])
		e.window = e.window[:medianWindow-1]
	}
	e.window = append(e.window, raw)

	sorted := make([]float64, len(e.window))
	copy(sorted, e.window)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// calibrate updates the dynamic range: instant expansion when the
// reading escapes the current bounds, slow decay contraction otherwise.
func (e *Engine) calibrate(v float64) {
	if !e.calibrated {
		e.dynMin = v
		e.dynMax = v + minSpan
		e.calibrated = true
		return
	}

	if v < e.dynMin {
		e.dynMin = v
	} else {
		e.dynMin += (v - e.dynMin) * e.cfg.CalibrationDecay
	}
	if v > e.dynMax {
		e.dynMax = v
	} else {
		e.dynMax -= (e.dynMax - v) * e.cfg.CalibrationDecay
	}

	if e.dynMax-e.dynMin < minSpan {
		e.dynMax = e.dynMin + minSpan
	}
}

// normalize maps v against the margin-widened calibration range into [0,1].
func (e *Engine) normalize(v float64) float64 {
	span := e.dynMax - e.dynMin
	margin := span * rangeMargin
	return clamp01((v - (e.dynMin - margin)) / (span + 2*margin))
}

// curve applies the perceptual gamma. The low-end-biased form
// normalized^gamma keeps dark rooms dark and gives fine resolution for
// night transitions; above the knee the result blends toward 1.0 so a
// saturated reading does not clip harshly.
func (e *Engine) curve(normalized float64) float64 {
	curved := math.Pow(normalized, e.cfg.Gamma)
	if normalized > saturationKnee {
		blend := (normalized - saturationKnee) / (1 - saturationKnee)
		curved += (1 - curved) * blend
	}
	return curved
}
