// Package ambient runs the background sampling worker that owns a camera
// capture and periodically reduces frames to luminance measurements.
package ambient

import (
	"time"

	"github.com/Mio-of/NdotClock-sub000/pkg/camera"
)

// MinInterval is the lowest allowed sampling interval. Faster sampling
// buys nothing for ambient light and hammers slow camera stacks.
const MinInterval = 150 * time.Millisecond

// MaxInterval caps the sampling interval.
const MaxInterval = 60 * time.Second

// Config describes one sampling session. It is passed by value into the
// worker; a session never observes configuration changes.
type Config struct {
	// Camera is the acquisition configuration, including any explicit
	// source override.
	Camera camera.Config

	// Interval is the delay between samples, clamped to
	// [MinInterval, MaxInterval].
	Interval time.Duration

	// Verbose enables per-sample debug logging.
	Verbose bool
}

// DefaultConfig returns the recommended sampling configuration.
func DefaultConfig() Config {
	return Config{
		Camera:   camera.DefaultConfig(),
		Interval: time.Second,
	}
}

func (c Config) normalized() Config {
	if c.Interval < MinInterval {
		c.Interval = MinInterval
	}
	if c.Interval > MaxInterval {
		c.Interval = MaxInterval
	}
	c.Camera.Verbose = c.Camera.Verbose || c.Verbose
	return c
}
