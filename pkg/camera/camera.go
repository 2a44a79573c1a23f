// Package camera acquires frames from a webcam and reduces them to mean
// luminance readings for ambient light estimation.
//
// Opening a camera walks a prioritized list of backend strategies: an
// explicit override (index, device path, or GStreamer pipeline) is tried
// exclusively; otherwise platform pipeline descriptors, direct index
// probing, and finally a vendor any-API open. Every opened handle is
// read-validated with one frame before it is trusted — a capture that
// opens but never delivers frames is treated as absent.
package camera

import (
	"fmt"

	"github.com/Mio-of/NdotClock-sub000/internal/log"
)

// Config holds the camera acquisition parameters.
type Config struct {
	// Hint is an explicit source override. When set it is tried first and
	// exclusively; see ParseHint for the accepted forms.
	Hint string

	// PreferredIndex is probed before the fallback indexes when no Hint
	// is given.
	PreferredIndex int

	// FallbackIndexes is how many extra indexes (starting at 0) are
	// probed after PreferredIndex.
	FallbackIndexes int

	// Width and Height are the requested capture resolution. Low
	// resolution is enough for a mean luminance estimate.
	Width  int
	Height int

	// Verbose enables per-probe debug logging.
	Verbose bool
}

// DefaultConfig returns the recommended acquisition configuration.
func DefaultConfig() Config {
	return Config{
		PreferredIndex:  0,
		FallbackIndexes: 3,
		Width:           320,
		Height:          240,
	}
}

func (c Config) withDefaults() Config {
	if c.FallbackIndexes <= 0 {
		c.FallbackIndexes = 3
	}
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = 320, 240
	}
	if c.PreferredIndex < 0 {
		c.PreferredIndex = 0
	}
	return c
}

// backendAPI selects which capture API a candidate is opened with.
type backendAPI int

const (
	apiAny backendAPI = iota
	apiV4L2
	apiGStreamer
)

func (a backendAPI) String() string {
	switch a {
	case apiV4L2:
		return "v4l2"
	case apiGStreamer:
		return "gstreamer"
	default:
		return "any"
	}
}

// candidate is one entry of the probe priority list.
type candidate struct {
	source Source
	api    backendAPI
	// preflight requires an isolated device probe before construction;
	// used where a naive open is known to risk a hard process crash.
	preflight bool
}

// candidates builds the probe priority list for this configuration.
func (c Config) candidates(pi bool) []candidate {
	if src, ok := ParseHint(c.Hint); ok {
		switch src.Kind {
		case SourceIndex:
			return []candidate{
				{source: src, api: apiV4L2, preflight: pi},
				{source: src, api: apiAny},
			}
		case SourcePipeline:
			return []candidate{{source: src, api: apiGStreamer}}
		default:
			return []candidate{{source: src, api: apiAny}}
		}
	}

	var out []candidate
	if pi {
		// Index probing with the generic backend crashes some Pi camera
		// stacks, so the libcamera pipeline goes first and index probing
		// is gated behind a pre-flight device check.
		out = append(out, candidate{
			source: Source{Kind: SourcePipeline, Pipeline: libcameraPipeline(c.Width, c.Height)},
			api:    apiGStreamer,
		})
		for _, idx := range c.probeIndexes() {
			out = append(out, candidate{
				source:    Source{Kind: SourceIndex, Index: idx},
				api:       apiV4L2,
				preflight: true,
			})
		}
		return out
	}

	for _, idx := range c.probeIndexes() {
		out = append(out, candidate{
			source: Source{Kind: SourceIndex, Index: idx},
			api:    apiV4L2,
		})
	}
	out = append(out, candidate{
		source: Source{Kind: SourceNative, Index: c.PreferredIndex},
		api:    apiAny,
	})
	return out
}

// ConfiguredIndex returns the camera index this configuration already
// points at: the hint when it names an index, otherwise PreferredIndex.
// Callers use it to tell whether probing settled somewhere new.
func (c Config) ConfiguredIndex() int {
	if src, ok := ParseHint(c.Hint); ok && src.Kind == SourceIndex {
		return src.Index
	}
	return c.PreferredIndex
}

// probeIndexes returns the ordered camera indexes to try: the preferred
// index first, then 0..FallbackIndexes without repeating it.
func (c Config) probeIndexes() []int {
	indexes := []int{c.PreferredIndex}
	for idx := 0; idx <= c.FallbackIndexes; idx++ {
		if idx != c.PreferredIndex {
			indexes = append(indexes, idx)
		}
	}
	return indexes
}

// libcameraPipeline builds the GStreamer descriptor used on Raspberry Pi.
// libcamerasrc delivers RGB frames, so captures from this pipeline carry
// the RGB channel order.
func libcameraPipeline(width, height int) string {
	return fmt.Sprintf(
		"libcamerasrc ! video/x-raw,width=%d,height=%d,format=RGB ! videoconvert ! appsink max-buffers=1 drop=true",
		width, height)
}

// Open resolves a validated Capture using the probe priority list.
// Returns ErrUnavailable when no strategy produced a capture that
// actually delivers frames.
func Open(cfg Config) (*Capture, error) {
	cfg = cfg.withDefaults()
	pi := isRaspberryPi()
	if pi && cfg.Verbose {
		log.Debug("raspberry pi detected, preferring pipeline capture")
	}

	for _, cand := range cfg.candidates(pi) {
		if cfg.Verbose {
			log.Debug("probing camera", "source", cand.source.String(), "api", cand.api.String())
		}
		cap, ok := openCandidate(cand, cfg, pi)
		if !ok {
			continue
		}
		log.Info("camera opened", "source", cand.source.String(), "api", cand.api.String())
		return cap, nil
	}
	return nil, ErrUnavailable
}
