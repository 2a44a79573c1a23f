package camera

import "errors"

// Sentinel errors for the camera package.
var (
	// ErrUnavailable indicates no backend produced a validated capture.
	// This is fatal for the current sampling session: there is nothing to
	// retry until the configuration or the hardware changes.
	ErrUnavailable = errors.New("camera: no camera available")

	// ErrReadFailed indicates a single frame read returned no data.
	// Transient; callers absorb these with a failure counter.
	ErrReadFailed = errors.New("camera: frame read failed")
)

// IsFatal reports whether err should disable the consumer outright
// instead of triggering the bounded reconnection policy.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
