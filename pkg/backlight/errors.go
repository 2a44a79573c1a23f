package backlight

import "errors"

// Sentinel errors for the backlight package.
var (
	// ErrNoDevice indicates no usable backlight device was found.
	ErrNoDevice = errors.New("backlight: no device found")

	// ErrPermission indicates the brightness file exists but cannot be
	// written by this process. This usually needs a one-time udev rule or
	// setcap fix rather than disabling brightness control, so callers
	// should report it separately from a vanished device.
	ErrPermission = errors.New("backlight: permission denied writing brightness")
)
