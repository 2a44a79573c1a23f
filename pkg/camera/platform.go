package camera

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

// cpuinfoPath is a variable so tests can point it at a fixture.
var cpuinfoPath = "/proc/cpuinfo"

// preflightTimeout bounds the isolated device probe. Probing a broken
// V4L2 device can wedge the caller, so the check runs in a child process
// that can be killed.
const preflightTimeout = 2 * time.Second

// isRaspberryPi reports whether the process runs on a Raspberry Pi.
// Naive index probing is known to hard-crash some camera stacks there,
// so Open switches to pipeline descriptors and pre-flight-checked probing.
func isRaspberryPi() bool {
	data, err := os.ReadFile(cpuinfoPath)
	if err != nil {
		return false
	}
	info := string(data)
	return strings.Contains(info, "Raspberry Pi") || strings.Contains(info, "BCM")
}

// preflightDevice checks whether a V4L2 device node looks usable before
// any capture construction is attempted against it. It spawns
// `v4l2-ctl --info` with a bounded timeout; if the tool is not installed,
// plain existence of the node is accepted.
func preflightDevice(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), preflightTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device="+path, "--info")
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return true
		}
		return false
	}
	return true
}
