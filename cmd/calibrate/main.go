// calibrate walks through a camera calibration session: it measures
// luminance with the lens covered, under bright light and in normal
// room light, then reports whether the camera gives the auto-brightness
// pipeline a usable dynamic range.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/Mio-of/NdotClock-sub000/internal/log"
	"github.com/Mio-of/NdotClock-sub000/pkg/camera"
)

func main() {
	hint := flag.String("camera", "", "camera hint: index, device path or pipeline")
	duration := flag.Duration("duration", 5*time.Second, "sampling duration per pass")
	flag.Parse()

	log.Init("warn")

	cfg := camera.DefaultConfig()
	cfg.Hint = *hint

	fmt.Println("Opening camera...")
	cap, err := camera.Open(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "calibrate:", err)
		os.Exit(1)
	}
	defer cap.Close()
	fmt.Printf("Using %s\n\n", cap.Source())

	stdin := bufio.NewReader(os.Stdin)
	dark := pass(stdin, cap, *duration, "Cover the camera lens completely")
	bright := pass(stdin, cap, *duration, "Point the camera at a bright light")
	room := pass(stdin, cap, *duration, "Point the camera at the room as normally mounted")

	fmt.Println("\nResults:")
	printPass("dark", dark)
	printPass("bright", bright)
	printPass("room", room)

	span := bright.mean - dark.mean
	fmt.Printf("\nDynamic span (bright - dark): %.3f\n", span)
	switch {
	case dark.samples == 0 || bright.samples == 0:
		fmt.Println("FAIL: camera produced no usable frames")
		os.Exit(1)
	case span < 0.05:
		fmt.Println("WARN: span is very small; this camera may auto-expose " +
			"aggressively or sit behind a fixed-gain driver. Auto-brightness " +
			"will still self-calibrate but reactions will be coarse.")
	default:
		fmt.Println("OK: span is sufficient for auto-brightness.")
	}
	if room.mean < dark.mean || room.mean > bright.mean {
		fmt.Println("WARN: room reading falls outside the dark..bright window; " +
			"re-run with the camera in its final mounting position.")
	}
}

type passStats struct {
	min, max, mean float64
	samples        int
	failures       int
}

func pass(stdin *bufio.Reader, cap *camera.Capture, d time.Duration, prompt string) passStats {
	fmt.Printf("%s, then press Enter...", prompt)
	stdin.ReadString('\n')
	fmt.Printf("sampling for %s... ", d)

	stats := passStats{min: math.Inf(1), max: math.Inf(-1)}
	sum := 0.0
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		lum, err := cap.ReadLuminance()
		if err != nil {
			stats.failures++
			time.Sleep(100 * time.Millisecond)
			continue
		}
		stats.samples++
		sum += lum
		stats.min = math.Min(stats.min, lum)
		stats.max = math.Max(stats.max, lum)
		time.Sleep(100 * time.Millisecond)
	}
	if stats.samples > 0 {
		stats.mean = sum / float64(stats.samples)
	} else {
		stats.min, stats.max = 0, 0
	}
	fmt.Printf("done (%d samples, %d failed reads)\n", stats.samples, stats.failures)
	return stats
}

func printPass(name string, s passStats) {
	fmt.Printf("  %-8s mean=%.3f min=%.3f max=%.3f samples=%d\n",
		name, s.mean, s.min, s.max, s.samples)
}
