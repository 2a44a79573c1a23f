// autobrightd runs the ambient-light auto-brightness daemon for the
// clock kiosk. It samples room luminance from a camera, maps it to a
// display brightness and drives the hardware backlight when one is
// present. UI-facing values and notifications are emitted as simple
// lines on stdout for the clock process to consume.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Mio-of/NdotClock-sub000/internal/config"
	"github.com/Mio-of/NdotClock-sub000/internal/log"
	"github.com/Mio-of/NdotClock-sub000/pkg/ambient"
	"github.com/Mio-of/NdotClock-sub000/pkg/backlight"
	"github.com/Mio-of/NdotClock-sub000/pkg/brightness"
)

func main() {
	settingsPath := flag.String("settings", "", "settings file (default: user config dir)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)

	path := *settingsPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			log.Error("cannot resolve settings path", "err", err)
			os.Exit(1)
		}
		path = p
	}

	settings, err := config.Load(path)
	if err != nil {
		log.Warn("settings unreadable, starting from defaults", "err", err)
	}
	overrides := config.OverridesFromEnv()

	st := &store{path: path, settings: settings}

	mgr := brightness.NewManager(
		mappingConfig(settings, overrides),
		brightness.Options{
			Sampling:         samplingConfig(settings, overrides),
			Backlight:        resolveBacklight(overrides),
			Notifier:         uiNotifier{},
			UISink:           emitUIBrightness,
			ManualBrightness: settings.UserBrightness,
			OnDisabled: func(reason string) {
				emit("auto-disabled", reason)
				st.update(func(s *config.Settings) {
					s.AutoBrightness.Enabled = false
				})
			},
			OnSourceResolved: func(index int) {
				st.update(func(s *config.Settings) {
					s.AutoBrightness.Camera = strconv.Itoa(index)
				})
			},
		})

	mgr.Enable(settings.AutoBrightness.Enabled, false)

	go readCommands(mgr, st)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig.String())

	snap := mgr.Snapshot()
	mgr.Close()
	st.update(func(s *config.Settings) {
		s.UserBrightness = snap.Manual
		s.AutoBrightness.Enabled = snap.AutoEnabled
	})
}

func mappingConfig(s config.Settings, o config.RuntimeOverrides) brightness.Config {
	cfg := brightness.DefaultConfig()
	cfg.MinBrightness = s.AutoBrightness.Min
	cfg.MaxBrightness = s.AutoBrightness.Max
	if o.Gamma != nil {
		cfg.Gamma = *o.Gamma
	}
	if o.Smoothing != nil {
		cfg.Smoothing = *o.Smoothing
	}
	if o.MinBrightness != nil {
		cfg.MinBrightness = *o.MinBrightness
	}
	if o.MaxBrightness != nil {
		cfg.MaxBrightness = *o.MaxBrightness
	}
	if o.CalibrationDecay != nil {
		cfg.CalibrationDecay = *o.CalibrationDecay
	}
	if o.MinUpdateGap != nil {
		cfg.MinUpdateGap = *o.MinUpdateGap
	}
	return cfg.Normalize()
}

func samplingConfig(s config.Settings, o config.RuntimeOverrides) ambient.Config {
	cfg := ambient.DefaultConfig()
	cfg.Camera.Hint = s.AutoBrightness.Camera
	cfg.Interval = time.Duration(s.AutoBrightness.IntervalMS) * time.Millisecond
	if o.Camera != nil {
		cfg.Camera.Hint = *o.Camera
	}
	if o.IntervalMS != nil {
		cfg.Interval = time.Duration(*o.IntervalMS) * time.Millisecond
	}
	cfg.Verbose = o.Verbose
	return cfg
}

// resolveBacklight returns the hardware controller, or nil for
// software-only dimming when none is usable.
func resolveBacklight(o config.RuntimeOverrides) brightness.Backlight {
	spec := "auto"
	if o.Backlight != nil {
		spec = *o.Backlight
	}
	dev, err := backlight.Resolve(spec, backlight.DefaultSysfsDir)
	if err != nil {
		log.Warn("no hardware backlight, software dimming only", "err", err)
		return nil
	}
	log.Info("backlight controller ready", "device", dev.Name())
	return dev
}

// readCommands drives the daemon from stdin: the clock UI writes one
// command per line.
//
//	auto on|off
//	manual <0..1>
func readCommands(mgr *brightness.Manager, st *store) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "auto":
			on := fields[1] == "on"
			mgr.Enable(on, true)
			st.update(func(s *config.Settings) { s.AutoBrightness.Enabled = on })
		case "manual":
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				log.Warn("bad manual brightness", "value", fields[1])
				continue
			}
			mgr.SetManual(v)
			st.update(func(s *config.Settings) {
				s.UserBrightness = v
				s.AutoBrightness.Enabled = false
			})
		}
	}
}

// store serializes settings mutation and persistence. Manager callbacks
// arrive on the manager goroutine, stdin commands on another.
type store struct {
	mu       sync.Mutex
	path     string
	settings config.Settings
}

func (st *store) update(f func(*config.Settings)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	f(&st.settings)
	if err := config.Save(st.path, st.settings); err != nil {
		log.Warn("settings save failed", "err", err)
	}
}

func emitUIBrightness(v float64) {
	emit("brightness", strconv.FormatFloat(v, 'f', 4, 64))
}

func emit(kind, payload string) {
	fmt.Printf("%s %s\n", kind, payload)
}

// uiNotifier forwards user-visible messages to the clock UI and the log.
type uiNotifier struct{}

func (uiNotifier) Notify(message, kind string) {
	log.Warn("user notification", "kind", kind, "message", message)
	emit("notify", kind+" "+message)
}
