package brightness

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mio-of/NdotClock-sub000/internal/log"
	"github.com/Mio-of/NdotClock-sub000/pkg/ambient"
	"github.com/Mio-of/NdotClock-sub000/pkg/backlight"
)

// Reconnection policy defaults.
const (
	DefaultMaxRetries    = 10
	DefaultRetryInterval = 30 * time.Second

	animTick = 50 * time.Millisecond
)

// Disable reasons reported through Options.OnDisabled.
const (
	ReasonUnavailable        = "camera_unavailable"
	ReasonReconnectExhausted = "reconnect_exhausted"
	ReasonManualOverride     = "manual_override"
	ReasonUserDisabled       = "user_disabled"
)

// notification conditions (de-duplicated per condition, see notifyGate)
const (
	condCamera    = "camera"
	condBacklight = "backlight_permission"
)

// Backlight is the hardware surface the actuator writes to.
// *backlight.Device implements it.
type Backlight interface {
	SetLevel(level float64) error
	Name() string
}

// sampler abstracts ambient.Monitor so tests can substitute scripted
// sessions.
type sampler interface {
	Start()
	Stop()
	Events() <-chan ambient.Event
	Session() string
}

// Options wires the manager to its collaborators.
type Options struct {
	// Sampling configures each ambient sampling session.
	Sampling ambient.Config

	// Backlight is the hardware device, or nil for software-only dimming.
	Backlight Backlight

	// Notifier receives user-visible warnings and errors.
	Notifier Notifier

	// UISink receives the UI-visible brightness in [0,1]. Called from
	// the manager goroutine.
	UISink func(value float64)

	// OnDisabled is called once whenever auto-brightness turns off, with
	// the reason. Called from the manager goroutine.
	OnDisabled func(reason string)

	// OnSourceResolved reports the camera index the probe settled on,
	// for persistence.
	OnSourceResolved func(index int)

	// ManualBrightness is the initial user brightness. Default 0.8.
	ManualBrightness float64

	// MaxRetries and RetryInterval tune the reconnection policy.
	MaxRetries    int
	RetryInterval time.Duration

	// newMonitor is a test seam for substituting scripted samplers.
	newMonitor func(ambient.Config) sampler
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = DefaultRetryInterval
	}
	if o.ManualBrightness <= 0 {
		o.ManualBrightness = 0.8
	}
	o.ManualBrightness = clamp(o.ManualBrightness, ManualFloor, 1)
	if o.UISink == nil {
		o.UISink = func(float64) {}
	}
	if o.OnDisabled == nil {
		o.OnDisabled = func(string) {}
	}
	if o.OnSourceResolved == nil {
		o.OnSourceResolved = func(int) {}
	}
	return o
}

// State is a snapshot of the manager for persistence.
type State struct {
	Manual      float64
	AutoEnabled bool
	Current     float64
}

// Manager owns the displayed brightness. A single goroutine serializes
// sampling events, animation ticks, retry timers and API commands, so
// the manual and automatic paths can never fight over the actuator.
type Manager struct {
	commands  chan command
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	currentBits atomic.Uint64

	// Everything below is owned by the loop goroutine.
	cfg        Config
	opts       Options
	backlight  Backlight
	gate       *notifyGate
	newMonitor func(ambient.Config) sampler

	enabled bool
	manual  float64
	engine  *Engine
	monitor sampler
	events  <-chan ambient.Event
	session string

	attempts   int
	retryTimer *time.Timer
	retryC     <-chan time.Time

	anim          animator
	lastAutoApply time.Time
	lastUILogged  float64
}

type command interface{ isCommand() }

type cmdEnable struct {
	enabled bool
	user    bool
}

type cmdSetManual struct{ value float64 }

type cmdReconfigure struct{ cfg Config }

type cmdSnapshot struct{ reply chan State }

func (cmdEnable) isCommand()      {}
func (cmdSetManual) isCommand()   {}
func (cmdReconfigure) isCommand() {}
func (cmdSnapshot) isCommand()    {}

// NewManager creates the manager and starts its loop. Auto-brightness
// starts disabled; call Enable to start sampling.
func NewManager(cfg Config, opts Options) *Manager {
	opts = opts.withDefaults()
	nm := opts.newMonitor
	if nm == nil {
		nm = func(c ambient.Config) sampler { return ambient.New(c) }
	}
	m := &Manager{
		commands:     make(chan command, 8),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		cfg:          cfg.Normalize(),
		opts:         opts,
		backlight:    opts.Backlight,
		gate:         newNotifyGate(opts.Notifier),
		newMonitor:   nm,
		manual:       opts.ManualBrightness,
		lastUILogged: -1,
	}
	m.anim.jump(m.manual)
	m.storeCurrent(m.manual)
	go m.loop()
	return m
}

// Enable turns auto-brightness on or off. userTriggered marks explicit
// user toggles, which always reset the reconnection attempt counter.
func (m *Manager) Enable(enabled, userTriggered bool) {
	m.post(cmdEnable{enabled: enabled, user: userTriggered})
}

// SetManual applies a manual brightness immediately. If auto-brightness
// is running it is disabled first.
func (m *Manager) SetManual(value float64) {
	m.post(cmdSetManual{value: value})
}

// Reconfigure replaces the mapping parameters. A running session gets a
// fresh engine so the new curve takes effect cleanly.
func (m *Manager) Reconfigure(cfg Config) {
	m.post(cmdReconfigure{cfg: cfg})
}

// Current returns the displayed brightness. Cheap; safe from any
// goroutine.
func (m *Manager) Current() float64 {
	return math.Float64frombits(m.currentBits.Load())
}

// Snapshot returns the persistable state.
func (m *Manager) Snapshot() State {
	reply := make(chan State, 1)
	m.post(cmdSnapshot{reply: reply})
	select {
	case s := <-reply:
		return s
	case <-m.done:
		return State{Manual: m.manual, Current: m.Current()}
	}
}

// Close stops sampling and the manager loop.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.quit) })
	<-m.done
}

func (m *Manager) post(c command) {
	select {
	case m.commands <- c:
	case <-m.quit:
	}
}

func (m *Manager) loop() {
	defer close(m.done)
	ticker := time.NewTicker(animTick)
	defer ticker.Stop()

	m.applyOutput(m.manual)

	for {
		select {
		case <-m.quit:
			m.cancelRetry()
			m.teardownMonitor()
			return
		case c := <-m.commands:
			m.handleCommand(c)
		case ev := <-m.events:
			m.handleEvent(ev)
		case <-m.retryC:
			m.retryC = nil
			m.retryTimer = nil
			m.handleRetry()
		case now := <-ticker.C:
			if v, changed := m.anim.step(now); changed {
				m.applyOutput(v)
			}
		}
	}
}

func (m *Manager) handleCommand(c command) {
	switch cmd := c.(type) {
	case cmdEnable:
		m.setEnabled(cmd.enabled, cmd.user)
	case cmdSetManual:
		m.setManual(cmd.value)
	case cmdReconfigure:
		m.cfg = cmd.cfg.Normalize()
		if m.engine != nil {
			m.engine = NewEngine(m.cfg)
		}
	case cmdSnapshot:
		cmd.reply <- State{
			Manual:      m.manual,
			AutoEnabled: m.enabled,
			Current:     m.Current(),
		}
	}
}

func (m *Manager) setEnabled(enabled, user bool) {
	if m.enabled == enabled && !user {
		return
	}
	m.enabled = enabled

	if enabled {
		// A user toggle always starts over: fresh attempt budget, armed
		// notifications.
		m.attempts = 0
		m.cancelRetry()
		m.gate.rearm(condCamera)
		if m.backlight != nil {
			// With a hardware backlight the UI stays at full scale and
			// all perceived dimming comes from the panel, otherwise the
			// two paths would dim multiplicatively.
			m.setUI(1.0)
		}
		if m.monitor == nil {
			m.startMonitor()
		}
		return
	}

	m.cancelRetry()
	m.attempts = 0
	m.teardownMonitor()
	if user {
		m.emitDisabled(ReasonUserDisabled)
	}
	// Ease back to the user's manual brightness.
	m.anim.animateTo(m.manual, time.Now())
}

// setManual applies a user brightness immediately, no animation.
func (m *Manager) setManual(value float64) {
	value = clamp(value, ManualFloor, 1)
	m.manual = value

	if m.enabled {
		// A manual adjustment while auto is running wins: the automatic
		// path is disabled before the value is accepted.
		m.enabled = false
		m.cancelRetry()
		m.attempts = 0
		m.teardownMonitor()
		m.emitDisabled(ReasonManualOverride)
	}

	m.anim.jump(value)
	m.applyOutput(value)
}

func (m *Manager) handleEvent(ev ambient.Event) {
	if m.session == "" || ev.Session != m.session {
		return // stale or foreign session
	}
	switch ev.Kind {
	case ambient.EventSample:
		m.handleSample(ev.Sample)
	case ambient.EventSourceResolved:
		log.Info("camera index resolved", "index", ev.Index)
		m.opts.OnSourceResolved(ev.Index)
	case ambient.EventError:
		m.handleSessionError(ev)
	}
}

func (m *Manager) handleSample(raw float64) {
	if m.attempts > 0 {
		log.Info("camera reconnected", "after_attempts", m.attempts)
		m.attempts = 0
	}
	// A working camera re-arms the camera notification so a later
	// failure is reported again.
	m.gate.rearm(condCamera)

	target := m.engine.Map(raw)

	now := time.Now()
	if now.Sub(m.lastAutoApply) < m.cfg.MinUpdateGap {
		return
	}
	m.lastAutoApply = now
	m.anim.animateTo(target, now)
}

func (m *Manager) handleSessionError(ev ambient.Event) {
	m.teardownMonitor()

	if ev.Fatal() {
		m.attempts = 0
		m.disable(ReasonUnavailable,
			"Auto-brightness disabled: no camera available", NotifyError)
		return
	}

	m.attempts++
	if m.attempts > m.opts.MaxRetries {
		attempts := m.attempts - 1
		m.attempts = 0
		m.disable(ReasonReconnectExhausted,
			fmt.Sprintf("Auto-brightness disabled after %d failed reconnection attempts", attempts),
			NotifyError)
		return
	}

	log.Warn("camera session failed, scheduling reconnect",
		"err", ev.Err,
		"attempt", m.attempts,
		"max", m.opts.MaxRetries,
		"retry_in", m.opts.RetryInterval)
	m.scheduleRetry()
}

// scheduleRetry arms the single-shot retry timer. A pending retry is
// replaced, never stacked.
func (m *Manager) scheduleRetry() {
	m.cancelRetry()
	m.retryTimer = time.NewTimer(m.opts.RetryInterval)
	m.retryC = m.retryTimer.C
}

func (m *Manager) cancelRetry() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
		m.retryC = nil
	}
}

func (m *Manager) handleRetry() {
	if !m.enabled {
		// User turned the feature off while the retry was pending.
		m.attempts = 0
		return
	}
	log.Info("attempting camera reconnection",
		"attempt", m.attempts, "max", m.opts.MaxRetries)
	m.startMonitor()
}

func (m *Manager) startMonitor() {
	m.engine = NewEngine(m.cfg)
	m.monitor = m.newMonitor(m.opts.Sampling)
	m.events = m.monitor.Events()
	m.session = m.monitor.Session()
	m.monitor.Start()
}

// teardownMonitor stops the session but keeps draining its event
// channel: the worker may still emit during its bounded async exit, and
// the session-ID check in handleEvent discards whatever arrives.
func (m *Manager) teardownMonitor() {
	if m.monitor == nil {
		return
	}
	m.monitor.Stop()
	m.monitor = nil
	m.session = ""
	m.engine = nil
}

// disable turns the feature off after a failure and notifies exactly
// once per condition.
func (m *Manager) disable(reason, message, kind string) {
	wasEnabled := m.enabled
	m.enabled = false
	m.cancelRetry()
	m.teardownMonitor()
	m.gate.fire(condCamera, message, kind)
	if wasEnabled {
		m.emitDisabled(reason)
	}
	m.anim.animateTo(m.manual, time.Now())
}

func (m *Manager) emitDisabled(reason string) {
	log.Info("auto-brightness disabled", "reason", reason)
	m.opts.OnDisabled(reason)
}

// applyOutput fans a displayed value out to the UI and the hardware.
// While the automatic path runs against a hardware backlight, the UI
// stays pinned at full scale and only the panel dims.
func (m *Manager) applyOutput(v float64) {
	m.storeCurrent(v)
	if !(m.enabled && m.backlight != nil) {
		m.setUI(v)
	}
	m.writeHardware(v)
}

func (m *Manager) setUI(v float64) {
	if math.Abs(v-m.lastUILogged) > 0.05 {
		m.lastUILogged = v
		log.Debug("ui brightness", "value", v)
	}
	m.opts.UISink(v)
}

// writeHardware applies the perceptual correction and writes the panel.
// A permission failure drops the controller for the rest of the session;
// software dimming continues.
func (m *Manager) writeHardware(v float64) {
	if m.backlight == nil {
		return
	}
	perceptual := math.Pow(v, HardwareGamma)
	err := m.backlight.SetLevel(perceptual)
	if err == nil {
		return
	}
	if errors.Is(err, backlight.ErrPermission) {
		log.Error("backlight not writable, dropping hardware path", "err", err)
		m.gate.fire(condBacklight,
			"Cannot write backlight brightness: permission denied. Grant write access (udev rule) and restart.",
			NotifyError)
		pinned := m.enabled
		m.backlight = nil
		if pinned {
			// The UI was pinned to full scale; hand dimming back to it.
			m.setUI(v)
		}
		return
	}
	log.Warn("backlight write failed", "err", err)
}

func (m *Manager) storeCurrent(v float64) {
	m.currentBits.Store(math.Float64bits(v))
}
