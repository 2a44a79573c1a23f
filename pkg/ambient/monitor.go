package ambient

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Mio-of/NdotClock-sub000/internal/log"
	"github.com/Mio-of/NdotClock-sub000/pkg/camera"
)

const (
	// maxConsecutiveFailures is how many failed reads in a row the worker
	// absorbs before it gives the capture up as dead.
	maxConsecutiveFailures = 5

	// stopWait bounds how long Stop blocks for a graceful exit. The
	// worker must never be force-terminated mid-read, so on timeout it
	// simply finishes asynchronously and releases the capture itself.
	stopWait = 300 * time.Millisecond

	// eventBuffer bounds the event channel. The worker never blocks on a
	// slow consumer; it drops the oldest event instead.
	eventBuffer = 16

	verboseLogInterval = 2 * time.Second
)

// Grabber is the capture surface the worker consumes. *camera.Capture
// implements it; tests substitute fakes.
type Grabber interface {
	ReadLuminance() (float64, error)
	Source() camera.Source
	Close()
}

// OpenFunc resolves a Grabber for a session.
type OpenFunc func(camera.Config) (Grabber, error)

func defaultOpen(cfg camera.Config) (Grabber, error) {
	cap, err := camera.Open(cfg)
	if err != nil {
		return nil, err
	}
	return cap, nil
}

// Monitor samples ambient luminance on a dedicated goroutine. All camera
// I/O (open, read, close) happens on that goroutine; the only shared
// state is the atomic keep-running flag. Each Monitor runs exactly one
// session and is discarded afterwards — reconnection builds a new one.
type Monitor struct {
	cfg     Config
	session string
	open    OpenFunc
	events  chan Event

	running   atomic.Bool
	started   atomic.Bool
	stopCh    chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a Monitor for one sampling session.
func New(cfg Config) *Monitor {
	return &Monitor{
		cfg:     cfg.normalized(),
		session: uuid.NewString(),
		open:    defaultOpen,
		events:  make(chan Event, eventBuffer),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Session returns the unique ID stamped on every event of this session.
func (m *Monitor) Session() string { return m.session }

// Events returns the ordered event stream for this session. The channel
// is never closed; consumers drop the reference when the session ends.
func (m *Monitor) Events() <-chan Event { return m.events }

// Start launches the worker goroutine. It returns immediately; the
// camera open happens on the worker, never on the caller.
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		m.running.Store(true)
		m.started.Store(true)
		go m.run()
	})
}

// Stop requests a graceful exit and waits up to stopWait for it. The
// capture is always released by the worker, on every exit path.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.running.Store(false)
		close(m.stopCh)
	})
	if !m.started.Load() {
		return
	}
	select {
	case <-m.done:
	case <-time.After(stopWait):
		log.Debug("ambient monitor stop timed out, worker finishing async",
			"session", m.session)
	}
}

func (m *Monitor) run() {
	defer close(m.done)
	logger := log.With("session", m.session)

	grab, err := m.open(m.cfg.Camera)
	if err != nil {
		logger.Warn("ambient monitor failed to open camera", "err", err)
		m.emit(Event{Kind: EventError, Err: err})
		return
	}
	defer grab.Close()

	src := grab.Source()
	logger.Info("ambient monitor sampling",
		"source", src.String(), "interval", m.cfg.Interval)
	// Report the resolved index only when probing landed somewhere other
	// than the configured one, so consumers persist an actual change.
	if (src.Kind == camera.SourceIndex || src.Kind == camera.SourceNative) &&
		src.Index != m.cfg.Camera.ConfiguredIndex() {
		m.emit(Event{Kind: EventSourceResolved, Index: src.Index})
	}

	failures := 0
	var lastVerbose time.Time
	for m.running.Load() {
		lum, err := m.sampleOnce(grab)
		if err != nil {
			failures++
			logger.Debug("frame read failed",
				"attempt", failures, "max", maxConsecutiveFailures, "err", err)
			if failures >= maxConsecutiveFailures {
				logger.Warn("too many consecutive read failures, stopping session",
					"failures", failures)
				m.emit(Event{Kind: EventError, Err: ErrCaptureFailed})
				return
			}
		} else {
			failures = 0
			m.emit(Event{Kind: EventSample, Sample: lum})
			if m.cfg.Verbose && time.Since(lastVerbose) >= verboseLogInterval {
				lastVerbose = time.Now()
				logger.Debug("luminance sampled", "value", lum)
			}
		}

		select {
		case <-time.After(m.cfg.Interval):
		case <-m.stopCh:
			return
		}
	}
}

// sampleOnce reads one frame. A panic inside frame processing is
// converted to a soft failure so a single bad frame cannot kill the
// session outright.
func (m *Monitor) sampleOnce(grab Grabber) (lum float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ambient: sample panic: %v", r)
		}
	}()
	return grab.ReadLuminance()
}

// emit delivers an event without ever blocking the worker: when the
// buffer is full the oldest event is dropped in favor of the new one.
func (m *Monitor) emit(ev Event) {
	ev.Session = m.session
	select {
	case m.events <- ev:
		return
	default:
	}
	select {
	case <-m.events:
	default:
	}
	select {
	case m.events <- ev:
	default:
	}
}
