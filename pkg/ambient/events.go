package ambient

import (
	"errors"
	"fmt"

	"github.com/Mio-of/NdotClock-sub000/pkg/camera"
)

// ErrCaptureFailed indicates the capture stopped delivering frames:
// five consecutive reads failed. Recoverable; the supervisor tears the
// worker down and retries with backoff.
var ErrCaptureFailed = errors.New("ambient: capture stopped delivering frames")

// EventKind discriminates the events a Monitor emits.
type EventKind int

const (
	// EventSample carries one normalized luminance measurement.
	EventSample EventKind = iota
	// EventSourceResolved reports that probing settled on a camera index
	// other than the configured one, so callers can persist the change.
	EventSourceResolved
	// EventError reports a session-ending failure. The worker exits
	// after emitting it.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventSample:
		return "sample"
	case EventSourceResolved:
		return "source_resolved"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one item on a Monitor's event stream. Ordering within a
// session is guaranteed by the worker goroutine.
type Event struct {
	Kind    EventKind
	Session string

	// Sample is the luminance in [0,1] for EventSample.
	Sample float64

	// Index is the resolved camera index for EventSourceResolved.
	Index int

	// Err is set for EventError: camera.ErrUnavailable (fatal) or
	// ErrCaptureFailed (recoverable).
	Err error
}

func (e Event) String() string {
	switch e.Kind {
	case EventSample:
		return fmt.Sprintf("sample(%.4f)", e.Sample)
	case EventSourceResolved:
		return fmt.Sprintf("source_resolved(%d)", e.Index)
	case EventError:
		return fmt.Sprintf("error(%v)", e.Err)
	default:
		return "unknown"
	}
}

// Fatal reports whether an error event should disable the feature
// outright rather than trigger reconnection.
func (e Event) Fatal() bool {
	return e.Kind == EventError && camera.IsFatal(e.Err)
}
