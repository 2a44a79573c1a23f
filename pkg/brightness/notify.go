package brightness

// Notification kinds passed to the sink.
const (
	NotifyWarning = "warning"
	NotifyError   = "error"
)

// Notifier receives user-visible messages: missing camera, backlight
// permission problems, reconnect exhaustion. Implementations decide how
// to present them (toast, log line).
type Notifier interface {
	Notify(message, kind string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string, string) {}

// notifyGate de-duplicates notifications per condition: each condition
// fires once, then stays silent until the gate is re-armed by a state
// change (for example a successful reconnect).
type notifyGate struct {
	sink  Notifier
	fired map[string]bool
}

func newNotifyGate(sink Notifier) *notifyGate {
	if sink == nil {
		sink = NopNotifier{}
	}
	return &notifyGate{sink: sink, fired: make(map[string]bool)}
}

// fire sends the message unless this condition already notified.
func (g *notifyGate) fire(condition, message, kind string) {
	if g.fired[condition] {
		return
	}
	g.fired[condition] = true
	g.sink.Notify(message, kind)
}

// rearm clears a condition so the next failure notifies again.
func (g *notifyGate) rearm(condition string) {
	delete(g.fired, condition)
}
