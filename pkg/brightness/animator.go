package brightness

import (
	"math"
	"time"
)

// Animation duration bounds. Large brightness jumps finish fast so the
// screen reacts when the lights flip; small corrections stretch out and
// stay invisible.
const (
	animMaxDuration = 1100 * time.Millisecond
	animMinDuration = 250 * time.Millisecond
)

// animator owns the displayed brightness float and eases it toward a
// target along a cubic in-out curve. Single-owner: only the manager
// loop touches it.
type animator struct {
	current  float64
	from     float64
	target   float64
	start    time.Time
	duration time.Duration
	active   bool
}

// animateTo starts a new animation toward target. An in-flight
// animation is cancelled; its current interpolated value becomes the
// new start point.
func (a *animator) animateTo(target float64, now time.Time) {
	if target == a.current && !a.active {
		return
	}
	a.from = a.current
	a.target = target
	a.start = now
	a.duration = adaptiveDuration(math.Abs(target - a.current))
	a.active = true
}

// jump applies a value immediately, cancelling any animation. Used for
// manual user adjustments.
func (a *animator) jump(v float64) {
	a.current = v
	a.target = v
	a.active = false
}

// step advances the animation to now and returns the displayed value
// and whether it changed.
func (a *animator) step(now time.Time) (float64, bool) {
	if !a.active {
		return a.current, false
	}
	t := float64(now.Sub(a.start)) / float64(a.duration)
	if t >= 1 {
		a.current = a.target
		a.active = false
		return a.current, true
	}
	if t < 0 {
		t = 0
	}
	a.current = a.from + (a.target-a.from)*easeInOutCubic(t)
	return a.current, true
}

// adaptiveDuration picks the animation length from the jump size:
// a full-scale jump gets animMinDuration, a tiny one animMaxDuration.
func adaptiveDuration(delta float64) time.Duration {
	if delta > 1 {
		delta = 1
	}
	span := float64(animMaxDuration - animMinDuration)
	return animMaxDuration - time.Duration(span*delta)
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}
