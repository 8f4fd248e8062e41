package capture

import "time"

// Capture rates
const (
	// IdleFPS is the rate requested while nothing moves.
	IdleFPS = 5
	// ActiveFPS is the rate requested while the scene moves.
	ActiveFPS = 15
	// DefaultIdleAfter is how long the scene must stay still before the
	// rate drops back to IdleFPS.
	DefaultIdleAfter = 2 * time.Second
)

// RateController switches between an idle and an active capture rate based
// on motion. It only paces capture; every captured frame is still processed.
type RateController struct {
	idleFPS    int
	activeFPS  int
	idleAfter  time.Duration
	active     bool
	lastMotion time.Time
	now        func() time.Time
}

// NewRateController creates a RateController that starts idle.
func NewRateController(idleFPS, activeFPS int, idleAfter time.Duration) *RateController {
	if idleFPS <= 0 {
		idleFPS = IdleFPS
	}
	if activeFPS <= 0 {
		activeFPS = ActiveFPS
	}
	if idleAfter <= 0 {
		idleAfter = DefaultIdleAfter
	}
	return &RateController{
		idleFPS:   idleFPS,
		activeFPS: activeFPS,
		idleAfter: idleAfter,
		now:       time.Now,
	}
}

// Observe feeds one motion sample and returns the rate to request and
// whether it differs from the previous one.
func (r *RateController) Observe(m Motion) (fps int, changed bool) {
	now := r.now()

	switch {
	case m.Detected:
		r.lastMotion = now
		if !r.active {
			r.active = true
			return r.activeFPS, true
		}
	case r.active && now.Sub(r.lastMotion) > r.idleAfter:
		r.active = false
		return r.idleFPS, true
	}

	return r.FPS(), false
}

// Active reports whether the controller is in the active rate.
func (r *RateController) Active() bool {
	return r.active
}

// FPS returns the current rate.
func (r *RateController) FPS() int {
	if r.active {
		return r.activeFPS
	}
	return r.idleFPS
}
