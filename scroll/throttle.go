// Package scroll implements scroll-driven presentation: lazily loading
// images as they enter the viewport, and fading in page sections once their
// images are ready. Both components are parametrized by their targets, and
// hold no package level state.
package scroll

import (
	"github.com/joeycumines/go-introslide/dom"
)

// Throttle coalesces bursts of calls to Trigger into a single call of its
// function, on the next animation frame.
//
// Throttle must only be used from the host thread.
type Throttle struct {
	win     dom.Window
	fn      func()
	cancel  func()
	stopped bool
}

// NewThrottle initializes a Throttle. A panic will occur if either argument
// is nil.
func NewThrottle(win dom.Window, fn func()) *Throttle {
	if win == nil {
		panic(`scroll: nil window`)
	}
	if fn == nil {
		panic(`scroll: nil func`)
	}
	return &Throttle{win: win, fn: fn}
}

// Trigger cancels any pending frame, and requests a new one.
func (x *Throttle) Trigger() {
	if x.stopped {
		return
	}
	if x.cancel != nil {
		x.cancel()
	}
	x.cancel = x.win.RequestAnimationFrame(x.run)
}

// Stop cancels any pending frame, and disables Trigger.
func (x *Throttle) Stop() {
	x.stopped = true
	if x.cancel != nil {
		x.cancel()
		x.cancel = nil
	}
}

func (x *Throttle) run() {
	x.cancel = nil
	x.fn()
}
