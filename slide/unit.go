package slide

import (
	"github.com/joeycumines/go-introslide/dom"
	"github.com/joeycumines/go-introslide/emitter"
	"github.com/joeycumines/go-introslide/imgprobe"
)

// Events emitted by a Unit, see [Unit.Events]. The sole argument is the
// *Unit.
const (
	// EventReady fires once every image of the unit resolved.
	EventReady = `ready`
	// EventAnimStart fires when the animating class is applied.
	EventAnimStart = `animStart`
	// EventContentSettled fires when the reveal transition ended, i.e. at
	// the start of the dwell.
	EventContentSettled = `contentSettled`
	// EventAnimEnd fires at most once, when the unit finished.
	EventAnimEnd = `animEnd`
)

// State is the lifecycle state of a Unit.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateAnimating
	StateHolding
	StateExiting
	StateDone
)

// Unit is a single animated slide. It owns a probe per lazily-declared
// image, and runs a two phase transition (reveal, dwell, dismiss) once all
// of them resolved.
//
// Unit must only be used from the host thread of its window.
type Unit struct {
	win      dom.Window
	wrapper  dom.Element
	terminal dom.Element
	cfg      *config
	probes   []*imgprobe.Probe
	events   emitter.Emitter
	ready    Signal
	// cleanup releases pending listeners and timers
	cleanup map[string]func()
	index   int
	settled int
	state   State
	last    bool

	isLoading        bool
	isLoaded         bool
	pendingAnimation bool
	canceled         bool
}

// NewUnit initializes a Unit for the slide wrapper. The config may be nil.
// The last unit of a sequence never runs the dismissal phase. A panic will
// occur if win or wrapper is nil.
func NewUnit(win dom.Window, wrapper dom.Element, config *Config, last bool) *Unit {
	return newUnit(win, wrapper, resolveConfig(config), 0, last)
}

func newUnit(win dom.Window, wrapper dom.Element, cfg *config, index int, last bool) *Unit {
	if win == nil {
		panic(`slide: nil window`)
	}
	if wrapper == nil {
		panic(`slide: nil wrapper`)
	}
	x := Unit{
		win:      win,
		wrapper:  wrapper,
		terminal: wrapper.QuerySelector(cfg.terminalSelector),
		cfg:      cfg,
		cleanup:  make(map[string]func()),
		index:    index,
		last:     last,
	}
	if x.terminal == nil {
		x.terminal = wrapper
	}
	for _, elem := range wrapper.QuerySelectorAll(cfg.imageSelector) {
		img := dom.AsImage(elem)
		if img == nil {
			continue
		}
		x.probes = append(x.probes, imgprobe.New(win, img, &cfg.probe))
	}
	return &x
}

// Wrapper returns the slide's wrapper element.
func (x *Unit) Wrapper() dom.Element { return x.wrapper }

// Index returns the position of the unit in its sequence.
func (x *Unit) Index() int { return x.index }

// Last reports whether this is the terminal unit, which never hides.
func (x *Unit) Last() bool { return x.last }

// State returns the current lifecycle state.
func (x *Unit) State() State { return x.state }

// Probes returns the image probes, in document order.
func (x *Unit) Probes() []*imgprobe.Probe { return append([]*imgprobe.Probe(nil), x.probes...) }

// Events returns the emitter for the Event* constants.
func (x *Unit) Events() *emitter.Emitter { return &x.events }

// Ready returns the signal that fires once every image resolved.
func (x *Unit) Ready() *Signal { return &x.ready }

// IsLoading reports whether the images are being loaded.
func (x *Unit) IsLoading() bool { return x.isLoading }

// IsLoaded reports whether every image resolved (success or failure).
func (x *Unit) IsLoaded() bool { return x.isLoaded }

// Load starts loading every image, returning the ready signal. Subsequent
// calls return the same signal, without side effects.
func (x *Unit) Load() *Signal {
	if x.isLoading || x.isLoaded || x.canceled {
		return &x.ready
	}
	x.isLoading = true
	x.setState(StateLoading)
	if len(x.probes) == 0 {
		x.markReady()
		return &x.ready
	}
	for _, p := range x.probes {
		p.OnSettled(x.count)
	}
	for _, p := range x.probes {
		p.Check()
	}
	return &x.ready
}

// Animate starts the reveal. If the images haven't resolved yet, the request
// is recorded, and honored once they have (starting the load, if necessary).
// Only the first effective call has any effect.
func (x *Unit) Animate() {
	if x.canceled || x.state >= StateAnimating {
		return
	}
	if !x.isLoaded {
		x.pendingAnimation = true
		if !x.isLoading {
			x.Load()
		}
		return
	}
	x.animate()
}

// Cancel stops the unit, releasing listeners, timers, and probes. Nothing
// further will be emitted.
func (x *Unit) Cancel() {
	if x.canceled {
		return
	}
	x.canceled = true
	x.pendingAnimation = false
	for key, fn := range x.cleanup {
		delete(x.cleanup, key)
		fn()
	}
	for _, p := range x.probes {
		p.Abort()
	}
}

func (x *Unit) count(*imgprobe.Probe) {
	if x.canceled {
		return
	}
	x.settled++
	if x.settled == len(x.probes) {
		x.markReady()
	}
}

func (x *Unit) markReady() {
	x.isLoaded = true
	x.isLoading = false
	x.setState(StateReady)
	x.events.Emit(EventReady, x)
	x.ready.fire()
	if x.pendingAnimation && !x.canceled {
		x.pendingAnimation = false
		x.animate()
	}
}

func (x *Unit) animate() {
	if x.state >= StateAnimating {
		return
	}
	x.setState(StateAnimating)
	x.once(`reveal`, x.terminal, x.hold)
	x.wrapper.AddClass(x.cfg.animatingClass)
	x.events.Emit(EventAnimStart, x)
}

func (x *Unit) hold() {
	x.setState(StateHolding)
	x.events.Emit(EventContentSettled, x)
	x.cleanup[`dwell`] = x.win.SetTimeout(func() {
		delete(x.cleanup, `dwell`)
		x.exit()
	}, x.cfg.dwell)
}

func (x *Unit) exit() {
	if x.last || x.cfg.disableHide {
		x.finish()
		return
	}
	x.setState(StateExiting)
	x.once(`hide`, x.wrapper, x.finish)
	x.wrapper.AddClass(x.cfg.hideClass)
}

func (x *Unit) finish() {
	if x.state == StateDone {
		return
	}
	x.setState(StateDone)
	x.events.Emit(EventAnimEnd, x)
	x.wrapper.AddClass(x.cfg.animEndClass)
}

// once listens on the wrapper for a single transitionend, targeted at
// target, then calls fn.
func (x *Unit) once(key string, target dom.Element, fn func()) {
	var id dom.ListenerID
	id = x.wrapper.AddEventListener(dom.EventTransitionEnd, func(event *dom.Event) {
		if !dom.Equal(event.Target, target) {
			return
		}
		if _, ok := x.cleanup[key]; !ok {
			return
		}
		delete(x.cleanup, key)
		x.wrapper.RemoveEventListener(dom.EventTransitionEnd, id)
		fn()
	})
	x.cleanup[key] = func() {
		x.wrapper.RemoveEventListener(dom.EventTransitionEnd, id)
	}
}

func (x *Unit) setState(state State) {
	if x.state == state {
		return
	}
	x.cfg.logger.Debug().
		Int(`slide`, x.index).
		Stringer(`from`, x.state).
		Stringer(`to`, state).
		Log(`slide state`)
	x.state = state
}

// String returns the name of the state.
func (x State) String() string {
	switch x {
	case StateIdle:
		return `idle`
	case StateLoading:
		return `loading`
	case StateReady:
		return `ready`
	case StateAnimating:
		return `animating`
	case StateHolding:
		return `holding`
	case StateExiting:
		return `exiting`
	case StateDone:
		return `done`
	default:
		return `unknown`
	}
}
