// Package imgprobe confirms whether an image resource loaded, normalizing the
// inconsistent ways browsers signal it.
//
// A [Probe] resolves exactly once, to [Loaded] or [Failed]. If the image is
// already complete when checked, it resolves synchronously. Otherwise, the
// source is loaded via a detached proxy image, with listeners on both the
// proxy and the target element, since some engines don't reliably fire
// events on images already in the document.
package imgprobe

import (
	"errors"
	"time"

	"github.com/joeycumines/go-introslide/dom"
	"github.com/joeycumines/go-introslide/emitter"
	"github.com/joeycumines/logiface"
)

// Events emitted by a Probe, see [Probe.Events]. The sole argument is the
// target [dom.Image].
const (
	EventLoaded = `loaded`
	EventError  = `error`
)

// DefaultSourceAttribute is the attribute holding the real source of a
// lazily-declared image.
const DefaultSourceAttribute = `data-src`

// State is the resolution state of a Probe.
type State int

const (
	Pending State = iota
	Loaded
	Failed
)

var (
	// ErrLoadFailed indicates the browser fired an error event.
	ErrLoadFailed = errors.New(`imgprobe: image failed to load`)

	// ErrTimeout indicates neither event fired within Config.Timeout.
	ErrTimeout = errors.New(`imgprobe: timed out waiting for image`)

	// ErrNoSource indicates there was nothing to load.
	ErrNoSource = errors.New(`imgprobe: no image source`)

	// ErrAborted indicates Probe.Abort was called prior to resolution.
	ErrAborted = errors.New(`imgprobe: aborted`)
)

type (
	// Config models optional configuration, for New.
	Config struct {
		// Logger receives debug logs for each resolution, and warnings for
		// failures.
		Logger *logiface.Logger[logiface.Event]

		// SourceAttribute is the attribute read for the source, when Lazy is
		// set.
		// Defaults to DefaultSourceAttribute, if empty.
		SourceAttribute string

		// Timeout resolves the probe as Failed (ErrTimeout), if positive and
		// neither load nor error fired in time. Defaults to disabled,
		// meaning a request that never completes leaves the probe pending.
		Timeout time.Duration

		// Lazy indicates the target is a lazily-declared image, i.e. its
		// real source is held in SourceAttribute. On Check, the source is
		// assigned to the target (src for `img` elements, otherwise the
		// background image).
		Lazy bool
	}

	// Probe wraps a single image resource, see the package docs.
	//
	// Probe must only be used from the host thread of its window.
	Probe struct {
		win      dom.Window
		target   dom.Image
		proxy    dom.Image
		logger   *logiface.Logger[logiface.Event]
		err      error
		events   emitter.Emitter
		loaded   []func(img dom.Image)
		settled  []func(p *Probe)
		bindings []binding
		cancel   func()
		attr     string
		timeout  time.Duration
		state    State
		lazy     bool
		checked  bool
		aborted  bool
	}

	binding struct {
		target    dom.EventTarget
		eventType string
		id        dom.ListenerID
	}
)

// New initializes a Probe for target. The config may be nil. A panic will
// occur if win or target is nil.
func New(win dom.Window, target dom.Image, config *Config) *Probe {
	if win == nil {
		panic(`imgprobe: nil window`)
	}
	if target == nil {
		panic(`imgprobe: nil target`)
	}
	x := Probe{
		win:    win,
		target: target,
		attr:   DefaultSourceAttribute,
	}
	if config != nil {
		x.logger = config.Logger
		x.timeout = config.Timeout
		x.lazy = config.Lazy
		if config.SourceAttribute != `` {
			x.attr = config.SourceAttribute
		}
	}
	return &x
}

// Target returns the wrapped image.
func (x *Probe) Target() dom.Image { return x.target }

// State returns the current state.
func (x *Probe) State() State { return x.state }

// Err returns the cause of failure, ErrAborted if aborted, or nil.
func (x *Probe) Err() error {
	if x.err == nil && x.aborted {
		return ErrAborted
	}
	return x.err
}

// Events returns the emitter for EventLoaded and EventError.
func (x *Probe) Events() *emitter.Emitter { return &x.events }

// OnLoaded registers fn to be called with the target, once the probe
// resolves as Loaded. If it has already, fn is called immediately. Each fn
// is called at most once.
func (x *Probe) OnLoaded(fn func(img dom.Image)) {
	if fn == nil {
		return
	}
	switch x.state {
	case Loaded:
		fn(x.target)
	case Pending:
		x.loaded = append(x.loaded, fn)
	}
}

// OnSettled registers fn to be called on resolution, regardless of outcome.
// If the probe has already resolved, fn is called immediately. Each fn is
// called at most once.
func (x *Probe) OnSettled(fn func(p *Probe)) {
	if fn == nil {
		return
	}
	if x.state != Pending {
		fn(x)
		return
	}
	x.settled = append(x.settled, fn)
}

// Source returns the source that Check will load.
func (x *Probe) Source() string {
	if x.lazy {
		if v, ok := x.target.Attribute(x.attr); ok && v != `` {
			return v
		}
	}
	return x.target.Src()
}

// Check starts confirming the load state, and may resolve synchronously.
// Only the first call has any effect.
func (x *Probe) Check() {
	if x.checked || x.aborted {
		return
	}
	x.checked = true

	src := x.Source()
	if src == `` {
		x.resolve(Failed, ErrNoSource)
		return
	}

	if x.lazy {
		if !x.target.IsImg() {
			x.target.SetBackgroundImage(src)
		} else if x.target.Src() != src {
			x.target.SetSrc(src)
		}
	}

	if x.target.IsImg() && x.target.Complete() && x.target.NaturalWidth() != 0 {
		x.resolve(Loaded, nil)
		return
	}

	x.proxy = x.win.Document().NewImage()
	x.bind(x.proxy)
	if x.target.IsImg() {
		x.bind(x.target)
	}
	if x.timeout > 0 {
		x.cancel = x.win.SetTimeout(func() {
			x.cancel = nil
			x.resolve(Failed, ErrTimeout)
		}, x.timeout)
	}
	x.proxy.SetSrc(src)
}

// Abort stops waiting, leaving the probe Pending, and releasing all
// listeners. Callbacks registered via OnLoaded or OnSettled will never be
// called. It has no effect if the probe already resolved.
func (x *Probe) Abort() {
	if x.state != Pending || x.aborted {
		return
	}
	x.aborted = true
	x.unbind()
	x.loaded = nil
	x.settled = nil
}

func (x *Probe) bind(target dom.Image) {
	for _, eventType := range [...]string{dom.EventLoad, dom.EventError} {
		id := target.AddEventListener(eventType, x.handleEvent)
		x.bindings = append(x.bindings, binding{target: target, eventType: eventType, id: id})
	}
}

// unbind is idempotent
func (x *Probe) unbind() {
	bindings := x.bindings
	x.bindings = nil
	for _, b := range bindings {
		b.target.RemoveEventListener(b.eventType, b.id)
	}
	if x.cancel != nil {
		x.cancel()
		x.cancel = nil
	}
}

func (x *Probe) handleEvent(event *dom.Event) {
	switch event.Type {
	case dom.EventLoad:
		x.resolve(Loaded, nil)
	case dom.EventError:
		x.resolve(Failed, ErrLoadFailed)
	}
}

func (x *Probe) resolve(state State, err error) {
	if x.state != Pending || x.aborted {
		return
	}
	x.state = state
	x.err = err
	x.unbind()

	loaded, settled := x.loaded, x.settled
	x.loaded, x.settled = nil, nil

	if state == Loaded {
		x.logger.Debug().
			Str(`src`, x.Source()).
			Log(`image loaded`)
		for _, fn := range loaded {
			fn(x.target)
		}
	} else {
		// rate limited per call site, if the logger is configured for it
		x.logger.Warning().
			Limit().
			Str(`src`, x.Source()).
			Err(err).
			Log(`image failed`)
	}

	for _, fn := range settled {
		fn(x)
	}

	if state == Loaded {
		x.events.Emit(EventLoaded, x.target)
	} else {
		x.events.Emit(EventError, x.target)
	}
}

// String returns the name of the state.
func (x State) String() string {
	switch x {
	case Pending:
		return `pending`
	case Loaded:
		return `loaded`
	case Failed:
		return `failed`
	default:
		return `unknown`
	}
}
