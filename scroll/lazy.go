package scroll

import (
	"github.com/joeycumines/go-introslide/dom"
	"github.com/joeycumines/go-introslide/imgprobe"
	"github.com/joeycumines/logiface"
)

const (
	DefaultLazySelector = `.js-lazy`
	DefaultLoadedClass  = `is-loaded`
)

type (
	// LazyConfig models optional configuration, for NewLazyLoader.
	LazyConfig struct {
		Logger *logiface.Logger[logiface.Event]

		// Probe configures the probe created for each target, note that
		// Lazy is always enabled.
		Probe *imgprobe.Config

		// Registry receives the probe of each target, for use by FadeIn.
		// Defaults to a new Registry.
		Registry *Registry

		// LoadedClass is added to each target once loaded.
		// Defaults to DefaultLoadedClass, if empty.
		LoadedClass string
	}

	// LazyLoader assigns the real source of each target, the first time it
	// is fully within the viewport, checked on Start, and on every animation
	// frame following a scroll.
	//
	// LazyLoader must only be used from the host thread.
	LazyLoader struct {
		win         dom.Window
		logger      *logiface.Logger[logiface.Event]
		probe       imgprobe.Config
		registry    *Registry
		throttle    *Throttle
		targets     []dom.Image
		loadedClass string
		listener    dom.ListenerID
		started     bool
		stopped     bool
	}
)

// NewLazyLoader initializes a LazyLoader for targets. Targets that don't
// support image loading are ignored. The config may be nil. A panic will
// occur if win is nil.
func NewLazyLoader(win dom.Window, targets []dom.Element, config *LazyConfig) *LazyLoader {
	if win == nil {
		panic(`scroll: nil window`)
	}
	x := LazyLoader{
		win:         win,
		loadedClass: DefaultLoadedClass,
	}
	if config != nil {
		x.logger = config.Logger
		if config.Probe != nil {
			x.probe = *config.Probe
		}
		x.registry = config.Registry
		if config.LoadedClass != `` {
			x.loadedClass = config.LoadedClass
		}
	}
	if x.registry == nil {
		x.registry = new(Registry)
	}
	x.probe.Lazy = true
	if x.probe.Logger == nil {
		x.probe.Logger = x.logger
	}
	for _, target := range targets {
		if img := dom.AsImage(target); img != nil {
			x.targets = append(x.targets, img)
		}
	}
	x.throttle = NewThrottle(win, x.Check)
	return &x
}

// Registry returns the registry that probes are recorded in.
func (x *LazyLoader) Registry() *Registry { return x.registry }

// Remaining returns the number of targets that haven't been purged.
func (x *LazyLoader) Remaining() int { return len(x.targets) }

// Start listens for scroll events, and runs an initial Check. Only the first
// call has any effect.
func (x *LazyLoader) Start() {
	if x.started || x.stopped {
		return
	}
	x.started = true
	x.listener = x.win.AddEventListener(dom.EventScroll, func(*dom.Event) { x.throttle.Trigger() })
	x.Check()
}

// Stop removes the scroll listener. In-flight loads still complete.
func (x *LazyLoader) Stop() {
	if x.stopped {
		return
	}
	x.stopped = true
	x.throttle.Stop()
	x.win.RemoveEventListener(dom.EventScroll, x.listener)
}

// Check probes every visible target that hasn't been probed already, then
// purges finished targets.
func (x *LazyLoader) Check() {
	if x.stopped {
		return
	}
	for _, target := range x.targets {
		if x.registry.Get(target) != nil || !dom.Visible(x.win, target.Rect()) {
			continue
		}
		probe := imgprobe.New(x.win, target, &x.probe)
		x.registry.Put(target, probe)
		probe.OnLoaded(x.loaded)
		x.logger.Debug().
			Str(`src`, probe.Source()).
			Log(`lazy load`)
		probe.Check()
	}
	x.purge()
}

func (x *LazyLoader) loaded(img dom.Image) {
	img.AddClass(x.loadedClass)
}

func (x *LazyLoader) purge() {
	targets := x.targets[:0]
	for _, target := range x.targets {
		if target.HasClass(x.loadedClass) {
			continue
		}
		if p := x.registry.Get(target); p != nil && p.State() == imgprobe.Failed {
			continue
		}
		targets = append(targets, target)
	}
	clear(x.targets[len(targets):])
	x.targets = targets
}
