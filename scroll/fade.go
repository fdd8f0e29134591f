package scroll

import (
	"github.com/joeycumines/go-introslide/dom"
	"github.com/joeycumines/go-introslide/imgprobe"
	"github.com/joeycumines/logiface"
)

const DefaultShowClass = `is-show`

type (
	// FadeConfig models optional configuration, for NewFadeIn.
	FadeConfig struct {
		Logger *logiface.Logger[logiface.Event]

		// LazySelector identifies the lazily-loaded images of a unit.
		// Defaults to DefaultLazySelector, if empty.
		LazySelector string

		// ShowClass is added to reveal a unit.
		// Defaults to DefaultShowClass, if empty.
		ShowClass string
	}

	// FadeIn reveals each target unit once it is fully within the viewport,
	// and, if it contains lazily-loaded images, one of them loaded, or all
	// of them failed. Probes are looked up in the registry shared with a
	// LazyLoader.
	//
	// FadeIn must only be used from the host thread.
	FadeIn struct {
		win          dom.Window
		logger       *logiface.Logger[logiface.Event]
		registry     *Registry
		throttle     *Throttle
		targets      []*fadeTarget
		lazySelector string
		showClass    string
		listener     dom.ListenerID
		started      bool
		stopped      bool
	}

	fadeTarget struct {
		element dom.Element
		// images with handlers registered on their probe
		observed []dom.Element
		// waiting is set once every image is observed
		waiting bool
	}
)

// NewFadeIn initializes a FadeIn for targets. The config may be nil. A
// panic will occur if win or registry is nil.
func NewFadeIn(win dom.Window, targets []dom.Element, registry *Registry, config *FadeConfig) *FadeIn {
	if win == nil {
		panic(`scroll: nil window`)
	}
	if registry == nil {
		panic(`scroll: nil registry`)
	}
	x := FadeIn{
		win:          win,
		registry:     registry,
		lazySelector: DefaultLazySelector,
		showClass:    DefaultShowClass,
	}
	if config != nil {
		x.logger = config.Logger
		if config.LazySelector != `` {
			x.lazySelector = config.LazySelector
		}
		if config.ShowClass != `` {
			x.showClass = config.ShowClass
		}
	}
	for _, target := range targets {
		if target != nil {
			x.targets = append(x.targets, &fadeTarget{element: target})
		}
	}
	x.throttle = NewThrottle(win, x.Check)
	return &x
}

// Remaining returns the number of targets that haven't been shown.
func (x *FadeIn) Remaining() int { return len(x.targets) }

// Start listens for scroll events, and runs an initial Check. Only the first
// call has any effect.
func (x *FadeIn) Start() {
	if x.started || x.stopped {
		return
	}
	x.started = true
	x.listener = x.win.AddEventListener(dom.EventScroll, func(*dom.Event) { x.throttle.Trigger() })
	x.Check()
}

// Stop removes the scroll listener. Pending load handlers may still show
// their unit.
func (x *FadeIn) Stop() {
	if x.stopped {
		return
	}
	x.stopped = true
	x.throttle.Stop()
	x.win.RemoveEventListener(dom.EventScroll, x.listener)
}

// Check examines every visible target, then purges those shown.
func (x *FadeIn) Check() {
	if x.stopped {
		return
	}
	for _, target := range x.targets {
		if target.waiting || !dom.Visible(x.win, target.element.Rect()) {
			continue
		}
		x.set(target)
	}
	x.purge()
}

func (x *FadeIn) set(target *fadeTarget) {
	images := target.element.QuerySelectorAll(x.lazySelector)
	if len(images) == 0 {
		x.show(target.element)
		return
	}
	// units with images that haven't been probed yet are retried next check
	unprobed := 0
	for _, img := range images {
		if target.observing(img) {
			continue
		}
		probe := x.registry.Get(img)
		if probe == nil {
			unprobed++
			continue
		}
		target.observed = append(target.observed, img)
		probe.OnLoaded(func(dom.Image) { x.show(target.element) })
		probe.OnSettled(func(*imgprobe.Probe) { x.settled(target) })
	}
	target.waiting = unprobed == 0
}

// settled shows the unit if every image failed, since none will load
func (x *FadeIn) settled(target *fadeTarget) {
	if target.element.HasClass(x.showClass) {
		return
	}
	for _, img := range target.element.QuerySelectorAll(x.lazySelector) {
		if probe := x.registry.Get(img); probe == nil || probe.State() != imgprobe.Failed {
			return
		}
	}
	x.show(target.element)
}

func (x *fadeTarget) observing(img dom.Element) bool {
	for _, v := range x.observed {
		if dom.Equal(v, img) {
			return true
		}
	}
	return false
}

func (x *FadeIn) show(element dom.Element) {
	if element.HasClass(x.showClass) {
		return
	}
	x.logger.Debug().
		Log(`fade in`)
	element.AddClass(x.showClass)
}

func (x *FadeIn) purge() {
	targets := x.targets[:0]
	for _, target := range x.targets {
		if !target.element.HasClass(x.showClass) {
			targets = append(targets, target)
		}
	}
	clear(x.targets[len(targets):])
	x.targets = targets
}
