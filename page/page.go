// Package page wires the presentation components of a page together: the
// opening slide sequence, lazily loaded images, and fade-in units.
package page

import (
	"context"

	"github.com/joeycumines/go-introslide/dom"
	"github.com/joeycumines/go-introslide/scroll"
	"github.com/joeycumines/go-introslide/slide"
	"github.com/joeycumines/logiface"
)

const (
	DefaultLazySelector = scroll.DefaultLazySelector
	DefaultFadeSelector = `.js-fade-unit`
)

type (
	// Config models optional configuration, for Init.
	Config struct {
		// Logger is propagated to every component that doesn't configure
		// its own.
		Logger *logiface.Logger[logiface.Event]

		Slide *slide.Config
		Lazy  *scroll.LazyConfig
		Fade  *scroll.FadeConfig

		// LazySelector identifies the targets of the lazy loader.
		// Defaults to DefaultLazySelector, if empty.
		LazySelector string

		// FadeSelector identifies the targets of the fade-in.
		// Defaults to DefaultFadeSelector, if empty.
		FadeSelector string

		// DisableOpening skips the opening slide sequence.
		DisableOpening bool

		// DeferScroll delays starting the scroll components until the
		// window's `load` event.
		DeferScroll bool
	}

	// Page is an initialized page, see Init.
	Page struct {
		win       dom.Window
		logger    *logiface.Logger[logiface.Event]
		sequencer *slide.Sequencer
		lazy      *scroll.LazyLoader
		fade      *scroll.FadeIn
		cancel    context.CancelFunc
		stopLoad  func()
		closed    bool
	}
)

// Init builds and starts every component, returning the page, which must be
// closed to release them. The config may be nil. It must be called on the
// host thread. A panic will occur if ctx or win is nil.
func Init(ctx context.Context, win dom.Window, config *Config) *Page {
	if ctx == nil {
		panic(`page: nil context`)
	}
	if win == nil {
		panic(`page: nil window`)
	}
	if config == nil {
		config = new(Config)
	}

	x := Page{
		win:    win,
		logger: config.Logger,
	}
	ctx, x.cancel = context.WithCancel(ctx)

	doc := win.Document()

	lazySelector := config.LazySelector
	if lazySelector == `` {
		lazySelector = DefaultLazySelector
	}
	fadeSelector := config.FadeSelector
	if fadeSelector == `` {
		fadeSelector = DefaultFadeSelector
	}

	var lazyConfig scroll.LazyConfig
	if config.Lazy != nil {
		lazyConfig = *config.Lazy
	}
	if lazyConfig.Logger == nil {
		lazyConfig.Logger = x.logger
	}
	x.lazy = scroll.NewLazyLoader(win, doc.QuerySelectorAll(lazySelector), &lazyConfig)

	var fadeConfig scroll.FadeConfig
	if config.Fade != nil {
		fadeConfig = *config.Fade
	}
	if fadeConfig.Logger == nil {
		fadeConfig.Logger = x.logger
	}
	if fadeConfig.LazySelector == `` {
		fadeConfig.LazySelector = lazySelector
	}
	x.fade = scroll.NewFadeIn(win, doc.QuerySelectorAll(fadeSelector), x.lazy.Registry(), &fadeConfig)

	if !config.DisableOpening {
		var slideConfig slide.Config
		if config.Slide != nil {
			slideConfig = *config.Slide
		}
		if slideConfig.Logger == nil {
			slideConfig.Logger = x.logger
		}
		x.sequencer = slide.NewSequencer(win, &slideConfig)
	}

	x.logger.Info().
		Bool(`opening`, x.sequencer != nil).
		Int(`lazy`, x.lazy.Remaining()).
		Int(`fade`, x.fade.Remaining()).
		Log(`page init`)

	if x.sequencer != nil {
		x.sequencer.Start(ctx)
	}

	if config.DeferScroll {
		x.stopLoad = OnLoad(win, x.startScroll)
	} else {
		x.startScroll()
	}

	return &x
}

// OnLoad calls fn once, on the first `load` event of win, returning a func
// that removes the listener. Must be called on the host thread.
func OnLoad(win dom.Window, fn func()) (cancel func()) {
	var (
		id   dom.ListenerID
		done bool
	)
	cancel = func() {
		if !done {
			done = true
			win.RemoveEventListener(dom.EventLoad, id)
		}
	}
	id = win.AddEventListener(dom.EventLoad, func(*dom.Event) {
		if done {
			return
		}
		cancel()
		fn()
	})
	return cancel
}

// Sequencer returns the opening sequence, or nil if disabled.
func (x *Page) Sequencer() *slide.Sequencer { return x.sequencer }

// LazyLoader returns the lazy loader.
func (x *Page) LazyLoader() *scroll.LazyLoader { return x.lazy }

// FadeIn returns the fade-in.
func (x *Page) FadeIn() *scroll.FadeIn { return x.fade }

// Close stops every component. It must be called on the host thread, and
// is idempotent.
func (x *Page) Close() {
	if x.closed {
		return
	}
	x.closed = true
	if x.stopLoad != nil {
		x.stopLoad()
	}
	if x.sequencer != nil {
		x.sequencer.Cancel()
	}
	x.cancel()
	x.lazy.Stop()
	x.fade.Stop()
	x.logger.Info().
		Log(`page closed`)
}

func (x *Page) startScroll() {
	x.stopLoad = nil
	x.lazy.Start()
	x.fade.Start()
}
