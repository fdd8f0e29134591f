package slide

import (
	"context"

	"github.com/joeycumines/go-introslide/dom"
	"github.com/joeycumines/go-introslide/emitter"
)

// EventDone is emitted by a Sequencer, with itself as the sole argument, once
// the terminal unit finished.
const EventDone = `done`

// Sequencer chains the reveal of every slide in a document. The first two
// slides are preloaded together, then each slide animates once the previous
// one finished, with the slide two ahead of the animating one being loaded.
//
// Sequencer must only be used from the host thread of its window.
type Sequencer struct {
	win      dom.Window
	cfg      *config
	units    []*Unit
	events   emitter.Emitter
	done     Signal
	stop     func() bool
	started  bool
	canceled bool
}

// NewSequencer discovers the slides of the window's document, in document
// order. The config may be nil. A panic will occur if win is nil.
func NewSequencer(win dom.Window, config *Config) *Sequencer {
	if win == nil {
		panic(`slide: nil window`)
	}
	x := Sequencer{
		win: win,
		cfg: resolveConfig(config),
	}
	wrappers := win.Document().QuerySelectorAll(x.cfg.slideSelector)
	x.units = make([]*Unit, len(wrappers))
	for i, wrapper := range wrappers {
		x.units[i] = newUnit(win, wrapper, x.cfg, i, i == len(wrappers)-1)
	}
	return &x
}

// Units returns the discovered units, in order.
func (x *Sequencer) Units() []*Unit { return append([]*Unit(nil), x.units...) }

// Events returns the emitter for EventDone.
func (x *Sequencer) Events() *emitter.Emitter { return &x.events }

// Done returns the signal that fires once the terminal unit finished. It
// never fires if the sequence is canceled first.
func (x *Sequencer) Done() *Signal { return &x.done }

// Canceled reports whether the sequence was stopped before completion.
func (x *Sequencer) Canceled() bool { return x.canceled }

// Start begins the sequence. Cancelling ctx stops it, see also Cancel. Only
// the first call has any effect.
func (x *Sequencer) Start(ctx context.Context) {
	if x.started || x.canceled {
		return
	}
	x.started = true

	if ctx.Done() != nil {
		x.stop = context.AfterFunc(ctx, func() {
			x.win.Post(x.Cancel)
		})
	}

	x.cfg.logger.Info().
		Int(`slides`, len(x.units)).
		Log(`opening sequence started`)

	if len(x.units) == 0 {
		x.finish()
		return
	}

	var first []*Signal
	for _, u := range x.units[:min(2, len(x.units))] {
		first = append(first, u.Load())
	}
	All(first...).Then(x.chain)
}

// Cancel stops the sequence, cancelling every unit. It has no effect if the
// sequence already finished.
func (x *Sequencer) Cancel() {
	if x.canceled || x.done.Done() {
		return
	}
	x.canceled = true
	x.release()
	for _, u := range x.units {
		u.Cancel()
	}
	x.cfg.logger.Info().
		Log(`opening sequence canceled`)
}

func (x *Sequencer) chain() {
	if x.canceled {
		return
	}
	for i, u := range x.units {
		next := i + 1
		u.Events().Once(EventAnimEnd, emitter.Func(func(...any) {
			if next < len(x.units) {
				x.begin(next)
			} else {
				x.finish()
			}
		}))
	}
	x.begin(0)
}

func (x *Sequencer) begin(i int) {
	if x.canceled {
		return
	}
	x.cfg.logger.Debug().
		Int(`slide`, i).
		Log(`slide begin`)
	x.units[i].Animate()
	if i+2 < len(x.units) {
		x.units[i+2].Load()
	}
}

func (x *Sequencer) finish() {
	if x.canceled || x.done.Done() {
		return
	}
	x.release()
	x.cfg.logger.Info().
		Log(`opening sequence finished`)
	x.done.fire()
	x.events.Emit(EventDone, x)
}

func (x *Sequencer) release() {
	if x.stop != nil {
		x.stop()
		x.stop = nil
	}
}
