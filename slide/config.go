package slide

import (
	"time"

	"github.com/joeycumines/go-introslide/imgprobe"
	"github.com/joeycumines/logiface"
)

// Defaults for the markup and CSS contract, see Config.
const (
	DefaultSlideSelector    = `.js-opening-slide`
	DefaultImageSelector    = `.js-opening-slide-img`
	DefaultTerminalSelector = `.js-anim-last-elm`
	DefaultAnimatingClass   = `is-animating`
	DefaultAnimEndClass     = `is-animEnd`
	DefaultHideClass        = `is-hide-anim`
	DefaultDwell            = time.Second
)

// Config models optional configuration, for NewUnit and NewSequencer.
type Config struct {
	// Logger receives state transitions at debug level, and sequence
	// progress at info level.
	Logger *logiface.Logger[logiface.Event]

	// Probe configures the image probes of each unit. Note that Lazy is
	// always enabled, as slide images carry their source in an attribute.
	Probe *imgprobe.Config

	// SlideSelector identifies slide wrappers, in the document.
	// Defaults to DefaultSlideSelector, if empty.
	SlideSelector string

	// ImageSelector identifies the lazily-declared images of a slide.
	// Defaults to DefaultImageSelector, if empty.
	ImageSelector string

	// TerminalSelector identifies the descendant of a slide whose
	// `transitionend` signals the reveal finished. If no such element
	// exists, the wrapper itself is used.
	// Defaults to DefaultTerminalSelector, if empty.
	TerminalSelector string

	// AnimatingClass is added to start the reveal.
	// Defaults to DefaultAnimatingClass, if empty.
	AnimatingClass string

	// AnimEndClass is added once a slide finished.
	// Defaults to DefaultAnimEndClass, if empty.
	AnimEndClass string

	// HideClass is added to start the dismissal of a slide, which must
	// transition the wrapper itself.
	// Defaults to DefaultHideClass, if empty.
	HideClass string

	// Dwell is the pause between the end of the reveal and the dismissal.
	// Defaults to DefaultDwell, if 0. Negative values disable the pause.
	Dwell time.Duration

	// DisableHide skips the dismissal phase, emitting EventAnimEnd directly
	// after the dwell.
	DisableHide bool
}

type config struct {
	logger           *logiface.Logger[logiface.Event]
	probe            imgprobe.Config
	slideSelector    string
	imageSelector    string
	terminalSelector string
	animatingClass   string
	animEndClass     string
	hideClass        string
	dwell            time.Duration
	disableHide      bool
}

func resolveConfig(c *Config) *config {
	r := config{
		slideSelector:    DefaultSlideSelector,
		imageSelector:    DefaultImageSelector,
		terminalSelector: DefaultTerminalSelector,
		animatingClass:   DefaultAnimatingClass,
		animEndClass:     DefaultAnimEndClass,
		hideClass:        DefaultHideClass,
		dwell:            DefaultDwell,
	}
	if c != nil {
		r.logger = c.Logger
		if c.Probe != nil {
			r.probe = *c.Probe
		}
		if c.SlideSelector != `` {
			r.slideSelector = c.SlideSelector
		}
		if c.ImageSelector != `` {
			r.imageSelector = c.ImageSelector
		}
		if c.TerminalSelector != `` {
			r.terminalSelector = c.TerminalSelector
		}
		if c.AnimatingClass != `` {
			r.animatingClass = c.AnimatingClass
		}
		if c.AnimEndClass != `` {
			r.animEndClass = c.AnimEndClass
		}
		if c.HideClass != `` {
			r.hideClass = c.HideClass
		}
		if c.Dwell > 0 {
			r.dwell = c.Dwell
		} else if c.Dwell < 0 {
			r.dwell = 0
		}
		r.disableHide = c.DisableHide
	}
	r.probe.Lazy = true
	if r.probe.Logger == nil {
		r.probe.Logger = r.logger
	}
	return &r
}
