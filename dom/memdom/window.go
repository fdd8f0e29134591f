package memdom

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-introslide/dom"
	"github.com/joeycumines/logiface"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FrameInterval is the delay used to simulate animation frames.
const FrameInterval = time.Second / 60

// Mutation operations, see [Mutation].
const (
	MutationAddClass    = `+class`
	MutationRemoveClass = `-class`
	MutationBackground  = `background`
	MutationLoad        = `load`
	MutationError       = `error`
	MutationTransition  = `transitionend`
)

type (
	// Config models optional configuration, for [Parse].
	Config struct {
		// Scheduler provides the host thread. **Required.**
		Scheduler Scheduler

		// Network simulates image fetches.
		// Defaults to a StaticNetwork that loads everything instantly.
		Network Network

		// Logger is used to log simulated browser activity, at debug level.
		Logger *logiface.Logger[logiface.Event]

		// OnMutation is called (synchronously) for each observable change,
		// see the Mutation* constants.
		OnMutation func(m Mutation)

		// Cached lists image sources that are complete immediately, e.g.
		// because they were in the browser cache. Matching `img` elements
		// in the markup will be complete, with a non-zero natural width,
		// on return from Parse.
		Cached []string

		// Transitions simulates CSS transitions.
		Transitions []Transition

		// InnerHeight is the viewport height.
		// Defaults to 800, if 0.
		InnerHeight float64

		// QuirkTargetSilent suppresses load and error events for `img`
		// elements attached to the document, modeling engines that don't
		// reliably fire them. Detached images (new Image()) are unaffected.
		QuirkTargetSilent bool
	}

	// Transition simulates a CSS transition, started by adding a class.
	Transition struct {
		// Selector restricts the elements the transition applies to, empty
		// matches any element. Only simple selectors are supported, see
		// Element.QuerySelectorAll.
		Selector string

		// Class is the class that starts the transition, when added.
		Class string

		// Terminal is the selector of the descendant whose transition ends
		// last, and so fires `transitionend`. Empty means the element itself.
		Terminal string

		// Duration is the delay before `transitionend` fires.
		Duration time.Duration
	}

	// Mutation describes an observable change to the document.
	Mutation struct {
		Time    time.Time
		Element *Element
		Op      string
		Value   string
	}

	// Window is an in-memory [dom.Window], see also [Parse].
	Window struct {
		scheduler   Scheduler
		network     Network
		logger      *logiface.Logger[logiface.Event]
		onMutation  func(m Mutation)
		target      *eventloop.EventTarget
		root        *Element
		cache       map[string]int
		transitions []Transition
		innerHeight float64
		scrollY     float64
		quirk       bool
	}

	// Document is the [dom.Document] of a [Window].
	Document struct {
		win *Window
	}
)

var (
	// compile time assertions

	_ dom.Window   = (*Window)(nil)
	_ dom.Document = (*Document)(nil)
)

// Parse builds a [Window] from HTML markup. A panic will occur if config is
// nil or has no Scheduler.
func Parse(r io.Reader, config *Config) (*Window, error) {
	if config == nil || config.Scheduler == nil {
		panic(`memdom: nil scheduler`)
	}

	node, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf(`memdom: parse: %w`, err)
	}

	win := Window{
		scheduler:   config.Scheduler,
		network:     config.Network,
		logger:      config.Logger,
		onMutation:  config.OnMutation,
		target:      eventloop.NewEventTarget(),
		cache:       make(map[string]int),
		transitions: append([]Transition(nil), config.Transitions...),
		innerHeight: 800,
		quirk:       config.QuirkTargetSilent,
	}
	if win.network == nil {
		win.network = StaticNetwork{}
	}
	if config.InnerHeight != 0 {
		win.innerHeight = config.InnerHeight
	}
	for _, src := range config.Cached {
		win.cache[src] = win.network.Fetch(src).width()
	}

	win.root = newElement(&win, `#document`)
	win.build(win.root, node)

	return &win, nil
}

// ParseString is a convenience wrapper around [Parse].
func ParseString(markup string, config *Config) (*Window, error) {
	return Parse(strings.NewReader(markup), config)
}

func (x *Window) build(parent *Element, node *html.Node) {
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			x.build(parent, c)
			continue
		}
		e := newElement(x, c.Data)
		var src string
		for _, attr := range c.Attr {
			switch attr.Key {
			case `class`:
				e.classes = strings.Fields(attr.Val)
			case `src`:
				src = attr.Val
			default:
				e.attrs[attr.Key] = attr.Val
			}
		}
		parent.appendChild(e)
		if src != `` {
			if width, ok := x.cache[src]; ok && c.DataAtom == atom.Img {
				e.src = src
				e.complete = true
				e.naturalWidth = width
			} else {
				e.SetSrc(src)
			}
		}
		x.build(e, c)
	}
}

// Root returns the document node, the parent of the `html` element.
func (x *Window) Root() *Element { return x.root }

// Document implements [dom.Window].
func (x *Window) Document() dom.Document { return &Document{win: x} }

// ScrollY implements [dom.Window].
func (x *Window) ScrollY() float64 { return x.scrollY }

// InnerHeight implements [dom.Window].
func (x *Window) InnerHeight() float64 { return x.innerHeight }

// ScrollTo sets the scroll position, and dispatches `scroll` on the window.
func (x *Window) ScrollTo(y float64) {
	x.scrollY = y
	x.dispatch(dom.EventScroll)
}

// DispatchLoad dispatches `load` on the window.
func (x *Window) DispatchLoad() {
	x.dispatch(dom.EventLoad)
}

func (x *Window) dispatch(eventType string) {
	event := &dom.Event{Type: eventType}
	x.target.DispatchEvent(eventloop.NewCustomEvent(eventType, event).EventPtr())
}

// AddEventListener implements [dom.EventTarget].
func (x *Window) AddEventListener(eventType string, listener dom.Listener) dom.ListenerID {
	return addListener(x.target, eventType, listener)
}

// RemoveEventListener implements [dom.EventTarget].
func (x *Window) RemoveEventListener(eventType string, id dom.ListenerID) {
	removeListener(x.target, eventType, id)
}

// ListenerCount returns the number of window listeners for eventType.
func (x *Window) ListenerCount(eventType string) int {
	return x.target.ListenerCount(eventType)
}

// SetTimeout implements [dom.Window].
func (x *Window) SetTimeout(fn func(), delay time.Duration) (cancel func()) {
	return x.scheduler.SetTimeout(fn, delay)
}

// RequestAnimationFrame implements [dom.Window], scheduling fn after
// [FrameInterval].
func (x *Window) RequestAnimationFrame(fn func()) (cancel func()) {
	return x.scheduler.SetTimeout(fn, FrameInterval)
}

// Post implements [dom.Window].
func (x *Window) Post(fn func()) bool { return x.scheduler.Post(fn) }

// Now returns the scheduler's current time.
func (x *Window) Now() time.Time { return x.scheduler.Now() }

// QueryAll returns all elements in the document matching selector.
func (x *Window) QueryAll(selector string) []*Element {
	return x.root.QueryAll(selector)
}

// QuerySelectorAll implements [dom.Document].
func (x *Document) QuerySelectorAll(selector string) []dom.Element {
	return x.win.root.QuerySelectorAll(selector)
}

// NewImage implements [dom.Document], returning a detached `img` element.
func (x *Document) NewImage() dom.Image {
	return newElement(x.win, `img`)
}

func (x *Window) mutated(e *Element, op, value string) {
	if x.onMutation != nil {
		x.onMutation(Mutation{Time: x.scheduler.Now(), Element: e, Op: op, Value: value})
	}
}

func (x *Window) fetch(e *Element, seq uint64, src string) {
	var res Resource
	if width, ok := x.cache[src]; ok {
		res = Resource{Width: width}
	} else {
		res = x.network.Fetch(src)
	}
	x.scheduler.SetTimeout(func() {
		if e.fetch != seq {
			return
		}
		e.complete = true
		eventType := dom.EventLoad
		if res.Fail {
			eventType = dom.EventError
		} else {
			e.naturalWidth = res.width()
			x.cache[src] = e.naturalWidth
		}
		silent := x.quirk && e.Attached()
		x.logger.Debug().
			Str(`src`, src).
			Str(`event`, eventType).
			Bool(`silent`, silent).
			Log(`memdom: fetch complete`)
		if e.Attached() {
			x.mutated(e, eventType, src)
		}
		if !silent {
			e.Dispatch(eventType, false)
		}
	}, res.Latency)
}

func (x *Window) startTransitions(e *Element, class string) {
	for _, t := range x.transitions {
		if t.Class != class {
			continue
		}
		if t.Selector != `` {
			sel, ok := parseSelector(t.Selector)
			if !ok || !sel.matches(e) {
				continue
			}
		}
		target := e
		if t.Terminal != `` {
			v := e.QueryAll(t.Terminal)
			if len(v) == 0 {
				continue
			}
			target = v[0]
		}
		x.scheduler.SetTimeout(func() {
			x.mutated(target, MutationTransition, class)
			target.Dispatch(dom.EventTransitionEnd, true)
		}, t.Duration)
	}
}
