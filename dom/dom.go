// Package dom models the subset of the browser document object model used to
// drive presentation classes, image loading, transitions, and scrolling.
//
// Implementations must deliver every callback (listeners, timers, animation
// frames, posted tasks) on a single thread, which is also the thread that
// calls into the core packages. See also the memdom and jsdom subpackages.
package dom

import (
	"time"
)

const (
	EventLoad          = `load`
	EventError         = `error`
	EventTransitionEnd = `transitionend`
	EventScroll        = `scroll`
	EventPageHide      = `pagehide`
)

type (
	// Event is a dispatched DOM event. Target is the element the event was
	// originally dispatched on, which may differ from the element the
	// listener was registered on, if the event bubbled.
	Event struct {
		Target Element
		Type   string
	}

	// Listener is a callback for [EventTarget.AddEventListener].
	Listener func(event *Event)

	// ListenerID identifies a registered listener, for removal. Zero is never
	// a valid ID.
	ListenerID uint64

	// EventTarget is anything that can have listeners registered.
	EventTarget interface {
		// AddEventListener registers listener for eventType. A nil listener
		// results in a zero ListenerID.
		AddEventListener(eventType string, listener Listener) ListenerID

		// RemoveEventListener removes the listener identified by id. It must be
		// safe to call multiple times, and with zero or unknown IDs.
		RemoveEventListener(eventType string, id ListenerID)
	}

	// Rect is a bounding box, relative to the viewport.
	Rect struct {
		Top    float64
		Bottom float64
	}

	// Element models a DOM element.
	Element interface {
		EventTarget

		TagName() string
		Attribute(name string) (string, bool)
		AddClass(name string)
		RemoveClass(name string)
		HasClass(name string) bool

		// QuerySelector returns the first matching descendant, or nil.
		QuerySelector(selector string) Element
		// QuerySelectorAll returns all matching descendants, in document
		// order.
		QuerySelectorAll(selector string) []Element

		// Rect returns the element's bounding box, as per
		// getBoundingClientRect.
		Rect() Rect

		// Equal reports whether other refers to the same underlying node.
		Equal(other Element) bool
	}

	// Image is an element that may load an image resource, e.g. an IMG
	// element, or any element that accepts a background image.
	Image interface {
		Element

		// IsImg reports whether the element is an actual IMG element.
		IsImg() bool
		Complete() bool
		NaturalWidth() int
		Src() string
		SetSrc(src string)
		// SetBackgroundImage assigns the inline background-image style.
		SetBackgroundImage(src string)
	}

	// Document models the page's document.
	Document interface {
		QuerySelectorAll(selector string) []Element
		// NewImage returns a new, detached, image element (new Image()).
		NewImage() Image
	}

	// Window models the page's global scope, including the scheduling
	// primitives of the host.
	Window interface {
		EventTarget

		Document() Document
		ScrollY() float64
		InnerHeight() float64

		// SetTimeout schedules fn to run after delay, returning a func that
		// cancels it. The returned func must be safe to call multiple times,
		// including after fn ran.
		SetTimeout(fn func(), delay time.Duration) (cancel func())

		// RequestAnimationFrame schedules fn to run before the next repaint,
		// returning a func that cancels it, with the same guarantees as
		// SetTimeout.
		RequestAnimationFrame(fn func()) (cancel func())

		// Post schedules fn to run on the host thread. Unlike the other
		// methods, Post may be called from any goroutine. It returns false if
		// the host is no longer accepting tasks.
		Post(fn func()) bool
	}
)

// AsImage converts element to an [Image], returning nil if it doesn't
// support image loading.
func AsImage(element Element) Image {
	if v, ok := element.(Image); ok {
		return v
	}
	return nil
}

// Equal compares two elements, handling nil.
func Equal(a, b Element) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// Visible reports whether rect (viewport relative) lies strictly within the
// viewport of win.
func Visible(win Window, rect Rect) bool {
	return rect.Top > 0 && rect.Bottom < win.InnerHeight()
}
