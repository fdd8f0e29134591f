package memdom

import (
	"strconv"
	"strings"

	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-introslide/dom"
)

// Element is an in-memory [dom.Element]. Every Element also implements
// [dom.Image], as any element may be given a background image, though only
// `img` elements ever complete a load.
//
// Elements must only be accessed from the host thread of their [Window].
type Element struct {
	win        *Window
	parent     *Element
	target     *eventloop.EventTarget
	attrs      map[string]string
	tag        string
	src        string
	background string
	classes    []string
	children   []*Element
	// fetch is incremented on every src change, to drop stale fetches
	fetch        uint64
	naturalWidth int
	complete     bool
}

var (
	// compile time assertions

	_ dom.Image = (*Element)(nil)
)

func newElement(win *Window, tag string) *Element {
	return &Element{
		win:    win,
		target: eventloop.NewEventTarget(),
		attrs:  make(map[string]string),
		tag:    strings.ToLower(tag),
	}
}

// String returns a short description, e.g. `div#id.first-class`.
func (x *Element) String() string {
	var b strings.Builder
	b.WriteString(x.tag)
	if v, ok := x.attrs[`id`]; ok && v != `` {
		b.WriteByte('#')
		b.WriteString(v)
	}
	if len(x.classes) != 0 {
		b.WriteByte('.')
		b.WriteString(x.classes[0])
	}
	if v, ok := x.attrs[`data-name`]; ok {
		b.WriteByte('[')
		b.WriteString(v)
		b.WriteByte(']')
	}
	return b.String()
}

// Parent returns the parent element, or nil.
func (x *Element) Parent() *Element { return x.parent }

// Children returns the child elements.
func (x *Element) Children() []*Element { return append([]*Element(nil), x.children...) }

// Classes returns the current class list.
func (x *Element) Classes() []string { return append([]string(nil), x.classes...) }

// Background returns the inline background image source.
func (x *Element) Background() string { return x.background }

// AddEventListener implements [dom.EventTarget], storing the listener on an
// [eventloop.EventTarget].
func (x *Element) AddEventListener(eventType string, listener dom.Listener) dom.ListenerID {
	return addListener(x.target, eventType, listener)
}

// RemoveEventListener implements [dom.EventTarget].
func (x *Element) RemoveEventListener(eventType string, id dom.ListenerID) {
	removeListener(x.target, eventType, id)
}

// ListenerCount returns the number of listeners for eventType.
func (x *Element) ListenerCount(eventType string) int {
	return x.target.ListenerCount(eventType)
}

// Dispatch fires an event of the given type with this element as the
// target, bubbling to ancestors if bubbles is true.
func (x *Element) Dispatch(eventType string, bubbles bool) {
	event := &dom.Event{Type: eventType, Target: x}
	for e := x; e != nil; e = e.parent {
		e.target.DispatchEvent(eventloop.NewCustomEvent(eventType, event).EventPtr())
		if !bubbles {
			break
		}
	}
}

// TagName implements [dom.Element], returning the lowercase tag.
func (x *Element) TagName() string { return x.tag }

// Attribute implements [dom.Element].
func (x *Element) Attribute(name string) (string, bool) {
	if name == `class` {
		return strings.Join(x.classes, ` `), len(x.classes) != 0
	}
	v, ok := x.attrs[name]
	return v, ok
}

// SetAttribute sets an attribute, note that `class` replaces the class
// list, and `src` behaves like SetSrc.
func (x *Element) SetAttribute(name, value string) {
	switch name {
	case `class`:
		x.classes = nil
		for _, v := range strings.Fields(value) {
			x.AddClass(v)
		}
	case `src`:
		x.SetSrc(value)
	default:
		x.attrs[name] = value
	}
}

// AddClass implements [dom.Element]. Adding a new class may start a
// simulated transition, see [Transition].
func (x *Element) AddClass(name string) {
	if name == `` || x.HasClass(name) {
		return
	}
	x.classes = append(x.classes, name)
	x.win.mutated(x, MutationAddClass, name)
	x.win.startTransitions(x, name)
}

// RemoveClass implements [dom.Element].
func (x *Element) RemoveClass(name string) {
	for i, v := range x.classes {
		if v == name {
			x.classes = append(x.classes[:i:i], x.classes[i+1:]...)
			x.win.mutated(x, MutationRemoveClass, name)
			return
		}
	}
}

// HasClass implements [dom.Element].
func (x *Element) HasClass(name string) bool {
	for _, v := range x.classes {
		if v == name {
			return true
		}
	}
	return false
}

// QuerySelector implements [dom.Element].
func (x *Element) QuerySelector(selector string) dom.Element {
	if v := x.query(selector, 1); len(v) != 0 {
		return v[0]
	}
	return nil
}

// QuerySelectorAll implements [dom.Element].
func (x *Element) QuerySelectorAll(selector string) []dom.Element {
	return toElements(x.query(selector, -1))
}

// QueryAll is like QuerySelectorAll, but returns the concrete type.
func (x *Element) QueryAll(selector string) []*Element {
	return x.query(selector, -1)
}

func (x *Element) query(s string, limit int) (result []*Element) {
	sel, ok := parseSelector(s)
	if !ok {
		return nil
	}
	var walk func(e *Element) bool
	walk = func(e *Element) bool {
		for _, c := range e.children {
			if sel.matches(c) {
				result = append(result, c)
				if limit > 0 && len(result) >= limit {
					return false
				}
			}
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(x)
	return result
}

// Rect implements [dom.Element]. Layout is not computed, instead it is read
// from the `data-layout-top` and `data-layout-height` attributes, in
// document coordinates.
func (x *Element) Rect() dom.Rect {
	top, _ := strconv.ParseFloat(x.attrs[`data-layout-top`], 64)
	height, _ := strconv.ParseFloat(x.attrs[`data-layout-height`], 64)
	scroll := x.win.ScrollY()
	return dom.Rect{Top: top - scroll, Bottom: top + height - scroll}
}

// Equal implements [dom.Element].
func (x *Element) Equal(other dom.Element) bool {
	v, ok := other.(*Element)
	return ok && v == x
}

// IsImg implements [dom.Image].
func (x *Element) IsImg() bool { return x.tag == `img` }

// Complete implements [dom.Image].
func (x *Element) Complete() bool { return x.complete }

// NaturalWidth implements [dom.Image].
func (x *Element) NaturalWidth() int { return x.naturalWidth }

// Src implements [dom.Image].
func (x *Element) Src() string { return x.src }

// SetSrc implements [dom.Image]. For `img` elements this starts a simulated
// fetch, via the window's [Network], firing `load` or `error` once it
// completes. Elements attached to the document won't fire either event, if
// [Config.QuirkTargetSilent] is set.
func (x *Element) SetSrc(src string) {
	x.src = src
	x.complete = false
	x.naturalWidth = 0
	x.fetch++
	if !x.IsImg() {
		return
	}
	if src == `` {
		x.complete = true
		return
	}
	x.win.fetch(x, x.fetch, src)
}

// SetBackgroundImage implements [dom.Image].
func (x *Element) SetBackgroundImage(src string) {
	x.background = src
	x.win.mutated(x, MutationBackground, src)
}

// Attached reports whether the element is part of the document tree.
func (x *Element) Attached() bool {
	for e := x; e != nil; e = e.parent {
		if e == x.win.root {
			return true
		}
	}
	return false
}

func (x *Element) appendChild(child *Element) {
	child.parent = x
	x.children = append(x.children, child)
}

func toElements(v []*Element) []dom.Element {
	if len(v) == 0 {
		return nil
	}
	result := make([]dom.Element, len(v))
	for i, e := range v {
		result[i] = e
	}
	return result
}

func addListener(target *eventloop.EventTarget, eventType string, listener dom.Listener) dom.ListenerID {
	if listener == nil {
		return 0
	}
	return dom.ListenerID(target.AddEventListener(eventType, func(event *eventloop.Event) {
		if v, ok := event.Detail().(*dom.Event); ok {
			listener(v)
		}
	}))
}

func removeListener(target *eventloop.EventTarget, eventType string, id dom.ListenerID) {
	if id == 0 {
		return
	}
	target.RemoveEventListenerByID(eventType, eventloop.ListenerID(id))
}
