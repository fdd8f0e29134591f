//go:build js && wasm

// Package jsdom implements the dom interfaces on the browser's document, via
// syscall/js.
package jsdom

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall/js"
	"time"

	"github.com/joeycumines/go-introslide/dom"
)

type (
	// Window wraps the global window object. Every js.Func it allocates,
	// for listeners, timers, and animation frames, is tracked until it is
	// removed or fires, and released by Close.
	Window struct {
		value     js.Value
		document  js.Value
		mu        sync.Mutex
		listeners map[dom.ListenerID]listener
		timers    map[uint64]*timer
		nextID    dom.ListenerID
		nextTimer uint64
		closed    atomic.Bool
	}

	// Element wraps a DOM element.
	Element struct {
		win   *Window
		value js.Value
	}

	// Document wraps window.document.
	Document struct {
		win *Window
	}

	listener struct {
		target    js.Value
		eventType string
		fn        js.Func
	}

	timer struct {
		cancelMethod string
		id           js.Value
		fn           js.Func
	}
)

var (
	// compile time assertions

	_ dom.Window   = (*Window)(nil)
	_ dom.Document = (*Document)(nil)
	_ dom.Image    = (*Element)(nil)
)

// New wraps the global window.
func New() *Window { return newWindow(js.Global().Get(`window`)) }

func newWindow(value js.Value) *Window {
	return &Window{
		value:     value,
		document:  value.Get(`document`),
		listeners: make(map[dom.ListenerID]listener),
		timers:    make(map[uint64]*timer),
	}
}

// Close removes every listener registered via this package, cancels pending
// timers and animation frames, and causes Post to return false. Scheduling
// after Close is a no-op.
func (x *Window) Close() {
	if !x.closed.CompareAndSwap(false, true) {
		return
	}
	x.mu.Lock()
	listeners, timers := x.listeners, x.timers
	x.listeners = make(map[dom.ListenerID]listener)
	x.timers = make(map[uint64]*timer)
	x.mu.Unlock()
	for _, l := range listeners {
		l.target.Call(`removeEventListener`, l.eventType, l.fn)
		l.fn.Release()
	}
	for _, t := range timers {
		x.value.Call(t.cancelMethod, t.id)
		t.fn.Release()
	}
}

// Document implements [dom.Window].
func (x *Window) Document() dom.Document { return &Document{win: x} }

// ScrollY implements [dom.Window].
func (x *Window) ScrollY() float64 { return x.value.Get(`scrollY`).Float() }

// InnerHeight implements [dom.Window].
func (x *Window) InnerHeight() float64 { return x.value.Get(`innerHeight`).Float() }

// AddEventListener implements [dom.EventTarget].
func (x *Window) AddEventListener(eventType string, fn dom.Listener) dom.ListenerID {
	return x.addListener(x.value, eventType, fn)
}

// RemoveEventListener implements [dom.EventTarget].
func (x *Window) RemoveEventListener(eventType string, id dom.ListenerID) {
	x.removeListener(id)
}

// SetTimeout implements [dom.Window].
func (x *Window) SetTimeout(fn func(), delay time.Duration) (cancel func()) {
	return x.schedule(`setTimeout`, `clearTimeout`, fn, int(delay/time.Millisecond))
}

// RequestAnimationFrame implements [dom.Window].
func (x *Window) RequestAnimationFrame(fn func()) (cancel func()) {
	return x.schedule(`requestAnimationFrame`, `cancelAnimationFrame`, fn, -1)
}

// Post implements [dom.Window], using a zero delay timeout.
func (x *Window) Post(fn func()) bool {
	if x.closed.Load() {
		return false
	}
	x.SetTimeout(fn, 0)
	return true
}

func (x *Window) schedule(method, cancelMethod string, fn func(), delayMs int) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	x.mu.Lock()
	if x.closed.Load() {
		x.mu.Unlock()
		return func() {}
	}
	x.nextTimer++
	key := x.nextTimer
	t := &timer{cancelMethod: cancelMethod}
	t.fn = js.FuncOf(func(js.Value, []js.Value) any {
		if x.untrack(key) != nil {
			t.fn.Release()
			fn()
		}
		return nil
	})
	x.timers[key] = t
	x.mu.Unlock()

	if delayMs < 0 {
		t.id = x.value.Call(method, t.fn)
	} else {
		t.id = x.value.Call(method, t.fn, delayMs)
	}

	return func() {
		if x.untrack(key) != nil {
			x.value.Call(cancelMethod, t.id)
			t.fn.Release()
		}
	}
}

// untrack returns nil if the timer already fired, or was canceled
func (x *Window) untrack(key uint64) *timer {
	x.mu.Lock()
	defer x.mu.Unlock()
	t := x.timers[key]
	delete(x.timers, key)
	return t
}

func (x *Window) pendingTimers() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.timers)
}

func (x *Window) addListener(target js.Value, eventType string, fn dom.Listener) dom.ListenerID {
	if fn == nil {
		return 0
	}
	jsf := js.FuncOf(func(_ js.Value, args []js.Value) any {
		event := dom.Event{Type: eventType}
		if len(args) != 0 {
			event.Target = x.wrapTarget(args[0].Get(`target`))
		}
		fn(&event)
		return nil
	})
	x.mu.Lock()
	x.nextID++
	id := x.nextID
	x.listeners[id] = listener{target: target, eventType: eventType, fn: jsf}
	x.mu.Unlock()
	target.Call(`addEventListener`, eventType, jsf)
	return id
}

func (x *Window) removeListener(id dom.ListenerID) {
	x.mu.Lock()
	l, ok := x.listeners[id]
	delete(x.listeners, id)
	x.mu.Unlock()
	if ok {
		l.target.Call(`removeEventListener`, l.eventType, l.fn)
		l.fn.Release()
	}
}

// wrapTarget returns nil for anything that isn't an element node
func (x *Window) wrapTarget(v js.Value) dom.Element {
	if v.Type() != js.TypeObject {
		return nil
	}
	if nodeType := v.Get(`nodeType`); nodeType.Type() != js.TypeNumber || nodeType.Int() != 1 {
		return nil
	}
	return &Element{win: x, value: v}
}

// QuerySelectorAll implements [dom.Document].
func (x *Document) QuerySelectorAll(selector string) []dom.Element {
	return x.win.wrapList(x.win.document.Call(`querySelectorAll`, selector))
}

// NewImage implements [dom.Document].
func (x *Document) NewImage() dom.Image {
	return &Element{win: x.win, value: js.Global().Get(`Image`).New()}
}

func (x *Window) wrapList(list js.Value) []dom.Element {
	n := list.Length()
	if n == 0 {
		return nil
	}
	result := make([]dom.Element, n)
	for i := range n {
		result[i] = &Element{win: x, value: list.Index(i)}
	}
	return result
}

// Value returns the wrapped value.
func (x *Element) Value() js.Value { return x.value }

// AddEventListener implements [dom.EventTarget].
func (x *Element) AddEventListener(eventType string, fn dom.Listener) dom.ListenerID {
	return x.win.addListener(x.value, eventType, fn)
}

// RemoveEventListener implements [dom.EventTarget].
func (x *Element) RemoveEventListener(eventType string, id dom.ListenerID) {
	x.win.removeListener(id)
}

// TagName implements [dom.Element], returning the lowercase tag.
func (x *Element) TagName() string { return strings.ToLower(x.value.Get(`tagName`).String()) }

// Attribute implements [dom.Element].
func (x *Element) Attribute(name string) (string, bool) {
	v := x.value.Call(`getAttribute`, name)
	if v.IsNull() {
		return ``, false
	}
	return v.String(), true
}

// AddClass implements [dom.Element].
func (x *Element) AddClass(name string) { x.value.Get(`classList`).Call(`add`, name) }

// RemoveClass implements [dom.Element].
func (x *Element) RemoveClass(name string) { x.value.Get(`classList`).Call(`remove`, name) }

// HasClass implements [dom.Element].
func (x *Element) HasClass(name string) bool {
	return x.value.Get(`classList`).Call(`contains`, name).Bool()
}

// QuerySelector implements [dom.Element].
func (x *Element) QuerySelector(selector string) dom.Element {
	v := x.value.Call(`querySelector`, selector)
	if v.IsNull() {
		return nil
	}
	return &Element{win: x.win, value: v}
}

// QuerySelectorAll implements [dom.Element].
func (x *Element) QuerySelectorAll(selector string) []dom.Element {
	return x.win.wrapList(x.value.Call(`querySelectorAll`, selector))
}

// Rect implements [dom.Element].
func (x *Element) Rect() dom.Rect {
	v := x.value.Call(`getBoundingClientRect`)
	return dom.Rect{Top: v.Get(`top`).Float(), Bottom: v.Get(`bottom`).Float()}
}

// Equal implements [dom.Element].
func (x *Element) Equal(other dom.Element) bool {
	v, ok := other.(*Element)
	return ok && v != nil && x.value.Equal(v.value)
}

// IsImg implements [dom.Image].
func (x *Element) IsImg() bool { return x.TagName() == `img` }

// Complete implements [dom.Image].
func (x *Element) Complete() bool {
	v := x.value.Get(`complete`)
	return v.Type() == js.TypeBoolean && v.Bool()
}

// NaturalWidth implements [dom.Image].
func (x *Element) NaturalWidth() int {
	v := x.value.Get(`naturalWidth`)
	if v.Type() != js.TypeNumber {
		return 0
	}
	return v.Int()
}

// Src implements [dom.Image], returning the src attribute as written, rather
// than the resolved URL.
func (x *Element) Src() string {
	v, _ := x.Attribute(`src`)
	return v
}

// SetSrc implements [dom.Image].
func (x *Element) SetSrc(src string) { x.value.Set(`src`, src) }

// SetBackgroundImage implements [dom.Image].
func (x *Element) SetBackgroundImage(src string) {
	x.value.Get(`style`).Set(`backgroundImage`, `url(`+strconv.Quote(src)+`)`)
}
