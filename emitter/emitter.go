// Package emitter implements a minimal named-event publish/subscribe
// registry, with single-shot subscriptions.
//
// Listeners are compared by identity. Go func values are not comparable, so a
// [Listener] is an interface, normally implemented by a pointer type, e.g. the
// value returned by [Func].
package emitter

import (
	"sync"
)

type (
	// Listener receives events from an [Emitter].
	//
	// WARNING: The dynamic type of a Listener must be comparable (typically a
	// pointer), or registration will panic.
	Listener interface {
		HandleEvent(name string, args ...any)
	}

	// FuncListener adapts a function to a [Listener]. Each FuncListener has
	// its own identity, so registering the same *FuncListener twice is a
	// no-op, while two FuncListener values wrapping the same function are
	// distinct.
	FuncListener struct {
		fn func(args ...any)
	}

	// Emitter is a registry of listeners, keyed by event name.
	//
	// The zero value is ready to use. Emitter is safe for concurrent use, but
	// the mutex is never held while invoking listeners, meaning listeners may
	// freely call back into the Emitter.
	Emitter struct {
		events map[string][]Listener
		once   map[string]map[Listener]struct{}
		// single-shot listeners currently being invoked, which can't be
		// registered again under the same name until they return
		inflight map[string]map[Listener]int
		mu       sync.Mutex
	}
)

// Func returns a new, distinct, [Listener] wrapping fn. A nil fn results in
// a nil *FuncListener, which the Emitter will ignore.
func Func(fn func(args ...any)) *FuncListener {
	if fn == nil {
		return nil
	}
	return &FuncListener{fn: fn}
}

// HandleEvent implements [Listener].
func (x *FuncListener) HandleEvent(_ string, args ...any) {
	x.fn(args...)
}

// On registers listener under name, unless it is already registered. An empty
// name or nil listener is a no-op, as is registering a single-shot listener
// under the name it is currently being invoked for.
func (x *Emitter) On(name string, listener Listener) {
	if name == `` || isNil(listener) {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.inflightLocked(name, listener) {
		return
	}
	x.addLocked(name, listener)
}

// Once behaves like [Emitter.On], but flags the registration as single-shot,
// meaning it will be removed immediately prior to its first invocation.
func (x *Emitter) Once(name string, listener Listener) {
	if name == `` || isNil(listener) {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.inflightLocked(name, listener) {
		return
	}
	x.addLocked(name, listener)
	if x.once == nil {
		x.once = make(map[string]map[Listener]struct{})
	}
	flags := x.once[name]
	if flags == nil {
		flags = make(map[Listener]struct{})
		x.once[name] = flags
	}
	flags[listener] = struct{}{}
}

// Off removes the registration of listener under name, if present.
func (x *Emitter) Off(name string, listener Listener) {
	if isNil(listener) {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(name, listener)
	if flags := x.once[name]; flags != nil {
		delete(flags, listener)
		if len(flags) == 0 {
			delete(x.once, name)
		}
	}
}

// Emit invokes the listeners registered under name, in registration order,
// passing args.
//
// The listeners are read from a snapshot taken when Emit is called, so
// registrations made or removed during dispatch only apply to later calls.
func (x *Emitter) Emit(name string, args ...any) {
	x.mu.Lock()
	listeners := x.events[name]
	if len(listeners) == 0 {
		x.mu.Unlock()
		return
	}
	snapshot := make([]Listener, len(listeners))
	copy(snapshot, listeners)
	x.mu.Unlock()

	for _, listener := range snapshot {
		if x.takeOnce(name, listener) {
			x.invokeOnce(name, listener, args)
		} else {
			listener.HandleEvent(name, args...)
		}
	}
}

// invokeOnce removes listener before calling it, so it can't re-trigger
// itself, and blocks it from registering itself again during the call.
func (x *Emitter) invokeOnce(name string, listener Listener, args []any) {
	x.mu.Lock()
	x.removeLocked(name, listener)
	if x.inflight == nil {
		x.inflight = make(map[string]map[Listener]int)
	}
	calls := x.inflight[name]
	if calls == nil {
		calls = make(map[Listener]int)
		x.inflight[name] = calls
	}
	calls[listener]++
	x.mu.Unlock()

	defer func() {
		x.mu.Lock()
		defer x.mu.Unlock()
		calls := x.inflight[name]
		if calls[listener] <= 1 {
			delete(calls, listener)
			if len(calls) == 0 {
				delete(x.inflight, name)
			}
		} else {
			calls[listener]--
		}
	}()

	listener.HandleEvent(name, args...)
}

// RemoveAll clears every registration.
func (x *Emitter) RemoveAll() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.events = nil
	x.once = nil
}

// ListenerCount returns the number of listeners registered under name.
func (x *Emitter) ListenerCount(name string) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.events[name])
}

func (x *Emitter) inflightLocked(name string, listener Listener) bool {
	_, ok := x.inflight[name][listener]
	return ok
}

func (x *Emitter) addLocked(name string, listener Listener) {
	if x.events == nil {
		x.events = make(map[string][]Listener)
	}
	for _, v := range x.events[name] {
		if v == listener {
			return
		}
	}
	x.events[name] = append(x.events[name], listener)
}

func (x *Emitter) removeLocked(name string, listener Listener) {
	listeners := x.events[name]
	for i, v := range listeners {
		if v == listener {
			// never mutate in place, the backing array may be shared with
			// a slice returned from an earlier append
			updated := make([]Listener, 0, len(listeners)-1)
			updated = append(updated, listeners[:i]...)
			updated = append(updated, listeners[i+1:]...)
			if len(updated) == 0 {
				delete(x.events, name)
			} else {
				x.events[name] = updated
			}
			return
		}
	}
}

// takeOnce reports whether listener was flagged single-shot under name,
// clearing the flag.
func (x *Emitter) takeOnce(name string, listener Listener) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	flags := x.once[name]
	if _, ok := flags[listener]; !ok {
		return false
	}
	delete(flags, listener)
	if len(flags) == 0 {
		delete(x.once, name)
	}
	return true
}

func isNil(listener Listener) bool {
	if listener == nil {
		return true
	}
	if v, ok := listener.(*FuncListener); ok && v == nil {
		return true
	}
	return false
}
