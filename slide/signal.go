package slide

// Signal is a single-settlement completion signal, the Go rendition of a
// deferred. Callbacks run synchronously, on the thread that fires it.
//
// A Signal must only be used from the host thread.
type Signal struct {
	fns  []func()
	done bool
}

// Done reports whether the signal fired.
func (x *Signal) Done() bool { return x.done }

// Then registers fn to run once the signal fires, or runs it immediately, if
// it already has.
func (x *Signal) Then(fn func()) {
	if fn == nil {
		return
	}
	if x.done {
		fn()
		return
	}
	x.fns = append(x.fns, fn)
}

// fire is idempotent
func (x *Signal) fire() {
	if x.done {
		return
	}
	x.done = true
	fns := x.fns
	x.fns = nil
	for _, fn := range fns {
		fn()
	}
}

// All returns a Signal that fires once every one of signals has. With no
// signals, the result has already fired.
func All(signals ...*Signal) *Signal {
	var result Signal
	remaining := len(signals)
	if remaining == 0 {
		result.fire()
		return &result
	}
	for _, s := range signals {
		s.Then(func() {
			remaining--
			if remaining == 0 {
				result.fire()
			}
		})
	}
	return &result
}
