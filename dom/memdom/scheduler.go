package memdom

import (
	"container/heap"
	"sync"
	"time"

	"github.com/joeycumines/go-eventloop"
)

type (
	// Scheduler provides the host thread for a [Window]. All callbacks must
	// be run on the same goroutine.
	Scheduler interface {
		SetTimeout(fn func(), delay time.Duration) (cancel func())
		Post(fn func()) bool
		Now() time.Time
	}

	// LoopScheduler runs a [Window] on an [eventloop.Loop], using the
	// [eventloop.JS] adapter for timers.
	LoopScheduler struct {
		loop *eventloop.Loop
		js   *eventloop.JS
	}

	// VirtualClock is a deterministic [Scheduler], for tests and offline
	// replay. Time only moves when Advance or Run is called, and callbacks
	// run on the calling goroutine.
	VirtualClock struct {
		now    time.Time
		timers virtualTimers
		posted []func()
		seq    uint64
		mu     sync.Mutex
	}

	virtualTimer struct {
		when     time.Time
		fn       func()
		seq      uint64
		canceled bool
	}

	virtualTimers []*virtualTimer
)

var (
	// compile time assertions

	_ Scheduler = (*LoopScheduler)(nil)
	_ Scheduler = (*VirtualClock)(nil)
)

// NewLoopScheduler initializes a [LoopScheduler]. A panic will occur if
// either argument is nil.
func NewLoopScheduler(loop *eventloop.Loop, js *eventloop.JS) *LoopScheduler {
	if loop == nil {
		panic(`memdom: nil loop`)
	}
	if js == nil {
		panic(`memdom: nil js`)
	}
	return &LoopScheduler{loop: loop, js: js}
}

// SetTimeout implements [Scheduler], using [eventloop.JS.SetTimeout]. The
// delay is truncated to millisecond precision.
func (x *LoopScheduler) SetTimeout(fn func(), delay time.Duration) (cancel func()) {
	if delay < 0 {
		delay = 0
	}
	id, err := x.js.SetTimeout(fn, int(delay/time.Millisecond))
	if err != nil {
		// loop is shutting down, the callback will never run
		return func() {}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// ErrTimerNotFound just means it already fired
			_ = x.js.ClearTimeout(id)
		})
	}
}

// Post implements [Scheduler], using [eventloop.Loop.Submit].
func (x *LoopScheduler) Post(fn func()) bool {
	return x.loop.Submit(fn) == nil
}

// Now implements [Scheduler].
func (x *LoopScheduler) Now() time.Time { return time.Now() }

// NewVirtualClock initializes a [VirtualClock], starting at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

// SetTimeout implements [Scheduler].
func (x *VirtualClock) SetTimeout(fn func(), delay time.Duration) (cancel func()) {
	if delay < 0 {
		delay = 0
	}
	x.mu.Lock()
	x.seq++
	t := &virtualTimer{when: x.now.Add(delay), fn: fn, seq: x.seq}
	heap.Push(&x.timers, t)
	x.mu.Unlock()
	return func() {
		x.mu.Lock()
		t.canceled = true
		x.mu.Unlock()
	}
}

// Post implements [Scheduler]. It is safe to call from any goroutine, and
// posted tasks run before any timer, on the next call to Advance or Run.
func (x *VirtualClock) Post(fn func()) bool {
	if fn == nil {
		return true
	}
	x.mu.Lock()
	x.posted = append(x.posted, fn)
	x.mu.Unlock()
	return true
}

// Now implements [Scheduler].
func (x *VirtualClock) Now() time.Time {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.now
}

// Advance moves time forward by d, running posted tasks and any timers that
// became due, in deadline order (ties broken by scheduling order).
func (x *VirtualClock) Advance(d time.Duration) {
	x.mu.Lock()
	target := x.now.Add(d)
	x.mu.Unlock()
	for x.step(target) {
	}
	x.mu.Lock()
	if x.now.Before(target) {
		x.now = target
	}
	x.mu.Unlock()
}

// Run runs until no timers or posted tasks remain, or until the clock passes
// limit (relative to the current time), returning true if it became idle.
func (x *VirtualClock) Run(limit time.Duration) bool {
	x.mu.Lock()
	target := x.now.Add(limit)
	x.mu.Unlock()
	for x.step(target) {
	}
	return x.Pending() == 0
}

// Pending returns the number of posted tasks and live timers.
func (x *VirtualClock) Pending() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := len(x.posted)
	for _, t := range x.timers {
		if !t.canceled {
			n++
		}
	}
	return n
}

func (x *VirtualClock) step(target time.Time) bool {
	x.mu.Lock()
	if len(x.posted) != 0 {
		fn := x.posted[0]
		x.posted = x.posted[1:]
		x.mu.Unlock()
		fn()
		return true
	}
	for len(x.timers) != 0 && x.timers[0].canceled {
		heap.Pop(&x.timers)
	}
	if len(x.timers) == 0 || x.timers[0].when.After(target) {
		x.mu.Unlock()
		return false
	}
	t := heap.Pop(&x.timers).(*virtualTimer)
	if t.when.After(x.now) {
		x.now = t.when
	}
	x.mu.Unlock()
	t.fn()
	return true
}

func (h virtualTimers) Len() int { return len(h) }

func (h virtualTimers) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h virtualTimers) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *virtualTimers) Push(x any) { *h = append(*h, x.(*virtualTimer)) }

func (h *virtualTimers) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}
