package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-introslide/dom/memdom"
	"github.com/joeycumines/go-introslide/internal/scenario"
	"github.com/joeycumines/go-introslide/page"
	"github.com/joeycumines/logiface"
	"golang.org/x/sync/errgroup"
)

var (
	// errTimeout is returned if the replay didn't complete within the
	// scenario's timeout.
	errTimeout = errors.New(`introsim: timed out`)

	// errStalled is returned by a virtual replay that ran out of work before
	// completing, e.g. because a transition never ended.
	errStalled = errors.New(`introsim: stalled`)

	// errMismatch is returned if the timeline differs from the expected one.
	errMismatch = errors.New(`introsim: timeline mismatch`)
)

// virtualEpoch is the start time of virtual replays.
var virtualEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// virtualStep is the granularity at which virtual replays check for
// completion.
const virtualStep = time.Millisecond

type (
	replayOptions struct {
		page     string
		scenario string
		expect   string
		timeout  time.Duration
		virtual  bool
	}

	replayConfig struct {
		Markup   string
		Scenario *scenario.Scenario
		Logger   *logiface.Logger[logiface.Event]
		Out      io.Writer

		// Virtual replays on a memdom.VirtualClock, rather than an event
		// loop, making the timeline deterministic.
		Virtual bool

		// Expect is the path of a previously recorded timeline. If set, the
		// replay fails with errMismatch, if the timelines differ.
		Expect string
	}

	// replayHost is the state shared by both drivers, only accessed from
	// the scheduler's thread.
	replayHost struct {
		scenario *scenario.Scenario
		sched    memdom.Scheduler
		timeline *timeline
		page     *page.Page
		onDone   func()
	}

	// timeline writes one line per mutation, relative to the replay start.
	timeline struct {
		out   io.Writer
		start time.Time
		err   error
	}
)

// replay runs the page until the opening sequence has finished, every scroll
// step has run, and the settle period has elapsed.
func replay(ctx context.Context, config *replayConfig) error {
	s := config.Scenario
	if s == nil {
		s = new(scenario.Scenario)
	}

	var (
		recorded bytes.Buffer
		out      = config.Out
	)
	if config.Expect != `` {
		out = io.MultiWriter(out, &recorded)
	}

	var err error
	if config.Virtual {
		err = replayVirtual(ctx, s, config.Markup, config.Logger, out)
	} else {
		err = replayLoop(ctx, s, config.Markup, config.Logger, out)
	}
	if err != nil || config.Expect == `` {
		return err
	}

	expected, err := os.ReadFile(config.Expect)
	if err != nil {
		return fmt.Errorf(`introsim: read expected timeline: %w`, err)
	}
	if diff := unifiedDiff(config.Expect, `replay`, string(expected), recorded.String()); diff != `` {
		return fmt.Errorf("%w\n%s", errMismatch, diff)
	}
	return nil
}

func replayLoop(ctx context.Context, s *scenario.Scenario, markup string, logger *logiface.Logger[logiface.Event], out io.Writer) error {
	loop, err := eventloop.New()
	if err != nil {
		return err
	}
	js, err := eventloop.NewJS(loop)
	if err != nil {
		return err
	}
	sched := memdom.NewLoopScheduler(loop, js)

	ctx, cancel := context.WithTimeout(ctx, s.TimeoutOrDefault())
	defer cancel()

	runCtx, stopLoop := context.WithCancel(context.Background())
	var g errgroup.Group
	g.Go(func() error { return loop.Run(runCtx) })
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = loop.Shutdown(shutdownCtx)
		cancel()
		stopLoop()
		_ = g.Wait()
	}()

	var (
		done     = make(chan struct{})
		doneOnce sync.Once
		setupErr = make(chan error, 1)
		host     = replayHost{
			scenario: s,
			sched:    sched,
			timeline: &timeline{out: out, start: sched.Now()},
			onDone:   func() { doneOnce.Do(func() { close(done) }) },
		}
	)
	if !sched.Post(func() { setupErr <- host.start(ctx, markup, logger) }) {
		return errors.New(`introsim: event loop unavailable`)
	}

	select {
	case err := <-setupErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		err = nil
	case <-ctx.Done():
		err = ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = errTimeout
		}
	}

	closed := make(chan struct{})
	if sched.Post(func() {
		host.close()
		close(closed)
	}) {
		<-closed
	}

	if err == nil {
		err = host.timeline.err
	}
	return err
}

func replayVirtual(ctx context.Context, s *scenario.Scenario, markup string, logger *logiface.Logger[logiface.Event], out io.Writer) error {
	clock := memdom.NewVirtualClock(virtualEpoch)
	var done bool
	host := replayHost{
		scenario: s,
		sched:    clock,
		timeline: &timeline{out: out, start: virtualEpoch},
		onDone:   func() { done = true },
	}
	if err := host.start(ctx, markup, logger); err != nil {
		return err
	}
	defer host.close()

	deadline := virtualEpoch.Add(s.TimeoutOrDefault())
	for !done {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !clock.Now().Before(deadline) {
			return errTimeout
		}
		if clock.Pending() == 0 {
			return errStalled
		}
		clock.Advance(virtualStep)
	}
	return host.timeline.err
}

// start parses the page, and initializes the presentation layer, calling
// onDone once everything has completed, and settled.
func (x *replayHost) start(ctx context.Context, markup string, logger *logiface.Logger[logiface.Event]) error {
	win, err := memdom.ParseString(markup, x.scenario.WindowConfig(x.sched, logger, x.timeline.mutation))
	if err != nil {
		return fmt.Errorf(`introsim: parse page: %w`, err)
	}

	x.page = page.Init(ctx, win, x.scenario.PageConfig(logger))

	settle := x.scenario.SettleOrDefault()
	remaining := len(x.scenario.Scroll) + 1
	complete := func() {
		remaining--
		if remaining != 0 {
			return
		}
		x.timeline.printf(x.sched.Now(), `settle`, settle.String())
		x.sched.SetTimeout(x.onDone, settle)
	}
	for _, step := range x.scenario.Scroll {
		x.sched.SetTimeout(func() {
			x.timeline.printf(x.sched.Now(), `scroll`, fmt.Sprint(step.Y))
			win.ScrollTo(step.Y)
			complete()
		}, time.Duration(step.At))
	}
	if seq := x.page.Sequencer(); seq != nil {
		seq.Done().Then(complete)
	} else {
		complete()
	}

	win.DispatchLoad()
	return nil
}

func (x *replayHost) close() {
	if x.page != nil {
		x.page.Close()
	}
}

func (x *timeline) mutation(m memdom.Mutation) {
	value := m.Op
	if m.Value != `` {
		value += ` ` + m.Value
	}
	x.printf(m.Time, m.Element.String(), value)
}

func (x *timeline) printf(t time.Time, subject, value string) {
	if x.err != nil {
		return
	}
	_, x.err = fmt.Fprintf(x.out, "%6dms %s %s\n", t.Sub(x.start).Milliseconds(), subject, value)
}

func unifiedDiff(aName, bName, aText, bText string) string {
	if aText == bText {
		return ``
	}
	return fmt.Sprint(gotextdiff.ToUnified(
		aName,
		bName,
		aText,
		myers.ComputeEdits(span.URIFromPath(aName), aText, bText),
	))
}
