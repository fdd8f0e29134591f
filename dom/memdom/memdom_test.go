package memdom

import (
	"context"
	"testing"
	"time"

	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-introslide/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestWindow(t *testing.T, markup string, config Config) (*Window, *VirtualClock) {
	t.Helper()
	clock := NewVirtualClock(epoch)
	config.Scheduler = clock
	win, err := ParseString(markup, &config)
	require.NoError(t, err)
	return win, clock
}

func TestParseSelector(t *testing.T) {
	for _, tc := range [...]struct {
		Input string
		Want  selector
		OK    bool
	}{
		{Input: `img`, Want: selector{{tag: `img`}}, OK: true},
		{Input: `IMG.a.b`, Want: selector{{tag: `img`, classes: []string{`a`, `b`}}}, OK: true},
		{Input: `#x`, Want: selector{{id: `x`}}, OK: true},
		{Input: `.a, div#y`, Want: selector{{classes: []string{`a`}}, {tag: `div`, id: `y`}}, OK: true},
		{Input: ``},
		{Input: `div p`},
		{Input: `div > p`},
		{Input: `.`},
		{Input: `#a#b`},
		{Input: `a,`},
		{Input: `[data-src]`},
	} {
		t.Run(tc.Input, func(t *testing.T) {
			got, ok := parseSelector(tc.Input)
			assert.Equal(t, tc.OK, ok)
			if tc.OK {
				assert.Equal(t, tc.Want, got)
			}
		})
	}
}

func TestParse_query(t *testing.T) {
	win, _ := newTestWindow(t, `<div id="a" class="x y"><p class="y">1</p><img class="y z" data-src="i.jpg"></div><p id="b">2</p>`, Config{})

	assert.Len(t, win.QueryAll(`.y`), 3)
	assert.Len(t, win.QueryAll(`p`), 2)
	assert.Len(t, win.QueryAll(`img.y.z`), 1)
	assert.Len(t, win.QueryAll(`#a, #b`), 2)
	assert.Empty(t, win.QueryAll(`div p`))

	a := win.QueryAll(`#a`)[0]
	assert.Equal(t, `div#a.x`, a.String())
	v, ok := a.Attribute(`class`)
	assert.True(t, ok)
	assert.Equal(t, `x y`, v)
	assert.Equal(t, []string{`p`, `img`}, []string{a.Children()[0].TagName(), a.Children()[1].TagName()})
	assert.Same(t, a, a.Children()[0].Parent())
	assert.True(t, dom.Equal(a.QuerySelector(`img`), win.QueryAll(`img`)[0]))
	assert.Nil(t, a.QuerySelector(`span`))
	assert.Len(t, win.Document().QuerySelectorAll(`.y`), 3)
	assert.True(t, a.Attached())

	img := win.QueryAll(`img`)[0]
	src, ok := img.Attribute(`data-src`)
	assert.True(t, ok)
	assert.Equal(t, `i.jpg`, src)
	assert.Empty(t, img.Src())
	assert.False(t, img.Complete())
}

func TestElement_classes(t *testing.T) {
	var mutations []Mutation
	win, _ := newTestWindow(t, `<div id="a" class="x"></div>`, Config{OnMutation: func(m Mutation) { mutations = append(mutations, m) }})
	a := win.QueryAll(`#a`)[0]
	a.AddClass(`x`)
	a.AddClass(`y`)
	a.AddClass(``)
	assert.True(t, a.HasClass(`y`))
	a.RemoveClass(`x`)
	a.RemoveClass(`missing`)
	assert.Equal(t, []string{`y`}, a.Classes())
	require.Len(t, mutations, 2)
	assert.Equal(t, Mutation{Time: epoch, Element: a, Op: MutationAddClass, Value: `y`}, mutations[0])
	assert.Equal(t, Mutation{Time: epoch, Element: a, Op: MutationRemoveClass, Value: `x`}, mutations[1])
}

func TestElement_fetch(t *testing.T) {
	var ops []string
	win, clock := newTestWindow(t, `<img id="c" src="cached.jpg"><img id="s" src="slow.jpg"><img id="f" src="fail.jpg">`, Config{
		Cached: []string{`cached.jpg`},
		Network: StaticNetwork{
			Resources: map[string]Resource{
				`slow.jpg`:   {Latency: time.Second, Width: 640},
				`fail.jpg`:   {Latency: 10 * time.Millisecond, Fail: true},
				`cached.jpg`: {Width: 320},
			},
		},
		OnMutation: func(m Mutation) { ops = append(ops, m.Element.String()+` `+m.Op) },
	})

	c := win.QueryAll(`#c`)[0]
	assert.True(t, c.Complete())
	assert.Equal(t, 320, c.NaturalWidth())

	s := win.QueryAll(`#s`)[0]
	var events []string
	for _, e := range win.QueryAll(`img`) {
		e.AddEventListener(dom.EventLoad, func(event *dom.Event) { events = append(events, event.Target.(*Element).String()+` load`) })
		e.AddEventListener(dom.EventError, func(event *dom.Event) { events = append(events, event.Target.(*Element).String()+` error`) })
	}
	assert.True(t, clock.Run(time.Minute))
	assert.Equal(t, []string{`img#f error`, `img#s load`}, events)
	assert.Equal(t, []string{`img#f error`, `img#s load`}, ops)
	assert.True(t, s.Complete())
	assert.Equal(t, 640, s.NaturalWidth())

	// now cached
	proxy := win.Document().NewImage().(*Element)
	assert.False(t, proxy.Attached())
	var loaded bool
	proxy.AddEventListener(dom.EventLoad, func(*dom.Event) { loaded = true })
	proxy.SetSrc(`slow.jpg`)
	clock.Advance(0)
	assert.True(t, loaded)
	assert.Equal(t, 640, proxy.NaturalWidth())
}

func TestElement_staleFetchDropped(t *testing.T) {
	win, clock := newTestWindow(t, `<img id="a">`, Config{
		Network: StaticNetwork{Default: Resource{Latency: 100 * time.Millisecond}},
	})
	a := win.QueryAll(`#a`)[0]
	var n int
	a.AddEventListener(dom.EventLoad, func(*dom.Event) { n++ })
	a.SetSrc(`one.jpg`)
	clock.Advance(50 * time.Millisecond)
	a.SetSrc(`two.jpg`)
	clock.Run(time.Minute)
	assert.Equal(t, 1, n)
	assert.Equal(t, `two.jpg`, a.Src())
	assert.Equal(t, epoch.Add(150*time.Millisecond), clock.Now())
}

func TestQuirkTargetSilent(t *testing.T) {
	win, clock := newTestWindow(t, `<img id="a" src="a.jpg">`, Config{QuirkTargetSilent: true})
	a := win.QueryAll(`#a`)[0]
	proxy := win.Document().NewImage()
	var attached, detached bool
	a.AddEventListener(dom.EventLoad, func(*dom.Event) { attached = true })
	proxy.AddEventListener(dom.EventLoad, func(*dom.Event) { detached = true })
	proxy.SetSrc(`b.jpg`)
	clock.Run(time.Minute)
	assert.False(t, attached)
	assert.True(t, a.Complete())
	assert.True(t, detached)
}

func TestTransitions_bubble(t *testing.T) {
	win, clock := newTestWindow(t, `<div id="w" class="slide"><p class="last">x</p></div><div id="o"></div>`, Config{
		Transitions: []Transition{
			{Selector: `.slide`, Class: `go`, Terminal: `.last`, Duration: 500 * time.Millisecond},
			{Selector: `.slide`, Class: `hide`, Duration: 300 * time.Millisecond},
			{Selector: `.slide`, Class: `nothing`, Terminal: `.missing`},
		},
	})
	w := win.QueryAll(`#w`)[0]
	var got []string
	w.AddEventListener(dom.EventTransitionEnd, func(event *dom.Event) {
		got = append(got, clock.Now().Sub(epoch).String()+` `+event.Target.(*Element).String())
	})
	w.AddClass(`go`)
	w.AddClass(`nothing`)
	win.QueryAll(`#o`)[0].AddClass(`go`)
	clock.Advance(200 * time.Millisecond)
	w.AddClass(`hide`)
	assert.True(t, clock.Run(time.Minute))
	assert.Equal(t, []string{
		`500ms p.last`,
		`500ms div#w.slide`,
	}, got)
}

func TestListenerRemoval(t *testing.T) {
	win, _ := newTestWindow(t, `<div id="a"></div>`, Config{})
	a := win.QueryAll(`#a`)[0]
	var n int
	id := a.AddEventListener(`custom`, func(*dom.Event) { n++ })
	assert.NotZero(t, id)
	assert.Zero(t, a.AddEventListener(`custom`, nil))
	a.Dispatch(`custom`, false)
	a.RemoveEventListener(`custom`, id)
	a.RemoveEventListener(`custom`, id)
	a.RemoveEventListener(`custom`, 0)
	a.Dispatch(`custom`, false)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, a.ListenerCount(`custom`))
}

func TestWindow_scroll(t *testing.T) {
	win, _ := newTestWindow(t, `<div id="a" data-layout-top="1000" data-layout-height="200"></div>`, Config{InnerHeight: 600})
	a := win.QueryAll(`#a`)[0]
	assert.Equal(t, dom.Rect{Top: 1000, Bottom: 1200}, a.Rect())
	assert.False(t, dom.Visible(win, a.Rect()))

	var n int
	id := win.AddEventListener(dom.EventScroll, func(event *dom.Event) {
		n++
		assert.Nil(t, event.Target)
	})
	win.ScrollTo(700)
	assert.Equal(t, 1, n)
	assert.Equal(t, 700.0, win.ScrollY())
	assert.Equal(t, dom.Rect{Top: 300, Bottom: 500}, a.Rect())
	assert.True(t, dom.Visible(win, a.Rect()))

	win.RemoveEventListener(dom.EventScroll, id)
	assert.Equal(t, 0, win.ListenerCount(dom.EventScroll))
	win.ScrollTo(0)
	assert.Equal(t, 1, n)
}

func TestWindow_animationFrame(t *testing.T) {
	win, clock := newTestWindow(t, ``, Config{})
	var at []time.Duration
	win.RequestAnimationFrame(func() { at = append(at, clock.Now().Sub(epoch)) })
	cancel := win.RequestAnimationFrame(func() { t.Error(`canceled frame ran`) })
	cancel()
	cancel()
	clock.Run(time.Second)
	assert.Equal(t, []time.Duration{FrameInterval}, at)
}

func TestVirtualClock(t *testing.T) {
	clock := NewVirtualClock(epoch)
	var got []string
	clock.SetTimeout(func() { got = append(got, `b`) }, 20*time.Millisecond)
	clock.SetTimeout(func() { got = append(got, `a`) }, 10*time.Millisecond)
	clock.SetTimeout(func() {
		got = append(got, `c`)
		clock.SetTimeout(func() { got = append(got, `e`) }, 0)
	}, 20*time.Millisecond)
	clock.SetTimeout(func() { got = append(got, `late`) }, time.Hour)
	assert.True(t, clock.Post(func() { got = append(got, `posted`) }))
	assert.Equal(t, 5, clock.Pending())

	clock.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{`posted`, `a`, `b`, `c`, `e`}, got)
	assert.Equal(t, epoch.Add(20*time.Millisecond), clock.Now())

	assert.False(t, clock.Run(time.Minute))
	assert.Equal(t, 1, clock.Pending())
	assert.True(t, clock.Run(2*time.Hour))
	assert.Equal(t, `late`, got[len(got)-1])
}

func TestVirtualClock_postFromGoroutine(t *testing.T) {
	clock := NewVirtualClock(epoch)
	done := make(chan struct{})
	go func() {
		defer close(done)
		clock.Post(func() {})
	}()
	<-done
	assert.Equal(t, 1, clock.Pending())
	assert.True(t, clock.Run(0))
}

func TestLoopScheduler(t *testing.T) {
	loop, err := eventloop.New()
	require.NoError(t, err)
	js, err := eventloop.NewJS(loop)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- loop.Run(ctx) }()
	defer func() {
		_ = loop.Shutdown(context.Background())
		<-runErr
	}()

	sched := NewLoopScheduler(loop, js)
	fired := make(chan string, 4)
	require.True(t, sched.Post(func() {
		win, err := ParseString(`<img id="a" src="a.jpg">`, &Config{
			Scheduler: sched,
			Network:   StaticNetwork{Default: Resource{Latency: 10 * time.Millisecond}},
		})
		if err != nil {
			fired <- err.Error()
			return
		}
		win.QueryAll(`#a`)[0].AddEventListener(dom.EventLoad, func(*dom.Event) { fired <- `load` })
		stop := sched.SetTimeout(func() { fired <- `canceled` }, 5*time.Millisecond)
		stop()
		stop()
		sched.SetTimeout(func() { fired <- `timeout` }, 30*time.Millisecond)
	}))

	var got []string
	for len(got) < 2 {
		select {
		case v := <-fired:
			got = append(got, v)
		case <-ctx.Done():
			t.Fatal(ctx.Err())
		}
	}
	assert.Equal(t, []string{`load`, `timeout`}, got)
}

func TestNewLoopScheduler_panics(t *testing.T) {
	assert.PanicsWithValue(t, `memdom: nil loop`, func() { NewLoopScheduler(nil, nil) })
	assert.PanicsWithValue(t, `memdom: nil scheduler`, func() { _, _ = ParseString(``, nil) })
}
