package scroll_test

import (
	"testing"
	"time"

	"github.com/joeycumines/go-introslide/dom"
	"github.com/joeycumines/go-introslide/dom/memdom"
	"github.com/joeycumines/go-introslide/imgprobe"
	"github.com/joeycumines/go-introslide/scroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func newWindow(t *testing.T, markup string, network memdom.Network) (*memdom.Window, *memdom.VirtualClock) {
	t.Helper()
	clock := memdom.NewVirtualClock(epoch)
	if network == nil {
		network = memdom.StaticNetwork{Default: memdom.Resource{Latency: 100 * time.Millisecond}}
	}
	win, err := memdom.ParseString(markup, &memdom.Config{
		Scheduler:   clock,
		Network:     network,
		InnerHeight: 800,
	})
	require.NoError(t, err)
	return win, clock
}

func byID(win *memdom.Window, id string) *memdom.Element {
	return win.QueryAll(`#` + id)[0]
}

func TestThrottle(t *testing.T) {
	win, clock := newWindow(t, ``, nil)
	var at []time.Duration
	th := scroll.NewThrottle(win, func() { at = append(at, clock.Now().Sub(epoch)) })
	th.Trigger()
	th.Trigger()
	clock.Advance(5 * time.Millisecond)
	th.Trigger()
	clock.Run(time.Second)
	assert.Equal(t, []time.Duration{5*time.Millisecond + memdom.FrameInterval}, at)

	th.Trigger()
	th.Stop()
	th.Trigger()
	clock.Run(time.Second)
	assert.Len(t, at, 1)
}

func TestRegistry(t *testing.T) {
	win, _ := newWindow(t, `<img id="a"><img id="b">`, nil)
	a, b := byID(win, `a`), byID(win, `b`)
	pa := imgprobe.New(win, a, nil)
	pb := imgprobe.New(win, b, nil)

	var r scroll.Registry
	assert.Nil(t, r.Get(a))
	r.Put(a, pa)
	r.Put(nil, pb)
	assert.Equal(t, 1, r.Len())
	assert.Same(t, pa, r.Get(a))
	assert.Nil(t, r.Get(b))
	r.Put(b, pb)
	r.Put(a, pb)
	assert.Equal(t, 2, r.Len())
	assert.Same(t, pb, r.Get(a))
}

const lazyMarkup = `<html><body>
<img id="a" class="js-lazy" data-src="a.jpg" data-layout-top="100" data-layout-height="100">
<img id="b" class="js-lazy" data-src="b.jpg" data-layout-top="1000" data-layout-height="100">
<div id="c" class="js-lazy" data-src="c.jpg" data-layout-top="1500" data-layout-height="100"></div>
<img id="d" class="js-lazy" data-src="broken.jpg" data-layout-top="1600" data-layout-height="100">
</body></html>`

func TestLazyLoader(t *testing.T) {
	win, clock := newWindow(t, lazyMarkup, memdom.StaticNetwork{
		Resources: map[string]memdom.Resource{
			`broken.jpg`: {Latency: 100 * time.Millisecond, Fail: true},
		},
		Default: memdom.Resource{Latency: 100 * time.Millisecond},
	})
	a, b, c, d := byID(win, `a`), byID(win, `b`), byID(win, `c`), byID(win, `d`)

	l := scroll.NewLazyLoader(win, win.Document().QuerySelectorAll(`.js-lazy`), nil)
	assert.Equal(t, 4, l.Remaining())

	l.Start()
	l.Start()
	assert.Equal(t, 1, win.ListenerCount(dom.EventScroll))
	assert.Equal(t, `a.jpg`, a.Src())
	assert.Empty(t, b.Src())
	assert.Equal(t, 1, l.Registry().Len())

	clock.Run(time.Second)
	assert.True(t, a.HasClass(scroll.DefaultLoadedClass))

	// burst of scroll events, checked once per frame
	win.ScrollTo(300)
	win.ScrollTo(600)
	assert.Empty(t, b.Src())
	clock.Advance(memdom.FrameInterval)
	assert.Equal(t, `b.jpg`, b.Src())
	assert.Equal(t, 3, l.Remaining())
	clock.Run(time.Second)
	assert.True(t, b.HasClass(scroll.DefaultLoadedClass))

	win.ScrollTo(1000)
	clock.Run(time.Second)
	assert.Equal(t, `c.jpg`, c.Background())
	assert.True(t, c.HasClass(scroll.DefaultLoadedClass))
	assert.Equal(t, `broken.jpg`, d.Src())
	assert.False(t, d.HasClass(scroll.DefaultLoadedClass))
	assert.Equal(t, imgprobe.Failed, l.Registry().Get(d).State())

	l.Check()
	assert.Equal(t, 0, l.Remaining())

	l.Stop()
	assert.Equal(t, 0, win.ListenerCount(dom.EventScroll))
}

func TestLazyLoader_stop(t *testing.T) {
	win, clock := newWindow(t, lazyMarkup, nil)
	l := scroll.NewLazyLoader(win, win.Document().QuerySelectorAll(`.js-lazy`), &scroll.LazyConfig{LoadedClass: `done`})
	l.Start()
	win.ScrollTo(600)
	l.Stop()
	clock.Run(time.Second)
	assert.True(t, byID(win, `a`).HasClass(`done`))
	assert.Empty(t, byID(win, `b`).Src())
	l.Start()
	assert.Equal(t, 0, win.ListenerCount(dom.EventScroll))
}

const fadeMarkup = `<html><body>
<section id="u1" class="js-fade-unit" data-layout-top="100" data-layout-height="100"><p>text</p></section>
<section id="u2" class="js-fade-unit" data-layout-top="300" data-layout-height="200">
<img class="js-lazy" data-src="u2.jpg" data-layout-top="320" data-layout-height="50">
</section>
<section id="u3" class="js-fade-unit" data-layout-top="1000" data-layout-height="200">
<img class="js-lazy" data-src="u3.jpg" data-layout-top="1020" data-layout-height="50">
</section>
</body></html>`

func TestFadeIn(t *testing.T) {
	win, clock := newWindow(t, fadeMarkup, nil)
	u1, u2, u3 := byID(win, `u1`), byID(win, `u2`), byID(win, `u3`)

	l := scroll.NewLazyLoader(win, win.Document().QuerySelectorAll(`.js-lazy`), nil)
	f := scroll.NewFadeIn(win, win.Document().QuerySelectorAll(`.js-fade-unit`), l.Registry(), nil)
	l.Start()
	f.Start()

	assert.True(t, u1.HasClass(scroll.DefaultShowClass))
	assert.False(t, u2.HasClass(scroll.DefaultShowClass))
	assert.Equal(t, 2, f.Remaining())

	clock.Advance(100 * time.Millisecond)
	assert.True(t, u2.HasClass(scroll.DefaultShowClass))
	assert.False(t, u3.HasClass(scroll.DefaultShowClass))

	win.ScrollTo(800)
	clock.Advance(memdom.FrameInterval)
	assert.Equal(t, 1, f.Remaining())
	assert.False(t, u3.HasClass(scroll.DefaultShowClass))
	clock.Run(time.Second)
	assert.True(t, u3.HasClass(scroll.DefaultShowClass))

	f.Check()
	assert.Equal(t, 0, f.Remaining())
}

func TestFadeIn_probeRegisteredLater(t *testing.T) {
	win, clock := newWindow(t, fadeMarkup, nil)
	u2 := byID(win, `u2`)
	l := scroll.NewLazyLoader(win, win.Document().QuerySelectorAll(`.js-lazy`), nil)
	f := scroll.NewFadeIn(win, win.Document().QuerySelectorAll(`.js-fade-unit`), l.Registry(), &scroll.FadeConfig{ShowClass: `shown`})

	f.Start()
	assert.False(t, u2.HasClass(`shown`))
	l.Start()
	clock.Run(time.Second)
	assert.False(t, u2.HasClass(`shown`))

	// the probe is already loaded, so the unit shows immediately
	f.Check()
	assert.True(t, u2.HasClass(`shown`))
}

const mixedMarkup = `<html><body>
<section id="u" class="js-fade-unit" data-layout-top="100" data-layout-height="300">
<img id="a" class="js-lazy" data-src="a.jpg"><img id="b" class="js-lazy" data-src="b.jpg">
</section>
</body></html>`

var mixedNetwork = memdom.NetworkFunc(func(src string) memdom.Resource {
	if src == `a.jpg` {
		return memdom.Resource{Latency: 50 * time.Millisecond, Fail: true}
	}
	return memdom.Resource{Latency: 200 * time.Millisecond}
})

func probeInto(win *memdom.Window, registry *scroll.Registry, id string) *imgprobe.Probe {
	img := byID(win, id)
	p := imgprobe.New(win, img, &imgprobe.Config{Lazy: true})
	registry.Put(img, p)
	p.Check()
	return p
}

func TestFadeIn_imageProbedAfterSiblingFailed(t *testing.T) {
	win, clock := newWindow(t, mixedMarkup, mixedNetwork)
	u := byID(win, `u`)
	var registry scroll.Registry
	f := scroll.NewFadeIn(win, win.Document().QuerySelectorAll(`.js-fade-unit`), &registry, nil)

	pa := probeInto(win, &registry, `a`)
	f.Start()
	clock.Advance(100 * time.Millisecond)
	require.Equal(t, imgprobe.Failed, pa.State())
	assert.False(t, u.HasClass(scroll.DefaultShowClass))

	probeInto(win, &registry, `b`)
	f.Check()
	assert.False(t, u.HasClass(scroll.DefaultShowClass))
	clock.Advance(200 * time.Millisecond)
	assert.True(t, u.HasClass(scroll.DefaultShowClass))
	f.Check()
	assert.Equal(t, 0, f.Remaining())
}

func TestFadeIn_allImagesFailed(t *testing.T) {
	network := memdom.StaticNetwork{Default: memdom.Resource{Latency: 50 * time.Millisecond, Fail: true}}
	for _, tc := range [...]struct {
		Name        string
		FailedFirst bool
	}{
		{Name: `observed then failed`},
		{Name: `failed then observed`, FailedFirst: true},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			win, clock := newWindow(t, mixedMarkup, network)
			u := byID(win, `u`)
			var registry scroll.Registry
			f := scroll.NewFadeIn(win, win.Document().QuerySelectorAll(`.js-fade-unit`), &registry, nil)

			probeInto(win, &registry, `a`)
			probeInto(win, &registry, `b`)
			if tc.FailedFirst {
				clock.Run(time.Second)
				assert.False(t, u.HasClass(scroll.DefaultShowClass))
				f.Start()
			} else {
				f.Start()
				assert.False(t, u.HasClass(scroll.DefaultShowClass))
				clock.Run(time.Second)
			}
			assert.True(t, u.HasClass(scroll.DefaultShowClass))
		})
	}
}

func TestConstructors_panic(t *testing.T) {
	win, _ := newWindow(t, ``, nil)
	assert.PanicsWithValue(t, `scroll: nil window`, func() { scroll.NewThrottle(nil, func() {}) })
	assert.PanicsWithValue(t, `scroll: nil func`, func() { scroll.NewThrottle(win, nil) })
	assert.PanicsWithValue(t, `scroll: nil window`, func() { scroll.NewLazyLoader(nil, nil, nil) })
	assert.PanicsWithValue(t, `scroll: nil registry`, func() { scroll.NewFadeIn(win, nil, nil, nil) })
}
