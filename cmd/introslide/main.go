//go:build js && wasm

// Command introslide runs the page's presentation layer, compiled to
// WebAssembly, and loaded by the page itself.
//
// The opening sequence starts immediately, while lazy loading and fade-in
// start on the window's `load` event. Everything is released on `pagehide`.
package main

import (
	"context"
	"os"

	"github.com/joeycumines/go-introslide/dom"
	"github.com/joeycumines/go-introslide/dom/jsdom"
	"github.com/joeycumines/go-introslide/page"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func main() {
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stdout)),
		stumpy.L.WithLevel(logiface.LevelInformational),
	).Logger()

	win := jsdom.New()
	p := page.Init(context.Background(), win, &page.Config{
		Logger:      logger,
		DeferScroll: true,
	})

	// the presentation lives as long as the page, and is torn down on
	// navigation, releasing every js.Func
	done := make(chan struct{})
	win.AddEventListener(dom.EventPageHide, func(*dom.Event) {
		p.Close()
		win.Close()
		close(done)
	})
	<-done
}
