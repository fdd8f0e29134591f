package memdom

import (
	"time"
)

type (
	// Resource describes how a simulated image fetch behaves.
	Resource struct {
		// Latency is the delay before the load or error event fires.
		Latency time.Duration

		// Width is the natural width of the image, once loaded.
		// Defaults to 1, if 0, as a loaded image always has a non-zero
		// natural width.
		Width int

		// Fail indicates that the fetch errors.
		Fail bool
	}

	// Network decides the outcome of image fetches.
	Network interface {
		Fetch(src string) Resource
	}

	// StaticNetwork is a [Network] backed by a map.
	StaticNetwork struct {
		// Resources is keyed by source URL.
		Resources map[string]Resource

		// Default is used for any source not in Resources.
		Default Resource
	}

	// NetworkFunc adapts a function to a [Network].
	NetworkFunc func(src string) Resource
)

var (
	// compile time assertions

	_ Network = StaticNetwork{}
	_ Network = NetworkFunc(nil)
)

// Fetch implements [Network].
func (x StaticNetwork) Fetch(src string) Resource {
	if v, ok := x.Resources[src]; ok {
		return v
	}
	return x.Default
}

// Fetch implements [Network].
func (x NetworkFunc) Fetch(src string) Resource { return x(src) }

func (x Resource) width() int {
	if x.Width > 0 {
		return x.Width
	}
	return 1
}
