package scroll

import (
	"github.com/joeycumines/go-introslide/dom"
	"github.com/joeycumines/go-introslide/imgprobe"
)

// Registry associates elements with their probes, allowing FadeIn to observe
// the probes created by LazyLoader. The zero value is ready to use.
//
// Elements are compared with [dom.Equal], as host wrappers need not be
// comparable.
type Registry struct {
	entries []registryEntry
}

type registryEntry struct {
	element dom.Element
	probe   *imgprobe.Probe
}

// Get returns the probe for element, or nil.
func (x *Registry) Get(element dom.Element) *imgprobe.Probe {
	if i := x.index(element); i >= 0 {
		return x.entries[i].probe
	}
	return nil
}

// Put sets the probe for element, replacing any existing entry.
func (x *Registry) Put(element dom.Element, probe *imgprobe.Probe) {
	if element == nil {
		return
	}
	if i := x.index(element); i >= 0 {
		x.entries[i].probe = probe
		return
	}
	x.entries = append(x.entries, registryEntry{element: element, probe: probe})
}

// Len returns the number of entries.
func (x *Registry) Len() int { return len(x.entries) }

func (x *Registry) index(element dom.Element) int {
	for i, e := range x.entries {
		if dom.Equal(e.element, element) {
			return i
		}
	}
	return -1
}
