// Package scenario loads the replay scenarios of the introsim command, which
// describe the simulated browser a page is replayed in.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joeycumines/go-introslide/dom/memdom"
	"github.com/joeycumines/go-introslide/imgprobe"
	"github.com/joeycumines/go-introslide/page"
	"github.com/joeycumines/go-introslide/scroll"
	"github.com/joeycumines/go-introslide/slide"
	"github.com/joeycumines/logiface"
	"gopkg.in/yaml.v3"
)

// Supported formats, see Decode.
const (
	FormatTOML = `toml`
	FormatYAML = `yaml`
	FormatJSON = `json`
)

const (
	DefaultTimeout = time.Minute
	DefaultSettle  = time.Second
)

var (
	// ErrFormat indicates an unsupported file format.
	ErrFormat = errors.New(`scenario: unsupported format`)

	// ErrInvalid indicates the scenario failed validation.
	ErrInvalid = errors.New(`scenario: invalid`)
)

type (
	// Scenario describes a replay. The zero value is valid, replaying with
	// instant image loads, and DefaultTransitions.
	Scenario struct {
		// Timeout bounds the replay. Defaults to DefaultTimeout.
		Timeout Duration `toml:"timeout" yaml:"timeout" json:"timeout"`

		// Settle is how long to keep running after the opening sequence and
		// scroll script complete. Defaults to DefaultSettle.
		Settle Duration `toml:"settle" yaml:"settle" json:"settle"`

		InnerHeight       float64 `toml:"inner_height" yaml:"inner_height" json:"inner_height"`
		QuirkTargetSilent bool    `toml:"quirk_target_silent" yaml:"quirk_target_silent" json:"quirk_target_silent"`

		Dwell          Duration `toml:"dwell" yaml:"dwell" json:"dwell"`
		DisableHide    bool     `toml:"disable_hide" yaml:"disable_hide" json:"disable_hide"`
		DisableOpening bool     `toml:"disable_opening" yaml:"disable_opening" json:"disable_opening"`
		ProbeTimeout   Duration `toml:"probe_timeout" yaml:"probe_timeout" json:"probe_timeout"`

		Network     Network      `toml:"network" yaml:"network" json:"network"`
		Cached      []string     `toml:"cached" yaml:"cached" json:"cached"`
		Transitions []Transition `toml:"transitions" yaml:"transitions" json:"transitions"`
		Scroll      []ScrollStep `toml:"scroll" yaml:"scroll" json:"scroll"`
	}

	Network struct {
		Latency   Duration   `toml:"latency" yaml:"latency" json:"latency"`
		Resources []Resource `toml:"resources" yaml:"resources" json:"resources"`
	}

	Resource struct {
		Src     string   `toml:"src" yaml:"src" json:"src"`
		Latency Duration `toml:"latency" yaml:"latency" json:"latency"`
		Width   int      `toml:"width" yaml:"width" json:"width"`
		Fail    bool     `toml:"fail" yaml:"fail" json:"fail"`
	}

	Transition struct {
		Selector string   `toml:"selector" yaml:"selector" json:"selector"`
		Class    string   `toml:"class" yaml:"class" json:"class"`
		Terminal string   `toml:"terminal" yaml:"terminal" json:"terminal"`
		Duration Duration `toml:"duration" yaml:"duration" json:"duration"`
	}

	// ScrollStep scrolls the window to Y, At after the replay started.
	ScrollStep struct {
		At Duration `toml:"at" yaml:"at" json:"at"`
		Y  float64  `toml:"y" yaml:"y" json:"y"`
	}

	// Duration is a time.Duration that decodes from strings like "150ms".
	Duration time.Duration
)

// DefaultTransitions models the stylesheet the slide classes are written
// for.
func DefaultTransitions() []Transition {
	return []Transition{
		{Selector: slide.DefaultSlideSelector, Class: slide.DefaultAnimatingClass, Terminal: slide.DefaultTerminalSelector, Duration: Duration(800 * time.Millisecond)},
		{Selector: slide.DefaultSlideSelector, Class: slide.DefaultHideClass, Duration: Duration(500 * time.Millisecond)},
	}
}

// Load reads a scenario file, the format is chosen by extension.
func Load(path string) (*Scenario, error) {
	var format string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case `.toml`:
		format = FormatTOML
	case `.yaml`, `.yml`:
		format = FormatYAML
	case `.json`:
		format = FormatJSON
	default:
		return nil, fmt.Errorf(`%w: extension %q`, ErrFormat, ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, format)
}

// Decode reads and validates a scenario.
func Decode(r io.Reader, format string) (*Scenario, error) {
	var (
		s   Scenario
		err error
	)
	switch format {
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&s)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&s)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatJSON:
		d := json.NewDecoder(r)
		d.DisallowUnknownFields()
		err = d.Decode(&s)
	default:
		return nil, fmt.Errorf(`%w: %q`, ErrFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf(`scenario: decode %s: %w`, format, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks for values that can't be replayed.
func (x *Scenario) Validate() error {
	for _, d := range [...]struct {
		name  string
		value Duration
	}{
		{`timeout`, x.Timeout},
		{`settle`, x.Settle},
		{`probe_timeout`, x.ProbeTimeout},
		{`network.latency`, x.Network.Latency},
	} {
		if d.value < 0 {
			return fmt.Errorf(`%w: negative %s`, ErrInvalid, d.name)
		}
	}
	if x.InnerHeight < 0 {
		return fmt.Errorf(`%w: negative inner_height`, ErrInvalid)
	}
	for i, r := range x.Network.Resources {
		if r.Src == `` {
			return fmt.Errorf(`%w: network.resources[%d]: missing src`, ErrInvalid, i)
		}
		if r.Latency < 0 || r.Width < 0 {
			return fmt.Errorf(`%w: network.resources[%d]: negative value`, ErrInvalid, i)
		}
	}
	for i, t := range x.Transitions {
		if t.Class == `` {
			return fmt.Errorf(`%w: transitions[%d]: missing class`, ErrInvalid, i)
		}
		if t.Duration < 0 {
			return fmt.Errorf(`%w: transitions[%d]: negative duration`, ErrInvalid, i)
		}
	}
	for i, step := range x.Scroll {
		if step.At < 0 {
			return fmt.Errorf(`%w: scroll[%d]: negative at`, ErrInvalid, i)
		}
	}
	return nil
}

// TimeoutOrDefault returns the timeout, applying DefaultTimeout.
func (x *Scenario) TimeoutOrDefault() time.Duration {
	if x.Timeout == 0 {
		return DefaultTimeout
	}
	return time.Duration(x.Timeout)
}

// SettleOrDefault returns the settle period, applying DefaultSettle.
func (x *Scenario) SettleOrDefault() time.Duration {
	if x.Settle == 0 {
		return DefaultSettle
	}
	return time.Duration(x.Settle)
}

// WindowConfig builds the configuration of the simulated browser.
func (x *Scenario) WindowConfig(scheduler memdom.Scheduler, logger *logiface.Logger[logiface.Event], onMutation func(m memdom.Mutation)) *memdom.Config {
	network := memdom.StaticNetwork{
		Resources: make(map[string]memdom.Resource, len(x.Network.Resources)),
		Default:   memdom.Resource{Latency: time.Duration(x.Network.Latency)},
	}
	for _, r := range x.Network.Resources {
		network.Resources[r.Src] = memdom.Resource{
			Latency: time.Duration(r.Latency),
			Width:   r.Width,
			Fail:    r.Fail,
		}
	}
	transitions := x.Transitions
	if len(transitions) == 0 {
		transitions = DefaultTransitions()
	}
	config := memdom.Config{
		Scheduler:         scheduler,
		Network:           network,
		Logger:            logger,
		OnMutation:        onMutation,
		Cached:            append([]string(nil), x.Cached...),
		InnerHeight:       x.InnerHeight,
		QuirkTargetSilent: x.QuirkTargetSilent,
	}
	for _, t := range transitions {
		config.Transitions = append(config.Transitions, memdom.Transition{
			Selector: t.Selector,
			Class:    t.Class,
			Terminal: t.Terminal,
			Duration: time.Duration(t.Duration),
		})
	}
	return &config
}

// PageConfig builds the configuration of the presentation layer.
func (x *Scenario) PageConfig(logger *logiface.Logger[logiface.Event]) *page.Config {
	probe := imgprobe.Config{Timeout: time.Duration(x.ProbeTimeout)}
	return &page.Config{
		Logger: logger,
		Slide: &slide.Config{
			Probe:       &probe,
			Dwell:       time.Duration(x.Dwell),
			DisableHide: x.DisableHide,
		},
		Lazy:           &scroll.LazyConfig{Probe: &probe},
		DisableOpening: x.DisableOpening,
		DeferScroll:    true,
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (x *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*x = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (x Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(x).String()), nil
}

// String returns the duration, formatted like time.Duration.
func (x Duration) String() string { return time.Duration(x).String() }
