// Package style implements the swing, accent and humanize transformations
// applied to note events, the parameter store they read from, and the block
// processor that runs them on the audio thread.
package style

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Parameter IDs as seen by the host.
const (
	ParamSwing uint32 = iota
	ParamAccent
	ParamHumanizeTiming
	ParamHumanizeVelocity
	ParamRemoteEnabled
	ParamRemotePort
)

// Parameter ranges and defaults.
const (
	SwingMin, SwingMax, SwingDefault          = 0.0, 1.0, 0.5
	AccentMin, AccentMax, AccentDefault       = 0.0, 50.0, 20.0
	HumanizeMin, HumanizeMax, HumanizeDefault = 0.0, 1.0, 0.0

	PortMin, PortMax, PortDefault = 1000, 65535, 3819
)

// ErrUnknownPreset is returned for preset names that are not defined.
var ErrUnknownPreset = errors.New("unknown preset")

// Parameters is the value copied into the audio path once per block.
type Parameters struct {
	SwingRatio       float64 // 0.5 is straight, above delays off-beats
	AccentAmount     float64 // velocity units added on the beat
	HumanizeTiming   float64
	HumanizeVelocity float64
	RemoteEnabled    bool
	RemotePort       int
}

// Defaults returns the initial parameter set.
func Defaults() Parameters {
	return Parameters{
		SwingRatio:       SwingDefault,
		AccentAmount:     AccentDefault,
		HumanizeTiming:   HumanizeDefault,
		HumanizeVelocity: HumanizeDefault,
		RemoteEnabled:    false,
		RemotePort:       PortDefault,
	}
}

// Clamp returns p with every field forced into range. NaN fields take the
// default.
func (p Parameters) Clamp() Parameters {
	p.SwingRatio = clampFloat(p.SwingRatio, SwingMin, SwingMax, SwingDefault)
	p.AccentAmount = clampFloat(p.AccentAmount, AccentMin, AccentMax, AccentDefault)
	p.HumanizeTiming = clampFloat(p.HumanizeTiming, HumanizeMin, HumanizeMax, HumanizeDefault)
	p.HumanizeVelocity = clampFloat(p.HumanizeVelocity, HumanizeMin, HumanizeMax, HumanizeDefault)
	if p.RemotePort < PortMin {
		p.RemotePort = PortMin
	} else if p.RemotePort > PortMax {
		p.RemotePort = PortMax
	}
	return p
}

func clampFloat(v, lo, hi, def float64) float64 {
	switch {
	case math.IsNaN(v):
		return def
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

func (p Parameters) String() string {
	return fmt.Sprintf("swing=%.2f accent=%.1f humanize=%.2f/%.2f remote=%t port=%d",
		p.SwingRatio, p.AccentAmount, p.HumanizeTiming, p.HumanizeVelocity, p.RemoteEnabled, p.RemotePort)
}

// Preset is a named combination of the four style values.
type Preset struct {
	Swing            float64
	Accent           float64
	HumanizeTiming   float64
	HumanizeVelocity float64
}

var presets = map[string]Preset{
	"straight":   {0.5, 0, 0, 0},
	"jazz":       {0.7, 25, 0.3, 0.4},
	"classical":  {0.5, 15, 0.2, 0.3},
	"electronic": {0.5, 5, 0, 0},
	"blues":      {0.6, 30, 0.4, 0.5},
}

// LookupPreset finds a preset by case-insensitive name.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// PresetNames returns the defined preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply overlays the preset onto p, leaving the remote settings alone.
func (pr Preset) Apply(p Parameters) Parameters {
	p.SwingRatio = pr.Swing
	p.AccentAmount = pr.Accent
	p.HumanizeTiming = pr.HumanizeTiming
	p.HumanizeVelocity = pr.HumanizeVelocity
	return p.Clamp()
}
