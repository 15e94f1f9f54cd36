// Package plugin provides the pieces every plugin instance shares: metadata,
// a parameter registry and the processor contract. State persistence belongs
// to whatever owns the parameter snapshot, not to Base.
package plugin

import (
	"fmt"

	"github.com/justyntemme/stylefx/pkg/framework/param"
	"github.com/justyntemme/stylefx/pkg/framework/process"
)

// Processor is implemented by plugin instances that the host drives.
type Processor interface {
	// Initialize is called before processing starts.
	Initialize(sampleRate float64, maxBlockSize int32) error

	// ProcessBlock runs on the audio thread - zero allocations allowed!
	ProcessBlock(ctx *process.Context)

	// Parameters returns the host-visible parameters.
	Parameters() *param.Registry

	// SetActive is called when processing is switched on or off.
	SetActive(active bool) error
}

// Base provides core functionality for all plugins
type Base struct {
	Info   Info
	params *param.Registry

	sampleRate   float64
	maxBlockSize int32
	active       bool
}

// NewBase creates a new plugin base
func NewBase(info Info) *Base {
	return &Base{
		Info:       info,
		params:     param.NewRegistry(),
		sampleRate: 44100,
	}
}

// Parameters returns the parameter registry for configuration
func (b *Base) Parameters() *param.Registry {
	return b.params
}

// Initialize records the host's processing setup.
func (b *Base) Initialize(sampleRate float64, maxBlockSize int32) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %f", sampleRate)
	}
	if maxBlockSize <= 0 {
		return fmt.Errorf("invalid max block size %d", maxBlockSize)
	}
	b.sampleRate = sampleRate
	b.maxBlockSize = maxBlockSize
	return nil
}

// SampleRate returns the current sample rate
func (b *Base) SampleRate() float64 {
	return b.sampleRate
}

// MaxBlockSize returns the largest block the host announced.
func (b *Base) MaxBlockSize() int32 {
	return b.maxBlockSize
}

// SetActive records the activation state.
func (b *Base) SetActive(active bool) error {
	b.active = active
	return nil
}

// Active reports whether the host has activated processing.
func (b *Base) Active() bool {
	return b.active
}
