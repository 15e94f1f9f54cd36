// Package param provides the host parameter interface: named, ranged
// parameters whose values can be read from the audio thread without locking.
package param

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Parameter represents a plugin parameter
type Parameter struct {
	ID           uint32
	Name         string
	ShortName    string
	Unit         string
	Min          float64
	Max          float64
	DefaultValue float64 // normalized
	StepCount    int32
	Flags        uint32

	// Normalized value as float64 bits, for lock-free access in the audio thread
	value atomic.Uint64

	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// CanAutomate marks a parameter the host may record and play back.
const CanAutomate uint32 = 1 << 0

// GetValue returns the current normalized value (0-1)
func (p *Parameter) GetValue() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue sets the normalized value, clamped to 0-1. Stepped parameters
// snap to the nearest step. NaN resets the parameter to its default.
func (p *Parameter) SetValue(value float64) {
	if math.IsNaN(value) {
		value = p.DefaultValue
	}
	if value < 0 {
		value = 0
	} else if value > 1 {
		value = 1
	}
	if p.StepCount > 0 {
		steps := float64(p.StepCount)
		value = math.Round(value*steps) / steps
	}
	p.value.Store(math.Float64bits(value))
}

// GetPlainValue converts normalized to plain value
func (p *Parameter) GetPlainValue() float64 {
	return p.Denormalize(p.GetValue())
}

// SetPlainValue converts plain to normalized value. Out-of-range values are
// clamped, never rejected.
func (p *Parameter) SetPlainValue(plain float64) {
	if math.IsNaN(plain) {
		p.SetValue(math.NaN())
		return
	}
	p.SetValue(p.Normalize(plain))
}

// Reset restores the default value
func (p *Parameter) Reset() {
	p.SetValue(p.DefaultValue)
}

// Clamp limits a plain value to the parameter range
func (p *Parameter) Clamp(plain float64) float64 {
	return p.Denormalize(p.Normalize(plain))
}

// FormatValue returns formatted parameter value
func (p *Parameter) FormatValue(normalized float64) string {
	plain := p.Denormalize(normalized)
	if p.formatFunc != nil {
		return p.formatFunc(plain)
	}
	if p.StepCount > 0 {
		return fmt.Sprintf("%.0f", plain)
	}
	return fmt.Sprintf("%.2f", plain)
}

// ParseValue parses string to normalized value
func (p *Parameter) ParseValue(str string) (float64, error) {
	parse := p.parseFunc
	if parse == nil {
		parse = func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
	}
	plain, err := parse(str)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", p.Name, err)
	}
	return p.Normalize(plain), nil
}

// Normalize converts plain value to normalized (0-1)
func (p *Parameter) Normalize(plain float64) float64 {
	if p.Max <= p.Min || math.IsNaN(plain) {
		return 0
	}
	normalized := (plain - p.Min) / (p.Max - p.Min)
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

// Denormalize converts normalized (0-1) to plain value
func (p *Parameter) Denormalize(normalized float64) float64 {
	plain := p.Min + normalized*(p.Max-p.Min)
	// Integer-stepped ranges come back exact so ports and toggles round-trip
	if p.StepCount > 0 && p.StepCount == int32(p.Max-p.Min) {
		plain = math.Round(plain)
	}
	return plain
}
