// Package process provides the per-block processing context handed to a
// MIDI effect by the host.
package process

import (
	"math"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/justyntemme/stylefx/pkg/midi"
)

// Context carries everything one processing call needs with zero
// allocations: audio buffers (read-only for a MIDI effect), transport, block
// position and a pre-allocated event buffer.
type Context struct {
	Input      [][]float32
	Output     [][]float32
	SampleRate float64
	Tempo      float64 // beats per minute as reported by the host

	// BlockStart is the host timeline position of the first sample, in seconds.
	BlockStart float64

	numSamples int
	events     *midi.Buffer
	rejected   uint64
}

// NewContext creates a context able to hold maxEvents events per block.
func NewContext(maxEvents int) *Context {
	return &Context{
		SampleRate: 44100,
		Tempo:      120,
		events:     midi.NewBuffer(maxEvents),
	}
}

// Begin starts a new block: it sets the block position and length and
// empties the event buffer. Audio buffers are left as the caller set them.
func (c *Context) Begin(blockStart float64, numSamples int) {
	c.BlockStart = blockStart
	c.numSamples = numSamples
	c.events.Reset()
}

// NumSamples returns the number of samples in the block. Without an explicit
// Begin it falls back to the audio buffer length.
func (c *Context) NumSamples() int {
	if c.numSamples > 0 {
		return c.numSamples
	}
	if len(c.Input) > 0 && len(c.Input[0]) > 0 {
		return len(c.Input[0])
	}
	if len(c.Output) > 0 && len(c.Output[0]) > 0 {
		return len(c.Output[0])
	}
	return 0
}

// NumInputChannels returns the number of input channels
func (c *Context) NumInputChannels() int {
	return len(c.Input)
}

// NumOutputChannels returns the number of output channels
func (c *Context) NumOutputChannels() int {
	return len(c.Output)
}

// Events returns the block's event buffer.
func (c *Context) Events() *midi.Buffer {
	return c.events
}

// AddEvent queues an event. It returns false when the buffer is full.
func (c *Context) AddEvent(e midi.Event) bool {
	if !c.events.Add(e) {
		c.rejected++
		return false
	}
	return true
}

// AddMessage decodes a wire message at a sample offset within the block and
// queues it. Messages the engine cannot represent (SysEx) are rejected.
func (c *Context) AddMessage(msg gomidi.Message, sampleOffset int) bool {
	e, ok := midi.FromMessage(msg, c.TimeAt(sampleOffset))
	if !ok {
		c.rejected++
		return false
	}
	e.Offset = int32(sampleOffset)
	return c.AddEvent(e)
}

// Rejected returns how many events could not be queued since creation.
func (c *Context) Rejected() uint64 {
	return c.rejected
}

// TimeAt converts a sample offset in this block to host time in seconds.
func (c *Context) TimeAt(sampleOffset int) float64 {
	if c.SampleRate <= 0 {
		return c.BlockStart
	}
	return c.BlockStart + float64(sampleOffset)/c.SampleRate
}

// SampleOffset converts host time to a sample offset in this block, clamped
// to [0, NumSamples-1].
func (c *Context) SampleOffset(t float64) int32 {
	n := c.NumSamples()
	if n <= 0 {
		return 0
	}
	// Tolerate float error from the TimeAt round trip
	off := int(math.Floor((t-c.BlockStart)*c.SampleRate + 1e-6))
	if off < 0 {
		return 0
	}
	if off > n-1 {
		return int32(n - 1)
	}
	return int32(off)
}
