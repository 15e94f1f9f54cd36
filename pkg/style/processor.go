package style

import (
	"math"
	"time"

	"github.com/justyntemme/stylefx/pkg/framework/debug"
	"github.com/justyntemme/stylefx/pkg/framework/process"
	"github.com/justyntemme/stylefx/pkg/midi"
)

// Processor applies the style pipeline to one block of events at a time. It
// must be driven from a single goroutine, normally the audio callback.
type Processor struct {
	store       *Store
	engine      *Engine
	fallbackBPM float64
	stats       debug.BlockStats
}

// NewProcessor creates a processor reading from store.
func NewProcessor(store *Store, seed uint64) *Processor {
	return &Processor{
		store:       store,
		engine:      NewEngine(seed),
		fallbackBPM: DefaultTempo,
	}
}

// SetFallbackTempo sets the tempo used when the host reports none.
// Non-positive values are ignored.
func (p *Processor) SetFallbackTempo(bpm float64) {
	if bpm > 0 && !math.IsInf(bpm, 0) {
		p.fallbackBPM = bpm
	}
}

// Engine exposes the processor's engine, e.g. for reseeding.
func (p *Processor) Engine() *Engine {
	return p.engine
}

// Stats returns the block timing statistics.
func (p *Processor) Stats() *debug.BlockStats {
	return &p.stats
}

// ApplyStyle transforms every event in buf and re-sorts the buffer by
// timestamp. Events that end up simultaneous keep their input order, and
// the event count never changes. A Note-On is never moved past its own
// Note-Off within the block.
func (p *Processor) ApplyStyle(buf *midi.Buffer, params Parameters, t Transport) {
	if t.BPM <= 0 || math.IsNaN(t.BPM) || math.IsInf(t.BPM, 0) {
		t.BPM = p.fallbackBPM
	}
	events := buf.Events()
	for i := range events {
		orig := events[i].Timestamp
		events[i] = p.engine.Transform(events[i], params, t)
		if events[i].Kind == midi.KindNoteOn && events[i].Timestamp > orig {
			capAtNoteOff(events, i, orig)
		}
	}
	buf.SortByTime()
}

// capAtNoteOff keeps a delayed Note-On from passing the Note-Off that ends
// it in the same block. The pair is the earliest Note-Off for the same
// channel and note after the Note-On's original time.
func capAtNoteOff(events []midi.Event, i int, orig float64) {
	on := &events[i]
	end := -1.0
	for j := range events {
		off := &events[j]
		if off.Kind != midi.KindNoteOff || off.Channel != on.Channel || off.Note != on.Note {
			continue
		}
		if off.Timestamp > orig && (end < 0 || off.Timestamp < end) {
			end = off.Timestamp
		}
	}
	if end >= 0 && on.Timestamp > end {
		on.Timestamp = end
	}
}

// ProcessBlock is the audio-thread entry point. It reads the parameter
// snapshot once, transforms the context's events in place and recomputes
// their sample offsets. Audio buffers are not touched.
func (p *Processor) ProcessBlock(ctx *process.Context) {
	start := time.Now()

	params := p.store.Snapshot()
	buf := ctx.Events()
	p.ApplyStyle(buf, params, Transport{BPM: ctx.Tempo, SampleRate: ctx.SampleRate})

	events := buf.Events()
	for i := range events {
		events[i].Offset = ctx.SampleOffset(events[i].Timestamp)
	}

	p.stats.Record(time.Since(start), len(events))
}
