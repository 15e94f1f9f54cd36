package main

import (
	"fmt"
	"math"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/justyntemme/stylefx/pkg/framework/debug"
	"github.com/justyntemme/stylefx/pkg/midi"
	"github.com/justyntemme/stylefx/pkg/stylefx"
)

type renderOptions struct {
	In         string
	Out        string
	SampleRate float64
	BlockSize  int
	BPM        float64 // overrides the file tempo when > 0
}

type renderResult struct {
	Tracks   int
	Events   int
	Blocks   int
	Rejected int
	BPM      float64
}

// timed is one message of a track at an absolute time.
type timed struct {
	seconds float64
	msg     []byte
}

// render reads an SMF, streams every track through the plugin in host-sized
// blocks at a constant tempo and writes the result as a new SMF. Meta and
// SysEx messages keep their original position.
func render(p *stylefx.Plugin, opts renderOptions, log *debug.Logger) (renderResult, error) {
	var res renderResult

	in, err := smf.ReadFile(opts.In)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", opts.In, err)
	}
	ticks, ok := in.TimeFormat.(smf.MetricTicks)
	if !ok {
		return res, fmt.Errorf("%s: only metric time formats are supported", opts.In)
	}

	bpm := opts.BPM
	if bpm <= 0 {
		bpm = 120
		if tc := in.TempoChanges(); len(tc) > 0 && tc[0].BPM > 0 {
			bpm = tc[0].BPM
			if len(tc) > 1 {
				log.Warn("%s has %d tempo changes, rendering at %.2f BPM", opts.In, len(tc), bpm)
			}
		}
	}
	res.BPM = bpm

	if err := p.Initialize(opts.SampleRate, int32(opts.BlockSize)); err != nil {
		return res, err
	}

	secondsPerTick := 60 / bpm / float64(ticks.Ticks4th())
	out := smf.New()
	out.TimeFormat = ticks

	for i, track := range in.Tracks {
		notes, passthrough := splitTrack(track, secondsPerTick)
		processed, blocks, rejected := processTrack(p, opts, bpm, notes)
		res.Blocks += blocks
		res.Rejected += rejected
		res.Events += len(processed)

		merged := mergeTimed(passthrough, processed)
		if err := out.Add(buildTrack(merged, secondsPerTick)); err != nil {
			return res, fmt.Errorf("track %d: %w", i, err)
		}
		res.Tracks++
	}

	if err := out.WriteFile(opts.Out); err != nil {
		return res, fmt.Errorf("write %s: %w", opts.Out, err)
	}
	return res, nil
}

func isEndOfTrack(msg []byte) bool {
	return len(msg) >= 2 && msg[0] == 0xFF && msg[1] == 0x2F
}

// splitTrack separates the events the engine handles from the ones it
// passes through untouched.
func splitTrack(track smf.Track, secondsPerTick float64) (notes []midi.Event, passthrough []timed) {
	var abs int64
	for _, ev := range track {
		abs += int64(ev.Delta)
		t := float64(abs) * secondsPerTick
		if isEndOfTrack(ev.Message) {
			continue
		}
		if !ev.Message.IsMeta() {
			if e, ok := midi.FromMessage(gomidi.Message(ev.Message), t); ok {
				notes = append(notes, e)
				continue
			}
		}
		passthrough = append(passthrough, timed{seconds: t, msg: ev.Message})
	}
	return notes, passthrough
}

// processTrack feeds time-ordered events through the plugin block by block.
func processTrack(p *stylefx.Plugin, opts renderOptions, bpm float64, events []midi.Event) (out []timed, blocks, rejected int) {
	if len(events) == 0 {
		return nil, 0, 0
	}
	ctx := p.NewContext()
	ctx.SampleRate = opts.SampleRate
	ctx.Tempo = bpm
	blockDur := float64(opts.BlockSize) / opts.SampleRate

	i := 0
	for block := 0; i < len(events); block++ {
		// skip silent stretches
		if next := int(events[i].Timestamp / blockDur); next > block {
			block = next
		}
		start := float64(block) * blockDur
		end := start + blockDur
		ctx.Begin(start, opts.BlockSize)
		for i < len(events) && events[i].Timestamp < end {
			if !ctx.AddEvent(events[i]) {
				rejected++
			}
			i++
		}
		if ctx.Events().Len() == 0 {
			continue
		}
		p.ProcessBlock(ctx)
		blocks++
		for _, e := range ctx.Events().Events() {
			out = append(out, timed{seconds: e.Timestamp, msg: e.Message()})
		}
	}
	return out, blocks, rejected
}

// mergeTimed merges two lists into one stable time order. Events of a come
// before events of b at equal times.
func mergeTimed(a, b []timed) []timed {
	all := make([]timed, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	for i := 1; i < len(all); i++ {
		x := all[i]
		j := i - 1
		for j >= 0 && all[j].seconds > x.seconds {
			all[j+1] = all[j]
			j--
		}
		all[j+1] = x
	}
	return all
}

func buildTrack(events []timed, secondsPerTick float64) smf.Track {
	var track smf.Track
	var last int64
	for _, e := range events {
		tick := int64(math.Round(e.seconds / secondsPerTick))
		if tick < last {
			tick = last
		}
		track.Add(uint32(tick-last), e.msg)
		last = tick
	}
	track.Close(0)
	return track
}
