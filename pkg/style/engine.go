package style

import (
	"math"

	"github.com/justyntemme/stylefx/pkg/midi"
)

const (
	// DefaultTempo is used when the host reports no usable tempo.
	DefaultTempo = 120.0

	// PhaseTolerance is the half-width, in beats, of the windows that count
	// as on the beat or on the off-beat eighth.
	PhaseTolerance = 0.1

	humanizeMaxTiming   = 0.005 // seconds at amount 1
	humanizeMaxVelocity = 10.0  // velocity units at amount 1
)

// Transport is the host timing context for one block.
type Transport struct {
	BPM        float64
	SampleRate float64
}

// Tempo returns the BPM, or DefaultTempo when it is not a positive number.
func (t Transport) Tempo() float64 {
	if t.BPM > 0 && !math.IsInf(t.BPM, 0) {
		return t.BPM
	}
	return DefaultTempo
}

// BeatPhase returns the fractional beat position of time t, in [0, 1).
func BeatPhase(t, bpm float64) float64 {
	beats := t * bpm / 60
	return beats - math.Floor(beats)
}

// OnBeat reports whether a phase falls on the beat.
func OnBeat(phase float64) bool {
	return phase < PhaseTolerance || phase > 1-PhaseTolerance
}

// OffBeat reports whether a phase falls on the eighth-note off-beat.
func OffBeat(phase float64) bool {
	return phase > 0.5-PhaseTolerance && phase < 0.5+PhaseTolerance
}

// ApplySwing delays off-beat Note-Ons by (ratio-0.5) beats, so a ratio of
// 0.7 moves the off-beat eighth to 70% of the beat and 1.0 pushes it a full
// subdivision. Ratios below 0.5 pull it earlier. Every other event is
// returned unchanged.
func ApplySwing(e midi.Event, p Parameters, t Transport) midi.Event {
	if e.Kind != midi.KindNoteOn {
		return e
	}
	bpm := t.Tempo()
	return swing(e, p.SwingRatio, BeatPhase(e.Timestamp, bpm), bpm)
}

// ApplyAccent adds the accent amount to on-beat Note-On velocities.
func ApplyAccent(e midi.Event, p Parameters, t Transport) midi.Event {
	if e.Kind != midi.KindNoteOn {
		return e
	}
	return accent(e, p.AccentAmount, BeatPhase(e.Timestamp, t.Tempo()))
}

func swing(e midi.Event, ratio, phase, bpm float64) midi.Event {
	if ratio == 0.5 || !OffBeat(phase) {
		return nonNegative(e)
	}
	e.Timestamp += (ratio - 0.5) * 60 / bpm
	return nonNegative(e)
}

func accent(e midi.Event, amount, phase float64) midi.Event {
	e = nonNegative(e)
	if amount <= 0 || !OnBeat(phase) {
		return e
	}
	return withVelocity(e, int(e.Velocity)+int(math.Round(amount)))
}

func nonNegative(e midi.Event) midi.Event {
	if e.Timestamp < 0 {
		e.Timestamp = 0
	}
	return e
}

// withVelocity clamps v to [1, 127]; a Note-On must never become an implied
// Note-Off.
func withVelocity(e midi.Event, v int) midi.Event {
	if v < 1 {
		v = 1
	} else if v > 127 {
		v = 127
	}
	e.Velocity = uint8(v)
	e.Data2 = uint8(v)
	return e
}

// Engine runs the transformation pipeline. It owns the random source used by
// humanize, so one Engine must only be used from one goroutine.
type Engine struct {
	rng Rand
}

// NewEngine creates an engine with a seeded random source.
func NewEngine(seed uint64) *Engine {
	e := &Engine{}
	e.rng.Seed(seed)
	return e
}

// Seed resets the random source.
func (en *Engine) Seed(seed uint64) {
	en.rng.Seed(seed)
}

// ApplyHumanize adds bounded random jitter to Note-On timing (up to 5ms) and
// velocity (up to 10). A zero amount leaves that field untouched and draws
// nothing from the random source.
func (en *Engine) ApplyHumanize(e midi.Event, p Parameters, t Transport) midi.Event {
	if e.Kind != midi.KindNoteOn {
		return e
	}
	if p.HumanizeTiming > 0 {
		ts := e.Timestamp + en.rng.Bipolar()*humanizeMaxTiming*p.HumanizeTiming
		if ts < 0 {
			ts = 0
		}
		e.Timestamp = ts
	}
	if p.HumanizeVelocity > 0 {
		d := math.Round(en.rng.Bipolar() * humanizeMaxVelocity * p.HumanizeVelocity)
		if d != 0 {
			e = withVelocity(e, int(e.Velocity)+int(d))
		}
	}
	return e
}

// Transform runs swing, accent and humanize in that order. The accent
// decision uses the beat position before swing moved the note.
func (en *Engine) Transform(e midi.Event, p Parameters, t Transport) midi.Event {
	if e.Kind != midi.KindNoteOn {
		return e
	}
	bpm := t.Tempo()
	phase := BeatPhase(e.Timestamp, bpm)
	e = swing(e, p.SwingRatio, phase, bpm)
	e = accent(e, p.AccentAmount, phase)
	return en.ApplyHumanize(e, p, t)
}
