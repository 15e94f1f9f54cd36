package style

import (
	"math"
	"testing"
	"time"

	"github.com/justyntemme/stylefx/pkg/framework/process"
	"github.com/justyntemme/stylefx/pkg/midi"
)

func newProcessor(t testing.TB) (*Store, *Processor) {
	t.Helper()
	s, err := NewStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	return s, NewProcessor(s, 1)
}

func TestApplyStyleReordersStably(t *testing.T) {
	s, p := newProcessor(t)
	s.Set(ParamSwing, 1) // off-beat at 0.25 moves to 0.5
	s.Set(ParamAccent, 0)

	buf := midi.NewBuffer(8)
	buf.Add(midi.NoteOn(1, 60, 80, 0.25)) // swung to 0.5
	buf.Add(midi.NoteOn(1, 62, 80, 0.5))
	buf.Add(midi.ControlChange(1, 1, 10, 0.5))
	buf.Add(midi.NoteOff(1, 62, 0, 0.4))

	p.ApplyStyle(buf, s.Snapshot(), Transport{BPM: 120})

	events := buf.Events()
	if len(events) != 4 {
		t.Fatalf("event count %d, want 4", len(events))
	}
	order := []struct {
		kind midi.Kind
		note uint8
	}{
		{midi.KindNoteOff, 62},
		{midi.KindNoteOn, 60},
		{midi.KindNoteOn, 62},
		{midi.KindOther, 0},
	}
	for i, want := range order {
		if events[i].Kind != want.kind || events[i].Note != want.note {
			t.Errorf("position %d: %v", i, events[i])
		}
	}
}

func TestApplyStyleKeepsNoteOnBeforeItsNoteOff(t *testing.T) {
	s, p := newProcessor(t)
	s.Set(ParamSwing, 0.7) // off-beat at 0.25 moves to 0.35
	s.Set(ParamAccent, 0)

	buf := midi.NewBuffer(4)
	buf.Add(midi.NoteOn(1, 64, 90, 0.25))
	buf.Add(midi.NoteOff(1, 64, 0, 0.30))
	buf.Add(midi.NoteOn(2, 64, 90, 0.25)) // other channel, not capped

	p.ApplyStyle(buf, s.Snapshot(), Transport{BPM: 120})

	events := buf.Events()
	if events[0].Kind != midi.KindNoteOn || events[0].Channel != 1 {
		t.Fatalf("first event = %v, want the channel 1 Note-On", events[0])
	}
	if math.Abs(events[0].Timestamp-0.30) > 1e-12 {
		t.Errorf("Note-On timestamp = %f, want capped at 0.30", events[0].Timestamp)
	}
	if events[1].Kind != midi.KindNoteOff {
		t.Errorf("second event = %v, want the Note-Off", events[1])
	}
	if math.Abs(events[2].Timestamp-0.35) > 1e-12 {
		t.Errorf("unpaired Note-On timestamp = %f, want 0.35", events[2].Timestamp)
	}
}

func TestApplyStyleFallbackTempo(t *testing.T) {
	s, p := newProcessor(t)
	s.Set(ParamSwing, 0.75)
	p.SetFallbackTempo(60)

	buf := midi.NewBuffer(1)
	buf.Add(midi.NoteOn(1, 60, 80, 0.5)) // off-beat at 60 BPM
	p.ApplyStyle(buf, s.Snapshot(), Transport{BPM: 0})

	if got := buf.Events()[0].Timestamp; math.Abs(got-0.75) > 1e-12 {
		t.Errorf("timestamp = %f, want 0.75", got)
	}
}

func newBlock(t testing.TB, n int) *process.Context {
	t.Helper()
	ctx := process.NewContext(n)
	ctx.SampleRate = 48000
	ctx.Tempo = 120
	ctx.Begin(0, 512)
	return ctx
}

func fillBlock(ctx *process.Context, n int) {
	ctx.Begin(ctx.BlockStart, ctx.NumSamples())
	for i := 0; i < n; i++ {
		offset := i * ctx.NumSamples() / n
		ctx.AddEvent(midi.NoteOn(uint8(i%16)+1, uint8(i%128), 100, ctx.TimeAt(offset)))
	}
}

func TestProcessBlock(t *testing.T) {
	s, p := newProcessor(t)
	s.Set(ParamAccent, 15)

	ctx := newBlock(t, 4)
	ctx.Input = [][]float32{{0.5, 0.25}}
	ctx.Output = [][]float32{{0.1, 0.2}}
	ctx.AddEvent(midi.NoteOn(1, 60, 80, ctx.TimeAt(0)))
	ctx.AddEvent(midi.NoteOn(1, 64, 80, ctx.TimeAt(100)))

	p.ProcessBlock(ctx)

	events := ctx.Events().Events()
	if events[0].Velocity != 95 {
		t.Errorf("downbeat velocity = %d, want 95", events[0].Velocity)
	}
	if events[1].Offset != 100 {
		t.Errorf("offset = %d, want 100", events[1].Offset)
	}
	if ctx.Input[0][0] != 0.5 || ctx.Output[0][0] != 0.1 || ctx.Output[0][1] != 0.2 {
		t.Error("audio buffers were modified")
	}
	if sum := p.Stats().Summary(); sum.Blocks != 1 || sum.Events != 2 {
		t.Errorf("stats = %v", sum)
	}
}

func TestProcessBlockClampsOffsetsToBlock(t *testing.T) {
	s, p := newProcessor(t)
	s.Set(ParamSwing, 1)

	// A 256-sample block at 48kHz ending before the swung note lands
	ctx := newBlock(t, 1)
	ctx.Begin(0.24, 256)
	ctx.AddEvent(midi.NoteOn(1, 60, 80, 0.25))

	p.ProcessBlock(ctx)

	if got := ctx.Events().Events()[0].Offset; got != 255 {
		t.Errorf("offset = %d, want 255", got)
	}
}

func TestProcessBlockSeesChangesNextBlock(t *testing.T) {
	s, p := newProcessor(t)
	s.Set(ParamAccent, 0)

	ctx := newBlock(t, 1)
	ctx.AddEvent(midi.NoteOn(1, 60, 80, 0))
	p.ProcessBlock(ctx)
	if v := ctx.Events().Events()[0].Velocity; v != 80 {
		t.Fatalf("velocity = %d", v)
	}

	s.Set(ParamAccent, 10)

	ctx.Begin(0, 512)
	ctx.AddEvent(midi.NoteOn(1, 60, 80, 0))
	p.ProcessBlock(ctx)
	if v := ctx.Events().Events()[0].Velocity; v != 90 {
		t.Errorf("velocity = %d, want 90", v)
	}
}

func TestProcessBlockThousandEvents(t *testing.T) {
	s, p := newProcessor(t)
	s.ApplyPreset("jazz")

	ctx := newBlock(t, 1000)
	fillBlock(ctx, 1000)

	start := time.Now()
	p.ProcessBlock(ctx)
	elapsed := time.Since(start)

	if n := ctx.Events().Len(); n != 1000 {
		t.Fatalf("event count %d, want 1000", n)
	}
	// Generous bound for slow CI machines
	if elapsed > 50*time.Millisecond {
		t.Errorf("1000 events took %v", elapsed)
	}
	t.Logf("1000 events: %v", elapsed)
}

func TestProcessBlockDoesNotAllocate(t *testing.T) {
	s, p := newProcessor(t)
	s.ApplyPreset("blues")

	ctx := newBlock(t, 256)
	allocs := testing.AllocsPerRun(50, func() {
		fillBlock(ctx, 256)
		p.ProcessBlock(ctx)
	})
	if allocs != 0 {
		t.Errorf("expected 0 allocations, got %f", allocs)
	}
}

func BenchmarkProcessBlock1000(b *testing.B) {
	s, p := newProcessor(b)
	s.ApplyPreset("jazz")
	ctx := newBlock(b, 1000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fillBlock(ctx, 1000)
		p.ProcessBlock(ctx)
	}
}
