package remote

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/justyntemme/stylefx/pkg/framework/process"
	"github.com/justyntemme/stylefx/pkg/midi"
	"github.com/justyntemme/stylefx/pkg/style"
)

func newStore(t *testing.T) *style.Store {
	t.Helper()
	s, err := style.NewStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDrainDispatch(t *testing.T) {
	store := newStore(t)
	ring := NewRing(16)
	d := NewDrain(ring, store, 30, quiet)

	ring.Push(Message{Path: PathSwing, Value: 0.75})
	ring.Push(Message{Path: PathAccent, Value: 500})
	ring.Push(Message{Path: PathHumanizeTiming, Value: 0.5})
	ring.Push(Message{Path: PathHumanizeVelocity, Value: -1})
	ring.Push(Message{Path: PathEnable, Value: 1, IsBool: true})
	ring.Push(Message{Path: PathPort, Value: 4242})
	ring.Push(Message{Path: "/style/tempo", Value: 140})
	ring.Push(Message{Path: "/style/" + strings.Repeat("a", MaxPathLen), Value: 1})

	if n := d.Tick(); n != 6 {
		t.Errorf("Tick applied %d, want 6", n)
	}

	p := store.Snapshot()
	if math.Abs(p.SwingRatio-0.75) > 1e-9 {
		t.Errorf("swing = %f", p.SwingRatio)
	}
	if p.AccentAmount != 50 {
		t.Errorf("accent = %f, want clamped 50", p.AccentAmount)
	}
	if math.Abs(p.HumanizeTiming-0.5) > 1e-9 {
		t.Errorf("humanize timing = %f", p.HumanizeTiming)
	}
	if p.HumanizeVelocity != 0 {
		t.Errorf("humanize velocity = %f, want clamped 0", p.HumanizeVelocity)
	}
	if !p.RemoteEnabled || p.RemotePort != 4242 {
		t.Errorf("remote = %v %d", p.RemoteEnabled, p.RemotePort)
	}
	if d.Applied() != 6 || d.Unknown() != 2 {
		t.Errorf("applied=%d unknown=%d", d.Applied(), d.Unknown())
	}
}

func TestDrainEnableUsesNonZero(t *testing.T) {
	store := newStore(t)
	ring := NewRing(4)
	d := NewDrain(ring, store, 30, quiet)

	ring.Push(Message{Path: PathEnable, Value: 0.2})
	d.Tick()
	if !store.Snapshot().RemoteEnabled {
		t.Error("non-zero value should enable")
	}
	ring.Push(Message{Path: PathEnable, Value: 0, IsBool: true})
	d.Tick()
	if store.Snapshot().RemoteEnabled {
		t.Error("zero should disable")
	}
}

func TestDrainRoundTripToProcessor(t *testing.T) {
	store := newStore(t)
	store.Set(style.ParamAccent, 0)
	ring := NewRing(16)
	d := NewDrain(ring, store, 30, quiet)
	proc := style.NewProcessor(store, 1)

	ctx := process.NewContext(4)
	ctx.SampleRate = 48000
	ctx.Tempo = 120

	block := func() uint8 {
		ctx.Begin(0, 256)
		ctx.AddEvent(midi.NoteOn(1, 60, 80, 0))
		proc.ProcessBlock(ctx)
		return ctx.Events().Events()[0].Velocity
	}

	if v := block(); v != 80 {
		t.Fatalf("velocity before = %d", v)
	}

	ring.Push(Message{Path: PathAccent, Value: 10})
	if v := block(); v != 80 {
		t.Errorf("change visible before drain: %d", v)
	}
	d.Tick()
	if v := block(); v != 90 {
		t.Errorf("velocity after drain = %d, want 90", v)
	}
}

func TestDrainOverload(t *testing.T) {
	store := newStore(t)
	ring := NewRing(32)
	d := NewDrain(ring, store, 30, quiet)

	const total = 32 * 50
	start := time.Now()
	for i := 0; i < total; i++ {
		ring.Push(Message{Path: PathSwing, Value: float64(i) / total})
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("pushing %d messages took %v", total, elapsed)
	}

	applied := d.Tick()
	if applied != 32 {
		t.Errorf("applied %d, want ring capacity 32", applied)
	}
	if ring.Overruns() != total-32 {
		t.Errorf("overruns = %d, want %d", ring.Overruns(), total-32)
	}

	last := float64(total-1) / total
	if got := store.Snapshot().SwingRatio; math.Abs(got-last) > 1e-9 {
		t.Errorf("swing = %f, want last pushed %f", got, last)
	}
	if p := store.Snapshot(); p != p.Clamp() {
		t.Errorf("store out of range: %+v", p)
	}
}

func TestDrainRun(t *testing.T) {
	store := newStore(t)
	ring := NewRing(8)
	d := NewDrain(ring, store, 200, quiet)
	if d.Interval() != 5*time.Millisecond {
		t.Errorf("interval = %v", d.Interval())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx) }()

	ring.Push(Message{Path: PathAccent, Value: 33})
	waitFor(t, "drain", func() bool { return d.Applied() == 1 })

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestDrainDefaultRate(t *testing.T) {
	d := NewDrain(NewRing(2), newStore(t), 0, nil)
	if want := time.Second / DefaultDrainRate; d.Interval() != want {
		t.Errorf("interval = %v, want %v", d.Interval(), want)
	}
}
