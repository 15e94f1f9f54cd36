package stylefx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"net"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/justyntemme/stylefx/pkg/config"
	"github.com/justyntemme/stylefx/pkg/framework/debug"
	"github.com/justyntemme/stylefx/pkg/framework/state"
	"github.com/justyntemme/stylefx/pkg/midi"
	"github.com/justyntemme/stylefx/pkg/remote"
	"github.com/justyntemme/stylefx/pkg/style"
)

var quiet = debug.New(io.Discard, "", 0)

func newPlugin(t *testing.T, cfg config.Config) *Plugin {
	t.Helper()
	p, err := New(cfg, quiet)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func freePort(t *testing.T) int {
	t.Helper()
	c, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	return c.LocalAddr().(*net.UDPAddr).Port
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.Style.Preset = "jazz"
	p := newPlugin(t, cfg)

	snap := p.Store().Snapshot()
	if snap.SwingRatio != 0.7 || snap.AccentAmount != 25 {
		t.Errorf("preset not applied: %+v", snap)
	}
	if p.Parameters().Count() != 6 {
		t.Errorf("host sees %d parameters", p.Parameters().Count())
	}
	if err := p.Info.ValidateUID(); err != nil {
		t.Error(err)
	}

	bad := config.Default()
	bad.Remote.RingCapacity = 3
	if _, err := New(bad, quiet); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestProcessBlock(t *testing.T) {
	cfg := config.Default()
	cfg.Style.Accent = 15
	cfg.Style.Swing = 0.7
	p := newPlugin(t, cfg)
	if err := p.Initialize(48000, 512); err != nil {
		t.Fatal(err)
	}

	ctx := p.NewContext()
	ctx.Tempo = 120
	ctx.Begin(1.0, 512)
	ctx.AddEvent(midi.NoteOn(1, 60, 80, 1.0))  // on the beat
	ctx.AddEvent(midi.NoteOn(1, 62, 80, 1.25)) // off-beat, outside this block
	ctx.AddEvent(midi.NoteOff(1, 60, 0, 1.005))

	p.ProcessBlock(ctx)

	events := ctx.Events().Events()
	if len(events) != 3 {
		t.Fatalf("event count %d", len(events))
	}
	if events[0].Velocity != 95 || events[0].Offset != 0 {
		t.Errorf("downbeat = %v offset %d", events[0], events[0].Offset)
	}
	if events[2].Note != 62 || events[2].Timestamp <= 1.25 || events[2].Velocity != 80 {
		t.Errorf("off-beat = %v", events[2])
	}
	if p.Stats().Blocks != 1 {
		t.Errorf("stats = %v", p.Stats())
	}
}

func TestProcessBlockDoesNotAllocate(t *testing.T) {
	cfg := config.Default()
	cfg.Style.Preset = "blues"
	p := newPlugin(t, cfg)
	ctx := p.NewContext()
	ctx.Tempo = 100

	allocs := testing.AllocsPerRun(50, func() {
		ctx.Begin(0, 512)
		for i := 0; i < 128; i++ {
			ctx.AddEvent(midi.NoteOn(1, uint8(i), 100, ctx.TimeAt(i*4)))
		}
		p.ProcessBlock(ctx)
	})
	if allocs != 0 {
		t.Errorf("expected 0 allocations, got %f", allocs)
	}
}

func TestStateRoundTrip(t *testing.T) {
	src := newPlugin(t, config.Default())
	src.Store().ApplyPreset("classical")
	src.Store().Set(style.ParamRemotePort, 5000)

	var buf bytes.Buffer
	if err := src.SaveState(&buf); err != nil {
		t.Fatal(err)
	}

	dst := newPlugin(t, config.Default())
	if err := dst.LoadState(&buf); err != nil {
		t.Fatal(err)
	}
	a, b := src.Store().Snapshot(), dst.Store().Snapshot()
	if a.RemotePort != b.RemotePort || a.AccentAmount != b.AccentAmount {
		t.Errorf("restored %+v, want %+v", b, a)
	}

	if err := dst.LoadState(bytes.NewReader([]byte("junk"))); !errors.Is(err, state.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestRemoteControlEndToEnd(t *testing.T) {
	port := freePort(t)
	cfg := config.Default()
	cfg.Style.Accent = 0
	cfg.Remote.Enabled = true
	cfg.Remote.Port = port
	cfg.Remote.PollInterval = 10 * time.Millisecond
	cfg.Remote.DrainHz = 100
	p := newPlugin(t, cfg)

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
	waitFor(t, "listening", func() bool { return p.Listener().State() == remote.Listening })

	client := osc.NewClient("127.0.0.1", port)
	if err := client.Send(osc.NewMessage(remote.PathAccent, float32(10))); err != nil {
		t.Fatal(err)
	}
	if err := client.Send(osc.NewMessage("/style/unknown", float32(1))); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "accent applied", func() bool { return math.Abs(p.Store().Snapshot().AccentAmount-10) < 1e-9 })
	waitFor(t, "unknown counted", func() bool { return p.Drain().Unknown() == 1 })

	ctx := p.NewContext()
	ctx.Begin(0, 256)
	ctx.AddEvent(midi.NoteOn(1, 60, 80, 0))
	p.ProcessBlock(ctx)
	if v := ctx.Events().Events()[0].Velocity; v != 90 {
		t.Errorf("velocity = %d, want 90", v)
	}

	// Disabling remotely releases the port
	if err := client.Send(osc.NewMessage(remote.PathEnable, false)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "disconnected", func() bool { return p.Listener().State() == remote.Disconnected })

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}
