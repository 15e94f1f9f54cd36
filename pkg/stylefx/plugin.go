// Package stylefx assembles one plugin instance: the parameter store, the
// block processor, and the remote control channel that feeds the store.
package stylefx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/justyntemme/stylefx/pkg/config"
	"github.com/justyntemme/stylefx/pkg/framework/debug"
	"github.com/justyntemme/stylefx/pkg/framework/plugin"
	"github.com/justyntemme/stylefx/pkg/framework/process"
	"github.com/justyntemme/stylefx/pkg/remote"
	"github.com/justyntemme/stylefx/pkg/style"
)

// PluginInfo describes the plugin to hosts.
var PluginInfo = plugin.Info{
	ID:       "com.stylefx.midi",
	Name:     "StyleFX",
	Version:  "1.0.0",
	Vendor:   "stylefx",
	Category: "Fx|MIDI",
}

// Plugin is one independent instance. Nothing is shared between instances.
type Plugin struct {
	*plugin.Base

	cfg      config.Config
	log      *debug.Logger
	store    *style.Store
	proc     *style.Processor
	ring     *remote.Ring
	listener *remote.Listener
	drain    *remote.Drain

	mu        sync.Mutex
	cancel    context.CancelFunc
	drainDone chan struct{}
}

var _ plugin.Processor = (*Plugin)(nil)

// New creates a plugin instance from cfg. The control channel is not
// started until Start.
func New(cfg config.Config, logger *debug.Logger) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := debug.OrDefault(logger)

	base := plugin.NewBase(PluginInfo)
	store, err := style.NewStore(base.Parameters())
	if err != nil {
		return nil, err
	}
	store.SetParameters(cfg.Parameters())

	proc := style.NewProcessor(store, cfg.Engine.Seed)
	proc.SetFallbackTempo(cfg.Engine.FallbackBPM)

	ring := remote.NewRing(cfg.Remote.RingCapacity)
	p := &Plugin{
		Base:  base,
		cfg:   cfg,
		log:   log,
		store: store,
		proc:  proc,
		ring:  ring,
		drain: remote.NewDrain(ring, store, cfg.Remote.DrainHz, log),
	}
	p.listener = remote.NewListener(ring, p.remoteSettings, remote.ListenerConfig{
		Host:          cfg.Remote.Host,
		PollInterval:  cfg.Remote.PollInterval,
		RetryInterval: cfg.Remote.RetryInterval,
		Logger:        log,
	})
	return p, nil
}

func (p *Plugin) remoteSettings() (bool, int) {
	s := p.store.Snapshot()
	return s.RemoteEnabled, s.RemotePort
}

// Store returns the instance's parameter store.
func (p *Plugin) Store() *style.Store {
	return p.store
}

// Listener returns the remote control listener.
func (p *Plugin) Listener() *remote.Listener {
	return p.listener
}

// Drain returns the control drain.
func (p *Plugin) Drain() *remote.Drain {
	return p.drain
}

// Ring returns the control ring.
func (p *Plugin) Ring() *remote.Ring {
	return p.ring
}

// Initialize records the host setup and sets the per-block time budget to
// the duration of a full block.
func (p *Plugin) Initialize(sampleRate float64, maxBlockSize int32) error {
	if err := p.Base.Initialize(sampleRate, maxBlockSize); err != nil {
		return err
	}
	budget := time.Duration(float64(maxBlockSize) / sampleRate * float64(time.Second))
	p.proc.Stats().SetBudget(budget)
	p.log.Debug("initialized at %.0f Hz, %d samples, budget %v", sampleRate, maxBlockSize, budget)
	return nil
}

// NewContext returns a process context sized for this instance.
func (p *Plugin) NewContext() *process.Context {
	ctx := process.NewContext(p.cfg.Engine.MaxEvents)
	ctx.SampleRate = p.SampleRate()
	return ctx
}

// ProcessBlock is the audio-thread entry point. It only reads the parameter
// snapshot and rewrites the context's MIDI events.
func (p *Plugin) ProcessBlock(ctx *process.Context) {
	p.proc.ProcessBlock(ctx)
}

// Stats returns block timing statistics.
func (p *Plugin) Stats() debug.BlockSummary {
	return p.proc.Stats().Summary()
}

// Start launches the remote listener and the control drain. The listener
// only binds while remote control is enabled in the store.
func (p *Plugin) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := p.listener.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("start listener: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.drain.Run(ctx)
	}()

	p.cancel = cancel
	p.drainDone = done
	p.log.Info("control channel started (%s)", p.store.Snapshot())
	return nil
}

// Close stops the control channel. It is safe to call without Start.
func (p *Plugin) Close() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.drainDone
	p.cancel, p.drainDone = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	err := p.listener.Stop(p.cfg.Remote.ShutdownTimeout)
	if errors.Is(err, remote.ErrNotRunning) {
		err = nil
	}
	select {
	case <-done:
	case <-time.After(p.cfg.Remote.ShutdownTimeout):
		err = errors.Join(err, errors.New("drain did not exit in time"))
	}

	p.log.Info("control channel stopped: received=%d dropped=%d applied=%d unknown=%d overruns=%d",
		p.listener.Received(), p.listener.Dropped(), p.drain.Applied(), p.drain.Unknown(), p.ring.Overruns())
	p.log.Info("blocks: %s", p.Stats())
	return err
}

// SaveState writes the parameter state blob.
func (p *Plugin) SaveState(w io.Writer) error {
	return p.store.Save(w)
}

// LoadState restores a state blob and republishes the parameters.
func (p *Plugin) LoadState(r io.Reader) error {
	if err := p.store.Load(r); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	return nil
}
