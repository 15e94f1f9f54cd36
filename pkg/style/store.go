package style

import (
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/justyntemme/stylefx/pkg/framework/param"
	"github.com/justyntemme/stylefx/pkg/framework/state"
)

// Observer is notified after a parameter change has been published. It runs
// on the writer's goroutine, never the audio thread.
type Observer func(id uint32, plain float64)

// Store is the single source of truth for the style parameters.
//
// The host-facing values live in atomic param.Parameters. Every write also
// publishes an immutable Parameters snapshot through an atomic pointer, which
// is all the audio thread ever touches. Writers are serialized by a mutex
// that Snapshot never takes.
type Store struct {
	registry *param.Registry
	state    *state.Manager

	swing, accent, humTiming, humVelocity *param.Parameter
	enabled, port                         *param.Parameter

	snapshot atomic.Pointer[Parameters]

	mu        sync.Mutex
	observers []Observer
}

// NewStore declares the style parameters on registry and returns a store
// backed by them. A nil registry gets a private one.
func NewStore(registry *param.Registry) (*Store, error) {
	if registry == nil {
		registry = param.NewRegistry()
	}
	s := &Store{
		registry: registry,
		state:    state.NewManager(registry),

		swing:       param.SwingParameter(ParamSwing, "Swing Ratio").ShortName("Swing").Default(SwingDefault).Build(),
		accent:      param.VelocityOffsetParameter(ParamAccent, "Accent Amount", AccentMax).ShortName("Accent").Default(AccentDefault).Build(),
		humTiming:   param.AmountParameter(ParamHumanizeTiming, "Humanize Timing").ShortName("HumTime").Build(),
		humVelocity: param.AmountParameter(ParamHumanizeVelocity, "Humanize Velocity").ShortName("HumVel").Build(),
		enabled:     param.SwitchParameter(ParamRemoteEnabled, "Remote Control").ShortName("Remote").Build(),
		port:        param.PortParameter(ParamRemotePort, "Remote Port", PortMin, PortMax, PortDefault).ShortName("Port").Build(),
	}
	if err := registry.Add(s.swing, s.accent, s.humTiming, s.humVelocity, s.enabled, s.port); err != nil {
		return nil, fmt.Errorf("declare style parameters: %w", err)
	}
	s.publish()
	return s, nil
}

// Registry returns the parameter registry the store writes through.
func (s *Store) Registry() *param.Registry {
	return s.registry
}

// Snapshot returns a consistent copy of the current parameters. It is
// lock-free and allocation-free and may be called from the audio thread.
func (s *Store) Snapshot() Parameters {
	return *s.snapshot.Load()
}

// Set writes a plain value to the parameter with the given ID. Out-of-range
// values are clamped and NaN takes the parameter default. It reports whether
// the ID is a style parameter.
func (s *Store) Set(id uint32, plain float64) bool {
	s.mu.Lock()
	p := s.lookup(id)
	if p == nil {
		s.mu.Unlock()
		return false
	}
	p.SetPlainValue(plain)
	applied := p.GetPlainValue()
	s.publish()
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(id, applied)
	}
	return true
}

// SetBool writes a switch parameter.
func (s *Store) SetBool(id uint32, on bool) bool {
	v := 0.0
	if on {
		v = 1
	}
	return s.Set(id, v)
}

// SetParameters writes every field of p.
func (s *Store) SetParameters(p Parameters) {
	enabled := 0.0
	if p.RemoteEnabled {
		enabled = 1
	}
	s.setAll(map[uint32]float64{
		ParamSwing:            p.SwingRatio,
		ParamAccent:           p.AccentAmount,
		ParamHumanizeTiming:   p.HumanizeTiming,
		ParamHumanizeVelocity: p.HumanizeVelocity,
		ParamRemoteEnabled:    enabled,
		ParamRemotePort:       float64(p.RemotePort),
	})
}

// ApplyPreset writes the four style values of a named preset.
func (s *Store) ApplyPreset(name string) error {
	pr, err := LookupPreset(name)
	if err != nil {
		return err
	}
	s.setAll(map[uint32]float64{
		ParamSwing:            pr.Swing,
		ParamAccent:           pr.Accent,
		ParamHumanizeTiming:   pr.HumanizeTiming,
		ParamHumanizeVelocity: pr.HumanizeVelocity,
	})
	return nil
}

// setAll applies several values and publishes once, so readers never see a
// half-applied preset.
func (s *Store) setAll(values map[uint32]float64) {
	s.mu.Lock()
	for id, v := range values {
		s.lookup(id).SetPlainValue(v)
	}
	s.publish()
	observers := s.observers
	s.mu.Unlock()

	s.notifyAll(observers, values)
}

// Subscribe registers fn for change notifications.
func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy so in-flight notifications keep iterating the old slice
	next := make([]Observer, len(s.observers), len(s.observers)+1)
	copy(next, s.observers)
	s.observers = append(next, fn)
}

// Refresh republishes the snapshot after the host wrote parameters directly.
func (s *Store) Refresh() {
	s.mu.Lock()
	s.publish()
	s.mu.Unlock()
}

// Save writes the parameter state blob.
func (s *Store) Save(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Save(w)
}

// Load restores a state blob. Restored values are clamped to range and the
// snapshot is republished before Load returns.
func (s *Store) Load(r io.Reader) error {
	s.mu.Lock()
	if err := s.state.Load(r); err != nil {
		s.mu.Unlock()
		return err
	}
	s.publish()
	observers := s.observers
	s.mu.Unlock()

	s.notifyAll(observers, nil)
	return nil
}

func (s *Store) notifyAll(observers []Observer, only map[uint32]float64) {
	if len(observers) == 0 {
		return
	}
	for _, p := range []*param.Parameter{s.swing, s.accent, s.humTiming, s.humVelocity, s.enabled, s.port} {
		if only != nil {
			if _, ok := only[p.ID]; !ok {
				continue
			}
		}
		v := p.GetPlainValue()
		for _, fn := range observers {
			fn(p.ID, v)
		}
	}
}

func (s *Store) lookup(id uint32) *param.Parameter {
	switch id {
	case ParamSwing:
		return s.swing
	case ParamAccent:
		return s.accent
	case ParamHumanizeTiming:
		return s.humTiming
	case ParamHumanizeVelocity:
		return s.humVelocity
	case ParamRemoteEnabled:
		return s.enabled
	case ParamRemotePort:
		return s.port
	}
	return nil
}

// publish must be called with mu held.
func (s *Store) publish() {
	p := Parameters{
		SwingRatio:       s.swing.GetPlainValue(),
		AccentAmount:     s.accent.GetPlainValue(),
		HumanizeTiming:   s.humTiming.GetPlainValue(),
		HumanizeVelocity: s.humVelocity.GetPlainValue(),
		RemoteEnabled:    s.enabled.GetPlainValue() >= 0.5,
		RemotePort:       int(math.Round(s.port.GetPlainValue())),
	}.Clamp()
	s.snapshot.Store(&p)
}
