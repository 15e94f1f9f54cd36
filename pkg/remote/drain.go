package remote

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/justyntemme/stylefx/pkg/framework/debug"
	"github.com/justyntemme/stylefx/pkg/style"
)

// DefaultDrainRate is the drain frequency in Hz.
const DefaultDrainRate = 30

// Control addresses understood by the drain.
const (
	PathSwing            = "/style/swing"
	PathAccent           = "/style/accent"
	PathHumanizeTiming   = "/style/humanizeTiming"
	PathHumanizeVelocity = "/style/humanizeVelocity"
	PathEnable           = "/style/enable"
	PathPort             = "/style/port"
)

type route struct {
	id     uint32
	toggle bool
}

var routes = map[string]route{
	PathSwing:            {id: style.ParamSwing},
	PathAccent:           {id: style.ParamAccent},
	PathHumanizeTiming:   {id: style.ParamHumanizeTiming},
	PathHumanizeVelocity: {id: style.ParamHumanizeVelocity},
	PathEnable:           {id: style.ParamRemoteEnabled, toggle: true},
	PathPort:             {id: style.ParamRemotePort},
}

// Drain moves messages from the ring into the store on a fixed schedule. It
// is the ring's only consumer.
type Drain struct {
	ring     *Ring
	store    *style.Store
	interval time.Duration
	log      *debug.Logger

	applied atomic.Uint64
	unknown atomic.Uint64
}

// NewDrain creates a drain ticking at rate Hz. A non-positive rate uses
// DefaultDrainRate.
func NewDrain(ring *Ring, store *style.Store, rate float64, logger *debug.Logger) *Drain {
	if rate <= 0 {
		rate = DefaultDrainRate
	}
	return &Drain{
		ring:     ring,
		store:    store,
		interval: time.Duration(float64(time.Second) / rate),
		log:      debug.OrDefault(logger).With("drain"),
	}
}

// Interval returns the time between ticks.
func (d *Drain) Interval() time.Duration {
	return d.interval
}

// Tick drains every available message and applies it. It returns the number
// of messages applied.
func (d *Drain) Tick() int {
	applied := 0
	for {
		m, ok := d.ring.Pop()
		if !ok {
			break
		}
		if d.apply(m) {
			applied++
		}
	}
	return applied
}

func (d *Drain) apply(m Message) bool {
	r, ok := routes[m.Path]
	if m.Truncated || !ok {
		d.unknown.Add(1)
		d.log.Debug("ignoring %s", m.Path)
		return false
	}
	if r.toggle {
		d.store.SetBool(r.id, m.Bool())
	} else {
		d.store.Set(r.id, m.Value)
	}
	d.applied.Add(1)
	d.log.Debug("applied %s", m)
	return true
}

// Run ticks until ctx is cancelled, then drains once more and returns the
// context error.
func (d *Drain) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.Tick()
			return ctx.Err()
		case <-ticker.C:
			d.Tick()
		}
	}
}

// Applied returns the number of messages written to the store.
func (d *Drain) Applied() uint64 {
	return d.applied.Load()
}

// Unknown returns the number of messages with unrecognized paths.
func (d *Drain) Unknown() uint64 {
	return d.unknown.Load()
}
