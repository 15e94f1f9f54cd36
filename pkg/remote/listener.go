package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/justyntemme/stylefx/pkg/framework/debug"
)

// State is the listener connection state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Listening
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Listening:
		return "listening"
	}
	return "unknown"
}

// SettingsFunc reports whether remote control is enabled and on which port.
// It is polled on every listener cycle.
type SettingsFunc func() (enabled bool, port int)

// ListenerConfig tunes the listener loop. Zero fields take defaults.
type ListenerConfig struct {
	Host          string        // bind address, default 127.0.0.1
	PollInterval  time.Duration // read deadline per cycle, default 100ms
	RetryInterval time.Duration // back-off after a failed bind, default 1s
	Logger        *debug.Logger
}

func (c ListenerConfig) withDefaults() ListenerConfig {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Second
	}
	return c
}

// Listener receives OSC datagrams and pushes their messages into a Ring. It
// is the ring's only producer and never touches the parameter store.
type Listener struct {
	ring     *Ring
	settings SettingsFunc
	cfg      ListenerConfig
	log      *debug.Logger

	state    atomic.Int32
	received atomic.Uint64
	dropped  atomic.Uint64

	mu      sync.Mutex
	conn    net.PacketConn
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewListener creates a stopped listener.
func NewListener(ring *Ring, settings SettingsFunc, cfg ListenerConfig) *Listener {
	cfg = cfg.withDefaults()
	return &Listener{
		ring:     ring,
		settings: settings,
		cfg:      cfg,
		log:      debug.OrDefault(cfg.Logger).With("listener"),
	}
}

// Start launches the listener goroutine.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("listener already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.running = true
	go l.run(ctx, l.done)
	return nil
}

// Stop signals the listener to exit, releases the socket and waits up to
// timeout for the goroutine to finish. The socket is closed even when the
// wait times out.
func (l *Listener) Stop(timeout time.Duration) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return ErrNotRunning
	}
	l.running = false
	l.cancel()
	l.closeConnLocked()
	done := l.done
	l.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("listener did not exit within %v", timeout)
	}
}

// State returns the current connection state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

// Addr returns the bound address, or nil when not listening.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Received returns the number of messages pushed to the ring.
func (l *Listener) Received() uint64 {
	return l.received.Load()
}

// Dropped returns the number of malformed packets and messages discarded.
func (l *Listener) Dropped() uint64 {
	return l.dropped.Load()
}

func (l *Listener) setState(s State) {
	if State(l.state.Swap(int32(s))) != s {
		l.log.Debug("state %s", s)
	}
}

func (l *Listener) closeConnLocked() {
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
}

func (l *Listener) closeConn() {
	l.mu.Lock()
	l.closeConnLocked()
	l.mu.Unlock()
}

// sleep waits d or until ctx is done. It reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (l *Listener) bind(ctx context.Context, port int) (net.PacketConn, error) {
	l.setState(Connecting)
	addr := net.JoinHostPort(l.cfg.Host, strconv.Itoa(port))
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		// Stop raced the bind
		conn.Close()
		return nil, context.Canceled
	}
	l.conn = conn
	return conn, nil
}

func (l *Listener) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer l.setState(Disconnected)
	defer l.closeConn()

	buf := make([]byte, 65536)
	var conn net.PacketConn
	boundPort := -1

	for ctx.Err() == nil {
		enabled, port := l.settings()

		if !enabled {
			if conn != nil {
				l.log.Info("remote control disabled, closing %s", conn.LocalAddr())
				l.closeConn()
				conn = nil
			}
			l.setState(Disconnected)
			sleep(ctx, l.cfg.PollInterval)
			continue
		}

		if conn != nil && port != boundPort {
			l.log.Info("port changed %d -> %d, rebinding", boundPort, port)
			l.closeConn()
			conn = nil
		}

		if conn == nil {
			c, err := l.bind(ctx, port)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.setState(Disconnected)
				l.log.Warn("%v, retrying in %v", err, l.cfg.RetryInterval)
				sleep(ctx, l.cfg.RetryInterval)
				continue
			}
			conn, boundPort = c, port
			l.setState(Listening)
			l.log.Info("listening on %s", conn.LocalAddr())
		}

		conn.SetReadDeadline(time.Now().Add(l.cfg.PollInterval))
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			l.log.Warn("read: %v", err)
			l.closeConn()
			conn = nil
			l.setState(Disconnected)
			continue
		}
		l.handlePacket(buf[:n])
	}
}

func (l *Listener) handlePacket(data []byte) {
	packet, err := osc.ParsePacket(string(data))
	if err != nil || packet == nil {
		l.dropped.Add(1)
		l.log.Debug("malformed packet (%d bytes): %v", len(data), err)
		return
	}
	l.walk(packet, now())
}

func (l *Listener) walk(packet osc.Packet, received float64) {
	switch p := packet.(type) {
	case *osc.Message:
		l.handleMessage(p, received)
	case *osc.Bundle:
		for _, m := range p.Messages {
			l.handleMessage(m, received)
		}
		for _, b := range p.Bundles {
			l.walk(b, received)
		}
	default:
		l.dropped.Add(1)
	}
}

func (l *Listener) handleMessage(m *osc.Message, received float64) {
	if m == nil || len(m.Arguments) == 0 {
		l.dropped.Add(1)
		return
	}
	value, isBool, ok := coerce(m.Arguments[0])
	if !ok {
		l.dropped.Add(1)
		l.log.Debug("unsupported argument %T for %s", m.Arguments[0], m.Address)
		return
	}
	l.ring.Push(Message{
		Path:       m.Address,
		Value:      value,
		IsBool:     isBool,
		ReceivedAt: received,
	})
	l.received.Add(1)
}

// coerce converts an OSC argument to a float. Booleans become 0 or 1.
func coerce(arg interface{}) (value float64, isBool, ok bool) {
	switch v := arg.(type) {
	case float32:
		return float64(v), false, true
	case float64:
		return v, false, true
	case int32:
		return float64(v), false, true
	case int64:
		return float64(v), false, true
	case bool:
		if v {
			return 1, true, true
		}
		return 0, true, true
	}
	return 0, false, false
}
