// Package remote is the non-real-time control channel: a UDP listener that
// decodes OSC messages into a lock-free ring, and a periodic drain that
// applies them to the style parameter store.
package remote

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotRunning is returned by Stop when the listener was never started or
// has already been stopped.
var ErrNotRunning = errors.New("listener not running")

// MaxPathLen is the longest address a ring slot can carry.
const MaxPathLen = 64

// Message is one pending control change.
type Message struct {
	Path       string
	Value      float64
	IsBool     bool
	ReceivedAt float64 // seconds since the Unix epoch

	// Truncated is set when Path was longer than MaxPathLen. Such messages
	// cannot match any route.
	Truncated bool
}

// Bool interprets the value as a switch.
func (m Message) Bool() bool {
	return m.Value != 0
}

func (m Message) String() string {
	if m.IsBool {
		return fmt.Sprintf("%s %t", m.Path, m.Bool())
	}
	return fmt.Sprintf("%s %g", m.Path, m.Value)
}

func now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
