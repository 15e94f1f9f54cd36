package remote

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

// DefaultRingCapacity matches the size of a typical control FIFO.
const DefaultRingCapacity = 1024

const (
	flagBool uint32 = 1 << iota
	flagTruncated
)

const pathWords = MaxPathLen / 8

// slot holds one message. Every field is atomic so a reader racing the
// writer sees stale or new words, never a torn one; seq tells them apart.
// seq is 2n+1 while message n is being written and 2n+2 once it is complete.
type slot struct {
	seq      atomic.Uint64
	path     [pathWords]atomic.Uint64
	pathLen  atomic.Uint32
	flags    atomic.Uint32
	value    atomic.Uint64
	received atomic.Uint64
}

// Ring is a fixed-capacity single-producer/single-consumer message queue.
//
// Push never blocks: when the ring is full it overwrites the oldest unread
// message. Pop detects overwritten slots and skips them, counting each lost
// message in Overruns. Under overload the consumer therefore sees the newest
// messages, and for any one path the last one written wins.
type Ring struct {
	slots []slot
	mask  uint64

	writePos atomic.Uint64 // next message number to write
	readPos  atomic.Uint64 // next message number to read

	pushed   atomic.Uint64
	overruns atomic.Uint64
}

// NewRing creates a ring holding at least capacity messages, rounded up to a
// power of two.
func NewRing(capacity int) *Ring {
	if capacity < 2 {
		capacity = 2
	}
	size := nextPowerOf2(uint64(capacity))
	return &Ring{
		slots: make([]slot, size),
		mask:  size - 1,
	}
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.slots)
}

// Len returns the number of unread messages, at most Cap.
func (r *Ring) Len() int {
	w := r.writePos.Load()
	rd := r.readPos.Load()
	if w <= rd {
		return 0
	}
	if n := w - rd; n < uint64(len(r.slots)) {
		return int(n)
	}
	return len(r.slots)
}

// Push stores m. Only one goroutine may push. It never blocks or allocates.
func (r *Ring) Push(m Message) {
	n := r.writePos.Load()
	s := &r.slots[n&r.mask]

	s.seq.Store(2*n + 1)

	var flags uint32
	if m.IsBool {
		flags |= flagBool
	}
	path := m.Path
	if len(path) > MaxPathLen || m.Truncated {
		flags |= flagTruncated
		if len(path) > MaxPathLen {
			path = path[:MaxPathLen]
		}
	}
	var word [8]byte
	for i := 0; i < pathWords; i++ {
		word = [8]byte{}
		if off := i * 8; off < len(path) {
			copy(word[:], path[off:])
		}
		s.path[i].Store(binary.LittleEndian.Uint64(word[:]))
	}
	s.pathLen.Store(uint32(len(path)))
	s.flags.Store(flags)
	s.value.Store(math.Float64bits(m.Value))
	s.received.Store(math.Float64bits(m.ReceivedAt))

	s.seq.Store(2*n + 2)
	r.writePos.Store(n + 1)
	r.pushed.Add(1)
}

// Pop removes the oldest intact message. Only one goroutine may pop.
func (r *Ring) Pop() (Message, bool) {
	size := uint64(len(r.slots))
	for {
		rd := r.readPos.Load()
		w := r.writePos.Load()
		if rd >= w {
			return Message{}, false
		}
		if w-rd > size {
			// Producer lapped us; everything before w-size is gone
			r.overruns.Add(w - size - rd)
			rd = w - size
			r.readPos.Store(rd)
		}

		s := &r.slots[rd&r.mask]
		want := 2*rd + 2
		if s.seq.Load() != want {
			r.overruns.Add(1)
			r.readPos.Store(rd + 1)
			continue
		}

		var raw [MaxPathLen]byte
		for i := 0; i < pathWords; i++ {
			binary.LittleEndian.PutUint64(raw[i*8:], s.path[i].Load())
		}
		n := s.pathLen.Load()
		flags := s.flags.Load()
		value := math.Float64frombits(s.value.Load())
		received := math.Float64frombits(s.received.Load())

		if s.seq.Load() != want {
			// Overwritten while we were copying
			r.overruns.Add(1)
			r.readPos.Store(rd + 1)
			continue
		}
		r.readPos.Store(rd + 1)

		if n > MaxPathLen {
			n = MaxPathLen
		}
		return Message{
			Path:       string(raw[:n]),
			Value:      value,
			IsBool:     flags&flagBool != 0,
			ReceivedAt: received,
			Truncated:  flags&flagTruncated != 0,
		}, true
	}
}

// Pushed returns the total number of messages pushed.
func (r *Ring) Pushed() uint64 {
	return r.pushed.Load()
}

// Overruns returns how many messages were overwritten before being read.
func (r *Ring) Overruns() uint64 {
	return r.overruns.Load()
}

func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
