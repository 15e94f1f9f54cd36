package midi

// Buffer is a fixed-capacity event list for one processing block. All
// storage is allocated up front so Add, Reset and SortByTime never allocate.
// A Buffer is not safe for concurrent use.
type Buffer struct {
	events  []Event
	dropped uint64
}

// NewBuffer returns a buffer holding at most capacity events.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{events: make([]Event, 0, capacity)}
}

// Add appends an event. It returns false, and counts a drop, when full.
func (b *Buffer) Add(e Event) bool {
	if len(b.events) == cap(b.events) {
		b.dropped++
		return false
	}
	b.events = append(b.events, e)
	return true
}

// Events returns the buffered events. The slice aliases the buffer and is
// valid until the next Reset.
func (b *Buffer) Events() []Event {
	return b.events
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	return len(b.events)
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return cap(b.events)
}

// Dropped returns how many events were rejected because the buffer was full.
func (b *Buffer) Dropped() uint64 {
	return b.dropped
}

// Reset empties the buffer and keeps its storage.
func (b *Buffer) Reset() {
	b.events = b.events[:0]
}

// SortByTime orders events by Timestamp, keeping the relative order of
// events with equal timestamps.
func (b *Buffer) SortByTime() {
	SortByTime(b.events)
}

// SortByTime is a stable in-place insertion sort on Timestamp. It does not
// allocate.
func SortByTime(events []Event) {
	for i := 1; i < len(events); i++ {
		e := events[i]
		j := i - 1
		for j >= 0 && events[j].Timestamp > e.Timestamp {
			events[j+1] = events[j]
			j--
		}
		events[j+1] = e
	}
}
