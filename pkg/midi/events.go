// Package midi defines the fixed-size event type the style engine works on
// and converts it to and from wire-format MIDI messages.
package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Kind classifies an event for the style engine. Everything that is not a
// note start or note end is Other and passes through untouched.
type Kind uint8

const (
	KindOther Kind = iota
	KindNoteOn
	KindNoteOff
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "NoteOn"
	case KindNoteOff:
		return "NoteOff"
	default:
		return "Other"
	}
}

// Event is one timestamped MIDI message. It is a plain comparable value so
// it can be copied through the engine without allocating.
//
// Channel is 1-based (1..16) and zero for system messages. Note and Velocity
// are only meaningful for note kinds. Status, Data1 and Data2 hold the raw
// bytes so Other events re-encode byte-identically.
type Event struct {
	Kind      Kind
	Channel   uint8
	Note      uint8
	Velocity  uint8
	Timestamp float64 // seconds on the host timeline
	Offset    int32   // sample offset within the current block

	Status uint8
	Data1  uint8
	Data2  uint8
	Size   uint8 // number of valid raw bytes, 0..3
}

// NoteOn builds a note-on event. channel is 1-based.
func NoteOn(channel, note, velocity uint8, timestamp float64) Event {
	ch := clampChannel(channel)
	return Event{
		Kind:      KindNoteOn,
		Channel:   ch,
		Note:      note & 0x7F,
		Velocity:  velocity & 0x7F,
		Timestamp: timestamp,
		Status:    0x90 | (ch - 1),
		Data1:     note & 0x7F,
		Data2:     velocity & 0x7F,
		Size:      3,
	}
}

// NoteOff builds a note-off event. channel is 1-based.
func NoteOff(channel, note, velocity uint8, timestamp float64) Event {
	ch := clampChannel(channel)
	return Event{
		Kind:      KindNoteOff,
		Channel:   ch,
		Note:      note & 0x7F,
		Velocity:  velocity & 0x7F,
		Timestamp: timestamp,
		Status:    0x80 | (ch - 1),
		Data1:     note & 0x7F,
		Data2:     velocity & 0x7F,
		Size:      3,
	}
}

// ControlChange builds a CC event. channel is 1-based.
func ControlChange(channel, controller, value uint8, timestamp float64) Event {
	ch := clampChannel(channel)
	return Event{
		Kind:      KindOther,
		Channel:   ch,
		Timestamp: timestamp,
		Status:    0xB0 | (ch - 1),
		Data1:     controller & 0x7F,
		Data2:     value & 0x7F,
		Size:      3,
	}
}

// PitchBend builds a pitch bend event from a signed value (-8192..8191).
func PitchBend(channel uint8, value int16, timestamp float64) Event {
	ch := clampChannel(channel)
	v := int(value) + 8192
	if v < 0 {
		v = 0
	} else if v > 0x3FFF {
		v = 0x3FFF
	}
	return Event{
		Kind:      KindOther,
		Channel:   ch,
		Timestamp: timestamp,
		Status:    0xE0 | (ch - 1),
		Data1:     uint8(v & 0x7F),
		Data2:     uint8(v >> 7),
		Size:      3,
	}
}

func clampChannel(ch uint8) uint8 {
	if ch < 1 {
		return 1
	}
	if ch > 16 {
		return 16
	}
	return ch
}

// FromMessage decodes a wire-format message of at most three bytes. Longer
// messages (SysEx) are not representable and return ok == false.
func FromMessage(msg gomidi.Message, timestamp float64) (e Event, ok bool) {
	if len(msg) == 0 || len(msg) > 3 {
		return Event{}, false
	}

	e = Event{Kind: KindOther, Timestamp: timestamp, Status: msg[0], Size: uint8(len(msg))}
	if len(msg) > 1 {
		e.Data1 = msg[1]
	}
	if len(msg) > 2 {
		e.Data2 = msg[2]
	}
	if msg[0] >= 0x80 && msg[0] < 0xF0 {
		e.Channel = msg[0]&0x0F + 1
	}

	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		e.Kind, e.Note, e.Velocity = KindNoteOn, key, vel
	case msg.GetNoteEnd(&ch, &key):
		// Note-on with velocity zero lands here too
		e.Kind, e.Note, e.Velocity = KindNoteOff, key, e.Data2
	}
	return e, true
}

// Message encodes the event. Note events are rebuilt from Channel, Note
// and Velocity so engine changes are reflected; other kinds use the raw bytes.
func (e Event) Message() gomidi.Message {
	switch e.Kind {
	case KindNoteOn:
		return gomidi.NoteOn(e.channelIndex(), e.Note, e.Velocity)
	case KindNoteOff:
		if e.Status&0xF0 == 0x90 {
			// note-on with velocity 0 stays that way
			return gomidi.Message{0x90 | e.channelIndex(), e.Note, 0}
		}
		return gomidi.NoteOffVelocity(e.channelIndex(), e.Note, e.Velocity)
	}
	raw := [3]byte{e.Status, e.Data1, e.Data2}
	return gomidi.Message(append([]byte(nil), raw[:e.Size]...))
}

func (e Event) channelIndex() uint8 {
	return clampChannel(e.Channel) - 1
}

// String returns a readable description of the event.
func (e Event) String() string {
	switch e.Kind {
	case KindNoteOn, KindNoteOff:
		return fmt.Sprintf("%s{ch:%d, note:%d, vel:%d, t:%.6f}",
			e.Kind, e.Channel, e.Note, e.Velocity, e.Timestamp)
	}
	return fmt.Sprintf("Other{status:0x%02X, data:[%d %d], t:%.6f}",
		e.Status, e.Data1, e.Data2, e.Timestamp)
}
