// Package sequencer models the MDX track timers after patching: key-on
// delay, staccato and per-track sample bank selection.
//
// A track program is a byte stream:
//
//	0x00-0x7F        rest for n+1 ticks
//	0x80-0xDF len    note (cmd-0x80) lasting len+1 ticks
//	0xE7 0x01 rate   fade out
//	0xE7 0x02 bank   select sample bank (ADPCM tracks only)
//	0xE9 k           key-on delay in ticks
//	0xF8 s           staccato in ticks after key-on, 0xFF disables
//	0xF1             end of track
package sequencer

import (
	"errors"
	"fmt"
)

// Command bytes.
const (
	CmdExtended   = 0xE7
	CmdKeyOnDelay = 0xE9
	CmdStaccato   = 0xF8
	CmdEnd        = 0xF1

	ExtFade = 0x01
	ExtBank = 0x02

	// StaccatoOff disables staccato when given to CmdStaccato.
	StaccatoOff = 0xFF
)

// FirstADPCMChannel is the lowest channel number driven by ADPCM rather
// than FM.
const FirstADPCMChannel = 8

// ErrBadCommand is returned for unknown or truncated commands.
var ErrBadCommand = errors.New("sequencer: bad command")

// Event is a bit set of what happened on one tick.
type Event uint8

const (
	EventNoteOn Event = 1 << iota
	EventNoteOff
)

// Has reports whether e contains flag.
func (e Event) Has(flag Event) bool { return e&flag != 0 }

// Sink receives note events.
type Sink interface {
	NoteOn(t *Track)
	NoteOff(t *Track)
}

// Track is one sequencer voice.
type Track struct {
	Channel int
	Data    []byte

	Note       int
	Bank       int
	KeyOnDelay int
	// Staccato is the gate length in ticks after key-on; negative disables.
	Staccato int
	FadeRate int
	Ended    bool

	pos       int
	remaining int
	delay     int
	stacc     int
}

// IsADPCM reports whether the track drives an ADPCM channel.
func (t *Track) IsADPCM() bool { return t.Channel >= FirstADPCMChannel }

// Start begins a note at the current tick and returns the events that fire
// immediately.
func (t *Track) Start(note int) Event {
	t.Note = note
	t.delay = t.KeyOnDelay
	t.stacc = t.Staccato
	if t.delay > 0 {
		return 0
	}
	return t.keyOn()
}

// Advance runs the timers for one tick. Staccato does not count down while
// a key-on delay is pending; it is reloaded when the delayed key-on fires.
func (t *Track) Advance() Event {
	if t.delay > 0 {
		t.delay--
		if t.delay == 0 {
			return t.keyOn()
		}
		return 0
	}
	if t.stacc > 0 {
		t.stacc--
		if t.stacc == 0 {
			return EventNoteOff
		}
	}
	return 0
}

func (t *Track) keyOn() Event {
	t.stacc = t.Staccato
	if t.stacc == 0 {
		return EventNoteOn | EventNoteOff
	}
	return EventNoteOn
}

// Extended executes the sub-command following CmdExtended. arg is the
// sub-command's single argument byte.
func (t *Track) Extended(sub, arg byte) error {
	switch sub {
	case ExtFade:
		t.FadeRate = int(arg)
	case ExtBank:
		if t.IsADPCM() {
			t.Bank = int(arg)
		}
	default:
		return fmt.Errorf("%w: extended 0x%02x", ErrBadCommand, sub)
	}
	return nil
}

// Tick runs one tick of the track: timers first, then commands until the
// track has something to wait for.
func (t *Track) Tick(sink Sink) {
	t.emit(sink, t.Advance())
	if t.remaining > 0 {
		t.remaining--
	}
	for t.remaining == 0 && !t.Ended {
		if err := t.exec(sink); err != nil {
			t.Ended = true
		}
	}
}

func (t *Track) exec(sink Sink) error {
	cmd, ok := t.next()
	if !ok {
		t.Ended = true
		return nil
	}
	switch {
	case cmd < 0x80:
		t.remaining = int(cmd) + 1
	case cmd < 0xE0:
		length, ok := t.next()
		if !ok {
			return ErrBadCommand
		}
		t.remaining = int(length) + 1
		t.emit(sink, t.Start(int(cmd-0x80)))
	case cmd == CmdExtended:
		sub, ok1 := t.next()
		arg, ok2 := t.next()
		if !ok1 || !ok2 {
			return ErrBadCommand
		}
		return t.Extended(sub, arg)
	case cmd == CmdKeyOnDelay:
		k, ok := t.next()
		if !ok {
			return ErrBadCommand
		}
		t.KeyOnDelay = int(k)
	case cmd == CmdStaccato:
		s, ok := t.next()
		if !ok {
			return ErrBadCommand
		}
		t.Staccato = int(s)
		if s == StaccatoOff {
			t.Staccato = -1
		}
	case cmd == CmdEnd:
		t.Ended = true
	default:
		return fmt.Errorf("%w: 0x%02x", ErrBadCommand, cmd)
	}
	return nil
}

func (t *Track) next() (byte, bool) {
	if t.pos >= len(t.Data) {
		return 0, false
	}
	b := t.Data[t.pos]
	t.pos++
	return b, true
}

func (t *Track) emit(sink Sink, ev Event) {
	if sink == nil {
		return
	}
	if ev.Has(EventNoteOn) {
		sink.NoteOn(t)
	}
	if ev.Has(EventNoteOff) {
		sink.NoteOff(t)
	}
}

// Sequencer ticks a set of tracks in order.
type Sequencer struct {
	Tracks []*Track
	Sink   Sink
	ticks  int64
}

// Tick advances every track by one tick.
func (s *Sequencer) Tick() {
	for _, t := range s.Tracks {
		t.Tick(s.Sink)
	}
	s.ticks++
}

// Ticks returns the number of ticks run so far.
func (s *Sequencer) Ticks() int64 { return s.ticks }

// Ended reports whether every track has ended.
func (s *Sequencer) Ended() bool {
	for _, t := range s.Tracks {
		if !t.Ended {
			return false
		}
	}
	return true
}
