// Package insertmode turns live keystrokes into both immediate
// playback and persisted notes, implementing the "Insert Mode" input
// path described in spec §4.4: a key press always sounds the note, and
// also writes it into the project at a moving anchor tick, batched
// into undo groups so a burst of typing undoes as one gesture.
package insertmode

import (
	"sync"
	"time"

	"github.com/minimaxir/miditui/pkg/edit"
	"github.com/minimaxir/miditui/pkg/project"
	"github.com/minimaxir/miditui/pkg/synth"
	"github.com/minimaxir/miditui/pkg/transport"
)

// SimultaneousWindow is how close together two key presses must land
// to be treated as a chord sharing one anchor tick.
const SimultaneousWindow = 20 * time.Millisecond

// GroupQuiescence is how long the keyboard must be silent before an
// undo-group boundary closes.
const GroupQuiescence = 200 * time.Millisecond

// IdleMeasures is how many full measures of silence halt the anchor
// clock.
const IdleMeasures = 2

// bottomRow and topRow bind two QWERTY rows to two consecutive octaves
// (spec §4.4: "binds two QWERTY rows to two consecutive octaves"). Each
// entry is a semitone offset from the octave's C.
var bottomRow = []rune{'z', 'x', 'c', 'v', 'b', 'n', 'm', ',', '.', '/'}
var topRow = []rune{'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', 'o', 'p'}

var bottomOffsets = []int{0, 2, 4, 5, 7, 9, 11, 12, 14, 16}
var topOffsets = []int{0, 2, 4, 5, 7, 9, 11, 12, 14, 16}

func buildKeymap() map[rune]int {
	m := make(map[rune]int, len(bottomRow)+len(topRow))
	for i, k := range bottomRow {
		m[k] = bottomOffsets[i]
	}
	for i, k := range topRow {
		m[k] = topOffsets[i] + 12
	}
	return m
}

var keymap = buildKeymap()

// PitchForKey maps a key to a MIDI pitch at the given octave base
// (0-8), or ok=false if the key is not bound. octaveBase 4 places 'z'
// at pitch 48 and 'q' at middle C (60).
func PitchForKey(key rune, octaveBase int) (pitch uint8, ok bool) {
	offset, bound := keymap[key]
	if !bound {
		return 0, false
	}
	p := offset + octaveBase*12
	if p < 0 || p > 127 {
		return 0, false
	}
	return uint8(p), true
}

// Sink receives key events and turns them into both immediate audible
// notes and persisted, undoable note-add commands.
type Sink struct {
	proj      func() *project.Project
	history   *edit.History
	engine    *synth.Synth
	scheduler *transport.Scheduler
	activeTrack func() int

	mu             sync.Mutex
	octaveBase     int
	anchorTick     int64
	anchorLive     bool
	lastPressAt    time.Time
	groupID        int64
	groupOpenSince time.Time
	chordTick      int64
	chordOpenSince time.Time
}

// New constructs a Sink. proj returns the live project (for reading
// tempo/time-signature when computing quantized durations and the idle
// timeout); activeTrack returns the index of the track keystrokes write
// to.
func New(proj func() *project.Project, history *edit.History, engine *synth.Synth, scheduler *transport.Scheduler, activeTrack func() int) *Sink {
	return &Sink{proj: proj, history: history, engine: engine, scheduler: scheduler, activeTrack: activeTrack, octaveBase: 4}
}

// SetOctaveBase changes the displayed bottom octave (0-8).
func (s *Sink) SetOctaveBase(base int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if base < 0 {
		base = 0
	}
	if base > 8 {
		base = 8
	}
	s.octaveBase = base
}

// SetAnchor sets the insert anchor explicitly, e.g. to the current
// cursor position, used before the first key press of a session.
func (s *Sink) SetAnchor(tick int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchorTick = tick
}

// KeyDown handles one key press at time now. An unbound key is
// ignored. For a bound key on an existing active track it sounds the
// note immediately and then writes a persisted, quantized note at the
// current anchor; if sounding the note fails (e.g. no SoundFont is
// loaded), that error is returned and nothing is written.
func (s *Sink) KeyDown(key rune, now time.Time) error {
	s.mu.Lock()
	pitch, ok := PitchForKey(key, s.octaveBase)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	trackIndex := s.activeTrack()
	p := s.proj()
	tr, err := p.Track(trackIndex)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	channel := tr.Channel

	s.advanceAnchor(p, now)
	anchor := s.anchorTick

	// Chord grouping: presses within SimultaneousWindow of the first
	// press in a burst share one anchor tick (spec §4.4).
	if now.Sub(s.chordOpenSince) > SimultaneousWindow {
		s.chordOpenSince = now
		s.chordTick = anchor
	}
	writeTick := s.chordTick

	// Undo grouping: a new group opens after GroupQuiescence of
	// silence (spec §4.4 invariant).
	if now.Sub(s.groupOpenSince) > GroupQuiescence {
		s.groupID++
		s.groupOpenSince = now
	}
	groupID := s.groupID
	s.lastPressAt = now
	s.groupOpenSince = now
	s.mu.Unlock()

	if err := s.engine.NoteOn(channel, pitch, 100); err != nil {
		return err
	}

	duration := p.TimeSignature.TicksPerBeat()
	note := project.Note{Pitch: pitch, Start: writeTick, Duration: duration, Velocity: 100}
	cmd, err := edit.NewAddNote(p, trackIndex, note)
	if err != nil {
		return err
	}
	if err := s.history.ApplyGrouped(p, cmd, groupID); err != nil {
		// A collision at this exact (pitch, tick) is expected when a
		// chord re-presses the same key; ignore rather than erroring
		// out the whole keystroke.
		if err == project.ErrDuplicateNote {
			return nil
		}
		return err
	}
	return nil
}

// KeyUp stops the immediately-sounding voice; insert mode does not
// otherwise react to key release (note duration is fixed by
// quantization, not by how long the key was held).
func (s *Sink) KeyUp(key rune) error {
	s.mu.Lock()
	pitch, ok := PitchForKey(key, s.octaveBase)
	trackIndex := s.activeTrack()
	s.mu.Unlock()
	if !ok {
		return nil
	}
	p := s.proj()
	tr, err := p.Track(trackIndex)
	if err != nil {
		return err
	}
	return s.engine.NoteOff(tr.Channel, pitch)
}

// advanceAnchor must be called with s.mu held. When the transport is
// playing, the anchor tracks the transport position exactly. When
// stopped, the anchor only moves while "live" -- started by the first
// press after an idle period and halted after IdleMeasures of silence.
func (s *Sink) advanceAnchor(p *project.Project, now time.Time) {
	if s.scheduler != nil && s.scheduler.State() == transport.Playing {
		s.anchorTick = s.scheduler.PositionTick()
		s.anchorLive = true
		return
	}

	measureTicks := p.TimeSignature.TicksPerBeat() * int64(p.TimeSignature.Numerator)
	idleTimeout := time.Duration(float64(IdleMeasures*measureTicks) * 60.0 / (p.Tempo * float64(project.TicksPerQuarter)) * float64(time.Second))

	if s.anchorLive && !s.lastPressAt.IsZero() && now.Sub(s.lastPressAt) > idleTimeout {
		s.anchorLive = false
	}
	if !s.anchorLive {
		// A fresh press after idle (or the very first press) resumes
		// the clock from wherever the anchor last stood; it does not
		// jump to now, matching "the anchor stops advancing until the
		// next press" rather than "resets to the cursor."
		s.anchorLive = true
		s.lastPressAt = now
		return
	}

	elapsed := now.Sub(s.lastPressAt)
	deltaTicks := int64(elapsed.Seconds() * p.Tempo * float64(project.TicksPerQuarter) / 60.0)
	s.anchorTick += deltaTicks
	s.lastPressAt = now
}
