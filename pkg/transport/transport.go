// Package transport drives the sample-accurate playback clock. It owns
// no audio hardware itself: ProcessBlock renders exactly one block's
// worth of samples into caller-supplied buffers, so both the
// real-time output path (stream.go) and the offline WAV render path
// (render.go) share one scheduling implementation.
package transport

import (
	"container/heap"
	"sync/atomic"

	"github.com/minimaxir/miditui/pkg/project"
	"github.com/minimaxir/miditui/pkg/synth"
)

// State is the transport's play/stop/render state (spec §4.3).
type State int

const (
	Stopped State = iota
	Playing
	Rendering
)

// SampleRate is the fixed output rate of the whole audio path.
const SampleRate = synth.SampleRate

// pendingOff is a scheduled note-off awaiting its due sample, ordered
// by DueSample so the earliest-due event is always the heap root.
type pendingOff struct {
	Channel   uint8
	Pitch     uint8
	DueSample int64
}

type offHeap []pendingOff

func (h offHeap) Len() int            { return len(h) }
func (h offHeap) Less(i, j int) bool  { return h[i].DueSample < h[j].DueSample }
func (h offHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *offHeap) Push(x interface{}) { *h = append(*h, x.(pendingOff)) }
func (h *offHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Scheduler is the transport & scheduler component (C3). It reads the
// project through snapshot, a function supplied by the owning facade
// that returns the current published, read-only view -- the
// scheduler never mutates a Project and never blocks (spec §5).
type Scheduler struct {
	snapshot func() *project.Project
	engine   *synth.Synth

	state           State
	positionSamples int64

	pending     offHeap
	prevAudible map[int]bool

	cancelRender atomic.Bool
}

// New returns a stopped scheduler bound to snapshot and engine.
// snapshot must return a consistent, read-only Project view for the
// duration of a single ProcessBlock call.
func New(snapshot func() *project.Project, engine *synth.Synth) *Scheduler {
	return &Scheduler{
		snapshot:    snapshot,
		engine:      engine,
		prevAudible: make(map[int]bool),
	}
}

// State reports the current transport state.
func (s *Scheduler) State() State {
	return s.state
}

// PositionSamples reports the current absolute sample position.
func (s *Scheduler) PositionSamples() int64 {
	return s.positionSamples
}

// PositionTick reports the current position translated to ticks under
// the snapshot project's tempo.
func (s *Scheduler) PositionTick() int64 {
	return s.snapshot().SamplesToTick(s.positionSamples, SampleRate)
}

// Play transitions Stopped -> Playing. It is a no-op from any other
// state.
func (s *Scheduler) Play() {
	if s.state == Stopped {
		s.state = Playing
	}
}

// Stop silences every channel and transitions to Stopped. Idempotent,
// per spec §4.3.
func (s *Scheduler) Stop() {
	s.engine.AllNotesOffAllChannels()
	s.pending = s.pending[:0]
	s.prevAudible = make(map[int]bool)
	s.state = Stopped
}

// SeekTo sets the playback position to tick, flushing pending note
// offs and silencing every channel. Safe while Playing (spec §4.3).
func (s *Scheduler) SeekTo(tick int64) {
	proj := s.snapshot()
	s.positionSamples = proj.TickToSamples(tick, SampleRate)
	s.engine.AllNotesOffAllChannels()
	s.pending = s.pending[:0]
	s.prevAudible = make(map[int]bool)
}

// Rewind resets the clock to sample 0, per "stop_and_rewind" in
// spec §4.3's clock description.
func (s *Scheduler) Rewind() {
	s.SeekTo(0)
}

// event is one dispatch point within a block: a note-on or a note-off
// at a given sample offset from the block's start.
type event struct {
	offset  int
	isOff   bool // note-offs sort before note-ons at the same offset
	channel uint8
	pitch   uint8
	velocity uint8
}

// ProcessBlock renders exactly len(outLeft) samples into outLeft and
// outRight. If the transport is not Playing or Rendering, it renders
// silence and leaves the clock untouched. Implements spec §4.3's
// five-step block algorithm, with sub-block splitting so a note
// starting mid-block is dispatched on its exact sample rather than
// rounded to the block boundary (spec §4.3, "sub-block accuracy").
func (s *Scheduler) ProcessBlock(outLeft, outRight []float32) error {
	n := len(outLeft)
	if s.state != Playing && s.state != Rendering {
		for i := range outLeft {
			outLeft[i] = 0
			outRight[i] = 0
		}
		return nil
	}

	proj := s.snapshot()
	tickStart := proj.SamplesToTick(s.positionSamples, SampleRate)
	tickEnd := proj.SamplesToTick(s.positionSamples+int64(n), SampleRate)

	audible := make(map[int]bool)
	for _, idx := range proj.AudibleTracks() {
		audible[idx] = true
	}
	for idx := range s.prevAudible {
		if s.prevAudible[idx] && !audible[idx] {
			tr, err := proj.Track(idx)
			if err == nil {
				s.engine.AllNotesOff(tr.Channel)
			}
		}
	}
	s.prevAudible = audible

	var events []event
	for idx := range audible {
		tr, err := proj.Track(idx)
		if err != nil {
			continue
		}
		for _, note := range tr.NotesInWindow(tickStart, tickEnd) {
			if note.Start < tickStart || note.Start >= tickEnd {
				continue // already sounding or not yet due this block
			}
			offset := int(proj.TickToSamples(note.Start, SampleRate) - s.positionSamples)
			if offset < 0 {
				offset = 0
			}
			if offset >= n {
				continue
			}
			events = append(events, event{offset: offset, isOff: false, channel: tr.Channel, pitch: note.Pitch, velocity: note.Velocity})
			due := proj.TickToSamples(note.End(), SampleRate)
			heap.Push(&s.pending, pendingOff{Channel: tr.Channel, Pitch: note.Pitch, DueSample: due})
		}
	}

	blockEnd := s.positionSamples + int64(n)
	for len(s.pending) > 0 && s.pending[0].DueSample < blockEnd {
		off := heap.Pop(&s.pending).(pendingOff)
		offset := int(off.DueSample - s.positionSamples)
		if offset < 0 {
			offset = 0
		}
		if offset >= n {
			offset = n - 1
		}
		events = append(events, event{offset: offset, isOff: true, channel: off.Channel, pitch: off.Pitch})
	}

	sortEvents(events)

	var vol, pan [synth.Channels]float64
	for _, tr := range proj.Tracks {
		vol[tr.Channel] = tr.Volume
		pan[tr.Channel] = tr.Pan
	}

	cursor := 0
	for _, e := range events {
		if e.offset > cursor {
			if err := s.engine.RenderBlock(outLeft[cursor:e.offset], outRight[cursor:e.offset], vol, pan); err != nil {
				return err
			}
			cursor = e.offset
		}
		if e.isOff {
			_ = s.engine.NoteOff(e.channel, e.pitch)
		} else {
			_ = s.engine.NoteOn(e.channel, e.pitch, e.velocity)
		}
	}
	if cursor < n {
		if err := s.engine.RenderBlock(outLeft[cursor:n], outRight[cursor:n], vol, pan); err != nil {
			return err
		}
	}

	s.positionSamples = blockEnd
	return nil
}

// sortEvents orders by ascending sample offset; note-offs precede
// note-ons at the same offset (spec §5 ordering guarantee).
func sortEvents(events []event) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && less(events[j], events[j-1]); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}

func less(a, b event) bool {
	if a.offset != b.offset {
		return a.offset < b.offset
	}
	if a.isOff != b.isOff {
		return a.isOff // off before on
	}
	return a.pitch < b.pitch
}

// HasPendingEvents reports whether any scheduled note-off remains
// unflushed, used by the offline renderer to decide when to begin its
// decay tail.
func (s *Scheduler) HasPendingEvents() bool {
	return len(s.pending) > 0
}
