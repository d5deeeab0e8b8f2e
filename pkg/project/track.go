package project

import "sort"

// Instrument addresses a preset within the active SoundFont.
type Instrument struct {
	Bank    uint8
	Program uint8
}

// Track holds one voice's notes plus mixer and instrument state.
type Track struct {
	Name       string
	Instrument Instrument
	Channel    uint8 // 0-15, assigned at creation time
	Mute       bool
	Solo       bool
	Volume     float64 // 0.0-1.0, clamped on ingest
	Pan        float64 // -1.0 (left) .. +1.0 (right), clamped on ingest
	Drum       bool    // true if this track is explicitly a drum track (channel 9)

	// notes is kept sorted by Start (then Pitch) so NotesInWindow can
	// bound its scan with a binary search. byKey rejects duplicate
	// (pitch, start) pairs in O(1).
	notes []Note
	byKey map[noteKey]int // noteKey -> index into notes
}

// NewTrack creates an empty track with defaults matching spec §3.
func NewTrack(name string, channel uint8) *Track {
	return &Track{
		Name:    name,
		Channel: channel,
		Volume:  1.0,
		Pan:     0.0,
		byKey:   make(map[noteKey]int),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetVolume clamps into [0, 1]; never rejects, per spec §3 invariants.
func (t *Track) SetVolume(v float64) {
	t.Volume = clamp(v, 0.0, 1.0)
}

// SetPan clamps into [-1, 1]; never rejects.
func (t *Track) SetPan(p float64) {
	t.Pan = clamp(p, -1.0, 1.0)
}

// Notes returns a copy of the note list in start-tick order.
func (t *Track) Notes() []Note {
	out := make([]Note, len(t.notes))
	copy(out, t.notes)
	return out
}

// NoteCount reports how many notes the track holds.
func (t *Track) NoteCount() int {
	return len(t.notes)
}

// AddNote inserts a note, rejecting invalid fields and (pitch, start)
// collisions. The track's sort order is maintained incrementally.
func (t *Track) AddNote(n Note) error {
	if err := n.validate(); err != nil {
		return err
	}
	key := noteKey{pitch: n.Pitch, start: n.Start}
	if _, exists := t.byKey[key]; exists {
		return ErrDuplicateNote
	}

	idx := sort.Search(len(t.notes), func(i int) bool {
		if t.notes[i].Start != n.Start {
			return t.notes[i].Start >= n.Start
		}
		return t.notes[i].Pitch >= n.Pitch
	})
	t.notes = append(t.notes, Note{})
	copy(t.notes[idx+1:], t.notes[idx:])
	t.notes[idx] = n
	t.reindexFrom(idx)
	return nil
}

// RemoveNote deletes the note at (pitch, start), if present.
func (t *Track) RemoveNote(pitch uint8, start int64) error {
	key := noteKey{pitch: pitch, start: start}
	idx, ok := t.byKey[key]
	if !ok {
		return ErrNoteNotFound
	}
	t.notes = append(t.notes[:idx], t.notes[idx+1:]...)
	delete(t.byKey, key)
	t.reindexFrom(idx)
	return nil
}

// reindexFrom rebuilds byKey entries for notes at or after idx, since
// a slice insert/delete shifts every later index.
func (t *Track) reindexFrom(idx int) {
	for i := idx; i < len(t.notes); i++ {
		t.byKey[noteKey{pitch: t.notes[i].Pitch, start: t.notes[i].Start}] = i
	}
}

// Clone returns an independent copy of the track, including its notes.
func (t *Track) Clone() *Track {
	nt := NewTrack(t.Name, t.Channel)
	nt.Instrument = t.Instrument
	nt.Mute = t.Mute
	nt.Solo = t.Solo
	nt.Volume = t.Volume
	nt.Pan = t.Pan
	nt.Drum = t.Drum
	for _, n := range t.notes {
		_ = nt.AddNote(n)
	}
	return nt
}

// NotesInWindow returns notes whose [Start, Start+Duration) interval
// overlaps [startTick, endTick), in ascending (Start, Pitch) order.
//
// The underlying slice is sorted by Start, so a binary search finds
// the first note starting at or after endTick; every note before it is
// then checked, which also picks up notes that started before
// startTick but still reach into the window. The cost is therefore
// O(log n + m), where m is the number of notes starting before
// endTick, not O(log n + k) in the number of notes returned.
func (t *Track) NotesInWindow(startTick, endTick int64) []Note {
	if endTick <= startTick {
		return nil
	}

	// Scan forward from the first note up to the first note starting
	// at or after endTick, keeping those still sounding at startTick.
	hi := sort.Search(len(t.notes), func(i int) bool {
		return t.notes[i].Start >= endTick
	})

	var out []Note
	for i := 0; i < hi; i++ {
		n := t.notes[i]
		if n.End() > startTick {
			out = append(out, n)
		}
	}
	return out
}
