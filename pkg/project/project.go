package project

// TimeSignature is the project's single global meter.
type TimeSignature struct {
	Numerator   uint8 // 1-32
	Denominator uint8 // one of 1, 2, 4, 8, 16
}

// DefaultTimeSignature is 4/4.
var DefaultTimeSignature = TimeSignature{Numerator: 4, Denominator: 4}

func validDenominator(d uint8) bool {
	switch d {
	case 1, 2, 4, 8, 16:
		return true
	default:
		return false
	}
}

func (ts TimeSignature) validate() error {
	if ts.Numerator < 1 || ts.Numerator > 32 {
		return ErrInvalidTimeSig
	}
	if !validDenominator(ts.Denominator) {
		return ErrInvalidTimeSig
	}
	return nil
}

// TicksPerBeat returns the tick length of one beat under this meter,
// i.e. one denominator-unit note.
func (ts TimeSignature) TicksPerBeat() int64 {
	return int64(TicksPerQuarter) * 4 / int64(ts.Denominator)
}

// ViewMode is the editor's current display mode. Pure UI state kept
// here so autosave restores it.
type ViewMode int

const (
	ViewPianoRoll ViewMode = iota
	ViewTimeline
	ViewMixer
)

// Selection identifies a range of notes on one track, used by
// copy/paste and bulk edits in the terminal front-end.
type Selection struct {
	Track      int
	StartTick  int64
	EndTick    int64
	HasPitches bool
	LowPitch   uint8
	HighPitch  uint8
}

// EditorState is user-interface state that nonetheless lives inside
// the project so autosave restores exactly where the user left off.
type EditorState struct {
	Mode           ViewMode
	Selection      Selection
	CurrentOctave  int // 0-8, insert-mode's displayed bottom octave
	CursorTick     int64
	InsertAnchor   int64
	InsertAnchorOn bool // whether an insert-mode anchor is currently live
}

// Project is the root entity shared between the control thread and,
// for the duration of one audio block, the audio thread (see §5 of
// the design notes: C3 holds a read-only view per block, C6 holds a
// read-only snapshot per encode).
type Project struct {
	Tempo         float64 // BPM, > 0
	TimeSignature TimeSignature
	SoundFontPath string // absolute path; may be empty
	Tracks        []*Track
	Editor        EditorState

	soloCache      bool
	soloCacheValid bool
}

// New returns an empty project with one default track, matching the
// lifecycle in spec §3: "Projects are created empty (one default
// track)."
func New() *Project {
	p := &Project{
		Tempo:         120,
		TimeSignature: DefaultTimeSignature,
	}
	p.Tracks = append(p.Tracks, NewTrack("Track 1", 0))
	return p
}

// SetTempo validates and sets the global tempo.
func (p *Project) SetTempo(bpm float64) error {
	if bpm <= 0 {
		return ErrInvalidTempo
	}
	p.Tempo = bpm
	return nil
}

// SetTimeSignature validates and sets the global meter.
func (p *Project) SetTimeSignature(ts TimeSignature) error {
	if err := ts.validate(); err != nil {
		return err
	}
	p.TimeSignature = ts
	return nil
}

// Track returns the track at index, or an error if out of range. The
// returned pointer aliases project state; callers on the control
// thread only.
func (p *Project) Track(index int) (*Track, error) {
	if index < 0 || index >= len(p.Tracks) {
		return nil, ErrTrackNotFound
	}
	return p.Tracks[index], nil
}

// InvalidateSoloCache forces AnySolo to recompute on next call. Must
// be called whenever a track's Solo field changes.
func (p *Project) InvalidateSoloCache() {
	p.soloCacheValid = false
}

// AnySolo reports whether any track currently has Solo set, caching
// the result until InvalidateSoloCache is called (spec §4.1).
func (p *Project) AnySolo() bool {
	if p.soloCacheValid {
		return p.soloCache
	}
	any := false
	for _, t := range p.Tracks {
		if t.Solo {
			any = true
			break
		}
	}
	p.soloCache = any
	p.soloCacheValid = true
	return any
}

// AudibleTracks returns the indices of tracks that should produce
// sound this block: if AnySolo, exactly the soloed tracks; otherwise
// every unmuted track (spec §4.3 step 2).
func (p *Project) AudibleTracks() []int {
	solo := p.AnySolo()
	var out []int
	for i, t := range p.Tracks {
		if solo {
			if t.Solo {
				out = append(out, i)
			}
		} else if !t.Mute {
			out = append(out, i)
		}
	}
	return out
}

// TickToSamples converts a tick position to an absolute sample count
// at the given sample rate, per spec §4.1:
// samples = tick * (60 / (bpm * tpq)) * sample_rate.
func (p *Project) TickToSamples(tick int64, sampleRate int) int64 {
	seconds := float64(tick) * 60.0 / (p.Tempo * float64(TicksPerQuarter))
	return int64(seconds * float64(sampleRate))
}

// SamplesToTick is the inverse of TickToSamples.
func (p *Project) SamplesToTick(samples int64, sampleRate int) int64 {
	seconds := float64(samples) / float64(sampleRate)
	return int64(seconds * p.Tempo * float64(TicksPerQuarter) / 60.0)
}

// Clone returns a deep, independent copy of the project. Edit
// commands capture pre/post state by value using Clone so reverts
// never alias live state (spec §4.5), and C6/C3 snapshot the project
// for the duration of an encode/block the same way.
func (p *Project) Clone() *Project {
	clone := &Project{
		Tempo:         p.Tempo,
		TimeSignature: p.TimeSignature,
		SoundFontPath: p.SoundFontPath,
		Editor:        p.Editor,
	}
	clone.Tracks = make([]*Track, len(p.Tracks))
	for i, t := range p.Tracks {
		clone.Tracks[i] = t.Clone()
	}
	return clone
}

// AddTrack appends tr to the end of the project, returning its new index.
func (p *Project) AddTrack(tr *Track) int {
	p.Tracks = append(p.Tracks, tr)
	p.InvalidateSoloCache()
	return len(p.Tracks) - 1
}

// InsertTrackAt inserts tr at index, shifting later tracks back. index
// may equal len(p.Tracks) to append.
func (p *Project) InsertTrackAt(index int, tr *Track) error {
	if index < 0 || index > len(p.Tracks) {
		return ErrTrackNotFound
	}
	p.Tracks = append(p.Tracks, nil)
	copy(p.Tracks[index+1:], p.Tracks[index:])
	p.Tracks[index] = tr
	p.InvalidateSoloCache()
	return nil
}

// RemoveTrackAt removes and returns the track at index.
func (p *Project) RemoveTrackAt(index int) (*Track, error) {
	tr, err := p.Track(index)
	if err != nil {
		return nil, err
	}
	p.Tracks = append(p.Tracks[:index], p.Tracks[index+1:]...)
	p.InvalidateSoloCache()
	return tr, nil
}

// RenameTrack sets the track's display name, rejecting an empty name
// (spec §3: track names default to "Track N" but a user-supplied
// rename must not be blank).
func (p *Project) RenameTrack(index int, name string) error {
	tr, err := p.Track(index)
	if err != nil {
		return err
	}
	if name == "" {
		return ErrInvalidTrackName
	}
	tr.Name = name
	return nil
}

// ReplaceWith atomically replaces every field of p with src's, used by
// LoadProject edit commands (spec §4.5).
func (p *Project) ReplaceWith(src *Project) {
	*p = *src.Clone()
}

// ReconcileInstruments checks every track's instrument against
// hasPreset (typically backed by the active SoundFont's preset list)
// and falls back absent ones to (0, 0). It returns the indices of
// tracks that were reassigned, for the caller to surface as a
// non-fatal warning (spec §3: "tracks whose preset is absent fall
// back to (0,0) with a warning surfaced to the UI; this is not a
// fatal error").
func (p *Project) ReconcileInstruments(hasPreset func(bank, program uint8) bool) []int {
	var affected []int
	for i, t := range p.Tracks {
		if !hasPreset(t.Instrument.Bank, t.Instrument.Program) {
			t.Instrument = Instrument{Bank: 0, Program: 0}
			affected = append(affected, i)
		}
	}
	return affected
}

// NextChannel computes the MIDI channel a newly created track should
// use: round-robin over 0-15, skipping 9 (reserved for drums) unless
// explicitly requested. With more than 15 non-drum tracks, channels
// are reused and tracks sharing a channel will interfere on program
// changes. This is allowed; no warning is raised when it happens.
func (p *Project) NextChannel(drum bool) uint8 {
	if drum {
		return 9
	}
	count := 0
	for _, t := range p.Tracks {
		if !t.Drum {
			count++
		}
	}
	ch := uint8(count % 15)
	if ch >= 9 {
		ch++
	}
	return ch
}
