package edit

import "github.com/minimaxir/miditui/pkg/project"

// NewAddTrack returns a command that appends tr to the project.
func NewAddTrack(p *project.Project, tr *project.Track) *Command {
	return &Command{Kind: AddTrack, TrackIndex: len(p.Tracks), Track: tr}
}

// NewRemoveTrack returns a command that removes the track at index,
// capturing it by value so the removal can be undone.
func NewRemoveTrack(p *project.Project, index int) (*Command, error) {
	tr, err := p.Track(index)
	if err != nil {
		return nil, err
	}
	return &Command{Kind: RemoveTrack, TrackIndex: index, Track: tr.Clone()}, nil
}

// NewRenameTrack returns a command renaming the track at index.
func NewRenameTrack(p *project.Project, index int, name string) (*Command, error) {
	tr, err := p.Track(index)
	if err != nil {
		return nil, err
	}
	return &Command{Kind: RenameTrack, TrackIndex: index, OldName: tr.Name, NewName: name}, nil
}

// NewSetInstrument returns a command assigning a (bank, program) pair
// to the track at index.
func NewSetInstrument(p *project.Project, index int, instrument project.Instrument) (*Command, error) {
	tr, err := p.Track(index)
	if err != nil {
		return nil, err
	}
	return &Command{Kind: SetInstrument, TrackIndex: index, OldInstrument: tr.Instrument, NewInstrument: instrument}, nil
}

// NewToggleMute returns a command flipping the track's mute flag.
func NewToggleMute(p *project.Project, index int) (*Command, error) {
	if _, err := p.Track(index); err != nil {
		return nil, err
	}
	return &Command{Kind: ToggleMute, TrackIndex: index}, nil
}

// NewToggleSolo returns a command flipping the track's solo flag.
func NewToggleSolo(p *project.Project, index int) (*Command, error) {
	if _, err := p.Track(index); err != nil {
		return nil, err
	}
	return &Command{Kind: ToggleSolo, TrackIndex: index}, nil
}

// NewSetVolume returns a command setting the track's volume.
func NewSetVolume(p *project.Project, index int, volume float64) (*Command, error) {
	tr, err := p.Track(index)
	if err != nil {
		return nil, err
	}
	return &Command{Kind: SetVolume, TrackIndex: index, OldFloat: tr.Volume, NewFloat: volume}, nil
}

// NewSetPan returns a command setting the track's pan.
func NewSetPan(p *project.Project, index int, pan float64) (*Command, error) {
	tr, err := p.Track(index)
	if err != nil {
		return nil, err
	}
	return &Command{Kind: SetPan, TrackIndex: index, OldFloat: tr.Pan, NewFloat: pan}, nil
}

// NewAddNote returns a command adding note to the track at index.
func NewAddNote(p *project.Project, index int, note project.Note) (*Command, error) {
	if _, err := p.Track(index); err != nil {
		return nil, err
	}
	return &Command{Kind: AddNote, TrackIndex: index, Note: note}, nil
}

// NewRemoveNote returns a command removing the note at (pitch, start)
// on the track at index.
func NewRemoveNote(p *project.Project, index int, pitch uint8, start int64) (*Command, error) {
	tr, err := p.Track(index)
	if err != nil {
		return nil, err
	}
	for _, n := range tr.Notes() {
		if n.Pitch == pitch && n.Start == start {
			return &Command{Kind: RemoveNote, TrackIndex: index, Note: n}, nil
		}
	}
	return nil, project.ErrNoteNotFound
}

// NewMoveNote returns a command shifting the note at (pitch, start)
// by the given deltas.
func NewMoveNote(p *project.Project, index int, pitch uint8, start int64, pitchDelta int, tickDelta int64) (*Command, error) {
	tr, err := p.Track(index)
	if err != nil {
		return nil, err
	}
	for _, n := range tr.Notes() {
		if n.Pitch == pitch && n.Start == start {
			return &Command{Kind: MoveNote, TrackIndex: index, Note: n, PitchDelta: pitchDelta, TickDelta: tickDelta}, nil
		}
	}
	return nil, project.ErrNoteNotFound
}

// NewResizeNote returns a command changing the duration of the note
// at (pitch, start) by durationDelta.
func NewResizeNote(p *project.Project, index int, pitch uint8, start int64, durationDelta int64) (*Command, error) {
	tr, err := p.Track(index)
	if err != nil {
		return nil, err
	}
	for _, n := range tr.Notes() {
		if n.Pitch == pitch && n.Start == start {
			return &Command{Kind: ResizeNote, TrackIndex: index, Note: n, DurationDelta: durationDelta}, nil
		}
	}
	return nil, project.ErrNoteNotFound
}

// NewSetTempo returns a command setting the project's global tempo.
func NewSetTempo(p *project.Project, bpm float64) *Command {
	return &Command{Kind: SetTempo, OldTempo: p.Tempo, NewTempo: bpm}
}

// NewSetTimeSignature returns a command setting the project's meter.
func NewSetTimeSignature(p *project.Project, ts project.TimeSignature) *Command {
	return &Command{Kind: SetTimeSignature, OldTimeSig: p.TimeSignature, NewTimeSig: ts}
}

// NewSetSoundFont returns a command setting the project's active
// SoundFont path.
func NewSetSoundFont(p *project.Project, path string) *Command {
	return &Command{Kind: SetSoundFont, OldSoundFontPath: p.SoundFontPath, NewSoundFontPath: path}
}

// NewLoadProject returns a command replacing the entire project with
// incoming. The inverse is the outgoing project captured by value
// (spec §4.5: "inverse is the outgoing project").
func NewLoadProject(p *project.Project, incoming *project.Project) *Command {
	return &Command{Kind: LoadProject, OldProject: p.Clone(), NewProject: incoming.Clone()}
}
