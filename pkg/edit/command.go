// Package edit represents every mutation of a project as a command
// object carrying both its forward and inverse effect by value, and
// maintains a bounded, linear undo/redo history over them (spec
// §4.5). Commands are a tagged variant dispatched through the private
// apply and revert methods, not a class hierarchy (spec §9).
package edit

import (
	"fmt"

	"github.com/minimaxir/miditui/pkg/project"
)

// Kind identifies which mutation a Command performs.
type Kind int

const (
	AddTrack Kind = iota
	RemoveTrack
	RenameTrack
	SetInstrument
	ToggleMute
	ToggleSolo
	SetVolume
	SetPan
	AddNote
	RemoveNote
	MoveNote
	ResizeNote
	SetTempo
	SetTimeSignature
	SetSoundFont
	LoadProject
)

// Command is a tagged variant of every mutation kind. Only the fields
// relevant to Kind are populated; apply/revert pull exactly the ones
// they need. All state needed to reconstruct the pre-state is carried
// by value, never by a live reference into the project (spec §4.5).
type Command struct {
	Kind Kind

	// groupID, when non-zero, ties this command to the batch of
	// insert-mode keystrokes it was written by (spec §4.4: a group
	// boundary closes after 200ms of keyboard quiescence). Zero means
	// the command undoes individually, as every non-insert-mode edit
	// does.
	groupID int64

	TrackIndex int

	// AddTrack / RemoveTrack
	Track *project.Track // the track value added or removed

	// RenameTrack
	OldName, NewName string

	// SetInstrument
	OldInstrument, NewInstrument project.Instrument

	// ToggleMute / ToggleSolo carry no extra state: apply and revert
	// are both a plain boolean flip.

	// SetVolume / SetPan
	OldFloat, NewFloat float64

	// AddNote / RemoveNote / MoveNote / ResizeNote
	Note           project.Note // the note as it exists before MoveNote/ResizeNote, or the note added/removed
	PitchDelta     int
	TickDelta      int64
	DurationDelta  int64

	// SetTempo
	OldTempo, NewTempo float64

	// SetTimeSignature
	OldTimeSig, NewTimeSig project.TimeSignature

	// SetSoundFont
	OldSoundFontPath, NewSoundFontPath string

	// LoadProject
	OldProject, NewProject *project.Project
}

// apply performs the command's forward effect on p.
func (c *Command) apply(p *project.Project) error {
	switch c.Kind {
	case AddTrack:
		p.InsertTrackAt(c.TrackIndex, c.Track.Clone())
		return nil

	case RemoveTrack:
		_, err := p.RemoveTrackAt(c.TrackIndex)
		return err

	case RenameTrack:
		return p.RenameTrack(c.TrackIndex, c.NewName)

	case SetInstrument:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		tr.Instrument = c.NewInstrument
		return nil

	case ToggleMute:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		tr.Mute = !tr.Mute
		return nil

	case ToggleSolo:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		tr.Solo = !tr.Solo
		p.InvalidateSoloCache()
		return nil

	case SetVolume:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		tr.SetVolume(c.NewFloat)
		return nil

	case SetPan:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		tr.SetPan(c.NewFloat)
		return nil

	case AddNote:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		return tr.AddNote(c.Note)

	case RemoveNote:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		return tr.RemoveNote(c.Note.Pitch, c.Note.Start)

	case MoveNote:
		return moveNote(p, c.TrackIndex, c.Note, c.PitchDelta, c.TickDelta)

	case ResizeNote:
		return resizeNote(p, c.TrackIndex, c.Note, c.DurationDelta)

	case SetTempo:
		return p.SetTempo(c.NewTempo)

	case SetTimeSignature:
		return p.SetTimeSignature(c.NewTimeSig)

	case SetSoundFont:
		p.SoundFontPath = c.NewSoundFontPath
		return nil

	case LoadProject:
		p.ReplaceWith(c.NewProject)
		return nil

	default:
		return fmt.Errorf("edit: unknown command kind %d", c.Kind)
	}
}

// revert performs the command's inverse effect on p.
func (c *Command) revert(p *project.Project) error {
	switch c.Kind {
	case AddTrack:
		_, err := p.RemoveTrackAt(c.TrackIndex)
		return err

	case RemoveTrack:
		return p.InsertTrackAt(c.TrackIndex, c.Track.Clone())

	case RenameTrack:
		return p.RenameTrack(c.TrackIndex, c.OldName)

	case SetInstrument:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		tr.Instrument = c.OldInstrument
		return nil

	case ToggleMute:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		tr.Mute = !tr.Mute
		return nil

	case ToggleSolo:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		tr.Solo = !tr.Solo
		p.InvalidateSoloCache()
		return nil

	case SetVolume:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		tr.SetVolume(c.OldFloat)
		return nil

	case SetPan:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		tr.SetPan(c.OldFloat)
		return nil

	case AddNote:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		return tr.RemoveNote(c.Note.Pitch, c.Note.Start)

	case RemoveNote:
		tr, err := p.Track(c.TrackIndex)
		if err != nil {
			return err
		}
		return tr.AddNote(c.Note)

	case MoveNote:
		moved := c.Note
		moved.Pitch = uint8(int(c.Note.Pitch) + c.PitchDelta)
		moved.Start = c.Note.Start + c.TickDelta
		return moveNote(p, c.TrackIndex, moved, -c.PitchDelta, -c.TickDelta)

	case ResizeNote:
		resized := c.Note
		resized.Duration = c.Note.Duration + c.DurationDelta
		return resizeNote(p, c.TrackIndex, resized, -c.DurationDelta)

	case SetTempo:
		return p.SetTempo(c.OldTempo)

	case SetTimeSignature:
		return p.SetTimeSignature(c.OldTimeSig)

	case SetSoundFont:
		p.SoundFontPath = c.OldSoundFontPath
		return nil

	case LoadProject:
		p.ReplaceWith(c.OldProject)
		return nil

	default:
		return fmt.Errorf("edit: unknown command kind %d", c.Kind)
	}
}

// moveNote relocates the note at (note.Pitch, note.Start) by the
// given deltas, failing without effect if the destination collides
// with an existing note.
func moveNote(p *project.Project, trackIndex int, note project.Note, pitchDelta int, tickDelta int64) error {
	tr, err := p.Track(trackIndex)
	if err != nil {
		return err
	}
	moved := note
	moved.Pitch = uint8(int(note.Pitch) + pitchDelta)
	moved.Start = note.Start + tickDelta
	if err := tr.AddNote(moved); err != nil {
		return err
	}
	if err := tr.RemoveNote(note.Pitch, note.Start); err != nil {
		_ = tr.RemoveNote(moved.Pitch, moved.Start)
		return err
	}
	return nil
}

// resizeNote changes the duration of the note at (note.Pitch,
// note.Start) by delta.
func resizeNote(p *project.Project, trackIndex int, note project.Note, durationDelta int64) error {
	tr, err := p.Track(trackIndex)
	if err != nil {
		return err
	}
	resized := note
	resized.Duration = note.Duration + durationDelta
	if resized.Duration < 1 {
		return project.ErrInvalidNote
	}
	if err := tr.RemoveNote(note.Pitch, note.Start); err != nil {
		return err
	}
	if err := tr.AddNote(resized); err != nil {
		_ = tr.AddNote(note)
		return err
	}
	return nil
}
