package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/minimaxir/miditui/pkg/project"
)

// jsonNote, jsonTrack, jsonSelection, jsonEditorState, and jsonProject
// mirror project's model with explicit, stable field names, so the
// on-disk schema does not depend on an internal struct's layout (spec
// §4.6: "Field names are stable; unknown fields are ignored on load").
type jsonNote struct {
	Pitch    uint8 `json:"pitch"`
	Start    int64 `json:"start"`
	Duration int64 `json:"duration"`
	Velocity uint8 `json:"velocity"`
}

type jsonTrack struct {
	Name    string     `json:"name"`
	Bank    uint8      `json:"bank"`
	Program uint8      `json:"program"`
	Channel uint8      `json:"channel"`
	Mute    bool       `json:"mute"`
	Solo    bool       `json:"solo"`
	Volume  float64    `json:"volume"`
	Pan     float64    `json:"pan"`
	Drum    bool       `json:"drum"`
	Notes   []jsonNote `json:"notes"`
}

// UnmarshalJSON presets the documented 1.0 volume before decoding, so
// only a track that omits "volume" receives the default; an explicit
// 0.0 is kept.
func (jt *jsonTrack) UnmarshalJSON(b []byte) error {
	type plainTrack jsonTrack
	v := plainTrack{Volume: 1.0}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*jt = jsonTrack(v)
	return nil
}

type jsonSelection struct {
	Track      int    `json:"track"`
	StartTick  int64  `json:"start_tick"`
	EndTick    int64  `json:"end_tick"`
	HasPitches bool   `json:"has_pitches"`
	LowPitch   uint8  `json:"low_pitch"`
	HighPitch  uint8  `json:"high_pitch"`
}

type jsonEditorState struct {
	Mode           int           `json:"mode"`
	Selection      jsonSelection `json:"selection"`
	CurrentOctave  int           `json:"current_octave"`
	CursorTick     int64         `json:"cursor_tick"`
	InsertAnchor   int64         `json:"insert_anchor"`
	InsertAnchorOn bool          `json:"insert_anchor_on"`
}

type jsonProject struct {
	Tempo           float64         `json:"tempo"`
	TimeSigNum      uint8           `json:"time_sig_numerator"`
	TimeSigDenom    uint8           `json:"time_sig_denominator"`
	SoundFontPath   string          `json:"soundfont_path"`
	Tracks          []jsonTrack     `json:"tracks"`
	Editor          jsonEditorState `json:"editor"`
	TicksPerQuarter int64           `json:"ticks_per_quarter"`
}

func toJSONProject(p *project.Project) jsonProject {
	jp := jsonProject{
		Tempo:           p.Tempo,
		TimeSigNum:      p.TimeSignature.Numerator,
		TimeSigDenom:    p.TimeSignature.Denominator,
		SoundFontPath:   p.SoundFontPath,
		TicksPerQuarter: project.TicksPerQuarter,
		Editor: jsonEditorState{
			Mode: int(p.Editor.Mode),
			Selection: jsonSelection{
				Track:      p.Editor.Selection.Track,
				StartTick:  p.Editor.Selection.StartTick,
				EndTick:    p.Editor.Selection.EndTick,
				HasPitches: p.Editor.Selection.HasPitches,
				LowPitch:   p.Editor.Selection.LowPitch,
				HighPitch:  p.Editor.Selection.HighPitch,
			},
			CurrentOctave:  p.Editor.CurrentOctave,
			CursorTick:     p.Editor.CursorTick,
			InsertAnchor:   p.Editor.InsertAnchor,
			InsertAnchorOn: p.Editor.InsertAnchorOn,
		},
	}
	for _, tr := range p.Tracks {
		jt := jsonTrack{
			Name:    tr.Name,
			Bank:    tr.Instrument.Bank,
			Program: tr.Instrument.Program,
			Channel: tr.Channel,
			Mute:    tr.Mute,
			Solo:    tr.Solo,
			Volume:  tr.Volume,
			Pan:     tr.Pan,
			Drum:    tr.Drum,
		}
		for _, n := range tr.Notes() {
			jt.Notes = append(jt.Notes, jsonNote{Pitch: n.Pitch, Start: n.Start, Duration: n.Duration, Velocity: n.Velocity})
		}
		jp.Tracks = append(jp.Tracks, jt)
	}
	return jp
}

// fromJSONProject rebuilds a Project, applying documented defaults
// for any field a hand-edited or older file omits (spec §4.6):
// tempo defaults to 120, time signature to 4/4, volume to 1.0.
func fromJSONProject(jp jsonProject) (*project.Project, error) {
	p := &project.Project{
		Tempo:         jp.Tempo,
		SoundFontPath: jp.SoundFontPath,
	}
	if p.Tempo <= 0 {
		p.Tempo = 120
	}
	ts := project.TimeSignature{Numerator: jp.TimeSigNum, Denominator: jp.TimeSigDenom}
	if ts.Numerator == 0 {
		ts = project.DefaultTimeSignature
	}
	p.TimeSignature = ts

	p.Editor = project.EditorState{
		Mode: project.ViewMode(jp.Editor.Mode),
		Selection: project.Selection{
			Track:      jp.Editor.Selection.Track,
			StartTick:  jp.Editor.Selection.StartTick,
			EndTick:    jp.Editor.Selection.EndTick,
			HasPitches: jp.Editor.Selection.HasPitches,
			LowPitch:   jp.Editor.Selection.LowPitch,
			HighPitch:  jp.Editor.Selection.HighPitch,
		},
		CurrentOctave:  jp.Editor.CurrentOctave,
		CursorTick:     jp.Editor.CursorTick,
		InsertAnchor:   jp.Editor.InsertAnchor,
		InsertAnchorOn: jp.Editor.InsertAnchorOn,
	}

	for _, jt := range jp.Tracks {
		tr := project.NewTrack(jt.Name, jt.Channel)
		tr.Instrument = project.Instrument{Bank: jt.Bank, Program: jt.Program}
		tr.Mute = jt.Mute
		tr.Solo = jt.Solo
		tr.SetVolume(jt.Volume)
		tr.SetPan(jt.Pan)
		tr.Drum = jt.Drum
		for _, jn := range jt.Notes {
			n := project.Note{Pitch: jn.Pitch, Start: jn.Start, Duration: jn.Duration, Velocity: jn.Velocity}
			if n.Velocity == 0 {
				n.Velocity = project.DefaultVelocity
			}
			if err := tr.AddNote(n); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
		}
		p.Tracks = append(p.Tracks, tr)
	}
	if len(p.Tracks) == 0 {
		p.Tracks = append(p.Tracks, project.NewTrack("Track 1", 0))
	}
	return p, nil
}

// EncodeJSON writes p as indented, UTF-8 JSON.
func EncodeJSON(p *project.Project, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSONProject(p))
}

// EncodeJSONFile is a convenience wrapper for writing to a path.
func EncodeJSONFile(p *project.Project, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("codec: create %s: %w", path, err)
	}
	defer f.Close()
	return EncodeJSON(p, f)
}

// DecodeJSON reads a project from JSON. Unknown fields are silently
// ignored by the standard decoder's default behavior.
func DecodeJSON(r io.Reader) (*project.Project, error) {
	var jp jsonProject
	if err := json.NewDecoder(r).Decode(&jp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromJSONProject(jp)
}

// DecodeJSONFile is a convenience wrapper for reading from a path.
func DecodeJSONFile(path string) (*project.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codec: open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeJSON(f)
}
