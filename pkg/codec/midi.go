package codec

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/minimaxir/miditui/pkg/project"
)

// ccVolume and ccPan are the Control Change numbers used as a
// best-effort carrier for mixer state MIDI has no first-class field
// for (spec §4.6).
const (
	ccVolume = 7
	ccPan    = 10
)

// EncodeMIDI writes p as a Standard MIDI File type 1: one track per
// project track, plus a conductor track carrying tempo and time
// signature. Mute, solo, and the SoundFont path are not representable
// and are silently dropped; volume and pan are emitted as CC7/CC10
// immediately before any note data (spec §4.6).
func EncodeMIDI(p *project.Project, w io.Writer) error {
	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(project.TicksPerQuarter)

	var conductor smf.Track
	conductor.Add(0, smf.MetaTempo(p.Tempo))
	conductor.Add(0, smf.MetaTimeSig(p.TimeSignature.Numerator, p.TimeSignature.Denominator, 24, 8))
	conductor.Close(0)
	s.Add(conductor)

	for _, tr := range p.Tracks {
		s.Add(encodeMIDITrack(tr))
	}

	_, err := s.WriteTo(w)
	return err
}

// EncodeMIDIFile is a convenience wrapper around EncodeMIDI for a path
// on disk.
func EncodeMIDIFile(p *project.Project, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("codec: create %s: %w", path, err)
	}
	defer f.Close()
	return EncodeMIDI(p, f)
}

type timedMessage struct {
	tick uint32
	msg  midi.Message
}

func encodeMIDITrack(tr *project.Track) smf.Track {
	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(tr.Name))
	track.Add(0, midi.ProgramChange(tr.Channel, tr.Instrument.Program))
	track.Add(0, midi.ControlChange(tr.Channel, ccVolume, uint8(clamp01(tr.Volume)*127)))
	track.Add(0, midi.ControlChange(tr.Channel, ccPan, uint8((clampPan(tr.Pan)+1)*63.5)))

	var events []timedMessage
	for _, n := range tr.Notes() {
		events = append(events, timedMessage{tick: uint32(n.Start), msg: midi.NoteOn(tr.Channel, n.Pitch, n.Velocity)})
		events = append(events, timedMessage{tick: uint32(n.End()), msg: midi.NoteOff(tr.Channel, n.Pitch)})
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		var chi, ni, veli uint8
		isOffI := events[i].msg.GetNoteOff(&chi, &ni, &veli)
		return isOffI // note-offs before note-ons at the same tick
	})

	var lastTick uint32
	for _, ev := range events {
		track.Add(ev.tick-lastTick, ev.msg)
		lastTick = ev.tick
	}
	track.Close(0)
	return track
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampPan(p float64) float64 {
	if p < -1 {
		return -1
	}
	if p > 1 {
		return 1
	}
	return p
}

// DecodeMIDI reads a Standard MIDI File into a new Project. Import is
// lossy in the direction spec §4.6 documents: every track starts with
// mute=false, solo=false; its name comes from the track's sequence-name
// event (or "Track N" by position if it has none), its channel from
// its channel messages, and its program from its last Program Change;
// volume and pan are reconstructed from CC7/CC10 where present.
func DecodeMIDI(r io.Reader) (*project.Project, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	tpq := int64(project.TicksPerQuarter)
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		tpq = int64(mt)
	}

	p := &project.Project{Tempo: 120, TimeSignature: project.DefaultTimeSignature}
	p.Tracks = nil

	for _, midiTrack := range s.Tracks {
		var absTick uint32
		var name string
		var channel uint8
		var program uint8
		var volume = 1.0
		var pan = 0.0
		var notes []project.Note
		pending := make(map[uint8]project.Note) // pitch -> note awaiting its off

		for _, ev := range midiTrack {
			absTick += ev.Delta
			msg := ev.Message

			var bpm float64
			if msg.GetMetaTempo(&bpm) {
				p.Tempo = bpm
				continue
			}
			var num, denom, clocksPerClick, thirtySecondsPerQuarter uint8
			if msg.GetMetaTimeSig(&num, &denom, &clocksPerClick, &thirtySecondsPerQuarter) {
				p.TimeSignature = project.TimeSignature{Numerator: num, Denominator: denom}
				continue
			}
			var trackName string
			if msg.GetMetaTrackSequenceName(&trackName) {
				name = trackName
				continue
			}

			var ch, key, vel uint8
			if msg.GetNoteOn(&ch, &key, &vel) && vel > 0 {
				channel = ch
				tick := scaleTick(int64(absTick), tpq)
				pending[key] = project.Note{Pitch: key, Start: tick, Velocity: vel, Duration: 1}
				continue
			}
			var offCh, offKey, offVel uint8
			isOff := msg.GetNoteOff(&offCh, &offKey, &offVel)
			if !isOff && msg.GetNoteOn(&offCh, &offKey, &offVel) && offVel == 0 {
				isOff = true
			}
			if isOff {
				if n, ok := pending[offKey]; ok {
					tick := scaleTick(int64(absTick), tpq)
					n.Duration = tick - n.Start
					if n.Duration < 1 {
						n.Duration = 1
					}
					notes = append(notes, n)
					delete(pending, offKey)
				}
				continue
			}

			var pcCh, pc uint8
			if msg.GetProgramChange(&pcCh, &pc) {
				channel = pcCh
				program = pc
				continue
			}
			var ccCh, cc, val uint8
			if msg.GetControlChange(&ccCh, &cc, &val) {
				channel = ccCh
				switch cc {
				case ccVolume:
					volume = float64(val) / 127.0
				case ccPan:
					pan = float64(val)/63.5 - 1
				}
			}
		}

		if name == "" && len(notes) == 0 && channel == 0 && program == 0 {
			continue // a pure conductor/meta track, not a musical one
		}

		tr := project.NewTrack(trackNameOrDefault(name, len(p.Tracks)+1), channel)
		tr.Instrument = project.Instrument{Program: program}
		tr.SetVolume(volume)
		tr.SetPan(pan)
		for _, n := range notes {
			_ = tr.AddNote(n)
		}
		p.Tracks = append(p.Tracks, tr)
	}

	if len(p.Tracks) == 0 {
		p.Tracks = append(p.Tracks, project.NewTrack("Track 1", 0))
	}
	return p, nil
}

// DecodeMIDIFile is a convenience wrapper around DecodeMIDI for a path
// on disk.
func DecodeMIDIFile(path string) (*project.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codec: open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeMIDI(f)
}

func trackNameOrDefault(name string, n int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("Track %d", n)
}

// scaleTick rescales a tick value expressed at the source file's
// ticks-per-quarter to the project's fixed TicksPerQuarter.
func scaleTick(tick int64, sourceTPQ int64) int64 {
	if sourceTPQ == project.TicksPerQuarter {
		return tick
	}
	return tick * project.TicksPerQuarter / sourceTPQ
}
