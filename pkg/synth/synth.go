// Package synth wraps a SoundFont-driven polyphonic synthesizer
// (go-meltysynth) behind the note-on/note-off/render-block contract
// the transport scheduler (pkg/transport) drives every audio block.
package synth

import (
	"fmt"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// SampleRate is the fixed output rate of the whole audio path (spec §6).
const SampleRate = 44100

// Channels is the number of addressable MIDI channels.
const Channels = 16

// Standard MIDI control-change numbers used to apply mixer state
// ahead of synthesis, and the all-sound-off message used to cut
// voices immediately rather than let them release.
const (
	ccBankSelectMSB = 0
	ccVolume        = 7
	ccPan           = 10
	ccAllSoundOff   = 120
	ccAllNotesOff   = 123
	cmdControlCh    = 0xB0
	cmdProgramCh    = 0xC0
)

// Synth is the C2 adapter. It owns exactly one loaded SoundFont at a
// time (spec §1 non-goal: "multi-SoundFont layering" is out of
// scope) and the meltysynth.Synthesizer built from it.
type Synth struct {
	handle *SoundFontHandle
	engine *meltysynth.Synthesizer

	// lastVolume/lastPan avoid re-emitting identical CC messages every
	// block; RenderBlock only issues CC7/CC10 for channels whose mixer
	// state actually changed since the previous block.
	lastVolume [Channels]float64
	lastPan    [Channels]float64
	haveMixer  bool
}

// New returns an adapter with no SoundFont loaded yet. Every
// note-emitting call returns ErrNoSoundFontLoaded until LoadSoundFont
// succeeds.
func New() *Synth {
	return &Synth{}
}

// LoadSoundFont parses path and makes it the active SoundFont,
// silencing any currently sounding voices and resetting every
// channel's program, per spec §4.2.
func (s *Synth) LoadSoundFont(path string) (*SoundFontHandle, error) {
	font, err := loadSoundFontFile(path)
	if err != nil {
		return nil, err
	}

	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	engine, err := meltysynth.NewSynthesizer(font, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSoundFontLoad, path, err)
	}

	handle := &SoundFontHandle{path: path, font: font, presets: presetsOf(font)}

	if s.engine != nil {
		s.engine.NoteOffAll(true)
	}
	s.handle = handle
	s.engine = engine
	s.haveMixer = false
	return handle, nil
}

// Handle returns the currently active SoundFont handle, or nil.
func (s *Synth) Handle() *SoundFontHandle {
	return s.handle
}

// Presets returns the active SoundFont's instrument catalog, or nil if
// none is loaded.
func (s *Synth) Presets() []Preset {
	if s.handle == nil {
		return nil
	}
	return s.handle.Presets()
}

func (s *Synth) requireEngine() error {
	if s.engine == nil {
		return ErrNoSoundFontLoaded
	}
	return nil
}

// SetProgram assigns (bank, program) to channel, immediately
// silencing any sounding voices on that channel first -- this is the
// fix for the "hung note when instrument switched mid-playback" class
// of bug described in spec §4.2.
func (s *Synth) SetProgram(channel uint8, bank uint8, program uint8) error {
	if err := s.requireEngine(); err != nil {
		return err
	}
	if s.handle != nil && !s.handle.HasPreset(bank, program) {
		return ErrPresetNotFound
	}

	ch := int32(channel)
	s.engine.ProcessMidiMessage(ch, cmdControlCh, ccAllSoundOff, 0)
	s.engine.ProcessMidiMessage(ch, cmdControlCh, ccBankSelectMSB, int32(bank))
	s.engine.ProcessMidiMessage(ch, cmdProgramCh, int32(program), 0)
	return nil
}

// NoteOn starts a voice. velocity is 1-127.
func (s *Synth) NoteOn(channel, pitch, velocity uint8) error {
	if err := s.requireEngine(); err != nil {
		return err
	}
	s.engine.NoteOn(int32(channel), int32(pitch), int32(velocity))
	return nil
}

// NoteOff releases a voice.
func (s *Synth) NoteOff(channel, pitch uint8) error {
	if err := s.requireEngine(); err != nil {
		return err
	}
	s.engine.NoteOff(int32(channel), int32(pitch))
	return nil
}

// AllNotesOff immediately cuts every sounding voice on channel,
// without waiting for each note's release phase.
func (s *Synth) AllNotesOff(channel uint8) error {
	if err := s.requireEngine(); err != nil {
		return err
	}
	s.engine.ProcessMidiMessage(int32(channel), cmdControlCh, ccAllSoundOff, 0)
	return nil
}

// AllNotesOffAllChannels is the cancellation primitive for transport
// stop and SoundFont reload (spec §5): every voice on every channel
// is cut immediately.
func (s *Synth) AllNotesOffAllChannels() {
	if s.engine == nil {
		return
	}
	s.engine.NoteOffAll(true)
}

// RenderBlock renders exactly n = len(outLeft) samples at SampleRate,
// applying per-channel volume and pan ahead of synthesis (by issuing
// CC7/CC10 only for channels whose mixer state changed since the last
// block, so steady-state playback costs nothing extra). outLeft and
// outRight must have equal, non-zero length; no allocation happens in
// this call.
func (s *Synth) RenderBlock(outLeft, outRight []float32, volume, pan [Channels]float64) error {
	if err := s.requireEngine(); err != nil {
		return err
	}

	for ch := 0; ch < Channels; ch++ {
		v := clamp01(volume[ch])
		p := clampPan(pan[ch])
		if s.haveMixer && v == s.lastVolume[ch] && p == s.lastPan[ch] {
			continue
		}
		s.engine.ProcessMidiMessage(int32(ch), cmdControlCh, ccVolume, int32(v*127))
		s.engine.ProcessMidiMessage(int32(ch), cmdControlCh, ccPan, int32((p+1)*63.5))
		s.lastVolume[ch] = v
		s.lastPan[ch] = p
	}
	s.haveMixer = true

	s.engine.Render(outLeft, outRight)
	return nil
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
