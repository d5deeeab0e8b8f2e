package synth

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// Preset is one addressable instrument within a SoundFont, as reported
// by the font itself rather than a hard-coded General MIDI table
// (spec §9: "Derive from the SoundFont at load time; do not hard-code
// instrument names").
type Preset struct {
	Bank    uint8
	Program uint8
	Name    string
}

// SoundFontHandle wraps a parsed SoundFont and caches its preset
// catalog, since the catalog is immutable for the handle's lifetime
// and re-deriving it on every instrument picker redraw would be
// wasteful (spec §9: "Cache the name list on the SoundFont handle").
type SoundFontHandle struct {
	path    string
	font    *meltysynth.SoundFont
	presets []Preset
}

// Path returns the path this handle was loaded from, exactly as it was
// passed to LoadSoundFont.
func (h *SoundFontHandle) Path() string {
	return h.path
}

// Presets returns the authoritative instrument catalog for this
// SoundFont: every (bank, program, name) triple it defines.
func (h *SoundFontHandle) Presets() []Preset {
	out := make([]Preset, len(h.presets))
	copy(out, h.presets)
	return out
}

// HasPreset reports whether (bank, program) addresses a real preset in
// this SoundFont.
func (h *SoundFontHandle) HasPreset(bank, program uint8) bool {
	for _, p := range h.presets {
		if p.Bank == bank && p.Program == program {
			return true
		}
	}
	return false
}

func loadSoundFontFile(path string) (*meltysynth.SoundFont, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSoundFontLoad, path, err)
	}
	font, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSoundFontLoad, path, err)
	}
	return font, nil
}

func presetsOf(font *meltysynth.SoundFont) []Preset {
	out := make([]Preset, 0, len(font.Presets))
	for _, p := range font.Presets {
		out = append(out, Preset{
			Bank:    uint8(p.BankNumber),
			Program: uint8(p.PatchNumber),
			Name:    p.Name,
		})
	}
	return out
}
