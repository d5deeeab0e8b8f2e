package synth

import "errors"

// Recoverable errors from any note-emitting call or SoundFont load, per
// spec §4.2 and §7: these are reported and the caller continues, never
// a panic.
var (
	ErrNoSoundFontLoaded = errors.New("no SoundFont loaded")
	ErrPresetNotFound    = errors.New("preset not found in active SoundFont")
	ErrSoundFontLoad     = errors.New("failed to load SoundFont")
)
