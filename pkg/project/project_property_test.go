package project

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestVolumePanClampProperty verifies spec R8: volume and pan are
// clamped to their ranges on ingest and never propagate out of range.
func TestVolumePanClampProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("SetVolume always yields a value in [0,1]", prop.ForAll(
		func(v float64) bool {
			tr := NewTrack("t", 0)
			tr.SetVolume(v)
			return tr.Volume >= 0.0 && tr.Volume <= 1.0
		},
		gen.Float64Range(-1000, 1000),
	))

	properties.Property("SetPan always yields a value in [-1,1]", prop.ForAll(
		func(p float64) bool {
			tr := NewTrack("t", 0)
			tr.SetPan(p)
			return tr.Pan >= -1.0 && tr.Pan <= 1.0
		},
		gen.Float64Range(-1000, 1000),
	))

	properties.TestingRun(t)
}

// TestNoDuplicatePitchStartProperty verifies the track invariant that
// at most one note exists per (pitch, start), regardless of insertion
// order or count of attempts.
func TestNoDuplicatePitchStartProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("inserting the same (pitch,start) twice never duplicates", prop.ForAll(
		func(pitch uint8, start int64) bool {
			if start < 0 {
				start = -start
			}
			tr := NewTrack("t", 0)
			n := Note{Pitch: pitch % 128, Start: start, Duration: 1, Velocity: 100}
			err1 := tr.AddNote(n)
			err2 := tr.AddNote(n)
			return err1 == nil && err2 == ErrDuplicateNote && tr.NoteCount() == 1
		},
		gen.UInt8Range(0, 127),
		gen.Int64Range(0, 1_000_000),
	))

	properties.TestingRun(t)
}

// TestTickToSamplesMonotonicProperty verifies that TickToSamples is
// monotonically non-decreasing in tick for any positive tempo, which
// the scheduler relies on to never reorder note-on events.
func TestTickToSamplesMonotonicProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("later ticks never map to earlier samples", prop.ForAll(
		func(bpm float64, a, b int64) bool {
			if bpm <= 0 {
				bpm = 1
			}
			if a > b {
				a, b = b, a
			}
			p := New()
			_ = p.SetTempo(bpm)
			return p.TickToSamples(a, 44100) <= p.TickToSamples(b, 44100)
		},
		gen.Float64Range(1, 400),
		gen.Int64Range(0, 10_000_000),
		gen.Int64Range(0, 10_000_000),
	))

	properties.TestingRun(t)
}
