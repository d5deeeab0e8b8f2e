package project

import "testing"

func TestNewProjectHasOneDefaultTrack(t *testing.T) {
	p := New()

	if len(p.Tracks) != 1 {
		t.Fatalf("expected 1 default track, got %d", len(p.Tracks))
	}
	if p.Tempo != 120 {
		t.Errorf("expected default tempo 120, got %v", p.Tempo)
	}
	if p.TimeSignature != DefaultTimeSignature {
		t.Errorf("expected default 4/4, got %+v", p.TimeSignature)
	}
}

func TestSetTempoRejectsNonPositive(t *testing.T) {
	p := New()

	t.Run("zero", func(t *testing.T) {
		if err := p.SetTempo(0); err == nil {
			t.Error("expected error for zero tempo")
		}
	})
	t.Run("negative", func(t *testing.T) {
		if err := p.SetTempo(-10); err == nil {
			t.Error("expected error for negative tempo")
		}
	})
	t.Run("valid", func(t *testing.T) {
		if err := p.SetTempo(144); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if p.Tempo != 144 {
			t.Errorf("tempo not applied")
		}
	})
}

func TestSetTimeSignatureValidation(t *testing.T) {
	p := New()

	cases := []struct {
		name    string
		ts      TimeSignature
		wantErr bool
	}{
		{"valid 6/8", TimeSignature{6, 8}, false},
		{"zero numerator", TimeSignature{0, 4}, true},
		{"numerator too large", TimeSignature{33, 4}, true},
		{"bad denominator", TimeSignature{4, 3}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := p.SetTimeSignature(c.ts)
			if c.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !c.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAnySoloAndAudibleTracks(t *testing.T) {
	p := New()
	a := p.Tracks[0]
	b := NewTrack("Track 2", 1)
	p.Tracks = append(p.Tracks, b)

	if p.AnySolo() {
		t.Fatal("expected no solo by default")
	}

	a.Mute = true
	b.Solo = true
	p.InvalidateSoloCache()

	if !p.AnySolo() {
		t.Fatal("expected solo to be detected")
	}

	audible := p.AudibleTracks()
	if len(audible) != 1 || audible[0] != 1 {
		t.Fatalf("expected only track 1 audible under solo, got %v", audible)
	}
}

func TestAudibleTracksWithoutSoloRespectsMute(t *testing.T) {
	p := New()
	p.Tracks = append(p.Tracks, NewTrack("Track 2", 1))
	p.Tracks[0].Mute = true

	audible := p.AudibleTracks()
	if len(audible) != 1 || audible[0] != 1 {
		t.Fatalf("expected only unmuted track audible, got %v", audible)
	}
}

func TestTickToSamplesRoundTrip(t *testing.T) {
	p := New() // 120 BPM, TPQ 480
	const sampleRate = 44100

	samples := p.TickToSamples(TicksPerQuarter, sampleRate)
	// At 120 BPM, one quarter note = 0.5s = 22050 samples.
	if samples != 22050 {
		t.Errorf("expected 22050 samples, got %d", samples)
	}

	tick := p.SamplesToTick(samples, sampleRate)
	if tick != TicksPerQuarter {
		t.Errorf("round trip mismatch: got tick %d", tick)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := New()
	if err := p.Tracks[0].AddNote(Note{Pitch: 60, Start: 0, Duration: 480, Velocity: 100}); err != nil {
		t.Fatal(err)
	}

	clone := p.Clone()
	clone.Tempo = 200
	if err := clone.Tracks[0].AddNote(Note{Pitch: 62, Start: 480, Duration: 480, Velocity: 100}); err != nil {
		t.Fatal(err)
	}

	if p.Tempo == 200 {
		t.Error("mutating clone affected original tempo")
	}
	if p.Tracks[0].NoteCount() != 1 {
		t.Error("mutating clone affected original notes")
	}
}

func TestReconcileInstrumentsFallsBackToDefault(t *testing.T) {
	p := New()
	p.Tracks[0].Instrument = Instrument{Bank: 1, Program: 5}

	hasPreset := func(bank, program uint8) bool { return bank == 0 && program == 0 }
	affected := p.ReconcileInstruments(hasPreset)

	if len(affected) != 1 || affected[0] != 0 {
		t.Fatalf("expected track 0 to be reconciled, got %v", affected)
	}
	if p.Tracks[0].Instrument != (Instrument{0, 0}) {
		t.Errorf("expected fallback to (0,0), got %+v", p.Tracks[0].Instrument)
	}
}

func TestNextChannelSkipsDrumAndReuses(t *testing.T) {
	p := New() // already has 1 non-drum track on channel 0

	for i := 1; i < 16; i++ {
		ch := p.NextChannel(false)
		p.Tracks = append(p.Tracks, NewTrack("t", ch))
	}
	// 16 non-drum tracks now occupy channels 0-8, 10-15 (9 skipped).
	seventeenth := p.NextChannel(false)
	if seventeenth > 15 {
		t.Fatalf("channel must be 0-15, got %d", seventeenth)
	}

	drumCh := p.NextChannel(true)
	if drumCh != 9 {
		t.Errorf("expected drum channel 9, got %d", drumCh)
	}
}
