package codec

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/minimaxir/miditui/pkg/project"
	"github.com/minimaxir/miditui/pkg/synth"
)

func findFixture(t *testing.T) string {
	t.Helper()
	paths := []string{"../../GeneralUser-GS.sf2", "../../testdata/GeneralUser-GS.sf2", "GeneralUser-GS.sf2"}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			return abs
		}
	}
	t.Skip("SoundFont fixture not found")
	return ""
}

// buildScenarioFiveProject matches spec §8 scenario 5: tempo=144,
// time_sig=6/8, two tracks, one muted, one solo, with distinct
// volumes/pans, cursor at tick 2880.
func buildScenarioFiveProject(t *testing.T) *project.Project {
	t.Helper()
	p := &project.Project{Tempo: 144, TimeSignature: project.TimeSignature{Numerator: 6, Denominator: 8}}

	a := project.NewTrack("Lead", 0)
	a.Mute = true
	a.SetVolume(0.8)
	a.SetPan(-0.4)
	if err := a.AddNote(project.Note{Pitch: 60, Start: 0, Duration: 480, Velocity: 100}); err != nil {
		t.Fatal(err)
	}

	b := project.NewTrack("Bass", 1)
	b.Solo = true
	b.SetVolume(0.3)
	b.SetPan(0.7)
	if err := b.AddNote(project.Note{Pitch: 36, Start: 960, Duration: 960, Velocity: 90}); err != nil {
		t.Fatal(err)
	}

	p.Tracks = []*project.Track{a, b}
	p.Editor.CursorTick = 2880
	p.InvalidateSoloCache()
	return p
}

func TestOXMRoundTripWithEditorState(t *testing.T) {
	p := buildScenarioFiveProject(t)

	var buf bytes.Buffer
	if err := EncodeOXM(p, &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeOXM(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Tempo != p.Tempo || got.TimeSignature != p.TimeSignature {
		t.Fatalf("tempo/time-sig mismatch: got %+v/%+v want %+v/%+v", got.Tempo, got.TimeSignature, p.Tempo, p.TimeSignature)
	}
	if got.Editor.CursorTick != 2880 {
		t.Fatalf("expected cursor tick preserved, got %d", got.Editor.CursorTick)
	}
	if len(got.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(got.Tracks))
	}
	if got.Tracks[0].Mute != true || got.Tracks[1].Solo != true {
		t.Fatal("mute/solo not preserved")
	}
	if got.Tracks[0].Volume != 0.8 || got.Tracks[1].Pan != 0.7 {
		t.Fatal("volume/pan not preserved")
	}
	if !reflect.DeepEqual(got.Tracks[0].Notes(), p.Tracks[0].Notes()) {
		t.Fatal("notes not preserved on track 0")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	p := buildScenarioFiveProject(t)

	var buf bytes.Buffer
	if err := EncodeJSON(p, &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeJSON(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Tempo != p.Tempo {
		t.Fatalf("tempo mismatch: got %v want %v", got.Tempo, p.Tempo)
	}
	if len(got.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(got.Tracks))
	}
}

// TestMIDIImportLossiness implements spec §8 scenario 6.
func TestMIDIImportLossiness(t *testing.T) {
	p := buildScenarioFiveProject(t)

	var buf bytes.Buffer
	if err := EncodeMIDI(p, &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeMIDI(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Tempo != p.Tempo {
		t.Fatalf("tempo mismatch: got %v want %v", got.Tempo, p.Tempo)
	}
	if got.TimeSignature != p.TimeSignature {
		t.Fatalf("time signature mismatch: got %+v want %+v", got.TimeSignature, p.TimeSignature)
	}
	for _, tr := range got.Tracks {
		if tr.Mute || tr.Solo {
			t.Fatal("mute/solo must be false after MIDI reimport")
		}
	}
	totalNotes := 0
	for _, tr := range got.Tracks {
		totalNotes += tr.NoteCount()
	}
	if totalNotes != 2 {
		t.Fatalf("expected 2 notes preserved through MIDI round trip, got %d", totalNotes)
	}
}

// TestEmptyProjectWAVRenderIsSilent implements spec §8 scenario 1.
func TestEmptyProjectWAVRenderIsSilent(t *testing.T) {
	path := findFixture(t)
	eng := synth.New()
	if _, err := eng.LoadSoundFont(path); err != nil {
		t.Fatalf("load soundfont: %v", err)
	}

	p := &project.Project{Tempo: 120, TimeSignature: project.DefaultTimeSignature}

	var buf bytes.Buffer
	if err := EncodeWAV(p, eng, time.Second, &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	data := buf.Bytes()
	if len(data) != wavHeaderSize+44100*2*2 {
		t.Fatalf("expected exactly 1s of stereo 16-bit frames, got %d bytes", len(data))
	}
	for _, b := range data[wavHeaderSize:] {
		if b != 0 {
			t.Fatal("expected exact silence for an empty project render")
		}
	}
}

// TestSingleNoteAtTickZeroIsAudible implements spec §8 scenario 2.
func TestSingleNoteAtTickZeroIsAudible(t *testing.T) {
	path := findFixture(t)
	eng := synth.New()
	if _, err := eng.LoadSoundFont(path); err != nil {
		t.Fatalf("load soundfont: %v", err)
	}

	p := &project.Project{Tempo: 120, TimeSignature: project.DefaultTimeSignature}
	tr := project.NewTrack("Track 1", 0)
	if err := tr.AddNote(project.Note{Pitch: 60, Start: 0, Duration: 480, Velocity: 100}); err != nil {
		t.Fatal(err)
	}
	p.Tracks = []*project.Track{tr}

	var buf bytes.Buffer
	if err := EncodeWAV(p, eng, time.Second, &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	data := buf.Bytes()
	if len(data) != wavHeaderSize+44100*2*2 {
		t.Fatalf("expected exactly 1s of stereo 16-bit frames, got %d bytes", len(data))
	}
	firstFrame := data[wavHeaderSize : wavHeaderSize+4]
	if firstFrame[0] == 0 && firstFrame[1] == 0 && firstFrame[2] == 0 && firstFrame[3] == 0 {
		t.Error("expected the first audio frame to be non-silent")
	}
}
