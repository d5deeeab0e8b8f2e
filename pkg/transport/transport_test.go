package transport

import (
	"os"
	"path/filepath"
	"testing"

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

func TestProcessBlockSilentWhenStopped(t *testing.T) {
	proj := project.New()
	eng := synth.New()
	sched := New(func() *project.Project { return proj }, eng)

	left := make([]float32, 64)
	right := make([]float32, 64)
	if err := sched.ProcessBlock(left, right); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range left {
		if v != 0 {
			t.Fatal("expected silence while stopped")
		}
	}
	if sched.PositionSamples() != 0 {
		t.Fatal("position must not advance while stopped")
	}
}

func TestSeekFlushesPendingEvents(t *testing.T) {
	path := findFixture(t)
	eng := synth.New()
	if _, err := eng.LoadSoundFont(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	proj := project.New()
	tr := proj.Tracks[0]
	if err := tr.AddNote(project.Note{Pitch: 60, Start: 0, Duration: 480, Velocity: 100}); err != nil {
		t.Fatalf("add note: %v", err)
	}

	sched := New(func() *project.Project { return proj }, eng)
	sched.Play()

	left := make([]float32, 256)
	right := make([]float32, 256)
	if err := sched.ProcessBlock(left, right); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !sched.HasPendingEvents() {
		t.Fatal("expected a pending note-off after triggering a note")
	}

	sched.SeekTo(0)
	if sched.HasPendingEvents() {
		t.Fatal("seek must flush pending note-offs")
	}
}

func TestNoteAtTickZeroSoundsOnFirstBlock(t *testing.T) {
	path := findFixture(t)
	eng := synth.New()
	if _, err := eng.LoadSoundFont(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	proj := project.New()
	tr := proj.Tracks[0]
	if err := tr.AddNote(project.Note{Pitch: 60, Start: 0, Duration: 480, Velocity: 100}); err != nil {
		t.Fatalf("add note: %v", err)
	}

	sched := New(func() *project.Project { return proj }, eng)
	sched.Play()

	left := make([]float32, 128)
	right := make([]float32, 128)
	if err := sched.ProcessBlock(left, right); err != nil {
		t.Fatalf("process: %v", err)
	}
	if left[0] == 0 && right[0] == 0 {
		t.Error("expected the very first sample to be non-silent (spec R5)")
	}
}

func TestSoloLeavesOnlySoloTrackAudible(t *testing.T) {
	path := findFixture(t)
	eng := synth.New()
	if _, err := eng.LoadSoundFont(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	proj := project.New()
	proj.Tracks[0].Solo = true
	proj.Tracks[0].Channel = 0
	if err := proj.Tracks[0].AddNote(project.Note{Pitch: 60, Start: 0, Duration: 4800, Velocity: 100}); err != nil {
		t.Fatal(err)
	}
	trB := project.NewTrack("B", 1)
	if err := trB.AddNote(project.Note{Pitch: 64, Start: 0, Duration: 4800, Velocity: 100}); err != nil {
		t.Fatal(err)
	}
	proj.Tracks = append(proj.Tracks, trB)
	proj.InvalidateSoloCache()

	sched := New(func() *project.Project { return proj }, eng)
	sched.Play()
	left := make([]float32, 256)
	right := make([]float32, 256)
	if err := sched.ProcessBlock(left, right); err != nil {
		t.Fatalf("process: %v", err)
	}

	audible := proj.AudibleTracks()
	if len(audible) != 1 || audible[0] != 0 {
		t.Fatalf("expected only track 0 audible under solo, got %v", audible)
	}
}
