package facade

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minimaxir/miditui/pkg/edit"
	"github.com/minimaxir/miditui/pkg/project"
	"github.com/minimaxir/miditui/pkg/synth"
	"github.com/minimaxir/miditui/pkg/transport"
)

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	dir := t.TempDir()
	return New(synth.New(), filepath.Join(dir, "autosave.oxm"))
}

func TestApplyUndoRedoRoundTrip(t *testing.T) {
	f := newTestFacade(t)

	cmd, err := edit.NewAddNote(f.Snapshot(), 0, project.Note{Pitch: 60, Start: 0, Duration: 480, Velocity: 100})
	if err != nil {
		t.Fatalf("build command: %v", err)
	}
	if err := f.Apply(cmd); err != nil {
		t.Fatalf("apply: %v", err)
	}

	snap := f.Snapshot()
	tr, _ := snap.Track(0)
	if tr.NoteCount() != 1 {
		t.Fatalf("expected 1 note after apply, got %d", tr.NoteCount())
	}

	if err := f.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	tr, _ = f.Snapshot().Track(0)
	if tr.NoteCount() != 0 {
		t.Fatalf("expected 0 notes after undo, got %d", tr.NoteCount())
	}

	if err := f.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	tr, _ = f.Snapshot().Track(0)
	if tr.NoteCount() != 1 {
		t.Fatalf("expected 1 note after redo, got %d", tr.NoteCount())
	}
}

func TestTransportStartsStopped(t *testing.T) {
	f := newTestFacade(t)
	if f.TransportState() != transport.Stopped {
		t.Fatalf("expected a fresh facade's transport to start Stopped, got %v", f.TransportState())
	}
}

func TestPlayStopTransitionsState(t *testing.T) {
	f := newTestFacade(t)
	f.Play()
	if f.TransportState() != transport.Playing {
		t.Fatalf("expected Playing after Play, got %v", f.TransportState())
	}
	f.Stop()
	if f.TransportState() != transport.Stopped {
		t.Fatalf("expected Stopped after Stop, got %v", f.TransportState())
	}
}

func TestNewProjectClearsHistory(t *testing.T) {
	f := newTestFacade(t)
	cmd, err := edit.NewAddNote(f.Snapshot(), 0, project.Note{Pitch: 60, Start: 0, Duration: 480, Velocity: 100})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Apply(cmd); err != nil {
		t.Fatal(err)
	}
	if !f.CanUndo() {
		t.Fatal("expected history to have an undo entry")
	}
	f.NewProject()
	if f.CanUndo() {
		t.Fatal("expected NewProject to clear history")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	f := newTestFacade(t)
	cmd, err := edit.NewAddNote(f.Snapshot(), 0, project.Note{Pitch: 64, Start: 480, Duration: 240, Velocity: 90})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Apply(cmd); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "project.oxm")
	if err := f.SaveProjectAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	f2 := newTestFacade(t)
	if err := f2.LoadProject(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	tr, _ := f2.Snapshot().Track(0)
	if tr.NoteCount() != 1 {
		t.Fatalf("expected 1 note after load, got %d", tr.NoteCount())
	}
	if f2.CanUndo() {
		t.Fatal("expected history to be cleared after load")
	}
}

func TestKeyDownWithoutSoundFontSurfacesError(t *testing.T) {
	f := newTestFacade(t)
	if err := f.KeyDown('z', time.Now()); err == nil {
		t.Fatal("expected an error when no SoundFont is loaded")
	}
}

func TestFlushAfterApplyPersistsAutosave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autosave.oxm")
	f := New(synth.New(), path)

	cmd := edit.NewSetTempo(f.Snapshot(), 140)
	if err := f.Apply(cmd); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := f.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected autosave file on disk: %v", err)
	}
}
