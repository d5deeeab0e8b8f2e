package autosave

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minimaxir/miditui/pkg/codec"
	"github.com/minimaxir/miditui/pkg/project"
)

func withShortDelay(t *testing.T, d time.Duration) {
	t.Helper()
	orig := Delay
	Delay = d
	t.Cleanup(func() { Delay = orig })
}

func TestTouchDebouncesIntoSingleSave(t *testing.T) {
	withShortDelay(t, 30*time.Millisecond)

	dir := t.TempDir()
	path := filepath.Join(dir, "project.oxm")

	calls := 0
	p := project.New()
	c := New(path, func() *project.Project { calls++; return p }, nil)

	c.Touch()
	time.Sleep(10 * time.Millisecond)
	c.Touch() // re-arms; should coalesce with the first touch
	time.Sleep(60 * time.Millisecond)

	if calls != 1 {
		t.Fatalf("expected exactly 1 snapshot call, got %d", calls)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected autosave file to exist: %v", err)
	}
}

func TestCancelPreventsSave(t *testing.T) {
	withShortDelay(t, 20*time.Millisecond)

	dir := t.TempDir()
	path := filepath.Join(dir, "project.oxm")
	p := project.New()
	c := New(path, func() *project.Project { return p }, nil)

	c.Touch()
	c.Cancel()
	time.Sleep(40 * time.Millisecond)

	if _, err := os.Stat(path); err == nil {
		t.Fatal("expected no file to be written after Cancel")
	}
}

func TestFlushWritesImmediatelyAndIsReadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.oxm")
	p := project.New()
	p.Tempo = 133
	c := New(path, func() *project.Project { return p }, nil)

	if err := c.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	got, err := codec.DecodeOXMFile(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Tempo != 133 {
		t.Fatalf("expected tempo 133, got %v", got.Tempo)
	}
}

func TestFlushWithoutPathReturnsError(t *testing.T) {
	p := project.New()
	c := New("", func() *project.Project { return p }, nil)
	if err := c.Flush(); err != ErrNoPath {
		t.Fatalf("expected ErrNoPath, got %v", err)
	}
}

func TestWaitReturnsAfterCancelledWorkerExits(t *testing.T) {
	withShortDelay(t, 50*time.Millisecond)

	dir := t.TempDir()
	path := filepath.Join(dir, "project.oxm")
	p := project.New()
	c := New(path, func() *project.Project { return p }, nil)

	c.Touch()
	c.Cancel()

	done := make(chan error, 1)
	go func() { done <- c.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Cancel")
	}
}
