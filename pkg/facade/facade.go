// Package facade is the single ingress point for everything that is
// not the audio callback itself: command submission, transport
// control, insert-mode key events, and file operations, all serialized
// onto one control-thread mutex so the audio thread only ever sees a
// consistent snapshot at a block boundary (spec §4.8, §5).
package facade

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/minimaxir/miditui/pkg/autosave"
	"github.com/minimaxir/miditui/pkg/codec"
	"github.com/minimaxir/miditui/pkg/edit"
	"github.com/minimaxir/miditui/pkg/fileutil"
	"github.com/minimaxir/miditui/pkg/insertmode"
	"github.com/minimaxir/miditui/pkg/project"
	"github.com/minimaxir/miditui/pkg/synth"
	"github.com/minimaxir/miditui/pkg/transport"
)

// Facade owns the whole engine-facing core and is the only thing the
// terminal front-end talks to. Every exported method is safe to call
// from the control thread; none may be called from the audio callback.
//
// The project is shared between the control thread (which mutates
// proj directly under mu) and the audio thread (which drives
// ProcessBlock and must never lock a contended mutex, spec §5). The
// bridge is the double-buffered snapshot named in the design notes:
// every successful mutation publishes a fresh clone to `published`
// via an atomic pointer swap; the scheduler reads only that published
// snapshot, never proj itself. The insert-mode sink, which only runs
// inside locked Facade methods, works on proj directly.
type Facade struct {
	mu sync.Mutex

	proj      *project.Project
	published atomic.Pointer[project.Project]

	history   *edit.History
	engine    *synth.Synth
	scheduler *transport.Scheduler
	insert    *insertmode.Sink
	autosaveC *autosave.Controller

	// player carries the scheduler's rendered blocks to the actual
	// sound device, driven from Play/Stop. It is built over the
	// process-wide shared audio context below (ebiten permits exactly
	// one audio.Context per process), so constructing many Facades --
	// as the tests do -- never panics on a second audio.NewContext call.
	player *audio.Player

	activeTrack int
	savePath    string
	lastWarning error
}

// sharedAudioContext and its guarding sync.Once follow the teacher's
// own getAudioContext pattern for the same constraint: ebiten allows
// only one audio.Context to ever be created in a process.
var (
	audioCtxOnce sync.Once
	audioCtx     *audio.Context
)

func sharedAudioContext() *audio.Context {
	audioCtxOnce.Do(func() {
		audioCtx = audio.NewContext(transport.SampleRate)
	})
	return audioCtx
}

// New constructs a Facade around an empty project and a Synth that may
// or may not yet have a SoundFont loaded (spec §7: missing SoundFont is
// a degraded, non-fatal mode).
func New(eng *synth.Synth, autosavePath string) *Facade {
	f := &Facade{
		proj:    project.New(),
		history: edit.NewHistory(),
		engine:  eng,
	}
	f.published.Store(f.proj.Clone())
	f.scheduler = transport.New(f.readPublished, eng)
	f.insert = insertmode.New(f.liveProject, f.history, eng, f.scheduler, func() int { return f.activeTrack })
	f.autosaveC = autosave.New(autosavePath, func() *project.Project { return f.readPublished() }, func(err error) {
		f.mu.Lock()
		f.lastWarning = fmt.Errorf("autosave: %w", err)
		f.mu.Unlock()
	})

	player, err := transport.NewPlayer(sharedAudioContext(), f.scheduler)
	if err != nil {
		// No usable audio device: the transport and synth still run, so
		// a later WAV export or a reconnected device works, but nothing
		// reaches speakers until then (degraded, non-fatal, same spirit
		// as a missing SoundFont).
		f.lastWarning = fmt.Errorf("audio output unavailable: %w", err)
	} else {
		f.player = player
	}
	return f
}

// readPublished is the scheduler's only window into the project. It
// never locks, so the audio thread never contends with the control
// thread for a mutex (spec §5's hard requirement on the audio path).
func (f *Facade) readPublished() *project.Project {
	return f.published.Load()
}

// liveProject returns the control thread's mutable project. Every
// caller is required to already hold f.mu -- it is only handed to
// collaborators (the insert-mode sink) that are themselves only
// invoked from a locked Facade method.
func (f *Facade) liveProject() *project.Project {
	return f.proj
}

// publish must be called with f.mu held, after any mutation of f.proj,
// to make the change visible to the audio thread at the next block
// boundary.
func (f *Facade) publish() {
	f.published.Store(f.proj.Clone())
}

// Snapshot returns a deep copy of the project suitable for redraw. It
// is O(notes) rather than O(1), a documented simplification over the
// copy-on-write ideal (see the project's design notes); real-world
// project sizes keep this well under a frame budget.
func (f *Facade) Snapshot() *project.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.proj.Clone()
}

// LastWarning returns and clears the most recent non-fatal warning
// (an autosave failure, or audio output being unavailable at
// construction) for the UI to surface once. The facade does not check
// track instruments against a loaded SoundFont, so no instrument
// fallback warning is ever reported here.
func (f *Facade) LastWarning() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := f.lastWarning
	f.lastWarning = nil
	return w
}

// SetActiveTrack changes which track insert-mode keystrokes write to.
func (f *Facade) SetActiveTrack(index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.proj.Track(index); err != nil {
		return err
	}
	f.activeTrack = index
	return nil
}

// Apply runs cmd through the undo-aware history, touching the autosave
// debounce timer on success. Commands that change which preset a track
// plays also take effect on the synth immediately, satisfying the
// within-one-block silencing guarantee (spec R7) that the scheduler's
// per-block loop alone does not provide.
func (f *Facade) Apply(cmd *edit.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.history.Apply(f.proj, cmd); err != nil {
		return err
	}
	if cmd.Kind == edit.SetInstrument {
		if tr, err := f.proj.Track(cmd.TrackIndex); err == nil {
			_ = f.engine.SetProgram(tr.Channel, tr.Instrument.Bank, tr.Instrument.Program)
		}
	}
	f.publish()
	f.autosaveC.Touch()
	return nil
}

// Undo reverts the most recent command, or the most recent insert-mode
// group as a whole.
func (f *Facade) Undo() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.history.UndoGroup(f.proj)
	if err == nil {
		f.publish()
		f.autosaveC.Touch()
	}
	return err
}

// Redo reapplies the most recently undone command.
func (f *Facade) Redo() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.history.Redo(f.proj); err != nil {
		return err
	}
	f.publish()
	f.autosaveC.Touch()
	return nil
}

// CanUndo / CanRedo let the UI grey out menu entries.
func (f *Facade) CanUndo() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history.CanUndo()
}

func (f *Facade) CanRedo() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history.CanRedo()
}

// Play, Stop, SeekTo, and Rewind forward to the transport scheduler.
// The scheduler itself is safe to drive from the control thread
// concurrently with the audio thread calling ProcessBlock, per its own
// documented contract; Facade only serializes these against other
// control-thread operations like Apply.
func (f *Facade) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduler.Play()
	if f.player != nil && !f.player.IsPlaying() {
		f.player.Play()
	}
}

func (f *Facade) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopTransport()
}

// stopTransport halts the scheduler and, if an audio player was
// successfully created, pauses it in step. Callers must hold f.mu.
func (f *Facade) stopTransport() {
	f.scheduler.Stop()
	if f.player != nil && f.player.IsPlaying() {
		f.player.Pause()
	}
}

func (f *Facade) SeekTo(tick int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduler.SeekTo(tick)
}

func (f *Facade) Rewind() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduler.Rewind()
}

func (f *Facade) TransportState() transport.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scheduler.State()
}

func (f *Facade) PositionTick() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scheduler.PositionTick()
}

// ProcessBlock exposes the scheduler's audio-thread entry point
// directly; Facade does not lock around it; the audio thread must
// never block on f.mu (spec §5: "must never allocate, lock a contended
// mutex").
func (f *Facade) ProcessBlock(outLeft, outRight []float32) error {
	return f.scheduler.ProcessBlock(outLeft, outRight)
}

// KeyDown routes a live keystroke into insert mode.
func (f *Facade) KeyDown(key rune, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.insert.KeyDown(key, now); err != nil {
		return err
	}
	f.publish()
	f.autosaveC.Touch()
	return nil
}

// KeyUp stops the immediately-sounding voice for a released key.
func (f *Facade) KeyUp(key rune) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert.KeyUp(key)
}

// SetOctaveBase adjusts insert mode's displayed bottom octave.
func (f *Facade) SetOctaveBase(base int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insert.SetOctaveBase(base)
}

// NewProject discards the current project for an empty one and clears
// history, cancelling any pending autosave for the project being
// replaced (spec §4.5: "History is cleared on New Project").
func (f *Facade) NewProject() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autosaveC.Cancel()
	f.stopTransport()
	f.proj = project.New()
	f.history.Clear()
	f.savePath = ""
	f.publish()
}

// LoadProject loads path, dispatching on its extension per spec §6
// (".oxm"/".json"/".mid"/".midi"), clears history, and makes path the
// target of future autosaves and explicit saves.
func (f *Facade) LoadProject(path string) error {
	p, err := decodeByExtension(path)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autosaveC.Cancel()
	f.stopTransport()
	f.proj = p
	f.history.Clear()
	f.savePath = path
	f.autosaveC.SetPath(path)
	f.publish()
	return nil
}

// resolveProjectPath corrects for a case mismatch between the path a
// user typed (or a saved "recent files" entry) and the file's actual
// name on disk. Terminals and shell history don't preserve case
// reliably across platforms; an exact match always wins, and a
// mismatch is resolved only within path's own directory.
func resolveProjectPath(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	dir := filepath.Dir(path)
	found, err := fileutil.FindFileCaseInsensitive(dir, filepath.Base(path))
	if err != nil {
		return path
	}
	return found
}

func decodeByExtension(path string) (*project.Project, error) {
	path = resolveProjectPath(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".oxm":
		return codec.DecodeOXMFile(path)
	case ".json":
		return codec.DecodeJSONFile(path)
	case ".mid", ".midi":
		return codec.DecodeMIDIFile(path)
	default:
		return nil, fmt.Errorf("facade: unrecognized project extension %q", filepath.Ext(path))
	}
}

// SaveProjectAs writes the current project to path in the format its
// extension implies, and makes path the target of future autosaves.
func (f *Facade) SaveProjectAs(path string) error {
	f.mu.Lock()
	p := f.proj.Clone()
	f.mu.Unlock()

	if err := encodeByExtension(p, f.engine, path); err != nil {
		return err
	}

	f.mu.Lock()
	f.savePath = path
	f.autosaveC.SetPath(path)
	f.mu.Unlock()
	return nil
}

// SaveProject writes to the path last used by Load/SaveProjectAs.
func (f *Facade) SaveProject() error {
	f.mu.Lock()
	path := f.savePath
	f.mu.Unlock()
	if path == "" {
		return fmt.Errorf("facade: no active save path; use SaveProjectAs")
	}
	return f.SaveProjectAs(path)
}

func encodeByExtension(p *project.Project, eng *synth.Synth, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".oxm":
		return codec.EncodeOXMFile(p, path)
	case ".json":
		return codec.EncodeJSONFile(p, path)
	case ".mid", ".midi":
		return codec.EncodeMIDIFile(p, path)
	case ".wav":
		return codec.EncodeWAVFile(p, eng, 0, path)
	default:
		return fmt.Errorf("facade: unrecognized export extension %q", filepath.Ext(path))
	}
}

// RestoreAutosaveIfPresent loads path (typically "./autosave.oxm") when
// it exists, for startup restoration when --new was not passed (spec
// §4.7). A missing file is not an error.
func (f *Facade) RestoreAutosaveIfPresent(path string) (bool, error) {
	p, err := codec.DecodeOXMFile(path)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proj = p
	f.history.Clear()
	f.savePath = path
	f.autosaveC.SetPath(path)
	f.publish()
	return true, nil
}

// Flush forces an immediate autosave write and waits for any
// in-flight debounce worker to finish, used on clean shutdown so the
// process never exits out from under a still-running save.
func (f *Facade) Flush() error {
	f.autosaveC.Cancel()
	err := f.autosaveC.Flush()
	if waitErr := f.autosaveC.Wait(); waitErr != nil && err == nil {
		err = waitErr
	}
	return err
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
