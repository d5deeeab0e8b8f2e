// Package autosave debounces project saves behind a single-shot timer,
// writing atomically so a crash mid-save never corrupts the file on
// disk.
package autosave

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minimaxir/miditui/pkg/codec"
	"github.com/minimaxir/miditui/pkg/project"
)

// Delay is the quiet period after the last Touch before a save fires.
// A var rather than a const so tests can shrink it.
var Delay = 5 * time.Second

// Controller arms a debounce timer on every Touch call and writes the
// current project to its .oxm path once Delay has elapsed with no
// further touches. Construction with an empty path disables writes;
// Touch still no-ops and Flush returns ErrNoPath.
type Controller struct {
	path     string
	snapshot func() *project.Project
	onError  func(error)

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	stopCh  chan struct{}

	// g tracks every debounce-wait goroutine Touch has spawned, so
	// Wait can block a clean shutdown until the last of them has
	// either fired or been cancelled.
	g errgroup.Group
}

// New creates a Controller that calls snapshot to obtain the project to
// persist and onError (if non-nil) whenever a save attempt fails. A
// failed autosave is never fatal (spec §4.7); onError exists purely so
// the facade can surface a warning.
func New(path string, snapshot func() *project.Project, onError func(error)) *Controller {
	return &Controller{path: path, snapshot: snapshot, onError: onError}
}

// SetPath updates the destination, e.g. after a "Save As".
func (c *Controller) SetPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path = path
}

// Touch (re)arms the debounce timer. Called by the facade after every
// successful edit command application. Repeated touches within Delay
// of each other coalesce into a single save.
func (c *Controller) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" {
		return
	}
	if c.timer == nil {
		c.timer = time.NewTimer(Delay)
		c.stopCh = make(chan struct{})
		t, stopCh := c.timer, c.stopCh
		c.g.Go(func() error {
			c.wait(t, stopCh)
			return nil
		})
		return
	}
	if !c.timer.Stop() {
		// Timer already fired or is firing; drain only if a value is
		// actually pending, matching the standard Reset-after-Stop
		// idiom.
		select {
		case <-c.timer.C:
		default:
		}
	}
	c.timer.Reset(Delay)
}

func (c *Controller) wait(t *time.Timer, stopCh chan struct{}) {
	select {
	case <-t.C:
		c.mu.Lock()
		c.timer = nil
		c.mu.Unlock()
		if err := c.Flush(); err != nil && c.onError != nil {
			c.onError(err)
		}
	case <-stopCh:
	}
}

// Cancel stops a pending timer without saving, used when the facade is
// about to replace the project outright (e.g. LoadProject) and a stale
// autosave would clobber the freshly loaded state.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		close(c.stopCh)
		c.timer = nil
	}
}

// Wait blocks until every debounce-wait goroutine spawned by Touch has
// returned, used on clean shutdown after Cancel or Flush so the
// process doesn't exit out from under a still-running save.
func (c *Controller) Wait() error {
	return c.g.Wait()
}

// Flush writes the current snapshot immediately, bypassing the debounce
// timer. Used for the facade's explicit "Save" command and for a clean
// shutdown.
func (c *Controller) Flush() error {
	c.mu.Lock()
	path := c.path
	c.mu.Unlock()
	if path == "" {
		return ErrNoPath
	}
	return atomicWriteOXM(path, c.snapshot())
}

// atomicWriteOXM writes p to path by first writing a temp sibling file,
// fsyncing it, then renaming over the destination, so a crash mid-write
// never leaves a half-written project on disk.
func atomicWriteOXM(path string, p *project.Project) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".autosave-*.oxm")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := codec.EncodeOXM(p, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
