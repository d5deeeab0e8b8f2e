package transport

import (
	"sync/atomic"
	"time"

	"github.com/minimaxir/miditui/pkg/project"
	"github.com/minimaxir/miditui/pkg/synth"
)

// DecayTail is the fixed reverb/release tail appended after the last
// scheduled note-off in auto-length offline renders (spec §4.3).
const DecayTail = 500 * time.Millisecond

// renderBlockSize is the chunk size used by the offline render loop.
// It has no bearing on correctness, only on how finely progress can
// be cancelled.
const renderBlockSize = 512

// RenderOptions configures an offline render.
type RenderOptions struct {
	// Duration, if nonzero, renders exactly this many samples' worth
	// of time regardless of note content (used by tests and by an
	// explicit "render N seconds" request). Zero means "render until
	// the last scheduled note-off, plus DecayTail".
	Duration time.Duration

	// Cancel, if non-nil, is polled between blocks; when it reports
	// true the render stops and partial output is discarded by the
	// caller (spec §5, "Offline WAV rendering can be cancelled by
	// flipping a shared flag").
	Cancel *atomicBool
}

// atomicBool is a tiny cancellation flag shared between the control
// thread (which may set it) and the render loop (which only reads
// it), matching spec §5's "shared flag checked between blocks".
type atomicBool struct{ v atomic.Bool }

// Set marks the flag.
func (b *atomicBool) Set() { b.v.Store(true) }

// IsSet reports whether the flag has been set.
func (b *atomicBool) IsSet() bool { return b.v.Load() }

// NewCancelFlag returns a fresh, unset cancellation flag.
func NewCancelFlag() *atomicBool { return &atomicBool{} }

// RenderToPCM drives a fresh Scheduler bound to proj and eng in
// Rendering mode, producing interleaved-free left/right float32
// sample slices. The scheduler starts at tick 0; voices already
// sounding in eng are not cut first, and every channel is silenced
// when the render returns. The caller is responsible for having loaded the right
// SoundFont into eng beforehand (spec §4.6: "The SoundFont must be
// loaded; absence is a hard error").
func RenderToPCM(proj *project.Project, eng *synth.Synth, opts RenderOptions) (left, right []float32, err error) {
	if eng.Handle() == nil {
		return nil, nil, synth.ErrNoSoundFontLoaded
	}

	sched := New(func() *project.Project { return proj }, eng)
	sched.state = Rendering
	defer func() {
		eng.AllNotesOffAllChannels()
	}()

	totalSamples := int64(0)
	autoLength := opts.Duration == 0
	if !autoLength {
		totalSamples = int64(opts.Duration.Seconds() * float64(SampleRate))
	}

	tailRemaining := int64(-1) // -1 = tail not yet started
	for {
		if opts.Cancel != nil && opts.Cancel.IsSet() {
			return nil, nil, errCancelled
		}

		if !autoLength && int64(len(left)) >= totalSamples {
			break
		}
		if autoLength && tailRemaining == 0 {
			break
		}

		n := renderBlockSize
		if !autoLength {
			remaining := totalSamples - int64(len(left))
			if int64(n) > remaining {
				n = int(remaining)
			}
		}

		blockLeft := make([]float32, n)
		blockRight := make([]float32, n)
		if err := sched.ProcessBlock(blockLeft, blockRight); err != nil {
			return nil, nil, err
		}
		left = append(left, blockLeft...)
		right = append(right, blockRight...)

		if autoLength {
			if !sched.HasPendingEvents() && tailRemaining < 0 {
				tailRemaining = int64(DecayTail.Seconds() * float64(SampleRate))
			}
			if tailRemaining > 0 {
				tailRemaining -= int64(n)
				if tailRemaining < 0 {
					tailRemaining = 0
				}
			}
		}
	}

	if !autoLength && int64(len(left)) > totalSamples {
		left = left[:totalSamples]
		right = right[:totalSamples]
	}

	return left, right, nil
}
