package transport

import (
	"encoding/binary"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

// Stream adapts a Scheduler to io.Reader so it can be handed to an
// ebiten/v2/audio Player, following the teacher's MIDIStream pattern
// of rendering float32 blocks and converting them to interleaved
// 16-bit PCM on demand.
type Stream struct {
	sched *Scheduler
	mu    sync.Mutex

	left, right []float32 // scratch buffers, reused across Read calls
}

// NewStream wraps sched for real-time playback.
func NewStream(sched *Scheduler) *Stream {
	return &Stream{sched: sched}
}

// Read implements io.Reader. len(p) must be a multiple of 4 (16-bit
// stereo); any remainder is truncated, matching ebiten/v2/audio's own
// contract for its Player's backing reader.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(p) / 4
	if frames == 0 {
		return 0, nil
	}
	if cap(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}
	left := s.left[:frames]
	right := s.right[:frames]

	if err := s.sched.ProcessBlock(left, right); err != nil {
		for i := range p[:frames*4] {
			p[i] = 0
		}
		return frames * 4, nil
	}

	for i := 0; i < frames; i++ {
		l := int16(clampSample(left[i]) * 32767)
		r := int16(clampSample(right[i]) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}
	return frames * 4, nil
}

func clampSample(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// NewPlayer wires Stream into an ebiten audio context, returning a
// ready-to-Play Player. The caller owns the Player's lifetime.
func NewPlayer(ctx *audio.Context, sched *Scheduler) (*audio.Player, error) {
	return ctx.NewPlayer(NewStream(sched))
}
