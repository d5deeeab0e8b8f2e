package tui

import (
	"fmt"
	"testing"

	"github.com/minimaxir/miditui/pkg/project"
)

func TestClampOctave(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{-1, 0},
		{0, 0},
		{4, 4},
		{8, 8},
		{9, 8},
	}
	for _, c := range cases {
		if got := clampOctave(c.in); got != c.want {
			t.Errorf("clampOctave(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestAddTrackKeyAssignsRoundRobinChannel(t *testing.T) {
	p := project.New()
	p.Tracks = nil
	for i := 0; i < 17; i++ {
		p.AddTrack(project.NewTrack(fmt.Sprintf("t%d", i), p.NextChannel(false)))
	}
	// 15 non-drum channels (0-15 minus 9) cycle before reuse; the 16th
	// track (count=15) wraps back to channel 0, so the 17th track
	// (count=16 at assignment time) lands on channel 1.
	if got := p.Tracks[16].Channel; got != 1 {
		t.Errorf("17th track channel = %d, want 1 (round-robin reuse, not a collision at a fixed channel)", got)
	}
	if got := p.Tracks[9].Channel; got == 9 {
		t.Errorf("no non-drum track should land on channel 9, got track 9 on channel %d", got)
	}
}
