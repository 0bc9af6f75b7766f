package gui

import (
	"math"

	"github.com/kikiluvv/trimline/internal/editor"
	"github.com/kikiluvv/trimline/internal/timeline"
)

// handleSlop is how close, in pixels, a press must be to grab a handle.
const handleSlop = 8

// bar is the on-screen extent of an interval.
type bar struct {
	X, W   float32
	Active bool
}

// xAt maps t onto a track of the given width.
func xAt(t, duration float64, width float32) float32 {
	if duration <= 0 || width <= 0 {
		return 0
	}
	f := math.Max(0, math.Min(t/duration, 1))
	return float32(f) * width
}

// bars lays out every interval of st on a track of the given width.
func bars(st editor.State, width float32) []bar {
	out := make([]bar, 0, len(st.Intervals))
	for _, iv := range st.Intervals {
		x0 := xAt(iv.Start, st.Duration, width)
		x1 := xAt(iv.End, st.Duration, width)
		out = append(out, bar{X: x0, W: x1 - x0, Active: iv.ID == st.ActiveID})
	}
	return out
}

// hitTest decides what a press at x grabs. Handles of the active interval
// win when within handleSlop; the nearer one is taken if both qualify.
// Anything else scrubs.
func hitTest(st editor.State, x, width float32) editor.Handle {
	active, ok := st.Active()
	if !ok || !st.Loaded {
		return editor.HandleScrub
	}
	ds := abs32(x - xAt(active.Start, st.Duration, width))
	de := abs32(x - xAt(active.End, st.Duration, width))
	switch {
	case ds <= handleSlop && ds <= de:
		return editor.HandleStart
	case de <= handleSlop:
		return editor.HandleEnd
	default:
		return editor.HandleScrub
	}
}

// intervalAt returns the interval under pixel x, for click-to-select.
func intervalAt(st editor.State, x, width float32) (timeline.Interval, bool) {
	if !st.Loaded || width <= 0 {
		return timeline.Interval{}, false
	}
	t := float64(x/width) * st.Duration
	for _, iv := range st.Intervals {
		if iv.Contains(t) {
			return iv, true
		}
	}
	return timeline.Interval{}, false
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
