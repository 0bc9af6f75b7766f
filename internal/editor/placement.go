package editor

import (
	"math"

	"github.com/kikiluvv/trimline/internal/timeline"
)

// defaultLength is the length of a freshly added cut.
func defaultLength(duration float64, opts Options) float64 {
	return math.Max(duration*opts.DefaultFraction, opts.MinDefault)
}

// place picks where a new cut goes. In priority order: an empty timeline
// starts at 0; a leading gap that fits the default length; the first inner
// gap of at least MinGap; a trailing gap of at least MinGap.
func place(ivs []timeline.Interval, duration float64, opts Options) (timeline.Span, bool) {
	length := defaultLength(duration, opts)

	if len(ivs) == 0 {
		return timeline.Span{Start: 0, End: math.Min(length, duration)}, true
	}

	first := ivs[0]
	if first.Start >= length {
		return timeline.Span{Start: 0, End: math.Min(length, first.Start)}, true
	}

	for i := 0; i < len(ivs)-1; i++ {
		gapStart, gapEnd := ivs[i].End, ivs[i+1].Start
		if gapEnd-gapStart >= opts.MinGap {
			return timeline.Span{Start: gapStart, End: math.Min(gapStart+length, gapEnd)}, true
		}
	}

	last := ivs[len(ivs)-1]
	if duration-last.End >= opts.MinGap {
		return timeline.Span{Start: last.End, End: math.Min(last.End+length, duration)}, true
	}

	return timeline.Span{}, false
}
