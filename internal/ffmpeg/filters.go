package ffmpeg

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kikiluvv/trimline/internal/timeline"
)

// ErrNoSpans is returned when a graph would keep nothing.
var ErrNoSpans = errors.New("no spans to keep")

// Output pad labels of a trim/concat graph.
const (
	VideoOut = "[outv]"
	AudioOut = "[outa]"
)

// FilterBuilder helps construct -filter_complex graphs. Each chain is
// "[in]...f1,f2[out]" and chains are joined with ';'.
type FilterBuilder struct {
	chains  []string
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

// Trim adds a video trim that resets timestamps to start at zero.
func (fb *FilterBuilder) Trim(start, end float64) *FilterBuilder {
	fb.filters = append(fb.filters,
		fmt.Sprintf("trim=start=%.3f:end=%.3f", start, end),
		"setpts=PTS-STARTPTS")
	return fb
}

// ATrim is the audio counterpart of Trim.
func (fb *FilterBuilder) ATrim(start, end float64) *FilterBuilder {
	fb.filters = append(fb.filters,
		fmt.Sprintf("atrim=start=%.3f:end=%.3f", start, end),
		"asetpts=PTS-STARTPTS")
	return fb
}

// Scale adds a scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 && height <= 0 {
		return fb
	}
	if width <= 0 {
		width = -2
	}
	if height <= 0 {
		height = -2
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// Concat adds a concat filter joining n segments.
func (fb *FilterBuilder) Concat(n int, audio bool) *FilterBuilder {
	a := 0
	if audio {
		a = 1
	}
	fb.filters = append(fb.filters, fmt.Sprintf("concat=n=%d:v=1:a=%d", n, a))
	return fb
}

// Chain closes the pending filters into one chain between the given pads.
func (fb *FilterBuilder) Chain(inputs []string, outputs ...string) *FilterBuilder {
	if len(fb.filters) == 0 {
		return fb
	}
	fb.chains = append(fb.chains,
		strings.Join(inputs, "")+strings.Join(fb.filters, ",")+strings.Join(outputs, ""))
	fb.filters = nil
	return fb
}

// Build returns the graph. Filters not closed by Chain form a plain
// comma-separated filter list.
func (fb *FilterBuilder) Build() string {
	if len(fb.chains) == 0 {
		return strings.Join(fb.filters, ",")
	}
	return strings.Join(fb.chains, ";")
}

// TrimConcatGraph builds the filter graph that keeps spans of input 0 and
// joins them in chronological order. Without audio only the video branch
// is emitted and the graph yields VideoOut alone.
func TrimConcatGraph(spans []timeline.Span, hasAudio bool) (string, error) {
	if len(spans) == 0 {
		return "", ErrNoSpans
	}

	ordered := append([]timeline.Span(nil), spans...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	for i, sp := range ordered {
		if math.IsNaN(sp.Start) || math.IsNaN(sp.End) || sp.Start < 0 || sp.End <= sp.Start {
			return "", fmt.Errorf("%w: span %d [%v, %v]", timeline.ErrInvalidRange, i, sp.Start, sp.End)
		}
		if i > 0 && sp.Start < ordered[i-1].End {
			return "", fmt.Errorf("%w: span %d", timeline.ErrOverlap, i)
		}
	}

	fb := NewFilterBuilder()
	var pads []string
	for i, sp := range ordered {
		v := fmt.Sprintf("[v%d]", i)
		fb.Trim(sp.Start, sp.End).Chain([]string{"[0:v]"}, v)
		pads = append(pads, v)
		if hasAudio {
			a := fmt.Sprintf("[a%d]", i)
			fb.ATrim(sp.Start, sp.End).Chain([]string{"[0:a]"}, a)
			pads = append(pads, a)
		}
	}

	if hasAudio {
		fb.Concat(len(ordered), true).Chain(pads, VideoOut, AudioOut)
	} else {
		fb.Concat(len(ordered), false).Chain(pads, VideoOut)
	}
	return fb.Build(), nil
}
