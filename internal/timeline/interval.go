package timeline

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidRange = errors.New("invalid range")
	ErrOverlap      = errors.New("range overlaps an existing interval")
	ErrNotFound     = errors.New("interval not found")
	ErrDuplicateID  = errors.New("duplicate interval id")
)

// DefaultMinLength is the shortest interval a resize may produce, in seconds.
const DefaultMinLength = 0.1

// gapTolerance absorbs float noise when deciding whether a gap is empty.
const gapTolerance = 1e-9

// Interval is a half-open range [Start, End) marked for deletion.
type Interval struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns End - Start.
func (iv Interval) Length() float64 {
	return iv.End - iv.Start
}

// Contains reports whether t falls in [Start, End).
func (iv Interval) Contains(t float64) bool {
	return t >= iv.Start && t < iv.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s[%.3f,%.3f)", iv.ID, iv.Start, iv.End)
}

// Span is a kept range of the source that survives into the export.
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns End - Start.
func (s Span) Length() float64 {
	return s.End - s.Start
}

// TotalLength sums the lengths of spans.
func TotalLength(spans []Span) float64 {
	var total float64
	for _, s := range spans {
		total += s.Length()
	}
	return total
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
