package timeline

import (
	"fmt"
	"sort"
)

// RangeSet holds the disjoint deletion intervals of one editing session
// over [0, duration). Intervals are kept sorted by Start.
//
// RangeSet is not safe for concurrent use; the editor serialises access.
type RangeSet struct {
	duration  float64
	minLength float64
	intervals []Interval
}

// NewRangeSet creates an empty set. minLength <= 0 selects DefaultMinLength.
func NewRangeSet(duration, minLength float64) (*RangeSet, error) {
	if !finite(duration) || duration <= 0 {
		return nil, fmt.Errorf("%w: duration %v", ErrInvalidRange, duration)
	}
	if !finite(minLength) || minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &RangeSet{
		duration:  duration,
		minLength: minLength,
		intervals: make([]Interval, 0),
	}, nil
}

// Duration returns the length of the timeline the set covers.
func (r *RangeSet) Duration() float64 {
	return r.duration
}

// MinLength returns the resize floor ε.
func (r *RangeSet) MinLength() float64 {
	return r.minLength
}

// Len returns the number of intervals.
func (r *RangeSet) Len() int {
	return len(r.intervals)
}

// Intervals returns a sorted copy of all intervals.
func (r *RangeSet) Intervals() []Interval {
	out := make([]Interval, len(r.intervals))
	copy(out, r.intervals)
	return out
}

// Get returns the interval with the given id.
func (r *RangeSet) Get(id string) (Interval, bool) {
	if i := r.indexOf(id); i >= 0 {
		return r.intervals[i], true
	}
	return Interval{}, false
}

// Insert adds [start, end) under id. The range must be finite, positive
// length, inside [0, duration] and must not overlap any existing interval;
// touching endpoints are allowed.
func (r *RangeSet) Insert(id string, start, end float64) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty id", ErrInvalidRange)
	}
	if r.indexOf(id) >= 0 {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	if !finite(start) || !finite(end) {
		return "", fmt.Errorf("%w: non-numeric bounds", ErrInvalidRange)
	}
	if end <= start {
		return "", fmt.Errorf("%w: end %.3f must be after start %.3f", ErrInvalidRange, end, start)
	}
	if start < 0 || end > r.duration {
		return "", fmt.Errorf("%w: [%.3f,%.3f) outside [0,%.3f)", ErrInvalidRange, start, end, r.duration)
	}

	pos := sort.Search(len(r.intervals), func(i int) bool {
		return r.intervals[i].Start >= start
	})
	if pos > 0 && r.intervals[pos-1].End > start {
		return "", fmt.Errorf("%w: %s", ErrOverlap, r.intervals[pos-1])
	}
	if pos < len(r.intervals) && r.intervals[pos].Start < end {
		return "", fmt.Errorf("%w: %s", ErrOverlap, r.intervals[pos])
	}

	iv := Interval{ID: id, Start: start, End: end}
	r.intervals = append(r.intervals, Interval{})
	copy(r.intervals[pos+1:], r.intervals[pos:])
	r.intervals[pos] = iv
	return id, nil
}

// ResizeStart moves the start of id to t, clamped to
// [previous end or 0, end - ε]. The resulting interval is returned.
func (r *RangeSet) ResizeStart(id string, t float64) (Interval, error) {
	i := r.indexOf(id)
	if i < 0 {
		return Interval{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !finite(t) {
		return r.intervals[i], fmt.Errorf("%w: non-numeric start", ErrInvalidRange)
	}

	lo := 0.0
	if i > 0 {
		lo = r.intervals[i-1].End
	}
	hi := r.intervals[i].End - r.minLength
	if hi < lo {
		// Already shorter than ε against its neighbour; leave it alone.
		return r.intervals[i], nil
	}

	r.intervals[i].Start = clamp(t, lo, hi)
	return r.intervals[i], nil
}

// ResizeEnd moves the end of id to t, clamped to
// [start + ε, next start or duration]. The resulting interval is returned.
func (r *RangeSet) ResizeEnd(id string, t float64) (Interval, error) {
	i := r.indexOf(id)
	if i < 0 {
		return Interval{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !finite(t) {
		return r.intervals[i], fmt.Errorf("%w: non-numeric end", ErrInvalidRange)
	}

	hi := r.duration
	if i < len(r.intervals)-1 {
		hi = r.intervals[i+1].Start
	}
	lo := r.intervals[i].Start + r.minLength
	if lo > hi {
		return r.intervals[i], nil
	}

	r.intervals[i].End = clamp(t, lo, hi)
	return r.intervals[i], nil
}

// Remove deletes id. Removing an absent id is a no-op.
func (r *RangeSet) Remove(id string) {
	i := r.indexOf(id)
	if i < 0 {
		return
	}
	r.intervals = append(r.intervals[:i], r.intervals[i+1:]...)
}

// Clear removes every interval.
func (r *RangeSet) Clear() {
	r.intervals = r.intervals[:0]
}

// Contains returns the interval whose [start, end) holds t.
func (r *RangeSet) Contains(t float64) (Interval, bool) {
	pos := sort.Search(len(r.intervals), func(i int) bool {
		return r.intervals[i].End > t
	})
	if pos < len(r.intervals) && r.intervals[pos].Contains(t) {
		return r.intervals[pos], true
	}
	return Interval{}, false
}

// Kept returns the complement of the set over [0, duration) in
// chronological order, omitting empty gaps.
func (r *RangeSet) Kept() []Span {
	kept := make([]Span, 0, len(r.intervals)+1)
	cursor := 0.0
	for _, iv := range r.intervals {
		if iv.Start-cursor > gapTolerance {
			kept = append(kept, Span{Start: cursor, End: iv.Start})
		}
		if iv.End > cursor {
			cursor = iv.End
		}
	}
	if r.duration-cursor > gapTolerance {
		kept = append(kept, Span{Start: cursor, End: r.duration})
	}
	return kept
}

// DeletedLength sums the lengths of all intervals.
func (r *RangeSet) DeletedLength() float64 {
	var total float64
	for _, iv := range r.intervals {
		total += iv.Length()
	}
	return total
}

// KeptLength is the length of the edited result.
func (r *RangeSet) KeptLength() float64 {
	return TotalLength(r.Kept())
}

func (r *RangeSet) indexOf(id string) int {
	for i, iv := range r.intervals {
		if iv.ID == id {
			return i
		}
	}
	return -1
}
