package editor

import (
	"errors"
	"fmt"
	"math"

	"github.com/kikiluvv/trimline/internal/timeline"
)

var (
	ErrUnknownDuration = errors.New("media duration is unknown")
	ErrNoSession       = errors.New("no video loaded")
	ErrNoSpace         = errors.New("no space left on the timeline for a new cut")
	ErrNoActive        = errors.New("no interval selected")
	ErrDragging        = errors.New("a drag is in progress")
)

// TimeSource is the playback primitive the controller reads and seeks.
// Tick notifications are delivered by calling Controller.Tick.
type TimeSource interface {
	CurrentTime() float64
	Duration() float64
	Seek(t float64)
	Play()
	Pause()
	Playing() bool
}

// Options tune placement, snapping and resize behaviour.
type Options struct {
	// MinLength is ε, the shortest interval a drag may produce.
	MinLength float64
	// SnapOffset is δ, how far outside a deleted range a scrub lands.
	SnapOffset float64
	// DefaultFraction of the duration used for a new cut.
	DefaultFraction float64
	// MinDefault is the floor for a new cut's length.
	MinDefault float64
	// MinGap is the narrowest gap auto-placement will use.
	MinGap float64
}

// DefaultOptions returns the stock editor tuning.
func DefaultOptions() Options {
	return Options{
		MinLength:       timeline.DefaultMinLength,
		SnapOffset:      0.05,
		DefaultFraction: 0.2,
		MinDefault:      1.0,
		MinGap:          1.0,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinLength <= 0 {
		o.MinLength = d.MinLength
	}
	if o.SnapOffset <= 0 {
		o.SnapOffset = d.SnapOffset
	}
	if o.DefaultFraction <= 0 || o.DefaultFraction > 1 {
		o.DefaultFraction = d.DefaultFraction
	}
	if o.MinDefault <= 0 {
		o.MinDefault = d.MinDefault
	}
	if o.MinGap <= 0 {
		o.MinGap = d.MinGap
	}
	return o
}

// Session is the edit state for one loaded video.
type Session struct {
	duration float64
	ranges   *timeline.RangeSet
	activeID string
}

// NewSession starts a session once the media duration is known.
func NewSession(duration float64, opts Options) (*Session, error) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnknownDuration, duration)
	}
	opts = opts.withDefaults()
	rs, err := timeline.NewRangeSet(duration, opts.MinLength)
	if err != nil {
		return nil, err
	}
	return &Session{duration: duration, ranges: rs}, nil
}

// Duration returns the media duration in seconds.
func (s *Session) Duration() float64 { return s.duration }

// ActiveID returns the interval currently being edited, if any.
func (s *Session) ActiveID() string { return s.activeID }

// Intervals returns the deletion intervals in order.
func (s *Session) Intervals() []timeline.Interval { return s.ranges.Intervals() }

// Kept returns the kept spans.
func (s *Session) Kept() []timeline.Span { return s.ranges.Kept() }
