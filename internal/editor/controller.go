package editor

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/trimline/internal/logging"
	"github.com/kikiluvv/trimline/internal/notify"
	"github.com/kikiluvv/trimline/internal/timeline"
)

// Handle identifies what a pointer drag is moving.
type Handle int

const (
	HandleNone Handle = iota
	HandleStart
	HandleEnd
	HandleScrub
)

func (h Handle) String() string {
	switch h {
	case HandleStart:
		return "start"
	case HandleEnd:
		return "end"
	case HandleScrub:
		return "scrub"
	default:
		return "none"
	}
}

// State is the read-only snapshot handed to the presentation layer.
type State struct {
	Loaded      bool
	Duration    float64
	CurrentTime float64
	Playing     bool
	Dragging    bool
	Handle      Handle
	ActiveID    string
	Intervals   []timeline.Interval
	Kept        []timeline.Span
}

// Active returns the interval being edited, if any.
func (s State) Active() (timeline.Interval, bool) {
	for _, iv := range s.Intervals {
		if iv.ID == s.ActiveID {
			return iv, true
		}
	}
	return timeline.Interval{}, false
}

// Controller turns pointer gestures and playback ticks into RangeSet
// mutations and seeks. Pointer and tick handlers are serialised by mu.
type Controller struct {
	logger   zerolog.Logger
	notifier notify.Notifier
	source   TimeSource
	opts     Options
	newID    func() string

	mu       sync.Mutex
	session  *Session
	dragging bool
	handle   Handle
	seq      uint64

	emitMu sync.Mutex
	sent   uint64

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// NewController wires a controller to a time source. notifier may be nil.
func NewController(logger zerolog.Logger, source TimeSource, notifier notify.Notifier, opts Options) *Controller {
	return &Controller{
		logger:   logging.WithComponent(logger, "editor"),
		notifier: notify.OrDiscard(notifier),
		source:   source,
		opts:     opts.withDefaults(),
		newID:    uuid.NewString,
		subs:     make(map[int]func(State)),
	}
}

// Load starts a new session once the media duration is known. Any
// previous session is discarded.
func (c *Controller) Load(duration float64) error {
	s, err := NewSession(duration, c.opts)
	if err != nil {
		c.notifier.Notify("Could not read the video duration, please re-upload", notify.Error)
		return err
	}

	c.mu.Lock()
	c.session = s
	c.dragging = false
	c.handle = HandleNone
	c.release()

	c.logger.Info().Float64("duration", duration).Msg("edit session started")
	return nil
}

// Reset destroys the session, e.g. before loading a different video.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.session = nil
	c.dragging = false
	c.handle = HandleNone
	c.release()

	c.logger.Debug().Msg("edit session reset")
}

// Add places a new cut using the auto-placement rules and makes it the
// active interval. ErrNoSpace is returned, and notified, when nothing fits.
func (c *Controller) Add() (timeline.Interval, error) {
	c.mu.Lock()
	s, err := c.editable()
	if err != nil {
		c.mu.Unlock()
		return timeline.Interval{}, err
	}

	span, ok := place(s.ranges.Intervals(), s.duration, c.opts)
	if !ok {
		c.mu.Unlock()
		c.notifier.Notify("No space left for a new cut. Shrink or remove one first.", notify.Warning)
		return timeline.Interval{}, ErrNoSpace
	}

	id, err := s.ranges.Insert(c.newID(), span.Start, span.End)
	if err != nil {
		c.mu.Unlock()
		return timeline.Interval{}, fmt.Errorf("place cut: %w", err)
	}
	s.activeID = id
	iv, _ := s.ranges.Get(id)
	c.release()

	c.logger.Debug().Str("id", id).Float64("start", iv.Start).Float64("end", iv.End).Msg("cut added")
	return iv, nil
}

// Place inserts an explicitly positioned cut, e.g. typed on the command
// line or proposed by an analysis service. The range is clamped into
// [0, duration] and then validated like any other insert. The active
// interval is left unchanged.
func (c *Controller) Place(start, end float64) (timeline.Interval, error) {
	c.mu.Lock()
	s, err := c.editable()
	if err != nil {
		c.mu.Unlock()
		return timeline.Interval{}, err
	}

	if !math.IsNaN(start) && !math.IsNaN(end) {
		start = math.Max(start, 0)
		end = math.Min(end, s.duration)
	}
	id, err := s.ranges.Insert(c.newID(), start, end)
	if err != nil {
		c.mu.Unlock()
		return timeline.Interval{}, err
	}
	iv, _ := s.ranges.Get(id)
	c.release()
	return iv, nil
}

// Select makes id the active interval.
func (c *Controller) Select(id string) error {
	c.mu.Lock()
	s, err := c.editable()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if _, ok := s.ranges.Get(id); !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", timeline.ErrNotFound, id)
	}
	s.activeID = id
	c.release()
	return nil
}

// Commit releases the active interval without changing it ("Save Change").
func (c *Controller) Commit() {
	c.mu.Lock()
	if c.session == nil || c.dragging {
		c.mu.Unlock()
		return
	}
	c.session.activeID = ""
	c.release()
}

// RemoveActive deletes the active interval and clears the selection.
func (c *Controller) RemoveActive() error {
	c.mu.Lock()
	s, err := c.editable()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if s.activeID == "" {
		c.mu.Unlock()
		return ErrNoActive
	}
	s.ranges.Remove(s.activeID)
	s.activeID = ""
	c.release()
	return nil
}

// UndoAll removes every cut.
func (c *Controller) UndoAll() error {
	c.mu.Lock()
	s, err := c.editable()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	s.ranges.Clear()
	s.activeID = ""
	c.release()
	return nil
}

// BeginDrag starts a pointer drag. Handle drags require an active interval.
func (c *Controller) BeginDrag(h Handle) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if (h == HandleStart || h == HandleEnd) && c.session.activeID == "" {
		c.mu.Unlock()
		return ErrNoActive
	}
	if h == HandleNone {
		c.mu.Unlock()
		return fmt.Errorf("begin drag: %w", timeline.ErrInvalidRange)
	}
	c.dragging = true
	c.handle = h
	c.release()
	return nil
}

// DragTo moves the dragged handle to pointer x within a track of the
// given width. The time is always derived from the absolute position so
// repeated or coalesced events cannot drift. Calls after EndDrag are
// ignored.
func (c *Controller) DragTo(x, width float64) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if !c.dragging {
		c.mu.Unlock()
		return nil
	}
	s := c.session
	t := timeAt(x, width, s.duration)

	var err error
	switch c.handle {
	case HandleStart:
		var iv timeline.Interval
		iv, err = s.ranges.ResizeStart(s.activeID, t)
		if err == nil {
			c.source.Seek(iv.Start)
		}
	case HandleEnd:
		var iv timeline.Interval
		iv, err = s.ranges.ResizeEnd(s.activeID, t)
		if err == nil {
			c.source.Seek(iv.End)
		}
	case HandleScrub:
		c.source.Seek(c.scrubTarget(t))
	}
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.release()
	return nil
}

// EndDrag finishes the drag on pointer-up.
func (c *Controller) EndDrag() {
	c.mu.Lock()
	if !c.dragging {
		c.mu.Unlock()
		return
	}
	c.dragging = false
	c.handle = HandleNone
	c.release()
}

// ScrubTo seeks to t as a timeline click would, snapping out of deleted
// ranges when nothing is being edited.
func (c *Controller) ScrubTo(t float64) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if math.IsNaN(t) {
		c.mu.Unlock()
		return fmt.Errorf("scrub: %w", timeline.ErrInvalidRange)
	}
	t = math.Max(0, math.Min(t, c.session.duration))
	c.source.Seek(c.scrubTarget(t))
	c.release()
	return nil
}

// Tick is called on every playback time update. While no interval is
// active, a playhead that has entered a deleted range jumps to its end
// (following chains of touching ranges) so the preview plays gaplessly.
func (c *Controller) Tick() {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return
	}
	if s.activeID == "" {
		t := c.source.CurrentTime()
		target, jumped := t, false
		for {
			iv, ok := s.ranges.Contains(target)
			if !ok {
				break
			}
			target, jumped = iv.End, true
		}
		if jumped {
			c.source.Seek(target)
			c.logger.Debug().Float64("from", t).Float64("to", target).Msg("skipped deleted range")
		}
	}
	c.release()
}

// TogglePlay starts or pauses playback.
func (c *Controller) TogglePlay() {
	if c.source.Playing() {
		c.source.Pause()
	} else {
		if c.source.CurrentTime() >= c.source.Duration() {
			c.source.Seek(0)
		}
		c.source.Play()
	}
	c.Tick()
}

// Kept returns the kept spans of the current session.
func (c *Controller) Kept() ([]timeline.Span, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNoSession
	}
	return c.session.Kept(), nil
}

// Snapshot returns the current State.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Subscribe registers fn to receive a State after every change and
// returns a function that removes it. States arrive in order; fn must not
// call back into the controller.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// editable returns the session if it may be mutated. Caller holds mu.
func (c *Controller) editable() (*Session, error) {
	if c.session == nil {
		return nil, ErrNoSession
	}
	if c.dragging {
		return nil, ErrDragging
	}
	return c.session, nil
}

// scrubTarget maps a requested time to the seek target. Caller holds mu.
func (c *Controller) scrubTarget(t float64) float64 {
	s := c.session
	if s.activeID != "" {
		return t
	}
	iv, ok := s.ranges.Contains(t)
	if !ok {
		return t
	}

	before := iv.Start - c.opts.SnapOffset
	after := iv.End + c.opts.SnapOffset
	beforeOK := before >= 0 && !c.inside(before)
	afterOK := after <= s.duration && !c.inside(after)

	switch {
	case beforeOK && afterOK:
		if t-before <= after-t {
			return before
		}
		return after
	case beforeOK:
		return before
	case afterOK:
		return after
	default:
		target := iv.End
		for {
			next, ok := s.ranges.Contains(target)
			if !ok {
				return target
			}
			target = next.End
		}
	}
}

func (c *Controller) inside(t float64) bool {
	_, ok := c.session.ranges.Contains(t)
	return ok
}

func (c *Controller) snapshot() State {
	st := State{
		CurrentTime: c.source.CurrentTime(),
		Playing:     c.source.Playing(),
		Dragging:    c.dragging,
		Handle:      c.handle,
	}
	if c.session != nil {
		st.Loaded = true
		st.Duration = c.session.duration
		st.ActiveID = c.session.activeID
		st.Intervals = c.session.Intervals()
		st.Kept = c.session.Kept()
	}
	return st
}

// release snapshots the state, unlocks mu and delivers the snapshot.
// Caller holds mu.
func (c *Controller) release() {
	c.seq++
	seq, st := c.seq, c.snapshot()
	c.mu.Unlock()
	c.emit(seq, st)
}

// emit delivers st unless a newer state has already gone out, so
// subscribers never see the timeline move backwards.
func (c *Controller) emit(seq uint64, st State) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if seq <= c.sent {
		return
	}
	c.sent = seq

	c.subMu.Lock()
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// timeAt maps pointer x in a track of width w onto [0, duration].
func timeAt(x, width, duration float64) float64 {
	if width <= 0 || math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(x/width, 1)) * duration
}
