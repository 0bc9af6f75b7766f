package editor

import (
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/trimline/internal/notify"
	"github.com/kikiluvv/trimline/internal/timeline"
)

// fakeClock is a TimeSource driven step by step by the test.
type fakeClock struct {
	now      float64
	duration float64
	playing  bool
	seeks    []float64
}

func (f *fakeClock) CurrentTime() float64 { return f.now }
func (f *fakeClock) Duration() float64    { return f.duration }
func (f *fakeClock) Play()                { f.playing = true }
func (f *fakeClock) Pause()               { f.playing = false }
func (f *fakeClock) Playing() bool        { return f.playing }

func (f *fakeClock) Seek(t float64) {
	f.now = t
	f.seeks = append(f.seeks, t)
}

func (f *fakeClock) advance(dt float64) {
	f.now = math.Min(f.now+dt, f.duration)
}

type recorder struct {
	messages []string
	levels   []notify.Severity
}

func (r *recorder) Notify(msg string, sev notify.Severity) {
	r.messages = append(r.messages, msg)
	r.levels = append(r.levels, sev)
}

func newController(t *testing.T, duration float64) (*Controller, *fakeClock, *recorder) {
	t.Helper()
	clock := &fakeClock{duration: duration}
	rec := &recorder{}
	c := NewController(zerolog.Nop(), clock, rec, DefaultOptions())
	require.NoError(t, c.Load(duration))
	return c, clock, rec
}

func spanOf(iv timeline.Interval) [2]float64 {
	return [2]float64{iv.Start, iv.End}
}

func TestLoadRejectsUnknownDuration(t *testing.T) {
	rec := &recorder{}
	c := NewController(zerolog.Nop(), &fakeClock{}, rec, DefaultOptions())

	for _, d := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		err := c.Load(d)
		assert.ErrorIs(t, err, ErrUnknownDuration)
	}
	assert.Len(t, rec.levels, 4)
	assert.Equal(t, notify.Error, rec.levels[0])

	_, err := c.Add()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestAddAutoPlacement(t *testing.T) {
	c, _, rec := newController(t, 10)

	first, err := c.Add()
	require.NoError(t, err)
	assert.Equal(t, [2]float64{0, 2}, spanOf(first))
	assert.Equal(t, first.ID, c.Snapshot().ActiveID)

	second, err := c.Add()
	require.NoError(t, err)
	assert.Equal(t, [2]float64{2, 4}, spanOf(second))
	assert.Equal(t, second.ID, c.Snapshot().ActiveID)

	_, err = c.Place(4, 9.5)
	require.NoError(t, err)

	_, err = c.Add()
	assert.ErrorIs(t, err, ErrNoSpace)
	assert.Len(t, c.Snapshot().Intervals, 3)
	require.NotEmpty(t, rec.levels)
	assert.Equal(t, notify.Warning, rec.levels[len(rec.levels)-1])
}

func TestAddPlacementRules(t *testing.T) {
	t.Run("leading gap", func(t *testing.T) {
		c, _, _ := newController(t, 10)
		_, err := c.Place(5, 6)
		require.NoError(t, err)
		iv, err := c.Add()
		require.NoError(t, err)
		assert.Equal(t, [2]float64{0, 2}, spanOf(iv))
	})

	t.Run("inner gap narrower than default", func(t *testing.T) {
		c, _, _ := newController(t, 10)
		_, err := c.Place(0, 2)
		require.NoError(t, err)
		_, err = c.Place(3.5, 10)
		require.NoError(t, err)
		iv, err := c.Add()
		require.NoError(t, err)
		assert.Equal(t, [2]float64{2, 3.5}, spanOf(iv))
	})

	t.Run("inner gap below minimum is skipped", func(t *testing.T) {
		c, _, _ := newController(t, 10)
		_, _ = c.Place(0, 2)
		_, _ = c.Place(2.5, 6)
		iv, err := c.Add()
		require.NoError(t, err)
		assert.Equal(t, [2]float64{6, 8}, spanOf(iv))
	})

	t.Run("only a small leading gap", func(t *testing.T) {
		c, _, _ := newController(t, 10)
		_, err := c.Place(0.5, 10)
		require.NoError(t, err)
		_, err = c.Add()
		assert.ErrorIs(t, err, ErrNoSpace)
	})

	t.Run("minimum default length", func(t *testing.T) {
		c, _, _ := newController(t, 3)
		iv, err := c.Add()
		require.NoError(t, err)
		assert.Equal(t, [2]float64{0, 1}, spanOf(iv))
	})

	t.Run("video shorter than default", func(t *testing.T) {
		c, _, _ := newController(t, 0.5)
		iv, err := c.Add()
		require.NoError(t, err)
		assert.Equal(t, [2]float64{0, 0.5}, spanOf(iv))
	})
}

func TestPlaceClampsAndValidates(t *testing.T) {
	c, _, _ := newController(t, 10)

	iv, err := c.Place(-2, 3)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{0, 3}, spanOf(iv))
	assert.Empty(t, c.Snapshot().ActiveID, "placing does not select")

	iv, err = c.Place(8, 15)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{8, 10}, spanOf(iv))

	_, err = c.Place(2, 4)
	assert.ErrorIs(t, err, timeline.ErrOverlap)

	_, err = c.Place(math.NaN(), 5)
	assert.ErrorIs(t, err, timeline.ErrInvalidRange)

	_, err = c.Place(6, 5)
	assert.ErrorIs(t, err, timeline.ErrInvalidRange)

	_, err = c.Place(12, 14)
	assert.ErrorIs(t, err, timeline.ErrInvalidRange)

	assert.Len(t, c.Snapshot().Intervals, 2)
}

func TestGaplessPlayback(t *testing.T) {
	c, clock, _ := newController(t, 10)
	_, err := c.Place(3, 5)
	require.NoError(t, err)

	clock.Play()
	var observed []float64
	for clock.now < 10 {
		before := clock.now
		clock.advance(0.1)
		raw := clock.now
		c.Tick()
		observed = append(observed, clock.now)

		if before < 3 && raw >= 3 && raw < 5 {
			assert.Equal(t, 5.0, clock.now, "first tick inside the cut must land on its end")
		}
	}

	for _, v := range observed {
		assert.False(t, v >= 3 && v < 5, "playhead observed inside deleted range at %.3f", v)
	}
}

func TestTickFollowsTouchingCuts(t *testing.T) {
	c, clock, _ := newController(t, 10)
	_, _ = c.Place(3, 5)
	_, _ = c.Place(5, 6)

	clock.now = 3.2
	c.Tick()
	assert.Equal(t, 6.0, clock.now)
	assert.Equal(t, []float64{6}, clock.seeks)
}

func TestTickSuspendedWhileEditing(t *testing.T) {
	c, clock, _ := newController(t, 10)
	iv, err := c.Place(3, 5)
	require.NoError(t, err)
	require.NoError(t, c.Select(iv.ID))

	clock.now = 4
	c.Tick()
	assert.Equal(t, 4.0, clock.now)
	assert.Empty(t, clock.seeks)

	c.Commit()
	c.Tick()
	assert.Equal(t, 5.0, clock.now)
}

func TestDragEndHandle(t *testing.T) {
	c, clock, _ := newController(t, 10)
	iv, err := c.Add()
	require.NoError(t, err)
	_, err = c.Place(6, 7)
	require.NoError(t, err)

	require.NoError(t, c.BeginDrag(HandleEnd))
	assert.True(t, c.Snapshot().Dragging)

	require.NoError(t, c.DragTo(50, 100))
	got, _ := c.Snapshot().Active()
	assert.Equal(t, 5.0, got.End)
	assert.Equal(t, 5.0, clock.now, "seeks to the dragged boundary")

	// The same absolute position twice must not drift.
	require.NoError(t, c.DragTo(50, 100))
	got, _ = c.Snapshot().Active()
	assert.Equal(t, 5.0, got.End)

	// Past the neighbour: clamps at its start.
	require.NoError(t, c.DragTo(95, 100))
	got, _ = c.Snapshot().Active()
	assert.Equal(t, 6.0, got.End)

	// Back below the start handle: clamps to start + ε.
	require.NoError(t, c.DragTo(-40, 100))
	got, _ = c.Snapshot().Active()
	assert.Equal(t, iv.ID, got.ID)
	assert.InDelta(t, 0.1, got.End, 1e-9)

	c.EndDrag()
	assert.False(t, c.Snapshot().Dragging)

	require.NoError(t, c.DragTo(80, 100))
	got, _ = c.Snapshot().Active()
	assert.InDelta(t, 0.1, got.End, 1e-9, "no mutation after release")
}

func TestDragStartHandle(t *testing.T) {
	c, clock, _ := newController(t, 10)
	_, err := c.Place(0, 2)
	require.NoError(t, err)
	iv, err := c.Place(4, 8)
	require.NoError(t, err)
	require.NoError(t, c.Select(iv.ID))

	require.NoError(t, c.BeginDrag(HandleStart))
	require.NoError(t, c.DragTo(10, 100))
	got, _ := c.Snapshot().Active()
	assert.Equal(t, 2.0, got.Start, "stops at previous interval's end")
	assert.Equal(t, 2.0, clock.now)

	require.NoError(t, c.DragTo(100, 100))
	got, _ = c.Snapshot().Active()
	assert.InDelta(t, 7.9, got.Start, 1e-9)
	c.EndDrag()
}

func TestHandleDragNeedsActiveInterval(t *testing.T) {
	c, _, _ := newController(t, 10)
	_, _ = c.Place(2, 4)
	assert.ErrorIs(t, c.BeginDrag(HandleStart), ErrNoActive)
	assert.ErrorIs(t, c.BeginDrag(HandleEnd), ErrNoActive)
	assert.NoError(t, c.BeginDrag(HandleScrub))
}

func TestMutationsRejectedDuringDrag(t *testing.T) {
	c, _, _ := newController(t, 10)
	_, err := c.Add()
	require.NoError(t, err)
	require.NoError(t, c.BeginDrag(HandleEnd))

	_, err = c.Add()
	assert.ErrorIs(t, err, ErrDragging)
	_, err = c.Place(8, 9)
	assert.ErrorIs(t, err, ErrDragging)
	assert.ErrorIs(t, c.RemoveActive(), ErrDragging)

	c.Commit()
	assert.NotEmpty(t, c.Snapshot().ActiveID, "commit ignored mid-drag")
	c.EndDrag()
}

func TestScrubSnapsOutOfCuts(t *testing.T) {
	c, clock, _ := newController(t, 10)
	_, _ = c.Place(3, 5)
	_, _ = c.Place(0, 1)

	require.NoError(t, c.ScrubTo(3.4))
	assert.InDelta(t, 2.95, clock.now, 1e-9)

	require.NoError(t, c.ScrubTo(4.8))
	assert.InDelta(t, 5.05, clock.now, 1e-9)

	require.NoError(t, c.ScrubTo(0.2))
	assert.InDelta(t, 1.05, clock.now, 1e-9, "cannot land before zero")

	require.NoError(t, c.ScrubTo(7))
	assert.Equal(t, 7.0, clock.now)
}

func TestScrubDragUsesPointerPosition(t *testing.T) {
	c, clock, _ := newController(t, 10)
	_, _ = c.Place(3, 5)

	require.NoError(t, c.BeginDrag(HandleScrub))
	require.NoError(t, c.DragTo(60, 100))
	assert.Equal(t, 6.0, clock.now)
	require.NoError(t, c.DragTo(33, 100))
	assert.InDelta(t, 2.95, clock.now, 1e-9)
	c.EndDrag()
}

func TestScrubEntersActiveInterval(t *testing.T) {
	c, clock, _ := newController(t, 10)
	iv, _ := c.Place(3, 5)
	require.NoError(t, c.Select(iv.ID))

	require.NoError(t, c.ScrubTo(4))
	assert.Equal(t, 4.0, clock.now)
}

func TestCommitRemoveUndo(t *testing.T) {
	c, _, _ := newController(t, 10)
	a, err := c.Add()
	require.NoError(t, err)

	before := c.Snapshot().Intervals
	c.Commit()
	st := c.Snapshot()
	assert.Empty(t, st.ActiveID)
	assert.Equal(t, before, st.Intervals, "commit changes no data")

	assert.ErrorIs(t, c.RemoveActive(), ErrNoActive)

	require.NoError(t, c.Select(a.ID))
	require.NoError(t, c.RemoveActive())
	st = c.Snapshot()
	assert.Empty(t, st.Intervals)
	assert.Empty(t, st.ActiveID)

	_, _ = c.Add()
	_, _ = c.Add()
	require.NoError(t, c.UndoAll())
	st = c.Snapshot()
	assert.Empty(t, st.Intervals)
	assert.Empty(t, st.ActiveID)
	assert.Equal(t, []timeline.Span{{Start: 0, End: 10}}, st.Kept)

	assert.ErrorIs(t, c.Select("missing"), timeline.ErrNotFound)
}

func TestSubscribeReportsDragState(t *testing.T) {
	c, _, _ := newController(t, 10)
	_, _ = c.Add()

	var states []State
	unsubscribe := c.Subscribe(func(s State) { states = append(states, s) })

	require.NoError(t, c.BeginDrag(HandleEnd))
	require.NoError(t, c.DragTo(30, 100))
	c.EndDrag()

	require.Len(t, states, 3)
	assert.True(t, states[0].Dragging)
	assert.Equal(t, HandleEnd, states[0].Handle)
	assert.True(t, states[1].Dragging)
	assert.False(t, states[2].Dragging)
	assert.Equal(t, HandleNone, states[2].Handle)

	unsubscribe()
	c.Commit()
	assert.Len(t, states, 3)
}

func TestKeptAndReset(t *testing.T) {
	c, _, _ := newController(t, 10)
	_, _ = c.Place(2, 4)

	kept, err := c.Kept()
	require.NoError(t, err)
	assert.Equal(t, []timeline.Span{{Start: 0, End: 2}, {Start: 4, End: 10}}, kept)
	assert.Equal(t, 8.0, timeline.TotalLength(kept))

	c.Reset()
	_, err = c.Kept()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, c.Snapshot().Loaded)
}

func TestTogglePlayRewindsAtEnd(t *testing.T) {
	c, clock, _ := newController(t, 10)
	clock.now = 10

	c.TogglePlay()
	assert.True(t, clock.playing)
	assert.Equal(t, 0.0, clock.now)

	c.TogglePlay()
	assert.False(t, clock.playing)
}

func TestSubscribersNeverSeeOlderState(t *testing.T) {
	c, _, _ := newController(t, 100)

	var mu sync.Mutex
	var last State
	delivered := 0
	c.Subscribe(func(s State) {
		mu.Lock()
		last = s
		delivered++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = c.ScrubTo(float64(g*20 + i%20))
				c.Tick()
			}
		}(g)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, delivered)
	assert.Equal(t, c.Snapshot().CurrentTime, last.CurrentTime, "last delivery is the newest state")

	// a state published late by a slower goroutine is dropped
	before := delivered
	mu.Unlock()
	c.emit(1, State{CurrentTime: -1})
	mu.Lock()
	assert.Equal(t, before, delivered)
	assert.NotEqual(t, -1.0, last.CurrentTime)
}
