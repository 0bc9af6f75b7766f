package gui

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/trimline/internal/timeline"
)

func TestTrackRendererReusesRectangles(t *testing.T) {
	test.NewTempApp(t)

	track := newTimelineTrack(nil)
	track.Resize(fyne.NewSize(500, trackHeight))
	r, ok := test.TempWidgetRenderer(t, track).(*trackRenderer)
	require.True(t, ok)

	st := state()
	track.state = st
	r.Refresh()
	require.Len(t, r.cuts, 2)
	first := append([]*canvas.Rectangle(nil), r.cuts...)
	objects := len(r.Objects())

	// playback ticks only move the playhead
	for _, now := range []float64{0.5, 2.5, 3.0, 7.5} {
		st.CurrentTime = now
		track.state = st
		r.Refresh()
	}
	assert.Equal(t, first, r.cuts)
	assert.Len(t, r.Objects(), objects)
	assert.Equal(t, activeColor, r.cuts[1].FillColor)
	assert.True(t, r.handles[0].Visible())

	st.ActiveID = ""
	st.Intervals = append(st.Intervals, timeline.Interval{ID: "c", Start: 8, End: 9})
	track.state = st
	r.Refresh()
	require.Len(t, r.cuts, 3)
	assert.Same(t, first[0], r.cuts[0])
	assert.Len(t, r.Objects(), objects+1)
	assert.Equal(t, cutColor, r.cuts[1].FillColor)
	assert.False(t, r.handles[0].Visible())
}
