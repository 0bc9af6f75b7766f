package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/kikiluvv/trimline/internal/editor"
)

var (
	cutColor      = color.NRGBA{R: 0xd9, G: 0x36, B: 0x36, A: 0xb0}
	activeColor   = color.NRGBA{R: 0xff, G: 0xa0, B: 0x1c, A: 0xd0}
	handleColor   = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	playheadColor = color.NRGBA{R: 0x2e, G: 0x9c, B: 0xff, A: 0xff}
)

const (
	trackHeight = 48
	handleWidth = 6
)

// timelineTrack draws the deletion markers and playhead and forwards
// pointer gestures to the controller.
type timelineTrack struct {
	widget.BaseWidget

	ctrl  *editor.Controller
	state editor.State

	dragging bool
	onError  func(error)
	onDrop   func()
}

func newTimelineTrack(ctrl *editor.Controller) *timelineTrack {
	t := &timelineTrack{ctrl: ctrl}
	t.ExtendBaseWidget(t)
	return t
}

// SetState re-renders from st. Must run on the UI goroutine.
func (t *timelineTrack) SetState(st editor.State) {
	t.state = st
	t.Refresh()
}

// Tapped seeks, or selects the interval under the pointer.
func (t *timelineTrack) Tapped(ev *fyne.PointEvent) {
	width := t.Size().Width
	if iv, ok := intervalAt(t.state, ev.Position.X, width); ok && t.state.ActiveID == "" {
		t.report(t.ctrl.Select(iv.ID))
		return
	}
	st := t.state
	if !st.Loaded || width <= 0 {
		return
	}
	t.report(t.ctrl.ScrubTo(float64(ev.Position.X/width) * st.Duration))
	if t.onDrop != nil {
		t.onDrop()
	}
}

// Dragged grabs a handle or the playhead on the first event and then
// moves it to the absolute pointer position.
func (t *timelineTrack) Dragged(ev *fyne.DragEvent) {
	width := t.Size().Width
	if !t.dragging {
		press := ev.Position.X - ev.Dragged.DX
		if err := t.ctrl.BeginDrag(hitTest(t.state, press, width)); err != nil {
			t.report(err)
			return
		}
		t.dragging = true
	}
	t.report(t.ctrl.DragTo(float64(ev.Position.X), float64(width)))
}

// DragEnd releases the drag.
func (t *timelineTrack) DragEnd() {
	if !t.dragging {
		return
	}
	t.dragging = false
	t.ctrl.EndDrag()
	if t.onDrop != nil {
		t.onDrop()
	}
}

func (t *timelineTrack) report(err error) {
	if err != nil && t.onError != nil {
		t.onError(err)
	}
}

func (t *timelineTrack) CreateRenderer() fyne.WidgetRenderer {
	r := &trackRenderer{
		track:      t,
		background: canvas.NewRectangle(theme.Color(theme.ColorNameInputBackground)),
		playhead:   canvas.NewRectangle(playheadColor),
		handles:    [2]*canvas.Rectangle{canvas.NewRectangle(handleColor), canvas.NewRectangle(handleColor)},
	}
	r.Refresh()
	return r
}

type trackRenderer struct {
	track      *timelineTrack
	background *canvas.Rectangle
	playhead   *canvas.Rectangle
	cuts       []*canvas.Rectangle
	handles    [2]*canvas.Rectangle
	objects    []fyne.CanvasObject
}

func (r *trackRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	r.background.Move(fyne.NewPos(0, 0))

	st := r.track.state
	for i, b := range bars(st, size.Width) {
		if i >= len(r.cuts) {
			break
		}
		r.cuts[i].Move(fyne.NewPos(b.X, 0))
		r.cuts[i].Resize(fyne.NewSize(b.W, size.Height))
	}

	if active, ok := st.Active(); ok {
		xs := []float32{xAt(active.Start, st.Duration, size.Width), xAt(active.End, st.Duration, size.Width)}
		for i, x := range xs {
			r.handles[i].Move(fyne.NewPos(x-handleWidth/2, 0))
			r.handles[i].Resize(fyne.NewSize(handleWidth, size.Height))
		}
	}

	x := xAt(st.CurrentTime, st.Duration, size.Width)
	r.playhead.Move(fyne.NewPos(x-1, 0))
	r.playhead.Resize(fyne.NewSize(2, size.Height))
}

func (r *trackRenderer) MinSize() fyne.Size {
	return fyne.NewSize(200, trackHeight)
}

// Refresh runs on every published state, so the rectangles are reused and
// the object list only changes when the number of cuts does.
func (r *trackRenderer) Refresh() {
	st := r.track.state

	if n := len(st.Intervals); n != len(r.cuts) {
		for len(r.cuts) < n {
			r.cuts = append(r.cuts, canvas.NewRectangle(cutColor))
		}
		r.cuts = r.cuts[:n]

		r.objects = r.objects[:0]
		r.objects = append(r.objects, r.background)
		for _, c := range r.cuts {
			r.objects = append(r.objects, c)
		}
		r.objects = append(r.objects, r.handles[0], r.handles[1], r.playhead)
	} else if r.objects == nil {
		r.objects = []fyne.CanvasObject{r.background, r.handles[0], r.handles[1], r.playhead}
	}

	for i, iv := range st.Intervals {
		fill := cutColor
		if iv.ID == st.ActiveID {
			fill = activeColor
		}
		if r.cuts[i].FillColor != fill {
			r.cuts[i].FillColor = fill
			r.cuts[i].Refresh()
		}
	}

	_, active := st.Active()
	for _, h := range r.handles {
		if active {
			h.Show()
		} else {
			h.Hide()
		}
	}

	r.background.FillColor = theme.Color(theme.ColorNameInputBackground)
	r.Layout(r.track.Size())
	canvas.Refresh(r.track)
}

func (r *trackRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *trackRenderer) Destroy() {}
