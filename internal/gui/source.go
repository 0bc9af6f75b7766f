package gui

import "github.com/kikiluvv/trimline/internal/playback"

// clockSource is the controller's TimeSource. It follows whichever clock
// belongs to the currently loaded video.
type clockSource struct {
	w *window
}

func (c *clockSource) current() *playback.Clock {
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	return c.w.clock
}

func (c *clockSource) CurrentTime() float64 {
	if clk := c.current(); clk != nil {
		return clk.CurrentTime()
	}
	return 0
}

func (c *clockSource) Duration() float64 {
	if clk := c.current(); clk != nil {
		return clk.Duration()
	}
	return 0
}

func (c *clockSource) Seek(t float64) {
	if clk := c.current(); clk != nil {
		clk.Seek(t)
	}
}

func (c *clockSource) Play() {
	if clk := c.current(); clk != nil {
		clk.Play()
	}
}

func (c *clockSource) Pause() {
	if clk := c.current(); clk != nil {
		clk.Pause()
	}
}

func (c *clockSource) Playing() bool {
	if clk := c.current(); clk != nil {
		return clk.Playing()
	}
	return false
}
