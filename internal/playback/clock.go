// Package playback provides a wall-clock TimeSource for hosts that have no
// media element of their own to report the playhead.
package playback

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/trimline/internal/logging"
)

// DefaultTickInterval is how often a playing clock reports its position.
const DefaultTickInterval = 50 * time.Millisecond

// Clock advances a playhead in real time while playing.
type Clock struct {
	logger   zerolog.Logger
	duration float64
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pos     float64
	anchor  time.Time
	playing bool
	onTick  func(float64)
	stop    chan struct{}
	done    chan struct{}
	closed  bool
}

// New creates a paused clock at position 0.
func New(logger zerolog.Logger, duration float64, interval time.Duration) *Clock {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Clock{
		logger:   logging.WithComponent(logger, "playback"),
		duration: math.Max(duration, 0),
		interval: interval,
		now:      time.Now,
	}
}

// OnTick registers fn to be called with the position after every advance.
// fn runs on the clock goroutine and must not call Pause or Close.
func (c *Clock) OnTick(fn func(float64)) {
	c.mu.Lock()
	c.onTick = fn
	c.mu.Unlock()
}

// Duration returns the media duration in seconds.
func (c *Clock) Duration() float64 { return c.duration }

// CurrentTime returns the playhead position in seconds.
func (c *Clock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position()
}

// Playing reports whether the clock is advancing.
func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position()
	return c.playing
}

// Seek moves the playhead, clamped to [0, duration].
func (c *Clock) Seek(t float64) {
	if math.IsNaN(t) {
		return
	}
	c.mu.Lock()
	c.pos = math.Max(0, math.Min(t, c.duration))
	c.anchor = c.now()
	c.mu.Unlock()
}

// Play starts advancing the playhead. Playing at the end is a no-op.
func (c *Clock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.playing || c.position() >= c.duration {
		return
	}
	if c.stop != nil {
		// a run that ended at the end of media exits on its own
		close(c.stop)
	}
	c.playing = true
	c.anchor = c.now()
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done)
	c.logger.Debug().Float64("at", c.pos).Msg("play")
}

// Pause freezes the playhead at its current position and waits for the
// clock goroutine to exit.
func (c *Clock) Pause() {
	c.mu.Lock()
	wasPlaying := c.playing
	if wasPlaying {
		c.pos = c.position()
		c.playing = false
	}
	stop, done := c.stop, c.done
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if wasPlaying {
		c.logger.Debug().Float64("at", c.CurrentTime()).Msg("pause")
	}
}

// Close stops the clock goroutine. The clock cannot be restarted.
func (c *Clock) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.Pause()
}

func (c *Clock) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.stop != stop {
				c.mu.Unlock()
				return
			}
			pos := c.position()
			ended := !c.playing
			fn := c.onTick
			c.mu.Unlock()

			if fn != nil {
				fn(pos)
			}
			if ended {
				c.logger.Debug().Msg("reached end of media")
				return
			}
		}
	}
}

// position folds elapsed wall time into pos and stops at the end.
// Caller holds mu.
func (c *Clock) position() float64 {
	if !c.playing {
		return c.pos
	}
	now := c.now()
	c.pos = math.Min(c.pos+now.Sub(c.anchor).Seconds(), c.duration)
	c.anchor = now
	if c.pos >= c.duration {
		c.playing = false
	}
	return c.pos
}
