// Package radar drives radar frame playback over a MapRenderer.
package radar

import (
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultInterval is the auto-play advance period.
	DefaultInterval = 500 * time.Millisecond
	// ActiveOpacity is applied to the visible frame; all others are hidden.
	ActiveOpacity = 0.65
)

// State is the externally visible playback state.
type State struct {
	CurrentIndex int                `json:"current_index"`
	FrameCount   int                `json:"frame_count"`
	PastCount    int                `json:"past_count"`
	Playing      bool               `json:"playing"`
	Label        string             `json:"label"`
	Frame        *domain.RadarFrame `json:"frame,omitempty"`
}

// Controller owns the frame list, the selected frame and the auto-play
// ticker. It is safe for concurrent use.
type Controller struct {
	clock    clockwork.Clock
	renderer MapRenderer
	logger   *slog.Logger
	metrics  *observability.Metrics
	interval time.Duration

	mu        sync.Mutex
	frames    []domain.RadarFrame
	layers    []int
	pastCount int
	current   int
	ticker    clockwork.Ticker
	stop      chan struct{} // non-nil while playing
}

// NewController creates an empty, paused controller. A non-positive interval
// falls back to DefaultInterval.
func NewController(clock clockwork.Clock, renderer MapRenderer, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{
		clock:    clock,
		renderer: renderer,
		logger:   logger,
		metrics:  metrics,
		interval: interval,
	}
}

// Load replaces the frame list, stops playback, creates one hidden layer per
// frame and shows the most recent past frame.
func (c *Controller) Load(frames []domain.RadarFrame, pastCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.renderer.Reset()

	c.frames = append([]domain.RadarFrame{}, frames...)
	c.layers = make([]int, len(frames))
	for i, f := range c.frames {
		c.layers[i] = c.renderer.AddTileLayer(f.TileURLTemplate)
		c.renderer.SetOpacity(c.layers[i], 0)
	}
	c.pastCount = min(max(pastCount, 0), len(frames))
	c.current = 0
	c.metrics.RadarFrames.Set(float64(len(frames)))

	c.showFrameLocked(max(c.pastCount-1, 0))
	c.logger.Debug("radar frames loaded", "frames", len(frames), "past", c.pastCount)
}

// AddMarker pins a location on the map.
func (c *Controller) AddMarker(lat, lon float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderer.AddMarker(lat, lon)
}

// ShowFrame selects frame i. It reports false and changes nothing when no
// frames are loaded or i is out of range.
func (c *Controller) ShowFrame(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showFrameLocked(i)
}

func (c *Controller) showFrameLocked(i int) bool {
	if len(c.frames) == 0 || i < 0 || i >= len(c.frames) {
		return false
	}
	for j, layer := range c.layers {
		if j == i {
			c.renderer.SetOpacity(layer, ActiveOpacity)
		} else {
			c.renderer.SetOpacity(layer, 0)
		}
	}
	c.current = i
	return true
}

// TogglePlay starts or stops auto-play and returns whether playback is now
// running. It does nothing on an empty controller.
func (c *Controller) TogglePlay() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		c.stopLocked()
		return false
	}
	if len(c.frames) == 0 {
		return false
	}

	c.ticker = c.clock.NewTicker(c.interval)
	c.stop = make(chan struct{})
	c.metrics.RadarPlaying.Set(1)
	go c.run(c.ticker, c.stop)
	return true
}

// run advances one frame per tick until stop is closed.
func (c *Controller) run(t clockwork.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-t.Chan():
			c.advance(stop)
		}
	}
}

func (c *Controller) advance(stop <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A tick that raced with a pause belongs to a ticker that no longer exists.
	if c.stop == nil || c.stop != stop {
		return
	}
	c.showFrameLocked((c.current + 1) % len(c.frames))
}

func (c *Controller) stopLocked() {
	if c.stop == nil {
		return
	}
	c.ticker.Stop()
	close(c.stop)
	c.ticker = nil
	c.stop = nil
	c.metrics.RadarPlaying.Set(0)
}

// StepForward pauses playback and moves one frame ahead, stopping at the last.
func (c *Controller) StepForward() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return
	}
	c.stopLocked()
	c.showFrameLocked(min(c.current+1, len(c.frames)-1))
}

// StepBackward pauses playback and moves one frame back, stopping at the first.
func (c *Controller) StepBackward() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return
	}
	c.stopLocked()
	c.showFrameLocked(max(c.current-1, 0))
}

// State reports the playback state with the current frame labelled relative to now.
func (c *Controller) State(now time.Time) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked(now)
}

// View reports State together with a snapshot of layers taken under the same
// lock, so an auto-play tick cannot land between the two.
func (c *Controller) View(now time.Time, layers *LayerSet) (State, LayerSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked(now), layers.Snapshot()
}

func (c *Controller) stateLocked(now time.Time) State {
	st := State{
		CurrentIndex: c.current,
		FrameCount:   len(c.frames),
		PastCount:    c.pastCount,
		Playing:      c.stop != nil,
	}
	if len(c.frames) > 0 {
		f := c.frames[c.current]
		st.Frame = &f
		st.Label = domain.RelativeFrameLabel(f.Time, now)
	}
	return st
}

// Close stops playback. The controller can be loaded again afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}
