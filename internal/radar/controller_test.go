package radar

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC)

func testFrames(past, nowcast int) []domain.RadarFrame {
	frames := make([]domain.RadarFrame, 0, past+nowcast)
	for i := past; i > 0; i-- {
		frames = append(frames, domain.RadarFrame{
			Time:            baseTime.Add(-time.Duration(i-1) * 10 * time.Minute),
			TileURLTemplate: fmt.Sprintf("https://tiles.example/past/%d/{z}/{x}/{y}.webp", i),
		})
	}
	for i := 1; i <= nowcast; i++ {
		frames = append(frames, domain.RadarFrame{
			Time:            baseTime.Add(time.Duration(i) * 10 * time.Minute),
			TileURLTemplate: fmt.Sprintf("https://tiles.example/nowcast/%d/{z}/{x}/{y}.webp", i),
		})
	}
	return frames
}

type fixture struct {
	clock   *clockwork.FakeClock
	layers  *LayerSet
	metrics *observability.Metrics
	ctrl    *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:   clockwork.NewFakeClockAt(baseTime),
		layers:  NewLayerSet(),
		metrics: observability.NewMetricsForTesting(),
	}
	f.ctrl = NewController(f.clock, f.layers, slog.New(slog.NewTextHandler(io.Discard, nil)), f.metrics, 0)
	t.Cleanup(f.ctrl.Close)
	return f
}

func (f *fixture) current() int {
	return f.ctrl.State(baseTime).CurrentIndex
}

// assertSingleActive checks that exactly the layer at index is visible.
func assertSingleActive(t *testing.T, layers *LayerSet, index int) {
	t.Helper()
	snap := layers.Snapshot()
	for i, l := range snap.Layers {
		if i == index {
			assert.Equal(t, ActiveOpacity, l.Opacity, "layer %d", i)
		} else {
			assert.Zero(t, l.Opacity, "layer %d", i)
		}
	}
}

func TestLoad_StartsAtLastPastFrame(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Load(testFrames(3, 2), 3)

	st := f.ctrl.State(baseTime)
	assert.Equal(t, 2, st.CurrentIndex)
	assert.Equal(t, 5, st.FrameCount)
	assert.Equal(t, 3, st.PastCount)
	assert.False(t, st.Playing)
	assert.Equal(t, "Now", st.Label)
	require.NotNil(t, st.Frame)
	assert.Equal(t, baseTime, st.Frame.Time)

	assert.Len(t, f.layers.Snapshot().Layers, 5)
	assertSingleActive(t, f.layers, 2)
	assert.Equal(t, 5.0, testutil.ToFloat64(f.metrics.RadarFrames))
}

func TestLoad_NoPastFramesStartsAtZero(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Load(testFrames(0, 3), 0)

	assert.Equal(t, 0, f.current())
	assertSingleActive(t, f.layers, 0)
	assert.Equal(t, "in 10m", f.ctrl.State(baseTime).Label)
}

func TestLoad_ReplacesPreviousLayers(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Load(testFrames(4, 0), 4)
	f.ctrl.AddMarker(37.68, -77.9)

	f.ctrl.Load(testFrames(2, 0), 2)

	snap := f.layers.Snapshot()
	assert.Len(t, snap.Layers, 2)
	assert.Empty(t, snap.Markers)
	assertSingleActive(t, f.layers, 1)
}

func TestEmptyController_IsNoOp(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Load(nil, 0)

	assert.False(t, f.ctrl.ShowFrame(0))
	assert.False(t, f.ctrl.TogglePlay())
	f.ctrl.StepForward()
	f.ctrl.StepBackward()

	st := f.ctrl.State(baseTime)
	assert.Equal(t, State{}, st)
}

func TestShowFrame_RejectsOutOfRange(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Load(testFrames(3, 0), 3)

	assert.False(t, f.ctrl.ShowFrame(-1))
	assert.False(t, f.ctrl.ShowFrame(3))
	assert.Equal(t, 2, f.current())
	assertSingleActive(t, f.layers, 2)

	assert.True(t, f.ctrl.ShowFrame(0))
	assert.Equal(t, 0, f.current())
	assertSingleActive(t, f.layers, 0)
	assert.Equal(t, "20m ago", f.ctrl.State(baseTime).Label)
}

func TestStep_Clamps(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Load(testFrames(2, 1), 2)

	f.ctrl.StepForward()
	assert.Equal(t, 2, f.current())
	f.ctrl.StepForward()
	assert.Equal(t, 2, f.current(), "forward clamps at the last frame")

	f.ctrl.StepBackward()
	f.ctrl.StepBackward()
	f.ctrl.StepBackward()
	assert.Equal(t, 0, f.current(), "backward clamps at the first frame")
	assertSingleActive(t, f.layers, 0)
}

func TestTogglePlay_AdvancesAndWraps(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Load(testFrames(3, 0), 3)

	require.True(t, f.ctrl.TogglePlay())
	assert.True(t, f.ctrl.State(baseTime).Playing)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RadarPlaying))

	f.clock.Advance(DefaultInterval)
	require.Eventually(t, func() bool { return f.current() == 0 }, time.Second, 5*time.Millisecond, "wraps to the first frame")

	f.clock.Advance(DefaultInterval)
	require.Eventually(t, func() bool { return f.current() == 1 }, time.Second, 5*time.Millisecond)
	assertSingleActive(t, f.layers, 1)
}

func TestTogglePlay_PauseStopsTicks(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Load(testFrames(3, 0), 3)

	require.True(t, f.ctrl.TogglePlay())
	require.False(t, f.ctrl.TogglePlay())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.RadarPlaying))

	f.clock.Advance(5 * DefaultInterval)
	assert.Never(t, func() bool { return f.current() != 2 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestStep_PausesPlayback(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Load(testFrames(3, 0), 3)
	require.True(t, f.ctrl.TogglePlay())

	f.ctrl.StepBackward()
	st := f.ctrl.State(baseTime)
	assert.False(t, st.Playing)
	assert.Equal(t, 1, st.CurrentIndex)

	f.clock.Advance(3 * DefaultInterval)
	assert.Never(t, func() bool { return f.current() != 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestLoad_StopsPlayback(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Load(testFrames(3, 0), 3)
	require.True(t, f.ctrl.TogglePlay())

	f.ctrl.Load(testFrames(2, 0), 2)
	assert.False(t, f.ctrl.State(baseTime).Playing)

	f.clock.Advance(DefaultInterval)
	assert.Never(t, func() bool { return f.current() != 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestClose_StopsPlayback(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Load(testFrames(2, 0), 2)
	require.True(t, f.ctrl.TogglePlay())

	f.ctrl.Close()
	assert.False(t, f.ctrl.State(baseTime).Playing)
}

func TestNewController_CustomInterval(t *testing.T) {
	clock := clockwork.NewFakeClockAt(baseTime)
	ctrl := NewController(clock, NewLayerSet(), slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting(), time.Second)
	defer ctrl.Close()
	ctrl.Load(testFrames(2, 0), 2)
	require.True(t, ctrl.TogglePlay())

	clock.Advance(DefaultInterval)
	assert.Never(t, func() bool { return ctrl.State(baseTime).CurrentIndex != 1 }, 30*time.Millisecond, 5*time.Millisecond)

	clock.Advance(DefaultInterval)
	require.Eventually(t, func() bool { return ctrl.State(baseTime).CurrentIndex == 0 }, time.Second, 5*time.Millisecond)
}

func TestLayerSet_IgnoresUnknownLayer(t *testing.T) {
	s := NewLayerSet()
	id := s.AddTileLayer("a")
	s.SetOpacity(id+5, 1)
	s.SetOpacity(id, 0.3)

	assert.Equal(t, []Layer{{URLTemplate: "a", Opacity: 0.3}}, s.Snapshot().Layers)
}

func TestView_StateMatchesLayersDuringPlayback(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Load(testFrames(4, 2), 4)
	require.True(t, f.ctrl.TogglePlay())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 200 {
			f.clock.Advance(DefaultInterval)
		}
	}()

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		st, snap := f.ctrl.View(baseTime, f.layers)
		require.Len(t, snap.Layers, 6)
		for i, l := range snap.Layers {
			if i == st.CurrentIndex {
				require.Equal(t, ActiveOpacity, l.Opacity, "current layer %d", i)
			} else {
				require.Zero(t, l.Opacity, "layer %d while current is %d", i, st.CurrentIndex)
			}
		}
	}
}
