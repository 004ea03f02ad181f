package domain

import (
	"fmt"
	"math"
	"time"
)

// RadarFrame is one radar image in the playback sequence.
type RadarFrame struct {
	Time            time.Time `json:"time"`
	TileURLTemplate string    `json:"tile_url_template"` // contains {z}/{x}/{y}
}

// RadarIndex is the frame sequence offered by the radar tile service:
// historical frames followed by nowcast frames, in time order.
type RadarIndex struct {
	Past    []RadarFrame
	Nowcast []RadarFrame
}

// Frames returns past and nowcast frames as one ordered slice.
func (i RadarIndex) Frames() []RadarFrame {
	out := make([]RadarFrame, 0, len(i.Past)+len(i.Nowcast))
	out = append(out, i.Past...)
	return append(out, i.Nowcast...)
}

// RelativeFrameLabel describes a frame time relative to now: "Now",
// "in 20m", "in 2h", "15m ago" or "1h 5m ago".
func RelativeFrameLabel(frame, now time.Time) string {
	diffMin := int(math.Floor(now.Sub(frame).Minutes() + 0.5))

	if diffMin <= 0 {
		ahead := -diffMin
		switch {
		case ahead == 0:
			return "Now"
		case ahead < 60:
			return fmt.Sprintf("in %dm", ahead)
		default:
			return fmt.Sprintf("in %dh", ahead/60)
		}
	}
	if diffMin < 60 {
		return fmt.Sprintf("%dm ago", diffMin)
	}
	return fmt.Sprintf("%dh %dm ago", diffMin/60, diffMin%60)
}
