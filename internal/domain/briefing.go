package domain

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TextGenerator is the external language model that phrases a
// conversational briefing from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var tomorrowMarker = regexp.MustCompile(`(?i)TOMORROW:\s*`)

// SplitGeneratedBrief separates generated text into the main brief and the
// tomorrow sentence at the first case-insensitive "TOMORROW:" marker.
func SplitGeneratedBrief(text string) (brief, tomorrow string) {
	parts := tomorrowMarker.Split(text, 3)
	brief = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		tomorrow = strings.TrimSpace(parts[1])
	}
	return brief, tomorrow
}

// BriefingInput carries everything the prompt needs beyond the snapshot.
type BriefingInput struct {
	Snapshot     ForecastSnapshot
	LocationName string
	Now          time.Time
}

// precipOutlookHours is how many upcoming hourly probabilities go into the prompt.
const precipOutlookHours = 6

const briefingInstructions = `You are a friendly, conversational weather briefer for a personal weather app called "My Weather." Write a brief weather summary based on this data.

Rules:
- Write 2-4 sentences for the main brief
- Be conversational and human, like a helpful friend, not a meteorologist
- Lead with what matters most right now (rain coming? dangerously hot? perfect day?)
- Include practical advice when relevant (umbrella, sunscreen, jacket, etc.)
- Don't just list numbers; interpret them for the person
- No greeting or sign-off, just the brief
- Use plain language, no jargon
- Be concise but warm

Important context for interpreting moisture:
- USE DEW POINT, not humidity, to judge how the air feels. Humidity percentage is misleading without temperature context.
- High humidity (90%+) at cold temps (below 50°F) is normal and NOT sticky/muggy; it just means damp, raw cold air. Don't call it "sticky."
- Dew point below 50°F = comfortable. 50-60°F = noticeable. 60-65°F = muggy. 65-70°F = very uncomfortable. Above 70°F = dangerous, your body can't cool itself.
- Only mention humidity/moisture if the dew point is actually high enough to affect comfort (above 55°F).

Then on a new line starting with "TOMORROW:" write one sentence about tomorrow.

Weather data:
`

// TimeOfDay names the part of the day for the prompt.
func TimeOfDay(hour int) string {
	switch {
	case hour < morningEndsHour:
		return "morning"
	case hour < afternoonEndsHour:
		return "afternoon"
	default:
		return "evening"
	}
}

// BriefingPrompt renders the fixed instructions followed by the structured
// weather context block.
func BriefingPrompt(in BriefingInput) string {
	s := in.Snapshot
	c := s.Current
	now := s.local(in.Now)
	info := LookupWeatherCode(c.WeatherCode, c.IsDaytime)
	dew := ResolveDewPoint(c)

	var b strings.Builder
	b.WriteString(briefingInstructions)
	fmt.Fprintf(&b, "Location: %s\n", in.LocationName)
	fmt.Fprintf(&b, "Time of day: %s\n", TimeOfDay(now.Hour()))
	fmt.Fprintf(&b, "Current temp: %d°F (feels like %d°F)\n", roundInt(c.Temperature), roundInt(c.FeelsLikeTemperature))
	fmt.Fprintf(&b, "Conditions: %s\n", info.Label)
	fmt.Fprintf(&b, "Wind: %s %d mph, gusts %d mph\n", CompassDirection(c.WindDirectionDegrees), roundInt(c.WindSpeed), roundInt(c.WindGustSpeed))
	fmt.Fprintf(&b, "Humidity: %d%%\n", c.HumidityPercent)
	fmt.Fprintf(&b, "Dew point: %d°F\n", dew.Value)
	fmt.Fprintf(&b, "Cloud cover: %d%%\n", c.CloudCoverPercent)
	fmt.Fprintf(&b, "UV index max today: %d\n\n", roundInt(s.TodayUVMax()))

	if today, ok := s.Today(); ok {
		fmt.Fprintf(&b, "Today: High %s°F, Low %s°F\n", formatTemp(today.High), formatTemp(today.Low))
		fmt.Fprintf(&b, "Precipitation chance today: %d%%\n\n", today.PrecipitationProbabilityMaxPercent)
	}
	if tomorrow, ok := s.Tomorrow(); ok {
		fmt.Fprintf(&b, "Tomorrow: %s, High %s°F / Low %s°F\n", LookupWeatherCode(tomorrow.WeatherCode, true).Label, formatTemp(tomorrow.High), formatTemp(tomorrow.Low))
		fmt.Fprintf(&b, "Tomorrow precipitation chance: %d%%\n\n", tomorrow.PrecipitationProbabilityMaxPercent)
	} else {
		b.WriteString("Tomorrow: not yet available\n\n")
	}

	probs := make([]string, 0, precipOutlookHours)
	for _, h := range upcomingHours(s, in.Now) {
		if len(probs) == precipOutlookHours {
			break
		}
		probs = append(probs, fmt.Sprintf("%d%%", h.PrecipitationProbabilityPercent))
	}
	fmt.Fprintf(&b, "Next few hours precipitation probability: %s\n\n", strings.Join(probs, ", "))

	if today, ok := s.Today(); ok {
		fmt.Fprintf(&b, "Sunrise: %s\n", formatClock(s.local(today.Sunrise)))
		fmt.Fprintf(&b, "Sunset: %s\n", formatClock(s.local(today.Sunset)))
	}
	return b.String()
}

func formatTemp(v *float64) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%d", roundInt(*v))
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("3:04 PM")
}
