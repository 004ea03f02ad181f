package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Narrative is the set of derived strings regenerated for every snapshot.
type Narrative struct {
	Short    string `json:"short_brief"`
	Full     string `json:"full_brief"`
	Tomorrow string `json:"tomorrow_brief"`
}

// TomorrowUnavailable is the fixed sentence used when day-offset 1 has no high/low.
const TomorrowUnavailable = "Tomorrow's forecast is not yet available."

const (
	lookAhead           = 12 * time.Hour
	wetProbability      = 50
	clearProbability    = 20
	heavyWetHours       = 4
	wetWindowHours      = 2
	feelsLikeGap        = 5
	strongGustMph       = 30
	windyMph            = 20
	breezyMph           = 12
	uvMandatory         = 8
	uvSuggested         = 6
	muggyDewPoint       = 65
	stickyDewPoint      = 55
	veryDryHumidity     = 30
	dryHumidity         = 45
	morningEndsHour     = 12
	afternoonEndsHour   = 17
	highStillAheadHour  = 14
	tomorrowUrgentPct   = 60
	tomorrowPossiblePct = 30
)

// Narrate derives all three briefs using the package clock.
func Narrate(s ForecastSnapshot) Narrative {
	now := clock.Now()
	return Narrative{
		Short:    ShortBrief(s, now),
		Full:     FullBrief(s, now),
		Tomorrow: TomorrowBrief(s),
	}
}

// upcomingHours returns the hourly entries strictly inside (now, now+12h).
func upcomingHours(s ForecastSnapshot, now time.Time) []HourlyForecast {
	end := now.Add(lookAhead)
	var out []HourlyForecast
	for _, h := range s.Hourly {
		if h.Time.After(now) && h.Time.Before(end) {
			out = append(out, h)
		}
	}
	return out
}

func wetHours(hours []HourlyForecast) []HourlyForecast {
	var out []HourlyForecast
	for _, h := range hours {
		if h.PrecipitationProbabilityPercent > wetProbability {
			out = append(out, h)
		}
	}
	return out
}

func feelsLikeDiffers(temp, feelsLike int) bool {
	d := temp - feelsLike
	if d < 0 {
		d = -d
	}
	return d >= feelsLikeGap
}

// ShortBrief is the two-sentence summary: conditions and range, then the
// single most important action.
func ShortBrief(s ForecastSnapshot, now time.Time) string {
	c := s.Current
	temp := roundInt(c.Temperature)
	feelsLike := roundInt(c.FeelsLikeTemperature)
	info := LookupWeatherCode(c.WeatherCode, c.IsDaytime)

	var b strings.Builder
	fmt.Fprintf(&b, "%d°", temp)
	if feelsLikeDiffers(temp, feelsLike) {
		fmt.Fprintf(&b, " (feels %d°)", feelsLike)
	}
	fmt.Fprintf(&b, ", %s.", strings.ToLower(info.Label))
	if today, ok := s.Today(); ok && today.High != nil && today.Low != nil {
		fmt.Fprintf(&b, " High %d°, low %d°.", roundInt(*today.High), roundInt(*today.Low))
	}

	b.WriteString(" ")
	b.WriteString(actionLine(s, now))
	return b.String()
}

// actionLine picks the first matching rule in priority order.
func actionLine(s ForecastSnapshot, now time.Time) string {
	c := s.Current
	wet := len(wetHours(upcomingHours(s, now)))
	snowy := IsSnowCode(c.WeatherCode)
	gust := roundInt(c.WindGustSpeed)

	switch {
	case wet >= heavyWetHours && snowy:
		return "Snow much of the day — drive carefully."
	case wet >= heavyWetHours:
		return "Rain much of the day — grab an umbrella."
	case wet >= 1 && snowy:
		return "Some snow expected — heads up."
	case wet >= 1:
		return "Rain possible — umbrella wouldn't hurt."
	case gust > strongGustMph:
		return fmt.Sprintf("Gusty winds up to %d mph.", gust)
	case roundInt(s.TodayUVMax()) >= uvMandatory:
		return "High UV — wear sunscreen."
	case ResolveDewPoint(c).Value >= muggyDewPoint:
		return "Muggy out there. Stay cool."
	default:
		return "Nothing to worry about — enjoy your day."
	}
}

// FullBrief is the multi-sentence conversational summary. Clauses are
// appended in a fixed order and joined by single spaces.
func FullBrief(s ForecastSnapshot, now time.Time) string {
	now = s.local(now)
	hour := now.Hour()
	c := s.Current
	temp := roundInt(c.Temperature)
	feelsLike := roundInt(c.FeelsLikeTemperature)
	info := LookupWeatherCode(c.WeatherCode, c.IsDaytime)

	parts := make([]string, 0, 6)
	parts = append(parts, greetingClause(hour, temp, feelsLike, info.Label))

	if today, ok := s.Today(); ok && today.High != nil && today.Low != nil {
		high, low := roundInt(*today.High), roundInt(*today.Low)
		if hour < highStillAheadHour {
			parts = append(parts, fmt.Sprintf("Heading to a high of %d° this afternoon, dropping to %d° tonight.", high, low))
		} else {
			parts = append(parts, fmt.Sprintf("We hit %d° today and we'll drop to %d° overnight.", high, low))
		}
	}

	for _, clause := range []string{
		windClause(roundInt(c.WindSpeed), roundInt(c.WindGustSpeed)),
		precipitationClause(s, now),
		uvClause(roundInt(s.TodayUVMax())),
		moistureClause(ResolveDewPoint(c), c.HumidityPercent),
	} {
		if clause != "" {
			parts = append(parts, clause)
		}
	}

	return strings.Join(parts, " ")
}

func greetingClause(hour, temp, feelsLike int, label string) string {
	var g string
	switch {
	case hour < morningEndsHour:
		g = fmt.Sprintf("Good morning. It's %d° right now", temp)
	case hour < afternoonEndsHour:
		g = fmt.Sprintf("Right now it's %d°", temp)
	default:
		g = fmt.Sprintf("This evening it's %d°", temp)
	}
	if feelsLikeDiffers(temp, feelsLike) {
		g += fmt.Sprintf(", but feels more like %d°", feelsLike)
	}
	return g + ". " + label + "."
}

func windClause(wind, gust int) string {
	switch {
	case gust > strongGustMph:
		return fmt.Sprintf("It's gusty out there — wind gusting to %d mph. Hold onto your hat.", gust)
	case wind > windyMph:
		return fmt.Sprintf("Windy at %d mph with gusts to %d. You'll feel it.", wind, gust)
	case wind > breezyMph:
		return fmt.Sprintf("There's a noticeable breeze at %d mph.", wind)
	default:
		return ""
	}
}

// precipitationClause expects now already converted to the forecast zone.
// Zero wet hours with a window maximum between 20% and 50% emits nothing.
func precipitationClause(s ForecastSnapshot, now time.Time) string {
	upcoming := upcomingHours(s, now)
	wet := wetHours(upcoming)
	snowy := IsSnowCode(s.Current.WeatherCode)

	if len(wet) == 0 {
		maxProb := 0
		for _, h := range upcoming {
			maxProb = max(maxProb, h.PrecipitationProbabilityPercent)
		}
		if maxProb < clearProbability {
			if snowy {
				return "No snow in sight — you're clear."
			}
			return "No rain in sight — you're clear."
		}
		return ""
	}

	at := ClockLabel(s.local(wet[0].Time).Hour())
	switch {
	case len(wet) >= heavyWetHours && snowy:
		return fmt.Sprintf("Snow is likely much of the day — starts around %s. Roads will be slick.", at)
	case len(wet) >= heavyWetHours:
		return fmt.Sprintf("Rain is likely much of the day — starts around %s. Bring an umbrella.", at)
	case len(wet) >= wetWindowHours && snowy:
		return fmt.Sprintf("There's a wet window coming around %s. Watch for accumulation.", at)
	case len(wet) >= wetWindowHours:
		return fmt.Sprintf("There's a wet window coming around %s. Umbrella's a good idea.", at)
	case snowy:
		return fmt.Sprintf("A brief flurry is possible around %s, but it shouldn't last.", at)
	default:
		return fmt.Sprintf("A brief shower is possible around %s, but it shouldn't last.", at)
	}
}

// ClockLabel renders an hour of day (0-23) on a 12-hour clock: "midnight",
// "noon", "3am", "7pm".
func ClockLabel(hour int) string {
	switch {
	case hour == 0:
		return "midnight"
	case hour == 12:
		return "noon"
	case hour > 12:
		return fmt.Sprintf("%dpm", hour-12)
	default:
		return fmt.Sprintf("%dam", hour)
	}
}

func uvClause(uv int) string {
	switch {
	case uv >= uvMandatory:
		return fmt.Sprintf("UV index peaks at %d — sunscreen is non-negotiable today.", uv)
	case uv >= uvSuggested:
		return fmt.Sprintf("UV gets up to %d this afternoon — consider sunscreen if you'll be out.", uv)
	default:
		return ""
	}
}

func moistureClause(dew DewPointReading, humidity int) string {
	switch {
	case dew.Value >= muggyDewPoint:
		return fmt.Sprintf("Dew point is %d° — %s. It's going to feel thick out there.", dew.Value, strings.ToLower(dew.Level().Label))
	case dew.Value >= stickyDewPoint:
		return fmt.Sprintf("Dew point is %d° — starting to feel sticky.", dew.Value)
	case humidity < veryDryHumidity:
		return fmt.Sprintf("Air is very dry today — %d%% humidity. Stay hydrated.", humidity)
	case humidity < dryHumidity:
		return fmt.Sprintf("Air is dry today — %d%% humidity with a dew point of %d°. Comfortable breathing weather.", humidity, dew.Value)
	default:
		return ""
	}
}

// TomorrowBrief summarises day-offset 1, or returns TomorrowUnavailable.
func TomorrowBrief(s ForecastSnapshot) string {
	d, ok := s.Tomorrow()
	if !ok {
		return TomorrowUnavailable
	}
	info := LookupWeatherCode(d.WeatherCode, true)
	summary := fmt.Sprintf("Tomorrow: %s, %d°/%d°.", info.Label, roundInt(*d.High), roundInt(*d.Low))

	p := d.PrecipitationProbabilityMaxPercent
	switch {
	case p > tomorrowUrgentPct:
		return summary + fmt.Sprintf(" %d%% chance of precipitation — plan accordingly.", p)
	case p > tomorrowPossiblePct:
		return summary + fmt.Sprintf(" Some chance of rain (%d%%).", p)
	default:
		return summary + " Looking dry."
	}
}

// outlookLead keeps the hour that is currently in progress in the outlook.
const outlookLead = 30 * time.Minute

// HourlyOutlook returns up to n hourly entries starting half an hour before now.
func HourlyOutlook(s ForecastSnapshot, now time.Time, n int) []HourlyForecast {
	from := now.Add(-outlookLead)
	out := make([]HourlyForecast, 0, n)
	for _, h := range s.Hourly {
		if len(out) == n {
			break
		}
		if !h.Time.Before(from) {
			out = append(out, h)
		}
	}
	return out
}

// TemperatureSpan is the scale used to draw multi-day high/low bars.
type TemperatureSpan struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

const spanPadding = 3

// TemperatureRange spans every daily low and high with a few degrees of
// padding. The zero span is returned when no day has both values.
func TemperatureRange(s ForecastSnapshot) TemperatureSpan {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range s.Daily {
		if d.Low != nil {
			lo = math.Min(lo, roundHalfUp(*d.Low))
		}
		if d.High != nil {
			hi = math.Max(hi, roundHalfUp(*d.High))
		}
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return TemperatureSpan{}
	}
	return TemperatureSpan{Min: int(lo) - spanPadding, Max: int(hi) + spanPadding}
}
