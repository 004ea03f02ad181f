package domain

import "math"

// DewPointLevel is one comfort tier. UpperBound is inclusive; nil marks the
// open-ended top tier.
type DewPointLevel struct {
	UpperBound  *float64 `json:"upper_bound"`
	Label       string   `json:"label"`
	Color       string   `json:"color"`
	Description string   `json:"description"`
}

func bound(v float64) *float64 { return &v }

// dewPointLevels is sorted ascending by UpperBound and contiguous.
var dewPointLevels = []DewPointLevel{
	{bound(30), "Bone dry", "#8ecae6", "Very dry air. May cause dry skin, chapped lips, and static. Consider a humidifier indoors."},
	{bound(40), "Dry", "#95d5b2", "Comfortably dry. Pleasant air, no moisture issues."},
	{bound(50), "Comfortable", "#52b788", "The sweet spot. Most people feel great in this range."},
	{bound(55), "Starting to notice", "#e9c46a", "You can start to feel moisture in the air. Still fine for most people."},
	{bound(60), "Sticky", "#f4a261", "Noticeably humid. Outdoor activity starts feeling heavier. Sweat doesn't evaporate as easily."},
	{bound(65), "Muggy", "#e76f51", "Uncomfortable for most people. You'll feel sticky. AC makes a big difference."},
	{bound(70), "Oppressive", "#d62828", "Very uncomfortable. Sweat won't evaporate well. Heat exhaustion risk increases with activity."},
	{bound(75), "Dangerous", "#9d0208", "Your body cannot cool itself efficiently. Heat illness is a real risk, especially for children, elderly, and anyone exerting themselves outdoors. Limit time outside."},
	{nil, "Extreme danger", "#6a040f", "Potentially life-threatening conditions. Heatstroke risk is high even with limited activity. Stay indoors in AC. Check on elderly neighbors. This is a medical emergency waiting to happen."},
}

// DewPointLevels returns a copy of the ordered tier table for legend views.
func DewPointLevels() []DewPointLevel {
	out := make([]DewPointLevel, len(dewPointLevels))
	copy(out, dewPointLevels)
	return out
}

// ClassifyDewPoint returns the first tier whose upper bound is at or above
// dewF. NaN and anything past the last finite bound land in the top tier.
func ClassifyDewPoint(dewF float64) DewPointLevel {
	for _, l := range dewPointLevels {
		if l.UpperBound == nil || dewF <= *l.UpperBound {
			return l
		}
	}
	return dewPointLevels[len(dewPointLevels)-1]
}

const (
	magnusA = 17.27
	magnusB = 237.7
)

// EstimateDewPoint approximates the dew point in °F from air temperature (°F)
// and relative humidity (%) using the Magnus formula.
func EstimateDewPoint(tempF, relativeHumidityPercent float64) int {
	rh := relativeHumidityPercent
	if rh <= 0 {
		rh = 1
	}
	tempC := (tempF - 32) * 5 / 9
	alpha := (magnusA*tempC)/(magnusB+tempC) + math.Log(rh/100)
	dewC := (magnusB * alpha) / (magnusA - alpha)
	return roundInt(dewC*9/5 + 32)
}

// DewPointReading is the dew point used for narratives, along with whether
// it had to be estimated.
type DewPointReading struct {
	Value     int  `json:"value"`
	Estimated bool `json:"estimated"`
}

// ResolveDewPoint prefers the model's dew point and estimates one from the
// rounded temperature and humidity only when it is missing.
func ResolveDewPoint(c CurrentConditions) DewPointReading {
	if c.DewPointTemperature != nil {
		return DewPointReading{Value: roundInt(*c.DewPointTemperature)}
	}
	return DewPointReading{
		Value:     EstimateDewPoint(roundHalfUp(c.Temperature), float64(c.HumidityPercent)),
		Estimated: true,
	}
}

// fogSpread is the temperature/dew point gap at which condensation is expected.
const fogSpread = 3

// FogLikely reports whether the dew point sits within a few degrees of tempF.
func (r DewPointReading) FogLikely(tempF float64) bool {
	return roundInt(tempF)-r.Value <= fogSpread
}

// Level classifies the reading.
func (r DewPointReading) Level() DewPointLevel {
	return ClassifyDewPoint(float64(r.Value))
}
