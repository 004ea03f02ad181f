// Package domain holds the deterministic core of the weather brief service:
// forecast snapshot types, the WMO weather-code table, dew point comfort
// classification, and the narrative rules that turn raw numbers into briefs.
//
// # Units
//
// Every temperature is Fahrenheit, every speed is miles per hour and every
// probability is an integer percent. Values are rounded half-up before they
// are compared against thresholds or printed, so 64.5°F reads as 65°.
//
// # Weather codes
//
// Codes follow the WMO 4677 subset used by Open-Meteo:
//
//	0-3    clear to overcast
//	45,48  fog
//	51-57  drizzle (56,57 freezing)
//	61-67  rain (66,67 freezing)
//	71-77  snow and snow grains
//	80-82  rain showers
//	85,86  snow showers
//	95-99  thunderstorms
//
// The snow set {71,73,75,77,85,86} switches brief vocabulary from rain to
// snow. Unknown codes render as "Unknown" rather than failing.
//
// # Dew point
//
// Dew point, not relative humidity, decides how muggy the air feels. Tiers:
//
//	<=30 bone dry | <=40 dry | <=50 comfortable | <=55 starting to notice
//	<=60 sticky   | <=65 muggy | <=70 oppressive | <=75 dangerous | above: extreme danger
//
// When the model omits a dew point it is estimated from temperature and
// humidity with the Magnus approximation (a=17.27, b=237.7).
//
// # Look-ahead window
//
// Precipitation rules inspect hourly entries strictly inside (now, now+12h).
// An hour is "wet" when its probability exceeds 50%.
package domain
