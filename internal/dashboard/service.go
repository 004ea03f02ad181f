// Package dashboard assembles everything the weather dashboard shows: the
// resolved place, forecast, derived briefs, alerts, radar playback and the
// optional model-written briefing.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/observability"
	"github.com/couchcryptid/weather-brief-service/internal/radar"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrForecastUnavailable means the forecast fetch failed; nothing can be shown.
	ErrForecastUnavailable = errors.New("could not load weather data")
	// ErrBriefingUnavailable means no text generator is configured.
	ErrBriefingUnavailable = errors.New("briefing generator not configured")
	// ErrRadarUnavailable means the radar frame index could not be fetched.
	ErrRadarUnavailable = errors.New("could not load radar frames")
)

// hourlyOutlookLen is how many hourly entries the dashboard shows.
const hourlyOutlookLen = 24

// ForecastFetcher retrieves a forecast snapshot for a coordinate.
type ForecastFetcher interface {
	Forecast(ctx context.Context, lat, lon float64) (domain.ForecastSnapshot, error)
}

// AlertFetcher retrieves active weather alerts for a coordinate.
type AlertFetcher interface {
	ActiveAlerts(ctx context.Context, lat, lon float64) ([]domain.Alert, error)
}

// RadarSource retrieves the current radar frame index.
type RadarSource interface {
	Frames(ctx context.Context) (domain.RadarIndex, error)
}

// Deps are the collaborators of a Service. Generator and Publisher are
// optional; every other field is required.
type Deps struct {
	Forecast    ForecastFetcher
	Geocoder    domain.Geocoder
	Alerts      AlertFetcher
	Radar       RadarSource
	Generator   domain.TextGenerator
	Publisher   domain.BriefingPublisher
	Preferences domain.PreferenceStore
	Location    domain.LocationProvider
	Default     domain.Place

	Controller *radar.Controller
	Layers     *radar.LayerSet

	Clock   clockwork.Clock
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Service orchestrates data acquisition and derivation for the dashboard.
type Service struct {
	Deps
}

// New creates a Service. A nil clock uses real time.
func New(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	return &Service{Deps: d}
}

// AlertView is an alert with its banner colour.
type AlertView struct {
	domain.Alert
	Color string `json:"color"`
}

// Settings are the persisted display preferences applied to the payload.
type Settings struct {
	FontSize  string  `json:"font_size"`
	FontScale float64 `json:"font_scale"`
	BriefMode string  `json:"brief_mode"`
}

// Dashboard is the full payload rendered by the presentation layer.
type Dashboard struct {
	Location         domain.Place             `json:"location"`
	Current          domain.CurrentConditions `json:"current"`
	Weather          domain.WeatherInfo       `json:"weather"`
	Condition        string                   `json:"condition"`
	WindDirection    string                   `json:"wind_direction"`
	DewPoint         domain.DewPointReading   `json:"dew_point"`
	DewPointLevel    domain.DewPointLevel     `json:"dew_point_level"`
	FogLikely        bool                     `json:"fog_likely"`
	Narrative        domain.Narrative         `json:"narrative"`
	Hourly           []domain.HourlyForecast  `json:"hourly"`
	Daily            []domain.DailyForecast   `json:"daily"`
	TemperatureRange domain.TemperatureSpan   `json:"temperature_range"`
	Alerts           []AlertView              `json:"alerts"`
	Settings         Settings                 `json:"settings"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

// Dashboard fetches and derives the dashboard for coords, or for the
// provider's current position when coords is nil.
func (s *Service) Dashboard(ctx context.Context, coords *domain.Coordinates) (Dashboard, error) {
	place, needsName := s.resolveLocation(ctx, coords)

	snap, alerts, err := s.acquire(ctx, &place, needsName)
	if err != nil {
		return Dashboard{}, err
	}

	now := s.Clock.Now()
	narrative := domain.Narrative{
		Short:    domain.ShortBrief(snap, now),
		Full:     domain.FullBrief(snap, now),
		Tomorrow: domain.TomorrowBrief(snap),
	}
	s.Metrics.BriefsGenerated.WithLabelValues(domain.BriefKindRules).Inc()

	dew := domain.ResolveDewPoint(snap.Current)
	views := make([]AlertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, AlertView{Alert: a, Color: a.SeverityColor()})
	}

	d := Dashboard{
		Location:         place,
		Current:          snap.Current,
		Weather:          domain.LookupWeatherCode(snap.Current.WeatherCode, snap.Current.IsDaytime),
		Condition:        domain.ConditionCategory(snap.Current.WeatherCode),
		WindDirection:    domain.CompassDirection(snap.Current.WindDirectionDegrees),
		DewPoint:         dew,
		DewPointLevel:    dew.Level(),
		FogLikely:        dew.FogLikely(snap.Current.Temperature),
		Narrative:        narrative,
		Hourly:           domain.HourlyOutlook(snap, now, hourlyOutlookLen),
		Daily:            snap.Daily,
		TemperatureRange: domain.TemperatureRange(snap),
		Alerts:           views,
		Settings:         s.settings(ctx),
		GeneratedAt:      now,
	}

	s.publish(ctx, domain.BriefingEvent{
		Kind:          domain.BriefKindRules,
		Location:      place,
		Condition:     d.Condition,
		ShortBrief:    narrative.Short,
		FullBrief:     narrative.Full,
		TomorrowBrief: narrative.Tomorrow,
		GeneratedAt:   now,
	})
	return d, nil
}

// resolveLocation picks the coordinates to use. It reports whether the place
// still needs a name from the geocoder.
func (s *Service) resolveLocation(ctx context.Context, coords *domain.Coordinates) (domain.Place, bool) {
	if coords != nil {
		return domain.Place{Coordinates: *coords, Name: s.Default.Name}, true
	}
	pos, err := s.Location.CurrentPosition(ctx)
	if err != nil {
		s.Logger.Warn("current position unavailable, using default location",
			"error", err, "location", s.Default.Name)
		return s.Default, false
	}
	return domain.Place{Coordinates: pos, Name: s.Default.Name}, true
}

// acquire fetches the forecast, place name and alerts concurrently. Only a
// forecast failure is returned; the others degrade to defaults.
func (s *Service) acquire(ctx context.Context, place *domain.Place, needsName bool) (domain.ForecastSnapshot, []domain.Alert, error) {
	var (
		snap   domain.ForecastSnapshot
		alerts []domain.Alert
	)
	lat, lon := place.Lat, place.Lon

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = s.Forecast.Forecast(gctx, lat, lon)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrForecastUnavailable, err)
		}
		return nil
	})
	if needsName {
		g.Go(func() error {
			addr, err := s.Geocoder.ReverseGeocode(gctx, lat, lon)
			if err != nil {
				s.Logger.Warn("reverse geocode failed, using default name",
					"error", err, "lat", lat, "lon", lon)
				return nil
			}
			place.Name = domain.ResolvePlaceName(addr)
			return nil
		})
	}
	g.Go(func() error {
		var err error
		alerts, err = s.Alerts.ActiveAlerts(gctx, lat, lon)
		if err != nil {
			s.Logger.Warn("alerts fetch failed, showing none", "error", err)
			alerts = nil
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.Logger.Error("forecast fetch failed", "error", err, "lat", lat, "lon", lon)
		return domain.ForecastSnapshot{}, nil, err
	}
	return snap, alerts, nil
}

// settings reads display preferences, falling back to defaults on error.
func (s *Service) settings(ctx context.Context) Settings {
	read := func(key string) string {
		def, _ := domain.PreferenceDefault(key)
		v, err := s.Preferences.Get(ctx, key, def)
		if err != nil {
			s.Logger.Warn("preference read failed, using default", "key", key, "error", err)
			return def
		}
		if domain.ValidatePreference(key, v) != nil {
			return def
		}
		return v
	}
	font := read(domain.PrefFontSize)
	return Settings{
		FontSize:  font,
		FontScale: domain.FontScale[font],
		BriefMode: read(domain.PrefBriefMode),
	}
}

// GeneratedBriefing is the model-written brief. Tomorrow is nil when the
// reply had no tomorrow section.
type GeneratedBriefing struct {
	Brief    string  `json:"brief"`
	Tomorrow *string `json:"tomorrow"`
}

// GenerateBriefing asks the text generator for a conversational brief.
func (s *Service) GenerateBriefing(ctx context.Context, coords *domain.Coordinates) (GeneratedBriefing, error) {
	if s.Generator == nil {
		return GeneratedBriefing{}, ErrBriefingUnavailable
	}

	place, needsName := s.resolveLocation(ctx, coords)
	snap, _, err := s.acquire(ctx, &place, needsName)
	if err != nil {
		return GeneratedBriefing{}, err
	}

	now := s.Clock.Now()
	prompt := domain.BriefingPrompt(domain.BriefingInput{
		Snapshot:     snap,
		LocationName: place.Name,
		Now:          now,
	})
	text, err := s.Generator.Generate(ctx, prompt)
	if err != nil {
		s.Logger.Error("briefing generation failed", "error", err)
		return GeneratedBriefing{}, fmt.Errorf("generate briefing: %w", err)
	}
	s.Metrics.BriefsGenerated.WithLabelValues(domain.BriefKindLLM).Inc()

	brief, tomorrow := domain.SplitGeneratedBrief(text)
	out := GeneratedBriefing{Brief: brief}
	if tomorrow != "" {
		out.Tomorrow = &tomorrow
	}

	s.publish(ctx, domain.BriefingEvent{
		Kind:          domain.BriefKindLLM,
		Location:      place,
		Condition:     domain.ConditionCategory(snap.Current.WeatherCode),
		ShortBrief:    brief,
		TomorrowBrief: tomorrow,
		GeneratedAt:   now,
	})
	return out, nil
}

// publish sends the event when a publisher is configured. Failures are
// logged and counted only.
func (s *Service) publish(ctx context.Context, event domain.BriefingEvent) {
	if s.Publisher == nil {
		return
	}
	event.ID = uuid.NewString()
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.Metrics.PublishErrors.Inc()
		s.Logger.Warn("briefing publish failed", "error", err, "id", event.ID)
		return
	}
	s.Metrics.BriefingsPublished.Inc()
}

// RadarView is the playback state plus what the map currently draws.
type RadarView struct {
	radar.State
	Map radar.LayerSnapshot `json:"map"`
}

// LoadRadar fetches the frame index, loads it into the controller and pins
// the location (coords, or the current position when nil).
func (s *Service) LoadRadar(ctx context.Context, coords *domain.Coordinates) (RadarView, error) {
	place, _ := s.resolveLocation(ctx, coords)

	idx, err := s.Radar.Frames(ctx)
	if err != nil {
		s.Logger.Error("radar fetch failed", "error", err)
		return RadarView{}, fmt.Errorf("%w: %w", ErrRadarUnavailable, err)
	}
	s.Controller.Load(idx.Frames(), len(idx.Past))
	s.Controller.AddMarker(place.Lat, place.Lon)
	return s.RadarState(), nil
}

// ToggleRadar starts or pauses playback.
func (s *Service) ToggleRadar() RadarView {
	s.Controller.TogglePlay()
	return s.RadarState()
}

// StepRadar pauses playback and moves one frame forward or backward.
func (s *Service) StepRadar(forward bool) RadarView {
	if forward {
		s.Controller.StepForward()
	} else {
		s.Controller.StepBackward()
	}
	return s.RadarState()
}

// ShowRadarFrame selects frame i. It reports false when i is not a loaded frame.
func (s *Service) ShowRadarFrame(i int) (RadarView, bool) {
	ok := s.Controller.ShowFrame(i)
	return s.RadarState(), ok
}

// RadarState reports the playback state labelled against the service clock.
func (s *Service) RadarState() RadarView {
	st, m := s.Controller.View(s.Clock.Now(), s.Layers)
	return RadarView{
		State: st,
		Map:   m,
	}
}

// CheckReadiness reports whether the preference store is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if err := s.Preferences.Ping(ctx); err != nil {
		return fmt.Errorf("preference store: %w", err)
	}
	return nil
}

// Preference returns the stored value of key, or its default.
func (s *Service) Preference(ctx context.Context, key string) (string, error) {
	def, err := domain.PreferenceDefault(key)
	if err != nil {
		return "", err
	}
	return s.Preferences.Get(ctx, key, def)
}

// SetPreference validates and stores a preference.
func (s *Service) SetPreference(ctx context.Context, key, value string) error {
	if err := domain.ValidatePreference(key, value); err != nil {
		return err
	}
	return s.Preferences.Set(ctx, key, value)
}
