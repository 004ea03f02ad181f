package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/weather-brief-service/internal/adapter/http"
	"github.com/couchcryptid/weather-brief-service/internal/dashboard"
	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/couchcryptid/weather-brief-service/internal/radar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	readyErr    error
	dashErr     error
	briefErr    error
	radarErr    error
	frameCount  int
	current     int
	playing     bool
	prefs       map[string]string
	gotCoords   *domain.Coordinates
	dashCalls   int
	toggleCalls int
}

func newMockService() *mockService {
	return &mockService{frameCount: 3, current: 1, prefs: map[string]string{}}
}

func (m *mockService) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockService) Dashboard(_ context.Context, coords *domain.Coordinates) (dashboard.Dashboard, error) {
	m.dashCalls++
	m.gotCoords = coords
	if m.dashErr != nil {
		return dashboard.Dashboard{}, m.dashErr
	}
	return dashboard.Dashboard{
		Location:  domain.Place{Name: "Goochland, Virginia"},
		Narrative: domain.Narrative{Short: "72°, mainly clear.", Tomorrow: domain.TomorrowUnavailable},
		Alerts:    []dashboard.AlertView{},
	}, nil
}

func (m *mockService) GenerateBriefing(_ context.Context, coords *domain.Coordinates) (dashboard.GeneratedBriefing, error) {
	m.gotCoords = coords
	if m.briefErr != nil {
		return dashboard.GeneratedBriefing{}, m.briefErr
	}
	tomorrow := "Rain by noon."
	return dashboard.GeneratedBriefing{Brief: "Sticky afternoon.", Tomorrow: &tomorrow}, nil
}

func (m *mockService) view() dashboard.RadarView {
	return dashboard.RadarView{
		State: radar.State{CurrentIndex: m.current, FrameCount: m.frameCount, Playing: m.playing},
	}
}

func (m *mockService) LoadRadar(_ context.Context, coords *domain.Coordinates) (dashboard.RadarView, error) {
	m.gotCoords = coords
	if m.radarErr != nil {
		return dashboard.RadarView{}, m.radarErr
	}
	return m.view(), nil
}

func (m *mockService) RadarState() dashboard.RadarView { return m.view() }

func (m *mockService) ToggleRadar() dashboard.RadarView {
	m.toggleCalls++
	m.playing = !m.playing
	return m.view()
}

func (m *mockService) StepRadar(forward bool) dashboard.RadarView {
	m.playing = false
	if forward {
		m.current = min(m.current+1, m.frameCount-1)
	} else {
		m.current = max(m.current-1, 0)
	}
	return m.view()
}

func (m *mockService) ShowRadarFrame(i int) (dashboard.RadarView, bool) {
	if i < 0 || i >= m.frameCount {
		return m.view(), false
	}
	m.current = i
	return m.view(), true
}

func (m *mockService) Preference(_ context.Context, key string) (string, error) {
	def, err := domain.PreferenceDefault(key)
	if err != nil {
		return "", err
	}
	if v, ok := m.prefs[key]; ok {
		return v, nil
	}
	return def, nil
}

func (m *mockService) SetPreference(_ context.Context, key, value string) error {
	if err := domain.ValidatePreference(key, value); err != nil {
		return err
	}
	m.prefs[key] = value
	return nil
}

func newTestServer(svc *mockService) *httpadapter.Server {
	return httpadapter.NewServer(":0", svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func do(t *testing.T, srv *httpadapter.Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, body))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	rec := do(t, newTestServer(newMockService()), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(t, newTestServer(newMockService()), http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	svc := newMockService()
	svc.readyErr = fmt.Errorf("preference store: database is locked")
	rec := do(t, newTestServer(svc), http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "preference store: database is locked", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(newMockService()), http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- dashboard ---

func TestDashboard_NoCoordinates(t *testing.T) {
	svc := newMockService()
	rec := do(t, newTestServer(svc), http.MethodGet, "/api/v1/dashboard", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Nil(t, svc.gotCoords)

	body := decode(t, rec)
	narrative := body["narrative"].(map[string]any)
	assert.Equal(t, "72°, mainly clear.", narrative["short_brief"])
	assert.Equal(t, "Tomorrow's forecast is not yet available.", narrative["tomorrow_brief"])
	assert.Equal(t, []any{}, body["alerts"])
}

func TestDashboard_WithCoordinates(t *testing.T) {
	svc := newMockService()
	rec := do(t, newTestServer(svc), http.MethodGet, "/api/v1/dashboard?lat=37.54&lon=-77.43", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.gotCoords)
	assert.Equal(t, domain.Coordinates{Lat: 37.54, Lon: -77.43}, *svc.gotCoords)
}

func TestDashboard_BadCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"lat only", "?lat=37.5", "lat and lon must be given together"},
		{"lon only", "?lon=-77.4", "lat and lon must be given together"},
		{"lat out of range", "?lat=91&lon=0", "lat must be a latitude between -90 and 90"},
		{"lon out of range", "?lat=0&lon=181", "lon must be a longitude between -180 and 180"},
		{"not a number", "?lat=north&lon=0", "lat must be a latitude between -90 and 90"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockService()
			rec := do(t, newTestServer(svc), http.MethodGet, "/api/v1/dashboard"+tt.query, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode(t, rec)["error"])
			assert.Zero(t, svc.dashCalls)
		})
	}
}

func TestDashboard_ForecastUnavailable(t *testing.T) {
	svc := newMockService()
	svc.dashErr = fmt.Errorf("%w: status 500", dashboard.ErrForecastUnavailable)
	rec := do(t, newTestServer(svc), http.MethodGet, "/api/v1/dashboard", nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Could not load weather data. Pull down to retry.", decode(t, rec)["error"])
}

func TestDashboard_MethodNotAllowed(t *testing.T) {
	rec := do(t, newTestServer(newMockService()), http.MethodPost, "/api/v1/dashboard", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDewPointLevels(t *testing.T) {
	rec := do(t, newTestServer(newMockService()), http.MethodGet, "/api/v1/dewpoint/levels", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	levels := decode(t, rec)["levels"].([]any)
	require.Len(t, levels, 9)
	first := levels[0].(map[string]any)
	last := levels[8].(map[string]any)
	assert.Equal(t, "Bone dry", first["label"])
	assert.InDelta(t, 30, first["upper_bound"], 0)
	assert.Equal(t, "Extreme danger", last["label"])
	assert.Nil(t, last["upper_bound"])
}

// --- briefing ---

func TestBriefing(t *testing.T) {
	rec := do(t, newTestServer(newMockService()), http.MethodPost, "/api/v1/briefing", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Sticky afternoon.", body["brief"])
	assert.Equal(t, "Rain by noon.", body["tomorrow"])
}

func TestBriefing_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"not configured", dashboard.ErrBriefingUnavailable, http.StatusServiceUnavailable, "API key not configured"},
		{"forecast", fmt.Errorf("%w: timeout", dashboard.ErrForecastUnavailable), http.StatusBadGateway, "Could not load weather data. Pull down to retry."},
		{"generator", errors.New("generate briefing: llm circuit breaker open"), http.StatusBadGateway, "Failed to generate brief"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockService()
			svc.briefErr = tt.err
			rec := do(t, newTestServer(svc), http.MethodPost, "/api/v1/briefing", nil)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantMsg, decode(t, rec)["error"])
		})
	}
}

func TestBriefing_GetNotAllowed(t *testing.T) {
	rec := do(t, newTestServer(newMockService()), http.MethodGet, "/api/v1/briefing", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// --- radar ---

func TestRadar_Load(t *testing.T) {
	svc := newMockService()
	rec := do(t, newTestServer(svc), http.MethodPost, "/api/v1/radar/load?lat=37.68&lon=-77.9", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.gotCoords)
	assert.InDelta(t, 3, decode(t, rec)["frame_count"], 0)
}

func TestRadar_LoadFailure(t *testing.T) {
	svc := newMockService()
	svc.radarErr = dashboard.ErrRadarUnavailable
	rec := do(t, newTestServer(svc), http.MethodPost, "/api/v1/radar/load", nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRadar_Playback(t *testing.T) {
	svc := newMockService()
	srv := newTestServer(svc)

	rec := do(t, srv, http.MethodPost, "/api/v1/radar/toggle", nil)
	assert.Equal(t, true, decode(t, rec)["playing"])

	rec = do(t, srv, http.MethodPost, "/api/v1/radar/forward", nil)
	body := decode(t, rec)
	assert.Equal(t, false, body["playing"])
	assert.InDelta(t, 2, body["current_index"], 0)

	rec = do(t, srv, http.MethodPost, "/api/v1/radar/backward", nil)
	assert.InDelta(t, 1, decode(t, rec)["current_index"], 0)

	rec = do(t, srv, http.MethodGet, "/api/v1/radar", nil)
	assert.InDelta(t, 1, decode(t, rec)["current_index"], 0)
	assert.Equal(t, 1, svc.toggleCalls)
}

func TestRadar_ShowFrame(t *testing.T) {
	svc := newMockService()
	srv := newTestServer(svc)

	rec := do(t, srv, http.MethodPut, "/api/v1/radar/frame/0", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0, decode(t, rec)["current_index"], 0)

	rec = do(t, srv, http.MethodPut, "/api/v1/radar/frame/7", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, svc.current)

	rec = do(t, srv, http.MethodPut, "/api/v1/radar/frame/last", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- preferences ---

func TestPreferences_GetDefault(t *testing.T) {
	rec := do(t, newTestServer(newMockService()), http.MethodGet, "/api/v1/preferences/fontSize", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "fontSize", body["key"])
	assert.Equal(t, "medium", body["value"])
}

func TestPreferences_SetThenGet(t *testing.T) {
	srv := newTestServer(newMockService())

	rec := do(t, srv, http.MethodPut, "/api/v1/preferences/briefMode", strings.NewReader(`{"value":"full"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/preferences/briefMode", nil)
	assert.Equal(t, "full", decode(t, rec)["value"])
}

func TestPreferences_Errors(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
	}{
		{"unknown key", http.MethodGet, "/api/v1/preferences/theme", "", http.StatusNotFound},
		{"unknown key on set", http.MethodPut, "/api/v1/preferences/theme", `{"value":"dark"}`, http.StatusNotFound},
		{"invalid value", http.MethodPut, "/api/v1/preferences/fontSize", `{"value":"huge"}`, http.StatusUnprocessableEntity},
		{"missing value", http.MethodPut, "/api/v1/preferences/fontSize", `{}`, http.StatusBadRequest},
		{"malformed body", http.MethodPut, "/api/v1/preferences/fontSize", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(newMockService()), tt.method, tt.path, strings.NewReader(tt.body))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}
