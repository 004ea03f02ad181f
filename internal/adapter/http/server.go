package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/weather-brief-service/internal/dashboard"
	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// User-facing error messages.
const (
	msgForecastUnavailable = "Could not load weather data. Pull down to retry."
	msgBriefingNotReady    = "API key not configured"
	msgBriefingFailed      = "Failed to generate brief"
	msgRadarUnavailable    = "Could not load radar frames."
)

var validate = validator.New()

// DashboardService is the application surface served over HTTP.
type DashboardService interface {
	sharedobs.ReadinessChecker
	Dashboard(ctx context.Context, coords *domain.Coordinates) (dashboard.Dashboard, error)
	GenerateBriefing(ctx context.Context, coords *domain.Coordinates) (dashboard.GeneratedBriefing, error)
	LoadRadar(ctx context.Context, coords *domain.Coordinates) (dashboard.RadarView, error)
	RadarState() dashboard.RadarView
	ToggleRadar() dashboard.RadarView
	StepRadar(forward bool) dashboard.RadarView
	ShowRadarFrame(i int) (dashboard.RadarView, bool)
	Preference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
}

// Server exposes the dashboard API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        DashboardService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, svc DashboardService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second, // model-written briefings are slow
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/v1/dewpoint/levels", s.handleDewPointLevels)
	mux.HandleFunc("POST /api/v1/briefing", s.handleBriefing)

	mux.HandleFunc("GET /api/v1/radar", s.handleRadarState)
	mux.HandleFunc("POST /api/v1/radar/load", s.handleRadarLoad)
	mux.HandleFunc("POST /api/v1/radar/toggle", s.handleRadarToggle)
	mux.HandleFunc("POST /api/v1/radar/forward", s.handleRadarStep(true))
	mux.HandleFunc("POST /api/v1/radar/backward", s.handleRadarStep(false))
	mux.HandleFunc("PUT /api/v1/radar/frame/{index}", s.handleRadarFrame)

	mux.HandleFunc("GET /api/v1/preferences/{key}", s.handleGetPreference)
	mux.HandleFunc("PUT /api/v1/preferences/{key}", s.handleSetPreference)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	coords, err := parseCoordinates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := s.svc.Dashboard(r.Context(), coords)
	if err != nil {
		if errors.Is(err, dashboard.ErrForecastUnavailable) {
			writeError(w, http.StatusBadGateway, msgForecastUnavailable)
			return
		}
		s.logger.Error("dashboard failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, d)
}

func (s *Server) handleDewPointLevels(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"levels": domain.DewPointLevels()})
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	coords, err := parseCoordinates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.svc.GenerateBriefing(r.Context(), coords)
	switch {
	case err == nil:
		sharedobs.WriteJSON(w, http.StatusOK, b)
	case errors.Is(err, dashboard.ErrBriefingUnavailable):
		writeError(w, http.StatusServiceUnavailable, msgBriefingNotReady)
	case errors.Is(err, dashboard.ErrForecastUnavailable):
		writeError(w, http.StatusBadGateway, msgForecastUnavailable)
	default:
		writeError(w, http.StatusBadGateway, msgBriefingFailed)
	}
}

func (s *Server) handleRadarState(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.svc.RadarState())
}

func (s *Server) handleRadarLoad(w http.ResponseWriter, r *http.Request) {
	coords, err := parseCoordinates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.svc.LoadRadar(r.Context(), coords)
	if err != nil {
		writeError(w, http.StatusBadGateway, msgRadarUnavailable)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleRadarToggle(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.svc.ToggleRadar())
}

func (s *Server) handleRadarStep(forward bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sharedobs.WriteJSON(w, http.StatusOK, s.svc.StepRadar(forward))
	}
}

func (s *Server) handleRadarFrame(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "frame index must be an integer")
		return
	}
	view, ok := s.svc.ShowRadarFrame(i)
	if !ok {
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": "no such frame",
			"radar": view,
		})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

type preferenceResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type preferenceRequest struct {
	Value string `json:"value" validate:"required"`
}

func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	v, err := s.svc.Preference(r.Context(), key)
	if err != nil {
		s.writePreferenceError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, preferenceResponse{Key: key, Value: v})
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.SetPreference(r.Context(), key, req.Value); err != nil {
		s.writePreferenceError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, preferenceResponse{Key: key, Value: req.Value})
}

func (s *Server) writePreferenceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownPreference):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidPreference):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("preference store failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
