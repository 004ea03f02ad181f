package radar

import (
	"sync"

	"github.com/couchcryptid/weather-brief-service/internal/domain"
)

// MapRenderer is the map surface the controller draws onto.
type MapRenderer interface {
	// AddTileLayer adds a raster layer and returns its handle.
	AddTileLayer(urlTemplate string) int
	SetOpacity(layer int, opacity float64)
	AddMarker(lat, lon float64)
	// Reset removes every layer and marker.
	Reset()
}

// Layer is one tile layer as the client should render it.
type Layer struct {
	URLTemplate string  `json:"url_template"`
	Opacity     float64 `json:"opacity"`
}

// LayerSnapshot is a point-in-time copy of a LayerSet.
type LayerSnapshot struct {
	Layers  []Layer              `json:"layers"`
	Markers []domain.Coordinates `json:"markers"`
}

// LayerSet is an in-memory MapRenderer whose state is served to the
// presentation layer, which does the actual drawing.
type LayerSet struct {
	mu      sync.Mutex
	layers  []Layer
	markers []domain.Coordinates
}

// NewLayerSet returns an empty LayerSet.
func NewLayerSet() *LayerSet {
	return &LayerSet{}
}

// AddTileLayer appends a hidden layer and returns its index.
func (s *LayerSet) AddTileLayer(urlTemplate string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = append(s.layers, Layer{URLTemplate: urlTemplate})
	return len(s.layers) - 1
}

// SetOpacity sets the opacity of layer. Unknown layers are ignored.
func (s *LayerSet) SetOpacity(layer int, opacity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if layer < 0 || layer >= len(s.layers) {
		return
	}
	s.layers[layer].Opacity = opacity
}

// AddMarker pins a marker at lat, lon.
func (s *LayerSet) AddMarker(lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = append(s.markers, domain.Coordinates{Lat: lat, Lon: lon})
}

// Reset removes every layer and marker.
func (s *LayerSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = nil
	s.markers = nil
}

// Snapshot copies the current layers and markers.
func (s *LayerSet) Snapshot() LayerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LayerSnapshot{
		Layers:  append([]Layer{}, s.layers...),
		Markers: append([]domain.Coordinates{}, s.markers...),
	}
}
