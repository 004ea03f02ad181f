package domain

import "context"

// Address is the subset of a reverse-geocoding response used to name a
// place. Every field is optional.
type Address struct {
	City        string `json:"city,omitempty"`
	Town        string `json:"town,omitempty"`
	Village     string `json:"village,omitempty"`
	County      string `json:"county,omitempty"`
	State       string `json:"state,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Geocoder converts coordinates to address details.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Address, error)
}

// UnnamedPlace is used when an address has none of the name fields.
const UnnamedPlace = "Your Location"

// ResolvePlaceName picks the place name by precedence
// city > town > village > county > UnnamedPlace and appends the state.
func ResolvePlaceName(a Address) string {
	place := UnnamedPlace
	for _, candidate := range []string{a.City, a.Town, a.Village, a.County} {
		if candidate != "" {
			place = candidate
			break
		}
	}
	if a.State != "" {
		return place + ", " + a.State
	}
	return place
}

// IsEmpty reports whether the address carries no usable field.
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// Place is a resolved location: coordinates plus a display name.
type Place struct {
	Coordinates
	Name string `json:"name"`
}

// LocationProvider supplies the user's current position.
type LocationProvider interface {
	CurrentPosition(ctx context.Context) (Coordinates, error)
}

// FixedLocation is a LocationProvider that always answers with one place.
type FixedLocation struct {
	Place Place
}

// CurrentPosition returns the configured coordinates.
func (f FixedLocation) CurrentPosition(_ context.Context) (Coordinates, error) {
	return f.Place.Coordinates, nil
}
