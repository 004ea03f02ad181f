package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/couchcryptid/weather-brief-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

// coordinatesQuery holds the optional lat/lon query parameters. Both or
// neither must be present.
type coordinatesQuery struct {
	Lat string `validate:"required_with=Lon,omitempty,latitude"`
	Lon string `validate:"required_with=Lat,omitempty,longitude"`
}

// parseCoordinates returns nil when the request names no location.
func parseCoordinates(r *http.Request) (*domain.Coordinates, error) {
	q := coordinatesQuery{
		Lat: r.URL.Query().Get("lat"),
		Lon: r.URL.Query().Get("lon"),
	}
	if err := validate.Struct(q); err != nil {
		return nil, describeValidation(err)
	}
	if q.Lat == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(q.Lat, 64)
	if err != nil {
		return nil, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(q.Lon, 64)
	if err != nil {
		return nil, errors.New("lon must be a number")
	}
	return &domain.Coordinates{Lat: lat, Lon: lon}, nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := map[string]string{"Lat": "lat", "Lon": "lon"}[fe.Field()]
	switch fe.Tag() {
	case "required_with":
		return errors.New("lat and lon must be given together")
	case "latitude":
		return errors.New(field + " must be a latitude between -90 and 90")
	case "longitude":
		return errors.New(field + " must be a longitude between -180 and 180")
	default:
		return err
	}
}
