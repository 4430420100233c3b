package weather

import (
	"fmt"
	"strconv"
	"strings"
)

// Coordinates is the fixed point we poll weather for.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

// ParseCoordinates parses a "lat,lon" pair of decimal degrees.
func ParseCoordinates(s string) (Coordinates, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Coordinates{}, fmt.Errorf("invalid coordinates %q: expected lat,lon", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid lat %q: %w", latStr, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid lon %q: %w", lonStr, err)
	}

	return Coordinates{Lat: lat, Lon: lon}, nil
}

func (c Coordinates) String() string {
	return formatDegrees(c.Lat) + "," + formatDegrees(c.Lon)
}

// QueryLat and QueryLon render the coordinates the way they go on the wire.
func (c Coordinates) QueryLat() string { return formatDegrees(c.Lat) }
func (c Coordinates) QueryLon() string { return formatDegrees(c.Lon) }

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Condition is one weather condition descriptor as reported by the provider.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// MainReading holds temperatures, pressure and humidity.
type MainReading struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  float64 `json:"pressure"`
	Humidity  float64 `json:"humidity"`
}

type Wind struct {
	Speed float64 `json:"speed"`
	Deg   uint32  `json:"deg"`
}

// Volume is an accumulated precipitation volume. A nil period means the
// provider omitted it, which is not the same as zero.
type Volume struct {
	OneHour   *float64 `json:"1h,omitempty"`
	ThreeHour *float64 `json:"3h,omitempty"`
}

type Clouds struct {
	All uint32 `json:"all"`
}

// Reading is one parsed observation. Once stored in an Outcome it is shared
// between readers and must not be mutated.
type Reading struct {
	Coord      Coordinates `json:"coord"`
	Conditions []Condition `json:"weather"`
	Main       MainReading `json:"main"`
	Wind       Wind        `json:"wind"`
	Rain       Volume      `json:"rain"`
	Snow       Volume      `json:"snow"`
	Clouds     Clouds      `json:"clouds"`

	// Visibility is in meters regardless of the units parameter.
	Visibility *uint32 `json:"visibility"`
}
