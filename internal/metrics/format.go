// Package metrics renders poll outcomes as flat text exposition lines.
package metrics

import (
	"strconv"

	"github.com/i474232898/openweathermap-exporter/internal/weather"
)

const (
	unitPercent = "percent"
	unitVolume  = "mm"
	unitDegrees = "degrees"
	unitMeters  = "meters"
)

// Formatter renders outcomes for a fixed unit system and optional location.
// It holds no mutable state and is safe for concurrent use.
type Formatter struct {
	units  weather.Units
	global []Label
}

// NewFormatter returns a Formatter. A non-empty location adds a
// location="..." label to every line.
func NewFormatter(units weather.Units, location string) *Formatter {
	f := &Formatter{units: units}
	if location != "" {
		f.global = []Label{{Name: "location", Value: location}}
	}
	return f
}

// Format renders o. Unavailable renders as the empty string.
func (f *Formatter) Format(o weather.Outcome) string {
	b := NewBuilder(f.global...)

	switch o := o.(type) {
	case weather.Unavailable:
	case weather.Failed:
		f.failed(b, o)
	case weather.Ready:
		f.ready(b, o.Reading)
	default:
		panic(weather.UnknownOutcome(o))
	}

	return b.String()
}

func (f *Formatter) failed(b *Builder, o weather.Failed) {
	b.Add("owm_error", 1)
	if o.Status != nil {
		b.Add("owm_error", 1, Label{"code", strconv.Itoa(*o.Status)})
	}
}

func (f *Formatter) ready(b *Builder, r weather.Reading) {
	temp := unit(f.units.TempUnit())

	b.Add("owm_error", 0)

	b.Add("owm_temp", r.Main.Temp, temp)
	b.Add("owm_temp_min", r.Main.TempMin, temp)
	b.Add("owm_temp_max", r.Main.TempMax, temp)
	b.Add("owm_feels_like", r.Main.FeelsLike, temp)
	b.Add("owm_humidity", r.Main.Humidity, unit(unitPercent))
	b.Add("owm_pressure", r.Main.Pressure, unit(f.units.PressureUnit()))

	b.Add("owm_clouds_all", float64(r.Clouds.All), unit(unitPercent))

	volume(b, "owm_rain_volume", r.Rain)
	volume(b, "owm_snow_volume", r.Snow)

	b.Add("owm_wind_direction", float64(r.Wind.Deg), unit(unitDegrees))
	b.Add("owm_wind_speed", r.Wind.Speed, unit(f.units.SpeedUnit()))

	for _, c := range r.Conditions {
		b.Add("owm_condition", 1, Label{"kind", c.Description})
	}

	if r.Visibility != nil {
		b.Add("owm_visibility", float64(*r.Visibility), unit(unitMeters))
	}
}

func volume(b *Builder, name string, v weather.Volume) {
	if v.OneHour != nil {
		b.Add(name, *v.OneHour, Label{"period", "1h"}, unit(unitVolume))
	}
	if v.ThreeHour != nil {
		b.Add(name, *v.ThreeHour, Label{"period", "3h"}, unit(unitVolume))
	}
}

func unit(u string) Label {
	return Label{Name: "unit", Value: u}
}
