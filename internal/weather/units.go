package weather

import (
	"fmt"
	"strings"
)

// Units is the measurement system requested from the provider.
type Units int

const (
	Kelvin Units = iota
	Metric
	Imperial
)

// ParseUnits accepts kelvin, metric or imperial in any case.
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kelvin":
		return Kelvin, nil
	case "metric":
		return Metric, nil
	case "imperial":
		return Imperial, nil
	default:
		return Kelvin, fmt.Errorf("invalid units type %q, must be one of: kelvin, metric, imperial", s)
	}
}

// APIParam returns the provider's units query value. Kelvin is the provider
// default and has no parameter.
func (u Units) APIParam() (string, bool) {
	switch u {
	case Metric:
		return "metric", true
	case Imperial:
		return "imperial", true
	default:
		return "", false
	}
}

func (u Units) TempUnit() string {
	switch u {
	case Metric:
		return "c"
	case Imperial:
		return "f"
	default:
		return "k"
	}
}

func (u Units) SpeedUnit() string {
	if u == Imperial {
		return "mph"
	}
	return "m/s"
}

// PressureUnit is the same for every system.
func (u Units) PressureUnit() string {
	return "hPa"
}

func (u Units) String() string {
	switch u {
	case Metric:
		return "metric"
	case Imperial:
		return "imperial"
	default:
		return "kelvin"
	}
}
