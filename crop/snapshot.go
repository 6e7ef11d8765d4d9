// Package crop models live crop telemetry: the Snapshot value, the Provider
// boundary that produces it and a per-user TTL Cache in front of it.
package crop

import "time"

// Parameter names a numeric telemetry field.
type Parameter string

// Telemetry parameters, named after their wire keys.
const (
	AirTemperature  Parameter = "temperature_air"
	AirHumidity     Parameter = "humidity_air"
	SoilHumidity    Parameter = "humidity_soil"
	Conductivity    Parameter = "conductivity_ec"
	SoilTemperature Parameter = "temperature_soil"
	SolarRadiation  Parameter = "solar_radiation"
)

// Parameters lists every numeric parameter in display order.
func Parameters() []Parameter {
	return []Parameter{AirTemperature, AirHumidity, SoilHumidity, Conductivity, SoilTemperature, SolarRadiation}
}

// Unit returns the display unit of p.
func (p Parameter) Unit() string {
	switch p {
	case AirTemperature, SoilTemperature:
		return "°C"
	case AirHumidity, SoilHumidity:
		return "%"
	case Conductivity:
		return "dS/m"
	case SolarRadiation:
		return "W/m²"
	default:
		return ""
	}
}

// Label returns a human readable name for p.
func (p Parameter) Label() string {
	switch p {
	case AirTemperature:
		return "Air temperature"
	case AirHumidity:
		return "Air humidity"
	case SoilHumidity:
		return "Soil humidity"
	case Conductivity:
		return "Conductivity (EC)"
	case SoilTemperature:
		return "Soil temperature"
	case SolarRadiation:
		return "Solar radiation"
	default:
		return string(p)
	}
}

// PestRisk is the categorical pest pressure.
type PestRisk string

// Pest risk levels.
const (
	PestRiskLow      PestRisk = "Low"
	PestRiskModerate PestRisk = "Moderate"
	PestRiskHigh     PestRisk = "High"
)

// Snapshot is one immutable reading of the crop's environment.
type Snapshot struct {
	AirTemperature  float64   `json:"temperature_air"`
	AirHumidity     float64   `json:"humidity_air"`
	SoilHumidity    float64   `json:"humidity_soil"`
	Conductivity    float64   `json:"conductivity_ec"`
	SoilTemperature float64   `json:"temperature_soil"`
	SolarRadiation  float64   `json:"solar_radiation"`
	PestRisk        PestRisk  `json:"pest_risk"`
	UpdatedAt       time.Time `json:"last_updated"`
}

// Value returns the reading for p. The second result is false for unknown parameters.
func (s Snapshot) Value(p Parameter) (float64, bool) {
	switch p {
	case AirTemperature:
		return s.AirTemperature, true
	case AirHumidity:
		return s.AirHumidity, true
	case SoilHumidity:
		return s.SoilHumidity, true
	case Conductivity:
		return s.Conductivity, true
	case SoilTemperature:
		return s.SoilTemperature, true
	case SolarRadiation:
		return s.SolarRadiation, true
	default:
		return 0, false
	}
}
