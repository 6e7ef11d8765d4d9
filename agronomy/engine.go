package agronomy

import "github.com/hupe1980/agronix/crop"

// Status classifies a reading against its optimal range.
type Status string

// Status values. Normal is reported for parameters without a range.
const (
	StatusLow     Status = "Low"
	StatusHigh    Status = "High"
	StatusOptimal Status = "Optimal"
	StatusNormal  Status = "Normal"
)

// Classify returns the status of value for parameter p.
func Classify(value float64, p crop.Parameter) Status {
	r, ok := table[p]
	if !ok {
		return StatusNormal
	}
	switch {
	case value < r.Min:
		return StatusLow
	case value > r.Max:
		return StatusHigh
	default:
		return StatusOptimal
	}
}

// Assessment is the outcome of evaluating one snapshot.
type Assessment struct {
	Alerts          []string `json:"alerts"`
	Recommendations []string `json:"recommendations"`
}

// Healthy reports whether no alert fired.
func (a Assessment) Healthy() bool { return len(a.Alerts) == 0 }

type rule struct {
	param     crop.Parameter
	lowAlert  string
	lowAdvice string
	hiAlert   string
	hiAdvice  string
}

// rules are evaluated in order; each fires at most one alert/advice pair.
var rules = []rule{
	{
		param:     crop.AirTemperature,
		lowAlert:  "⚠️ Low air temperature",
		lowAdvice: "Consider heating or moving the crop under a greenhouse",
		hiAlert:   "🔥 High air temperature",
		hiAdvice:  "Increase ventilation or use shading",
	},
	{
		param:     crop.SoilHumidity,
		lowAlert:  "💧 Low soil humidity",
		lowAdvice: "Schedule irrigation immediately",
		hiAlert:   "🌊 High soil humidity",
		hiAdvice:  "Reduce irrigation and improve drainage",
	},
	{
		param:     crop.Conductivity,
		lowAlert:  "⚡ Low conductivity",
		lowAdvice: "Apply a balanced fertilizer",
		hiAlert:   "⚡ High conductivity",
		hiAdvice:  "Irrigate to leach excess salts",
	},
}

// Evaluate derives alerts and recommendations from s.
func Evaluate(s crop.Snapshot) Assessment {
	a := Assessment{Alerts: []string{}, Recommendations: []string{}}

	for _, r := range rules {
		v, _ := s.Value(r.param)
		switch Classify(v, r.param) {
		case StatusLow:
			a.Alerts = append(a.Alerts, r.lowAlert)
			a.Recommendations = append(a.Recommendations, r.lowAdvice)
		case StatusHigh:
			a.Alerts = append(a.Alerts, r.hiAlert)
			a.Recommendations = append(a.Recommendations, r.hiAdvice)
		}
	}

	return a
}

// Summarize returns the status of every numeric parameter of s.
func Summarize(s crop.Snapshot) map[crop.Parameter]Status {
	out := make(map[crop.Parameter]Status, len(crop.Parameters()))
	for _, p := range crop.Parameters() {
		v, _ := s.Value(p)
		out[p] = Classify(v, p)
	}
	return out
}

// Critical returns the parameters of s beyond their critical bounds, in
// display order. Parameters without critical bounds never appear.
func Critical(s crop.Snapshot) []crop.Parameter {
	var out []crop.Parameter
	for _, p := range crop.Parameters() {
		r := table[p]
		v, _ := s.Value(p)
		if (r.CriticalMin != nil && v < *r.CriticalMin) || (r.CriticalMax != nil && v > *r.CriticalMax) {
			out = append(out, p)
		}
	}
	return out
}
