// Package agronomy evaluates crop snapshots against the optimal ranges for
// strawberries: per-parameter status, alerts with recommendations and
// critical excursions. Everything here is a pure function of its input.
package agronomy

import (
	"maps"

	"github.com/hupe1980/agronix/crop"
)

// ThresholdRange is the optimal band of a parameter. Critical bounds are
// optional and mark conditions that endanger the crop.
type ThresholdRange struct {
	Min         float64  `json:"min"`
	Max         float64  `json:"max"`
	CriticalMin *float64 `json:"critical_min,omitempty"`
	CriticalMax *float64 `json:"critical_max,omitempty"`
}

func bound(v float64) *float64 { return &v }

// table is read-only after init; callers only ever receive copies.
var table = map[crop.Parameter]ThresholdRange{
	crop.AirTemperature:  {Min: 20, Max: 25, CriticalMin: bound(4), CriticalMax: bound(29)},
	crop.AirHumidity:     {Min: 60, Max: 80},
	crop.SoilHumidity:    {Min: 35, Max: 65},
	crop.Conductivity:    {Min: 0.7, Max: 1.2},
	crop.SoilTemperature: {Min: 15, Max: 25},
	crop.SolarRadiation:  {Min: 300, Max: 800},
}

func (r ThresholdRange) clone() ThresholdRange {
	if r.CriticalMin != nil {
		r.CriticalMin = bound(*r.CriticalMin)
	}
	if r.CriticalMax != nil {
		r.CriticalMax = bound(*r.CriticalMax)
	}
	return r
}

// Lookup returns a copy of the range for p.
func Lookup(p crop.Parameter) (ThresholdRange, bool) {
	r, ok := table[p]
	if !ok {
		return ThresholdRange{}, false
	}
	return r.clone(), true
}

// Ranges returns a copy of the whole table.
func Ranges() map[crop.Parameter]ThresholdRange {
	out := maps.Clone(table)
	for k, v := range out {
		out[k] = v.clone()
	}
	return out
}
