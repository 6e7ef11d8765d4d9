package testutil

import (
	"time"

	"github.com/hupe1980/agronix/crop"
)

// SnapshotBuilder provides a fluent helper for constructing snapshots.
// Defaults sit inside every optimal range with low pest risk.
//
//	snap := testutil.NewSnapshotBuilder().SoilHumidity(30).PestRisk(crop.PestRiskHigh).Build()
type SnapshotBuilder struct {
	s crop.Snapshot
}

// NewSnapshotBuilder creates a builder with in-range defaults.
func NewSnapshotBuilder() *SnapshotBuilder {
	return &SnapshotBuilder{s: crop.Snapshot{
		AirTemperature:  22.0,
		AirHumidity:     70.0,
		SoilHumidity:    50.0,
		Conductivity:    0.9,
		SoilTemperature: 20.0,
		SolarRadiation:  500.0,
		PestRisk:        crop.PestRiskLow,
		UpdatedAt:       Date(2025, time.June, 10, 8, 0),
	}}
}

// AirTemperature sets the air temperature (chainable).
func (b *SnapshotBuilder) AirTemperature(v float64) *SnapshotBuilder { b.s.AirTemperature = v; return b }

// AirHumidity sets the air humidity (chainable).
func (b *SnapshotBuilder) AirHumidity(v float64) *SnapshotBuilder { b.s.AirHumidity = v; return b }

// SoilHumidity sets the soil humidity (chainable).
func (b *SnapshotBuilder) SoilHumidity(v float64) *SnapshotBuilder { b.s.SoilHumidity = v; return b }

// Conductivity sets the EC reading (chainable).
func (b *SnapshotBuilder) Conductivity(v float64) *SnapshotBuilder { b.s.Conductivity = v; return b }

// SoilTemperature sets the soil temperature (chainable).
func (b *SnapshotBuilder) SoilTemperature(v float64) *SnapshotBuilder {
	b.s.SoilTemperature = v
	return b
}

// SolarRadiation sets the solar radiation (chainable).
func (b *SnapshotBuilder) SolarRadiation(v float64) *SnapshotBuilder { b.s.SolarRadiation = v; return b }

// PestRisk sets the pest risk (chainable).
func (b *SnapshotBuilder) PestRisk(r crop.PestRisk) *SnapshotBuilder { b.s.PestRisk = r; return b }

// At sets the update time (chainable).
func (b *SnapshotBuilder) At(t time.Time) *SnapshotBuilder { b.s.UpdatedAt = t; return b }

// Build returns the snapshot.
func (b *SnapshotBuilder) Build() crop.Snapshot { return b.s }
