package crop

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Provider produces a fresh snapshot for a user (sensor gateway, remote API, simulator).
type Provider interface {
	Produce(ctx context.Context, userID string) (Snapshot, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, userID string) (Snapshot, error)

// Produce implements Provider.
func (f ProviderFunc) Produce(ctx context.Context, userID string) (Snapshot, error) {
	return f(ctx, userID)
}

// SimulatedOptions configure a SimulatedProvider.
type SimulatedOptions struct {
	Rand *rand.Rand
	Now  func() time.Time
}

// SimulatedProvider synthesizes plausible readings. It stands in for real
// sensors and doubles as the cache fallback.
type SimulatedProvider struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewSimulatedProvider creates a SimulatedProvider.
func NewSimulatedProvider(optFns ...func(o *SimulatedOptions)) *SimulatedProvider {
	opts := SimulatedOptions{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SimulatedProvider{rnd: opts.Rand, now: opts.Now}
}

// Produce implements Provider. It never fails.
func (p *SimulatedProvider) Produce(_ context.Context, _ string) (Snapshot, error) {
	return p.Generate(), nil
}

// Generate returns a simulated snapshot.
func (p *SimulatedProvider) Generate() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	risks := []PestRisk{PestRiskLow, PestRiskModerate, PestRiskHigh}

	return Snapshot{
		AirTemperature:  p.uniform(18, 28, 1),
		AirHumidity:     p.uniform(55, 85, 1),
		SoilHumidity:    p.uniform(30, 70, 1),
		Conductivity:    p.uniform(0.5, 1.5, 2),
		SoilTemperature: p.uniform(12, 28, 1),
		SolarRadiation:  p.uniform(250, 850, 1),
		PestRisk:        risks[p.rnd.IntN(len(risks))],
		UpdatedAt:       p.now(),
	}
}

func (p *SimulatedProvider) uniform(lo, hi float64, decimals int) float64 {
	v := lo + p.rnd.Float64()*(hi-lo)
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
