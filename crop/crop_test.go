package crop_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agronix/crop"
	"github.com/hupe1980/agronix/internal/testutil"
)

func countingProvider(calls *atomic.Int32, snap crop.Snapshot) crop.Provider {
	return crop.ProviderFunc(func(context.Context, string) (crop.Snapshot, error) {
		calls.Add(1)
		return snap, nil
	})
}

func TestSnapshot_Value(t *testing.T) {
	snap := testutil.NewSnapshotBuilder().SoilHumidity(31.5).Build()

	v, ok := snap.Value(crop.SoilHumidity)
	assert.True(t, ok)
	assert.Equal(t, 31.5, v)

	_, ok = snap.Value(crop.Parameter("leaf_wetness"))
	assert.False(t, ok)

	for _, p := range crop.Parameters() {
		_, ok := snap.Value(p)
		assert.True(t, ok, p)
		assert.NotEmpty(t, p.Unit(), p)
	}
}

func TestSimulatedProvider_Ranges(t *testing.T) {
	clock := testutil.NewClock(testutil.Date(2025, time.June, 10, 9, 0))
	p := crop.NewSimulatedProvider(func(o *crop.SimulatedOptions) {
		o.Rand = rand.New(rand.NewPCG(1, 2))
		o.Now = clock.Now
	})

	for i := 0; i < 200; i++ {
		s, err := p.Produce(context.Background(), "u1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.AirTemperature, 18.0)
		assert.LessOrEqual(t, s.AirTemperature, 28.0)
		assert.GreaterOrEqual(t, s.SoilHumidity, 30.0)
		assert.LessOrEqual(t, s.SoilHumidity, 70.0)
		assert.GreaterOrEqual(t, s.Conductivity, 0.5)
		assert.LessOrEqual(t, s.Conductivity, 1.5)
		assert.GreaterOrEqual(t, s.SolarRadiation, 250.0)
		assert.LessOrEqual(t, s.SolarRadiation, 850.0)
		assert.Contains(t, []crop.PestRisk{crop.PestRiskLow, crop.PestRiskModerate, crop.PestRiskHigh}, s.PestRisk)
		assert.Equal(t, clock.Now(), s.UpdatedAt)
	}
}

func TestCache_HitWithinTTL(t *testing.T) {
	var calls atomic.Int32
	clock := testutil.NewClock(testutil.Date(2025, time.June, 10, 9, 0))
	c := crop.NewCache(countingProvider(&calls, testutil.NewSnapshotBuilder().Build()), func(o *crop.CacheOptions) {
		o.Now = clock.Now
	})

	ctx := context.Background()
	first := c.Get(ctx, "u1")
	clock.Advance(299 * time.Second)
	second := c.Get(ctx, "u1")

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(2 * time.Second)
	c.Get(ctx, "u1")
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_PerUser(t *testing.T) {
	var calls atomic.Int32
	c := crop.NewCache(countingProvider(&calls, testutil.NewSnapshotBuilder().Build()))

	ctx := context.Background()
	c.Get(ctx, "u1")
	c.Get(ctx, "u2")
	c.Get(ctx, "u1")

	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_InvalidateAndRefresh(t *testing.T) {
	var calls atomic.Int32
	c := crop.NewCache(countingProvider(&calls, testutil.NewSnapshotBuilder().Build()))

	ctx := context.Background()
	c.Get(ctx, "u1")
	c.Invalidate("u1")
	c.Get(ctx, "u1")
	assert.Equal(t, int32(2), calls.Load())

	c.Refresh(ctx, "u1")
	assert.Equal(t, int32(3), calls.Load())
}

func TestCache_ProviderFailureNotCached(t *testing.T) {
	var calls atomic.Int32
	failing := crop.ProviderFunc(func(context.Context, string) (crop.Snapshot, error) {
		calls.Add(1)
		return crop.Snapshot{}, errors.New("gateway offline")
	})
	fallback := testutil.NewSnapshotBuilder().SoilHumidity(33).Build()

	c := crop.NewCache(failing, func(o *crop.CacheOptions) {
		o.Fallback = crop.ProviderFunc(func(context.Context, string) (crop.Snapshot, error) { return fallback, nil })
	})

	ctx := context.Background()
	assert.Equal(t, fallback, c.Get(ctx, "u1"))
	assert.Equal(t, fallback, c.Get(ctx, "u1"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_ConcurrentSingleProduce(t *testing.T) {
	var calls atomic.Int32
	slow := crop.ProviderFunc(func(context.Context, string) (crop.Snapshot, error) {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return testutil.NewSnapshotBuilder().Build(), nil
	})
	c := crop.NewCache(slow)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Get(context.Background(), "u1")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
