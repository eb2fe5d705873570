package evdash

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusText(t *testing.T) {
	assert.Equal(t, "PARK", StatusText(GearPark))
	assert.Equal(t, "READY", StatusText(GearDrive))
	assert.Equal(t, "READY", StatusText(GearReverse))
	assert.Equal(t, "NEUTRAL", StatusText(GearNeutral))
	assert.Equal(t, "---", StatusText(GearUnknown))
}

func TestTickSmoothsNumericFields(t *testing.T) {
	store := NewStore()
	base := time.Unix(1000, 0)
	store.now = func() time.Time { return base }
	loop := NewRenderLoop(store, LoopConfig{SmoothingRate: 5})

	store.SetSpeed(100)
	store.SetGear(GearDrive)
	store.SetMode(ModeSport)
	store.SetIndicators(IndicatorLeft)
	store.SetMotorTemp(70)

	// first tick has no elapsed time, numeric values stay put
	ds := loop.Tick(base)
	assert.Equal(t, 0.0, ds.Speed)
	assert.Equal(t, 80.0, ds.SoC)
	// discrete fields are copied straight away
	assert.Equal(t, GearDrive, ds.Gear)
	assert.Equal(t, ModeSport, ds.Mode)
	assert.Equal(t, IndicatorLeft, ds.Indicators)
	assert.Equal(t, 70, ds.MotorTemp)
	assert.Equal(t, "READY", ds.Status)
	assert.False(t, ds.Stale)

	ds = loop.Tick(base.Add(100 * time.Millisecond))
	assert.InDelta(t, 50, ds.Speed, 1e-9)

	prev := ds.Speed
	for i := 1; i < 60; i++ {
		ds = loop.Tick(base.Add(100*time.Millisecond + time.Duration(i)*loop.Interval()))
		assert.True(t, ds.Speed >= prev && ds.Speed <= 100)
		prev = ds.Speed
	}
	assert.InDelta(t, 100, ds.Speed, 1)
}

func TestTickUsesMeasuredTime(t *testing.T) {
	store := NewStore()
	store.SetSpeed(100)
	a := NewRenderLoop(store, LoopConfig{SmoothingRate: 5})
	b := NewRenderLoop(store, LoopConfig{SmoothingRate: 5})
	start := time.Now()

	a.Tick(start)
	b.Tick(start)
	// one long tick against two short ones covering the same time
	dsA := a.Tick(start.Add(40 * time.Millisecond))
	b.Tick(start.Add(20 * time.Millisecond))
	dsB := b.Tick(start.Add(40 * time.Millisecond))

	assert.InDelta(t, 20, dsA.Speed, 1e-9)
	assert.InDelta(t, 19, dsB.Speed, 1e-9)
}

func TestTickStale(t *testing.T) {
	store := NewStore()
	loop := NewRenderLoop(store, LoopConfig{StaleAfter: time.Second})
	now := time.Unix(5000, 0)

	assert.True(t, loop.Tick(now).Stale, "no producer has written yet")

	store.now = func() time.Time { return now }
	store.SetSoC(50)
	assert.False(t, loop.Tick(now.Add(500*time.Millisecond)).Stale)

	ds := loop.Tick(now.Add(1500 * time.Millisecond))
	assert.True(t, ds.Stale)
	assert.Equal(t, "PARK", ds.Status, "last values are kept")
}

func TestTickRendererError(t *testing.T) {
	store := NewStore()
	loop := NewRenderLoop(store, LoopConfig{})
	failing := &renderRecorder{err: errors.New("display unplugged")}
	working := &renderRecorder{}
	loop.AddRenderer(failing)
	loop.AddRenderer(working)

	loop.Tick(time.Now())
	loop.Tick(time.Now())
	assert.Equal(t, 2, failing.Count())
	assert.Equal(t, 2, working.Count())
}

func TestRunAndShutdown(t *testing.T) {
	store := NewStore()
	loop := NewRenderLoop(store, LoopConfig{FrameRate: 100})
	rec := &renderRecorder{}
	loop.AddRenderer(rec)
	assert.Equal(t, LoopIdle, loop.State())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := sync.WaitGroup{}
	wg.Add(1)
	var runErr error
	go func() {
		runErr = loop.Run(ctx)
		wg.Done()
	}()

	assert.Eventually(t, func() bool {
		return rec.Count() >= 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, LoopRunning, loop.State())
	assert.Equal(t, errLoopStarted, loop.Run(ctx))

	store.SetGear(GearReverse)
	assert.Eventually(t, func() bool {
		return rec.Last().Gear == GearReverse
	}, time.Second, time.Millisecond)

	cancelled := time.Now()
	cancel()
	wg.Wait()
	assert.True(t, time.Since(cancelled) < 2*loop.Interval()+50*time.Millisecond)
	assert.NoError(t, runErr)
	assert.Equal(t, LoopShuttingDown, loop.State())
}
