package evdash

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultFrameRate  = 60
	DefaultStaleAfter = 2 * time.Second
)

// DisplayState is everything the drawing side needs for one frame.
type DisplayState struct {
	Speed float64
	RPM   float64
	SoC   float64

	Gear       Gear
	Mode       Mode
	Indicators Indicators

	BatteryTemp int
	MotorTemp   int

	Status string
	// Stale is set when no producer has written a field recently.
	Stale bool
}

// Renderer draws or ships a display state. Render is called from the render
// loop and must not block for long.
type Renderer interface {
	Render(ds DisplayState, at time.Time) error
}

var errLoopStarted = errors.New("render loop already started")

type LoopState int32

const (
	LoopIdle LoopState = iota
	LoopRunning
	LoopShuttingDown
)

func (s LoopState) String() string {
	switch s {
	case LoopIdle:
		return "idle"
	case LoopRunning:
		return "running"
	case LoopShuttingDown:
		return "shutting down"
	}
	return "unknown"
}

func StatusText(g Gear) string {
	switch g {
	case GearPark:
		return "PARK"
	case GearDrive, GearReverse:
		return "READY"
	case GearNeutral:
		return "NEUTRAL"
	}
	return "---"
}

type LoopConfig struct {
	FrameRate     int
	SmoothingRate float64
	StaleAfter    time.Duration
}

type snapshotter interface {
	Snapshot() Telemetry
}

type RenderLoop struct {
	source     snapshotter
	renderers  []Renderer
	interval   time.Duration
	staleAfter time.Duration
	filter     *Filter
	now        func() time.Time

	state    int32
	lastTick time.Time
	stale    bool
}

func NewRenderLoop(source snapshotter, cfg LoopConfig) *RenderLoop {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	initial := DefaultTelemetry()
	l := &RenderLoop{
		source:     source,
		interval:   time.Second / time.Duration(cfg.FrameRate),
		staleAfter: cfg.StaleAfter,
		filter:     NewFilter(cfg.SmoothingRate, initial),
		now:        time.Now,
		stale:      true,
	}
	return l
}

// AddRenderer registers a renderer. It is not safe to call once Run started.
func (l *RenderLoop) AddRenderer(r Renderer) {
	l.renderers = append(l.renderers, r)
}

func (l *RenderLoop) State() LoopState {
	return LoopState(atomic.LoadInt32(&l.state))
}

func (l *RenderLoop) Interval() time.Duration {
	return l.interval
}

// Run ticks until ctx is cancelled. A missing producer only means the
// snapshot never changes.
func (l *RenderLoop) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&l.state, int32(LoopIdle), int32(LoopRunning)) {
		return errLoopStarted
	}
	defer atomic.StoreInt32(&l.state, int32(LoopShuttingDown))

	log.WithField("interval", l.interval).Info("render loop started")
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.lastTick = l.now()
	for {
		select {
		case <-ctx.Done():
			atomic.StoreInt32(&l.state, int32(LoopShuttingDown))
			log.Info("render loop stopping")
			return nil
		case <-ticker.C:
			l.Tick(l.now())
		}
	}
}

// Tick advances the display by the time elapsed since the previous tick and
// hands the result to every renderer.
func (l *RenderLoop) Tick(now time.Time) DisplayState {
	var dt time.Duration
	if !l.lastTick.IsZero() {
		dt = now.Sub(l.lastTick)
	}
	l.lastTick = now

	snap := l.source.Snapshot()
	l.filter.Advance(snap, dt)

	ds := resolve(snap, l.filter)
	ds.Stale = snap.UpdatedAt.IsZero() || now.Sub(snap.UpdatedAt) > l.staleAfter
	if ds.Stale != l.stale {
		if ds.Stale {
			log.WithField("lastUpdate", snap.UpdatedAt).Warn("telemetry is stale")
		} else {
			log.Info("telemetry is live")
		}
		l.stale = ds.Stale
	}

	for _, r := range l.renderers {
		if err := r.Render(ds, now); err != nil {
			log.WithError(err).Warn("renderer failed")
		}
	}
	return ds
}

func resolve(t Telemetry, f *Filter) DisplayState {
	return DisplayState{
		Speed:       f.Speed,
		RPM:         f.RPM,
		SoC:         f.SoC,
		Gear:        t.Gear,
		Mode:        t.Mode,
		Indicators:  t.Indicators,
		BatteryTemp: t.BatteryTemp,
		MotorTemp:   t.MotorTemp,
		Status:      StatusText(t.Gear),
	}
}
