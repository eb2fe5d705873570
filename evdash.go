// Package evdash turns EV telemetry from a CAN bus (or a simulator) into
// smoothed display states for a dashboard renderer.
package evdash

import (
	"context"
	"time"
)

type Options struct {
	CANDriver    string
	CANInterface string
	Profile      Profile

	SimulatorInterval time.Duration
	Loop              LoopConfig
}

// Dashboard wires a store, the live and simulated producers and the render
// loop together.
type Dashboard struct {
	store    *Store
	switcher *Switcher
	loop     *RenderLoop
}

func NewDashboard(opts Options) *Dashboard {
	store := NewStore()
	return &Dashboard{
		store: store,
		switcher: NewSwitcher(
			NewCANProducer(opts.CANDriver, opts.CANInterface, opts.Profile, store),
			NewSimulator(store, opts.SimulatorInterval),
		),
		loop: NewRenderLoop(store, opts.Loop),
	}
}

func (d *Dashboard) Store() *Store {
	return d.store
}

func (d *Dashboard) AddRenderer(r Renderer) {
	d.loop.AddRenderer(r)
}

// SetSimulated selects the producer. Before Run it picks the initial one,
// afterwards it switches at runtime.
func (d *Dashboard) SetSimulated(simulated bool) {
	src := SourceLive
	if simulated {
		src = SourceSimulated
	}
	d.switcher.Switch(src)
}

func (d *Dashboard) ToggleSimulated() Source {
	return d.switcher.Toggle()
}

// Run blocks until ctx is cancelled, then waits for the producer to stop.
func (d *Dashboard) Run(ctx context.Context) error {
	d.switcher.StartActive(ctx)
	defer d.switcher.Stop()
	return d.loop.Run(ctx)
}
