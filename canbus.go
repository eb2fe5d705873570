package evdash

import (
	"context"

	"github.com/jd3nn1s/evdash/evcan"
	log "github.com/sirupsen/logrus"
)

var canBusConnect = func(ctx context.Context, driver, iface string) (CANBus, error) {
	return evcan.Open(ctx, driver, iface)
}

// canBus decodes frames from the bus straight into a sink.
type canBus struct {
	c       CANBus
	ctx     context.Context
	driver  string
	iface   string
	profile Profile
	sink    Sink
}

func (bus *canBus) Open() error {
	c, err := canBusConnect(bus.ctx, bus.driver, bus.iface)
	bus.c = c
	return err
}

func (bus *canBus) Close() error {
	if bus.c == nil {
		return nil
	}
	err := bus.c.Close()
	bus.c = nil
	return err
}

func (bus *canBus) Start(ctx context.Context) error {
	return bus.c.Start(ctx, bus.handleFrame)
}

func (bus *canBus) handleFrame(f evcan.Frame) {
	if !bus.profile.DecodeInto(Frame{ID: f.ID, Data: f.Data}, bus.sink) {
		log.WithField("frame", f).Debug("ignored canbus frame")
	}
}

func (bus *canBus) Name() string {
	return "canbus"
}

// CANProducer is the live producer. It reads the bus until cancelled and gives
// up when the interface cannot be opened.
type CANProducer struct {
	driver  string
	iface   string
	profile Profile
	sink    Sink
}

func NewCANProducer(driver, iface string, profile Profile, sink Sink) *CANProducer {
	if profile == nil {
		profile = StandardProfile
	}
	return &CANProducer{
		driver:  driver,
		iface:   iface,
		profile: profile,
		sink:    sink,
	}
}

func (p *CANProducer) Name() string {
	return "canbus " + p.iface
}

func (p *CANProducer) Run(ctx context.Context) error {
	return retry(ctx, &canBus{
		ctx:     ctx,
		driver:  p.driver,
		iface:   p.iface,
		profile: p.profile,
		sink:    p.sink,
	})
}
